// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package deployer

import "maps"

// AppInstanceStatus is the observed state of one instance of a deployed
// application. Attributes carry backend-specific detail such as a working
// directory and stdout/stderr paths (local backend) or a pod IP and actuator
// port (Kubernetes backend).
type AppInstanceStatus struct {
	// ID identifies the instance within the deployment.
	ID string
	// State is the instance's own deployment state.
	State DeploymentState
	// Attributes holds backend-specific details about the instance.
	Attributes map[string]string
}

// AppStatus is the observed state of a deployment, recomputed from the live
// platform on every query and never cached.
type AppStatus struct {
	// DeploymentID identifies the deployment.
	DeploymentID string
	// Instances holds per-instance status keyed by instance id.
	Instances map[string]AppInstanceStatus
}

// NewAppStatus builds an AppStatus over the given instances.
func NewAppStatus(id string, instances ...AppInstanceStatus) AppStatus {
	m := make(map[string]AppInstanceStatus, len(instances))
	for _, inst := range instances {
		m[inst.ID] = inst
	}
	return AppStatus{DeploymentID: id, Instances: m}
}

// State aggregates the instance states into one deployment state: no
// instances means unknown; all deployed means deployed; all failed means
// failed; all in the same non-terminal state reports that state; any other
// mix is partial.
func (s AppStatus) State() DeploymentState {
	if len(s.Instances) == 0 {
		return DeploymentStateUnknown
	}
	counts := map[DeploymentState]int{}
	for _, inst := range s.Instances {
		counts[inst.State]++
	}
	total := len(s.Instances)
	switch {
	case counts[DeploymentStateDeployed] == total:
		return DeploymentStateDeployed
	case counts[DeploymentStateFailed] == total:
		return DeploymentStateFailed
	case counts[DeploymentStateError] > 0:
		return DeploymentStateError
	case counts[DeploymentStateDeploying] == total:
		return DeploymentStateDeploying
	case counts[DeploymentStateUnknown] == total:
		return DeploymentStateUnknown
	default:
		return DeploymentStatePartial
	}
}

// TaskStatus is the observed state of one task execution.
type TaskStatus struct {
	// ID identifies the task execution.
	ID string
	// State is the task's launch state.
	State LaunchState
	// Attributes holds backend-specific details about the execution.
	Attributes map[string]string
}

// WithAttributes returns a copy of the status with the given attributes.
func (s TaskStatus) WithAttributes(attrs map[string]string) TaskStatus {
	s.Attributes = maps.Clone(attrs)
	return s
}
