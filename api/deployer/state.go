// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package deployer

// DeploymentState is the lifecycle state of a deployed application as a
// whole, aggregated over its instances.
type DeploymentState string

const (
	// DeploymentStateUnknown means no deployment with the queried id is
	// known to the platform.
	DeploymentStateUnknown DeploymentState = "unknown"
	// DeploymentStateDeploying means the deployment was submitted but not
	// all instances are running yet.
	DeploymentStateDeploying DeploymentState = "deploying"
	// DeploymentStateDeployed means every instance is up.
	DeploymentStateDeployed DeploymentState = "deployed"
	// DeploymentStatePartial means some, but not all, instances are up.
	DeploymentStatePartial DeploymentState = "partial"
	// DeploymentStateFailed means every instance failed.
	DeploymentStateFailed DeploymentState = "failed"
	// DeploymentStateError means the state could not be determined.
	DeploymentStateError DeploymentState = "error"
	// DeploymentStateUndeployed means the deployment existed and was
	// removed.
	DeploymentStateUndeployed DeploymentState = "undeployed"
)

// String returns the lowercase state name.
func (s DeploymentState) String() string { return string(s) }

// Terminal reports whether s is a resting state that a status poll loop may
// stop at.
func (s DeploymentState) Terminal() bool {
	switch s {
	case DeploymentStateDeployed, DeploymentStateUndeployed, DeploymentStateFailed,
		DeploymentStateError, DeploymentStateUnknown:
		return true
	}
	return false
}

// LaunchState is the lifecycle state of a short-lived task execution.
type LaunchState string

const (
	// LaunchStateUnknown means no task with the queried id is known.
	LaunchStateUnknown LaunchState = "unknown"
	// LaunchStateLaunching means the task was submitted but has not started.
	LaunchStateLaunching LaunchState = "launching"
	// LaunchStateRunning means the task is executing.
	LaunchStateRunning LaunchState = "running"
	// LaunchStateComplete means the task finished successfully.
	LaunchStateComplete LaunchState = "complete"
	// LaunchStateCancelled means the task was cancelled before completing.
	LaunchStateCancelled LaunchState = "cancelled"
	// LaunchStateFailed means the task finished unsuccessfully.
	LaunchStateFailed LaunchState = "failed"
	// LaunchStateError means the state could not be determined.
	LaunchStateError LaunchState = "error"
)

// String returns the lowercase state name.
func (s LaunchState) String() string { return string(s) }

// Terminal reports whether s is a resting state for a task poll loop.
func (s LaunchState) Terminal() bool {
	switch s {
	case LaunchStateComplete, LaunchStateCancelled, LaunchStateFailed,
		LaunchStateError, LaunchStateUnknown:
		return true
	}
	return false
}
