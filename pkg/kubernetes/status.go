// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"strconv"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"

	api "go.opendefense.cloud/skipper/api/deployer"
)

// deploymentStateForPod maps one pod's phase to the instance deployment
// state. A succeeded pod means the workload ran to completion and is gone
// from the deployment's perspective.
func deploymentStateForPod(pod *corev1.Pod) api.DeploymentState {
	switch pod.Status.Phase {
	case corev1.PodPending:
		return api.DeploymentStateDeploying
	case corev1.PodSucceeded:
		return api.DeploymentStateUndeployed
	case corev1.PodFailed:
		return api.DeploymentStateFailed
	default:
		return api.DeploymentStateDeployed
	}
}

// launchStateForPod maps one pod's phase to the task launch state.
func launchStateForPod(pod *corev1.Pod) api.LaunchState {
	switch pod.Status.Phase {
	case corev1.PodPending:
		return api.LaunchStateLaunching
	case corev1.PodSucceeded:
		return api.LaunchStateComplete
	case corev1.PodFailed:
		return api.LaunchStateFailed
	default:
		return api.LaunchStateRunning
	}
}

// launchStateForJob derives the task launch state from the job's aggregate
// counters. A failure recorded by the job wins over a later success from a
// retried pod.
func launchStateForJob(job *batchv1.Job) api.LaunchState {
	switch {
	case job.Status.Failed > 0:
		return api.LaunchStateFailed
	case job.Status.Succeeded > 0:
		return api.LaunchStateComplete
	default:
		return api.LaunchStateLaunching
	}
}

// appInstanceStatus builds the per-instance status record exposed for one
// pod of a deployment.
func appInstanceStatus(pod *corev1.Pod) api.AppInstanceStatus {
	attributes := map[string]string{
		"pod.name":        pod.Name,
		"pod.ip":          pod.Status.PodIP,
		"host.ip":         pod.Status.HostIP,
		"phase":           string(pod.Status.Phase),
		"service.account": pod.Spec.ServiceAccountName,
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.Name == primaryContainerName {
			attributes["container.restart.count"] = strconv.Itoa(int(cs.RestartCount))
			if cs.State.Waiting != nil {
				attributes["container.waiting.reason"] = cs.State.Waiting.Reason
			}
			if cs.State.Terminated != nil {
				attributes["container.exit.code"] = strconv.Itoa(int(cs.State.Terminated.ExitCode))
			}
		}
	}
	return api.AppInstanceStatus{
		ID:         pod.Name,
		State:      deploymentStateForPod(pod),
		Attributes: attributes,
	}
}
