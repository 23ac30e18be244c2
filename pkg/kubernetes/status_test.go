// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"

	api "go.opendefense.cloud/skipper/api/deployer"
)

func TestDeploymentStateForPod(t *testing.T) {
	tests := []struct {
		phase corev1.PodPhase
		want  api.DeploymentState
	}{
		{corev1.PodPending, api.DeploymentStateDeploying},
		{corev1.PodRunning, api.DeploymentStateDeployed},
		{corev1.PodSucceeded, api.DeploymentStateUndeployed},
		{corev1.PodFailed, api.DeploymentStateFailed},
		{corev1.PodUnknown, api.DeploymentStateDeployed},
	}
	for _, tc := range tests {
		t.Run(string(tc.phase), func(t *testing.T) {
			pod := &corev1.Pod{Status: corev1.PodStatus{Phase: tc.phase}}
			assert.Equal(t, tc.want, deploymentStateForPod(pod))
		})
	}
}

func TestLaunchStateForPod(t *testing.T) {
	tests := []struct {
		phase corev1.PodPhase
		want  api.LaunchState
	}{
		{corev1.PodPending, api.LaunchStateLaunching},
		{corev1.PodRunning, api.LaunchStateRunning},
		{corev1.PodSucceeded, api.LaunchStateComplete},
		{corev1.PodFailed, api.LaunchStateFailed},
	}
	for _, tc := range tests {
		t.Run(string(tc.phase), func(t *testing.T) {
			pod := &corev1.Pod{Status: corev1.PodStatus{Phase: tc.phase}}
			assert.Equal(t, tc.want, launchStateForPod(pod))
		})
	}
}

func TestLaunchStateForJob(t *testing.T) {
	tests := []struct {
		name   string
		status batchv1.JobStatus
		want   api.LaunchState
	}{
		{"no counters yet", batchv1.JobStatus{}, api.LaunchStateLaunching},
		{"succeeded", batchv1.JobStatus{Succeeded: 1}, api.LaunchStateComplete},
		{"failed", batchv1.JobStatus{Failed: 1}, api.LaunchStateFailed},
		{"failure wins over retry success", batchv1.JobStatus{Failed: 1, Succeeded: 1}, api.LaunchStateFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job := &batchv1.Job{Status: tc.status}
			assert.Equal(t, tc.want, launchStateForJob(job))
		})
	}
}

func TestAppInstanceStatusAttributes(t *testing.T) {
	pod := &corev1.Pod{
		Status: corev1.PodStatus{
			Phase:  corev1.PodRunning,
			PodIP:  "10.0.0.7",
			HostIP: "192.168.1.2",
			ContainerStatuses: []corev1.ContainerStatus{
				{
					Name:         primaryContainerName,
					RestartCount: 3,
					State: corev1.ContainerState{
						Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
					},
				},
			},
		},
	}
	pod.Name = "myapp-0"

	status := appInstanceStatus(pod)

	assert.Equal(t, "myapp-0", status.ID)
	assert.Equal(t, api.DeploymentStateDeployed, status.State)
	assert.Equal(t, "10.0.0.7", status.Attributes["pod.ip"])
	assert.Equal(t, "3", status.Attributes["container.restart.count"])
	assert.Equal(t, "CrashLoopBackOff", status.Attributes["container.waiting.reason"])
}
