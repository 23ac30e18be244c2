// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	api "go.opendefense.cloud/skipper/api/deployer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func taskPod(name, executionID string, phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Labels: map[string]string{
				NameLabel:     executionID,
				AppKindLabel:  kindTask,
				TaskNameLabel: "testtask",
			},
		},
		Status: corev1.PodStatus{Phase: phase},
	}
}

var _ = Describe("TaskLauncher", func() {
	var (
		client   *fake.Clientset
		launcher *TaskLauncher
		ctx      context.Context
	)
	log := zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true))

	newLaunchRequest := func(props map[string]string) api.AppDeploymentRequest {
		return api.NewAppDeploymentRequestWithArgs(
			api.NewAppDefinition("testtask", map[string]string{"batch.size": "100"}),
			api.NewDockerResource("ghcr.io/acme/testtask:1"),
			props,
			[]string{"--input=/data"},
		)
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = fake.NewClientset()
		launcher = NewTaskLauncher(client, DefaultDeployerProperties(), log)
	})

	Describe("Launch", func() {
		It("creates a job under a fresh execution id", func() {
			id, err := launcher.Launch(ctx, newLaunchRequest(nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(HavePrefix("testtask-"))
			Expect(id).To(HaveLen(len("testtask-") + 10))

			job, err := client.BatchV1().Jobs("default").Get(ctx, id, metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(job.Labels).To(HaveKeyWithValue(TaskNameLabel, "testtask"))
			Expect(job.Spec.Template.Spec.RestartPolicy).To(Equal(corev1.RestartPolicyNever))
			Expect(job.Spec.Template.Spec.Containers[0].Args).To(ContainElement("--input=/data"))
		})

		It("yields distinct ids for repeated launches of the same task", func() {
			first, err := launcher.Launch(ctx, newLaunchRequest(nil))
			Expect(err).NotTo(HaveOccurred())
			second, err := launcher.Launch(ctx, newLaunchRequest(nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(first).NotTo(Equal(second))
		})

		It("creates a bare pod when job creation is disabled", func() {
			id, err := launcher.Launch(ctx, newLaunchRequest(map[string]string{
				"deployer.kubernetes.createJob": "false",
			}))
			Expect(err).NotTo(HaveOccurred())

			pod, err := client.CoreV1().Pods("default").Get(ctx, id, metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pod.Labels).To(HaveKeyWithValue(AppKindLabel, kindTask))

			jobs, err := client.BatchV1().Jobs("default").List(ctx, metav1.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(jobs.Items).To(BeEmpty())
		})

		It("fails with a StateError at the concurrency cap", func() {
			props := DefaultDeployerProperties()
			props.MaximumConcurrentTasks = 1
			launcher = NewTaskLauncher(client, props, log)

			_, err := client.CoreV1().Pods("default").Create(ctx, taskPod("running-0", "other-task", corev1.PodRunning), metav1.CreateOptions{})
			Expect(err).NotTo(HaveOccurred())

			_, err = launcher.Launch(ctx, newLaunchRequest(nil))
			Expect(err).To(HaveOccurred())
			Expect(api.IsState(err)).To(BeTrue())
		})

		It("rejects restart policy Always for a job-backed task", func() {
			_, err := launcher.Launch(ctx, newLaunchRequest(map[string]string{
				"deployer.kubernetes.restartPolicy": "Always",
			}))
			Expect(err).To(HaveOccurred())
			Expect(api.IsState(err)).To(BeTrue())
		})

		It("passes backoff limit and ttl through to the job", func() {
			id, err := launcher.Launch(ctx, newLaunchRequest(map[string]string{
				"deployer.kubernetes.backoffLimit":            "2",
				"deployer.kubernetes.ttlSecondsAfterFinished": "60",
			}))
			Expect(err).NotTo(HaveOccurred())

			job, err := client.BatchV1().Jobs("default").Get(ctx, id, metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(*job.Spec.BackoffLimit).To(Equal(int32(2)))
			Expect(*job.Spec.TTLSecondsAfterFinished).To(Equal(int32(60)))
		})
	})

	Describe("Status", func() {
		It("reports unknown for an id with no objects", func() {
			status, err := launcher.Status(ctx, "ghost")
			Expect(err).NotTo(HaveOccurred())
			Expect(status.State).To(Equal(api.LaunchStateUnknown))
		})

		It("derives the state from the job counters", func() {
			job := &batchv1.Job{
				ObjectMeta: metav1.ObjectMeta{Name: "testtask-0123456789", Namespace: "default"},
				Status:     batchv1.JobStatus{Succeeded: 1},
			}
			_, err := client.BatchV1().Jobs("default").Create(ctx, job, metav1.CreateOptions{})
			Expect(err).NotTo(HaveOccurred())

			status, err := launcher.Status(ctx, "testtask-0123456789")
			Expect(err).NotTo(HaveOccurred())
			Expect(status.State).To(Equal(api.LaunchStateComplete))
		})

		It("falls back to the pod phase without a job", func() {
			_, err := client.CoreV1().Pods("default").Create(ctx, taskPod("testtask-abc", "testtask-abc", corev1.PodRunning), metav1.CreateOptions{})
			Expect(err).NotTo(HaveOccurred())

			status, err := launcher.Status(ctx, "testtask-abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(status.State).To(Equal(api.LaunchStateRunning))
			Expect(status.Attributes).To(HaveKeyWithValue("pod.name", "testtask-abc"))
		})
	})

	Describe("Cancel and Cleanup", func() {
		It("removes the execution's job and pods", func() {
			id, err := launcher.Launch(ctx, newLaunchRequest(nil))
			Expect(err).NotTo(HaveOccurred())
			_, err = client.CoreV1().Pods("default").Create(ctx, taskPod(id+"-pod", id, corev1.PodRunning), metav1.CreateOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(launcher.Cancel(ctx, id)).To(Succeed())

			_, err = client.BatchV1().Jobs("default").Get(ctx, id, metav1.GetOptions{})
			Expect(err).To(HaveOccurred())
			pods, err := client.CoreV1().Pods("default").List(ctx, metav1.ListOptions{LabelSelector: selectorFor(id)})
			Expect(err).NotTo(HaveOccurred())
			Expect(pods.Items).To(BeEmpty())
		})

		It("tolerates cleanup of an execution that left nothing behind", func() {
			Expect(launcher.Cleanup(ctx, "ghost")).To(Succeed())
		})
	})

	Describe("Destroy", func() {
		It("removes every execution of the named task", func() {
			first, err := launcher.Launch(ctx, newLaunchRequest(nil))
			Expect(err).NotTo(HaveOccurred())
			second, err := launcher.Launch(ctx, newLaunchRequest(nil))
			Expect(err).NotTo(HaveOccurred())

			Expect(launcher.Destroy(ctx, "testtask")).To(Succeed())

			for _, id := range []string{first, second} {
				_, err = client.BatchV1().Jobs("default").Get(ctx, id, metav1.GetOptions{})
				Expect(err).To(HaveOccurred())
			}
		})
	})

	Describe("CurrentExecutionCount", func() {
		It("counts only non-terminal task pods", func() {
			for _, pod := range []*corev1.Pod{
				taskPod("t-0", "t-0", corev1.PodRunning),
				taskPod("t-1", "t-1", corev1.PodPending),
				taskPod("t-2", "t-2", corev1.PodSucceeded),
				taskPod("t-3", "t-3", corev1.PodFailed),
			} {
				_, err := client.CoreV1().Pods("default").Create(ctx, pod, metav1.CreateOptions{})
				Expect(err).NotTo(HaveOccurred())
			}

			count, err := launcher.CurrentExecutionCount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Describe("MaximumConcurrentTasks", func() {
		It("reports the configured cap", func() {
			Expect(launcher.MaximumConcurrentTasks()).To(Equal(20))
		})
	})
})
