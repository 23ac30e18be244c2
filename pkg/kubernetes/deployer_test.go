// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	api "go.opendefense.cloud/skipper/api/deployer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func appPod(name, deploymentID string, phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Labels:    map[string]string{NameLabel: deploymentID, AppKindLabel: kindApp},
		},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: primaryContainerName, Image: "ghcr.io/acme/testapp:1"}},
		},
		Status: corev1.PodStatus{Phase: phase},
	}
}

var _ = Describe("AppDeployer", func() {
	var (
		client   *fake.Clientset
		deployer *AppDeployer
		ctx      context.Context
	)
	log := zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true))

	newDeployRequest := func(props map[string]string) api.AppDeploymentRequest {
		return api.NewAppDeploymentRequest(
			api.NewAppDefinition("testapp", map[string]string{"server.port": "8080"}),
			api.NewDockerResource("ghcr.io/acme/testapp:1"),
			props,
		)
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = fake.NewClientset()
		deployer = NewAppDeployer(client, DefaultDeployerProperties(), log)
	})

	Describe("Deploy", func() {
		It("creates a service and a deployment for a plain app", func() {
			id, err := deployer.Deploy(ctx, newDeployRequest(nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("testapp"))

			service, err := client.CoreV1().Services("default").Get(ctx, "testapp", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(service.Spec.Selector).To(HaveKeyWithValue(NameLabel, "testapp"))

			deployment, err := client.AppsV1().Deployments("default").Get(ctx, "testapp", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(*deployment.Spec.Replicas).To(Equal(int32(1)))
			Expect(deployment.Spec.Template.Spec.Containers[0].Image).To(Equal("ghcr.io/acme/testapp:1"))
			Expect(deployment.Spec.Template.Spec.Containers[0].LivenessProbe).NotTo(BeNil())
		})

		It("derives the id from the group property", func() {
			id, err := deployer.Deploy(ctx, newDeployRequest(map[string]string{
				"deployer.group": "ticker.Stream",
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("ticker-stream-testapp"))
		})

		It("creates a stateful set for an indexed app with multiple instances", func() {
			_, err := deployer.Deploy(ctx, newDeployRequest(map[string]string{
				"deployer.count":   "3",
				"deployer.indexed": "true",
			}))
			Expect(err).NotTo(HaveOccurred())

			set, err := client.AppsV1().StatefulSets("default").Get(ctx, "testapp", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(*set.Spec.Replicas).To(Equal(int32(3)))

			service, err := client.CoreV1().Services("default").Get(ctx, "testapp", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(service.Spec.ClusterIP).To(Equal(corev1.ClusterIPNone))
		})

		It("fails with a StateError when the app is already deployed", func() {
			_, err := client.CoreV1().Pods("default").Create(ctx, appPod("testapp-0", "testapp", corev1.PodRunning), metav1.CreateOptions{})
			Expect(err).NotTo(HaveOccurred())

			_, err = deployer.Deploy(ctx, newDeployRequest(nil))
			Expect(err).To(HaveOccurred())
			Expect(api.IsState(err)).To(BeTrue())
		})

		It("surfaces malformed properties as a ConfigurationError", func() {
			_, err := deployer.Deploy(ctx, newDeployRequest(map[string]string{
				"deployer.kubernetes.limits.cpu": "lots",
			}))
			Expect(err).To(HaveOccurred())
			Expect(api.IsConfiguration(err)).To(BeTrue())
		})
	})

	Describe("Status", func() {
		It("reports unknown for an id with no pods", func() {
			status, err := deployer.Status(ctx, "ghost")
			Expect(err).NotTo(HaveOccurred())
			Expect(status.State()).To(Equal(api.DeploymentStateUnknown))
		})

		It("aggregates instance states from live pods", func() {
			for _, pod := range []*corev1.Pod{
				appPod("testapp-0", "testapp", corev1.PodRunning),
				appPod("testapp-1", "testapp", corev1.PodPending),
			} {
				_, err := client.CoreV1().Pods("default").Create(ctx, pod, metav1.CreateOptions{})
				Expect(err).NotTo(HaveOccurred())
			}

			status, err := deployer.Status(ctx, "testapp")
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Instances).To(HaveLen(2))
			Expect(status.State()).To(Equal(api.DeploymentStatePartial))
			Expect(status.Instances["testapp-0"].State).To(Equal(api.DeploymentStateDeployed))
		})
	})

	Describe("Undeploy", func() {
		It("removes the service and workload of a deployed app", func() {
			_, err := deployer.Deploy(ctx, newDeployRequest(nil))
			Expect(err).NotTo(HaveOccurred())
			_, err = client.CoreV1().Pods("default").Create(ctx, appPod("testapp-0", "testapp", corev1.PodRunning), metav1.CreateOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(deployer.Undeploy(ctx, "testapp")).To(Succeed())

			_, err = client.CoreV1().Services("default").Get(ctx, "testapp", metav1.GetOptions{})
			Expect(err).To(HaveOccurred())
			pods, err := client.CoreV1().Pods("default").List(ctx, metav1.ListOptions{LabelSelector: selectorFor("testapp")})
			Expect(err).NotTo(HaveOccurred())
			Expect(pods.Items).To(BeEmpty())
		})

		It("fails with a StateError when nothing is deployed", func() {
			err := deployer.Undeploy(ctx, "ghost")
			Expect(err).To(HaveOccurred())
			Expect(api.IsState(err)).To(BeTrue())
		})
	})

	Describe("Scale", func() {
		It("updates the replica count of a deployment", func() {
			_, err := deployer.Deploy(ctx, newDeployRequest(nil))
			Expect(err).NotTo(HaveOccurred())

			Expect(deployer.Scale(ctx, api.AppScaleRequest{DeploymentID: "testapp", Count: 5})).To(Succeed())

			deployment, err := client.AppsV1().Deployments("default").Get(ctx, "testapp", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(*deployment.Spec.Replicas).To(Equal(int32(5)))
		})

		It("fails with a ConfigurationError when no scalable workload exists", func() {
			err := deployer.Scale(ctx, api.AppScaleRequest{DeploymentID: "ghost", Count: 2})
			Expect(err).To(HaveOccurred())
			Expect(api.IsConfiguration(err)).To(BeTrue())
		})
	})

	Describe("Log", func() {
		It("returns an empty string for an unknown id", func() {
			logOutput, err := deployer.Log(ctx, "ghost")
			Expect(err).NotTo(HaveOccurred())
			Expect(logOutput).To(BeEmpty())
		})

		It("concatenates container logs across the deployment's pods", func() {
			_, err := client.CoreV1().Pods("default").Create(ctx, appPod("testapp-0", "testapp", corev1.PodRunning), metav1.CreateOptions{})
			Expect(err).NotTo(HaveOccurred())

			logOutput, err := deployer.Log(ctx, "testapp")
			Expect(err).NotTo(HaveOccurred())
			Expect(logOutput).NotTo(BeEmpty())
		})
	})

	Describe("EnvironmentInfo", func() {
		It("describes the Kubernetes runtime", func() {
			info := deployer.EnvironmentInfo()
			Expect(info.PlatformType).To(Equal("Kubernetes"))
			Expect(info.SupportsScale).To(BeTrue())
		})
	})
})
