// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"

	api "go.opendefense.cloud/skipper/api/deployer"
	skipperdeployer "go.opendefense.cloud/skipper/pkg/deployer"
	"go.opendefense.cloud/skipper/pkg/observability"
)

// AppDeployer implements the app deployment SPI against one Kubernetes
// namespace. Non-indexed apps become a Deployment plus a Service; indexed
// apps become a StatefulSet plus a headless Service. All state queries go to
// the live API server; nothing is cached between calls.
type AppDeployer struct {
	client  kubernetes.Interface
	props   *DeployerProperties
	builder *SpecBuilder
	resolve *Resolver
	log     logr.Logger
}

var _ api.AppDeployer = (*AppDeployer)(nil)

// NewAppDeployer creates an AppDeployer over the given clientset and global
// properties.
func NewAppDeployer(client kubernetes.Interface, props *DeployerProperties, log logr.Logger) *AppDeployer {
	factory := NewContainerFactory(props)
	return &AppDeployer{
		client:  client,
		props:   props,
		builder: NewSpecBuilder(props, factory),
		resolve: NewResolver(props, log),
		log:     log,
	}
}

func selectorFor(id string) string {
	return labels.Set{NameLabel: id}.String()
}

// logger prefers a caller-scoped logger from the context over the one the
// deployer was constructed with.
func (d *AppDeployer) logger(ctx context.Context) logr.Logger {
	return observability.LoggerFromContextOrDefault(ctx, d.log)
}

// Deploy resolves the request, builds the workload and service objects and
// submits them. The derived deployment id is deterministic, so redeploying
// an app that is still present fails with a StateError instead of creating
// a duplicate.
func (d *AppDeployer) Deploy(ctx context.Context, request api.AppDeploymentRequest) (string, error) {
	id := skipperdeployer.AppDeploymentID(request.Definition().Name(), request.DeploymentProperties())
	log := d.logger(ctx).WithValues("deploymentId", id)

	status, err := d.Status(ctx, id)
	if err != nil {
		return "", err
	}
	if state := status.State(); state != api.DeploymentStateUnknown {
		return "", api.NewStateError(id, fmt.Sprintf("app is already deployed in state %s", state))
	}

	resolved, err := d.resolve.Resolve(request)
	if err != nil {
		return "", err
	}
	podSpec, err := d.builder.BuildPodSpec(request, resolved, resolved.ServiceAccountName)
	if err != nil {
		return "", err
	}
	if err := d.builder.BuildAppProbes(&podSpec, request); err != nil {
		return "", err
	}

	service := d.builder.BuildService(id, resolved, podSpec.Containers[0].Ports)
	if _, err := d.client.CoreV1().Services(d.props.Namespace).Create(ctx, service, metav1.CreateOptions{}); err != nil {
		log.Error(err, "creating service")
		return "", fmt.Errorf("creating service for %s: %w", id, err)
	}

	if resolved.Indexed && resolved.Replicas > 1 {
		set := d.builder.BuildStatefulSet(id, resolved, podSpec)
		if _, err := d.client.AppsV1().StatefulSets(d.props.Namespace).Create(ctx, set, metav1.CreateOptions{}); err != nil {
			log.Error(err, "creating stateful set")
			return "", fmt.Errorf("creating stateful set for %s: %w", id, err)
		}
	} else {
		deployment := d.builder.BuildDeployment(id, resolved, podSpec)
		if _, err := d.client.AppsV1().Deployments(d.props.Namespace).Create(ctx, deployment, metav1.CreateOptions{}); err != nil {
			log.Error(err, "creating deployment")
			return "", fmt.Errorf("creating deployment for %s: %w", id, err)
		}
	}

	log.Info("deployed app", "replicas", resolved.Replicas, "indexed", resolved.Indexed)
	return id, nil
}

// Undeploy removes every object created for the deployment. When nothing is
// deployed under the id it still sweeps for partial leftovers before failing
// with a StateError, so a half-created deployment can always be cleared.
func (d *AppDeployer) Undeploy(ctx context.Context, id string) error {
	status, err := d.Status(ctx, id)
	if err != nil {
		return err
	}
	unknown := status.State() == api.DeploymentStateUnknown

	if err := d.deleteAll(ctx, id); err != nil {
		return err
	}
	if unknown {
		return api.NewStateError(id, "app is not deployed")
	}
	d.logger(ctx).Info("undeployed app", "deploymentId", id)
	return nil
}

// deleteAll removes the service, workload, volume claims and pods selected
// by the deployment id label. Absent objects are not errors.
func (d *AppDeployer) deleteAll(ctx context.Context, id string) error {
	ns := d.props.Namespace
	listOpts := metav1.ListOptions{LabelSelector: selectorFor(id)}

	services, err := d.client.CoreV1().Services(ns).List(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("listing services for %s: %w", id, err)
	}
	for _, svc := range services.Items {
		if err := d.client.CoreV1().Services(ns).Delete(ctx, svc.Name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting service %s: %w", svc.Name, err)
		}
	}

	deployments, err := d.client.AppsV1().Deployments(ns).List(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("listing deployments for %s: %w", id, err)
	}
	for _, item := range deployments.Items {
		if err := d.client.AppsV1().Deployments(ns).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting deployment %s: %w", item.Name, err)
		}
	}

	sets, err := d.client.AppsV1().StatefulSets(ns).List(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("listing stateful sets for %s: %w", id, err)
	}
	for _, item := range sets.Items {
		if err := d.client.AppsV1().StatefulSets(ns).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting stateful set %s: %w", item.Name, err)
		}
	}

	claims, err := d.client.CoreV1().PersistentVolumeClaims(ns).List(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("listing volume claims for %s: %w", id, err)
	}
	for _, item := range claims.Items {
		if err := d.client.CoreV1().PersistentVolumeClaims(ns).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting volume claim %s: %w", item.Name, err)
		}
	}

	pods, err := d.client.CoreV1().Pods(ns).List(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("listing pods for %s: %w", id, err)
	}
	for _, item := range pods.Items {
		if err := d.client.CoreV1().Pods(ns).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting pod %s: %w", item.Name, err)
		}
	}
	return nil
}

// Status reports the live state of the deployment from its pods. An id with
// no pods yields a status whose aggregate state is unknown.
func (d *AppDeployer) Status(ctx context.Context, id string) (api.AppStatus, error) {
	pods, err := d.client.CoreV1().Pods(d.props.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selectorFor(id)})
	if err != nil {
		d.logger(ctx).Error(err, "listing pods", "deploymentId", id)
		return api.AppStatus{}, fmt.Errorf("listing pods for %s: %w", id, err)
	}
	instances := make([]api.AppInstanceStatus, 0, len(pods.Items))
	for i := range pods.Items {
		instances = append(instances, appInstanceStatus(&pods.Items[i]))
	}
	return api.NewAppStatus(id, instances...), nil
}

// Scale sets the replica count on the deployment's scalable object. Apps
// deployed as a Deployment and as a StatefulSet are both scalable; when
// neither exists the id does not refer to a scalable app and the call fails
// with a ConfigurationError.
func (d *AppDeployer) Scale(ctx context.Context, request api.AppScaleRequest) error {
	ns := d.props.Namespace
	count := int32(request.Count)

	deployment, err := d.client.AppsV1().Deployments(ns).Get(ctx, request.DeploymentID, metav1.GetOptions{})
	if err == nil {
		deployment.Spec.Replicas = &count
		if _, err := d.client.AppsV1().Deployments(ns).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("scaling deployment %s: %w", request.DeploymentID, err)
		}
		d.logger(ctx).Info("scaled app", "deploymentId", request.DeploymentID, "count", request.Count)
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("reading deployment %s: %w", request.DeploymentID, err)
	}

	set, err := d.client.AppsV1().StatefulSets(ns).Get(ctx, request.DeploymentID, metav1.GetOptions{})
	if err == nil {
		set.Spec.Replicas = &count
		if _, err := d.client.AppsV1().StatefulSets(ns).Update(ctx, set, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("scaling stateful set %s: %w", request.DeploymentID, err)
		}
		d.logger(ctx).Info("scaled app", "deploymentId", request.DeploymentID, "count", request.Count)
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("reading stateful set %s: %w", request.DeploymentID, err)
	}

	return api.NewConfigurationError(skipperdeployer.CountPropertyKey, fmt.Sprint(request.Count),
		fmt.Sprintf("no scalable workload exists for %s", request.DeploymentID))
}

// Log returns a bounded tail of every container log across the deployment's
// pods, concatenated in pod and container order. An unknown id yields an
// empty string.
func (d *AppDeployer) Log(ctx context.Context, id string) (string, error) {
	pods, err := d.client.CoreV1().Pods(d.props.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selectorFor(id)})
	if err != nil {
		return "", fmt.Errorf("listing pods for %s: %w", id, err)
	}
	var buf bytes.Buffer
	for i := range pods.Items {
		if err := d.appendPodLogs(ctx, &pods.Items[i], &buf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (d *AppDeployer) appendPodLogs(ctx context.Context, pod *corev1.Pod, buf *bytes.Buffer) error {
	tail := d.props.MaxLogLines
	for _, container := range pod.Spec.Containers {
		req := d.client.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
			Container: container.Name,
			TailLines: &tail,
		})
		data, err := req.DoRaw(ctx)
		if err != nil {
			// A container that never started has no log stream yet.
			d.logger(ctx).V(1).Info("skipping unavailable log", "pod", pod.Name, "container", container.Name, "reason", err.Error())
			continue
		}
		buf.Write(data)
	}
	return nil
}

// EnvironmentInfo describes the targeted cluster. The host version is
// resolved best effort; a cluster that cannot be reached yields an empty
// host version rather than an error.
func (d *AppDeployer) EnvironmentInfo() api.RuntimeEnvironmentInfo {
	info := api.RuntimeEnvironmentInfo{
		PlatformType:       "Kubernetes",
		PlatformAPIVersion: "v1",
		SupportsScale:      true,
	}
	if version, err := d.client.Discovery().ServerVersion(); err == nil {
		info.PlatformHostVersion = version.GitVersion
	}
	return info
}
