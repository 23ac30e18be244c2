// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	api "go.opendefense.cloud/skipper/api/deployer"
)

const (
	// NameLabel marks every object a deployment or task creates; all
	// lookups and deletes select on it rather than on remembered names.
	NameLabel = "skipper.deployer/name"
	// AppKindLabel distinguishes app deployments from task executions.
	AppKindLabel = "skipper.deployer/kind"
	// TaskNameLabel carries the task's app name across its executions, so
	// Destroy can select every execution of one task.
	TaskNameLabel = "skipper.deployer/task-name"

	kindApp  = "app"
	kindTask = "task"

	// primaryContainerName names container[0], the application container.
	primaryContainerName = "app"

	// instanceIndexVolume is the shared volume the generated index
	// provider writes the instance index properties file to.
	instanceIndexVolume = "instance-index"
	instanceIndexPath   = "/config"
)

// SpecBuilder assembles submittable Kubernetes object graphs from a
// resolved pod configuration and the primary container. The output is owned
// by the calling orchestrator for the duration of one deploy call and never
// mutated after submission.
type SpecBuilder struct {
	props   *DeployerProperties
	factory ContainerFactory
}

// NewSpecBuilder creates a SpecBuilder using the given primary container
// factory.
func NewSpecBuilder(props *DeployerProperties, factory ContainerFactory) *SpecBuilder {
	return &SpecBuilder{props: props, factory: factory}
}

// BuildPodSpec assembles the complete pod spec: the decorated primary
// container first, then sidecars and init containers, then every pod-level
// resolved aspect.
func (b *SpecBuilder) BuildPodSpec(request api.AppDeploymentRequest, resolved *ResolvedPodConfiguration, serviceAccountName string) (corev1.PodSpec, error) {
	primary, err := b.factory.Create(request, resolved)
	if err != nil {
		return corev1.PodSpec{}, err
	}
	primary.Name = primaryContainerName
	primary.ImagePullPolicy = resolved.ImagePullPolicy

	// Environment concatenation order: app-property env from the factory,
	// resolved variables and key refs, then the field-ref derived values.
	primary.Env = append(primary.Env, resolved.EnvironmentVariables...)
	primary.Env = append(primary.Env, fieldRefEnv()...)
	primary.EnvFrom = append(primary.EnvFrom, resolved.EnvFrom...)
	primary.VolumeMounts = append(primary.VolumeMounts, resolved.VolumeMounts...)
	primary.Lifecycle = resolved.Lifecycle
	primary.SecurityContext = resolved.ContainerSecurityContext
	if resolved.Limits != nil || resolved.Requests != nil {
		primary.Resources = corev1.ResourceRequirements{
			Limits:   resolved.Limits,
			Requests: resolved.Requests,
		}
	}

	spec := corev1.PodSpec{
		Containers:                    append([]corev1.Container{primary}, resolved.AdditionalContainers...),
		InitContainers:                resolved.InitContainers,
		Volumes:                       resolved.Volumes,
		SecurityContext:               resolved.PodSecurityContext,
		Affinity:                      resolved.Affinity,
		Tolerations:                   resolved.Tolerations,
		NodeSelector:                  resolved.NodeSelector,
		ServiceAccountName:            serviceAccountName,
		TerminationGracePeriodSeconds: resolved.TerminationGracePeriodSeconds,
		HostNetwork:                   resolved.HostNetwork,
		PriorityClassName:             resolved.PriorityClassName,
		ShareProcessNamespace:         resolved.ShareProcessNamespace,
		ImagePullSecrets:              resolved.ImagePullSecrets,
	}
	return spec, nil
}

// fieldRefEnv derives the conventional pod identity variables from the
// downward API. They close the environment list by contract.
func fieldRefEnv() []corev1.EnvVar {
	return []corev1.EnvVar{
		{
			Name: "SKIPPER_POD_NAME",
			ValueFrom: &corev1.EnvVarSource{
				FieldRef: &corev1.ObjectFieldSelector{FieldPath: "metadata.name"},
			},
		},
		{
			Name: "SKIPPER_POD_NAMESPACE",
			ValueFrom: &corev1.EnvVarSource{
				FieldRef: &corev1.ObjectFieldSelector{FieldPath: "metadata.namespace"},
			},
		},
	}
}

// appObjectMeta builds the metadata for one app-scoped object.
func (b *SpecBuilder) appObjectMeta(deploymentID string, resolved *ResolvedPodConfiguration) metav1.ObjectMeta {
	labels := map[string]string{
		NameLabel:    deploymentID,
		AppKindLabel: kindApp,
	}
	for k, v := range resolved.DeploymentLabels {
		labels[k] = v
	}
	return metav1.ObjectMeta{
		Name:      deploymentID,
		Namespace: b.props.Namespace,
		Labels:    labels,
	}
}

// BuildAppProbes decorates the pod spec's primary container with the
// resolved liveness/readiness/startup probes. Probes apply to app workloads
// only.
func (b *SpecBuilder) BuildAppProbes(spec *corev1.PodSpec, request api.AppDeploymentRequest) error {
	if len(spec.Containers) == 0 {
		return fmt.Errorf("pod spec has no containers")
	}
	return attachProbes(&spec.Containers[0], request.DeploymentProperties(), b.props)
}

// BuildDeployment assembles the Deployment for a non-indexed app.
func (b *SpecBuilder) BuildDeployment(deploymentID string, resolved *ResolvedPodConfiguration, podSpec corev1.PodSpec) *appsv1.Deployment {
	podSpec.RestartPolicy = corev1.RestartPolicyAlways
	meta := b.appObjectMeta(deploymentID, resolved)
	return &appsv1.Deployment{
		ObjectMeta: meta,
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(resolved.Replicas)),
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{NameLabel: deploymentID},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      meta.Labels,
					Annotations: resolved.PodAnnotations,
				},
				Spec: podSpec,
			},
		},
	}
}

// BuildStatefulSet assembles the stateful topology for an indexed app: the
// workload object with a generated index-provider init container, a shared
// volume carrying the instance index properties file, and a volume claim
// template sized and classed from the resolved storage properties.
func (b *SpecBuilder) BuildStatefulSet(deploymentID string, resolved *ResolvedPodConfiguration, podSpec corev1.PodSpec) *appsv1.StatefulSet {
	podSpec.RestartPolicy = corev1.RestartPolicyAlways
	podSpec.InitContainers = append(podSpec.InitContainers, b.indexProviderContainer(resolved))
	podSpec.Volumes = append(podSpec.Volumes, corev1.Volume{
		Name: instanceIndexVolume,
		VolumeSource: corev1.VolumeSource{
			EmptyDir: &corev1.EmptyDirVolumeSource{},
		},
	})
	if len(podSpec.Containers) > 0 {
		podSpec.Containers[0].VolumeMounts = append(podSpec.Containers[0].VolumeMounts, corev1.VolumeMount{
			Name:      instanceIndexVolume,
			MountPath: instanceIndexPath,
		})
	}

	meta := b.appObjectMeta(deploymentID, resolved)
	return &appsv1.StatefulSet{
		ObjectMeta: meta,
		Spec: appsv1.StatefulSetSpec{
			Replicas:            ptr.To(int32(resolved.Replicas)),
			ServiceName:         deploymentID,
			PodManagementPolicy: appsv1.ParallelPodManagement,
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{NameLabel: deploymentID},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      meta.Labels,
					Annotations: resolved.PodAnnotations,
				},
				Spec: podSpec,
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{
				{
					ObjectMeta: metav1.ObjectMeta{
						Name:   deploymentID,
						Labels: map[string]string{NameLabel: deploymentID},
					},
					Spec: corev1.PersistentVolumeClaimSpec{
						AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
						StorageClassName: resolved.VolumeClaimStorageClassName,
						Resources: corev1.VolumeResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceStorage: resolved.VolumeClaimStorage,
							},
						},
					},
				},
			},
		},
	}
}

// indexProviderContainer generates the init container that parses the
// platform-assigned ordinal suffix off the pod hostname and writes the two
// conventional index properties to the shared volume, where the application
// container reads them.
func (b *SpecBuilder) indexProviderContainer(resolved *ResolvedPodConfiguration) corev1.Container {
	script := `IDX=${HOSTNAME##*-}; ` +
		`echo "INSTANCE_INDEX=${IDX}" > ` + instanceIndexPath + `/instance-index.properties; ` +
		`echo "instance.index=${IDX}" >> ` + instanceIndexPath + `/instance-index.properties`
	return corev1.Container{
		Name:    "index-provider",
		Image:   resolved.StatefulSetInitContainerImage,
		Command: []string{"sh", "-c", script},
		VolumeMounts: []corev1.VolumeMount{
			{Name: instanceIndexVolume, MountPath: instanceIndexPath},
		},
	}
}

// BuildService assembles the headless-when-indexed service fronting an app.
func (b *SpecBuilder) BuildService(deploymentID string, resolved *ResolvedPodConfiguration, ports []corev1.ContainerPort) *corev1.Service {
	meta := b.appObjectMeta(deploymentID, resolved)
	meta.Annotations = resolved.ServiceAnnotations

	servicePorts := make([]corev1.ServicePort, 0, len(ports))
	for _, p := range ports {
		servicePorts = append(servicePorts, corev1.ServicePort{
			Name: fmt.Sprintf("port-%d", p.ContainerPort),
			Port: p.ContainerPort,
		})
	}

	service := &corev1.Service{
		ObjectMeta: meta,
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{NameLabel: deploymentID},
			Ports:    servicePorts,
		},
	}
	if resolved.Indexed {
		service.Spec.ClusterIP = corev1.ClusterIPNone
	}
	return service
}

// taskObjectMeta builds the metadata for one task-scoped object.
func (b *SpecBuilder) taskObjectMeta(executionID, taskName string, resolved *ResolvedPodConfiguration) metav1.ObjectMeta {
	labels := map[string]string{
		NameLabel:     executionID,
		AppKindLabel:  kindTask,
		TaskNameLabel: taskName,
	}
	for k, v := range resolved.DeploymentLabels {
		labels[k] = v
	}
	return metav1.ObjectMeta{
		Name:        executionID,
		Namespace:   b.props.Namespace,
		Labels:      labels,
		Annotations: resolved.JobAnnotations,
	}
}

// BuildJob assembles the batch Job for one task execution.
func (b *SpecBuilder) BuildJob(executionID, taskName string, resolved *ResolvedPodConfiguration, podSpec corev1.PodSpec, backoffLimit, ttlSecondsAfterFinished *int32) *batchv1.Job {
	podSpec.RestartPolicy = resolved.RestartPolicy
	meta := b.taskObjectMeta(executionID, taskName, resolved)
	return &batchv1.Job{
		ObjectMeta: meta,
		Spec: batchv1.JobSpec{
			BackoffLimit:            backoffLimit,
			TTLSecondsAfterFinished: ttlSecondsAfterFinished,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      meta.Labels,
					Annotations: resolved.PodAnnotations,
				},
				Spec: podSpec,
			},
		},
	}
}

// BuildTaskPod assembles the bare pod used for task executions when job
// creation is disabled.
func (b *SpecBuilder) BuildTaskPod(executionID, taskName string, resolved *ResolvedPodConfiguration, podSpec corev1.PodSpec) *corev1.Pod {
	podSpec.RestartPolicy = resolved.RestartPolicy
	meta := b.taskObjectMeta(executionID, taskName, resolved)
	meta.Annotations = resolved.PodAnnotations
	return &corev1.Pod{
		ObjectMeta: meta,
		Spec:       podSpec,
	}
}
