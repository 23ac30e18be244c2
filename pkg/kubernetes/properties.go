// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

// Package kubernetes implements the deployment SPI against a Kubernetes
// cluster: deployment property resolution, pod/workload spec building, and
// the app deployer and task launcher orchestrators.
package kubernetes

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

// SecretKeyRef maps one key of a Kubernetes secret to an environment
// variable of the application container.
type SecretKeyRef struct {
	// EnvVarName is the environment variable to create.
	EnvVarName string `json:"envVarName"`
	// SecretName is the secret holding the value.
	SecretName string `json:"secretName"`
	// DataKey is the key within the secret.
	DataKey string `json:"dataKey"`
}

// ConfigMapKeyRef maps one key of a config map to an environment variable
// of the application container.
type ConfigMapKeyRef struct {
	// EnvVarName is the environment variable to create.
	EnvVarName string `json:"envVarName"`
	// ConfigMapName is the config map holding the value.
	ConfigMapName string `json:"configMapName"`
	// DataKey is the key within the config map.
	DataKey string `json:"dataKey"`
}

// ProbeProperties are the defaults for one probe kind.
type ProbeProperties struct {
	// Type selects the probe mechanism: http, tcp or cmd.
	Type string `json:"type" default:"tcp"`
	// Path is the HTTP path for http probes.
	Path string `json:"path"`
	// Port is the port probed; zero means the container's first port.
	Port int32 `json:"port"`
	// Delay is the initial delay in seconds.
	Delay int32 `json:"delay"`
	// Period is the probe period in seconds.
	Period int32 `json:"period" default:"10"`
	// Timeout is the probe timeout in seconds.
	Timeout int32 `json:"timeout" default:"2"`
	// Failure is the failure threshold.
	Failure int32 `json:"failure" default:"3"`
	// Success is the success threshold.
	Success int32 `json:"success" default:"1"`
	// Command is the command line for cmd probes.
	Command string `json:"command"`
}

// StatefulSetProperties configure the stateful topology used for indexed
// deployments.
type StatefulSetProperties struct {
	// InitContainerImageName is the image of the generated index-provider
	// init container.
	InitContainerImageName string `json:"initContainerImageName" default:"busybox:1"`
	// VolumeClaimTemplateStorage sizes the per-instance volume claim.
	VolumeClaimTemplateStorage string `json:"volumeClaimTemplateStorage" default:"10Mi"`
	// VolumeClaimTemplateStorageClassName selects the storage class; empty
	// means the cluster default.
	VolumeClaimTemplateStorageClassName string `json:"volumeClaimTemplateStorageClassName"`
}

// DeployerProperties are the process-wide defaults for every resolvable
// deployment aspect plus the namespace and task settings of the target
// cluster. They are constructed once at startup, may be mutated only before
// first use, and are read-only afterwards; all per-request resolution is a
// pure function over one request and this object.
type DeployerProperties struct {
	// Namespace is the namespace all objects are created in.
	Namespace string `json:"namespace" default:"default"`

	// ImagePullPolicy is the default pull policy (Always, IfNotPresent,
	// Never).
	ImagePullPolicy string `json:"imagePullPolicy" default:"IfNotPresent"`
	// ImagePullSecret is a single default image pull secret name.
	ImagePullSecret string `json:"imagePullSecret"`
	// ImagePullSecrets is an ordered list of default image pull secret
	// names; it takes precedence over ImagePullSecret when non-empty.
	ImagePullSecrets []string `json:"imagePullSecrets"`

	// DeploymentServiceAccountName is the service account for app pods.
	DeploymentServiceAccountName string `json:"deploymentServiceAccountName" default:"default"`
	// TaskServiceAccountName is the service account for task pods.
	TaskServiceAccountName string `json:"taskServiceAccountName" default:"default"`

	// EntryPointStyle selects how app properties reach the container:
	// exec (command line args), shell (environment variables) or boot
	// (a single JSON environment variable).
	EntryPointStyle string `json:"entryPointStyle" default:"exec"`

	// RestartPolicy is the default restart policy for task pods.
	RestartPolicy string `json:"restartPolicy" default:"Never"`
	// TerminationGracePeriodSeconds is the default pod grace period; nil
	// leaves the platform default.
	TerminationGracePeriodSeconds *int64 `json:"terminationGracePeriodSeconds"`
	// HostNetwork enables host networking for pods.
	HostNetwork bool `json:"hostNetwork"`
	// PriorityClassName is the default pod priority class.
	PriorityClassName string `json:"priorityClassName"`
	// ShareProcessNamespace enables a shared process namespace per pod.
	ShareProcessNamespace *bool `json:"shareProcessNamespace"`

	// Volumes are default pod volumes, masked per name by request volumes.
	Volumes []corev1.Volume `json:"volumes"`
	// VolumeMounts are default container mounts, masked per name.
	VolumeMounts []corev1.VolumeMount `json:"volumeMounts"`
	// Tolerations are default tolerations, masked per toleration key.
	Tolerations []corev1.Toleration `json:"tolerations"`
	// NodeSelector are default node selector terms, merged per key.
	NodeSelector map[string]string `json:"nodeSelector"`

	// NodeAffinity is the default node affinity sub-tree.
	NodeAffinity *corev1.NodeAffinity `json:"nodeAffinity"`
	// PodAffinity is the default pod affinity sub-tree.
	PodAffinity *corev1.PodAffinity `json:"podAffinity"`
	// PodAntiAffinity is the default pod anti-affinity sub-tree.
	PodAntiAffinity *corev1.PodAntiAffinity `json:"podAntiAffinity"`

	// PodSecurityContext is the default pod-level security context, used
	// wholesale when a request supplies none of its own.
	PodSecurityContext *corev1.PodSecurityContext `json:"podSecurityContext"`
	// ContainerSecurityContext is the default container security context.
	ContainerSecurityContext *corev1.SecurityContext `json:"containerSecurityContext"`

	// Limits are default resource limits per resource name.
	Limits map[string]string `json:"limits"`
	// Requests are default resource requests per resource name.
	Requests map[string]string `json:"requests"`
	// GPUVendor is the default GPU resource name, e.g. "nvidia.com/gpu".
	GPUVendor string `json:"gpuVendor"`
	// GPUCount is the default GPU count, paired with GPUVendor.
	GPUCount string `json:"gpuCount"`

	// EnvironmentVariables are default container environment entries in
	// KEY=VALUE form (single-quoted values may contain commas).
	EnvironmentVariables []string `json:"environmentVariables"`
	// SecretKeyRefs are default secret-to-env mappings, masked per
	// generated env var name.
	SecretKeyRefs []SecretKeyRef `json:"secretKeyRefs"`
	// ConfigMapKeyRefs are default config-map-to-env mappings.
	ConfigMapKeyRefs []ConfigMapKeyRef `json:"configMapKeyRefs"`
	// SecretRefs are default bulk envFrom secret names.
	SecretRefs []string `json:"secretRefs"`
	// ConfigMapRefs are default bulk envFrom config map names.
	ConfigMapRefs []string `json:"configMapRefs"`

	// InitContainers are default init containers, appended after any the
	// request supplies.
	InitContainers []corev1.Container `json:"initContainers"`
	// AdditionalContainers are default sidecar containers, masked per name.
	AdditionalContainers []corev1.Container `json:"additionalContainers"`

	// PostStartCommand is the default postStart lifecycle exec command.
	PostStartCommand string `json:"postStartCommand"`
	// PreStopCommand is the default preStop lifecycle exec command.
	PreStopCommand string `json:"preStopCommand"`

	// DeploymentLabels are default labels in "k:v,k2:v2" form.
	DeploymentLabels string `json:"deploymentLabels"`
	// PodAnnotations are default pod annotations in "k:v,k2:v2" form.
	PodAnnotations string `json:"podAnnotations"`
	// ServiceAnnotations are default service annotations.
	ServiceAnnotations string `json:"serviceAnnotations"`
	// JobAnnotations are default job annotations.
	JobAnnotations string `json:"jobAnnotations"`

	// LivenessProbe holds liveness probe defaults.
	LivenessProbe ProbeProperties `json:"livenessProbe"`
	// ReadinessProbe holds readiness probe defaults.
	ReadinessProbe ProbeProperties `json:"readinessProbe"`
	// StartupProbe holds startup probe defaults.
	StartupProbe ProbeProperties `json:"startupProbe"`

	// StatefulSet configures indexed deployments.
	StatefulSet StatefulSetProperties `json:"statefulSet"`

	// CreateJob selects batch Jobs (true) or bare pods (false) for tasks.
	CreateJob bool `json:"createJob" default:"true"`
	// BackoffLimit is the default Job backoff limit; nil leaves the
	// platform default.
	BackoffLimit *int32 `json:"backoffLimit"`
	// TTLSecondsAfterFinished is the default Job cleanup TTL; nil leaves
	// the platform default.
	TTLSecondsAfterFinished *int32 `json:"ttlSecondsAfterFinished"`
	// MaximumConcurrentTasks caps concurrently running task executions.
	MaximumConcurrentTasks int `json:"maximumConcurrentTasks" default:"20"`

	// MaxLogLines bounds the tail returned per container log.
	MaxLogLines int64 `json:"maxLogLines" default:"500"`
}

// DefaultDeployerProperties returns DeployerProperties with every default
// applied.
func DefaultDeployerProperties() *DeployerProperties {
	props := &DeployerProperties{}
	// The default tags are total; Set only fails on non-struct input.
	if err := defaults.Set(props); err != nil {
		panic(fmt.Sprintf("defaulting deployer properties: %v", err))
	}
	return props
}

// LoadDeployerProperties loads DeployerProperties from a yaml file, applying
// defaults for everything the file does not set. Binding follows json field
// names, so embedded Kubernetes types use their canonical spelling.
func LoadDeployerProperties(path string) (*DeployerProperties, error) {
	props := DefaultDeployerProperties()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deployer properties %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, props); err != nil {
		return nil, fmt.Errorf("parsing deployer properties %s: %w", path, err)
	}
	return props, nil
}
