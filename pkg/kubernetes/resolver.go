// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	api "go.opendefense.cloud/skipper/api/deployer"
	skipperdeployer "go.opendefense.cloud/skipper/pkg/deployer"
)

// EntryPointStyle selects how app properties and arguments reach the
// container entry point.
type EntryPointStyle string

const (
	// EntryPointStyleExec passes app properties as command line arguments.
	EntryPointStyleExec EntryPointStyle = "exec"
	// EntryPointStyleShell passes app properties as environment variables.
	EntryPointStyleShell EntryPointStyle = "shell"
	// EntryPointStyleBoot passes app properties as one JSON document in
	// the SPRING_APPLICATION_JSON environment variable.
	EntryPointStyleBoot EntryPointStyle = "boot"
)

// ResolvedPodConfiguration is the fully merged result of resolving one
// deployment request against the global deployer properties. Every field is
// derived independently from those two inputs; resolving the same pair
// twice yields structurally equal results.
type ResolvedPodConfiguration struct {
	Volumes                  []corev1.Volume
	VolumeMounts             []corev1.VolumeMount
	Tolerations              []corev1.Toleration
	NodeSelector             map[string]string
	Affinity                 *corev1.Affinity
	PodSecurityContext       *corev1.PodSecurityContext
	ContainerSecurityContext *corev1.SecurityContext

	ImagePullPolicy    corev1.PullPolicy
	ImagePullSecrets   []corev1.LocalObjectReference
	ServiceAccountName string
	EntryPointStyle    EntryPointStyle

	RestartPolicy                 corev1.RestartPolicy
	TerminationGracePeriodSeconds *int64
	HostNetwork                   bool
	PriorityClassName             string
	ShareProcessNamespace         *bool

	Limits   corev1.ResourceList
	Requests corev1.ResourceList

	InitContainers       []corev1.Container
	AdditionalContainers []corev1.Container
	Lifecycle            *corev1.Lifecycle

	EnvironmentVariables []corev1.EnvVar
	EnvFrom              []corev1.EnvFromSource

	DeploymentLabels   map[string]string
	PodAnnotations     map[string]string
	ServiceAnnotations map[string]string
	JobAnnotations     map[string]string

	Replicas int
	Indexed  bool

	StatefulSetInitContainerImage string
	VolumeClaimStorage            resource.Quantity
	VolumeClaimStorageClassName   *string
}

// Resolver computes a ResolvedPodConfiguration from a deployment request
// and the global deployer properties. It holds no mutable state; every
// aspect resolution is a pure function of its two inputs.
type Resolver struct {
	props *DeployerProperties
	log   logr.Logger
}

// NewResolver creates a Resolver over the given global properties.
func NewResolver(props *DeployerProperties, log logr.Logger) *Resolver {
	return &Resolver{props: props, log: log}
}

// Resolve merges the request's deployment properties with the global
// defaults for every aspect. Malformed property values fail with a
// ConfigurationError naming the offending key and raw value; nothing is
// silently defaulted except the image pull policy, which by contract warns
// and substitutes IfNotPresent.
func (r *Resolver) Resolve(request api.AppDeploymentRequest) (*ResolvedPodConfiguration, error) {
	props := request.DeploymentProperties()
	resolved := &ResolvedPodConfiguration{}

	var err error
	if resolved.Volumes, err = r.resolveVolumes(props); err != nil {
		return nil, err
	}
	if resolved.VolumeMounts, err = r.resolveVolumeMounts(props); err != nil {
		return nil, err
	}
	if resolved.Tolerations, err = r.resolveTolerations(props); err != nil {
		return nil, err
	}
	if resolved.NodeSelector, err = r.resolveNodeSelector(props); err != nil {
		return nil, err
	}
	if resolved.Affinity, err = r.resolveAffinity(props); err != nil {
		return nil, err
	}
	if resolved.PodSecurityContext, err = r.resolvePodSecurityContext(props); err != nil {
		return nil, err
	}
	if resolved.ContainerSecurityContext, err = r.resolveContainerSecurityContext(props); err != nil {
		return nil, err
	}
	resolved.ImagePullPolicy = r.resolveImagePullPolicy(props)
	if resolved.ImagePullSecrets, err = r.resolveImagePullSecrets(props); err != nil {
		return nil, err
	}
	resolved.ServiceAccountName = r.resolveServiceAccountName(props)
	if resolved.EntryPointStyle, err = r.resolveEntryPointStyle(props); err != nil {
		return nil, err
	}
	if resolved.RestartPolicy, err = r.resolveRestartPolicy(props); err != nil {
		return nil, err
	}
	if resolved.TerminationGracePeriodSeconds, err = r.resolveGracePeriod(props); err != nil {
		return nil, err
	}
	if resolved.HostNetwork, err = r.resolveHostNetwork(props); err != nil {
		return nil, err
	}
	resolved.PriorityClassName = r.resolveScalar(props, keyPriorityClassName, r.props.PriorityClassName)
	if resolved.ShareProcessNamespace, err = r.resolveShareProcessNamespace(props); err != nil {
		return nil, err
	}
	if resolved.Limits, err = r.resolveResourceList(props, limitKey, r.props.Limits, true); err != nil {
		return nil, err
	}
	if resolved.Requests, err = r.resolveResourceList(props, requestKey, r.props.Requests, false); err != nil {
		return nil, err
	}
	if resolved.InitContainers, err = r.resolveInitContainers(props); err != nil {
		return nil, err
	}
	if resolved.AdditionalContainers, err = r.resolveAdditionalContainers(props); err != nil {
		return nil, err
	}
	if resolved.Lifecycle, err = r.resolveLifecycle(props); err != nil {
		return nil, err
	}
	if resolved.EnvironmentVariables, err = r.resolveEnvironmentVariables(props); err != nil {
		return nil, err
	}
	if resolved.EnvFrom, err = r.resolveEnvFrom(props); err != nil {
		return nil, err
	}
	if resolved.DeploymentLabels, err = r.resolveDelimitedMap(props, keyDeploymentLabels, r.props.DeploymentLabels); err != nil {
		return nil, err
	}
	if resolved.PodAnnotations, err = r.resolveDelimitedMap(props, keyPodAnnotations, r.props.PodAnnotations); err != nil {
		return nil, err
	}
	if resolved.ServiceAnnotations, err = r.resolveDelimitedMap(props, keyServiceAnnotations, r.props.ServiceAnnotations); err != nil {
		return nil, err
	}
	if resolved.JobAnnotations, err = r.resolveDelimitedMap(props, keyJobAnnotations, r.props.JobAnnotations); err != nil {
		return nil, err
	}
	if resolved.Replicas, err = r.resolveReplicas(props); err != nil {
		return nil, err
	}
	if resolved.Indexed, err = r.resolveIndexed(props); err != nil {
		return nil, err
	}
	resolved.StatefulSetInitContainerImage = r.resolveScalar(props, keyStatefulSetInitContainerImage, r.props.StatefulSet.InitContainerImageName)
	if resolved.VolumeClaimStorage, err = r.resolveVolumeClaimStorage(props); err != nil {
		return nil, err
	}
	resolved.VolumeClaimStorageClassName = r.resolveVolumeClaimStorageClassName(props)

	return resolved, nil
}

// resolveScalar applies the scalar merge law: a non-blank request value
// wins, otherwise the global default applies.
func (r *Resolver) resolveScalar(props map[string]string, key, defaultValue string) string {
	if v, ok := props[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return defaultValue
}

func (r *Resolver) resolveServiceAccountName(props map[string]string) string {
	return r.resolveScalar(props, keyServiceAccountName, r.props.DeploymentServiceAccountName)
}

func (r *Resolver) resolveEntryPointStyle(props map[string]string) (EntryPointStyle, error) {
	raw := r.resolveScalar(props, keyEntryPointStyle, r.props.EntryPointStyle)
	switch style := EntryPointStyle(strings.ToLower(raw)); style {
	case EntryPointStyleExec, EntryPointStyleShell, EntryPointStyleBoot:
		return style, nil
	default:
		return "", api.NewConfigurationError(keyEntryPointStyle, raw, "must be exec, shell or boot")
	}
}

func (r *Resolver) resolveRestartPolicy(props map[string]string) (corev1.RestartPolicy, error) {
	raw := r.resolveScalar(props, keyRestartPolicy, r.props.RestartPolicy)
	switch policy := corev1.RestartPolicy(raw); policy {
	case corev1.RestartPolicyAlways, corev1.RestartPolicyOnFailure, corev1.RestartPolicyNever:
		return policy, nil
	case "":
		return corev1.RestartPolicyNever, nil
	default:
		return "", api.NewConfigurationError(keyRestartPolicy, raw, "must be Always, OnFailure or Never")
	}
}

func (r *Resolver) resolveGracePeriod(props map[string]string) (*int64, error) {
	raw, ok := props[keyGracePeriod]
	if !ok || strings.TrimSpace(raw) == "" {
		return r.props.TerminationGracePeriodSeconds, nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, api.WrapConfigurationError(keyGracePeriod, raw, "must be an integer number of seconds", err)
	}
	return &seconds, nil
}

func (r *Resolver) resolveHostNetwork(props map[string]string) (bool, error) {
	raw, ok := props[keyHostNetwork]
	if !ok || strings.TrimSpace(raw) == "" {
		return r.props.HostNetwork, nil
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, api.WrapConfigurationError(keyHostNetwork, raw, "must be a boolean", err)
	}
	return enabled, nil
}

func (r *Resolver) resolveShareProcessNamespace(props map[string]string) (*bool, error) {
	raw, ok := props[keyShareProcessNamespace]
	if !ok || strings.TrimSpace(raw) == "" {
		return r.props.ShareProcessNamespace, nil
	}
	share, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, api.WrapConfigurationError(keyShareProcessNamespace, raw, "must be a boolean", err)
	}
	return &share, nil
}

func (r *Resolver) resolveReplicas(props map[string]string) (int, error) {
	raw, ok := props[skipperdeployer.CountPropertyKey]
	if !ok || strings.TrimSpace(raw) == "" {
		return 1, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 {
		return 0, api.WrapConfigurationError(skipperdeployer.CountPropertyKey, raw, "must be a positive integer", err)
	}
	return count, nil
}

func (r *Resolver) resolveIndexed(props map[string]string) (bool, error) {
	raw, ok := props[skipperdeployer.IndexedPropertyKey]
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	indexed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, api.WrapConfigurationError(skipperdeployer.IndexedPropertyKey, raw, "must be a boolean", err)
	}
	return indexed, nil
}

func (r *Resolver) resolveVolumeClaimStorage(props map[string]string) (resource.Quantity, error) {
	raw := r.resolveScalar(props, keyVolumeClaimStorage, r.props.StatefulSet.VolumeClaimTemplateStorage)
	quantity, err := resource.ParseQuantity(raw)
	if err != nil {
		return resource.Quantity{}, api.WrapConfigurationError(keyVolumeClaimStorage, raw, "must be a quantity such as 10Mi", err)
	}
	return quantity, nil
}

func (r *Resolver) resolveVolumeClaimStorageClassName(props map[string]string) *string {
	name := r.resolveScalar(props, keyVolumeClaimStorageClassName, r.props.StatefulSet.VolumeClaimTemplateStorageClassName)
	if name == "" {
		return nil
	}
	return &name
}
