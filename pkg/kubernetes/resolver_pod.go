// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"strings"

	corev1 "k8s.io/api/core/v1"

	api "go.opendefense.cloud/skipper/api/deployer"
	"go.opendefense.cloud/skipper/pkg/properties"
)

// resolveVolumes merges request volumes with the global defaults, keyed by
// volume name.
func (r *Resolver) resolveVolumes(props map[string]string) ([]corev1.Volume, error) {
	var requested []corev1.Volume
	if raw, ok := props[keyVolumes]; ok && strings.TrimSpace(raw) != "" {
		var bound struct {
			Volumes []corev1.Volume `json:"volumes"`
		}
		if err := properties.BindYAMLFragment(raw, "volumes", &bound); err != nil {
			return nil, api.WrapConfigurationError(keyVolumes, raw, "must be a list of volumes", err)
		}
		requested = bound.Volumes
	}
	return mergeByIdentity(requested, r.props.Volumes, func(v corev1.Volume) string { return v.Name }), nil
}

// resolveVolumeMounts merges request volume mounts with the global defaults,
// keyed by mount name.
func (r *Resolver) resolveVolumeMounts(props map[string]string) ([]corev1.VolumeMount, error) {
	var requested []corev1.VolumeMount
	if raw, ok := props[keyVolumeMounts]; ok && strings.TrimSpace(raw) != "" {
		var bound struct {
			VolumeMounts []corev1.VolumeMount `json:"volumeMounts"`
		}
		if err := properties.BindYAMLFragment(raw, "volumeMounts", &bound); err != nil {
			return nil, api.WrapConfigurationError(keyVolumeMounts, raw, "must be a list of volume mounts", err)
		}
		requested = bound.VolumeMounts
	}
	return mergeByIdentity(requested, r.props.VolumeMounts, func(m corev1.VolumeMount) string { return m.Name }), nil
}

// resolveTolerations merges request tolerations with the global defaults,
// keyed by toleration key: a request toleration masks a default with the
// same key, defaults with distinct keys still apply.
func (r *Resolver) resolveTolerations(props map[string]string) ([]corev1.Toleration, error) {
	var requested []corev1.Toleration
	if raw, ok := props[keyTolerations]; ok && strings.TrimSpace(raw) != "" {
		var bound struct {
			Tolerations []corev1.Toleration `json:"tolerations"`
		}
		if err := properties.BindYAMLFragment(raw, "tolerations", &bound); err != nil {
			return nil, api.WrapConfigurationError(keyTolerations, raw, "must be a list of tolerations", err)
		}
		requested = bound.Tolerations
	}
	return mergeByIdentity(requested, r.props.Tolerations, func(t corev1.Toleration) string { return t.Key }), nil
}

// resolveNodeSelector resolves the node selector from the first non-blank
// accepted spelling and merges it per key with the global default. A pair
// that is not exactly "key:value" fails resolution.
func (r *Resolver) resolveNodeSelector(props map[string]string) (map[string]string, error) {
	key, raw, ok := properties.FirstNonBlank(props, nodeSelectorKeys...)
	if !ok {
		return mergePerKey(nil, r.props.NodeSelector), nil
	}
	requested := map[string]string{}
	for pair := range strings.SplitSeq(raw, ",") {
		parts := strings.Split(strings.TrimSpace(pair), ":")
		if len(parts) != 2 {
			return nil, api.NewConfigurationError(key, raw,
				"each selector must be a single key:value pair, offending pair "+strings.TrimSpace(pair))
		}
		requested[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return mergePerKey(requested, r.props.NodeSelector), nil
}

// resolveAffinity resolves the three affinity sub-trees independently. Per
// sub-tree: a configured global default applies when the request has no
// override text; override text, when present, is parsed and used wholesale;
// with neither the sub-tree stays unset.
func (r *Resolver) resolveAffinity(props map[string]string) (*corev1.Affinity, error) {
	affinity := &corev1.Affinity{}

	if raw, ok := props[keyNodeAffinity]; ok && strings.TrimSpace(raw) != "" {
		node := &corev1.NodeAffinity{}
		if err := properties.BindYAML(raw, node); err != nil {
			return nil, api.WrapConfigurationError(keyNodeAffinity, raw, "must be a node affinity", err)
		}
		affinity.NodeAffinity = node
	} else if r.props.NodeAffinity != nil {
		affinity.NodeAffinity = r.props.NodeAffinity.DeepCopy()
	}

	if raw, ok := props[keyPodAffinity]; ok && strings.TrimSpace(raw) != "" {
		pod := &corev1.PodAffinity{}
		if err := properties.BindYAML(raw, pod); err != nil {
			return nil, api.WrapConfigurationError(keyPodAffinity, raw, "must be a pod affinity", err)
		}
		affinity.PodAffinity = pod
	} else if r.props.PodAffinity != nil {
		affinity.PodAffinity = r.props.PodAffinity.DeepCopy()
	}

	if raw, ok := props[keyPodAntiAffinity]; ok && strings.TrimSpace(raw) != "" {
		anti := &corev1.PodAntiAffinity{}
		if err := properties.BindYAML(raw, anti); err != nil {
			return nil, api.WrapConfigurationError(keyPodAntiAffinity, raw, "must be a pod anti-affinity", err)
		}
		affinity.PodAntiAffinity = anti
	} else if r.props.PodAntiAffinity != nil {
		affinity.PodAntiAffinity = r.props.PodAntiAffinity.DeepCopy()
	}

	if affinity.NodeAffinity == nil && affinity.PodAffinity == nil && affinity.PodAntiAffinity == nil {
		return nil, nil
	}
	return affinity, nil
}

// resolvePodSecurityContext applies the aspect-level override law: a
// request value yields a context built only from the request's own
// sub-fields, with nothing inherited from the default; no request value
// yields the whole default object.
func (r *Resolver) resolvePodSecurityContext(props map[string]string) (*corev1.PodSecurityContext, error) {
	raw, ok := props[keyPodSecurityContext]
	if !ok || strings.TrimSpace(raw) == "" {
		if r.props.PodSecurityContext == nil {
			return nil, nil
		}
		return r.props.PodSecurityContext.DeepCopy(), nil
	}
	ctx := &corev1.PodSecurityContext{}
	if err := properties.BindYAML(raw, ctx); err != nil {
		return nil, api.WrapConfigurationError(keyPodSecurityContext, raw, "must be a pod security context", err)
	}
	return ctx, nil
}

// resolveContainerSecurityContext follows the same aspect-level override
// law as resolvePodSecurityContext.
func (r *Resolver) resolveContainerSecurityContext(props map[string]string) (*corev1.SecurityContext, error) {
	raw, ok := props[keyContainerSecurityContext]
	if !ok || strings.TrimSpace(raw) == "" {
		if r.props.ContainerSecurityContext == nil {
			return nil, nil
		}
		return r.props.ContainerSecurityContext.DeepCopy(), nil
	}
	ctx := &corev1.SecurityContext{}
	if err := properties.BindYAML(raw, ctx); err != nil {
		return nil, api.WrapConfigurationError(keyContainerSecurityContext, raw, "must be a container security context", err)
	}
	return ctx, nil
}

// resolveImagePullPolicy never fails: an unparseable value logs a warning
// and substitutes IfNotPresent. This is the one deliberate exception to the
// fail-fast rule for malformed properties.
func (r *Resolver) resolveImagePullPolicy(props map[string]string) corev1.PullPolicy {
	raw := r.resolveScalar(props, keyImagePullPolicy, r.props.ImagePullPolicy)
	switch policy := corev1.PullPolicy(raw); policy {
	case corev1.PullAlways, corev1.PullIfNotPresent, corev1.PullNever:
		return policy
	default:
		r.log.Info("Invalid image pull policy, falling back to IfNotPresent", "value", raw)
		return corev1.PullIfNotPresent
	}
}

// resolveImagePullSecrets resolves the ordered pull secret list: a request
// list replaces the defaults wholly; within each side the plural form wins
// over the singular.
func (r *Resolver) resolveImagePullSecrets(props map[string]string) ([]corev1.LocalObjectReference, error) {
	names, err := r.resolveImagePullSecretNames(props)
	if err != nil {
		return nil, err
	}
	refs := make([]corev1.LocalObjectReference, 0, len(names))
	for _, name := range names {
		refs = append(refs, corev1.LocalObjectReference{Name: name})
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}

func (r *Resolver) resolveImagePullSecretNames(props map[string]string) ([]string, error) {
	if raw, ok := props[keyImagePullSecrets]; ok && strings.TrimSpace(raw) != "" {
		var names []string
		if err := properties.BindYAML(raw, &names); err != nil {
			return nil, api.WrapConfigurationError(keyImagePullSecrets, raw, "must be a list of secret names", err)
		}
		return names, nil
	}
	if name := strings.TrimSpace(props[keyImagePullSecret]); name != "" {
		return []string{name}, nil
	}
	if len(r.props.ImagePullSecrets) > 0 {
		return r.props.ImagePullSecrets, nil
	}
	if r.props.ImagePullSecret != "" {
		return []string{r.props.ImagePullSecret}, nil
	}
	return nil, nil
}

// resolveDelimitedMap resolves one of the annotation/label map aspects: the
// request string is concatenated with the global default string (request
// first) and parsed as one list, so pairs from both sides land in the map
// with plain insertion-overwrite semantics for duplicate keys.
func (r *Resolver) resolveDelimitedMap(props map[string]string, key, defaultValue string) (map[string]string, error) {
	joined := strings.TrimSpace(props[key])
	if defaults := strings.TrimSpace(defaultValue); defaults != "" {
		if joined != "" {
			joined += ","
		}
		joined += defaults
	}
	if joined == "" {
		return nil, nil
	}
	parsed, err := properties.ParseDelimitedMap(joined)
	if err != nil {
		return nil, api.WrapConfigurationError(key, joined, "must be comma-separated key:value pairs", err)
	}
	return parsed, nil
}
