// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	api "go.opendefense.cloud/skipper/api/deployer"
)

// resolveResourceList resolves limits or requests per resource name: a key
// present in the request overrides the same key from the defaults, absent
// keys keep the default value. The GPU vendor/count pair applies to limits
// only, the vendor naming the extended resource.
func (r *Resolver) resolveResourceList(props map[string]string, key func(string) string, defaults map[string]string, includeGPU bool) (corev1.ResourceList, error) {
	merged := map[string]string{}
	for name, value := range defaults {
		merged[name] = value
	}
	for _, name := range resourceNames {
		if raw, ok := props[key(name)]; ok && strings.TrimSpace(raw) != "" {
			merged[name] = raw
		}
	}

	if includeGPU {
		vendor := r.resolveScalar(props, keyGPUVendor, r.props.GPUVendor)
		count := r.resolveScalar(props, keyGPUCount, r.props.GPUCount)
		if vendor != "" && count != "" {
			merged[vendor] = count
		}
	}

	if len(merged) == 0 {
		return nil, nil
	}

	list := corev1.ResourceList{}
	// Sorted iteration keeps parse error reporting deterministic.
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		quantity, err := resource.ParseQuantity(merged[name])
		if err != nil {
			return nil, api.WrapConfigurationError(key(name), merged[name], "must be a quantity such as 500m or 128Mi", err)
		}
		list[corev1.ResourceName(name)] = quantity
	}
	return list, nil
}
