// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

// mergeByIdentity applies the identity-keyed list merge law: the final list
// is the request-scoped list plus every global-default entry whose identity
// key does not already appear among the request entries. A request entry
// always masks a default sharing its key; unrelated defaults still apply.
func mergeByIdentity[T any](request, defaults []T, identity func(T) string) []T {
	if len(request) == 0 && len(defaults) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(request))
	merged := make([]T, 0, len(request)+len(defaults))
	for _, item := range request {
		seen[identity(item)] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range defaults {
		if _, masked := seen[identity(item)]; !masked {
			merged = append(merged, item)
		}
	}
	return merged
}

// mergePerKey applies the map merge law: defaults first, then request
// entries key by key, the request winning on collision.
func mergePerKey(request, defaults map[string]string) map[string]string {
	if len(request) == 0 && len(defaults) == 0 {
		return nil
	}
	merged := make(map[string]string, len(request)+len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range request {
		merged[k] = v
	}
	return merged
}
