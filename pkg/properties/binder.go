// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package properties

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// BindYAMLFragment binds a raw property value into the named field of a
// typed target. The value is wrapped into a synthetic one-field YAML
// document ("{fieldName: <value>}") and unmarshalled through YAML-to-JSON
// conversion, so field matching follows the target's json tags
// case-insensitively. Malformed input fails with an error carrying the raw
// value, not a bare parse message.
func BindYAMLFragment(value, fieldName string, target any) error {
	doc := fmt.Sprintf("{ %s: %s }", fieldName, value)
	if err := yaml.UnmarshalStrict([]byte(doc), target); err != nil {
		return fmt.Errorf("binding value %q into field %q: %w", value, fieldName, err)
	}
	return nil
}

// BindYAML binds a raw YAML/JSON value directly into a typed target. Field
// matching follows json tags case-insensitively, as with BindYAMLFragment.
func BindYAML(value string, target any) error {
	if err := yaml.UnmarshalStrict([]byte(value), target); err != nil {
		return fmt.Errorf("binding value %q: %w", value, err)
	}
	return nil
}
