// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package properties

import (
	"fmt"
	"strings"
)

// IndexedKey builds the array-style property key for one index, e.g.
// IndexedKey("deployer.kubernetes.initContainers", 2) yields
// "deployer.kubernetes.initContainers[2]".
func IndexedKey(prefix string, index int) string {
	return fmt.Sprintf("%s[%d]", prefix, index)
}

// IndexedFieldKey builds the key for one field of an indexed entry, e.g.
// "deployer.kubernetes.initContainers[2].image".
func IndexedFieldKey(prefix string, index int, field string) string {
	return fmt.Sprintf("%s[%d].%s", prefix, index, field)
}

// HasIndexedEntry reports whether any property addresses the given index of
// the aspect, either as a whole ("prefix[i]") or by field ("prefix[i].x").
func HasIndexedEntry(props map[string]string, prefix string, index int) bool {
	whole := IndexedKey(prefix, index)
	if _, ok := props[whole]; ok {
		return true
	}
	fieldPrefix := whole + "."
	for k := range props {
		if strings.HasPrefix(k, fieldPrefix) {
			return true
		}
	}
	return false
}

// FirstNonBlank returns the value of the first candidate key with a
// non-blank value, tried strictly in the given order, along with the key
// that matched. Keeping the candidate list explicit per aspect keeps alias
// sets auditable instead of hiding them behind a generic relaxed matcher.
func FirstNonBlank(props map[string]string, keys ...string) (key, value string, ok bool) {
	for _, k := range keys {
		if v, found := props[k]; found && strings.TrimSpace(v) != "" {
			return k, v, true
		}
	}
	return "", "", false
}
