// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package deployer

import (
	"strings"

	"github.com/google/uuid"
)

// GroupPropertyKey is the generic deployment property naming the group an
// app is deployed into. Backends derive deployment ids from it.
const GroupPropertyKey = "deployer.group"

// CountPropertyKey is the generic deployment property with the requested
// instance count.
const CountPropertyKey = "deployer.count"

// IndexedPropertyKey is the generic deployment property selecting an
// indexed (stateful) deployment.
const IndexedPropertyKey = "deployer.indexed"

// SanitizeName normalizes a name to platform naming constraints: lowercase,
// dots replaced by hyphens.
func SanitizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), ".", "-")
}

// AppDeploymentID derives the deployment id for an app: "<group>-<name>"
// when the request carries a group, the app name alone otherwise. The
// derivation is deterministic so repeated calls for the same app and group
// address the same deployment.
func AppDeploymentID(appName string, deploymentProperties map[string]string) string {
	if group := deploymentProperties[GroupPropertyKey]; group != "" {
		return SanitizeName(group + "-" + appName)
	}
	return SanitizeName(appName)
}

// TaskExecutionID derives the execution id for one task launch: the app
// name plus a short random suffix, so concurrent and repeated launches of
// the same task never collide.
func TaskExecutionID(appName string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return SanitizeName(appName + "-" + suffix)
}
