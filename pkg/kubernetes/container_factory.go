// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"

	api "go.opendefense.cloud/skipper/api/deployer"
)

// ContainerFactory produces the primary application container for a
// deployment request. The spec builder decorates the result with the
// resolved configuration; the factory only settles image, ports, arguments
// and the app's own properties.
type ContainerFactory interface {
	Create(request api.AppDeploymentRequest, resolved *ResolvedPodConfiguration) (corev1.Container, error)
}

// DefaultContainerFactory builds the primary container from the request's
// resource and app properties, honoring the resolved entry point style.
type DefaultContainerFactory struct {
	props *DeployerProperties
}

// NewContainerFactory creates the default factory over the global
// properties.
func NewContainerFactory(props *DeployerProperties) *DefaultContainerFactory {
	return &DefaultContainerFactory{props: props}
}

// Create builds the primary container. The container name is fixed by the
// spec builder; the image reference passes through from the request's
// resource.
func (f *DefaultContainerFactory) Create(request api.AppDeploymentRequest, resolved *ResolvedPodConfiguration) (corev1.Container, error) {
	image, err := imageReference(request.Resource())
	if err != nil {
		return corev1.Container{}, err
	}

	ports, err := containerPorts(request.DeploymentProperties())
	if err != nil {
		return corev1.Container{}, err
	}

	container := corev1.Container{
		Image: image,
		Ports: ports,
	}

	appProperties := request.Definition().Properties()
	switch resolved.EntryPointStyle {
	case EntryPointStyleExec:
		// App properties become ordered --key=value arguments, followed
		// by the request's own command line arguments.
		for _, key := range sortedKeys(appProperties) {
			container.Args = append(container.Args, fmt.Sprintf("--%s=%s", key, appProperties[key]))
		}
		container.Args = append(container.Args, request.CommandLineArgs()...)
	case EntryPointStyleShell:
		// App properties become environment variables with shell-safe
		// names.
		for _, key := range sortedKeys(appProperties) {
			container.Env = append(container.Env, corev1.EnvVar{
				Name:  shellEnvVarName(key),
				Value: appProperties[key],
			})
		}
	case EntryPointStyleBoot:
		// App properties travel as one JSON document; command line
		// arguments still apply.
		if len(appProperties) > 0 {
			encoded, err := json.Marshal(appProperties)
			if err != nil {
				return corev1.Container{}, fmt.Errorf("encoding app properties for %s: %w", request.Definition().Name(), err)
			}
			container.Env = append(container.Env, corev1.EnvVar{
				Name:  "SPRING_APPLICATION_JSON",
				Value: string(encoded),
			})
		}
		container.Args = append(container.Args, request.CommandLineArgs()...)
	}

	return container, nil
}

// imageReference extracts the container image from the request's resource.
func imageReference(res api.Resource) (string, error) {
	if res == nil {
		return "", fmt.Errorf("deployment request carries no resource")
	}
	uri, err := res.URI()
	if err != nil {
		return "", fmt.Errorf("reading resource URI: %w", err)
	}
	if !strings.HasPrefix(uri, "docker:") {
		return "", fmt.Errorf("unsupported resource %q: only docker: resources deploy to Kubernetes", uri)
	}
	return strings.TrimPrefix(uri, "docker:"), nil
}

// containerPorts parses the comma-separated containerPorts property.
func containerPorts(props map[string]string) ([]corev1.ContainerPort, error) {
	raw, ok := props[keyContainerPorts]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ports []corev1.ContainerPort
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		port, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return nil, api.WrapConfigurationError(keyContainerPorts, raw, "must be comma-separated port numbers", err)
		}
		ports = append(ports, corev1.ContainerPort{ContainerPort: int32(port)})
	}
	return ports, nil
}

// shellEnvVarName converts a dotted/hyphenated property key to an
// environment variable name: uppercased, separators replaced by
// underscores.
func shellEnvVarName(key string) string {
	name := strings.ToUpper(key)
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// attachProbes adds the liveness, readiness and startup probes to the
// container when the request or defaults configure them. Probes apply to
// long-running apps only; tasks run to completion and carry none.
func attachProbes(container *corev1.Container, props map[string]string, deployerProps *DeployerProperties) error {
	defaultPort := int32(8080)
	if len(container.Ports) > 0 {
		defaultPort = container.Ports[0].ContainerPort
	}

	liveness, err := buildProbe(props, probeProfile{prefix: "livenessProbe", defaults: deployerProps.LivenessProbe}, defaultPort)
	if err != nil {
		return err
	}
	container.LivenessProbe = liveness

	readiness, err := buildProbe(props, probeProfile{prefix: "readinessProbe", defaults: deployerProps.ReadinessProbe}, defaultPort)
	if err != nil {
		return err
	}
	container.ReadinessProbe = readiness

	// The startup probe only applies when explicitly configured; liveness
	// and readiness always probe with at least the tcp default.
	if hasProbeProperties(props, "startupProbe") || deployerProps.StartupProbe.Port != 0 {
		startup, err := buildProbe(props, probeProfile{prefix: "startupProbe", defaults: deployerProps.StartupProbe}, defaultPort)
		if err != nil {
			return err
		}
		container.StartupProbe = startup
	}

	return nil
}

func hasProbeProperties(props map[string]string, prefix string) bool {
	fullPrefix := propertyKey(prefix)
	for k := range props {
		if strings.HasPrefix(k, fullPrefix) {
			return true
		}
	}
	return false
}
