// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"

	api "go.opendefense.cloud/skipper/api/deployer"
	"go.opendefense.cloud/skipper/pkg/properties"
)

// initContainerSpec accepts both the canonical Kubernetes field names and
// the aliases the property contract allows for indexed entries:
// name/containerName, image/imageName, command/commands,
// env/environmentVariables.
type initContainerSpec struct {
	Name                 string               `json:"name,omitempty"`
	ContainerName        string               `json:"containerName,omitempty"`
	Image                string               `json:"image,omitempty"`
	ImageName            string               `json:"imageName,omitempty"`
	Command              []string             `json:"command,omitempty"`
	Commands             []string             `json:"commands,omitempty"`
	Args                 []string             `json:"args,omitempty"`
	Env                  []string             `json:"env,omitempty"`
	EnvironmentVariables []string             `json:"environmentVariables,omitempty"`
	VolumeMounts         []corev1.VolumeMount `json:"volumeMounts,omitempty"`
}

func (s initContainerSpec) container() (corev1.Container, error) {
	name := s.Name
	if name == "" {
		name = s.ContainerName
	}
	image := s.Image
	if image == "" {
		image = s.ImageName
	}
	command := s.Command
	if len(command) == 0 {
		command = s.Commands
	}
	envEntries := s.Env
	if len(envEntries) == 0 {
		envEntries = s.EnvironmentVariables
	}
	env, err := envVarsFromEntries(envEntries)
	if err != nil {
		return corev1.Container{}, err
	}
	return corev1.Container{
		Name:         name,
		Image:        image,
		Command:      command,
		Args:         s.Args,
		Env:          env,
		VolumeMounts: s.VolumeMounts,
	}, nil
}

func envVarsFromEntries(entries []string) ([]corev1.EnvVar, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	env := make([]corev1.EnvVar, 0, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not in key=value form", entry)
		}
		env = append(env, corev1.EnvVar{Name: strings.TrimSpace(key), Value: value})
	}
	return env, nil
}

// resolveInitContainers resolves the init container list. Accepted input
// forms, in precedence order:
//
//  1. one inline array under "initContainers"; when present and non-empty
//     it wins outright and any indexed keys are ignored, so the two forms
//     can never double-apply;
//  2. indexed entries "initContainers[0]", "initContainers[0].image", ...
//     scanned from index zero until an index yields nothing;
//  3. a single object under "initContainer".
//
// Global-default init containers beyond the count the request supplied are
// appended afterwards in default order.
func (r *Resolver) resolveInitContainers(props map[string]string) ([]corev1.Container, error) {
	requested, err := r.requestInitContainers(props)
	if err != nil {
		return nil, err
	}

	merged := requested
	if len(r.props.InitContainers) > len(requested) {
		for _, c := range r.props.InitContainers[len(requested):] {
			merged = append(merged, *c.DeepCopy())
		}
	}
	if len(merged) == 0 {
		return nil, nil
	}
	return merged, nil
}

func (r *Resolver) requestInitContainers(props map[string]string) ([]corev1.Container, error) {
	if raw, ok := props[keyInitContainers]; ok && strings.TrimSpace(raw) != "" {
		var containers []corev1.Container
		if err := properties.BindYAML(raw, &containers); err != nil {
			return nil, api.WrapConfigurationError(keyInitContainers, raw, "must be a list of containers", err)
		}
		if len(containers) > 0 {
			return containers, nil
		}
	}

	var indexed []corev1.Container
	for i := 0; properties.HasIndexedEntry(props, keyInitContainers, i); i++ {
		container, err := r.indexedInitContainer(props, i)
		if err != nil {
			return nil, err
		}
		indexed = append(indexed, container)
	}
	if len(indexed) > 0 {
		return indexed, nil
	}

	if raw, ok := props[keyInitContainer]; ok && strings.TrimSpace(raw) != "" {
		spec := initContainerSpec{}
		if err := properties.BindYAML(raw, &spec); err != nil {
			return nil, api.WrapConfigurationError(keyInitContainer, raw, "must be a container", err)
		}
		container, err := spec.container()
		if err != nil {
			return nil, api.WrapConfigurationError(keyInitContainer, raw, "invalid environment entries", err)
		}
		return []corev1.Container{container}, nil
	}

	return nil, nil
}

func (r *Resolver) indexedInitContainer(props map[string]string, index int) (corev1.Container, error) {
	wholeKey := properties.IndexedKey(keyInitContainers, index)
	if raw, ok := props[wholeKey]; ok && strings.TrimSpace(raw) != "" {
		spec := initContainerSpec{}
		if err := properties.BindYAML(raw, &spec); err != nil {
			return corev1.Container{}, api.WrapConfigurationError(wholeKey, raw, "must be a container", err)
		}
		container, err := spec.container()
		if err != nil {
			return corev1.Container{}, api.WrapConfigurationError(wholeKey, raw, "invalid environment entries", err)
		}
		return container, nil
	}

	spec := initContainerSpec{}
	field := func(names ...string) (string, string, bool) {
		keys := make([]string, 0, len(names))
		for _, n := range names {
			keys = append(keys, properties.IndexedFieldKey(keyInitContainers, index, n))
		}
		return properties.FirstNonBlank(props, keys...)
	}

	if _, v, ok := field("name", "containerName"); ok {
		spec.Name = v
	}
	if _, v, ok := field("image", "imageName"); ok {
		spec.Image = v
	}
	if key, v, ok := field("command", "commands"); ok {
		tokens, err := properties.Tokenize(v)
		if err != nil {
			return corev1.Container{}, api.WrapConfigurationError(key, v, "must be a command line", err)
		}
		spec.Command = tokens
	}
	if key, v, ok := field("env", "environmentVariables"); ok {
		spec.Env = properties.ParseDelimitedPairs(v)
		if len(spec.Env) == 0 {
			return corev1.Container{}, api.NewConfigurationError(key, v, "must be comma-separated key=value entries")
		}
	}

	container, err := spec.container()
	if err != nil {
		return corev1.Container{}, api.WrapConfigurationError(wholeKey, "", "invalid environment entries", err)
	}
	return container, nil
}

// resolveAdditionalContainers resolves sidecar containers: the request's
// inline array, masked against the global defaults per container name. The
// aspect accepts only the array form.
func (r *Resolver) resolveAdditionalContainers(props map[string]string) ([]corev1.Container, error) {
	var requested []corev1.Container
	if raw, ok := props[keyAdditionalContainers]; ok && strings.TrimSpace(raw) != "" {
		if err := properties.BindYAML(raw, &requested); err != nil {
			return nil, api.WrapConfigurationError(keyAdditionalContainers, raw, "must be a list of containers", err)
		}
	}
	return mergeByIdentity(requested, r.props.AdditionalContainers, func(c corev1.Container) string { return c.Name }), nil
}

// resolveLifecycle resolves the postStart and preStop hooks, each
// independently: a request command wins over the corresponding default
// command; a side with neither stays unset.
func (r *Resolver) resolveLifecycle(props map[string]string) (*corev1.Lifecycle, error) {
	postStart := r.resolveScalar(props, keyPostStartCommand, r.props.PostStartCommand)
	preStop := r.resolveScalar(props, keyPreStopCommand, r.props.PreStopCommand)
	if postStart == "" && preStop == "" {
		return nil, nil
	}

	lifecycle := &corev1.Lifecycle{}
	if postStart != "" {
		tokens, err := properties.Tokenize(postStart)
		if err != nil {
			return nil, api.WrapConfigurationError(keyPostStartCommand, postStart, "must be a command line", err)
		}
		lifecycle.PostStart = &corev1.LifecycleHandler{Exec: &corev1.ExecAction{Command: tokens}}
	}
	if preStop != "" {
		tokens, err := properties.Tokenize(preStop)
		if err != nil {
			return nil, api.WrapConfigurationError(keyPreStopCommand, preStop, "must be a command line", err)
		}
		lifecycle.PreStop = &corev1.LifecycleHandler{Exec: &corev1.ExecAction{Command: tokens}}
	}
	return lifecycle, nil
}
