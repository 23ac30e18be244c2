// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"strings"

	corev1 "k8s.io/api/core/v1"

	api "go.opendefense.cloud/skipper/api/deployer"
	"go.opendefense.cloud/skipper/pkg/properties"
)

// resolveEnvironmentVariables builds the container environment in the
// contract's concatenation order: plain key=value variables first (global
// defaults overridden per name by the request), then secret key refs, then
// config map key refs. Key-ref aspects accept only the inline array form;
// within each the request masks a default generating the same variable
// name.
func (r *Resolver) resolveEnvironmentVariables(props map[string]string) ([]corev1.EnvVar, error) {
	env, err := r.resolvePlainEnv(props)
	if err != nil {
		return nil, err
	}

	secretRefs, err := r.resolveSecretKeyRefs(props)
	if err != nil {
		return nil, err
	}
	for _, ref := range secretRefs {
		env = append(env, corev1.EnvVar{
			Name: ref.EnvVarName,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: ref.SecretName},
					Key:                  ref.DataKey,
				},
			},
		})
	}

	configMapRefs, err := r.resolveConfigMapKeyRefs(props)
	if err != nil {
		return nil, err
	}
	for _, ref := range configMapRefs {
		env = append(env, corev1.EnvVar{
			Name: ref.EnvVarName,
			ValueFrom: &corev1.EnvVarSource{
				ConfigMapKeyRef: &corev1.ConfigMapKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: ref.ConfigMapName},
					Key:                  ref.DataKey,
				},
			},
		})
	}

	if len(env) == 0 {
		return nil, nil
	}
	return env, nil
}

// resolvePlainEnv merges the global default KEY=VALUE entries with the
// request's environmentVariables property: defaults keep their order, a
// request entry overrides a default with the same name in place, and new
// request entries append in request order. Quoted values keep embedded
// commas.
func (r *Resolver) resolvePlainEnv(props map[string]string) ([]corev1.EnvVar, error) {
	defaults, err := envVarsFromEntries(r.props.EnvironmentVariables)
	if err != nil {
		return nil, api.WrapConfigurationError("environmentVariables", strings.Join(r.props.EnvironmentVariables, ","),
			"global default must be key=value entries", err)
	}

	raw, ok := props[keyEnvironmentVariables]
	if !ok || strings.TrimSpace(raw) == "" {
		return defaults, nil
	}
	pairs, err := properties.ParseKeyValuePairs(raw)
	if err != nil {
		return nil, api.WrapConfigurationError(keyEnvironmentVariables, raw, "must be comma-separated key=value entries", err)
	}

	env := defaults
	for _, kv := range pairs {
		replaced := false
		for i := range env {
			if env[i].Name == kv.Key {
				env[i].Value = kv.Value
				env[i].ValueFrom = nil
				replaced = true
				break
			}
		}
		if !replaced {
			env = append(env, corev1.EnvVar{Name: kv.Key, Value: kv.Value})
		}
	}
	return env, nil
}

func (r *Resolver) resolveSecretKeyRefs(props map[string]string) ([]SecretKeyRef, error) {
	var requested []SecretKeyRef
	if raw, ok := props[keySecretKeyRefs]; ok && strings.TrimSpace(raw) != "" {
		if err := properties.BindYAML(raw, &requested); err != nil {
			return nil, api.WrapConfigurationError(keySecretKeyRefs, raw, "must be a list of secret key refs", err)
		}
	}
	return mergeByIdentity(requested, r.props.SecretKeyRefs, func(ref SecretKeyRef) string { return ref.EnvVarName }), nil
}

func (r *Resolver) resolveConfigMapKeyRefs(props map[string]string) ([]ConfigMapKeyRef, error) {
	var requested []ConfigMapKeyRef
	if raw, ok := props[keyConfigMapKeyRefs]; ok && strings.TrimSpace(raw) != "" {
		if err := properties.BindYAML(raw, &requested); err != nil {
			return nil, api.WrapConfigurationError(keyConfigMapKeyRefs, raw, "must be a list of config map key refs", err)
		}
	}
	return mergeByIdentity(requested, r.props.ConfigMapKeyRefs, func(ref ConfigMapKeyRef) string { return ref.EnvVarName }), nil
}

// resolveEnvFrom resolves the bulk envFrom sources: secret refs first, then
// config map refs, each the request names merged with the default names by
// identity.
func (r *Resolver) resolveEnvFrom(props map[string]string) ([]corev1.EnvFromSource, error) {
	secretNames, err := r.resolveRefNames(props, keySecretRefs, r.props.SecretRefs)
	if err != nil {
		return nil, err
	}
	configMapNames, err := r.resolveRefNames(props, keyConfigMapRefs, r.props.ConfigMapRefs)
	if err != nil {
		return nil, err
	}

	var sources []corev1.EnvFromSource
	for _, name := range secretNames {
		sources = append(sources, corev1.EnvFromSource{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: name},
			},
		})
	}
	for _, name := range configMapNames {
		sources = append(sources, corev1.EnvFromSource{
			ConfigMapRef: &corev1.ConfigMapEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: name},
			},
		})
	}
	return sources, nil
}

// resolveRefNames parses a comma-separated name list from the request and
// merges it with the default names, request first, duplicates dropped.
func (r *Resolver) resolveRefNames(props map[string]string, key string, defaults []string) ([]string, error) {
	var requested []string
	if raw, ok := props[key]; ok && strings.TrimSpace(raw) != "" {
		for name := range strings.SplitSeq(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, api.NewConfigurationError(key, raw, "must be comma-separated names")
			}
			requested = append(requested, name)
		}
	}
	return mergeByIdentity(requested, defaults, func(name string) string { return name }), nil
}
