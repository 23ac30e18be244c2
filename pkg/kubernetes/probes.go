// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	api "go.opendefense.cloud/skipper/api/deployer"
	"go.opendefense.cloud/skipper/pkg/properties"
)

// probeProfile parameterizes probe construction for one probe kind. The
// liveness, readiness and startup probes share one algorithm; only the
// property key prefix and the defaults differ.
type probeProfile struct {
	// prefix is the property key prefix, e.g. "livenessProbe".
	prefix string
	// defaults are the global probe properties for this kind.
	defaults ProbeProperties
}

func (p probeProfile) key(field string) string {
	return propertyKey(p.prefix + field)
}

func (p probeProfile) stringValue(props map[string]string, field, defaultValue string) string {
	if v, ok := props[p.key(field)]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return defaultValue
}

func (p probeProfile) int32Value(props map[string]string, field string, defaultValue int32) (int32, error) {
	raw, ok := props[p.key(field)]
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, api.WrapConfigurationError(p.key(field), raw, "must be an integer", err)
	}
	return int32(value), nil
}

// buildProbe constructs the probe for one profile from the request
// properties and the profile defaults. The probe kind is http, tcp or cmd;
// a zero port means the container's primary port, supplied by the caller.
func buildProbe(props map[string]string, profile probeProfile, defaultPort int32) (*corev1.Probe, error) {
	probeType := strings.ToLower(profile.stringValue(props, "Type", profile.defaults.Type))

	delay, err := profile.int32Value(props, "Delay", profile.defaults.Delay)
	if err != nil {
		return nil, err
	}
	period, err := profile.int32Value(props, "Period", profile.defaults.Period)
	if err != nil {
		return nil, err
	}
	timeout, err := profile.int32Value(props, "Timeout", profile.defaults.Timeout)
	if err != nil {
		return nil, err
	}
	failure, err := profile.int32Value(props, "Failure", profile.defaults.Failure)
	if err != nil {
		return nil, err
	}
	success, err := profile.int32Value(props, "Success", profile.defaults.Success)
	if err != nil {
		return nil, err
	}
	port, err := profile.int32Value(props, "Port", profile.defaults.Port)
	if err != nil {
		return nil, err
	}
	if port == 0 {
		port = defaultPort
	}

	probe := &corev1.Probe{
		InitialDelaySeconds: delay,
		PeriodSeconds:       period,
		TimeoutSeconds:      timeout,
		FailureThreshold:    failure,
		SuccessThreshold:    success,
	}

	switch probeType {
	case "http":
		path := profile.stringValue(props, "Path", profile.defaults.Path)
		probe.HTTPGet = &corev1.HTTPGetAction{
			Path: path,
			Port: intstr.FromInt32(port),
		}
	case "tcp":
		probe.TCPSocket = &corev1.TCPSocketAction{Port: intstr.FromInt32(port)}
	case "cmd":
		command := profile.stringValue(props, "Command", profile.defaults.Command)
		if command == "" {
			return nil, api.NewConfigurationError(profile.key("Command"), "", "cmd probes require a command")
		}
		tokens, err := properties.Tokenize(command)
		if err != nil {
			return nil, api.WrapConfigurationError(profile.key("Command"), command, "must be a command line", err)
		}
		probe.Exec = &corev1.ExecAction{Command: tokens}
	default:
		return nil, api.NewConfigurationError(profile.key("Type"), probeType, "must be http, tcp or cmd")
	}

	return probe, nil
}
