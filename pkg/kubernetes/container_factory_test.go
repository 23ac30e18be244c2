// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	api "go.opendefense.cloud/skipper/api/deployer"
)

func newRequest(appProps, deployProps map[string]string, args ...string) api.AppDeploymentRequest {
	return api.NewAppDeploymentRequestWithArgs(
		api.NewAppDefinition("testapp", appProps),
		api.NewDockerResource("ghcr.io/acme/testapp:1"),
		deployProps,
		args,
	)
}

func TestContainerFactoryExecStyle(t *testing.T) {
	factory := NewContainerFactory(DefaultDeployerProperties())

	container, err := factory.Create(
		newRequest(map[string]string{"server.port": "9090", "app.name": "web"}, nil, "--verbose"),
		&ResolvedPodConfiguration{EntryPointStyle: EntryPointStyleExec},
	)
	require.NoError(t, err)

	assert.Equal(t, "ghcr.io/acme/testapp:1", container.Image)
	assert.Equal(t, []string{"--app.name=web", "--server.port=9090", "--verbose"}, container.Args)
	assert.Empty(t, container.Env)
}

func TestContainerFactoryShellStyle(t *testing.T) {
	factory := NewContainerFactory(DefaultDeployerProperties())

	container, err := factory.Create(
		newRequest(map[string]string{"server.port": "9090", "log-level": "debug"}, nil),
		&ResolvedPodConfiguration{EntryPointStyle: EntryPointStyleShell},
	)
	require.NoError(t, err)

	assert.Empty(t, container.Args)
	require.Len(t, container.Env, 2)
	assert.Equal(t, "LOG_LEVEL", container.Env[0].Name)
	assert.Equal(t, "debug", container.Env[0].Value)
	assert.Equal(t, "SERVER_PORT", container.Env[1].Name)
}

func TestContainerFactoryBootStyle(t *testing.T) {
	factory := NewContainerFactory(DefaultDeployerProperties())

	container, err := factory.Create(
		newRequest(map[string]string{"server.port": "9090"}, nil, "run"),
		&ResolvedPodConfiguration{EntryPointStyle: EntryPointStyleBoot},
	)
	require.NoError(t, err)

	require.Len(t, container.Env, 1)
	assert.Equal(t, "SPRING_APPLICATION_JSON", container.Env[0].Name)
	assert.JSONEq(t, `{"server.port":"9090"}`, container.Env[0].Value)
	assert.Equal(t, []string{"run"}, container.Args)
}

func TestContainerFactoryRejectsNonDockerResource(t *testing.T) {
	factory := NewContainerFactory(DefaultDeployerProperties())

	request := api.NewAppDeploymentRequest(
		api.NewAppDefinition("testapp", nil),
		api.NewFileResource("/opt/apps/app.jar"),
		nil,
	)
	_, err := factory.Create(request, &ResolvedPodConfiguration{EntryPointStyle: EntryPointStyleExec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker:")
}

func TestContainerFactoryParsesContainerPorts(t *testing.T) {
	factory := NewContainerFactory(DefaultDeployerProperties())

	container, err := factory.Create(
		newRequest(nil, map[string]string{"deployer.kubernetes.containerPorts": "8080, 9090"}),
		&ResolvedPodConfiguration{EntryPointStyle: EntryPointStyleExec},
	)
	require.NoError(t, err)
	require.Len(t, container.Ports, 2)
	assert.Equal(t, int32(8080), container.Ports[0].ContainerPort)
	assert.Equal(t, int32(9090), container.Ports[1].ContainerPort)

	_, err = factory.Create(
		newRequest(nil, map[string]string{"deployer.kubernetes.containerPorts": "eighty"}),
		&ResolvedPodConfiguration{EntryPointStyle: EntryPointStyleExec},
	)
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
}

func TestAttachProbesDefaultsToTCP(t *testing.T) {
	container := corev1.Container{
		Ports: []corev1.ContainerPort{{ContainerPort: 9090}},
	}
	require.NoError(t, attachProbes(&container, nil, DefaultDeployerProperties()))

	require.NotNil(t, container.LivenessProbe)
	require.NotNil(t, container.LivenessProbe.TCPSocket)
	assert.Equal(t, intstr.FromInt32(9090), container.LivenessProbe.TCPSocket.Port)
	require.NotNil(t, container.ReadinessProbe)
	assert.Nil(t, container.StartupProbe)
}

func TestAttachProbesHTTPFromRequest(t *testing.T) {
	container := corev1.Container{}
	props := map[string]string{
		"deployer.kubernetes.livenessProbeType": "http",
		"deployer.kubernetes.livenessProbePath": "/actuator/health",
		"deployer.kubernetes.livenessProbePort": "8081",
	}
	require.NoError(t, attachProbes(&container, props, DefaultDeployerProperties()))

	require.NotNil(t, container.LivenessProbe)
	require.NotNil(t, container.LivenessProbe.HTTPGet)
	assert.Equal(t, "/actuator/health", container.LivenessProbe.HTTPGet.Path)
	assert.Equal(t, intstr.FromInt32(8081), container.LivenessProbe.HTTPGet.Port)
}

func TestAttachProbesStartupOnlyWhenConfigured(t *testing.T) {
	container := corev1.Container{}
	props := map[string]string{
		"deployer.kubernetes.startupProbeType": "tcp",
		"deployer.kubernetes.startupProbePort": "8080",
	}
	require.NoError(t, attachProbes(&container, props, DefaultDeployerProperties()))
	assert.NotNil(t, container.StartupProbe)
}

func TestAttachProbesCmdWithoutCommandFails(t *testing.T) {
	container := corev1.Container{}
	props := map[string]string{
		"deployer.kubernetes.livenessProbeType": "cmd",
	}
	err := attachProbes(&container, props, DefaultDeployerProperties())
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
}
