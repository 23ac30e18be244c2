// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDeployerProperties(t *testing.T) {
	props := DefaultDeployerProperties()

	assert.Equal(t, "default", props.Namespace)
	assert.Equal(t, "IfNotPresent", props.ImagePullPolicy)
	assert.Equal(t, "exec", props.EntryPointStyle)
	assert.Equal(t, "Never", props.RestartPolicy)
	assert.True(t, props.CreateJob)
	assert.Equal(t, 20, props.MaximumConcurrentTasks)
	assert.Equal(t, int64(500), props.MaxLogLines)
	assert.Equal(t, "busybox:1", props.StatefulSet.InitContainerImageName)
	assert.Equal(t, "10Mi", props.StatefulSet.VolumeClaimTemplateStorage)
	assert.Equal(t, "tcp", props.LivenessProbe.Type)
	assert.Equal(t, int32(10), props.LivenessProbe.Period)
	assert.Equal(t, int32(2), props.ReadinessProbe.Timeout)
}

func TestLoadDeployerProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployer.yaml")
	content := `
namespace: apps
imagePullPolicy: Always
limits:
  cpu: "2"
tolerations:
  - key: gpu
    operator: Exists
livenessProbe:
  type: http
  path: /healthz
  port: 8080
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	props, err := LoadDeployerProperties(path)
	require.NoError(t, err)

	assert.Equal(t, "apps", props.Namespace)
	assert.Equal(t, "Always", props.ImagePullPolicy)
	assert.Equal(t, map[string]string{"cpu": "2"}, props.Limits)
	require.Len(t, props.Tolerations, 1)
	assert.Equal(t, "gpu", props.Tolerations[0].Key)
	assert.Equal(t, "http", props.LivenessProbe.Type)
	assert.Equal(t, "/healthz", props.LivenessProbe.Path)

	// Fields the file does not set keep their defaults.
	assert.Equal(t, "exec", props.EntryPointStyle)
	assert.Equal(t, 20, props.MaximumConcurrentTasks)
}

func TestLoadDeployerPropertiesRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespac: typo\n"), 0o600))

	_, err := LoadDeployerProperties(path)
	require.Error(t, err)
}
