// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "go.opendefense.cloud/skipper/api/deployer"
	"go.opendefense.cloud/skipper/pkg/observability"
)

func testProperties(t *testing.T) *DeployerProperties {
	t.Helper()
	props := DefaultDeployerProperties()
	props.WorkingDirectoriesRoot = t.TempDir()
	props.ShutdownTimeoutSeconds = 5
	return props
}

func shellRequest(name, script string, deployProps map[string]string) api.AppDeploymentRequest {
	return api.NewAppDeploymentRequestWithArgs(
		api.NewAppDefinition(name, map[string]string{"app.name": name}),
		api.NewFileResource("/bin/sh"),
		deployProps,
		[]string{"-c", script},
	)
}

func waitForState(t *testing.T, poll func() api.DeploymentState, want api.DeploymentState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if poll() == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, want, poll())
}

func TestDeployAndUndeploy(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := deployer.Deploy(ctx, shellRequest("sleeper", "sleep 30", nil))
	require.NoError(t, err)
	assert.Equal(t, "sleeper", id)

	status, err := deployer.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentStateDeployed, status.State())

	inst := status.Instances["sleeper-0"]
	assert.NotEmpty(t, inst.Attributes["working.dir"])
	assert.NotEmpty(t, inst.Attributes["stdout"])
	assert.NotEmpty(t, inst.Attributes["pid"])

	require.NoError(t, deployer.Undeploy(ctx, id))

	status, err = deployer.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, api.DeploymentStateUnknown, status.State())
}

func TestDeployMultipleInstances(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := deployer.Deploy(ctx, shellRequest("multi", "sleep 30", map[string]string{
		"deployer.count": "3",
	}))
	require.NoError(t, err)
	defer deployer.Undeploy(ctx, id)

	status, err := deployer.Status(ctx, id)
	require.NoError(t, err)
	assert.Len(t, status.Instances, 3)
}

func TestDeployTwiceFailsWithStateError(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := deployer.Deploy(ctx, shellRequest("dup", "sleep 30", nil))
	require.NoError(t, err)
	defer deployer.Undeploy(ctx, id)

	_, err = deployer.Deploy(ctx, shellRequest("dup", "sleep 30", nil))
	require.Error(t, err)
	assert.True(t, api.IsState(err))
}

// A logger carried on the context takes precedence over the one the
// deployer was constructed with.
func TestDeployLogsWithContextLogger(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())

	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{})
	ctx := observability.ContextWithLogger(context.Background(), log)

	id, err := deployer.Deploy(ctx, shellRequest("chatty", "sleep 30", nil))
	require.NoError(t, err)
	defer deployer.Undeploy(ctx, id)

	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "deployed app")
}

// Two concurrent deploys of the same id serialize on the per-id lock;
// exactly one wins.
func TestConcurrentDeploysOfSameID(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = deployer.Deploy(ctx, shellRequest("race", "sleep 30", nil))
		}(i)
	}
	wg.Wait()
	defer deployer.Undeploy(ctx, "race")

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, api.IsState(err))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestUndeployUnknownFailsWithStateError(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())

	err := deployer.Undeploy(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, api.IsState(err))
}

func TestScaleIsUnsupported(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())

	err := deployer.Scale(context.Background(), api.AppScaleRequest{DeploymentID: "any", Count: 2})
	require.Error(t, err)
	assert.True(t, api.IsState(err))
}

func TestFailedProcessReportsFailed(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := deployer.Deploy(ctx, shellRequest("crasher", "exit 7", nil))
	require.NoError(t, err)
	defer deployer.Undeploy(ctx, id)

	waitForState(t, func() api.DeploymentState {
		status, err := deployer.Status(ctx, id)
		require.NoError(t, err)
		return status.State()
	}, api.DeploymentStateFailed)

	status, err := deployer.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "7", status.Instances["crasher-0"].Attributes["exit.code"])
}

func TestLogReturnsMostRecentLinesFirst(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := deployer.Deploy(ctx, shellRequest("logger", "printf 'foo\\nbar\\nbaz\\nboo\\n'; sleep 30", nil))
	require.NoError(t, err)
	defer deployer.Undeploy(ctx, id)

	deadline := time.Now().Add(5 * time.Second)
	var logOutput string
	for time.Now().Before(deadline) {
		logOutput, err = deployer.Log(ctx, id)
		require.NoError(t, err)
		if logOutput != "" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, "boo\nbaz\nbar\nfoo", logOutput)
}

func TestShutdownUndeploysEverything(t *testing.T) {
	deployer := NewAppDeployer(testProperties(t), logr.Discard())
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		_, err := deployer.Deploy(ctx, shellRequest(name, "sleep 30", nil))
		require.NoError(t, err)
	}

	require.NoError(t, deployer.Shutdown(ctx))

	for _, name := range []string{"one", "two"} {
		status, err := deployer.Status(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, api.DeploymentStateUnknown, status.State())
	}
}
