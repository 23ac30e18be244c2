// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "go.opendefense.cloud/skipper/api/deployer"
)

func waitForLaunchState(t *testing.T, launcher *TaskLauncher, id string, want api.LaunchState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, err := launcher.Status(context.Background(), id)
		require.NoError(t, err)
		if status.State == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	status, err := launcher.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, want, status.State)
}

func TestLaunchRunsToCompletion(t *testing.T) {
	launcher := NewTaskLauncher(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := launcher.Launch(ctx, shellRequest("batch", "echo done", nil))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "batch-"))

	waitForLaunchState(t, launcher, id, api.LaunchStateComplete)
}

func TestLaunchIDsAreUnique(t *testing.T) {
	launcher := NewTaskLauncher(testProperties(t), logr.Discard())
	ctx := context.Background()

	first, err := launcher.Launch(ctx, shellRequest("batch", "echo one", nil))
	require.NoError(t, err)
	second, err := launcher.Launch(ctx, shellRequest("batch", "echo two", nil))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestLaunchFailsAtConcurrencyCap(t *testing.T) {
	props := testProperties(t)
	props.MaximumConcurrentTasks = 1
	launcher := NewTaskLauncher(props, logr.Discard())
	ctx := context.Background()

	id, err := launcher.Launch(ctx, shellRequest("busy", "sleep 30", nil))
	require.NoError(t, err)
	defer launcher.Cancel(ctx, id)

	_, err = launcher.Launch(ctx, shellRequest("busy", "sleep 30", nil))
	require.Error(t, err)
	assert.True(t, api.IsState(err))
}

func TestFailedTaskReportsFailed(t *testing.T) {
	launcher := NewTaskLauncher(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := launcher.Launch(ctx, shellRequest("failing", "exit 3", nil))
	require.NoError(t, err)

	waitForLaunchState(t, launcher, id, api.LaunchStateFailed)

	status, err := launcher.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "3", status.Attributes["exit.code"])
}

func TestStatusUnknownForUntrackedID(t *testing.T) {
	launcher := NewTaskLauncher(testProperties(t), logr.Discard())

	status, err := launcher.Status(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, api.LaunchStateUnknown, status.State)
}

func TestCancelStopsRunningTask(t *testing.T) {
	launcher := NewTaskLauncher(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := launcher.Launch(ctx, shellRequest("cancellee", "sleep 30", nil))
	require.NoError(t, err)

	require.NoError(t, launcher.Cancel(ctx, id))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		count, err := launcher.CurrentExecutionCount(ctx)
		require.NoError(t, err)
		if count == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("cancelled task still counted as running")
}

func TestCleanupForgetsExecution(t *testing.T) {
	launcher := NewTaskLauncher(testProperties(t), logr.Discard())
	ctx := context.Background()

	id, err := launcher.Launch(ctx, shellRequest("cleanme", "echo done", nil))
	require.NoError(t, err)
	waitForLaunchState(t, launcher, id, api.LaunchStateComplete)

	require.NoError(t, launcher.Cleanup(ctx, id))

	status, err := launcher.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, api.LaunchStateUnknown, status.State)

	// Unknown executions clean up without error.
	require.NoError(t, launcher.Cleanup(ctx, "ghost"))
}

func TestDestroyRemovesAllExecutionsOfTask(t *testing.T) {
	launcher := NewTaskLauncher(testProperties(t), logr.Discard())
	ctx := context.Background()

	first, err := launcher.Launch(ctx, shellRequest("sweep", "echo one", nil))
	require.NoError(t, err)
	second, err := launcher.Launch(ctx, shellRequest("sweep", "echo two", nil))
	require.NoError(t, err)
	other, err := launcher.Launch(ctx, shellRequest("keeper", "sleep 30", nil))
	require.NoError(t, err)
	defer launcher.Cancel(ctx, other)

	require.NoError(t, launcher.Destroy(ctx, "sweep"))

	for _, id := range []string{first, second} {
		status, err := launcher.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, api.LaunchStateUnknown, status.State)
	}
	status, err := launcher.Status(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, api.LaunchStateUnknown, status.State)
}
