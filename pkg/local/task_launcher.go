// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	api "go.opendefense.cloud/skipper/api/deployer"
	skipperdeployer "go.opendefense.cloud/skipper/pkg/deployer"
	"go.opendefense.cloud/skipper/pkg/observability"
)

// TaskLauncher implements the task launching SPI with local child
// processes. Executions are tracked in-process by execution id; the task's
// sanitized app name keys the executions so Destroy can find them all.
type TaskLauncher struct {
	props *DeployerProperties
	log   logr.Logger

	mu         sync.Mutex
	executions map[string]*instance
	taskNames  map[string]string
}

var _ api.TaskLauncher = (*TaskLauncher)(nil)

// logger prefers a caller-scoped logger from the context over the one the
// launcher was constructed with.
func (l *TaskLauncher) logger(ctx context.Context) logr.Logger {
	return observability.LoggerFromContextOrDefault(ctx, l.log)
}

// NewTaskLauncher creates a TaskLauncher over the given properties.
func NewTaskLauncher(props *DeployerProperties, log logr.Logger) *TaskLauncher {
	return &TaskLauncher{
		props:      props,
		log:        log,
		executions: map[string]*instance{},
		taskNames:  map[string]string{},
	}
}

// Launch spawns one task execution. It fails with a StateError when the
// concurrency cap is reached.
func (l *TaskLauncher) Launch(ctx context.Context, request api.AppDeploymentRequest) (string, error) {
	id := skipperdeployer.TaskExecutionID(request.Definition().Name())

	running, err := l.CurrentExecutionCount(ctx)
	if err != nil {
		return "", err
	}
	if maximum := l.MaximumConcurrentTasks(); running >= maximum {
		return "", api.NewStateError(id, fmt.Sprintf("cannot launch task, %d executions running at maximum %d", running, maximum))
	}

	executable, err := request.Resource().File()
	if err != nil {
		return "", fmt.Errorf("resolving executable for %s: %w", id, err)
	}

	env := instanceEnv(l.props.EnvVarsToInherit, request.Definition().Properties(), id, 0)
	inst, err := spawnInstance(id, 0, l.props.workingRoot(), executable, request.CommandLineArgs(), env)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.executions[id] = inst
	l.taskNames[id] = skipperdeployer.SanitizeName(request.Definition().Name())
	l.mu.Unlock()

	l.logger(ctx).Info("launched task", "taskId", id)
	return id, nil
}

// Cancel stops a running execution. Cancelling an unknown execution is not
// an error.
func (l *TaskLauncher) Cancel(ctx context.Context, id string) error {
	l.mu.Lock()
	inst := l.executions[id]
	l.mu.Unlock()
	if inst == nil {
		return nil
	}
	inst.stop(time.Duration(l.props.ShutdownTimeoutSeconds) * time.Second)
	l.logger(ctx).Info("cancelled task", "taskId", id)
	return nil
}

// Cleanup removes the execution's working directory and forgets the
// execution. Safe to call when nothing exists.
func (l *TaskLauncher) Cleanup(ctx context.Context, id string) error {
	l.mu.Lock()
	inst := l.executions[id]
	delete(l.executions, id)
	delete(l.taskNames, id)
	l.mu.Unlock()

	if inst == nil {
		return nil
	}
	inst.stop(time.Duration(l.props.ShutdownTimeoutSeconds) * time.Second)
	if l.props.DeleteFilesOnExit {
		if err := os.RemoveAll(filepath.Join(l.props.workingRoot(), id)); err != nil {
			return fmt.Errorf("removing working directory for %s: %w", id, err)
		}
	}
	return nil
}

// Destroy cleans up every execution of the named task.
func (l *TaskLauncher) Destroy(ctx context.Context, appName string) error {
	name := skipperdeployer.SanitizeName(appName)

	l.mu.Lock()
	var ids []string
	for id, taskName := range l.taskNames {
		if taskName == name {
			ids = append(ids, id)
		}
	}
	l.mu.Unlock()

	for _, id := range ids {
		if err := l.Cleanup(ctx, id); err != nil {
			return err
		}
	}
	l.logger(ctx).Info("destroyed task", "taskName", appName, "executions", len(ids))
	return nil
}

// Status reports the live state of one execution. An unknown id yields
// state unknown.
func (l *TaskLauncher) Status(ctx context.Context, id string) (api.TaskStatus, error) {
	l.mu.Lock()
	inst := l.executions[id]
	l.mu.Unlock()

	if inst == nil {
		return api.TaskStatus{ID: id, State: api.LaunchStateUnknown}, nil
	}
	status := api.TaskStatus{ID: id, State: inst.launchState()}
	return status.WithAttributes(inst.attributes()), nil
}

// Log returns the tail of the execution's stdout, most recent lines first.
// An unknown id yields an empty string.
func (l *TaskLauncher) Log(ctx context.Context, id string) (string, error) {
	l.mu.Lock()
	inst := l.executions[id]
	l.mu.Unlock()
	if inst == nil {
		return "", nil
	}
	return tailDescending(inst.stdoutPath, l.props.MaxLogLines)
}

// CurrentExecutionCount counts the executions still running.
func (l *TaskLauncher) CurrentExecutionCount(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, inst := range l.executions {
		if inst.launchState() == api.LaunchStateRunning {
			count++
		}
	}
	return count, nil
}

// MaximumConcurrentTasks reports the configured concurrency cap.
func (l *TaskLauncher) MaximumConcurrentTasks() int {
	return l.props.MaximumConcurrentTasks
}

// Shutdown cleans up every execution the launcher still tracks.
func (l *TaskLauncher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	ids := make([]string, 0, len(l.executions))
	for id := range l.executions {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	var errs []string
	for _, id := range ids {
		if err := l.Cleanup(ctx, id); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleaning up task executions: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EnvironmentInfo describes the local runtime.
func (l *TaskLauncher) EnvironmentInfo() api.RuntimeEnvironmentInfo {
	return api.RuntimeEnvironmentInfo{
		PlatformType:        "Local",
		PlatformAPIVersion:  runtime.GOOS + " " + runtime.GOARCH,
		PlatformHostVersion: runtime.Version(),
		SupportsScale:       false,
	}
}
