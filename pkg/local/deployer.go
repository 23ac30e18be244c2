// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	api "go.opendefense.cloud/skipper/api/deployer"
	skipperdeployer "go.opendefense.cloud/skipper/pkg/deployer"
	"go.opendefense.cloud/skipper/pkg/observability"
)

// AppDeployer implements the app deployment SPI with local child processes.
// It owns a registry of spawned instances keyed by deployment id; the
// check-then-create sequence in Deploy holds a per-id lock, so two
// concurrent deploys of the same id serialize and the loser fails with a
// StateError instead of racing.
type AppDeployer struct {
	props *DeployerProperties
	log   logr.Logger

	mu        sync.Mutex
	idLocks   map[string]*sync.Mutex
	instances map[string][]*instance
}

var _ api.AppDeployer = (*AppDeployer)(nil)

// logger prefers a caller-scoped logger from the context over the one the
// deployer was constructed with.
func (d *AppDeployer) logger(ctx context.Context) logr.Logger {
	return observability.LoggerFromContextOrDefault(ctx, d.log)
}

// NewAppDeployer creates an AppDeployer over the given properties.
func NewAppDeployer(props *DeployerProperties, log logr.Logger) *AppDeployer {
	return &AppDeployer{
		props:     props,
		log:       log,
		idLocks:   map[string]*sync.Mutex{},
		instances: map[string][]*instance{},
	}
}

func (d *AppDeployer) lockFor(id string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.idLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		d.idLocks[id] = lock
	}
	return lock
}

// Deploy spawns the requested number of instances of the app's executable.
// The resource must resolve to a local file.
func (d *AppDeployer) Deploy(ctx context.Context, request api.AppDeploymentRequest) (string, error) {
	id := skipperdeployer.AppDeploymentID(request.Definition().Name(), request.DeploymentProperties())

	lock := d.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	status, err := d.Status(ctx, id)
	if err != nil {
		return "", err
	}
	if state := status.State(); state != api.DeploymentStateUnknown {
		return "", api.NewStateError(id, fmt.Sprintf("app is already deployed in state %s", state))
	}

	executable, err := request.Resource().File()
	if err != nil {
		return "", fmt.Errorf("resolving executable for %s: %w", id, err)
	}

	count := 1
	if raw := request.DeploymentProperties()[skipperdeployer.CountPropertyKey]; strings.TrimSpace(raw) != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 1 {
			return "", api.WrapConfigurationError(skipperdeployer.CountPropertyKey, raw, "must be a positive integer", err)
		}
	}

	var spawned []*instance
	for index := 0; index < count; index++ {
		env := instanceEnv(d.props.EnvVarsToInherit, request.Definition().Properties(), id, index)
		inst, err := spawnInstance(id, index, d.props.workingRoot(), executable, request.CommandLineArgs(), env)
		if err != nil {
			for _, prev := range spawned {
				prev.stop(time.Duration(d.props.ShutdownTimeoutSeconds) * time.Second)
			}
			return "", err
		}
		spawned = append(spawned, inst)
	}

	d.mu.Lock()
	d.instances[id] = spawned
	d.mu.Unlock()

	d.logger(ctx).Info("deployed app", "deploymentId", id, "instances", count)
	return id, nil
}

// Undeploy stops every instance of the deployment and removes its working
// directories.
func (d *AppDeployer) Undeploy(ctx context.Context, id string) error {
	lock := d.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	d.mu.Lock()
	running, ok := d.instances[id]
	delete(d.instances, id)
	d.mu.Unlock()

	if !ok {
		return api.NewStateError(id, "app is not deployed")
	}

	timeout := time.Duration(d.props.ShutdownTimeoutSeconds) * time.Second
	for _, inst := range running {
		inst.stop(timeout)
	}
	if d.props.DeleteFilesOnExit {
		if err := os.RemoveAll(filepath.Join(d.props.workingRoot(), id)); err != nil {
			d.logger(ctx).Error(err, "removing working directories", "deploymentId", id)
		}
	}
	d.logger(ctx).Info("undeployed app", "deploymentId", id)
	return nil
}

// Status reports the live state of the deployment from process liveness.
func (d *AppDeployer) Status(ctx context.Context, id string) (api.AppStatus, error) {
	d.mu.Lock()
	running := d.instances[id]
	d.mu.Unlock()

	statuses := make([]api.AppInstanceStatus, 0, len(running))
	for _, inst := range running {
		statuses = append(statuses, api.AppInstanceStatus{
			ID:         fmt.Sprintf("%s-%d", inst.id, inst.index),
			State:      inst.state(),
			Attributes: inst.attributes(),
		})
	}
	return api.NewAppStatus(id, statuses...), nil
}

// Scale is not supported by the local backend.
func (d *AppDeployer) Scale(ctx context.Context, request api.AppScaleRequest) error {
	return api.NewStateError(request.DeploymentID, "the local deployer does not support scaling")
}

// Log returns the tail of every instance's stdout, most recent lines first.
func (d *AppDeployer) Log(ctx context.Context, id string) (string, error) {
	d.mu.Lock()
	running := d.instances[id]
	d.mu.Unlock()

	var parts []string
	for _, inst := range running {
		tail, err := tailDescending(inst.stdoutPath, d.props.MaxLogLines)
		if err != nil {
			return "", err
		}
		if tail != "" {
			parts = append(parts, tail)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Shutdown undeploys every app the deployer still tracks.
func (d *AppDeployer) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	ids := make([]string, 0, len(d.instances))
	for id := range d.instances {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		if err := d.Undeploy(ctx, id); err != nil && !api.IsState(err) {
			return err
		}
	}
	return nil
}

// EnvironmentInfo describes the local runtime.
func (d *AppDeployer) EnvironmentInfo() api.RuntimeEnvironmentInfo {
	return api.RuntimeEnvironmentInfo{
		PlatformType:        "Local",
		PlatformAPIVersion:  runtime.GOOS + " " + runtime.GOARCH,
		PlatformHostVersion: runtime.Version(),
		SupportsScale:       false,
	}
}
