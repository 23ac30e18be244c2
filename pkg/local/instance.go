// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	api "go.opendefense.cloud/skipper/api/deployer"
)

const (
	stdoutFileName = "stdout.log"
	stderrFileName = "stderr.log"
)

// instance is one spawned child process with its captured output.
type instance struct {
	id         string
	index      int
	workingDir string
	stdoutPath string
	stderrPath string

	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File

	mu       sync.Mutex
	exited   bool
	exitCode int
}

// spawnInstance creates the working directory, opens the output files and
// starts the process. The caller owns the returned instance and must stop it
// through stop() eventually.
func spawnInstance(id string, index int, root, executable string, args, env []string) (*instance, error) {
	workingDir := filepath.Join(root, id, fmt.Sprintf("instance-%d", index))
	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating working directory for %s: %w", id, err)
	}

	inst := &instance{
		id:         id,
		index:      index,
		workingDir: workingDir,
		stdoutPath: filepath.Join(workingDir, stdoutFileName),
		stderrPath: filepath.Join(workingDir, stderrFileName),
	}

	var err error
	if inst.stdout, err = os.Create(inst.stdoutPath); err != nil {
		return nil, fmt.Errorf("creating stdout file for %s: %w", id, err)
	}
	if inst.stderr, err = os.Create(inst.stderrPath); err != nil {
		inst.stdout.Close()
		return nil, fmt.Errorf("creating stderr file for %s: %w", id, err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Dir = workingDir
	cmd.Env = env
	cmd.Stdout = inst.stdout
	cmd.Stderr = inst.stderr
	if err := cmd.Start(); err != nil {
		inst.stdout.Close()
		inst.stderr.Close()
		return nil, fmt.Errorf("starting %s instance %d: %w", id, index, err)
	}
	inst.cmd = cmd

	go inst.reap()
	return inst, nil
}

// reap waits for process exit and records the outcome.
func (i *instance) reap() {
	err := i.cmd.Wait()
	i.stdout.Close()
	i.stderr.Close()

	i.mu.Lock()
	defer i.mu.Unlock()
	i.exited = true
	if err == nil {
		i.exitCode = 0
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		i.exitCode = exitErr.ExitCode()
	} else {
		i.exitCode = -1
	}
}

// state reports the instance's deployment state from process liveness.
func (i *instance) state() api.DeploymentState {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.exited {
		return api.DeploymentStateDeployed
	}
	if i.exitCode == 0 {
		return api.DeploymentStateUndeployed
	}
	return api.DeploymentStateFailed
}

// launchState reports the instance's state in task terms.
func (i *instance) launchState() api.LaunchState {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.exited {
		return api.LaunchStateRunning
	}
	if i.exitCode == 0 {
		return api.LaunchStateComplete
	}
	return api.LaunchStateFailed
}

// attributes exposes the working directory and output file paths along with
// process details.
func (i *instance) attributes() map[string]string {
	attrs := map[string]string{
		"working.dir": i.workingDir,
		"stdout":      i.stdoutPath,
		"stderr":      i.stderrPath,
	}
	if i.cmd.Process != nil {
		attrs["pid"] = strconv.Itoa(i.cmd.Process.Pid)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.exited {
		attrs["exit.code"] = strconv.Itoa(i.exitCode)
	}
	return attrs
}

// stop signals the process and waits up to timeout for it to exit, killing
// it outright when the deadline passes.
func (i *instance) stop(timeout time.Duration) {
	i.mu.Lock()
	exited := i.exited
	i.mu.Unlock()
	if exited || i.cmd.Process == nil {
		return
	}

	_ = i.cmd.Process.Signal(os.Interrupt)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		i.mu.Lock()
		exited = i.exited
		i.mu.Unlock()
		if exited {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = i.cmd.Process.Kill()
}

// instanceEnv assembles the child environment: inherited variables first,
// then app properties as shell-style variables, then the per-instance
// identity variables.
func instanceEnv(inherit []string, appProperties map[string]string, id string, index int) []string {
	var env []string
	for _, name := range inherit {
		if value, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+value)
		}
	}

	keys := make([]string, 0, len(appProperties))
	for k := range appProperties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, shellVarName(key)+"="+appProperties[key])
	}

	env = append(env,
		"SKIPPER_DEPLOYMENT_ID="+id,
		"SKIPPER_INSTANCE_INDEX="+strconv.Itoa(index),
		"INSTANCE_INDEX="+strconv.Itoa(index),
	)
	return env
}

func shellVarName(key string) string {
	name := strings.ToUpper(key)
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}
