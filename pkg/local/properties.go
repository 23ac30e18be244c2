// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

// Package local implements the deployment SPI with plain operating system
// processes: every app instance and task execution is one child process with
// its own working directory and captured output files.
package local

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
)

// DeployerProperties configure the local process backend.
type DeployerProperties struct {
	// WorkingDirectoriesRoot is the directory instance working directories
	// are created under. Empty means the system temp directory.
	WorkingDirectoriesRoot string `yaml:"workingDirectoriesRoot"`
	// DeleteFilesOnExit removes instance working directories on undeploy
	// and cleanup.
	DeleteFilesOnExit bool `yaml:"deleteFilesOnExit" default:"true"`
	// EnvVarsToInherit names process environment variables passed through
	// to spawned instances.
	EnvVarsToInherit []string `yaml:"envVarsToInherit"`
	// ShutdownTimeoutSeconds bounds the wait for a process to exit after
	// being signalled.
	ShutdownTimeoutSeconds int `yaml:"shutdownTimeoutSeconds" default:"30"`
	// MaximumConcurrentTasks caps concurrently running task executions.
	MaximumConcurrentTasks int `yaml:"maximumConcurrentTasks" default:"20"`
	// MaxLogLines bounds the tail returned per instance log.
	MaxLogLines int `yaml:"maxLogLines" default:"500"`
}

// DefaultDeployerProperties returns DeployerProperties with every default
// applied.
func DefaultDeployerProperties() *DeployerProperties {
	props := &DeployerProperties{}
	if err := defaults.Set(props); err != nil {
		panic(fmt.Sprintf("defaulting local deployer properties: %v", err))
	}
	props.EnvVarsToInherit = []string{"PATH", "HOME", "LANG", "TMPDIR"}
	return props
}

func (p *DeployerProperties) workingRoot() string {
	if p.WorkingDirectoriesRoot != "" {
		return p.WorkingDirectoriesRoot
	}
	return os.TempDir()
}
