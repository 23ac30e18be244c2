// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package deployer

import "context"

// RuntimeEnvironmentInfo describes the runtime a backend targets, for
// callers that need to choose or display backend capabilities.
type RuntimeEnvironmentInfo struct {
	// PlatformType names the backend, e.g. "Kubernetes" or "Local".
	PlatformType string
	// PlatformAPIVersion is the version of the platform API in use.
	PlatformAPIVersion string
	// PlatformHostVersion is the version of the platform host, if known.
	PlatformHostVersion string
	// SupportsScale reports whether Scale is implemented.
	SupportsScale bool
}

// AppDeployer deploys and manages long-running applications on one runtime.
//
// Implementations resolve every call against live platform state: Status is
// never served from a cache, and Deploy/Undeploy are synchronous on the
// caller's goroutine for the duration of the underlying platform calls.
type AppDeployer interface {
	// Deploy submits the requested application and returns its deployment
	// id. It fails with a StateError when a deployment with the derived id
	// already exists in a non-unknown state.
	Deploy(ctx context.Context, request AppDeploymentRequest) (string, error)

	// Undeploy removes every platform object belonging to the deployment.
	// It fails with a StateError when nothing is deployed under the id,
	// after best-effort cleanup of any partial leftovers.
	Undeploy(ctx context.Context, id string) error

	// Status reports the live state of the deployment. An unknown id is not
	// an error; it yields a status in state unknown.
	Status(ctx context.Context, id string) (AppStatus, error)

	// Scale changes the instance count of an existing deployment. It fails
	// with a ConfigurationError when no scalable object exists for the id.
	Scale(ctx context.Context, request AppScaleRequest) error

	// Log returns a bounded tail of every container log of the deployment,
	// concatenated. An unknown id yields an empty string.
	Log(ctx context.Context, id string) (string, error)

	// EnvironmentInfo describes the targeted runtime.
	EnvironmentInfo() RuntimeEnvironmentInfo
}

// TaskLauncher launches and manages short-lived task executions on one
// runtime.
type TaskLauncher interface {
	// Launch submits the requested task and returns its execution id. It
	// fails with a StateError when the maximum concurrent execution count
	// is already reached.
	Launch(ctx context.Context, request AppDeploymentRequest) (string, error)

	// Cancel stops a running task execution.
	Cancel(ctx context.Context, id string) error

	// Cleanup removes the platform objects left behind by one execution.
	// Safe to call when nothing exists.
	Cleanup(ctx context.Context, id string) error

	// Destroy removes every execution object belonging to the named task,
	// across all of its executions.
	Destroy(ctx context.Context, appName string) error

	// Status reports the live state of the execution. An unknown id yields
	// a status in state unknown, not an error.
	Status(ctx context.Context, id string) (TaskStatus, error)

	// Log returns a bounded tail of the execution's logs. An unknown id
	// yields an empty string.
	Log(ctx context.Context, id string) (string, error)

	// CurrentExecutionCount reports how many executions are running now.
	CurrentExecutionCount(ctx context.Context) (int, error)

	// MaximumConcurrentTasks reports the configured concurrency cap.
	MaximumConcurrentTasks() int

	// EnvironmentInfo describes the targeted runtime.
	EnvironmentInfo() RuntimeEnvironmentInfo
}
