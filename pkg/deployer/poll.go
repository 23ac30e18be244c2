// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

// Package deployer holds SPI-level helpers shared by the runtime backends:
// status polling and deployment id derivation.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"

	api "go.opendefense.cloud/skipper/api/deployer"
)

// errNotTerminal marks a poll iteration that observed a non-terminal state
// and must repeat.
var errNotTerminal = errors.New("state is not terminal")

// PollAppStatus queries status at a fixed interval until the deployment
// reaches a terminal state, the attempt budget runs out, or the context is
// cancelled. It returns the last observed state. Status queries always come
// back from the live platform; nothing here caches.
func PollAppStatus(ctx context.Context, log logr.Logger, interval time.Duration, maxAttempts uint64,
	status func(ctx context.Context) (api.AppStatus, error),
) (api.DeploymentState, error) {
	last := api.DeploymentStateUnknown

	operation := func() error {
		st, err := status(ctx)
		if err != nil {
			// Platform errors end the loop unchanged; retrying them is
			// the caller's policy, not ours.
			return backoff.Permanent(err)
		}
		last = st.State()
		if last.Terminal() {
			return nil
		}
		log.V(1).Info("Deployment not yet terminal", "deploymentID", st.DeploymentID, "state", last)
		return fmt.Errorf("%w: %s", errNotTerminal, last)
	}

	err := retryWithConstantBackoff(ctx, operation, interval, maxAttempts)
	return last, err
}

// PollTaskStatus is PollAppStatus for task executions.
func PollTaskStatus(ctx context.Context, log logr.Logger, interval time.Duration, maxAttempts uint64,
	status func(ctx context.Context) (api.TaskStatus, error),
) (api.LaunchState, error) {
	last := api.LaunchStateUnknown

	operation := func() error {
		st, err := status(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = st.State
		if last.Terminal() {
			return nil
		}
		log.V(1).Info("Task not yet terminal", "taskID", st.ID, "state", last)
		return fmt.Errorf("%w: %s", errNotTerminal, last)
	}

	err := retryWithConstantBackoff(ctx, operation, interval, maxAttempts)
	return last, err
}

// retryWithConstantBackoff runs operation at the fixed interval for at most
// maxAttempts extra attempts, stopping early on context cancellation. An
// exhausted attempt budget with the state still non-terminal is not an
// error: the caller reads the last observed state.
func retryWithConstantBackoff(ctx context.Context, operation func() error, interval time.Duration, maxAttempts uint64) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), maxAttempts),
		ctx,
	)
	err := backoff.Retry(operation, policy)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errNotTerminal):
		return nil
	default:
		return err
	}
}
