// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(LoggerConfig{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Enabled())

	// Unknown level falls back to info instead of failing.
	logger, err = NewLogger(LoggerConfig{Level: "chatty"})
	require.NoError(t, err)
	assert.True(t, logger.Enabled())
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	base := logr.Discard()
	ctx := ContextWithLogger(context.Background(), base)
	assert.Equal(t, base, LoggerFromContext(ctx))

	fallback, err := NewLogger(LoggerConfig{Level: "info"})
	require.NoError(t, err)
	assert.Equal(t, fallback, LoggerFromContextOrDefault(context.Background(), fallback))
}
