// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailDescendingReversesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")
	require.NoError(t, os.WriteFile(path, []byte("foo\nbar\nbaz\nboo"), 0o600))

	tail, err := tailDescending(path, 500)
	require.NoError(t, err)
	assert.Equal(t, "boo\nbaz\nbar\nfoo", tail)
}

func TestTailDescendingBoundsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o600))

	tail, err := tailDescending(path, 2)
	require.NoError(t, err)
	assert.Equal(t, "four\nthree", tail)
}

func TestTailDescendingMissingFile(t *testing.T) {
	tail, err := tailDescending(filepath.Join(t.TempDir(), "absent.log"), 10)
	require.NoError(t, err)
	assert.Empty(t, tail)
}
