// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"
	"os"
	"strings"
)

// tailDescending returns up to maxLines of the file's log lines, most
// recent first: the lines "foo\nbar\nbaz\nboo" come back as
// "boo\nbaz\nbar\nfoo". A missing file yields an empty string.
func tailDescending(path string, maxLines int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading log %s: %w", path, err)
	}

	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return "", nil
	}
	lines := strings.Split(content, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	reversed := make([]string, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		reversed = append(reversed, lines[i])
	}
	return strings.Join(reversed, "\n"), nil
}
