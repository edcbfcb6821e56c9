// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"regexp"
	"strings"
)

var absPathPattern = regexp.MustCompile(`(?:/[^\s:]+)|(?:[A-Za-z]:\\[^\s:]+)`)

// scrubPaths strips absolute filesystem paths from an error string
// before it is ever surfaced to a client (spec §4.A stderr hygiene,
// §7 "internal exception detail is never exposed").
func scrubPaths(s string) string {
	s = absPathPattern.ReplaceAllString(s, "<path>")
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		s = strings.ReplaceAll(s, home, "<path>")
	}
	return s
}

// lastTracebackLine returns the final non-empty line of a Python
// traceback, which is conventionally the exception type and message —
// the only line of a traceback safe to show a client.
func lastTracebackLine(traceback string) string {
	lines := strings.Split(strings.TrimRight(traceback, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return scrubPaths(line)
		}
	}
	return ""
}
