// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package pathsafe validates the untrusted identifiers (session ids,
// problem ids) that get turned into filesystem paths, and constructs
// those paths so a validated id can never resolve outside its parent
// directory.
package pathsafe

import (
	"fmt"
	"path/filepath"
	"regexp"
)

var sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// problemIDPattern is deliberately permissive (catalog ids are author
// chosen slugs, not generated), but still excludes path separators and
// traversal sequences so it is safe to use as a single path segment.
var problemIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,99}$`)

// ValidSessionID reports whether id matches the session id invariant
// from spec §3: 16 lowercase hex characters.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// ValidProblemID reports whether id is safe to use as a catalog key
// and path segment (≤100 chars, no separators or traversal).
func ValidProblemID(id string) bool {
	return len(id) <= 100 && problemIDPattern.MatchString(id)
}

// SessionFile resolves the on-disk path for a session id under dir,
// rejecting any id that does not match the session id invariant or
// whose resolved path would escape dir.
func SessionFile(dir, id string) (string, error) {
	if !ValidSessionID(id) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return safeJoin(dir, id+".json")
}

// WorkspaceDir resolves the per-session scratch directory for a
// session id under dir, with the same validation as SessionFile.
func WorkspaceDir(dir, id string) (string, error) {
	if !ValidSessionID(id) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return safeJoin(dir, id)
}

// ProblemCounterKey validates a problem id for use as a counter map
// key / path segment.
func ProblemCounterKey(id string) error {
	if !ValidProblemID(id) {
		return fmt.Errorf("invalid problem id %q", id)
	}
	return nil
}

// safeJoin joins dir and name, then verifies the resolved, cleaned
// path is still strictly a descendant of dir. name must already be a
// single validated path segment — this is a belt-and-braces check
// against the validation above, not a substitute for it.
func safeJoin(dir, name string) (string, error) {
	joined := filepath.Join(dir, name)
	cleanDir := filepath.Clean(dir)
	rel, err := filepath.Rel(cleanDir, joined)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || (len(rel) >= 3 && rel[:3] == "../") {
		return "", fmt.Errorf("path escapes base directory: %s", name)
	}
	return joined, nil
}
