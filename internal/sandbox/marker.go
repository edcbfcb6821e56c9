// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// newMarker generates a 128-bit random marker, unguessable to learner
// code, used to envelope the driver's result payload (spec §4.A
// spoof-proofing, P1).
func newMarker() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate marker: %w", err)
	}
	return "MARKER" + hex.EncodeToString(buf) + "MARKER", nil
}

// extractPayload finds the first envelope "marker<payload>marker" in
// output and returns the payload. Any text outside the envelope
// (including a forged marker printed by learner code, since that
// marker will never match this invocation's randomly generated one)
// is ignored — this is what makes the result channel spoof-proof.
func extractPayload(output, marker string) (string, bool) {
	first := strings.Index(output, marker)
	if first < 0 {
		return "", false
	}
	rest := output[first+len(marker):]
	second := strings.Index(rest, marker)
	if second < 0 {
		return "", false
	}
	return rest[:second], true
}
