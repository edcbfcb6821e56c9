// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tutor implements the Tutor Adapter (spec §4.C): one
// subprocess per session running the tutor backend, its stdin/stdout
// pipes, and a fan-out of parsed output to chat subscribers.
package tutor

// ChunkType discriminates the fragments of a chat stream.
type ChunkType string

const (
	// ChunkText is a fragment of assistant text.
	ChunkText ChunkType = "text"
	// ChunkFinal marks the end of a turn; Text holds the complete
	// assistant message: the text of the backend's final event, or the
	// turn's text chunks assembled when that event carries no text.
	ChunkFinal ChunkType = "final"
	// ChunkError marks a mid-stream failure terminating the turn.
	ChunkError ChunkType = "error"
)

// Chunk is one fragment of a chat stream (spec §4.C contract: "lazy
// sequence of text chunks, terminating in a final assistant message
// or an error"). The teacher's wire format (Anthropic content blocks,
// StreamEvent) is generalized here to this one small shape so the
// adapter is not coupled to any single tutor backend's protocol.
type Chunk struct {
	Type           ChunkType
	Text           string
	ConversationID string
	Err            string
}

// backendEvent is the NDJSON line shape read from the tutor
// subprocess's stdout. A real backend integration would map its own
// wire format onto this; it mirrors the teacher's StreamEvent in
// spirit (a tagged union decoded permissively, field by field).
type backendEvent struct {
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}
