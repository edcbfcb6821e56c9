// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements the Session Orchestrator (spec
// §4.E): the per-connection state machine that dispatches the client
// WebSocket protocol to the Store, Registry, and Tutor Adapter.
package orchestrator

import "encoding/json"

// Client-to-server message types.
const (
	MsgAuth          = "auth"
	MsgStartSession  = "start_session"
	MsgResumeSession = "resume_session"
	MsgMessage       = "message"
	MsgRequestHint   = "request_hint"
	MsgNudgeRequest  = "nudge_request"
	MsgTimeUpdate    = "time_update"
	MsgTimeUp        = "time_up"
	MsgEndSession    = "end_session"
)

// Server-to-client message types.
const (
	EvtSessionStarted     = "session_started"
	EvtSessionResumed     = "session_resumed"
	EvtAssistantChunk     = "assistant_chunk"
	EvtAssistantMessage   = "assistant_message"
	EvtReviewPhaseStarted = "review_phase_started"
	EvtError              = "error"
)

// Error taxonomy (spec §7).
const (
	ErrAuthRejected    = "AUTH_REJECTED"
	ErrValidation      = "VALIDATION"
	ErrNotFound        = "NOT_FOUND"
	ErrConflict        = "CONFLICT"
	ErrExecutorTimeout = "EXECUTOR_TIMEOUT"
	ErrExecutorSpawn   = "EXECUTOR_SPAWN"
	ErrExecutorRuntime = "EXECUTOR_RUNTIME"
	ErrTutorSpawn      = "TUTOR_SPAWN"
	ErrTutorStream     = "TUTOR_STREAM"
	ErrStoreCorrupt    = "STORE_CORRUPT"
	ErrStoreIO         = "STORE_IO"
	ErrInternal        = "INTERNAL"
)

// ClientMessage is the inbound envelope (spec §6: "JSON objects with
// a type discriminator and type-specific fields").
type ClientMessage struct {
	Type string `json:"type"`

	Token         string `json:"token,omitempty"`
	ProblemID     string `json:"problem_id,omitempty"`
	Mode          string `json:"mode,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	Content       string `json:"content,omitempty"`
	Code          string `json:"code,omitempty"`
	Trigger       string `json:"trigger,omitempty"`
	Context       string `json:"context,omitempty"`
	TimeRemaining int    `json:"time_remaining,omitempty"`
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type string `json:"type"`

	SessionID       string          `json:"session_id,omitempty"`
	ProblemID       string          `json:"problem_id,omitempty"`
	Mode            string          `json:"mode,omitempty"`
	ChatHistory     []ChatEntry     `json:"chat_history,omitempty"`
	LastEditorCode  string          `json:"last_editor_code,omitempty"`
	TimeRemaining   int             `json:"time_remaining,omitempty"`
	InterviewPhase  string          `json:"interview_phase,omitempty"`
	WhiteboardState json.RawMessage `json:"whiteboard_state,omitempty"`
	Content         string          `json:"content,omitempty"`

	// Error-only fields (type == EvtError).
	ErrCode string `json:"code,omitempty"`
	ErrMsg  string `json:"message,omitempty"`
}

// ChatEntry is the wire shape of one chat history turn.
type ChatEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}
