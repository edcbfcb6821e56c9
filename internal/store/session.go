// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store implements the Durable Session Store (spec §4.B): a
// crash-tolerant, on-disk record of sessions and problem-attempt
// counters, written atomically and readable concurrently from
// multiple orchestrators.
package store

import "time"

// Mode is a session's learning mode.
type Mode string

const (
	ModeLearning    Mode = "learning"
	ModeInterview   Mode = "interview"
	ModePatternQuiz Mode = "pattern-quiz"
)

// Role is the speaker of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn of a session's chat history.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the full persisted record for one learner session (spec
// §3 "Session"). It is the unit stored at
// {sessions_dir}/{16-hex}.json.
type Session struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"problem_id"`
	Mode      Mode      `json:"mode"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	ChatHistory []ChatMessage `json:"chat_history"`
	HintCount   int           `json:"hint_count"`
	Code        string        `json:"code"`

	// Mode-specific state.
	TimeRemainingSeconds int    `json:"time_remaining_seconds,omitempty"`
	InterviewPhase       string `json:"interview_phase,omitempty"`

	Whiteboard []byte `json:"whiteboard,omitempty"`
}

// Summary is the listing projection returned by Store.List.
type Summary struct {
	ID        string     `json:"id"`
	ProblemID string     `json:"problem_id"`
	Mode      Mode       `json:"mode"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (s Session) summary() Summary {
	return Summary{ID: s.ID, ProblemID: s.ProblemID, Mode: s.Mode, StartedAt: s.StartedAt, EndedAt: s.EndedAt}
}

// Resumable reports whether the session has not yet ended and is
// therefore a candidate for latest_resumable.
func (s Session) Resumable() bool {
	return s.EndedAt == nil
}
