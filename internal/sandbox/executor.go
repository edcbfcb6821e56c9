// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cobaltlab/tutorserver/internal/problems"
)

// gracePeriod is added to the CPU cap to get the wall-clock deadline,
// and is also how long the Executor waits between SIGTERM and SIGKILL
// on the process group.
const gracePeriod = 2 * time.Second

const (
	maxCodeBytes      = 50 * 1024
	maxProblemIDChars = 100
)

// Executor runs learner code against a problem's test cases inside a
// disposable workspace (spec §4.A). One Executor is shared across
// sessions; Run is safe for concurrent use, each call getting its own
// workspace directory and process group.
type Executor struct {
	workspacesDir string
	limits        Limits
}

// New builds an Executor rooted at workspacesDir, applying limits to
// every child it spawns.
func New(workspacesDir string, limits Limits) *Executor {
	return &Executor{workspacesDir: workspacesDir, limits: limits}
}

// Run executes code against problem's test cases in workspaceDir (a
// per-run directory the caller builds, e.g. via pathsafe.WorkspaceDir;
// Run creates it and removes it on return) and returns a populated
// Result. Run never
// returns a non-nil error for a learner-caused failure — those are
// reported as TestResult entries with a categorical Error string, per
// spec §4.A "Failure semantics". A non-nil error here means the
// Executor itself could not set up or tear down the run.
func (e *Executor) Run(ctx context.Context, workspaceDir string, code string, problem problems.Problem, mode Mode) (Result, error) {
	if len(code) > maxCodeBytes {
		return singleFailure(ErrRuntimeError, "submission exceeds the size limit"), nil
	}
	if len(problem.ID) > maxProblemIDChars {
		return singleFailure(ErrRuntimeError, "problem id exceeds the size limit"), nil
	}

	if err := os.MkdirAll(workspaceDir, 0o700); err != nil {
		return Result{}, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(workspaceDir)

	solutionPath := filepath.Join(workspaceDir, "solution.py")
	if err := os.WriteFile(solutionPath, []byte(code), 0o600); err != nil {
		return Result{}, fmt.Errorf("write solution: %w", err)
	}

	testsPath := filepath.Join(workspaceDir, "tests.json")
	testsJSON, err := encodeTests(problem.Tests)
	if err != nil {
		return Result{}, fmt.Errorf("encode tests: %w", err)
	}
	if err := os.WriteFile(testsPath, testsJSON, 0o600); err != nil {
		return Result{}, fmt.Errorf("write tests: %w", err)
	}

	marker, err := newMarker()
	if err != nil {
		return Result{}, fmt.Errorf("generate marker: %w", err)
	}

	driverSrc, err := renderDriver(driverParams{
		Marker:       marker,
		EntryPoint:   problem.EntryPoint,
		TestsPath:    testsPath,
		SolutionPath: solutionPath,
	})
	if err != nil {
		return Result{}, fmt.Errorf("render driver: %w", err)
	}

	driverPath := filepath.Join(workspaceDir, "driver.py")
	if err := os.WriteFile(driverPath, []byte(driverSrc), 0o600); err != nil {
		return Result{}, fmt.Errorf("write driver: %w", err)
	}

	deadline := time.Duration(e.limits.CPUSeconds)*time.Second + gracePeriod
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := buildCommand(runCtx, workspaceDir, driverPath, e.limits)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return singleFailure(ErrSpawnFailed, scrubPaths(err.Error())), nil
	}

	pid := cmd.Process.Pid
	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var runErr error
	select {
	case runErr = <-waitErr:
	case <-runCtx.Done():
		killGroup(pid, syscall.SIGTERM)
		select {
		case runErr = <-waitErr:
		case <-time.After(gracePeriod):
			killGroup(pid, syscall.SIGKILL)
			runErr = <-waitErr
		}
	}
	reapStragglers(pid)

	if runCtx.Err() == context.DeadlineExceeded {
		return singleFailure(ErrTimeLimitExceeded, "time limit exceeded"), nil
	}

	payload, ok := extractPayload(output.String(), marker)
	if !ok {
		detail := lastTracebackLine(output.String())
		if detail == "" {
			if runErr != nil {
				detail = scrubPaths(runErr.Error())
			} else {
				detail = "submission produced no result"
			}
		}
		return singleFailure(ErrRuntimeError, detail), nil
	}

	var decoded struct {
		Results []TestResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return singleFailure(ErrRuntimeError, "malformed result payload"), nil
	}

	result := Result{Results: decoded.Results}
	for i := range result.Results {
		result.Results[i].Error = scrubPaths(result.Results[i].Error)
	}
	result.tally()
	return result, nil
}

func encodeTests(tests []problems.TestCase) ([]byte, error) {
	type wireTest struct {
		Num      int             `json:"num"`
		Input    json.RawMessage `json:"input"`
		Expected json.RawMessage `json:"expected"`
	}
	wire := make([]wireTest, len(tests))
	for i, t := range tests {
		wire[i] = wireTest{Num: t.Num, Input: t.Input, Expected: t.Expected}
	}
	return json.Marshal(wire)
}

// singleFailure builds a one-entry Result for a whole-run failure
// (spawn failure, timeout, marker missing) per spec §4.A "Failure
// semantics": reported as a single-test failure with a categorical
// error, never a propagated exception.
func singleFailure(category, detail string) Result {
	msg := category
	if detail != "" {
		msg = category + ": " + detail
	}
	r := Result{Results: []TestResult{{
		TestNum: 0,
		Passed:  false,
		Error:   msg,
	}}}
	r.tally()
	return r
}
