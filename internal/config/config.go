// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the server's environment-variable configuration
// (spec §6) and applies defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every recognized environment variable, typed and
// defaulted.
type Config struct {
	Host string
	Port int

	// TutorPassword enables bearer-token auth when non-empty.
	TutorPassword string

	ParkTTLSeconds int
	ParkCapacity   int

	ExecCPUSeconds int
	ExecMemoryMB   int

	SessionsDir   string
	WorkspacesDir string
	ProblemsDir   string

	// TutorBackendCmd is the argv used to spawn each session's tutor
	// subprocess (internal/tutor.Adapter), space-separated in
	// TUTOR_BACKEND_CMD. Defaults to a single-word command name the
	// operator is expected to have on PATH.
	TutorBackendCmd []string
}

// Load reads Config from the process environment, applying the
// defaults documented in spec §6.
func Load() (*Config, error) {
	cfg := &Config{
		Host:           getString("TUTOR_HOST", "0.0.0.0"),
		Port:           getInt("TUTOR_PORT", 8080),
		TutorPassword:  os.Getenv("TUTOR_PASSWORD"),
		ParkTTLSeconds: getInt("PARK_TTL_SECONDS", 300),
		ParkCapacity:   getInt("PARK_CAPACITY", 32),
		ExecCPUSeconds: getInt("EXEC_CPU_SECONDS", 10),
		ExecMemoryMB:   getInt("EXEC_MEMORY_MB", 512),
		SessionsDir:    getString("SESSIONS_DIR", "./data/sessions"),
		WorkspacesDir:  getString("WORKSPACES_DIR", "./data/workspaces"),
		ProblemsDir:    getString("PROBLEMS_DIR", "./data/problems"),
		TutorBackendCmd: strings.Fields(getString("TUTOR_BACKEND_CMD", "tutor-backend")),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid TUTOR_PORT: %d", cfg.Port)
	}
	if cfg.ParkTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid PARK_TTL_SECONDS: %d", cfg.ParkTTLSeconds)
	}
	if cfg.ParkCapacity <= 0 {
		return nil, fmt.Errorf("invalid PARK_CAPACITY: %d", cfg.ParkCapacity)
	}
	if cfg.ExecCPUSeconds <= 0 {
		return nil, fmt.Errorf("invalid EXEC_CPU_SECONDS: %d", cfg.ExecCPUSeconds)
	}
	if cfg.ExecMemoryMB <= 0 {
		return nil, fmt.Errorf("invalid EXEC_MEMORY_MB: %d", cfg.ExecMemoryMB)
	}

	return cfg, nil
}

// AuthEnabled reports whether login tokens are required.
func (c *Config) AuthEnabled() bool {
	return c.TutorPassword != ""
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
