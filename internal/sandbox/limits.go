// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
)

// darwinWarnOnce makes sure the address-space-cap degradation notice
// (spec §4.A: "platforms that ignore the address-space cap, notably
// one major desktop OS") is logged once per process, not once per run.
var darwinWarnOnce sync.Once

// buildCommand constructs the sandboxed child process. It follows the
// teacher's own subprocess style (internal/service.Process.Start):
// exec.CommandContext with a dedicated process group so the whole
// subtree can be signalled together, a sanitized environment, and the
// workspace directory as cwd. Resource caps are applied with a ulimit
// wrapper rather than raw rlimit syscalls — setrlimit from the Go
// runtime would also bind the parent process, since Go has no
// pre-exec hook comparable to posix_spawn's file actions; shelling
// through `sh -c 'ulimit ...; exec "$0" "$@"'` scopes the limits to the
// child only, same approach the teacher reaches for when it needs
// shell semantics it won't hand-roll (internal/worktree's git
// invocations all go through a thin RunCommand wrapping exec.Command).
func buildCommand(ctx context.Context, workDir, driverPath string, limits Limits) *exec.Cmd {
	if runtime.GOOS == "darwin" {
		darwinWarnOnce.Do(func() {
			log.Printf("sandbox: RLIMIT_AS is unreliable on darwin; relying on the wall-clock deadline only")
		})
	}

	memKB := limits.MemoryMB * 1024
	script := fmt.Sprintf(
		`ulimit -t %d -c 0 2>/dev/null; ulimit -v %d 2>/dev/null; exec "$0" "$@"`,
		limits.CPUSeconds, memKB,
	)

	cmd := exec.CommandContext(ctx, "sh", "-c", script, "python3", driverPath)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = sanitizedEnv()
	return cmd
}

// sanitizedEnv returns the minimal environment the child sees (spec
// §4.A: "only PATH, HOME, LANG; PYTHONPATH and other code-search
// variables are cleared").
func sanitizedEnv() []string {
	env := []string{}
	for _, key := range []string{"PATH", "HOME", "LANG"} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			env = append(env, key+"="+v)
		}
	}
	return env
}
