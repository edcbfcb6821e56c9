// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"log"
	"os"
	"syscall"

	ps "github.com/mitchellh/go-ps"
)

// killGroup signals the entire process group rooted at pid. Sending to
// the negative pid targets every process that joined the group at
// spawn (cmd.SysProcAttr.Setpgid), mirroring the teacher's
// internal/service.Process.Stop.
func killGroup(pid int, sig syscall.Signal) {
	_ = syscall.Kill(-pid, sig)
}

// reapStragglers lists every live process and force-kills any whose
// current parent pid is rootPid. It matches on the current parent
// only and does not walk further down the tree: a process that has
// been re-parented (a double-forked daemon, or any child of rootPid
// once rootPid has exited and been reaped, as it has by the time Run
// calls this) is not matched. The process listing comes from the
// teacher's go-ps dependency, present in its go.mod but never wired
// into its own process supervisor.
func reapStragglers(rootPid int) {
	procs, err := ps.Processes()
	if err != nil {
		log.Printf("sandbox: could not enumerate processes for cleanup verification: %v", err)
		return
	}
	for _, p := range procs {
		if p.PPid() == rootPid {
			if proc, err := os.FindProcess(p.Pid()); err == nil {
				_ = proc.Kill()
			}
		}
	}
}
