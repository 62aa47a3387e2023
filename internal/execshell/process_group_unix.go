//go:build unix

package execshell

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the command in its own process group and kills
// the whole group on cancellation so helpers spawned by git die with it.
func configureProcessGroup(executable *exec.Cmd) {
	executable.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	executable.Cancel = func() error {
		if executable.Process == nil {
			return nil
		}
		if killError := syscall.Kill(-executable.Process.Pid, syscall.SIGKILL); killError != nil {
			return executable.Process.Kill()
		}
		return nil
	}
}
