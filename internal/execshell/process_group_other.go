//go:build !unix

package execshell

import "os/exec"

// configureProcessGroup is a no-op where process groups are unavailable; the
// runner relies on WaitDelay alone.
func configureProcessGroup(*exec.Cmd) {}
