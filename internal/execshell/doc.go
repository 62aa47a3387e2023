// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor validates the working directory of each ShellCommand, applies
// an optional timeout, delegates process creation to a CommandRunner, and
// decodes captured output into a CommandResult. OSCommandRunner is the default
// os/exec backed runner; it scopes every process to its working directory via
// the spawn parameters instead of changing the current directory of mergewatch.
package execshell
