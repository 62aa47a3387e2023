package execshell

// ExecutionResult captures the raw output of a finished process as produced by a CommandRunner.
type ExecutionResult struct {
	StandardOutput []byte
	StandardError  []byte
	ExitCode       int
}

// CommandResult is the decoded outcome of a single invocation.
// A successful result carries standard output and no standard error;
// a failed result carries standard error and no standard output.
type CommandResult struct {
	succeeded      bool
	standardOutput string
	standardError  string
	exitCode       int
}

// NewSuccessfulCommandResult builds the result of a process that exited with status zero.
func NewSuccessfulCommandResult(standardOutput string) CommandResult {
	return CommandResult{succeeded: true, standardOutput: standardOutput}
}

// NewFailedCommandResult builds the result of a process that exited with a non-zero status
// or could not be attempted at all.
func NewFailedCommandResult(exitCode int, standardError string) CommandResult {
	return CommandResult{succeeded: false, standardError: standardError, exitCode: exitCode}
}

// Succeeded reports whether the process exited with status zero.
func (result CommandResult) Succeeded() bool {
	return result.succeeded
}

// StandardOutput returns the decoded standard output; the flag is false for failed results.
func (result CommandResult) StandardOutput() (string, bool) {
	if !result.succeeded {
		return "", false
	}
	return result.standardOutput, true
}

// StandardError returns the decoded standard error; the flag is false for successful results.
func (result CommandResult) StandardError() (string, bool) {
	if result.succeeded {
		return "", false
	}
	return result.standardError, true
}

// ExitCode reports the process exit status.
func (result CommandResult) ExitCode() int {
	return result.exitCode
}
