package execshell

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the decoded result.
	CommandCompleted(command ShellCommand, result CommandResult)
	// CommandExecutionFailed reports invocations that produced no usable result.
	CommandExecutionFailed(command ShellCommand, failure error)
}
