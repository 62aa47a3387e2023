package execshell

import (
	"strings"
)

const (
	commandGitStringConstant              = "git"
	commandArgumentsJoinSeparatorConstant = " "
)

// CommandName identifies an executable resolved through PATH.
type CommandName string

// CommandGit invokes the git CLI.
const CommandGit CommandName = CommandName(commandGitStringConstant)

// CommandDetails describes the arguments and process context of an invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

// ShellCommand is a single-use invocation of an external program.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// NewShellCommand starts an empty invocation of the named program scoped to workingDirectory.
func NewShellCommand(name CommandName, workingDirectory string) ShellCommand {
	return ShellCommand{
		Name:    name,
		Details: CommandDetails{WorkingDirectory: workingDirectory},
	}
}

// NewGitCommand starts an empty git invocation scoped to workingDirectory.
func NewGitCommand(workingDirectory string) ShellCommand {
	return NewShellCommand(CommandGit, workingDirectory)
}

// WithArguments returns a copy of the command with the arguments appended in order.
// The receiver is never modified.
func (command ShellCommand) WithArguments(arguments ...string) ShellCommand {
	appendedArguments := make([]string, 0, len(command.Details.Arguments)+len(arguments))
	appendedArguments = append(appendedArguments, command.Details.Arguments...)
	appendedArguments = append(appendedArguments, arguments...)

	extended := command
	extended.Details.Arguments = appendedArguments
	extended.Details.EnvironmentVariables = copyEnvironment(command.Details.EnvironmentVariables)
	return extended
}

// WithEnvironmentVariable returns a copy of the command carrying an additional environment assignment.
func (command ShellCommand) WithEnvironmentVariable(name string, value string) ShellCommand {
	extended := command
	extended.Details.Arguments = append([]string{}, command.Details.Arguments...)
	extended.Details.EnvironmentVariables = copyEnvironment(command.Details.EnvironmentVariables)
	if extended.Details.EnvironmentVariables == nil {
		extended.Details.EnvironmentVariables = map[string]string{}
	}
	extended.Details.EnvironmentVariables[name] = value
	return extended
}

// Arguments returns a copy of the ordered argument list.
func (command ShellCommand) Arguments() []string {
	return append([]string{}, command.Details.Arguments...)
}

// WorkingDirectory reports the directory the process will run in.
func (command ShellCommand) WorkingDirectory() string {
	return command.Details.WorkingDirectory
}

// String renders the program and its arguments separated by spaces.
func (command ShellCommand) String() string {
	commandParts := []string{string(command.Name)}
	commandParts = append(commandParts, command.Details.Arguments...)
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

func copyEnvironment(environment map[string]string) map[string]string {
	if environment == nil {
		return nil
	}
	duplicated := make(map[string]string, len(environment))
	for environmentKey, environmentValue := range environment {
		duplicated[environmentKey] = environmentValue
	}
	return duplicated
}
