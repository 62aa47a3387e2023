package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const (
	pathNotFolderTemplateConstant        = "path %s is not a folder"
	emptyWorkingDirectoryMessageConstant = "working directory is not set"
	pathValidationFailureExitCode        = -1
	commandFieldNameConstant             = "command"
	workingDirectoryFieldNameConstant    = "working_directory"
	exitCodeFieldNameConstant            = "exit_code"
	standardErrorFieldNameConstant       = "stderr"
)

// ShellExecutor runs external commands one at a time per call. It is safe for
// concurrent use as long as the configured runner is.
type ShellExecutor struct {
	logger           *zap.Logger
	runner           CommandRunner
	fileSystem       afero.Fs
	commandTimeout   time.Duration
	eventObserver    CommandEventObserver
	messageFormatter CommandMessageFormatter
}

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(*ShellExecutor)

// WithFileSystem sets the filesystem used to validate working directories.
func WithFileSystem(fileSystem afero.Fs) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if fileSystem != nil {
			executor.fileSystem = fileSystem
		}
	}
}

// WithCommandTimeout bounds every invocation. Zero or negative disables the bound.
func WithCommandTimeout(timeout time.Duration) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		executor.commandTimeout = timeout
	}
}

// WithCommandEventObserver routes lifecycle events to the observer instead of the debug log.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		executor.eventObserver = observer
	}
}

// NewShellExecutor constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:     logger,
		runner:     runner,
		fileSystem: afero.NewOsFs(),
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// Run executes the command once. A working directory that is missing or not a
// directory yields a failed result without spawning a process. Errors are
// reserved for invocations that produced no classifiable result: spawn failures,
// timeouts and output that is not valid UTF-8.
func (executor *ShellExecutor) Run(executionContext context.Context, command ShellCommand) (CommandResult, error) {
	if pathFailure, invalid := executor.validateWorkingDirectory(command); invalid {
		executor.reportCompletion(command, pathFailure)
		return pathFailure, nil
	}

	executor.reportStart(command)

	runContext := executionContext
	if executor.commandTimeout > 0 {
		var cancel context.CancelFunc
		runContext, cancel = context.WithTimeout(executionContext, executor.commandTimeout)
		defer cancel()
	}

	executionResult, runError := executor.runner.Run(runContext, command)
	if runError != nil {
		var failure error
		if executor.commandTimeout > 0 && errors.Is(runContext.Err(), context.DeadlineExceeded) && executionContext.Err() == nil {
			failure = CommandTimeoutError{Command: command, Timeout: executor.commandTimeout}
		} else {
			failure = CommandExecutionError{Command: command, Cause: runError}
		}
		executor.reportExecutionFailure(command, failure)
		return CommandResult{}, failure
	}

	commandResult, decodeError := decodeExecutionResult(command, executionResult)
	if decodeError != nil {
		executor.reportExecutionFailure(command, decodeError)
		return CommandResult{}, decodeError
	}

	executor.reportCompletion(command, commandResult)
	return commandResult, nil
}

func (executor *ShellExecutor) validateWorkingDirectory(command ShellCommand) (CommandResult, bool) {
	workingDirectory := command.WorkingDirectory()
	if len(strings.TrimSpace(workingDirectory)) == 0 {
		return NewFailedCommandResult(pathValidationFailureExitCode, emptyWorkingDirectoryMessageConstant), true
	}
	isDirectory, statError := afero.IsDir(executor.fileSystem, workingDirectory)
	if statError != nil || !isDirectory {
		return NewFailedCommandResult(pathValidationFailureExitCode, fmt.Sprintf(pathNotFolderTemplateConstant, workingDirectory)), true
	}
	return CommandResult{}, false
}

// decodeExecutionResult keeps only the stream relevant to the exit status and
// rejects it unless it is well-formed UTF-8.
func decodeExecutionResult(command ShellCommand, executionResult ExecutionResult) (CommandResult, error) {
	if executionResult.ExitCode == 0 {
		standardOutput, decodeError := decodeStrictUTF8(executionResult.StandardOutput)
		if decodeError != nil {
			return CommandResult{}, DecodeError{Command: command, Stream: OutputStreamStandardOutput, Cause: decodeError}
		}
		return NewSuccessfulCommandResult(standardOutput), nil
	}

	standardError, decodeError := decodeStrictUTF8(executionResult.StandardError)
	if decodeError != nil {
		return CommandResult{}, DecodeError{Command: command, Stream: OutputStreamStandardError, Cause: decodeError}
	}
	return NewFailedCommandResult(executionResult.ExitCode, standardError), nil
}

func decodeStrictUTF8(raw []byte) (string, error) {
	validated, _, transformError := transform.Bytes(encoding.UTF8Validator, raw)
	if transformError != nil {
		return "", transformError
	}
	return string(validated), nil
}

func (executor *ShellExecutor) reportStart(command ShellCommand) {
	if executor.eventObserver != nil {
		executor.eventObserver.CommandStarted(command)
		return
	}
	executor.logger.Debug(
		executor.messageFormatter.BuildStartedMessage(command),
		zap.String(commandFieldNameConstant, command.String()),
		zap.String(workingDirectoryFieldNameConstant, command.WorkingDirectory()),
	)
}

func (executor *ShellExecutor) reportCompletion(command ShellCommand, result CommandResult) {
	if executor.eventObserver != nil {
		executor.eventObserver.CommandCompleted(command, result)
		return
	}
	if result.Succeeded() {
		executor.logger.Debug(
			executor.messageFormatter.BuildSuccessMessage(command),
			zap.String(commandFieldNameConstant, command.String()),
			zap.String(workingDirectoryFieldNameConstant, command.WorkingDirectory()),
		)
		return
	}
	standardError, _ := result.StandardError()
	executor.logger.Debug(
		executor.messageFormatter.BuildFailureMessage(command, result),
		zap.String(commandFieldNameConstant, command.String()),
		zap.String(workingDirectoryFieldNameConstant, command.WorkingDirectory()),
		zap.Int(exitCodeFieldNameConstant, result.ExitCode()),
		zap.String(standardErrorFieldNameConstant, standardError),
	)
}

func (executor *ShellExecutor) reportExecutionFailure(command ShellCommand, failure error) {
	if executor.eventObserver != nil {
		executor.eventObserver.CommandExecutionFailed(command, failure)
		return
	}
	executor.logger.Debug(
		executor.messageFormatter.BuildExecutionFailureMessage(command, failure),
		zap.String(commandFieldNameConstant, command.String()),
		zap.String(workingDirectoryFieldNameConstant, command.WorkingDirectory()),
		zap.Error(failure),
	)
}
