package execshell

import (
	"errors"
	"fmt"
	"time"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	executionErrorTemplateConstant            = "%s (in %s) failed to run: %v"
	decodeErrorTemplateConstant               = "%s (in %s) produced undecodable %s: %v"
	timeoutErrorTemplateConstant              = "%s (in %s) timed out after %s"
	standardOutputStreamLabelConstant         = "standard output"
	standardErrorStreamLabelConstant          = "standard error"
)

// ErrLoggerNotConfigured indicates a ShellExecutor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates a ShellExecutor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// OutputStream names one of the two captured process streams.
type OutputStream string

// Captured streams.
const (
	OutputStreamStandardOutput OutputStream = OutputStream(standardOutputStreamLabelConstant)
	OutputStreamStandardError  OutputStream = OutputStream(standardErrorStreamLabelConstant)
)

// CommandExecutionError reports a process that could not be spawned or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the failed invocation.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(executionErrorTemplateConstant, executionError.Command.String(), executionError.Command.WorkingDirectory(), executionError.Cause)
}

// Unwrap exposes the underlying spawn failure.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// DecodeError reports captured output that is not valid UTF-8 text.
type DecodeError struct {
	Command ShellCommand
	Stream  OutputStream
	Cause   error
}

// Error describes the undecodable stream.
func (decodeError DecodeError) Error() string {
	return fmt.Sprintf(decodeErrorTemplateConstant, decodeError.Command.String(), decodeError.Command.WorkingDirectory(), decodeError.Stream, decodeError.Cause)
}

// Unwrap exposes the decoder failure.
func (decodeError DecodeError) Unwrap() error {
	return decodeError.Cause
}

// CommandTimeoutError reports a process terminated because it exceeded the configured timeout.
type CommandTimeoutError struct {
	Command ShellCommand
	Timeout time.Duration
}

// Error describes the expired invocation.
func (timeoutError CommandTimeoutError) Error() string {
	return fmt.Sprintf(timeoutErrorTemplateConstant, timeoutError.Command.String(), timeoutError.Command.WorkingDirectory(), timeoutError.Timeout)
}
