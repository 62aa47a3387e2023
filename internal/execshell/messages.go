package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	commandLabelWithArgumentsTemplate       = "%s %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	flagPrefixConstant                      = "-"
	referenceExclusionPrefixConstant        = "^"
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	referencesJoinSeparatorConstant         = ", "
)

const (
	gitFetchSubcommandNameConstant   = "fetch"
	gitLogSubcommandNameConstant     = "log"
	gitShowRefSubcommandNameConstant = "show-ref"
	gitFetchAllRemotesLabelConstant  = "all remotes"
)

const (
	gitFetchStartTemplateConstant               = "Fetching %s from %s in %s"
	gitFetchWithoutRefsStartTemplateConstant    = "Fetching from %s in %s"
	gitFetchSuccessTemplateConstant             = "Fetched %s from %s in %s"
	gitFetchWithoutRefsSuccessTemplateConstant  = "Fetched from %s in %s"
	gitFetchFailureTemplateConstant             = "Failed to fetch %s from %s in %s (exit code %d%s)"
	gitFetchWithoutRefsFailureTemplateConstant  = "Failed to fetch from %s in %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant    = "Unable to fetch %s from %s in %s: %s"
	gitFetchWithoutRefsExecutionFailureTemplate = "Unable to fetch from %s in %s: %s"
	gitLogRangeStartTemplateConstant            = "Listing commits on %s missing from %s in %s"
	gitLogRangeSuccessTemplateConstant          = "Listed commits on %s missing from %s in %s"
	gitLogRangeFailureTemplateConstant          = "Failed to list commits on %s missing from %s in %s (exit code %d%s)"
	gitLogRangeExecutionFailureTemplateConstant = "Unable to list commits on %s missing from %s in %s: %s"
	gitShowRefStartTemplateConstant             = "Checking reference %s in %s"
	gitShowRefSuccessTemplateConstant           = "Reference %s exists in %s"
	gitShowRefFailureTemplateConstant           = "Reference %s not found in %s (exit code %d%s)"
	gitShowRefExecutionFailureTemplateConstant  = "Unable to check reference %s in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, CommandResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, NewSuccessfulCommandResult(emptyStringConstant), nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result CommandResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an invocation that produced no usable result.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, CommandResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result CommandResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result CommandResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitFetchSubcommandNameConstant:
		return formatter.describeGitFetchMessage(command, result, failure, stage)
	case gitLogSubcommandNameConstant:
		return formatter.describeGitLogMessage(command, result, failure, stage)
	case gitShowRefSubcommandNameConstant:
		return formatter.describeGitShowRefMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitFetchMessage(command ShellCommand, result CommandResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName, references := formatter.extractPositionalArguments(command.Details.Arguments[1:])
	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		trimmedRemote = gitFetchAllRemotesLabelConstant
	}
	joinedReferences := strings.Join(references, referencesJoinSeparatorConstant)

	switch stage {
	case messageStageStart:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchStartTemplateConstant, joinedReferences, trimmedRemote, workingDirectory)
		}
		return fmt.Sprintf(gitFetchWithoutRefsStartTemplateConstant, trimmedRemote, workingDirectory)
	case messageStageSuccess:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchSuccessTemplateConstant, joinedReferences, trimmedRemote, workingDirectory)
		}
		return fmt.Sprintf(gitFetchWithoutRefsSuccessTemplateConstant, trimmedRemote, workingDirectory)
	case messageStageFailure:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchFailureTemplateConstant, joinedReferences, trimmedRemote, workingDirectory, result.ExitCode(), formatter.formatStandardErrorSuffix(result))
		}
		return fmt.Sprintf(gitFetchWithoutRefsFailureTemplateConstant, trimmedRemote, workingDirectory, result.ExitCode(), formatter.formatStandardErrorSuffix(result))
	case messageStageExecutionFailure:
		if len(joinedReferences) > 0 {
			return fmt.Sprintf(gitFetchExecutionFailureTemplateConstant, joinedReferences, trimmedRemote, workingDirectory, formatter.describeFailure(failure))
		}
		return fmt.Sprintf(gitFetchWithoutRefsExecutionFailureTemplate, trimmedRemote, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

// describeGitLogMessage handles range queries of the form "log <included> ^<excluded>".
func (formatter CommandMessageFormatter) describeGitLogMessage(command ShellCommand, result CommandResult, failure error, stage messageStage) string {
	includedReference := emptyStringConstant
	excludedReference := emptyStringConstant
	for _, argument := range command.Details.Arguments[1:] {
		trimmed := strings.TrimSpace(argument)
		switch {
		case len(trimmed) == 0, strings.HasPrefix(trimmed, flagPrefixConstant):
			continue
		case strings.HasPrefix(trimmed, referenceExclusionPrefixConstant):
			excludedReference = strings.TrimPrefix(trimmed, referenceExclusionPrefixConstant)
		case len(includedReference) == 0:
			includedReference = trimmed
		}
	}
	if len(includedReference) == 0 || len(excludedReference) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitLogRangeStartTemplateConstant, includedReference, excludedReference, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitLogRangeSuccessTemplateConstant, includedReference, excludedReference, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitLogRangeFailureTemplateConstant, includedReference, excludedReference, workingDirectory, result.ExitCode(), formatter.formatStandardErrorSuffix(result))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitLogRangeExecutionFailureTemplateConstant, includedReference, excludedReference, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitShowRefMessage(command ShellCommand, result CommandResult, failure error, stage messageStage) string {
	firstReference, _ := formatter.extractPositionalArguments(command.Details.Arguments[1:])
	reference := formatter.ensureValue(firstReference)
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitShowRefStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitShowRefSuccessTemplateConstant, reference, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitShowRefFailureTemplateConstant, reference, workingDirectory, result.ExitCode(), formatter.formatStandardErrorSuffix(result))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitShowRefExecutionFailureTemplateConstant, reference, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result CommandResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode(), formatter.formatStandardErrorSuffix(result))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf(commandLabelWithArgumentsTemplate, commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(result CommandResult) string {
	standardError, _ := result.StandardError()
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

// extractPositionalArguments skips flags and returns the first positional argument
// separately from the rest.
func (formatter CommandMessageFormatter) extractPositionalArguments(arguments []string) (string, []string) {
	firstArgument := emptyStringConstant
	remaining := []string{}
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		if len(firstArgument) == 0 {
			firstArgument = trimmed
			continue
		}
		remaining = append(remaining, trimmed)
	}
	return firstArgument, remaining
}
