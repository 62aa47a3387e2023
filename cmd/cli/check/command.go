// Package check provides the cobra command that reports branch divergence for
// configured or discovered repositories.
package check

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mergewatch/internal/discovery"
	"github.com/temirov/mergewatch/internal/divergence"
	"github.com/temirov/mergewatch/internal/execshell"
	"github.com/temirov/mergewatch/internal/ui"
	"github.com/temirov/mergewatch/internal/utils"
	flagutils "github.com/temirov/mergewatch/internal/utils/flags"
	pathutils "github.com/temirov/mergewatch/internal/utils/path"
)

const (
	commandUseConstant                   = "check [projects-folder]"
	commandShortDescriptionConstant      = "Report whether source branches have commits missing from target branches"
	commandLongDescriptionConstant       = "check fetches the source and target branches of every repository, lists the non-merge commits on the source branch that the target branch lacks, and prints one verdict per repository. With a projects folder argument every immediate subdirectory is checked with the same branches; otherwise the configured projects are checked."
	sourceBranchFlagNameConstant         = "source-branch"
	sourceBranchFlagShorthandConstant    = "s"
	sourceBranchFlagUsageConstant        = "Branch expected to be merged (origin/develop is accepted)."
	targetBranchFlagNameConstant         = "target-branch"
	targetBranchFlagShorthandConstant    = "t"
	targetBranchFlagUsageConstant        = "Branch expected to contain the source commits."
	remoteFlagNameConstant               = "remote"
	remoteFlagUsageConstant              = "Remote to fetch both branches from."
	concurrencyFlagNameConstant          = "concurrency"
	concurrencyFlagUsageConstant         = "Number of repositories checked in parallel."
	timeoutFlagNameConstant              = "timeout"
	timeoutFlagUsageConstant             = "Per git command timeout, for example 90s (0 disables)."
	outputFlagNameConstant               = "output"
	outputFlagUsageConstant              = "Report format."
	validateBranchesFlagNameConstant     = "validate-branches"
	validateBranchesFlagUsageConstant    = "Check that both remote branches exist before comparing them."
	verifyRepositoryFlagNameConstant     = "verify-repository"
	verifyRepositoryFlagUsageConstant    = "Open each path with go-git before running git."
	onlyDivergentFlagNameConstant        = "only-divergent"
	onlyDivergentFlagUsageConstant       = "Print only repositories whose source branch needs a merge."
	maximumArgumentCountConstant         = 1
	missingSourceBranchMessageConstant   = "source branch is required; supply --source-branch or check.source_branch"
	checkStartedMessageConstant          = "checking repositories"
	repositoryCountFieldConstant         = "repository_count"
	concurrencyFieldConstant             = "concurrency"
	configurationFileFieldConstant       = "config_file"
	projectsFolderFieldConstant          = "projects_folder"
	discoveringProjectsMessageConstant   = "discovering project folders"
	projectsFolderDiscoveryErrorTemplate = "unable to discover projects: %w"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the check command. Executor, Probe and FileSystem
// default to git on the operating system when left nil.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() divergence.CommandConfiguration
	Executor                     divergence.CommandExecutor
	Probe                        divergence.RepositoryProbe
	FileSystem                   afero.Fs
	HomeExpander                 *pathutils.HomeExpander
}

// Build constructs the check command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(maximumArgumentCountConstant),
		RunE:  builder.run,
	}

	defaults := divergence.DefaultCommandConfiguration()
	outputChoices := []string{string(divergence.OutputFormatText), string(divergence.OutputFormatYAML)}

	command.Flags().StringP(sourceBranchFlagNameConstant, sourceBranchFlagShorthandConstant, "", sourceBranchFlagUsageConstant)
	command.Flags().StringP(targetBranchFlagNameConstant, targetBranchFlagShorthandConstant, defaults.TargetBranch, targetBranchFlagUsageConstant)
	command.Flags().String(remoteFlagNameConstant, defaults.RemoteName, remoteFlagUsageConstant)
	command.Flags().Int(concurrencyFlagNameConstant, defaults.Concurrency, concurrencyFlagUsageConstant)
	command.Flags().Duration(timeoutFlagNameConstant, defaults.CommandTimeout, timeoutFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, defaults.Output, flagutils.FormatChoiceUsage(defaults.Output, outputChoices, outputFlagUsageConstant))
	flagutils.AddToggleFlag(command.Flags(), nil, validateBranchesFlagNameConstant, defaults.ValidateBranches, validateBranchesFlagUsageConstant)
	flagutils.AddToggleFlag(command.Flags(), nil, verifyRepositoryFlagNameConstant, defaults.VerifyRepository, verifyRepositoryFlagUsageConstant)
	flagutils.AddToggleFlag(command.Flags(), nil, onlyDivergentFlagNameConstant, defaults.OnlyDivergent, onlyDivergentFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, overrideError := builder.applyFlagOverrides(command, builder.resolveConfiguration())
	if overrideError != nil {
		return overrideError
	}
	if validationError := configuration.Validate(); validationError != nil {
		return validationError
	}

	logger := builder.resolveLogger()
	fileSystem := builder.resolveFileSystem()

	descriptors, descriptorError := builder.resolveDescriptors(configuration, arguments, fileSystem, logger)
	if descriptorError != nil {
		return descriptorError
	}

	executor, executorError := builder.resolveExecutor(configuration, fileSystem, logger)
	if executorError != nil {
		return executorError
	}

	checker, checkerError := divergence.NewChecker(divergence.Dependencies{
		Executor:   executor,
		Probe:      builder.resolveProbe(),
		FileSystem: fileSystem,
		Logger:     logger,
	}, configuration.CheckerOptions())
	if checkerError != nil {
		return checkerError
	}

	configurationFilePath, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	logger.Info(
		checkStartedMessageConstant,
		zap.Int(repositoryCountFieldConstant, len(descriptors)),
		zap.Int(concurrencyFieldConstant, configuration.Concurrency),
		zap.String(configurationFileFieldConstant, configurationFilePath),
	)

	reports := checker.CheckAll(command.Context(), descriptors)

	outputFormat, formatError := divergence.ParseOutputFormat(configuration.Output)
	if formatError != nil {
		return formatError
	}
	reportWriter := divergence.NewReportWriter(
		utils.NewFlushingWriter(command.OutOrStdout()),
		logger,
		outputFormat,
		divergence.WithOnlyDivergent(configuration.OnlyDivergent),
	)
	return reportWriter.Write(reports)
}

func (builder *CommandBuilder) applyFlagOverrides(command *cobra.Command, configuration divergence.CommandConfiguration) (divergence.CommandConfiguration, error) {
	flagSet := command.Flags()

	if flagSet.Changed(remoteFlagNameConstant) {
		remoteName, _ := flagSet.GetString(remoteFlagNameConstant)
		configuration.RemoteName = strings.TrimSpace(remoteName)
	}
	if flagSet.Changed(sourceBranchFlagNameConstant) {
		configuration.SourceBranch, _ = flagSet.GetString(sourceBranchFlagNameConstant)
	}
	if flagSet.Changed(targetBranchFlagNameConstant) {
		configuration.TargetBranch, _ = flagSet.GetString(targetBranchFlagNameConstant)
	}
	if flagSet.Changed(concurrencyFlagNameConstant) {
		configuration.Concurrency, _ = flagSet.GetInt(concurrencyFlagNameConstant)
	}
	if flagSet.Changed(timeoutFlagNameConstant) {
		configuration.CommandTimeout, _ = flagSet.GetDuration(timeoutFlagNameConstant)
	}
	if flagSet.Changed(outputFlagNameConstant) {
		configuration.Output, _ = flagSet.GetString(outputFlagNameConstant)
	}
	if flagSet.Changed(validateBranchesFlagNameConstant) {
		validateBranches, toggleError := flagSet.GetBool(validateBranchesFlagNameConstant)
		if toggleError != nil {
			return configuration, toggleError
		}
		configuration.ValidateBranches = validateBranches
	}
	if flagSet.Changed(verifyRepositoryFlagNameConstant) {
		verifyRepository, toggleError := flagSet.GetBool(verifyRepositoryFlagNameConstant)
		if toggleError != nil {
			return configuration, toggleError
		}
		configuration.VerifyRepository = verifyRepository
	}
	if flagSet.Changed(onlyDivergentFlagNameConstant) {
		onlyDivergent, toggleError := flagSet.GetBool(onlyDivergentFlagNameConstant)
		if toggleError != nil {
			return configuration, toggleError
		}
		configuration.OnlyDivergent = onlyDivergent
	}

	sanitized := configuration.Sanitize()
	sanitized.SourceBranch = divergence.SplitRemoteBranch(sanitized.SourceBranch, sanitized.RemoteName)
	sanitized.TargetBranch = divergence.SplitRemoteBranch(sanitized.TargetBranch, sanitized.RemoteName)
	return sanitized, nil
}

// resolveDescriptors prefers, in order, the positional projects folder, the
// configured projects and discovery beneath check.projects_folder.
func (builder *CommandBuilder) resolveDescriptors(configuration divergence.CommandConfiguration, arguments []string, fileSystem afero.Fs, logger *zap.Logger) ([]divergence.RepositoryDescriptor, error) {
	homeExpander := builder.resolveHomeExpander()

	if len(arguments) == 0 {
		descriptors, projectsError := configuration.ProjectDescriptors(homeExpander)
		if !errors.Is(projectsError, divergence.ErrNoRepositoriesConfigured) || len(configuration.ProjectsFolder) == 0 {
			return descriptors, projectsError
		}
	}

	projectsFolder := configuration.ProjectsFolder
	if len(arguments) > 0 {
		projectsFolder = arguments[0]
	}
	projectsFolder = homeExpander.Expand(strings.TrimSpace(projectsFolder))

	if len(configuration.SourceBranch) == 0 {
		return nil, errors.New(missingSourceBranchMessageConstant)
	}

	logger.Debug(discoveringProjectsMessageConstant, zap.String(projectsFolderFieldConstant, projectsFolder))
	folders, discoveryError := discovery.NewProjectFolderDiscoverer(fileSystem, logger).DiscoverProjectFolders(projectsFolder)
	if discoveryError != nil {
		return nil, fmt.Errorf(projectsFolderDiscoveryErrorTemplate, discoveryError)
	}
	return configuration.FolderDescriptors(folders)
}

func (builder *CommandBuilder) resolveExecutor(configuration divergence.CommandConfiguration, fileSystem afero.Fs, logger *zap.Logger) (divergence.CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	executorOptions := []execshell.ShellExecutorOption{
		execshell.WithFileSystem(fileSystem),
		execshell.WithCommandTimeout(configuration.CommandTimeout),
	}
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
}

func (builder *CommandBuilder) resolveProbe() divergence.RepositoryProbe {
	if builder.Probe != nil {
		return builder.Probe
	}
	return divergence.NewGitRepositoryProbe()
}

func (builder *CommandBuilder) resolveFileSystem() afero.Fs {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return afero.NewOsFs()
}

func (builder *CommandBuilder) resolveHomeExpander() *pathutils.HomeExpander {
	if builder.HomeExpander != nil {
		return builder.HomeExpander
	}
	return pathutils.NewHomeExpander()
}

func (builder *CommandBuilder) resolveConfiguration() divergence.CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return divergence.DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
