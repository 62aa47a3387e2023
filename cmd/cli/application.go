package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	checkcmd "github.com/temirov/mergewatch/cmd/cli/check"
	"github.com/temirov/mergewatch/internal/divergence"
	"github.com/temirov/mergewatch/internal/utils"
	flagutils "github.com/temirov/mergewatch/internal/utils/flags"
)

const (
	applicationNameConstant                 = "mergewatch"
	applicationShortDescriptionConstant     = "Report unmerged commits between branches across many repositories"
	applicationLongDescriptionConstant      = "mergewatch fetches a source and a target branch for each configured repository and reports whether the source branch has commits the target branch is missing. It never changes branch history."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML, TOML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	debugFlagNameConstant                   = "debug"
	debugFlagUsageConstant                  = "Shorthand for --log-level debug."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	checkConfigurationKeyConstant           = "check"
	environmentPrefixConstant               = "MERGEWATCH"
	configurationNameConstant               = "config"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	loggerNotInitializedMessageConstant     = "logger not initialized"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration  `mapstructure:"common"`
	Check  divergence.CommandConfiguration `mapstructure:"check"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand              *cobra.Command
	configurationLoader      *utils.ConfigurationLoader
	configurationInitializer *ConfigurationInitializer
	loggerFactory            *utils.LoggerFactory
	logger                   *zap.Logger
	configuration            ApplicationConfiguration
	configurationMetadata    utils.LoadedConfiguration
	configurationFilePath    string
	logLevelFlagValue        string
	logFormatFlagValue       string
	debugFlagValue           bool
	commandContextAccessor   utils.CommandContextAccessor
}

// ApplicationDependencies overrides collaborators of an Application. Nil fields
// use the operating system defaults.
type ApplicationDependencies struct {
	FileSystem      afero.Fs
	LoggerFactory   *utils.LoggerFactory
	SearchPaths     []string
	CheckerExecutor divergence.CommandExecutor
	CheckerProbe    divergence.RepositoryProbe
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles an Application around the provided collaborators.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	loggerFactory := dependencies.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = utils.NewLoggerFactory()
	}
	searchPaths := dependencies.SearchPaths
	if searchPaths == nil {
		searchPaths = utils.DefaultConfigurationSearchPaths(applicationNameConstant)
	}

	configurationLoader := utils.NewConfigurationLoader(configurationNameConstant, environmentPrefixConstant, searchPaths)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.SetFileSystem(fileSystem)

	application := &Application{
		configurationLoader:      configurationLoader,
		configurationInitializer: NewConfigurationInitializer(fileSystem),
		loggerFactory:            loggerFactory,
		logger:                   zap.NewNop(),
		commandContextAccessor:   utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command)
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", flagutils.FormatChoiceUsage(string(utils.LogLevelInfo), utils.SupportedLogLevels(), logLevelFlagUsageConstant))
	persistentFlags.StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flagutils.FormatChoiceUsage(string(utils.LogFormatStructured), utils.SupportedLogFormats(), logFormatFlagUsageConstant))
	persistentFlags.BoolVar(&application.debugFlagValue, debugFlagNameConstant, false, debugFlagUsageConstant)
	application.configurationInitializer.BindFlags(cobraCommand.Flags())

	checkBuilder := checkcmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() divergence.CommandConfiguration {
			return application.configuration.Check
		},
		Executor:   dependencies.CheckerExecutor,
		Probe:      dependencies.CheckerProbe,
		FileSystem: fileSystem,
	}
	checkCommand, checkBuildError := checkBuilder.Build()
	if checkBuildError == nil {
		cobraCommand.AddCommand(checkCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy with the process arguments. An interrupt
// or termination signal cancels the running git commands.
func (application *Application) Execute() error {
	signalContext, stopSignalNotification := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalNotification()
	application.rootCommand.SetContext(signalContext)
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command hierarchy with arguments and flushes the logger.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	normalizedArguments := flagutils.NormalizeToggleArguments(arguments, collectFlagSets(application.rootCommand)...)
	if normalizedArguments == nil {
		normalizedArguments = []string{}
	}
	application.rootCommand.SetArgs(normalizedArguments)
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func collectFlagSets(command *cobra.Command) []*pflag.FlagSet {
	flagSets := []*pflag.FlagSet{command.PersistentFlags(), command.Flags()}
	for _, subcommand := range command.Commands() {
		flagSets = append(flagSets, collectFlagSets(subcommand)...)
	}
	return flagSets
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range divergence.DefaultConfigurationValues(checkConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	// --init ignores existing configuration files so --force can replace a malformed one.
	configurationFilePath := application.configurationFilePath
	if application.configurationInitializer.Requested(command) {
		application.configurationLoader.SetFileSystem(afero.NewMemMapFs())
		configurationFilePath = ""
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.debugFlagValue {
		application.configuration.Common.LogLevel = string(utils.LogLevelDebug)
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	if application.configurationInitializer.Requested(command) {
		writtenPath, initializationError := application.configurationInitializer.Initialize()
		if initializationError != nil {
			return initializationError
		}
		application.logger.Info(configurationWrittenMessageConstant, zap.String(configurationFileFieldConstant, writtenPath))
		_, printError := fmt.Fprintf(command.OutOrStdout(), configurationWrittenTemplateConstant, writtenPath)
		return printError
	}

	return command.Help()
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
