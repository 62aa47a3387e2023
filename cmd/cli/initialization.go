package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	flagutils "github.com/temirov/mergewatch/internal/utils/flags"
)

const (
	initFlagNameConstant                 = "init"
	initFlagUsageConstant                = "Write the default configuration to the working directory (local) or the user configuration directory (user) and exit."
	initFormatFlagNameConstant           = "init-format"
	initFormatFlagUsageConstant          = "Format of the configuration written by --init."
	forceFlagNameConstant                = "force"
	forceFlagUsageConstant               = "Overwrite an existing configuration file when used with --init."
	initScopeLocalConstant               = "local"
	initScopeUserConstant                = "user"
	initFormatYAMLConstant               = "yaml"
	initFormatTOMLConstant               = "toml"
	configurationFileNameTemplate        = configurationNameConstant + ".%s"
	configurationDirectoryPermissions    = 0o755
	configurationFilePermissions         = 0o644
	configurationWrittenMessageConstant  = "configuration written"
	configurationWrittenTemplateConstant = "Wrote configuration to %s\n"
	configurationExistsTemplateConstant  = "configuration file %s already exists; rerun with --force to overwrite it"
	configurationDirectoryErrorTemplate  = "unable to resolve %s configuration directory: %w"
	configurationRenderErrorTemplate     = "unable to render %s configuration: %w"
	configurationWriteErrorTemplate      = "unable to write configuration file %s: %w"
)

// DirectoryProvider resolves a directory path.
type DirectoryProvider func() (string, error)

// ConfigurationInitializer writes the embedded default configuration for --init.
type ConfigurationInitializer struct {
	fileSystem                         afero.Fs
	workingDirectoryProvider           DirectoryProvider
	userConfigurationDirectoryProvider DirectoryProvider
	scopeValue                         string
	formatValue                        string
	forceOverwrite                     bool
}

// NewConfigurationInitializer constructs an initializer writing through fileSystem.
func NewConfigurationInitializer(fileSystem afero.Fs) *ConfigurationInitializer {
	return &ConfigurationInitializer{
		fileSystem:                         fileSystem,
		workingDirectoryProvider:           os.Getwd,
		userConfigurationDirectoryProvider: os.UserConfigDir,
	}
}

// BindFlags registers --init, --init-format and --force on flagSet.
func (initializer *ConfigurationInitializer) BindFlags(flagSet *pflag.FlagSet) {
	scopeChoices := []string{initScopeLocalConstant, initScopeUserConstant}
	formatChoices := []string{initFormatYAMLConstant, initFormatTOMLConstant}

	flagSet.StringVar(&initializer.scopeValue, initFlagNameConstant, "", flagutils.FormatChoiceUsage(initScopeLocalConstant, scopeChoices, initFlagUsageConstant))
	flagSet.Lookup(initFlagNameConstant).NoOptDefVal = initScopeLocalConstant
	flagSet.StringVar(&initializer.formatValue, initFormatFlagNameConstant, initFormatYAMLConstant, flagutils.FormatChoiceUsage(initFormatYAMLConstant, formatChoices, initFormatFlagUsageConstant))
	flagSet.BoolVar(&initializer.forceOverwrite, forceFlagNameConstant, false, forceFlagUsageConstant)
}

// Requested reports whether --init was supplied to command.
func (initializer *ConfigurationInitializer) Requested(command *cobra.Command) bool {
	if command == nil {
		return false
	}
	initFlag := command.Flags().Lookup(initFlagNameConstant)
	return initFlag != nil && initFlag.Changed
}

// Initialize writes the default configuration and returns the written path.
func (initializer *ConfigurationInitializer) Initialize() (string, error) {
	scope, scopeError := flagutils.NormalizeChoice(initializer.scopeValue, initScopeLocalConstant, []string{initScopeLocalConstant, initScopeUserConstant})
	if scopeError != nil {
		return "", scopeError
	}
	format, formatError := flagutils.NormalizeChoice(initializer.formatValue, initFormatYAMLConstant, []string{initFormatYAMLConstant, initFormatTOMLConstant})
	if formatError != nil {
		return "", formatError
	}

	configurationDirectory, directoryError := initializer.resolveDirectory(scope)
	if directoryError != nil {
		return "", fmt.Errorf(configurationDirectoryErrorTemplate, scope, directoryError)
	}
	configurationFilePath := filepath.Join(configurationDirectory, fmt.Sprintf(configurationFileNameTemplate, format))

	exists, existsError := afero.Exists(initializer.fileSystem, configurationFilePath)
	if existsError != nil {
		return "", fmt.Errorf(configurationWriteErrorTemplate, configurationFilePath, existsError)
	}
	if exists && !initializer.forceOverwrite {
		return "", fmt.Errorf(configurationExistsTemplateConstant, configurationFilePath)
	}

	content, renderError := renderDefaultConfiguration(format)
	if renderError != nil {
		return "", fmt.Errorf(configurationRenderErrorTemplate, format, renderError)
	}

	if mkdirError := initializer.fileSystem.MkdirAll(configurationDirectory, configurationDirectoryPermissions); mkdirError != nil {
		return "", fmt.Errorf(configurationWriteErrorTemplate, configurationFilePath, mkdirError)
	}
	if writeError := afero.WriteFile(initializer.fileSystem, configurationFilePath, content, configurationFilePermissions); writeError != nil {
		return "", fmt.Errorf(configurationWriteErrorTemplate, configurationFilePath, writeError)
	}
	return configurationFilePath, nil
}

func (initializer *ConfigurationInitializer) resolveDirectory(scope string) (string, error) {
	if scope == initScopeUserConstant {
		userConfigurationDirectory, userDirectoryError := initializer.userConfigurationDirectoryProvider()
		if userDirectoryError != nil {
			return "", userDirectoryError
		}
		return filepath.Join(userConfigurationDirectory, applicationNameConstant), nil
	}
	return initializer.workingDirectoryProvider()
}

// renderDefaultConfiguration returns the embedded YAML as is, or converted to TOML.
func renderDefaultConfiguration(format string) ([]byte, error) {
	embeddedContent, _ := EmbeddedDefaultConfiguration()
	if format == initFormatYAMLConstant {
		return embeddedContent, nil
	}

	document := map[string]any{}
	if decodeError := yaml.Unmarshal(embeddedContent, &document); decodeError != nil {
		return nil, decodeError
	}
	return toml.Marshal(document)
}
