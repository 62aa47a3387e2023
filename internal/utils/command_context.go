package utils

import "context"

type commandContextKey string

const (
	configurationFilePathContextKeyConstant = commandContextKey("mergewatch.configurationFilePath")
)

// CommandContextAccessor stores and retrieves values that the root command
// resolves before a subcommand runs.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath records the configuration file that was loaded.
// An empty path means only embedded defaults and environment variables applied.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath reports the recorded configuration file path.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return contextValue[string](executionContext, configurationFilePathContextKeyConstant)
}

func contextValue[ValueType any](executionContext context.Context, key commandContextKey) (ValueType, bool) {
	var zeroValue ValueType
	if executionContext == nil {
		return zeroValue, false
	}
	value, available := executionContext.Value(key).(ValueType)
	if !available {
		return zeroValue, false
	}
	return value, true
}
