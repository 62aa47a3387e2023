package check

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/mergewatch/internal/divergence"
	"github.com/temirov/mergewatch/internal/execshell"
	flagutils "github.com/temirov/mergewatch/internal/utils/flags"
)

type failingFetchExecutor struct{}

func (failingFetchExecutor) Run(context.Context, execshell.ShellCommand) (execshell.CommandResult, error) {
	return execshell.NewFailedCommandResult(128, "fatal: couldn't find remote ref develop\n"), nil
}

func TestApplyFlagOverrides(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration divergence.CommandConfiguration
		arguments     []string
		assert        func(testInstance *testing.T, configuration divergence.CommandConfiguration)
	}{
		{
			name: "configuration_kept_without_flags",
			configuration: divergence.CommandConfiguration{
				RemoteName:       "upstream",
				SourceBranch:     "develop",
				TargetBranch:     "stable",
				ValidateBranches: true,
				Concurrency:      4,
				Output:           "yaml",
			},
			assert: func(testInstance *testing.T, configuration divergence.CommandConfiguration) {
				require.Equal(testInstance, "upstream", configuration.RemoteName)
				require.Equal(testInstance, "develop", configuration.SourceBranch)
				require.Equal(testInstance, "stable", configuration.TargetBranch)
				require.True(testInstance, configuration.ValidateBranches)
				require.Equal(testInstance, 4, configuration.Concurrency)
				require.Equal(testInstance, "yaml", configuration.Output)
			},
		},
		{
			name:          "flags_override_and_remote_prefix_split",
			configuration: divergence.DefaultCommandConfiguration(),
			arguments: []string{
				"--remote", "upstream",
				"-s", "upstream/feature/login",
				"-t", "upstream/main",
				"--validate-branches", "no",
				"--verify-repository=off",
				"--timeout", "90s",
				"--concurrency", "3",
				"--only-divergent",
			},
			assert: func(testInstance *testing.T, configuration divergence.CommandConfiguration) {
				require.Equal(testInstance, "upstream", configuration.RemoteName)
				require.Equal(testInstance, "feature/login", configuration.SourceBranch)
				require.Equal(testInstance, "main", configuration.TargetBranch)
				require.False(testInstance, configuration.ValidateBranches)
				require.False(testInstance, configuration.VerifyRepository)
				require.Equal(testInstance, 90*time.Second, configuration.CommandTimeout)
				require.Equal(testInstance, 3, configuration.Concurrency)
				require.True(testInstance, configuration.OnlyDivergent)
			},
		},
		{
			name:          "foreign_remote_prefix_kept",
			configuration: divergence.DefaultCommandConfiguration(),
			arguments:     []string{"-s", "upstream/develop"},
			assert: func(testInstance *testing.T, configuration divergence.CommandConfiguration) {
				require.Equal(testInstance, "origin", configuration.RemoteName)
				require.Equal(testInstance, "upstream/develop", configuration.SourceBranch)
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			builder := CommandBuilder{
				ConfigurationProvider: func() divergence.CommandConfiguration { return testCase.configuration },
			}
			command, buildError := builder.Build()
			require.NoError(testInstance, buildError)
			require.NoError(testInstance, command.ParseFlags(flagutils.NormalizeToggleArguments(testCase.arguments, command.Flags())))

			configuration, overrideError := builder.applyFlagOverrides(command, builder.resolveConfiguration())
			require.NoError(testInstance, overrideError)
			testCase.assert(testInstance, configuration)
		})
	}
}

func TestCheckCommandReportsFetchFailures(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll("/projects/api", 0o755))

	observedCore, observedLogs := observer.New(zap.DebugLevel)
	builder := CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.New(observedCore) },
		Executor:       failingFetchExecutor{},
		FileSystem:     fileSystem,
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetArgs([]string{"/projects", "--source-branch", "develop", "--verify-repository=no"})
	command.SetContext(context.Background())

	require.NoError(testInstance, command.Execute())
	require.Equal(testInstance, "FETCH FAILED: api (/projects/api) fatal: couldn't find remote ref develop\n", outputBuffer.String())
	require.Equal(testInstance, 1, observedLogs.FilterLevelExact(zap.ErrorLevel).Len())
}
