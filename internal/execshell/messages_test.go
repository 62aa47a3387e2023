package execshell_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mergewatch/internal/execshell"
)

const testMessagesRepositoryPathConstant = "/work/api"

func TestCommandMessageFormatterBuildsGitMessages(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}
	fetchCommand := execshell.NewGitCommand(testMessagesRepositoryPathConstant).WithArguments("fetch", "origin", "develop")
	logCommand := execshell.NewGitCommand(testMessagesRepositoryPathConstant).WithArguments("log", "--no-merges", "origin/develop", "^origin/main")
	showRefCommand := execshell.NewGitCommand(testMessagesRepositoryPathConstant).WithArguments("show-ref", "refs/remotes/origin/main")
	unknownCommand := execshell.NewGitCommand(testMessagesRepositoryPathConstant).WithArguments("gc")
	failedResult := execshell.NewFailedCommandResult(128, "fatal: boom\n")

	testCases := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name:     "fetch_start",
			build:    func() string { return formatter.BuildStartedMessage(fetchCommand) },
			expected: "Fetching develop from origin in /work/api",
		},
		{
			name:     "fetch_failure",
			build:    func() string { return formatter.BuildFailureMessage(fetchCommand, failedResult) },
			expected: "Failed to fetch develop from origin in /work/api (exit code 128: fatal: boom)",
		},
		{
			name:     "log_success",
			build:    func() string { return formatter.BuildSuccessMessage(logCommand) },
			expected: "Listed commits on origin/develop missing from origin/main in /work/api",
		},
		{
			name:     "show_ref_start",
			build:    func() string { return formatter.BuildStartedMessage(showRefCommand) },
			expected: "Checking reference refs/remotes/origin/main in /work/api",
		},
		{
			name: "show_ref_execution_failure",
			build: func() string {
				return formatter.BuildExecutionFailureMessage(showRefCommand, errors.New("spawn failed"))
			},
			expected: "Unable to check reference refs/remotes/origin/main in /work/api: spawn failed",
		},
		{
			name:     "generic_fallback",
			build:    func() string { return formatter.BuildSuccessMessage(unknownCommand) },
			expected: "Completed git gc (in /work/api)",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.build())
		})
	}
}
