package divergence_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/mergewatch/internal/divergence"
	"github.com/temirov/mergewatch/internal/execshell"
)

const (
	testRepositoryPathConstant   = "/work/api"
	fetchSourceCommandConstant   = "git fetch origin develop"
	fetchTargetCommandConstant   = "git fetch origin main"
	showSourceCommandConstant    = "git show-ref refs/remotes/origin/develop"
	showTargetCommandConstant    = "git show-ref refs/remotes/origin/main"
	diffCommandConstant          = "git log --no-merges origin/develop ^origin/main"
	showRefOutputTemplate        = "0123456789abcdef %s\n"
	sourceTrackingReferenceConst = "refs/remotes/origin/develop"
	targetTrackingReferenceConst = "refs/remotes/origin/main"
)

type scriptedResponse struct {
	result execshell.CommandResult
	err    error
}

type scriptedExecutor struct {
	mutex            sync.Mutex
	responses        map[string]scriptedResponse
	recordedCommands []string
}

func newScriptedExecutor(responses map[string]scriptedResponse) *scriptedExecutor {
	return &scriptedExecutor{responses: responses}
}

func (executor *scriptedExecutor) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.CommandResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.recordedCommands = append(executor.recordedCommands, command.String())
	response, found := executor.responses[command.String()]
	if !found {
		return execshell.NewSuccessfulCommandResult(""), nil
	}
	return response.result, response.err
}

type staticProbe struct {
	isRepository bool
	probeError   error
	calls        atomic.Int32
}

func (probe *staticProbe) IsRepository(path string) (bool, error) {
	probe.calls.Add(1)
	return probe.isRepository, probe.probeError
}

func healthyResponses() map[string]scriptedResponse {
	return map[string]scriptedResponse{
		showSourceCommandConstant: {result: execshell.NewSuccessfulCommandResult(fmt.Sprintf(showRefOutputTemplate, sourceTrackingReferenceConst))},
		showTargetCommandConstant: {result: execshell.NewSuccessfulCommandResult(fmt.Sprintf(showRefOutputTemplate, targetTrackingReferenceConst))},
	}
}

func withResponse(responses map[string]scriptedResponse, command string, response scriptedResponse) map[string]scriptedResponse {
	responses[command] = response
	return responses
}

func newDescriptor(testInstance *testing.T, path string) divergence.RepositoryDescriptor {
	testInstance.Helper()
	descriptor, descriptorError := divergence.NewRepositoryDescriptor("", path, "", "develop", "")
	require.NoError(testInstance, descriptorError)
	return descriptor
}

func memoryFileSystem(testInstance *testing.T, directories ...string) afero.Fs {
	testInstance.Helper()
	fileSystem := afero.NewMemMapFs()
	for _, directory := range directories {
		require.NoError(testInstance, fileSystem.MkdirAll(directory, 0o755))
	}
	return fileSystem
}

func TestNewCheckerRequiresExecutor(testInstance *testing.T) {
	_, creationError := divergence.NewChecker(divergence.Dependencies{}, divergence.DefaultOptions())
	require.ErrorIs(testInstance, creationError, divergence.ErrCommandExecutorNotConfigured)
}

func TestCheckerCheckStateMachine(testInstance *testing.T) {
	timeoutFailure := execshell.CommandTimeoutError{Command: execshell.NewGitCommand(testRepositoryPathConstant), Timeout: time.Second}
	spawnFailure := execshell.CommandExecutionError{Command: execshell.NewGitCommand(testRepositoryPathConstant), Cause: errors.New("executable file not found")}

	testCases := []struct {
		name             string
		responses        map[string]scriptedResponse
		validate         bool
		expectedKind     divergence.OutcomeKind
		expectedCommands []string
		expectedMissing  []string
		expectedCount    int
	}{
		{
			name:             "no_divergence",
			responses:        healthyResponses(),
			validate:         true,
			expectedKind:     divergence.OutcomeNoDivergence,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, showSourceCommandConstant, showTargetCommandConstant, diffCommandConstant},
		},
		{
			name:             "divergence_exists",
			responses:        withResponse(healthyResponses(), diffCommandConstant, scriptedResponse{result: execshell.NewSuccessfulCommandResult(twoCommitLogConstant)}),
			validate:         true,
			expectedKind:     divergence.OutcomeDivergenceExists,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, showSourceCommandConstant, showTargetCommandConstant, diffCommandConstant},
			expectedCount:    2,
		},
		{
			name:             "source_fetch_fails",
			responses:        withResponse(healthyResponses(), fetchSourceCommandConstant, scriptedResponse{result: execshell.NewFailedCommandResult(128, "fatal: couldn't find remote ref develop")}),
			validate:         true,
			expectedKind:     divergence.OutcomeFetchFailed,
			expectedCommands: []string{fetchSourceCommandConstant},
		},
		{
			name:             "target_fetch_fails",
			responses:        withResponse(healthyResponses(), fetchTargetCommandConstant, scriptedResponse{result: execshell.NewFailedCommandResult(128, "fatal: couldn't find remote ref main")}),
			validate:         true,
			expectedKind:     divergence.OutcomeFetchFailed,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant},
		},
		{
			name:             "fetch_reports_missing_repository",
			responses:        withResponse(healthyResponses(), fetchSourceCommandConstant, scriptedResponse{result: execshell.NewFailedCommandResult(128, "fatal: not a git repository")}),
			validate:         true,
			expectedKind:     divergence.OutcomeRepositoryNotFound,
			expectedCommands: []string{fetchSourceCommandConstant},
		},
		{
			name:             "fetch_spawn_failure",
			responses:        withResponse(healthyResponses(), fetchSourceCommandConstant, scriptedResponse{err: spawnFailure}),
			validate:         true,
			expectedKind:     divergence.OutcomeFetchFailed,
			expectedCommands: []string{fetchSourceCommandConstant},
		},
		{
			name:             "fetch_timeout",
			responses:        withResponse(healthyResponses(), fetchTargetCommandConstant, scriptedResponse{err: timeoutFailure}),
			validate:         true,
			expectedKind:     divergence.OutcomeTimedOut,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant},
		},
		{
			name:             "target_branch_missing",
			responses:        withResponse(healthyResponses(), showTargetCommandConstant, scriptedResponse{result: execshell.NewFailedCommandResult(1, "")}),
			validate:         true,
			expectedKind:     divergence.OutcomeBranchMissing,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, showSourceCommandConstant, showTargetCommandConstant},
			expectedMissing:  []string{"origin/main"},
		},
		{
			name:             "both_branches_missing_with_empty_output",
			responses:        map[string]scriptedResponse{},
			validate:         true,
			expectedKind:     divergence.OutcomeBranchMissing,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, showSourceCommandConstant, showTargetCommandConstant},
			expectedMissing:  []string{"origin/develop", "origin/main"},
		},
		{
			name:             "validation_disabled",
			responses:        withResponse(map[string]scriptedResponse{}, diffCommandConstant, scriptedResponse{result: execshell.NewFailedCommandResult(128, "fatal: bad revision '^origin/main'")}),
			validate:         false,
			expectedKind:     divergence.OutcomeInvalidReference,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, diffCommandConstant},
		},
		{
			name:             "validation_decode_failure",
			responses:        withResponse(healthyResponses(), showSourceCommandConstant, scriptedResponse{err: execshell.DecodeError{Stream: execshell.OutputStreamStandardOutput, Cause: errors.New("invalid utf-8")}}),
			validate:         true,
			expectedKind:     divergence.OutcomeUnknownFailure,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, showSourceCommandConstant},
		},
		{
			name:             "diff_unknown_failure",
			responses:        withResponse(healthyResponses(), diffCommandConstant, scriptedResponse{result: execshell.NewFailedCommandResult(1, "error: cannot lock ref")}),
			validate:         true,
			expectedKind:     divergence.OutcomeUnknownFailure,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, showSourceCommandConstant, showTargetCommandConstant, diffCommandConstant},
		},
		{
			name:             "diff_timeout",
			responses:        withResponse(healthyResponses(), diffCommandConstant, scriptedResponse{err: timeoutFailure}),
			validate:         true,
			expectedKind:     divergence.OutcomeTimedOut,
			expectedCommands: []string{fetchSourceCommandConstant, fetchTargetCommandConstant, showSourceCommandConstant, showTargetCommandConstant, diffCommandConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := newScriptedExecutor(testCase.responses)
			checker, creationError := divergence.NewChecker(
				divergence.Dependencies{Executor: executor, FileSystem: memoryFileSystem(testInstance, testRepositoryPathConstant)},
				divergence.Options{ValidateBranches: testCase.validate, Concurrency: 1},
			)
			require.NoError(testInstance, creationError)

			outcome := checker.Check(context.Background(), newDescriptor(testInstance, testRepositoryPathConstant))
			require.Equal(testInstance, testCase.expectedKind, outcome.Kind)
			require.Equal(testInstance, testCase.expectedCommands, executor.recordedCommands)
			require.Equal(testInstance, testCase.expectedCount, outcome.CommitCount)
			if testCase.expectedMissing != nil {
				require.Equal(testInstance, testCase.expectedMissing, outcome.MissingBranches)
			}
		})
	}
}

func TestCheckerRepositoryProbe(testInstance *testing.T) {
	testCases := []struct {
		name             string
		probe            *staticProbe
		verify           bool
		path             string
		expectedKind     divergence.OutcomeKind
		expectedCommands int
		expectedCalls    int32
	}{
		{
			name:          "probe_rejects_directory",
			probe:         &staticProbe{isRepository: false},
			verify:        true,
			path:          testRepositoryPathConstant,
			expectedKind:  divergence.OutcomeRepositoryNotFound,
			expectedCalls: 1,
		},
		{
			name:             "probe_accepts_directory",
			probe:            &staticProbe{isRepository: true},
			verify:           true,
			path:             testRepositoryPathConstant,
			expectedKind:     divergence.OutcomeNoDivergence,
			expectedCommands: 5,
			expectedCalls:    1,
		},
		{
			name:             "probe_error_falls_back_to_git",
			probe:            &staticProbe{probeError: errors.New("corrupt index")},
			verify:           true,
			path:             testRepositoryPathConstant,
			expectedKind:     divergence.OutcomeNoDivergence,
			expectedCommands: 5,
			expectedCalls:    1,
		},
		{
			name:             "verification_disabled",
			probe:            &staticProbe{isRepository: false},
			verify:           false,
			path:             testRepositoryPathConstant,
			expectedKind:     divergence.OutcomeNoDivergence,
			expectedCommands: 5,
		},
		{
			name:             "missing_path_skips_probe",
			probe:            &staticProbe{isRepository: false},
			verify:           true,
			path:             "/work/absent",
			expectedKind:     divergence.OutcomeNoDivergence,
			expectedCommands: 5,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := newScriptedExecutor(map[string]scriptedResponse{
				"git show-ref refs/remotes/origin/develop": {result: execshell.NewSuccessfulCommandResult("x refs/remotes/origin/develop")},
				"git show-ref refs/remotes/origin/main":    {result: execshell.NewSuccessfulCommandResult("y refs/remotes/origin/main")},
			})
			checker, creationError := divergence.NewChecker(
				divergence.Dependencies{Executor: executor, Probe: testCase.probe, FileSystem: memoryFileSystem(testInstance, testRepositoryPathConstant)},
				divergence.Options{ValidateBranches: true, VerifyRepository: testCase.verify, Concurrency: 1},
			)
			require.NoError(testInstance, creationError)

			outcome := checker.Check(context.Background(), newDescriptor(testInstance, testCase.path))
			require.Equal(testInstance, testCase.expectedKind, outcome.Kind)
			require.Len(testInstance, executor.recordedCommands, testCase.expectedCommands)
			require.Equal(testInstance, testCase.expectedCalls, testCase.probe.calls.Load())
		})
	}
}

type pathKeyedExecutor struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	outcomes    map[string]execshell.CommandResult
}

func (executor *pathKeyedExecutor) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.CommandResult, error) {
	current := executor.inFlight.Add(1)
	defer executor.inFlight.Add(-1)
	for {
		observed := executor.maxInFlight.Load()
		if current <= observed || executor.maxInFlight.CompareAndSwap(observed, current) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	arguments := command.Arguments()
	if arguments[0] == "show-ref" {
		return execshell.NewSuccessfulCommandResult("ref"), nil
	}
	if arguments[0] == "log" {
		return executor.outcomes[command.WorkingDirectory()], nil
	}
	return execshell.NewSuccessfulCommandResult(""), nil
}

func TestCheckerCheckAllPreservesConfigurationOrder(testInstance *testing.T) {
	paths := []string{"/work/a", "/work/b", "/work/c", "/work/d", "/work/e", "/work/f"}
	outcomes := map[string]execshell.CommandResult{}
	expectedKinds := make([]divergence.OutcomeKind, 0, len(paths))
	for pathIndex, path := range paths {
		if pathIndex%2 == 0 {
			outcomes[path] = execshell.NewSuccessfulCommandResult("")
			expectedKinds = append(expectedKinds, divergence.OutcomeNoDivergence)
		} else {
			outcomes[path] = execshell.NewFailedCommandResult(128, "fatal: not a git repository")
			expectedKinds = append(expectedKinds, divergence.OutcomeRepositoryNotFound)
		}
	}

	for _, concurrency := range []int{1, 3} {
		testInstance.Run(fmt.Sprintf("concurrency_%d", concurrency), func(testInstance *testing.T) {
			executor := &pathKeyedExecutor{outcomes: outcomes}
			checker, creationError := divergence.NewChecker(
				divergence.Dependencies{Executor: executor, FileSystem: memoryFileSystem(testInstance, paths...)},
				divergence.Options{ValidateBranches: true, Concurrency: concurrency},
			)
			require.NoError(testInstance, creationError)

			descriptors := make([]divergence.RepositoryDescriptor, 0, len(paths))
			for _, path := range paths {
				descriptors = append(descriptors, newDescriptor(testInstance, path))
			}

			reports := checker.CheckAll(context.Background(), descriptors)
			require.Len(testInstance, reports, len(paths))
			for reportIndex, report := range reports {
				require.Equal(testInstance, paths[reportIndex], report.Descriptor.Path())
				require.Equal(testInstance, expectedKinds[reportIndex], report.Outcome.Kind)
			}
			require.LessOrEqual(testInstance, executor.maxInFlight.Load(), int32(concurrency))
		})
	}
}
