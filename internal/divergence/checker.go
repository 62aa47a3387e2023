package divergence

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/mergewatch/internal/execshell"
)

const (
	commandExecutorMissingMessageConstant = "command executor not configured"
	probeFailedMessageConstant            = "repository probe failed; continuing with git"
	repositoryProbeNegativeTextConstant   = "not a git repository (probe)"
	repositoryFieldNameConstant           = "repository"
	pathFieldNameConstant                 = "path"
	sequentialConcurrencyConstant         = 1
)

// ErrCommandExecutorNotConfigured indicates the checker was built without an executor.
var ErrCommandExecutorNotConfigured = errors.New(commandExecutorMissingMessageConstant)

// CommandExecutor runs a single command and reports its result.
type CommandExecutor interface {
	Run(executionContext context.Context, command execshell.ShellCommand) (execshell.CommandResult, error)
}

// Dependencies enumerates the collaborators of a Checker. Probe and FileSystem
// are only consulted when repository verification is enabled.
type Dependencies struct {
	Executor   CommandExecutor
	Probe      RepositoryProbe
	FileSystem afero.Fs
	Logger     *zap.Logger
}

// Options tunes a Checker.
type Options struct {
	ValidateBranches bool
	VerifyRepository bool
	Concurrency      int
}

// DefaultOptions validates branches and verifies repositories sequentially.
func DefaultOptions() Options {
	return Options{ValidateBranches: true, VerifyRepository: true, Concurrency: sequentialConcurrencyConstant}
}

// RepositoryReport pairs a descriptor with its outcome.
type RepositoryReport struct {
	Descriptor RepositoryDescriptor
	Outcome    Outcome
}

// Checker runs the fetch, validate, diff and classify pipeline.
type Checker struct {
	executor       CommandExecutor
	probe          RepositoryProbe
	fileSystem     afero.Fs
	logger         *zap.Logger
	options        Options
	commandBuilder CommandBuilder
	classifier     Classifier
}

// NewChecker constructs a Checker.
func NewChecker(dependencies Dependencies, options Options) (*Checker, error) {
	if dependencies.Executor == nil {
		return nil, ErrCommandExecutorNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}

	if options.Concurrency < sequentialConcurrencyConstant {
		options.Concurrency = sequentialConcurrencyConstant
	}

	return &Checker{
		executor:   dependencies.Executor,
		probe:      dependencies.Probe,
		fileSystem: fileSystem,
		logger:     logger,
		options:    options,
	}, nil
}

// CheckAll checks every descriptor and returns the reports in input order.
// With Concurrency above one the checks run on a bounded pool; each task
// writes only its own slot.
func (checker *Checker) CheckAll(executionContext context.Context, descriptors []RepositoryDescriptor) []RepositoryReport {
	reports := make([]RepositoryReport, len(descriptors))

	if checker.options.Concurrency == sequentialConcurrencyConstant {
		for descriptorIndex, descriptor := range descriptors {
			reports[descriptorIndex] = RepositoryReport{Descriptor: descriptor, Outcome: checker.Check(executionContext, descriptor)}
		}
		return reports
	}

	var workerGroup errgroup.Group
	workerGroup.SetLimit(checker.options.Concurrency)
	for descriptorIndex, descriptor := range descriptors {
		descriptorIndex, descriptor := descriptorIndex, descriptor
		workerGroup.Go(func() error {
			reports[descriptorIndex] = RepositoryReport{Descriptor: descriptor, Outcome: checker.Check(executionContext, descriptor)}
			return nil
		})
	}
	_ = workerGroup.Wait()

	return reports
}

// Check produces the outcome for a single repository. It never returns an error;
// every failure becomes an Outcome.
func (checker *Checker) Check(executionContext context.Context, descriptor RepositoryDescriptor) Outcome {
	if outcome, stop := checker.verifyRepository(descriptor); stop {
		return outcome
	}

	for _, fetchCommand := range checker.commandBuilder.Fetch(descriptor) {
		fetchResult, fetchError := checker.executor.Run(executionContext, fetchCommand)
		if fetchError != nil {
			return outcomeFromExecutionError(fetchError, FetchFailed)
		}
		if !fetchResult.Succeeded() {
			return checker.classifier.ClassifyFetchFailure(fetchResult)
		}
	}

	if checker.options.ValidateBranches {
		missingBranches := make([]string, 0, 2)
		for _, branch := range []string{descriptor.SourceBranch(), descriptor.TargetBranch()} {
			present, validationError := checker.branchExists(executionContext, descriptor, branch)
			if validationError != nil {
				return outcomeFromExecutionError(validationError, UnknownFailure)
			}
			if !present {
				missingBranches = append(missingBranches, descriptor.remoteReference(branch))
			}
		}
		if len(missingBranches) > 0 {
			return BranchMissing(missingBranches...)
		}
	}

	diffResult, diffError := checker.executor.Run(executionContext, checker.commandBuilder.Diff(descriptor))
	if diffError != nil {
		return outcomeFromExecutionError(diffError, UnknownFailure)
	}
	return checker.classifier.ClassifyDiff(diffResult)
}

// verifyRepository consults the probe for existing directories only; missing
// paths are left to the executor, which reports them as failed fetches.
func (checker *Checker) verifyRepository(descriptor RepositoryDescriptor) (Outcome, bool) {
	if !checker.options.VerifyRepository || checker.probe == nil {
		return Outcome{}, false
	}

	isDirectory, statError := afero.IsDir(checker.fileSystem, descriptor.Path())
	if statError != nil || !isDirectory {
		return Outcome{}, false
	}

	isRepository, probeError := checker.probe.IsRepository(descriptor.Path())
	if probeError != nil {
		checker.logger.Debug(
			probeFailedMessageConstant,
			zap.String(repositoryFieldNameConstant, descriptor.Name()),
			zap.String(pathFieldNameConstant, descriptor.Path()),
			zap.Error(probeError),
		)
		return Outcome{}, false
	}
	if !isRepository {
		return RepositoryNotFound(repositoryProbeNegativeTextConstant), true
	}
	return Outcome{}, false
}

func (checker *Checker) branchExists(executionContext context.Context, descriptor RepositoryDescriptor, branch string) (bool, error) {
	result, executionError := checker.executor.Run(executionContext, checker.commandBuilder.BranchExists(descriptor, branch))
	if executionError != nil {
		return false, executionError
	}
	standardOutput, succeeded := result.StandardOutput()
	return succeeded && len(strings.TrimSpace(standardOutput)) > 0, nil
}

func outcomeFromExecutionError(executionError error, fallback func(string) Outcome) Outcome {
	var timeoutError execshell.CommandTimeoutError
	if errors.As(executionError, &timeoutError) {
		return TimedOut(executionError.Error())
	}
	return fallback(executionError.Error())
}
