package divergence

import (
	"errors"
	"path/filepath"
	"strings"
)

const (
	// DefaultRemoteName is used when a descriptor does not name a remote.
	DefaultRemoteName = "origin"
	// DefaultTargetBranch is used when a descriptor does not name a target branch.
	DefaultTargetBranch = "main"

	repositoryPathRequiredMessageConstant = "repository path must be provided"
	sourceBranchRequiredMessageConstant   = "source branch must be provided"
	remoteReferenceSeparatorConstant      = "/"
)

// ErrRepositoryPathRequired indicates a descriptor without a path.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrSourceBranchRequired indicates a descriptor without a source branch.
var ErrSourceBranchRequired = errors.New(sourceBranchRequiredMessageConstant)

// RepositoryDescriptor identifies one repository and the branch pair to compare.
// Values are immutable once constructed.
type RepositoryDescriptor struct {
	name         string
	path         string
	remoteName   string
	sourceBranch string
	targetBranch string
}

// NewRepositoryDescriptor validates and normalizes a descriptor. The remote
// defaults to origin, the target branch to main and the name to the last path
// element.
func NewRepositoryDescriptor(name string, path string, remoteName string, sourceBranch string, targetBranch string) (RepositoryDescriptor, error) {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return RepositoryDescriptor{}, ErrRepositoryPathRequired
	}

	trimmedSourceBranch := strings.TrimSpace(sourceBranch)
	if len(trimmedSourceBranch) == 0 {
		return RepositoryDescriptor{}, ErrSourceBranchRequired
	}

	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 {
		trimmedName = filepath.Base(filepath.Clean(trimmedPath))
	}

	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		trimmedRemoteName = DefaultRemoteName
	}

	trimmedTargetBranch := strings.TrimSpace(targetBranch)
	if len(trimmedTargetBranch) == 0 {
		trimmedTargetBranch = DefaultTargetBranch
	}

	return RepositoryDescriptor{
		name:         trimmedName,
		path:         trimmedPath,
		remoteName:   trimmedRemoteName,
		sourceBranch: trimmedSourceBranch,
		targetBranch: trimmedTargetBranch,
	}, nil
}

// Name is the display label of the repository.
func (descriptor RepositoryDescriptor) Name() string {
	return descriptor.name
}

// Path is the working directory every command for this repository runs in.
func (descriptor RepositoryDescriptor) Path() string {
	return descriptor.path
}

// RemoteName is the remote both branches are fetched from.
func (descriptor RepositoryDescriptor) RemoteName() string {
	return descriptor.remoteName
}

// SourceBranch is the branch whose unmerged commits are reported.
func (descriptor RepositoryDescriptor) SourceBranch() string {
	return descriptor.sourceBranch
}

// TargetBranch is the branch the source is compared against.
func (descriptor RepositoryDescriptor) TargetBranch() string {
	return descriptor.targetBranch
}

// SourceReference renders the remote-tracking name of the source branch, e.g. origin/develop.
func (descriptor RepositoryDescriptor) SourceReference() string {
	return descriptor.remoteReference(descriptor.sourceBranch)
}

// TargetReference renders the remote-tracking name of the target branch, e.g. origin/main.
func (descriptor RepositoryDescriptor) TargetReference() string {
	return descriptor.remoteReference(descriptor.targetBranch)
}

func (descriptor RepositoryDescriptor) remoteReference(branch string) string {
	return descriptor.remoteName + remoteReferenceSeparatorConstant + branch
}
