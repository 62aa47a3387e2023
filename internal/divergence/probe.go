package divergence

import (
	"errors"

	"github.com/go-git/go-git/v5"
)

// RepositoryProbe answers whether a directory belongs to a git repository
// without spawning a process.
type RepositoryProbe interface {
	IsRepository(path string) (bool, error)
}

// GitRepositoryProbe opens repositories with go-git, searching parent
// directories for .git the way the git CLI does.
type GitRepositoryProbe struct{}

// NewGitRepositoryProbe constructs a go-git backed probe.
func NewGitRepositoryProbe() GitRepositoryProbe {
	return GitRepositoryProbe{}
}

// IsRepository reports false with a nil error only when go-git positively
// determined that no repository exists. Any other open failure is returned so
// the caller can fall back to git itself.
func (probe GitRepositoryProbe) IsRepository(path string) (bool, error) {
	_, openError := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true, EnableDotGitCommonDir: true})
	switch {
	case openError == nil:
		return true, nil
	case errors.Is(openError, git.ErrRepositoryNotExists):
		return false, nil
	default:
		return false, openError
	}
}
