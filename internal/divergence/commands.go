package divergence

import (
	"github.com/temirov/mergewatch/internal/execshell"
)

const (
	gitFetchSubcommandConstant                  = "fetch"
	gitLogSubcommandConstant                    = "log"
	gitNoMergesFlagConstant                     = "--no-merges"
	gitShowRefSubcommandConstant                = "show-ref"
	gitRemoteTrackingReferencePrefixConstant    = "refs/remotes/"
	gitExcludeReferencePrefixConstant           = "^"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
)

// CommandBuilder produces the git invocations of a divergence check without running them.
type CommandBuilder struct{}

// Fetch returns the source fetch followed by the target fetch.
func (builder CommandBuilder) Fetch(descriptor RepositoryDescriptor) [2]execshell.ShellCommand {
	return [2]execshell.ShellCommand{
		builder.fetchBranch(descriptor, descriptor.SourceBranch()),
		builder.fetchBranch(descriptor, descriptor.TargetBranch()),
	}
}

// Diff lists the non-merge commits reachable from the source but not from the target.
func (builder CommandBuilder) Diff(descriptor RepositoryDescriptor) execshell.ShellCommand {
	return execshell.NewGitCommand(descriptor.Path()).
		WithArguments(gitLogSubcommandConstant, gitNoMergesFlagConstant).
		WithArguments(descriptor.SourceReference()).
		WithArguments(gitExcludeReferencePrefixConstant + descriptor.TargetReference())
}

// BranchExists queries the remote-tracking reference of branch on the descriptor's remote.
func (builder CommandBuilder) BranchExists(descriptor RepositoryDescriptor, branch string) execshell.ShellCommand {
	return execshell.NewGitCommand(descriptor.Path()).
		WithArguments(gitShowRefSubcommandConstant).
		WithArguments(gitRemoteTrackingReferencePrefixConstant + descriptor.remoteReference(branch))
}

func (builder CommandBuilder) fetchBranch(descriptor RepositoryDescriptor, branch string) execshell.ShellCommand {
	return execshell.NewGitCommand(descriptor.Path()).
		WithArguments(gitFetchSubcommandConstant).
		WithArguments(descriptor.RemoteName()).
		WithArguments(branch).
		WithEnvironmentVariable(gitTerminalPromptEnvironmentNameConstant, gitTerminalPromptEnvironmentDisableConstant)
}
