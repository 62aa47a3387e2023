package divergence

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	pathutils "github.com/temirov/mergewatch/internal/utils/path"
)

const (
	projectsFolderConfigurationKeyConstant   = "projects_folder"
	remoteConfigurationKeyConstant           = "remote"
	sourceBranchConfigurationKeyConstant     = "source_branch"
	targetBranchConfigurationKeyConstant     = "target_branch"
	validateBranchesConfigurationKeyConstant = "validate_branches"
	verifyRepositoryConfigurationKeyConstant = "verify_repository"
	concurrencyConfigurationKeyConstant      = "concurrency"
	commandTimeoutConfigurationKeyConstant   = "command_timeout"
	outputConfigurationKeyConstant           = "output"
	onlyDivergentConfigurationKeyConstant    = "only_divergent"
	configurationKeySeparatorConstant        = "."
	noRepositoriesMessageConstant            = "no repositories configured; add check.projects or pass a projects folder"
	projectDescriptorErrorTemplateConstant   = "project %d (%s): %w"
	negativeConcurrencyTemplateConstant      = "concurrency must be positive, got %d"
)

// ErrNoRepositoriesConfigured indicates that neither projects nor a projects folder were supplied.
var ErrNoRepositoriesConfigured = errors.New(noRepositoriesMessageConstant)

// ProjectConfiguration describes one configured repository.
type ProjectConfiguration struct {
	Name         string `mapstructure:"name"`
	Folder       string `mapstructure:"folder"`
	RemoteName   string `mapstructure:"remote_name"`
	SourceBranch string `mapstructure:"source_branch"`
	TargetBranch string `mapstructure:"target_branch"`
}

// CommandConfiguration captures the check section of the configuration file.
type CommandConfiguration struct {
	ProjectsFolder   string                 `mapstructure:"projects_folder"`
	RemoteName       string                 `mapstructure:"remote"`
	SourceBranch     string                 `mapstructure:"source_branch"`
	TargetBranch     string                 `mapstructure:"target_branch"`
	ValidateBranches bool                   `mapstructure:"validate_branches"`
	VerifyRepository bool                   `mapstructure:"verify_repository"`
	Concurrency      int                    `mapstructure:"concurrency"`
	CommandTimeout   time.Duration          `mapstructure:"command_timeout"`
	Output           string                 `mapstructure:"output"`
	OnlyDivergent    bool                   `mapstructure:"only_divergent"`
	Projects         []ProjectConfiguration `mapstructure:"projects"`
}

// DefaultCommandConfiguration provides baseline values for the check command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RemoteName:       DefaultRemoteName,
		TargetBranch:     DefaultTargetBranch,
		ValidateBranches: true,
		VerifyRepository: true,
		Concurrency:      sequentialConcurrencyConstant,
		Output:           string(OutputFormatText),
	}
}

// DefaultConfigurationValues exposes the defaults as viper keys under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		qualifyKey(prefix, projectsFolderConfigurationKeyConstant):   defaults.ProjectsFolder,
		qualifyKey(prefix, remoteConfigurationKeyConstant):           defaults.RemoteName,
		qualifyKey(prefix, sourceBranchConfigurationKeyConstant):     defaults.SourceBranch,
		qualifyKey(prefix, targetBranchConfigurationKeyConstant):     defaults.TargetBranch,
		qualifyKey(prefix, validateBranchesConfigurationKeyConstant): defaults.ValidateBranches,
		qualifyKey(prefix, verifyRepositoryConfigurationKeyConstant): defaults.VerifyRepository,
		qualifyKey(prefix, concurrencyConfigurationKeyConstant):      defaults.Concurrency,
		qualifyKey(prefix, commandTimeoutConfigurationKeyConstant):   defaults.CommandTimeout.String(),
		qualifyKey(prefix, outputConfigurationKeyConstant):           defaults.Output,
		qualifyKey(prefix, onlyDivergentConfigurationKeyConstant):    defaults.OnlyDivergent,
	}
}

func qualifyKey(prefix string, key string) string {
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return key
	}
	return trimmedPrefix + configurationKeySeparatorConstant + key
}

// Sanitize trims values and restores the remote and target defaults when blank.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.ProjectsFolder = strings.TrimSpace(configuration.ProjectsFolder)
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = DefaultRemoteName
	}
	sanitized.SourceBranch = strings.TrimSpace(configuration.SourceBranch)
	sanitized.TargetBranch = strings.TrimSpace(configuration.TargetBranch)
	if len(sanitized.TargetBranch) == 0 {
		sanitized.TargetBranch = DefaultTargetBranch
	}
	sanitized.Output = strings.TrimSpace(configuration.Output)

	sanitized.Projects = make([]ProjectConfiguration, 0, len(configuration.Projects))
	for _, project := range configuration.Projects {
		sanitized.Projects = append(sanitized.Projects, ProjectConfiguration{
			Name:         strings.TrimSpace(project.Name),
			Folder:       strings.TrimSpace(project.Folder),
			RemoteName:   strings.TrimSpace(project.RemoteName),
			SourceBranch: strings.TrimSpace(project.SourceBranch),
			TargetBranch: strings.TrimSpace(project.TargetBranch),
		})
	}
	return sanitized
}

// Validate rejects settings the checker cannot honor.
func (configuration CommandConfiguration) Validate() error {
	if configuration.Concurrency < 1 {
		return fmt.Errorf(negativeConcurrencyTemplateConstant, configuration.Concurrency)
	}
	if _, formatError := ParseOutputFormat(configuration.Output); formatError != nil {
		return formatError
	}
	return nil
}

// CheckerOptions converts the configuration to Checker options.
func (configuration CommandConfiguration) CheckerOptions() Options {
	return Options{
		ValidateBranches: configuration.ValidateBranches,
		VerifyRepository: configuration.VerifyRepository,
		Concurrency:      configuration.Concurrency,
	}
}

// ProjectDescriptors builds descriptors for the configured projects. Relative
// folders resolve against ProjectsFolder and a leading tilde against the home
// directory. Blank remotes and branches inherit the section defaults, and
// branches prefixed with the project remote are split as in SplitRemoteBranch.
func (configuration CommandConfiguration) ProjectDescriptors(homeExpander *pathutils.HomeExpander) ([]RepositoryDescriptor, error) {
	if len(configuration.Projects) == 0 {
		return nil, ErrNoRepositoriesConfigured
	}

	projectsFolder := homeExpander.Expand(configuration.ProjectsFolder)
	descriptors := make([]RepositoryDescriptor, 0, len(configuration.Projects))
	for projectIndex, project := range configuration.Projects {
		projectPath := homeExpander.Expand(project.Folder)
		if len(projectPath) > 0 && !filepath.IsAbs(projectPath) && len(projectsFolder) > 0 {
			projectPath = filepath.Join(projectsFolder, projectPath)
		}

		remoteName := firstNonEmpty(project.RemoteName, configuration.RemoteName)
		descriptor, descriptorError := NewRepositoryDescriptor(
			project.Name,
			projectPath,
			remoteName,
			SplitRemoteBranch(firstNonEmpty(project.SourceBranch, configuration.SourceBranch), remoteName),
			SplitRemoteBranch(firstNonEmpty(project.TargetBranch, configuration.TargetBranch), remoteName),
		)
		if descriptorError != nil {
			return nil, fmt.Errorf(projectDescriptorErrorTemplateConstant, projectIndex+1, project.Name, descriptorError)
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

// FolderDescriptors builds descriptors for discovered folders, all sharing the
// section remote and branches.
func (configuration CommandConfiguration) FolderDescriptors(folders []string) ([]RepositoryDescriptor, error) {
	if len(folders) == 0 {
		return nil, ErrNoRepositoriesConfigured
	}

	descriptors := make([]RepositoryDescriptor, 0, len(folders))
	for folderIndex, folder := range folders {
		descriptor, descriptorError := NewRepositoryDescriptor("", folder, configuration.RemoteName, configuration.SourceBranch, configuration.TargetBranch)
		if descriptorError != nil {
			return nil, fmt.Errorf(projectDescriptorErrorTemplateConstant, folderIndex+1, folder, descriptorError)
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

// SplitRemoteBranch separates a remote-prefixed branch such as origin/main when
// the prefix equals remoteName. Other names, including ones containing slashes
// like feature/login, are returned unchanged.
func SplitRemoteBranch(branch string, remoteName string) string {
	trimmedBranch := strings.TrimSpace(branch)
	remotePrefix := strings.TrimSpace(remoteName) + remoteReferenceSeparatorConstant
	if len(remotePrefix) > len(remoteReferenceSeparatorConstant) && strings.HasPrefix(trimmedBranch, remotePrefix) {
		return strings.TrimPrefix(trimmedBranch, remotePrefix)
	}
	return trimmedBranch
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if len(strings.TrimSpace(value)) > 0 {
			return value
		}
	}
	return ""
}
