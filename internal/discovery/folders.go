// Package discovery enumerates candidate project folders beneath a projects folder.
package discovery

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	projectsFolderReadErrorTemplateConstant = "unable to read projects folder %s: %w"
	projectsFolderNotDirectoryTemplate      = "projects folder %s is not a directory"
	skippedEntryMessageConstant             = "skipping non-directory entry"
	entryFieldNameConstant                  = "entry"
)

// ProjectFolderDiscoverer lists the immediate subdirectories of a projects folder.
type ProjectFolderDiscoverer struct {
	fileSystem afero.Fs
	logger     *zap.Logger
}

// NewProjectFolderDiscoverer constructs a discoverer. Nil arguments fall back to
// the operating system filesystem and a no-op logger.
func NewProjectFolderDiscoverer(fileSystem afero.Fs, logger *zap.Logger) *ProjectFolderDiscoverer {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectFolderDiscoverer{fileSystem: fileSystem, logger: logger}
}

// DiscoverProjectFolders returns the sorted paths of directories directly under
// projectsFolder. Regular files and other entries are skipped. Nested folders
// are not visited.
func (discoverer *ProjectFolderDiscoverer) DiscoverProjectFolders(projectsFolder string) ([]string, error) {
	isDirectory, statError := afero.IsDir(discoverer.fileSystem, projectsFolder)
	if statError != nil {
		return nil, fmt.Errorf(projectsFolderReadErrorTemplateConstant, projectsFolder, statError)
	}
	if !isDirectory {
		return nil, fmt.Errorf(projectsFolderNotDirectoryTemplate, projectsFolder)
	}

	entries, readError := afero.ReadDir(discoverer.fileSystem, projectsFolder)
	if readError != nil {
		return nil, fmt.Errorf(projectsFolderReadErrorTemplateConstant, projectsFolder, readError)
	}

	folders := make([]string, 0, len(entries))
	for _, entry := range entries {
		entryPath := filepath.Join(projectsFolder, entry.Name())
		if !entry.IsDir() {
			discoverer.logger.Debug(skippedEntryMessageConstant, zap.String(entryFieldNameConstant, entryPath))
			continue
		}
		folders = append(folders, entryPath)
	}

	sort.Strings(folders)
	return folders, nil
}
