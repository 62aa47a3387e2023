package discovery_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/mergewatch/internal/discovery"
)

const (
	projectsFolderPath             = "/work"
	repositoryDirectoryPermissions = 0o755
	regularFilePermissions         = 0o644
)

func TestProjectFolderDiscovererListsImmediateDirectories(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	for _, directory := range []string{"zeta", "alpha/.git", "alpha/nested", "beta"} {
		require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(projectsFolderPath, directory), repositoryDirectoryPermissions))
	}
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(projectsFolderPath, "notes.txt"), []byte("x"), regularFilePermissions))

	observerCore, observedLogs := observer.New(zap.DebugLevel)
	discoverer := discovery.NewProjectFolderDiscoverer(fileSystem, zap.New(observerCore))

	folders, discoveryError := discoverer.DiscoverProjectFolders(projectsFolderPath)
	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, []string{
		filepath.Join(projectsFolderPath, "alpha"),
		filepath.Join(projectsFolderPath, "beta"),
		filepath.Join(projectsFolderPath, "zeta"),
	}, folders)
	require.Equal(testInstance, 1, observedLogs.Len())
}

func TestProjectFolderDiscovererFailures(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, "/work.txt", []byte("x"), regularFilePermissions))
	discoverer := discovery.NewProjectFolderDiscoverer(fileSystem, nil)

	testCases := []struct {
		name string
		path string
	}{
		{name: "missing_folder", path: "/absent"},
		{name: "regular_file", path: "/work.txt"},
	}
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			folders, discoveryError := discoverer.DiscoverProjectFolders(testCase.path)
			require.Error(testInstance, discoveryError)
			require.Nil(testInstance, folders)
		})
	}
}

func TestProjectFolderDiscovererEmptyFolder(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(projectsFolderPath, repositoryDirectoryPermissions))

	folders, discoveryError := discovery.NewProjectFolderDiscoverer(fileSystem, nil).DiscoverProjectFolders(projectsFolderPath)
	require.NoError(testInstance, discoveryError)
	require.Empty(testInstance, folders)
}
