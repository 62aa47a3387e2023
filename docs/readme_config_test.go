package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/mergewatch/internal/divergence"
	"github.com/temirov/mergewatch/internal/utils"
	pathutils "github.com/temirov/mergewatch/internal/utils/path"
)

const (
	readmeFileNameConstant           = "README.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	parentDirectoryReferenceConstant = ".."
	missingHeaderMessageConstant     = "README example missing config header marker"
	missingStartFenceMessageConstant = "README example missing yaml fence start"
	missingEndFenceMessageConstant   = "README example missing yaml fence end"
)

type readmeConfiguration struct {
	Common struct {
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"common"`
	Check divergence.CommandConfiguration `mapstructure:"check"`
}

func TestReadmeConfigurationLoads(testInstance *testing.T) {
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	readmePath := filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant)
	contentBytes, readError := os.ReadFile(readmePath)
	require.NoError(testInstance, readError)

	contentText := string(contentBytes)
	headerIndex := strings.Index(contentText, configHeaderMarkerConstant)
	require.NotEqual(testInstance, -1, headerIndex, missingHeaderMessageConstant)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	fenceEndRelativeIndex := strings.Index(contentText[headerIndex:], yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)

	snippetContent := strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : headerIndex+fenceEndRelativeIndex])

	configurationPath := filepath.Join(testInstance.TempDir(), "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(snippetContent), 0o600))

	loader := utils.NewConfigurationLoader("config", "MERGEWATCHREADME", nil)
	loadedConfiguration := readmeConfiguration{}
	_, loadError := loader.LoadConfiguration(configurationPath, divergence.DefaultConfigurationValues("check"), &loadedConfiguration)
	require.NoError(testInstance, loadError)

	checkConfiguration := loadedConfiguration.Check.Sanitize()
	require.NoError(testInstance, checkConfiguration.Validate())
	require.Equal(testInstance, 2*time.Minute, checkConfiguration.CommandTimeout)
	require.True(testInstance, checkConfiguration.ValidateBranches)

	homeExpander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return "/home/dev", nil })
	descriptors, descriptorsError := checkConfiguration.ProjectDescriptors(homeExpander)
	require.NoError(testInstance, descriptorsError)
	require.Len(testInstance, descriptors, 2)
	require.Equal(testInstance, "/home/dev/work/api", descriptors[0].Path())
	require.Equal(testInstance, "origin/develop", descriptors[0].SourceReference())
	require.Equal(testInstance, "upstream/stable", descriptors[1].TargetReference())
}
