package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/mergewatch/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	homeDirectory := filepath.Join(string(filepath.Separator), "home", "reviewer")

	testCases := []struct {
		name          string
		candidatePath string
		expectedPath  string
	}{
		{name: "bare_tilde", candidatePath: "~", expectedPath: homeDirectory},
		{name: "tilde_slash", candidatePath: "~/projects/api", expectedPath: filepath.Join(homeDirectory, "projects", "api")},
		{name: "absolute_path", candidatePath: "/work/api", expectedPath: "/work/api"},
		{name: "relative_path", candidatePath: "api", expectedPath: "api"},
		{name: "other_user", candidatePath: "~someone/api", expectedPath: "~someone/api"},
		{name: "empty", candidatePath: "", expectedPath: ""},
	}

	lookupCount := 0
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		lookupCount++
		return homeDirectory, nil
	})

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidatePath))
		})
	}
	require.Equal(testInstance, 1, lookupCount)
}

func TestHomeExpanderLookupFailure(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/api", expander.Expand("~/api"))

	var nilExpander *pathutils.HomeExpander
	require.Equal(testInstance, "~/api", nilExpander.Expand("~/api"))
}
