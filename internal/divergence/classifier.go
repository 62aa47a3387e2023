package divergence

import (
	"strings"

	"github.com/temirov/mergewatch/internal/execshell"
)

const (
	notRepositoryIndicatorConstant    = "not a git repository"
	unknownRevisionIndicatorConstant  = "unknown revision"
	badRevisionIndicatorConstant      = "bad revision"
	invalidReferenceIndicatorConstant = "invalid reference"
	commitHeaderPrefixConstant        = "commit "
	lineSeparatorConstant             = "\n"
)

var invalidReferenceIndicators = []string{
	unknownRevisionIndicatorConstant,
	badRevisionIndicatorConstant,
	invalidReferenceIndicatorConstant,
}

// Classifier turns git results into outcomes. Substring matching on git error
// text is case-insensitive and used only where no structured signal exists.
type Classifier struct{}

// ClassifyDiff maps the result of the diff command to an outcome.
func (classifier Classifier) ClassifyDiff(result execshell.CommandResult) Outcome {
	if standardOutput, succeeded := result.StandardOutput(); succeeded {
		if len(strings.TrimSpace(standardOutput)) == 0 {
			return NoDivergence()
		}
		return DivergenceExists(standardOutput, CountCommits(standardOutput))
	}

	standardError, _ := result.StandardError()
	switch {
	case IndicatesMissingRepository(standardError):
		return RepositoryNotFound(standardError)
	case containsAnyFold(standardError, invalidReferenceIndicators):
		return InvalidReference(standardError)
	default:
		return UnknownFailure(standardError)
	}
}

// ClassifyFetchFailure maps a failed fetch result to an outcome.
func (classifier Classifier) ClassifyFetchFailure(result execshell.CommandResult) Outcome {
	standardError, _ := result.StandardError()
	if IndicatesMissingRepository(standardError) {
		return RepositoryNotFound(standardError)
	}
	return FetchFailed(standardError)
}

// IndicatesMissingRepository reports whether git error text says the directory is not a repository.
func IndicatesMissingRepository(standardError string) bool {
	return containsAnyFold(standardError, []string{notRepositoryIndicatorConstant})
}

// CountCommits counts entries in default-format git log output. Output without
// commit headers, such as --oneline, counts one commit per non-empty line.
func CountCommits(commitLog string) int {
	headerCount := 0
	nonEmptyLineCount := 0
	for _, line := range strings.Split(commitLog, lineSeparatorConstant) {
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		nonEmptyLineCount++
		if strings.HasPrefix(line, commitHeaderPrefixConstant) {
			headerCount++
		}
	}
	if headerCount > 0 {
		return headerCount
	}
	return nonEmptyLineCount
}

func containsAnyFold(text string, indicators []string) bool {
	loweredText := strings.ToLower(text)
	for _, indicator := range indicators {
		if strings.Contains(loweredText, indicator) {
			return true
		}
	}
	return false
}
