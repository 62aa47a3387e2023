package divergence

// OutcomeKind is the terminal verdict of one repository check.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeNoDivergence       OutcomeKind = "no_divergence"
	OutcomeDivergenceExists   OutcomeKind = "divergence_exists"
	OutcomeRepositoryNotFound OutcomeKind = "repository_not_found"
	OutcomeBranchMissing      OutcomeKind = "branch_missing"
	OutcomeInvalidReference   OutcomeKind = "invalid_reference"
	OutcomeFetchFailed        OutcomeKind = "fetch_failed"
	OutcomeTimedOut           OutcomeKind = "timed_out"
	OutcomeUnknownFailure     OutcomeKind = "unknown_failure"
)

// Severity ranks outcomes for logging.
type Severity string

// Severities.
const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// OutcomeKinds lists every kind in reporting order.
func OutcomeKinds() []OutcomeKind {
	return []OutcomeKind{
		OutcomeNoDivergence,
		OutcomeDivergenceExists,
		OutcomeBranchMissing,
		OutcomeRepositoryNotFound,
		OutcomeInvalidReference,
		OutcomeFetchFailed,
		OutcomeTimedOut,
		OutcomeUnknownFailure,
	}
}

// Severity maps the kind to its logging severity.
func (kind OutcomeKind) Severity() Severity {
	switch kind {
	case OutcomeNoDivergence, OutcomeDivergenceExists:
		return SeverityInfo
	case OutcomeBranchMissing, OutcomeRepositoryNotFound, OutcomeInvalidReference:
		return SeverityWarn
	default:
		return SeverityError
	}
}

// Outcome is the classification of one repository. Only the fields relevant
// to Kind are populated.
type Outcome struct {
	Kind            OutcomeKind
	CommitCount     int
	CommitLog       string
	MissingBranches []string
	ErrorText       string
}

// Severity reports the logging severity of the outcome.
func (outcome Outcome) Severity() Severity {
	return outcome.Kind.Severity()
}

// NoDivergence reports a source branch fully contained in the target.
func NoDivergence() Outcome {
	return Outcome{Kind: OutcomeNoDivergence}
}

// DivergenceExists reports unmerged commits together with the raw log.
func DivergenceExists(commitLog string, commitCount int) Outcome {
	return Outcome{Kind: OutcomeDivergenceExists, CommitLog: commitLog, CommitCount: commitCount}
}

// RepositoryNotFound reports a path that is not inside a git repository.
func RepositoryNotFound(errorText string) Outcome {
	return Outcome{Kind: OutcomeRepositoryNotFound, ErrorText: errorText}
}

// BranchMissing reports remote-tracking references that do not exist.
func BranchMissing(missingBranches ...string) Outcome {
	return Outcome{Kind: OutcomeBranchMissing, MissingBranches: append([]string{}, missingBranches...)}
}

// InvalidReference reports a diff rejected because a revision could not be resolved.
func InvalidReference(errorText string) Outcome {
	return Outcome{Kind: OutcomeInvalidReference, ErrorText: errorText}
}

// FetchFailed reports a fetch that did not complete.
func FetchFailed(errorText string) Outcome {
	return Outcome{Kind: OutcomeFetchFailed, ErrorText: errorText}
}

// TimedOut reports an invocation that exceeded the command timeout.
func TimedOut(errorText string) Outcome {
	return Outcome{Kind: OutcomeTimedOut, ErrorText: errorText}
}

// UnknownFailure reports any failure the classifier does not recognize.
func UnknownFailure(errorText string) Outcome {
	return Outcome{Kind: OutcomeUnknownFailure, ErrorText: errorText}
}
