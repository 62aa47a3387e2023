package divergence

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how reports are rendered to the output stream.
type OutputFormat string

// Output formats.
const (
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
)

const (
	unsupportedOutputFormatTemplateConstant = "unsupported output format: %s"
	yamlIndentationConstant                 = 2
	missingBranchesJoinSeparatorConstant    = ", "

	upToDateLineTemplateConstant          = "UP TO DATE: %s (%s) %s has no commits missing from %s\n"
	mergeNeededLineTemplateConstant       = "MERGE NEEDED: %s (%s) %s has %d commit(s) missing from %s\n"
	branchMissingLineTemplateConstant     = "BRANCH MISSING: %s (%s) %s\n"
	repositoryMissingLineTemplateConstant = "NOT A REPOSITORY: %s (%s)\n"
	failureLineTemplateConstant           = "%s: %s (%s) %s\n"

	invalidReferenceLabelConstant = "INVALID REFERENCE"
	fetchFailedLabelConstant      = "FETCH FAILED"
	timedOutLabelConstant         = "TIMED OUT"
	unknownFailureLabelConstant   = "FAILED"

	noDivergenceLogMessageConstant       = "branches are in sync"
	divergenceLogMessageConstant         = "source branch has commits missing from target"
	branchMissingLogMessageConstant      = "branch missing on remote"
	repositoryMissingLogMessageConstant  = "path is not a git repository"
	invalidReferenceLogMessageConstant   = "git could not resolve a reference"
	fetchFailedLogMessageConstant        = "fetch failed"
	timedOutLogMessageConstant           = "git command timed out"
	unknownFailureLogMessageConstant     = "divergence check failed"
	commitLogDebugMessageConstant        = "unmerged commits"
	summaryLogMessageConstant            = "divergence check completed"
	sourceBranchFieldNameConstant        = "source_branch"
	targetBranchFieldNameConstant        = "target_branch"
	outcomeFieldNameConstant             = "outcome"
	commitCountFieldNameConstant         = "commit_count"
	missingBranchesFieldNameConstant     = "missing_branches"
	errorTextFieldNameConstant           = "error"
	commitLogFieldNameConstant           = "commit_log"
	repositoryCountFieldNameConstant     = "repositories"
	lineTerminatorTrimCharactersConstant = "\r\n"
)

var outcomeLogMessages = map[OutcomeKind]string{
	OutcomeNoDivergence:       noDivergenceLogMessageConstant,
	OutcomeDivergenceExists:   divergenceLogMessageConstant,
	OutcomeBranchMissing:      branchMissingLogMessageConstant,
	OutcomeRepositoryNotFound: repositoryMissingLogMessageConstant,
	OutcomeInvalidReference:   invalidReferenceLogMessageConstant,
	OutcomeFetchFailed:        fetchFailedLogMessageConstant,
	OutcomeTimedOut:           timedOutLogMessageConstant,
	OutcomeUnknownFailure:     unknownFailureLogMessageConstant,
}

var failureLineLabels = map[OutcomeKind]string{
	OutcomeInvalidReference: invalidReferenceLabelConstant,
	OutcomeFetchFailed:      fetchFailedLabelConstant,
	OutcomeTimedOut:         timedOutLabelConstant,
	OutcomeUnknownFailure:   unknownFailureLabelConstant,
}

// ParseOutputFormat normalizes a configured output format.
func ParseOutputFormat(raw string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", OutputFormatText:
		return OutputFormatText, nil
	case OutputFormatYAML:
		return OutputFormatYAML, nil
	default:
		return "", fmt.Errorf(unsupportedOutputFormatTemplateConstant, raw)
	}
}

// ReportWriter renders repository reports to an output stream and logs each
// verdict at its severity.
type ReportWriter struct {
	output        io.Writer
	logger        *zap.Logger
	format        OutputFormat
	onlyDivergent bool
}

// ReportWriterOption customizes a ReportWriter.
type ReportWriterOption func(*ReportWriter)

// WithOnlyDivergent restricts the rendered output to repositories that need a
// merge. Logs and the summary still cover every repository.
func WithOnlyDivergent(onlyDivergent bool) ReportWriterOption {
	return func(writer *ReportWriter) {
		writer.onlyDivergent = onlyDivergent
	}
}

// NewReportWriter constructs a ReportWriter. A nil logger discards log entries.
func NewReportWriter(output io.Writer, logger *zap.Logger, format OutputFormat, options ...ReportWriterOption) *ReportWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if output == nil {
		output = io.Discard
	}
	writer := &ReportWriter{output: output, logger: logger, format: format}
	for _, option := range options {
		if option != nil {
			option(writer)
		}
	}
	return writer
}

type yamlReportDocument struct {
	Repositories []yamlRepositoryReport `yaml:"repositories"`
}

type yamlRepositoryReport struct {
	Name            string   `yaml:"name"`
	Path            string   `yaml:"path"`
	Remote          string   `yaml:"remote"`
	SourceBranch    string   `yaml:"source_branch"`
	TargetBranch    string   `yaml:"target_branch"`
	Outcome         string   `yaml:"outcome"`
	CommitCount     int      `yaml:"commit_count,omitempty"`
	MissingBranches []string `yaml:"missing_branches,omitempty"`
	Error           string   `yaml:"error,omitempty"`
}

// Write logs and renders the reports in order, then logs the summary.
func (writer *ReportWriter) Write(reports []RepositoryReport) error {
	for _, report := range reports {
		writer.logReport(report)
	}

	renderedReports := writer.selectRenderedReports(reports)
	var renderError error
	switch writer.format {
	case OutputFormatYAML:
		renderError = writer.renderYAML(renderedReports)
	default:
		renderError = writer.renderText(renderedReports)
	}
	if renderError != nil {
		return renderError
	}

	writer.logSummary(reports)
	return nil
}

func (writer *ReportWriter) selectRenderedReports(reports []RepositoryReport) []RepositoryReport {
	if !writer.onlyDivergent {
		return reports
	}
	divergentReports := make([]RepositoryReport, 0, len(reports))
	for _, report := range reports {
		if report.Outcome.Kind == OutcomeDivergenceExists {
			divergentReports = append(divergentReports, report)
		}
	}
	return divergentReports
}

func (writer *ReportWriter) renderText(reports []RepositoryReport) error {
	for _, report := range reports {
		if _, writeError := io.WriteString(writer.output, formatTextLine(report)); writeError != nil {
			return writeError
		}
	}
	return nil
}

func formatTextLine(report RepositoryReport) string {
	descriptor := report.Descriptor
	outcome := report.Outcome
	switch outcome.Kind {
	case OutcomeNoDivergence:
		return fmt.Sprintf(upToDateLineTemplateConstant, descriptor.Name(), descriptor.Path(), descriptor.SourceReference(), descriptor.TargetReference())
	case OutcomeDivergenceExists:
		return fmt.Sprintf(mergeNeededLineTemplateConstant, descriptor.Name(), descriptor.Path(), descriptor.SourceReference(), outcome.CommitCount, descriptor.TargetReference())
	case OutcomeBranchMissing:
		return fmt.Sprintf(branchMissingLineTemplateConstant, descriptor.Name(), descriptor.Path(), strings.Join(outcome.MissingBranches, missingBranchesJoinSeparatorConstant))
	case OutcomeRepositoryNotFound:
		return fmt.Sprintf(repositoryMissingLineTemplateConstant, descriptor.Name(), descriptor.Path())
	default:
		return fmt.Sprintf(failureLineTemplateConstant, failureLineLabels[outcome.Kind], descriptor.Name(), descriptor.Path(), firstLine(outcome.ErrorText))
	}
}

func (writer *ReportWriter) renderYAML(reports []RepositoryReport) error {
	document := yamlReportDocument{Repositories: make([]yamlRepositoryReport, 0, len(reports))}
	for _, report := range reports {
		document.Repositories = append(document.Repositories, yamlRepositoryReport{
			Name:            report.Descriptor.Name(),
			Path:            report.Descriptor.Path(),
			Remote:          report.Descriptor.RemoteName(),
			SourceBranch:    report.Descriptor.SourceBranch(),
			TargetBranch:    report.Descriptor.TargetBranch(),
			Outcome:         string(report.Outcome.Kind),
			CommitCount:     report.Outcome.CommitCount,
			MissingBranches: report.Outcome.MissingBranches,
			Error:           strings.TrimSpace(report.Outcome.ErrorText),
		})
	}

	encoder := yaml.NewEncoder(writer.output)
	encoder.SetIndent(yamlIndentationConstant)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func (writer *ReportWriter) logReport(report RepositoryReport) {
	descriptor := report.Descriptor
	outcome := report.Outcome
	fields := []zap.Field{
		zap.String(repositoryFieldNameConstant, descriptor.Name()),
		zap.String(pathFieldNameConstant, descriptor.Path()),
		zap.String(sourceBranchFieldNameConstant, descriptor.SourceReference()),
		zap.String(targetBranchFieldNameConstant, descriptor.TargetReference()),
		zap.String(outcomeFieldNameConstant, string(outcome.Kind)),
	}
	switch outcome.Kind {
	case OutcomeDivergenceExists:
		fields = append(fields, zap.Int(commitCountFieldNameConstant, outcome.CommitCount))
	case OutcomeBranchMissing:
		fields = append(fields, zap.Strings(missingBranchesFieldNameConstant, outcome.MissingBranches))
	case OutcomeNoDivergence:
	default:
		fields = append(fields, zap.String(errorTextFieldNameConstant, strings.TrimSpace(outcome.ErrorText)))
	}

	message := outcomeLogMessages[outcome.Kind]
	switch outcome.Severity() {
	case SeverityInfo:
		writer.logger.Info(message, fields...)
	case SeverityWarn:
		writer.logger.Warn(message, fields...)
	default:
		writer.logger.Error(message, fields...)
	}

	if outcome.Kind == OutcomeDivergenceExists {
		writer.logger.Debug(
			commitLogDebugMessageConstant,
			zap.String(repositoryFieldNameConstant, descriptor.Name()),
			zap.String(commitLogFieldNameConstant, outcome.CommitLog),
		)
	}
}

func (writer *ReportWriter) logSummary(reports []RepositoryReport) {
	counts := make(map[OutcomeKind]int, len(OutcomeKinds()))
	for _, report := range reports {
		counts[report.Outcome.Kind]++
	}

	fields := []zap.Field{zap.Int(repositoryCountFieldNameConstant, len(reports))}
	for _, kind := range OutcomeKinds() {
		fields = append(fields, zap.Int(string(kind), counts[kind]))
	}
	writer.logger.Info(summaryLogMessageConstant, fields...)
}

func firstLine(text string) string {
	trimmed := strings.TrimSpace(text)
	if newlineIndex := strings.IndexAny(trimmed, lineTerminatorTrimCharactersConstant); newlineIndex >= 0 {
		return trimmed[:newlineIndex]
	}
	return trimmed
}
