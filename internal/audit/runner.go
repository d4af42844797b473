package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/execshell"
)

const (
	auditSubcommandConstant         = "audit"
	jsonOutputFlagConstant          = "--json"
	transitiveVulnerabilityTitle    = "Transitive vulnerability"
	auditReportUnavailableMessage   = "vulnerability report unavailable"
	auditReportUnparsableMessage    = "vulnerability report could not be parsed"
	projectDirectoryFieldConstant   = "project_directory"
	vulnerabilityCountFieldConstant = "vulnerability_count"
)

// NpmExecutor runs npm commands and surfaces their captured output.
type NpmExecutor interface {
	ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

type vulnerabilityViaDocument struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Severity string `json:"severity"`
	Range    string `json:"range"`
}

type vulnerabilityViaEntry struct {
	document *vulnerabilityViaDocument
}

// UnmarshalJSON tolerates the two shapes npm emits inside via arrays: a
// plain package name string or an advisory object.
func (entry *vulnerabilityViaEntry) UnmarshalJSON(payload []byte) error {
	var stringForm string
	if unmarshalError := json.Unmarshal(payload, &stringForm); unmarshalError == nil {
		entry.document = nil
		return nil
	}

	var documentForm vulnerabilityViaDocument
	if unmarshalError := json.Unmarshal(payload, &documentForm); unmarshalError != nil {
		return unmarshalError
	}
	entry.document = &documentForm
	return nil
}

type vulnerabilityDocument struct {
	Name         string                  `json:"name"`
	Severity     string                  `json:"severity"`
	Via          []vulnerabilityViaEntry `json:"via"`
	Range        string                  `json:"range"`
	FixAvailable FixAvailability         `json:"fixAvailable"`
}

type auditReportDocument struct {
	Vulnerabilities map[string]vulnerabilityDocument `json:"vulnerabilities"`
}

// Runner collects vulnerability reports by invoking npm audit.
type Runner struct {
	executor NpmExecutor
	logger   *zap.Logger
}

// NewRunner builds an audit runner around the supplied npm executor.
func NewRunner(executor NpmExecutor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{executor: executor, logger: logger}
}

// Run executes npm audit in the project directory and normalizes the
// report. npm signals findings through its exit code, so output captured
// alongside a non-zero exit is still parsed. A run that produces no
// parsable report yields an empty result rather than an error.
func (runner *Runner) Run(executionContext context.Context, projectDirectory string) Result {
	executionResult, executionError := runner.executor.ExecuteNpm(executionContext, execshell.CommandDetails{
		Arguments:        []string{auditSubcommandConstant, jsonOutputFlagConstant},
		WorkingDirectory: projectDirectory,
	})

	if executionError != nil {
		commandFailure := execshell.CommandFailedError{}
		if !errors.As(executionError, &commandFailure) {
			runner.logger.Debug(auditReportUnavailableMessage,
				zap.String(projectDirectoryFieldConstant, projectDirectory),
				zap.Error(executionError),
			)
			return emptyResult()
		}
		executionResult = commandFailure.Result
	}

	return runner.normalizeReport(projectDirectory, executionResult.StandardOutput)
}

func (runner *Runner) normalizeReport(projectDirectory string, reportPayload string) Result {
	trimmedPayload := strings.TrimSpace(reportPayload)
	if len(trimmedPayload) == 0 {
		return emptyResult()
	}

	var reportDocument auditReportDocument
	if unmarshalError := json.Unmarshal([]byte(trimmedPayload), &reportDocument); unmarshalError != nil {
		runner.logger.Debug(auditReportUnparsableMessage,
			zap.String(projectDirectoryFieldConstant, projectDirectory),
			zap.Error(unmarshalError),
		)
		return emptyResult()
	}

	vulnerabilities := make([]Vulnerability, 0, len(reportDocument.Vulnerabilities))
	for packageName, document := range reportDocument.Vulnerabilities {
		vulnerabilities = append(vulnerabilities, buildVulnerability(packageName, document))
	}
	sortVulnerabilities(vulnerabilities)

	summary := make(map[Severity]int)
	total := 0
	for _, vulnerability := range vulnerabilities {
		total++
		if vulnerability.Severity.Known() {
			summary[vulnerability.Severity]++
		}
	}

	runner.logger.Debug("normalized vulnerability report",
		zap.String(projectDirectoryFieldConstant, projectDirectory),
		zap.Int(vulnerabilityCountFieldConstant, total),
	)

	return Result{Vulnerabilities: vulnerabilities, Summary: summary, Total: total}
}

func buildVulnerability(packageName string, document vulnerabilityDocument) Vulnerability {
	vulnerability := Vulnerability{
		PackageName:   packageName,
		Severity:      Severity(strings.ToLower(strings.TrimSpace(document.Severity))),
		Title:         transitiveVulnerabilityTitle,
		AffectedRange: document.Range,
		Fix:           document.FixAvailable,
	}

	// The first structured via entry wins as a unit; the transitive
	// default title applies only when every entry is a plain string.
	for _, viaEntry := range document.Via {
		if viaEntry.document == nil {
			continue
		}
		vulnerability.Title = viaEntry.document.Title
		vulnerability.AdvisoryURL = viaEntry.document.URL
		if len(vulnerability.AffectedRange) == 0 {
			vulnerability.AffectedRange = viaEntry.document.Range
		}
		break
	}

	return vulnerability
}

// sortVulnerabilities orders findings from most to least severe. Findings
// with the same severity stay alphabetical by package name, which also
// keeps the overall ordering deterministic across runs.
func sortVulnerabilities(vulnerabilities []Vulnerability) {
	sort.Slice(vulnerabilities, func(firstIndex, secondIndex int) bool {
		return vulnerabilities[firstIndex].PackageName < vulnerabilities[secondIndex].PackageName
	})
	sort.SliceStable(vulnerabilities, func(firstIndex, secondIndex int) bool {
		return vulnerabilities[firstIndex].Severity.Rank() < vulnerabilities[secondIndex].Severity.Rank()
	})
}

func emptyResult() Result {
	return Result{Vulnerabilities: []Vulnerability{}, Summary: map[Severity]int{}, Total: 0}
}
