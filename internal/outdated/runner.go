package outdated

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
	outdatedSubcommandConstant = "outdated"
	jsonOutputFlagConstant     = "--json"
	// MissingCurrentVersionSentinel marks a declared package that was never
	// installed, so renderers always have a displayable version string.
	MissingCurrentVersionSentinel     = "MISSING"
	outdatedReportUnavailableMessage  = "outdated package report unavailable"
	outdatedReportUnparsableMessage   = "outdated package report could not be parsed"
	projectDirectoryFieldConstant     = "project_directory"
	outdatedPackageCountFieldConstant = "outdated_package_count"
)

// DependencyKind distinguishes runtime dependencies from development ones.
type DependencyKind string

const (
	// DependencyKindDirect marks packages declared under dependencies.
	DependencyKindDirect DependencyKind = "direct"
	// DependencyKindDevelopment marks packages declared under devDependencies.
	DependencyKindDevelopment DependencyKind = "dev"
)

// Package describes one outdated dependency reported by npm outdated.
type Package struct {
	Name           string
	CurrentVersion string
	WantedVersion  string
	LatestVersion  string
	Location       string
	Kind           DependencyKind
}

// Result aggregates the outdated packages discovered by one check.
type Result struct {
	Packages []Package
	Total    int
}

// DependencyClassifier reports whether a package is declared as a
// development dependency in the project manifest.
type DependencyClassifier interface {
	IsDevelopmentDependency(packageName string) bool
}

// NpmExecutor runs npm commands and surfaces their captured output.
type NpmExecutor interface {
	ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

type outdatedPackageDocument struct {
	Current  string `json:"current"`
	Wanted   string `json:"wanted"`
	Latest   string `json:"latest"`
	Location string `json:"location"`
}

// Runner collects outdated package reports by invoking npm outdated.
type Runner struct {
	executor NpmExecutor
	logger   *zap.Logger
}

// NewRunner builds an outdated runner around the supplied npm executor.
func NewRunner(executor NpmExecutor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{executor: executor, logger: logger}
}

// Run executes npm outdated in the project directory and normalizes the
// report. npm exits non-zero whenever outdated packages exist, so output
// captured alongside a non-zero exit is still parsed. Dependency kind
// comes from the project manifest rather than the tool's own
// classification. A run producing no parsable report yields an empty
// result rather than an error.
func (runner *Runner) Run(executionContext context.Context, projectDirectory string, classifier DependencyClassifier) Result {
	executionResult, executionError := runner.executor.ExecuteNpm(executionContext, execshell.CommandDetails{
		Arguments:        []string{outdatedSubcommandConstant, jsonOutputFlagConstant},
		WorkingDirectory: projectDirectory,
	})

	if executionError != nil {
		commandFailure := execshell.CommandFailedError{}
		if !errors.As(executionError, &commandFailure) {
			runner.logger.Debug(outdatedReportUnavailableMessage,
				zap.String(projectDirectoryFieldConstant, projectDirectory),
				zap.Error(executionError),
			)
			return emptyResult()
		}
		executionResult = commandFailure.Result
	}

	return runner.normalizeReport(projectDirectory, executionResult.StandardOutput, classifier)
}

func (runner *Runner) normalizeReport(projectDirectory string, reportPayload string, classifier DependencyClassifier) Result {
	trimmedPayload := strings.TrimSpace(reportPayload)
	if len(trimmedPayload) == 0 {
		return emptyResult()
	}

	var reportDocument map[string]outdatedPackageDocument
	if unmarshalError := json.Unmarshal([]byte(trimmedPayload), &reportDocument); unmarshalError != nil {
		runner.logger.Debug(outdatedReportUnparsableMessage,
			zap.String(projectDirectoryFieldConstant, projectDirectory),
			zap.Error(unmarshalError),
		)
		return emptyResult()
	}

	packages := make([]Package, 0, len(reportDocument))
	for packageName, document := range reportDocument {
		packages = append(packages, buildPackage(packageName, document, classifier))
	}
	sortPackages(packages)

	runner.logger.Debug("normalized outdated package report",
		zap.String(projectDirectoryFieldConstant, projectDirectory),
		zap.Int(outdatedPackageCountFieldConstant, len(packages)),
	)

	return Result{Packages: packages, Total: len(packages)}
}

func buildPackage(packageName string, document outdatedPackageDocument, classifier DependencyClassifier) Package {
	currentVersion := document.Current
	if len(currentVersion) == 0 {
		currentVersion = MissingCurrentVersionSentinel
	}

	dependencyKind := DependencyKindDirect
	if classifier != nil && classifier.IsDevelopmentDependency(packageName) {
		dependencyKind = DependencyKindDevelopment
	}

	return Package{
		Name:           packageName,
		CurrentVersion: currentVersion,
		WantedVersion:  document.Wanted,
		LatestVersion:  document.Latest,
		Location:       document.Location,
		Kind:           dependencyKind,
	}
}

// sortPackages places runtime dependencies before development ones and
// keeps each group alphabetical by package name.
func sortPackages(packages []Package) {
	sort.Slice(packages, func(firstIndex, secondIndex int) bool {
		if packages[firstIndex].Kind != packages[secondIndex].Kind {
			return packages[firstIndex].Kind == DependencyKindDirect
		}
		return packages[firstIndex].Name < packages[secondIndex].Name
	})
}

func emptyResult() Result {
	return Result{Packages: []Package{}, Total: 0}
}
