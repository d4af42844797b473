package audit

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/execshell"
)

const (
	fixSubcommandConstant             = "fix"
	forceFlagConstant                 = "--force"
	peerResolutionErrorMarkerConstant = "ERESOLVE"
	remediationFailedMessageConstant  = "vulnerability remediation could not run"
	addedCountFieldConstant           = "added"
	removedCountFieldConstant         = "removed"
	changedCountFieldConstant         = "changed"
	fixedCountFieldConstant           = "fixed"
	remainingCountFieldConstant       = "remaining"
)

var (
	addedPackagesPattern   = regexp.MustCompile(`added (\d+)`)
	removedPackagesPattern = regexp.MustCompile(`removed (\d+)`)
	changedPackagesPattern = regexp.MustCompile(`changed (\d+)`)
)

// Fixer applies npm audit fix and measures its effect by auditing before
// and after the remediation attempt.
type Fixer struct {
	executor NpmExecutor
	runner   *Runner
	logger   *zap.Logger
}

// NewFixer builds a fixer around the supplied npm executor.
func NewFixer(executor NpmExecutor, runner *Runner, logger *zap.Logger) *Fixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fixer{executor: executor, runner: runner, logger: logger}
}

// RunFix audits the project, applies npm audit fix, and audits again to
// report how many vulnerabilities the remediation removed. When forced is
// true the fix runs with --force, allowing npm to install breaking
// versions of direct dependencies.
func (fixer *Fixer) RunFix(executionContext context.Context, projectDirectory string, forced bool) FixResult {
	beforeResult := fixer.runner.Run(executionContext, projectDirectory)

	fixArguments := []string{auditSubcommandConstant, fixSubcommandConstant}
	if forced {
		fixArguments = append(fixArguments, forceFlagConstant)
	}

	executionResult, executionError := fixer.executor.ExecuteNpm(executionContext, execshell.CommandDetails{
		Arguments:        fixArguments,
		WorkingDirectory: projectDirectory,
	})

	if executionError != nil {
		commandFailure := execshell.CommandFailedError{}
		if !errors.As(executionError, &commandFailure) {
			fixer.logger.Debug(remediationFailedMessageConstant,
				zap.String(projectDirectoryFieldConstant, projectDirectory),
				zap.Error(executionError),
			)
			return FixResult{
				Success:                     false,
				RemainingVulnerabilityCount: beforeResult.Total,
				ErrorMessage:                executionError.Error(),
			}
		}
		executionResult = commandFailure.Result
	}

	combinedOutput := executionResult.StandardOutput + "\n" + executionResult.StandardError
	afterResult := fixer.runner.Run(executionContext, projectDirectory)

	fixedCount := beforeResult.Total - afterResult.Total
	if fixedCount < 0 {
		fixedCount = 0
	}

	fixResult := FixResult{
		Success:                     executionError == nil,
		AddedPackageCount:           extractCount(addedPackagesPattern, combinedOutput),
		RemovedPackageCount:         extractCount(removedPackagesPattern, combinedOutput),
		ChangedPackageCount:         extractCount(changedPackagesPattern, combinedOutput),
		FixedVulnerabilityCount:     fixedCount,
		RemainingVulnerabilityCount: afterResult.Total,
	}

	if executionError != nil {
		fixResult.ErrorMessage = strings.TrimSpace(executionResult.StandardError)
		if !forced && strings.Contains(combinedOutput, peerResolutionErrorMarkerConstant) {
			fixResult.RequiresForcedRetry = true
		}
	}

	fixer.logger.Debug("vulnerability remediation finished",
		zap.String(projectDirectoryFieldConstant, projectDirectory),
		zap.Int(addedCountFieldConstant, fixResult.AddedPackageCount),
		zap.Int(removedCountFieldConstant, fixResult.RemovedPackageCount),
		zap.Int(changedCountFieldConstant, fixResult.ChangedPackageCount),
		zap.Int(fixedCountFieldConstant, fixResult.FixedVulnerabilityCount),
		zap.Int(remainingCountFieldConstant, fixResult.RemainingVulnerabilityCount),
	)

	return fixResult
}

func extractCount(pattern *regexp.Regexp, combinedOutput string) int {
	match := pattern.FindStringSubmatch(combinedOutput)
	if len(match) < 2 {
		return 0
	}
	parsedCount, parseError := strconv.Atoi(match[1])
	if parseError != nil {
		return 0
	}
	return parsedCount
}
