package update

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/execshell"
	"github.com/depsentry/depsentry/internal/manifest"
)

const (
	installSubcommandConstant   = "install"
	saveFlagConstant            = "--save"
	saveDevelopmentFlagConstant = "--save-dev"
	saveExactFlagConstant       = "--save-exact"
	forceFlagConstant           = "--force"
	latestTagSuffixConstant     = "@latest"

	// UnknownVersionSentinel marks a package that is not declared in the
	// manifest, so results always carry a displayable version string.
	UnknownVersionSentinel = "unknown"

	// PeerConflictFailureReason is the exact classification the
	// orchestrator matches when deciding whether a forced retry could help.
	PeerConflictFailureReason     = "Peer dependency conflict (use --force to bypass)"
	packageNotFoundFailureReason  = "Package not found in registry"
	permissionDeniedFailureReason = "Permission denied"
	networkFailureReason          = "Network error"
	unknownFailureReason          = "Unknown error"

	peerResolutionMarkerConstant   = "ERESOLVE"
	notFoundStatusMarkerConstant   = "404"
	notFoundTextMarkerConstant     = "Not Found"
	permissionDeniedMarkerConstant = "EACCES"
	timeoutMarkerConstant          = "ETIMEDOUT"
	unresolvedHostMarkerConstant   = "ENOTFOUND"
	errorLogLinePrefixConstant     = "npm ERR!"

	packageNameFieldConstant     = "package"
	previousVersionFieldConstant = "previous_version"
	newVersionFieldConstant      = "new_version"
	failureReasonFieldConstant   = "failure_reason"
)

// Options controls how a package upgrade is performed.
type Options struct {
	ExactVersions bool
	ForceInstall  bool
}

// Result captures the outcome of one package upgrade attempt. NewVersion
// equals PreviousVersion whenever the attempt failed.
type Result struct {
	PackageName     string
	PreviousVersion string
	NewVersion      string
	Success         bool
	FailureReason   string
}

// ProgressCallback receives each completed result together with its
// position in the processed sequence.
type ProgressCallback func(result Result, index int, total int)

// ManifestAccessor exposes the project manifest operations the executor needs.
type ManifestAccessor interface {
	ProjectDirectory() string
	Load() (manifest.Manifest, error)
}

// NpmExecutor runs npm commands and surfaces their captured output.
type NpmExecutor interface {
	ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Executor upgrades packages one at a time through npm install.
type Executor struct {
	npmExecutor NpmExecutor
	manifests   ManifestAccessor
	logger      *zap.Logger
}

// NewExecutor builds an update executor around the supplied collaborators.
func NewExecutor(npmExecutor NpmExecutor, manifests ManifestAccessor, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{npmExecutor: npmExecutor, manifests: manifests, logger: logger}
}

// UpdateOne upgrades a single package to its latest version. The declared
// version is captured before and after the install so the result reports
// the actual manifest transition.
func (executor *Executor) UpdateOne(executionContext context.Context, packageName string, options Options) Result {
	previousVersion := UnknownVersionSentinel
	developmentDependency := false
	if manifestDocument, loadError := executor.manifests.Load(); loadError == nil {
		if declaredVersion, declared := manifestDocument.DeclaredVersion(packageName); declared {
			previousVersion = declaredVersion
		}
		developmentDependency = manifestDocument.IsDevelopmentDependency(packageName)
	}

	installArguments := executor.buildInstallArguments(packageName, developmentDependency, options)
	executionResult, executionError := executor.npmExecutor.ExecuteNpm(executionContext, execshell.CommandDetails{
		Arguments:        installArguments,
		WorkingDirectory: executor.manifests.ProjectDirectory(),
	})

	if executionError != nil {
		failureReason := classifyFailure(collectFailureText(executionResult, executionError))
		executor.logger.Debug("package upgrade failed",
			zap.String(packageNameFieldConstant, packageName),
			zap.String(failureReasonFieldConstant, failureReason),
		)
		return Result{
			PackageName:     packageName,
			PreviousVersion: previousVersion,
			NewVersion:      previousVersion,
			Success:         false,
			FailureReason:   failureReason,
		}
	}

	newVersion := previousVersion
	if manifestDocument, loadError := executor.manifests.Load(); loadError == nil {
		if declaredVersion, declared := manifestDocument.DeclaredVersion(packageName); declared {
			newVersion = declaredVersion
		}
	}

	executor.logger.Debug("package upgrade succeeded",
		zap.String(packageNameFieldConstant, packageName),
		zap.String(previousVersionFieldConstant, previousVersion),
		zap.String(newVersionFieldConstant, newVersion),
	)

	return Result{
		PackageName:     packageName,
		PreviousVersion: previousVersion,
		NewVersion:      newVersion,
		Success:         true,
	}
}

// UpdateMany upgrades packages strictly in sequence. Installs rewrite the
// shared project manifest, so they must never run concurrently. The
// progress callback fires after every completed attempt.
func (executor *Executor) UpdateMany(executionContext context.Context, packageNames []string, options Options, onProgress ProgressCallback) []Result {
	results := make([]Result, 0, len(packageNames))
	for packageIndex, packageName := range packageNames {
		result := executor.UpdateOne(executionContext, packageName, options)
		results = append(results, result)
		if onProgress != nil {
			onProgress(result, packageIndex, len(packageNames))
		}
	}
	return results
}

func (executor *Executor) buildInstallArguments(packageName string, developmentDependency bool, options Options) []string {
	saveFlag := saveFlagConstant
	if developmentDependency {
		saveFlag = saveDevelopmentFlagConstant
	}

	installArguments := []string{installSubcommandConstant, packageName + latestTagSuffixConstant, saveFlag}
	if options.ExactVersions {
		installArguments = append(installArguments, saveExactFlagConstant)
	}
	if options.ForceInstall {
		installArguments = append(installArguments, forceFlagConstant)
	}
	return installArguments
}

func collectFailureText(executionResult execshell.ExecutionResult, executionError error) string {
	failureSegments := []string{executionResult.StandardError, executionResult.StandardOutput}
	executionFailure := execshell.CommandExecutionError{}
	if errors.As(executionError, &executionFailure) {
		failureSegments = append(failureSegments, executionFailure.Error())
	}
	return strings.Join(failureSegments, "\n")
}

// classifyFailure maps captured npm error text onto a short, stable
// failure reason. Markers are checked from most to least specific.
func classifyFailure(failureText string) string {
	switch {
	case strings.Contains(failureText, peerResolutionMarkerConstant):
		return PeerConflictFailureReason
	case strings.Contains(failureText, notFoundStatusMarkerConstant), strings.Contains(failureText, notFoundTextMarkerConstant):
		return packageNotFoundFailureReason
	case strings.Contains(failureText, permissionDeniedMarkerConstant):
		return permissionDeniedFailureReason
	case strings.Contains(failureText, timeoutMarkerConstant), strings.Contains(failureText, unresolvedHostMarkerConstant):
		return networkFailureReason
	}

	for _, outputLine := range strings.Split(failureText, "\n") {
		if !strings.Contains(outputLine, errorLogLinePrefixConstant) {
			continue
		}
		strippedLine := strings.TrimSpace(strings.Replace(outputLine, errorLogLinePrefixConstant, "", 1))
		if len(strippedLine) > 0 {
			return strippedLine
		}
	}

	return unknownFailureReason
}
