package update

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/audit"
	"github.com/depsentry/depsentry/internal/outdated"
)

const (
	upToDateNoticeConstant       = "All dependencies are up to date."
	emptySelectionNoticeConstant = "No packages selected; nothing to update."
	forcedRetryQuestionConstant  = "Peer dependency conflicts detected. Retry the failed updates with --force?"
	remediationQuestionConstant  = "Fixable vulnerabilities detected. Run npm audit fix?"
	forcedFixQuestionConstant    = "Remediation hit a dependency conflict. Retry npm audit fix with --force?"

	targetCountFieldConstant = "target_count"
)

// ErrNoPrompterConfigured indicates an interactive flow was requested
// without wiring a prompter or selector.
var ErrNoPrompterConfigured = errors.New("interactive prompter not configured")

// OutdatedDiscoverer lists the outdated packages of a project.
type OutdatedDiscoverer interface {
	Run(executionContext context.Context, projectDirectory string, classifier outdated.DependencyClassifier) outdated.Result
}

// VulnerabilityAuditor collects the current vulnerability report.
type VulnerabilityAuditor interface {
	Run(executionContext context.Context, projectDirectory string) audit.Result
}

// VulnerabilityFixer applies npm audit fix and measures its effect.
type VulnerabilityFixer interface {
	RunFix(executionContext context.Context, projectDirectory string, forced bool) audit.FixResult
}

// PackageUpdater upgrades packages sequentially.
type PackageUpdater interface {
	UpdateMany(executionContext context.Context, packageNames []string, options Options, onProgress ProgressCallback) []Result
}

// Presenter renders orchestration outcomes for the user.
type Presenter interface {
	UpdateCompleted(result Result, index int, total int)
	UpdateSummary(results []Result)
	FixSummary(fixResult audit.FixResult)
	Notice(message string)
}

// OrchestrationOptions captures the caller's choices for one update run.
type OrchestrationOptions struct {
	PackageNames       []string
	UpdateAll          bool
	ExactVersions      bool
	ForceInstall       bool
	FixVulnerabilities bool
	AssumeDefaults     bool
}

// Orchestrator sequences package updates, conditional forced retries on
// peer dependency conflicts, and conditional vulnerability remediation.
type Orchestrator struct {
	updater    PackageUpdater
	discoverer OutdatedDiscoverer
	auditor    VulnerabilityAuditor
	fixer      VulnerabilityFixer
	manifests  ManifestAccessor
	prompter   ConfirmationPrompter
	selector   PackageSelector
	presenter  Presenter
	logger     *zap.Logger
}

// OrchestratorDependencies lists the collaborators an orchestrator needs.
type OrchestratorDependencies struct {
	Updater    PackageUpdater
	Discoverer OutdatedDiscoverer
	Auditor    VulnerabilityAuditor
	Fixer      VulnerabilityFixer
	Manifests  ManifestAccessor
	Prompter   ConfirmationPrompter
	Selector   PackageSelector
	Presenter  Presenter
	Logger     *zap.Logger
}

// NewOrchestrator builds an orchestrator from the supplied dependencies.
func NewOrchestrator(dependencies OrchestratorDependencies) *Orchestrator {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		updater:    dependencies.Updater,
		discoverer: dependencies.Discoverer,
		auditor:    dependencies.Auditor,
		fixer:      dependencies.Fixer,
		manifests:  dependencies.Manifests,
		prompter:   dependencies.Prompter,
		selector:   dependencies.Selector,
		presenter:  dependencies.Presenter,
		logger:     logger,
	}
}

// Run drives one update invocation from target resolution through the
// optional vulnerability remediation. The only fatal condition is an
// unreadable project manifest; every other failure is reported through
// the presenter as per-package data.
func (orchestrator *Orchestrator) Run(executionContext context.Context, options OrchestrationOptions) error {
	projectDirectory := orchestrator.manifests.ProjectDirectory()

	// A bare fix request bypasses discovery, selection, and updating.
	if options.FixVulnerabilities && len(options.PackageNames) == 0 && !options.UpdateAll {
		orchestrator.runFixFlow(executionContext, projectDirectory, options.ForceInstall, options)
		return nil
	}

	manifestDocument, loadError := orchestrator.manifests.Load()
	if loadError != nil {
		return loadError
	}

	targetNames := append([]string{}, options.PackageNames...)
	if len(targetNames) == 0 {
		discovered := orchestrator.discoverer.Run(executionContext, projectDirectory, manifestDocument)
		if discovered.Total == 0 {
			orchestrator.presenter.Notice(upToDateNoticeConstant)
			orchestrator.runPostUpdateAuditCheck(executionContext, projectDirectory, options, options.ForceInstall)
			return nil
		}

		if options.UpdateAll {
			for _, outdatedPackage := range discovered.Packages {
				targetNames = append(targetNames, outdatedPackage.Name)
			}
		} else {
			selectedNames, selectionError := orchestrator.selectTargets(discovered.Packages, options)
			if selectionError != nil {
				return selectionError
			}
			if len(selectedNames) == 0 {
				orchestrator.presenter.Notice(emptySelectionNoticeConstant)
				return nil
			}
			targetNames = selectedNames
		}
	}

	orchestrator.logger.Debug("updating packages", zap.Int(targetCountFieldConstant, len(targetNames)))

	updateOptions := Options{ExactVersions: options.ExactVersions, ForceInstall: options.ForceInstall}
	results := orchestrator.updater.UpdateMany(executionContext, targetNames, updateOptions, orchestrator.presenter.UpdateCompleted)
	orchestrator.presenter.UpdateSummary(results)

	activeForce := options.ForceInstall
	conflictedNames := peerConflictedPackageNames(results)
	if len(conflictedNames) > 0 && !options.ForceInstall {
		if orchestrator.confirm(options, forcedRetryQuestionConstant, true) {
			forcedOptions := Options{ExactVersions: options.ExactVersions, ForceInstall: true}
			retryResults := orchestrator.updater.UpdateMany(executionContext, conflictedNames, forcedOptions, orchestrator.presenter.UpdateCompleted)
			orchestrator.presenter.UpdateSummary(retryResults)
			activeForce = true
		}
	}

	orchestrator.runPostUpdateAuditCheck(executionContext, projectDirectory, options, activeForce)
	return nil
}

func (orchestrator *Orchestrator) selectTargets(outdatedPackages []outdated.Package, options OrchestrationOptions) ([]string, error) {
	preselectedNames := PreselectSafeUpgrades(outdatedPackages)
	if options.AssumeDefaults {
		return preselectedNames, nil
	}
	if orchestrator.selector == nil {
		return nil, ErrNoPrompterConfigured
	}

	selectedNames, selectionError := orchestrator.selector.SelectPackages(outdatedPackages, preselectedNames)
	if selectionError != nil {
		// Cancelled selection means nothing was chosen.
		return []string{}, nil
	}
	return selectedNames, nil
}

func (orchestrator *Orchestrator) runPostUpdateAuditCheck(executionContext context.Context, projectDirectory string, options OrchestrationOptions, activeForce bool) {
	if options.FixVulnerabilities {
		orchestrator.runFixFlow(executionContext, projectDirectory, activeForce, options)
		return
	}

	auditResult := orchestrator.auditor.Run(executionContext, projectDirectory)
	if auditResult.Total == 0 || !anyFixAvailable(auditResult) {
		return
	}
	if !orchestrator.confirm(options, remediationQuestionConstant, true) {
		return
	}
	orchestrator.runFixFlow(executionContext, projectDirectory, activeForce, options)
}

func (orchestrator *Orchestrator) runFixFlow(executionContext context.Context, projectDirectory string, forced bool, options OrchestrationOptions) {
	fixResult := orchestrator.fixer.RunFix(executionContext, projectDirectory, forced)
	orchestrator.presenter.FixSummary(fixResult)

	if !fixResult.RequiresForcedRetry || forced {
		return
	}
	if !orchestrator.confirm(options, forcedFixQuestionConstant, false) {
		return
	}

	retryResult := orchestrator.fixer.RunFix(executionContext, projectDirectory, true)
	orchestrator.presenter.FixSummary(retryResult)
}

// confirm resolves a yes/no decision. With AssumeDefaults the default
// answer wins without prompting; a cancelled prompt counts as declined.
func (orchestrator *Orchestrator) confirm(options OrchestrationOptions, question string, defaultAnswer bool) bool {
	if options.AssumeDefaults {
		return defaultAnswer
	}
	if orchestrator.prompter == nil {
		return false
	}
	confirmed, promptError := orchestrator.prompter.Confirm(question, defaultAnswer)
	if promptError != nil {
		return false
	}
	return confirmed
}

func peerConflictedPackageNames(results []Result) []string {
	conflictedNames := make([]string, 0, len(results))
	for _, result := range results {
		if !result.Success && result.FailureReason == PeerConflictFailureReason {
			conflictedNames = append(conflictedNames, result.PackageName)
		}
	}
	return conflictedNames
}

func anyFixAvailable(auditResult audit.Result) bool {
	for _, vulnerability := range auditResult.Vulnerabilities {
		if vulnerability.Fix.Available {
			return true
		}
	}
	return false
}
