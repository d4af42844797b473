package update_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/audit"
	"github.com/depsentry/depsentry/internal/manifest"
	"github.com/depsentry/depsentry/internal/outdated"
	"github.com/depsentry/depsentry/internal/update"
)

type recordedUpdateBatch struct {
	packageNames []string
	options      update.Options
}

type stubPackageUpdater struct {
	resultsByBatch  [][]update.Result
	recordedBatches []recordedUpdateBatch
}

func (updater *stubPackageUpdater) UpdateMany(executionContext context.Context, packageNames []string, options update.Options, onProgress update.ProgressCallback) []update.Result {
	batchIndex := len(updater.recordedBatches)
	updater.recordedBatches = append(updater.recordedBatches, recordedUpdateBatch{
		packageNames: append([]string{}, packageNames...),
		options:      options,
	})

	var results []update.Result
	if batchIndex < len(updater.resultsByBatch) {
		results = updater.resultsByBatch[batchIndex]
	}
	for resultIndex, result := range results {
		if onProgress != nil {
			onProgress(result, resultIndex, len(results))
		}
	}
	return results
}

type stubDiscoverer struct {
	result outdated.Result
	calls  int
}

func (discoverer *stubDiscoverer) Run(executionContext context.Context, projectDirectory string, classifier outdated.DependencyClassifier) outdated.Result {
	discoverer.calls++
	return discoverer.result
}

type stubAuditor struct {
	result audit.Result
	calls  int
}

func (auditor *stubAuditor) Run(executionContext context.Context, projectDirectory string) audit.Result {
	auditor.calls++
	return auditor.result
}

type stubFixer struct {
	resultsByCall []audit.FixResult
	recordedForce []bool
}

func (fixer *stubFixer) RunFix(executionContext context.Context, projectDirectory string, forced bool) audit.FixResult {
	callIndex := len(fixer.recordedForce)
	fixer.recordedForce = append(fixer.recordedForce, forced)
	if callIndex < len(fixer.resultsByCall) {
		return fixer.resultsByCall[callIndex]
	}
	return audit.FixResult{Success: true}
}

type stubPrompter struct {
	answers           []bool
	promptError       error
	recordedQuestions []string
	recordedDefaults  []bool
}

func (prompter *stubPrompter) Confirm(question string, defaultAnswer bool) (bool, error) {
	prompter.recordedQuestions = append(prompter.recordedQuestions, question)
	prompter.recordedDefaults = append(prompter.recordedDefaults, defaultAnswer)
	if prompter.promptError != nil {
		return false, prompter.promptError
	}
	answerIndex := len(prompter.recordedQuestions) - 1
	if answerIndex < len(prompter.answers) {
		return prompter.answers[answerIndex], nil
	}
	return defaultAnswer, nil
}

type stubSelector struct {
	selection           []string
	selectionError      error
	recordedPreselected []string
	calls               int
}

func (selector *stubSelector) SelectPackages(outdatedPackages []outdated.Package, preselectedNames []string) ([]string, error) {
	selector.calls++
	selector.recordedPreselected = append([]string{}, preselectedNames...)
	return selector.selection, selector.selectionError
}

type stubPresenter struct {
	completedResults []update.Result
	summaries        [][]update.Result
	fixSummaries     []audit.FixResult
	notices          []string
}

func (presenter *stubPresenter) UpdateCompleted(result update.Result, index int, total int) {
	presenter.completedResults = append(presenter.completedResults, result)
}

func (presenter *stubPresenter) UpdateSummary(results []update.Result) {
	presenter.summaries = append(presenter.summaries, results)
}

func (presenter *stubPresenter) FixSummary(fixResult audit.FixResult) {
	presenter.fixSummaries = append(presenter.fixSummaries, fixResult)
}

func (presenter *stubPresenter) Notice(message string) {
	presenter.notices = append(presenter.notices, message)
}

type orchestrationFixture struct {
	updater    *stubPackageUpdater
	discoverer *stubDiscoverer
	auditor    *stubAuditor
	fixer      *stubFixer
	prompter   *stubPrompter
	selector   *stubSelector
	presenter  *stubPresenter
	manifests  *stubManifestAccessor
}

func newOrchestrationFixture() *orchestrationFixture {
	return &orchestrationFixture{
		updater:    &stubPackageUpdater{},
		discoverer: &stubDiscoverer{},
		auditor:    &stubAuditor{},
		fixer:      &stubFixer{},
		prompter:   &stubPrompter{},
		selector:   &stubSelector{},
		presenter:  &stubPresenter{},
		manifests:  &stubManifestAccessor{documents: []manifest.Manifest{{}}},
	}
}

func (fixture *orchestrationFixture) orchestrator() *update.Orchestrator {
	return update.NewOrchestrator(update.OrchestratorDependencies{
		Updater:    fixture.updater,
		Discoverer: fixture.discoverer,
		Auditor:    fixture.auditor,
		Fixer:      fixture.fixer,
		Manifests:  fixture.manifests,
		Prompter:   fixture.prompter,
		Selector:   fixture.selector,
		Presenter:  fixture.presenter,
		Logger:     zap.NewNop(),
	})
}

func TestOrchestratorExplicitPackagesSkipDiscovery(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.updater.resultsByBatch = [][]update.Result{
		{{PackageName: "express", PreviousVersion: "4.18.0", NewVersion: "5.0.0", Success: true}},
	}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		PackageNames: []string{"express"},
	})

	require.NoError(testInstance, runError)
	require.Zero(testInstance, fixture.discoverer.calls)
	require.Len(testInstance, fixture.updater.recordedBatches, 1)
	require.Equal(testInstance, []string{"express"}, fixture.updater.recordedBatches[0].packageNames)
	require.Equal(testInstance, 1, fixture.auditor.calls)
}

func TestOrchestratorPeerConflictRetriesWithForce(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.updater.resultsByBatch = [][]update.Result{
		{
			{PackageName: "express", PreviousVersion: "4.18.0", NewVersion: "5.0.0", Success: true},
			{PackageName: "storybook", PreviousVersion: "7.0.0", NewVersion: "7.0.0", Success: false, FailureReason: update.PeerConflictFailureReason},
		},
		{
			{PackageName: "storybook", PreviousVersion: "7.0.0", NewVersion: "8.0.0", Success: true},
		},
	}
	fixture.prompter.answers = []bool{true}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		PackageNames: []string{"express", "storybook"},
	})

	require.NoError(testInstance, runError)
	require.Len(testInstance, fixture.updater.recordedBatches, 2)
	require.Equal(testInstance, []string{"storybook"}, fixture.updater.recordedBatches[1].packageNames)
	require.False(testInstance, fixture.updater.recordedBatches[0].options.ForceInstall)
	require.True(testInstance, fixture.updater.recordedBatches[1].options.ForceInstall)
	require.True(testInstance, fixture.prompter.recordedDefaults[0])
}

func TestOrchestratorCancelledRetryPromptSkipsRetry(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.updater.resultsByBatch = [][]update.Result{
		{{PackageName: "storybook", Success: false, FailureReason: update.PeerConflictFailureReason}},
	}
	fixture.prompter.promptError = errors.New("interrupted")

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		PackageNames: []string{"storybook"},
	})

	require.NoError(testInstance, runError)
	require.Len(testInstance, fixture.updater.recordedBatches, 1)
}

func TestOrchestratorForceAlreadyActiveSkipsRetryPrompt(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.updater.resultsByBatch = [][]update.Result{
		{{PackageName: "storybook", Success: false, FailureReason: update.PeerConflictFailureReason}},
	}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		PackageNames: []string{"storybook"},
		ForceInstall: true,
	})

	require.NoError(testInstance, runError)
	require.Len(testInstance, fixture.updater.recordedBatches, 1)
	require.Empty(testInstance, fixture.prompter.recordedQuestions)
}

func TestOrchestratorDiscoverySelectionPreselectsMinorBumps(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.discoverer.result = outdated.Result{
		Packages: []outdated.Package{
			{Name: "express", CurrentVersion: "4.18.0", LatestVersion: "5.0.0", Kind: outdated.DependencyKindDirect},
			{Name: "lodash", CurrentVersion: "4.17.0", LatestVersion: "4.17.21", Kind: outdated.DependencyKindDirect},
		},
		Total: 2,
	}
	fixture.selector.selection = []string{"lodash"}
	fixture.updater.resultsByBatch = [][]update.Result{
		{{PackageName: "lodash", Success: true}},
	}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{})

	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, fixture.selector.calls)
	require.Equal(testInstance, []string{"lodash"}, fixture.selector.recordedPreselected)
	require.Equal(testInstance, []string{"lodash"}, fixture.updater.recordedBatches[0].packageNames)
}

func TestOrchestratorEmptySelectionTerminatesWithoutUpdating(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.discoverer.result = outdated.Result{
		Packages: []outdated.Package{{Name: "express", CurrentVersion: "4.18.0", LatestVersion: "5.0.0"}},
		Total:    1,
	}
	fixture.selector.selection = []string{}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{})

	require.NoError(testInstance, runError)
	require.Empty(testInstance, fixture.updater.recordedBatches)
	require.Zero(testInstance, fixture.auditor.calls)
	require.NotEmpty(testInstance, fixture.presenter.notices)
}

func TestOrchestratorNothingOutdatedStillRunsAuditCheck(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.auditor.result = audit.Result{
		Vulnerabilities: []audit.Vulnerability{
			{PackageName: "lodash", Severity: audit.SeverityHigh, Fix: audit.FixAvailability{Available: true}},
		},
		Total: 1,
	}
	fixture.prompter.answers = []bool{true}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{})

	require.NoError(testInstance, runError)
	require.Empty(testInstance, fixture.updater.recordedBatches)
	require.Equal(testInstance, 1, fixture.auditor.calls)
	require.Equal(testInstance, []bool{false}, fixture.fixer.recordedForce)
	require.NotEmpty(testInstance, fixture.presenter.notices)
}

func TestOrchestratorNoFixableVulnerabilitiesSkipsRemediationPrompt(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.updater.resultsByBatch = [][]update.Result{
		{{PackageName: "express", Success: true}},
	}
	fixture.auditor.result = audit.Result{
		Vulnerabilities: []audit.Vulnerability{
			{PackageName: "lodash", Severity: audit.SeverityLow, Fix: audit.FixAvailability{Available: false}},
		},
		Total: 1,
	}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		PackageNames: []string{"express"},
	})

	require.NoError(testInstance, runError)
	require.Empty(testInstance, fixture.prompter.recordedQuestions)
	require.Empty(testInstance, fixture.fixer.recordedForce)
}

func TestOrchestratorFixOnlyEntryPointBypassesUpdating(testInstance *testing.T) {
	fixture := newOrchestrationFixture()

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		FixVulnerabilities: true,
	})

	require.NoError(testInstance, runError)
	require.Zero(testInstance, fixture.discoverer.calls)
	require.Zero(testInstance, fixture.auditor.calls)
	require.Empty(testInstance, fixture.updater.recordedBatches)
	require.Equal(testInstance, []bool{false}, fixture.fixer.recordedForce)
	require.Len(testInstance, fixture.presenter.fixSummaries, 1)
}

func TestOrchestratorFixRetryPromptDefaultsToDecline(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.fixer.resultsByCall = []audit.FixResult{
		{Success: false, RequiresForcedRetry: true, ErrorMessage: "npm ERR! code ERESOLVE"},
		{Success: true},
	}
	fixture.prompter.answers = []bool{true}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		FixVulnerabilities: true,
	})

	require.NoError(testInstance, runError)
	require.Equal(testInstance, []bool{false, true}, fixture.fixer.recordedForce)
	require.Len(testInstance, fixture.prompter.recordedDefaults, 1)
	require.False(testInstance, fixture.prompter.recordedDefaults[0])
}

func TestOrchestratorAssumeDefaultsSkipsPromptsAndKeepsFixRetryOff(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.fixer.resultsByCall = []audit.FixResult{
		{Success: false, RequiresForcedRetry: true, ErrorMessage: "npm ERR! code ERESOLVE"},
	}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		FixVulnerabilities: true,
		AssumeDefaults:     true,
	})

	require.NoError(testInstance, runError)
	require.Empty(testInstance, fixture.prompter.recordedQuestions)
	require.Equal(testInstance, []bool{false}, fixture.fixer.recordedForce)
}

func TestOrchestratorUnreadableManifestIsFatal(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.manifests.loadError = errors.New("unable to read project manifest")

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{
		PackageNames: []string{"express"},
	})

	require.Error(testInstance, runError)
	require.Empty(testInstance, fixture.updater.recordedBatches)
}

func TestOrchestratorUpdateAllTargetsEveryDiscoveredPackage(testInstance *testing.T) {
	fixture := newOrchestrationFixture()
	fixture.discoverer.result = outdated.Result{
		Packages: []outdated.Package{
			{Name: "express", CurrentVersion: "4.18.0", LatestVersion: "5.0.0"},
			{Name: "lodash", CurrentVersion: "4.17.0", LatestVersion: "4.17.21"},
		},
		Total: 2,
	}
	fixture.updater.resultsByBatch = [][]update.Result{
		{{PackageName: "express", Success: true}, {PackageName: "lodash", Success: true}},
	}

	runError := fixture.orchestrator().Run(context.Background(), update.OrchestrationOptions{UpdateAll: true})

	require.NoError(testInstance, runError)
	require.Zero(testInstance, fixture.selector.calls)
	require.Equal(testInstance, []string{"express", "lodash"}, fixture.updater.recordedBatches[0].packageNames)
	require.Len(testInstance, fixture.presenter.completedResults, 2)
}
