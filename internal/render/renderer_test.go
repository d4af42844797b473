package render_test

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/depsentry/depsentry/internal/audit"
	"github.com/depsentry/depsentry/internal/outdated"
	"github.com/depsentry/depsentry/internal/registry"
	"github.com/depsentry/depsentry/internal/render"
	"github.com/depsentry/depsentry/internal/update"
)

func newPlainRenderer(testInstance *testing.T) (*render.ConsoleRenderer, *bytes.Buffer) {
	testInstance.Helper()
	previousNoColor := color.NoColor
	color.NoColor = true
	testInstance.Cleanup(func() { color.NoColor = previousNoColor })

	outputBuffer := &bytes.Buffer{}
	return render.NewConsoleRenderer(outputBuffer), outputBuffer
}

func TestAuditSummaryRendersFindingsAndTally(testInstance *testing.T) {
	renderer, outputBuffer := newPlainRenderer(testInstance)

	renderer.AuditSummary(audit.Result{
		Vulnerabilities: []audit.Vulnerability{
			{
				PackageName:   "lodash",
				Severity:      audit.SeverityHigh,
				Title:         "Prototype Pollution",
				AffectedRange: "<4.17.21",
				Fix:           audit.FixAvailability{Available: true},
			},
			{
				PackageName: "tough-cookie",
				Severity:    audit.SeverityModerate,
				Title:       "Cookie smuggling",
				Fix:         audit.FixAvailability{Available: true, PackageName: "tough-cookie", PackageVersion: "4.1.3"},
			},
		},
		Summary: map[audit.Severity]int{audit.SeverityHigh: 1, audit.SeverityModerate: 1},
		Total:   2,
	})

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, "Prototype Pollution")
	require.Contains(testInstance, renderedOutput, "tough-cookie@4.1.3")
	require.Contains(testInstance, renderedOutput, "2 vulnerabilities (1 high, 1 moderate)")
}

func TestAuditSummaryCleanReport(testInstance *testing.T) {
	renderer, outputBuffer := newPlainRenderer(testInstance)

	renderer.AuditSummary(audit.Result{})

	require.Contains(testInstance, outputBuffer.String(), "No known vulnerabilities.")
}

func TestOutdatedSummaryRendersTable(testInstance *testing.T) {
	renderer, outputBuffer := newPlainRenderer(testInstance)

	renderer.OutdatedSummary(outdated.Result{
		Packages: []outdated.Package{
			{Name: "express", Kind: outdated.DependencyKindDirect, CurrentVersion: "4.18.0", WantedVersion: "4.19.2", LatestVersion: "5.0.0"},
		},
		Total: 1,
	})

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, "express")
	require.Contains(testInstance, renderedOutput, "direct")
	require.Contains(testInstance, renderedOutput, "1 outdated packages")
}

func TestDeprecatedAndStaleSections(testInstance *testing.T) {
	renderer, outputBuffer := newPlainRenderer(testInstance)

	renderer.DeprecatedPackages([]registry.Metadata{
		{Name: "request", Deprecated: true, DeprecationMessage: "request has been deprecated"},
	})
	renderer.StalePackages([]registry.Metadata{
		{Name: "left-pad", LastPublishAgeLabel: "8 years ago", IsStale: true},
	})

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, "request has been deprecated")
	require.Contains(testInstance, renderedOutput, "left-pad")
	require.Contains(testInstance, renderedOutput, "8 years ago")
}

func TestEmptySectionsRenderNothing(testInstance *testing.T) {
	renderer, outputBuffer := newPlainRenderer(testInstance)

	renderer.DeprecatedPackages(nil)
	renderer.StalePackages(nil)
	renderer.UpdateSummary(nil)

	require.Empty(testInstance, outputBuffer.String())
}

func TestUpdateProgressAndSummary(testInstance *testing.T) {
	renderer, outputBuffer := newPlainRenderer(testInstance)

	renderer.UpdateCompleted(update.Result{PackageName: "express", PreviousVersion: "4.18.0", NewVersion: "5.0.0", Success: true}, 0, 2)
	renderer.UpdateCompleted(update.Result{PackageName: "storybook", PreviousVersion: "7.0.0", NewVersion: "7.0.0", FailureReason: update.PeerConflictFailureReason}, 1, 2)
	renderer.UpdateSummary([]update.Result{
		{PackageName: "express", PreviousVersion: "4.18.0", NewVersion: "5.0.0", Success: true},
		{PackageName: "storybook", PreviousVersion: "7.0.0", NewVersion: "7.0.0", FailureReason: update.PeerConflictFailureReason},
	})

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, "[1/2] express 4.18.0 -> 5.0.0")
	require.Contains(testInstance, renderedOutput, "[2/2] storybook failed: "+update.PeerConflictFailureReason)
	require.Contains(testInstance, renderedOutput, "updated")
}

func TestFixSummaryRendersCountsAndFailures(testInstance *testing.T) {
	renderer, outputBuffer := newPlainRenderer(testInstance)

	renderer.FixSummary(audit.FixResult{
		Success:                     true,
		AddedPackageCount:           2,
		RemovedPackageCount:         1,
		ChangedPackageCount:         5,
		FixedVulnerabilityCount:     3,
		RemainingVulnerabilityCount: 1,
	})
	renderer.FixSummary(audit.FixResult{Success: false, ErrorMessage: "npm ERR! code ERESOLVE"})

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, "Fixed 3 vulnerabilities, 1 remaining (added 2, removed 1, changed 5 packages)")
	require.Contains(testInstance, renderedOutput, "Vulnerability remediation failed: npm ERR! code ERESOLVE")
}
