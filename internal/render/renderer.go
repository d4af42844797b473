package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/depsentry/depsentry/internal/audit"
	"github.com/depsentry/depsentry/internal/outdated"
	"github.com/depsentry/depsentry/internal/registry"
	"github.com/depsentry/depsentry/internal/update"
)

const (
	tableMinimumWidthConstant = 0
	tableTabWidthConstant     = 4
	tablePaddingConstant      = 2
	tablePaddingCharacter     = ' '

	vulnerabilityTableHeaderConstant = "SEVERITY\tPACKAGE\tTITLE\tRANGE\tFIX\n"
	vulnerabilityRowTemplateConstant = "%s\t%s\t%s\t%s\t%s\n"
	outdatedTableHeaderConstant      = "PACKAGE\tKIND\tCURRENT\tWANTED\tLATEST\n"
	outdatedRowTemplateConstant      = "%s\t%s\t%s\t%s\t%s\n"
	updateTableHeaderConstant        = "PACKAGE\tFROM\tTO\tSTATUS\n"
	updateRowTemplateConstant        = "%s\t%s\t%s\t%s\n"
	deprecatedRowTemplateConstant    = "%s\t%s\n"
	staleRowTemplateConstant         = "%s\tlast publish %s\n"

	updateProgressTemplateConstant = "[%d/%d] %s %s -> %s\n"
	updateFailureTemplateConstant  = "[%d/%d] %s failed: %s\n"

	noVulnerabilitiesMessageConstant   = "No known vulnerabilities."
	vulnerabilityCountTemplateConstant = "%d vulnerabilities (%s)"
	severityCountTemplateConstant      = "%d %s"
	noOutdatedMessageConstant          = "All dependencies are current."
	outdatedCountTemplateConstant      = "%d outdated packages"
	deprecatedHeadingConstant          = "Deprecated packages:"
	staleHeadingConstant               = "Stale packages (no publish in over two years):"
	fixAppliedTemplateConstant         = "Fixed %d vulnerabilities, %d remaining (added %d, removed %d, changed %d packages)"
	fixFailedTemplateConstant          = "Vulnerability remediation failed: %s"

	fixAvailableLabelConstant   = "yes"
	fixUnavailableLabelConstant = "no"
	fixTargetTemplateConstant   = "%s@%s"
	statusUpdatedLabelConstant  = "updated"
)

var severityColors = map[audit.Severity]*color.Color{
	audit.SeverityCritical: color.New(color.FgRed, color.Bold),
	audit.SeverityHigh:     color.New(color.FgRed),
	audit.SeverityModerate: color.New(color.FgYellow),
	audit.SeverityLow:      color.New(color.FgCyan),
	audit.SeverityInfo:     color.New(color.FgWhite),
}

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	noticeColor  = color.New(color.FgYellow)
)

// ConsoleRenderer writes dependency-health reports and update outcomes as
// aligned terminal tables.
type ConsoleRenderer struct {
	writer io.Writer
}

// NewConsoleRenderer builds a renderer writing to the supplied stream.
func NewConsoleRenderer(writer io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{writer: writer}
}

func (renderer *ConsoleRenderer) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(renderer.writer, tableMinimumWidthConstant, tableTabWidthConstant, tablePaddingConstant, tablePaddingCharacter, 0)
}

// AuditSummary prints the vulnerability table with a per-severity tally.
func (renderer *ConsoleRenderer) AuditSummary(result audit.Result) {
	if result.Total == 0 {
		fmt.Fprintln(renderer.writer, successColor.Sprint(noVulnerabilitiesMessageConstant))
		return
	}

	table := renderer.newTable()
	fmt.Fprint(table, vulnerabilityTableHeaderConstant)
	for _, vulnerability := range result.Vulnerabilities {
		fmt.Fprintf(table, vulnerabilityRowTemplateConstant,
			renderSeverity(vulnerability.Severity),
			vulnerability.PackageName,
			vulnerability.Title,
			vulnerability.AffectedRange,
			renderFixAvailability(vulnerability.Fix),
		)
	}
	table.Flush()

	fmt.Fprintln(renderer.writer, failureColor.Sprintf(vulnerabilityCountTemplateConstant, result.Total, renderSeverityTally(result.Summary)))
}

// OutdatedSummary prints the outdated-package table.
func (renderer *ConsoleRenderer) OutdatedSummary(result outdated.Result) {
	if result.Total == 0 {
		fmt.Fprintln(renderer.writer, successColor.Sprint(noOutdatedMessageConstant))
		return
	}

	table := renderer.newTable()
	fmt.Fprint(table, outdatedTableHeaderConstant)
	for _, outdatedPackage := range result.Packages {
		fmt.Fprintf(table, outdatedRowTemplateConstant,
			outdatedPackage.Name,
			string(outdatedPackage.Kind),
			outdatedPackage.CurrentVersion,
			outdatedPackage.WantedVersion,
			outdatedPackage.LatestVersion,
		)
	}
	table.Flush()

	fmt.Fprintln(renderer.writer, noticeColor.Sprintf(outdatedCountTemplateConstant, result.Total))
}

// DeprecatedPackages prints the deprecation notices collected from the registry.
func (renderer *ConsoleRenderer) DeprecatedPackages(deprecatedMetadata []registry.Metadata) {
	if len(deprecatedMetadata) == 0 {
		return
	}

	fmt.Fprintln(renderer.writer, failureColor.Sprint(deprecatedHeadingConstant))
	table := renderer.newTable()
	for _, metadata := range deprecatedMetadata {
		fmt.Fprintf(table, deprecatedRowTemplateConstant, metadata.Name, metadata.DeprecationMessage)
	}
	table.Flush()
}

// StalePackages prints packages whose latest publish is older than the
// staleness threshold.
func (renderer *ConsoleRenderer) StalePackages(staleMetadata []registry.Metadata) {
	if len(staleMetadata) == 0 {
		return
	}

	fmt.Fprintln(renderer.writer, noticeColor.Sprint(staleHeadingConstant))
	table := renderer.newTable()
	for _, metadata := range staleMetadata {
		fmt.Fprintf(table, staleRowTemplateConstant, metadata.Name, metadata.LastPublishAgeLabel)
	}
	table.Flush()
}

// UpdateCompleted prints one progress line as each package finishes.
func (renderer *ConsoleRenderer) UpdateCompleted(result update.Result, index int, total int) {
	if result.Success {
		fmt.Fprintf(renderer.writer, updateProgressTemplateConstant,
			index+1, total, successColor.Sprint(result.PackageName), result.PreviousVersion, result.NewVersion)
		return
	}
	fmt.Fprintf(renderer.writer, updateFailureTemplateConstant,
		index+1, total, failureColor.Sprint(result.PackageName), result.FailureReason)
}

// UpdateSummary prints the per-package outcome table for one update batch.
func (renderer *ConsoleRenderer) UpdateSummary(results []update.Result) {
	if len(results) == 0 {
		return
	}

	table := renderer.newTable()
	fmt.Fprint(table, updateTableHeaderConstant)
	for _, result := range results {
		status := successColor.Sprint(statusUpdatedLabelConstant)
		if !result.Success {
			status = failureColor.Sprint(result.FailureReason)
		}
		fmt.Fprintf(table, updateRowTemplateConstant, result.PackageName, result.PreviousVersion, result.NewVersion, status)
	}
	table.Flush()
}

// FixSummary prints the outcome of one remediation attempt.
func (renderer *ConsoleRenderer) FixSummary(fixResult audit.FixResult) {
	if !fixResult.Success && len(fixResult.ErrorMessage) > 0 {
		fmt.Fprintln(renderer.writer, failureColor.Sprintf(fixFailedTemplateConstant, fixResult.ErrorMessage))
		return
	}
	fmt.Fprintln(renderer.writer, successColor.Sprintf(fixAppliedTemplateConstant,
		fixResult.FixedVulnerabilityCount, fixResult.RemainingVulnerabilityCount,
		fixResult.AddedPackageCount, fixResult.RemovedPackageCount, fixResult.ChangedPackageCount))
}

// Notice prints a single informational line.
func (renderer *ConsoleRenderer) Notice(message string) {
	fmt.Fprintln(renderer.writer, noticeColor.Sprint(message))
}

func renderSeverity(severity audit.Severity) string {
	severityColor, known := severityColors[severity]
	if !known {
		return string(severity)
	}
	return severityColor.Sprint(string(severity))
}

func renderFixAvailability(availability audit.FixAvailability) string {
	if !availability.Available {
		return fixUnavailableLabelConstant
	}
	if len(availability.PackageName) > 0 {
		return fmt.Sprintf(fixTargetTemplateConstant, availability.PackageName, availability.PackageVersion)
	}
	return fixAvailableLabelConstant
}

func renderSeverityTally(summary map[audit.Severity]int) string {
	tally := ""
	for _, severity := range audit.KnownSeverities() {
		severityCount := summary[severity]
		if severityCount == 0 {
			continue
		}
		if len(tally) > 0 {
			tally += ", "
		}
		tally += fmt.Sprintf(severityCountTemplateConstant, severityCount, string(severity))
	}
	return tally
}
