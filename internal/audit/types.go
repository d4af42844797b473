package audit

import (
	"encoding/json"
)

// Severity identifies how dangerous a reported vulnerability is.
type Severity string

const (
	// SeverityCritical marks vulnerabilities demanding immediate remediation.
	SeverityCritical Severity = "critical"
	// SeverityHigh marks vulnerabilities with significant exploitation impact.
	SeverityHigh Severity = "high"
	// SeverityModerate marks vulnerabilities with limited exploitation impact.
	SeverityModerate Severity = "moderate"
	// SeverityLow marks vulnerabilities with minor exploitation impact.
	SeverityLow Severity = "low"
	// SeverityInfo marks advisories without direct exploitation impact.
	SeverityInfo Severity = "info"
)

const unknownSeverityRankConstant = 5

var severityRanks = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityModerate: 2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank orders severities from most to least dangerous. Unrecognized
// severities rank below every known level.
func (severity Severity) Rank() int {
	rank, known := severityRanks[severity]
	if !known {
		return unknownSeverityRankConstant
	}
	return rank
}

// Known reports whether the severity is one of the recognized levels.
func (severity Severity) Known() bool {
	_, known := severityRanks[severity]
	return known
}

// KnownSeverities lists the recognized severity levels ordered from most
// to least dangerous.
func KnownSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityModerate, SeverityLow, SeverityInfo}
}

// FixAvailability captures whether npm can remediate a vulnerability and,
// when the remediation requires a specific package version, which one.
type FixAvailability struct {
	Available      bool
	PackageName    string
	PackageVersion string
}

type fixAvailabilityDocument struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// UnmarshalJSON tolerates the two shapes npm emits for fixAvailable: a
// plain boolean or an object naming the remediation package.
func (availability *FixAvailability) UnmarshalJSON(payload []byte) error {
	var booleanForm bool
	if unmarshalError := json.Unmarshal(payload, &booleanForm); unmarshalError == nil {
		*availability = FixAvailability{Available: booleanForm}
		return nil
	}

	var documentForm fixAvailabilityDocument
	if unmarshalError := json.Unmarshal(payload, &documentForm); unmarshalError != nil {
		return unmarshalError
	}
	*availability = FixAvailability{
		Available:      true,
		PackageName:    documentForm.Name,
		PackageVersion: documentForm.Version,
	}
	return nil
}

// Vulnerability describes one vulnerable package reported by an audit.
type Vulnerability struct {
	PackageName   string
	Severity      Severity
	Title         string
	AdvisoryURL   string
	AffectedRange string
	Fix           FixAvailability
}

// Result aggregates the vulnerabilities discovered by one audit run.
type Result struct {
	Vulnerabilities []Vulnerability
	Summary         map[Severity]int
	Total           int
}

// FixResult summarizes one remediation attempt.
type FixResult struct {
	Success                     bool
	AddedPackageCount           int
	RemovedPackageCount         int
	ChangedPackageCount         int
	FixedVulnerabilityCount     int
	RemainingVulnerabilityCount int
	RequiresForcedRetry         bool
	ErrorMessage                string
}
