package scan

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/audit"
	"github.com/depsentry/depsentry/internal/manifest"
	"github.com/depsentry/depsentry/internal/outdated"
	"github.com/depsentry/depsentry/internal/registry"
)

const (
	projectDirectoryFieldConstant = "project_directory"
	packageCountFieldConstant     = "package_count"
)

// Report aggregates every dependency-health signal collected in one scan.
// Stale lists only packages that are not already flagged deprecated, so a
// package never appears in both warning sections.
type Report struct {
	Audit      audit.Result
	Outdated   outdated.Result
	Deprecated []registry.Metadata
	Stale      []registry.Metadata
}

// ManifestLoader exposes the project manifest operations the scan needs.
type ManifestLoader interface {
	ProjectDirectory() string
	Load() (manifest.Manifest, error)
}

// AuditCollector collects the vulnerability report for a project.
type AuditCollector interface {
	Run(executionContext context.Context, projectDirectory string) audit.Result
}

// OutdatedCollector collects the outdated-package report for a project.
type OutdatedCollector interface {
	Run(executionContext context.Context, projectDirectory string, classifier outdated.DependencyClassifier) outdated.Result
}

// MetadataFetcher resolves registry metadata for a set of package names.
type MetadataFetcher interface {
	FetchAllMetadata(executionContext context.Context, packageNames []string) []registry.Metadata
}

// Service runs a full dependency-health scan.
type Service struct {
	manifests         ManifestLoader
	auditCollector    AuditCollector
	outdatedCollector OutdatedCollector
	metadataFetcher   MetadataFetcher
	logger            *zap.Logger
}

// ServiceDependencies lists the collaborators a scan service needs.
type ServiceDependencies struct {
	Manifests         ManifestLoader
	AuditCollector    AuditCollector
	OutdatedCollector OutdatedCollector
	MetadataFetcher   MetadataFetcher
	Logger            *zap.Logger
}

// NewService builds a scan service from the supplied dependencies.
func NewService(dependencies ServiceDependencies) *Service {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		manifests:         dependencies.Manifests,
		auditCollector:    dependencies.AuditCollector,
		outdatedCollector: dependencies.OutdatedCollector,
		metadataFetcher:   dependencies.MetadataFetcher,
		logger:            logger,
	}
}

// Scan collects vulnerability, outdated, deprecation, and staleness
// signals for the project. An unreadable manifest is the only fatal
// condition; every collector degrades to empty data on its own.
func (service *Service) Scan(executionContext context.Context) (Report, error) {
	projectDirectory := service.manifests.ProjectDirectory()
	manifestDocument, loadError := service.manifests.Load()
	if loadError != nil {
		return Report{}, loadError
	}

	declaredNames := manifestDocument.DeclaredPackageNames()
	service.logger.Debug("scanning project",
		zap.String(projectDirectoryFieldConstant, projectDirectory),
		zap.Int(packageCountFieldConstant, len(declaredNames)),
	)

	report := Report{
		Audit:    service.auditCollector.Run(executionContext, projectDirectory),
		Outdated: service.outdatedCollector.Run(executionContext, projectDirectory, manifestDocument),
	}

	resolvedMetadata := service.metadataFetcher.FetchAllMetadata(executionContext, declaredNames)
	sort.Slice(resolvedMetadata, func(firstIndex, secondIndex int) bool {
		return resolvedMetadata[firstIndex].Name < resolvedMetadata[secondIndex].Name
	})

	for _, metadata := range resolvedMetadata {
		if metadata.Deprecated {
			report.Deprecated = append(report.Deprecated, metadata)
			continue
		}
		if metadata.IsStale {
			report.Stale = append(report.Stale, metadata)
		}
	}

	return report, nil
}
