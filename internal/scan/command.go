package scan

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/audit"
	"github.com/depsentry/depsentry/internal/execshell"
	"github.com/depsentry/depsentry/internal/manifest"
	"github.com/depsentry/depsentry/internal/outdated"
	"github.com/depsentry/depsentry/internal/registry"
	"github.com/depsentry/depsentry/internal/render"
	"github.com/depsentry/depsentry/internal/ui"
	"github.com/depsentry/depsentry/internal/utils"
)

const (
	commandUseConstant              = "scan"
	commandShortDescriptionConstant = "Report vulnerabilities, outdated, deprecated, and stale dependencies"
	commandLongDescriptionConstant  = "scan aggregates npm audit findings, outdated packages, registry deprecation notices, and staleness signals into one dependency-health report."

	registryURLFlagNameConstant        = "registry-url"
	registryURLFlagDescriptionConstant = "Package registry base URL"

	scanSpinnerMessageConstant = "Collecting dependency health signals"

	defaultProjectDirectoryConstant = "."

	scanStartedMessageConstant     = "starting dependency scan"
	configurationFileFieldConstant = "config_file"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the scan command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	NpmExecutor           audit.NpmExecutor
	MetadataFetcher       MetadataFetcher
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the scan command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(registryURLFlagNameConstant, "", registryURLFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	npmExecutor, executorError := builder.resolveNpmExecutor(logger)
	if executorError != nil {
		return executorError
	}

	registryURL, flagError := builder.resolveRegistryURL(command, configuration)
	if flagError != nil {
		return flagError
	}

	projectDirectory := configuration.ProjectDirectory
	if len(projectDirectory) == 0 {
		projectDirectory = defaultProjectDirectoryConstant
	}

	scanFields := []zap.Field{zap.String(projectDirectoryFieldConstant, projectDirectory)}
	contextAccessor := utils.NewCommandContextAccessor()
	if configurationFilePath, configurationFileAvailable := contextAccessor.ConfigurationFilePath(command.Context()); configurationFileAvailable && len(configurationFilePath) > 0 {
		scanFields = append(scanFields, zap.String(configurationFileFieldConstant, configurationFilePath))
	}
	logger.Debug(scanStartedMessageConstant, scanFields...)

	service := NewService(ServiceDependencies{
		Manifests:         manifest.NewStore(projectDirectory),
		AuditCollector:    audit.NewRunner(npmExecutor, logger),
		OutdatedCollector: outdated.NewRunner(npmExecutor, logger),
		MetadataFetcher:   builder.resolveMetadataFetcher(registryURL, logger),
		Logger:            logger,
	})

	progressSpinner := render.NewProgressSpinner(command.ErrOrStderr(), scanSpinnerMessageConstant)
	progressSpinner.Start()
	report, scanError := service.Scan(command.Context())
	progressSpinner.Stop()
	if scanError != nil {
		return scanError
	}

	renderer := render.NewConsoleRenderer(command.OutOrStdout())
	renderer.AuditSummary(report.Audit)
	renderer.OutdatedSummary(report.Outdated)
	renderer.DeprecatedPackages(report.Deprecated)
	renderer.StalePackages(report.Stale)

	return nil
}

func (builder *CommandBuilder) resolveRegistryURL(command *cobra.Command, configuration CommandConfiguration) (string, error) {
	registryURL := configuration.RegistryURL
	if command.Flags().Changed(registryURLFlagNameConstant) {
		flagValue, flagError := command.Flags().GetString(registryURLFlagNameConstant)
		if flagError != nil {
			return "", flagError
		}
		registryURL = flagValue
	}
	if len(registryURL) == 0 {
		registryURL = registry.DefaultBaseURL
	}
	return registryURL, nil
}

func (builder *CommandBuilder) resolveNpmExecutor(logger *zap.Logger) (audit.NpmExecutor, error) {
	if builder.NpmExecutor != nil {
		return builder.NpmExecutor, nil
	}
	eventLogger := ui.NewConsoleCommandEventLogger(logger)
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), eventLogger)
}

func (builder *CommandBuilder) resolveMetadataFetcher(registryURL string, logger *zap.Logger) MetadataFetcher {
	if builder.MetadataFetcher != nil {
		return builder.MetadataFetcher
	}
	return registry.NewClient(registryURL, http.DefaultClient, registry.SystemClock{}, logger)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
