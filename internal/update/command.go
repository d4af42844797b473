package update

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/depsentry/depsentry/internal/audit"
	"github.com/depsentry/depsentry/internal/execshell"
	"github.com/depsentry/depsentry/internal/manifest"
	"github.com/depsentry/depsentry/internal/outdated"
	"github.com/depsentry/depsentry/internal/ui"
	"github.com/depsentry/depsentry/internal/utils"
)

const (
	commandUseConstant              = "update [packages...]"
	commandShortDescriptionConstant = "Update outdated dependencies and optionally fix vulnerabilities"
	commandLongDescriptionConstant  = "update upgrades npm dependencies one at a time, offers forced retries when peer dependency conflicts block an upgrade, and can run npm audit fix afterwards."

	allFlagNameConstant          = "all"
	allFlagDescriptionConstant   = "Update every outdated package without interactive selection"
	exactFlagNameConstant        = "exact"
	exactFlagDescriptionConstant = "Pin exact versions instead of ranges"
	forceFlagNameConstant        = "force"
	forceFlagDescriptionConstant = "Bypass peer dependency conflicts with npm --force"
	fixFlagNameConstant          = "fix"
	fixFlagDescriptionConstant   = "Run npm audit fix after updating (or alone when no packages are given)"
	yesFlagNameConstant          = "yes"
	yesFlagDescriptionConstant   = "Answer prompts with their default instead of asking"

	defaultProjectDirectoryConstant = "."
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// PresenterProvider yields the presenter that renders update results.
type PresenterProvider func(command *cobra.Command) Presenter

// CommandBuilder assembles the update command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	NpmExecutor           NpmExecutor
	PresenterProvider     PresenterProvider
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the update command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.ArbitraryArgs,
		RunE:  builder.run,
	}

	command.Flags().Bool(allFlagNameConstant, false, allFlagDescriptionConstant)
	command.Flags().Bool(exactFlagNameConstant, false, exactFlagDescriptionConstant)
	command.Flags().Bool(forceFlagNameConstant, false, forceFlagDescriptionConstant)
	command.Flags().Bool(fixFlagNameConstant, false, fixFlagDescriptionConstant)
	command.Flags().Bool(yesFlagNameConstant, false, yesFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	options, optionsError := builder.resolveOptions(command, configuration, arguments)
	if optionsError != nil {
		return optionsError
	}

	npmExecutor, executorError := builder.resolveNpmExecutor(logger)
	if executorError != nil {
		return executorError
	}

	projectDirectory := configuration.ProjectDirectory
	if len(projectDirectory) == 0 {
		projectDirectory = defaultProjectDirectoryConstant
	}
	manifestStore := manifest.NewStore(projectDirectory)

	// Prompts must reach the terminal before the blocking read that
	// follows them, so the interactive streams flush on every write.
	interactiveOutput := utils.NewFlushingWriter(command.OutOrStdout())

	auditRunner := audit.NewRunner(npmExecutor, logger)
	orchestrator := NewOrchestrator(OrchestratorDependencies{
		Updater:    NewExecutor(npmExecutor, manifestStore, logger),
		Discoverer: outdated.NewRunner(npmExecutor, logger),
		Auditor:    auditRunner,
		Fixer:      audit.NewFixer(npmExecutor, auditRunner, logger),
		Manifests:  manifestStore,
		Prompter:   NewIOConfirmationPrompter(command.InOrStdin(), interactiveOutput),
		Selector:   NewIOPackageSelector(command.InOrStdin(), interactiveOutput),
		Presenter:  builder.resolvePresenter(command),
		Logger:     logger,
	})

	return orchestrator.Run(command.Context(), options)
}

func (builder *CommandBuilder) resolveOptions(command *cobra.Command, configuration CommandConfiguration, arguments []string) (OrchestrationOptions, error) {
	options := OrchestrationOptions{
		PackageNames:       arguments,
		UpdateAll:          configuration.UpdateAll,
		ExactVersions:      configuration.ExactVersions,
		ForceInstall:       configuration.ForceInstall,
		FixVulnerabilities: configuration.FixVulnerabilities,
		AssumeDefaults:     configuration.AssumeDefaults,
	}

	flagBindings := []struct {
		flagName string
		target   *bool
	}{
		{allFlagNameConstant, &options.UpdateAll},
		{exactFlagNameConstant, &options.ExactVersions},
		{forceFlagNameConstant, &options.ForceInstall},
		{fixFlagNameConstant, &options.FixVulnerabilities},
		{yesFlagNameConstant, &options.AssumeDefaults},
	}
	for _, binding := range flagBindings {
		if !command.Flags().Changed(binding.flagName) {
			continue
		}
		flagValue, flagError := command.Flags().GetBool(binding.flagName)
		if flagError != nil {
			return OrchestrationOptions{}, flagError
		}
		*binding.target = flagValue
	}

	return options, nil
}

func (builder *CommandBuilder) resolveNpmExecutor(logger *zap.Logger) (NpmExecutor, error) {
	if builder.NpmExecutor != nil {
		return builder.NpmExecutor, nil
	}
	eventLogger := ui.NewConsoleCommandEventLogger(logger)
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), eventLogger)
}

func (builder *CommandBuilder) resolvePresenter(command *cobra.Command) Presenter {
	if builder.PresenterProvider != nil {
		if presenter := builder.PresenterProvider(command); presenter != nil {
			return presenter
		}
	}
	return newPlainPresenter(command.OutOrStdout())
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
