package update

import "strings"

// CommandConfiguration captures configuration values for the update command.
type CommandConfiguration struct {
	ProjectDirectory   string `mapstructure:"project_directory"`
	UpdateAll          bool   `mapstructure:"all"`
	ExactVersions      bool   `mapstructure:"exact"`
	ForceInstall       bool   `mapstructure:"force"`
	FixVulnerabilities bool   `mapstructure:"fix"`
	AssumeDefaults     bool   `mapstructure:"yes"`
}

// DefaultCommandConfiguration provides baseline configuration values for updates.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ProjectDirectory:   "",
		UpdateAll:          false,
		ExactVersions:      false,
		ForceInstall:       false,
		FixVulnerabilities: false,
		AssumeDefaults:     false,
	}
}

// DefaultConfigurationValues exposes update defaults keyed under the
// supplied configuration prefix.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationPrefix + ".project_directory": defaults.ProjectDirectory,
		configurationPrefix + ".all":               defaults.UpdateAll,
		configurationPrefix + ".exact":             defaults.ExactVersions,
		configurationPrefix + ".force":             defaults.ForceInstall,
		configurationPrefix + ".fix":               defaults.FixVulnerabilities,
		configurationPrefix + ".yes":               defaults.AssumeDefaults,
	}
}

// Sanitize trims configuration values without applying implicit defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.ProjectDirectory = strings.TrimSpace(configuration.ProjectDirectory)
	return sanitized
}
