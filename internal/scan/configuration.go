package scan

import "strings"

// CommandConfiguration captures configuration values for the scan command.
type CommandConfiguration struct {
	ProjectDirectory string `mapstructure:"project_directory"`
	RegistryURL      string `mapstructure:"registry_url"`
}

// DefaultCommandConfiguration provides baseline configuration values for scans.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ProjectDirectory: "",
		RegistryURL:      "",
	}
}

// DefaultConfigurationValues exposes scan defaults keyed under the
// supplied configuration prefix.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationPrefix + ".project_directory": defaults.ProjectDirectory,
		configurationPrefix + ".registry_url":      defaults.RegistryURL,
	}
}

// Sanitize trims configuration values without applying implicit defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.ProjectDirectory = strings.TrimSpace(configuration.ProjectDirectory)
	sanitized.RegistryURL = strings.TrimSpace(configuration.RegistryURL)
	return sanitized
}
