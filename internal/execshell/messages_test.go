package execshell_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/depsentry/depsentry/internal/execshell"
)

func TestCommandMessageFormatterDescribesNpmSubcommands(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}

	testCases := []struct {
		name            string
		command         execshell.ShellCommand
		expectedStarted string
		expectedSuccess string
	}{
		{
			name: "audit",
			command: execshell.ShellCommand{
				Name:    execshell.CommandNpm,
				Details: execshell.CommandDetails{Arguments: []string{"audit", "--json"}, WorkingDirectory: "/srv/app"},
			},
			expectedStarted: "Collecting vulnerability report for /srv/app",
			expectedSuccess: "Collected vulnerability report for /srv/app",
		},
		{
			name: "audit_fix",
			command: execshell.ShellCommand{
				Name:    execshell.CommandNpm,
				Details: execshell.CommandDetails{Arguments: []string{"audit", "fix"}, WorkingDirectory: "/srv/app"},
			},
			expectedStarted: "Applying vulnerability remediation in /srv/app",
			expectedSuccess: "Applied vulnerability remediation in /srv/app",
		},
		{
			name: "outdated",
			command: execshell.ShellCommand{
				Name:    execshell.CommandNpm,
				Details: execshell.CommandDetails{Arguments: []string{"outdated", "--json"}},
			},
			expectedStarted: "Checking outdated packages in current directory",
			expectedSuccess: "Checked outdated packages in current directory",
		},
		{
			name: "install",
			command: execshell.ShellCommand{
				Name:    execshell.CommandNpm,
				Details: execshell.CommandDetails{Arguments: []string{"install", "--save", "express@latest"}, WorkingDirectory: "/srv/app"},
			},
			expectedStarted: "Installing express@latest in /srv/app",
			expectedSuccess: "Installed express@latest in /srv/app",
		},
		{
			name: "generic",
			command: execshell.ShellCommand{
				Name:    execshell.CommandNpm,
				Details: execshell.CommandDetails{Arguments: []string{"--version"}},
			},
			expectedStarted: "Running npm --version",
			expectedSuccess: "Completed npm --version",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedStarted, formatter.BuildStartedMessage(testCase.command))
			require.Equal(testInstance, testCase.expectedSuccess, formatter.BuildSuccessMessage(testCase.command))
		})
	}
}

func TestCommandMessageFormatterFailureIncludesStandardError(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}
	command := execshell.ShellCommand{
		Name:    execshell.CommandNpm,
		Details: execshell.CommandDetails{Arguments: []string{"install", "leftpad@latest"}, WorkingDirectory: "/srv/app"},
	}
	result := execshell.ExecutionResult{ExitCode: 1, StandardError: "npm ERR! code ERESOLVE"}

	message := formatter.BuildFailureMessage(command, result)
	require.Equal(testInstance, "Failed to install leftpad@latest in /srv/app (exit code 1: npm ERR! code ERESOLVE)", message)
}
