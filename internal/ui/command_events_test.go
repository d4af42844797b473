package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/depsentry/depsentry/internal/execshell"
	"github.com/depsentry/depsentry/internal/ui"
)

func TestConsoleCommandEventLoggerLevels(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.DebugLevel)
	eventLogger := ui.NewConsoleCommandEventLogger(zap.New(observerCore))

	command := execshell.ShellCommand{
		Name:    execshell.CommandNpm,
		Details: execshell.CommandDetails{Arguments: []string{"outdated", "--json"}},
	}

	eventLogger.CommandStarted(command)
	eventLogger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 0})
	eventLogger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 1})
	eventLogger.CommandExecutionFailed(command, errors.New("npm missing"))

	recordedEntries := observedLogs.All()
	require.Len(testInstance, recordedEntries, 4)
	require.Equal(testInstance, zap.InfoLevel, recordedEntries[0].Level)
	require.Equal(testInstance, zap.InfoLevel, recordedEntries[1].Level)
	require.Equal(testInstance, zap.DebugLevel, recordedEntries[2].Level)
	require.Equal(testInstance, zap.ErrorLevel, recordedEntries[3].Level)
}
