package execshell

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// CommandName identifies an external executable the executor may invoke.
type CommandName string

const (
	// CommandNpm identifies the npm package manager executable.
	CommandNpm CommandName = "npm"
)

const (
	commandFieldNameConstant          = "command"
	argumentsFieldNameConstant        = "arguments"
	workingDirectoryFieldNameConstant = "working_directory"
	exitCodeFieldNameConstant         = "exit_code"
	standardErrorFieldNameConstant    = "standard_error"
)

var (
	// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
	ErrLoggerNotConfigured = errors.New("logger not configured")
	// ErrCommandRunnerNotConfigured indicates the executor was constructed without a command runner.
	ErrCommandRunnerNotConfigured = errors.New("command runner not configured")
)

// CommandDetails carries the invocation parameters for one external command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs an executable name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of one command invocation.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner abstracts the mechanism that actually runs shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that ran to completion with a
// non-zero exit code. The captured result stays attached because several
// npm subcommands emit their payload on standard output even when they
// exit non-zero.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command and its exit code.
func (failure CommandFailedError) Error() string {
	return fmt.Sprintf("%s exited with code %d", CommandMessageFormatter{}.formatCommandLabel(failure.Command), failure.Result.ExitCode)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the command that failed to execute.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf("%s could not be executed: %v", CommandMessageFormatter{}.formatCommandLabel(failure.Command), failure.Cause)
}

// Unwrap exposes the underlying execution failure.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs external commands with structured logging and
// lifecycle notifications for registered observers.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	observers []CommandEventObserver
	formatter CommandMessageFormatter
}

// NewShellExecutor validates the collaborators and builds an executor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, observers ...CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{
		logger:    logger,
		runner:    runner,
		observers: append([]CommandEventObserver{}, observers...),
		formatter: CommandMessageFormatter{},
	}, nil
}

// ExecuteNpm runs the npm executable with the supplied details.
func (executor *ShellExecutor) ExecuteNpm(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandNpm, Details: details})
}

// Execute runs the supplied command, notifies observers, and logs the
// lifecycle. A non-zero exit code yields a CommandFailedError that retains
// the captured result; a failure to execute yields a CommandExecutionError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.notifyStarted(command)
	executor.logger.Debug(executor.formatter.BuildStartedMessage(command),
		zap.String(commandFieldNameConstant, string(command.Name)),
		zap.Strings(argumentsFieldNameConstant, command.Details.Arguments),
		zap.String(workingDirectoryFieldNameConstant, command.Details.WorkingDirectory),
	)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.notifyExecutionFailed(command, runError)
		executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, runError),
			zap.String(commandFieldNameConstant, string(command.Name)),
			zap.Error(runError),
		)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.notifyCompleted(command, executionResult)
	if executionResult.ExitCode != 0 {
		executor.logger.Debug(executor.formatter.BuildFailureMessage(command, executionResult),
			zap.String(commandFieldNameConstant, string(command.Name)),
			zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode),
			zap.String(standardErrorFieldNameConstant, executionResult.StandardError),
		)
		return executionResult, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(executor.formatter.BuildSuccessMessage(command),
		zap.String(commandFieldNameConstant, string(command.Name)),
	)
	return executionResult, nil
}

func (executor *ShellExecutor) notifyStarted(command ShellCommand) {
	for _, observer := range executor.observers {
		observer.CommandStarted(command)
	}
}

func (executor *ShellExecutor) notifyCompleted(command ShellCommand, result ExecutionResult) {
	for _, observer := range executor.observers {
		observer.CommandCompleted(command, result)
	}
}

func (executor *ShellExecutor) notifyExecutionFailed(command ShellCommand, failure error) {
	for _, observer := range executor.observers {
		observer.CommandExecutionFailed(command, failure)
	}
}
