package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
)

const (
	npmAuditSubcommandNameConstant    = "audit"
	npmAuditFixSubcommandNameConstant = "fix"
	npmOutdatedSubcommandNameConstant = "outdated"
	npmInstallSubcommandNameConstant  = "install"
)

const (
	npmAuditStartTemplateConstant               = "Collecting vulnerability report for %s"
	npmAuditSuccessTemplateConstant             = "Collected vulnerability report for %s"
	npmAuditFailureTemplateConstant             = "Vulnerability report for %s finished with exit code %d%s"
	npmAuditExecutionFailureTemplateConstant    = "Unable to collect vulnerability report for %s: %s"
	npmAuditFixStartTemplateConstant            = "Applying vulnerability remediation in %s"
	npmAuditFixSuccessTemplateConstant          = "Applied vulnerability remediation in %s"
	npmAuditFixFailureTemplateConstant          = "Vulnerability remediation in %s finished with exit code %d%s"
	npmAuditFixExecutionFailureTemplateConstant = "Unable to apply vulnerability remediation in %s: %s"
	npmOutdatedStartTemplateConstant            = "Checking outdated packages in %s"
	npmOutdatedSuccessTemplateConstant          = "Checked outdated packages in %s"
	npmOutdatedFailureTemplateConstant          = "Outdated package check in %s finished with exit code %d%s"
	npmOutdatedExecutionFailureTemplateConstant = "Unable to check outdated packages in %s: %s"
	npmInstallStartTemplateConstant             = "Installing %s in %s"
	npmInstallSuccessTemplateConstant           = "Installed %s in %s"
	npmInstallFailureTemplateConstant           = "Failed to install %s in %s (exit code %d%s)"
	npmInstallExecutionFailureTemplateConstant  = "Unable to install %s in %s: %s"
	defaultWorkingDirectoryLabelConstant        = "current directory"
	fallbackUnknownValueLabelConstant           = "unknown"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandNpm || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case npmAuditSubcommandNameConstant:
		if formatter.isAuditFixCommand(command.Details.Arguments) {
			return formatter.describeNpmAuditFixMessage(command, result, failure, stage)
		}
		return formatter.describeNpmAuditMessage(command, result, failure, stage)
	case npmOutdatedSubcommandNameConstant:
		return formatter.describeNpmOutdatedMessage(command, result, failure, stage)
	case npmInstallSubcommandNameConstant:
		return formatter.describeNpmInstallMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) isAuditFixCommand(arguments []string) bool {
	if len(arguments) < 2 {
		return false
	}
	return strings.TrimSpace(arguments[1]) == npmAuditFixSubcommandNameConstant
}

func (formatter CommandMessageFormatter) describeNpmAuditMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(npmAuditStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(npmAuditSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(npmAuditFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(npmAuditExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeNpmAuditFixMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(npmAuditFixStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(npmAuditFixSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(npmAuditFixFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(npmAuditFixExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeNpmOutdatedMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(npmOutdatedStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(npmOutdatedSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(npmOutdatedFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(npmOutdatedExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeNpmInstallMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	installTarget := formatter.extractInstallTarget(command.Details.Arguments)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(npmInstallStartTemplateConstant, installTarget, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(npmInstallSuccessTemplateConstant, installTarget, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(npmInstallFailureTemplateConstant, installTarget, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(npmInstallExecutionFailureTemplateConstant, installTarget, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) extractInstallTarget(arguments []string) string {
	for _, argument := range arguments[1:] {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		return trimmed
	}
	return fallbackUnknownValueLabelConstant
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
