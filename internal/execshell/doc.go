// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions used throughout
// depsentry to run npm in a testable manner. Non-zero exit codes surface as
// CommandFailedError values that retain the captured output, because npm
// signals findings (vulnerabilities, outdated packages) through its exit
// status.
package execshell
