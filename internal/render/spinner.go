package render

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

const (
	spinnerCharSetIndexConstant = 14
	spinnerIntervalConstant     = 100 * time.Millisecond
	spinnerSuffixSeparator      = " "
)

// NewProgressSpinner builds a spinner that writes to the supplied stream
// while a long-running collection is in flight. Callers start and stop it
// around the blocking work.
func NewProgressSpinner(writer io.Writer, message string) *spinner.Spinner {
	progressSpinner := spinner.New(spinner.CharSets[spinnerCharSetIndexConstant], spinnerIntervalConstant, spinner.WithWriter(writer))
	progressSpinner.Suffix = spinnerSuffixSeparator + message
	return progressSpinner
}
