package update

import (
	"fmt"
	"io"

	"github.com/depsentry/depsentry/internal/audit"
)

const (
	plainUpdateSuccessTemplateConstant = "updated %s %s -> %s\n"
	plainUpdateFailureTemplateConstant = "failed %s: %s\n"
	plainFixSummaryTemplateConstant    = "audit fix: fixed %d, remaining %d (added %d, removed %d, changed %d)\n"
	plainFixFailureTemplateConstant    = "audit fix failed: %s\n"
	plainNoticeTemplateConstant        = "%s\n"
)

// plainPresenter writes unstyled result lines. It is the fallback when no
// richer presenter is wired in.
type plainPresenter struct {
	writer io.Writer
}

func newPlainPresenter(writer io.Writer) *plainPresenter {
	return &plainPresenter{writer: writer}
}

func (presenter *plainPresenter) UpdateCompleted(result Result, index int, total int) {
	if result.Success {
		fmt.Fprintf(presenter.writer, plainUpdateSuccessTemplateConstant, result.PackageName, result.PreviousVersion, result.NewVersion)
		return
	}
	fmt.Fprintf(presenter.writer, plainUpdateFailureTemplateConstant, result.PackageName, result.FailureReason)
}

func (presenter *plainPresenter) UpdateSummary(results []Result) {}

func (presenter *plainPresenter) FixSummary(fixResult audit.FixResult) {
	if !fixResult.Success && len(fixResult.ErrorMessage) > 0 {
		fmt.Fprintf(presenter.writer, plainFixFailureTemplateConstant, fixResult.ErrorMessage)
		return
	}
	fmt.Fprintf(presenter.writer, plainFixSummaryTemplateConstant,
		fixResult.FixedVulnerabilityCount, fixResult.RemainingVulnerabilityCount,
		fixResult.AddedPackageCount, fixResult.RemovedPackageCount, fixResult.ChangedPackageCount)
}

func (presenter *plainPresenter) Notice(message string) {
	fmt.Fprintf(presenter.writer, plainNoticeTemplateConstant, message)
}
