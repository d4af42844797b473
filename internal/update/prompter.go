package update

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/depsentry/depsentry/internal/outdated"
)

const (
	affirmativeSuffixConstant      = " [Y/n]: "
	negativeSuffixConstant         = " [y/N]: "
	affirmativeShortAnswerConstant = "y"
	affirmativeLongAnswerConstant  = "yes"
	negativeShortAnswerConstant    = "n"
	negativeLongAnswerConstant     = "no"
	selectAllAnswerConstant        = "all"
	selectNoneAnswerConstant       = "none"
	selectionEntryTemplateConstant = "%3d. [%s] %s  %s -> %s\n"
	selectedMarkConstant           = "x"
	unselectedMarkConstant         = " "
	selectionInstructionConstant   = "Select packages to update (numbers separated by spaces, 'all', 'none', or press enter for the pre-selected set): "
	answerSeparatorsConstant       = " ,"
)

// ConfirmationPrompter asks the user a yes/no question. A cancelled
// prompt surfaces as an error the caller treats as a declined answer.
type ConfirmationPrompter interface {
	Confirm(question string, defaultAnswer bool) (bool, error)
}

// PackageSelector presents outdated packages for interactive
// multi-selection and returns the chosen package names.
type PackageSelector interface {
	SelectPackages(outdatedPackages []outdated.Package, preselectedNames []string) ([]string, error)
}

// IOConfirmationPrompter reads yes/no answers from an input stream.
type IOConfirmationPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmationPrompter builds a prompter over the supplied streams.
func NewIOConfirmationPrompter(input io.Reader, output io.Writer) *IOConfirmationPrompter {
	return &IOConfirmationPrompter{reader: bufio.NewReader(input), writer: output}
}

// Confirm prints the question with the default marked and interprets the
// typed answer. An empty answer selects the default; unrecognized answers
// fall back to the default as well.
func (prompter *IOConfirmationPrompter) Confirm(question string, defaultAnswer bool) (bool, error) {
	promptSuffix := negativeSuffixConstant
	if defaultAnswer {
		promptSuffix = affirmativeSuffixConstant
	}
	if _, writeError := fmt.Fprint(prompter.writer, question+promptSuffix); writeError != nil {
		return false, writeError
	}

	answerLine, readError := prompter.reader.ReadString('\n')
	if readError != nil && len(strings.TrimSpace(answerLine)) == 0 {
		return false, readError
	}

	switch strings.ToLower(strings.TrimSpace(answerLine)) {
	case affirmativeShortAnswerConstant, affirmativeLongAnswerConstant:
		return true, nil
	case negativeShortAnswerConstant, negativeLongAnswerConstant:
		return false, nil
	default:
		return defaultAnswer, nil
	}
}

// IOPackageSelector reads package selections from an input stream.
type IOPackageSelector struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOPackageSelector builds a selector over the supplied streams.
func NewIOPackageSelector(input io.Reader, output io.Writer) *IOPackageSelector {
	return &IOPackageSelector{reader: bufio.NewReader(input), writer: output}
}

// SelectPackages renders a numbered list with the pre-selected entries
// marked and interprets the typed selection.
func (selector *IOPackageSelector) SelectPackages(outdatedPackages []outdated.Package, preselectedNames []string) ([]string, error) {
	preselectedSet := make(map[string]struct{}, len(preselectedNames))
	for _, preselectedName := range preselectedNames {
		preselectedSet[preselectedName] = struct{}{}
	}

	for entryIndex, outdatedPackage := range outdatedPackages {
		selectionMark := unselectedMarkConstant
		if _, preselected := preselectedSet[outdatedPackage.Name]; preselected {
			selectionMark = selectedMarkConstant
		}
		fmt.Fprintf(selector.writer, selectionEntryTemplateConstant,
			entryIndex+1, selectionMark, outdatedPackage.Name,
			outdatedPackage.CurrentVersion, outdatedPackage.LatestVersion)
	}
	fmt.Fprint(selector.writer, selectionInstructionConstant)

	answerLine, readError := selector.reader.ReadString('\n')
	trimmedAnswer := strings.ToLower(strings.TrimSpace(answerLine))
	if readError != nil && len(trimmedAnswer) == 0 {
		return nil, readError
	}

	switch trimmedAnswer {
	case "":
		return append([]string{}, preselectedNames...), nil
	case selectAllAnswerConstant:
		allNames := make([]string, 0, len(outdatedPackages))
		for _, outdatedPackage := range outdatedPackages {
			allNames = append(allNames, outdatedPackage.Name)
		}
		return allNames, nil
	case selectNoneAnswerConstant:
		return []string{}, nil
	}

	selectedNames := make([]string, 0, len(outdatedPackages))
	for _, answerToken := range strings.FieldsFunc(trimmedAnswer, func(character rune) bool {
		return strings.ContainsRune(answerSeparatorsConstant, character)
	}) {
		entryNumber, parseError := strconv.Atoi(answerToken)
		if parseError != nil || entryNumber < 1 || entryNumber > len(outdatedPackages) {
			continue
		}
		selectedNames = append(selectedNames, outdatedPackages[entryNumber-1].Name)
	}
	return selectedNames, nil
}
