package update

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/depsentry/depsentry/internal/outdated"
)

const versionComponentSeparatorConstant = "."

// IsMajorBump reports whether upgrading from currentVersion to
// latestVersion crosses a major version boundary. Versions that cannot be
// interpreted at all are treated as major so interactive selection never
// pre-selects an upgrade of unknown magnitude.
func IsMajorBump(currentVersion string, latestVersion string) bool {
	currentMajor, currentKnown := leadingMajorComponent(currentVersion)
	latestMajor, latestKnown := leadingMajorComponent(latestVersion)
	if !currentKnown || !latestKnown {
		return true
	}
	return latestMajor > currentMajor
}

func leadingMajorComponent(versionText string) (uint64, bool) {
	trimmedVersion := strings.TrimSpace(versionText)
	if parsedVersion, parseError := semver.NewVersion(trimmedVersion); parseError == nil {
		return parsedVersion.Major(), true
	}

	leadingComponent := strings.SplitN(strings.TrimLeft(trimmedVersion, "^~=v"), versionComponentSeparatorConstant, 2)[0]
	parsedComponent, parseError := strconv.ParseUint(leadingComponent, 10, 64)
	if parseError != nil {
		return 0, false
	}
	return parsedComponent, true
}

// PreselectSafeUpgrades lists the packages whose pending upgrade stays
// within the current major version.
func PreselectSafeUpgrades(outdatedPackages []outdated.Package) []string {
	preselectedNames := make([]string, 0, len(outdatedPackages))
	for _, outdatedPackage := range outdatedPackages {
		if IsMajorBump(outdatedPackage.CurrentVersion, outdatedPackage.LatestVersion) {
			continue
		}
		preselectedNames = append(preselectedNames, outdatedPackage.Name)
	}
	return preselectedNames
}
