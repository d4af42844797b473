package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	manifestFileNameConstant            = "package.json"
	manifestReadErrorTemplateConstant   = "unable to read project manifest %s: %w"
	manifestDecodeErrorTemplateConstant = "unable to parse project manifest %s: %w"
)

// Manifest captures the dependency declarations of a project manifest.
type Manifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// DeclaredVersion returns the declared version string for the named package.
func (document Manifest) DeclaredVersion(packageName string) (string, bool) {
	if declaredVersion, declared := document.Dependencies[packageName]; declared {
		return declaredVersion, true
	}
	if declaredVersion, declared := document.DevDependencies[packageName]; declared {
		return declaredVersion, true
	}
	return "", false
}

// IsDevelopmentDependency reports whether the named package belongs to the development dependency set.
func (document Manifest) IsDevelopmentDependency(packageName string) bool {
	_, declared := document.DevDependencies[packageName]
	return declared
}

// DeclaredPackageNames returns every declared dependency name, sorted alphabetically.
func (document Manifest) DeclaredPackageNames() []string {
	packageNames := make([]string, 0, len(document.Dependencies)+len(document.DevDependencies))
	for packageName := range document.Dependencies {
		packageNames = append(packageNames, packageName)
	}
	for packageName := range document.DevDependencies {
		if _, alreadyListed := document.Dependencies[packageName]; alreadyListed {
			continue
		}
		packageNames = append(packageNames, packageName)
	}
	sort.Strings(packageNames)
	return packageNames
}

// Store reads the project manifest on demand. The manifest is mutated only by
// the external package manager; the store itself never writes it.
type Store struct {
	projectDirectory string
}

// NewStore constructs a Store bound to the provided project directory.
func NewStore(projectDirectory string) *Store {
	return &Store{projectDirectory: projectDirectory}
}

// ProjectDirectory returns the directory the store reads manifests from.
func (store *Store) ProjectDirectory() string {
	return store.projectDirectory
}

// Load reads and parses the manifest. A missing or unreadable manifest is the
// caller's one fatal precondition and surfaces as an error.
func (store *Store) Load() (Manifest, error) {
	manifestPath := filepath.Join(store.projectDirectory, manifestFileNameConstant)

	manifestBytes, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return Manifest{}, fmt.Errorf(manifestReadErrorTemplateConstant, manifestPath, readError)
	}

	var document Manifest
	if decodeError := json.Unmarshal(manifestBytes, &document); decodeError != nil {
		return Manifest{}, fmt.Errorf(manifestDecodeErrorTemplateConstant, manifestPath, decodeError)
	}

	return document, nil
}
