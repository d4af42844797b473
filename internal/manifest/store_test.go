package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/depsentry/depsentry/internal/manifest"
)

const testManifestContentConstant = `{
  "dependencies": {"express": "4.18.0", "lodash": "^4.17.20"},
  "devDependencies": {"vitest": "1.0.0", "lodash": "^4.17.20"}
}`

func writeTestManifest(testInstance *testing.T, content string) string {
	testInstance.Helper()
	projectDirectory := testInstance.TempDir()
	manifestPath := filepath.Join(projectDirectory, "package.json")
	require.NoError(testInstance, os.WriteFile(manifestPath, []byte(content), 0o644))
	return projectDirectory
}

func TestStoreLoadReadsDeclarations(testInstance *testing.T) {
	projectDirectory := writeTestManifest(testInstance, testManifestContentConstant)

	loadedManifest, loadError := manifest.NewStore(projectDirectory).Load()
	require.NoError(testInstance, loadError)

	declaredVersion, declared := loadedManifest.DeclaredVersion("express")
	require.True(testInstance, declared)
	require.Equal(testInstance, "4.18.0", declaredVersion)

	_, declared = loadedManifest.DeclaredVersion("unknown-package")
	require.False(testInstance, declared)

	require.True(testInstance, loadedManifest.IsDevelopmentDependency("vitest"))
	require.False(testInstance, loadedManifest.IsDevelopmentDependency("express"))

	require.Equal(testInstance, []string{"express", "lodash", "vitest"}, loadedManifest.DeclaredPackageNames())
}

func TestStoreLoadMissingManifestFails(testInstance *testing.T) {
	_, loadError := manifest.NewStore(testInstance.TempDir()).Load()
	require.Error(testInstance, loadError)
}

func TestStoreLoadMalformedManifestFails(testInstance *testing.T) {
	projectDirectory := writeTestManifest(testInstance, "{not json")
	_, loadError := manifest.NewStore(projectDirectory).Load()
	require.Error(testInstance, loadError)
}
