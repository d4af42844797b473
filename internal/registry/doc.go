// Package registry queries an npm-compatible package registry for metadata
// health signals: last publish age, staleness, and deprecation of the latest
// tagged version. Lookups degrade to absence on any per-package failure so a
// flaky registry never aborts a scan.
package registry
