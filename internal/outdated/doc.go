// Package outdated normalizes npm outdated reports, classifying each
// package as a runtime or development dependency from the project manifest.
package outdated
