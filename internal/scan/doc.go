// Package scan aggregates vulnerability findings, outdated packages,
// deprecation notices, and staleness signals into one report.
package scan
