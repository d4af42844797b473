// Package render formats scan reports, update outcomes, and remediation
// summaries as colored terminal tables.
package render
