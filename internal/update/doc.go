// Package update upgrades npm dependencies one package at a time and
// orchestrates forced retries on peer dependency conflicts plus optional
// vulnerability remediation.
package update
