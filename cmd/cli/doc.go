// Package cli assembles the depsentry command hierarchy, configuration
// loading, and structured logging.
package cli
