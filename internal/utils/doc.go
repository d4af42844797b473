// Package utils hosts shared infrastructure for the depsentry CLI: the zap
// logger factory, the viper-backed configuration loader, context accessors,
// and writer helpers used by commands.
package utils
