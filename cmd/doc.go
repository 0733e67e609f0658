// Package cmd implements the command-line interface for dIPC. It provides
// a hierarchical command structure for running a dispatch peer on the
// standard streams.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for running the stdin/stdout demo peer
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dipc -help for a list of all commands.
package cmd
