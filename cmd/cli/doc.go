// Package cli constructs the mergewatch command-line interface: the Cobra root
// command with its logging and configuration flags, the check subcommand and
// the --init configuration writer.
package cli
