// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete tessera CLI command tree.
package commands

import (
	"fmt"

	"github.com/tessera-works/tessera/cmd/tessera/cli"
	"github.com/tessera-works/tessera/lib/version"
)

// Root builds and returns the complete tessera CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "tessera",
		Description: `Tessera: capability-based session and delegation tooling.

Manage session keys, inspect portable delegation envelopes, and
validate configuration for Tessera-backed applications.`,
		Subcommands: []*cli.Command{
			keyCommand(),
			inspectCommand(),
			configCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("tessera %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
