// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/tessera-works/tessera/cmd/tessera/commands"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
