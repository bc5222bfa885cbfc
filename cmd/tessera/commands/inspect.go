// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	"github.com/tessera-works/tessera/cmd/tessera/cli"
	"github.com/tessera-works/tessera/lib/codec"
	"github.com/tessera-works/tessera/lib/delegation"
)

func inspectCommand() *cli.Command {
	var fs *pflag.FlagSet
	var diag *bool
	return &cli.Command{
		Name:    "inspect",
		Summary: "Inspect a portable delegation envelope",
		Usage:   "tessera inspect <envelope|-> [flags]",
		Description: `Decode a portable delegation envelope and print its chain.

The envelope is the base64url string produced when a delegation is
shared. Pass "-" to read it from stdin.`,
		Examples: []cli.Example{
			{Description: "Inspect an envelope from the clipboard", Command: "tessera inspect 'KLUv_QBY...'"},
			{Description: "Show the raw CBOR diagnostic notation", Command: "tessera inspect --diag 'KLUv_QBY...'"},
		},
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			diag = fs.Bool("diag", false, "print CBOR diagnostic notation of the envelope payload")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one envelope argument (or '-' for stdin)")
			}
			encoded := args[0]
			if encoded == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				encoded = strings.TrimSpace(string(data))
			}

			if *diag {
				return printDiagnostic(encoded)
			}
			return printEnvelope(encoded)
		},
	}
}

func printEnvelope(encoded string) error {
	portable, err := delegation.Decode(encoded)
	if err != nil {
		return err
	}

	fmt.Printf("Owner:   %s (chain %d)\n", portable.OwnerAddress, portable.ChainID)
	fmt.Printf("Host:    %s\n", portable.Host)

	chain := portable.Chain()
	switch err := delegation.ValidateChain(chain); {
	case err != nil:
		fmt.Printf("Chain:   INVALID — %v\n", err)
	case !delegation.Terminal(chain).Active(time.Now()):
		fmt.Printf("Chain:   valid but not currently active\n")
	default:
		fmt.Printf("Chain:   valid, %d link(s)\n", len(chain))
	}
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tACTIONS\tEXPIRES\tDELEGATE")
	for _, d := range chain {
		path := d.Path
		if path == "" {
			path = "(whole space)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			shortID(d.ID), path, strings.Join(d.Actions, ","),
			time.Unix(d.Expiry, 0).UTC().Format(time.RFC3339), d.Delegate)
	}
	return tw.Flush()
}

// printDiagnostic shows the envelope payload in CBOR diagnostic
// notation, bypassing the typed decode so malformed envelopes can
// still be examined.
func printDiagnostic(encoded string) error {
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decoding base64url envelope: %w", err)
	}
	reader, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer reader.Close()
	payload, err := reader.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("decompressing envelope: %w", err)
	}
	notation, err := codec.Diagnose(payload)
	if err != nil {
		return fmt.Errorf("diagnosing payload: %w", err)
	}
	fmt.Println(notation)
	return nil
}

func shortID(id string) string {
	if id == "" {
		return "(none)"
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
