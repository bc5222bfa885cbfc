// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatch(t *testing.T) {
	var ran []string
	root := &Command{
		Name: "tessera",
		Subcommands: []*Command{
			{
				Name: "key",
				Subcommands: []*Command{
					{
						Name: "list",
						Run: func(args []string) error {
							ran = append(ran, "key list")
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"key", "list"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ran) != 1 || ran[0] != "key list" {
		t.Errorf("ran = %v, want [key list]", ran)
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "tessera",
		Subcommands: []*Command{
			{Name: "inspect", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"inspekt"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "inspect"`) {
		t.Errorf("error %q does not suggest inspect", err)
	}
}

func TestExecuteFlagParsing(t *testing.T) {
	var got string
	cmd := &Command{
		Name: "export",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
			fs.String("key", "default", "session key to export")
			return fs
		},
		Run: func(args []string) error {
			got = strings.Join(args, " ")
			return nil
		},
	}

	if err := cmd.Execute([]string{"--key", "laptop", "out.jwk"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "out.jwk" {
		t.Errorf("positional args = %q, want out.jwk", got)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	cmd := &Command{
		Name: "export",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
			fs.String("output", "", "output file")
			return fs
		},
		Run: func([]string) error { return nil },
	}

	err := cmd.Execute([]string{"--outpt", "x"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--output") {
		t.Errorf("error %q does not suggest --output", err)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"key", "key", 0},
		{"inspekt", "inspect", 2},
		{"lst", "list", 1},
		{"abc", "xyz", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
