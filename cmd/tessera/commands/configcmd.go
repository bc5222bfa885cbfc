// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/tessera-works/tessera/cmd/tessera/cli"
	"github.com/tessera-works/tessera/lib/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Summary: "Inspect and validate configuration",
		Subcommands: []*cli.Command{
			configValidateCommand(),
			configShowCommand(),
		},
	}
}

// loadConfig resolves the config file from --config or TESSERA_CONFIG.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func configValidateCommand() *cli.Command {
	var fs *pflag.FlagSet
	var path *string
	return &cli.Command{
		Name:    "validate",
		Summary: "Validate the configuration file",
		Usage:   "tessera config validate [flags]",
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("validate", pflag.ContinueOnError)
			path = fs.String("config", "", "config file (default: $TESSERA_CONFIG)")
			return fs
		},
		Run: func(args []string) error {
			cfg, err := loadConfig(*path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("configuration valid")
			return nil
		},
	}
}

func configShowCommand() *cli.Command {
	var fs *pflag.FlagSet
	var path *string
	return &cli.Command{
		Name:    "show",
		Summary: "Print the effective configuration",
		Usage:   "tessera config show [flags]",
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("show", pflag.ContinueOnError)
			path = fs.String("config", "", "config file (default: $TESSERA_CONFIG)")
			return fs
		},
		Run: func(args []string) error {
			cfg, err := loadConfig(*path)
			if err != nil {
				return err
			}
			fmt.Printf("environment:        %s\n", cfg.Environment)
			fmt.Printf("node.host:          %s\n", cfg.Node.Host)
			fmt.Printf("node.chain_id:      %d\n", cfg.Node.ChainID)
			fmt.Printf("auto_create_space:  %t\n", cfg.Node.AutoCreateSpace)
			fmt.Printf("session.key_id:     %s\n", cfg.Session.KeyID)
			fmt.Printf("session.state_dir:  %s\n", cfg.Session.StateDir)
			fmt.Printf("session.ttl:        %s\n", cfg.Session.TTL)
			fmt.Printf("default_actions:    %v\n", cfg.Session.DefaultActions)
			fmt.Printf("approval.mode:      %s\n", cfg.Approval.Mode)
			fmt.Printf("approval.timeout:   %s\n", cfg.Approval.Timeout)
			return nil
		},
	}
}
