// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/tessera-works/tessera/cmd/tessera/cli"
	"github.com/tessera-works/tessera/lib/sessionkey"
)

// keyStore persists session keys as one JWK file per key under a
// directory. File names are "<key id>.jwk"; key IDs are restricted to
// a safe character set so a key ID can never escape the directory.
type keyStore struct {
	dir string
}

func openKeyStore(dir string) (*keyStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "tessera", "keys")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	return &keyStore{dir: dir}, nil
}

// validKeyID rejects IDs that could not serve as file names.
func validKeyID(keyID string) error {
	if keyID == "" {
		return fmt.Errorf("key ID must not be empty")
	}
	for _, r := range keyID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("key ID %q contains %q; use letters, digits, '-', '_', '.'", keyID, r)
		}
	}
	if strings.HasPrefix(keyID, ".") {
		return fmt.Errorf("key ID must not start with '.'")
	}
	return nil
}

func (s *keyStore) path(keyID string) string {
	return filepath.Join(s.dir, keyID+".jwk")
}

// load reads every stored key into a fresh manager. An empty store
// yields a manager holding no keys.
func (s *keyStore) load() (*sessionkey.Manager, error) {
	manager, err := sessionkey.NewManager()
	if err != nil {
		return nil, err
	}
	// NewManager seeds a default key; the store is the source of
	// truth here.
	manager.Remove(sessionkey.DefaultKeyID)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading key directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jwk") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		keyID := strings.TrimSuffix(name, ".jwk")
		if _, err := manager.Import(data, keyID, false); err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return manager, nil
}

// save writes one key from the manager to the store.
func (s *keyStore) save(manager *sessionkey.Manager, keyID string) error {
	document, err := manager.ExportJWK(keyID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(keyID), document, 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

func (s *keyStore) remove(keyID string) error {
	err := os.Remove(s.path(keyID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing key file: %w", err)
	}
	return nil
}

func keyCommand() *cli.Command {
	return &cli.Command{
		Name:    "key",
		Summary: "Manage session keys",
		Description: `Manage the named Ed25519 session keys used to operate on spaces.

Keys are stored as JWK files under the key directory
(default: ~/.config/tessera/keys).`,
		Subcommands: []*cli.Command{
			keyGenerateCommand(),
			keyListCommand(),
			keyExportCommand(),
			keyImportCommand(),
			keyRenameCommand(),
			keyRemoveCommand(),
		},
	}
}

// keyDirFlag adds the shared --key-dir flag.
func keyDirFlag(fs *pflag.FlagSet) *string {
	return fs.String("key-dir", "", "key directory (default: ~/.config/tessera/keys)")
}

func keyGenerateCommand() *cli.Command {
	var fs *pflag.FlagSet
	var dir *string
	var name *string
	return &cli.Command{
		Name:    "generate",
		Summary: "Generate a new session key",
		Usage:   "tessera key generate [flags]",
		Examples: []cli.Example{
			{Description: "Generate the default key", Command: "tessera key generate"},
			{Description: "Generate a named key", Command: "tessera key generate --name laptop"},
		},
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("generate", pflag.ContinueOnError)
			dir = keyDirFlag(fs)
			name = fs.String("name", sessionkey.DefaultKeyID, "key ID for the new key")
			return fs
		},
		Run: func(args []string) error {
			if err := validKeyID(*name); err != nil {
				return err
			}
			store, err := openKeyStore(*dir)
			if err != nil {
				return err
			}
			manager, err := store.load()
			if err != nil {
				return err
			}
			if _, err := manager.Create(*name); err != nil {
				return err
			}
			if err := store.save(manager, *name); err != nil {
				return err
			}
			did, err := manager.DID(*name)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", *name, did)
			return nil
		},
	}
}

func keyListCommand() *cli.Command {
	var fs *pflag.FlagSet
	var dir *string
	return &cli.Command{
		Name:    "list",
		Summary: "List stored session keys",
		Usage:   "tessera key list [flags]",
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("list", pflag.ContinueOnError)
			dir = keyDirFlag(fs)
			return fs
		},
		Run: func(args []string) error {
			store, err := openKeyStore(*dir)
			if err != nil {
				return err
			}
			manager, err := store.load()
			if err != nil {
				return err
			}
			ids := manager.List()
			if len(ids) == 0 {
				fmt.Println("no keys; run 'tessera key generate'")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "KEY\tDID")
			for _, id := range ids {
				did, err := manager.DID(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", id, did)
			}
			return tw.Flush()
		},
	}
}

func keyExportCommand() *cli.Command {
	var fs *pflag.FlagSet
	var dir *string
	var name *string
	var sealTo *[]string
	return &cli.Command{
		Name:    "export",
		Summary: "Export a session key as JWK (optionally sealed)",
		Usage:   "tessera key export [flags]",
		Description: `Export a session key as an OKP/Ed25519 JWK document.

With --seal-to, the JWK is encrypted to the given age recipients and
printed as base64; the plaintext private key never reaches stdout.`,
		Examples: []cli.Example{
			{Description: "Export the default key (plaintext JWK)", Command: "tessera key export"},
			{Description: "Seal to a transfer recipient", Command: "tessera key export --seal-to age1..."},
		},
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("export", pflag.ContinueOnError)
			dir = keyDirFlag(fs)
			name = fs.String("name", sessionkey.DefaultKeyID, "key ID to export")
			sealTo = fs.StringSlice("seal-to", nil, "age recipient keys to seal the export to")
			return fs
		},
		Run: func(args []string) error {
			store, err := openKeyStore(*dir)
			if err != nil {
				return err
			}
			manager, err := store.load()
			if err != nil {
				return err
			}
			if len(*sealTo) > 0 {
				sealed, err := manager.ExportSealed(*name, *sealTo)
				if err != nil {
					return err
				}
				fmt.Println(sealed)
				return nil
			}
			document, err := manager.ExportJWK(*name)
			if err != nil {
				return err
			}
			fmt.Println(string(document))
			return nil
		},
	}
}

func keyImportCommand() *cli.Command {
	var fs *pflag.FlagSet
	var dir *string
	var name *string
	var force *bool
	var identity *string
	return &cli.Command{
		Name:    "import",
		Summary: "Import a session key from a JWK file",
		Usage:   "tessera key import <file> [flags]",
		Description: `Import a session key from an OKP/Ed25519 JWK file, or from a sealed
export when --identity provides the matching age identity key.`,
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("import", pflag.ContinueOnError)
			dir = keyDirFlag(fs)
			name = fs.String("name", "", "key ID to store under (default: the JWK's kid)")
			force = fs.Bool("force", false, "replace an existing key with the same ID")
			identity = fs.String("identity", "", "age identity key for a sealed import")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one file argument")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			store, err := openKeyStore(*dir)
			if err != nil {
				return err
			}
			manager, err := store.load()
			if err != nil {
				return err
			}

			var keyID string
			if *identity != "" {
				keyID, err = manager.ImportSealed(strings.TrimSpace(string(data)), *identity, *name, *force)
			} else {
				keyID, err = manager.Import(data, *name, *force)
			}
			if err != nil {
				return err
			}
			if err := validKeyID(keyID); err != nil {
				return err
			}
			if err := store.save(manager, keyID); err != nil {
				return err
			}
			did, err := manager.DID(keyID)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", keyID, did)
			return nil
		},
	}
}

func keyRenameCommand() *cli.Command {
	var fs *pflag.FlagSet
	var dir *string
	return &cli.Command{
		Name:    "rename",
		Summary: "Rename a session key",
		Usage:   "tessera key rename <old> <new> [flags]",
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("rename", pflag.ContinueOnError)
			dir = keyDirFlag(fs)
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <old> and <new> key IDs")
			}
			oldID, newID := args[0], args[1]
			if err := validKeyID(newID); err != nil {
				return err
			}
			store, err := openKeyStore(*dir)
			if err != nil {
				return err
			}
			manager, err := store.load()
			if err != nil {
				return err
			}
			if err := manager.Rename(oldID, newID); err != nil {
				return err
			}
			if err := store.save(manager, newID); err != nil {
				return err
			}
			return store.remove(oldID)
		},
	}
}

func keyRemoveCommand() *cli.Command {
	var fs *pflag.FlagSet
	var dir *string
	return &cli.Command{
		Name:    "remove",
		Summary: "Remove a session key",
		Usage:   "tessera key remove <id> [flags]",
		Flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("remove", pflag.ContinueOnError)
			dir = keyDirFlag(fs)
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one key ID")
			}
			store, err := openKeyStore(*dir)
			if err != nil {
				return err
			}
			return store.remove(args[0])
		},
	}
}
