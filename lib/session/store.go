// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tessera-works/tessera/lib/codec"
	"github.com/tessera-works/tessera/lib/delegation"
)

// persistedSession is the on-disk session state. The session key
// itself never touches disk here; only the chain anchoring it does,
// so a resumed session is only usable by a process that still holds
// the key.
type persistedSession struct {
	KeyID      string                  `cbor:"1,keyasint"`
	PrimaryDID string                  `cbor:"2,keyasint"`
	SpaceID    string                  `cbor:"3,keyasint"`
	Chain      []delegation.Delegation `cbor:"4,keyasint"`
}

const sessionFileName = "session.cbor"

// store persists session state under a directory, one file per
// controller. Writes go through a temp file and rename so a crash
// mid-write never leaves a truncated session.
type store struct {
	dir string
}

func newStore(dir string) *store {
	return &store{dir: dir}
}

func (s *store) path() string {
	return filepath.Join(s.dir, sessionFileName)
}

// Load reads the persisted session. Returns (nil, nil) when no
// session has been saved.
func (s *store) Load() (*persistedSession, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: reading persisted state: %w", err)
	}
	var ps persistedSession
	if err := codec.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("session: decoding persisted state: %w", err)
	}
	return &ps, nil
}

// Save writes the session state with owner-only permissions.
func (s *store) Save(ps persistedSession) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("session: creating state directory: %w", err)
	}
	data, err := codec.Marshal(ps)
	if err != nil {
		return fmt.Errorf("session: encoding persisted state: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, sessionFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("session: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: restricting state file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: writing persisted state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: closing persisted state: %w", err)
	}
	if err := os.Rename(tmpName, s.path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: replacing persisted state: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Missing state is not an error.
func (s *store) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: removing persisted state: %w", err)
	}
	return nil
}
