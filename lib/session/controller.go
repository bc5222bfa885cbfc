// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tessera-works/tessera/lib/approval"
	"github.com/tessera-works/tessera/lib/clock"
	"github.com/tessera-works/tessera/lib/delegation"
	"github.com/tessera-works/tessera/lib/keyring"
	"github.com/tessera-works/tessera/lib/sessionkey"
	"github.com/tessera-works/tessera/lib/space"
)

// Controller drives the session lifecycle: session-only operation,
// wallet attachment, the sign-in handshake, and capability lookups
// for outbound requests.
type Controller struct {
	keys     *sessionkey.Manager
	keyID    string
	registry *keyring.Registry
	strategy approval.Strategy
	handler  space.Handler
	observer space.Observer
	spaces   space.Service
	engine   Engine
	host     string
	autoSpcs bool
	ttl      time.Duration
	actions  []string
	store    *store
	logger   *slog.Logger
	clk      clock.Clock

	mu       sync.Mutex
	wallet   Wallet
	session  *Session
	inflight *signInAttempt
}

// signInAttempt is a single in-flight handshake. Concurrent SignIn
// callers wait on done and share the outcome.
type signInAttempt struct {
	done    chan struct{}
	session Session
	err     error
}

// New builds a Controller from Options, applying defaults. The
// controller starts session-only (or wallet-unsigned when
// Options.Wallet is set); no network traffic happens until SignIn.
func New(opts Options) (*Controller, error) {
	keys := opts.Keys
	if keys == nil {
		var err error
		keys, err = sessionkey.NewManager()
		if err != nil {
			return nil, fmt.Errorf("session: generating session key: %w", err)
		}
	}
	keyID := opts.KeyID
	if keyID == "" {
		keyID = sessionkey.DefaultKeyID
	}
	if _, err := keys.Public(keyID); err != nil {
		return nil, fmt.Errorf("session: key %q: %w", keyID, err)
	}
	registry := opts.Registry
	if registry == nil {
		registry = keyring.NewRegistry()
	}
	strategy := opts.Strategy
	if strategy == nil {
		strategy = approval.AutoReject()
	}
	handler := opts.SpaceHandler
	if handler == nil {
		handler = space.AutoApprove{}
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	actions := opts.DefaultActions
	if len(actions) == 0 {
		actions = defaultActions
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	var st *store
	if opts.StateDir != "" {
		st = newStore(opts.StateDir)
	}
	c := &Controller{
		keys:     keys,
		keyID:    keyID,
		registry: registry,
		strategy: strategy,
		handler:  handler,
		spaces:   opts.Spaces,
		engine:   opts.Engine,
		host:     opts.Host,
		autoSpcs: opts.AutoCreateSpace,
		ttl:      ttl,
		actions:  append([]string(nil), actions...),
		store:    st,
		logger:   logger,
		clk:      clk,
		wallet:   opts.Wallet,
	}
	if obs, ok := handler.(space.Observer); ok {
		c.observer = obs
	}
	return c, nil
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.session != nil && !c.session.SessionOnly:
		return StateSignedIn
	case c.wallet != nil:
		return StateWalletUnsigned
	default:
		return StateSessionOnly
	}
}

// Current returns the active session snapshot. Without a completed
// SignIn it returns a session-only snapshot for the configured key.
func (c *Controller) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return *c.session
	}
	did, _ := c.keys.DID(c.keyID)
	return Session{
		KeyID:           c.keyID,
		PrimaryDID:      did,
		SessionOnly:     true,
		WalletConnected: c.wallet != nil,
	}
}

// ConnectWallet attaches a wallet transport, upgrading a session-only
// controller in place. Session-key delegations already registered
// remain usable; a subsequent SignIn binds the wallet identity.
func (c *Controller) ConnectWallet(w Wallet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallet = w
	if c.session != nil {
		c.session.WalletConnected = w != nil
	}
}

// SignIn performs the wallet-bound handshake: approval of the sign
// request, signature verification, space resolution (creating the
// space on first sign-in when enabled), and registration of the
// minted root delegation. Concurrent calls share a single in-flight
// handshake and all receive its outcome. Once the strategy approves,
// a persisted session whose chain is still valid is resumed in place
// of the wallet signature and handshake.
func (c *Controller) SignIn(ctx context.Context) (Session, error) {
	c.mu.Lock()
	if c.session != nil && !c.session.SessionOnly {
		s := *c.session
		c.mu.Unlock()
		return s, nil
	}
	if c.wallet == nil {
		c.mu.Unlock()
		return Session{}, ErrWalletRequired
	}
	if attempt := c.inflight; attempt != nil {
		c.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.session, attempt.err
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}
	}
	attempt := &signInAttempt{done: make(chan struct{})}
	c.inflight = attempt
	wallet := c.wallet
	c.mu.Unlock()

	session, err := c.performSignIn(ctx, wallet)

	c.mu.Lock()
	attempt.session = session
	attempt.err = err
	if err == nil {
		s := session
		c.session = &s
	}
	c.inflight = nil
	c.mu.Unlock()
	close(attempt.done)
	return session, err
}

// SignOut discards the active session: every registry entry held for
// the session key — the sign-in chain and any received delegations —
// is removed, persisted state cleared, and the controller returns to
// its pre-sign-in state. Idempotent.
func (c *Controller) SignOut() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	if did, err := c.keys.DID(c.keyID); err == nil {
		c.registry.RemoveKeysFor(did)
	} else {
		c.registry.RemoveKey(c.keyID)
	}
	c.session = nil
	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			return fmt.Errorf("session: clearing persisted state: %w", err)
		}
	}
	c.logger.Info("signed out", "key", c.keyID)
	return nil
}

func (c *Controller) performSignIn(ctx context.Context, wallet Wallet) (Session, error) {
	if c.engine == nil {
		return Session{}, fmt.Errorf("session: %w: no signing engine configured", ErrHandshakeFailed)
	}
	if c.spaces == nil {
		return Session{}, fmt.Errorf("session: %w: no space service configured", ErrHandshakeFailed)
	}
	keyDID, err := c.keys.DID(c.keyID)
	if err != nil {
		return Session{}, fmt.Errorf("session: %w: %w", ErrHandshakeFailed, err)
	}
	walletDID := walletDID(wallet)
	now := c.clk.Now()

	message := signInMessage(wallet, c.host, keyDID, now)
	resp, err := c.strategy.Resolve(ctx, approval.Request{
		Identity: walletDID,
		ChainID:  wallet.ChainID(),
		Message:  message,
		Kind:     approval.KindSIWE,
	})
	if err != nil {
		return Session{}, fmt.Errorf("session: resolving sign request: %w", err)
	}
	if !resp.Approved {
		if resp.Reason != "" {
			return Session{}, fmt.Errorf("%w: %s", ErrSignRejected, resp.Reason)
		}
		return Session{}, ErrSignRejected
	}

	// Approval gates the persisted state too: only now may a still
	// valid persisted session be resumed, skipping the wallet
	// signature and handshake.
	if c.store != nil {
		if resumed, ok := c.resume(walletDID, keyDID, now); ok {
			c.logger.Info("resumed persisted session",
				"space", resumed.SpaceID, "identity", walletDID)
			return resumed, nil
		}
	}

	signature := resp.Signature
	if signature == "" {
		signature, err = wallet.SignMessage(ctx, message)
		if err != nil {
			return Session{}, fmt.Errorf("session: %w: wallet signing: %w", ErrHandshakeFailed, err)
		}
	}
	if err := c.engine.Verify(ctx, walletDID, []byte(message), []byte(signature)); err != nil {
		return Session{}, fmt.Errorf("session: %w: verifying wallet signature: %w", ErrHandshakeFailed, err)
	}

	spaceCtx := space.Context{
		SpaceID: space.DeriveID(wallet.Address(), wallet.ChainID(), c.host),
		Address: wallet.Address(),
		ChainID: wallet.ChainID(),
		Host:    c.host,
	}
	exists, err := c.spaces.Exists(ctx, spaceCtx.SpaceID)
	if err != nil {
		return Session{}, fmt.Errorf("session: %w: checking space: %w", ErrHandshakeFailed, err)
	}

	root := delegation.Delegation{
		Delegator: walletDID,
		Delegate:  keyDID,
		Actions:   append([]string(nil), c.actions...),
		Expiry:    now.Add(c.ttl).Unix(),
	}
	root.Proof, err = c.engine.EncodeDelegation(ctx, root)
	if err != nil {
		return Session{}, fmt.Errorf("session: %w: encoding root delegation: %w", ErrHandshakeFailed, err)
	}
	root.ID, err = delegation.ComputeID(root)
	if err != nil {
		return Session{}, fmt.Errorf("session: %w: computing delegation ID: %w", ErrHandshakeFailed, err)
	}

	if !exists {
		if !c.autoSpcs {
			return Session{}, fmt.Errorf("session: %w: space %s does not exist", ErrHandshakeFailed, spaceCtx.SpaceID)
		}
		ok, err := c.handler.ConfirmCreation(ctx, spaceCtx)
		if err != nil {
			return Session{}, fmt.Errorf("session: confirming space creation: %w", err)
		}
		if !ok {
			return Session{}, ErrSpaceCreationDeclined
		}
		if err := c.spaces.Create(ctx, spaceCtx, root.Proof); err != nil {
			if c.observer != nil {
				c.observer.CreationFailed(spaceCtx, err)
			}
			return Session{}, fmt.Errorf("session: %w: creating space: %w", ErrHandshakeFailed, err)
		}
		if c.observer != nil {
			c.observer.Created(spaceCtx)
		}
		c.logger.Info("created space", "space", spaceCtx.SpaceID, "host", c.host)
	}

	if err := c.registry.RegisterKey(c.keyID, keyDID, []delegation.Delegation{root}); err != nil {
		return Session{}, fmt.Errorf("session: registering root delegation: %w", err)
	}

	session := Session{
		KeyID:           c.keyID,
		PrimaryDID:      walletDID,
		SpaceID:         spaceCtx.SpaceID,
		WalletConnected: true,
	}
	if c.store != nil {
		if err := c.store.Save(persistedSession{
			KeyID:      c.keyID,
			PrimaryDID: walletDID,
			SpaceID:    session.SpaceID,
			Chain:      []delegation.Delegation{root},
		}); err != nil {
			c.logger.Warn("persisting session failed", "error", err)
		}
	}
	c.logger.Info("signed in", "space", session.SpaceID, "identity", walletDID)
	return session, nil
}

// resume restores a persisted session when it matches the current
// wallet and key and its chain still validates.
func (c *Controller) resume(walletDID, keyDID string, now time.Time) (Session, bool) {
	ps, err := c.store.Load()
	if err != nil || ps == nil {
		return Session{}, false
	}
	if ps.PrimaryDID != walletDID || ps.KeyID != c.keyID {
		return Session{}, false
	}
	if err := delegation.ValidateChain(ps.Chain); err != nil {
		return Session{}, false
	}
	terminal := delegation.Terminal(ps.Chain)
	if terminal.Delegate != keyDID || !terminal.Active(now) {
		return Session{}, false
	}
	if err := c.registry.RegisterKey(ps.KeyID, keyDID, ps.Chain); err != nil {
		return Session{}, false
	}
	return Session{
		KeyID:           ps.KeyID,
		PrimaryDID:      ps.PrimaryDID,
		SpaceID:         ps.SpaceID,
		WalletConnected: true,
	}, true
}

// walletDID renders a wallet identity as a did:pkh identifier.
func walletDID(w Wallet) string {
	return fmt.Sprintf("did:pkh:eip155:%d:%s", w.ChainID(), strings.ToLower(w.Address()))
}

// signInMessage is the human-readable statement the wallet signs. The
// session key DID is bound into the message so the signature anchors
// this key, not just the host.
func signInMessage(w Wallet, host, keyDID string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your account:\n%s\n\n", host, w.Address())
	fmt.Fprintf(&b, "Authorize session key %s\n\n", keyDID)
	fmt.Fprintf(&b, "Chain ID: %d\n", w.ChainID())
	fmt.Fprintf(&b, "Issued At: %s\n", now.UTC().Format("2006-01-02T15:04:05Z"))
	return b.String()
}
