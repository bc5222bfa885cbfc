// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/tessera-works/tessera/lib/codec"
	"github.com/tessera-works/tessera/lib/delegation"
	"github.com/tessera-works/tessera/lib/keyring"
)

// authorizationScheme prefixes the Authorization header value carrying
// an encoded delegation chain.
const authorizationScheme = "Tessera"

// Scope is the capability granted by an accepted delegation: the
// terminal path and action set a caller may operate within.
type Scope struct {
	controller     *Controller
	registrationID string
	terminal       delegation.Delegation
}

// Path returns the storage path prefix the scope is restricted to.
// Empty means the whole space.
func (s *Scope) Path() string {
	return s.terminal.Path
}

// Actions returns a copy of the granted action set.
func (s *Scope) Actions() []string {
	return append([]string(nil), s.terminal.Actions...)
}

// Allows reports whether the scope covers an action on a path at the
// given time.
func (s *Scope) Allows(path, action string, now time.Time) bool {
	return s.terminal.Active(now) &&
		s.terminal.HasAction(action) &&
		delegation.PathCovers(s.terminal.Path, path)
}

// Drop removes the scope's chain from the controller's registry. The
// delegation itself stays valid; only this controller forgets it.
func (s *Scope) Drop() {
	s.controller.registry.RemoveKey(s.registrationID)
}

// UseDelegation accepts a portable delegation envelope addressed to
// this controller's session key and registers its chain for use on
// outbound requests. The chain must validate and terminate at the
// current session key; when a signing engine is configured, each
// link's proof is additionally verified against its claimed content.
//
// Works in every state — a session-only controller holding a received
// delegation can operate on the granter's space without ever binding
// a wallet.
func (c *Controller) UseDelegation(ctx context.Context, encoded string) (*Scope, error) {
	portable, err := delegation.Decode(encoded)
	if err != nil {
		return nil, err
	}
	chain := portable.Chain()
	if err := delegation.ValidateChain(chain); err != nil {
		return nil, err
	}
	keyDID, err := c.keys.DID(c.keyID)
	if err != nil {
		return nil, fmt.Errorf("session: key %q: %w", c.keyID, err)
	}
	terminal := delegation.Terminal(chain)
	if terminal.Delegate != keyDID {
		return nil, fmt.Errorf("%w: delegation addressed to %s, session key is %s",
			delegation.ErrInvalidChain, terminal.Delegate, keyDID)
	}
	if c.engine != nil {
		for _, d := range chain {
			if err := verifyProof(ctx, c.engine, d); err != nil {
				return nil, err
			}
		}
	}

	// Registered under a derived ID so the sign-in chain (keyed by
	// the plain key ID) and multiple received delegations coexist.
	registrationID := c.keyID + ":" + shortDisplay(terminal.ID)
	if err := c.registry.RegisterKey(registrationID, keyDID, chain); err != nil {
		return nil, err
	}
	c.logger.Info("registered received delegation",
		"id", shortDisplay(terminal.ID), "path", terminal.Path, "actions", terminal.Actions)
	return &Scope{
		controller:     c,
		registrationID: registrationID,
		terminal:       terminal,
	}, nil
}

// verifyProof checks that a delegation's proof bytes decode, via the
// engine, to the delegation content they claim to sign.
func verifyProof(ctx context.Context, engine Engine, d delegation.Delegation) error {
	if len(d.Proof) == 0 {
		return fmt.Errorf("%w: delegation %s carries no proof", delegation.ErrInvalidChain, shortDisplay(d.ID))
	}
	decoded, err := engine.DecodeDelegation(ctx, d.Proof)
	if err != nil {
		return fmt.Errorf("%w: delegation %s proof: %w", delegation.ErrInvalidChain, shortDisplay(d.ID), err)
	}
	decodedID, err := delegation.ComputeID(decoded)
	if err != nil {
		return fmt.Errorf("%w: delegation %s proof: %w", delegation.ErrInvalidChain, shortDisplay(d.ID), err)
	}
	claimedID, err := delegation.ComputeID(d)
	if err != nil {
		return fmt.Errorf("%w: delegation %s: %w", delegation.ErrInvalidChain, shortDisplay(d.ID), err)
	}
	if decodedID != claimedID {
		return fmt.Errorf("%w: delegation %s proof signs different content",
			delegation.ErrInvalidChain, shortDisplay(d.ID))
	}
	return nil
}

// CreateRequest describes a delegation to mint for another identity.
// Over-asking is allowed: the granted scope is silently narrowed to
// what the issuing chain actually holds.
type CreateRequest struct {
	// Delegate is the recipient identity (a DID).
	Delegate string

	// Path restricts the grant to a storage prefix. Empty requests
	// the issuer's full path scope.
	Path string

	// Actions the recipient should receive.
	Actions []string

	// Expiry bounds the grant (unix seconds). Zero inherits the
	// issuing delegation's expiry.
	Expiry int64
}

// CreateDelegation mints a delegation for another identity, narrowed
// to fit inside a chain this controller holds. It requires a
// signed-in, wallet-bound session. The issuing chain is chosen by
// capability lookup over the requested path and actions;
// ErrInsufficientCapability is returned when no held chain covers any
// of the request. The result is a portable envelope the recipient
// redeems with UseDelegation.
func (c *Controller) CreateDelegation(ctx context.Context, req CreateRequest) (delegation.Portable, error) {
	if c.engine == nil {
		return delegation.Portable{}, fmt.Errorf("session: no signing engine configured")
	}
	c.mu.Lock()
	signedIn := c.session != nil && !c.session.SessionOnly && c.wallet != nil
	c.mu.Unlock()
	if !signedIn {
		return delegation.Portable{}, ErrNotSignedIn
	}
	if req.Delegate == "" {
		return delegation.Portable{}, fmt.Errorf("session: delegation requires a delegate identity")
	}
	if len(req.Actions) == 0 {
		return delegation.Portable{}, fmt.Errorf("session: delegation requires at least one action")
	}
	now := c.clk.Now()

	sel, ok := c.selectIssuer(req, now)
	if !ok {
		return delegation.Portable{}, fmt.Errorf("%w: no held delegation covers %q on path %q",
			ErrInsufficientCapability, req.Actions, req.Path)
	}
	terminal := sel.Terminal()

	path, actions, expiry := delegation.Clamp(req.Path, req.Actions, req.Expiry, terminal)
	if len(actions) == 0 {
		return delegation.Portable{}, fmt.Errorf("%w: none of %q held by issuing delegation",
			ErrInsufficientCapability, req.Actions)
	}

	child := delegation.Delegation{
		Delegator: sel.KeyDID,
		Delegate:  req.Delegate,
		Path:      path,
		Actions:   actions,
		Expiry:    expiry,
		NotBefore: now.Unix(),
		ParentID:  terminal.ID,
	}
	proof, err := c.engine.EncodeDelegation(ctx, child)
	if err != nil {
		return delegation.Portable{}, fmt.Errorf("session: encoding delegation: %w", err)
	}
	child.Proof = proof
	child.ID, err = delegation.ComputeID(child)
	if err != nil {
		return delegation.Portable{}, fmt.Errorf("session: computing delegation ID: %w", err)
	}

	fullChain := append(delegation.CopyChain(sel.Chain), child)
	header, err := headerValue(fullChain)
	if err != nil {
		return delegation.Portable{}, err
	}

	portable := delegation.Portable{
		Delegation:          child,
		Ancestors:           sel.Chain,
		AuthorizationHeader: header,
		Host:                c.host,
	}
	c.mu.Lock()
	if c.wallet != nil {
		portable.OwnerAddress = c.wallet.Address()
		portable.ChainID = c.wallet.ChainID()
	}
	c.mu.Unlock()

	c.logger.Info("created delegation",
		"id", shortDisplay(child.ID), "delegate", req.Delegate,
		"path", path, "actions", actions)
	return portable, nil
}

// selectIssuer finds a held chain that covers the request, trying
// each requested action in order so a partially matching chain still
// issues (the grant clamps to the intersection).
func (c *Controller) selectIssuer(req CreateRequest, now time.Time) (keyring.Selection, bool) {
	for _, action := range req.Actions {
		if sel, ok := c.registry.KeyForCapability(req.Path, action, now); ok {
			return sel, true
		}
	}
	return keyring.Selection{}, false
}

// Headers returns the request headers authorizing an action on a
// path, selected from the registered chains. Returns
// ErrInsufficientCapability when nothing registered covers the
// request.
func (c *Controller) Headers(path, action string) (map[string]string, error) {
	sel, ok := c.registry.KeyForCapability(path, action, c.clk.Now())
	if !ok {
		return nil, fmt.Errorf("%w: %q on path %q", ErrInsufficientCapability, action, path)
	}
	header, err := headerValue(sel.Chain)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": header}, nil
}

// Revoke marks a delegation ID revoked in this controller's registry
// until the given expiry. Advisory: holders of the chain elsewhere
// are unaffected until the service-side set learns of the
// revocation.
func (c *Controller) Revoke(delegationID string, expiresAt time.Time) {
	c.registry.Revoke(delegationID, expiresAt)
	c.logger.Info("revoked delegation", "id", shortDisplay(delegationID))
}

// headerValue renders an authorizing chain as an Authorization header
// value: the scheme followed by the base64url deterministic CBOR of
// the chain.
func headerValue(chain []delegation.Delegation) (string, error) {
	payload, err := codec.Marshal(chain)
	if err != nil {
		return "", fmt.Errorf("session: encoding authorization chain: %w", err)
	}
	return authorizationScheme + " " + base64.RawURLEncoding.EncodeToString(payload), nil
}

func shortDisplay(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
