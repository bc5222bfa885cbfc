// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessera-works/tessera/lib/approval"
	"github.com/tessera-works/tessera/lib/clock"
	"github.com/tessera-works/tessera/lib/codec"
	"github.com/tessera-works/tessera/lib/delegation"
	"github.com/tessera-works/tessera/lib/sessionkey"
	"github.com/tessera-works/tessera/lib/space"
	"github.com/tessera-works/tessera/lib/testutil"
)

// fakeEngine encodes delegations as their deterministic CBOR and
// verifies every signature. Good enough for lifecycle tests; the
// engine boundary is exercised, not the cryptography behind it.
type fakeEngine struct {
	verifyErr   error
	verifyCalls atomic.Int64
}

func (e *fakeEngine) Verify(_ context.Context, _ string, _, _ []byte) error {
	e.verifyCalls.Add(1)
	return e.verifyErr
}

func (e *fakeEngine) EncodeDelegation(_ context.Context, d delegation.Delegation) ([]byte, error) {
	return codec.Marshal(d)
}

func (e *fakeEngine) DecodeDelegation(_ context.Context, token []byte) (delegation.Delegation, error) {
	var d delegation.Delegation
	err := codec.Unmarshal(token, &d)
	return d, err
}

type fakeWallet struct {
	address   string
	chainID   uint64
	signCalls atomic.Int64
	signErr   error
}

func (w *fakeWallet) Address() string { return w.address }
func (w *fakeWallet) ChainID() uint64 { return w.chainID }

func (w *fakeWallet) SignMessage(_ context.Context, message string) (string, error) {
	w.signCalls.Add(1)
	if w.signErr != nil {
		return "", w.signErr
	}
	return "0xsigned:" + message[:20], nil
}

type fakeSpaces struct {
	mu        sync.Mutex
	exists    map[string]bool
	created   []space.Context
	createErr error
}

func newFakeSpaces() *fakeSpaces {
	return &fakeSpaces{exists: make(map[string]bool)}
}

func (s *fakeSpaces) Exists(_ context.Context, spaceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists[spaceID], nil
}

func (s *fakeSpaces) Create(_ context.Context, creation space.Context, rootProof []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if len(rootProof) == 0 {
		return errors.New("missing root proof")
	}
	s.exists[creation.SpaceID] = true
	s.created = append(s.created, creation)
	return nil
}

func (s *fakeSpaces) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// recordingHandler confirms per its approve flag and records outcome
// notifications.
type recordingHandler struct {
	approve  bool
	confirms atomic.Int64
	mu       sync.Mutex
	created  []space.Context
	failed   []error
}

func (h *recordingHandler) ConfirmCreation(_ context.Context, _ space.Context) (bool, error) {
	h.confirms.Add(1)
	return h.approve, nil
}

func (h *recordingHandler) Created(creation space.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, creation)
}

func (h *recordingHandler) CreationFailed(_ space.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = append(h.failed, err)
}

// countingStrategy approves every request after optionally blocking
// on a gate channel, and counts resolutions.
type countingStrategy struct {
	gate  chan struct{}
	calls atomic.Int64
}

func (s *countingStrategy) Resolve(ctx context.Context, _ approval.Request) (approval.Response, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return approval.Response{}, ctx.Err()
		}
	}
	return approval.Response{Approved: true}, nil
}

func testController(t *testing.T, mutate func(*Options)) (*Controller, *fakeSpaces, *fakeWallet) {
	t.Helper()
	keys, err := sessionkey.NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	wallet := &fakeWallet{address: "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", chainID: 1}
	spaces := newFakeSpaces()
	opts := Options{
		Keys:            keys,
		Strategy:        approval.AutoSign(nil),
		Spaces:          spaces,
		Engine:          &fakeEngine{},
		Wallet:          wallet,
		Host:            "https://node.tessera.example",
		AutoCreateSpace: true,
		Clock:           clock.Fake(time.Unix(1_700_000_000, 0)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, spaces, wallet
}

func TestSignInHandshake(t *testing.T) {
	c, spaces, wallet := testController(t, nil)

	if got := c.State(); got != StateWalletUnsigned {
		t.Fatalf("state before sign-in = %v, want %v", got, StateWalletUnsigned)
	}

	session, err := c.SignIn(t.Context())
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.SessionOnly {
		t.Error("signed-in session reports session-only")
	}
	if !session.WalletConnected {
		t.Error("signed-in session reports no wallet")
	}
	wantDID := "did:pkh:eip155:1:" + strings.ToLower(wallet.address)
	if session.PrimaryDID != wantDID {
		t.Errorf("PrimaryDID = %q, want %q", session.PrimaryDID, wantDID)
	}
	wantSpace := space.DeriveID(wallet.address, 1, "https://node.tessera.example")
	if session.SpaceID != wantSpace {
		t.Errorf("SpaceID = %q, want %q", session.SpaceID, wantSpace)
	}
	if got := c.State(); got != StateSignedIn {
		t.Errorf("state after sign-in = %v, want %v", got, StateSignedIn)
	}
	if spaces.createdCount() != 1 {
		t.Errorf("created %d spaces, want 1", spaces.createdCount())
	}
	if wallet.signCalls.Load() != 1 {
		t.Errorf("wallet signed %d times, want 1", wallet.signCalls.Load())
	}

	// The minted root grants the default actions on the whole space.
	headers, err := c.Headers("anything/doc.json", "kv/put")
	if err != nil {
		t.Fatalf("Headers after sign-in: %v", err)
	}
	if !strings.HasPrefix(headers["Authorization"], "Tessera ") {
		t.Errorf("Authorization = %q, want Tessera scheme", headers["Authorization"])
	}
}

func TestSignInIdempotent(t *testing.T) {
	c, _, wallet := testController(t, nil)

	first, err := c.SignIn(t.Context())
	if err != nil {
		t.Fatalf("first SignIn: %v", err)
	}
	second, err := c.SignIn(t.Context())
	if err != nil {
		t.Fatalf("second SignIn: %v", err)
	}
	if first != second {
		t.Errorf("repeat SignIn returned different session: %+v vs %+v", first, second)
	}
	if wallet.signCalls.Load() != 1 {
		t.Errorf("wallet signed %d times across repeat sign-ins, want 1", wallet.signCalls.Load())
	}
}

func TestSignInSingleFlight(t *testing.T) {
	strategy := &countingStrategy{gate: make(chan struct{})}
	c, _, wallet := testController(t, func(o *Options) {
		o.Strategy = strategy
	})

	const callers = 8
	results := make(chan error, callers)
	for range callers {
		go func() {
			_, err := c.SignIn(context.Background())
			results <- err
		}()
	}

	// Wait for the first caller to reach the strategy, then let the
	// handshake complete. Everyone shares its outcome.
	deadline := time.Now().Add(5 * time.Second)
	for strategy.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no caller reached the approval strategy")
		}
		time.Sleep(time.Millisecond)
	}
	close(strategy.gate)

	for range callers {
		if err := testutil.RequireReceive(t, results, 5*time.Second, "sign-in result"); err != nil {
			t.Errorf("SignIn: %v", err)
		}
	}
	if got := strategy.calls.Load(); got != 1 {
		t.Errorf("strategy resolved %d times, want 1", got)
	}
	if got := wallet.signCalls.Load(); got != 1 {
		t.Errorf("wallet signed %d times, want 1", got)
	}
}

func TestSignInRejected(t *testing.T) {
	c, spaces, _ := testController(t, func(o *Options) {
		o.Strategy = approval.AutoReject()
	})

	_, err := c.SignIn(t.Context())
	if !errors.Is(err, ErrSignRejected) {
		t.Fatalf("SignIn error = %v, want ErrSignRejected", err)
	}
	if got := c.State(); got != StateWalletUnsigned {
		t.Errorf("state after rejection = %v, want %v", got, StateWalletUnsigned)
	}
	if spaces.createdCount() != 0 {
		t.Errorf("rejected sign-in created %d spaces", spaces.createdCount())
	}

	// A failed attempt does not wedge the controller: the next call
	// starts a fresh handshake.
	if _, err := c.SignIn(t.Context()); !errors.Is(err, ErrSignRejected) {
		t.Fatalf("retry error = %v, want ErrSignRejected", err)
	}
}

func TestSignInWithoutWallet(t *testing.T) {
	c, _, _ := testController(t, func(o *Options) {
		o.Wallet = nil
	})

	if got := c.State(); got != StateSessionOnly {
		t.Fatalf("state = %v, want %v", got, StateSessionOnly)
	}
	if _, err := c.SignIn(t.Context()); !errors.Is(err, ErrWalletRequired) {
		t.Fatalf("SignIn error = %v, want ErrWalletRequired", err)
	}

	current := c.Current()
	if !current.SessionOnly {
		t.Error("session-only controller reports wallet-bound session")
	}
	if !strings.HasPrefix(current.PrimaryDID, "did:key:ed25519:") {
		t.Errorf("session-only PrimaryDID = %q, want session key DID", current.PrimaryDID)
	}
}

func TestSpaceCreationDeclined(t *testing.T) {
	handler := &recordingHandler{approve: false}
	c, spaces, _ := testController(t, func(o *Options) {
		o.SpaceHandler = handler
	})

	_, err := c.SignIn(t.Context())
	if !errors.Is(err, ErrSpaceCreationDeclined) {
		t.Fatalf("SignIn error = %v, want ErrSpaceCreationDeclined", err)
	}
	if spaces.createdCount() != 0 {
		t.Error("declined creation still provisioned a space")
	}
	if len(handler.created) != 0 || len(handler.failed) != 0 {
		t.Error("declined creation fired outcome hooks")
	}
}

func TestSpaceCreationFailure(t *testing.T) {
	handler := &recordingHandler{approve: true}
	c, spaces, _ := testController(t, func(o *Options) {
		o.SpaceHandler = handler
	})
	spaces.createErr = errors.New("host unreachable")

	_, err := c.SignIn(t.Context())
	if !errors.Is(err, ErrHandshakeFailed) {
		t.Fatalf("SignIn error = %v, want ErrHandshakeFailed", err)
	}
	if len(handler.failed) != 1 {
		t.Fatalf("CreationFailed fired %d times, want 1", len(handler.failed))
	}
	if len(handler.created) != 0 {
		t.Error("failed creation fired Created")
	}
}

func TestExistingSpaceSkipsConfirmation(t *testing.T) {
	handler := &recordingHandler{approve: true}
	c, spaces, wallet := testController(t, func(o *Options) {
		o.SpaceHandler = handler
	})
	spaces.exists[space.DeriveID(wallet.address, 1, "https://node.tessera.example")] = true

	if _, err := c.SignIn(t.Context()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if handler.confirms.Load() != 0 {
		t.Error("existing space triggered a creation confirmation")
	}
	if spaces.createdCount() != 0 {
		t.Error("existing space was re-created")
	}
}

func TestSignOut(t *testing.T) {
	c, _, _ := testController(t, nil)

	if _, err := c.SignIn(t.Context()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := c.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if got := c.State(); got != StateWalletUnsigned {
		t.Errorf("state after sign-out = %v, want %v", got, StateWalletUnsigned)
	}
	if _, err := c.Headers("doc.json", "kv/get"); !errors.Is(err, ErrInsufficientCapability) {
		t.Errorf("Headers after sign-out = %v, want ErrInsufficientCapability", err)
	}
	// Idempotent.
	if err := c.SignOut(); err != nil {
		t.Fatalf("repeat SignOut: %v", err)
	}
}

func TestSignOutDropsReceivedDelegations(t *testing.T) {
	c, _, _ := testController(t, nil)
	if _, err := c.SignIn(t.Context()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	keyDID, err := c.keys.DID(c.keyID)
	if err != nil {
		t.Fatalf("DID: %v", err)
	}
	now := c.clk.Now()

	if _, err := c.UseDelegation(t.Context(),
		grantTo(t, keyDID, "shared", []string{"kv/get"}, now.Add(time.Hour).Unix())); err != nil {
		t.Fatalf("UseDelegation: %v", err)
	}
	if _, err := c.Headers("shared/doc.json", "kv/get"); err != nil {
		t.Fatalf("Headers before sign-out: %v", err)
	}

	if err := c.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	// Received delegations are registered for the session key too and
	// must not survive sign-out.
	if _, err := c.Headers("shared/doc.json", "kv/get"); !errors.Is(err, ErrInsufficientCapability) {
		t.Errorf("Headers after sign-out = %v, want ErrInsufficientCapability", err)
	}
}

// grantTo builds an encoded portable envelope whose terminal
// delegation is addressed to the given key DID.
func grantTo(t *testing.T, keyDID, path string, actions []string, expiry int64) string {
	t.Helper()
	root := delegation.Delegation{
		Delegator: "did:pkh:eip155:1:0x00000000000000000000000000000000000000aa",
		Delegate:  keyDID,
		Path:      path,
		Actions:   actions,
		Expiry:    expiry,
	}
	var err error
	root.Proof, err = codec.Marshal(root)
	if err != nil {
		t.Fatalf("encoding proof: %v", err)
	}
	root.ID, err = delegation.ComputeID(root)
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	encoded, err := delegation.Encode(delegation.Portable{
		Delegation:   root,
		OwnerAddress: "0x00000000000000000000000000000000000000aa",
		ChainID:      1,
		Host:         "https://node.tessera.example",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return encoded
}

func TestUseDelegationSessionOnly(t *testing.T) {
	c, _, _ := testController(t, func(o *Options) {
		o.Wallet = nil
		o.Engine = nil
	})
	keyDID := c.Current().PrimaryDID
	now := c.clk.Now()

	scope, err := c.UseDelegation(t.Context(),
		grantTo(t, keyDID, "shared", []string{"kv/get", "kv/put"}, now.Add(time.Hour).Unix()))
	if err != nil {
		t.Fatalf("UseDelegation: %v", err)
	}
	if scope.Path() != "shared" {
		t.Errorf("scope path = %q, want shared", scope.Path())
	}
	if !scope.Allows("shared/doc.json", "kv/get", now) {
		t.Error("scope denies a granted action")
	}
	if scope.Allows("shared/doc.json", "kv/del", now) {
		t.Error("scope allows an ungranted action")
	}

	// Still session-only, yet the delegation authorizes requests.
	if got := c.State(); got != StateSessionOnly {
		t.Errorf("state = %v, want %v", got, StateSessionOnly)
	}
	if _, err := c.Headers("shared/doc.json", "kv/get"); err != nil {
		t.Errorf("Headers with received delegation: %v", err)
	}
	if _, err := c.Headers("private/doc.json", "kv/get"); !errors.Is(err, ErrInsufficientCapability) {
		t.Errorf("Headers outside grant = %v, want ErrInsufficientCapability", err)
	}

	scope.Drop()
	if _, err := c.Headers("shared/doc.json", "kv/get"); !errors.Is(err, ErrInsufficientCapability) {
		t.Errorf("Headers after Drop = %v, want ErrInsufficientCapability", err)
	}
}

func TestUseDelegationWrongRecipient(t *testing.T) {
	c, _, _ := testController(t, func(o *Options) {
		o.Wallet = nil
		o.Engine = nil
	})
	now := c.clk.Now()

	_, err := c.UseDelegation(t.Context(),
		grantTo(t, "did:key:ed25519:someoneelse", "shared", []string{"kv/get"}, now.Add(time.Hour).Unix()))
	if !errors.Is(err, delegation.ErrInvalidChain) {
		t.Fatalf("UseDelegation error = %v, want ErrInvalidChain", err)
	}
}

func TestCreateDelegationClamps(t *testing.T) {
	c, _, _ := testController(t, nil)
	if _, err := c.SignIn(t.Context()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	recipientKeys, err := sessionkey.NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	recipientDID, err := recipientKeys.DID(sessionkey.DefaultKeyID)
	if err != nil {
		t.Fatalf("DID: %v", err)
	}

	// Over-ask: an action the issuer does not hold and an expiry past
	// the issuing chain's. Both are narrowed, not rejected.
	farFuture := c.clk.Now().Add(365 * 24 * time.Hour).Unix()
	portable, err := c.CreateDelegation(t.Context(), CreateRequest{
		Delegate: recipientDID,
		Path:     "shared",
		Actions:  []string{"kv/get", "kv/put", "admin/grant"},
		Expiry:   farFuture,
	})
	if err != nil {
		t.Fatalf("CreateDelegation: %v", err)
	}

	child := portable.Delegation
	if want := []string{"kv/get", "kv/put"}; len(child.Actions) != 2 ||
		child.Actions[0] != want[0] || child.Actions[1] != want[1] {
		t.Errorf("clamped actions = %v, want %v", child.Actions, want)
	}
	parent := delegation.Terminal(portable.Ancestors)
	if child.Expiry != parent.Expiry {
		t.Errorf("clamped expiry = %d, want parent's %d", child.Expiry, parent.Expiry)
	}
	if child.ParentID != parent.ID {
		t.Errorf("ParentID = %s, want %s", child.ParentID, parent.ID)
	}
	if !strings.HasPrefix(child.Delegator, "did:key:ed25519:") {
		t.Errorf("Delegator = %q, want the session key DID", child.Delegator)
	}
	if err := delegation.ValidateChain(portable.Chain()); err != nil {
		t.Errorf("minted chain invalid: %v", err)
	}
	if portable.OwnerAddress == "" || portable.Host == "" {
		t.Error("portable envelope missing owner or host transport fields")
	}

	// The recipient redeems the envelope and can act within it.
	encoded, err := delegation.Encode(portable)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	recipient, err := New(Options{
		Keys:   recipientKeys,
		Engine: &fakeEngine{},
		Clock:  c.clk,
	})
	if err != nil {
		t.Fatalf("New recipient: %v", err)
	}
	scope, err := recipient.UseDelegation(t.Context(), encoded)
	if err != nil {
		t.Fatalf("recipient UseDelegation: %v", err)
	}
	if !scope.Allows("shared/notes/a.json", "kv/put", c.clk.Now()) {
		t.Error("recipient scope denies a granted action")
	}
	if _, err := recipient.Headers("shared/notes/a.json", "kv/get"); err != nil {
		t.Errorf("recipient Headers: %v", err)
	}
}

func TestCreateDelegationRequiresSignIn(t *testing.T) {
	c, _, _ := testController(t, nil)

	_, err := c.CreateDelegation(t.Context(), CreateRequest{
		Delegate: "did:key:ed25519:ffff",
		Actions:  []string{"kv/get"},
	})
	if !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("CreateDelegation before sign-in = %v, want ErrNotSignedIn", err)
	}
}

func TestCreateDelegationInsufficient(t *testing.T) {
	c, _, _ := testController(t, nil)
	if _, err := c.SignIn(t.Context()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	_, err := c.CreateDelegation(t.Context(), CreateRequest{
		Delegate: "did:key:ed25519:ffff",
		Path:     "shared",
		Actions:  []string{"admin/grant"},
	})
	if !errors.Is(err, ErrInsufficientCapability) {
		t.Fatalf("CreateDelegation error = %v, want ErrInsufficientCapability", err)
	}
}

func TestRevokeDelegation(t *testing.T) {
	c, _, _ := testController(t, nil)
	if _, err := c.SignIn(t.Context()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	chain, ok := c.registry.Chain(c.keyID)
	if !ok {
		t.Fatal("no chain registered after sign-in")
	}
	root := delegation.Terminal(chain)

	c.Revoke(root.ID, time.Unix(root.Expiry, 0))
	if _, err := c.Headers("doc.json", "kv/get"); !errors.Is(err, ErrInsufficientCapability) {
		t.Errorf("Headers after revoke = %v, want ErrInsufficientCapability", err)
	}
}

func TestSessionResume(t *testing.T) {
	dir := t.TempDir()
	keys, err := sessionkey.NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	first, _, _ := testController(t, func(o *Options) {
		o.Keys = keys
		o.StateDir = dir
	})
	original, err := first.SignIn(t.Context())
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	// Approval gates the persisted state: a rejecting strategy never
	// reaches the signed-in session even though valid state is on
	// disk.
	rejecting, _, _ := testController(t, func(o *Options) {
		o.Keys = keys
		o.StateDir = dir
		o.Strategy = approval.AutoReject()
	})
	if _, err := rejecting.SignIn(t.Context()); !errors.Is(err, ErrSignRejected) {
		t.Fatalf("rejected SignIn over persisted state = %v, want ErrSignRejected", err)
	}
	if _, err := rejecting.Headers("doc.json", "kv/get"); !errors.Is(err, ErrInsufficientCapability) {
		t.Errorf("Headers after rejected resume = %v, want ErrInsufficientCapability", err)
	}

	// An approving controller over the same key and state dir resumes
	// after approval, skipping the wallet signature and handshake.
	strategy := &countingStrategy{}
	resumedCtl, resumedSpaces, resumedWallet := testController(t, func(o *Options) {
		o.Keys = keys
		o.StateDir = dir
		o.Strategy = strategy
	})
	resumed, err := resumedCtl.SignIn(t.Context())
	if err != nil {
		t.Fatalf("resumed SignIn: %v", err)
	}
	if resumed != original {
		t.Errorf("resumed session %+v differs from original %+v", resumed, original)
	}
	if strategy.calls.Load() != 1 {
		t.Errorf("strategy resolved %d times, want 1", strategy.calls.Load())
	}
	if resumedWallet.signCalls.Load() != 0 {
		t.Errorf("resume signed %d times, want 0", resumedWallet.signCalls.Load())
	}
	if resumedSpaces.createdCount() != 0 {
		t.Errorf("resume created %d spaces, want 0", resumedSpaces.createdCount())
	}
	if _, err := resumedCtl.Headers("doc.json", "kv/get"); err != nil {
		t.Errorf("Headers after resume: %v", err)
	}

	// Sign-out clears the persisted state; the next controller must
	// handshake again.
	if err := resumedCtl.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	third, _, _ := testController(t, func(o *Options) {
		o.Keys = keys
		o.StateDir = dir
		o.Strategy = approval.AutoReject()
	})
	if _, err := third.SignIn(t.Context()); !errors.Is(err, ErrSignRejected) {
		t.Fatalf("post-sign-out SignIn = %v, want ErrSignRejected", err)
	}
}

func TestHeadersRoundTrip(t *testing.T) {
	c, _, _ := testController(t, nil)
	if _, err := c.SignIn(t.Context()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	headers, err := c.Headers("notes/today.json", "kv/get")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	value, ok := strings.CutPrefix(headers["Authorization"], "Tessera ")
	if !ok {
		t.Fatalf("Authorization = %q, want Tessera scheme", headers["Authorization"])
	}
	payload, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		t.Fatalf("decoding header payload: %v", err)
	}
	var chain []delegation.Delegation
	if err := codec.Unmarshal(payload, &chain); err != nil {
		t.Fatalf("decoding chain: %v", err)
	}
	if err := delegation.ValidateChain(chain); err != nil {
		t.Errorf("header chain invalid: %v", err)
	}
	if !delegation.Terminal(chain).HasAction("kv/get") {
		t.Error("header chain does not grant the requested action")
	}
}
