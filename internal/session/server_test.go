package session

import (
	"context"
	"testing"

	"github.com/isdelr/creatives/internal/apiclient"
	"github.com/isdelr/creatives/internal/credstore"
	"github.com/isdelr/creatives/internal/testutil"
)

func newServerManager(t *testing.T, store credstore.Store) (*Manager, *apiclient.Client, *testutil.APIServer) {
	t.Helper()
	srv := testutil.NewAPIServer(t)
	client, err := apiclient.New(srv.URL, apiclient.WithTokenSource(apiclient.StoreTokenSource(store)))
	if err != nil {
		t.Fatalf("apiclient.New failed: %v", err)
	}
	m := New(client, store, nil)
	client.OnUnauthorized(m.Invalidate)
	return m, client, srv
}

func TestSessionAgainstServer(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemory()
	m, _, srv := newServerManager(t, store)

	m.Resolve(ctx)
	if err := m.Login(ctx, "testuser", "test123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	snap := m.Snapshot()
	if snap.User.CreditsBalance != 50 {
		t.Fatalf("got %+v", snap.User)
	}

	if _, err := srv.API.Users.SetCredits(snap.User.ID, 120); err != nil {
		t.Fatalf("SetCredits failed: %v", err)
	}
	m.RefreshUser(ctx)
	if got := m.Snapshot().User.CreditsBalance; got != 120 {
		t.Errorf("after refresh: got %d, want 120", got)
	}

	tok, _, _ := store.Get(ctx, credstore.CredentialKey)
	m.Logout(ctx)

	// The revoked credential must not resolve a new session.
	store.Set(ctx, credstore.CredentialKey, tok)
	again := New(m.gateway, store, nil)
	again.Resolve(ctx)
	if got := again.Snapshot().Status; got != StatusUnauthenticated {
		t.Errorf("revoked credential resolved to %v", got)
	}
}

func TestRefreshRejectedWithoutClientHook(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemory()
	srv := testutil.NewAPIServer(t)
	client, err := apiclient.New(srv.URL, apiclient.WithTokenSource(apiclient.StoreTokenSource(store)))
	if err != nil {
		t.Fatalf("apiclient.New failed: %v", err)
	}
	// No OnUnauthorized hook: the manager must act on the 401 itself.
	m := New(client, store, nil)
	m.Resolve(ctx)
	if err := m.Login(ctx, "testuser", "test123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Revoke the credential server-side while keeping it stored locally.
	if err := client.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	m.RefreshUser(ctx)

	if got := m.Snapshot().Status; got != StatusUnauthenticated {
		t.Errorf("status after rejected refresh: got %v", got)
	}
	if _, ok, _ := store.Get(ctx, credstore.CredentialKey); ok {
		t.Error("rejected credential still stored")
	}
}
