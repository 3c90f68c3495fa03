// Package testutil starts a seeded reference API server for tests.
package testutil

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/creatives/internal/api"
	"github.com/isdelr/creatives/internal/config"
	"github.com/isdelr/creatives/internal/database"
)

// APIServer is a running reference server backed by a temporary database.
type APIServer struct {
	*httptest.Server
	API *api.Server
}

// NewAPIServer starts a seeded server that is shut down with the test.
func NewAPIServer(t *testing.T) *APIServer {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		AppEnv:         "test",
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	srv := api.NewServer(db, cfg)
	if err := srv.Users.Seed(); err != nil {
		t.Fatalf("seeding database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Hub.Run(ctx)

	ts := httptest.NewServer(srv.Router)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		db.Close()
	})
	return &APIServer{Server: ts, API: srv}
}
