package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/creatives/internal/apiclient"
	"github.com/isdelr/creatives/internal/config"
	"github.com/isdelr/creatives/internal/credstore"
	"github.com/isdelr/creatives/internal/logger"
	"github.com/isdelr/creatives/internal/notify"
	"github.com/isdelr/creatives/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// runtime is everything a command needs once the session is resolved.
type runtime struct {
	cfg     *config.ClientConfig
	store   *credstore.SQLite
	client  *apiclient.Client
	session *session.Manager
	gate    *session.Gate

	// notices is set for long-running commands, which print notifications
	// from their own loop instead of inline.
	notices    *notify.Hub
	stopNotify context.CancelFunc
}

// open loads configuration, opens the state database and resolves the
// stored session. Callers must Close the runtime.
func (a *app) open(cmd *cobra.Command) (*runtime, error) {
	return a.build(cmd, false)
}

// openLive is open for commands that keep running and consume notifications
// through rt.notices.
func (a *app) openLive(cmd *cobra.Command) (*runtime, error) {
	return a.build(cmd, true)
}

func (a *app) build(cmd *cobra.Command, live bool) (*runtime, error) {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.apiURL != "" {
		cfg.APIURL = strings.TrimRight(a.apiURL, "/")
	}
	if a.statePath != "" {
		cfg.StatePath = a.statePath
	}
	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	logger.InitWriter(cmd.ErrOrStderr(), level)

	store, err := credstore.OpenSQLite(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	client, err := apiclient.New(cfg.APIURL,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithTokenSource(apiclient.StoreTokenSource(store)),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	rt := &runtime{cfg: cfg, store: store, client: client, stopNotify: func() {}}
	notifier := notify.Multi{notify.Log{Logger: log.Logger}}
	if live {
		rt.notices = notify.NewHub()
		var ctx context.Context
		ctx, rt.stopNotify = context.WithCancel(context.Background())
		go rt.notices.Run(ctx)
		notifier = append(notifier, rt.notices)
	} else {
		notifier = append(notifier, notify.NewWriter(cmd.OutOrStdout()))
	}

	manager := session.New(client, store, notifier,
		session.WithResolveTimeout(cfg.ResolveTimeout),
		session.WithLogger(log.Logger),
	)
	client.OnUnauthorized(manager.Invalidate)
	manager.Resolve(cmd.Context())

	rt.session = manager
	rt.gate = session.NewGate(manager)
	return rt, nil
}

// Close stops the notification hub and releases the state database.
func (rt *runtime) Close() error {
	rt.stopNotify()
	return rt.store.Close()
}

// enter applies the access gate and turns a redirect into a hint.
func (rt *runtime) enter(cmd *cobra.Command, req session.Requirement) (session.Snapshot, error) {
	snap, err := rt.gate.Enter(cmd.Context(), req)
	switch {
	case errors.Is(err, session.ErrLoginRequired):
		return snap, fmt.Errorf("%w; run: creatives login", err)
	case errors.Is(err, session.ErrAdminRequired):
		return snap, fmt.Errorf("%w; signed in as %s", err, snap.User.Username)
	}
	return snap, err
}
