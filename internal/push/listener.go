// Package push keeps a websocket open to the API and refreshes the session
// whenever the server says the signed-in user changed.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isdelr/creatives/internal/apiclient"
	"github.com/isdelr/creatives/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 4096
)

// Session is what the listener drives.
type Session interface {
	RefreshUser(ctx context.Context)
	Invalidate(rejected string)
}

// Listener reconnects until its context ends.
type Listener struct {
	url     string
	tokens  apiclient.TokenSource
	session Session
	dialer  *websocket.Dialer

	MinBackoff time.Duration
	MaxBackoff time.Duration
	// OnConnect, if set, is called after every successful handshake.
	OnConnect func()
	// OnEvent, if set, sees every decoded event after it was handled.
	OnEvent func(models.PushEvent)
}

// NewListener builds a listener for the client's push endpoint. It reuses
// the client's cookie jar so the session cookie is sent as well.
func NewListener(client *apiclient.Client, session Session) *Listener {
	return &Listener{
		url:     client.PushURL(),
		tokens:  client.Token,
		session: session,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Jar:              client.Jar(),
		},
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is done. Without a credential it idles and checks
// again after the backoff.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.MinBackoff
	for {
		connected, err := l.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = l.MinBackoff
		}
		if err != nil {
			log.Debug().Err(err).Dur("retry_in", backoff).Msg("Push connection ended")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.MaxBackoff {
			backoff = l.MaxBackoff
		}
	}
}

var errNoCredential = errors.New("no credential")

func (l *Listener) connect(ctx context.Context) (bool, error) {
	token := l.tokens(ctx)
	if token == "" {
		return false, errNoCredential
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			l.session.Invalidate(token)
		}
		return false, err
	}
	defer conn.Close()
	log.Info().Str("url", l.url).Msg("Push connection established")
	if l.OnConnect != nil {
		l.OnConnect()
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var ev models.PushEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed push event")
			continue
		}
		l.handle(ctx, ev)
	}
}

func (l *Listener) handle(ctx context.Context, ev models.PushEvent) {
	switch ev.Type {
	case models.EventUserUpdated:
		l.session.RefreshUser(ctx)
	case models.EventError:
		log.Warn().Str("message", ev.Message).Msg("Push error event")
	default:
		log.Debug().Str("type", ev.Type).Msg("Unhandled push event")
	}
	if l.OnEvent != nil {
		l.OnEvent(ev)
	}
}
