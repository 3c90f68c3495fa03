package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/creatives/internal/apiclient"
	"github.com/isdelr/creatives/internal/credstore"
	"github.com/isdelr/creatives/internal/models"
	"github.com/isdelr/creatives/internal/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultResolveTimeout bounds the startup identity check.
const DefaultResolveTimeout = 10 * time.Second

// Gateway is the subset of the API client the session depends on.
type Gateway interface {
	CurrentUserWith(ctx context.Context, credential string) (models.User, error)
	Login(ctx context.Context, username, password string) (models.TokenResponse, error)
	Register(ctx context.Context, reg models.Registration) (models.User, error)
	Logout(ctx context.Context) error
	OAuthCallback(ctx context.Context, provider string, profile models.OAuthProfile) (models.TokenResponse, error)
}

// Manager is the single authority for who is signed in.
type Manager struct {
	gateway        Gateway
	store          credstore.Store
	notifier       notify.Notifier
	logger         zerolog.Logger
	resolveTimeout time.Duration

	resolveOnce sync.Once

	mu       sync.Mutex
	status   Status
	user     *models.User
	resolved chan struct{}
	subs     map[chan Snapshot]struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithResolveTimeout bounds Resolve. Non-positive values are ignored.
func WithResolveTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.resolveTimeout = d
		}
	}
}

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates an unresolved Manager. A nil notifier discards notifications.
func New(gateway Gateway, store credstore.Store, notifier notify.Notifier, opts ...Option) *Manager {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	m := &Manager{
		gateway:        gateway,
		store:          store,
		notifier:       notifier,
		logger:         log.Logger,
		resolveTimeout: DefaultResolveTimeout,
		status:         StatusUnresolved,
		resolved:       make(chan struct{}),
		subs:           make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{Status: m.status}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// Subscribe returns a feed of snapshots taken after every state change, and
// a function that ends the subscription. A slow reader skips intermediate
// snapshots but always receives the latest one.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// WaitResolved blocks until the status leaves StatusUnresolved.
func (m *Manager) WaitResolved(ctx context.Context) (Snapshot, error) {
	select {
	case <-m.resolved:
		return m.Snapshot(), nil
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

// setLocked replaces the whole state and notifies subscribers.
func (m *Manager) setLocked(status Status, user *models.User) {
	if m.status == StatusUnresolved && status != StatusUnresolved {
		close(m.resolved)
	}
	m.status = status
	m.user = user
	snap := m.snapshotLocked()
	for ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (m *Manager) storedCredential(ctx context.Context) (string, bool) {
	tok, ok, err := m.store.Get(ctx, credstore.CredentialKey)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to read stored credential")
		return "", false
	}
	return tok, ok && tok != ""
}

// Resolve checks the stored credential once per Manager. It never fails:
// any problem leaves the session unauthenticated with the credential removed.
// Concurrent and later calls wait for the first one to finish.
func (m *Manager) Resolve(ctx context.Context) {
	m.resolveOnce.Do(func() { m.resolve(ctx) })
}

func (m *Manager) resolve(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.resolveTimeout)
	defer cancel()

	token, ok := m.storedCredential(ctx)
	if !ok {
		m.finishResolve(ctx, "", nil)
		return
	}

	user, err := m.gateway.CurrentUserWith(ctx, token)
	if err != nil {
		m.logger.Info().Err(err).Msg("Stored credential rejected, starting signed out")
		m.finishResolve(ctx, token, nil)
		return
	}
	m.finishResolve(ctx, token, &user)
}

// finishResolve applies the outcome unless a sign-in already resolved the
// session while the check was in flight.
func (m *Manager) finishResolve(ctx context.Context, checked string, user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusUnresolved {
		return
	}
	if user != nil {
		m.setLocked(StatusAuthenticated, user)
		m.logger.Debug().Str("user_id", user.ID).Msg("Session resolved")
		return
	}
	if checked != "" {
		// Fresh context: the resolve deadline may be what failed.
		if err := m.store.Delete(context.WithoutCancel(ctx), credstore.CredentialKey); err != nil {
			m.logger.Error().Err(err).Msg("Failed to discard rejected credential")
		}
	}
	m.setLocked(StatusUnauthenticated, nil)
}

// Login exchanges a username and password for a session. Either both the
// credential and the user are set, or neither. Errors are notified and
// returned.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	tok, err := m.gateway.Login(ctx, identifier, secret)
	if err != nil {
		m.notifier.Error(apiclient.Detail(err, "Sign-in failed"))
		return fmt.Errorf("signing in: %w", err)
	}
	if err := m.establish(ctx, tok.AccessToken); err != nil {
		m.notifier.Error(apiclient.Detail(err, "Sign-in failed"))
		return fmt.Errorf("signing in: %w", err)
	}
	m.notifier.Success("Signed in successfully")
	return nil
}

// LoginWithProvider signs in through a mock social provider with the same
// all-or-nothing contract as Login.
func (m *Manager) LoginWithProvider(ctx context.Context, provider string, profile models.OAuthProfile) error {
	if err := models.CheckProvider(provider); err != nil {
		return err
	}
	tok, err := m.gateway.OAuthCallback(ctx, provider, profile)
	if err != nil {
		m.notifier.Error(apiclient.Detail(err, "Sign-in with "+provider+" failed"))
		return fmt.Errorf("signing in with %s: %w", provider, err)
	}
	if err := m.establish(ctx, tok.AccessToken); err != nil {
		m.notifier.Error(apiclient.Detail(err, "Sign-in with "+provider+" failed"))
		return fmt.Errorf("signing in with %s: %w", provider, err)
	}
	m.notifier.Success("Welcome! Signed in with " + provider)
	return nil
}

// establish identifies a freshly issued credential and only then commits
// credential and user together.
func (m *Manager) establish(ctx context.Context, credential string) error {
	if credential == "" {
		return fmt.Errorf("%w: empty credential", apiclient.ErrMalformedResponse)
	}
	user, err := m.gateway.CurrentUserWith(ctx, credential)
	if err != nil {
		return fmt.Errorf("fetching current user: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Set(ctx, credstore.CredentialKey, credential); err != nil {
		return fmt.Errorf("persisting credential: %w", err)
	}
	m.setLocked(StatusAuthenticated, &user)
	m.logger.Debug().Str("user_id", user.ID).Msg("Signed in")
	return nil
}

// Register validates the form locally, creates the account and signs in
// with the same credentials. A failure of the follow-up sign-in is returned
// wrapped in ErrRegisterLogin.
func (m *Manager) Register(ctx context.Context, email, identifier, secret, displayName string) error {
	reg := models.Registration{
		Email:    email,
		Username: identifier,
		Password: secret,
		FullName: displayName,
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	if _, err := m.gateway.Register(ctx, reg); err != nil {
		m.notifier.Error(apiclient.Detail(err, "Registration failed"))
		return fmt.Errorf("creating account: %w", err)
	}
	m.notifier.Success("Registration successful! Welcome!")

	if err := m.Login(ctx, identifier, secret); err != nil {
		return fmt.Errorf("%w: %w", ErrRegisterLogin, err)
	}
	return nil
}

// Logout tells the server to drop the credential, then clears local state
// whatever the server said.
func (m *Manager) Logout(ctx context.Context) {
	serverErr := m.gateway.Logout(ctx)
	if serverErr != nil {
		m.logger.Warn().Err(serverErr).Msg("Server-side logout failed")
	}

	m.mu.Lock()
	if err := m.store.Delete(context.WithoutCancel(ctx), credstore.CredentialKey); err != nil {
		m.logger.Error().Err(err).Msg("Failed to remove stored credential")
	}
	m.setLocked(StatusUnauthenticated, nil)
	m.mu.Unlock()

	if serverErr != nil {
		m.notifier.Error("Signed out on this device, but the server did not confirm it")
		return
	}
	m.notifier.Success("Signed out")
}

// RefreshUser re-fetches the current user and replaces it wholesale.
// Failures keep the stale user; the response that arrives last wins.
func (m *Manager) RefreshUser(ctx context.Context) {
	if m.Snapshot().Status != StatusAuthenticated {
		return
	}
	token, ok := m.storedCredential(ctx)
	if !ok {
		return
	}

	user, err := m.gateway.CurrentUserWith(ctx, token)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			m.Invalidate(token)
			return
		}
		m.logger.Warn().Err(err).Msg("Failed to refresh user")
		m.notifier.Error("Could not refresh account details")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, _ := m.storedCredential(ctx)
	if m.status != StatusAuthenticated || current != token {
		// Signed out or switched accounts while the request was in flight.
		return
	}
	m.setLocked(StatusAuthenticated, &user)
}

// Invalidate drops the session after the server rejected credential. Stale
// rejections (for a credential no longer stored) and rejections while
// unresolved are ignored.
func (m *Manager) Invalidate(credential string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusAuthenticated {
		return
	}
	ctx := context.Background()
	current, _ := m.storedCredential(ctx)
	if credential != "" && current != credential {
		return
	}
	if err := m.store.Delete(ctx, credstore.CredentialKey); err != nil {
		m.logger.Error().Err(err).Msg("Failed to remove rejected credential")
	}
	m.setLocked(StatusUnauthenticated, nil)
	m.notifier.Error("Your session has expired, please sign in again")
}
