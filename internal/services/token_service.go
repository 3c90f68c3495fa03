package services

import (
	"database/sql"
	"time"
)

// TokenServiceProvider defines the interface for credential revocation.
type TokenServiceProvider interface {
	Revoke(tokenID string, expiresAt time.Time) error
	IsRevoked(tokenID string) (bool, error)
	PurgeExpired(now time.Time) (int64, error)
}

// TokenService records token IDs invalidated by logout.
type TokenService struct {
	db *sql.DB
}

// NewTokenService creates a new TokenService.
func NewTokenService(db *sql.DB) *TokenService {
	return &TokenService{db: db}
}

// Revoke marks a token ID as no longer valid. Revoking twice is not an error.
func (s *TokenService) Revoke(tokenID string, expiresAt time.Time) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)", tokenID, expiresAt.Unix())
	return err
}

// IsRevoked reports whether a token ID was revoked.
func (s *TokenService) IsRevoked(tokenID string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ?", tokenID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeExpired drops revocations for tokens that have expired on their own.
func (s *TokenService) PurgeExpired(now time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM revoked_tokens WHERE expires_at < ?", now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
