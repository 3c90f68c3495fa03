package services

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/creatives/internal/database"
	"github.com/isdelr/creatives/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func TestCreateAndAuthenticateUser(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	user, err := svc.CreateUser(models.Registration{
		Email:    "ann@example.com",
		Username: "ann_01",
		Password: "Secret123",
		FullName: "Ann",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.CreditsBalance != 50 || user.SubscriptionTier != models.TierFree {
		t.Errorf("new user: got %d credits, tier %q", user.CreditsBalance, user.SubscriptionTier)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked from CreateUser")
	}

	if _, err := svc.AuthenticateUser("ann_01", "Secret123"); err != nil {
		t.Fatalf("AuthenticateUser failed: %v", err)
	}
	if _, err := svc.AuthenticateUser("ann_01", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.AuthenticateUser("nobody", "Secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
}

func TestCreateUserRejectsDuplicatesAndInvalid(t *testing.T) {
	svc := NewUserService(newTestDB(t))
	reg := models.Registration{Email: "bob@example.com", Username: "bob", Password: "Secret123"}
	if _, err := svc.CreateUser(reg); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := svc.CreateUser(reg); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate: got %v, want ErrUserExists", err)
	}

	reg.Username = "admin"
	reg.Email = "other@example.com"
	var verr *models.ValidationError
	if _, err := svc.CreateUser(reg); !errors.As(err, &verr) {
		t.Errorf("reserved username: got %v, want ValidationError", err)
	}
}

func TestSeedAndSetCredits(t *testing.T) {
	svc := NewUserService(newTestDB(t))
	if err := svc.Seed(); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := svc.Seed(); err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}

	admin, err := svc.AuthenticateUser("admin", "admin123")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if !admin.IsAdmin || admin.SubscriptionTier != models.TierAgency {
		t.Errorf("admin: got admin=%v tier=%q", admin.IsAdmin, admin.SubscriptionTier)
	}

	test, err := svc.AuthenticateUser("testuser", "test123")
	if err != nil {
		t.Fatalf("testuser login failed: %v", err)
	}
	updated, err := svc.SetCredits(test.ID, 75)
	if err != nil {
		t.Fatalf("SetCredits failed: %v", err)
	}
	if updated.CreditsBalance != 75 {
		t.Errorf("balance: got %d, want 75", updated.CreditsBalance)
	}
	if _, err := svc.SetCredits("missing", 1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user: got %v, want ErrUserNotFound", err)
	}

	users, err := svc.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("ListUsers: got %d users, want 2", len(users))
	}
}

func TestFindOrCreateOAuthUser(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	first, err := svc.FindOrCreateOAuthUser(models.ProviderTelegram, models.OAuthProfile{TelegramID: "42", FirstName: "Tg"})
	if err != nil {
		t.Fatalf("telegram create failed: %v", err)
	}
	if first.Username != "tg_42" {
		t.Errorf("username: got %q, want tg_42", first.Username)
	}
	again, err := svc.FindOrCreateOAuthUser(models.ProviderTelegram, models.OAuthProfile{TelegramID: "42", FirstName: "Tg"})
	if err != nil {
		t.Fatalf("telegram lookup failed: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("second callback created a new user: %s != %s", again.ID, first.ID)
	}

	if _, err := svc.CreateUser(models.Registration{Email: "x@example.com", Username: "carol", Password: "Secret123"}); err != nil {
		t.Fatal(err)
	}
	g, err := svc.FindOrCreateOAuthUser(models.ProviderGoogle, models.OAuthProfile{GoogleID: "g1", Email: "carol@gmail.com", Name: "Carol"})
	if err != nil {
		t.Fatalf("google create failed: %v", err)
	}
	if g.Username != "carol1" {
		t.Errorf("google username: got %q, want carol1", g.Username)
	}

	if _, err := svc.FindOrCreateOAuthUser("myspace", models.OAuthProfile{}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestTokenRevocation(t *testing.T) {
	svc := NewTokenService(newTestDB(t))
	now := time.Now()

	if err := svc.Revoke("a", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := svc.Revoke("a", now.Add(time.Hour)); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
	if err := svc.Revoke("b", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	if ok, _ := svc.IsRevoked("a"); !ok {
		t.Error("token a should be revoked")
	}
	if ok, _ := svc.IsRevoked("c"); ok {
		t.Error("token c should not be revoked")
	}

	n, err := svc.PurgeExpired(now)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged: got %d, want 1", n)
	}
}
