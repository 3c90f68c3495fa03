package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/creatives/internal/apiclient"
	"github.com/isdelr/creatives/internal/credstore"
	"github.com/isdelr/creatives/internal/models"
	"github.com/isdelr/creatives/internal/session"
	"github.com/isdelr/creatives/internal/testutil"
)

type cliEnv struct {
	srv        *testutil.APIServer
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	srv := testutil.NewAPIServer(t)
	dir := t.TempDir()
	cfg := "api_url: " + srv.URL + "\n" +
		"state_path: " + filepath.Join(dir, "state.db") + "\n" +
		"log_level: error\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return &cliEnv{srv: srv, configPath: path}
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "", "login", "testuser", "-p", "test123")
	if err != nil {
		t.Fatalf("login failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Signed in successfully") {
		t.Errorf("login output: %q", out)
	}

	out, err = e.run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	for _, want := range []string{"@testuser", "Credits: 50", "Free"} {
		if !strings.Contains(out, want) {
			t.Errorf("whoami output missing %q:\n%s", want, out)
		}
	}

	out, err = e.run(t, "", "logout")
	if err != nil || !strings.Contains(out, "Signed out") {
		t.Fatalf("logout: %v\n%s", err, out)
	}

	_, err = e.run(t, "", "whoami")
	if !errors.Is(err, session.ErrLoginRequired) {
		t.Errorf("whoami after logout: got %v, want ErrLoginRequired", err)
	}
}

func TestLoginPromptsAndReportsFailure(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "testuser\nwrong\n", "login")
	if err == nil {
		t.Fatal("expected an error for a wrong password")
	}
	if !strings.Contains(out, "✗ Incorrect username or password") {
		t.Errorf("output: %q", out)
	}
}

func TestRegister(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "Passw0rd1\nPassw0rd2\n", "register", "--email", "new@example.com", "-u", "new_creator")
	var verr *models.ValidationError
	if !errors.As(err, &verr) || verr.Field != "confirm_password" {
		t.Fatalf("mismatched confirmation: got %v", err)
	}
	if !strings.Contains(out, "✗ confirm_password: passwords do not match") {
		t.Errorf("output: %q", out)
	}
	if _, err := e.srv.API.Users.GetUserByUsername("new_creator"); err == nil {
		t.Fatal("account created despite mismatched confirmation")
	}

	out, err = e.run(t, "Passw0rd1\nPassw0rd1\n", "register", "--email", "new@example.com", "-u", "new_creator", "--name", "New Creator")
	if err != nil {
		t.Fatalf("register failed: %v\n%s", err, out)
	}
	out, err = e.run(t, "", "whoami")
	if err != nil || !strings.Contains(out, "New Creator (@new_creator)") {
		t.Errorf("whoami after register: %v\n%s", err, out)
	}
}

func TestOAuthLogin(t *testing.T) {
	e := newCLIEnv(t)

	if _, err := e.run(t, "", "oauth", "myspace"); err == nil {
		t.Error("expected an error for an unknown provider")
	}
	out, err := e.run(t, "", "oauth", "telegram", "--id", "777", "--name", "Ann")
	if err != nil {
		t.Fatalf("oauth failed: %v\n%s", err, out)
	}
	out, err = e.run(t, "", "whoami")
	if err != nil || !strings.Contains(out, "@tg_777") {
		t.Errorf("whoami after oauth: %v\n%s", err, out)
	}
}

func TestAdminCredits(t *testing.T) {
	e := newCLIEnv(t)
	member, err := e.srv.API.Users.GetUserByUsername("testuser")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.run(t, "", "login", "testuser", "-p", "test123"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.run(t, "", "admin", "credits", member.ID, "10"); !errors.Is(err, session.ErrAdminRequired) {
		t.Errorf("member: got %v, want ErrAdminRequired", err)
	}

	if _, err := e.run(t, "", "login", "admin", "-p", "admin123"); err != nil {
		t.Fatal(err)
	}
	out, err := e.run(t, "", "admin", "credits", member.ID, "250")
	if err != nil {
		t.Fatalf("admin credits failed: %v\n%s", err, out)
	}
	out, err = e.run(t, "", "admin", "users")
	if err != nil || !strings.Contains(out, "testuser") {
		t.Errorf("admin users: %v\n%s", err, out)
	}

	if _, err := e.run(t, "", "login", "testuser", "-p", "test123"); err != nil {
		t.Fatal(err)
	}
	out, err = e.run(t, "", "refresh")
	if err != nil || !strings.Contains(out, "Credits: 250") {
		t.Errorf("refresh: %v\n%s", err, out)
	}
}

func TestMockProfile(t *testing.T) {
	p := mockProfile(models.ProviderGoogle, "abcdef123456", "", "")
	if p.GoogleID != "abcdef123456" || p.Email != "userabcdef12@gmail.com" || p.Name == "" {
		t.Errorf("google profile: %+v", p)
	}
	if p := mockProfile(models.ProviderVK, "9", "Ivan", ""); p.VKID != "9" || p.FirstName != "Ivan" {
		t.Errorf("vk profile: %+v", p)
	}
}

// syncBuffer is written by the watch loop while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchPrintsCreditChanges(t *testing.T) {
	e := newCLIEnv(t)
	if _, err := e.run(t, "", "login", "testuser", "-p", "test123"); err != nil {
		t.Fatal(err)
	}
	member, err := e.srv.API.Users.GetUserByUsername("testuser")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := apiclient.New(e.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := admin.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatal(err)
	}
	adminStore := credstore.NewMemory()
	adminStore.Set(context.Background(), credstore.CredentialKey, tok.AccessToken)
	admin, err = apiclient.New(e.srv.URL, apiclient.WithTokenSource(apiclient.StoreTokenSource(adminStore)))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--config", e.configPath, "watch"})
	cmd.SetOut(out)
	cmd.SetErr(out)
	errc := make(chan error, 1)
	go func() { errc <- cmd.ExecuteContext(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "Credits: 777") {
		if time.Now().After(deadline) {
			t.Fatalf("watch never printed the new balance:\n%s", out.String())
		}
		if _, err := admin.AdminSetCredits(ctx, member.ID, 777); err != nil {
			t.Fatalf("AdminSetCredits failed: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
