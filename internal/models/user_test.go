package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTierDecoding(t *testing.T) {
	tests := []struct {
		wire    string
		want    Tier
		label   string
		credits int
	}{
		{"free", TierFree, "Free", 50},
		{"starter", TierStarter, "Starter", 500},
		{"pro", TierPro, "Pro", 2000},
		{"agency", TierAgency, "Agency", 10000},
		{"platinum", TierUnknown, "Unknown plan", 0},
		{"", TierUnknown, "Unknown plan", 0},
		{"PRO", TierUnknown, "Unknown plan", 0},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			var u User
			body := `{"id":"u1","username":"ann","subscription_tier":"` + tt.wire + `"}`
			if err := json.Unmarshal([]byte(body), &u); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if u.SubscriptionTier != tt.want {
				t.Errorf("tier: got %q, want %q", u.SubscriptionTier, tt.want)
			}
			if got := u.SubscriptionTier.Label(); got != tt.label {
				t.Errorf("Label: got %q, want %q", got, tt.label)
			}
			if got := u.SubscriptionTier.MonthlyCredits(); got != tt.credits {
				t.Errorf("MonthlyCredits: got %d, want %d", got, tt.credits)
			}
		})
	}
}

func TestTierRejectsNonString(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"subscription_tier":3}`), &u); err == nil {
		t.Error("expected an error for a numeric tier")
	}
}

func TestDisplayName(t *testing.T) {
	if got := (User{Username: "ann"}).DisplayName(); got != "ann" {
		t.Errorf("got %q", got)
	}
	if got := (User{Username: "ann", FullName: "Ann Lee"}).DisplayName(); got != "Ann Lee" {
		t.Errorf("got %q", got)
	}
}

func TestUserEqual(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := User{ID: "u1", Username: "ann", CreditsBalance: 50, SubscriptionTier: TierFree, CreatedAt: created}

	b := a
	b.CreatedAt = created.In(time.FixedZone("X", 3*3600))
	if !a.Equal(b) {
		t.Error("same instant in another location should be equal")
	}

	c := a
	c.CreditsBalance = 51
	if a.Equal(c) {
		t.Error("different balance should not be equal")
	}
}
