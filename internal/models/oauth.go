package models

import (
	"fmt"
	"sort"
)

// OAuthProfile is the provider payload posted to a mock OAuth callback.
// Each provider only reads the fields it knows about.
type OAuthProfile struct {
	TelegramID  string `json:"telegram_id,omitempty"`
	VKID        string `json:"vk_id,omitempty"`
	GoogleID    string `json:"google_id,omitempty"`
	YandexID    string `json:"yandex_id,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Username    string `json:"username,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Supported mock OAuth providers.
const (
	ProviderTelegram = "telegram"
	ProviderVK       = "vk"
	ProviderGoogle   = "google"
	ProviderYandex   = "yandex"
)

var providers = map[string]bool{
	ProviderTelegram: true,
	ProviderVK:       true,
	ProviderGoogle:   true,
	ProviderYandex:   true,
}

// Providers lists the supported provider names in a stable order.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckProvider returns an error for an unsupported provider name.
func CheckProvider(name string) error {
	if !providers[name] {
		return &ValidationError{Field: "provider", Message: fmt.Sprintf("unsupported provider %q", name)}
	}
	return nil
}
