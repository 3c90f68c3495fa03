package models

// TokenResponse is the body returned by the credential issuance endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreditsUpdate is returned after an admin adjusts a user's balance.
type CreditsUpdate struct {
	UserID     string `json:"user_id"`
	NewBalance int    `json:"new_balance"`
}
