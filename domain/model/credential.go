package model

import "time"

// TikTokCredential stores the OAuth token material for one platform user.
// Exactly one live credential exists per user; updates replace in place.
// AccessToken and RefreshToken are plaintext here — the persistence layer
// encrypts them before they touch storage.
type TikTokCredential struct {
	UserID           string    `json:"user_id"`
	OpenID           string    `json:"open_id"`
	AccessToken      string    `json:"-"`
	RefreshToken     string    `json:"-"`
	Scope            string    `json:"scope"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Expired reports whether the access token reaches its expiry within margin.
func (c *TikTokCredential) Expired(margin time.Duration) bool {
	return time.Until(c.ExpiresAt) <= margin
}

// HandshakeState is the ephemeral anti-forgery record for an authorization
// handshake. Single-use: consumed and deleted atomically on callback.
type HandshakeState struct {
	StateValue   string    `json:"-"`
	UserID       string    `json:"user_id"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}
