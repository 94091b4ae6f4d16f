package auth

import (
	"time"
)

// AccessClaims are the claims carried by an actor token.
// v4.local tokens are encrypted, so clients cannot read them without the key.
type AccessClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Identity is who a token is minted for. The identity provider owns the
// account; this server only vouches for the id it was handed.
type Identity struct {
	UserID      string
	DisplayName string
	PhotoURL    string
}
