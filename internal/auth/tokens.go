package auth

import (
	"encoding/hex"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/listenupapp/showcase-server/internal/id"
)

const (
	tokenIssuer   = "showcase-server"
	tokenAudience = "showcase-client"
)

var (
	// ErrMissingUserID is returned when a token is requested for an empty identity.
	ErrMissingUserID = errors.New("user id is required")
	// ErrTokenExpired is returned for an authentic token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// TokenService mints and verifies PASETO v4.local actor tokens.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
	now                 func() time.Time
}

// NewTokenService creates a token service from a hex-encoded 32-byte key.
func NewTokenService(keyHex string, accessDuration time.Duration) (*TokenService, error) {
	if err := checkKeyHex(keyHex); err != nil {
		return nil, fmt.Errorf("PASETO v4 key: %w", err)
	}
	keyBytes, _ := hex.DecodeString(keyHex)

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	if accessDuration <= 0 {
		return nil, fmt.Errorf("access token duration must be positive, got %s", accessDuration)
	}

	return &TokenService{
		symmetricKey:        key,
		accessTokenDuration: accessDuration,
		now:                 time.Now,
	}, nil
}

// GenerateAccessToken mints an encrypted token for the identity.
func (s *TokenService) GenerateAccessToken(who Identity) (string, error) {
	userID := strings.TrimSpace(who.UserID)
	if userID == "" {
		return "", ErrMissingUserID
	}

	now := s.now()
	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessTokenDuration))

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on unencodable values
	_ = token.Set("user_id", userID)
	if who.DisplayName != "" {
		//nolint:errcheck // see above
		_ = token.Set("display_name", who.DisplayName)
	}
	if who.PhotoURL != "" {
		//nolint:errcheck // see above
		_ = token.Set("photo_url", who.PhotoURL)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyAccessToken decrypts and validates a token, returning its claims.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	now := s.now()
	if exp, err := token.GetExpiration(); err == nil && now.After(exp) {
		return nil, ErrTokenExpired
	}
	if err := paseto.ValidAt(now)(*token); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: %w", ErrMissingUserID)
	}
	return &claims, nil
}

// AccessTokenDuration returns the configured token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
