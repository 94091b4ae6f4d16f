// Package auth mints and verifies the actor tokens that authenticate
// showcase owners and commenters.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PASETO v4 requires a 256-bit symmetric key.
	keyLength    = 32
	keyHexLength = 64

	// KeyFileName is the key file created under the data directory.
	KeyFileName = "auth.key"
)

// LoadOrGenerateKey returns the hex-encoded token key stored at keyPath,
// creating the file with a fresh random key when it does not exist yet.
func LoadOrGenerateKey(keyPath string) (string, error) {
	//#nosec G304 -- key path comes from operator configuration
	raw, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		keyHex := strings.TrimSpace(string(raw))
		if err := checkKeyHex(keyHex); err != nil {
			return "", fmt.Errorf("auth key %s: %w", keyPath, err)
		}
		return keyHex, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read auth key: %w", err)
	}

	keyHex, err := GenerateKey()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return "", fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("save auth key: %w", err)
	}
	return keyHex, nil
}

// GenerateKey returns a new random hex-encoded token key.
func GenerateKey() (string, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate auth key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func checkKeyHex(keyHex string) error {
	if len(keyHex) != keyHexLength {
		return fmt.Errorf("expected %d hex chars, got %d", keyHexLength, len(keyHex))
	}
	if _, err := hex.DecodeString(keyHex); err != nil {
		return fmt.Errorf("not valid hex: %w", err)
	}
	return nil
}
