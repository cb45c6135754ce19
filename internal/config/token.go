package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken is returned when no auth token has been stored yet.
var ErrNoToken = errors.New("no auth token stored")

// TokenPath returns the default location of the daemon's auth token.
func TokenPath() string {
	return filepath.Join(DataDir(), "auth.token")
}

// LoadToken reads the token stored at path.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// LoadOrCreateToken loads the token at path, generating and storing a new
// one with 0600 permissions if none exists.
func LoadOrCreateToken(path string) (string, error) {
	token, err := LoadToken(path)
	if !errors.Is(err, ErrNoToken) {
		return token, err
	}

	// 32 bytes = 64 hex characters
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token = hex.EncodeToString(tokenBytes)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return "", fmt.Errorf("write token file: %w", err)
	}
	return token, nil
}
