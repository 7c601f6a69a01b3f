// Package assistant – keyring.go stores the API key in the operating
// system's native keyring (Linux: Secret Service, macOS: Keychain,
// Windows: Credential Manager).
//
// Priority for resolving the key:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (BOTTI_API_KEY, OPENAI_API_KEY)
//  3. config.yaml value (least secure, plaintext on disk)
package assistant

import (
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "botti"
	keyringAPIKey  = "api_key"
)

// StoreAPIKey saves the API key to the OS keyring.
func StoreAPIKey(value string) error {
	return keyring.Set(keyringService, keyringAPIKey, value)
}

// DeleteAPIKey removes the API key from the OS keyring.
func DeleteAPIKey() error {
	return keyring.Delete(keyringService, keyringAPIKey)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__botti_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveAPIKey returns the API key from the keyring or environment.
// Empty when nothing is configured.
func ResolveAPIKey() string {
	if val, err := keyring.Get(keyringService, keyringAPIKey); err == nil && val != "" {
		return val
	}
	if val := os.Getenv("BOTTI_API_KEY"); val != "" {
		return val
	}
	return os.Getenv("OPENAI_API_KEY")
}
