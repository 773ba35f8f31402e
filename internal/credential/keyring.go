// Package credential keeps secrets in the OS keyring, falling back to an
// encrypted file where no keyring service is available.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "deletion-planner"

// Keys under which secrets are stored.
const (
	KeyAPIToken     = "api-token"
	KeyIMAPPassword = "imap-password"
)

// TokenEnv overrides the stored API token when set.
const TokenEnv = "PLANNER_API_TOKEN"

// ErrNotFound is returned when no value is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Opener opens a keyring. Tests replace it with an in-memory ring.
var Opener = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/deletion-planner/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("deletion-planner-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key.
func Get(key string) (string, error) {
	ring, err := Opener()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func Set(key string, value string) error {
	ring, err := Opener()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "deletion-planner " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key.
func Delete(key string) error {
	ring, err := Opener()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// APIToken returns the token for the planning service. PLANNER_API_TOKEN
// wins over the keyring. A missing token is not an error: the service may
// not require one.
func APIToken() (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		return tok, nil
	}
	tok, err := Get(KeyAPIToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return tok, err
}
