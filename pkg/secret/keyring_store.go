// Package secret keeps connection secrets, such as a MongoDB URI with
// credentials, in the system keychain instead of the configuration file.
package secret

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"jmdict/pkg/config"
)

const keyringService = "jmdict"

// MongoURIKey is the keychain entry holding the MongoDB connection string
const MongoURIKey = "mongo_uri"

// ErrNotFound is returned when no secret is stored under a key
var ErrNotFound = errors.New("secret not found")

// Store reads and writes named secrets
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// KeyringStore implements Store using the system keychain
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keychain-backed store
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService}
}

// Get returns the secret stored under key
func (k *KeyringStore) Get(key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (k *KeyringStore) Set(key, value string) error {
	if value == "" {
		return errors.New("secret value is required")
	}
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes the secret stored under key
func (k *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// ResolveMongoURI fills cfg.URI from store when the keychain is enabled for
// MongoDB and no URI was configured. A URI set in the configuration wins.
func ResolveMongoURI(store Store, cfg *config.MongoConfig) error {
	if !cfg.UseKeyring || cfg.URI != "" {
		return nil
	}

	uri, err := store.Get(MongoURIKey)
	if err != nil {
		return fmt.Errorf("mongo.use_keyring is set but the URI could not be read: %w", err)
	}
	cfg.URI = uri
	return nil
}

// Mask hides the middle of a secret for display
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 12 {
		return "***"
	}
	return value[:10] + "..." + value[len(value)-4:]
}
