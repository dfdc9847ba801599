package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"jmdict/pkg/config"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore()

	_, err := store.Get(MongoURIKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(MongoURIKey, "mongodb://user:pass@db:27017"))
	uri, err := store.Get(MongoURIKey)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://user:pass@db:27017", uri)

	require.NoError(t, store.Delete(MongoURIKey))
	assert.ErrorIs(t, store.Delete(MongoURIKey), ErrNotFound)

	assert.Error(t, store.Set(MongoURIKey, ""))
}

func TestResolveMongoURI(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore()
	require.NoError(t, store.Set(MongoURIKey, "mongodb://secret@db"))

	tests := []struct {
		name    string
		cfg     config.MongoConfig
		want    string
		wantErr bool
	}{
		{"keyring disabled", config.MongoConfig{}, "", false},
		{"configured uri wins", config.MongoConfig{UseKeyring: true, URI: "mongodb://local"}, "mongodb://local", false},
		{"from keyring", config.MongoConfig{UseKeyring: true}, "mongodb://secret@db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := ResolveMongoURI(store, &cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.URI)
		})
	}

	t.Run("missing secret", func(t *testing.T) {
		require.NoError(t, store.Delete(MongoURIKey))
		cfg := config.MongoConfig{UseKeyring: true}
		err := ResolveMongoURI(store, &cfg)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "***", Mask("mongodb://x"))
	assert.Equal(t, "mongodb://...7017", Mask("mongodb://user:secret@db:27017"))
}
