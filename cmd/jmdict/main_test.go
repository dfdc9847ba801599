package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jmdict/pkg/pipeline"
	"jmdict/pkg/secret"
)

type memoryStore map[string]string

func (m memoryStore) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", secret.ErrNotFound
	}
	return v, nil
}

func (m memoryStore) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memoryStore) Delete(key string) error {
	if _, ok := m[key]; !ok {
		return secret.ErrNotFound
	}
	delete(m, key)
	return nil
}

func TestAuthCommands(t *testing.T) {
	store := memoryStore{}
	previous := secretStore
	secretStore = store
	t.Cleanup(func() {
		secretStore = previous
		rootCmd.SetArgs(nil)
	})

	run := func(args ...string) error {
		rootCmd.SetArgs(append(args, "--quiet", "--no-color"))
		return rootCmd.ExecuteContext(context.Background())
	}

	require.NoError(t, run("auth", "status"))
	require.NoError(t, run("auth", "remove-mongo"))

	store[secret.MongoURIKey] = "mongodb://user:pass@db:27017"
	require.NoError(t, run("auth", "status"))
	require.NoError(t, run("auth", "remove-mongo"))
	assert.Empty(t, store)
}

func TestPresence(t *testing.T) {
	assert.Equal(t, "present (a.json)", presence(true, "a.json"))
	assert.Equal(t, "missing (a.json)", presence(false, "a.json"))
}

func TestRunCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"JMDICT_SOURCE_URL", "JMDICT_DOWNLOADS_DIR", "JMDICT_OUTPUT_DIR", "JMDICT_MONGO_URI", "JMDICT_MONGO_USE_KEYRING"} {
		t.Setenv(key, "")
	}

	var body bytes.Buffer
	gz := gzip.NewWriter(&body)
	_, err := gz.Write([]byte("<JMdict><entry><k>v</k></entry></JMdict>"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body.Bytes())
	}))
	defer server.Close()

	root := t.TempDir()
	downloads := filepath.Join(root, "downloads")
	output := filepath.Join(root, "output")

	rootCmd.SetArgs([]string{"run", "--url", server.URL, "--downloads", downloads, "--output", output, "--quiet", "--no-color"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	dateKey := pipeline.DateKey(time.Now())
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(filepath.Join(output, "JMdict_e-"+dateKey+".json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"k":["v"]}]`, string(data))
}
