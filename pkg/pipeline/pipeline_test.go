package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jmdict/pkg/config"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
	"jmdict/pkg/parser"
	"jmdict/pkg/storage"
	"jmdict/pkg/ui"
)

func TestDateKey(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, 3, 5, 12, 0, 0, 0, time.Local), "5-3-2024"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local), "2-1-2024"},
		{time.Date(2023, 12, 31, 23, 59, 59, 0, time.Local), "31-12-2023"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DateKey(tt.date))
	}
}

type testEnv struct {
	pipeline *Pipeline
	store    *storage.Manager
	calls    *int32
	console  *bytes.Buffer
	log      *logger.TestLogger
}

func gzipDoc(t *testing.T, doc string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestEnv(t *testing.T, doc string) *testEnv {
	t.Helper()

	var calls int32
	body := gzipDoc(t, doc)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(body)
	}))
	t.Cleanup(server.Close)

	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Source.URL = server.URL + "/JMdict_e.gz"
	cfg.Source.Timeout = 5 * time.Second
	cfg.Paths.DownloadsDir = filepath.Join(root, "downloads")
	cfg.Paths.OutputDir = filepath.Join(root, "output")

	store, err := storage.NewManager(cfg.Paths)
	require.NoError(t, err)

	var out bytes.Buffer
	log := logger.NewTestLogger()
	p := New(cfg, store, ui.NewConsole(&out, cfg.UI), log)
	p.SetClock(func() time.Time { return time.Date(2024, 1, 2, 9, 30, 0, 0, time.Local) })

	return &testEnv{pipeline: p, store: store, calls: &calls, console: &out, log: log}
}

// snapshot records name and modification time of every file under dir
func snapshot(t *testing.T, dir string) map[string]time.Time {
	t.Helper()
	files := map[string]time.Time{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files[path] = info.ModTime()
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestRunEndToEnd(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>v</k></entry></JMdict>")

	require.NoError(t, env.pipeline.Run(context.Background()))

	outPath := filepath.Join(env.store.OutputDir(), "JMdict_e-2-1-2024.json")
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, `[{"k":["v"]}]`, string(data))

	raw, err := os.ReadFile(filepath.Join(env.store.DownloadsDir(), "JMdict_e-2-1-2024.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<JMdict><entry><k>v</k></entry></JMdict>", string(raw))

	assert.Equal(t, int32(1), atomic.LoadInt32(env.calls))
	assert.NoFileExists(t, env.store.LockPath("2-1-2024"))
	assert.Contains(t, env.console.String(), "finished in:")
	assert.False(t, env.log.HasError())
}

func TestRunIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>v</k></entry></JMdict>")

	require.NoError(t, env.pipeline.Run(context.Background()))
	outPath := env.store.OutputPath("2-1-2024")
	first, err := os.ReadFile(outPath)
	require.NoError(t, err)
	before := snapshot(t, filepath.Dir(env.store.DownloadsDir()))

	env.log.Clear()
	require.NoError(t, env.pipeline.Run(context.Background()))

	second, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(env.calls), "second run must not hit the network")
	assert.Equal(t, before, snapshot(t, filepath.Dir(env.store.DownloadsDir())), "second run must not write")
	assert.True(t, env.log.HasMessage("output already exists, nothing to do"))
}

func TestRunStopsWhenOutputExists(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>v</k></entry></JMdict>")

	outPath := env.store.OutputPath("2-1-2024")
	require.NoError(t, os.WriteFile(outPath, []byte("sentinel"), 0644))

	require.NoError(t, env.pipeline.Run(context.Background()))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "sentinel", string(data))
	assert.Contains(t, env.console.String(), "output already exists")
}

func TestRunFailsOnParseError(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>v</entry></JMdict>")

	err := env.pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParse, errs.TypeOf(err))
	assert.Equal(t, 1, errs.ExitCode(err))

	assert.False(t, env.store.Exists(env.store.OutputPath("2-1-2024")))
	assert.NoFileExists(t, env.store.LockPath("2-1-2024"))
	assert.True(t, env.log.HasMessage("phase failed"))
}

func TestRunRefusesWhileLocked(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>v</k></entry></JMdict>")

	lockPath := env.store.LockPath("2-1-2024")
	require.NoError(t, os.WriteFile(lockPath, []byte(`{"pid":1,"host":"other","date_key":"2-1-2024","acquired_at":"`+time.Now().Format(time.RFC3339Nano)+`"}`), 0644))

	err := env.pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeLocked, errs.TypeOf(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(env.calls))
	assert.FileExists(t, lockPath)
}

type recordingExporter struct {
	dateKey  string
	entries  parser.EntryList
	failures int
	calls    int
	closed   int
}

func (r *recordingExporter) Export(ctx context.Context, entries parser.EntryList, dateKey string) (int, error) {
	r.calls++
	if r.failures > 0 {
		r.failures--
		return 0, errs.New(errs.ErrorTypeExport, "export", errors.New("mongo down"))
	}
	r.dateKey = dateKey
	r.entries = entries
	return len(entries), nil
}

func (r *recordingExporter) Close(ctx context.Context) error {
	r.closed++
	return nil
}

// connector hands out exporter and counts connections
type connector struct {
	exporter *recordingExporter
	err      error
	calls    int
}

func (c *connector) connect(ctx context.Context) (Exporter, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.exporter, nil
}

func TestRunExportsAfterWrite(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>1</k></entry><entry><k>2</k></entry></JMdict>")
	conn := &connector{exporter: &recordingExporter{}}
	env.pipeline.SetExporter(conn.connect)

	require.NoError(t, env.pipeline.Run(context.Background()))

	assert.Equal(t, "2-1-2024", conn.exporter.dateKey)
	assert.Len(t, conn.exporter.entries, 2)
	assert.Equal(t, 1, conn.exporter.closed)
	assert.Contains(t, env.console.String(), "exported: 2 documents")
	assert.FileExists(t, env.store.ExportMarkerPath("2-1-2024"))

	// a completed export is not repeated and no connection is opened
	require.NoError(t, env.pipeline.Run(context.Background()))
	assert.Equal(t, 1, conn.calls)
	assert.Equal(t, 1, conn.exporter.calls)
	assert.True(t, env.log.HasMessage("output already exists, nothing to do"))
}

func TestRunRetriesFailedExport(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>1</k></entry><entry><k>2</k></entry></JMdict>")
	conn := &connector{exporter: &recordingExporter{failures: 1}}
	env.pipeline.SetExporter(conn.connect)

	err := env.pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeExport, errs.TypeOf(err))
	assert.FileExists(t, env.store.OutputPath("2-1-2024"))
	assert.NoFileExists(t, env.store.ExportMarkerPath("2-1-2024"))

	env.log.Clear()
	require.NoError(t, env.pipeline.Run(context.Background()))

	assert.Equal(t, 2, conn.exporter.calls)
	assert.Len(t, conn.exporter.entries, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(env.calls))
	assert.True(t, env.log.HasMessage("output already exists, export pending"))
	assert.FileExists(t, env.store.ExportMarkerPath("2-1-2024"))
}

func TestRunConnectFailureKeepsOutput(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>1</k></entry></JMdict>")
	conn := &connector{err: errs.New(errs.ErrorTypeExport, "connect", errors.New("no reachable servers"))}
	env.pipeline.SetExporter(conn.connect)

	err := env.pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeExport, errs.TypeOf(err))
	assert.Equal(t, 1, conn.calls)
	assert.FileExists(t, env.store.OutputPath("2-1-2024"))
	assert.NoFileExists(t, env.store.LockPath("2-1-2024"))
}

func TestRunDoesNotConnectWhenLocked(t *testing.T) {
	env := newTestEnv(t, "<JMdict><entry><k>1</k></entry></JMdict>")
	conn := &connector{exporter: &recordingExporter{}}
	env.pipeline.SetExporter(conn.connect)

	lockPath := env.store.LockPath("2-1-2024")
	require.NoError(t, os.WriteFile(lockPath, []byte(`{"pid":1,"host":"other","date_key":"2-1-2024","acquired_at":"`+time.Now().Format(time.RFC3339Nano)+`"}`), 0644))

	require.Error(t, env.pipeline.Run(context.Background()))
	assert.Zero(t, conn.calls)
}
