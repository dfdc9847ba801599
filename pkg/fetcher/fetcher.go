package fetcher

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blake2b"
	"jmdict/pkg/config"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
	"jmdict/pkg/storage"
)

// Fetcher downloads the compressed dictionary and stores it decompressed
// at the dated raw path.
type Fetcher struct {
	client  *Client
	storage *storage.Manager
	url     string
	logger  logger.Logger
}

// New creates a Fetcher for the configured source
func New(source config.SourceConfig, store *storage.Manager, log logger.Logger) *Fetcher {
	log = logger.OrDefault(log).WithField("component", "fetcher")

	client := NewClient(source.Timeout, log)
	if source.UserAgent != "" {
		client.SetHeader("User-Agent", source.UserAgent)
	}

	return &Fetcher{
		client:  client,
		storage: store,
		url:     source.URL,
		logger:  log,
	}
}

// Fetch stores the decompressed dictionary for dateKey. An existing raw file
// is kept as is and no request is made.
func (f *Fetcher) Fetch(ctx context.Context, dateKey string) error {
	path := f.storage.RawPath(dateKey)
	if f.storage.Exists(path) {
		f.logger.InfoWithFields("file already exists, skipping download", map[string]interface{}{
			"path": path,
		})
		return nil
	}

	f.logger.InfoWithFields("fetching file", map[string]interface{}{
		"url": f.url,
	})
	resp, err := f.client.Get(ctx, f.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f.logger.Info("unzipping file")
	body := &trackingReader{r: resp.Body}
	gz, err := gzip.NewReader(body)
	if err != nil {
		if body.err != nil {
			return errs.New(errs.ErrorTypeNetwork, "fetch", body.err)
		}
		return errs.New(errs.ErrorTypeDecompress, "fetch", err)
	}
	defer gz.Close()

	digest, err := blake2b.New256(nil)
	if err != nil {
		return fmt.Errorf("failed to create digest: %w", err)
	}
	plain := &trackingReader{r: io.TeeReader(gz, digest)}

	f.logger.InfoWithFields("saving file", map[string]interface{}{
		"path": path,
	})
	start := time.Now()
	written, err := f.storage.WriteAtomic(path, plain)
	if err != nil {
		switch {
		case body.err != nil:
			return errs.New(errs.ErrorTypeNetwork, "fetch", body.err)
		case plain.err != nil:
			return errs.New(errs.ErrorTypeDecompress, "fetch", plain.err).WithPath(path)
		default:
			return errs.New(errs.ErrorTypeWrite, "fetch", err).WithPath(path)
		}
	}

	f.logger.InfoWithFields("file saved", map[string]interface{}{
		"path":     path,
		"bytes":    written,
		"blake2b":  hex.EncodeToString(digest.Sum(nil)),
		"duration": time.Since(start),
	})
	return nil
}

// trackingReader remembers the first non-EOF error returned by r
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
