// Package serializer writes the entry list to its dated JSON artifact.
package serializer

import (
	"bytes"
	"time"

	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
	"jmdict/pkg/parser"
	"jmdict/pkg/storage"
)

// Serializer persists entry lists as JSON
type Serializer struct {
	storage *storage.Manager
	logger  logger.Logger
}

// New creates a Serializer
func New(store *storage.Manager, log logger.Logger) *Serializer {
	return &Serializer{
		storage: store,
		logger:  logger.OrDefault(log).WithField("component", "serializer"),
	}
}

// Persist writes entries to the dated output path as one compact JSON
// document. An existing output file is left untouched.
func (s *Serializer) Persist(entries parser.EntryList, dateKey string) error {
	path := s.storage.OutputPath(dateKey)
	if s.storage.Exists(path) {
		s.logger.InfoWithFields("output already exists, skipping write", map[string]interface{}{
			"path": path,
		})
		return nil
	}

	data, err := entries.MarshalJSON()
	if err != nil {
		return errs.New(errs.ErrorTypeWrite, "persist", err).WithPath(path)
	}

	start := time.Now()
	written, err := s.storage.WriteAtomic(path, bytes.NewReader(data))
	if err != nil {
		return errs.New(errs.ErrorTypeWrite, "persist", err).WithPath(path)
	}

	s.logger.InfoWithFields("json file written", map[string]interface{}{
		"path":     path,
		"entries":  len(entries),
		"bytes":    written,
		"duration": time.Since(start),
	})
	return nil
}
