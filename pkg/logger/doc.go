// Package logger provides a structured logging interface for the dictionary pipeline.
//
// It wraps the zerolog library and supports:
// - Log levels (Debug, Info, Warn, Error)
// - Structured logging with fields
// - Pretty console output with colors, or raw JSON lines
// - Optional file output (always JSON)
// - A TestLogger that captures messages for assertions
//
// Pipeline components take a Logger in their constructor. The global logger
// (Initialize / GetLogger) exists for the command layer only.
//
// Basic Usage:
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//
//	log.WithField("date_key", "5-3-2024").Info("fetching file")
//
//	done := logger.LogPhase(log, "parse", dateKey)
//	entries, err := p.Parse(ctx, dateKey)
//	done(err)
package logger
