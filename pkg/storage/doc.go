// Package storage provides file management for the dated dictionary artifacts.
//
// The storage package handles:
//   - Deriving dated artifact paths (<dir>/<base>-<dateKey>.<ext>)
//   - Existence checks, the pipeline's only cache signal
//   - Atomic writes using a temporary file, fsync and rename
//   - Cleaning the downloads directory and counting outputs
//
// A file that exists at a dated path is always complete: a failed or
// interrupted write never leaves the final name behind.
//
// Usage:
//
//	manager, err := storage.NewManager(cfg.Paths)
//	if err != nil {
//	    return err
//	}
//
//	raw := manager.RawPath("5-3-2024")
//	if !manager.Exists(raw) {
//	    _, err = manager.WriteAtomic(raw, body)
//	}
package storage
