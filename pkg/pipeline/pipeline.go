package pipeline

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"jmdict/pkg/config"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/fetcher"
	"jmdict/pkg/lock"
	"jmdict/pkg/logger"
	"jmdict/pkg/parser"
	"jmdict/pkg/serializer"
	"jmdict/pkg/storage"
	"jmdict/pkg/ui"
)

// Fetcher stores the raw document for a date
type Fetcher interface {
	Fetch(ctx context.Context, dateKey string) error
}

// Parser extracts the entry list from the raw document of a date
type Parser interface {
	Parse(ctx context.Context, dateKey string) (parser.EntryList, error)
}

// Persister writes the entry list of a date
type Persister interface {
	Persist(entries parser.EntryList, dateKey string) error
}

// Exporter copies the entry list of a date to a secondary store
type Exporter interface {
	Export(ctx context.Context, entries parser.EntryList, dateKey string) (int, error)
	Close(ctx context.Context) error
}

// ConnectFunc opens an Exporter. It is only called when an export is due.
type ConnectFunc func(ctx context.Context) (Exporter, error)

// DateKey formats t as day-month-year without zero padding, e.g. "5-3-2024"
func DateKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Day(), int(t.Month()), t.Year())
}

// Pipeline runs fetch, parse and persist once for the current date
type Pipeline struct {
	fetcher    Fetcher
	parser     Parser
	serializer Persister
	connect    ConnectFunc

	storage *storage.Manager
	lock    config.LockConfig
	console *ui.Console
	logger  logger.Logger
	now     func() time.Time
}

// New wires the pipeline components from cfg
func New(cfg *config.Config, store *storage.Manager, console *ui.Console, log logger.Logger) *Pipeline {
	log = logger.OrDefault(log)
	if console == nil {
		console = ui.NewConsole(io.Discard, cfg.UI)
	}
	return &Pipeline{
		fetcher:    fetcher.New(cfg.Source, store, log),
		parser:     parser.New(store, cfg.Document, log),
		serializer: serializer.New(store, log),
		storage:    store,
		lock:       cfg.Lock,
		console:    console,
		logger:     log,
		now:        time.Now,
	}
}

// SetExporter enables the secondary export. A date is exported once its
// output is written; a failed export is retried by the next run.
func (p *Pipeline) SetExporter(connect ConnectFunc) {
	p.connect = connect
}

// SetClock replaces the clock used to compute the date key
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// DateKey returns the date key of the current run
func (p *Pipeline) DateKey() string {
	return DateKey(p.now())
}

// Run executes the pipeline for today's date key. Any failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	timer := ui.NewTimer("finished in:")
	dateKey := p.DateKey()
	log := p.logger.WithField("date_key", dateKey)

	p.console.PrintRule()
	p.console.PrintInfo("date", dateKey)

	if p.lock.Enabled {
		locker := lock.NewManager(p.storage.LockPath(dateKey), p.lock.StaleAfter, log)
		release, err := locker.Acquire(dateKey)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := release(); rerr != nil {
				log.WithError(rerr).Warn("Failed to release lock")
			}
		}()
	}

	done := logger.LogPhase(log, "fetch", dateKey)
	err = p.fetcher.Fetch(ctx, dateKey)
	done(err)
	if err != nil {
		return err
	}
	p.console.PrintInfo("raw file", p.storage.RawPath(dateKey))

	outPath := p.storage.OutputPath(dateKey)
	var entries parser.EntryList

	if p.storage.Exists(outPath) {
		if !p.exportPending(dateKey) {
			count, cerr := p.storage.CountOutputs()
			if cerr != nil {
				log.WithError(cerr).Warn("Failed to count output files")
			}
			log.InfoWithFields("output already exists, nothing to do", map[string]interface{}{
				"path":         outPath,
				"output_files": count,
			})
			p.console.PrintWarning("output already exists", outPath)
			p.console.PrintInfo("output files", fmt.Sprintf("%d", count))
			p.console.PrintTimer(timer)
			return nil
		}

		log.InfoWithFields("output already exists, export pending", map[string]interface{}{
			"path": outPath,
		})
		p.console.PrintWarning("output already exists, resuming export", outPath)

		if entries, err = p.parse(ctx, log, dateKey); err != nil {
			return err
		}
	} else {
		if entries, err = p.parse(ctx, log, dateKey); err != nil {
			return err
		}

		done = logger.LogPhase(log, "persist", dateKey)
		err = p.serializer.Persist(entries, dateKey)
		done(err)
		if err != nil {
			return err
		}
		p.console.PrintSuccess("saved " + outPath)
	}

	if p.connect != nil {
		done = logger.LogPhase(log, "export", dateKey)
		n, err := p.export(ctx, log, entries, dateKey)
		done(err)
		if err != nil {
			return err
		}
		p.console.PrintInfo("exported", fmt.Sprintf("%d documents", n))
	}

	p.console.PrintTimer(timer)
	return nil
}

func (p *Pipeline) parse(ctx context.Context, log logger.Logger, dateKey string) (parser.EntryList, error) {
	done := logger.LogPhase(log, "parse", dateKey)
	entries, err := p.parser.Parse(ctx, dateKey)
	done(err)
	if err != nil {
		return nil, err
	}
	p.console.PrintInfo("entries", fmt.Sprintf("%d", len(entries)))
	return entries, nil
}

// exportPending reports whether an exporter is set and dateKey has no
// completed export recorded
func (p *Pipeline) exportPending(dateKey string) bool {
	return p.connect != nil && !p.storage.Exists(p.storage.ExportMarkerPath(dateKey))
}

// export connects, exports entries and records the completed export
func (p *Pipeline) export(ctx context.Context, log logger.Logger, entries parser.EntryList, dateKey string) (int, error) {
	exporter, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := exporter.Close(context.Background()); cerr != nil {
			log.WithError(cerr).Warn("Failed to close exporter")
		}
	}()

	n, err := exporter.Export(ctx, entries, dateKey)
	if err != nil {
		return n, err
	}

	marker := p.storage.ExportMarkerPath(dateKey)
	if _, err := p.storage.WriteAtomic(marker, strings.NewReader(strconv.Itoa(len(entries)))); err != nil {
		return n, errs.New(errs.ErrorTypeWrite, "export", err).WithPath(marker)
	}
	return n, nil
}
