package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sales-dashboard/internal/models"
)

const (
	batchSize      = 2000
	defaultWorkers = 8
)

type Options struct {
	// Strict fails the load on the first rejected row instead of skipping it.
	Strict bool
	// CacheDir enables the parsed-table cache for file sources.
	CacheDir string
	Sheet    string
	Workers  int
	Logger   *slog.Logger
}

// Report summarises a load.
type Report struct {
	Source   string        `json:"source"`
	Rows     int           `json:"rows"`
	Accepted int           `json:"accepted"`
	Rejected []RowError    `json:"rejected,omitempty"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration"`
}

type Loader struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts, logger: logger}
}

// Load reads a spreadsheet file with default options.
func Load(ctx context.Context, path string) (*Table, *Report, error) {
	return New(Options{}).LoadFile(ctx, path)
}

// LoadFile loads an xlsx or csv file, using the parse cache when enabled and
// newer than the file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Table, *Report, error) {
	src := NewFileSource(path, l.opts.Sheet)

	if l.opts.CacheDir != "" {
		if t, rep, ok := l.fromCache(src); ok {
			// A lenient load may have cached rows a strict load must refuse.
			if l.opts.Strict && len(rep.Rejected) > 0 {
				return nil, nil, newLoadError(KindMalformed, src.Path, "rejected row", rep.Rejected[0])
			}
			return t, rep, nil
		}
	}

	t, rep, err := l.LoadSource(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	if l.opts.CacheDir != "" {
		if err := saveToCache(l.opts.CacheDir, src, t, rep); err != nil {
			l.logger.Warn("failed to save cache", "error", err)
		}
	}
	return t, rep, nil
}

func (l *Loader) fromCache(src *FileSource) (*Table, *Report, bool) {
	cached, err := loadFromCache(l.opts.CacheDir, src)
	if err != nil {
		return nil, nil, false
	}
	modTime, err := src.ModTime()
	if err != nil || !modTime.Before(cached.LoadedAt) {
		return nil, nil, false
	}
	t := NewTable(src.Path, cached.Transactions)
	t.loadedAt = cached.LoadedAt
	rep := &Report{
		Source:   src.Path,
		Rows:     cached.Rows,
		Accepted: len(cached.Transactions),
		Rejected: cached.Rejected,
		Cached:   true,
	}
	l.logger.Info("loaded from cache", "source", src.Path, "sheet", src.Sheet, "records", t.Len())
	return t, rep, true
}

// LoadSource reads and parses any source.
func (l *Loader) LoadSource(ctx context.Context, src Source) (*Table, *Report, error) {
	start := time.Now()
	l.logger.Info("loading transactions", "source", src.Name())

	raw, err := src.Read(ctx)
	if err != nil {
		return nil, nil, err
	}

	idx, err := indexColumns(src.Name(), raw.Header)
	if err != nil {
		return nil, nil, err
	}

	parsed, err := parseRows(ctx, idx, raw.Rows, l.opts.Workers, batchSize)
	if err != nil {
		return nil, nil, newLoadError(KindUnreadable, src.Name(), "parse rows", err)
	}

	rep := &Report{Source: src.Name()}
	txs := make([]models.Transaction, 0, len(parsed))
	for _, p := range parsed {
		if p.blank {
			continue
		}
		rep.Rows++
		if p.err != nil {
			if l.opts.Strict {
				return nil, nil, newLoadError(KindMalformed, src.Name(), "rejected row", *p.err)
			}
			rep.Rejected = append(rep.Rejected, *p.err)
			continue
		}
		txs = append(txs, p.tx)
	}
	rep.Accepted = len(txs)

	if rep.Rows > 0 && rep.Accepted == 0 {
		return nil, nil, newLoadError(KindMalformed, src.Name(),
			fmt.Sprintf("no valid records in %d rows", rep.Rows), rep.Rejected[0])
	}

	if len(rep.Rejected) > 0 {
		l.logger.Warn("rejected malformed rows",
			"source", src.Name(),
			"rejected", len(rep.Rejected),
			"first", rep.Rejected[0].Error(),
		)
	}

	rep.Duration = time.Since(start)
	l.logger.Info("transactions loaded",
		"source", src.Name(),
		"records", rep.Accepted,
		"duration", rep.Duration,
	)

	return NewTable(src.Name(), txs), rep, nil
}
