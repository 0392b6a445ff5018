package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/loader"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/notifier"
	"sales-dashboard/internal/observability"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// LoadFunc produces a fresh table, typically by calling the loader.
type LoadFunc func(ctx context.Context) (*loader.Table, *loader.Report, error)

type DashboardOptions struct {
	Load      LoadFunc
	TopN      int
	CacheSize int
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

type viewKey struct {
	generation uint64
	company    string
	brand      string
	n          int
}

// Dashboard serves the aggregation pipeline over the current table. The table
// is swapped atomically on reload and never mutated in place.
type Dashboard struct {
	table      atomic.Pointer[loader.Table]
	report     atomic.Pointer[loader.Report]
	generation atomic.Uint64
	reloadMu   sync.Mutex

	load     LoadFunc
	topN     int
	cacheTTL time.Duration
	views    *cache.LRU[viewKey, models.Views]
	notifier *notifier.Notifier
	logger   *slog.Logger
}

func NewDashboard(opts DashboardOptions) *Dashboard {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dashboard{
		load:     opts.Load,
		topN:     opts.TopN,
		cacheTTL: opts.CacheTTL,
		views:    cache.NewLRU[viewKey, models.Views](opts.CacheSize, opts.CacheTTL),
		notifier: notifier.New(),
		logger:   logger,
	}
	d.table.Store(loader.NewTable("", nil))
	return d
}

// SetTable replaces the current table.
func (d *Dashboard) SetTable(t *loader.Table) {
	d.table.Store(t)
	d.generation.Add(1)
	d.views.Purge()
	d.notifier.Broadcast()
}

func (d *Dashboard) Table() *loader.Table {
	return d.table.Load()
}

// Reload runs the load function and swaps in the new table. On failure the
// current table stays in place.
func (d *Dashboard) Reload(ctx context.Context) error {
	if d.load == nil {
		return errors.New("dashboard has no load function")
	}

	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	var (
		t   *loader.Table
		rep *loader.Report
	)
	err := observability.Trace(ctx, d.logger, "dashboard.reload", func(ctx context.Context, span *observability.Span) error {
		var err error
		t, rep, err = d.load(ctx)
		if err != nil {
			return err
		}
		span.SetTag("source", t.Source())
		span.SetTag("records", strconv.Itoa(t.Len()))
		return nil
	})
	if err != nil {
		return err
	}
	d.report.Store(rep)
	d.SetTable(t)

	d.logger.Info("dashboard data loaded",
		"source", t.Source(),
		"records", t.Len(),
		"companies", len(t.Companies()),
		"generation", d.generation.Load(),
	)
	return nil
}

// Generation counts table swaps. It changes whenever the data does.
func (d *Dashboard) Generation() uint64 {
	return d.generation.Load()
}

func (d *Dashboard) Notifier() *notifier.Notifier {
	return d.notifier
}

func (d *Dashboard) TopN() int {
	return d.topN
}

func (d *Dashboard) Companies() []string {
	return d.Table().Companies()
}

func (d *Dashboard) Brands() []string {
	return d.Table().Brands()
}

// DefaultSelection is the first company with all brands.
func (d *Dashboard) DefaultSelection() models.FilterSelection {
	sel := models.FilterSelection{Brand: models.AllBrands}
	if companies := d.Companies(); len(companies) > 0 {
		sel.Company = companies[0]
	}
	return sel
}

func (d *Dashboard) Views(sel models.FilterSelection) models.Views {
	return d.ViewsN(sel, d.topN)
}

// ViewsN computes every view for sel with leaderboards of length n. The
// result is a copy of the memoised views and may be modified by the caller.
func (d *Dashboard) ViewsN(sel models.FilterSelection, n int) models.Views {
	if sel.Brand == "" {
		sel.Brand = models.AllBrands
	}
	key := viewKey{generation: d.generation.Load(), company: sel.Company, brand: sel.Brand, n: n}
	if v, ok := d.views.Get(key); ok {
		return v.Clone()
	}

	v := ComputeAllViews(d.Table(), sel, n)
	d.views.Set(key, v)
	return v.Clone()
}

// SweepViews drops expired memoised views every TTL until ctx is done.
func (d *Dashboard) SweepViews(ctx context.Context) {
	ticker := time.NewTicker(d.cacheTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.views.CleanExpired(); n > 0 {
				d.logger.Debug("expired cached views", "removed", n)
			}
		}
	}
}

// Transactions returns one page of the filtered rows and the total row count.
func (d *Dashboard) Transactions(sel models.FilterSelection, offset, limit int) ([]models.Transaction, int) {
	view := Filter(d.Table().Transactions(), sel)
	total := len(view)
	offset = max(offset, 0)
	if offset >= total || limit <= 0 {
		return []models.Transaction{}, total
	}
	end := min(offset+limit, total)
	return view[offset:end], total
}

func (d *Dashboard) Stats() map[string]any {
	t := d.Table()
	stats := map[string]any{
		"record_count": t.Len(),
		"source":       t.Source(),
		"loaded_at":    t.LoadedAt(),
		"companies":    len(t.Companies()),
		"brands":       len(t.Brands()),
		"generation":   d.generation.Load(),
		"cached_views": d.views.Len(),
		"subscribers":  d.notifier.Subscribers(),
	}
	if rep := d.report.Load(); rep != nil {
		stats["rejected_rows"] = len(rep.Rejected)
		stats["from_cache"] = rep.Cached
	}
	return stats
}
