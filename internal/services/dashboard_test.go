package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sales-dashboard/internal/loader"
	"sales-dashboard/internal/models"
)

func newTestDashboard() *Dashboard {
	d := NewDashboard(DashboardOptions{})
	d.SetTable(loader.NewTable("test", sampleTransactions()))
	return d
}

func TestNewDashboard(t *testing.T) {
	d := NewDashboard(DashboardOptions{})
	if d == nil {
		t.Fatal("NewDashboard() returned nil")
	}
	if d.Table() == nil {
		t.Error("table should be initialized")
	}
	if d.logger == nil {
		t.Error("logger should be initialized")
	}
	if d.TopN() != DefaultTopN {
		t.Errorf("expected default top n %d, got %d", DefaultTopN, d.TopN())
	}
}

func TestDashboard_SetTable(t *testing.T) {
	d := newTestDashboard()

	if d.Table().Len() != 3 {
		t.Errorf("expected 3 records, got %d", d.Table().Len())
	}

	companies := d.Companies()
	if len(companies) != 2 || companies[0] != "CompA" || companies[1] != "CompB" {
		t.Errorf("unexpected companies %v", companies)
	}

	sel := d.DefaultSelection()
	if sel.Company != "CompA" || sel.Brand != models.AllBrands {
		t.Errorf("unexpected default selection %+v", sel)
	}
}

func TestDashboard_Views(t *testing.T) {
	d := newTestDashboard()

	views := d.Views(models.FilterSelection{Company: "CompA"})
	if views.KPIs.TotalRevenue.String() != "150" {
		t.Errorf("expected total revenue 150, got %s", views.KPIs.TotalRevenue)
	}
	if views.Selection.Brand != models.AllBrands {
		t.Errorf("empty brand should normalise to %q, got %q", models.AllBrands, views.Selection.Brand)
	}
	if len(views.TopSalesPersons) != 2 {
		t.Errorf("expected 2 sales persons, got %d", len(views.TopSalesPersons))
	}

	// memoised until the table changes
	if d.views.Len() != 1 {
		t.Errorf("expected 1 cached view, got %d", d.views.Len())
	}
	d.SetTable(loader.NewTable("next", nil))
	if d.views.Len() != 0 {
		t.Error("cache should be purged on table swap")
	}
	views = d.Views(models.FilterSelection{Company: "CompA"})
	if !views.KPIs.TotalRevenue.IsZero() {
		t.Errorf("expected zero revenue after swap, got %s", views.KPIs.TotalRevenue)
	}
}

func TestDashboard_ViewsReturnsCopies(t *testing.T) {
	d := newTestDashboard()
	sel := models.FilterSelection{Company: "CompA"}

	first := d.Views(sel)
	if len(first.TopSalesPersons) == 0 || len(first.MonthlyRevenue) == 0 {
		t.Fatalf("expected populated views, got %+v", first)
	}
	want := first.TopSalesPersons[0].Name
	first.TopSalesPersons[0].Name = "changed"
	first.MonthlyRevenue[0].Month = "changed"

	second := d.Views(sel)
	if second.TopSalesPersons[0].Name != want {
		t.Errorf("cached leaderboard was modified: got %q, want %q", second.TopSalesPersons[0].Name, want)
	}
	if second.MonthlyRevenue[0].Month == "changed" {
		t.Error("cached monthly revenue was modified")
	}
}

func TestDashboard_SweepViews(t *testing.T) {
	d := NewDashboard(DashboardOptions{CacheTTL: 10 * time.Millisecond})
	d.SetTable(loader.NewTable("test", sampleTransactions()))
	d.Views(models.FilterSelection{Company: "CompA"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.SweepViews(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for d.views.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d.views.Len() != 0 {
		t.Errorf("expected expired views to be swept, %d left", d.views.Len())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SweepViews did not return after cancel")
	}
}

func TestDashboard_Transactions(t *testing.T) {
	d := newTestDashboard()
	sel := models.FilterSelection{Company: "CompA", Brand: models.AllBrands}

	tests := []struct {
		name      string
		offset    int
		limit     int
		wantRows  int
		wantTotal int
	}{
		{"first page", 0, 1, 1, 2},
		{"all rows", 0, 50, 2, 2},
		{"second page", 1, 1, 1, 2},
		{"past end", 5, 10, 0, 2},
		{"zero limit", 0, 0, 0, 2},
		{"negative offset", -3, 10, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total := d.Transactions(sel, tt.offset, tt.limit)
			if len(rows) != tt.wantRows {
				t.Errorf("expected %d rows, got %d", tt.wantRows, len(rows))
			}
			if total != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, total)
			}
		})
	}
}

func TestDashboard_Reload(t *testing.T) {
	calls := 0
	d := NewDashboard(DashboardOptions{
		Load: func(ctx context.Context) (*loader.Table, *loader.Report, error) {
			calls++
			if calls > 1 {
				return nil, nil, errors.New("boom")
			}
			return loader.NewTable("first", sampleTransactions()), &loader.Report{Accepted: 3}, nil
		},
	})

	updates := d.Notifier().Subscribe()
	defer d.Notifier().Unsubscribe(updates)

	if err := d.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if d.Table().Source() != "first" {
		t.Errorf("expected table from first load, got %q", d.Table().Source())
	}
	select {
	case <-updates:
	default:
		t.Error("reload should notify subscribers")
	}

	if err := d.Reload(context.Background()); err == nil {
		t.Error("expected reload error")
	}
	if d.Table().Source() != "first" {
		t.Error("failed reload must keep the previous table")
	}

	stats := d.Stats()
	if stats["record_count"] != 3 {
		t.Errorf("expected record_count 3, got %v", stats["record_count"])
	}
	if stats["rejected_rows"] != 0 {
		t.Errorf("expected rejected_rows 0, got %v", stats["rejected_rows"])
	}
}

func TestDashboard_ReloadWithoutLoader(t *testing.T) {
	d := NewDashboard(DashboardOptions{})
	if err := d.Reload(context.Background()); err == nil {
		t.Error("expected error without load function")
	}
}

func TestDashboard_ConcurrentAccess(t *testing.T) {
	d := newTestDashboard()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Views(models.FilterSelection{Company: "CompA", Brand: "BrandX"})
			_ = d.Companies()
			_, _ = d.Transactions(models.FilterSelection{Company: "CompB"}, 0, 10)
			_ = d.Stats()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.SetTable(loader.NewTable("swap", sampleTransactions()))
	}()
	wg.Wait()
}

func TestDashboard_EmptyData(t *testing.T) {
	d := NewDashboard(DashboardOptions{})

	if len(d.Companies()) != 0 {
		t.Error("expected no companies")
	}
	sel := d.DefaultSelection()
	if sel.Company != "" {
		t.Errorf("expected empty default company, got %q", sel.Company)
	}
	views := d.Views(sel)
	if len(views.MonthlyRevenue) != 0 || len(views.CategoryBreakdown) != 0 {
		t.Error("empty table should yield empty views")
	}
}
