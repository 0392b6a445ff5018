package services

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/loader"
	"sales-dashboard/internal/models"
)

// DefaultTopN is the leaderboard length shown on the dashboard.
const DefaultTopN = 5

// GroupField selects the column a leaderboard groups by.
type GroupField int

const (
	BySalesPerson GroupField = iota
	ByCustomer
)

func (f GroupField) String() string {
	switch f {
	case BySalesPerson:
		return "sales_person"
	case ByCustomer:
		return "customer"
	default:
		return "unknown"
	}
}

func (f GroupField) key(tx models.Transaction) string {
	if f == ByCustomer {
		return tx.CustomerName
	}
	return tx.SalesPerson
}

// Filter returns the rows of company, further restricted to sel.Brand unless
// it is empty or models.AllBrands. Order is preserved. Unknown values yield an
// empty view.
func Filter(txs []models.Transaction, sel models.FilterSelection) []models.Transaction {
	view := make([]models.Transaction, 0)
	for _, tx := range txs {
		if tx.CompanyName != sel.Company {
			continue
		}
		if sel.BrandFiltered() && tx.Brand != sel.Brand {
			continue
		}
		view = append(view, tx)
	}
	return view
}

func ComputeKPIs(view []models.Transaction) models.KPISet {
	kpis := models.KPISet{TotalRevenue: decimal.Zero}
	customers := make(map[string]struct{})
	for _, tx := range view {
		kpis.TotalRevenue = kpis.TotalRevenue.Add(tx.TaxPaidValue)
		kpis.TotalQuantity += tx.Qty
		customers[tx.CustomerName] = struct{}{}
	}
	kpis.UniqueCustomers = len(customers)
	kpis.Transactions = len(view)
	return kpis
}

// MonthlyRevenue sums revenue per calendar month, ascending. Months without
// rows are omitted.
func MonthlyRevenue(view []models.Transaction) []models.MonthlyRevenue {
	groups := make(map[time.Time]decimal.Decimal)
	for _, tx := range view {
		month := time.Date(tx.BillDate.Year(), tx.BillDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		groups[month] = groups[month].Add(tx.TaxPaidValue)
	}

	months := make([]time.Time, 0, len(groups))
	for m := range groups {
		months = append(months, m)
	}
	slices.SortFunc(months, func(a, b time.Time) int { return a.Compare(b) })

	result := make([]models.MonthlyRevenue, 0, len(months))
	for _, m := range months {
		result = append(result, models.MonthlyRevenue{Month: m.Format("2006-01"), Revenue: groups[m]})
	}
	return result
}

// TopN ranks groups of field by summed revenue, highest first. Ties keep the
// order in which the groups first appear in view.
func TopN(view []models.Transaction, field GroupField, n int) []models.LeaderboardEntry {
	if n <= 0 {
		return []models.LeaderboardEntry{}
	}

	names, totals := sumBy(view, field.key)
	slices.SortStableFunc(names, func(a, b string) int {
		return totals[b].Cmp(totals[a])
	})

	if len(names) > n {
		names = names[:n]
	}
	result := make([]models.LeaderboardEntry, len(names))
	for i, name := range names {
		result[i] = models.LeaderboardEntry{Rank: i + 1, Name: name, Revenue: totals[name]}
	}
	return result
}

// CategoryBreakdown sums revenue per item category in first-seen order.
// Zero and negative totals are kept.
func CategoryBreakdown(view []models.Transaction) []models.CategoryRevenue {
	names, totals := sumBy(view, func(tx models.Transaction) string { return tx.ItemCategory })
	result := make([]models.CategoryRevenue, len(names))
	for i, name := range names {
		result[i] = models.CategoryRevenue{Category: name, Revenue: totals[name]}
	}
	return result
}

// ComputeAllViews filters t once and runs every aggregation over the view.
func ComputeAllViews(t *loader.Table, sel models.FilterSelection, n int) models.Views {
	if sel.Brand == "" {
		sel.Brand = models.AllBrands
	}
	view := Filter(t.Transactions(), sel)
	return models.Views{
		Selection:         sel,
		KPIs:              ComputeKPIs(view),
		MonthlyRevenue:    MonthlyRevenue(view),
		TopSalesPersons:   TopN(view, BySalesPerson, n),
		TopCustomers:      TopN(view, ByCustomer, n),
		CategoryBreakdown: CategoryBreakdown(view),
	}
}

func sumBy(view []models.Transaction, key func(models.Transaction) string) ([]string, map[string]decimal.Decimal) {
	totals := make(map[string]decimal.Decimal)
	var names []string
	for _, tx := range view {
		k := key(tx)
		sum, ok := totals[k]
		if !ok {
			names = append(names, k)
		}
		totals[k] = sum.Add(tx.TaxPaidValue)
	}
	return names, totals
}
