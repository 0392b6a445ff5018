package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// AllBrands is the brand selection that disables brand filtering.
const AllBrands = "All"

type Transaction struct {
	CompanyName  string          `json:"company_name"`
	Brand        string          `json:"brand"`
	SalesPerson  string          `json:"sales_person"`
	CustomerName string          `json:"customer_name"`
	ItemCategory string          `json:"item_category"`
	BillDate     time.Time       `json:"bill_date"`
	Qty          int64           `json:"qty"`
	TaxPaidValue decimal.Decimal `json:"tax_paid_value"`
}

type FilterSelection struct {
	Company string `json:"company"`
	Brand   string `json:"brand"`
}

// BrandFiltered reports whether the selection restricts rows to one brand.
func (s FilterSelection) BrandFiltered() bool {
	return s.Brand != "" && s.Brand != AllBrands
}

type KPISet struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalQuantity   int64           `json:"total_quantity"`
	UniqueCustomers int             `json:"unique_customers"`
	Transactions    int             `json:"transactions"`
}

type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

type LeaderboardEntry struct {
	Rank    int             `json:"rank"`
	Name    string          `json:"name"`
	Revenue decimal.Decimal `json:"revenue"`
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Views struct {
	Selection         FilterSelection    `json:"selection"`
	KPIs              KPISet             `json:"kpis"`
	MonthlyRevenue    []MonthlyRevenue   `json:"monthly_revenue"`
	TopSalesPersons   []LeaderboardEntry `json:"top_sales_persons"`
	TopCustomers      []LeaderboardEntry `json:"top_customers"`
	CategoryBreakdown []CategoryRevenue  `json:"category_breakdown"`
}

// Clone copies the view slices so the copy can be changed without touching v.
func (v Views) Clone() Views {
	v.MonthlyRevenue = slices.Clone(v.MonthlyRevenue)
	v.TopSalesPersons = slices.Clone(v.TopSalesPersons)
	v.TopCustomers = slices.Clone(v.TopCustomers)
	v.CategoryBreakdown = slices.Clone(v.CategoryBreakdown)
	return v
}
