package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

var funcs = template.FuncMap{
	"inr":   FormatINR,
	"count": func(n any) string {
		switch v := n.(type) {
		case int:
			return FormatCount(v)
		case int64:
			return FormatCount(v)
		}
		return ""
	},
	"date": func(t time.Time) string { return t.Format("02 Jan 2006") },
}

var views = template.Must(template.New("views").Funcs(funcs).Parse(`
{{define "filters"}}<div id="filters" class="filters">
<label>Company
<select data-bind:company data-on:change="@get('/sse/dashboard')">
{{range .Companies}}<option value="{{.}}"{{if eq . $.Selection.Company}} selected{{end}}>{{.}}</option>{{end}}
</select></label>
<label>Brand
<select data-bind:brand data-on:change="@get('/sse/dashboard')">
<option value="All"{{if eq "All" $.Selection.Brand}} selected{{end}}>All</option>
{{range .Brands}}<option value="{{.}}"{{if eq . $.Selection.Brand}} selected{{end}}>{{.}}</option>{{end}}
</select></label>
</div>{{end}}

{{define "kpis"}}<div id="kpi-cards" class="kpi-grid">
<div class="kpi-card"><span class="kpi-label">Total Revenue</span><strong class="kpi-value">{{inr .TotalRevenue}}</strong></div>
<div class="kpi-card"><span class="kpi-label">Total Quantity</span><strong class="kpi-value">{{count .TotalQuantity}}</strong></div>
<div class="kpi-card"><span class="kpi-label">Unique Customers</span><strong class="kpi-value">{{count .UniqueCustomers}}</strong></div>
</div>{{end}}

{{define "transactions"}}<div id="transactions">
<p class="table-caption">Showing {{len .Rows}} of {{count .Total}} transactions</p>
<table class="modern-table">
<thead><tr><th>Date</th><th>Brand</th><th>Sales Person</th><th>Customer</th><th>Category</th><th>Qty</th><th>Value</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{date .BillDate}}</td>
<td>{{.Brand}}</td>
<td>{{.SalesPerson}}</td>
<td>{{.CustomerName}}</td>
<td><span class="category-badge">{{.ItemCategory}}</span></td>
<td>{{count .Qty}}</td>
<td><strong>{{inr .TaxPaidValue}}</strong></td>
</tr>{{else}}<tr><td colspan="7">No transactions for this selection</td></tr>{{end}}
</tbody>
</table>
</div>{{end}}
`))

// FilterData feeds the company and brand selectors.
type FilterData struct {
	Companies []string
	Brands    []string
	Selection models.FilterSelection
}

type TableData struct {
	Rows  []models.Transaction
	Total int
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return views.ExecuteTemplate(w, name, data)
	})
}

func Filters(data FilterData) templ.Component {
	return render("filters", data)
}

func KPICards(kpis models.KPISet) templ.Component {
	return render("kpis", kpis)
}

func TransactionsTable(data TableData) templ.Component {
	return render("transactions", data)
}

// ChartPoint is one bar or slice of a chart. Values are floats because they
// only feed Chart.js.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Signals builds the datastar signals the page's charts are drawn from.
func Signals(v models.Views, generation uint64) map[string]any {
	monthly := make([]ChartPoint, len(v.MonthlyRevenue))
	for i, m := range v.MonthlyRevenue {
		monthly[i] = ChartPoint{Label: m.Month, Value: m.Revenue.InexactFloat64()}
	}
	leaders := func(entries []models.LeaderboardEntry) []ChartPoint {
		out := make([]ChartPoint, len(entries))
		for i, e := range entries {
			out[i] = ChartPoint{Label: e.Name, Value: e.Revenue.InexactFloat64()}
		}
		return out
	}
	categories := make([]ChartPoint, len(v.CategoryBreakdown))
	for i, c := range v.CategoryBreakdown {
		categories[i] = ChartPoint{Label: c.Category, Value: c.Revenue.InexactFloat64()}
	}

	return map[string]any{
		"company":      v.Selection.Company,
		"brand":        v.Selection.Brand,
		"monthly":      monthly,
		"salesPersons": leaders(v.TopSalesPersons),
		"customers":    leaders(v.TopCustomers),
		"categories":   categories,
		"generation":   generation,
	}
}

// SignalsJSON is Signals encoded for a datastar patch or data-signals attribute.
func SignalsJSON(v models.Views, generation uint64) ([]byte, error) {
	return json.Marshal(Signals(v, generation))
}
