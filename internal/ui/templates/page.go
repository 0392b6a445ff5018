package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"sales-dashboard/internal/models"
)

type PageData struct {
	Title      string
	Filters    FilterData
	Views      models.Views
	Table      TableData
	Generation uint64
}

type pageModel struct {
	PageData
	Signals string
}

var page = template.Must(template.Must(views.Clone()).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1f2933}
header{background:#1f2933;color:#fff;padding:1rem 2rem}
main{padding:1.5rem 2rem;display:grid;gap:1.5rem}
.filters{display:flex;gap:1rem}
.kpi-grid{display:grid;grid-template-columns:repeat(3,1fr);gap:1rem}
.kpi-card,.chart-card{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.kpi-label{display:block;color:#616e7c;font-size:.85rem}
.kpi-value{font-size:1.6rem}
.charts{display:grid;grid-template-columns:repeat(2,1fr);gap:1rem}
.modern-table{width:100%;border-collapse:collapse;background:#fff}
.modern-table th,.modern-table td{padding:.5rem;border-bottom:1px solid #e4e7eb;text-align:left}
.category-badge{background:#e3f2fd;border-radius:4px;padding:0 .4rem}
</style>
</head>
<body data-signals="{{.Signals}}" data-init="@get('/sse/updates')" data-effect="$generation && @get('/sse/dashboard')">
<header><h1>{{.Title}}</h1></header>
<main>
{{template "filters" .Filters}}
{{template "kpis" .Views.KPIs}}
<section class="charts">
<div class="chart-card"><h2>Monthly Revenue</h2><canvas id="monthly-chart"></canvas></div>
<div class="chart-card"><h2>Top Sales Persons</h2><canvas id="sales-persons-chart"></canvas></div>
<div class="chart-card"><h2>Top Customers</h2><canvas id="customers-chart"></canvas></div>
<div class="chart-card"><h2>Revenue by Category</h2><canvas id="categories-chart"></canvas></div>
</section>
<div data-effect="window.drawCharts($monthly, $salesPersons, $customers, $categories)"></div>
{{template "transactions" .Table}}
</main>
<script>
const charts = {};
const inr = new Intl.NumberFormat('en-IN', {style: 'currency', currency: 'INR'});
function draw(id, type, points, horizontal) {
  const data = {
    labels: points.map(p => p.label),
    datasets: [{label: 'Revenue', data: points.map(p => p.value)}],
  };
  if (charts[id]) {
    charts[id].data = data;
    charts[id].update();
    return;
  }
  charts[id] = new Chart(document.getElementById(id), {
    type: type,
    data: data,
    options: {
      indexAxis: horizontal ? 'y' : 'x',
      plugins: {tooltip: {callbacks: {label: c => inr.format(c.raw)}}},
    },
  });
}
window.drawCharts = function(monthly, salesPersons, customers, categories) {
  draw('monthly-chart', 'line', monthly, false);
  draw('sales-persons-chart', 'bar', salesPersons, true);
  draw('customers-chart', 'bar', customers, true);
  draw('categories-chart', 'pie', categories, false);
};
</script>
</body>
</html>
`))

// Dashboard renders the full page with the initial selection already
// computed, so the first paint needs no round trip.
func Dashboard(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := SignalsJSON(data.Views, data.Generation)
		if err != nil {
			return err
		}
		return page.Execute(w, pageModel{PageData: data, Signals: string(signals)})
	})
}
