package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

func newReportCommand() *cobra.Command {
	var (
		company string
		brand   string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard views for a company and brand",
		Long: `Load the data and print the KPI cards, monthly revenue, sales person and
customer leaderboards, and category breakdown for one selection.

The company defaults to the first company in the data and the brand to All.`,
		Example: `  salesdash report --company "Acme Paints"
  salesdash report --company "Acme Paints" --brand Gloss --top 10 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("invalid output format %q, must be one of: table, json", format)
			}

			ctx := cmd.Context()
			cfg := GetConfig(ctx)
			logger := observability.Logger(ctx)

			load, err := newLoadFunc(ctx, cfg, logger)
			if err != nil {
				return err
			}
			t, rep, err := load(ctx)
			if err != nil {
				return err
			}
			logReport(logger, rep)

			sel := models.FilterSelection{Company: company, Brand: brand}
			if sel.Company == "" {
				companies := t.Companies()
				if len(companies) == 0 {
					return fmt.Errorf("no transactions in %s", t.Source())
				}
				sel.Company = companies[0]
			}
			if !t.HasCompany(sel.Company) {
				return fmt.Errorf("unknown company %q, available: %s", sel.Company, strings.Join(t.Companies(), ", "))
			}
			if sel.BrandFiltered() && !slices.Contains(t.Brands(), sel.Brand) {
				logger.Warn("brand not present in the data", "brand", sel.Brand)
			}

			views := services.ComputeAllViews(t, sel, cfg.Dashboard.TopN)
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			renderReport(cmd.OutOrStdout(), views)
			return nil
		},
	}

	cmd.Flags().StringVarP(&company, "company", "c", "", "Company to report on")
	cmd.Flags().StringVarP(&brand, "brand", "b", models.AllBrands, "Brand to report on")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format (table|json)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newReportTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func alignRight(cols ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, len(cols))
	for i, n := range cols {
		configs[i] = table.ColumnConfig{Number: n, Align: text.AlignRight}
	}
	return configs
}

func renderReport(w io.Writer, v models.Views) {
	_, _ = fmt.Fprintf(w, "%s / %s\n\n", v.Selection.Company, v.Selection.Brand)

	kpis := newReportTable(w, "Summary")
	kpis.AppendHeader(table.Row{"Total Revenue", "Total Quantity", "Unique Customers", "Transactions"})
	kpis.AppendRow(table.Row{
		templates.FormatINR(v.KPIs.TotalRevenue),
		templates.FormatCount(v.KPIs.TotalQuantity),
		templates.FormatCount(v.KPIs.UniqueCustomers),
		templates.FormatCount(v.KPIs.Transactions),
	})
	kpis.SetColumnConfigs(alignRight(1, 2, 3, 4))
	kpis.Render()
	_, _ = fmt.Fprintln(w)

	monthly := newReportTable(w, "Monthly Revenue")
	monthly.AppendHeader(table.Row{"Month", "Revenue"})
	for _, m := range v.MonthlyRevenue {
		monthly.AppendRow(table.Row{m.Month, templates.FormatINR(m.Revenue)})
	}
	monthly.SetColumnConfigs(alignRight(2))
	monthly.Render()
	_, _ = fmt.Fprintln(w)

	renderLeaderboard(w, "Top Sales Persons", v.TopSalesPersons)
	_, _ = fmt.Fprintln(w)
	renderLeaderboard(w, "Top Customers", v.TopCustomers)
	_, _ = fmt.Fprintln(w)

	categories := newReportTable(w, "Revenue by Category")
	categories.AppendHeader(table.Row{"Category", "Revenue"})
	for _, c := range v.CategoryBreakdown {
		categories.AppendRow(table.Row{c.Category, templates.FormatINR(c.Revenue)})
	}
	categories.SetColumnConfigs(alignRight(2))
	categories.Render()
}

func renderLeaderboard(w io.Writer, title string, entries []models.LeaderboardEntry) {
	t := newReportTable(w, title)
	t.AppendHeader(table.Row{"#", "Name", "Revenue"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Rank, e.Name, templates.FormatINR(e.Revenue)})
	}
	t.SetColumnConfigs(alignRight(3))
	t.Render()
}
