package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/loader"
	"sales-dashboard/internal/ui/templates"
)

const previewRows = 5

const (
	kindEmpty  = "empty"
	kindNumber = "number"
	kindDate   = "date"
	kindText   = "text"
	kindMixed  = "mixed"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show the columns and first rows of a data file",
		Long: `Read a transaction file without parsing it and print a preview of the
first rows, the column names, and a per-column summary with the number of
non-empty cells and the inferred value kind. Columns the dashboard requires
but the file lacks are listed at the end.

The file defaults to the configured data file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			path := cfg.Data.File
			if len(args) == 1 {
				path = args[0]
			}

			raw, err := loader.ReadRaw(cmd.Context(), path, cfg.Data.Sheet)
			if err != nil {
				return err
			}
			renderInspect(cmd.OutOrStdout(), raw)
			return nil
		},
	}
}

type columnSummary struct {
	Name    string
	NonNull int
	Kind    string
}

func summarizeColumns(raw *loader.RawTable) []columnSummary {
	out := make([]columnSummary, len(raw.Header))
	for i, name := range raw.Header {
		kinds := make(map[string]int)
		nonNull := 0
		for _, row := range raw.Rows {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			nonNull++
			kinds[cellKind(v)]++
		}
		out[i] = columnSummary{Name: name, NonNull: nonNull, Kind: columnKind(kinds)}
	}
	return out
}

func cellKind(v string) string {
	if _, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "")); err == nil {
		return kindNumber
	}
	if _, err := loader.ParseBillDate(v); err == nil {
		return kindDate
	}
	return kindText
}

func columnKind(kinds map[string]int) string {
	switch len(kinds) {
	case 0:
		return kindEmpty
	case 1:
		for k := range kinds {
			return k
		}
	}
	return kindMixed
}

func renderInspect(w io.Writer, raw *loader.RawTable) {
	_, _ = fmt.Fprintf(w, "%s: %s rows, %d columns\n\n", raw.Name, templates.FormatCount(len(raw.Rows)), len(raw.Header))

	preview := table.NewWriter()
	preview.SetOutputMirror(w)
	preview.SetStyle(table.StyleLight)
	preview.SetTitle("First rows")
	header := make(table.Row, len(raw.Header))
	for i, h := range raw.Header {
		header[i] = h
	}
	preview.AppendHeader(header)
	for _, row := range raw.Rows[:min(previewRows, len(raw.Rows))] {
		r := make(table.Row, len(raw.Header))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		preview.AppendRow(r)
	}
	preview.Render()
	_, _ = fmt.Fprintln(w)

	columns := table.NewWriter()
	columns.SetOutputMirror(w)
	columns.SetStyle(table.StyleLight)
	columns.SetTitle("Columns")
	columns.AppendHeader(table.Row{"#", "Column", "Non-null", "Kind"})
	for i, c := range summarizeColumns(raw) {
		columns.AppendRow(table.Row{i + 1, c.Name, c.NonNull, c.Kind})
	}
	columns.Render()

	var missing []string
	for _, col := range loader.RequiredColumns {
		if !slices.Contains(raw.Header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		_, _ = fmt.Fprintf(w, "\nMissing required columns: %s\n", strings.Join(missing, ", "))
	}
}
