package loader

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	ColCompany      = "Company Name"
	ColBrand        = "Brand"
	ColSalesPerson  = "Sales Person"
	ColCustomer     = "Customer Name"
	ColItemCategory = "Item Category"
	ColBillDate     = "Billdate"
	ColQty          = "Qty"
	ColTaxPaidValue = "Taxpaidvalue"
)

// RequiredColumns lists the header names a transaction sheet must carry.
var RequiredColumns = []string{
	ColCompany, ColBrand, ColSalesPerson, ColCustomer,
	ColItemCategory, ColBillDate, ColQty, ColTaxPaidValue,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-2006",
}

type columnIndex map[string]int

func indexColumns(source string, header []string) (columnIndex, error) {
	idx := make(columnIndex, len(RequiredColumns))
	for i, h := range header {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, newLoadError(KindSchema, source,
			fmt.Sprintf("missing columns %s; got headers=%v", strings.Join(missing, ", "), header), nil)
	}
	return idx, nil
}

func (c columnIndex) get(row []string, col string) string {
	i := c[col]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

type parsedRow struct {
	tx    models.Transaction
	err   *RowError
	blank bool
}

// parseRows converts raw rows into transactions. Rows are parsed in batches on
// a bounded pool of workers; the output keeps sheet order.
func parseRows(ctx context.Context, idx columnIndex, rows [][]string, workers, batch int) ([]parsedRow, error) {
	out := make([]parsedRow, len(rows))

	var g errgroup.Group
	g.SetLimit(workers)

	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = parseRow(idx, rows[i], i+2)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseRow(idx columnIndex, row []string, rowNum int) parsedRow {
	if isBlank(row) {
		return parsedRow{blank: true}
	}

	rawDate := idx.get(row, ColBillDate)
	billDate, err := ParseBillDate(rawDate)
	if err != nil {
		return parsedRow{err: &RowError{Row: rowNum, Column: ColBillDate, Value: rawDate, Reason: err.Error()}}
	}

	rawQty := idx.get(row, ColQty)
	qty, err := parseQty(rawQty)
	if err != nil {
		return parsedRow{err: &RowError{Row: rowNum, Column: ColQty, Value: rawQty, Reason: err.Error()}}
	}

	rawValue := idx.get(row, ColTaxPaidValue)
	value, err := parseAmount(rawValue)
	if err != nil {
		return parsedRow{err: &RowError{Row: rowNum, Column: ColTaxPaidValue, Value: rawValue, Reason: err.Error()}}
	}

	return parsedRow{tx: models.Transaction{
		CompanyName:  idx.get(row, ColCompany),
		Brand:        idx.get(row, ColBrand),
		SalesPerson:  idx.get(row, ColSalesPerson),
		CustomerName: idx.get(row, ColCustomer),
		ItemCategory: idx.get(row, ColItemCategory),
		BillDate:     billDate,
		Qty:          qty,
		TaxPaidValue: value,
	}}
}

// maxExcelSerial is the serial of 10000-01-01, one past the last date a
// workbook can hold.
const maxExcelSerial = 2958466

// ParseBillDate accepts spreadsheet serial numbers and common textual date
// layouts. The time of day is dropped.
func ParseBillDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(serial) || serial <= 0 || serial >= maxExcelSerial {
			return time.Time{}, fmt.Errorf("serial date %q out of range", s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial date: %w", err)
		}
		return truncateDay(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format")
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseQty(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("not a whole number")
	}
	return int64(f), nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a decimal amount")
	}
	return d, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
