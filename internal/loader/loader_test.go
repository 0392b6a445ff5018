package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const header = "Company Name,Brand,Sales Person,Customer Name,Item Category,Billdate,Qty,Taxpaidvalue\n"

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := createTempCSV(t, header+
		"CompA,BrandX,Asha,Cust1,Paint,2023-01-15,2,100.50\n"+
		"CompA,BrandY,Ravi,Cust2,Primer,2023-02-03 10:30:00,1,\"1,050\"\n"+
		"CompB,BrandX,Asha,Cust3,Paint,03/04/2023,4,30\n")

	table, rep, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, 3, rep.Accepted)
	assert.Empty(t, rep.Rejected)
	assert.Equal(t, []string{"CompA", "CompB"}, table.Companies())
	assert.Equal(t, []string{"BrandX", "BrandY"}, table.Brands())

	txs := table.Transactions()
	assert.Equal(t, "Asha", txs[0].SalesPerson)
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), txs[0].BillDate)
	assert.True(t, txs[0].TaxPaidValue.Equal(decimal.RequireFromString("100.50")))
	assert.Equal(t, time.Date(2023, 2, 3, 0, 0, 0, 0, time.UTC), txs[1].BillDate, "time of day is dropped")
	assert.True(t, txs[1].TaxPaidValue.Equal(decimal.NewFromInt(1050)))
	assert.Equal(t, time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC), txs[2].BillDate)
	assert.Equal(t, int64(4), txs[2].Qty)
}

func TestLoad_ColumnOrderAndExtraColumns(t *testing.T) {
	path := createTempCSV(t,
		"Taxpaidvalue,Billdate,Qty,Invoice,Item Category,Customer Name,Sales Person,Brand,Company Name\n"+
			"25,2023-05-01,3,INV1,Paint,Cust1,Asha,BrandX,CompA\n")

	table, _, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	tx := table.Transactions()[0]
	assert.Equal(t, "CompA", tx.CompanyName)
	assert.Equal(t, int64(3), tx.Qty)
	assert.True(t, tx.TaxPaidValue.Equal(decimal.NewFromInt(25)))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		kind ErrorKind
	}{
		{
			name: "empty file",
			csv:  "",
			kind: KindSchema,
		},
		{
			name: "missing columns",
			csv:  "Company Name,Brand,Qty\nCompA,BrandX,1\n",
			kind: KindSchema,
		},
		{
			name: "every row malformed",
			csv:  header + "CompA,BrandX,Asha,Cust1,Paint,not-a-date,2,100\n",
			kind: KindMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(context.Background(), createTempCSV(t, tt.csv))
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "want %s, got %v", tt.kind, err)
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, _, err := Load(context.Background(), path)
	assert.True(t, IsKind(err, KindUnreadable))
}

func TestLoad_RejectsMalformedRows(t *testing.T) {
	path := createTempCSV(t, header+
		"CompA,BrandX,Asha,Cust1,Paint,2023-01-15,2,100\n"+
		"CompA,BrandX,Asha,Cust1,Paint,someday,2,100\n"+
		",,,,,,,\n"+
		"CompA,BrandX,Asha,Cust1,Paint,2023-01-16,2.5,100\n"+
		"CompA,BrandX,Asha,Cust1,Paint,2023-01-17,2,abc\n"+
		"CompA,BrandX,Ravi,Cust2,Paint,2023-01-18,,\n")

	table, rep, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 5, rep.Rows, "blank rows are not counted")
	require.Len(t, rep.Rejected, 3)
	assert.Equal(t, RowError{Row: 3, Column: ColBillDate, Value: "someday", Reason: "unrecognised date format"}, rep.Rejected[0])
	assert.Equal(t, ColQty, rep.Rejected[1].Column)
	assert.Equal(t, 5, rep.Rejected[1].Row)
	assert.Equal(t, ColTaxPaidValue, rep.Rejected[2].Column)

	last := table.Transactions()[1]
	assert.Zero(t, last.Qty, "blank quantity counts as zero")
	assert.True(t, last.TaxPaidValue.IsZero())
}

func TestLoad_Strict(t *testing.T) {
	path := createTempCSV(t, header+
		"CompA,BrandX,Asha,Cust1,Paint,2023-01-15,2,100\n"+
		"CompA,BrandX,Asha,Cust1,Paint,someday,2,100\n")

	_, _, err := New(Options{Strict: true}).LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))

	var rowErr RowError
	assert.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)
}

func TestLoad_PreservesOrderAcrossBatches(t *testing.T) {
	content := header
	for i := 0; i < 50; i++ {
		content += "CompA,BrandX,Asha,Cust" + string(rune('A'+i%26)) + ",Paint,2023-01-15,1,1\n"
	}
	path := createTempCSV(t, content)

	raw, err := ReadRaw(context.Background(), path, "")
	require.NoError(t, err)
	idx, err := indexColumns(path, raw.Header)
	require.NoError(t, err)

	parsed, err := parseRows(context.Background(), idx, raw.Rows, 4, 3)
	require.NoError(t, err)
	require.Len(t, parsed, 50)
	for i, p := range parsed {
		assert.Equal(t, "Cust"+string(rune('A'+i%26)), p.tx.CustomerName)
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	path := createTempCSV(t, header+"CompA,BrandX,Asha,Cust1,Paint,2023-01-15,2,100\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Company Name", "Brand", "Sales Person", "Customer Name", "Item Category", "Billdate", "Qty", "Taxpaidvalue"},
		{"CompA", "BrandX", "Asha", "Cust1", "Paint", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), 2, 100.25},
		{"CompB", "BrandY", "Ravi", "Cust2", "Primer", "2023-02-10", 1, 50},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, rep, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, 2, rep.Accepted)

	txs := table.Transactions()
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), txs[0].BillDate)
	assert.True(t, txs[0].TaxPaidValue.Equal(decimal.RequireFromString("100.25")))
	assert.Equal(t, time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC), txs[1].BillDate)
}

func TestLoadFile_Cache(t *testing.T) {
	path := createTempCSV(t, header+"CompA,BrandX,Asha,Cust1,Paint,2023-01-15,2,100\n")
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	l := New(Options{CacheDir: t.TempDir()})

	_, rep, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, rep.Cached)

	table, rep, err := l.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, rep.Cached)
	assert.Equal(t, 1, table.Len())
	assert.True(t, table.Transactions()[0].TaxPaidValue.Equal(decimal.NewFromInt(100)))

	// a newer file invalidates the cache
	now := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, now, now))
	_, rep, err = l.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, rep.Cached)
}

func TestLoadFile_CacheHonoursStrict(t *testing.T) {
	path := createTempCSV(t, header+
		"CompA,BrandX,Asha,Cust1,Paint,2023-01-15,2,100\n"+
		"CompA,BrandX,Asha,Cust1,Paint,not-a-date,1,50\n")
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	dir := t.TempDir()

	_, rep, err := New(Options{CacheDir: dir}).LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rep.Rejected, 1)

	_, _, err = New(Options{CacheDir: dir, Strict: true}).LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed), "got %v", err)

	// the lenient entry is still served to lenient loads
	table, rep, err := New(Options{CacheDir: dir}).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, rep.Cached)
	assert.Equal(t, 1, table.Len())
}

func TestLoadFile_CachePerSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	sheets := map[string]string{"Sheet1": "CompA", "Other": "CompZ"}
	for sheet, company := range sheets {
		rows := [][]interface{}{
			{"Company Name", "Brand", "Sales Person", "Customer Name", "Item Category", "Billdate", "Qty", "Taxpaidvalue"},
			{company, "BrandX", "Asha", "Cust1", "Paint", "2023-01-15", 1, 10},
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	dir := t.TempDir()

	table, _, err := New(Options{CacheDir: dir}).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CompA"}, table.Companies())

	table, rep, err := New(Options{CacheDir: dir, Sheet: "Other"}).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, rep.Cached)
	assert.Equal(t, []string{"CompZ"}, table.Companies())

	table, rep, err = New(Options{CacheDir: dir, Sheet: "Other"}).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, rep.Cached)
	assert.Equal(t, []string{"CompZ"}, table.Companies())
}

func TestLoad_RejectsOutOfRangeSerialDates(t *testing.T) {
	path := createTempCSV(t, header+
		"CompA,BrandX,Asha,Cust1,Paint,44941,2,100\n"+
		"CompA,BrandX,Asha,Cust1,Paint,NaN,1,50\n"+
		"CompA,BrandX,Asha,Cust1,Paint,1e20,1,50\n")

	table, rep, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Len(t, rep.Rejected, 2)
}

func TestParseBillDate(t *testing.T) {
	want := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2023-01-15", false},
		{"2023-01-15 13:45:00", false},
		{"2023-01-15T13:45:00Z", false},
		{"01/15/2023", false},
		{"15-01-2023", false},
		{"2023/01/15", false},
		{"15-Jan-2023", false},
		{"44941", false},
		{"44941.5", false},
		{"", true},
		{"yesterday", true},
		{"-5", true},
		{"0", true},
		{"NaN", true},
		{"Inf", true},
		{"-Inf", true},
		{"1e20", true},
		{"2958466", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBillDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSheetsSource_Read(t *testing.T) {
	src := &SheetsSource{
		name: "sheets:test",
		fetch: func(ctx context.Context) ([][]interface{}, error) {
			return [][]interface{}{
				{"Company Name", "Brand", "Sales Person", "Customer Name", "Item Category", "Billdate", "Qty", "Taxpaidvalue"},
				{"CompA", "BrandX", "Asha", "Cust1", "Paint", float64(44941), float64(2), 100.5},
				{"CompA", "BrandX", "Asha", "Cust1"},
			}, nil
		},
	}

	table, rep, err := New(Options{}).LoadSource(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	require.Len(t, rep.Rejected, 1, "ragged row without a date is rejected")
	assert.Equal(t, "sheets:test", table.Source())

	tx := table.Transactions()[0]
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), tx.BillDate)
	assert.True(t, tx.TaxPaidValue.Equal(decimal.RequireFromString("100.5")))
}

func TestSheetsSource_FetchError(t *testing.T) {
	src := &SheetsSource{
		name:  "sheets:test",
		fetch: func(ctx context.Context) ([][]interface{}, error) { return nil, errors.New("403") },
	}
	_, _, err := New(Options{}).LoadSource(context.Background(), src)
	assert.True(t, IsKind(err, KindUnreadable))
}

func TestNewSheetsSource_MissingID(t *testing.T) {
	_, err := NewSheetsSource(context.Background(), SheetsConfig{})
	assert.Error(t, err)
}
