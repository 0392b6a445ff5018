package loader

import (
	"time"

	"sales-dashboard/internal/models"
)

// Table is the loaded transaction set. It is never mutated after NewTable
// returns and is safe for concurrent readers.
type Table struct {
	source    string
	loadedAt  time.Time
	txs       []models.Transaction
	companies []string
	brands    []string
}

func NewTable(source string, txs []models.Transaction) *Table {
	t := &Table{
		source:   source,
		loadedAt: time.Now(),
		txs:      append([]models.Transaction(nil), txs...),
	}
	t.companies = distinct(t.txs, func(tx models.Transaction) string { return tx.CompanyName })
	t.brands = distinct(t.txs, func(tx models.Transaction) string { return tx.Brand })
	return t
}

// Transactions returns the rows in sheet order. The slice is shared and must
// not be modified.
func (t *Table) Transactions() []models.Transaction {
	if t == nil {
		return nil
	}
	return t.txs
}

// Companies returns the distinct company names in first-seen order.
func (t *Table) Companies() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.companies...)
}

// Brands returns the distinct brands in first-seen order.
func (t *Table) Brands() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.brands...)
}

func (t *Table) HasCompany(company string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.companies {
		if c == company {
			return true
		}
	}
	return false
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.txs)
}

func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

func (t *Table) LoadedAt() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.loadedAt
}

func distinct(txs []models.Transaction, key func(models.Transaction) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tx := range txs {
		k := key(tx)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
