package loader

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

const cacheVersion = "v2"

type cacheEntry struct {
	Version      string
	Sheet        string
	LoadedAt     time.Time
	Rows         int
	Transactions []models.Transaction
	Rejected     []RowError
}

// cacheFilename keys an entry on the source path and the selected sheet, so
// each sheet of a workbook gets its own entry.
func cacheFilename(dir string, src *FileSource) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(src.Path)
	if src.Sheet != "" {
		name += "@" + strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(src.Sheet)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func saveToCache(dir string, src *FileSource, t *Table, rep *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(cacheFilename(dir, src))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(cacheEntry{
		Version:      cacheVersion,
		Sheet:        src.Sheet,
		LoadedAt:     t.LoadedAt(),
		Rows:         rep.Rows,
		Transactions: t.Transactions(),
		Rejected:     rep.Rejected,
	})
}

func loadFromCache(dir string, src *FileSource) (*cacheEntry, error) {
	file, err := os.Open(cacheFilename(dir, src))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entry cacheEntry
	if err := gob.NewDecoder(file).Decode(&entry); err != nil {
		return nil, err
	}
	if entry.Version != cacheVersion {
		return nil, fmt.Errorf("cache version %q, want %q", entry.Version, cacheVersion)
	}
	if entry.Sheet != src.Sheet {
		return nil, fmt.Errorf("cache sheet %q, want %q", entry.Sheet, src.Sheet)
	}
	return &entry, nil
}
