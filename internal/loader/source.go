package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// RawTable is a sheet as read from its source: a header row and string cells.
// Rows may be ragged.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

type Source interface {
	Name() string
	Read(ctx context.Context) (*RawTable, error)
}

// FileSource reads .xlsx and .csv files. Sheet selects the worksheet of an
// xlsx workbook; the first sheet is used when empty.
type FileSource struct {
	Path  string
	Sheet string
}

func NewFileSource(path, sheet string) *FileSource {
	return &FileSource{Path: path, Sheet: sheet}
}

func (s *FileSource) Name() string {
	return s.Path
}

// ModTime returns the file's modification time.
func (s *FileSource) ModTime() (time.Time, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *FileSource) Read(ctx context.Context) (*RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newLoadError(KindNotFound, s.Path, "file does not exist", err)
		}
		return nil, newLoadError(KindUnreadable, s.Path, "stat file", err)
	}
	if info.IsDir() {
		return nil, newLoadError(KindUnreadable, s.Path, "path is a directory", nil)
	}

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return s.readWorkbook()
	case ".csv":
		return s.readCSV()
	default:
		return nil, newLoadError(KindUnreadable, s.Path,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(s.Path)), nil)
	}
}

func (s *FileSource) readWorkbook() (*RawTable, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, newLoadError(KindUnreadable, s.Path, "open workbook", err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, newLoadError(KindMalformed, s.Path, "workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	// Raw values keep dates as serial numbers instead of locale formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, newLoadError(KindUnreadable, s.Path, fmt.Sprintf("read sheet %q", sheet), err)
	}
	return splitHeader(s.Path, rows)
}

func (s *FileSource) readCSV() (*RawTable, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, newLoadError(KindUnreadable, s.Path, "open file", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newLoadError(KindMalformed, s.Path, "parse csv", err)
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return splitHeader(s.Path, rows)
}

func splitHeader(name string, rows [][]string) (*RawTable, error) {
	if len(rows) == 0 {
		return nil, newLoadError(KindSchema, name, "empty sheet: no header row", nil)
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &RawTable{Name: name, Header: header, Rows: rows[1:]}, nil
}

// ReadRaw reads a file without any schema check or parsing.
func ReadRaw(ctx context.Context, path, sheet string) (*RawTable, error) {
	return NewFileSource(path, sheet).Read(ctx)
}
