package loader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsConfig locates a transaction table in a Google spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	CredentialsJSON string
}

type valuesFetcher func(ctx context.Context) ([][]interface{}, error)

// SheetsSource reads the transaction table through the Sheets API. Values are
// requested unformatted with dates as serial numbers, so they go through the
// same parsing path as xlsx raw cells.
type SheetsSource struct {
	name  string
	fetch valuesFetcher
}

func NewSheetsSource(ctx context.Context, cfg SheetsConfig) (*SheetsSource, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	rng := cfg.Range
	if rng == "" {
		rng = "A:H"
	}

	var opts []goption.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsSource{
		name: fmt.Sprintf("sheets:%s!%s", id, rng),
		fetch: func(ctx context.Context) ([][]interface{}, error) {
			resp, err := svc.Spreadsheets.Values.Get(id, rng).
				ValueRenderOption("UNFORMATTED_VALUE").
				DateTimeRenderOption("SERIAL_NUMBER").
				Context(ctx).
				Do()
			if err != nil {
				return nil, err
			}
			return resp.Values, nil
		},
	}, nil
}

func (s *SheetsSource) Name() string {
	return s.name
}

func (s *SheetsSource) Read(ctx context.Context) (*RawTable, error) {
	values, err := s.fetch(ctx)
	if err != nil {
		return nil, newLoadError(KindUnreadable, s.name, "fetch values", err)
	}
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = toStrings(row)
	}
	return splitHeader(s.name, rows)
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
