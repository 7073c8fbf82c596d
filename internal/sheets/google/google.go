package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"anggaran/internal/export"
	"anggaran/internal/importer"
	ports "anggaran/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var (
	_ ports.GridReader  = (*Client)(nil)
	_ ports.TableWriter = (*Client)(nil)
)

// Credentials selects a service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// New creates a Sheets client authenticated as a service account.
func New(ctx context.Context, spreadsheetID string, creds Credentials) (*Client, error) {
	key, err := creds.load()
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, spreadsheetID,
		goption.WithCredentialsJSON(key),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client from raw client options.
func NewWithOptions(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// ReadGrid reads formatted cell values, so numbers arrive as the sheet shows
// them and go through the permissive number parser.
func (c *Client) ReadGrid(ctx context.Context, rangeA1 string) (importer.Grid, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeA1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rangeA1, err)
	}
	return toGrid(resp.Values), nil
}

func (c *Client) WriteTables(ctx context.Context, tables ...export.Table) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(tables) == 0 {
		return nil
	}

	existing, err := c.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if add := addSheetRequests(existing, tables); len(add) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
			&gsheet.BatchUpdateSpreadsheetRequest{Requests: add}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheets: %w", err)
		}
	}

	ranges := make([]string, len(tables))
	data := make([]*gsheet.ValueRange, len(tables))
	for i, t := range tables {
		ranges[i] = ports.Quote(t.Name)
		data[i] = &gsheet.ValueRange{Range: ports.Quote(t.Name) + "!A1", Values: t.Grid()}
	}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID,
		&gsheet.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheets: %w", err)
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID,
		&gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheets: %w", err)
	}

	slog.InfoContext(ctx, "Tables mirrored to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"tables", len(tables))
	return nil
}

func (c *Client) sheetTitles(ctx context.Context) (map[string]bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	titles := map[string]bool{}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = true
		}
	}
	return titles, nil
}

func addSheetRequests(existing map[string]bool, tables []export.Table) []*gsheet.Request {
	var out []*gsheet.Request
	seen := map[string]bool{}
	for _, t := range tables {
		if existing[t.Name] || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: t.Name}},
		})
	}
	return out
}

// toGrid trims string cells; the API already drops trailing empty cells.
func toGrid(values [][]interface{}) importer.Grid {
	grid := make(importer.Grid, len(values))
	for i, row := range values {
		cells := make([]any, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok {
				v = strings.TrimSpace(s)
			}
			cells[j] = v
		}
		grid[i] = cells
	}
	return grid
}
