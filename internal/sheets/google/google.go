package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"rekrutacje/internal/core"
	ports "rekrutacje/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.RecordExporter = (*Client)(nil)
	_ ports.RecordReader   = (*Client)(nil)
)

// Options configures a Client. Credentials are taken from CredentialsJSON,
// then CredentialsFile, then GOOGLE_APPLICATION_CREDENTIALS.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	creds, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Rekrutacje"
	}
	return &Client{svc: svc, spreadsheetID: strings.TrimSpace(spreadsheetID), sheetName: sheetName}
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "component", "sheets")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "component", "sheets", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportRecords replaces the sheet contents with a header row and one row
// per record.
func (c *Client) ExportRecords(ctx context.Context, records []core.Record) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := quoteSheet(c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	rows := buildRows(records)
	ref := fmt.Sprintf("%s!A1:%s%d", sheet, columnName(len(header)), len(rows))
	vr := &gsheet.ValueRange{Values: rows}

	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write sheet %s: %w", c.sheetName, err)
	}
	return ref, nil
}

// ReadRecords reads the sheet back into records.
func (c *Client) ReadRecords(ctx context.Context) ([]core.Record, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:%s", quoteSheet(c.sheetName), columnName(len(header)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values)
}
