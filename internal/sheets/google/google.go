package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"billed/internal/core"
	ports "billed/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the base name of the export sheet; the year is prefixed.
const DefaultSheetName = "Notes de frais"

// Header is the first row of the export sheet.
var Header = []any{"ID", "Date", "Employé", "Type", "Dépense", "Montant TTC", "TVA", "%", "Commentaire", "Justificatif", "Lien", "Statut"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Ensure interface conformance
var (
	_ ports.BillExporter       = (*Client)(nil)
	_ ports.ExportedBillLister = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID and service account credentials
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS).
// Optional: GOOGLE_SHEET_NAME (default "Notes de frais").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if base == "" {
		base = DefaultSheetName
	}

	credentialsJSON, err := serviceAccountCredentials(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return NewWithService(svc, spreadsheetID, yearPrefixedName(base, time.Now().Year())), nil
}

// NewWithService wraps an existing Sheets service writing to sheet.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
	}
}

// serviceAccountCredentials reads inline or file credentials.
func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Sheet returns the name of the sheet rows are appended to.
func (c *Client) Sheet() string { return c.sheet }

// AppendBill appends one row for b and returns the updated range.
func (c *Client) AppendBill(ctx context.Context, b core.Bill) (string, error) {
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:L", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{billRow(b)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append bill %s to sheet %s: %w", b.ID, c.sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// ExportedBillIDs reads the id column of the export sheet.
func (c *Client) ExportedBillIDs(ctx context.Context) (map[string]struct{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make(map[string]struct{}, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := strings.TrimSpace(fmt.Sprint(row[0])); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// billRow lays a bill out in Header order. Amounts are written as numbers so
// the sheet can sum them.
func billRow(b core.Bill) []any {
	return []any{
		b.ID,
		b.Date,
		b.Email,
		b.Type,
		b.Name,
		b.Amount,
		b.VAT,
		b.Pct,
		b.Commentary,
		b.FileName,
		b.FileURL,
		core.FormatStatus(b.Status),
	}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	prefix := fmt.Sprintf("%d ", year)
	if strings.HasPrefix(base, prefix) {
		return base
	}
	return prefix + base
}
