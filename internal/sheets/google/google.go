package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"drivertrack/internal/core"
	"drivertrack/internal/log"
	ports "drivertrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetBase is the sheet name the year is prefixed to.
const DefaultSheetBase = "Summary"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Summary"); code prefixes the year.
	sheetBase string
	logger    *log.Logger
}

// Ensure interface conformance
var (
	_ ports.SummaryWriter = (*Client)(nil)
	_ ports.SummaryReader = (*Client)(nil)
)

// NewFromEnv creates a Sheets client authenticated with a service account.
// The spreadsheet must already contain one "<year> <base>" sheet per year.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetBase string, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentSheets)
	}
	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetBase, logger), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = DefaultSheetBase
	}
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentSheets)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     strings.TrimSpace(sheetBase),
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, logger *log.Logger, opts ...goption.ClientOption) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// SheetName returns the sheet holding year's rows.
func (c *Client) SheetName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// WriteMonth rewrites the header and the month's row in one batch.
func (c *Client) WriteMonth(ctx context.Context, year, month int, label string, s core.MonthSummary) (string, error) {
	if err := core.ValidateMonth(month); err != nil {
		return "", err
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.SheetName(year)
	header := make([]any, len(ports.Columns))
	for i, h := range ports.Columns {
		header[i] = h
	}
	target := rowRange(sheet, ports.RowNumber(month))
	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*gsheet.ValueRange{
			{Range: rowRange(sheet, 1), Values: [][]any{header}},
			{Range: target, Values: [][]any{ports.Row(label, s)}},
		},
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	c.logger.DebugContext(ctx, "Summary row written",
		log.NewFields().WithMonth(year, month).With("range", target).ToSlice()...)
	return target, nil
}

// ReadMonth reads a month's row back. Cells are parsed leniently; anything
// unparsable reads as 0.
func (c *Client) ReadMonth(ctx context.Context, year, month int) (core.MonthSummary, bool, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.MonthSummary{}, false, err
	}
	if c.svc == nil {
		return core.MonthSummary{}, false, errors.New("sheets service not initialized")
	}
	rng := rowRange(c.SheetName(year), ports.RowNumber(month))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.MonthSummary{}, false, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) < 2 {
		return core.MonthSummary{}, false, nil
	}
	return parseRow(toStrings(resp.Values[0])), true, nil
}

func rowRange(sheet string, row int) string {
	last := string(rune('A' + len(ports.Columns) - 1))
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, last, row)
}

func parseRow(cols []string) core.MonthSummary {
	v := func(i int) float64 {
		if i >= len(cols) {
			return 0
		}
		return core.ParseAmount(cols[i])
	}
	return core.MonthSummary{
		TotalHours:           v(1),
		TotalOrders:          v(2),
		Revenue:              v(3),
		Tips:                 v(4),
		Gross:                v(5),
		WeeklyExpensesTotal:  v(6),
		MonthlyExpensesTotal: v(7),
		BusinessExpense6:     v(8),
		SVS:                  v(9),
		NetBeforeTax:         v(10),
		TaxableAmount:        v(11),
		Tax:                  v(12),
		SavingsBeforeTax:     v(13),
		SavingsAfterTax:      v(14),
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
