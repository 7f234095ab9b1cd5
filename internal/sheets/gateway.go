package sheets

import (
	"context"
	"fmt"
	"strings"

	sheetsv4 "google.golang.org/api/sheets/v4"

	apperr "gradebot/pkg/errors"
)

// Row is one data row of a worksheet. Index is the 1-based sheet row number,
// so with a single header row the first data row has Index 2.
type Row struct {
	Index int
	Cells []string
}

// Cell returns the trimmed cell at 1-based column col, or "" when the row is
// ragged.
func (r Row) Cell(col int) string {
	if col < 1 || col > len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[col-1])
}

// Gateway is the narrow surface the rest of the system reads and writes
// spreadsheets through. All row/column arithmetic stays behind it. The
// remote store has no transactions: concurrent UpdateCell calls on the same
// row interleave, last write wins per cell.
type Gateway interface {
	SheetTitles(ctx context.Context) ([]string, error)
	Header(ctx context.Context, sheet string) ([]string, error)
	Rows(ctx context.Context, sheet string) ([]Row, error)
	FindRow(ctx context.Context, sheet string, match func(Row) bool) (Row, error)
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error
	AppendRow(ctx context.Context, sheet string, cells []string) (int, error)
}

// ResolveColumn finds the 1-based column whose header matches name exactly
// (after trimming). The second return is false when the header is absent and
// the caller has to fall back to a configured index.
func ResolveColumn(header []string, name string) (int, bool) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i + 1, true
		}
	}
	return 0, false
}

// SpreadsheetGateway is the Sheets-API-backed Gateway for one spreadsheet.
type SpreadsheetGateway struct {
	srv           *sheetsv4.Service
	spreadsheetID string
}

var _ Gateway = (*SpreadsheetGateway)(nil)

func (g *SpreadsheetGateway) readAll(ctx context.Context, sheet string) ([][]interface{}, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(g.spreadsheetID, sheet+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, apperr.Unavailablef("read %s", sheet)
	}
	return resp.Values, nil
}

func (g *SpreadsheetGateway) SheetTitles(ctx context.Context) ([]string, error) {
	resp, err := g.srv.Spreadsheets.Get(g.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Unavailablef("list sheets of %s", g.spreadsheetID)
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (g *SpreadsheetGateway) Header(ctx context.Context, sheet string) ([]string, error) {
	values, err := g.readAll(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	header := make([]string, len(values[0]))
	for i, v := range values[0] {
		header[i] = fmt.Sprint(v)
	}
	return header, nil
}

func (g *SpreadsheetGateway) Rows(ctx context.Context, sheet string) ([]Row, error) {
	values, err := g.readAll(ctx, sheet)
	if err != nil {
		return nil, err
	}
	rows := []Row{}
	// header row at index 0
	for i := 1; i < len(values); i++ {
		cells := make([]string, len(values[i]))
		for j, v := range values[i] {
			cells[j] = fmt.Sprint(v)
		}
		rows = append(rows, Row{Index: i + 1, Cells: cells})
	}
	return rows, nil
}

func (g *SpreadsheetGateway) FindRow(ctx context.Context, sheet string, match func(Row) bool) (Row, error) {
	rows, err := g.Rows(ctx, sheet)
	if err != nil {
		return Row{}, err
	}
	for _, r := range rows {
		if match(r) {
			return r, nil
		}
	}
	return Row{}, apperr.NotFoundf("row in %s", sheet)
}

func (g *SpreadsheetGateway) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{{value}}}
	a1 := fmt.Sprintf("%s%d", columnLetter(col), row)
	_, err := g.srv.Spreadsheets.Values.Update(g.spreadsheetID, sheet+"!"+a1, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return apperr.Unavailablef("update %s!%s", sheet, a1)
	}
	return nil
}

func (g *SpreadsheetGateway) AppendRow(ctx context.Context, sheet string, cells []string) (int, error) {
	values, err := g.readAll(ctx, sheet)
	if err != nil {
		return 0, err
	}
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err = g.srv.Spreadsheets.Values.Append(g.spreadsheetID, sheet+"!A:Z", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, apperr.Unavailablef("append to %s", sheet)
	}
	return len(values) + 1, nil
}

// columnLetter converts a 1-based column number to A1 letters.
func columnLetter(col int) string {
	s := ""
	for col > 0 {
		col--
		s = string(rune('A'+col%26)) + s
		col /= 26
	}
	return s
}
