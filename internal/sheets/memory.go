package sheets

import (
	"context"
	"sync"

	apperr "gradebot/pkg/errors"
)

// MemoryGateway is an in-process Gateway over plain string grids. It backs
// tests and credential-less local runs; row/column semantics mirror
// SpreadsheetGateway (row 1 is the header).
type MemoryGateway struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

var _ Gateway = (*MemoryGateway)(nil)

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{sheets: map[string][][]string{}}
}

// SetSheet replaces a worksheet wholesale, header row included.
func (g *MemoryGateway) SetSheet(title string, grid [][]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([][]string, len(grid))
	for i, row := range grid {
		cp[i] = append([]string(nil), row...)
	}
	g.sheets[title] = cp
}

// CellAt reads back a cell (1-based row and column) for assertions.
func (g *MemoryGateway) CellAt(title string, row, col int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	grid := g.sheets[title]
	if row < 1 || row > len(grid) || col < 1 || col > len(grid[row-1]) {
		return ""
	}
	return grid[row-1][col-1]
}

// RowCount reports the number of rows including the header.
func (g *MemoryGateway) RowCount(title string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sheets[title])
}

func (g *MemoryGateway) SheetTitles(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	titles := make([]string, 0, len(g.sheets))
	for t := range g.sheets {
		titles = append(titles, t)
	}
	return titles, nil
}

func (g *MemoryGateway) grid(sheet string) ([][]string, error) {
	grid, ok := g.sheets[sheet]
	if !ok {
		return nil, apperr.NotFoundf("sheet %q", sheet)
	}
	return grid, nil
}

func (g *MemoryGateway) Header(ctx context.Context, sheet string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	grid, err := g.grid(sheet)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, nil
	}
	return append([]string(nil), grid[0]...), nil
}

func (g *MemoryGateway) Rows(ctx context.Context, sheet string) ([]Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	grid, err := g.grid(sheet)
	if err != nil {
		return nil, err
	}
	rows := []Row{}
	for i := 1; i < len(grid); i++ {
		rows = append(rows, Row{Index: i + 1, Cells: append([]string(nil), grid[i]...)})
	}
	return rows, nil
}

func (g *MemoryGateway) FindRow(ctx context.Context, sheet string, match func(Row) bool) (Row, error) {
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

func (g *MemoryGateway) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	grid, err := g.grid(sheet)
	if err != nil {
		return err
	}
	for len(grid) < row {
		grid = append(grid, []string{})
	}
	for len(grid[row-1]) < col {
		grid[row-1] = append(grid[row-1], "")
	}
	grid[row-1][col-1] = value
	g.sheets[sheet] = grid
	return nil
}

func (g *MemoryGateway) AppendRow(ctx context.Context, sheet string, cells []string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	grid, err := g.grid(sheet)
	if err != nil {
		return 0, err
	}
	grid = append(grid, append([]string(nil), cells...))
	g.sheets[sheet] = grid
	return len(grid), nil
}
