package sheets

import "testing"

func TestResolveColumn(t *testing.T) {
	header := []string{"code", " student_name ", "group", "", "github"}

	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"code", 1, true},
		{"student_name", 2, true},
		{"github", 5, true},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := ResolveColumn(header, tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ResolveColumn(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{52, "AZ"},
		{53, "BA"},
	}
	for _, tt := range tests {
		if got := columnLetter(tt.col); got != tt.want {
			t.Errorf("columnLetter(%d) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestRowCellRagged(t *testing.T) {
	r := Row{Index: 2, Cells: []string{"a", " b "}}
	if got := r.Cell(2); got != "b" {
		t.Errorf("Cell(2) = %q, want b", got)
	}
	if got := r.Cell(5); got != "" {
		t.Errorf("Cell(5) = %q, want empty", got)
	}
	if got := r.Cell(0); got != "" {
		t.Errorf("Cell(0) = %q, want empty", got)
	}
}
