package course

import (
	"os"
	"path/filepath"
	"testing"
)

const algoYAML = `course:
  name: Алгоритмы
  semester: 2024-2025
  github:
    organization: algo-org
  google:
    spreadsheet: sheet-algo
  labs:
    ЛР1:
      github-prefix: algo-lab1
      short-name: sorting
    ЛР2:
      github-prefix: algo-lab2
      short-name: graphs
      groups: ["ИУ7-21"]
`

const osYAML = `course:
  name: Операционные системы
  semester: 2024-2025
  github:
    organization: os-org
  google:
    spreadsheet: sheet-os
    lab-column-offset: 2
  labs:
    ЛР1:
      github-prefix: os-lab1
`

func writeCourses(t *testing.T, files map[string]string) *Catalog {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewCatalog(dir)
}

func TestListOrdering(t *testing.T) {
	c := writeCourses(t, map[string]string{
		"os.yaml":   osYAML,
		"algo.yaml": algoYAML,
	})
	courses, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 2 {
		t.Fatalf("got %d courses, want 2", len(courses))
	}
	// ids follow sorted filenames, not load order
	if courses[0].ID != "1" || courses[0].Base != "algo" {
		t.Errorf("courses[0] = %s/%s, want 1/algo", courses[0].ID, courses[0].Base)
	}
	if courses[1].ID != "2" || courses[1].Base != "os" {
		t.Errorf("courses[1] = %s/%s, want 2/os", courses[1].ID, courses[1].Base)
	}
}

func TestListIgnoresYmlExtension(t *testing.T) {
	c := writeCourses(t, map[string]string{
		"aaa.yml":   osYAML, // sorts first but must not claim id 1
		"algo.yaml": algoYAML,
	})
	courses, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 1 {
		t.Fatalf("got %d courses, want 1", len(courses))
	}
	if courses[0].ID != "1" || courses[0].Base != "algo" {
		t.Errorf("courses[0] = %s/%s, want 1/algo", courses[0].ID, courses[0].Base)
	}
}

func TestListSkipsMalformed(t *testing.T) {
	c := writeCourses(t, map[string]string{
		"aaa.yaml":  "{[not yaml",
		"algo.yaml": algoYAML,
		"meta.yaml": "unrelated: document",
	})
	courses, err := c.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 1 {
		t.Fatalf("got %d courses, want 1", len(courses))
	}
	// a skipped file must not consume an id slot
	if courses[0].ID != "1" {
		t.Errorf("id = %s, want 1", courses[0].ID)
	}
}

func TestDefaults(t *testing.T) {
	c := writeCourses(t, map[string]string{"algo.yaml": algoYAML})
	crs, err := c.Get("1")
	if err != nil {
		t.Fatal(err)
	}
	if crs.StudentNameColumn != 2 {
		t.Errorf("StudentNameColumn = %d, want 2", crs.StudentNameColumn)
	}
	if crs.LabColumnOffset != 1 {
		t.Errorf("LabColumnOffset = %d, want 1", crs.LabColumnOffset)
	}
	if crs.InfoSheet != "График" {
		t.Errorf("InfoSheet = %q", crs.InfoSheet)
	}
	if got := crs.GroupSheet("ИУ7-21"); got != "ИУ7-21_algo" {
		t.Errorf("GroupSheet = %q", got)
	}
}

func TestLabsForGroup(t *testing.T) {
	c := writeCourses(t, map[string]string{"algo.yaml": algoYAML})
	crs, err := c.Get("1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		group string
		want  []string
	}{
		{"ИУ7-21", []string{"ЛР1", "ЛР2"}},
		{"ИУ7-22", []string{"ЛР1"}}, // ЛР2 restricted to ИУ7-21
	}
	for _, tt := range tests {
		got := crs.LabsForGroup(tt.group)
		if len(got) != len(tt.want) {
			t.Errorf("LabsForGroup(%s) = %v, want %v", tt.group, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("LabsForGroup(%s)[%d] = %q, want %q", tt.group, i, got[i], tt.want[i])
			}
		}
	}
}

func TestGetNotFound(t *testing.T) {
	c := writeCourses(t, map[string]string{"algo.yaml": algoYAML})
	if _, err := c.Get("7"); err == nil {
		t.Fatal("Get(7) should fail")
	}
}

func TestDeleteShiftsIDs(t *testing.T) {
	c := writeCourses(t, map[string]string{
		"algo.yaml": algoYAML,
		"os.yaml":   osYAML,
	})
	if err := c.Delete("1"); err != nil {
		t.Fatal(err)
	}
	crs, err := c.Get("1")
	if err != nil {
		t.Fatal(err)
	}
	if crs.Base != "os" {
		t.Errorf("after delete, course 1 = %s, want os", crs.Base)
	}
}

func TestNormalizeLabKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"3", "ЛР3", false},
		{"lab3", "ЛР3", false},
		{"ЛР3", "ЛР3", false},
		{"ЛР12", "ЛР12", false},
		{"nope", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeLabKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeLabKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeLabKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
