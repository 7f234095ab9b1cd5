package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gradebot/internal/config"
	"gradebot/internal/course"
	"gradebot/internal/grading"
	"gradebot/internal/sheets"
)

const testCourseYAML = `course:
  name: Алгоритмы
  semester: 2024-2025
  github:
    organization: algo-org
  google:
    spreadsheet: sheet-algo
  labs:
    ЛР1:
      github-prefix: algo-lab1
`

func newTestServer(t *testing.T) (*http.Server, *sheets.MemoryGateway) {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "algo.yaml"), []byte(testCourseYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	catalog := course.NewCatalog(dir)

	rosterGW := sheets.NewMemoryGateway()
	rosterGW.SetSheet(sheets.SheetUsers, [][]string{
		{"code", "student_name", "group", "tg_chat_id", "github", "course_id"},
		{"alpha", "Иванов Иван", "ИУ7-21", "", "", "algo"},
	})
	roster := sheets.NewRoster(rosterGW)

	courseGW := sheets.NewMemoryGateway()
	courseGW.SetSheet("ИУ7-21_algo", [][]string{
		{"chat_id", "Студент", "GitHub", "ЛР1"},
		{"", "Иванов Иван", "ivanov", "✓"},
	})
	sheetFor := func(string) sheets.Gateway { return courseGW }

	reg := grading.NewRegistration(catalog, roster, sheetFor)
	orch := grading.NewOrchestrator(catalog, roster, reg, nil, sheetFor)

	cfg := config.Config{HTTPAddr: ":0", ExportSecret: "secret"}
	return New(cfg, catalog, roster, reg, orch), rosterGW
}

func TestListCourses(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/courses", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0]["id"] != "1" || out[0]["name"] != "Алгоритмы" {
		t.Errorf("body = %v", out)
	}
}

func TestCourseNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/courses/9", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCodeLogin(t *testing.T) {
	srv, rosterGW := newTestServer(t)

	body := strings.NewReader(`{"chat_id": 100, "code": "alpha"}`)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/code/login", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		StudentName string `json:"student_name"`
		IsNewChatID bool   `json:"is_new_chat_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.StudentName != "Иванов Иван" || !out.IsNewChatID {
		t.Errorf("body = %+v", out)
	}
	if got := rosterGW.CellAt(sheets.SheetUsers, 2, 4); got != "100" {
		t.Errorf("chat id cell = %q, want 100", got)
	}

	// the code now belongs to chat 100
	body = strings.NewReader(`{"chat_id": 200, "code": "alpha"}`)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/code/login", body))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGroupLabs(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/courses/1/groups/ИУ7-21/labs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		Labs []string `json:"labs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Labs) != 1 || out.Labs[0] != "ЛР1" {
		t.Errorf("labs = %v", out.Labs)
	}
}

func TestLabsByChat(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"chat_id": 100, "code": "alpha"}`)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/code/login", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/labs/by-chat/100", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		Labs []map[string]any `json:"labs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Labs) != 1 || out.Labs[0]["key"] != "ЛР1" || out.Labs[0]["repo_prefix"] != "algo-lab1" {
		t.Errorf("labs = %v", out.Labs)
	}
}

func TestExportCSV(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET",
		"/export/results.csv?course=1&group=ИУ7-21&token=wrong", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad token: status = %d, want 403", rec.Code)
	}

	token := ExportToken("secret", "1", "ИУ7-21")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET",
		"/export/results.csv?course=1&group=ИУ7-21&token="+token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "student;ЛР1") {
		t.Errorf("missing header line: %q", body)
	}
	if !strings.Contains(body, "Иванов Иван;✓") {
		t.Errorf("missing result row: %q", body)
	}
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a;b", `"a;b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
	}
	for _, tt := range tests {
		if got := escapeCSV(tt.in); got != tt.want {
			t.Errorf("escapeCSV(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
