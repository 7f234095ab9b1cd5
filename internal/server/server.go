package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gradebot/internal/config"
	"gradebot/internal/course"
	"gradebot/internal/grading"
	"gradebot/internal/sheets"
	apperr "gradebot/pkg/errors"
)

// New builds the JSON surface over the same services the bot uses. Handlers
// are thin: decode, call, encode; all rules live in the service layer.
func New(cfg config.Config, catalog *course.Catalog, roster *sheets.Roster, reg *grading.Registration, orch *grading.Orchestrator) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /courses", func(w http.ResponseWriter, r *http.Request) {
		courses, err := catalog.List()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courseListJSON(courses))
	})

	mux.HandleFunc("GET /courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		crs, err := catalog.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courseJSON(crs))
	})

	mux.HandleFunc("GET /courses/{id}/groups", func(w http.ResponseWriter, r *http.Request) {
		crs, err := catalog.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		groups, err := orch.Groups(r.Context(), crs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"course_id": crs.ID, "groups": groups})
	})

	mux.HandleFunc("GET /courses/{id}/groups/{group}/labs", func(w http.ResponseWriter, r *http.Request) {
		crs, err := catalog.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		labs, err := orch.GroupLabs(r.Context(), crs, r.PathValue("group"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"labs": labs})
	})

	mux.HandleFunc("GET /courses/by-chat/{chatID}", func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDPath(w, r)
		if !ok {
			return
		}
		courses, rec, err := orch.CoursesFor(r.Context(), chatID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"student_name": rec.StudentName,
			"group":        rec.Group,
			"courses":      courseListJSON(courses),
		})
	})

	mux.HandleFunc("GET /labs/by-chat/{chatID}", func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDPath(w, r)
		if !ok {
			return
		}
		offers, err := orch.LabsForChat(r.Context(), chatID)
		if err != nil {
			writeError(w, err)
			return
		}
		labs := []map[string]any{}
		for _, o := range offers {
			labs = append(labs, map[string]any{
				"key":         o.Key,
				"title":       o.Title,
				"deadline":    o.Deadline,
				"repo_prefix": o.RepoPrefix,
				"course_name": o.CourseName,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"labs": labs})
	})

	mux.HandleFunc("GET /student-group/{chatID}", func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDPath(w, r)
		if !ok {
			return
		}
		rec, err := roster.ByChat(r.Context(), chatID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"student_name": rec.StudentName,
			"group":        rec.Group,
			"github":       rec.Github,
		})
	})

	mux.HandleFunc("POST /auth/code/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ChatID int64  `json:"chat_id"`
			Code   string `json:"code"`
		}
		if !decode(w, r, &in) {
			return
		}
		res, err := roster.Login(r.Context(), in.ChatID, in.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"student_name":   res.StudentName,
			"has_github":     res.HasGithub,
			"is_new_chat_id": res.NewChat,
		})
	})

	mux.HandleFunc("POST /auth/github/update", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ChatID int64  `json:"chat_id"`
			Github string `json:"github"`
		}
		if !decode(w, r, &in) {
			return
		}
		if strings.TrimSpace(in.Github) == "" {
			http.Error(w, "github username required", http.StatusBadRequest)
			return
		}
		if err := roster.SetGithub(r.Context(), in.ChatID, strings.TrimSpace(in.Github)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("POST /courses/{id}/groups/{group}/register-by-chat", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ChatID int64 `json:"chat_id"`
		}
		if !decode(w, r, &in) {
			return
		}
		res, err := reg.EnsureLinked(r.Context(), in.ChatID, r.PathValue("id"), r.PathValue("group"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       res.Status,
			"github":       res.Github,
			"student_name": res.StudentName,
		})
	})

	mux.HandleFunc("POST /courses/{id}/groups/{group}/labs/{lab}/grade", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ChatID int64 `json:"chat_id"`
		}
		if !decode(w, r, &in) {
			return
		}
		out, err := orch.Grade(r.Context(), r.PathValue("id"), r.PathValue("group"), r.PathValue("lab"), in.ChatID)
		if err != nil {
			writeError(w, err)
			return
		}
		msg := out.Passed
		if out.Pending() {
			msg = "CI has not concluded yet"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  out.Status,
			"result":  out.Result,
			"message": msg,
			"passed":  out.Passed,
			"checks":  out.Checks,
		})
	})

	mux.HandleFunc("POST /auth/admin/code/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ChatID int64  `json:"chat_id"`
			Code   string `json:"code"`
		}
		if !decode(w, r, &in) {
			return
		}
		rec, err := roster.AdminLogin(r.Context(), in.ChatID, in.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"admin_name":  rec.AdminName,
			"permissions": rec.Permissions,
		})
	})

	mux.HandleFunc("GET /admin/check-chat/{chatID}", func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDPath(w, r)
		if !ok {
			return
		}
		isAdmin, err := roster.IsAdminChat(r.Context(), chatID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"is_admin": isAdmin})
	})

	mux.HandleFunc("GET /admin/courses", func(w http.ResponseWriter, r *http.Request) {
		courses, err := catalog.List()
		if err != nil {
			writeError(w, err)
			return
		}
		out := []map[string]any{}
		for _, c := range courses {
			j := courseJSON(c)
			j["filename"] = c.Filename
			j["spreadsheet"] = c.SpreadsheetID
			out = append(out, j)
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /admin/courses/{id}/yaml", func(w http.ResponseWriter, r *http.Request) {
		filename, content, err := catalog.RawYAML(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"filename": filename, "yaml": content})
	})

	mux.HandleFunc("DELETE /admin/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := catalog.Delete(r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// CSV export of one group's results. The link carries an HMAC over the
	// course/group pair so it can be handed out without another auth layer.
	mux.HandleFunc("GET /export/results.csv", func(w http.ResponseWriter, r *http.Request) {
		courseID := r.URL.Query().Get("course")
		group := r.URL.Query().Get("group")
		token := r.URL.Query().Get("token")
		if courseID == "" || group == "" || token == "" {
			http.Error(w, "course, group and token required", http.StatusBadRequest)
			return
		}
		if !hmac.Equal([]byte(token), []byte(ExportToken(cfg.ExportSecret, courseID, group))) {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		crs, err := catalog.Get(courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		students, labs, err := orch.GroupResults(r.Context(), crs, group)
		if err != nil {
			writeError(w, err)
			return
		}

		var b strings.Builder
		b.WriteString("student")
		for _, lab := range labs {
			b.WriteString(";" + escapeCSV(lab))
		}
		b.WriteString("\n")
		for _, st := range students {
			b.WriteString(escapeCSV(st.StudentName))
			for _, lab := range labs {
				b.WriteString(";" + escapeCSV(st.Grades[lab]))
			}
			b.WriteString("\n")
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+group+`_results.csv"`)
		_, _ = w.Write([]byte(b.String()))
	})

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

// ExportToken derives the token that authorizes a results.csv download for
// one course/group pair.
func ExportToken(secret, courseID, group string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("export:" + courseID + ":" + group))
	return hex.EncodeToString(mac.Sum(nil))
}

func courseJSON(c course.Course) map[string]any {
	return map[string]any{
		"id":       c.ID,
		"name":     c.Name,
		"semester": c.Semester,
		"email":    c.Email,
		"github":   c.GithubOrg,
	}
}

func courseListJSON(courses []course.Course) []map[string]any {
	out := []map[string]any{}
	for _, c := range courses {
		out = append(out, courseJSON(c))
	}
	return out
}

func chatIDPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("chatID"), 10, 64)
	if err != nil {
		http.Error(w, "bad chat id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrCodeInvalid):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrCodeClaimed):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrNotConfigured), errors.Is(err, apperr.ErrNoCIConfigured),
		errors.Is(err, apperr.ErrNoCommits), errors.Is(err, apperr.ErrNoGithub):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrExternalUnavailable), errors.Is(err, apperr.ErrChecksUnavailable):
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ";\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
