package sheets

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gradebot/internal/models"
	apperr "gradebot/pkg/errors"
)

const (
	SheetUsers  = "users"
	SheetAdmins = "admins"
)

// Expected headers of the codes sheet.
const (
	headerCode        = "code"
	headerStudentName = "student_name"
	headerGroup       = "group"
	headerChatID      = "tg_chat_id"
	headerGithub      = "github"
	headerCourseIDs   = "course_id"

	headerAdminName   = "admin_name"
	headerPermissions = "permissions"
)

// Roster is the typed view over the student-codes sheet. It owns the mapping
// between RosterRecord fields and sheet coordinates; nothing outside this
// package computes a users-sheet column index.
type Roster struct {
	gw Gateway
}

func NewRoster(gw Gateway) *Roster {
	return &Roster{gw: gw}
}

// LoginResult reports the outcome of a one-time code redemption.
type LoginResult struct {
	StudentName string
	HasGithub   bool
	NewChat     bool
}

type rosterColumns struct {
	code, name, group, chat, github, courses int
}

func (r *Roster) columns(ctx context.Context, sheet string) (rosterColumns, error) {
	header, err := r.gw.Header(ctx, sheet)
	if err != nil {
		return rosterColumns{}, err
	}
	var cols rosterColumns
	var ok bool
	if cols.code, ok = ResolveColumn(header, headerCode); !ok {
		return cols, apperr.NotFoundf("column %q in %s", headerCode, sheet)
	}
	if cols.chat, ok = ResolveColumn(header, headerChatID); !ok {
		return cols, apperr.NotFoundf("column %q in %s", headerChatID, sheet)
	}
	cols.name, _ = ResolveColumn(header, headerStudentName)
	cols.group, _ = ResolveColumn(header, headerGroup)
	cols.github, _ = ResolveColumn(header, headerGithub)
	cols.courses, _ = ResolveColumn(header, headerCourseIDs)
	return cols, nil
}

func recordFromRow(row Row, cols rosterColumns) models.RosterRecord {
	rec := models.RosterRecord{
		Code:        row.Cell(cols.code),
		StudentName: row.Cell(cols.name),
		Group:       row.Cell(cols.group),
		Github:      row.Cell(cols.github),
	}
	if raw := row.Cell(cols.chat); raw != "" {
		rec.ChatID, _ = strconv.ParseInt(raw, 10, 64)
	}
	for _, id := range strings.Split(row.Cell(cols.courses), ",") {
		if id = strings.TrimSpace(id); id != "" {
			rec.CourseIDs = append(rec.CourseIDs, id)
		}
	}
	return rec
}

// Login redeems a one-time access code for a chat. The first chat that
// redeems a code owns it permanently: a second chat presenting the same code
// fails closed.
func (r *Roster) Login(ctx context.Context, chatID int64, code string) (LoginResult, error) {
	cols, err := r.columns(ctx, SheetUsers)
	if err != nil {
		return LoginResult{}, err
	}
	row, err := r.gw.FindRow(ctx, SheetUsers, func(row Row) bool {
		return row.Cell(cols.code) == code
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			return LoginResult{}, apperr.ErrCodeInvalid
		}
		return LoginResult{}, err
	}

	rec := recordFromRow(row, cols)
	if rec.ChatID != 0 && rec.ChatID != chatID {
		return LoginResult{}, apperr.ErrCodeClaimed
	}

	res := LoginResult{
		StudentName: rec.StudentName,
		HasGithub:   rec.Github != "",
		NewChat:     rec.ChatID == 0,
	}
	if res.NewChat {
		if err := r.gw.UpdateCell(ctx, SheetUsers, row.Index, cols.chat, strconv.FormatInt(chatID, 10)); err != nil {
			return LoginResult{}, err
		}
	}
	return res, nil
}

// ByChat looks up the canonical roster record for a chat identity.
func (r *Roster) ByChat(ctx context.Context, chatID int64) (models.RosterRecord, error) {
	cols, err := r.columns(ctx, SheetUsers)
	if err != nil {
		return models.RosterRecord{}, err
	}
	want := strconv.FormatInt(chatID, 10)
	row, err := r.gw.FindRow(ctx, SheetUsers, func(row Row) bool {
		return row.Cell(cols.chat) == want
	})
	if err != nil {
		return models.RosterRecord{}, err
	}
	return recordFromRow(row, cols), nil
}

// SetGithub records the linked GitHub username for a chat's roster row.
func (r *Roster) SetGithub(ctx context.Context, chatID int64, username string) error {
	cols, err := r.columns(ctx, SheetUsers)
	if err != nil {
		return err
	}
	if cols.github == 0 {
		return apperr.NotFoundf("column %q in %s", headerGithub, SheetUsers)
	}
	want := strconv.FormatInt(chatID, 10)
	row, err := r.gw.FindRow(ctx, SheetUsers, func(row Row) bool {
		return row.Cell(cols.chat) == want
	})
	if err != nil {
		return err
	}
	return r.gw.UpdateCell(ctx, SheetUsers, row.Index, cols.github, username)
}

// AdminLogin redeems an admin access code, with the same one-time binding
// rule as student codes.
func (r *Roster) AdminLogin(ctx context.Context, chatID int64, code string) (models.AdminRecord, error) {
	header, err := r.gw.Header(ctx, SheetAdmins)
	if err != nil {
		return models.AdminRecord{}, err
	}
	codeCol, ok := ResolveColumn(header, headerCode)
	if !ok {
		return models.AdminRecord{}, apperr.NotFoundf("column %q in %s", headerCode, SheetAdmins)
	}
	chatCol, ok := ResolveColumn(header, headerChatID)
	if !ok {
		return models.AdminRecord{}, apperr.NotFoundf("column %q in %s", headerChatID, SheetAdmins)
	}
	nameCol, _ := ResolveColumn(header, headerAdminName)
	permCol, _ := ResolveColumn(header, headerPermissions)

	row, err := r.gw.FindRow(ctx, SheetAdmins, func(row Row) bool {
		return row.Cell(codeCol) == code
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			return models.AdminRecord{}, apperr.ErrCodeInvalid
		}
		return models.AdminRecord{}, err
	}

	rec := models.AdminRecord{
		Code:        code,
		AdminName:   row.Cell(nameCol),
		Permissions: row.Cell(permCol),
	}
	if raw := row.Cell(chatCol); raw != "" {
		rec.ChatID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if rec.ChatID != 0 && rec.ChatID != chatID {
		return models.AdminRecord{}, apperr.ErrCodeClaimed
	}
	if rec.ChatID == 0 {
		if err := r.gw.UpdateCell(ctx, SheetAdmins, row.Index, chatCol, strconv.FormatInt(chatID, 10)); err != nil {
			return models.AdminRecord{}, err
		}
		rec.ChatID = chatID
	}
	return rec, nil
}

// IsAdminChat reports whether a chat identity is bound to an admins-sheet
// row.
func (r *Roster) IsAdminChat(ctx context.Context, chatID int64) (bool, error) {
	header, err := r.gw.Header(ctx, SheetAdmins)
	if err != nil {
		return false, err
	}
	chatCol, ok := ResolveColumn(header, headerChatID)
	if !ok {
		return false, apperr.NotFoundf("column %q in %s", headerChatID, SheetAdmins)
	}
	want := strconv.FormatInt(chatID, 10)
	_, err = r.gw.FindRow(ctx, SheetAdmins, func(row Row) bool {
		return row.Cell(chatCol) == want
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
