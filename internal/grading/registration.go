package grading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gradebot/internal/course"
	"gradebot/internal/logger"
	"gradebot/internal/sheets"
	apperr "gradebot/pkg/errors"
)

// Status of a linking attempt. The four-way branch is the idempotency
// contract: repeating a call with unchanged inputs never produces a second
// write.
type Status string

const (
	StatusRegistered        Status = "registered"
	StatusUpdated           Status = "updated"
	StatusAlreadyRegistered Status = "already_registered"
)

// LinkResult is the successful outcome of EnsureLinked.
type LinkResult struct {
	Status      Status
	Github      string
	StudentName string
}

// SheetSource opens a gateway for a course's spreadsheet. Injected so tests
// can substitute in-memory sheets.
type SheetSource func(spreadsheetID string) sheets.Gateway

// Registration links a chat identity to a row of the course/group sheet and
// to the GitHub username on the student's roster record.
type Registration struct {
	catalog  *course.Catalog
	roster   *sheets.Roster
	sheetFor SheetSource
	log      zerolog.Logger
}

func NewRegistration(catalog *course.Catalog, roster *sheets.Roster, sheetFor SheetSource) *Registration {
	return &Registration{catalog: catalog, roster: roster, sheetFor: sheetFor, log: logger.Get()}
}

// EnsureLinked locates or creates the student's row in the course/group
// sheet and returns the GitHub username grading should use.
//
// Branches, in order: a row bound to a different GitHub username is a
// conflict and nothing is written; a row with no username gets the username
// and the caller's chat id written (updated); a row with the same username
// is left untouched (already_registered); no row at all is appended
// (registered).
func (s *Registration) EnsureLinked(ctx context.Context, chatID int64, courseID, groupID string) (LinkResult, error) {
	rec, err := s.roster.ByChat(ctx, chatID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return LinkResult{}, apperr.NotFoundf("student for chat %d", chatID)
		}
		return LinkResult{}, err
	}
	if rec.Github == "" {
		return LinkResult{}, apperr.ErrNoGithub
	}

	crs, err := s.catalog.Get(courseID)
	if err != nil {
		return LinkResult{}, err
	}
	if crs.SpreadsheetID == "" {
		return LinkResult{}, fmt.Errorf("course %s has no spreadsheet: %w", courseID, apperr.ErrNotConfigured)
	}

	sheet := sheets.NewGroupSheet(s.sheetFor(crs.SpreadsheetID), crs.GroupSheet(groupID), crs.LabColumnOffset)

	row, existing, err := sheet.FindByName(ctx, rec.StudentName)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return LinkResult{}, err
		}
		if _, err := sheet.Append(ctx, chatID, rec.StudentName, rec.Github); err != nil {
			return LinkResult{}, err
		}
		s.log.Info().Int64("chat_id", chatID).Str("sheet", sheet.Title()).Msg("student row appended")
		return LinkResult{Status: StatusRegistered, Github: rec.Github, StudentName: rec.StudentName}, nil
	}

	switch {
	case existing.Github != "" && existing.Github != rec.Github:
		return LinkResult{}, fmt.Errorf("row %d of %s is bound to %s: %w",
			row.Index, sheet.Title(), existing.Github, apperr.ErrConflict)
	case existing.Github == "":
		if err := sheet.SetIdentity(ctx, row.Index, chatID, rec.Github); err != nil {
			return LinkResult{}, err
		}
		return LinkResult{Status: StatusUpdated, Github: rec.Github, StudentName: rec.StudentName}, nil
	default:
		return LinkResult{Status: StatusAlreadyRegistered, Github: rec.Github, StudentName: rec.StudentName}, nil
	}
}
