package grading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gradebot/internal/ci"
	"gradebot/internal/course"
	"gradebot/internal/logger"
	"gradebot/internal/models"
	"gradebot/internal/sheets"
	apperr "gradebot/pkg/errors"
)

// Evaluator computes the CI summary for one repository.
type Evaluator interface {
	Evaluate(ctx context.Context, org, repo string) (ci.Summary, error)
}

// Outcome of one grading request.
type Outcome struct {
	Status string // "pending" or "updated"
	Result string // ✓ / ✗, empty while pending
	Passed string
	Checks []string
}

// Pending reports that CI has not concluded and nothing was written.
func (o Outcome) Pending() bool { return o.Status == "pending" }

// Orchestrator runs one grading request end to end: course resolution, lab
// normalization, identity linking, CI evaluation, roster write.
type Orchestrator struct {
	catalog  *course.Catalog
	roster   *sheets.Roster
	reg      *Registration
	eval     Evaluator
	sheetFor SheetSource
	log      zerolog.Logger
}

func NewOrchestrator(catalog *course.Catalog, roster *sheets.Roster, reg *Registration, eval Evaluator, sheetFor SheetSource) *Orchestrator {
	return &Orchestrator{
		catalog:  catalog,
		roster:   roster,
		reg:      reg,
		eval:     eval,
		sheetFor: sheetFor,
		log:      logger.Get(),
	}
}

// Grade grades one lab submission. Re-running it overwrites the previous
// cell value with the latest CI result; while any check run is still
// pending nothing is written at all.
func (o *Orchestrator) Grade(ctx context.Context, courseID, groupID, labKey string, chatID int64) (Outcome, error) {
	crs, err := o.catalog.Get(courseID)
	if err != nil {
		return Outcome{}, err
	}

	labHeader, err := course.NormalizeLabKey(labKey)
	if err != nil {
		return Outcome{}, fmt.Errorf("lab %q: %w", labKey, apperr.ErrNotConfigured)
	}
	labNum, _ := course.LabNumber(labKey)

	lab, ok := crs.Labs[labHeader]
	if !ok || lab.RepoPrefix == "" {
		return Outcome{}, fmt.Errorf("lab %s of course %s: %w", labHeader, crs.Name, apperr.ErrNotConfigured)
	}
	if crs.GithubOrg == "" || crs.SpreadsheetID == "" {
		return Outcome{}, fmt.Errorf("course %s: %w", crs.Name, apperr.ErrNotConfigured)
	}

	link, err := o.reg.EnsureLinked(ctx, chatID, courseID, groupID)
	if err != nil {
		return Outcome{}, err
	}

	repo := lab.RepoPrefix + "-" + link.Github
	summary, err := o.eval.Evaluate(ctx, crs.GithubOrg, repo)
	if err != nil {
		return Outcome{}, err
	}

	if summary.HasPending() {
		o.log.Info().Str("repo", repo).Str("lab", labHeader).Msg("ci not concluded, no grade written")
		return Outcome{Status: "pending", Checks: summary.Lines()}, nil
	}

	sheet := sheets.NewGroupSheet(o.sheetFor(crs.SpreadsheetID), crs.GroupSheet(groupID), crs.LabColumnOffset)
	row, err := sheet.FindByGithub(ctx, link.Github)
	if err != nil {
		return Outcome{}, err
	}
	if err := sheet.WriteGrade(ctx, row.Index, labHeader, labNum, summary.FinalResult()); err != nil {
		return Outcome{}, err
	}

	o.log.Info().Int64("chat_id", chatID).Str("lab", labHeader).Str("repo", repo).
		Str("result", summary.FinalResult()).Msg("grade written")

	return Outcome{
		Status: "updated",
		Result: summary.FinalResult(),
		Passed: summary.PassedLine(),
		Checks: summary.Lines(),
	}, nil
}

// CoursesFor lists the courses this chat's student may submit to: the
// roster allow-list filtered down to courses whose spreadsheet has a sheet
// for the student's group.
func (o *Orchestrator) CoursesFor(ctx context.Context, chatID int64) ([]course.Course, models.RosterRecord, error) {
	rec, err := o.roster.ByChat(ctx, chatID)
	if err != nil {
		return nil, models.RosterRecord{}, err
	}

	all, err := o.catalog.List()
	if err != nil {
		return nil, rec, err
	}

	out := []course.Course{}
	for _, crs := range all {
		if !rec.AllowsCourse(crs.Base) || crs.SpreadsheetID == "" {
			continue
		}
		titles, err := o.sheetFor(crs.SpreadsheetID).SheetTitles(ctx)
		if err != nil {
			o.log.Warn().Str("course", crs.Base).Err(err).Msg("skipping course: spreadsheet unreachable")
			continue
		}
		for _, g := range sheets.GroupsIn(titles, crs.Base, crs.InfoSheet) {
			if g == rec.Group {
				out = append(out, crs)
				break
			}
		}
	}
	return out, rec, nil
}

// LabOffer is one lab a student may submit, taken from the course configs
// rather than from sheet headers.
type LabOffer struct {
	Key        string
	Title      string
	Deadline   string
	RepoPrefix string
	CourseName string
}

// LabsForChat lists every configured lab open to the chat's student: the
// roster allow-list picks the courses, each lab's group restriction is
// applied against the student's group.
func (o *Orchestrator) LabsForChat(ctx context.Context, chatID int64) ([]LabOffer, error) {
	rec, err := o.roster.ByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	all, err := o.catalog.List()
	if err != nil {
		return nil, err
	}

	out := []LabOffer{}
	for _, crs := range all {
		if !rec.AllowsCourse(crs.Base) {
			continue
		}
		for _, key := range crs.LabsForGroup(rec.Group) {
			lab := crs.Labs[key]
			title := lab.ShortName
			if title == "" {
				title = key
			}
			out = append(out, LabOffer{
				Key:        key,
				Title:      title,
				Deadline:   lab.Deadline,
				RepoPrefix: lab.RepoPrefix,
				CourseName: crs.Name,
			})
		}
	}
	return out, nil
}

// GroupLabs lists the lab headers a group can submit, straight from the
// group sheet's header row.
func (o *Orchestrator) GroupLabs(ctx context.Context, crs course.Course, groupID string) ([]string, error) {
	sheet := sheets.NewGroupSheet(o.sheetFor(crs.SpreadsheetID), crs.GroupSheet(groupID), crs.LabColumnOffset)
	ok, err := sheet.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFoundf("sheet %s", sheet.Title())
	}
	return sheet.Labs(ctx)
}

// GroupResults returns every student row of a group sheet, for the admin
// results view and the CSV export.
func (o *Orchestrator) GroupResults(ctx context.Context, crs course.Course, groupID string) ([]models.GroupStudent, []string, error) {
	sheet := sheets.NewGroupSheet(o.sheetFor(crs.SpreadsheetID), crs.GroupSheet(groupID), crs.LabColumnOffset)
	labs, err := sheet.Labs(ctx)
	if err != nil {
		return nil, nil, err
	}
	students, err := sheet.Students(ctx)
	if err != nil {
		return nil, nil, err
	}
	return students, labs, nil
}

// Groups lists the groups that have a sheet for the course.
func (o *Orchestrator) Groups(ctx context.Context, crs course.Course) ([]string, error) {
	if crs.SpreadsheetID == "" {
		return nil, fmt.Errorf("course %s: %w", crs.Name, apperr.ErrNotConfigured)
	}
	titles, err := o.sheetFor(crs.SpreadsheetID).SheetTitles(ctx)
	if err != nil {
		return nil, err
	}
	return sheets.GroupsIn(titles, crs.Base, crs.InfoSheet), nil
}
