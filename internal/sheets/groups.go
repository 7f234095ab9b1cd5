package sheets

import (
	"context"
	"strconv"
	"strings"

	"gradebot/internal/models"
)

// Group sheet layout: one header row, then one row per student. The first
// three columns are fixed; lab columns follow, headed ЛР1..ЛРn.
const (
	colGroupChatID  = 1
	colGroupStudent = 2
	colGroupGithub  = 3

	HeaderStudent = "Студент"
	HeaderGithub  = "GitHub"
	labHeaderMark = "ЛР"
)

// GroupSheet is the typed view over one per-course-per-group worksheet.
type GroupSheet struct {
	gw        Gateway
	title     string
	labOffset int // legacy fallback offset from the course config
}

func NewGroupSheet(gw Gateway, title string, labOffset int) *GroupSheet {
	return &GroupSheet{gw: gw, title: title, labOffset: labOffset}
}

func (s *GroupSheet) Title() string { return s.title }

// Exists probes whether the worksheet is present in the spreadsheet.
func (s *GroupSheet) Exists(ctx context.Context) (bool, error) {
	titles, err := s.gw.SheetTitles(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if t == s.title {
			return true, nil
		}
	}
	return false, nil
}

// Labs lists the lab headers of the sheet, in column order.
func (s *GroupSheet) Labs(ctx context.Context) ([]string, error) {
	header, err := s.gw.Header(ctx, s.title)
	if err != nil {
		return nil, err
	}
	labs := []string{}
	for i, h := range header {
		if i >= colGroupGithub && strings.HasPrefix(strings.TrimSpace(h), labHeaderMark) {
			labs = append(labs, strings.TrimSpace(h))
		}
	}
	return labs, nil
}

func (s *GroupSheet) githubColumn(ctx context.Context) (int, error) {
	header, err := s.gw.Header(ctx, s.title)
	if err != nil {
		return 0, err
	}
	if col, ok := ResolveColumn(header, HeaderGithub); ok {
		return col, nil
	}
	return colGroupGithub, nil
}

func studentFromRow(row Row, header []string) models.GroupStudent {
	st := models.GroupStudent{
		ChatID:      row.Cell(colGroupChatID),
		StudentName: row.Cell(colGroupStudent),
		Github:      row.Cell(colGroupGithub),
		Grades:      map[string]string{},
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if strings.HasPrefix(h, labHeaderMark) {
			st.Grades[h] = row.Cell(i + 1)
		}
	}
	return st
}

// Students returns every row of the sheet, for the admin results view and
// the CSV export.
func (s *GroupSheet) Students(ctx context.Context) ([]models.GroupStudent, error) {
	header, err := s.gw.Header(ctx, s.title)
	if err != nil {
		return nil, err
	}
	rows, err := s.gw.Rows(ctx, s.title)
	if err != nil {
		return nil, err
	}
	out := make([]models.GroupStudent, 0, len(rows))
	for _, r := range rows {
		if r.Cell(colGroupStudent) == "" {
			continue
		}
		out = append(out, studentFromRow(r, header))
	}
	return out, nil
}

// FindByName locates a student's row by exact, case-insensitive name match.
func (s *GroupSheet) FindByName(ctx context.Context, name string) (Row, models.GroupStudent, error) {
	header, err := s.gw.Header(ctx, s.title)
	if err != nil {
		return Row{}, models.GroupStudent{}, err
	}
	row, err := s.gw.FindRow(ctx, s.title, func(r Row) bool {
		return strings.EqualFold(r.Cell(colGroupStudent), strings.TrimSpace(name))
	})
	if err != nil {
		return Row{}, models.GroupStudent{}, err
	}
	return row, studentFromRow(row, header), nil
}

// FindByGithub locates a student's row by the recorded GitHub username.
func (s *GroupSheet) FindByGithub(ctx context.Context, username string) (Row, error) {
	col, err := s.githubColumn(ctx)
	if err != nil {
		return Row{}, err
	}
	return s.gw.FindRow(ctx, s.title, func(r Row) bool {
		return r.Cell(col) == username
	})
}

// SetIdentity writes the chat id and, when github is non-empty, the GitHub
// username into an existing row.
func (s *GroupSheet) SetIdentity(ctx context.Context, rowIndex int, chatID int64, github string) error {
	if github != "" {
		col, err := s.githubColumn(ctx)
		if err != nil {
			return err
		}
		if err := s.gw.UpdateCell(ctx, s.title, rowIndex, col, github); err != nil {
			return err
		}
	}
	return s.gw.UpdateCell(ctx, s.title, rowIndex, colGroupChatID, strconv.FormatInt(chatID, 10))
}

// Append adds a new student row.
func (s *GroupSheet) Append(ctx context.Context, chatID int64, name, github string) (int, error) {
	return s.gw.AppendRow(ctx, s.title, []string{strconv.FormatInt(chatID, 10), name, github})
}

// WriteGrade stores a grade into the lab's cell. The column is resolved by
// header text; when the header is missing the legacy fallback
// github column + offset + lab number is used. The write is a plain
// overwrite: re-grading replaces whatever was there.
func (s *GroupSheet) WriteGrade(ctx context.Context, rowIndex int, labHeader string, labNumber int, value string) error {
	header, err := s.gw.Header(ctx, s.title)
	if err != nil {
		return err
	}
	col, ok := ResolveColumn(header, labHeader)
	if !ok {
		ghCol, err := s.githubColumn(ctx)
		if err != nil {
			return err
		}
		col = ghCol + s.labOffset + labNumber
	}
	return s.gw.UpdateCell(ctx, s.title, rowIndex, col, value)
}

// GroupsIn extracts the group names that have a sheet for the given course
// base among the spreadsheet's worksheet titles. Service sheets (the info
// sheet and the codes sheet) are ignored.
func GroupsIn(titles []string, courseBase, infoSheet string) []string {
	groups := []string{}
	for _, t := range titles {
		if t == infoSheet || t == SheetUsers {
			continue
		}
		group, base, found := strings.Cut(t, "_")
		if found && base == courseBase {
			groups = append(groups, group)
		}
	}
	return groups
}
