package course

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"gradebot/internal/logger"
	apperr "gradebot/pkg/errors"
)

// Lab is one lab assignment inside a course config.
type Lab struct {
	RepoPrefix string   `yaml:"github-prefix"`
	ShortName  string   `yaml:"short-name"`
	Deadline   string   `yaml:"deadline"`
	Groups     []string `yaml:"groups"`
}

// AllowsGroup reports whether the lab is open to the group. An absent
// allow-list means open to everyone.
func (l Lab) AllowsGroup(group string) bool {
	if len(l.Groups) == 0 {
		return true
	}
	for _, g := range l.Groups {
		if g == group {
			return true
		}
	}
	return false
}

type Course struct {
	// ID is the 1-based position of the file in the sorted directory
	// listing. It is recomputed on every catalog read and shifts when
	// files are added or removed; callers must not cache it across
	// catalog mutations.
	ID       string
	Filename string
	Base     string // filename without the .yaml extension

	Name     string
	Semester string
	Email    string
	Logo     string

	GithubOrg     string
	SpreadsheetID string
	InfoSheet     string

	StudentNameColumn int // 1-based, default 2
	LabColumnOffset   int // legacy fallback offset, default 1

	Labs map[string]Lab
}

// GroupSheet is the worksheet title that holds the group's results for this
// course.
func (c Course) GroupSheet(group string) string { return group + "_" + c.Base }

// LabsForGroup returns the canonically ordered lab keys open to the group.
func (c Course) LabsForGroup(group string) []string {
	keys := make([]string, 0, len(c.Labs))
	for k, l := range c.Labs {
		if l.AllowsGroup(group) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, ei := LabNumber(keys[i])
		nj, ej := LabNumber(keys[j])
		if ei != nil || ej != nil {
			return keys[i] < keys[j]
		}
		return ni < nj
	})
	return keys
}

// document mirrors the on-disk YAML shape.
type document struct {
	Course struct {
		Name     string `yaml:"name"`
		Semester string `yaml:"semester"`
		Email    string `yaml:"email"`
		Logo     string `yaml:"logo"`
		Github   struct {
			Organization string `yaml:"organization"`
		} `yaml:"github"`
		Google struct {
			Spreadsheet       string `yaml:"spreadsheet"`
			InfoSheet         string `yaml:"info-sheet"`
			StudentNameColumn int    `yaml:"student-name-column"`
			LabColumnOffset   int    `yaml:"lab-column-offset"`
		} `yaml:"google"`
		Labs map[string]Lab `yaml:"labs"`
	} `yaml:"course"`
}

// Catalog reads course definitions from a directory of YAML files. There is
// no caching: every List/Get walks the directory again, so ids always
// reflect the current file set.
type Catalog struct {
	dir string
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// List returns all parsable courses, ordered by filename ascending. Files
// that fail to parse or lack the top-level course block are skipped with a
// warning and do not consume an id slot.
func (c *Catalog) List() ([]Course, error) {
	names, err := sortedYAML(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read courses dir: %w", err)
	}

	log := logger.Get()
	courses := make([]Course, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			log.Warn().Str("file", name).Err(err).Msg("skipping unreadable course file")
			continue
		}
		var doc document
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			log.Warn().Str("file", name).Err(err).Msg("skipping malformed course file")
			continue
		}
		if doc.Course.Name == "" && doc.Course.Github.Organization == "" && len(doc.Course.Labs) == 0 {
			log.Warn().Str("file", name).Msg("skipping course file without a course block")
			continue
		}
		courses = append(courses, fromDocument(name, doc, strconv.Itoa(len(courses)+1)))
	}
	return courses, nil
}

// Get resolves a positional course id against the current directory state.
func (c *Catalog) Get(id string) (Course, error) {
	courses, err := c.List()
	if err != nil {
		return Course{}, err
	}
	for _, crs := range courses {
		if crs.ID == id {
			return crs, nil
		}
	}
	return Course{}, apperr.NotFoundf("course %q", id)
}

// GetByBase resolves a course by its filename base (the stable identifier
// the roster's course allow-list uses).
func (c *Catalog) GetByBase(base string) (Course, error) {
	courses, err := c.List()
	if err != nil {
		return Course{}, err
	}
	for _, crs := range courses {
		if crs.Base == base {
			return crs, nil
		}
	}
	return Course{}, apperr.NotFoundf("course %q", base)
}

// RawYAML returns the course file verbatim, for the admin view.
func (c *Catalog) RawYAML(id string) (filename, content string, err error) {
	crs, err := c.Get(id)
	if err != nil {
		return "", "", err
	}
	raw, err := os.ReadFile(filepath.Join(c.dir, crs.Filename))
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", crs.Filename, err)
	}
	return crs.Filename, string(raw), nil
}

// Delete removes the course file. Ids of the courses after it shift down on
// the next read.
func (c *Catalog) Delete(id string) error {
	crs, err := c.Get(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(c.dir, crs.Filename)); err != nil {
		return fmt.Errorf("delete %s: %w", crs.Filename, err)
	}
	return nil
}

func fromDocument(filename string, doc document, id string) Course {
	ci := doc.Course
	crs := Course{
		ID:                id,
		Filename:          filename,
		Base:              strings.TrimSuffix(filename, filepath.Ext(filename)),
		Name:              ci.Name,
		Semester:          ci.Semester,
		Email:             ci.Email,
		Logo:              ci.Logo,
		GithubOrg:         ci.Github.Organization,
		SpreadsheetID:     ci.Google.Spreadsheet,
		InfoSheet:         ci.Google.InfoSheet,
		StudentNameColumn: ci.Google.StudentNameColumn,
		LabColumnOffset:   ci.Google.LabColumnOffset,
		Labs:              ci.Labs,
	}
	if crs.Name == "" {
		crs.Name = "Unknown"
	}
	if crs.Semester == "" {
		crs.Semester = "Unknown"
	}
	if crs.StudentNameColumn == 0 {
		crs.StudentNameColumn = 2
	}
	if crs.LabColumnOffset == 0 {
		crs.LabColumnOffset = 1
	}
	if crs.InfoSheet == "" {
		crs.InfoSheet = "График"
	}
	return crs
}

// sortedYAML lists the .yaml files of dir in ascending name order. The
// positional course ids are derived from exactly this ordering, so the
// extension filter is strict: .yml files are not course definitions and must
// never shift the ids.
func sortedYAML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
