package models

// RosterRecord is one row of the student-codes sheet. ChatID and Github stay
// empty until the student completes the login / linking flows.
type RosterRecord struct {
	Code        string
	StudentName string
	Group       string
	ChatID      int64
	Github      string
	CourseIDs   []string // filename bases of the courses the student may see
}

// AllowsCourse reports whether the record's course allow-list admits the
// given filename base. An empty list is no filter at all: every course is
// admitted and the group-sheet check alone decides visibility.
func (r RosterRecord) AllowsCourse(base string) bool {
	if len(r.CourseIDs) == 0 {
		return true
	}
	for _, id := range r.CourseIDs {
		if id == base {
			return true
		}
	}
	return false
}

// GroupStudent is one row of a per-course-per-group sheet. Until Github is
// recorded the student is identified by exact, case-insensitive name match;
// afterwards Github is authoritative.
type GroupStudent struct {
	ChatID      string
	StudentName string
	Github      string
	Grades      map[string]string // lab header -> cell value
}

// AdminRecord is one row of the admins sheet.
type AdminRecord struct {
	Code        string
	AdminName   string
	ChatID      int64
	Permissions string
}
