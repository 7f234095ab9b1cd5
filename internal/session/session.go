package session

import "context"

// Stage is the tagged state of a per-chat conversation.
type Stage int

const (
	StageNone Stage = iota
	StageAwaitCode
	StageAwaitGithub
	StageCourseMenu
	StageLabMenu

	StageAdminAwaitCode
	StageAdminCourseList
	StageAdminCourseDetail
	StageAdminConfirmDelete
	StageAdminGroupList
)

// Session is the transient conversational state of one chat. The payload is
// explicit per state rather than a free-form key/value bag: the course menu
// fills Courses, picking a course fills CourseID/CourseName/GroupID, the lab
// menu fills Labs, the admin track uses AdminCourseID.
type Session struct {
	Stage Stage `json:"stage"`

	Courses    []string `json:"courses,omitempty"` // course ids shown in the menu
	CourseID   string   `json:"course_id,omitempty"`
	CourseName string   `json:"course_name,omitempty"`
	GroupID    string   `json:"group_id,omitempty"`
	Labs       []string `json:"labs,omitempty"` // ordered lab headers shown in the menu

	AdminCourseID   string `json:"admin_course_id,omitempty"`
	AdminCourseName string `json:"admin_course_name,omitempty"`
}

// Store keeps per-chat sessions in a shared external store so concurrent
// handlers observe the same state. A missing session reads back as the zero
// Session.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, error)
	Put(ctx context.Context, chatID int64, s Session) error
	Clear(ctx context.Context, chatID int64) error
}

// Set names for the authorized-membership store.
const (
	SetStudents = "students"
	SetAdmins   = "admins"
)

// Members is the process-wide authorized set. Entries are added on
// successful login and never expire programmatically.
type Members interface {
	Add(ctx context.Context, set string, chatID int64) error
	Contains(ctx context.Context, set string, chatID int64) (bool, error)
}
