package tgbot

import (
	"context"
	"testing"
	"unicode/utf8"

	"gradebot/internal/session"
)

func TestNextAfterLogin(t *testing.T) {
	if got := nextAfterLogin(false); got != session.StageAwaitGithub {
		t.Errorf("nextAfterLogin(false) = %v, want StageAwaitGithub", got)
	}
	if got := nextAfterLogin(true); got != session.StageCourseMenu {
		t.Errorf("nextAfterLogin(true) = %v, want StageCourseMenu", got)
	}
}

func TestLabChoice(t *testing.T) {
	menu := session.Session{
		Stage: session.StageLabMenu,
		Labs:  []string{"ЛР1", "ЛР2", "ЛР3"},
	}

	tests := []struct {
		name    string
		s       session.Session
		raw     string
		want    string
		wantErr bool
	}{
		{"first", menu, "1", "ЛР1", false},
		{"last", menu, "3", "ЛР3", false},
		{"zero", menu, "0", "", true},
		{"past end", menu, "4", "", true},
		{"garbage", menu, "x", "", true},
		{"wrong stage", session.Session{Stage: session.StageCourseMenu, Labs: []string{"ЛР1"}}, "1", "", true},
		{"empty menu", session.Session{Stage: session.StageLabMenu}, "1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := labChoice(tt.s, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("labChoice(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("labChoice(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCourseInMenu(t *testing.T) {
	menu := session.Session{Stage: session.StageCourseMenu, Courses: []string{"1", "3"}}

	tests := []struct {
		name string
		s    session.Session
		id   string
		want bool
	}{
		{"offered", menu, "1", true},
		{"not offered", menu, "2", false},
		{"expired session lets through", session.Session{}, "2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := courseInMenu(tt.s, tt.id); got != tt.want {
				t.Errorf("courseInMenu(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestBackToMenuDropsPayload(t *testing.T) {
	s := session.Session{
		Stage:    session.StageLabMenu,
		CourseID: "1",
		GroupID:  "ИУ7-21",
		Labs:     []string{"ЛР1"},
	}
	got := backToMenu(s)
	if got.Stage != session.StageCourseMenu {
		t.Errorf("stage = %v, want StageCourseMenu", got.Stage)
	}
	if got.CourseID != "" || len(got.Labs) != 0 {
		t.Errorf("payload not dropped: %+v", got)
	}

	adm := backToAdminMenu(session.Session{Stage: session.StageAdminConfirmDelete, AdminCourseID: "2"})
	if adm.Stage != session.StageAdminCourseList || adm.AdminCourseID != "" {
		t.Errorf("admin payload not dropped: %+v", adm)
	}
}

func TestGateAllow(t *testing.T) {
	ctx := context.Background()
	members := session.NewMemoryStore()
	if err := members.Add(ctx, session.SetStudents, 100); err != nil {
		t.Fatal(err)
	}
	g := NewGate(members)

	tests := []struct {
		name   string
		chatID int64
		s      session.Session
		text   string
		want   bool
	}{
		{"member plain text", 100, session.Session{}, "hello", true},
		{"stranger plain text", 200, session.Session{}, "hello", false},
		{"stranger /start", 200, session.Session{}, "/start", true},
		{"stranger /admin", 200, session.Session{}, "/admin", true},
		{"stranger entering code", 200, session.Session{Stage: session.StageAwaitCode}, "alpha", true},
		{"stranger entering admin code", 200, session.Session{Stage: session.StageAdminAwaitCode}, "root", true},
		{"stranger /courses", 200, session.Session{}, "/courses", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Allow(ctx, tt.chatID, tt.s, tt.text); got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		size   int
		chunks int
	}{
		{"empty", "", 10, 0},
		{"fits", "short", 10, 1},
		{"splits on newline", "aaaa\nbbbb\ncccc", 10, 2},
		{"hard split without newline", "aaaaaaaaaaaaaaa", 10, 2},
		{"cyrillic hard split", "ЛРЛРЛРЛРЛР", 7, 4}, // 20 bytes, every window ends inside a rune
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkText(tt.in, tt.size)
			if len(got) != tt.chunks {
				t.Fatalf("chunkText() = %d chunks %q, want %d", len(got), got, tt.chunks)
			}
			var joined string
			for _, c := range got {
				if len(c) > tt.size {
					t.Errorf("chunk %q longer than %d", c, tt.size)
				}
				if !utf8.ValidString(c) {
					t.Errorf("chunk %q split a rune", c)
				}
				joined += c
			}
			if joined != tt.in {
				t.Errorf("chunks reassemble to %q, want %q", joined, tt.in)
			}
		})
	}
}
