package tgbot

import (
	"fmt"
	"strconv"
	"strings"

	"gradebot/internal/session"
)

// Pure transition helpers. Handlers stay thin: they gather external data,
// call one of these to decide the next stage, then render.

// nextAfterLogin decides where a successful code login lands: the GitHub
// linking step when no username is on file yet, otherwise straight to the
// course menu.
func nextAfterLogin(hasGithub bool) session.Stage {
	if !hasGithub {
		return session.StageAwaitGithub
	}
	return session.StageCourseMenu
}

// labChoice resolves a 1-based lab menu selection against the session's
// ordered lab payload.
func labChoice(s session.Session, raw string) (string, error) {
	if s.Stage != session.StageLabMenu || len(s.Labs) == 0 {
		return "", fmt.Errorf("no lab menu is open")
	}
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || i < 1 || i > len(s.Labs) {
		return "", fmt.Errorf("lab selection %q out of range", raw)
	}
	return s.Labs[i-1], nil
}

// courseInMenu reports whether the picked course id was offered by this
// session's menu. A session with no menu payload (expired, or the chat never
// opened one) lets the pick through; the catalog lookup still decides.
func courseInMenu(s session.Session, id string) bool {
	if len(s.Courses) == 0 {
		return true
	}
	for _, c := range s.Courses {
		if c == id {
			return true
		}
	}
	return false
}

// backToMenu drops the selection payload and returns the session to the
// nearest stable menu state. Used after both success and unrecoverable
// failure so a chat is never stuck mid-flow.
func backToMenu(s session.Session) session.Session {
	return session.Session{Stage: session.StageCourseMenu}
}

// backToAdminMenu is the admin-track analogue of backToMenu.
func backToAdminMenu(s session.Session) session.Session {
	return session.Session{Stage: session.StageAdminCourseList}
}
