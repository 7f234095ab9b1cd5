package tgbot

import (
	"context"
	"strings"

	"gradebot/internal/session"
)

// Gate is the coarse allow-list in front of every message handler. It does
// not distinguish commands: either the chat may reach the handler layer or
// it may not. Login commands and access-code input always pass, otherwise
// the chat must already be in an authorized set. Nothing ever removes a
// chat from the sets here.
type Gate struct {
	members session.Members
}

func NewGate(members session.Members) *Gate {
	return &Gate{members: members}
}

func (g *Gate) Allow(ctx context.Context, chatID int64, s session.Session, text string) bool {
	if strings.HasPrefix(text, "/start") || strings.HasPrefix(text, "/admin") {
		return true
	}
	if s.Stage == session.StageAwaitCode || s.Stage == session.StageAdminAwaitCode {
		return true
	}
	if ok, err := g.members.Contains(ctx, session.SetStudents, chatID); err == nil && ok {
		return true
	}
	if ok, err := g.members.Contains(ctx, session.SetAdmins, chatID); err == nil && ok {
		return true
	}
	return false
}
