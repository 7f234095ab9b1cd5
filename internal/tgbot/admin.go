package tgbot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gradebot/internal/session"
	apperr "gradebot/pkg/errors"
)

// Telegram caps messages at 4096 chars; YAML dumps are chunked below that.
const yamlChunkSize = 4000

func (a *App) handleAdminStart(ctx context.Context, chatID int64) error {
	ok, err := a.roster.IsAdminChat(ctx, chatID)
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}
	if ok {
		if err := a.members.Add(ctx, session.SetAdmins, chatID); err != nil {
			return err
		}
		return a.sendAdminPanel(ctx, chatID)
	}
	if err := a.sessions.Put(ctx, chatID, session.Session{Stage: session.StageAdminAwaitCode}); err != nil {
		return err
	}
	return a.SendText(chatID, "Введите код администратора:")
}

func (a *App) handleAdminCode(ctx context.Context, chatID int64, code string) error {
	rec, err := a.roster.AdminLogin(ctx, chatID, code)
	if err != nil {
		if err == apperr.ErrCodeInvalid || err == apperr.ErrCodeClaimed {
			return a.SendText(chatID, "Код неверный или уже использован")
		}
		return a.SendText(chatID, userMessage(err))
	}
	if err := a.members.Add(ctx, session.SetAdmins, chatID); err != nil {
		return err
	}
	if rec.AdminName != "" {
		if err := a.SendText(chatID, "✓ Здравствуйте, "+rec.AdminName+"!"); err != nil {
			return err
		}
	}
	return a.sendAdminPanel(ctx, chatID)
}

func (a *App) sendAdminPanel(ctx context.Context, chatID int64) error {
	if err := a.sessions.Put(ctx, chatID, session.Session{Stage: session.StageAdminCourseList}); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, "Панель администратора")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 Курсы", "a:courses"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚪 Выход", "a:logout"),
		),
	)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) handleAdminCallback(ctx context.Context, chatID int64, data string) error {
	ok, err := a.roster.IsAdminChat(ctx, chatID)
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}
	if !ok {
		a.log.Warn().Int64("chat_id", chatID).Str("data", data).Msg("admin callback from non-admin chat")
		return nil
	}

	switch {
	case data == "a:courses":
		return a.adminCourseList(ctx, chatID)
	case data == "a:panel":
		return a.sendAdminPanel(ctx, chatID)
	case data == "a:logout":
		if err := a.sessions.Clear(ctx, chatID); err != nil {
			return err
		}
		return a.SendText(chatID, "Вы вышли из панели администратора")
	case strings.HasPrefix(data, "a:course:"):
		return a.adminCourseDetail(ctx, chatID, strings.TrimPrefix(data, "a:course:"))
	case strings.HasPrefix(data, "a:yaml:"):
		return a.adminCourseYAML(ctx, chatID, strings.TrimPrefix(data, "a:yaml:"))
	case strings.HasPrefix(data, "a:del:"):
		return a.adminConfirmDelete(ctx, chatID, strings.TrimPrefix(data, "a:del:"))
	case strings.HasPrefix(data, "a:delc:"):
		return a.adminDelete(ctx, chatID, strings.TrimPrefix(data, "a:delc:"))
	case strings.HasPrefix(data, "a:groups:"):
		return a.adminGroupList(ctx, chatID, strings.TrimPrefix(data, "a:groups:"))
	case strings.HasPrefix(data, "a:res:"):
		rest := strings.TrimPrefix(data, "a:res:")
		id, group, found := strings.Cut(rest, ":")
		if !found {
			return nil
		}
		return a.adminGroupResults(ctx, chatID, id, group)
	}
	return nil
}

func (a *App) adminCourseList(ctx context.Context, chatID int64) error {
	courses, err := a.catalog.List()
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, c := range courses {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s (%s)", c.Name, c.Semester), "a:course:"+c.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "a:panel"),
	))

	if err := a.sessions.Put(ctx, chatID, session.Session{Stage: session.StageAdminCourseList}); err != nil {
		return err
	}

	text := "Курсы:"
	if len(courses) == 0 {
		text = "Курсов пока нет"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) adminCourseDetail(ctx context.Context, chatID int64, id string) error {
	crs, err := a.catalog.Get(id)
	if err != nil {
		return a.SendText(chatID, "Курс не найден")
	}

	if err := a.sessions.Put(ctx, chatID, session.Session{
		Stage:           session.StageAdminCourseDetail,
		AdminCourseID:   crs.ID,
		AdminCourseName: crs.Name,
	}); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📘 %s (%s)\n", crs.Name, crs.Semester)
	fmt.Fprintf(&b, "Файл: %s\n", crs.Filename)
	fmt.Fprintf(&b, "GitHub: %s\n", crs.GithubOrg)
	fmt.Fprintf(&b, "Лабораторных: %d", len(crs.Labs))

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Группы", "a:groups:"+crs.ID),
			tgbotapi.NewInlineKeyboardButtonData("📄 YAML", "a:yaml:"+crs.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "a:del:"+crs.ID),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "a:courses"),
		),
	)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) adminCourseYAML(ctx context.Context, chatID int64, id string) error {
	filename, content, err := a.catalog.RawYAML(id)
	if err != nil {
		return a.SendText(chatID, "Курс не найден")
	}
	if err := a.SendText(chatID, "📄 "+filename); err != nil {
		return err
	}
	for _, chunk := range chunkText(content, yamlChunkSize) {
		if err := a.SendText(chatID, chunk); err != nil {
			return err
		}
	}
	return a.adminCourseDetail(ctx, chatID, id)
}

func (a *App) adminConfirmDelete(ctx context.Context, chatID int64, id string) error {
	crs, err := a.catalog.Get(id)
	if err != nil {
		return a.SendText(chatID, "Курс не найден")
	}
	if err := a.sessions.Put(ctx, chatID, session.Session{
		Stage:           session.StageAdminConfirmDelete,
		AdminCourseID:   crs.ID,
		AdminCourseName: crs.Name,
	}); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Удалить курс %q? Файл %s будет удалён с диска.", crs.Name, crs.Filename))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", "a:delc:"+crs.ID),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", "a:course:"+crs.ID),
		),
	)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) adminDelete(ctx context.Context, chatID int64, id string) error {
	if err := a.catalog.Delete(id); err != nil {
		return a.SendText(chatID, userMessage(err))
	}
	a.log.Info().Int64("chat_id", chatID).Str("course_id", id).Msg("course deleted by admin")
	if err := a.SendText(chatID, "✓ Курс удалён"); err != nil {
		return err
	}
	return a.adminCourseList(ctx, chatID)
}

func (a *App) adminGroupList(ctx context.Context, chatID int64, id string) error {
	crs, err := a.catalog.Get(id)
	if err != nil {
		return a.SendText(chatID, "Курс не найден")
	}
	groups, err := a.orch.Groups(ctx, crs)
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}

	if err := a.sessions.Put(ctx, chatID, session.Session{
		Stage:           session.StageAdminGroupList,
		AdminCourseID:   crs.ID,
		AdminCourseName: crs.Name,
	}); err != nil {
		return err
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g, fmt.Sprintf("a:res:%s:%s", crs.ID, g)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "a:course:"+crs.ID),
	))

	text := fmt.Sprintf("Группы курса %s:", crs.Name)
	if len(groups) == 0 {
		text = "Для курса нет листов групп"
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) adminGroupResults(ctx context.Context, chatID int64, id, group string) error {
	crs, err := a.catalog.Get(id)
	if err != nil {
		return a.SendText(chatID, "Курс не найден")
	}
	students, labs, err := a.orch.GroupResults(ctx, crs, group)
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Результаты %s / %s\n\n", crs.Name, group)
	for _, st := range students {
		b.WriteString(st.StudentName)
		marks := []string{}
		for _, lab := range labs {
			v := st.Grades[lab]
			if v == "" {
				v = "·"
			}
			marks = append(marks, lab+" "+v)
		}
		if len(marks) > 0 {
			b.WriteString(": " + strings.Join(marks, ", "))
		}
		b.WriteString("\n")
	}
	if len(students) == 0 {
		b.WriteString("В группе пока нет студентов")
	}

	for _, chunk := range chunkText(b.String(), yamlChunkSize) {
		if err := a.SendText(chatID, chunk); err != nil {
			return err
		}
	}

	msg := tgbotapi.NewMessage(chatID, "—")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К группам", "a:groups:"+crs.ID),
		),
	)
	_, err = a.bot.Send(msg)
	return err
}

// chunkText splits on the last newline inside the size window; without one
// it backs up to a rune boundary so multi-byte text never splits
// mid-sequence.
func chunkText(s string, size int) []string {
	if s == "" {
		return nil
	}
	out := []string{}
	for len(s) > size {
		cut := size
		if i := strings.LastIndexByte(s[:size], '\n'); i > 0 {
			cut = i + 1
		} else {
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			if cut == 0 {
				cut = size
			}
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return append(out, s)
}
