package tgbot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gradebot/internal/config"
	"gradebot/internal/course"
	"gradebot/internal/grading"
	"gradebot/internal/logger"
	"gradebot/internal/session"
	"gradebot/internal/sheets"
	apperr "gradebot/pkg/errors"
)

// GithubProbe checks that a GitHub account exists before it is linked.
type GithubProbe interface {
	UserExists(ctx context.Context, username string) (bool, error)
}

type App struct {
	cfg config.Config
	bot *tgbotapi.BotAPI

	catalog  *course.Catalog
	roster   *sheets.Roster
	orch     *grading.Orchestrator
	gh       GithubProbe
	sessions session.Store
	gate     *Gate
	members  session.Members

	log zerolog.Logger
}

func New(cfg config.Config, catalog *course.Catalog, roster *sheets.Roster, orch *grading.Orchestrator, gh GithubProbe, sessions session.Store, members session.Members) (*App, error) {
	b, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	b.Debug = false
	return &App{
		cfg:      cfg,
		bot:      b,
		catalog:  catalog,
		roster:   roster,
		orch:     orch,
		gh:       gh,
		sessions: sessions,
		gate:     NewGate(members),
		members:  members,
		log:      logger.Get(),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			// Every update is handled independently; nothing serializes
			// two quick events from the same chat.
			go a.handleUpdate(ctx, upd)
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		if err := a.handleMessage(ctx, upd.Message); err != nil {
			a.log.Error().Int64("chat_id", upd.Message.From.ID).Err(err).Msg("handle message")
		}
	} else if upd.CallbackQuery != nil {
		if err := a.handleCallback(ctx, upd.CallbackQuery); err != nil {
			a.log.Error().Int64("chat_id", upd.CallbackQuery.From.ID).Err(err).Msg("handle callback")
		}
	}
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

// deleteQuietly removes a message best-effort. Cosmetic only: failure is
// deliberately ignored and never affects the flow.
func (a *App) deleteQuietly(chatID int64, messageID int) {
	_, _ = a.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	chatID := m.From.ID
	txt := strings.TrimSpace(m.Text)

	sess, err := a.sessions.Get(ctx, chatID)
	if err != nil {
		return err
	}

	if !a.gate.Allow(ctx, chatID, sess, txt) {
		a.log.Debug().Int64("chat_id", chatID).Msg("dropped unauthorized message")
		return nil
	}

	if strings.HasPrefix(txt, "/start") {
		return a.handleStart(ctx, chatID)
	}
	if strings.HasPrefix(txt, "/admin") {
		return a.handleAdminStart(ctx, chatID)
	}
	if strings.HasPrefix(txt, "/courses") {
		return a.showCourseMenu(ctx, chatID)
	}

	switch sess.Stage {
	case session.StageAwaitCode:
		return a.handleAccessCode(ctx, chatID, txt)
	case session.StageAwaitGithub:
		return a.handleGithubInput(ctx, chatID, txt)
	case session.StageAdminAwaitCode:
		return a.handleAdminCode(ctx, chatID, txt)
	default:
		return a.SendText(chatID, "Нажмите /start для начала работы или /courses для выбора курса.")
	}
}

func (a *App) handleStart(ctx context.Context, chatID int64) error {
	rec, err := a.roster.ByChat(ctx, chatID)
	if err == nil {
		if err := a.members.Add(ctx, session.SetStudents, chatID); err != nil {
			return err
		}
		if err := a.sessions.Put(ctx, chatID, session.Session{Stage: session.StageCourseMenu}); err != nil {
			return err
		}
		if err := a.SendText(chatID, "✓ Добро пожаловать, "+rec.StudentName+"!"); err != nil {
			return err
		}
		return a.sendCoursesButton(chatID)
	}
	if !apperr.IsNotFound(err) {
		return a.SendText(chatID, userMessage(err))
	}

	if err := a.sessions.Put(ctx, chatID, session.Session{Stage: session.StageAwaitCode}); err != nil {
		return err
	}
	return a.SendText(chatID, "Введи одноразовый код, который дал преподаватель")
}

func (a *App) handleAccessCode(ctx context.Context, chatID int64, code string) error {
	res, err := a.roster.Login(ctx, chatID, code)
	if err != nil {
		if err == apperr.ErrCodeInvalid || err == apperr.ErrCodeClaimed {
			return a.SendText(chatID, "Код неверный или уже использован, попробуй ещё раз")
		}
		return a.SendText(chatID, userMessage(err))
	}

	if err := a.members.Add(ctx, session.SetStudents, chatID); err != nil {
		return err
	}

	name := res.StudentName
	if name == "" {
		name = "студент"
	}
	if err := a.SendText(chatID, "✓ Добро пожаловать, "+name+"!"); err != nil {
		return err
	}

	next := nextAfterLogin(res.HasGithub)
	if err := a.sessions.Put(ctx, chatID, session.Session{Stage: next}); err != nil {
		return err
	}
	if next == session.StageAwaitGithub {
		return a.SendText(chatID, "Для продолжения введите ваш GitHub username:")
	}
	return a.sendCoursesButton(chatID)
}

func (a *App) handleGithubInput(ctx context.Context, chatID int64, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return a.SendText(chatID, "❌ Введите корректный GitHub username")
	}

	if err := a.SendText(chatID, "🔄 Проверяю GitHub аккаунт..."); err != nil {
		return err
	}
	ok, err := a.gh.UserExists(ctx, username)
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}
	if !ok {
		return a.SendText(chatID, "❌ GitHub пользователь не найден. Попробуйте ввести username ещё раз:")
	}

	if err := a.roster.SetGithub(ctx, chatID, username); err != nil {
		return a.SendText(chatID, userMessage(err))
	}
	if err := a.sessions.Put(ctx, chatID, session.Session{Stage: session.StageCourseMenu}); err != nil {
		return err
	}
	if err := a.SendText(chatID, "✅ GitHub аккаунт @"+username+" успешно сохранён!"); err != nil {
		return err
	}
	return a.sendCoursesButton(chatID)
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	chatID := q.From.ID
	data := q.Data

	// ack
	_, _ = a.bot.Request(tgbotapi.NewCallback(q.ID, ""))

	if strings.HasPrefix(data, "a:") {
		if q.Message != nil {
			a.deleteQuietly(chatID, q.Message.MessageID)
		}
		return a.handleAdminCallback(ctx, chatID, data)
	}

	switch {
	case data == "u:courses":
		return a.showCourseMenu(ctx, chatID)
	case strings.HasPrefix(data, "u:course:"):
		return a.handleCoursePick(ctx, chatID, strings.TrimPrefix(data, "u:course:"))
	case strings.HasPrefix(data, "u:lab:"):
		return a.handleLabPick(ctx, chatID, strings.TrimPrefix(data, "u:lab:"))
	}
	return nil
}

// ---------- Student menus ----------

func (a *App) sendCoursesButton(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Выберите действие:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 Выбрать курс", "u:courses"),
		),
	)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) showCourseMenu(ctx context.Context, chatID int64) error {
	courses, _, err := a.orch.CoursesFor(ctx, chatID)
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}
	if len(courses) == 0 {
		return a.SendText(chatID, "Пока нет доступных курсов")
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	ids := []string{}
	for _, c := range courses {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s (%s)", c.Name, c.Semester), "u:course:"+c.ID),
		))
		ids = append(ids, c.ID)
	}

	if err := a.sessions.Put(ctx, chatID, session.Session{Stage: session.StageCourseMenu, Courses: ids}); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, "Доступные курсы:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) handleCoursePick(ctx context.Context, chatID int64, courseID string) error {
	sess, err := a.sessions.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if !courseInMenu(sess, courseID) {
		return a.SendText(chatID, "Выбор устарел. Нажмите /courses для выбора курса.")
	}

	crs, err := a.catalog.Get(courseID)
	if err != nil {
		return a.SendText(chatID, "Курс не найден. Попробуйте ещё раз: /courses")
	}

	rec, err := a.roster.ByChat(ctx, chatID)
	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}

	labs, err := a.orch.GroupLabs(ctx, crs, rec.Group)
	if err != nil {
		if apperr.IsNotFound(err) {
			return a.SendText(chatID, fmt.Sprintf("Ваша группа (%s) не найдена в курсе %s", rec.Group, crs.Name))
		}
		return a.SendText(chatID, userMessage(err))
	}
	if len(labs) == 0 {
		return a.SendText(chatID, fmt.Sprintf("Для вашей группы (%s) пока нет лабораторных работ", rec.Group))
	}

	sess = session.Session{
		Stage:      session.StageLabMenu,
		CourseID:   crs.ID,
		CourseName: crs.Name,
		GroupID:    rec.Group,
		Labs:       labs,
	}
	if err := a.sessions.Put(ctx, chatID, sess); err != nil {
		return err
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	for i, lab := range labs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lab, fmt.Sprintf("u:lab:%d", i+1)),
		))
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Курс: %s\nГруппа: %s\n\nВыберите лабораторную для сдачи:", crs.Name, rec.Group))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = a.bot.Send(msg)
	return err
}

func (a *App) handleLabPick(ctx context.Context, chatID int64, raw string) error {
	sess, err := a.sessions.Get(ctx, chatID)
	if err != nil {
		return err
	}
	lab, err := labChoice(sess, raw)
	if err != nil {
		return a.SendText(chatID, "Выбор устарел. Нажмите /courses для выбора курса.")
	}

	if err := a.SendText(chatID, "🔄 Отправляю лабораторную "+lab+" на проверку..."); err != nil {
		return err
	}

	outcome, err := a.orch.Grade(ctx, sess.CourseID, sess.GroupID, lab, chatID)

	// Either way the chat lands back on the course menu, never mid-flow.
	if perr := a.sessions.Put(ctx, chatID, backToMenu(sess)); perr != nil {
		return perr
	}

	if err != nil {
		return a.SendText(chatID, userMessage(err))
	}
	if outcome.Pending() {
		return a.SendText(chatID, "⏳ Нет завершённых CI-проверок. Попробуйте позже.")
	}

	var b strings.Builder
	if outcome.Result == "✓" {
		b.WriteString("✅ Все проверки пройдены\n")
	} else {
		b.WriteString("❌ Обнаружены ошибки\n")
	}
	b.WriteString(outcome.Passed)
	for _, line := range outcome.Checks {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return a.SendText(chatID, b.String())
}
