package tgbot

import (
	"errors"

	apperr "gradebot/pkg/errors"
)

// userMessage maps an error from the core onto the text shown in chat.
// Pending is rendered elsewhere; everything here is a genuine failure with
// an actionable hint.
func userMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNoCIConfigured):
		return "⚠️ Папка .github/workflows не найдена. CI не настроен."
	case errors.Is(err, apperr.ErrNoCommits):
		return "❌ В репозитории нет коммитов."
	case errors.Is(err, apperr.ErrChecksUnavailable):
		return "❌ Не удалось получить результаты CI-проверок. Попробуйте позже."
	case errors.Is(err, apperr.ErrConflict):
		return "❌ Студент уже зарегистрирован с другим GitHub-аккаунтом. Для изменения обратитесь к преподавателю."
	case errors.Is(err, apperr.ErrNoGithub):
		return "❌ GitHub аккаунт не найден. Сначала привяжите его через /start."
	case errors.Is(err, apperr.ErrNotConfigured):
		return "❌ Курс настроен не полностью. Обратитесь к преподавателю."
	case errors.Is(err, apperr.ErrNotFound):
		return "❌ Запись не найдена. Обратитесь к преподавателю."
	case errors.Is(err, apperr.ErrExternalUnavailable):
		return "❌ Внешний сервис недоступен. Попробуйте позже."
	default:
		return "❌ Неизвестная ошибка. Попробуйте позже."
	}
}
