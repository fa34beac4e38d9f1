// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение.
// Текст обрезаем: в нём бывают гифт-коды и пароли.
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil {
		return
	}

	text := message.Text
	if len(text) > 50 {
		text = text[:50] + "..."
	}

	log.WithFields(log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
		"text":     text,
	}).Debug("Входящее сообщение")
}

// LogCallback логирует нажатие инлайн-кнопки.
func LogCallback(query *tgbotapi.CallbackQuery) {
	if query == nil || query.From == nil {
		return
	}

	log.WithFields(log.Fields{
		"user_id":  query.From.ID,
		"username": query.From.UserName,
		"data":     query.Data,
	}).Debug("Нажатие кнопки")
}
