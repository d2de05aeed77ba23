package main

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Handler function types wrapped by the staff middleware.
type commandHandlerFunc func(ctx context.Context, msg *tgbotapi.Message)
type callbackHandlerFunc func(ctx context.Context, cq *tgbotapi.CallbackQuery)

const accessDeniedText = "⛔️ Доступ запрещён."

// isStaff reports whether the Telegram user may manage events: either listed
// in ADMIN_IDS or flagged as admin/moderator in the database.
func (b *Bot) isStaff(ctx context.Context, telegramID int64) bool {
	if b.cfg.IsConfiguredAdmin(telegramID) {
		return true
	}
	user, err := b.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return false
	}
	return user.IsAdmin || user.IsModerator
}

// staffOnly wraps a command handler with the staff check.
func (b *Bot) staffOnly(handler commandHandlerFunc) commandHandlerFunc {
	return func(ctx context.Context, msg *tgbotapi.Message) {
		if !b.isStaff(ctx, int64(msg.From.ID)) {
			b.sendMessage(msg.Chat.ID, accessDeniedText)
			return
		}
		handler(ctx, msg)
	}
}

// staffOnlyCallback wraps a callback handler with the staff check.
func (b *Bot) staffOnlyCallback(handler callbackHandlerFunc) callbackHandlerFunc {
	return func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
		if !b.isStaff(ctx, int64(cq.From.ID)) {
			b.answerCallbackAlert(cq, accessDeniedText)
			return
		}
		handler(ctx, cq)
	}
}
