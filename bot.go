package main

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

// Bot glues the chat transport to the form engine, the registration guard
// and the repository. It renders presentation text and keyboards; all state
// transitions and invariants live in the engine and the guard.
type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    *Config
	repo   Repository
	engine *FormEngine
	guard  *RegistrationGuard
	log    *zap.Logger
}

// NewBot wires the bot together.
func NewBot(api *tgbotapi.BotAPI, cfg *Config, repo Repository, engine *FormEngine, guard *RegistrationGuard, log *zap.Logger) *Bot {
	return &Bot{api: api, cfg: cfg, repo: repo, engine: engine, guard: guard, log: log}
}

// HandleUpdate dispatches one Telegram update. The caller invokes it from a
// single goroutine, which keeps each user's operations ordered — the form
// engine relies on that contract instead of its own locking.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
		} else {
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleCommand routes commands to corresponding handlers.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	switch {
	case cmd == "start":
		b.handleStart(ctx, msg)
	case cmd == "admin":
		b.staffOnly(b.handleAdminPanel)(ctx, msg)
	case strings.HasPrefix(cmd, "event_"):
		b.handleEventCommand(ctx, msg, strings.TrimPrefix(cmd, "event_"))
	default:
		b.sendMessage(msg.Chat.ID, "Неизвестная команда")
	}
}

// handleCallbackQuery routes inline button callbacks.
func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	data := cq.Data
	switch {
	case data == "main_menu":
		b.handleMainMenu(cq)
	case data == "upcoming_events":
		b.handleEventsPage(ctx, cq, 1)
	case strings.HasPrefix(data, "events_page_"):
		page, err := strconv.Atoi(strings.TrimPrefix(data, "events_page_"))
		if err != nil {
			b.answerCallback(cq, "")
			return
		}
		b.handleEventsPage(ctx, cq, page)
	case strings.HasPrefix(data, "register_"):
		b.withEventID(cq, "register_", func(id int64) { b.handleRegister(ctx, cq, id) })
	case data == "my_profile":
		b.handleProfile(ctx, cq)

	case data == "admin_main_menu":
		b.staffOnlyCallback(b.handleAdminMainMenu)(ctx, cq)
	case data == "admin_events":
		b.staffOnlyCallback(b.handleAdminEvents)(ctx, cq)
	case data == "create_event":
		b.staffOnlyCallback(b.handleCreateEvent)(ctx, cq)
	case strings.HasPrefix(data, "manage_event_"):
		b.withEventID(cq, "manage_event_", func(id int64) {
			b.staffOnlyCallback(func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
				b.handleManageEvent(ctx, cq, id)
			})(ctx, cq)
		})
	case strings.HasPrefix(data, "edit_event_"):
		b.withEventID(cq, "edit_event_", func(id int64) {
			b.staffOnlyCallback(func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
				b.handleEditEvent(ctx, cq, id)
			})(ctx, cq)
		})
	case strings.HasPrefix(data, "edit_field_"):
		b.handleEditField(cq, strings.TrimPrefix(data, "edit_field_"))
	case strings.HasPrefix(data, "delete_event_"):
		b.withEventID(cq, "delete_event_", func(id int64) {
			b.staffOnlyCallback(func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
				b.handleDeleteEventPrompt(ctx, cq, id)
			})(ctx, cq)
		})
	case strings.HasPrefix(data, "confirm_delete_event_"):
		b.withEventID(cq, "confirm_delete_event_", func(id int64) {
			b.staffOnlyCallback(func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
				b.handleConfirmDeleteEvent(ctx, cq, id)
			})(ctx, cq)
		})
	case strings.HasPrefix(data, "view_participants_"):
		b.withEventID(cq, "view_participants_", func(id int64) {
			b.staffOnlyCallback(func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
				b.handleViewParticipants(ctx, cq, id)
			})(ctx, cq)
		})
	case strings.HasPrefix(data, "export_participants_"):
		b.withEventID(cq, "export_participants_", func(id int64) {
			b.staffOnlyCallback(func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
				b.handleExportParticipants(ctx, cq, id)
			})(ctx, cq)
		})
	case strings.HasPrefix(data, "event_qr_"):
		b.withEventID(cq, "event_qr_", func(id int64) {
			b.staffOnlyCallback(func(ctx context.Context, cq *tgbotapi.CallbackQuery) {
				b.handleEventQR(ctx, cq, id)
			})(ctx, cq)
		})

	case data == "skip_field":
		b.handleSkipField(cq)
	case data == "clear_field":
		b.handleClearField(cq)
	case data == "confirm_form":
		b.handleConfirmForm(ctx, cq)
	case data == "cancel_form":
		b.handleCancelForm(cq)

	case strings.HasPrefix(data, "event_"):
		b.withEventID(cq, "event_", func(id int64) { b.handleEventDetail(ctx, cq, id) })

	default:
		b.answerCallback(cq, "")
	}
}

// handleMessage handles plain text and photo messages: they feed the user's
// form in progress, if any.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)
	if !b.engine.InProgress(userID) {
		b.sendMessageWithKeyboard(msg.Chat.ID, "Выберите действие в меню:", mainMenuKeyboard())
		return
	}

	in := Input{Text: msg.Text}
	if msg.Photo != nil && len(*msg.Photo) > 0 {
		// The largest photo size comes last.
		in.PhotoFileID = (*msg.Photo)[len(*msg.Photo)-1].FileID
	}

	res, err := b.engine.Submit(userID, in)
	b.sendFormResult(msg.Chat.ID, userID, res, err)
}

// withEventID parses the event id suffix of callback data and invokes fn.
func (b *Bot) withEventID(cq *tgbotapi.CallbackQuery, prefix string, fn func(id int64)) {
	id, err := strconv.ParseInt(strings.TrimPrefix(cq.Data, prefix), 10, 64)
	if err != nil {
		b.answerCallback(cq, "")
		return
	}
	fn(id)
}

// sendFormResult renders a form engine outcome: the next prompt, the
// confirmation summary, a commit/cancel notice or an error.
func (b *Bot) sendFormResult(chatID, userID int64, res *EngineResult, err error) {
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			// State is unchanged; re-prompt with the same step's keyboard.
			keyboard := formKeyboard(false)
			if state, ok := b.engine.store.Get(userID); ok {
				keyboard = stepKeyboard(state, b.engine.skippable(state))
			}
			b.sendMessageWithKeyboard(chatID, ve.Reason, keyboard)
		case errors.Is(err, ErrInvalidTransition):
			b.sendMessage(chatID, "Сейчас нет активной формы. Используйте меню.")
		case errors.Is(err, ErrNotFound):
			b.sendMessage(chatID, "❌ Мероприятие не найдено")
		default:
			b.log.Error("form operation failed", zap.Error(err))
			b.sendMessage(chatID, "Произошла ошибка, попробуйте ещё раз")
		}
		return
	}

	switch {
	case res.Prompt != nil:
		keyboard := formKeyboard(res.Prompt.Skippable)
		if state, ok := b.engine.store.Get(userID); ok {
			keyboard = stepKeyboard(state, res.Prompt.Skippable)
		}
		b.sendMessageWithKeyboard(chatID, res.Prompt.Text, keyboard)
	case res.Summary != "":
		b.sendMessageWithKeyboard(chatID, res.Summary, confirmFormKeyboard())
	case res.Committed:
		b.sendMessageWithKeyboard(chatID, "✅ Мероприятие сохранено!", adminMainMenuKeyboard())
	case res.Cancelled:
		b.sendMessageWithKeyboard(chatID, "❌ Действие отменено", adminMainMenuKeyboard())
	}
}

// sendMessage sends a text message to the given chat.
func (b *Bot) sendMessage(chatID int64, text string) {
	message := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(message); err != nil {
		b.log.Warn("send message failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) sendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	message := tgbotapi.NewMessage(chatID, text)
	message.ReplyMarkup = keyboard
	if _, err := b.api.Send(message); err != nil {
		b.log.Warn("send message failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.AnswerCallbackQuery(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		b.log.Warn("answer callback failed", zap.Error(err))
	}
}

func (b *Bot) answerCallbackAlert(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.AnswerCallbackQuery(tgbotapi.NewCallbackWithAlert(cq.ID, text)); err != nil {
		b.log.Warn("answer callback failed", zap.Error(err))
	}
}
