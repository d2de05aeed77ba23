package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// handleAdminPanel handles the /admin command.
func (b *Bot) handleAdminPanel(ctx context.Context, msg *tgbotapi.Message) {
	b.sendMessageWithKeyboard(msg.Chat.ID, "🛠 Админ-панель:", adminMainMenuKeyboard())
}

func (b *Bot) handleAdminMainMenu(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	b.sendMessageWithKeyboard(cq.Message.Chat.ID, "🛠 Админ-панель:", adminMainMenuKeyboard())
	b.answerCallback(cq, "")
}

// handleAdminEvents lists all events for management.
func (b *Bot) handleAdminEvents(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	events, err := b.repo.ListAllEvents(ctx)
	if err != nil {
		b.log.Error("list events failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения списка мероприятий")
		return
	}
	text := "📅 Список мероприятий:"
	if len(events) == 0 {
		text = "📅 Мероприятия не найдены. Создайте новое мероприятие!"
	}
	b.sendMessageWithKeyboard(cq.Message.Chat.ID, text, adminEventsListKeyboard(events))
	b.answerCallback(cq, "")
}

// handleCreateEvent starts the event creation form.
func (b *Bot) handleCreateEvent(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	res, err := b.engine.StartCreate(int64(cq.From.ID))
	b.sendFormResult(cq.Message.Chat.ID, int64(cq.From.ID), res, err)
	b.answerCallback(cq, "")
}

// handleManageEvent shows one event with its registration count and the
// management actions.
func (b *Bot) handleManageEvent(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	event, err := b.repo.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		b.answerCallbackAlert(cq, "❌ Мероприятие не найдено")
		return
	}
	if err != nil {
		b.log.Error("get event failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения мероприятия")
		return
	}
	count, err := b.repo.CountRegistrations(ctx, eventID)
	if err != nil {
		b.log.Error("count registrations failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения мероприятия")
		return
	}

	var text strings.Builder
	text.WriteString("📅 Мероприятие: " + event.Title + "\n")
	text.WriteString("📅 Дата: " + event.Date.Format(dateLayout) + "\n")
	if event.Location.Valid {
		text.WriteString("📍 Место: " + event.Location.String + "\n")
	}
	if len(event.Speakers) > 0 {
		text.WriteString("👥 Спикеры: " + strings.Join(event.Speakers, ", ") + "\n")
	}
	text.WriteString("\n👥 Зарегистрировано участников: " + strconv.Itoa(count))
	if event.MaxParticipants.Valid {
		text.WriteString(" из " + strconv.FormatInt(event.MaxParticipants.Int64, 10))
	}

	b.sendMessageWithKeyboard(cq.Message.Chat.ID, text.String(), eventManagementKeyboard(eventID))
	b.answerCallback(cq, "")
}

// handleEditEvent starts the single-field edit form: the current values are
// shown and the user picks which field to change.
func (b *Bot) handleEditEvent(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	event, err := b.repo.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		b.answerCallbackAlert(cq, "❌ Мероприятие не найдено")
		return
	}
	if err != nil {
		b.log.Error("get event failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения мероприятия")
		return
	}

	if _, err := b.engine.StartEdit(ctx, int64(cq.From.ID), eventID); err != nil {
		b.sendFormResult(cq.Message.Chat.ID, int64(cq.From.ID), nil, err)
		b.answerCallback(cq, "")
		return
	}

	var text strings.Builder
	text.WriteString("✏️ Редактирование мероприятия «" + event.Title + "»\n\n")
	text.WriteString("Выберите поле для редактирования:\n\n")
	text.WriteString("📝 Название: " + event.Title + "\n")
	text.WriteString("📝 Краткое описание: " + orPlaceholder(event.ShortDescription.String, event.ShortDescription.Valid) + "\n")
	text.WriteString("📝 Полное описание: " + orPlaceholder(event.FullDescription.String, event.FullDescription.Valid) + "\n")
	text.WriteString("📅 Дата: " + event.Date.Format(dateLayout) + "\n")
	text.WriteString("📍 Место: " + orPlaceholder(event.Location.String, event.Location.Valid) + "\n")
	text.WriteString("👥 Спикеры: " + orPlaceholder(strings.Join(event.Speakers, ", "), len(event.Speakers) > 0) + "\n")
	text.WriteString("✅ Регистрация: " + formatBool(event.RegistrationRequired) + "\n")
	limit := "Без ограничений"
	if event.MaxParticipants.Valid {
		limit = strconv.FormatInt(event.MaxParticipants.Int64, 10)
	}
	text.WriteString("👥 Максимум участников: " + limit + "\n")

	b.sendMessageWithKeyboard(cq.Message.Chat.ID, text.String(), editFieldsKeyboard(eventID))
	b.answerCallback(cq, "")
}

func orPlaceholder(s string, ok bool) string {
	if !ok || s == "" {
		return "Не указано"
	}
	return s
}

// handleEditField records which field the edit form changes and asks for the
// new value.
func (b *Bot) handleEditField(cq *tgbotapi.CallbackQuery, fieldName string) {
	field, ok := parseField(fieldName)
	if !ok {
		b.answerCallback(cq, "")
		return
	}
	res, err := b.engine.SelectField(int64(cq.From.ID), field)
	if err != nil {
		b.answerCallbackAlert(cq, "Действие недоступно")
		return
	}
	b.sendMessageWithKeyboard(cq.Message.Chat.ID, res.Prompt.Text, editValueKeyboard(res.Prompt.Skippable))
	b.answerCallback(cq, "")
}

// handleSkipField skips an optional creation step.
func (b *Bot) handleSkipField(cq *tgbotapi.CallbackQuery) {
	userID := int64(cq.From.ID)
	res, err := b.engine.Skip(userID)
	if errors.Is(err, ErrInvalidTransition) {
		// A stale keyboard may send a skip while an edit form is active.
		text := "Это поле нельзя пропустить"
		if state, ok := b.engine.store.Get(userID); ok && state.Kind == FormEditEvent {
			text = "Это поле нельзя очистить"
		}
		b.answerCallbackAlert(cq, text)
		return
	}
	b.sendFormResult(cq.Message.Chat.ID, userID, res, err)
	b.answerCallback(cq, "")
}

// handleClearField clears the selected field in an edit form. Unlike a
// creation skip, the committed event loses its prior value.
func (b *Bot) handleClearField(cq *tgbotapi.CallbackQuery) {
	userID := int64(cq.From.ID)
	res, err := b.engine.Skip(userID)
	if errors.Is(err, ErrInvalidTransition) {
		b.answerCallbackAlert(cq, "Это поле нельзя очистить")
		return
	}
	b.sendFormResult(cq.Message.Chat.ID, userID, res, err)
	b.answerCallback(cq, "")
}

// handleConfirmForm commits the form at the confirmation gate.
func (b *Bot) handleConfirmForm(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := int64(cq.From.ID)
	res, err := b.engine.Confirm(ctx, userID)
	b.sendFormResult(cq.Message.Chat.ID, userID, res, err)
	b.answerCallback(cq, "")
}

// handleCancelForm discards the form in progress.
func (b *Bot) handleCancelForm(cq *tgbotapi.CallbackQuery) {
	userID := int64(cq.From.ID)
	res, err := b.engine.Cancel(userID)
	if errors.Is(err, ErrInvalidTransition) {
		b.answerCallback(cq, "Нет активной формы")
		return
	}
	b.sendFormResult(cq.Message.Chat.ID, userID, res, err)
	b.answerCallback(cq, "")
}

// handleDeleteEventPrompt asks for confirmation before deleting.
func (b *Bot) handleDeleteEventPrompt(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	event, err := b.repo.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		b.answerCallbackAlert(cq, "❌ Мероприятие не найдено")
		return
	}
	if err != nil {
		b.log.Error("get event failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения мероприятия")
		return
	}
	b.sendMessageWithKeyboard(cq.Message.Chat.ID,
		"❓ Вы действительно хотите удалить мероприятие «"+event.Title+"»?",
		confirmDeleteKeyboard(eventID))
	b.answerCallback(cq, "")
}

// handleConfirmDeleteEvent deletes the event and all its registrations.
func (b *Bot) handleConfirmDeleteEvent(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	err := b.repo.DeleteEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		b.answerCallbackAlert(cq, "❌ Мероприятие не найдено")
		return
	}
	if err != nil {
		b.log.Error("delete event failed", zap.Int64("event", eventID), zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка удаления мероприятия")
		return
	}
	b.log.Info("event deleted", zap.Int64("event", eventID))
	b.sendMessageWithKeyboard(cq.Message.Chat.ID, "✅ Мероприятие успешно удалено", adminMainMenuKeyboard())
	b.answerCallback(cq, "")
}

// handleViewParticipants lists who registered for the event.
func (b *Bot) handleViewParticipants(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	event, err := b.repo.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		b.answerCallbackAlert(cq, "❌ Мероприятие не найдено")
		return
	}
	if err != nil {
		b.log.Error("get event failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения мероприятия")
		return
	}
	participants, err := b.repo.ListEventParticipants(ctx, eventID)
	if err != nil {
		b.log.Error("list participants failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения участников")
		return
	}

	var text strings.Builder
	text.WriteString("📅 Мероприятие: " + event.Title + "\n\n")
	if len(participants) == 0 {
		text.WriteString("👥 Участники отсутствуют")
	} else {
		text.WriteString("👥 Зарегистрировано участников: " + strconv.Itoa(len(participants)))
		if event.MaxParticipants.Valid {
			text.WriteString(" из " + strconv.FormatInt(event.MaxParticipants.Int64, 10))
		}
		text.WriteString("\n\n📋 Список участников:\n")
		for i, p := range participants {
			name := p.FullName()
			if name == "" {
				name = "ID: " + strconv.FormatInt(p.TelegramID, 10)
			}
			text.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, name, p.RegisteredAt.Format(dateLayout)))
			// Telegram caps message length; trim very long lists.
			if i+1 >= 50 {
				text.WriteString(fmt.Sprintf("\n... и ещё %d участников", len(participants)-i-1))
				break
			}
		}
	}

	b.sendMessageWithKeyboard(cq.Message.Chat.ID, text.String(), participantsKeyboard(eventID))
	b.answerCallback(cq, "")
}

// handleExportParticipants sends the participant list as a CSV document.
func (b *Bot) handleExportParticipants(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	event, err := b.repo.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		b.answerCallbackAlert(cq, "❌ Мероприятие не найдено")
		return
	}
	if err != nil {
		b.log.Error("get event failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения мероприятия")
		return
	}
	participants, err := b.repo.ListEventParticipants(ctx, eventID)
	if err != nil {
		b.log.Error("list participants failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения участников")
		return
	}
	if len(participants) == 0 {
		b.answerCallbackAlert(cq, "❌ Нет участников для экспорта")
		return
	}

	var buf bytes.Buffer
	// UTF-8 BOM for better Excel compatibility.
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(&buf)

	header := []string{"№", "Имя", "Username", "Telegram ID", "Дата регистрации"}
	if err := writer.Write(header); err != nil {
		b.answerCallbackAlert(cq, "Ошибка формирования файла")
		return
	}
	for i, p := range participants {
		row := []string{
			strconv.Itoa(i + 1),
			p.FullName(),
			p.Username.String,
			strconv.FormatInt(p.TelegramID, 10),
			p.RegisteredAt.Format(dateLayout),
		}
		if err := writer.Write(row); err != nil {
			b.answerCallbackAlert(cq, "Ошибка формирования файла")
			return
		}
	}
	writer.Flush()

	filename := "participants_" + time.Now().Format("02_01_2006") + ".csv"
	doc := tgbotapi.NewDocumentUpload(cq.Message.Chat.ID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📊 Список участников мероприятия «%s»\nВсего участников: %d",
		event.Title, len(participants))
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error("send export failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка отправки файла")
		return
	}
	b.answerCallback(cq, "✅ Файл сформирован!")
}

// handleEventQR sends a QR code with a deep link opening this event in the
// bot, for posters and check-in desks.
func (b *Bot) handleEventQR(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	if _, err := b.repo.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, ErrNotFound) {
			b.answerCallbackAlert(cq, "❌ Мероприятие не найдено")
			return
		}
		b.log.Error("get event failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения мероприятия")
		return
	}

	link := "https://t.me/" + b.api.Self.UserName + "?start=event_" + strconv.FormatInt(eventID, 10)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		b.log.Error("qr encode failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка генерации QR-кода")
		return
	}

	photo := tgbotapi.NewPhotoUpload(cq.Message.Chat.ID, tgbotapi.FileBytes{
		Name:  "event_qr.png",
		Bytes: png,
	})
	photo.Caption = "QR-код мероприятия: " + link
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("send qr failed", zap.Error(err))
	}
	b.answerCallback(cq, "")
}
