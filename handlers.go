package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

func profileFrom(u *tgbotapi.User) UserProfile {
	return UserProfile{
		TelegramID: int64(u.ID),
		Username:   u.UserName,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	}
}

// handleStart greets the user and provisions their row. A "event_<id>" deep
// link argument (from a check-in QR code) jumps straight to the event.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	profile := profileFrom(msg.From)
	if _, err := b.repo.GetOrCreateUser(ctx, profile); err != nil {
		b.log.Error("provision user failed", zap.Error(err))
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if strings.HasPrefix(args, "event_") {
		if id, err := strconv.ParseInt(strings.TrimPrefix(args, "event_"), 10, 64); err == nil {
			b.sendEventDetail(ctx, msg.Chat.ID, profile.TelegramID, id)
			return
		}
	}

	welcome := "🎉 Здравствуйте, " + msg.From.FirstName + "!\n\n" +
		"Добро пожаловать в бот мероприятий сообщества!\n\n" +
		"Здесь вы можете:\n" +
		"📅 Узнать о ближайших мероприятиях\n" +
		"✅ Зарегистрироваться на интересующие события\n\n" +
		"Выберите действие в меню ниже:"
	b.sendMessageWithKeyboard(msg.Chat.ID, welcome, mainMenuKeyboard())
}

// handleEventCommand handles /event_<id> commands from event list texts.
func (b *Bot) handleEventCommand(ctx context.Context, msg *tgbotapi.Message, idArg string) {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		b.sendMessageWithKeyboard(msg.Chat.ID,
			"❌ Неверный формат команды. Используйте /event_ID, где ID — номер мероприятия.",
			mainMenuKeyboard())
		return
	}
	b.sendEventDetail(ctx, msg.Chat.ID, int64(msg.From.ID), id)
}

func (b *Bot) handleMainMenu(cq *tgbotapi.CallbackQuery) {
	b.sendMessageWithKeyboard(cq.Message.Chat.ID, "🏠 Главное меню\n\nВыберите действие:", mainMenuKeyboard())
	b.answerCallback(cq, "")
}

// handleEventsPage shows one page of upcoming events.
func (b *Bot) handleEventsPage(ctx context.Context, cq *tgbotapi.CallbackQuery, page int) {
	now := time.Now()
	total, err := b.repo.CountUpcomingEvents(ctx, now)
	if err != nil {
		b.log.Error("count events failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения списка мероприятий")
		return
	}
	if total == 0 {
		b.sendMessageWithKeyboard(cq.Message.Chat.ID,
			"📅 На данный момент нет запланированных мероприятий.\nСледите за обновлениями!",
			backToMenuKeyboard())
		b.answerCallback(cq, "")
		return
	}

	perPage := b.cfg.EventsPerPage
	totalPages := (total + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	offset := (page - 1) * perPage

	events, err := b.repo.ListUpcomingEvents(ctx, now, offset, perPage)
	if err != nil {
		b.log.Error("list events failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения списка мероприятий")
		return
	}

	var text strings.Builder
	text.WriteString("📅 Ближайшие мероприятия\n\n")
	for i, ev := range events {
		text.WriteString(fmt.Sprintf("%d. %s\n", offset+i+1, ev.Title))
		text.WriteString("📅 " + ev.Date.Format("02.01.2006") + " в " + ev.Date.Format("15:04") + "\n")
		location := "Место уточняется"
		if ev.Location.Valid {
			location = ev.Location.String
		}
		text.WriteString("📍 " + location + "\n")
		if len(ev.Speakers) > 0 {
			text.WriteString("👨‍🏫 " + strings.Join(ev.Speakers, ", ") + "\n")
		}
		text.WriteString("➡️ /event_" + strconv.FormatInt(ev.ID, 10) + " — подробнее\n\n")
	}

	b.sendMessageWithKeyboard(cq.Message.Chat.ID, text.String(), eventsPaginationKeyboard(events, page, totalPages))
	b.answerCallback(cq, "")
}

func (b *Bot) handleEventDetail(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	b.sendEventDetail(ctx, cq.Message.Chat.ID, int64(cq.From.ID), eventID)
	b.answerCallback(cq, "")
}

// sendEventDetail renders one event with its registration status for the
// viewing user.
func (b *Bot) sendEventDetail(ctx context.Context, chatID, telegramID, eventID int64) {
	event, err := b.repo.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		b.sendMessageWithKeyboard(chatID, "❌ Мероприятие не найдено", backToMenuKeyboard())
		return
	}
	if err != nil {
		b.log.Error("get event failed", zap.Error(err))
		b.sendMessage(chatID, "Ошибка получения информации о мероприятии")
		return
	}

	count, err := b.repo.CountRegistrations(ctx, eventID)
	if err != nil {
		b.log.Error("count registrations failed", zap.Error(err))
		b.sendMessage(chatID, "Ошибка получения информации о мероприятии")
		return
	}

	registered := false
	if user, err := b.repo.GetUserByTelegramID(ctx, telegramID); err == nil {
		reg, err := b.repo.FindRegistration(ctx, user.ID, eventID)
		if err != nil {
			b.log.Error("find registration failed", zap.Error(err))
		}
		registered = reg != nil
	}

	full := event.MaxParticipants.Valid && int64(count) >= event.MaxParticipants.Int64

	var text strings.Builder
	text.WriteString("📅 " + event.Title + "\n\n")
	if event.ShortDescription.Valid {
		text.WriteString(event.ShortDescription.String + "\n\n")
	}
	text.WriteString("📅 Дата: " + event.Date.Format("02.01.2006") + "\n")
	text.WriteString("⏰ Время: " + event.Date.Format("15:04") + "\n")
	location := "Уточняется"
	if event.Location.Valid {
		location = event.Location.String
	}
	text.WriteString("📍 Место: " + location + "\n")
	if len(event.Speakers) > 0 {
		text.WriteString("👨‍🏫 Спикеры: " + strings.Join(event.Speakers, ", ") + "\n")
	}
	text.WriteString("👥 Зарегистрировано: " + strconv.Itoa(count))
	if event.MaxParticipants.Valid {
		text.WriteString(" из " + strconv.FormatInt(event.MaxParticipants.Int64, 10))
	}
	text.WriteString("\n\n")
	if event.FullDescription.Valid {
		text.WriteString("Описание:\n" + event.FullDescription.String + "\n\n")
	}

	switch {
	case registered:
		text.WriteString("✅ Вы зарегистрированы на это мероприятие")
	case event.RegistrationRequired && full:
		text.WriteString("❌ Регистрация закрыта (достигнут лимит участников)")
	case event.RegistrationRequired:
		text.WriteString("📝 Для участия требуется регистрация")
	}

	canRegister := event.RegistrationRequired && !registered && !full
	keyboard := eventDetailKeyboard(eventID, canRegister)

	if event.ImageFileID.Valid {
		photo := tgbotapi.NewPhotoShare(chatID, event.ImageFileID.String)
		photo.Caption = text.String()
		photo.ReplyMarkup = keyboard
		if _, err := b.api.Send(photo); err == nil {
			return
		}
		// Fall back to plain text if the stored file id went stale.
	}
	b.sendMessageWithKeyboard(chatID, text.String(), keyboard)
}

// handleRegister signs the user up through the registration guard and maps
// each outcome to a callback alert.
func (b *Bot) handleRegister(ctx context.Context, cq *tgbotapi.CallbackQuery, eventID int64) {
	_, err := b.guard.Register(ctx, profileFrom(cq.From), eventID)
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		b.answerCallbackAlert(cq, "Вы уже зарегистрированы на это мероприятие!")
		return
	case errors.Is(err, ErrNotFound):
		b.answerCallbackAlert(cq, "Мероприятие не найдено")
		return
	case errors.Is(err, ErrCapacityExceeded):
		b.answerCallbackAlert(cq, "К сожалению, достигнут лимит участников")
		return
	case err != nil:
		b.log.Error("registration failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка регистрации, попробуйте позже")
		return
	}

	b.answerCallbackAlert(cq, "✅ Вы успешно зарегистрированы!")
	b.sendEventDetail(ctx, cq.Message.Chat.ID, int64(cq.From.ID), eventID)
}

// handleProfile shows the user's data and upcoming registrations.
func (b *Bot) handleProfile(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	user, err := b.repo.GetOrCreateUser(ctx, profileFrom(cq.From))
	if err != nil {
		b.log.Error("get user failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения профиля")
		return
	}

	events, err := b.repo.ListUserUpcomingEvents(ctx, user.ID, time.Now())
	if err != nil {
		b.log.Error("list user events failed", zap.Error(err))
		b.answerCallbackAlert(cq, "Ошибка получения профиля")
		return
	}

	var text strings.Builder
	text.WriteString("👤 Мой профиль\n\n")
	text.WriteString("👋 Имя: " + user.FullName() + "\n")
	if user.Username.Valid {
		text.WriteString("📝 Username: @" + user.Username.String + "\n")
	}
	if user.Phone.Valid {
		text.WriteString("📱 Телефон: " + user.Phone.String + "\n")
	}
	text.WriteString("📅 Дата регистрации: " + user.CreatedAt.Format("02.01.2006") + "\n\n")

	if len(events) == 0 {
		text.WriteString("📝 У вас пока нет регистраций на предстоящие мероприятия.")
	} else {
		text.WriteString("📝 Мои регистрации:\n\n")
		for _, ev := range events {
			text.WriteString("• " + ev.Title + "\n")
			text.WriteString("  📅 " + ev.Date.Format("02.01.2006") + " в " + ev.Date.Format("15:04") + "\n")
			location := "Место уточняется"
			if ev.Location.Valid {
				location = ev.Location.String
			}
			text.WriteString("  📍 " + location + "\n\n")
		}
	}

	b.sendMessageWithKeyboard(cq.Message.Chat.ID, text.String(), backToMenuKeyboard())
	b.answerCallback(cq, "")
}
