package main

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Inline keyboards for the user and admin menus. Callback data strings are
// parsed back in bot.go.

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Ближайшие мероприятия", "upcoming_events"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Мой профиль", "my_profile"),
		),
	)
}

func backToMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)
}

// eventsPaginationKeyboard lists the page's events plus prev/next buttons.
func eventsPaginationKeyboard(events []Event, page, totalPages int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(ev.Title, "event_"+strconv.FormatInt(ev.ID, 10)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", "events_page_"+strconv.Itoa(page-1)))
	}
	if page < totalPages {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", "events_page_"+strconv.Itoa(page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func eventDetailKeyboard(eventID int64, canRegister bool) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(eventID, 10)
	var rows [][]tgbotapi.InlineKeyboardButton
	if canRegister {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Зарегистрироваться", "register_"+id),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ К списку мероприятий", "upcoming_events"),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func adminMainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Мероприятия", "admin_events"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Создать мероприятие", "create_event"),
		),
	)
}

func adminEventsListKeyboard(events []Event) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(ev.Title, "manage_event_"+strconv.FormatInt(ev.ID, 10)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Создать мероприятие", "create_event"),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", "admin_main_menu"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func eventManagementKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(eventID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Редактировать", "edit_event_"+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "delete_event_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Участники", "view_participants_"+id),
			tgbotapi.NewInlineKeyboardButtonData("📱 QR-код", "event_qr_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ К списку", "admin_events"),
		),
	)
}

func confirmDeleteKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(eventID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, удалить", "confirm_delete_event_"+id),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "manage_event_"+id),
		),
	)
}

// formKeyboard accompanies a creation form step.
func formKeyboard(skippable bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if skippable {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Пропустить", "skip_field"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel_form"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// editValueKeyboard accompanies an edit form step: clearable fields get a
// clear button, which stores an absent value instead of a parsed one.
func editValueKeyboard(clearable bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if clearable {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Очистить поле", "clear_field"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel_form"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// stepKeyboard picks the keyboard matching the form in progress: edit forms
// keep their clear button, creation forms their skip button.
func stepKeyboard(state *FormState, skippable bool) tgbotapi.InlineKeyboardMarkup {
	if state != nil && state.Kind == FormEditEvent {
		return editValueKeyboard(skippable)
	}
	return formKeyboard(skippable)
}

func confirmFormKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", "confirm_form"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel_form"),
		),
	)
}

func editFieldsKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, f := range editableFields {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fieldSpecs[f].title, "edit_field_"+string(f)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", "manage_event_"+strconv.FormatInt(eventID, 10)),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func participantsKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(eventID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Экспорт в CSV", "export_participants_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", "manage_event_"+id),
		),
	)
}
