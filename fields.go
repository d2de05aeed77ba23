package main

import (
	"strconv"
	"strings"
	"time"
)

// dateLayout is the format users type event dates in.
const dateLayout = "02.01.2006 15:04"

// Field identifies a single event attribute collected by a form. The set is
// closed: every field carries its own parser and formatter in fieldSpecs, so
// there is no open string dispatch on field names.
type Field string

const (
	FieldTitle                Field = "title"
	FieldShortDescription     Field = "short_description"
	FieldFullDescription      Field = "full_description"
	FieldDate                 Field = "date"
	FieldLocation             Field = "location"
	FieldSpeakers             Field = "speakers"
	FieldImage                Field = "image"
	FieldRegistrationRequired Field = "registration_required"
	FieldMaxParticipants      Field = "max_participants"
)

// Input is one raw user turn: message text or, for the image step, the
// Telegram file id of an attached photo.
type Input struct {
	Text        string
	PhotoFileID string
}

// fieldSpec bundles everything a form needs to know about one field.
type fieldSpec struct {
	title  string                           // human-readable field name for summaries
	prompt string                           // question asked for this field
	parse  func(Input) (interface{}, error) // raw input -> typed value
	// editParse overrides parse in the edit form; nil means same as parse.
	editParse func(Input) (interface{}, error)
	format    func(interface{}) string // typed value -> summary text
	clearable bool                     // edit form may clear this field to NULL
}

var fieldSpecs = map[Field]fieldSpec{
	FieldTitle: {
		title:  "Название",
		prompt: "📝 Введите название мероприятия:",
		parse:  parseLine("название"),
		format: formatString,
	},
	FieldShortDescription: {
		title:     "Краткое описание",
		prompt:    "📝 Введите краткое описание мероприятия:",
		parse:     parseLine("краткое описание"),
		format:    formatString,
		clearable: true,
	},
	FieldFullDescription: {
		title:     "Полное описание",
		prompt:    "📝 Введите полное описание мероприятия:",
		parse:     parseLine("полное описание"),
		format:    formatString,
		clearable: true,
	},
	FieldDate: {
		title:  "Дата",
		prompt: "📅 Введите дату и время мероприятия (формат: ДД.ММ.ГГГГ ЧЧ:ММ):",
		parse:  parseDate,
		format: formatDate,
	},
	FieldLocation: {
		title:     "Место",
		prompt:    "📍 Введите место проведения:",
		parse:     parseLine("место проведения"),
		format:    formatString,
		clearable: true,
	},
	FieldSpeakers: {
		title:     "Спикеры",
		prompt:    "👥 Введите список спикеров (через запятую):",
		parse:     parseSpeakers,
		format:    formatSpeakers,
		clearable: true,
	},
	FieldImage: {
		title:     "Изображение",
		prompt:    "🖼 Отправьте изображение для мероприятия:",
		parse:     parseImage,
		format:    func(interface{}) string { return "вложение" },
		clearable: true,
	},
	FieldRegistrationRequired: {
		title:  "Регистрация",
		prompt: "❓ Требуется ли регистрация? (да/нет):",
		parse:  parseBool,
		format: formatBool,
	},
	FieldMaxParticipants: {
		title:     "Максимум участников",
		prompt:    "👥 Введите максимальное количество участников:",
		parse:     parseMaxParticipants,
		editParse: parseMaxParticipantsEdit,
		format:    formatInt,
		clearable: true,
	},
}

// parseField resolves a field name coming from callback data. Unknown names
// are rejected rather than dispatched dynamically.
func parseField(s string) (Field, bool) {
	f := Field(s)
	_, ok := fieldSpecs[f]
	return f, ok
}

// editableFields lists fields in the order the edit menu shows them.
var editableFields = []Field{
	FieldTitle,
	FieldShortDescription,
	FieldFullDescription,
	FieldDate,
	FieldLocation,
	FieldSpeakers,
	FieldImage,
	FieldRegistrationRequired,
	FieldMaxParticipants,
}

// --- parsers ---

func parseLine(what string) func(Input) (interface{}, error) {
	return func(in Input) (interface{}, error) {
		s := strings.TrimSpace(in.Text)
		if s == "" {
			return nil, validationf("❌ Введите %s текстом", what)
		}
		return s, nil
	}
}

func parseDate(in Input) (interface{}, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(in.Text))
	if err != nil {
		return nil, validationf("❌ Неверный формат даты. Используйте формат ДД.ММ.ГГГГ ЧЧ:ММ")
	}
	return t, nil
}

func parseSpeakers(in Input) (interface{}, error) {
	var speakers []string
	for _, part := range strings.Split(in.Text, ",") {
		if s := strings.TrimSpace(part); s != "" {
			speakers = append(speakers, s)
		}
	}
	if len(speakers) == 0 {
		return nil, validationf("❌ Укажите хотя бы одного спикера или пропустите поле")
	}
	return speakers, nil
}

func parseImage(in Input) (interface{}, error) {
	if in.PhotoFileID == "" {
		return nil, validationf("❌ Отправьте изображение или пропустите поле")
	}
	return in.PhotoFileID, nil
}

// parseBool mirrors the loose matching users expect in chat: a handful of
// affirmative words mean yes, anything else means no.
func parseBool(in Input) (interface{}, error) {
	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case "да", "yes", "1", "true":
		return true, nil
	default:
		return false, nil
	}
}

func parseMaxParticipants(in Input) (interface{}, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	if err != nil || n < 1 {
		return nil, validationf("❌ Введите целое положительное число или нажмите «Пропустить»")
	}
	return n, nil
}

// parseMaxParticipantsEdit additionally accepts 0 as "remove the limit".
func parseMaxParticipantsEdit(in Input) (interface{}, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	if err != nil || n < 0 {
		return nil, validationf("❌ Введите целое число или 0 для снятия ограничений")
	}
	if n == 0 {
		return nil, nil
	}
	return n, nil
}

// --- formatters ---

func formatString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func formatDate(v interface{}) string {
	t, _ := v.(time.Time)
	return t.Format(dateLayout)
}

func formatSpeakers(v interface{}) string {
	s, _ := v.([]string)
	return strings.Join(s, ", ")
}

func formatBool(v interface{}) string {
	if b, _ := v.(bool); b {
		return "Требуется"
	}
	return "Не требуется"
}

func formatInt(v interface{}) string {
	n, _ := v.(int64)
	return strconv.FormatInt(n, 10)
}
