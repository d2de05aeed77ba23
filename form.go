package main

import (
	"database/sql"
	"strings"
	"time"
)

// Step is one question of a multi-step form.
type Step struct {
	Field     Field
	Skippable bool
	// next computes the successor from the just-stored value. A nil next
	// means "the following step in order, or confirmation after the last
	// one". Returning confirmStep jumps straight to confirmation.
	next func(value interface{}) Field
}

// confirmStep is the terminal pseudo-step: the form renders a summary and
// waits for an explicit confirm or cancel.
const confirmStep Field = "confirm"

// Form is an ordered list of steps with per-step successor rules.
type Form struct {
	steps []Step
	index map[Field]int
}

func newForm(steps []Step) *Form {
	index := make(map[Field]int, len(steps))
	for i, s := range steps {
		index[s.Field] = i
	}
	return &Form{steps: steps, index: index}
}

// first returns the form's opening step.
func (f *Form) first() Field {
	return f.steps[0].Field
}

// step returns the step declaration for a field.
func (f *Form) step(field Field) (Step, bool) {
	i, ok := f.index[field]
	if !ok {
		return Step{}, false
	}
	return f.steps[i], true
}

// successor computes the field to visit after storing value at field.
// It returns confirmStep when the form is complete.
func (f *Form) successor(field Field, value interface{}) Field {
	i := f.index[field]
	if next := f.steps[i].next; next != nil {
		return next(value)
	}
	if i+1 < len(f.steps) {
		return f.steps[i+1].Field
	}
	return confirmStep
}

// createEventForm declares the event creation wizard. Optional fields are
// skippable; answering "no" to the registration question routes directly to
// confirmation, never visiting the participant limit.
func createEventForm() *Form {
	return newForm([]Step{
		{Field: FieldTitle},
		{Field: FieldShortDescription, Skippable: true},
		{Field: FieldFullDescription, Skippable: true},
		{Field: FieldDate},
		{Field: FieldLocation, Skippable: true},
		{Field: FieldSpeakers, Skippable: true},
		{Field: FieldImage, Skippable: true},
		{Field: FieldRegistrationRequired, next: func(v interface{}) Field {
			if required, _ := v.(bool); required {
				return FieldMaxParticipants
			}
			return confirmStep
		}},
		{Field: FieldMaxParticipants, Skippable: true},
	})
}

// buildEvent assembles an Event from accumulated form values. A field absent
// from the map or stored as nil stays at its zero/NULL value.
func buildEvent(values map[Field]interface{}) *Event {
	ev := &Event{}
	if v, ok := values[FieldTitle].(string); ok {
		ev.Title = v
	}
	if v, ok := values[FieldShortDescription].(string); ok {
		ev.ShortDescription = sql.NullString{String: v, Valid: true}
	}
	if v, ok := values[FieldFullDescription].(string); ok {
		ev.FullDescription = sql.NullString{String: v, Valid: true}
	}
	if v, ok := values[FieldDate].(time.Time); ok {
		ev.Date = v
	}
	if v, ok := values[FieldLocation].(string); ok {
		ev.Location = sql.NullString{String: v, Valid: true}
	}
	if v, ok := values[FieldSpeakers].([]string); ok {
		ev.Speakers = SpeakerList(v)
	}
	if v, ok := values[FieldImage].(string); ok {
		ev.ImageFileID = sql.NullString{String: v, Valid: true}
	}
	if v, ok := values[FieldRegistrationRequired].(bool); ok {
		ev.RegistrationRequired = v
	}
	if v, ok := values[FieldMaxParticipants].(int64); ok {
		ev.MaxParticipants = sql.NullInt64{Int64: v, Valid: true}
	}
	return ev
}

// renderCreateSummary builds the confirmation text for a creation form,
// omitting optional fields that were skipped.
func renderCreateSummary(values map[Field]interface{}) string {
	var b strings.Builder
	b.WriteString("📋 Проверьте данные мероприятия:\n\n")
	b.WriteString("📝 Название: " + fieldSpecs[FieldTitle].format(values[FieldTitle]) + "\n")
	if v, ok := values[FieldShortDescription]; ok && v != nil {
		b.WriteString("📝 Краткое описание: " + fieldSpecs[FieldShortDescription].format(v) + "\n")
	}
	if v, ok := values[FieldFullDescription]; ok && v != nil {
		b.WriteString("📝 Полное описание: " + fieldSpecs[FieldFullDescription].format(v) + "\n")
	}
	b.WriteString("📅 Дата: " + fieldSpecs[FieldDate].format(values[FieldDate]) + "\n")
	if v, ok := values[FieldLocation]; ok && v != nil {
		b.WriteString("📍 Место: " + fieldSpecs[FieldLocation].format(v) + "\n")
	}
	if v, ok := values[FieldSpeakers]; ok && v != nil {
		b.WriteString("👥 Спикеры: " + fieldSpecs[FieldSpeakers].format(v) + "\n")
	}
	if v, ok := values[FieldImage]; ok && v != nil {
		b.WriteString("🖼 Изображение: прикреплено\n")
	}
	b.WriteString("✅ Регистрация: " + fieldSpecs[FieldRegistrationRequired].format(values[FieldRegistrationRequired]) + "\n")
	if v, ok := values[FieldMaxParticipants]; ok && v != nil {
		b.WriteString("👥 Максимум участников: " + fieldSpecs[FieldMaxParticipants].format(v) + "\n")
	}
	return b.String()
}

// renderEditSummary builds the confirmation text for a single-field edit.
// A nil value means the field is about to be cleared.
func renderEditSummary(field Field, value interface{}) string {
	spec := fieldSpecs[field]
	if value == nil {
		return "❓ Вы действительно хотите очистить поле «" + spec.title + "»?"
	}
	return "❓ Подтвердите изменение:\n\nПоле: " + spec.title + "\nНовое значение: " + spec.format(value)
}
