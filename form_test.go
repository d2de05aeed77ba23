package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	v, err := parseDate(Input{Text: " 15.10.2026 18:30 "})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC), v)

	_, err = parseDate(Input{Text: "31.13.2025 10:00"})
	require.True(t, IsValidation(err))

	_, err = parseDate(Input{Text: "2026-10-15 18:30"})
	require.True(t, IsValidation(err))
}

func TestParseSpeakers(t *testing.T) {
	v, err := parseSpeakers(Input{Text: " Aysel ,, Bulat , "})
	require.NoError(t, err)
	require.Equal(t, []string{"Aysel", "Bulat"}, v)

	_, err = parseSpeakers(Input{Text: " , , "})
	require.True(t, IsValidation(err))
}

func TestParseBool_LooseMatching(t *testing.T) {
	for _, yes := range []string{"да", "ДА", "yes", "1", "true"} {
		v, err := parseBool(Input{Text: yes})
		require.NoError(t, err)
		require.Equal(t, true, v, yes)
	}
	// Anything else reads as "no"; the parser never fails.
	for _, no := range []string{"нет", "no", "0", "может быть", ""} {
		v, err := parseBool(Input{Text: no})
		require.NoError(t, err)
		require.Equal(t, false, v, no)
	}
}

func TestParseMaxParticipants(t *testing.T) {
	v, err := parseMaxParticipants(Input{Text: "25"})
	require.NoError(t, err)
	require.Equal(t, int64(25), v)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := parseMaxParticipants(Input{Text: bad})
		require.True(t, IsValidation(err), bad)
	}
}

func TestParseMaxParticipantsEdit_ZeroClears(t *testing.T) {
	v, err := parseMaxParticipantsEdit(Input{Text: "0"})
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = parseMaxParticipantsEdit(Input{Text: "10"})
	require.NoError(t, err)
	require.Equal(t, int64(10), v)

	_, err = parseMaxParticipantsEdit(Input{Text: "-1"})
	require.True(t, IsValidation(err))
}

func TestParseImage(t *testing.T) {
	v, err := parseImage(Input{PhotoFileID: "AgACAgI"})
	require.NoError(t, err)
	require.Equal(t, "AgACAgI", v)

	_, err = parseImage(Input{Text: "вот картинка"})
	require.True(t, IsValidation(err))
}

func TestSuccessor_RegistrationBranch(t *testing.T) {
	form := createEventForm()

	require.Equal(t, FieldMaxParticipants, form.successor(FieldRegistrationRequired, true))
	require.Equal(t, confirmStep, form.successor(FieldRegistrationRequired, false))
	require.Equal(t, confirmStep, form.successor(FieldMaxParticipants, int64(10)))
	require.Equal(t, FieldShortDescription, form.successor(FieldTitle, "Митап"))
}

func TestBuildEvent_SkippedFieldsStayNull(t *testing.T) {
	date := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)
	ev := buildEvent(map[Field]interface{}{
		FieldTitle:                "Митап",
		FieldShortDescription:     nil,
		FieldFullDescription:      nil,
		FieldDate:                 date,
		FieldLocation:             "Казань",
		FieldSpeakers:             []string{"Aysel"},
		FieldImage:                nil,
		FieldRegistrationRequired: true,
		FieldMaxParticipants:      int64(50),
	})

	require.Equal(t, "Митап", ev.Title)
	require.False(t, ev.ShortDescription.Valid)
	require.False(t, ev.FullDescription.Valid)
	require.True(t, ev.Date.Equal(date))
	require.Equal(t, "Казань", ev.Location.String)
	require.Equal(t, SpeakerList{"Aysel"}, ev.Speakers)
	require.False(t, ev.ImageFileID.Valid)
	require.True(t, ev.RegistrationRequired)
	require.EqualValues(t, 50, ev.MaxParticipants.Int64)
}

func TestRenderCreateSummary_OmitsSkipped(t *testing.T) {
	summary := renderCreateSummary(map[Field]interface{}{
		FieldTitle:                "Митап",
		FieldShortDescription:     nil,
		FieldDate:                 time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC),
		FieldLocation:             "Казань",
		FieldRegistrationRequired: false,
		FieldMaxParticipants:      nil,
	})

	require.Contains(t, summary, "Название: Митап")
	require.Contains(t, summary, "Дата: 15.10.2026 18:30")
	require.Contains(t, summary, "Место: Казань")
	require.Contains(t, summary, "Регистрация: Не требуется")
	require.NotContains(t, summary, "Краткое описание")
	require.NotContains(t, summary, "Максимум участников")
}

func TestRenderEditSummary(t *testing.T) {
	require.Contains(t, renderEditSummary(FieldTitle, "Новое"), "Новое значение: Новое")
	require.Contains(t, renderEditSummary(FieldLocation, nil), "очистить поле")
	require.Contains(t, renderEditSummary(FieldLocation, nil), "Место")
}

func TestParseField(t *testing.T) {
	f, ok := parseField("location")
	require.True(t, ok)
	require.Equal(t, FieldLocation, f)

	_, ok = parseField("nonsense")
	require.False(t, ok)
}
