package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*FormEngine, *SQLiteRepository, *MemoryStateStore) {
	t.Helper()
	repo := newTestRepo(t)
	store := NewMemoryStateStore()
	return NewFormEngine(store, repo, zap.NewNop()), repo, store
}

func submitText(t *testing.T, e *FormEngine, userID int64, text string) *EngineResult {
	t.Helper()
	res, err := e.Submit(userID, Input{Text: text})
	require.NoError(t, err)
	return res
}

const testUser int64 = 1

func TestCreateForm_FullFlowWithoutRegistration(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.StartCreate(testUser)
	require.NoError(t, err)
	require.Equal(t, FieldTitle, res.Prompt.Field)
	require.False(t, res.Prompt.Skippable)

	res = submitText(t, engine, testUser, "Чайный вечер")
	require.Equal(t, FieldShortDescription, res.Prompt.Field)
	require.True(t, res.Prompt.Skippable)

	res, err = engine.Skip(testUser)
	require.NoError(t, err)
	require.Equal(t, FieldFullDescription, res.Prompt.Field)

	res, err = engine.Skip(testUser)
	require.NoError(t, err)
	require.Equal(t, FieldDate, res.Prompt.Field)

	res = submitText(t, engine, testUser, "15.10.2026 18:30")
	require.Equal(t, FieldLocation, res.Prompt.Field)

	res, err = engine.Skip(testUser)
	require.NoError(t, err)
	require.Equal(t, FieldSpeakers, res.Prompt.Field)

	res = submitText(t, engine, testUser, "Aysel, Bulat")
	require.Equal(t, FieldImage, res.Prompt.Field)

	res, err = engine.Skip(testUser)
	require.NoError(t, err)
	require.Equal(t, FieldRegistrationRequired, res.Prompt.Field)

	// "no" routes straight to confirmation; max participants is never asked.
	res = submitText(t, engine, testUser, "нет")
	require.NotEmpty(t, res.Summary)

	res, err = engine.Confirm(ctx, testUser)
	require.NoError(t, err)
	require.True(t, res.Committed)
	require.False(t, engine.InProgress(testUser))

	ev, err := repo.GetEvent(ctx, res.EventID)
	require.NoError(t, err)
	require.Equal(t, "Чайный вечер", ev.Title)
	require.True(t, ev.Date.Equal(time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)))
	require.Equal(t, SpeakerList{"Aysel", "Bulat"}, ev.Speakers)
	require.False(t, ev.RegistrationRequired)
	require.False(t, ev.MaxParticipants.Valid)
	require.False(t, ev.ShortDescription.Valid)
	require.False(t, ev.Location.Valid)
}

func TestCreateForm_RegistrationRequiredVisitsLimit(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.StartCreate(testUser)
	require.NoError(t, err)
	submitText(t, engine, testUser, "Митап")
	_, err = engine.Skip(testUser)
	require.NoError(t, err)
	_, err = engine.Skip(testUser)
	require.NoError(t, err)
	submitText(t, engine, testUser, "01.12.2026 19:00")
	_, err = engine.Skip(testUser)
	require.NoError(t, err)
	_, err = engine.Skip(testUser)
	require.NoError(t, err)
	_, err = engine.Skip(testUser)
	require.NoError(t, err)

	res := submitText(t, engine, testUser, "да")
	require.Equal(t, FieldMaxParticipants, res.Prompt.Field)

	res = submitText(t, engine, testUser, "25")
	require.NotEmpty(t, res.Summary)

	res, err = engine.Confirm(ctx, testUser)
	require.NoError(t, err)

	ev, err := repo.GetEvent(ctx, res.EventID)
	require.NoError(t, err)
	require.True(t, ev.RegistrationRequired)
	require.EqualValues(t, 25, ev.MaxParticipants.Int64)
}

func TestSubmit_InvalidDateKeepsState(t *testing.T) {
	engine, _, store := newTestEngine(t)

	_, err := engine.StartCreate(testUser)
	require.NoError(t, err)
	submitText(t, engine, testUser, "Митап")
	_, err = engine.Skip(testUser)
	require.NoError(t, err)
	_, err = engine.Skip(testUser)
	require.NoError(t, err)

	_, err = engine.Submit(testUser, Input{Text: "31.13.2025 10:00"})
	require.True(t, IsValidation(err))

	state, ok := store.Get(testUser)
	require.True(t, ok)
	require.Equal(t, FieldDate, state.Step)
	_, stored := state.Values[FieldDate]
	require.False(t, stored)
}

func TestSkip_StoresAbsentValue(t *testing.T) {
	engine, _, store := newTestEngine(t)

	_, err := engine.StartCreate(testUser)
	require.NoError(t, err)
	submitText(t, engine, testUser, "Митап")

	_, err = engine.Skip(testUser)
	require.NoError(t, err)

	state, ok := store.Get(testUser)
	require.True(t, ok)
	value, stored := state.Values[FieldShortDescription]
	require.True(t, stored)
	require.Nil(t, value)
}

func TestSkip_RequiredStepIsInvalid(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.StartCreate(testUser)
	require.NoError(t, err)

	_, err = engine.Skip(testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_DiscardsStateAndIsNotRepeatable(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.StartCreate(testUser)
	require.NoError(t, err)
	submitText(t, engine, testUser, "Митап")

	res, err := engine.Cancel(testUser)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.False(t, engine.InProgress(testUser))

	_, err = engine.Cancel(testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOperationsWhileIdle(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Submit(testUser, Input{Text: "x"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = engine.Skip(testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = engine.Confirm(context.Background(), testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = engine.SelectField(testUser, FieldTitle)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

// driveToConfirm walks a creation form up to the confirmation gate.
func driveToConfirm(t *testing.T, engine *FormEngine, userID int64) {
	t.Helper()
	_, err := engine.StartCreate(userID)
	require.NoError(t, err)
	submitText(t, engine, userID, "Митап")
	for i := 0; i < 2; i++ {
		_, err = engine.Skip(userID)
		require.NoError(t, err)
	}
	submitText(t, engine, userID, "01.12.2026 19:00")
	for i := 0; i < 3; i++ {
		_, err = engine.Skip(userID)
		require.NoError(t, err)
	}
	res := submitText(t, engine, userID, "нет")
	require.NotEmpty(t, res.Summary)
}

func TestSubmit_AtConfirmationGateIsInvalid(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	driveToConfirm(t, engine, testUser)

	_, err := engine.Submit(testUser, Input{Text: "ещё текст"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = engine.Skip(testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_AtConfirmationGate(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	driveToConfirm(t, engine, testUser)

	res, err := engine.Cancel(testUser)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.False(t, engine.InProgress(testUser))

	_, err = engine.Confirm(context.Background(), testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

// An event deleted while its edit form waits at the confirmation gate must
// abort the form, not wedge it on the same error forever.
func TestConfirm_EventDeletedAbortsForm(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreateEvent(t, repo, testEvent("Митап", time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC)))

	_, err := engine.StartEdit(ctx, testUser, id)
	require.NoError(t, err)
	_, err = engine.SelectField(testUser, FieldTitle)
	require.NoError(t, err)
	submitText(t, engine, testUser, "Новое название")

	require.NoError(t, repo.DeleteEvent(ctx, id))

	_, err = engine.Confirm(ctx, testUser)
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, engine.InProgress(testUser))

	_, err = engine.Confirm(ctx, testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartCreate_ReplacesStaleState(t *testing.T) {
	engine, _, store := newTestEngine(t)

	_, err := engine.StartCreate(testUser)
	require.NoError(t, err)
	submitText(t, engine, testUser, "Заброшенная форма")

	// The user walked away and started over.
	_, err = engine.StartCreate(testUser)
	require.NoError(t, err)

	state, ok := store.Get(testUser)
	require.True(t, ok)
	require.Equal(t, FieldTitle, state.Step)
	require.Empty(t, state.Values)
}

func TestEditForm_ChangeTitle(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreateEvent(t, repo, testEvent("Старое название", time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC)))

	res, err := engine.StartEdit(ctx, testUser, id)
	require.NoError(t, err)
	require.True(t, res.FieldMenu)

	res, err = engine.SelectField(testUser, FieldTitle)
	require.NoError(t, err)
	require.Equal(t, FieldTitle, res.Prompt.Field)
	require.False(t, res.Prompt.Skippable)

	res = submitText(t, engine, testUser, "Новое название")
	require.NotEmpty(t, res.Summary)

	res, err = engine.Confirm(ctx, testUser)
	require.NoError(t, err)
	require.True(t, res.Committed)
	require.Equal(t, id, res.EventID)

	ev, err := repo.GetEvent(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Новое название", ev.Title)
}

// Skipping an edit step clears the stored value rather than leaving it.
func TestEditForm_SkipClearsLocation(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	ev := testEvent("Митап", time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC))
	ev.Location = sql.NullString{String: "Казань", Valid: true}
	id := mustCreateEvent(t, repo, ev)

	_, err := engine.StartEdit(ctx, testUser, id)
	require.NoError(t, err)
	_, err = engine.SelectField(testUser, FieldLocation)
	require.NoError(t, err)

	res, err := engine.Skip(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, res.Summary)

	_, err = engine.Confirm(ctx, testUser)
	require.NoError(t, err)

	got, err := repo.GetEvent(ctx, id)
	require.NoError(t, err)
	require.False(t, got.Location.Valid)
}

func TestEditForm_SkipNonClearableFieldIsInvalid(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreateEvent(t, repo, testEvent("Митап", time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC)))

	_, err := engine.StartEdit(ctx, testUser, id)
	require.NoError(t, err)
	_, err = engine.SelectField(testUser, FieldTitle)
	require.NoError(t, err)

	_, err = engine.Skip(testUser)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEditForm_MaxParticipantsZeroClearsLimit(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	ev := testEvent("Митап", time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC))
	ev.MaxParticipants = sql.NullInt64{Int64: 10, Valid: true}
	id := mustCreateEvent(t, repo, ev)

	_, err := engine.StartEdit(ctx, testUser, id)
	require.NoError(t, err)
	_, err = engine.SelectField(testUser, FieldMaxParticipants)
	require.NoError(t, err)

	res := submitText(t, engine, testUser, "0")
	require.NotEmpty(t, res.Summary)

	_, err = engine.Confirm(ctx, testUser)
	require.NoError(t, err)

	got, err := repo.GetEvent(ctx, id)
	require.NoError(t, err)
	require.False(t, got.MaxParticipants.Valid)
}

func TestStartEdit_UnknownEvent(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.StartEdit(context.Background(), testUser, 4242)
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, engine.InProgress(testUser))
}

func TestSelectField_UnknownFieldIsInvalid(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	id := mustCreateEvent(t, repo, testEvent("Митап", time.Date(2026, 4, 4, 12, 0, 0, 0, time.UTC)))
	_, err := engine.StartEdit(ctx, testUser, id)
	require.NoError(t, err)

	_, err = engine.SelectField(testUser, Field("nonsense"))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUsersHaveIndependentState(t *testing.T) {
	engine, _, store := newTestEngine(t)

	_, err := engine.StartCreate(1)
	require.NoError(t, err)
	_, err = engine.StartCreate(2)
	require.NoError(t, err)

	submitText(t, engine, 1, "Форма первого")

	first, _ := store.Get(1)
	second, _ := store.Get(2)
	require.Equal(t, FieldShortDescription, first.Step)
	require.Equal(t, FieldTitle, second.Step)
}
