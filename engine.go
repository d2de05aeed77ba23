package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// StepPrompt asks the user the current step's question.
type StepPrompt struct {
	Field     Field
	Text      string
	Skippable bool
}

// EngineResult is the outcome of one form engine operation. Exactly one of
// the sections is meaningful: a next-step prompt, a field menu request, a
// confirmation summary, a committed event id, or a cancellation notice.
type EngineResult struct {
	Prompt    *StepPrompt // next question to ask
	FieldMenu bool        // edit form: present the field selection menu
	Summary   string      // confirmation gate reached; show summary
	Committed bool        // confirm applied the repository write
	EventID   int64       // id of the created or edited event
	Cancelled bool        // form discarded
}

// FormEngine drives per-user multi-step forms: it validates raw input for
// the current step, advances the state machine and, on explicit confirm,
// commits the accumulated values to the repository. Operations for one user
// are assumed to arrive serialized (see the dispatcher contract in main.go).
type FormEngine struct {
	store  StateStore
	repo   Repository
	create *Form
	log    *zap.Logger
}

// NewFormEngine creates a FormEngine using the given state store and
// repository.
func NewFormEngine(store StateStore, repo Repository, log *zap.Logger) *FormEngine {
	return &FormEngine{
		store:  store,
		repo:   repo,
		create: createEventForm(),
		log:    log,
	}
}

// StartCreate begins an event creation form for the user, silently replacing
// any stale form state left from an abandoned one.
func (e *FormEngine) StartCreate(userID int64) (*EngineResult, error) {
	first := e.create.first()
	e.store.Put(userID, &FormState{
		Kind:   FormCreateEvent,
		Step:   first,
		Values: make(map[Field]interface{}),
	})
	e.log.Debug("form started", zap.Int64("user", userID), zap.String("kind", "create"))
	return &EngineResult{Prompt: e.promptFor(first, FormCreateEvent)}, nil
}

// StartEdit begins a single-field edit form for an existing event. The first
// step is field selection, not a fixed question.
func (e *FormEngine) StartEdit(ctx context.Context, userID, eventID int64) (*EngineResult, error) {
	if _, err := e.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	e.store.Put(userID, &FormState{
		Kind:           FormEditEvent,
		SelectingField: true,
		EventID:        eventID,
		Values:         make(map[Field]interface{}),
	})
	e.log.Debug("form started", zap.Int64("user", userID), zap.String("kind", "edit"),
		zap.Int64("event", eventID))
	return &EngineResult{FieldMenu: true}, nil
}

// SelectField picks which field an edit form changes. Valid only right after
// StartEdit.
func (e *FormEngine) SelectField(userID int64, field Field) (*EngineResult, error) {
	state, ok := e.store.Get(userID)
	if !ok || state.Kind != FormEditEvent || !state.SelectingField {
		return nil, ErrInvalidTransition
	}
	if _, ok := fieldSpecs[field]; !ok {
		return nil, ErrInvalidTransition
	}
	state.SelectingField = false
	state.Step = field
	e.store.Put(userID, state)
	return &EngineResult{Prompt: e.promptFor(field, FormEditEvent)}, nil
}

// Submit feeds raw user input to the current step. On a validation failure
// the state is left unchanged and the caller re-prompts; on success the
// value is stored and the form advances.
func (e *FormEngine) Submit(userID int64, in Input) (*EngineResult, error) {
	state, ok := e.store.Get(userID)
	if !ok || state.AwaitingConfirm || state.SelectingField {
		return nil, ErrInvalidTransition
	}

	spec := fieldSpecs[state.Step]
	parse := spec.parse
	if state.Kind == FormEditEvent && spec.editParse != nil {
		parse = spec.editParse
	}
	value, err := parse(in)
	if err != nil {
		return nil, err
	}
	return e.advance(userID, state, value), nil
}

// Skip stores an explicit absent value for the current step. For creation
// forms this leaves the field empty; for edit forms it clears the field.
// Skip never invokes the step's parser.
func (e *FormEngine) Skip(userID int64) (*EngineResult, error) {
	state, ok := e.store.Get(userID)
	if !ok || state.AwaitingConfirm || state.SelectingField {
		return nil, ErrInvalidTransition
	}
	if !e.skippable(state) {
		return nil, ErrInvalidTransition
	}
	return e.advance(userID, state, nil), nil
}

// Confirm commits the accumulated values: an event insert for creation
// forms, a single-field update for edit forms. Valid only at the
// confirmation gate. On success the form state is cleared.
func (e *FormEngine) Confirm(ctx context.Context, userID int64) (*EngineResult, error) {
	state, ok := e.store.Get(userID)
	if !ok || !state.AwaitingConfirm {
		return nil, ErrInvalidTransition
	}

	var eventID int64
	var err error
	switch state.Kind {
	case FormCreateEvent:
		eventID, err = e.repo.CreateEvent(ctx, buildEvent(state.Values))
	case FormEditEvent:
		err = e.repo.UpdateEventField(ctx, state.EventID, state.Step, state.Values[state.Step])
		eventID = state.EventID
	default:
		return nil, fmt.Errorf("confirm: unknown form kind %d", state.Kind)
	}
	if err != nil {
		// A missing target can never be confirmed again: abort the form.
		// Transient repository failures keep the state so the user may retry.
		if errors.Is(err, ErrNotFound) {
			e.store.Delete(userID)
		}
		return nil, err
	}

	e.store.Delete(userID)
	e.log.Info("form committed", zap.Int64("user", userID), zap.Int64("event", eventID))
	return &EngineResult{Committed: true, EventID: eventID}, nil
}

// Cancel discards the user's form state from any non-idle state. Cancelling
// with no form in progress is an invalid transition.
func (e *FormEngine) Cancel(userID int64) (*EngineResult, error) {
	if _, ok := e.store.Get(userID); !ok {
		return nil, ErrInvalidTransition
	}
	e.store.Delete(userID)
	e.log.Debug("form cancelled", zap.Int64("user", userID))
	return &EngineResult{Cancelled: true}, nil
}

// InProgress reports whether the user has a form in progress.
func (e *FormEngine) InProgress(userID int64) bool {
	_, ok := e.store.Get(userID)
	return ok
}

// advance stores value for the current step and moves to the successor, or
// to the confirmation gate when the form is complete. Edit forms are
// one-step: any stored value goes straight to confirmation.
func (e *FormEngine) advance(userID int64, state *FormState, value interface{}) *EngineResult {
	state.Values[state.Step] = value

	if state.Kind == FormEditEvent {
		state.AwaitingConfirm = true
		e.store.Put(userID, state)
		return &EngineResult{Summary: renderEditSummary(state.Step, value)}
	}

	next := e.create.successor(state.Step, value)
	if next == confirmStep {
		// The participant limit is never asked when registration is off.
		if state.Step == FieldRegistrationRequired {
			state.Values[FieldMaxParticipants] = nil
		}
		state.AwaitingConfirm = true
		e.store.Put(userID, state)
		return &EngineResult{Summary: renderCreateSummary(state.Values)}
	}

	state.Step = next
	e.store.Put(userID, state)
	return &EngineResult{Prompt: e.promptFor(next, state.Kind)}
}

func (e *FormEngine) skippable(state *FormState) bool {
	if state.Kind == FormEditEvent {
		return fieldSpecs[state.Step].clearable
	}
	step, ok := e.create.step(state.Step)
	return ok && step.Skippable
}

func (e *FormEngine) promptFor(field Field, kind FormKind) *StepPrompt {
	spec := fieldSpecs[field]
	skippable := false
	if kind == FormEditEvent {
		skippable = spec.clearable
	} else if step, ok := e.create.step(field); ok {
		skippable = step.Skippable
	}
	return &StepPrompt{Field: field, Text: spec.prompt, Skippable: skippable}
}
