package main

import (
	"context"

	"go.uber.org/zap"
)

// RegistrationGuard enforces the registration invariants: at most one
// registration per (user, event) pair and never more registrations than the
// event's participant limit.
type RegistrationGuard struct {
	repo Repository
	log  *zap.Logger
}

// NewRegistrationGuard creates a RegistrationGuard on the given repository.
func NewRegistrationGuard(repo Repository, log *zap.Logger) *RegistrationGuard {
	return &RegistrationGuard{repo: repo, log: log}
}

// Register signs the user up for an event. The user row is provisioned on
// first contact. All checks and the insert run in one transaction, so two
// concurrent registrations cannot both claim the last open slot: the count
// check and the insert see the same snapshot, and the unique constraint on
// (user_id, event_id) backs the duplicate check.
//
// Returns the event on success; ErrAlreadyRegistered, ErrNotFound or
// ErrCapacityExceeded otherwise. Conflict and capacity failures are never
// retried here.
func (g *RegistrationGuard) Register(ctx context.Context, profile UserProfile, eventID int64) (*Event, error) {
	var event *Event
	err := g.repo.WithTx(ctx, func(r Repository) error {
		user, err := r.GetOrCreateUser(ctx, profile)
		if err != nil {
			return err
		}

		existing, err := r.FindRegistration(ctx, user.ID, eventID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}

		event, err = r.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}

		if event.MaxParticipants.Valid {
			count, err := r.CountRegistrations(ctx, eventID)
			if err != nil {
				return err
			}
			if int64(count) >= event.MaxParticipants.Int64 {
				return ErrCapacityExceeded
			}
		}

		return r.CreateRegistration(ctx, user.ID, eventID)
	})
	if err != nil {
		return nil, err
	}
	g.log.Info("registration created",
		zap.Int64("telegram_id", profile.TelegramID), zap.Int64("event", eventID))
	return event, nil
}
