package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Repository defines the storage operations the bot core consults. Every
// method either fully applies or fully no-ops and reports an error; WithTx
// runs a function against a transaction-scoped Repository so multi-step
// checks (capacity, cascade delete) see one consistent snapshot.
type Repository interface {
	CreateTables(ctx context.Context) error

	CreateEvent(ctx context.Context, ev *Event) (int64, error)
	UpdateEventField(ctx context.Context, id int64, field Field, value interface{}) error
	DeleteEvent(ctx context.Context, id int64) error
	GetEvent(ctx context.Context, id int64) (*Event, error)
	ListUpcomingEvents(ctx context.Context, after time.Time, offset, limit int) ([]Event, error)
	CountUpcomingEvents(ctx context.Context, after time.Time) (int, error)
	ListAllEvents(ctx context.Context) ([]Event, error)

	CountRegistrations(ctx context.Context, eventID int64) (int, error)
	FindRegistration(ctx context.Context, userID, eventID int64) (*Registration, error)
	CreateRegistration(ctx context.Context, userID, eventID int64) error
	ListEventParticipants(ctx context.Context, eventID int64) ([]Participant, error)
	ListUserUpcomingEvents(ctx context.Context, userID int64, after time.Time) ([]Event, error)

	GetOrCreateUser(ctx context.Context, profile UserProfile) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)

	WithTx(ctx context.Context, fn func(r Repository) error) error
}

// SQLiteRepository implements Repository over SQLite. Queries run against q,
// which is either the pooled *sqlx.DB or, inside WithTx, a *sqlx.Tx.
type SQLiteRepository struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

// NewSQLiteRepository creates a SQLiteRepository on an open database handle.
func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, q: db}
}

// OpenDatabase opens the SQLite file and verifies connectivity.
func OpenDatabase(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// WithTx begins a transaction, runs fn with a transaction-scoped repository
// and commits on success or rolls back on error/panic. Panics are rethrown.
// Nested calls reuse the already open transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(r Repository) error) (err error) {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(&SQLiteRepository{q: tx})
	return err
}

// CreateTables creates the users, events and registrations tables.
func (r *SQLiteRepository) CreateTables(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER NOT NULL UNIQUE,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			phone TEXT,
			is_admin INTEGER NOT NULL DEFAULT 0,
			is_moderator INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			short_description TEXT,
			full_description TEXT,
			date DATETIME NOT NULL,
			location TEXT,
			speakers TEXT,
			image_file_id TEXT,
			registration_required INTEGER NOT NULL DEFAULT 1,
			max_participants INTEGER,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			event_id INTEGER NOT NULL REFERENCES events(id),
			registered_at DATETIME NOT NULL,
			UNIQUE(user_id, event_id)
		);`,
	}
	for _, stmt := range ddl {
		if _, err := r.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// CreateEvent inserts a new event and returns its id.
func (r *SQLiteRepository) CreateEvent(ctx context.Context, ev *Event) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO events (title, short_description, full_description, date, location,
			speakers, image_file_id, registration_required, max_participants, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Title, ev.ShortDescription, ev.FullDescription, ev.Date.UTC(), ev.Location,
		ev.Speakers, ev.ImageFileID, ev.RegistrationRequired, ev.MaxParticipants, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("create event: %w", err)
	}
	return res.LastInsertId()
}

// UpdateEventField sets a single event column. A nil value clears the column
// to NULL. The column is resolved from the closed Field set, never from a
// raw string.
func (r *SQLiteRepository) UpdateEventField(ctx context.Context, id int64, field Field, value interface{}) error {
	var column string
	switch field {
	case FieldTitle:
		column = "title"
	case FieldShortDescription:
		column = "short_description"
	case FieldFullDescription:
		column = "full_description"
	case FieldDate:
		column = "date"
	case FieldLocation:
		column = "location"
	case FieldSpeakers:
		column = "speakers"
	case FieldImage:
		column = "image_file_id"
	case FieldRegistrationRequired:
		column = "registration_required"
	case FieldMaxParticipants:
		column = "max_participants"
	default:
		return fmt.Errorf("update event: unknown field %q", field)
	}

	switch v := value.(type) {
	case time.Time:
		value = v.UTC()
	case []string:
		value = SpeakerList(v)
	}

	res, err := r.q.ExecContext(ctx, "UPDATE events SET "+column+" = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event and all its registrations in one transaction,
// so a failure between the two deletes cannot leave orphaned registrations.
func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(repo Repository) error {
		tx := repo.(*SQLiteRepository)
		if _, err := tx.q.ExecContext(ctx, "DELETE FROM registrations WHERE event_id = ?", id); err != nil {
			return fmt.Errorf("delete registrations: %w", err)
		}
		res, err := tx.q.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetEvent returns the event with the given id, or ErrNotFound.
func (r *SQLiteRepository) GetEvent(ctx context.Context, id int64) (*Event, error) {
	var ev Event
	err := sqlx.GetContext(ctx, r.q, &ev, "SELECT * FROM events WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &ev, nil
}

// ListUpcomingEvents returns events dated at or after the given moment,
// earliest first, with offset/limit pagination.
func (r *SQLiteRepository) ListUpcomingEvents(ctx context.Context, after time.Time, offset, limit int) ([]Event, error) {
	var events []Event
	err := sqlx.SelectContext(ctx, r.q, &events,
		"SELECT * FROM events WHERE date >= ? ORDER BY date LIMIT ? OFFSET ?",
		after.UTC(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CountUpcomingEvents returns the number of events dated at or after the
// given moment.
func (r *SQLiteRepository) CountUpcomingEvents(ctx context.Context, after time.Time) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM events WHERE date >= ?", after.UTC())
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// ListAllEvents returns every event, newest first, for the admin panel.
func (r *SQLiteRepository) ListAllEvents(ctx context.Context) ([]Event, error) {
	var events []Event
	err := sqlx.SelectContext(ctx, r.q, &events, "SELECT * FROM events ORDER BY date DESC")
	if err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	return events, nil
}

// CountRegistrations returns the number of registrations for an event.
func (r *SQLiteRepository) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM registrations WHERE event_id = ?", eventID)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// FindRegistration returns the registration for (user, event), or nil if the
// user is not registered.
func (r *SQLiteRepository) FindRegistration(ctx context.Context, userID, eventID int64) (*Registration, error) {
	var reg Registration
	err := sqlx.GetContext(ctx, r.q, &reg,
		"SELECT * FROM registrations WHERE user_id = ? AND event_id = ?", userID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

// CreateRegistration inserts a registration row. A duplicate (user, event)
// pair is reported as ErrAlreadyRegistered via the unique constraint.
func (r *SQLiteRepository) CreateRegistration(ctx context.Context, userID, eventID int64) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO registrations (user_id, event_id, registered_at) VALUES (?, ?, ?)",
		userID, eventID, time.Now().UTC())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrAlreadyRegistered
	}
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// ListEventParticipants returns the users registered for an event, most
// recent first.
func (r *SQLiteRepository) ListEventParticipants(ctx context.Context, eventID int64) ([]Participant, error) {
	var participants []Participant
	err := sqlx.SelectContext(ctx, r.q, &participants,
		`SELECT u.id, u.telegram_id, u.username, u.first_name, u.last_name, u.phone,
			u.is_admin, u.is_moderator, u.created_at, r.registered_at
		 FROM registrations r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.event_id = ?
		 ORDER BY r.registered_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// ListUserUpcomingEvents returns the upcoming events a user is registered
// for, earliest first.
func (r *SQLiteRepository) ListUserUpcomingEvents(ctx context.Context, userID int64, after time.Time) ([]Event, error) {
	var events []Event
	err := sqlx.SelectContext(ctx, r.q, &events,
		`SELECT e.* FROM events e
		 JOIN registrations r ON r.event_id = e.id
		 WHERE r.user_id = ? AND e.date >= ?
		 ORDER BY e.date`, userID, after.UTC())
	if err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	return events, nil
}

// GetOrCreateUser resolves a user row by Telegram identity, provisioning one
// on first contact.
func (r *SQLiteRepository) GetOrCreateUser(ctx context.Context, profile UserProfile) (*User, error) {
	user, err := r.GetUserByTelegramID(ctx, profile.TelegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO users (telegram_id, username, first_name, last_name, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		profile.TelegramID, nullString(profile.Username), nullString(profile.FirstName),
		nullString(profile.LastName), time.Now().UTC())
	var sqliteErr sqlite3.Error
	if err != nil && !(errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return r.GetUserByTelegramID(ctx, profile.TelegramID)
}

// GetUserByTelegramID returns the user with the given Telegram id, or
// ErrNotFound.
func (r *SQLiteRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	var user User
	err := sqlx.GetContext(ctx, r.q, &user, "SELECT * FROM users WHERE telegram_id = ?", telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
