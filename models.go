package main

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// User represents a bot user record.
type User struct {
	ID          int64          `db:"id"`           // ID is the internal primary key.
	TelegramID  int64          `db:"telegram_id"`  // TelegramID is the unique identifier for the user on Telegram.
	Username    sql.NullString `db:"username"`     // Username is the user's Telegram username.
	FirstName   sql.NullString `db:"first_name"`   // FirstName is the user's first name.
	LastName    sql.NullString `db:"last_name"`    // LastName is the user's last name.
	Phone       sql.NullString `db:"phone"`        // Phone is the user's phone number, if shared.
	IsAdmin     bool           `db:"is_admin"`     // IsAdmin marks full administrators.
	IsModerator bool           `db:"is_moderator"` // IsModerator marks users allowed to manage events.
	CreatedAt   time.Time      `db:"created_at"`   // CreatedAt is when the user first interacted with the bot.
}

// FullName joins the first and last name, falling back to the username.
func (u *User) FullName() string {
	name := u.FirstName.String
	if u.LastName.Valid && u.LastName.String != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName.String
	}
	if name == "" && u.Username.Valid {
		name = "@" + u.Username.String
	}
	return name
}

// UserProfile carries the identity fields the chat transport knows about a
// user. It is used to lazily provision User rows on first contact.
type UserProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// SpeakerList is an ordered list of speaker names, stored as a JSON array in
// a TEXT column.
type SpeakerList []string

// Value implements driver.Valuer. An empty list is stored as NULL.
func (s SpeakerList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *SpeakerList) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("speakers: cannot scan %T", src)
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(s))
}

// Event represents an event record.
type Event struct {
	ID                   int64          `db:"id"`                    // ID is the unique identifier for the event.
	Title                string         `db:"title"`                 // Title is the event name shown to users.
	ShortDescription     sql.NullString `db:"short_description"`     // ShortDescription is a one-paragraph teaser.
	FullDescription      sql.NullString `db:"full_description"`      // FullDescription is the long event text.
	Date                 time.Time      `db:"date"`                  // Date is when the event takes place.
	Location             sql.NullString `db:"location"`              // Location is the venue, if announced.
	Speakers             SpeakerList    `db:"speakers"`              // Speakers is the ordered speaker list.
	ImageFileID          sql.NullString `db:"image_file_id"`         // ImageFileID is the Telegram file id of the poster image.
	RegistrationRequired bool           `db:"registration_required"` // RegistrationRequired tells whether users must sign up.
	MaxParticipants      sql.NullInt64  `db:"max_participants"`      // MaxParticipants limits registrations; NULL = unlimited.
	CreatedAt            time.Time      `db:"created_at"`            // CreatedAt is when the event row was created.
}

// Registration links a user to an event.
type Registration struct {
	ID           int64     `db:"id"`            // ID is the internal primary key.
	UserID       int64     `db:"user_id"`       // UserID references users.id.
	EventID      int64     `db:"event_id"`      // EventID references events.id.
	RegisteredAt time.Time `db:"registered_at"` // RegisteredAt is when the registration was made.
}

// Participant is a registration joined with the user who made it, used for
// the participants list and the CSV export.
type Participant struct {
	User
	RegisteredAt time.Time `db:"registered_at"`
}
