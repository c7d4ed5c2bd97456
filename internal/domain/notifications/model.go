package notifications

import "time"

// Kind agrupa notificaciones para íconos y deep links en la app.
type Kind string

const (
	KindMessage      Kind = "message"
	KindRegistration Kind = "registration"
	KindReminder     Kind = "reminder"
	KindChallenge    Kind = "challenge"
	KindModeration   Kind = "moderation"
	KindSystem       Kind = "system"
)

type Notification struct {
	ID     string
	UserID string

	Kind  Kind
	Title string
	Body  string
	// Data viaja tal cual al push (FCM solo acepta strings).
	Data map[string]string

	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// DeviceToken es un token FCM registrado por un dispositivo del usuario.
type DeviceToken struct {
	UserID    string
	Token     string
	Platform  string // android | ios | web
	CreatedAt time.Time
	UpdatedAt time.Time
}
