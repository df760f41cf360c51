package models

import "time"

// Notification kinds published by the services.
const (
	NotificationOccurrenceCancelled = "occurrence_cancelled"
	NotificationExamOpened          = "exam_opened"
	NotificationDeadlineReminder    = "deadline_reminder"
)

// Notification is a message targeted to a specific user, surfaced in the
// client's notification tray.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"size:64" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
