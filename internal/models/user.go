package models

import "time"

// Notification levels stored on User.NotificationLevel.
const (
	NotificationNone      = "none"
	NotificationImportant = "important"
	NotificationAll       = "all"
)

// User is the slice of the user directory the messaging core reads: identity,
// display fields for user refs, and the notification preference.
type User struct {
	ID                string `gorm:"primaryKey;size:64"`
	UserName          string `gorm:"size:100;not null;uniqueIndex"`
	DisplayName       string `gorm:"size:100;not null"`
	IconURL           string `gorm:"size:512"`
	NotificationLevel string `gorm:"size:16;not null;default:all"`
	CreatedAt         time.Time
}
