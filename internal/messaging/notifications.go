package messaging

import (
	"errors"
	"fmt"

	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
)

// DefaultImportantTypes is the message-type set the "important" level
// surfaces when no other set is configured.
var DefaultImportantTypes = []string{models.MessageTypeComment}

// NotificationFilter decides which inbound messages surface as
// notifications for a given level.
type NotificationFilter struct {
	ImportantTypes []string
}

// NewNotificationFilter returns a filter for importantTypes, falling back to
// DefaultImportantTypes when the set is empty.
func NewNotificationFilter(importantTypes []string) NotificationFilter {
	if len(importantTypes) == 0 {
		importantTypes = DefaultImportantTypes
	}
	return NotificationFilter{ImportantTypes: importantTypes}
}

// Surfaces reports whether a message of msgType notifies a user at level.
// Unknown levels behave like "all".
func (f NotificationFilter) Surfaces(level, msgType string) bool {
	switch level {
	case models.NotificationNone:
		return false
	case models.NotificationImportant:
		for _, t := range f.ImportantTypes {
			if t == msgType {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// scope narrows a messages query to the types surfaced at level. The caller
// handles "none" before querying.
func (f NotificationFilter) scope(level string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if level == models.NotificationImportant {
			return tx.Where("messages.type IN ?", f.ImportantTypes)
		}
		return tx
	}
}

// NotificationLevel returns userID's stored level. An unknown user reads as
// "none" so that nothing surfaces for them.
func NotificationLevel(db *gorm.DB, userID string) (string, error) {
	var u models.User
	err := db.Select("notification_level").Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NotificationNone, nil
		}
		return "", fmt.Errorf("messaging: notification level %s: %w", userID, err)
	}
	if u.NotificationLevel == "" {
		return models.NotificationAll, nil
	}
	return u.NotificationLevel, nil
}

// List returns the inbound messages userID's level surfaces, newest first,
// whatever their status. Blocked senders are excluded.
func (f NotificationFilter) List(db *gorm.DB, userID string, page Page) ([]MessageView, error) {
	level, err := NotificationLevel(db, userID)
	if err != nil {
		return nil, err
	}
	if level == models.NotificationNone {
		return []MessageView{}, nil
	}

	var msgs []models.Message
	err = db.Model(&models.Message{}).
		Preload("FromUser").
		Where("messages.to_user_id = ?", userID).
		Scopes(f.scope(level), excludeBlockedSenders(userID), newestFirst, paginate(page)).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messaging: notifications %s: %w", userID, err)
	}
	return newViews(msgs), nil
}

// Count returns the number of unread notifications for userID.
func (f NotificationFilter) Count(db *gorm.DB, userID string) (int, error) {
	level, err := NotificationLevel(db, userID)
	if err != nil {
		return 0, err
	}
	if level == models.NotificationNone {
		return 0, nil
	}

	var n int64
	err = db.Model(&models.Message{}).
		Where("messages.to_user_id = ? AND messages.status = ?", userID, models.StatusUnread).
		Scopes(f.scope(level), excludeBlockedSenders(userID)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("messaging: notification count %s: %w", userID, err)
	}
	return int(n), nil
}

// MarkAllRead moves every unread notification of userID to "read" with one
// UPDATE and returns how many rows changed. Messages the level does not
// surface keep their status.
func (f NotificationFilter) MarkAllRead(db *gorm.DB, userID string) (int, error) {
	var updated int64
	err := db.Transaction(func(tx *gorm.DB) error {
		level, err := NotificationLevel(tx, userID)
		if err != nil {
			return err
		}
		if level == models.NotificationNone {
			return nil
		}
		res := tx.Model(&models.Message{}).
			Where("messages.to_user_id = ? AND messages.status = ?", userID, models.StatusUnread).
			Scopes(f.scope(level), excludeBlockedSenders(userID)).
			Update("status", models.StatusRead)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("messaging: mark all read %s: %w", userID, err)
	}
	return int(updated), nil
}
