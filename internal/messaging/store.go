// Package messaging implements threaded user-to-user messages: the message
// store, thread reconstruction, heart reactions and notification filtering.
package messaging

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
)

// CreateInput holds the fields of a new message.
type CreateInput struct {
	FromUserID        string
	ToUserID          string
	Type              string
	Content           string
	ParentMessageID   *string
	ReferenceAnswerID *int64
}

// Create stores a new unread message. The recipient must exist and must not
// have blocked the sender; a reply's parent must exist. When the sender is
// the parent's recipient, the parent moves to "replied".
func Create(db *gorm.DB, in CreateInput) (*models.Message, error) {
	if in.FromUserID == "" {
		return nil, validationf("from is required")
	}
	if in.ToUserID == "" {
		return nil, validationf("to is required")
	}
	if !validType(in.Type) {
		return nil, validationf("unknown message type %q", in.Type)
	}

	ok, err := userExists(db, in.ToUserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("messaging: recipient %s: %w", in.ToUserID, ErrNotFound)
	}

	blocked, err := IsBlocked(db, in.ToUserID, in.FromUserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("messaging: send to %s: %w", in.ToUserID, ErrRecipientBlocked)
	}

	var parent *models.Message
	if in.ParentMessageID != nil {
		parent, err = Get(db, *in.ParentMessageID)
		if err != nil {
			return nil, fmt.Errorf("messaging: parent: %w", err)
		}
	}

	msg := models.Message{
		ID:                uuid.NewString(),
		FromUserID:        in.FromUserID,
		ToUserID:          in.ToUserID,
		Type:              in.Type,
		Content:           in.Content,
		Status:            models.StatusUnread,
		ReferenceAnswerID: in.ReferenceAnswerID,
		ParentMessageID:   in.ParentMessageID,
		CreatedAt:         time.Now().UTC(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if parent != nil && parent.ToUserID == in.FromUserID && parent.Status != models.StatusReplied {
			return tx.Model(&models.Message{}).Where("id = ?", parent.ID).
				Update("status", models.StatusReplied).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("messaging: send: %w", err)
	}
	return &msg, nil
}

// Get returns a message by id.
func Get(db *gorm.DB, id string) (*models.Message, error) {
	var msg models.Message
	if err := db.Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("messaging: message %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("messaging: get %s: %w", id, err)
	}
	return &msg, nil
}

// GetView returns a message with its users and parent summary loaded.
func GetView(db *gorm.DB, id string) (*MessageView, error) {
	var msg models.Message
	err := withRelations(db).Where("messages.id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("messaging: message %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("messaging: get %s: %w", id, err)
	}
	v := NewView(&msg)
	return &v, nil
}

// UpdateStatus sets a message's status. Ownership is the caller's concern.
func UpdateStatus(db *gorm.DB, id, status string) (*models.Message, error) {
	if !validStatus(status) {
		return nil, validationf("unknown status %q", status)
	}
	msg, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(msg).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("messaging: update status %s: %w", id, err)
	}
	msg.Status = status
	return msg, nil
}

// UpdateContent replaces a message's content. Ownership is the caller's concern.
func UpdateContent(db *gorm.DB, id, content string) (*models.Message, error) {
	msg, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(msg).Update("content", content).Error; err != nil {
		return nil, fmt.Errorf("messaging: update content %s: %w", id, err)
	}
	msg.Content = content
	return msg, nil
}

// DeleteCascading removes a message, every transitive reply and their
// hearts in one transaction, deepest replies first. It returns the number of
// messages removed; on any failure nothing is removed.
func DeleteCascading(db *gorm.DB, id string) (int, error) {
	removed := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Get(tx, id); err != nil {
			return err
		}

		levels := [][]string{{id}}
		seen := map[string]bool{id: true}
		for frontier := levels[0]; len(frontier) > 0; {
			var next []string
			for _, chunk := range chunkIDs(frontier) {
				var ids []string
				if err := tx.Model(&models.Message{}).
					Where("parent_message_id IN ?", chunk).
					Pluck("id", &ids).Error; err != nil {
					return err
				}
				for _, cid := range ids {
					if !seen[cid] {
						seen[cid] = true
						next = append(next, cid)
					}
				}
			}
			if len(next) > 0 {
				levels = append(levels, next)
			}
			frontier = next
		}

		for i := len(levels) - 1; i >= 0; i-- {
			for _, chunk := range chunkIDs(levels[i]) {
				if err := tx.Where("message_id IN ?", chunk).Delete(&models.Like{}).Error; err != nil {
					return err
				}
				res := tx.Where("id IN ?", chunk).Delete(&models.Message{})
				if res.Error != nil {
					return res.Error
				}
				removed += int(res.RowsAffected)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("messaging: delete %s: %w", id, err)
	}
	return removed, nil
}

// ListInbox returns every message addressed to userID, newest first, minus
// messages from senders userID has blocked.
func ListInbox(db *gorm.DB, userID string, page Page) ([]MessageView, error) {
	var msgs []models.Message
	err := withRelations(db).
		Where("messages.to_user_id = ?", userID).
		Scopes(excludeBlockedSenders(userID), newestFirst, paginate(page)).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messaging: inbox %s: %w", userID, err)
	}
	return newViews(msgs), nil
}

// ListRootMessagesWithReplyCounts returns root messages addressed to userID,
// newest first, each with its reply count.
func ListRootMessagesWithReplyCounts(db *gorm.DB, userID string, page Page) ([]MessageView, error) {
	var msgs []models.Message
	err := withRelations(db).
		Where("messages.to_user_id = ? AND messages.parent_message_id IS NULL", userID).
		Scopes(excludeBlockedSenders(userID), newestFirst, paginate(page)).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messaging: root messages %s: %w", userID, err)
	}
	return withReplyCounts(db, userID, msgs)
}

// ListConversation returns root messages userID sent or received, newest
// first, each with its reply count.
func ListConversation(db *gorm.DB, userID string, page Page) ([]MessageView, error) {
	var msgs []models.Message
	err := withRelations(db).
		Where("(messages.to_user_id = ? OR messages.from_user_id = ?) AND messages.parent_message_id IS NULL", userID, userID).
		Scopes(excludeBlockedSenders(userID), newestFirst, paginate(page)).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("messaging: conversation %s: %w", userID, err)
	}
	return withReplyCounts(db, userID, msgs)
}

// UnreadCount counts unread messages addressed to userID regardless of the
// notification level, minus blocked senders.
func UnreadCount(db *gorm.DB, userID string) (int, error) {
	var n int64
	err := db.Model(&models.Message{}).
		Where("messages.to_user_id = ? AND messages.status = ?", userID, models.StatusUnread).
		Scopes(excludeBlockedSenders(userID)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("messaging: unread count %s: %w", userID, err)
	}
	return int(n), nil
}

func withReplyCounts(db *gorm.DB, viewerID string, msgs []models.Message) ([]MessageView, error) {
	ids := make([]string, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	counts, err := ReplyCounts(db, viewerID, ids)
	if err != nil {
		return nil, err
	}
	views := newViews(msgs)
	for i := range views {
		views[i].ReplyCount = counts[views[i].ID]
	}
	return views, nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Message{}).
		Preload("FromUser").
		Preload("ToUser").
		Preload("Parent.FromUser")
}

func userExists(db *gorm.DB, id string) (bool, error) {
	var n int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("messaging: user lookup %s: %w", id, err)
	}
	return n > 0, nil
}

func validType(t string) bool {
	return t == models.MessageTypeComment || t == models.MessageTypeLike
}

func validStatus(s string) bool {
	switch s {
	case models.StatusUnread, models.StatusRead, models.StatusReplied:
		return true
	}
	return false
}

// maxInList bounds IN (...) parameter lists.
const maxInList = 500

func chunkIDs(ids []string) [][]string {
	var chunks [][]string
	for len(ids) > maxInList {
		chunks = append(chunks, ids[:maxInList])
		ids = ids[maxInList:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
