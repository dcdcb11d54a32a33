package messaging

import (
	"fmt"

	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
)

// IsBlocked reports whether blockerID has blocked blockedID.
func IsBlocked(db *gorm.DB, blockerID, blockedID string) (bool, error) {
	var n int64
	if err := db.Model(&models.Block{}).
		Where("blocker_user_id = ? AND blocked_user_id = ?", blockerID, blockedID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("messaging: block lookup %s/%s: %w", blockerID, blockedID, err)
	}
	return n > 0, nil
}

// excludeBlockedSenders drops messages whose sender the viewer has blocked.
// It runs inside the query so skip/limit windows stay correct.
func excludeBlockedSenders(viewerID string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("messages.from_user_id NOT IN (SELECT blocked_user_id FROM blocks WHERE blocker_user_id = ?)", viewerID)
	}
}

// excludeHeartReactions drops legacy heart-reaction rows.
func excludeHeartReactions(tx *gorm.DB) *gorm.DB {
	return tx.Where("NOT (messages.type = ? AND messages.content = ?)", models.MessageTypeLike, models.HeartGlyph)
}

func paginate(p Page) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if p.Skip > 0 {
			tx = tx.Offset(p.Skip)
		}
		if p.Limit > 0 {
			tx = tx.Limit(p.Limit)
		}
		return tx
	}
}

func newestFirst(tx *gorm.DB) *gorm.DB {
	return tx.Order("messages.created_at DESC").Order("messages.id DESC")
}
