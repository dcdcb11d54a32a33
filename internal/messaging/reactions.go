package messaging

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	database "github.com/hitoq/hitoq/internal/db"
	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
)

// toggleAttempts bounds the insert/delete race loop in ToggleHeart.
const toggleAttempts = 2

// ToggleHeart flips userID's heart on messageID and returns the resulting
// state. The insert is tried first and the unique (message, user) index
// decides the race: a duplicate means the heart exists and is removed
// instead. Concurrent toggles by the same user therefore never produce two
// rows.
func ToggleHeart(db *gorm.DB, userID, messageID string) (HeartState, error) {
	if _, err := Get(db, messageID); err != nil {
		return HeartState{}, err
	}

	liked := false
	for attempt := 0; ; attempt++ {
		if attempt == toggleAttempts {
			return HeartState{}, fmt.Errorf("messaging: heart %s by %s: %w", messageID, userID, ErrReactionConflict)
		}
		like := models.Like{
			ID:        uuid.NewString(),
			MessageID: messageID,
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		}
		err := db.Create(&like).Error
		if err == nil {
			liked = true
			break
		}
		if !database.IsDuplicateKey(err) {
			return HeartState{}, fmt.Errorf("messaging: heart %s: %w", messageID, err)
		}

		res := db.Where("message_id = ? AND user_id = ?", messageID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return HeartState{}, fmt.Errorf("messaging: unheart %s: %w", messageID, res.Error)
		}
		if res.RowsAffected > 0 {
			break
		}
		// Someone removed the row between our insert and delete.
	}

	n, err := CountHearts(db, messageID)
	if err != nil {
		return HeartState{}, err
	}
	return HeartState{LikedByCaller: liked, LikeCount: n}, nil
}

// CountHearts returns the number of hearts on messageID.
func CountHearts(db *gorm.DB, messageID string) (int, error) {
	var n int64
	if err := db.Model(&models.Like{}).Where("message_id = ?", messageID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("messaging: count hearts %s: %w", messageID, err)
	}
	return int(n), nil
}

// ListLikers returns the users who hearted messageID, most recent first.
func ListLikers(db *gorm.DB, messageID string) ([]UserRef, error) {
	if _, err := Get(db, messageID); err != nil {
		return nil, err
	}
	var likes []models.Like
	err := db.Preload("User").
		Where("message_id = ?", messageID).
		Order("created_at DESC").Order("id DESC").
		Find(&likes).Error
	if err != nil {
		return nil, fmt.Errorf("messaging: likers %s: %w", messageID, err)
	}
	users := make([]UserRef, 0, len(likes))
	for i := range likes {
		if ref := newUserRef(likes[i].User); ref != nil {
			users = append(users, *ref)
		}
	}
	return users, nil
}

// maxHeartStateIDs caps one HeartStates request.
const maxHeartStateIDs = 200

// HeartStates returns userID's heart state for each message id with two
// queries, whatever the number of ids. Unknown ids report zero hearts.
func HeartStates(db *gorm.DB, userID string, messageIDs []string) (map[string]HeartState, error) {
	ids := dedupe(messageIDs)
	if len(ids) > maxHeartStateIDs {
		return nil, validationf("at most %d message ids per request, got %d", maxHeartStateIDs, len(ids))
	}
	states := make(map[string]HeartState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}
	for _, id := range ids {
		states[id] = HeartState{}
	}

	type countRow struct {
		MessageID string
		N         int
	}
	var counts []countRow
	err := db.Model(&models.Like{}).
		Select("message_id, COUNT(*) AS n").
		Where("message_id IN ?", ids).
		Group("message_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("messaging: heart counts: %w", err)
	}
	for _, c := range counts {
		s := states[c.MessageID]
		s.LikeCount = c.N
		states[c.MessageID] = s
	}

	var mine []string
	err = db.Model(&models.Like{}).
		Where("user_id = ? AND message_id IN ?", userID, ids).
		Pluck("message_id", &mine).Error
	if err != nil {
		return nil, fmt.Errorf("messaging: heart states: %w", err)
	}
	for _, id := range mine {
		s := states[id]
		s.LikedByCaller = true
		states[id] = s
	}
	return states, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
