package messaging

import (
	"testing"
	"time"

	database "github.com/hitoq/hitoq/internal/db"
	"github.com/hitoq/hitoq/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// testDB returns a migrated in-memory database seeded with users u1..u4.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, database.SeedUsers(gdb, []models.User{
		{ID: "u1", UserName: "alice", DisplayName: "Alice"},
		{ID: "u2", UserName: "bob", DisplayName: "Bob"},
		{ID: "u3", UserName: "carol", DisplayName: "Carol"},
		{ID: "u4", UserName: "dave", DisplayName: "Dave"},
	}))
	return gdb
}

// put inserts a message row directly with a fixed id and timestamp offset
// (in minutes from baseTime), bypassing Create's checks.
func put(t *testing.T, gdb *gorm.DB, id, from, to, parent string, minute int, typ, content string) {
	t.Helper()
	msg := models.Message{
		ID:         id,
		FromUserID: from,
		ToUserID:   to,
		Type:       typ,
		Content:    content,
		Status:     models.StatusUnread,
		CreatedAt:  baseTime.Add(time.Duration(minute) * time.Minute),
	}
	if parent != "" {
		p := parent
		msg.ParentMessageID = &p
	}
	require.NoError(t, gdb.Create(&msg).Error)
}

func putComment(t *testing.T, gdb *gorm.DB, id, from, to, parent string, minute int) {
	t.Helper()
	put(t, gdb, id, from, to, parent, minute, models.MessageTypeComment, "text of "+id)
}

func putHeartRow(t *testing.T, gdb *gorm.DB, id, from, to, parent string, minute int) {
	t.Helper()
	put(t, gdb, id, from, to, parent, minute, models.MessageTypeLike, models.HeartGlyph)
}

func block(t *testing.T, gdb *gorm.DB, blocker, blocked string) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.Block{BlockerUserID: blocker, BlockedUserID: blocked}).Error)
}

func setLevel(t *testing.T, gdb *gorm.DB, userID, level string) {
	t.Helper()
	require.NoError(t, gdb.Model(&models.User{}).Where("id = ?", userID).
		Update("notification_level", level).Error)
}

func viewIDs(views []MessageView) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func strPtr(s string) *string { return &s }
