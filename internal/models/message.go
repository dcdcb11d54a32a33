package models

import "time"

// Message types.
const (
	MessageTypeComment = "comment"
	MessageTypeLike    = "like"
)

// Message statuses.
const (
	StatusUnread  = "unread"
	StatusRead    = "read"
	StatusReplied = "replied"
)

// HeartGlyph is the content of a legacy heart-reaction message row.
const HeartGlyph = "❤️"

// Message is a user-to-user message. Replies point at their parent through
// ParentMessageID; roots leave it nil.
type Message struct {
	ID                string `gorm:"primaryKey;size:36"`
	FromUserID        string `gorm:"size:64;not null;index"`
	ToUserID          string `gorm:"size:64;not null;index"`
	Type              string `gorm:"size:16;not null;default:comment"`
	Content           string `gorm:"size:500;not null"`
	Status            string `gorm:"size:16;not null;default:unread;index"`
	ReferenceAnswerID *int64
	ParentMessageID   *string   `gorm:"size:36;index"`
	CreatedAt         time.Time `gorm:"index"`

	FromUser *User    `gorm:"foreignKey:FromUserID;constraint:OnDelete:CASCADE"`
	ToUser   *User    `gorm:"foreignKey:ToUserID;constraint:OnDelete:CASCADE"`
	Parent   *Message `gorm:"foreignKey:ParentMessageID;constraint:OnDelete:CASCADE"`
}

// IsHeartReaction reports whether the row is a heart reaction posted as a
// message. Such rows never appear in threads or reply counts.
func (m *Message) IsHeartReaction() bool {
	return m.Type == MessageTypeLike && m.Content == HeartGlyph
}

// Like is a heart on a message. A user holds at most one like per message.
type Like struct {
	ID        string    `gorm:"primaryKey;size:36"`
	MessageID string    `gorm:"size:36;not null;uniqueIndex:idx_like_message_user"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_like_message_user;index"`
	CreatedAt time.Time `gorm:"index"`

	Message *Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName keeps likes in message_likes.
func (Like) TableName() string { return "message_likes" }
