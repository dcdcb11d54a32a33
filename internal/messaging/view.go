package messaging

import (
	"time"

	"github.com/hitoq/hitoq/internal/models"
)

// UserRef is the public face of a user inside message payloads.
type UserRef struct {
	ID          string `json:"userId"`
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// ParentSummary describes the message a reply answers, without its own
// parent or replies.
type ParentSummary struct {
	ID        string    `json:"messageId"`
	Content   string    `json:"content"`
	FromUser  *UserRef  `json:"fromUser,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageView is the read model returned to callers. ReplyCount, ThreadDepth
// and ThreadParentID are computed per request and never written back.
type MessageView struct {
	ID                string         `json:"messageId"`
	FromUserID        string         `json:"fromUserId"`
	ToUserID          string         `json:"toUserId"`
	Type              string         `json:"messageType"`
	Content           string         `json:"content"`
	Status            string         `json:"status"`
	ReferenceAnswerID *int64         `json:"referenceAnswerId,omitempty"`
	ParentMessageID   *string        `json:"parentMessageId,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	FromUser          *UserRef       `json:"fromUser,omitempty"`
	ToUser            *UserRef       `json:"toUser,omitempty"`
	ParentMessage     *ParentSummary `json:"parentMessage,omitempty"`

	ReplyCount     int     `json:"replyCount"`
	ThreadDepth    int     `json:"threadDepth"`
	ThreadParentID *string `json:"threadParentId,omitempty"`
}

// HeartState is a caller's view of the hearts on one message.
type HeartState struct {
	LikedByCaller bool `json:"likedByCaller"`
	LikeCount     int  `json:"likeCount"`
}

// Thread is a root message and its linearized replies.
type Thread struct {
	Root    MessageView   `json:"root"`
	Replies []MessageView `json:"replies"`
}

// Page is a skip/limit window over a newest-first listing.
type Page struct {
	Skip  int
	Limit int
}

func newUserRef(u *models.User) *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{
		ID:          u.ID,
		UserName:    u.UserName,
		DisplayName: u.DisplayName,
		IconURL:     u.IconURL,
	}
}

// NewView projects a stored message. Associations that were not preloaded
// are left out.
func NewView(m *models.Message) MessageView {
	v := MessageView{
		ID:                m.ID,
		FromUserID:        m.FromUserID,
		ToUserID:          m.ToUserID,
		Type:              m.Type,
		Content:           m.Content,
		Status:            m.Status,
		ReferenceAnswerID: m.ReferenceAnswerID,
		ParentMessageID:   m.ParentMessageID,
		CreatedAt:         m.CreatedAt,
		FromUser:          newUserRef(m.FromUser),
		ToUser:            newUserRef(m.ToUser),
	}
	if m.Parent != nil {
		v.ParentMessage = &ParentSummary{
			ID:        m.Parent.ID,
			Content:   m.Parent.Content,
			FromUser:  newUserRef(m.Parent.FromUser),
			CreatedAt: m.Parent.CreatedAt,
		}
	}
	return v
}

func newViews(msgs []models.Message) []MessageView {
	views := make([]MessageView, len(msgs))
	for i := range msgs {
		views[i] = NewView(&msgs[i])
	}
	return views
}
