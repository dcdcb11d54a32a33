package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/hitoq/hitoq/internal/metrics"
	"github.com/hitoq/hitoq/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Options configures a Service.
type Options struct {
	DB               *gorm.DB
	Log              zerolog.Logger
	MaxContentLength int
	ImportantTypes   []string
	DefaultPageSize  int
	MaxPageSize      int
}

// Service composes the store, thread builder, reaction tracker and
// notification filter, and enforces ownership on top of them.
type Service struct {
	db          *gorm.DB
	log         zerolog.Logger
	validate    *validator.Validate
	notify      NotificationFilter
	maxContent  int
	defaultPage int
	maxPage     int
}

// NewService returns a Service. Zero option values fall back to the
// configuration defaults.
func NewService(opts Options) *Service {
	s := &Service{
		db:          opts.DB,
		log:         opts.Log,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		notify:      NewNotificationFilter(opts.ImportantTypes),
		maxContent:  opts.MaxContentLength,
		defaultPage: opts.DefaultPageSize,
		maxPage:     opts.MaxPageSize,
	}
	if s.maxContent <= 0 {
		s.maxContent = 500
	}
	if s.maxPage <= 0 {
		s.maxPage = 100
	}
	if s.defaultPage <= 0 || s.defaultPage > s.maxPage {
		s.defaultPage = min(50, s.maxPage)
	}
	return s
}

// SendRequest is the body of a send.
type SendRequest struct {
	ToUserID          string  `json:"toUserId" validate:"required,max=64"`
	Type              string  `json:"messageType" validate:"omitempty,oneof=comment like"`
	Content           string  `json:"content" validate:"required"`
	ParentMessageID   *string `json:"parentMessageId" validate:"omitempty,max=36"`
	ReferenceAnswerID *int64  `json:"referenceAnswerId"`
}

// Send stores a message from senderID.
func (s *Service) Send(ctx context.Context, senderID string, req SendRequest) (*MessageView, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationf("%s", describeValidation(err))
	}
	if err := s.checkContent(req.Content); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = models.MessageTypeComment
	}

	db := s.db.WithContext(ctx)
	msg, err := Create(db, CreateInput{
		FromUserID:        senderID,
		ToUserID:          req.ToUserID,
		Type:              req.Type,
		Content:           req.Content,
		ParentMessageID:   req.ParentMessageID,
		ReferenceAnswerID: req.ReferenceAnswerID,
	})
	if err != nil {
		return nil, s.fail(err, "send", senderID)
	}
	metrics.MessagesSent.WithLabelValues(msg.Type).Inc()
	s.log.Debug().Str("message_id", msg.ID).Str("from", senderID).Str("to", msg.ToUserID).Msg("message sent")
	return GetView(db, msg.ID)
}

// Get returns a message to its sender or recipient. Anyone else gets
// ErrNotFound.
func (s *Service) Get(ctx context.Context, viewerID, id string) (*MessageView, error) {
	v, err := GetView(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if v.FromUserID != viewerID && v.ToUserID != viewerID {
		return nil, fmt.Errorf("messaging: message %s: %w", id, ErrNotFound)
	}
	return v, nil
}

// Inbox lists every message addressed to userID, replies included.
func (s *Service) Inbox(ctx context.Context, userID string, p Page) ([]MessageView, error) {
	page, err := s.page(p)
	if err != nil {
		return nil, err
	}
	return ListInbox(s.db.WithContext(ctx), userID, page)
}

// Roots lists root messages addressed to userID with reply counts.
func (s *Service) Roots(ctx context.Context, userID string, p Page) ([]MessageView, error) {
	page, err := s.page(p)
	if err != nil {
		return nil, err
	}
	return ListRootMessagesWithReplyCounts(s.db.WithContext(ctx), userID, page)
}

// Conversations lists roots userID sent or received with reply counts.
func (s *Service) Conversations(ctx context.Context, userID string, p Page) ([]MessageView, error) {
	page, err := s.page(p)
	if err != nil {
		return nil, err
	}
	return ListConversation(s.db.WithContext(ctx), userID, page)
}

// UnreadCount counts unread inbound messages, ignoring the notification level.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return UnreadCount(s.db.WithContext(ctx), userID)
}

// UpdateStatus changes a message's status. Only the recipient may do so.
func (s *Service) UpdateStatus(ctx context.Context, callerID, id, status string) (*MessageView, error) {
	db := s.db.WithContext(ctx)
	msg, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if msg.ToUserID != callerID {
		return nil, fmt.Errorf("messaging: status of %s: only the recipient may change it: %w", id, ErrForbidden)
	}
	if _, err := UpdateStatus(db, id, status); err != nil {
		return nil, s.fail(err, "update status", callerID)
	}
	return GetView(db, id)
}

// EditContent replaces a message's content. Only the sender may do so.
func (s *Service) EditContent(ctx context.Context, callerID, id, content string) (*MessageView, error) {
	if err := s.checkContent(content); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	msg, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if msg.FromUserID != callerID {
		return nil, fmt.Errorf("messaging: edit %s: only the sender may edit: %w", id, ErrForbidden)
	}
	if _, err := UpdateContent(db, id, content); err != nil {
		return nil, s.fail(err, "edit", callerID)
	}
	s.log.Debug().Str("message_id", id).Msg("message edited")
	return GetView(db, id)
}

// Delete removes a message and its whole reply subtree. Only the sender may
// do so. It returns the number of messages removed.
func (s *Service) Delete(ctx context.Context, callerID, id string) (int, error) {
	db := s.db.WithContext(ctx)
	msg, err := Get(db, id)
	if err != nil {
		return 0, err
	}
	if msg.FromUserID != callerID {
		return 0, fmt.Errorf("messaging: delete %s: only the sender may delete: %w", id, ErrForbidden)
	}
	n, err := DeleteCascading(db, id)
	if err != nil {
		return 0, s.fail(err, "delete", callerID)
	}
	s.log.Debug().Str("message_id", id).Int("removed", n).Msg("message deleted")
	return n, nil
}

// Thread returns the root of the thread containing id and its linearized
// replies. A viewer outside the conversation gets ErrNotFound.
func (s *Service) Thread(ctx context.Context, viewerID, id string) (*Thread, error) {
	db := s.db.WithContext(ctx)
	root, err := ResolveThreadRoot(db, id, viewerID)
	if err != nil {
		return nil, err
	}
	rootView, err := GetView(db, root.ID)
	if err != nil {
		return nil, err
	}
	replies, err := ThreadReplies(db, root.ID, viewerID)
	if err != nil {
		return nil, s.fail(err, "thread", viewerID)
	}
	rootView.ReplyCount = len(replies)
	return &Thread{Root: *rootView, Replies: replies}, nil
}

// ToggleHeart flips userID's heart on message id.
func (s *Service) ToggleHeart(ctx context.Context, userID, id string) (HeartState, error) {
	state, err := ToggleHeart(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return HeartState{}, s.fail(err, "heart", userID)
	}
	result := metrics.HeartRemoved
	if state.LikedByCaller {
		result = metrics.HeartAdded
	}
	metrics.HeartsToggled.WithLabelValues(result).Inc()
	return state, nil
}

// Likers lists the users who hearted message id, newest first. Like Get,
// only the sender and recipient may look; anyone else gets ErrNotFound.
func (s *Service) Likers(ctx context.Context, viewerID, id string) ([]UserRef, error) {
	if _, err := s.Get(ctx, viewerID, id); err != nil {
		return nil, err
	}
	return ListLikers(s.db.WithContext(ctx), id)
}

// HeartStates returns userID's heart state for each id. Messages userID
// neither sent nor received report the zero state, the same as a missing id.
func (s *Service) HeartStates(ctx context.Context, userID string, ids []string) (map[string]HeartState, error) {
	ids = dedupe(ids)
	if len(ids) > maxHeartStateIDs {
		return nil, validationf("at most %d message ids per request, got %d", maxHeartStateIDs, len(ids))
	}
	db := s.db.WithContext(ctx)

	var visible []string
	if len(ids) > 0 {
		err := db.Model(&models.Message{}).
			Where("id IN ?", ids).
			Where("from_user_id = ? OR to_user_id = ?", userID, userID).
			Pluck("id", &visible).Error
		if err != nil {
			return nil, s.fail(fmt.Errorf("messaging: heart states: %w", err), "heart-states", userID)
		}
	}

	states, err := HeartStates(db, userID, visible)
	if err != nil {
		return nil, s.fail(err, "heart-states", userID)
	}
	for _, id := range ids {
		if _, ok := states[id]; !ok {
			states[id] = HeartState{}
		}
	}
	return states, nil
}

// Notifications lists the messages userID's notification level surfaces.
func (s *Service) Notifications(ctx context.Context, userID string, p Page) ([]MessageView, error) {
	page, err := s.page(p)
	if err != nil {
		return nil, err
	}
	return s.notify.List(s.db.WithContext(ctx), userID, page)
}

// NotificationCount counts unread notifications for userID.
func (s *Service) NotificationCount(ctx context.Context, userID string) (int, error) {
	return s.notify.Count(s.db.WithContext(ctx), userID)
}

// MarkAllNotificationsRead marks every unread notification read.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	n, err := s.notify.MarkAllRead(s.db.WithContext(ctx), userID)
	if err != nil {
		return 0, s.fail(err, "mark all read", userID)
	}
	s.log.Debug().Str("user_id", userID).Int("updated", n).Msg("notifications marked read")
	return n, nil
}

func (s *Service) checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return validationf("content is required")
	}
	if n := utf8.RuneCountInString(content); n > s.maxContent {
		return validationf("content is %d characters, at most %d allowed", n, s.maxContent)
	}
	return nil
}

// page clamps a requested window. A missing limit takes the default; a
// limit above the maximum is cut down to it.
func (s *Service) page(p Page) (Page, error) {
	if p.Skip < 0 {
		return Page{}, validationf("skip must not be negative")
	}
	if p.Limit < 0 {
		return Page{}, validationf("limit must not be negative")
	}
	if p.Limit == 0 {
		p.Limit = s.defaultPage
	}
	if p.Limit > s.maxPage {
		p.Limit = s.maxPage
	}
	return p, nil
}

// fail logs unexpected errors. Taxonomy errors pass through quietly.
func (s *Service) fail(err error, op, userID string) error {
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrForbidden) &&
		!errors.Is(err, ErrValidation) {
		s.log.Error().Err(err).Str("op", op).Str("user_id", userID).Msg("messaging failure")
	}
	return err
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
