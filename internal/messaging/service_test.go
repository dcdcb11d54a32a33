package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/hitoq/hitoq/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) *Service {
	t.Helper()
	return NewService(Options{
		DB:              testDB(t),
		Log:             zerolog.Nop(),
		DefaultPageSize: 2,
		MaxPageSize:     3,
	})
}

// --- Scenario ---

func TestService_ReplyAndHeartScenario(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	m1, err := svc.Send(ctx, "u1", SendRequest{ToUserID: "u2", Content: "hi"})
	require.NoError(t, err)
	m2, err := svc.Send(ctx, "u2", SendRequest{ToUserID: "u1", Content: "hey", ParentMessageID: &m1.ID})
	require.NoError(t, err)

	_, err = svc.ToggleHeart(ctx, "u1", m2.ID)
	require.NoError(t, err)

	thread, err := svc.Thread(ctx, "u1", m1.ID)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, thread.Root.ID)
	assert.Equal(t, 0, thread.Root.ThreadDepth)
	require.Len(t, thread.Replies, 1)
	assert.Equal(t, m2.ID, thread.Replies[0].ID)
	assert.Equal(t, 1, thread.Replies[0].ThreadDepth)

	likers, err := svc.Likers(ctx, "u1", m2.ID)
	require.NoError(t, err)
	require.Len(t, likers, 1)
	assert.Equal(t, "u1", likers[0].ID)

	states, err := svc.HeartStates(ctx, "u1", []string{m1.ID, m2.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]HeartState{
		m1.ID: {LikedByCaller: false, LikeCount: 0},
		m2.ID: {LikedByCaller: true, LikeCount: 1},
	}, states)
}

// --- Send ---

func TestService_SendDefaultsAndRefs(t *testing.T) {
	svc := testService(t)
	v, err := svc.Send(context.Background(), "u1", SendRequest{ToUserID: "u2", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeComment, v.Type)
	assert.Equal(t, models.StatusUnread, v.Status)
	require.NotNil(t, v.FromUser)
	assert.Equal(t, "alice", v.FromUser.UserName)
	require.NotNil(t, v.ToUser)
	assert.Equal(t, "bob", v.ToUser.UserName)
}

func TestService_SendValidation(t *testing.T) {
	svc := testService(t)
	tests := []struct {
		name string
		req  SendRequest
	}{
		{"missing recipient", SendRequest{Content: "x"}},
		{"missing content", SendRequest{ToUserID: "u2"}},
		{"blank content", SendRequest{ToUserID: "u2", Content: "   "}},
		{"bad type", SendRequest{ToUserID: "u2", Content: "x", Type: "request"}},
		{"too long", SendRequest{ToUserID: "u2", Content: strings.Repeat("a", 501)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), "u1", tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestService_SendCountsRunesNotBytes(t *testing.T) {
	svc := testService(t)
	_, err := svc.Send(context.Background(), "u1", SendRequest{ToUserID: "u2", Content: strings.Repeat("あ", 500)})
	assert.NoError(t, err)
}

func TestService_SendBlocked(t *testing.T) {
	svc := testService(t)
	block(t, svc.db, "u2", "u1")
	_, err := svc.Send(context.Background(), "u1", SendRequest{ToUserID: "u2", Content: "x"})
	assert.ErrorIs(t, err, ErrRecipientBlocked)
}

// --- Ownership ---

func TestService_GetParticipantsOnly(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	putComment(t, svc.db, "m1", "u1", "u2", "", 0)

	for _, u := range []string{"u1", "u2"} {
		_, err := svc.Get(ctx, u, "m1")
		assert.NoError(t, err, u)
	}
	_, err := svc.Get(ctx, "u3", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateStatusRecipientOnly(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	putComment(t, svc.db, "m1", "u1", "u2", "", 0)

	_, err := svc.UpdateStatus(ctx, "u1", "m1", models.StatusRead)
	assert.ErrorIs(t, err, ErrForbidden)

	v, err := svc.UpdateStatus(ctx, "u2", "m1", models.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, v.Status)

	_, err = svc.UpdateStatus(ctx, "u2", "missing", models.StatusRead)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_EditContentSenderOnly(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	putComment(t, svc.db, "m1", "u1", "u2", "", 0)

	_, err := svc.EditContent(ctx, "u2", "m1", "hijack")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.EditContent(ctx, "u1", "m1", "")
	assert.ErrorIs(t, err, ErrValidation)

	v, err := svc.EditContent(ctx, "u1", "m1", "fixed typo")
	require.NoError(t, err)
	assert.Equal(t, "fixed typo", v.Content)
}

func TestService_DeleteSenderOnly(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	putComment(t, svc.db, "m1", "u1", "u2", "", 0)
	putComment(t, svc.db, "m2", "u2", "u1", "m1", 1)

	_, err := svc.Delete(ctx, "u2", "m1")
	assert.ErrorIs(t, err, ErrForbidden)

	n, err := svc.Delete(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Get(ctx, "u2", "m2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ThreadOutsider(t *testing.T) {
	svc := testService(t)
	putComment(t, svc.db, "m1", "u1", "u2", "", 0)
	_, err := svc.Thread(context.Background(), "u3", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_HeartDataHiddenFromOutsiders(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	putComment(t, svc.db, "m1", "u1", "u2", "", 0)
	_, err := svc.ToggleHeart(ctx, "u2", "m1")
	require.NoError(t, err)

	_, err = svc.Likers(ctx, "u3", "m1")
	assert.ErrorIs(t, err, ErrNotFound)

	likers, err := svc.Likers(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Len(t, likers, 1)

	states, err := svc.HeartStates(ctx, "u3", []string{"m1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]HeartState{"m1": {}, "missing": {}}, states)

	states, err = svc.HeartStates(ctx, "u1", []string{"m1"})
	require.NoError(t, err)
	assert.Equal(t, HeartState{LikedByCaller: false, LikeCount: 1}, states["m1"])
}

// --- Paging ---

func TestService_PageClamping(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		putComment(t, svc.db, id, "u1", "u2", "", i)
	}

	views, err := svc.Roots(ctx, "u2", Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d"}, viewIDs(views))

	views, err = svc.Roots(ctx, "u2", Page{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, views, 3)

	_, err = svc.Inbox(ctx, "u2", Page{Skip: -1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_BlockEnforcementOnInbox(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	putComment(t, svc.db, "from-u1", "u1", "u2", "", 0)
	putComment(t, svc.db, "from-u3", "u3", "u2", "", 1)
	block(t, svc.db, "u2", "u3")

	views, err := svc.Inbox(ctx, "u2", Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"from-u1"}, viewIDs(views))

	n, err := svc.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_NotificationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	putComment(t, svc.db, "c1", "u1", "u2", "", 0)
	putComment(t, svc.db, "c2", "u3", "u2", "", 1)

	n, err := svc.NotificationCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := svc.Notifications(ctx, "u2", Page{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	updated, err := svc.MarkAllNotificationsRead(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	n, err = svc.NotificationCount(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, n)
}
