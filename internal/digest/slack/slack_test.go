package slack

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoq/hitoq/internal/digest"
	slackapi "github.com/slack-go/slack"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu      sync.Mutex
	posted  []postedMessage
	postErr error
	// failFirst makes the first N calls return postErr.
	failFirst int
	calls     int
}

type postedMessage struct {
	channelID string
	options   []slackapi.MsgOption
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.postErr != nil && (m.failFirst == 0 || m.calls <= m.failFirst) {
		return "", "", m.postErr
	}
	m.posted = append(m.posted, postedMessage{channelID: channelID, options: options})
	return channelID, "1234567890.123456", nil
}

var sample = digest.Message{
	Title: "hitoq digest",
	Body:  "3 messages",
	Color: "#4a90d9",
	Fields: []digest.Field{
		{Name: "Messages", Value: "3", Short: true},
	},
}

// --- New ---

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(PosterOpts{ChannelID: "C1"})
	if err == nil || !strings.Contains(err.Error(), "bot token is required") {
		t.Fatalf("err = %v, want bot token error", err)
	}
}

func TestNew_RequiresChannel(t *testing.T) {
	_, err := New(PosterOpts{BotToken: "xoxb-1"})
	if err == nil || !strings.Contains(err.Error(), "channel id is required") {
		t.Fatalf("err = %v, want channel error", err)
	}
}

func TestNew_RealClient(t *testing.T) {
	p, err := New(PosterOpts{BotToken: "xoxb-1", ChannelID: "C1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "slack" {
		t.Errorf("Name() = %q", p.Name())
	}
}

// --- Post ---

func TestPost_SendsToChannel(t *testing.T) {
	mock := &mockSlackClient{}
	p, err := New(PosterOpts{ChannelID: "C123", Client: mock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Post(context.Background(), sample); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(mock.posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(mock.posted))
	}
	if mock.posted[0].channelID != "C123" {
		t.Errorf("channel = %q", mock.posted[0].channelID)
	}
	if len(mock.posted[0].options) != 2 {
		t.Errorf("options = %d, want text + attachments", len(mock.posted[0].options))
	}
}

func TestPost_Error(t *testing.T) {
	mock := &mockSlackClient{postErr: errors.New("channel_not_found")}
	p, _ := New(PosterOpts{ChannelID: "C123", Client: mock})
	err := p.Post(context.Background(), sample)
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("err = %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want no retry on non-rate-limit errors", mock.calls)
	}
}

func TestPost_RetriesRateLimit(t *testing.T) {
	mock := &mockSlackClient{
		postErr:   &slackapi.RateLimitedError{RetryAfter: time.Millisecond},
		failFirst: 2,
	}
	p, _ := New(PosterOpts{ChannelID: "C123", Client: mock})
	if err := p.Post(context.Background(), sample); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if mock.calls != 3 {
		t.Errorf("calls = %d, want 3", mock.calls)
	}
}

func TestToAttachment(t *testing.T) {
	att := toAttachment(sample)
	if att.Title != "hitoq digest" || att.Text != "3 messages" || att.Color != "#4a90d9" {
		t.Errorf("attachment = %+v", att)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "Messages" || !att.Fields[0].Short {
		t.Errorf("fields = %+v", att.Fields)
	}
}

// --- retryOnRateLimit ---

func TestRetryOnRateLimit_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != maxRetries+1 {
		t.Errorf("expected %d calls, got %d", maxRetries+1, calls)
	}
}

func TestRetryOnRateLimit_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryOnRateLimit(ctx, func() error {
		return &slackapi.RateLimitedError{RetryAfter: time.Second}
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
