// Package digest builds a periodic activity summary of the messaging store
// and posts it to chat channels for moderators.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
)

// Report holds activity metrics for one period.
type Report struct {
	PeriodStart   time.Time
	PeriodEnd     time.Time
	MessagesSent  int
	RootsStarted  int
	Replies       int
	Hearts        int
	ActiveSenders int
	Busiest       *ThreadActivity
}

// ThreadActivity is the reply volume of one thread within the period.
type ThreadActivity struct {
	RootID  string
	Preview string
	Replies int
}

// Empty reports whether nothing happened in the period.
func (r *Report) Empty() bool {
	return r.MessagesSent == 0 && r.Hearts == 0
}

// BuildReport gathers metrics for messages and hearts created in
// [since, until). Legacy heart-reaction rows are not counted as messages.
func BuildReport(db *gorm.DB, since, until time.Time) (*Report, error) {
	report := &Report{PeriodStart: since, PeriodEnd: until}

	var rows []models.Message
	err := db.Select("id", "from_user_id", "parent_message_id").
		Where("created_at >= ? AND created_at < ?", since, until).
		Where("NOT (type = ? AND content = ?)", models.MessageTypeLike, models.HeartGlyph).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("digest: messages: %w", err)
	}

	senders := make(map[string]bool)
	var replyParents []string
	for _, m := range rows {
		report.MessagesSent++
		senders[m.FromUserID] = true
		if m.ParentMessageID == nil {
			report.RootsStarted++
		} else {
			report.Replies++
			replyParents = append(replyParents, *m.ParentMessageID)
		}
	}
	report.ActiveSenders = len(senders)

	var hearts int64
	if err := db.Model(&models.Like{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&hearts).Error; err != nil {
		return nil, fmt.Errorf("digest: hearts: %w", err)
	}
	report.Hearts = int(hearts)

	if len(replyParents) > 0 {
		busiest, err := busiestThread(db, replyParents)
		if err != nil {
			return nil, err
		}
		report.Busiest = busiest
	}
	return report, nil
}

// busiestThread resolves each reply's root by walking parent pointers a
// level at a time, then picks the root with the most replies. Ties go to
// the smaller id.
func busiestThread(db *gorm.DB, parents []string) (*ThreadActivity, error) {
	parentOf := make(map[string]*string)
	pending := unique(parents)
	for len(pending) > 0 {
		var rows []models.Message
		if err := db.Select("id", "parent_message_id").Where("id IN ?", pending).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("digest: thread roots: %w", err)
		}
		pending = nil
		for _, r := range rows {
			parentOf[r.ID] = r.ParentMessageID
			if r.ParentMessageID != nil {
				if _, seen := parentOf[*r.ParentMessageID]; !seen {
					pending = append(pending, *r.ParentMessageID)
				}
			}
		}
		pending = unique(pending)
	}

	rootOf := func(id string) string {
		seen := map[string]bool{}
		for !seen[id] {
			seen[id] = true
			p, ok := parentOf[id]
			if !ok || p == nil {
				return id
			}
			id = *p
		}
		return id
	}

	counts := make(map[string]int)
	for _, p := range parents {
		counts[rootOf(p)]++
	}
	roots := make([]string, 0, len(counts))
	for id := range counts {
		roots = append(roots, id)
	}
	sort.Slice(roots, func(i, j int) bool {
		if counts[roots[i]] != counts[roots[j]] {
			return counts[roots[i]] > counts[roots[j]]
		}
		return roots[i] < roots[j]
	})

	top := &ThreadActivity{RootID: roots[0], Replies: counts[roots[0]]}
	var root models.Message
	if err := db.Select("id", "content").Where("id = ?", top.RootID).Limit(1).Find(&root).Error; err != nil {
		return nil, fmt.Errorf("digest: busiest root: %w", err)
	}
	top.Preview = preview(root.Content, 60)
	return top, nil
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Field is a key-value pair shown alongside a digest.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Message is a platform-neutral formatted digest.
type Message struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Format renders a report for posting.
func Format(r *Report) Message {
	msg := Message{
		Title: fmt.Sprintf("hitoq digest %s to %s",
			r.PeriodStart.UTC().Format("Jan 2 15:04"), r.PeriodEnd.UTC().Format("Jan 2 15:04 MST")),
		Color: "#4a90d9",
	}
	if r.Empty() {
		msg.Body = "No messaging activity in this period."
		msg.Color = "#999999"
		return msg
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d messages from %d senders: %d new threads, %d replies. %d hearts.",
		r.MessagesSent, r.ActiveSenders, r.RootsStarted, r.Replies, r.Hearts)
	if r.Busiest != nil {
		fmt.Fprintf(&b, "\nBusiest thread: %q (%d replies)", r.Busiest.Preview, r.Busiest.Replies)
	}
	msg.Body = b.String()
	msg.Fields = []Field{
		{Name: "Messages", Value: fmt.Sprint(r.MessagesSent), Short: true},
		{Name: "Senders", Value: fmt.Sprint(r.ActiveSenders), Short: true},
		{Name: "New threads", Value: fmt.Sprint(r.RootsStarted), Short: true},
		{Name: "Replies", Value: fmt.Sprint(r.Replies), Short: true},
		{Name: "Hearts", Value: fmt.Sprint(r.Hearts), Short: true},
	}
	return msg
}

// Text renders msg as plain text for terminals and fallbacks.
func (m Message) Text() string {
	return m.Title + "\n" + m.Body
}
