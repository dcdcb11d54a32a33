package messaging

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hitoq/hitoq/internal/models"
	"gorm.io/gorm"
)

// ResolveThreadRoot walks parent pointers from messageID up to the thread
// root and checks that viewerID is the root's sender or recipient. A missing
// message, a dangling parent pointer, a cycle and a viewer outside the
// conversation all return ErrNotFound.
func ResolveThreadRoot(db *gorm.DB, messageID, viewerID string) (*models.Message, error) {
	msg, err := Get(db, messageID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{msg.ID: true}
	for msg.ParentMessageID != nil {
		parentID := *msg.ParentMessageID
		if seen[parentID] {
			return nil, fmt.Errorf("messaging: thread %s: parent cycle: %w", messageID, ErrNotFound)
		}
		seen[parentID] = true
		if msg, err = Get(db, parentID); err != nil {
			return nil, err
		}
	}
	if msg.FromUserID != viewerID && msg.ToUserID != viewerID {
		return nil, fmt.Errorf("messaging: thread %s: %w", messageID, ErrNotFound)
	}
	return msg, nil
}

// BuildThread returns the linearized replies of the thread containing
// messageID, as seen by viewerID. The root itself is not included. An unknown
// message or a viewer outside the conversation yields an empty thread.
func BuildThread(db *gorm.DB, messageID, viewerID string) ([]MessageView, error) {
	root, err := ResolveThreadRoot(db, messageID, viewerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []MessageView{}, nil
		}
		return nil, err
	}
	return ThreadReplies(db, root.ID, viewerID)
}

// ThreadReplies collects every descendant of rootID visible to viewerID and
// returns them depth-first, parents before children, siblings oldest first.
func ThreadReplies(db *gorm.DB, rootID, viewerID string) ([]MessageView, error) {
	nodes, err := collectDescendants(db, viewerID, []string{rootID}, true)
	if err != nil {
		return nil, fmt.Errorf("messaging: thread %s: %w", rootID, err)
	}
	ordered := Linearize(rootID, nodes)
	views := make([]MessageView, len(ordered))
	for i := range ordered {
		n := &ordered[i]
		v := NewView(&n.Message)
		v.ThreadDepth = n.Depth
		parentID := n.ParentID
		v.ThreadParentID = &parentID
		views[i] = v
	}
	return views, nil
}

// ReplyCounts returns, for each root id, the number of descendants that
// would appear in that root's thread for viewerID.
func ReplyCounts(db *gorm.DB, viewerID string, rootIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(rootIDs))
	if len(rootIDs) == 0 {
		return counts, nil
	}
	nodes, err := collectDescendants(db, viewerID, rootIDs, false)
	if err != nil {
		return nil, fmt.Errorf("messaging: reply counts: %w", err)
	}
	for _, n := range nodes {
		counts[n.RootID]++
	}
	return counts, nil
}

// ThreadNode is one collected reply with its traversal position.
type ThreadNode struct {
	Message  models.Message
	Depth    int    // 1 for direct replies to the root
	ParentID string // immediate parent on the traversal path
	RootID   string
}

// collectDescendants expands breadth-first from rootIDs, one query per
// level. A heart-reaction row, or a row from a sender viewerID has blocked,
// is dropped along with everything beneath it. Each id is visited once.
func collectDescendants(db *gorm.DB, viewerID string, rootIDs []string, withUsers bool) ([]ThreadNode, error) {
	rootOf := make(map[string]string, len(rootIDs))
	for _, id := range rootIDs {
		rootOf[id] = id
	}

	var out []ThreadNode
	frontier := rootIDs
	for depth := 1; len(frontier) > 0; depth++ {
		var next []string
		for _, chunk := range chunkIDs(frontier) {
			q := db.Model(&models.Message{})
			if withUsers {
				q = q.Preload("FromUser").Preload("ToUser")
			}
			q = q.Where("messages.parent_message_id IN ?", chunk).Scopes(excludeHeartReactions)
			if viewerID != "" {
				q = q.Scopes(excludeBlockedSenders(viewerID))
			}

			var rows []models.Message
			if err := q.Order("messages.created_at ASC").Order("messages.id ASC").Find(&rows).Error; err != nil {
				return nil, err
			}
			for _, row := range rows {
				if _, dup := rootOf[row.ID]; dup {
					continue
				}
				parentID := *row.ParentMessageID
				rootOf[row.ID] = rootOf[parentID]
				out = append(out, ThreadNode{
					Message:  row,
					Depth:    depth,
					ParentID: parentID,
					RootID:   rootOf[parentID],
				})
				next = append(next, row.ID)
			}
		}
		frontier = next
	}
	return out, nil
}

// Linearize orders nodes as a pre-order walk of the tree rooted at rootID.
// Siblings are ordered by creation time, then id, so the output depends only
// on the data. Nodes not reachable from rootID are omitted.
func Linearize(rootID string, nodes []ThreadNode) []ThreadNode {
	children := make(map[string][]int, len(nodes))
	for i := range nodes {
		p := nodes[i].ParentID
		children[p] = append(children[p], i)
	}
	for _, idx := range children {
		sort.SliceStable(idx, func(a, b int) bool {
			x, y := nodes[idx[a]].Message, nodes[idx[b]].Message
			if !x.CreatedAt.Equal(y.CreatedAt) {
				return x.CreatedAt.Before(y.CreatedAt)
			}
			return x.ID < y.ID
		})
	}

	out := make([]ThreadNode, 0, len(nodes))
	visited := make(map[string]bool, len(nodes))
	var walk func(parentID string)
	walk = func(parentID string) {
		for _, i := range children[parentID] {
			id := nodes[i].Message.ID
			if visited[id] {
				continue
			}
			visited[id] = true
			out = append(out, nodes[i])
			walk(id)
		}
	}
	visited[rootID] = true
	walk(rootID)
	return out
}
