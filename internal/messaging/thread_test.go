package messaging

import (
	"testing"
	"time"

	"github.com/hitoq/hitoq/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Linearize ---

func node(id, parent string, minute, depth int) ThreadNode {
	return ThreadNode{
		Message:  models.Message{ID: id, CreatedAt: baseTime.Add(time.Duration(minute) * time.Minute)},
		Depth:    depth,
		ParentID: parent,
		RootID:   "root",
	}
}

func nodeIDs(nodes []ThreadNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Message.ID
	}
	return ids
}

func TestLinearize_PreOrderSiblingsByTime(t *testing.T) {
	nodes := []ThreadNode{
		node("b", "root", 5, 1),
		node("a", "root", 1, 1),
		node("a2", "a", 7, 2),
		node("a1", "a", 3, 2),
		node("a1x", "a1", 9, 3),
	}
	got := Linearize("root", nodes)
	assert.Equal(t, []string{"a", "a1", "a1x", "a2", "b"}, nodeIDs(got))
}

func TestLinearize_TiesBrokenByID(t *testing.T) {
	nodes := []ThreadNode{
		node("z", "root", 1, 1),
		node("m", "root", 1, 1),
		node("c", "root", 1, 1),
	}
	assert.Equal(t, []string{"c", "m", "z"}, nodeIDs(Linearize("root", nodes)))
}

func TestLinearize_InputOrderIrrelevant(t *testing.T) {
	a := []ThreadNode{node("x", "root", 1, 1), node("y", "x", 2, 2), node("w", "root", 3, 1)}
	b := []ThreadNode{a[2], a[1], a[0]}
	assert.Equal(t, nodeIDs(Linearize("root", a)), nodeIDs(Linearize("root", b)))
}

func TestLinearize_UnreachableAndCycles(t *testing.T) {
	nodes := []ThreadNode{
		node("a", "root", 1, 1),
		node("orphan", "elsewhere", 2, 1),
		node("p", "q", 3, 1),
		node("q", "p", 4, 1),
	}
	assert.Equal(t, []string{"a"}, nodeIDs(Linearize("root", nodes)))
}

func TestLinearize_Empty(t *testing.T) {
	assert.Empty(t, Linearize("root", nil))
}

// --- BuildThread ---

func TestBuildThread_OrderDepthAndParent(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "root", "u1", "u2", "", 0)
	putComment(t, gdb, "b", "u2", "u1", "root", 5)
	putComment(t, gdb, "a", "u2", "u1", "root", 1)
	putComment(t, gdb, "a2", "u1", "u2", "a", 7)
	putComment(t, gdb, "a1", "u1", "u2", "a", 3)
	putComment(t, gdb, "a1x", "u2", "u1", "a1", 9)

	views, err := BuildThread(gdb, "root", "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "a1", "a1x", "a2", "b"}, viewIDs(views))

	wantDepth := map[string]int{"a": 1, "a1": 2, "a1x": 3, "a2": 2, "b": 1}
	wantParent := map[string]string{"a": "root", "a1": "a", "a1x": "a1", "a2": "a", "b": "root"}
	for _, v := range views {
		assert.Equal(t, wantDepth[v.ID], v.ThreadDepth, v.ID)
		require.NotNil(t, v.ThreadParentID, v.ID)
		assert.Equal(t, wantParent[v.ID], *v.ThreadParentID, v.ID)
		require.NotNil(t, v.FromUser, v.ID)
	}
}

func TestBuildThread_ParentPrecedesChildInvariant(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "root", "u1", "u2", "", 0)
	// A child older than its parent still comes after it.
	putComment(t, gdb, "p", "u2", "u1", "root", 10)
	putComment(t, gdb, "c", "u1", "u2", "p", 2)
	putComment(t, gdb, "q", "u2", "u1", "root", 11)

	views, err := BuildThread(gdb, "root", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "c", "q"}, viewIDs(views))
}

func TestBuildThread_ExcludesHeartRowsAtAnyDepth(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "root", "u1", "u2", "", 0)
	putComment(t, gdb, "r1", "u2", "u1", "root", 1)
	putHeartRow(t, gdb, "h-top", "u2", "u1", "root", 2)
	putComment(t, gdb, "r2", "u1", "u2", "r1", 3)
	putHeartRow(t, gdb, "h-deep", "u2", "u1", "r2", 4)
	putComment(t, gdb, "below-heart", "u1", "u2", "h-deep", 5)
	// A like-type message with other content is an ordinary reply.
	put(t, gdb, "thanks", "u2", "u1", "r2", 6, models.MessageTypeLike, "thanks!")

	views, err := BuildThread(gdb, "root", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "thanks"}, viewIDs(views))
}

func TestBuildThread_FromReplyResolvesRoot(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "root", "u1", "u2", "", 0)
	putComment(t, gdb, "r1", "u2", "u1", "root", 1)
	putComment(t, gdb, "r2", "u1", "u2", "r1", 2)

	views, err := BuildThread(gdb, "r2", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, viewIDs(views))
}

func TestBuildThread_OutsiderGetsEmpty(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "root", "u1", "u2", "", 0)
	putComment(t, gdb, "r1", "u2", "u1", "root", 1)

	views, err := BuildThread(gdb, "root", "u3")
	require.NoError(t, err)
	assert.Empty(t, views)

	views, err = BuildThread(gdb, "missing", "u1")
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestBuildThread_HidesBlockedSenderSubtree(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "root", "u1", "u2", "", 0)
	putComment(t, gdb, "r1", "u2", "u1", "root", 1)
	putComment(t, gdb, "r-blocked", "u3", "u1", "root", 2)
	putComment(t, gdb, "under", "u2", "u1", "r-blocked", 3)
	block(t, gdb, "u1", "u3")

	views, err := BuildThread(gdb, "root", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, viewIDs(views))

	// u2 has no block, so sees everything.
	views, err = BuildThread(gdb, "root", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r-blocked", "under"}, viewIDs(views))
}

func TestResolveThreadRoot(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "root", "u1", "u2", "", 0)
	putComment(t, gdb, "r1", "u2", "u1", "root", 1)

	root, err := ResolveThreadRoot(gdb, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "root", root.ID)

	_, err = ResolveThreadRoot(gdb, "r1", "u4")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveThreadRoot(gdb, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- ReplyCounts ---

func TestReplyCounts_MatchesThreadLength(t *testing.T) {
	gdb := testDB(t)
	putComment(t, gdb, "t1", "u1", "u2", "", 0)
	putComment(t, gdb, "t1-a", "u2", "u1", "t1", 1)
	putComment(t, gdb, "t1-b", "u1", "u2", "t1-a", 2)
	putHeartRow(t, gdb, "t1-h", "u2", "u1", "t1-a", 3)
	putComment(t, gdb, "t2", "u3", "u2", "", 4)
	putComment(t, gdb, "t3", "u2", "u4", "", 5)
	putComment(t, gdb, "t3-a", "u4", "u2", "t3", 6)

	counts, err := ReplyCounts(gdb, "u2", []string{"t1", "t2", "t3"})
	require.NoError(t, err)
	assert.Equal(t, 2, counts["t1"])
	assert.Equal(t, 0, counts["t2"])
	assert.Equal(t, 1, counts["t3"])

	for _, root := range []string{"t1", "t2", "t3"} {
		views, err := BuildThread(gdb, root, "u2")
		require.NoError(t, err)
		assert.Len(t, views, counts[root], root)
	}
}

func TestReplyCounts_Empty(t *testing.T) {
	gdb := testDB(t)
	counts, err := ReplyCounts(gdb, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
