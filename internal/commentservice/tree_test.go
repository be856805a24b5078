package commentservice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type treeFixture struct {
	rows  []*Comment
	clock time.Time
}

func (f *treeFixture) add(parent *Comment, deleted bool) *Comment {
	f.clock = f.clock.Add(time.Second)

	c := &Comment{ID: uuid.New(), Content: "c", CreatedAt: f.clock}
	if parent != nil {
		c.ParentID = uuid.NullUUID{UUID: parent.ID, Valid: true}
	}
	if deleted {
		at := f.clock
		c.DeletedAt = &at
	}

	f.rows = append(f.rows, c)
	return c
}

func ids(nodes []*CommentNode) []uuid.UUID {
	out := []uuid.UUID{}
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildTree(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, []*CommentNode{}, buildTree(nil))
	})

	t.Run("replies are nested in creation order", func(t *testing.T) {
		f := &treeFixture{}
		a := f.add(nil, false)
		b := f.add(nil, false)
		a1 := f.add(a, false)
		a2 := f.add(a, false)
		a1x := f.add(a1, false)

		roots := buildTree(f.rows)
		require.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(roots))
		assert.Nil(t, roots[0].ParentID)
		require.Equal(t, []uuid.UUID{a1.ID, a2.ID}, ids(roots[0].Replies))
		assert.Equal(t, a.ID, *roots[0].Replies[0].ParentID)
		assert.Equal(t, []uuid.UUID{a1x.ID}, ids(roots[0].Replies[0].Replies))
		assert.Empty(t, roots[1].Replies)
	})

	t.Run("replies of a deleted comment move to the nearest visible ancestor", func(t *testing.T) {
		f := &treeFixture{}
		root := f.add(nil, false)
		early := f.add(root, false)
		gone := f.add(root, true)
		goneChild := f.add(gone, true)
		survivor := f.add(goneChild, false)
		late := f.add(root, false)

		roots := buildTree(f.rows)
		require.Equal(t, []uuid.UUID{root.ID}, ids(roots))
		assert.Equal(t, []uuid.UUID{early.ID, survivor.ID, late.ID}, ids(roots[0].Replies))
		assert.Equal(t, root.ID, *roots[0].Replies[1].ParentID)
	})

	t.Run("replies of a deleted root become roots", func(t *testing.T) {
		f := &treeFixture{}
		gone := f.add(nil, true)
		reply := f.add(gone, false)
		nested := f.add(reply, false)
		other := f.add(nil, false)

		roots := buildTree(f.rows)
		require.Equal(t, []uuid.UUID{reply.ID, other.ID}, ids(roots))
		assert.Nil(t, roots[0].ParentID)
		assert.Equal(t, []uuid.UUID{nested.ID}, ids(roots[0].Replies))
	})

	t.Run("reply sharing its parent's timestamp with a lower id", func(t *testing.T) {
		at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		parent := &Comment{ID: uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff"), CreatedAt: at}
		child := &Comment{
			ID:        uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			ParentID:  uuid.NullUUID{UUID: parent.ID, Valid: true},
			CreatedAt: at,
		}

		roots := buildTree([]*Comment{child, parent})
		require.Equal(t, []uuid.UUID{parent.ID}, ids(roots))
		assert.Equal(t, []uuid.UUID{child.ID}, ids(roots[0].Replies))
	})

	t.Run("row order does not matter", func(t *testing.T) {
		f := &treeFixture{}
		a := f.add(nil, false)
		b := f.add(nil, false)
		gone := f.add(a, true)
		a1 := f.add(a, false)
		hoisted := f.add(gone, false)
		a2 := f.add(a, false)
		a1x := f.add(a1, false)

		reversed := make([]*Comment, len(f.rows))
		for i, c := range f.rows {
			reversed[len(f.rows)-1-i] = c
		}

		roots := buildTree(reversed)
		require.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(roots))
		assert.Equal(t, []uuid.UUID{a1.ID, hoisted.ID, a2.ID}, ids(roots[0].Replies))
		assert.Equal(t, a.ID, *roots[0].Replies[1].ParentID)
		assert.Equal(t, []uuid.UUID{a1x.ID}, ids(roots[0].Replies[0].Replies))
	})

	t.Run("unbounded depth", func(t *testing.T) {
		f := &treeFixture{}
		parent := f.add(nil, false)
		for i := 0; i < 500; i++ {
			parent = f.add(parent, false)
		}

		node := buildTree(f.rows)[0]
		depth := 0
		for len(node.Replies) > 0 {
			node = node.Replies[0]
			depth++
		}
		assert.Equal(t, 500, depth)
		assert.Equal(t, parent.ID, node.ID)
	})
}
