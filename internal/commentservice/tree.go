package commentservice

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// buildTree links the rows of one post into a forest of visible comments. Rows may arrive in any order.
//
// Soft-deleted rows are never returned. Their surviving replies are attached to the nearest visible ancestor,
// or become roots when every ancestor is deleted. Roots and every reply list are ordered by (created_at, id).
func buildTree(rows []*Comment) []*CommentNode {
	byID := make(map[uuid.UUID]*Comment, len(rows))
	nodes := make(map[uuid.UUID]*CommentNode, len(rows))

	for _, c := range rows {
		byID[c.ID] = c
		if c.DeletedAt != nil {
			continue
		}

		nodes[c.ID] = &CommentNode{
			ID:        c.ID,
			Content:   c.Content,
			Author:    c.Author,
			CreatedAt: c.CreatedAt,
			Replies:   []*CommentNode{},
		}
	}

	// anchor returns the nearest visible node at or above id, or nil when there is none.
	anchors := make(map[uuid.UUID]*CommentNode)
	var anchor func(id uuid.UUID, depth int) *CommentNode
	anchor = func(id uuid.UUID, depth int) *CommentNode {
		if n, ok := nodes[id]; ok {
			return n
		}
		if n, ok := anchors[id]; ok {
			return n
		}

		c, ok := byID[id]
		if !ok || !c.ParentID.Valid || depth > len(rows) {
			return nil
		}

		n := anchor(c.ParentID.UUID, depth+1)
		anchors[id] = n
		return n
	}

	roots := []*CommentNode{}
	for _, c := range rows {
		n, ok := nodes[c.ID]
		if !ok {
			continue
		}

		var parent *CommentNode
		if c.ParentID.Valid && c.ParentID.UUID != c.ID {
			parent = anchor(c.ParentID.UUID, 0)
		}

		if parent == nil || parent == n {
			roots = append(roots, n)
			continue
		}

		id := parent.ID
		n.ParentID = &id
		parent.Replies = append(parent.Replies, n)
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Replies)
	}

	return roots
}

func sortNodes(nodes []*CommentNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return bytes.Compare(nodes[i].ID[:], nodes[j].ID[:]) < 0
	})
}
