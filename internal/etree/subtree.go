package etree

import (
	"fmt"

	"github.com/arborvc/arbor/internal/types"
)

// Subtree is a read-only view over a Tree rooted at a specific eid. It
// does not copy the underlying tree or own any element content.
type Subtree struct {
	tree *Tree
	root types.Eid
}

// NewSubtree returns a view of tree rooted at root. root need not be the
// tree's own RootEid.
func NewSubtree(tree *Tree, root types.Eid) Subtree {
	return Subtree{tree: tree, root: root}
}

// Root returns the subtree's root eid.
func (s Subtree) Root() types.Eid { return s.root }

// Get returns content for eid if it lies within this subtree (i.e. is
// reachable from root without leaving the underlying tree).
func (s Subtree) Get(eid types.Eid) (types.ElementContent, bool) {
	if !s.Contains(eid) {
		return types.ElementContent{}, false
	}
	return s.tree.Get(eid)
}

// Contains reports whether eid is root or a descendant of root within the
// underlying tree.
func (s Subtree) Contains(eid types.Eid) bool {
	cur := eid
	limit := len(s.tree.elements) + 1
	for i := 0; i < limit; i++ {
		if cur == s.root {
			return true
		}
		c, ok := s.tree.elements[cur]
		if !ok || c.ParentEid == types.RootParent {
			return false
		}
		cur = c.ParentEid
	}
	return false
}

// Eids returns every eid within this subtree.
func (s Subtree) Eids() []types.Eid {
	var out []types.Eid
	for _, eid := range s.tree.Eids() {
		if s.Contains(eid) {
			out = append(out, eid)
		}
	}
	return out
}

// CopySubtreeRerooted deep-copies the subtree of src rooted at srcRoot into
// dst, preserving every descendant's original eid. Only the
// root element is rewritten to sit at dstRoot with branch-root shape
// (parent -1, empty name); dstRoot may equal srcRoot (a fresh top-level
// branch keeping the same root eid) or differ (a nested branch, whose
// root_eid is disjoint from its hosting eid).
func CopySubtreeRerooted(dst *Tree, src *Tree, srcRoot, dstRoot types.Eid) error {
	sub := NewSubtree(src, srcRoot)
	rootContent, ok := sub.Get(srcRoot)
	if !ok {
		return fmt.Errorf("%w: source element %d", types.ErrEidNotFound, srcRoot)
	}
	if err := dst.Put(dstRoot, types.ElementContent{ParentEid: types.RootParent, Name: "", Payload: rootContent.Payload}); err != nil {
		return err
	}
	for _, eid := range sub.Eids() {
		if eid == srcRoot {
			continue
		}
		c, _ := sub.Get(eid)
		if c.ParentEid == srcRoot {
			c.ParentEid = dstRoot
		}
		if err := dst.Put(eid, c); err != nil {
			return fmt.Errorf("arbor: copying element %d: %w", eid, err)
		}
	}
	return nil
}
