// Package etree implements the ElementTree data model: a mapping from
// element id to ElementContent plus a designated root, with the integrity
// invariants I1 (acyclicity), I2 (sibling-name uniqueness), and I3
// (reachability).
package etree

import (
	"fmt"

	"github.com/arborvc/arbor/internal/types"
)

// Tree is a mutable eid -> ElementContent mapping with a designated root.
// It is never shared between BranchStates; each replace is copy-on-write at
// the slot level.
type Tree struct {
	RootEid  types.Eid
	elements map[types.Eid]types.ElementContent
}

// New returns an empty tree whose root is rootEid, with the root element
// already present (parent -1, empty name, dir payload).
func New(rootEid types.Eid) *Tree {
	t := &Tree{RootEid: rootEid, elements: make(map[types.Eid]types.ElementContent)}
	t.elements[rootEid] = types.ElementContent{
		ParentEid: types.RootParent,
		Name:      "",
		Payload:   types.DirPayload(nil),
	}
	return t
}

// Clone returns a deep copy; element contents are immutable so map entries
// are shared, only the map itself is duplicated.
func (t *Tree) Clone() *Tree {
	out := &Tree{RootEid: t.RootEid, elements: make(map[types.Eid]types.ElementContent, len(t.elements))}
	for eid, c := range t.elements {
		out.elements[eid] = c
	}
	return out
}

// Get returns the content at eid, if mapped.
func (t *Tree) Get(eid types.Eid) (types.ElementContent, bool) {
	c, ok := t.elements[eid]
	return c, ok
}

// Has reports whether eid is mapped.
func (t *Tree) Has(eid types.Eid) bool {
	_, ok := t.elements[eid]
	return ok
}

// Eids returns every mapped element id, in no particular order.
func (t *Tree) Eids() []types.Eid {
	out := make([]types.Eid, 0, len(t.elements))
	for eid := range t.elements {
		out = append(out, eid)
	}
	return out
}

// Children returns the eids of parent's direct children.
func (t *Tree) Children(parent types.Eid) []types.Eid {
	var out []types.Eid
	for eid, c := range t.elements {
		if c.ParentEid == parent {
			out = append(out, eid)
		}
	}
	return out
}

// Put installs content at eid, replacing any prior content wholesale. It
// enforces I1 and I2 but not I3: orphans may exist transiently mid-edit.
//
// checkAcyclic/checkSiblingNames both walk a full copy of elements, so each
// Put is O(n) and a sequence of n Puts building a tree is O(n²) overall.
// Acceptable at the element counts a single working copy or merge holds in
// memory; would need an indexed parent/children structure to scale further.
func (t *Tree) Put(eid types.Eid, content types.ElementContent) error {
	// Parent absence is legal transiently (instantiate-before-parent within
	// one txn); acyclicity is checked below against whatever is mapped
	// right now.
	candidate := make(map[types.Eid]types.ElementContent, len(t.elements)+1)
	for k, v := range t.elements {
		candidate[k] = v
	}
	candidate[eid] = content

	if err := checkAcyclic(candidate, t.RootEid, eid); err != nil {
		return err
	}
	if err := checkSiblingNames(candidate, eid, content); err != nil {
		return err
	}

	t.elements[eid] = content
	return nil
}

// PutRaw installs content at eid without enforcing I1/I2, for callers that
// have already reasoned about the whole tree's integrity themselves and
// need the write to land even if it transiently collides with another
// element (e.g. mergeengine.applyResolved, which relies on the subsequent
// whole-tree detectNameClashes pass to observe and report collisions that
// Put's per-insert I2 guard would otherwise silently reject).
func (t *Tree) PutRaw(eid types.Eid, content types.ElementContent) {
	t.elements[eid] = content
}

// Remove deletes eid from the tree. Children become orphans;
// the caller (branch.Delete) is responsible for rejecting root deletion.
func (t *Tree) Remove(eid types.Eid) {
	delete(t.elements, eid)
}

// checkAcyclic enforces I1: following parent_eid from start reaches root in
// finitely many steps, using a bounded walk (bounded by map size) to detect
// cycles without assuming any particular traversal order.
func checkAcyclic(elements map[types.Eid]types.ElementContent, root, start types.Eid) error {
	if start == root {
		return nil
	}
	cur := start
	limit := len(elements) + 1
	for i := 0; i < limit; i++ {
		c, ok := elements[cur]
		if !ok {
			// Unmapped ancestor: orphaned, not cyclic. I3 handles this at
			// commit time, not here.
			return nil
		}
		if c.ParentEid == types.RootParent {
			if cur == root {
				return nil
			}
			// A second "root-shaped" element outside of root itself would
			// be a distinct branch root, which this tree does not model.
			return nil
		}
		if c.ParentEid == cur {
			return fmt.Errorf("%w: element %d is its own parent", types.ErrBadParent, cur)
		}
		cur = c.ParentEid
		if cur == root {
			return nil
		}
	}
	return fmt.Errorf("arbor: cycle detected reaching root from element %d", start)
}

// checkSiblingNames enforces I2 for the parent of the element just written.
func checkSiblingNames(elements map[types.Eid]types.ElementContent, eid types.Eid, content types.ElementContent) error {
	if content.ParentEid == types.RootParent {
		return nil
	}
	for other, c := range elements {
		if other == eid {
			continue
		}
		if c.ParentEid == content.ParentEid && c.Name == content.Name {
			return fmt.Errorf("%w: %q already used under parent %d", types.ErrNameClash, content.Name, content.ParentEid)
		}
	}
	return nil
}

// PathReachable reports whether eid's full ancestor chain, up to the root,
// is present in the tree (I3).
func (t *Tree) PathReachable(eid types.Eid) bool {
	cur := eid
	limit := len(t.elements) + 1
	for i := 0; i < limit; i++ {
		if cur == t.RootEid {
			return true
		}
		c, ok := t.elements[cur]
		if !ok {
			return false
		}
		if c.ParentEid == types.RootParent {
			return cur == t.RootEid
		}
		cur = c.ParentEid
	}
	return false
}

// Orphans returns every mapped eid that is not path-reachable.
func (t *Tree) Orphans() []types.Eid {
	var out []types.Eid
	for eid := range t.elements {
		if !t.PathReachable(eid) {
			out = append(out, eid)
		}
	}
	return out
}

// CheckIntegrity validates I1-I3 across the whole tree and returns the first
// violation found, or nil. Used before commit, which may not commit
// orphans.
func (t *Tree) CheckIntegrity() error {
	for eid, c := range t.elements {
		if eid == t.RootEid {
			if !c.IsRoot() {
				return fmt.Errorf("arbor: root element %d does not satisfy root invariant", eid)
			}
			continue
		}
		if c.IsRoot() {
			return fmt.Errorf("arbor: non-root element %d carries root-shaped content", eid)
		}
	}
	if orphans := t.Orphans(); len(orphans) > 0 {
		return fmt.Errorf("arbor: %d orphaned element(s), first is %d", len(orphans), orphans[0])
	}
	seen := make(map[string]types.Eid)
	for eid, c := range t.elements {
		if c.ParentEid == types.RootParent {
			continue
		}
		key := fmt.Sprintf("%d/%s", c.ParentEid, c.Name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %d and %d both named %q under %d", types.ErrNameClash, prev, eid, c.Name, c.ParentEid)
		}
		seen[key] = eid
	}
	return nil
}
