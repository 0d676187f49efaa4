// Package diffengine computes element_differences between two
// ElementTrees and derives the reparented/renamed/modified attributes and
// display ordering used by diff output: left and right are compared by
// shared eid and each disagreement classified into an added, removed, or
// changed bucket over the (parent_eid, name, payload) triple.
package diffengine

import (
	"sort"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

// Side tags which half of a Difference is present.
type Side int

const (
	// SideBoth means the element exists in both trees with different content.
	SideBoth Side = iota
	// SideLeftOnly means the element exists only on the left (a deletion
	// when reading left->right).
	SideLeftOnly
	// SideRightOnly means the element exists only on the right (an addition
	// when reading left->right).
	SideRightOnly
)

// Difference describes one element's differing content between two trees.
type Difference struct {
	Eid   types.Eid
	Side  Side
	Left  *types.ElementContent
	Right *types.ElementContent

	Reparented bool
	Renamed    bool
	Modified   bool
}

// ElementDifferences computes element_differences(left, right): the set of
// eids whose content differs between left and right, each tagged with the
// derived reparented/renamed/modified attributes.
func ElementDifferences(left, right *etree.Tree) map[types.Eid]*Difference {
	out := make(map[types.Eid]*Difference)
	seen := make(map[types.Eid]bool)

	for _, eid := range left.Eids() {
		seen[eid] = true
		lc, _ := left.Get(eid)
		rc, ok := right.Get(eid)
		if !ok {
			out[eid] = &Difference{Eid: eid, Side: SideLeftOnly, Left: &lc}
			continue
		}
		if d := compare(eid, lc, rc); d != nil {
			out[eid] = d
		}
	}
	for _, eid := range right.Eids() {
		if seen[eid] {
			continue
		}
		rc, _ := right.Get(eid)
		out[eid] = &Difference{Eid: eid, Side: SideRightOnly, Right: &rc}
	}
	return out
}

// compare classifies one element present on both sides, returning nil if
// its content is identical.
func compare(eid types.Eid, l, r types.ElementContent) *Difference {
	reparented := l.ParentEid != r.ParentEid
	renamed := l.Name != r.Name
	modified := !l.Payload.Equal(r.Payload)
	if !reparented && !renamed && !modified {
		return nil
	}
	ll, rr := l, r
	return &Difference{
		Eid:        eid,
		Side:       SideBoth,
		Left:       &ll,
		Right:      &rr,
		Reparented: reparented,
		Renamed:    renamed,
		Modified:   modified,
	}
}

// Category buckets a Difference for display ordering: deletions grouped
// before modifications and additions.
type Category int

const (
	CategoryDeletion Category = iota
	CategoryChange
	CategoryAddition
)

func (d *Difference) Category() Category {
	switch d.Side {
	case SideLeftOnly:
		return CategoryDeletion
	case SideRightOnly:
		return CategoryAddition
	default:
		return CategoryChange
	}
}

// Salient reports whether a deletion is "salient": a deletion whose parent
// is also deleted is marked less salient, since removing the parent implies
// removing everything beneath it. Non-deletions are always
// salient.
func (d *Difference) Salient(all map[types.Eid]*Difference, left *etree.Tree) bool {
	if d.Category() != CategoryDeletion {
		return true
	}
	parent := d.Left.ParentEid
	for parent != types.RootParent {
		pd, ok := all[parent]
		if ok && pd.Category() == CategoryDeletion {
			return false
		}
		pc, ok := left.Get(parent)
		if !ok {
			return true
		}
		parent = pc.ParentEid
	}
	return true
}

// Ordered returns diffs ordered for display: by Category first (deletions,
// then changes, then additions), with less-salient deletions sorted after
// salient ones, and eid as the final tiebreak.
func Ordered(diffs map[types.Eid]*Difference, left *etree.Tree) []*Difference {
	out := make([]*Difference, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Category() != b.Category() {
			return a.Category() < b.Category()
		}
		as, bs := a.Salient(diffs, left), b.Salient(diffs, left)
		if as != bs {
			return as // salient sorts before non-salient
		}
		return a.Eid < b.Eid
	})
	return out
}
