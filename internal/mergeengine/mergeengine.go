// Package mergeengine implements the three-way merge between a common
// ancestor YCA and two sides SRC and TGT: per-element classification
// (none/any, identical, disjoint attribute edits, same attribute edited
// differently, delete-vs-modify) followed by whole-tree name-clash and
// orphan passes over the merged result.
package mergeengine

import (
	"fmt"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

// Outcome is the result of Merge: either TGT was mutated cleanly, or a
// non-empty ConflictReport was produced and TGT is left unchanged.
type Outcome struct {
	Report *types.ConflictReport
	Result *etree.Tree // nil when Report is non-empty
}

// Merge performs a three-way merge of src into tgt using yca as the common
// ancestor. On success Result holds the merged tree and Report is empty; on
// conflict Result is nil and Report is non-empty.
func Merge(yca, src, tgt *etree.Tree) (*Outcome, error) {
	report := types.NewConflictReport()
	merged := tgt.Clone()

	eids := unionEids(yca, src, tgt)
	for _, eid := range eids {
		y, yOK := yca.Get(eid)
		s, sOK := src.Get(eid)
		t, tOK := tgt.Get(eid)

		resolved, conflict := mergeElement(eid, y, yOK, s, sOK, t, tOK)
		if conflict != nil {
			report.SingleElement[eid] = *conflict
			continue
		}
		if resolved == nil {
			merged.Remove(eid)
			continue
		}
		applyResolved(merged, eid, *resolved)
	}

	detectNameClashes(merged, report)
	detectOrphans(merged, report)

	if !report.IsEmpty() {
		return &Outcome{Report: report}, nil
	}
	return &Outcome{Report: report, Result: merged}, nil
}

// mergeElement classifies and resolves one eid's three-way state. It
// returns (nil, nil) when the element should be absent from the merge
// result, (content, nil) when resolved cleanly, or (nil, conflict) on a
// single-element conflict.
func mergeElement(
	eid types.Eid,
	y types.ElementContent, yOK bool,
	s types.ElementContent, sOK bool,
	t types.ElementContent, tOK bool,
) (*types.ElementContent, *types.SingleElementConflict) {
	srcChanged := changed(yOK, y, sOK, s)
	tgtChanged := changed(yOK, y, tOK, t)

	switch {
	case !srcChanged && !tgtChanged:
		if !tOK {
			return nil, nil
		}
		return &t, nil

	case !srcChanged && tgtChanged:
		if !tOK {
			return nil, nil
		}
		return &t, nil

	case srcChanged && !tgtChanged:
		if !sOK {
			return nil, nil
		}
		return &s, nil

	default: // both sides changed this eid relative to yca
		if sOK && tOK && s.Equal(t) {
			return &t, nil
		}
		if !sOK && !tOK {
			return nil, nil
		}
		if !sOK || !tOK {
			return nil, &types.SingleElementConflict{Eid: eid, Reason: "delete-vs-modify"}
		}
		// Both sides present but changed differently: attempt a disjoint
		// attribute-wise merge (take SRC's parent/name, TGT's payload);
		// fall back to a conflict if the same attribute was edited on
		// both sides.
		merged, ok := mergeDisjointAttributes(y, yOK, s, t)
		if !ok {
			return nil, &types.SingleElementConflict{Eid: eid, Reason: "conflicting edits"}
		}
		return &merged, nil
	}
}

// changed reports whether the element's content differs between yca and
// the given side, treating "absent" as a distinct state from any present
// content.
func changed(yOK bool, y types.ElementContent, sideOK bool, side types.ElementContent) bool {
	if yOK != sideOK {
		return true
	}
	if !yOK {
		return false
	}
	return !y.Equal(side)
}

// mergeDisjointAttributes implements the attribute-wise merge row: an
// attribute (parent_eid+name as one unit, or payload) may move independently
// on each side. If only one side touched an attribute relative to yca, take
// that side's value for it; if both sides touched the same attribute
// differently, ok is false.
func mergeDisjointAttributes(y types.ElementContent, yOK bool, s, t types.ElementContent) (types.ElementContent, bool) {
	srcMovedParent := !yOK || y.ParentEid != s.ParentEid || y.Name != s.Name
	tgtMovedParent := !yOK || y.ParentEid != t.ParentEid || y.Name != t.Name
	srcChangedPayload := !yOK || !y.Payload.Equal(s.Payload)
	tgtChangedPayload := !yOK || !y.Payload.Equal(t.Payload)

	var result types.ElementContent

	switch {
	case srcMovedParent && tgtMovedParent:
		if s.ParentEid != t.ParentEid || s.Name != t.Name {
			return types.ElementContent{}, false
		}
		result.ParentEid, result.Name = s.ParentEid, s.Name
	case srcMovedParent:
		result.ParentEid, result.Name = s.ParentEid, s.Name
	case tgtMovedParent:
		result.ParentEid, result.Name = t.ParentEid, t.Name
	default:
		result.ParentEid, result.Name = t.ParentEid, t.Name
	}

	switch {
	case srcChangedPayload && tgtChangedPayload:
		if !s.Payload.Equal(t.Payload) {
			return types.ElementContent{}, false
		}
		result.Payload = t.Payload
	case srcChangedPayload:
		result.Payload = s.Payload
	case tgtChangedPayload:
		result.Payload = t.Payload
	default:
		result.Payload = t.Payload
	}

	return result, true
}

// applyResolved installs content at eid via PutRaw rather than Put: a
// resolved rename or parent move can transiently collide with a sibling
// that itself hasn't been resolved yet in this same pass, or can only be
// detected as a real name-clash conflict once every eid has been resolved.
// Put's per-insert I2 guard would reject the write and silently strand
// merged's stale content at eid; detectNameClashes below is the pass
// responsible for surfacing the collision instead.
func applyResolved(tree *etree.Tree, eid types.Eid, content types.ElementContent) {
	tree.PutRaw(eid, content)
}

func unionEids(trees ...*etree.Tree) []types.Eid {
	seen := make(map[types.Eid]bool)
	var out []types.Eid
	for _, tr := range trees {
		for _, eid := range tr.Eids() {
			if !seen[eid] {
				seen[eid] = true
				out = append(out, eid)
			}
		}
	}
	return out
}

// detectNameClashes finds distinct eids that ended up as children of the
// same parent with the same name.
func detectNameClashes(merged *etree.Tree, report *types.ConflictReport) {
	type key struct {
		parent types.Eid
		name   string
	}
	byKey := make(map[key][]types.Eid)
	for _, eid := range merged.Eids() {
		c, _ := merged.Get(eid)
		if c.IsRoot() {
			continue
		}
		k := key{c.ParentEid, c.Name}
		byKey[k] = append(byKey[k], eid)
	}
	for k, eids := range byKey {
		if len(eids) > 1 {
			clashKey := fmt.Sprintf("%d/%s", k.parent, k.name)
			report.NameClash[clashKey] = types.NameClashConflict{ParentEid: k.parent, Name: k.name, Eids: eids}
		}
	}
}

// detectOrphans finds elements whose parent_eid is missing from the merged
// tree.
func detectOrphans(merged *etree.Tree, report *types.ConflictReport) {
	for _, eid := range merged.Eids() {
		c, _ := merged.Get(eid)
		if c.IsRoot() {
			continue
		}
		if !merged.Has(c.ParentEid) {
			report.Orphan[eid] = types.OrphanConflict{Eid: eid, MissingOwner: c.ParentEid}
		}
	}
}
