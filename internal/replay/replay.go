// Package replay implements replay(dst_txn, dst_branch, left, right): given
// the element-identity delta between two branches (left -> right), apply
// that delta onto a destination BranchState, recursing into the sub-branches
// either side hosts. Replay is idempotent (replaying the
// same delta twice onto an already-replayed destination is a no-op): each
// element write is keyed by eid rather than by position, so a write that
// reproduces content already present in dst is recognized and skipped.
//
// Deletions apply in a single unordered pass; additions and changes apply
// parent-before-child, in as many retry passes as the deepest new subtree
// requires, since a subtree created before its first commit
// can nest its child eids ahead of their own parent's.
package replay

import (
	"fmt"
	"sort"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/diffengine"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

// Result summarizes what a Replay call did, for logging/diff display.
type Result struct {
	Applied []types.Eid
	Deleted []types.Eid
	Skipped []types.Eid // already matched dst content; idempotent no-ops
	SubBids []branch.Bid
}

// Replay makes dst reflect the delta left -> right. Either side may be nil,
// meaning an empty tree (a nil left replays right's whole content as
// additions; a nil right replays left's content as deletions). Sub-branches
// are enumerated from the union of left's and right's nested branches: each
// one present on the right is opened (or found) under dst in dstTxn and
// recursed into; one present only on the left is dropped along with its
// hosting element.
func Replay(dstTxn *branch.Txn, dst *branch.State, left, right *branch.State) (*Result, error) {
	leftTree := sideTree(left, dst)
	rightTree := sideTree(right, dst)
	diffs := diffengine.ElementDifferences(leftTree, rightTree)
	res := &Result{}

	// Deletions carry no parent-ordering requirement (Tree.Remove only
	// drops a map entry; orphaned children are legal mid-edit), so they can
	// all be applied up front, in the display-salience order.
	var deletions []*diffengine.Difference
	pending := make(map[types.Eid]*diffengine.Difference)
	for _, d := range diffengine.Ordered(diffs, leftTree) {
		if d.Category() == diffengine.CategoryDeletion {
			deletions = append(deletions, d)
			continue
		}
		pending[d.Eid] = d
	}

	for _, d := range deletions {
		if !dst.Tree.Has(d.Eid) {
			res.Skipped = append(res.Skipped, d.Eid)
			continue
		}
		if err := dst.Delete(d.Eid); err != nil {
			if err == types.ErrDeleteRoot {
				// Branch root deletions are represented at the branch
				// level, not the element level; nothing to replay.
				continue
			}
			return nil, fmt.Errorf("arbor: replaying deletion of %d: %w", d.Eid, err)
		}
		res.Deleted = append(res.Deleted, d.Eid)
	}

	// Additions and changes must be applied parent-before-child: a new
	// subtree's elements are allocated descending negative eids
	// (branch.Txn.NewEid), so a deeply nested child can sort well before
	// its own not-yet-instantiated parent in eid order, and State.Alter
	// rejects an unmapped parent. Apply in repeated passes, deferring any
	// element whose parent isn't yet resolvable in dst, until every
	// pending element has landed, in as many passes as the deepest new
	// subtree requires, since a subtree may be several levels deep before
	// its first commit.
	for len(pending) > 0 {
		progressed := false
		eids := make([]types.Eid, 0, len(pending))
		for eid := range pending {
			eids = append(eids, eid)
		}
		sort.Slice(eids, func(i, j int) bool { return eids[i] < eids[j] })

		for _, eid := range eids {
			d := pending[eid]
			content := *d.Right
			if content.ParentEid != types.RootParent && !dst.Tree.Has(content.ParentEid) {
				continue // parent not yet instantiated; retry next pass
			}

			if existing, ok := dst.Tree.Get(d.Eid); ok && existing.Equal(content) {
				res.Skipped = append(res.Skipped, d.Eid)
			} else {
				if err := dst.Alter(d.Eid, content.ParentEid, content.Name, content.Payload); err != nil {
					return nil, fmt.Errorf("arbor: replaying element %d: %w", d.Eid, err)
				}
				res.Applied = append(res.Applied, d.Eid)
			}
			delete(pending, eid)
			progressed = true
		}

		if !progressed {
			unresolved := make([]types.Eid, 0, len(pending))
			for eid := range pending {
				unresolved = append(unresolved, eid)
			}
			return nil, fmt.Errorf("arbor: replay cannot resolve parent ordering for element(s) %v", unresolved)
		}
	}

	if err := replaySubbranches(dstTxn, dst, left, right, res); err != nil {
		return nil, err
	}
	return res, nil
}

// replaySubbranches recurses into the union of left's and right's nested
// branches. A sub-branch present on the right is opened (or found) under
// dst and replayed; one present only on the left is dropped from dstTxn
// along with everything nested beneath it, since its hosting element was
// deleted in the element pass above.
func replaySubbranches(dstTxn *branch.Txn, dst *branch.State, left, right *branch.State, res *Result) error {
	leftSubs := nestedOrNil(left)
	rightSubs := nestedOrNil(right)

	hosts := make(map[types.Eid]bool, len(leftSubs)+len(rightSubs))
	for h := range leftSubs {
		hosts[h] = true
	}
	for h := range rightSubs {
		hosts[h] = true
	}
	ordered := make([]types.Eid, 0, len(hosts))
	for h := range hosts {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, host := range ordered {
		rightSub := rightSubs[host]
		if rightSub == nil {
			continue // left-only: hosting element already deleted above
		}
		leftSub := leftSubs[host]
		dstSub, ok := dstTxn.FindNestedBranch(dst.ID, host)
		if !ok {
			// Carry the right side's inner sequence number into dst so the
			// sub-branch keeps one bid across successive commits.
			if _, _, inner, okSplit := rightSub.ID.Split(); okSplit {
				dstSub = dstTxn.OpenBranchNamed(branch.Nest(dst.ID, host, inner), rightSub.Predecessor, rightSub.Tree.RootEid)
			} else {
				dstSub = dstTxn.OpenBranch(dst, rightSub.Predecessor, host, rightSub.Tree.RootEid)
			}
		}
		if _, err := Replay(dstTxn, dstSub, leftSub, rightSub); err != nil {
			return fmt.Errorf("arbor: replaying sub-branch %s: %w", dstSub.ID, err)
		}
		res.SubBids = append(res.SubBids, dstSub.ID)
	}

	// Any dst sub-branch whose hosting element no longer exists was
	// implicitly dropped by the delta.
	for host, sub := range dstTxn.NestedBranches(dst.ID) {
		if !dst.Tree.Has(host) {
			dstTxn.RemoveBranch(sub.ID)
		}
	}
	return nil
}

func nestedOrNil(side *branch.State) map[types.Eid]*branch.State {
	if side == nil {
		return nil
	}
	return side.NestedBranches()
}

// sideTree resolves one side of the delta to a tree, treating a nil side
// as an empty tree rooted where dst is rooted.
func sideTree(side *branch.State, dst *branch.State) *etree.Tree {
	if side != nil {
		return side.Tree
	}
	return etree.New(dst.Tree.RootEid)
}
