package wcopy

import (
	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

// translateForCommit prepares the working branch for replay into a commit
// txn: every transient negative eid still alive in working or in any
// sub-branch nested beneath it is assigned a persistent replacement via
// commitTxn.NewEid() (which for a commit txn draws from the repo-wide
// allocator, so committed elements get distinct fresh non-negative ids),
// and a detached scratch txn is built
// holding remapped clones of the whole branch family. Nested bids embed
// their hosting eid, so a sub-branch hosted at a remapped element is
// re-registered under its persistent bid. An element created and deleted
// again within one edit session is absent from every live tree and never
// consumes a persistent id.
func translateForCommit(commitTxn *branch.Txn, working *branch.State) (*branch.State, map[types.Eid]types.Eid) {
	remap := make(map[types.Eid]types.Eid)
	collectTransientEids(working, commitTxn, remap)

	scratch := branch.NewTxn(types.InvalidRevnum)
	translated := translateBranchInto(scratch, remap, working, working.ID)
	return translated, remap
}

// collectTransientEids walks st's tree and every nested branch beneath it,
// minting a persistent replacement for each negative eid found.
func collectTransientEids(st *branch.State, commitTxn *branch.Txn, remap map[types.Eid]types.Eid) {
	for _, eid := range st.Tree.Eids() {
		if eid < 0 {
			if _, done := remap[eid]; !done {
				remap[eid] = commitTxn.NewEid()
			}
		}
	}
	for _, sub := range st.NestedBranches() {
		collectTransientEids(sub, commitTxn, remap)
	}
}

// translateBranchInto registers a remapped clone of src under dstBid in
// scratch and recurses into src's sub-branches, rewriting each nested bid
// through the remap of its hosting eid.
func translateBranchInto(scratch *branch.Txn, remap map[types.Eid]types.Eid, src *branch.State, dstBid branch.Bid) *branch.State {
	tree := remapTree(remap, src.Tree)
	st := scratch.NewBranchWithID(dstBid, tree.RootEid)
	st.Tree = tree
	st.Predecessor = src.Predecessor

	for host, sub := range src.NestedBranches() {
		_, _, inner, ok := sub.ID.Split()
		if !ok {
			inner = 0
		}
		nestedBid := branch.Nest(dstBid, translateEid(remap, host), inner)
		translateBranchInto(scratch, remap, sub, nestedBid)
	}
	return st
}

// translateEid rewrites eid through remap if present, leaving already
// persistent ids and the root-parent sentinel untouched.
func translateEid(remap map[types.Eid]types.Eid, eid types.Eid) types.Eid {
	if eid == types.RootParent {
		return eid
	}
	if mapped, ok := remap[eid]; ok {
		return mapped
	}
	return eid
}

// remapTree rebuilds src with every eid, and every ParentEid reference,
// rewritten through remap. Writes go through etree.Tree.PutRaw rather than
// Put: the source tree already satisfies I1/I2 under its own eids, and the
// rename must not fail transiently just because map iteration visits a
// child before its parent has been renamed.
func remapTree(remap map[types.Eid]types.Eid, src *etree.Tree) *etree.Tree {
	newRoot := translateEid(remap, src.RootEid)
	out := etree.New(newRoot)
	for _, eid := range src.Eids() {
		if eid == src.RootEid {
			continue
		}
		c, _ := src.Get(eid)
		out.PutRaw(translateEid(remap, eid), types.ElementContent{
			ParentEid: translateEid(remap, c.ParentEid),
			Name:      c.Name,
			Payload:   c.Payload,
		})
	}
	if c, ok := src.Get(src.RootEid); ok {
		out.PutRaw(newRoot, types.ElementContent{ParentEid: types.RootParent, Name: "", Payload: c.Payload})
	}
	return out
}
