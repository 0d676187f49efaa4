// Package branch implements BranchState and BranchTxn, the unit of atomic
// editing over an element tree, and the editing algebra
// (alter, delete, copy-tree, new-eid, open-branch, branch) over it.
package branch

import (
	"fmt"
	"strings"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

// Predecessor is a (revision, bid) pointer used for history/log traversal.
type Predecessor struct {
	Revision types.Revnum
	Bid      Bid
}

// State is a named, mutable container holding one ElementTree plus
// back-links to its owning txn and (optionally) a predecessor.
type State struct {
	ID          Bid
	Tree        *etree.Tree
	Predecessor *Predecessor
	txn         *Txn
}

// Txn is a BranchTxn: a set of BranchStates sharing one eid allocator and
// one base-revision anchor.
type Txn struct {
	BaseRev  types.Revnum
	branches map[Bid]*State
	nextEid  types.Eid // counts down: -1, -2, -3, ...
	nextBid  int       // next top-level branch counter
	innerSeq map[Bid]int

	// allocFn, when set, backs NewEid with a repo-wide persistent allocator
	// (repos.Repos.AllocateEid) instead of the local descending-negative
	// counter. Only commit txns built via NewCommitTxn set this: an
	// in-progress working-copy edit txn must keep minting transient
	// negative ids, since those ids never escape into committed history.
	allocFn func() types.Eid
}

// NewTxn creates a txn editing against baseRev. Use types.InvalidRevnum for
// the live working txn.
func NewTxn(baseRev types.Revnum) *Txn {
	return &Txn{
		BaseRev:  baseRev,
		branches: make(map[Bid]*State),
		nextEid:  -1,
		innerSeq: make(map[Bid]int),
	}
}

// NewCommitTxn creates a txn for replaying a working copy's changes into
// history. Unlike NewTxn, its NewEid draws from allocFn (a repo-wide
// monotonic allocator) rather than minting transient negative ids, so every
// element that lands in this txn gets a persistent, globally unique
// non-negative eid.
func NewCommitTxn(baseRev types.Revnum, allocFn func() types.Eid) *Txn {
	return &Txn{
		BaseRev:  baseRev,
		branches: make(map[Bid]*State),
		nextEid:  -1,
		innerSeq: make(map[Bid]int),
		allocFn:  allocFn,
	}
}

// NewEid allocates a fresh, unique id: txn-local descending-negative for an
// ordinary edit txn, or repo-wide persistent non-negative for a commit txn
// built via NewCommitTxn.
func (t *Txn) NewEid() types.Eid {
	if t.allocFn != nil {
		return t.allocFn()
	}
	id := t.nextEid
	t.nextEid--
	return id
}

// NewTopLevelBranch allocates a fresh top-level branch id and registers an
// empty BranchState rooted at rootEid.
func (t *Txn) NewTopLevelBranch(rootEid types.Eid) *State {
	n := t.nextBid
	t.nextBid++
	bid := TopLevel(n)
	st := &State{ID: bid, Tree: etree.New(rootEid), txn: t}
	t.branches[bid] = st
	return st
}

// ReserveTopLevelBid advances the top-level branch counter past bid's
// numeric index, if bid is a top-level id. Call this when adopting a
// branch whose id was minted by a different txn (e.g. cloning a prior
// revision's branches into a fresh edit txn on checkout), so a later
// AllocateTopLevelBid/NewTopLevelBranch in this txn can't mint a colliding
// id.
func (t *Txn) ReserveTopLevelBid(bid Bid) {
	if n, ok := bid.TopLevelIndex(); ok && n >= t.nextBid {
		t.nextBid = n + 1
	}
}

// AllocateTopLevelBid reserves the next top-level branch counter without
// registering a BranchState, for callers (such as a deep-copying branch
// action) that build the State themselves via Branch.
func (t *Txn) AllocateTopLevelBid() Bid {
	n := t.nextBid
	t.nextBid++
	return TopLevel(n)
}

// NewBranchWithID registers a fresh empty BranchState under an
// already-known bid, without touching the top-level bid counter. Used to
// continue an existing branch's identity into a freshly opened commit txn
// rather than minting a brand-new top-level id via NewTopLevelBranch.
func (t *Txn) NewBranchWithID(bid Bid, rootEid types.Eid) *State {
	st := &State{ID: bid, Tree: etree.New(rootEid), txn: t}
	t.branches[bid] = st
	return st
}

// AdoptBranch registers an existing BranchState (e.g. loaded from a repos
// snapshot) into this txn, rekeying its back-pointer. If st's id is a
// nested bid, the outer branch's inner-sequence counter is advanced past
// it so a later OpenBranch on that outer branch can't mint a colliding id.
func (t *Txn) AdoptBranch(st *State) {
	st.txn = t
	t.branches[st.ID] = st
	if outer, _, inner, ok := st.ID.Split(); ok {
		if seq := t.innerSeq[outer]; inner >= seq {
			t.innerSeq[outer] = inner + 1
		}
	}
}

// Branches returns every BranchState registered in this txn, keyed by bid.
func (t *Txn) Branches() map[Bid]*State {
	return t.branches
}

// NextEidRaw exposes the allocator's next value, for persisting working
// copy state across process invocations.
func (t *Txn) NextEidRaw() types.Eid { return t.nextEid }

// NextBidCounter exposes the top-level branch counter, for persistence.
func (t *Txn) NextBidCounter() int { return t.nextBid }

// InnerSeqSnapshot returns a copy of the per-outer-branch nested-bid
// sequence counters, for persistence.
func (t *Txn) InnerSeqSnapshot() map[Bid]int {
	out := make(map[Bid]int, len(t.innerSeq))
	for k, v := range t.innerSeq {
		out[k] = v
	}
	return out
}

// Restore reconstructs a Txn from previously snapshotted allocator state
// and a set of already-built BranchStates (e.g. decoded from a working
// copy's on-disk state file), rekeying each state's back-pointer to the
// restored txn.
func Restore(baseRev types.Revnum, nextEid types.Eid, nextBid int, innerSeq map[Bid]int, states []*State) *Txn {
	t := &Txn{
		BaseRev:  baseRev,
		branches: make(map[Bid]*State, len(states)),
		nextEid:  nextEid,
		nextBid:  nextBid,
		innerSeq: make(map[Bid]int, len(innerSeq)),
	}
	for k, v := range innerSeq {
		t.innerSeq[k] = v
	}
	for _, st := range states {
		t.AdoptBranch(st)
	}
	return t
}

// GetBranch looks up a branch by id.
func (t *Txn) GetBranch(bid Bid) (*State, bool) {
	st, ok := t.branches[bid]
	return st, ok
}

// OpenBranch creates or looks up the sub-branch hosted at hostEid within
// outer. Idempotent: a hosting element carries at most one live nested
// branch, so a second call for the same (outer, hostEid) returns the
// existing state regardless of which inner sequence number it was minted
// under.
func (t *Txn) OpenBranch(outer *State, predecessor *Predecessor, hostEid types.Eid, rootEid types.Eid) *State {
	if existing, ok := t.FindNestedBranch(outer.ID, hostEid); ok {
		return existing
	}
	seq := t.innerSeq[outer.ID]
	t.innerSeq[outer.ID] = seq + 1
	bid := Nest(outer.ID, hostEid, seq)
	st := &State{ID: bid, Tree: etree.New(rootEid), Predecessor: predecessor, txn: t}
	t.branches[bid] = st
	return st
}

// FindNestedBranch looks up the sub-branch hosted at hostEid of outer,
// whatever inner sequence number its bid carries.
func (t *Txn) FindNestedBranch(outer Bid, hostEid types.Eid) (*State, bool) {
	for bid, st := range t.branches {
		if o, h, _, ok := bid.Split(); ok && o == outer && h == hostEid {
			return st, true
		}
	}
	return nil, false
}

// NestedBranches returns every sub-branch directly hosted by an element of
// outer, keyed by hosting eid.
func (t *Txn) NestedBranches(outer Bid) map[types.Eid]*State {
	out := make(map[types.Eid]*State)
	for bid, st := range t.branches {
		if o, h, _, ok := bid.Split(); ok && o == outer {
			out[h] = st
		}
	}
	return out
}

// RemoveBranch drops a branch and every branch nested beneath it from the
// txn, used when the hosting element of a sub-branch has been deleted.
func (t *Txn) RemoveBranch(bid Bid) {
	delete(t.branches, bid)
	prefix := string(bid) + "."
	for other := range t.branches {
		if strings.HasPrefix(string(other), prefix) {
			delete(t.branches, other)
		}
	}
}

// OpenBranchNamed is OpenBranch but reusing an already-known nested bid
// (e.g. one recovered from history), rather than minting a fresh sequence
// number. It is idempotent: a second call with the same bid returns the
// existing state.
func (t *Txn) OpenBranchNamed(bid Bid, predecessor *Predecessor, rootEid types.Eid) *State {
	if existing, ok := t.branches[bid]; ok {
		return existing
	}
	st := &State{ID: bid, Tree: etree.New(rootEid), Predecessor: predecessor, txn: t}
	t.branches[bid] = st
	return st
}

// Branch creates a new top-level branch whose initial tree is a deep copy
// of a source subtree, preserving eids.
func (t *Txn) Branch(sourceTree *etree.Tree, sourceRoot types.Eid, newBid Bid) (*State, error) {
	if _, exists := t.branches[newBid]; exists {
		return nil, fmt.Errorf("arbor: branch %s already exists in this txn", newBid)
	}
	cloned := etree.New(sourceRoot)
	sub := etree.NewSubtree(sourceTree, sourceRoot)
	for _, eid := range sub.Eids() {
		c, _ := sub.Get(eid)
		// overwrite etree.New's default empty-dir root content with the
		// source root's actual payload.
		if eid == sourceRoot {
			c = types.ElementContent{ParentEid: types.RootParent, Name: "", Payload: c.Payload}
		}
		if err := cloned.Put(eid, c); err != nil {
			return nil, fmt.Errorf("arbor: cloning subtree for branch %s: %w", newBid, err)
		}
	}
	st := &State{ID: newBid, Tree: cloned, txn: t}
	t.branches[newBid] = st
	return st, nil
}

// NestedBranches returns the sub-branches hosted by this branch's
// elements, keyed by hosting eid, or nil when the state is detached from
// any txn (e.g. a scratch State built purely for diffing).
func (s *State) NestedBranches() map[types.Eid]*State {
	if s.txn == nil {
		return nil
	}
	return s.txn.NestedBranches(s.ID)
}

// --- Element algebra on State ---

// Alter sets or replaces the element at eid: (parent_eid, name, payload).
// Legal for an existing eid (edit) or a fresh eid just returned by NewEid
// (instantiate).
func (s *State) Alter(eid types.Eid, parentEid types.Eid, name string, payload types.Payload) error {
	if parentEid != types.RootParent && !s.Tree.Has(parentEid) {
		return fmt.Errorf("%w: parent %d of element %d", types.ErrBadParent, parentEid, eid)
	}
	if parentEid != types.RootParent {
		for _, child := range s.Tree.Children(parentEid) {
			if child == eid {
				continue
			}
			sib, _ := s.Tree.Get(child)
			if sib.Name == name {
				return fmt.Errorf("%w: %q under parent %d", types.ErrNameClash, name, parentEid)
			}
		}
	}
	return s.Tree.Put(eid, types.ElementContent{ParentEid: parentEid, Name: name, Payload: payload})
}

// Delete removes eid. Its children become orphans, legally deletable within
// the same txn. Deleting the branch root is illegal.
func (s *State) Delete(eid types.Eid) error {
	if eid == s.Tree.RootEid {
		return types.ErrDeleteRoot
	}
	if !s.Tree.Has(eid) {
		return fmt.Errorf("%w: %d", types.ErrEidNotFound, eid)
	}
	s.Tree.Remove(eid)
	return nil
}

// CopyTree instantiates a subtree from history into this branch. Each
// copied element retains its original eid; an eid already present in the
// target is replaced by the copy.
func (s *State) CopyTree(src *etree.Tree, srcEid types.Eid, dstParentEid types.Eid, name string) error {
	if dstParentEid != types.RootParent && !s.Tree.Has(dstParentEid) {
		return fmt.Errorf("%w: %d", types.ErrBadParent, dstParentEid)
	}
	sub := etree.NewSubtree(src, srcEid)
	rootContent, ok := sub.Get(srcEid)
	if !ok {
		return fmt.Errorf("%w: source element %d", types.ErrEidNotFound, srcEid)
	}

	rebased := types.ElementContent{ParentEid: dstParentEid, Name: name, Payload: rootContent.Payload}
	if err := s.Tree.Put(srcEid, rebased); err != nil {
		return err
	}
	for _, eid := range sub.Eids() {
		if eid == srcEid {
			continue
		}
		c, _ := sub.Get(eid)
		if err := s.Tree.Put(eid, c); err != nil {
			return fmt.Errorf("arbor: copying element %d: %w", eid, err)
		}
	}
	return nil
}
