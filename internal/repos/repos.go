// Package repos implements the read-only catalog of historical BranchTxns,
// by revision.
package repos

import (
	"fmt"
	"path"
	"strings"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/types"
)

// Repos is an append-only mapping revision -> immutable BranchTxn.
type Repos struct {
	revisions map[types.Revnum]*branch.Txn
	head      types.Revnum

	// nextPersistentEid is the repo-wide monotonic allocator handed to
	// commit-only BranchTxns (branch.NewCommitTxn) so that every element
	// that survives a commit gets a persistent, globally unique
	// non-negative eid: an eid denotes the same logical object
	// everywhere it appears. Distinct from the per-edit-txn transient
	// negative counter in internal/branch, which is scoped to one
	// in-progress working-copy edit and never escapes into history.
	nextPersistentEid types.Eid
}

// New returns an empty catalog whose first Append lands at revision 1.
func New() *Repos {
	return &Repos{revisions: make(map[types.Revnum]*branch.Txn)}
}

// NewSeeded returns a catalog whose revision 0 is initial, mirroring a
// fresh repository's empty initial revision (SVN's r0). A checkout of
// revision 0 returns initial rather than failing with ErrNoSuchRevision.
// The persistent eid allocator is primed past the highest eid already in
// use across initial's branches, so a seeded repo never re-mints an id
// that initial's own elements already hold.
func NewSeeded(initial *branch.Txn) *Repos {
	r := &Repos{revisions: map[types.Revnum]*branch.Txn{0: initial}}
	for _, st := range initial.Branches() {
		for _, eid := range st.Tree.Eids() {
			if eid >= r.nextPersistentEid {
				r.nextPersistentEid = eid + 1
			}
		}
	}
	return r
}

// AllocateEid hands out the next persistent, repo-wide unique eid. Safe to
// call repeatedly across commits since Repos outlives any single commit's
// branch.Txn.
func (r *Repos) AllocateEid() types.Eid {
	id := r.nextPersistentEid
	r.nextPersistentEid++
	return id
}

// Append records txn as the new HEAD revision. Repos is otherwise
// read-only: callers never mutate a txn once appended. The persistent eid
// allocator is advanced past every eid the new revision carries, so an
// allocation after Append can never re-mint an id already in history.
func (r *Repos) Append(txn *branch.Txn) types.Revnum {
	r.head++
	r.revisions[r.head] = txn
	for _, st := range txn.Branches() {
		for _, eid := range st.Tree.Eids() {
			if eid >= r.nextPersistentEid {
				r.nextPersistentEid = eid + 1
			}
		}
	}
	return r.head
}

// Head returns the latest known revision.
func (r *Repos) Head() types.Revnum {
	return r.head
}

// GetRevision returns the immutable txn at rev.
func (r *Repos) GetRevision(rev types.Revnum) (*branch.Txn, error) {
	txn, ok := r.revisions[rev]
	if !ok {
		return nil, fmt.Errorf("%w: %d", types.ErrNoSuchRevision, rev)
	}
	return txn, nil
}

// GetBranchByID returns the BranchState for bid at rev.
func (r *Repos) GetBranchByID(rev types.Revnum, bid branch.Bid) (*branch.State, error) {
	txn, err := r.GetRevision(rev)
	if err != nil {
		return nil, err
	}
	st, ok := txn.GetBranch(bid)
	if !ok {
		return nil, fmt.Errorf("%w: branch %s at revision %d", types.ErrBranching, bid, rev)
	}
	return st, nil
}

// FindElRevByPathRev resolves a repository-relpath within bid at rev to an
// eid, by walking the tree from root along relpath's components.
func (r *Repos) FindElRevByPathRev(rev types.Revnum, bid branch.Bid, relpath string) (types.Eid, error) {
	st, err := r.GetBranchByID(rev, bid)
	if err != nil {
		return 0, err
	}
	relpath = strings.Trim(path.Clean("/"+relpath), "/")
	cur := st.Tree.RootEid
	if relpath == "" {
		return cur, nil
	}
	for _, name := range strings.Split(relpath, "/") {
		found := false
		for _, child := range st.Tree.Children(cur) {
			c, _ := st.Tree.Get(child)
			if c.Name == name {
				cur = child
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q not found in %s@%d", types.ErrEidNotFound, relpath, bid, rev)
		}
	}
	return cur, nil
}

// ListBranches returns every branch id known at rev.
func (r *Repos) ListBranches(rev types.Revnum) ([]branch.Bid, error) {
	txn, err := r.GetRevision(rev)
	if err != nil {
		return nil, err
	}
	out := make([]branch.Bid, 0, len(txn.Branches()))
	for bid := range txn.Branches() {
		out = append(out, bid)
	}
	return out, nil
}
