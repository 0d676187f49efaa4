// Package arbor provides a minimal public API for driving the
// element-identity branching core programmatically.
//
// Most automation should shell out to the arb CLI. This package exports
// only the essential types and functions needed for Go-based extensions
// that want to operate on element trees, transactions, and working copies
// directly.
package arbor

import (
	"context"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/mergeengine"
	"github.com/arborvc/arbor/internal/remote"
	"github.com/arborvc/arbor/internal/replay"
	"github.com/arborvc/arbor/internal/repos"
	"github.com/arborvc/arbor/internal/types"
	"github.com/arborvc/arbor/internal/wcopy"
)

// Core identity and content types.
type (
	Eid            = types.Eid
	Revnum         = types.Revnum
	Payload        = types.Payload
	PayloadKind    = types.PayloadKind
	ElementContent = types.ElementContent
	ConflictReport = types.ConflictReport
)

// Branch and transaction types.
type (
	Bid         = branch.Bid
	BranchState = branch.State
	BranchTxn   = branch.Txn
	Predecessor = branch.Predecessor
)

// Repos is the append-only catalog of committed revisions.
type Repos = repos.Repos

// Provider is the remote-access capability set the working copy depends on.
type Provider = remote.Provider

// WorkingCopy drives checkout, commit, switch, update, revert, and migrate.
type WorkingCopy = wcopy.WorkingCopy

// InvalidRevnum is the base-revision anchor of a live working txn.
const InvalidRevnum = types.InvalidRevnum

// NewRepos returns an empty revision catalog.
func NewRepos() *Repos {
	return repos.New()
}

// NewSeededRepos returns a catalog whose revision 0 holds initial, the way
// a freshly created repository carries an empty first revision.
func NewSeededRepos(initial *BranchTxn) *Repos {
	return repos.NewSeeded(initial)
}

// NewTxn creates a branch transaction editing against baseRev.
func NewTxn(baseRev Revnum) *BranchTxn {
	return branch.NewTxn(baseRev)
}

// NewInProcessProvider wraps a Repos as a Provider, for tests and
// single-process deployments with no network peer.
func NewInProcessProvider(r *Repos, reposRoot string) Provider {
	return remote.NewInProcess(r, reposRoot)
}

// OpenWorkingCopy starts a session against provider and checks out
// (rev, bid) as both base and working.
func OpenWorkingCopy(ctx context.Context, provider Provider, url, storeDir string, rev Revnum, bid Bid) (*WorkingCopy, error) {
	return wcopy.Open(ctx, provider, url, storeDir, rev, bid)
}

// Replay makes dst reflect the element delta left -> right, recursing into
// nested sub-branches. Either side may be nil, meaning an empty tree.
func Replay(dstTxn *BranchTxn, dst, left, right *BranchState) error {
	_, err := replay.Replay(dstTxn, dst, left, right)
	return err
}

// Merge three-way-merges src into tgt using yca as the common ancestor. On a
// clean merge tgt.Tree is replaced by the merged tree and the empty report is
// returned; on conflict tgt is left unchanged and the non-empty
// ConflictReport is returned.
func Merge(yca, src, tgt *BranchState) (*ConflictReport, error) {
	outcome, err := mergeengine.Merge(yca.Tree, src.Tree, tgt.Tree)
	if err != nil {
		return nil, err
	}
	if !outcome.Report.IsEmpty() {
		return outcome.Report, nil
	}
	tgt.Tree = outcome.Result
	return outcome.Report, nil
}
