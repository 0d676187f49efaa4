// Package remote defines the remote-access provider interface
// and an in-process reference implementation backed by internal/repos,
// used by tests and by a local-only deployment that has no actual network
// peer. The provider boundary is a narrow, synchronously-called
// capability set the rest of the program depends on only as an interface.
// Session tokens are google/uuid values.
package remote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/migrate"
	"github.com/arborvc/arbor/internal/repos"
	"github.com/arborvc/arbor/internal/repos/cache"
	"github.com/arborvc/arbor/internal/types"
)

// FetchFunc retrieves file content by repository-relpath at the revision a
// LoadBranchingState call was made against.
type FetchFunc func(relpath string) ([]byte, error)

// CommitCallback is invoked by the provider once a commit txn has been
// durably written, receiving the freshly minted revision number.
type CommitCallback func(rev types.Revnum) error

// ReplayStartedCallback and ReplayFinishedCallback bracket the path-based
// delta stream driven by ReplayRange during migration.
type ReplayStartedCallback func(rev types.Revnum)
type ReplayFinishedCallback func(rev types.Revnum, deltas []migrate.PathDelta, moves []migrate.MoveInfo)

// Provider is the narrow capability set the core requires of a remote
// access layer. The core never depends on a concrete transport; it only
// ever holds a Provider.
type Provider interface {
	OpenSession(ctx context.Context, url string) (SessionToken, error)
	Reparent(ctx context.Context, token SessionToken, url string) error
	GetLatestRevnum(ctx context.Context, token SessionToken) (types.Revnum, error)
	GetReposRoot(ctx context.Context, token SessionToken) (string, error)

	LoadBranchingState(ctx context.Context, token SessionToken, storeDir string, rev types.Revnum) (*branch.Txn, FetchFunc, error)
	GetCommitTxn(ctx context.Context, token SessionToken, revprops map[string]string, cb CommitCallback, lockTokens []string, keepLocks bool, storeDir string) (*branch.Txn, error)
	// CompleteCommit durably records commitTxn (the one returned by a prior
	// GetCommitTxn call) as the new HEAD revision and invokes that call's
	// CommitCallback with the freshly minted revision number, mirroring the
	// close-edit step of a real commit editor.
	CompleteCommit(ctx context.Context, token SessionToken, commitTxn *branch.Txn) (types.Revnum, error)
	ReplayRange(ctx context.Context, token SessionToken, r1, r2 types.Revnum, started ReplayStartedCallback, finished ReplayFinishedCallback) error
	GetReposMoves(ctx context.Context, token SessionToken, r1, r2 types.Revnum) (map[types.Revnum][]migrate.MoveInfo, error)
}

// SessionToken identifies one open session, minted by OpenSession.
type SessionToken string

// InProcess is a reference Provider wired directly to an in-memory Repos,
// useful for tests and for a local single-process deployment. It has no
// migration history of its own (ReplayRange/GetReposMoves return empty
// results) since an in-process Repos never observed legacy path history.
type InProcess struct {
	repos     *repos.Repos
	sessions  map[SessionToken]string
	root      string
	pendingCb map[*branch.Txn]CommitCallback
	cache     *cache.Cache
}

// NewInProcess wraps an existing Repos catalog as a Provider.
func NewInProcess(r *repos.Repos, reposRoot string) *InProcess {
	return &InProcess{
		repos:     r,
		sessions:  make(map[SessionToken]string),
		root:      reposRoot,
		pendingCb: make(map[*branch.Txn]CommitCallback),
	}
}

// NewInProcessCached is NewInProcess plus a local fetched-revision cache:
// each LoadBranchingState call records a content hash per loaded
// (revision, bid) pair in c, which callers can query through c.Seen. The
// load itself is always performed; a recorded hash does not skip it.
func NewInProcessCached(r *repos.Repos, reposRoot string, c *cache.Cache) *InProcess {
	p := NewInProcess(r, reposRoot)
	p.cache = c
	return p
}

func (p *InProcess) OpenSession(_ context.Context, url string) (SessionToken, error) {
	tok := SessionToken(uuid.NewString())
	p.sessions[tok] = url
	return tok, nil
}

func (p *InProcess) Reparent(_ context.Context, token SessionToken, url string) error {
	if _, ok := p.sessions[token]; !ok {
		return fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	p.sessions[token] = url
	return nil
}

func (p *InProcess) GetLatestRevnum(_ context.Context, token SessionToken) (types.Revnum, error) {
	if _, ok := p.sessions[token]; !ok {
		return types.InvalidRevnum, fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	return p.repos.Head(), nil
}

func (p *InProcess) GetReposRoot(_ context.Context, token SessionToken) (string, error) {
	if _, ok := p.sessions[token]; !ok {
		return "", fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	return p.root, nil
}

func (p *InProcess) LoadBranchingState(ctx context.Context, token SessionToken, _ string, rev types.Revnum) (*branch.Txn, FetchFunc, error) {
	if _, ok := p.sessions[token]; !ok {
		return nil, nil, fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	txn, err := p.repos.GetRevision(rev)
	if err != nil {
		return nil, nil, err
	}
	if p.cache != nil {
		for _, bid := range listBids(txn) {
			st, _ := txn.GetBranch(bid)
			hash := fmt.Sprintf("%d-%d", st.Tree.RootEid, len(st.Tree.Children(st.Tree.RootEid)))
			_, _ = p.cache.Seen(ctx, int64(rev), string(bid), hash)
			_ = p.cache.Record(ctx, int64(rev), string(bid), hash)
		}
	}
	fetch := func(relpath string) ([]byte, error) {
		for _, bid := range listBids(txn) {
			st, _ := txn.GetBranch(bid)
			eid, err := p.repos.FindElRevByPathRev(rev, bid, relpath)
			if err != nil {
				continue
			}
			c, ok := st.Tree.Get(eid)
			if ok && c.Payload.Kind == types.PayloadFile {
				return c.Payload.Text, nil
			}
		}
		return nil, fmt.Errorf("%w: %q at revision %d", types.ErrEidNotFound, relpath, rev)
	}
	return txn, fetch, nil
}

func (p *InProcess) GetCommitTxn(_ context.Context, token SessionToken, _ map[string]string, cb CommitCallback, _ []string, _ bool, _ string) (*branch.Txn, error) {
	if _, ok := p.sessions[token]; !ok {
		return nil, fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	txn := branch.NewCommitTxn(p.repos.Head(), p.repos.AllocateEid)
	if cb != nil {
		p.pendingCb[txn] = cb
	}
	return txn, nil
}

// CompleteCommit appends commitTxn to the backing Repos as the new HEAD
// revision and invokes the CommitCallback registered for it, if any.
func (p *InProcess) CompleteCommit(_ context.Context, token SessionToken, commitTxn *branch.Txn) (types.Revnum, error) {
	if _, ok := p.sessions[token]; !ok {
		return types.InvalidRevnum, fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	rev := p.repos.Append(commitTxn)
	if cb, ok := p.pendingCb[commitTxn]; ok {
		delete(p.pendingCb, commitTxn)
		if err := cb(rev); err != nil {
			return types.InvalidRevnum, err
		}
	}
	return rev, nil
}

func (p *InProcess) ReplayRange(_ context.Context, token SessionToken, r1, r2 types.Revnum, started ReplayStartedCallback, finished ReplayFinishedCallback) error {
	if _, ok := p.sessions[token]; !ok {
		return fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	for rev := r1; rev <= r2; rev++ {
		if started != nil {
			started(rev)
		}
		if finished != nil {
			finished(rev, nil, nil)
		}
	}
	return nil
}

func (p *InProcess) GetReposMoves(_ context.Context, token SessionToken, r1, r2 types.Revnum) (map[types.Revnum][]migrate.MoveInfo, error) {
	if _, ok := p.sessions[token]; !ok {
		return nil, fmt.Errorf("%w: unknown session", types.ErrAuthnFailed)
	}
	out := make(map[types.Revnum][]migrate.MoveInfo)
	for rev := r1; rev <= r2; rev++ {
		out[rev] = nil
	}
	return out, nil
}

func listBids(txn *branch.Txn) []branch.Bid {
	out := make([]branch.Bid, 0, len(txn.Branches()))
	for bid := range txn.Branches() {
		out = append(out, bid)
	}
	return out
}
