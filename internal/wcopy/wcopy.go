// Package wcopy implements the WorkingCopy driver and its state machine:
// checkout, commit, switch, update, revert, and migrate,
// orchestrating internal/branch, internal/replay, internal/mergeengine,
// internal/migrate and an internal/remote.Provider. The audit trail of
// recorded actions doubles as the default commit message.
package wcopy

import (
	"context"
	"fmt"
	"strings"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/mergeengine"
	"github.com/arborvc/arbor/internal/migrate"
	"github.com/arborvc/arbor/internal/remote"
	"github.com/arborvc/arbor/internal/replay"
	"github.com/arborvc/arbor/internal/types"
)

// Phase is one of the four working-copy states.
type Phase int

const (
	Clean Phase = iota
	Dirty
	Committing
	Conflicted
)

func (p Phase) String() string {
	switch p {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Committing:
		return "committing"
	case Conflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

// Anchor is a (revision, bid) pointer, used for both base and working
// identities.
type Anchor struct {
	Revision types.Revnum
	Bid      branch.Bid
}

// WorkingCopy holds base/working branch identities within one live edit
// transaction and drives checkout, commit, switch, update, revert, and
// migrate over it.
type WorkingCopy struct {
	provider remote.Provider
	session  remote.SessionToken
	storeDir string

	Base         Anchor
	Working      Anchor
	BaseTxn      *branch.Txn // immutable, as loaded from the remote access layer
	EditTxn      *branch.Txn // mutable clone the working branch is edited in
	HeadRevision types.Revnum
	Phase        Phase

	// ListOfCommands is the audit trail of actions applied since the last
	// checkout, used as the default commit message when none is supplied.
	ListOfCommands []string

	lastConflict *types.ConflictReport
	lastWarning  string
}

// Open starts a session against provider and checks out (rev, bid) as both
// base and working.
func Open(ctx context.Context, provider remote.Provider, url string, storeDir string, rev types.Revnum, bid branch.Bid) (*WorkingCopy, error) {
	session, err := provider.OpenSession(ctx, url)
	if err != nil {
		return nil, err
	}
	wc := &WorkingCopy{provider: provider, session: session, storeDir: storeDir, Phase: Clean}
	if err := wc.Checkout(ctx, rev, bid); err != nil {
		return nil, err
	}
	return wc, nil
}

// Provider exposes the underlying remote.Provider, for CLI actions (such as
// browsing history or a revision other than base/working) that need to call
// the provider directly rather than through a WorkingCopy state transition.
func (wc *WorkingCopy) Provider() remote.Provider {
	return wc.provider
}

// Session exposes the current session token, paired with Provider for
// direct provider calls from the CLI layer.
func (wc *WorkingCopy) Session() remote.SessionToken {
	return wc.session
}

// WorkingBranch returns the live BranchState being edited.
func (wc *WorkingCopy) WorkingBranch() (*branch.State, error) {
	st, ok := wc.EditTxn.GetBranch(wc.Working.Bid)
	if !ok {
		return nil, fmt.Errorf("%w: working branch %s not present in edit txn", types.ErrBranching, wc.Working.Bid)
	}
	return st, nil
}

// baseBranch returns the immutable base BranchState loaded at checkout
// time.
func (wc *WorkingCopy) baseBranch() (*branch.State, error) {
	st, ok := wc.BaseTxn.GetBranch(wc.Base.Bid)
	if !ok {
		return nil, fmt.Errorf("%w: base branch %s not present in base txn", types.ErrBranching, wc.Base.Bid)
	}
	return st, nil
}

// baseTreeForWorking returns the tree the working branch should be diffed
// and replayed against: the loaded base branch's tree when the remote side
// already knows wc.Working.Bid, or an empty tree rooted the same as the
// working branch when it was created fresh within the edit txn and never
// committed.
func (wc *WorkingCopy) baseTreeForWorking(working *branch.State) *etree.Tree {
	if st, ok := wc.BaseTxn.GetBranch(wc.Working.Bid); ok {
		return st.Tree
	}
	return etree.New(working.Tree.RootEid)
}

// Checkout loads the immutable base txn at (rev, bid) from the remote
// access layer, wraps a deep clone of every branch it contains into a
// fresh nested-aware edit txn, and installs base/working. Any previously
// accumulated edits are discarded.
func (wc *WorkingCopy) Checkout(ctx context.Context, rev types.Revnum, bid branch.Bid) error {
	baseTxn, _, err := wc.provider.LoadBranchingState(ctx, wc.session, wc.storeDir, rev)
	if err != nil {
		return err
	}
	edit := branch.NewTxn(rev)
	for id, st := range baseTxn.Branches() {
		clone, err := edit.Branch(st.Tree, st.Tree.RootEid, id)
		if err != nil {
			return fmt.Errorf("arbor: cloning branch %q into working edit txn: %w", id, err)
		}
		clone.Predecessor = st.Predecessor
		edit.ReserveTopLevelBid(id)
	}
	if _, ok := edit.GetBranch(bid); !ok {
		return fmt.Errorf("%w: branch %s not present at revision %d", types.ErrBranching, bid, rev)
	}

	wc.BaseTxn = baseTxn
	wc.EditTxn = edit
	wc.Base = Anchor{Revision: rev, Bid: bid}
	wc.Working = Anchor{Revision: rev, Bid: bid}
	wc.ListOfCommands = nil
	wc.Phase = Clean
	wc.lastConflict = nil
	return nil
}

// RecordCommand appends a human-readable action description to the audit
// trail and marks the working copy Dirty. Call this after every mutating
// action.
func (wc *WorkingCopy) RecordCommand(desc string) {
	wc.ListOfCommands = append(wc.ListOfCommands, desc)
	if wc.Phase == Clean {
		wc.Phase = Dirty
	}
}

// TxnIsChanged reports whether the working branch (or any sub-branch
// nested beneath it) differs from base, i.e. whether there is anything to
// commit or merge.
func (wc *WorkingCopy) TxnIsChanged() (bool, error) {
	working, err := wc.WorkingBranch()
	if err != nil {
		return false, err
	}
	base := wc.baseTreeForWorking(working)
	if diffCount(base, working.Tree) > 0 {
		return true, nil
	}
	return wc.nestedChanged(working.ID), nil
}

// nestedChanged compares the families of sub-branches nested under bid in
// the edit and base txns, by bid. A sub-branch hosted at a transient eid
// has a bid base has never seen, so a freshly created one always counts as
// a change.
func (wc *WorkingCopy) nestedChanged(bid branch.Bid) bool {
	prefix := string(bid) + "."
	seen := make(map[branch.Bid]bool)
	for id, st := range wc.EditTxn.Branches() {
		if !strings.HasPrefix(string(id), prefix) {
			continue
		}
		seen[id] = true
		baseSt, ok := wc.BaseTxn.GetBranch(id)
		if !ok || diffCount(baseSt.Tree, st.Tree) > 0 {
			return true
		}
	}
	for id := range wc.BaseTxn.Branches() {
		if strings.HasPrefix(string(id), prefix) && !seen[id] {
			return true
		}
	}
	return false
}

func diffCount(base, working *etree.Tree) int {
	count := 0
	for _, eid := range base.Eids() {
		bc, _ := base.Get(eid)
		wcContent, ok := working.Get(eid)
		if !ok || !bc.Equal(wcContent) {
			count++
		}
	}
	for _, eid := range working.Eids() {
		if !base.Has(eid) {
			count++
		}
	}
	return count
}

// Commit ensures the edit txn is a sequence point, opens a remote commit
// txn, replays (base.branch -> working.branch) into it, and completes the
// commit if anything changed. Returns
// types.ErrInvalidRevnum if there is nothing to commit.
func (wc *WorkingCopy) Commit(ctx context.Context, revprops map[string]string) (types.Revnum, error) {
	changed, err := wc.TxnIsChanged()
	if err != nil {
		return types.InvalidRevnum, err
	}
	if !changed {
		return types.InvalidRevnum, types.ErrInvalidRevnum
	}
	if revprops == nil {
		revprops = map[string]string{}
	}
	if _, ok := revprops["log"]; !ok {
		revprops["log"] = wc.defaultCommitMessage()
	}

	wc.Phase = Committing
	commitTxn, err := wc.provider.GetCommitTxn(ctx, wc.session, revprops, nil, nil, false, wc.storeDir)
	if err != nil {
		wc.Phase = Dirty
		return types.InvalidRevnum, err
	}

	working, err := wc.WorkingBranch()
	if err != nil {
		wc.Phase = Dirty
		return types.InvalidRevnum, err
	}

	// Every transient negative eid the working branch family carries must
	// become a persistent, repo-wide unique non-negative eid before it is
	// replayed into history. The base side is already fully
	// persistent, so it needs no translation and is passed as-is.
	translated, _ := translateForCommit(commitTxn, working)
	if err := checkCommitIntegrity(translated); err != nil {
		wc.Phase = Dirty
		return types.InvalidRevnum, err
	}
	left, _ := wc.BaseTxn.GetBranch(wc.Working.Bid)

	// A working branch the remote side has never seen (the top-level new
	// branch case) gets a fresh top-level branch in the commit txn instead
	// of continuing the local working bid, whose counter is only
	// meaningful inside this process's edit txn.
	var dst *branch.State
	var dstBid branch.Bid
	if left != nil {
		dst = commitTxn.NewBranchWithID(wc.Working.Bid, translated.Tree.RootEid)
		dstBid = wc.Working.Bid
	} else {
		dst = commitTxn.NewTopLevelBranch(translated.Tree.RootEid)
		dstBid = dst.ID
	}
	if _, err := replay.Replay(commitTxn, dst, left, translated); err != nil {
		wc.Phase = Dirty
		return types.InvalidRevnum, fmt.Errorf("arbor: replaying commit: %w", err)
	}

	newRev, err := wc.provider.CompleteCommit(ctx, wc.session, commitTxn)
	if err != nil {
		wc.Phase = Dirty
		return types.InvalidRevnum, err
	}
	wc.HeadRevision = newRev
	if err := wc.Checkout(ctx, newRev, dstBid); err != nil {
		return types.InvalidRevnum, err
	}
	return newRev, nil
}

// checkCommitIntegrity enforces I1-I3 at the commit boundary for the whole
// branch family: orphans are legal mid-edit but may not be committed.
func checkCommitIntegrity(st *branch.State) error {
	if err := st.Tree.CheckIntegrity(); err != nil {
		return fmt.Errorf("%w: branch %s: %v", types.ErrBranching, st.ID, err)
	}
	for _, sub := range st.NestedBranches() {
		if err := checkCommitIntegrity(sub); err != nil {
			return err
		}
	}
	return nil
}

func (wc *WorkingCopy) defaultCommitMessage() string {
	if len(wc.ListOfCommands) == 0 {
		return "(no actions recorded)"
	}
	msg := ""
	for i, cmd := range wc.ListOfCommands {
		if i > 0 {
			msg += "; "
		}
		msg += cmd
	}
	return msg
}

// Switch sequence-points the edit txn, detects local changes, re-checks-out
// at (targetRev, targetBid), and if there were local changes performs a
// three-way merge with YCA=previous base, SRC=previous working, TGT=new
// working. On conflicts the working copy transitions
// to Conflicted at the already-checked-out target, with the merge left
// unapplied and the report stashed for LastConflict — whether a conflicted
// switch should instead roll back atomically to the pre-switch state is an
// open question upstream, so the switch itself is not undone.
func (wc *WorkingCopy) Switch(ctx context.Context, targetRev types.Revnum, targetBid branch.Bid) (*types.ConflictReport, error) {
	changed, err := wc.TxnIsChanged()
	if err != nil {
		return nil, err
	}

	wc.lastWarning = ""
	var prevBase, prevWorking *branch.State
	if changed {
		prevBase, err = wc.baseBranch()
		if err != nil {
			return nil, err
		}
		prevWorking, err = wc.WorkingBranch()
		if err != nil {
			return nil, err
		}
		if targetBid != wc.Working.Bid {
			// Switching to a different-rooted target with local changes
			// warrants a warning, not an abort. Stash it for the caller
			// to surface rather than aborting the switch.
			wc.lastWarning = fmt.Sprintf("switching %s -> %s with local changes; merging forward", wc.Working.Bid, targetBid)
		}
	}

	if err := wc.Checkout(ctx, targetRev, targetBid); err != nil {
		return nil, err
	}

	if !changed {
		return nil, nil
	}

	newWorking, err := wc.WorkingBranch()
	if err != nil {
		return nil, err
	}
	outcome, err := mergeengine.Merge(prevBase.Tree, prevWorking.Tree, newWorking.Tree)
	if err != nil {
		return nil, err
	}
	if !outcome.Report.IsEmpty() {
		wc.Phase = Conflicted
		wc.lastConflict = outcome.Report
		return outcome.Report, fmt.Errorf("%w: switch left %d conflict(s)", types.ErrBranching, outcome.Report.Count())
	}
	newWorking.Tree = outcome.Result
	wc.Phase = Dirty
	return nil, nil
}

// Update switches to (rev, base.bid): the "bring my current branch
// forward" shortcut, merging local changes exactly as Switch does.
func (wc *WorkingCopy) Update(ctx context.Context, rev types.Revnum) (*types.ConflictReport, error) {
	return wc.Switch(ctx, rev, wc.Base.Bid)
}

// Revert replays the inverse delta (working -> base) into the working
// branch, yielding an empty diff against base.
func (wc *WorkingCopy) Revert(ctx context.Context) error {
	base, err := wc.baseBranch()
	if err != nil {
		return err
	}
	working, err := wc.WorkingBranch()
	if err != nil {
		return err
	}
	if _, err := replay.Replay(wc.EditTxn, working, working, base); err != nil {
		return fmt.Errorf("arbor: reverting: %w", err)
	}
	wc.ListOfCommands = nil
	wc.Phase = Clean
	wc.lastConflict = nil
	return nil
}

// Migrate obtains the move index for [r1, r2] from the remote access layer
// and drives the migration editor against the edit txn for each revision
// in range.
func (wc *WorkingCopy) Migrate(ctx context.Context, r1, r2 types.Revnum) error {
	moves, err := wc.provider.GetReposMoves(ctx, wc.session, r1, r2)
	if err != nil {
		return err
	}
	working, err := wc.WorkingBranch()
	if err != nil {
		return err
	}

	table := migrate.NewEidTable()
	var deltaErr error
	err = wc.provider.ReplayRange(ctx, wc.session, r1, r2,
		func(rev types.Revnum) {},
		func(rev types.Revnum, deltas []migrate.PathDelta, revMoves []migrate.MoveInfo) {
			if deltaErr != nil {
				return
			}
			m := moves[rev]
			if m == nil {
				m = revMoves
			}
			if err := migrate.MigrateRevision(wc.EditTxn, working, table, deltas, m); err != nil {
				deltaErr = err
			}
		},
	)
	if err != nil {
		return err
	}
	if deltaErr != nil {
		return fmt.Errorf("arbor: migrating revisions %d-%d: %w", r1, r2, deltaErr)
	}
	wc.RecordCommand(fmt.Sprintf("migrate %d:%d", r1, r2))
	return nil
}

// LastConflict returns the ConflictReport left behind by the most recent
// Conflicted-producing Switch, or nil if the working copy is not
// Conflicted.
func (wc *WorkingCopy) LastConflict() *types.ConflictReport {
	return wc.lastConflict
}

// LastWarning returns the warning-class notification produced by the most
// recent Switch (e.g. a different-rooted target merged with local changes
// still pending), or "" if none.
func (wc *WorkingCopy) LastWarning() string {
	return wc.lastWarning
}
