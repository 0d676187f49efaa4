package wcopy

import (
	"context"
	"testing"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/remote"
	"github.com/arborvc/arbor/internal/repos"
	"github.com/arborvc/arbor/internal/types"
)

func newTestRepos(t *testing.T) (*repos.Repos, branch.Bid) {
	t.Helper()
	r := repos.New()
	txn := branch.NewTxn(types.InvalidRevnum)
	st := txn.NewTopLevelBranch(0)
	r.Append(txn)
	return r, st.ID
}

func TestCheckoutInstallsBaseAndWorking(t *testing.T) {
	r, bid := newTestRepos(t)
	provider := remote.NewInProcess(r, "test://repo")
	wc, err := Open(context.Background(), provider, "test://repo", t.TempDir(), 1, bid)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if wc.Phase != Clean {
		t.Fatalf("expected Clean after checkout, got %s", wc.Phase)
	}
	if wc.Base.Bid != bid || wc.Working.Bid != bid {
		t.Fatalf("expected base/working bid %s, got base=%s working=%s", bid, wc.Base.Bid, wc.Working.Bid)
	}
}

func TestCommitWithNoChangesReturnsInvalidRevnum(t *testing.T) {
	r, bid := newTestRepos(t)
	provider := remote.NewInProcess(r, "test://repo")
	wc, err := Open(context.Background(), provider, "test://repo", t.TempDir(), 1, bid)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = wc.Commit(context.Background(), nil)
	if err != types.ErrInvalidRevnum {
		t.Fatalf("expected ErrInvalidRevnum, got %v", err)
	}
}

func TestCommitWithChangesPersistsToRepos(t *testing.T) {
	r, bid := newTestRepos(t)
	provider := remote.NewInProcess(r, "test://repo")
	wc, err := Open(context.Background(), provider, "test://repo", t.TempDir(), 1, bid)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	working, err := wc.WorkingBranch()
	if err != nil {
		t.Fatalf("working branch: %v", err)
	}
	newEid := wc.EditTxn.NewEid()
	if err := working.Alter(newEid, working.Tree.RootEid, "f", types.FilePayload(nil, []byte("x"))); err != nil {
		t.Fatalf("alter: %v", err)
	}
	wc.RecordCommand("put f")

	headBefore := r.Head()
	rev, err := wc.Commit(context.Background(), nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if rev != headBefore+1 {
		t.Fatalf("expected commit to mint revision %d, got %d", headBefore+1, rev)
	}
	if r.Head() != rev {
		t.Fatalf("expected the commit to be durably appended to Repos; head is still %d", r.Head())
	}

	committed, err := r.GetRevision(rev)
	if err != nil {
		t.Fatalf("get committed revision: %v", err)
	}
	committedSt, ok := committed.GetBranch(bid)
	if !ok {
		t.Fatalf("expected branch %s to be present in the committed revision", bid)
	}
	// The committed tree must never carry the transient negative eid
	// allocated in the edit txn: look the element up by name
	// instead, and confirm it landed under a fresh non-negative eid.
	var committedEid types.Eid
	found := false
	for _, eid := range committedSt.Tree.Children(committedSt.Tree.RootEid) {
		c, _ := committedSt.Tree.Get(eid)
		if c.Name == "f" {
			committedEid = eid
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected the new file element to be present in the committed revision")
	}
	if committedEid < 0 {
		t.Fatalf("expected the committed element to have a persistent non-negative eid, got %d", committedEid)
	}
	if committedEid == newEid {
		t.Fatalf("expected the committed eid to differ from the transient edit-txn eid %d", newEid)
	}

	if wc.Base.Revision != rev || wc.Working.Revision != rev {
		t.Fatalf("expected commit to check out the new revision, got base=%d working=%d", wc.Base.Revision, wc.Working.Revision)
	}
	if wc.Working.Bid != bid {
		t.Fatalf("expected commit to continue the same branch identity %s, got %s", bid, wc.Working.Bid)
	}

	// A second, independent commit to the same branch must continue its bid
	// rather than colliding with or silently renaming it: exercise this by
	// editing and committing again.
	working2, err := wc.WorkingBranch()
	if err != nil {
		t.Fatalf("working branch after first commit: %v", err)
	}
	secondEid := wc.EditTxn.NewEid()
	if err := working2.Alter(secondEid, working2.Tree.RootEid, "g", types.FilePayload(nil, []byte("y"))); err != nil {
		t.Fatalf("alter: %v", err)
	}
	wc.RecordCommand("put g")
	rev2, err := wc.Commit(context.Background(), nil)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if rev2 != rev+1 {
		t.Fatalf("expected second commit to mint revision %d, got %d", rev+1, rev2)
	}
	if wc.Working.Bid != bid {
		t.Fatalf("expected branch identity %s to persist across a second commit, got %s", bid, wc.Working.Bid)
	}
}

// TestCommitWithNestedElementCreatedBeforeFirstCommit mirrors the
// mkdir A; mkdir A/B; commit sequence: both A and B are created in the
// same edit session, so B's transient eid sorts before A's, and both must
// be remapped to persistent eids before landing in the committed revision.
func TestCommitWithNestedElementCreatedBeforeFirstCommit(t *testing.T) {
	r, bid := newTestRepos(t)
	provider := remote.NewInProcess(r, "test://repo")
	wc, err := Open(context.Background(), provider, "test://repo", t.TempDir(), 1, bid)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	working, err := wc.WorkingBranch()
	if err != nil {
		t.Fatalf("working branch: %v", err)
	}
	aEid := wc.EditTxn.NewEid()
	if err := working.Alter(aEid, working.Tree.RootEid, "A", types.DirPayload(nil)); err != nil {
		t.Fatalf("alter A: %v", err)
	}
	bEid := wc.EditTxn.NewEid()
	if err := working.Alter(bEid, aEid, "B", types.DirPayload(nil)); err != nil {
		t.Fatalf("alter B: %v", err)
	}
	wc.RecordCommand("mkdir A")
	wc.RecordCommand("mkdir A/B")

	rev, err := wc.Commit(context.Background(), nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	committed, err := r.GetRevision(rev)
	if err != nil {
		t.Fatalf("get committed revision: %v", err)
	}
	committedSt, ok := committed.GetBranch(bid)
	if !ok {
		t.Fatalf("expected branch %s to be present in the committed revision", bid)
	}

	var committedA types.Eid
	foundA := false
	for _, eid := range committedSt.Tree.Children(committedSt.Tree.RootEid) {
		c, _ := committedSt.Tree.Get(eid)
		if c.Name == "A" {
			committedA, foundA = eid, true
			break
		}
	}
	if !foundA || committedA < 0 {
		t.Fatalf("expected A present with a persistent non-negative eid, got eid=%d found=%v", committedA, foundA)
	}

	foundB := false
	for _, eid := range committedSt.Tree.Children(committedA) {
		c, _ := committedSt.Tree.Get(eid)
		if c.Name == "B" {
			if eid < 0 {
				t.Fatalf("expected B to have a persistent non-negative eid, got %d", eid)
			}
			foundB = true
			break
		}
	}
	if !foundB {
		t.Fatalf("expected B present as a child of A in the committed revision")
	}
}

// TestCommitCarriesNestedSubBranchContent checks that a sub-branch created
// in the edit session is committed along with its hosting element: its bid
// is rewritten through the host's persistent eid and its inner elements all
// land with persistent ids of their own.
func TestCommitCarriesNestedSubBranchContent(t *testing.T) {
	r, bid := newTestRepos(t)
	provider := remote.NewInProcess(r, "test://repo")
	wc, err := Open(context.Background(), provider, "test://repo", t.TempDir(), 1, bid)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	working, err := wc.WorkingBranch()
	if err != nil {
		t.Fatalf("working branch: %v", err)
	}

	hostEid := wc.EditTxn.NewEid()
	if err := working.Alter(hostEid, working.Tree.RootEid, "sub", types.SubbranchRootPayload()); err != nil {
		t.Fatalf("alter host: %v", err)
	}
	innerRoot := wc.EditTxn.NewEid()
	nested := wc.EditTxn.OpenBranch(working, nil, hostEid, innerRoot)
	fileEid := wc.EditTxn.NewEid()
	if err := nested.Alter(fileEid, innerRoot, "inner", types.FilePayload(nil, []byte("x"))); err != nil {
		t.Fatalf("alter nested file: %v", err)
	}
	wc.RecordCommand("mkbranch sub")

	rev, err := wc.Commit(context.Background(), nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	committed, err := r.GetRevision(rev)
	if err != nil {
		t.Fatalf("get committed revision: %v", err)
	}
	committedSt, ok := committed.GetBranch(bid)
	if !ok {
		t.Fatalf("expected branch %s in the committed revision", bid)
	}

	var committedHost types.Eid
	foundHost := false
	for _, eid := range committedSt.Tree.Children(committedSt.Tree.RootEid) {
		c, _ := committedSt.Tree.Get(eid)
		if c.Name == "sub" {
			if c.Payload.Kind != types.PayloadSubbranchRoot {
				t.Fatalf("expected sub to stay a sub-branch root, got kind %d", c.Payload.Kind)
			}
			committedHost, foundHost = eid, true
			break
		}
	}
	if !foundHost || committedHost < 0 {
		t.Fatalf("expected the hosting element committed with a persistent eid, got eid=%d found=%v", committedHost, foundHost)
	}

	committedSub, ok := committed.FindNestedBranch(bid, committedHost)
	if !ok {
		t.Fatalf("expected a nested branch hosted at eid %d in the committed revision", committedHost)
	}
	if committedSub.Tree.RootEid < 0 {
		t.Fatalf("expected the nested root to get a persistent eid, got %d", committedSub.Tree.RootEid)
	}
	foundInner := false
	for _, eid := range committedSub.Tree.Children(committedSub.Tree.RootEid) {
		c, _ := committedSub.Tree.Get(eid)
		if c.Name == "inner" {
			if eid < 0 {
				t.Fatalf("expected the nested file to get a persistent eid, got %d", eid)
			}
			foundInner = true
			break
		}
	}
	if !foundInner {
		t.Fatalf("expected the nested file committed inside the sub-branch")
	}
}

func TestEditThenRevertYieldsCleanEmptyDiff(t *testing.T) {
	r, bid := newTestRepos(t)
	provider := remote.NewInProcess(r, "test://repo")
	wc, err := Open(context.Background(), provider, "test://repo", t.TempDir(), 1, bid)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	working, err := wc.WorkingBranch()
	if err != nil {
		t.Fatalf("working branch: %v", err)
	}
	newEid := wc.EditTxn.NewEid()
	if err := working.Alter(newEid, working.Tree.RootEid, "f", types.FilePayload(nil, []byte("x"))); err != nil {
		t.Fatalf("alter: %v", err)
	}
	wc.RecordCommand("put f")
	if wc.Phase != Dirty {
		t.Fatalf("expected Dirty after edit, got %s", wc.Phase)
	}

	if err := wc.Revert(context.Background()); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if wc.Phase != Clean {
		t.Fatalf("expected Clean after revert, got %s", wc.Phase)
	}
	changed, err := wc.TxnIsChanged()
	if err != nil {
		t.Fatalf("txn is changed: %v", err)
	}
	if changed {
		t.Fatalf("expected no diff against base after revert")
	}
}
