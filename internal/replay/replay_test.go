package replay

import (
	"testing"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/types"
)

// sideBranch builds a standalone branch rooted at 0 inside its own txn, so
// tests can shape left/right states independently of the destination.
func sideBranch(t *testing.T) *branch.State {
	t.Helper()
	txn := branch.NewTxn(types.InvalidRevnum)
	return txn.NewTopLevelBranch(0)
}

func TestReplayAppliesAdditionsAndDeletions(t *testing.T) {
	left := sideBranch(t)
	right := sideBranch(t)
	if err := right.Tree.Put(1, types.ElementContent{ParentEid: 0, Name: "f", Payload: types.FilePayload(nil, []byte("hi"))}); err != nil {
		t.Fatalf("seed right: %v", err)
	}

	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)

	res, err := Replay(txn, dst, left, right)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(res.Applied) != 1 || res.Applied[0] != 1 {
		t.Fatalf("expected element 1 applied, got %+v", res)
	}
	c, ok := dst.Tree.Get(1)
	if !ok || c.Name != "f" {
		t.Fatalf("expected element 1 present with name f, got %+v ok=%v", c, ok)
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	left := sideBranch(t)
	right := sideBranch(t)
	if err := right.Tree.Put(1, types.ElementContent{ParentEid: 0, Name: "f", Payload: types.FilePayload(nil, []byte("hi"))}); err != nil {
		t.Fatalf("seed right: %v", err)
	}

	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)

	if _, err := Replay(txn, dst, left, right); err != nil {
		t.Fatalf("first replay: %v", err)
	}
	res2, err := Replay(txn, dst, left, right)
	if err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if len(res2.Applied) != 0 || len(res2.Skipped) != 1 {
		t.Fatalf("expected second replay to be a no-op, got %+v", res2)
	}
}

func TestReplayDeletionOfAlreadyMissingElementIsSkipped(t *testing.T) {
	left := sideBranch(t)
	if err := left.Tree.Put(1, types.ElementContent{ParentEid: 0, Name: "f", Payload: types.FilePayload(nil, nil)}); err != nil {
		t.Fatalf("seed left: %v", err)
	}
	right := sideBranch(t)

	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)

	res, err := Replay(txn, dst, left, right)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != 1 {
		t.Fatalf("expected deletion of missing element to be skipped, got %+v", res)
	}
}

func TestReplayNilLeftTreatsEverythingAsAddition(t *testing.T) {
	right := sideBranch(t)
	if err := right.Tree.Put(1, types.ElementContent{ParentEid: 0, Name: "f", Payload: types.FilePayload(nil, []byte("hi"))}); err != nil {
		t.Fatalf("seed right: %v", err)
	}

	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)

	res, err := Replay(txn, dst, nil, right)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("expected element 1 applied from a nil left, got %+v", res)
	}
}

// TestReplayAppliesNestedAdditionRegardlessOfEidOrder mirrors the
// mkdir A; mkdir A/B; commit sequence: A and B are allocated descending
// negative eids, so B's eid sorts before A's, but B's parent_eid is A. A
// naive ascending-eid apply order would try to instantiate B before A
// exists and fail; Replay must defer B until A has landed.
func TestReplayAppliesNestedAdditionRegardlessOfEidOrder(t *testing.T) {
	left := sideBranch(t)
	right := sideBranch(t)
	if err := right.Tree.Put(-1, types.ElementContent{ParentEid: 0, Name: "A", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed right A: %v", err)
	}
	if err := right.Tree.Put(-2, types.ElementContent{ParentEid: -1, Name: "B", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed right B: %v", err)
	}

	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)

	res, err := Replay(txn, dst, left, right)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("expected both A and B applied, got %+v", res)
	}
	if !dst.Tree.Has(-1) || !dst.Tree.Has(-2) {
		t.Fatalf("expected both A and B present in dst, got %+v", dst.Tree)
	}
	b, _ := dst.Tree.Get(-2)
	if b.ParentEid != -1 {
		t.Fatalf("expected B's parent to be A (-1), got %d", b.ParentEid)
	}
}

// TestReplayRecursesIntoSubBranches covers sub-branch recursion: a
// sub-branch hosted on the right side is opened under dst (nesting the id
// under dst's bid and the hosting eid) and its content replayed.
func TestReplayRecursesIntoSubBranches(t *testing.T) {
	rightTxn := branch.NewTxn(types.InvalidRevnum)
	right := rightTxn.NewTopLevelBranch(0)
	if err := right.Tree.Put(5, types.ElementContent{ParentEid: 0, Name: "sub", Payload: types.SubbranchRootPayload()}); err != nil {
		t.Fatalf("seed host element: %v", err)
	}
	rightSub := rightTxn.OpenBranch(right, nil, 5, 10)
	if err := rightSub.Tree.Put(11, types.ElementContent{ParentEid: 10, Name: "inner", Payload: types.FilePayload(nil, []byte("x"))}); err != nil {
		t.Fatalf("seed nested element: %v", err)
	}

	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)

	res, err := Replay(txn, dst, nil, right)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(res.SubBids) != 1 {
		t.Fatalf("expected one sub-branch replayed, got %+v", res.SubBids)
	}
	dstSub, ok := txn.FindNestedBranch(dst.ID, 5)
	if !ok {
		t.Fatalf("expected a nested branch hosted at eid 5 in the destination txn")
	}
	if dstSub.Tree.RootEid != 10 {
		t.Fatalf("expected the nested branch to keep root eid 10, got %d", dstSub.Tree.RootEid)
	}
	c, ok := dstSub.Tree.Get(11)
	if !ok || c.Name != "inner" {
		t.Fatalf("expected nested element 11 replayed, got %+v ok=%v", c, ok)
	}
}

// TestReplayDropsSubBranchWhoseHostWasDeleted covers the left-only case:
// a sub-branch present only on the left is implicitly dropped because its
// hosting element is deleted by the element pass.
func TestReplayDropsSubBranchWhoseHostWasDeleted(t *testing.T) {
	leftTxn := branch.NewTxn(types.InvalidRevnum)
	left := leftTxn.NewTopLevelBranch(0)
	if err := left.Tree.Put(5, types.ElementContent{ParentEid: 0, Name: "sub", Payload: types.SubbranchRootPayload()}); err != nil {
		t.Fatalf("seed host element: %v", err)
	}
	leftSub := leftTxn.OpenBranch(left, nil, 5, 10)
	if err := leftSub.Tree.Put(11, types.ElementContent{ParentEid: 10, Name: "inner", Payload: types.FilePayload(nil, nil)}); err != nil {
		t.Fatalf("seed nested element: %v", err)
	}
	right := sideBranch(t)

	// Destination already mirrors left, including the nested branch.
	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)
	if _, err := Replay(txn, dst, nil, left); err != nil {
		t.Fatalf("prime dst: %v", err)
	}
	if _, ok := txn.FindNestedBranch(dst.ID, 5); !ok {
		t.Fatalf("expected dst to carry the nested branch before the delta")
	}

	if _, err := Replay(txn, dst, left, right); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if dst.Tree.Has(5) {
		t.Fatalf("expected the hosting element to be deleted")
	}
	if _, ok := txn.FindNestedBranch(dst.ID, 5); ok {
		t.Fatalf("expected the nested branch to be dropped with its host")
	}
}

// TestReplayInverseRestoresOriginal covers the replay-inverse property:
// replay(L -> R) then replay(R -> L) on a copy of L restores L.
func TestReplayInverseRestoresOriginal(t *testing.T) {
	left := sideBranch(t)
	if err := left.Tree.Put(1, types.ElementContent{ParentEid: 0, Name: "keep", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed left: %v", err)
	}
	right := sideBranch(t)
	if err := right.Tree.Put(1, types.ElementContent{ParentEid: 0, Name: "renamed", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed right: %v", err)
	}
	if err := right.Tree.Put(2, types.ElementContent{ParentEid: 0, Name: "extra", Payload: types.FilePayload(nil, []byte("y"))}); err != nil {
		t.Fatalf("seed right extra: %v", err)
	}

	txn := branch.NewTxn(types.InvalidRevnum)
	dst := txn.NewTopLevelBranch(0)
	if _, err := Replay(txn, dst, nil, left); err != nil {
		t.Fatalf("prime dst as L: %v", err)
	}

	if _, err := Replay(txn, dst, left, right); err != nil {
		t.Fatalf("replay L->R: %v", err)
	}
	if _, err := Replay(txn, dst, right, left); err != nil {
		t.Fatalf("replay R->L: %v", err)
	}

	for _, eid := range left.Tree.Eids() {
		want, _ := left.Tree.Get(eid)
		got, ok := dst.Tree.Get(eid)
		if !ok || !got.Equal(want) {
			t.Fatalf("element %d differs after inverse replay: got %+v ok=%v want %+v", eid, got, ok, want)
		}
	}
	if len(dst.Tree.Eids()) != len(left.Tree.Eids()) {
		t.Fatalf("expected dst to have exactly L's elements, got %d vs %d", len(dst.Tree.Eids()), len(left.Tree.Eids()))
	}
}
