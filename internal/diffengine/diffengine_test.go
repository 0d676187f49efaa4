package diffengine

import (
	"testing"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

func TestElementDifferencesDetectsAdditionDeletionAndChange(t *testing.T) {
	left := etree.New(0)
	if err := left.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed left: %v", err)
	}
	if err := left.Put(2, types.ElementContent{ParentEid: 0, Name: "gone", Payload: types.FilePayload(nil, []byte("x"))}); err != nil {
		t.Fatalf("seed left: %v", err)
	}

	right := etree.New(0)
	if err := right.Put(1, types.ElementContent{ParentEid: 0, Name: "a-renamed", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed right: %v", err)
	}
	if err := right.Put(3, types.ElementContent{ParentEid: 0, Name: "new", Payload: types.FilePayload(nil, []byte("y"))}); err != nil {
		t.Fatalf("seed right: %v", err)
	}

	diffs := ElementDifferences(left, right)
	if len(diffs) != 3 {
		t.Fatalf("expected 3 differences, got %d: %+v", len(diffs), diffs)
	}

	d1 := diffs[1]
	if d1 == nil || !d1.Renamed || d1.Reparented || d1.Modified {
		t.Fatalf("element 1 expected rename-only, got %+v", d1)
	}
	if diffs[2].Category() != CategoryDeletion {
		t.Fatalf("element 2 expected deletion category")
	}
	if diffs[3].Category() != CategoryAddition {
		t.Fatalf("element 3 expected addition category")
	}
}

func TestElementDifferencesIdenticalTreesAreEmpty(t *testing.T) {
	left := etree.New(0)
	right := etree.New(0)
	diffs := ElementDifferences(left, right)
	if len(diffs) != 0 {
		t.Fatalf("expected no differences between identical trees, got %d", len(diffs))
	}
}

func TestSalientDeletionOfChildUnderDeletedParentIsNotSalient(t *testing.T) {
	left := etree.New(0)
	if err := left.Put(1, types.ElementContent{ParentEid: 0, Name: "dir", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := left.Put(2, types.ElementContent{ParentEid: 1, Name: "child", Payload: types.FilePayload(nil, nil)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	right := etree.New(0)

	diffs := ElementDifferences(left, right)
	ordered := Ordered(diffs, left)
	if len(ordered) != 2 {
		t.Fatalf("expected 2 diffs, got %d", len(ordered))
	}
	if !ordered[0].Salient(diffs, left) {
		t.Fatalf("parent dir deletion should be salient, got non-salient: %+v", ordered[0])
	}
	if ordered[1].Eid == 2 && ordered[1].Salient(diffs, left) {
		t.Fatalf("child deletion under deleted parent should not be salient")
	}
}
