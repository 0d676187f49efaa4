package etree

import (
	"errors"
	"testing"

	"github.com/arborvc/arbor/internal/types"
)

func TestPutRejectsInvariantViolations(t *testing.T) {
	tests := []struct {
		name    string
		seed    func(tr *Tree) error
		eid     types.Eid
		content types.ElementContent
		wantErr error // nil means any non-nil error is acceptable
	}{
		{
			name: "duplicate sibling name",
			seed: func(tr *Tree) error {
				return tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
			},
			eid:     2,
			content: types.ElementContent{ParentEid: 0, Name: "a", Payload: types.FilePayload(nil, nil)},
			wantErr: types.ErrNameClash,
		},
		{
			name:    "element as its own parent",
			seed:    nil,
			eid:     1,
			content: types.ElementContent{ParentEid: 1, Name: "self", Payload: types.DirPayload(nil)},
			wantErr: types.ErrBadParent,
		},
		{
			name: "two-element cycle",
			seed: func(tr *Tree) error {
				// 1's parent is the not-yet-mapped 2: legal transiently.
				return tr.Put(1, types.ElementContent{ParentEid: 2, Name: "a", Payload: types.DirPayload(nil)})
			},
			eid:     2,
			content: types.ElementContent{ParentEid: 1, Name: "b", Payload: types.DirPayload(nil)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(0)
			if tt.seed != nil {
				if err := tt.seed(tr); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}
			err := tr.Put(tt.eid, tt.content)
			if err == nil {
				t.Fatalf("expected Put(%d, %+v) to be rejected", tt.eid, tt.content)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if _, ok := tr.Get(tt.eid); ok {
				t.Fatalf("expected the rejected write not to land")
			}
		})
	}
}

func TestPutAllowsRenameOfExistingSibling(t *testing.T) {
	tr := New(0)
	if err := tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Replacing an element's own slot with a new name is an edit, not a
	// clash with itself.
	if err := tr.Put(1, types.ElementContent{ParentEid: 0, Name: "renamed", Payload: types.DirPayload(nil)}); err != nil {
		t.Fatalf("expected rename-in-place to be accepted, got %v", err)
	}
	c, _ := tr.Get(1)
	if c.Name != "renamed" {
		t.Fatalf("expected name to be replaced, got %q", c.Name)
	}
}

func TestCheckIntegrityCatchesOrphan(t *testing.T) {
	tr := New(0)
	// PutRaw bypasses the per-insert guards, the same way a merge's
	// resolution pass does; CheckIntegrity must still catch the orphan.
	tr.PutRaw(5, types.ElementContent{ParentEid: 99, Name: "stray", Payload: types.FilePayload(nil, nil)})

	if tr.PathReachable(5) {
		t.Fatalf("expected element 5 to be unreachable")
	}
	orphans := tr.Orphans()
	if len(orphans) != 1 || orphans[0] != 5 {
		t.Fatalf("expected exactly element 5 orphaned, got %v", orphans)
	}
	if err := tr.CheckIntegrity(); err == nil {
		t.Fatalf("expected CheckIntegrity to report the orphan")
	}
}

func TestCheckIntegrityCatchesRootInvariantViolation(t *testing.T) {
	tests := []struct {
		name string
		mut  func(tr *Tree)
	}{
		{
			name: "root carries non-root content",
			mut: func(tr *Tree) {
				tr.PutRaw(0, types.ElementContent{ParentEid: 3, Name: "not-root", Payload: types.DirPayload(nil)})
			},
		},
		{
			name: "non-root carries root-shaped content",
			mut: func(tr *Tree) {
				tr.PutRaw(3, types.ElementContent{ParentEid: types.RootParent, Name: "", Payload: types.DirPayload(nil)})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(0)
			if err := tr.CheckIntegrity(); err != nil {
				t.Fatalf("fresh tree should be valid, got %v", err)
			}
			tt.mut(tr)
			if err := tr.CheckIntegrity(); err == nil {
				t.Fatalf("expected CheckIntegrity to reject the tree")
			}
		})
	}
}

func TestCheckIntegrityCatchesDuplicateSiblingsWrittenRaw(t *testing.T) {
	tr := New(0)
	tr.PutRaw(1, types.ElementContent{ParentEid: 0, Name: "dup", Payload: types.DirPayload(nil)})
	tr.PutRaw(2, types.ElementContent{ParentEid: 0, Name: "dup", Payload: types.FilePayload(nil, nil)})

	err := tr.CheckIntegrity()
	if err == nil {
		t.Fatalf("expected CheckIntegrity to report the sibling clash")
	}
	if !errors.Is(err, types.ErrNameClash) {
		t.Fatalf("expected ErrNameClash, got %v", err)
	}
}
