package mergeengine

import (
	"testing"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

func dirTree(extra func(t *etree.Tree)) *etree.Tree {
	t := etree.New(0)
	if extra != nil {
		extra(t)
	}
	return t
}

func TestMergeCommutativityOfTrivialSides(t *testing.T) {
	yca := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
	})
	tgt := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
		_ = tr.Put(2, types.ElementContent{ParentEid: 0, Name: "b", Payload: types.FilePayload(nil, []byte("x"))})
	})

	out, err := Merge(yca, yca, tgt)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !out.Report.IsEmpty() {
		t.Fatalf("expected no conflicts, got %+v", out.Report)
	}
	if _, ok := out.Result.Get(2); !ok {
		t.Fatalf("expected TGT unchanged (SRC==YCA), element 2 missing")
	}
}

func TestMergeRenameOnSrcAndPayloadEditOnTgtMergeCleanly(t *testing.T) {
	yca := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "A", Payload: types.FilePayload(nil, []byte("orig"))})
	})
	src := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "A'", Payload: types.FilePayload(nil, []byte("orig"))})
	})
	tgt := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "A", Payload: types.FilePayload(nil, []byte("edited"))})
	})

	out, err := Merge(yca, src, tgt)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !out.Report.IsEmpty() {
		t.Fatalf("expected clean merge, got conflicts: %+v", out.Report)
	}
	c, ok := out.Result.Get(1)
	if !ok {
		t.Fatalf("expected element 1 present in merge result")
	}
	if c.Name != "A'" {
		t.Fatalf("expected SRC's rename to win, got name %q", c.Name)
	}
	if string(c.Payload.Text) != "edited" {
		t.Fatalf("expected TGT's payload edit to win, got %q", c.Payload.Text)
	}
}

func TestMergeConflictingPayloadEditsProduceSingleElementConflict(t *testing.T) {
	yca := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "A", Payload: types.FilePayload(nil, []byte("orig"))})
	})
	src := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "A", Payload: types.FilePayload(nil, []byte("src-edit"))})
	})
	tgt := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "A", Payload: types.FilePayload(nil, []byte("tgt-edit"))})
	})

	out, err := Merge(yca, src, tgt)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if out.Report.IsEmpty() {
		t.Fatalf("expected a single-element conflict")
	}
	if _, ok := out.Report.SingleElement[1]; !ok {
		t.Fatalf("expected conflict keyed at eid 1, got %+v", out.Report)
	}
}

func TestMergeNameClashAcrossDistinctElements(t *testing.T) {
	yca := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
		_ = tr.Put(2, types.ElementContent{ParentEid: 0, Name: "b", Payload: types.DirPayload(nil)})
	})
	src := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
		_ = tr.Put(2, types.ElementContent{ParentEid: 0, Name: "clash", Payload: types.DirPayload(nil)})
	})
	tgt := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "clash", Payload: types.DirPayload(nil)})
		_ = tr.Put(2, types.ElementContent{ParentEid: 0, Name: "b", Payload: types.DirPayload(nil)})
	})

	out, err := Merge(yca, src, tgt)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(out.Report.NameClash) != 1 {
		t.Fatalf("expected one name-clash conflict, got %+v", out.Report.NameClash)
	}
}

// TestMergeSrcRenameOntoUnchangedSiblingReportsNameClash exercises the
// specific case where applying a cleanly-resolved rename would collide with
// an element that never changed on either side: YCA has eid 1 named "a" and
// eid 2 named "b"; SRC renames eid 2 to "a"; TGT leaves both alone. The
// rename must be recognized as a name_clash conflict rather than silently
// dropped.
func TestMergeSrcRenameOntoUnchangedSiblingReportsNameClash(t *testing.T) {
	yca := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
		_ = tr.Put(2, types.ElementContent{ParentEid: 0, Name: "b", Payload: types.DirPayload(nil)})
	})
	src := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
		// Put would refuse the duplicate sibling name, so write it raw.
		tr.PutRaw(2, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
	})
	tgt := dirTree(func(tr *etree.Tree) {
		_ = tr.Put(1, types.ElementContent{ParentEid: 0, Name: "a", Payload: types.DirPayload(nil)})
		_ = tr.Put(2, types.ElementContent{ParentEid: 0, Name: "b", Payload: types.DirPayload(nil)})
	})

	out, err := Merge(yca, src, tgt)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if out.Report.IsEmpty() {
		t.Fatalf("expected a name_clash conflict, got a clean merge with result %+v", out.Result)
	}
	if len(out.Report.NameClash) != 1 {
		t.Fatalf("expected one name-clash conflict, got %+v", out.Report.NameClash)
	}
}
