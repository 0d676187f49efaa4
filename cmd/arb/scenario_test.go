package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// runArb executes one arb invocation against args and returns captured
// stdout. Tests share the package's rootCmd/appCtx the way a real process
// would, each rebuilding appCtx fresh in PersistentPreRunE.
func runArb(t *testing.T, args ...string) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = w

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	os.Stdout = origStdout
	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)

	if runErr != nil {
		t.Fatalf("arb %s: %v (output: %s)", strings.Join(args, " "), runErr, buf.String())
	}
	return buf.String()
}

// newScenarioStoreDir gives a scenario its own temp store directory and
// resets the in-process shared remote, so scenarios don't see each other's
// revisions: the in-process Provider otherwise models one shared remote
// across every working copy in the test binary.
func newScenarioStoreDir(t *testing.T) []string {
	t.Helper()
	sharedRepos = nil
	return []string{"--store-dir", t.TempDir()}
}

func withSD(sd []string, args ...string) []string {
	return append(append([]string{}, sd...), args...)
}

// TestScenarioMkdirCommitMvCommit walks the basic round trip: create
// a directory, commit it, rename it, commit again, and confirm both the
// commit and the rename are visible afterward.
func TestScenarioMkdirCommitMvCommit(t *testing.T) {
	sd := newScenarioStoreDir(t)

	runArb(t, withSD(sd, "mkdir", "/docs")...)
	out := runArb(t, withSD(sd, "commit", "-m", "add docs")...)
	if !strings.Contains(out, "committed revision") {
		t.Fatalf("expected a committed-revision message, got %q", out)
	}

	out = runArb(t, withSD(sd, "mv", "/docs", "/documentation")...)
	if !strings.Contains(out, "documentation") {
		t.Fatalf("expected mv to report the new path, got %q", out)
	}
	out = runArb(t, withSD(sd, "commit", "-m", "rename docs")...)
	if !strings.Contains(out, "committed revision") {
		t.Fatalf("expected a second committed-revision message, got %q", out)
	}

	out = runArb(t, withSD(sd, "ls", "/")...)
	if !strings.Contains(out, "documentation") {
		t.Fatalf("expected ls / to show the renamed element, got %q", out)
	}
	if strings.Contains(out, " docs\n") {
		t.Fatalf("expected the old name to be gone from ls /, got %q", out)
	}
}

// TestScenarioMkdirNestedThenCommit walks the nested-creation round trip:
// mkdir A, mkdir A/B, commit, with no intervening commit between the two
// mkdirs. Both A and B are allocated transient eids in the same edit
// session, with B's sorting ahead of A's, so this exercises replay's
// parent-before-child ordering and commit's eid remap end to end.
func TestScenarioMkdirNestedThenCommit(t *testing.T) {
	sd := newScenarioStoreDir(t)

	runArb(t, withSD(sd, "mkdir", "/A")...)
	runArb(t, withSD(sd, "mkdir", "/A/B")...)
	out := runArb(t, withSD(sd, "commit", "-m", "add nested dirs")...)
	if !strings.Contains(out, "committed revision") {
		t.Fatalf("expected a committed-revision message, got %q", out)
	}

	out = runArb(t, withSD(sd, "ls", "/A")...)
	if !strings.Contains(out, "B") {
		t.Fatalf("expected ls /A to show B after committing the nested mkdir, got %q", out)
	}
}

// TestScenarioMkbranchTbranch walks the sub-branch round trip: mkbranch
// turns an existing directory into a nested sub-branch root, and tbranch
// re-hosts that nested branch's content as a brand-new top-level branch.
func TestScenarioMkbranchTbranch(t *testing.T) {
	sd := newScenarioStoreDir(t)

	runArb(t, withSD(sd, "mkdir", "/sub")...)
	out := runArb(t, withSD(sd, "mkbranch", "/sub")...)
	if !strings.Contains(out, "A+ /sub") {
		t.Fatalf("expected mkbranch to report a new sub-branch root, got %q", out)
	}

	out = runArb(t, withSD(sd, "tbranch", "/sub")...)
	if !strings.Contains(out, "B1") || !strings.Contains(out, "/sub") {
		t.Fatalf("expected tbranch to report a new top-level branch from /sub, got %q", out)
	}

	out = runArb(t, withSD(sd, "branches")...)
	if !strings.Contains(out, "B0") || !strings.Contains(out, "B1") {
		t.Fatalf("expected branches to list both B0 and the new B1, got %q", out)
	}
}

// TestScenarioCommitNothingToCommit exercises the no-op path: committing an
// unmodified working copy does not mint a new revision.
func TestScenarioCommitNothingToCommit(t *testing.T) {
	sd := newScenarioStoreDir(t)

	runArb(t, withSD(sd, "info-wc")...)
	out := runArb(t, withSD(sd, "commit")...)
	if !strings.Contains(out, "nothing to commit") {
		t.Fatalf("expected a no-op commit message, got %q", out)
	}
}

// TestScenarioCpPreservesEid exercises cp's identity guarantee: copying an
// element across a historical revision into the working tree keeps its
// original eid intact for diffing purposes, by comparing the eid ls reports
// for the committed /keep with the one it reports for /keep-copy after the
// copy from revision 1.
func TestScenarioCpPreservesEid(t *testing.T) {
	sd := newScenarioStoreDir(t)

	runArb(t, withSD(sd, "mkdir", "/keep")...)
	runArb(t, withSD(sd, "commit", "-m", "seed")...)
	out := runArb(t, withSD(sd, "ls", "/")...)
	if !strings.Contains(out, "keep") {
		t.Fatalf("expected /keep to exist after the seed commit, got %q", out)
	}
	keepEid := lsEid(out, "keep")

	out = runArb(t, withSD(sd, "cp", "1", "/keep", "/keep-copy")...)
	if !strings.Contains(out, "keep-copy") {
		t.Fatalf("expected cp to report the new path, got %q", out)
	}

	out = runArb(t, withSD(sd, "ls", "/")...)
	if got := lsEid(out, "keep-copy"); got == "" || got != keepEid {
		t.Fatalf("expected /keep-copy to carry /keep's eid %q, got %q (ls: %q)", keepEid, got, out)
	}
}

// lsEid returns the eid column of the ls output line naming name, or ""
// when no line names it.
func lsEid(out, name string) string {
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) == 3 && f[2] == name {
			return f[1]
		}
	}
	return ""
}
