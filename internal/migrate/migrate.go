// Package migrate implements the migration editor: replaying path-based
// deltas from legacy, pre-element-tracking history against a synthesized
// element txn. A move index, supplied by the caller as
// {revision -> []MoveInfo}, assigns persistent eids across renames and
// copy-from relationships so the same logical file keeps one eid across
// its whole migrated history.
//
// The move-index format-version check uses golang.org/x/mod/semver, the
// usual semantic-version comparison for compatibility gates on
// externally-authored schema.
package migrate

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/types"
)

// MoveInfo describes one path-based move recorded for a revision: the
// element at SourcePath as of CopyFromRev becomes TargetPath in the
// revision this MoveInfo belongs to.
type MoveInfo struct {
	SourcePath  string
	TargetPath  string
	CopyFromRev types.Revnum
}

// MoveIndex maps a source revision to the moves observed within it.
type MoveIndex struct {
	FormatVersion string
	Moves         map[types.Revnum][]MoveInfo
}

// MinSupportedFormatVersion is the oldest move-index schema this migration
// editor understands.
const MinSupportedFormatVersion = "v1.0.0"

// ValidateFormatVersion rejects a move index whose FormatVersion predates
// MinSupportedFormatVersion.
func ValidateFormatVersion(idx *MoveIndex) error {
	v := idx.FormatVersion
	if v == "" {
		return fmt.Errorf("%w: move index is missing a format_version", types.ErrIncorrectParams)
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: move index format_version %q is not valid semver", types.ErrIncorrectParams, idx.FormatVersion)
	}
	if semver.Compare(v, MinSupportedFormatVersion) < 0 {
		return fmt.Errorf("%w: move index format_version %s predates minimum supported %s",
			types.ErrIncorrectParams, idx.FormatVersion, MinSupportedFormatVersion)
	}
	return nil
}

// PathDelta is one path-keyed change within a legacy revision: add, open
// (an existing path touched without structural change), delete, or modify.
type PathDeltaKind int

const (
	PathAdd PathDeltaKind = iota
	PathOpen
	PathDelete
	PathModify
)

type PathDelta struct {
	Kind    PathDeltaKind
	Path    string
	Payload types.Payload // unused for PathDelete
}

// EidTable tracks the eid assigned to each live path, so repeated moves
// of the same logical element keep one persistent id across revisions.
type EidTable struct {
	byPath map[string]types.Eid
}

func newEidTable() *EidTable {
	return &EidTable{byPath: make(map[string]types.Eid)}
}

// MigrateRevision replays one legacy revision's PathDeltas plus its
// MoveInfo entries against dst, using txn to mint eids for paths seen for
// the first time and moves to carry an eid across a rename
// instead of minting a new one.
func MigrateRevision(txn *branch.Txn, dst *branch.State, table *EidTable, deltas []PathDelta, moves []MoveInfo) error {
	if table.byPath == nil {
		table.byPath = make(map[string]types.Eid)
	}

	moveTarget := make(map[string]types.Eid, len(moves))
	for _, mv := range moves {
		srcEid, ok := table.byPath[clean(mv.SourcePath)]
		if !ok {
			// A copy-from an as-yet-unseen source path is not migratable;
			// treat it as a fresh element instead of failing the whole
			// revision.
			continue
		}
		moveTarget[clean(mv.TargetPath)] = srcEid
		delete(table.byPath, clean(mv.SourcePath))
	}

	sorted := make([]PathDelta, len(deltas))
	copy(sorted, deltas)
	sort.SliceStable(sorted, func(i, j int) bool {
		return deltaRank(sorted[i].Kind) < deltaRank(sorted[j].Kind)
	})

	for _, d := range sorted {
		p := clean(d.Path)
		switch d.Kind {
		case PathDelete:
			eid, ok := table.byPath[p]
			if !ok {
				continue
			}
			if err := dst.Delete(eid); err != nil && err != types.ErrDeleteRoot {
				return fmt.Errorf("arbor: migrating delete of %q: %w", p, err)
			}
			delete(table.byPath, p)
		case PathAdd, PathModify, PathOpen:
			parentPath, name := path.Split(p)
			parentEid := dst.Tree.RootEid
			if cleanParent := clean(parentPath); cleanParent != "" {
				pe, ok := table.byPath[cleanParent]
				if !ok {
					return fmt.Errorf("%w: parent %q of %q not yet migrated", types.ErrBadParent, cleanParent, p)
				}
				parentEid = pe
			}
			eid, carried := moveTarget[p]
			if !carried {
				if existing, ok := table.byPath[p]; ok {
					eid = existing
				} else {
					eid = txn.NewEid()
				}
			}
			if err := dst.Alter(eid, parentEid, name, d.Payload); err != nil {
				return fmt.Errorf("arbor: migrating %q: %w", p, err)
			}
			table.byPath[p] = eid
		}
	}
	return nil
}

func deltaRank(k PathDeltaKind) int {
	switch k {
	case PathDelete:
		return 0
	default:
		return 1
	}
}

func clean(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}

// NewEidTable exposes eidTable construction to callers driving a
// multi-revision migration run, so the same table threads across calls to
// MigrateRevision.
func NewEidTable() *EidTable {
	return newEidTable()
}
