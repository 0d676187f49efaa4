package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

// cleanRelpath canonicalizes a user-supplied repository-relpath: inputs
// are repository-relpaths, canonical, non-URL.
func cleanRelpath(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}

// resolvePath walks tree from its root along relpath's components,
// returning the eid of the named element. An empty relpath resolves to
// the root itself.
func resolvePath(tree *etree.Tree, relpath string) (types.Eid, error) {
	relpath = cleanRelpath(relpath)
	cur := tree.RootEid
	if relpath == "" {
		return cur, nil
	}
	for _, name := range strings.Split(relpath, "/") {
		found := false
		for _, child := range tree.Children(cur) {
			c, _ := tree.Get(child)
			if c.Name == name {
				cur = child
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q not found", types.ErrEidNotFound, relpath)
		}
	}
	return cur, nil
}

// splitParentPath splits relpath into its parent repository-relpath and
// final name component.
func splitParentPath(relpath string) (parent, name string) {
	relpath = cleanRelpath(relpath)
	idx := strings.LastIndex(relpath, "/")
	if idx < 0 {
		return "", relpath
	}
	return relpath[:idx], relpath[idx+1:]
}

// elementPath reconstructs the repository-relpath of eid by walking parent
// pointers back to tree's root.
func elementPath(tree *etree.Tree, eid types.Eid) string {
	var parts []string
	cur := eid
	limit := len(tree.Eids()) + 1
	for i := 0; i < limit; i++ {
		if cur == tree.RootEid {
			break
		}
		c, ok := tree.Get(cur)
		if !ok {
			break
		}
		parts = append([]string{c.Name}, parts...)
		cur = c.ParentEid
	}
	return strings.Join(parts, "/")
}

// resolveBranchPath parses a "^B<bid>/<relpath>" or bare-relpath argument
// and resolves it to (bid, eid) within editTxn, using defaultBid when no
// "^B" prefix is given.
func resolveBranchPath(editTxn *branch.Txn, defaultBid branch.Bid, arg string) (branch.Bid, types.Eid, error) {
	bid, relpath := parseBranchPath(arg, defaultBid)
	st, ok := editTxn.GetBranch(bid)
	if !ok {
		return bid, 0, fmt.Errorf("%w: branch %s not present in working copy", types.ErrBranching, bid)
	}
	eid, err := resolvePath(st.Tree, relpath)
	if err != nil {
		return bid, 0, err
	}
	return bid, eid, nil
}
