package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/cli"
	"github.com/arborvc/arbor/internal/diffengine"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

var diffCmd = &cobra.Command{
	Use:     "diff L R",
	GroupID: "inspect",
	Short:   "Show element differences between two branch paths",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		lBid, lEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[0])
		if err != nil {
			return err
		}
		rBid, rEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[1])
		if err != nil {
			return err
		}
		lSt, _ := appCtx.WC.EditTxn.GetBranch(lBid)
		rSt, _ := appCtx.WC.EditTxn.GetBranch(rBid)

		left := flattenSubtree(lSt.Tree, lEid)
		right := flattenSubtree(rSt.Tree, rEid)

		diffs := diffengine.ElementDifferences(left, right)
		ordered := diffengine.Ordered(diffs, left)

		if printJSON(ordered) {
			return nil
		}
		for _, d := range ordered {
			p := cli.PrefixFor(d, false)
			flags := cli.DiffFlags(d)
			var name string
			if d.Right != nil {
				name = elementPath(right, d.Eid)
			} else {
				name = elementPath(left, d.Eid)
			}
			if flags != "" {
				fmt.Printf("%s%s %s\n", p.Render(), flags, name)
			} else {
				fmt.Printf("%s %s\n", p.Render(), name)
			}
		}
		return nil
	},
}

// flattenSubtree materializes the subtree of tree rooted at root as a
// standalone Tree.
func flattenSubtree(tree *etree.Tree, root types.Eid) *etree.Tree {
	sub := etree.NewSubtree(tree, root)
	out := etree.New(root)
	for _, eid := range sub.Eids() {
		if eid == root {
			continue
		}
		c, _ := sub.Get(eid)
		_ = out.Put(eid, c)
	}
	if c, ok := sub.Get(root); ok {
		_ = out.Put(root, types.ElementContent{ParentEid: types.RootParent, Name: "", Payload: c.Payload})
	}
	return out
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
