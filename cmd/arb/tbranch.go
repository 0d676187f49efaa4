package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

var tbranchCmd = &cobra.Command{
	Use:     "tbranch SRC",
	GroupID: "edit",
	Short:   "Branch the subtree at SRC into a brand-new top-level branch, preserving eids",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		srcBid, srcEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[0])
		if err != nil {
			return err
		}
		sourceTree, sourceRoot := branchSource(appCtx.WC.EditTxn, srcBid, srcEid)

		newBid := appCtx.WC.EditTxn.AllocateTopLevelBid()
		if _, err := appCtx.WC.EditTxn.Branch(sourceTree, sourceRoot, newBid); err != nil {
			return err
		}

		appCtx.WC.RecordCommand(fmt.Sprintf("tbranch %s", args[0]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A+ %s  (new top-level branch from %s, root eid %d)\n", newBid, args[0], sourceRoot)
		return nil
	},
}

// branchSource resolves the tree and root eid that a branch/tbranch action
// should deep-copy from: if (bid, eid) names a sub-branch-root element,
// that is the nested branch's own tree and its own root eid (the "inner
// eid", disjoint from the hosting eid); an
// ordinary element is branched directly, using its own eid as the new
// branch's root.
func branchSource(editTxn *branch.Txn, bid branch.Bid, eid types.Eid) (*etree.Tree, types.Eid) {
	st, _ := editTxn.GetBranch(bid)
	content, _ := st.Tree.Get(eid)
	if content.Payload.Kind == types.PayloadSubbranchRoot {
		if nestedSt, ok := editTxn.FindNestedBranch(bid, eid); ok {
			return nestedSt.Tree, nestedSt.Tree.RootEid
		}
	}
	return st.Tree, eid
}

func init() {
	rootCmd.AddCommand(tbranchCmd)
}
