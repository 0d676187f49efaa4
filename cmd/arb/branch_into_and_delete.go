package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

var branchIntoAndDeleteCmd = &cobra.Command{
	Use:     "branch-into-and-delete SRC DST",
	GroupID: "edit",
	Short:   "Branch SRC into DST's existing sub-branch, overwriting it, then delete the original SRC",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		srcBid, srcEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[0])
		if err != nil {
			return err
		}
		srcSt, _ := appCtx.WC.EditTxn.GetBranch(srcBid)
		sourceTree, sourceRoot := branchSource(appCtx.WC.EditTxn, srcBid, srcEid)

		dstBid, dstEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[1])
		if err != nil {
			return err
		}
		dstSt, _ := appCtx.WC.EditTxn.GetBranch(dstBid)
		content, _ := dstSt.Tree.Get(dstEid)
		if content.Payload.Kind != types.PayloadSubbranchRoot {
			return fmt.Errorf("%w: %q is not a sub-branch root; use branch-and-delete to create one", types.ErrIncorrectParams, args[1])
		}
		if srcBid == dstBid {
			return fmt.Errorf("%w: SRC and DST are in the same branch; use mv instead", types.ErrIncorrectParams)
		}

		nestedSt, existed := appCtx.WC.EditTxn.FindNestedBranch(dstBid, dstEid)
		if !existed {
			innerRootEid := appCtx.WC.EditTxn.NewEid()
			nestedSt = appCtx.WC.EditTxn.OpenBranch(dstSt, nil, dstEid, innerRootEid)
		} else {
			fmt.Fprintf(os.Stderr, "warning: branch-into-and-delete overwrites existing content of %s\n", nestedSt.ID)
		}

		replacement := etree.New(nestedSt.Tree.RootEid)
		if err := etree.CopySubtreeRerooted(replacement, sourceTree, sourceRoot, nestedSt.Tree.RootEid); err != nil {
			return err
		}
		nestedSt.Tree = replacement

		if err := deleteSubtree(srcSt, srcEid); err != nil {
			return err
		}

		appCtx.WC.RecordCommand(fmt.Sprintf("branch-into-and-delete %s %s", args[0], args[1]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A+ %s  (sub-branch %s replaced from %s, branch-into-and-delete)\n", args[1], nestedSt.ID, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(branchIntoAndDeleteCmd)
}
