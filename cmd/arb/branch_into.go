package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

var branchIntoCmd = &cobra.Command{
	Use:     "branch-into SRC DST",
	GroupID: "edit",
	Short:   "Branch the subtree at SRC into DST's existing nested sub-branch, overwriting its content",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		srcBid, srcEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[0])
		if err != nil {
			return err
		}
		sourceTree, sourceRoot := branchSource(appCtx.WC.EditTxn, srcBid, srcEid)

		dstBid, dstEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[1])
		if err != nil {
			return err
		}
		dstSt, _ := appCtx.WC.EditTxn.GetBranch(dstBid)
		content, _ := dstSt.Tree.Get(dstEid)
		if content.Payload.Kind != types.PayloadSubbranchRoot {
			return fmt.Errorf("%w: %q is not a sub-branch root; use branch to create one", types.ErrIncorrectParams, args[1])
		}

		nestedSt, existed := appCtx.WC.EditTxn.FindNestedBranch(dstBid, dstEid)
		if !existed {
			innerRootEid := appCtx.WC.EditTxn.NewEid()
			nestedSt = appCtx.WC.EditTxn.OpenBranch(dstSt, nil, dstEid, innerRootEid)
		} else {
			// branch-into onto an already-open nested branch overwrites
			// rather than rejecting pre-existing eids, with a
			// warning-class notification.
			fmt.Fprintf(os.Stderr, "warning: branch-into overwrites existing content of %s\n", nestedSt.ID)
		}

		replacement := etree.New(nestedSt.Tree.RootEid)
		if err := etree.CopySubtreeRerooted(replacement, sourceTree, sourceRoot, nestedSt.Tree.RootEid); err != nil {
			return err
		}
		nestedSt.Tree = replacement

		appCtx.WC.RecordCommand(fmt.Sprintf("branch-into %s %s", args[0], args[1]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A+ %s  (sub-branch %s replaced from %s)\n", args[1], nestedSt.ID, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(branchIntoCmd)
}
