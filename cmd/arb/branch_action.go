package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

var branchCmd = &cobra.Command{
	Use:     "branch SRC DST",
	GroupID: "edit",
	Short:   "Branch the subtree at SRC into a brand-new nested sub-branch hosted at DST",
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

		working, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}
		if _, err := resolvePath(working.Tree, args[1]); err == nil {
			return fmt.Errorf("%w: %q already exists; use branch-into to replace it", types.ErrNameClash, args[1])
		}
		parentPath, name := splitParentPath(args[1])
		dstParentEid, err := resolvePath(working.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[1])
		}

		hostEid := appCtx.WC.EditTxn.NewEid()
		if err := working.Alter(hostEid, dstParentEid, name, types.SubbranchRootPayload()); err != nil {
			return err
		}
		innerRootEid := appCtx.WC.EditTxn.NewEid()
		nestedSt := appCtx.WC.EditTxn.OpenBranch(working, nil, hostEid, innerRootEid)
		if err := etree.CopySubtreeRerooted(nestedSt.Tree, sourceTree, sourceRoot, innerRootEid); err != nil {
			return err
		}

		appCtx.WC.RecordCommand(fmt.Sprintf("branch %s %s", args[0], args[1]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A+ %s  (sub-branch %s from %s)\n", args[1], nestedSt.ID, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(branchCmd)
}
