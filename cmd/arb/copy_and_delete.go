package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/types"
)

var copyAndDeleteCmd = &cobra.Command{
	Use:     "copy-and-delete SRC DST",
	GroupID: "edit",
	Short:   "Copy SRC's subtree to DST, then delete the original SRC (a move across branches)",
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

		working, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}
		if srcBid == working.ID {
			return fmt.Errorf("%w: SRC and DST are in the same branch; use mv instead", types.ErrIncorrectParams)
		}
		parentPath, name := splitParentPath(args[1])
		dstParentEid, err := resolvePath(working.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[1])
		}
		if err := working.CopyTree(srcSt.Tree, srcEid, dstParentEid, name); err != nil {
			return err
		}
		if err := deleteSubtree(srcSt, srcEid); err != nil {
			return err
		}

		appCtx.WC.RecordCommand(fmt.Sprintf("copy-and-delete %s %s", args[0], args[1]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("V %s  (from %s, copy-and-delete)\n", args[1], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(copyAndDeleteCmd)
}
