package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cpCmd = &cobra.Command{
	Use:     "cp REV SRC DST",
	GroupID: "edit",
	Short:   "Copy an element subtree from a historical revision into the working branch, preserving eids",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		head, err := appCtx.WC.Provider().GetLatestRevnum(appCtx.RootCtx, appCtx.WC.Session())
		if err != nil {
			return err
		}
		rev, err := parseRevisionSelector(args[0], head, appCtx.WC.Base.Revision)
		if err != nil {
			return err
		}

		srcBid, srcRelpath := parseBranchPath(args[1], appCtx.WC.Working.Bid)
		srcTxn, _, err := appCtx.WC.Provider().LoadBranchingState(appCtx.RootCtx, appCtx.WC.Session(), appCtx.StoreDir, rev)
		if err != nil {
			return err
		}
		srcSt, ok := srcTxn.GetBranch(srcBid)
		if !ok {
			return fmt.Errorf("branch %s not present at revision %d", srcBid, rev)
		}
		srcEid, err := resolvePath(srcSt.Tree, srcRelpath)
		if err != nil {
			return err
		}

		working, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}
		parentPath, name := splitParentPath(args[2])
		dstParentEid, err := resolvePath(working.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[2])
		}
		if err := working.CopyTree(srcSt.Tree, srcEid, dstParentEid, name); err != nil {
			return err
		}
		appCtx.WC.RecordCommand(fmt.Sprintf("cp %s %s %s", args[0], args[1], args[2]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A+ %s  (from %s@%d)\n", args[2], args[1], rev)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
