package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/mergeengine"
	"github.com/arborvc/arbor/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:     "merge FROM TO YCA",
	GroupID: "edit",
	Short:   "Three-way merge FROM into TO using YCA as the common ancestor",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		fromBid, _ := parseBranchPath(args[0], appCtx.WC.Working.Bid)
		toBid, _ := parseBranchPath(args[1], appCtx.WC.Working.Bid)
		ycaBid, _ := parseBranchPath(args[2], appCtx.WC.Working.Bid)

		fromSt, ok := appCtx.WC.EditTxn.GetBranch(fromBid)
		if !ok {
			return fmt.Errorf("%w: branch %s not present in working copy", types.ErrBranching, fromBid)
		}
		toSt, ok := appCtx.WC.EditTxn.GetBranch(toBid)
		if !ok {
			return fmt.Errorf("%w: branch %s not present in working copy", types.ErrBranching, toBid)
		}
		ycaSt, ok := appCtx.WC.EditTxn.GetBranch(ycaBid)
		if !ok {
			ycaSt, ok = appCtx.WC.BaseTxn.GetBranch(ycaBid)
			if !ok {
				return fmt.Errorf("%w: ancestor branch %s not found", types.ErrBranching, ycaBid)
			}
		}

		outcome, err := mergeengine.Merge(ycaSt.Tree, fromSt.Tree, toSt.Tree)
		if err != nil {
			return err
		}
		if !outcome.Report.IsEmpty() {
			printConflictReport(outcome.Report)
			return fmt.Errorf("%w: merge left %d conflict(s)", types.ErrBranching, outcome.Report.Count())
		}
		toSt.Tree = outcome.Result
		appCtx.WC.RecordCommand(fmt.Sprintf("merge %s %s %s", args[0], args[1], args[2]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("merged %s into %s (ancestor %s)\n", fromBid, toBid, ycaBid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
