package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var lsBrRCmd = &cobra.Command{
	Use:     "ls-br-r [REV]",
	GroupID: "inspect",
	Short:   "List every branch known in the repository at a revision",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		sel := "HEAD"
		if len(args) == 1 {
			sel = args[0]
		}
		head, err := appCtx.WC.Provider().GetLatestRevnum(appCtx.RootCtx, appCtx.WC.Session())
		if err != nil {
			return err
		}
		rev, err := parseRevisionSelector(sel, head, appCtx.WC.Base.Revision)
		if err != nil {
			return err
		}
		txn, _, err := appCtx.WC.Provider().LoadBranchingState(appCtx.RootCtx, appCtx.WC.Session(), appCtx.StoreDir, rev)
		if err != nil {
			return err
		}

		var bids []string
		for bid := range txn.Branches() {
			bids = append(bids, string(bid))
		}
		sort.Strings(bids)

		if printJSON(map[string]interface{}{"revision": rev, "branches": bids}) {
			return nil
		}
		fmt.Printf("branches at revision %d:\n", rev)
		for _, bid := range bids {
			fmt.Printf("  %s\n", bid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsBrRCmd)
}
