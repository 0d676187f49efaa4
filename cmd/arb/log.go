package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:     "log FROM TO",
	GroupID: "inspect",
	Short:   "Walk the predecessor chain of the working branch between two revisions",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		head, err := appCtx.WC.Provider().GetLatestRevnum(appCtx.RootCtx, appCtx.WC.Session())
		if err != nil {
			return err
		}
		from, err := parseRevisionSelector(args[0], head, appCtx.WC.Base.Revision)
		if err != nil {
			return err
		}
		to, err := parseRevisionSelector(args[1], head, appCtx.WC.Base.Revision)
		if err != nil {
			return err
		}
		if to > from {
			from, to = to, from
		}

		type entry struct {
			Revision int64  `json:"revision"`
			Bid      string `json:"bid"`
		}
		var entries []entry

		rev := from
		bid := appCtx.WC.Working.Bid
		for rev >= to {
			txn, _, err := appCtx.WC.Provider().LoadBranchingState(appCtx.RootCtx, appCtx.WC.Session(), appCtx.StoreDir, rev)
			if err != nil {
				return err
			}
			st, ok := txn.GetBranch(bid)
			if !ok {
				break
			}
			entries = append(entries, entry{Revision: int64(rev), Bid: string(bid)})
			if st.Predecessor == nil {
				break
			}
			pred := st.Predecessor
			if pred.Revision == rev && pred.Bid == bid {
				break
			}
			rev = pred.Revision
			bid = pred.Bid
			if rev < to {
				break
			}
		}

		if printJSON(entries) {
			return nil
		}
		for _, e := range entries {
			fmt.Printf("r%d %s\n", e.Revision, e.Bid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
