package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var branchesCmd = &cobra.Command{
	Use:     "branches PATH",
	GroupID: "inspect",
	Short:   "List every branch known in the working copy's edit transaction",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		type row struct {
			Bid     string `json:"bid"`
			RootEid int64  `json:"root_eid"`
		}
		var rows []row
		for bid, st := range appCtx.WC.EditTxn.Branches() {
			rows = append(rows, row{Bid: string(bid), RootEid: int64(st.Tree.RootEid)})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Bid < rows[j].Bid })

		if printJSON(rows) {
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%-16s root eid %d\n", r.Bid, r.RootEid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(branchesCmd)
}
