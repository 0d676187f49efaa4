package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/types"
)

var lsCmd = &cobra.Command{
	Use:     "ls PATH",
	GroupID: "inspect",
	Short:   "List the children of a directory element in the working branch",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		bid, eid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[0])
		if err != nil {
			return err
		}
		st, _ := appCtx.WC.EditTxn.GetBranch(bid)

		children := st.Tree.Children(eid)
		type row struct {
			Name string `json:"name"`
			Eid  int64  `json:"eid"`
			Kind string `json:"kind"`
		}
		rows := make([]row, 0, len(children))
		for _, c := range children {
			content, _ := st.Tree.Get(c)
			rows = append(rows, row{Name: content.Name, Eid: int64(c), Kind: kindName(content.Payload.Kind)})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

		if printJSON(rows) {
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%-10s %8d  %s\n", r.Kind, r.Eid, r.Name)
		}
		return nil
	},
}

func kindName(k types.PayloadKind) string {
	switch k {
	case types.PayloadDir:
		return "dir"
	case types.PayloadFile:
		return "file"
	case types.PayloadSubbranchRoot:
		return "subbranch"
	default:
		return "?"
	}
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
