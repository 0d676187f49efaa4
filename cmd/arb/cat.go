package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/types"
)

var catCmd = &cobra.Command{
	Use:     "cat PATH",
	GroupID: "inspect",
	Short:   "Print a file element's content from the working branch",
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
		content, ok := st.Tree.Get(eid)
		if !ok {
			return fmt.Errorf("%w: %q", types.ErrEidNotFound, args[0])
		}
		if content.Payload.Kind != types.PayloadFile {
			return fmt.Errorf("%w: %q is not a file element", types.ErrIncorrectParams, args[0])
		}
		_, err = os.Stdout.Write(content.Payload.Text)
		return err
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
