package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var revertCmd = &cobra.Command{
	Use:     "revert",
	GroupID: "edit",
	Short:   "Discard working-branch edits, replaying the inverse delta against base",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		if err := appCtx.WC.Revert(appCtx.RootCtx); err != nil {
			return err
		}
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Println("reverted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revertCmd)
}
