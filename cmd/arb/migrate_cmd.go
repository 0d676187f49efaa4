package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate .@REV",
	GroupID: "sync",
	Short:   "Replay legacy path-based history up to REV against the working branch's element txn",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		_, sel := splitAtRevision(args[0])
		head, err := appCtx.WC.Provider().GetLatestRevnum(appCtx.RootCtx, appCtx.WC.Session())
		if err != nil {
			return err
		}
		toRev, err := parseRevisionSelector(sel, head, appCtx.WC.Base.Revision)
		if err != nil {
			return err
		}
		fromRev := appCtx.WC.HeadRevision + 1
		if fromRev > toRev {
			fmt.Println("nothing to migrate")
			return nil
		}
		if err := appCtx.WC.Migrate(appCtx.RootCtx, fromRev, toRev); err != nil {
			return err
		}
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("migrated revisions %d:%d\n", fromRev, toRev)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
