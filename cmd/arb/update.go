package main

import (
	"fmt"

	"github.com/arborvc/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:     "update [.@REV]",
	GroupID: "sync",
	Short:   "Bring the working branch forward to REV (default HEAD), merging local changes",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		sel := "HEAD"
		if len(args) == 1 {
			_, sel = splitAtRevision(args[0])
		}
		head, err := appCtx.WC.Provider().GetLatestRevnum(appCtx.RootCtx, appCtx.WC.Session())
		if err != nil {
			return err
		}
		rev, err := parseRevisionSelector(sel, head, appCtx.WC.Base.Revision)
		if err != nil {
			return err
		}

		report, err := appCtx.WC.Update(appCtx.RootCtx, rev)
		if warning := appCtx.WC.LastWarning(); warning != "" {
			cli.Warn(warning)
		}
		if saveErr := saveWorkingCopy(); saveErr != nil && err == nil {
			return saveErr
		}
		if err != nil {
			if report != nil {
				printConflictReport(report)
			}
			return err
		}
		fmt.Printf("updated to revision %d\n", rev)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
