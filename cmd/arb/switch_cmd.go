package main

import (
	"fmt"
	"strings"

	"github.com/arborvc/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:     "switch TARGET[@REV]",
	GroupID: "sync",
	Short:   "Re-check-out the working branch at TARGET, merging any local changes forward",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		target, sel := splitAtRevision(args[0])
		head, err := appCtx.WC.Provider().GetLatestRevnum(appCtx.RootCtx, appCtx.WC.Session())
		if err != nil {
			return err
		}
		rev, err := parseRevisionSelector(sel, head, appCtx.WC.Base.Revision)
		if err != nil {
			return err
		}
		targetBid, _ := parseBranchPath(target, appCtx.WC.Working.Bid)

		report, err := appCtx.WC.Switch(appCtx.RootCtx, rev, targetBid)
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
		fmt.Printf("switched to %s@%d\n", targetBid, rev)
		return nil
	},
}

// splitAtRevision splits "TARGET@REV" into (TARGET, REV), defaulting REV
// to "HEAD" when no "@" suffix is given.
func splitAtRevision(s string) (target, rev string) {
	idx := strings.LastIndex(s, "@")
	if idx < 0 {
		return s, "HEAD"
	}
	return s[:idx], s[idx+1:]
}

func init() {
	rootCmd.AddCommand(switchCmd)
}
