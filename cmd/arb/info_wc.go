package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoWcCmd = &cobra.Command{
	Use:     "info-wc",
	GroupID: "inspect",
	Short:   "Show the working copy's base/working anchors and state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		wc := appCtx.WC
		if printJSON(map[string]interface{}{
			"base":          wc.Base,
			"working":       wc.Working,
			"head_revision": wc.HeadRevision,
			"phase":         wc.Phase.String(),
			"commands":      wc.ListOfCommands,
		}) {
			return nil
		}
		fmt.Printf("base:     rev %d, branch %s\n", wc.Base.Revision, wc.Base.Bid)
		fmt.Printf("working:  rev %d, branch %s\n", wc.Working.Revision, wc.Working.Bid)
		fmt.Printf("head:     rev %d\n", wc.HeadRevision)
		fmt.Printf("phase:    %s\n", wc.Phase)
		if len(wc.ListOfCommands) > 0 {
			fmt.Println("pending actions:")
			for _, c := range wc.ListOfCommands {
				fmt.Printf("  - %s\n", c)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoWcCmd)
}
