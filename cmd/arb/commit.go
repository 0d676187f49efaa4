package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/types"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:     "commit",
	GroupID: "sync",
	Short:   "Replay the working branch's changes against base into a new revision",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		revprops := map[string]string{}
		if commitMessage != "" {
			revprops["log"] = commitMessage
		}
		rev, err := appCtx.WC.Commit(appCtx.RootCtx, revprops)
		if err != nil {
			if errors.Is(err, types.ErrInvalidRevnum) {
				fmt.Println("nothing to commit")
				return nil
			}
			return err
		}
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		if printJSON(map[string]interface{}{"revision": rev}) {
			return nil
		}
		fmt.Printf("committed revision %d\n", rev)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit log message (default: the recorded action trail)")
	rootCmd.AddCommand(commitCmd)
}
