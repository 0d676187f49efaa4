package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/types"
)

var putCmd = &cobra.Command{
	Use:     "put LOCAL PATH",
	GroupID: "edit",
	Short:   "Set a file element's content from a local file, creating it if necessary",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", types.ErrIncorrectParams, args[0], err)
		}
		working, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}

		if eid, err := resolvePath(working.Tree, args[1]); err == nil {
			existing, _ := working.Tree.Get(eid)
			if err := working.Alter(eid, existing.ParentEid, existing.Name, types.FilePayload(existing.Payload.Props, data)); err != nil {
				return err
			}
			appCtx.WC.RecordCommand(fmt.Sprintf("put %s %s", args[0], args[1]))
			if err := saveWorkingCopy(); err != nil {
				return err
			}
			fmt.Printf("M %s\n", args[1])
			return nil
		}

		parentPath, name := splitParentPath(args[1])
		parentEid, err := resolvePath(working.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[1])
		}
		eid := appCtx.WC.EditTxn.NewEid()
		if err := working.Alter(eid, parentEid, name, types.FilePayload(nil, data)); err != nil {
			return err
		}
		appCtx.WC.RecordCommand(fmt.Sprintf("put %s %s", args[0], args[1]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A %s\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
