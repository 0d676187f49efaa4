package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/types"
)

var mkdirCmd = &cobra.Command{
	Use:     "mkdir PATH",
	GroupID: "edit",
	Short:   "Create a directory element at PATH in the working branch",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		working, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}
		parentPath, name := splitParentPath(args[0])
		parentEid, err := resolvePath(working.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[0])
		}
		eid := appCtx.WC.EditTxn.NewEid()
		if err := working.Alter(eid, parentEid, name, types.DirPayload(nil)); err != nil {
			return err
		}
		appCtx.WC.RecordCommand(fmt.Sprintf("mkdir %s", args[0]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd)
}
