package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/types"
)

var mkbranchCmd = &cobra.Command{
	Use:     "mkbranch ROOT",
	GroupID: "edit",
	Short:   "Turn an existing directory element into a nested sub-branch root",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		working, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}
		hostEid, err := resolvePath(working.Tree, args[0])
		if err != nil {
			return err
		}
		content, _ := working.Tree.Get(hostEid)
		if content.Payload.Kind == types.PayloadSubbranchRoot {
			return fmt.Errorf("%w: %q is already a sub-branch root", types.ErrIncorrectParams, args[0])
		}
		if err := working.Alter(hostEid, content.ParentEid, content.Name, types.SubbranchRootPayload()); err != nil {
			return err
		}
		innerRootEid := appCtx.WC.EditTxn.NewEid()
		appCtx.WC.EditTxn.OpenBranch(working, nil, hostEid, innerRootEid)

		appCtx.WC.RecordCommand(fmt.Sprintf("mkbranch %s", args[0]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("A+ %s  (sub-branch root)\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mkbranchCmd)
}
