package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
)

var rmCmd = &cobra.Command{
	Use:     "rm PATH",
	GroupID: "edit",
	Short:   "Remove an element and its descendants from the working branch",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		working, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}
		eid, err := resolvePath(working.Tree, args[0])
		if err != nil {
			return err
		}
		if err := deleteSubtree(working, eid); err != nil {
			return err
		}
		appCtx.WC.RecordCommand(fmt.Sprintf("rm %s", args[0]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("D %s\n", args[0])
		return nil
	},
}

// deleteSubtree removes eid and every one of its descendants, deepest
// first, so that no commit is ever left with orphaned children. Delete
// itself removes only the one element and leaves its children orphaned;
// rm removes the descendants too, in one action.
func deleteSubtree(st *branch.State, eid types.Eid) error {
	sub := etree.NewSubtree(st.Tree, eid)
	children := sub.Eids()
	// Delete deepest-first: repeatedly remove any eid whose children are
	// already gone, since Children() walks the live tree.
	for len(children) > 0 {
		progressed := false
		remaining := children[:0:0]
		for _, e := range children {
			if e == eid {
				continue
			}
			if len(st.Tree.Children(e)) == 0 {
				if err := st.Delete(e); err != nil {
					return err
				}
				progressed = true
			} else {
				remaining = append(remaining, e)
			}
		}
		children = remaining
		if !progressed && len(children) > 0 {
			return fmt.Errorf("arbor: could not resolve deletion order under %d", eid)
		}
	}
	return st.Delete(eid)
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
