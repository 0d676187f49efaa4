package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/cli"
	"github.com/arborvc/arbor/internal/config"
	"github.com/arborvc/arbor/internal/diffengine"
	"github.com/arborvc/arbor/internal/watch"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "inspect",
	Short:   "Show differences between the working branch and its base",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		warnOnExternalChange(appCtx.StoreDir)
		baseSt, ok := appCtx.WC.BaseTxn.GetBranch(appCtx.WC.Base.Bid)
		if !ok {
			return fmt.Errorf("base branch %s missing", appCtx.WC.Base.Bid)
		}
		workingSt, err := appCtx.WC.WorkingBranch()
		if err != nil {
			return err
		}

		diffs := diffengine.ElementDifferences(baseSt.Tree, workingSt.Tree)
		ordered := diffengine.Ordered(diffs, baseSt.Tree)

		if printJSON(ordered) {
			return nil
		}
		for _, d := range ordered {
			tree := workingSt.Tree
			if d.Right == nil {
				tree = baseSt.Tree
			}
			p := cli.PrefixFor(d, false)
			flags := cli.DiffFlags(d)
			name := elementPath(tree, d.Eid)
			if flags != "" {
				fmt.Printf("%s %s  (%s)\n", p.Render(), name, flags)
			} else {
				fmt.Printf("%s %s\n", p.Render(), name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// warnOnExternalChange briefly watches the branching-info store directory
// for writes from another process (a concurrent commit) and, if one lands
// during the window, prints a warning that the working copy's view may be
// stale. Best-effort and non-blocking: it only catches a write that happens
// to land in the short window status spends watching.
func warnOnExternalChange(storeDir string) {
	if !config.GetBool("watch.enabled") {
		return
	}
	w, err := watch.Watch(appCtx.RootCtx, storeDir, 250*time.Millisecond)
	if err != nil {
		return
	}
	defer w.Close()
	select {
	case ev, ok := <-w.C:
		if ok {
			fmt.Fprintf(os.Stderr, "warning: branching-info store changed externally (%s); run `arb update` to pick up new revisions\n", ev.Path)
		}
	case <-time.After(30 * time.Millisecond):
	}
}
