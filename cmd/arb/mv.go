package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/types"
	"github.com/arborvc/arbor/internal/uiio"
)

var mvCmd = &cobra.Command{
	Use:     "mv SRC DST",
	GroupID: "edit",
	Short:   "Rename or reparent an element in place, preserving its eid",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadOrInitWorkingCopy(defaultTopLevelBid); err != nil {
			return err
		}
		srcBid, srcEid, err := resolveBranchPath(appCtx.WC.EditTxn, appCtx.WC.Working.Bid, args[0])
		if err != nil {
			return err
		}
		dstBid, _ := parseBranchPath(args[1], appCtx.WC.Working.Bid)
		if dstBid != srcBid {
			return mvAcrossBranches(args, srcBid, srcEid, dstBid)
		}
		st, _ := appCtx.WC.EditTxn.GetBranch(srcBid)

		content, ok := st.Tree.Get(srcEid)
		if !ok {
			return fmt.Errorf("%w: %d", types.ErrEidNotFound, srcEid)
		}
		parentPath, name := splitParentPath(args[1])
		dstParentEid, err := resolvePath(st.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[1])
		}
		if err := st.Alter(srcEid, dstParentEid, name, content.Payload); err != nil {
			return err
		}
		appCtx.WC.RecordCommand(fmt.Sprintf("mv %s %s", args[0], args[1]))
		if err := saveWorkingCopy(); err != nil {
			return err
		}
		fmt.Printf("V %s  (from %s)\n", args[1], args[0])
		return nil
	},
}

// mvAcrossBranches handles a move whose destination lives in a different
// branch: not a simple reparent, since the destination element belongs to a
// different ElementTree. Non-interactively this is a BRANCHING error; with
// a terminal attached the user picks which composite action expresses the
// intended move.
func mvAcrossBranches(args []string, srcBid branch.Bid, srcEid types.Eid, dstBid branch.Bid) error {
	summary := fmt.Sprintf("mv %s -> %s crosses branches (%s -> %s)", args[0], args[1], srcBid, dstBid)
	crossErr := fmt.Errorf("%w: %s; use copy-and-delete, branch-and-delete, or branch-into-and-delete instead",
		types.ErrBranching, summary)

	choice, err := appCtx.UserIO.PromptChoice(appCtx.RootCtx, summary, []uiio.Option{
		{Key: "c", Label: "copy-and-delete: plain copy to DST, delete SRC"},
		{Key: "b", Label: "branch-and-delete: new sub-branch at DST from SRC, delete SRC"},
		{Key: "i", Label: "branch-into-and-delete: replace DST's sub-branch with SRC, delete SRC"},
	})
	if err != nil {
		if errors.Is(err, types.ErrCancelled) {
			return crossErr
		}
		return err
	}

	srcSt, _ := appCtx.WC.EditTxn.GetBranch(srcBid)
	dstSt, ok := appCtx.WC.EditTxn.GetBranch(dstBid)
	if !ok {
		return fmt.Errorf("%w: branch %s not present in working copy", types.ErrBranching, dstBid)
	}
	_, dstRelpath := parseBranchPath(args[1], appCtx.WC.Working.Bid)

	switch choice {
	case "c":
		parentPath, name := splitParentPath(dstRelpath)
		dstParentEid, err := resolvePath(dstSt.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[1])
		}
		if err := dstSt.CopyTree(srcSt.Tree, srcEid, dstParentEid, name); err != nil {
			return err
		}
	case "b":
		sourceTree, sourceRoot := branchSource(appCtx.WC.EditTxn, srcBid, srcEid)
		parentPath, name := splitParentPath(dstRelpath)
		dstParentEid, err := resolvePath(dstSt.Tree, parentPath)
		if err != nil {
			return fmt.Errorf("%w: parent of %q", err, args[1])
		}
		hostEid := appCtx.WC.EditTxn.NewEid()
		if err := dstSt.Alter(hostEid, dstParentEid, name, types.SubbranchRootPayload()); err != nil {
			return err
		}
		innerRootEid := appCtx.WC.EditTxn.NewEid()
		nestedSt := appCtx.WC.EditTxn.OpenBranch(dstSt, nil, hostEid, innerRootEid)
		if err := etree.CopySubtreeRerooted(nestedSt.Tree, sourceTree, sourceRoot, innerRootEid); err != nil {
			return err
		}
	case "i":
		sourceTree, sourceRoot := branchSource(appCtx.WC.EditTxn, srcBid, srcEid)
		dstEid, err := resolvePath(dstSt.Tree, dstRelpath)
		if err != nil {
			return err
		}
		content, _ := dstSt.Tree.Get(dstEid)
		if content.Payload.Kind != types.PayloadSubbranchRoot {
			return fmt.Errorf("%w: %q is not a sub-branch root", types.ErrIncorrectParams, args[1])
		}
		nestedSt, ok := appCtx.WC.EditTxn.FindNestedBranch(dstBid, dstEid)
		if !ok {
			innerRootEid := appCtx.WC.EditTxn.NewEid()
			nestedSt = appCtx.WC.EditTxn.OpenBranch(dstSt, nil, dstEid, innerRootEid)
		}
		replacement := etree.New(nestedSt.Tree.RootEid)
		if err := etree.CopySubtreeRerooted(replacement, sourceTree, sourceRoot, nestedSt.Tree.RootEid); err != nil {
			return err
		}
		nestedSt.Tree = replacement
	default:
		return crossErr
	}

	if err := deleteSubtree(srcSt, srcEid); err != nil {
		return err
	}
	appCtx.WC.RecordCommand(fmt.Sprintf("mv %s %s", args[0], args[1]))
	if err := saveWorkingCopy(); err != nil {
		return err
	}
	fmt.Printf("V %s  (from %s, cross-branch %s)\n", args[1], args[0], choice)
	return nil
}

func init() {
	rootCmd.AddCommand(mvCmd)
}
