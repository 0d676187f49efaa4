// Package cli holds the shared runtime state and presentation helpers used
// across cmd/arb's command files: a Context consolidating configuration
// and live handles (one struct, not scattered globals), plus the
// FatalError/WarnError helpers and lipgloss-based status-prefix
// rendering.
package cli

import (
	"context"
	"time"

	"github.com/arborvc/arbor/internal/brstore"
	"github.com/arborvc/arbor/internal/logx"
	"github.com/arborvc/arbor/internal/remote"
	"github.com/arborvc/arbor/internal/uiio"
	"github.com/arborvc/arbor/internal/wcopy"
)

// Context consolidates the runtime state one invocation of arb needs:
// configuration derived from flags/env/config file, and the live handles
// (working copy, provider, store, logger) wired up in PersistentPreRun.
type Context struct {
	JSONOutput  bool
	Verbose     bool
	RemoteURL   string
	StoreDir    string
	LockTimeout time.Duration

	RootCtx context.Context

	Provider remote.Provider
	Store    brstore.Store
	WC       *wcopy.WorkingCopy
	UserIO   uiio.UserIO
	Log      *logx.Logger
}

// NewContext builds an empty Context; commands populate its fields during
// PersistentPreRun before RunE executes.
func NewContext() *Context {
	return &Context{RootCtx: context.Background(), Log: logx.New(logx.LevelInfo)}
}
