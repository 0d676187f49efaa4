// Command arb is the CLI surface for the element-identity version-control
// client: one Cobra command per action, one command file per action, each
// registering itself via rootCmd.AddCommand in its init(). main.go owns
// rootCmd, the persistent flags, and PersistentPreRunE's job of building
// the shared *cli.Context every command file reads from.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/brstore"
	"github.com/arborvc/arbor/internal/cli"
	"github.com/arborvc/arbor/internal/config"
	"github.com/arborvc/arbor/internal/logx"
	"github.com/arborvc/arbor/internal/remote"
	"github.com/arborvc/arbor/internal/repos"
	"github.com/arborvc/arbor/internal/repos/cache"
	"github.com/arborvc/arbor/internal/types"
	"github.com/arborvc/arbor/internal/uiio"
	"github.com/arborvc/arbor/internal/wcopy"
)

// defaultTopLevelBid is the branch a fresh working copy checks out when no
// prior state file exists.
const defaultTopLevelBid branch.Bid = "B0"

var (
	appCtx *cli.Context

	flagJSON      bool
	flagVerbose   bool
	flagRemoteURL string
	flagStoreDir  string
)

var rootCmd = &cobra.Command{
	Use:           "arb",
	Short:         "Element-identity version control, experimental branching client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "inspect", Title: "Inspection:"},
		&cobra.Group{ID: "edit", Title: "Editing:"},
		&cobra.Group{ID: "sync", Title: "Synchronization:"},
	)
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print configuration provenance and extra diagnostics")
	rootCmd.PersistentFlags().StringVar(&flagRemoteURL, "remote-url", "", "remote repository URL (overrides config remote-url)")
	rootCmd.PersistentFlags().StringVar(&flagStoreDir, "store-dir", "", "branching-info store directory (overrides config branching-info.path)")
	rootCmd.PersistentPreRunE = persistentPreRun
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cli.FatalError(err)
	}
}

// persistentPreRun builds the shared cli.Context: configuration resolution
// (flag > env > config file > default, via internal/config), the logger,
// and the wired-up in-process Provider + branching-info Store. A real
// deployment would swap InProcess for a network-backed Provider
// implementation; the core and the CLI layer depend only on the
// remote.Provider interface, so that swap touches nothing here.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(); err != nil {
		return err
	}

	appCtx = cli.NewContext()
	appCtx.JSONOutput = flagJSON || config.GetBool("json")
	appCtx.Verbose = flagVerbose || config.GetBool("verbose")
	appCtx.RemoteURL = firstNonEmpty(flagRemoteURL, config.GetString("remote-url"))
	appCtx.StoreDir = firstNonEmpty(flagStoreDir, config.GetString("branching-info.path"))
	appCtx.LockTimeout = config.GetDuration("lock-timeout")

	lvl := logx.LevelInfo
	if appCtx.Verbose {
		lvl = logx.LevelDebug
	}
	if logPath := config.GetString("log.path"); logPath != "" {
		appCtx.Log = logx.NewRotating(lvl, logPath, 10, 3)
	} else {
		appCtx.Log = logx.New(lvl)
	}

	if appCtx.Verbose {
		for _, o := range config.CheckOverrides(map[string]interface{}{
			"remote-url": appCtx.RemoteURL,
			"store-dir":  appCtx.StoreDir,
		}) {
			cfgWarnOverride(o)
		}
	}

	if err := os.MkdirAll(appCtx.StoreDir, 0o755); err != nil {
		return fmt.Errorf("arbor: preparing store dir: %w", err)
	}
	store, err := openBranchingInfoStore(appCtx.StoreDir, config.GetString("branching-info.backend"))
	if err != nil {
		return err
	}
	appCtx.Store = store
	appCtx.UserIO = uiio.NewDefault()
	appCtx.Provider = inProcessProvider(appCtx.StoreDir)
	return nil
}

// openBranchingInfoStore selects the branching-info.backend named by
// backend: "dir" for a directory of per-revision TOML files, "revprop" for
// the SQLite-backed store standing in for remote revision properties.
func openBranchingInfoStore(storeDir, backend string) (brstore.Store, error) {
	switch backend {
	case "revprop":
		return brstore.OpenRevPropStore(filepath.Join(storeDir, "branching-info.sqlite"))
	default:
		return brstore.OpenDirStore(storeDir)
	}
}

func cfgWarnOverride(o config.ConfigOverride) {
	fmt.Fprintf(os.Stderr, "config: %s overridden by flag (was %s)\n", o.Key, o.OriginalSource)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// inProcessProvider lazily creates and caches a single-process
// remote.Provider backed by a fresh Repos, seeded with an initial empty
// top-level branch "B0" when no Repos exists yet in this process (the
// store directory is not consulted). This stands in for the network-backed remote access layer a
// real deployment would supply.
var sharedRepos *repos.Repos

func inProcessProvider(storeDir string) remote.Provider {
	if sharedRepos == nil {
		txn := branch.NewTxn(types.InvalidRevnum)
		txn.NewTopLevelBranch(0)
		sharedRepos = repos.NewSeeded(txn)
	}
	if !config.GetBool("cache.enabled") {
		return remote.NewInProcess(sharedRepos, filepath.Join(storeDir, "repo"))
	}
	cachePath := config.GetString("cache.path")
	if cachePath == "" {
		cachePath = filepath.Join(storeDir, "fetch-cache.sqlite")
	}
	c, err := cache.Open(cachePath)
	if err != nil {
		// A broken local cache is not worth failing the whole command over;
		// fall back to uncached fetches.
		return remote.NewInProcess(sharedRepos, filepath.Join(storeDir, "repo"))
	}
	return remote.NewInProcessCached(sharedRepos, filepath.Join(storeDir, "repo"), c)
}

// wcStatePath is where the working copy's edit txn is persisted between
// separate arb invocations: the core models a single long-lived working
// copy object, but a CLI process only lives for one action.
func wcStatePath() string {
	return filepath.Join(appCtx.StoreDir, "wc-state.yaml")
}

// loadOrInitWorkingCopy restores a previously saved working copy, or
// checks out bid at revision 0 if none exists yet.
func loadOrInitWorkingCopy(defaultBid branch.Bid) error {
	path := wcStatePath()
	if _, err := os.Stat(path); err == nil {
		wc, err := wcopy.LoadState(path)
		if err != nil {
			return err
		}
		if err := wc.AttachSession(appCtx.RootCtx, appCtx.Provider, appCtx.RemoteURL, appCtx.StoreDir); err != nil {
			return err
		}
		appCtx.WC = wc
		return nil
	}
	wc, err := wcopy.Open(appCtx.RootCtx, appCtx.Provider, appCtx.RemoteURL, appCtx.StoreDir, 0, defaultBid)
	if err != nil {
		return err
	}
	appCtx.WC = wc
	return nil
}

// saveWorkingCopy persists appCtx.WC for the next invocation. Call this at
// the end of every mutating command.
func saveWorkingCopy() error {
	return appCtx.WC.Save(wcStatePath())
}

// --- Revision selector and branch-identifier parsing ---

// parseRevisionSelector accepts HEAD, BASE/COMMITTED, or an integer
// revision.
func parseRevisionSelector(s string, head, base types.Revnum) (types.Revnum, error) {
	switch strings.ToUpper(s) {
	case "HEAD":
		return head, nil
	case "BASE", "COMMITTED":
		return base, nil
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return types.InvalidRevnum, fmt.Errorf("%w: revision selector %q", types.ErrCLArgParsing, s)
		}
		return types.Revnum(n), nil
	}
}

// parseBranchPath parses "^B<bid>/<relpath>" or a bare relpath (using
// defaultBid) into (bid, relpath).
func parseBranchPath(s string, defaultBid branch.Bid) (branch.Bid, string) {
	if !strings.HasPrefix(s, "^") {
		return defaultBid, s
	}
	rest := s[1:]
	parts := strings.SplitN(rest, "/", 2)
	bid := branch.NormalizeBid(parts[0])
	relpath := ""
	if len(parts) == 2 {
		relpath = parts[1]
	}
	return bid, relpath
}

// printJSON writes v as JSON to stdout when --json is set, returning true
// if it did so (so callers can fall back to text output otherwise).
func printJSON(v interface{}) bool {
	if !appCtx.JSONOutput {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	return true
}
