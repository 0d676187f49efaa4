// Error helpers confined to the CLI boundary: the core packages always
// return (T, error) and never call os.Exit; only cmd/arb's main loop
// converts a terminal error into process exit status 1 and the error
// taxonomy name: any non-success error terminates with exit status 1 and
// prints the taxonomy name.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/arborvc/arbor/internal/types"
)

// TaxonomyName maps a sentinel error to the name printed for it.
func TaxonomyName(err error) string {
	switch {
	case errors.Is(err, types.ErrNoSuchRevision):
		return "NO_SUCH_REVISION"
	case errors.Is(err, types.ErrBranching), errors.Is(err, types.ErrBadParent),
		errors.Is(err, types.ErrNameClash), errors.Is(err, types.ErrDeleteRoot),
		errors.Is(err, types.ErrEidNotFound):
		return "BRANCHING"
	case errors.Is(err, types.ErrFSNotID):
		return "FS_NOT_ID"
	case errors.Is(err, types.ErrIncorrectParams), errors.Is(err, types.ErrInvalidRevnum):
		return "INCORRECT_PARAMS"
	case errors.Is(err, types.ErrCLArgParsing):
		return "CL_ARG_PARSING_ERROR"
	case errors.Is(err, types.ErrAuthnFailed):
		return "AUTHN_FAILED"
	case errors.Is(err, types.ErrCancelled):
		return "CANCELLED"
	default:
		return "ERROR"
	}
}

// FatalError prints err's taxonomy name and message to stderr and exits 1.
// Used only at the top of main's RunE chain.
func FatalError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", TaxonomyName(err), err)
	os.Exit(1)
}

// WarnError prints err to stderr without exiting, for interactive-mode
// pre-condition violations that abort only the current action.
func WarnError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", TaxonomyName(err), err)
}

// Warn prints a plain warning-class notification to stderr (branch-into
// overwrites, switch's different-rooted-target warning), distinct from
// WarnError's taxonomy-name prefix since these aren't errors at all.
func Warn(msg string) {
	fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
}
