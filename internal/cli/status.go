// Status rendering for diff/log/status output: the one-letter prefixes
// A/A+/D/M/V plus the v/r diff flags, colored with
// charmbracelet/lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/arborvc/arbor/internal/diffengine"
)

var (
	styleAdded    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))  // green
	styleAddedCp  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))  // cyan: branched/copied-added
	styleDeleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))  // red
	styleModified = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))  // yellow
	styleMoved    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))  // magenta
	styleFlag     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dim
)

// StatusPrefix is one of A, A+, D, M, V.
type StatusPrefix string

const (
	PrefixAdded       StatusPrefix = "A"
	PrefixAddedBranch StatusPrefix = "A+"
	PrefixDeleted     StatusPrefix = "D"
	PrefixModified    StatusPrefix = "M"
	PrefixMoved       StatusPrefix = "V"
)

// Render returns the colored status prefix text for terminal output.
func (p StatusPrefix) Render() string {
	switch p {
	case PrefixAdded:
		return styleAdded.Render(string(p))
	case PrefixAddedBranch:
		return styleAddedCp.Render(string(p))
	case PrefixDeleted:
		return styleDeleted.Render(string(p))
	case PrefixModified:
		return styleModified.Render(string(p))
	case PrefixMoved:
		return styleMoved.Render(string(p))
	default:
		return string(p)
	}
}

// PrefixFor derives the status prefix for a Difference: deletions map to
// D, additions to A (A+ when copiedIn), and changes to V when the element
// was reparented or renamed, otherwise M.
func PrefixFor(d *diffengine.Difference, copiedIn bool) StatusPrefix {
	switch d.Category() {
	case diffengine.CategoryDeletion:
		return PrefixDeleted
	case diffengine.CategoryAddition:
		if copiedIn {
			return PrefixAddedBranch
		}
		return PrefixAdded
	default:
		if d.Reparented || d.Renamed {
			return PrefixMoved
		}
		return PrefixModified
	}
}

// DiffFlags renders the v(reparented)/r(renamed) flags carried on diff
// lines, e.g. "vr" or "v" or "" when neither applies.
func DiffFlags(d *diffengine.Difference) string {
	flags := ""
	if d.Reparented {
		flags += "v"
	}
	if d.Renamed {
		flags += "r"
	}
	if flags == "" {
		return ""
	}
	return styleFlag.Render(flags)
}
