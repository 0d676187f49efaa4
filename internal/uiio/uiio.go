// Package uiio defines the injectable UserIO interface behind the one
// interactive prompt this client has: the c|b|i choice raised when a move
// crosses a branch boundary. The default implementation prompts with
// charmbracelet/huh when stdin is a real terminal (detected via
// golang.org/x/term) and otherwise returns ErrCancelled, since an
// unattended run has nobody to answer a prompt.
package uiio

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/arborvc/arbor/internal/types"
)

// Choice is the key of one selectable prompt answer.
type Choice string

// Option pairs a choice key with the label shown for it.
type Option struct {
	Key   Choice
	Label string
}

// UserIO is the narrow capability the core needs from an interactive
// front end. Tests and non-interactive callers supply a fake.
type UserIO interface {
	// PromptChoice asks the user to pick one of options, returning its
	// key, or types.ErrCancelled if the prompt was cancelled or no
	// terminal is attached.
	PromptChoice(ctx context.Context, summary string, options []Option) (Choice, error)
}

// Default is the terminal-backed UserIO used outside of tests.
type Default struct {
	In  *os.File
	Out *os.File
}

// NewDefault returns a Default wired to the process's stdin/stdout.
func NewDefault() *Default {
	return &Default{In: os.Stdin, Out: os.Stdout}
}

// IsInteractive reports whether In is a real terminal; a non-terminal
// caller cannot be prompted.
func (d *Default) IsInteractive() bool {
	return term.IsTerminal(int(d.In.Fd()))
}

func (d *Default) PromptChoice(ctx context.Context, summary string, options []Option) (Choice, error) {
	if !d.IsInteractive() {
		return "", types.ErrCancelled
	}

	var choice string
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", o.Label, o.Key), string(o.Key)))
	}
	field := huh.NewSelect[string]().
		Title(fmt.Sprintf("%s\nHow do you want to proceed?", summary)).
		Options(opts...).
		Value(&choice)

	form := huh.NewForm(huh.NewGroup(field)).WithTheme(huh.ThemeBase())
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrCancelled, err)
	}
	return Choice(choice), nil
}

// Static is a fixed-answer UserIO for tests and scripted/non-interactive
// automation: it returns Answer every time PromptChoice is called, or
// ErrCancelled when Answer is empty.
type Static struct {
	Answer Choice
}

func (s Static) PromptChoice(_ context.Context, _ string, _ []Option) (Choice, error) {
	if s.Answer == "" {
		return "", types.ErrCancelled
	}
	return s.Answer, nil
}
