package editor

import (
	"context"

	"github.com/gubarz/shortlinks/internal/executor"
)

// Effect is one post-write side effect.
type Effect struct {
	Name string
	Run  func(ctx context.Context, link NewLink, shortURL string) error
}

// EffectOptions selects and wires the standard effects.
type EffectOptions struct {
	Runner      executor.ShellRunner
	Clipboard   executor.Clipboard
	Dir         string // working directory for git and the terminal
	File        string // registry file, as passed to git add
	Git         bool
	TerminalCmd string
}

// DefaultEffects returns git add, git commit, clipboard copy and terminal
// launch, in that order, skipping the ones that are disabled.
func DefaultEffects(opts EffectOptions) []Effect {
	var effects []Effect

	if opts.Git && opts.Runner != nil {
		effects = append(effects,
			Effect{
				Name: "git-add",
				Run: func(ctx context.Context, _ NewLink, _ string) error {
					_, err := opts.Runner.Run(ctx, opts.Dir, "git", "add", opts.File)
					return err
				},
			},
			Effect{
				Name: "git-commit",
				Run: func(ctx context.Context, link NewLink, _ string) error {
					_, err := opts.Runner.Run(ctx, opts.Dir, "git", "commit", "-m", CommitMessage(link))
					return err
				},
			},
		)
	}

	if opts.Clipboard != nil {
		effects = append(effects, Effect{
			Name: "clipboard",
			Run: func(_ context.Context, _ NewLink, shortURL string) error {
				return opts.Clipboard.Copy(shortURL)
			},
		})
	}

	if opts.TerminalCmd != "" && opts.Runner != nil {
		effects = append(effects, Effect{
			Name: "terminal",
			Run: func(ctx context.Context, _ NewLink, _ string) error {
				return opts.Runner.RunShell(ctx, opts.Dir, opts.TerminalCmd)
			},
		})
	}

	return effects
}

// CommitMessage is the git commit message for a new link.
func CommitMessage(link NewLink) string {
	return "Added new link " + link.Path
}
