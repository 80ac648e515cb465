package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/gubarz/shortlinks/internal/config"
	"github.com/gubarz/shortlinks/internal/logging"
)

// ============================================================================
// Shell Runner Interface
// ============================================================================

// ShellRunner defines the interface for running external commands
type ShellRunner interface {
	// Run executes name with args in dir and returns trimmed stdout.
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
	// RunShell executes command through the configured shell in dir, with
	// the terminal attached.
	RunShell(ctx context.Context, dir, command string) error
}

// ============================================================================
// Clipboard Interface
// ============================================================================

// Clipboard defines the interface for clipboard operations
type Clipboard interface {
	Copy(text string) error
}

// systemClipboard implements Clipboard with the platform clipboard tools
type systemClipboard struct{}

// Copy copies text to the system clipboard
func (c *systemClipboard) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard tool found (install wl-copy, xclip or xsel)")
	}
	return clipboard.WriteAll(text)
}

// SystemClipboard returns the platform clipboard.
func SystemClipboard() Clipboard {
	return &systemClipboard{}
}

// ============================================================================
// Executor
// ============================================================================

// Executor runs external commands for the editor's post-write effects
type Executor struct {
	shell string
}

// NewExecutor creates a new executor using the configured shell
func NewExecutor() *Executor {
	return &Executor{shell: config.GetShell()}
}

// Run executes a command and returns stdout
func (e *Executor) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	logger := logging.GetLogger("executor")
	logger.Debug().
		Str("command", name).
		Strs("args", args).
		Str("dir", dir).
		Msg("Executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// RunShell runs a command interactively with inherited stdin/stdout/stderr
func (e *Executor) RunShell(ctx context.Context, dir, command string) error {
	logger := logging.GetLogger("executor")
	logger.Debug().
		Str("command", command).
		Str("dir", dir).
		Msg("Executing shell command")

	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	return cmd.Run()
}
