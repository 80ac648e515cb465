package executor

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Run(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	e := &Executor{shell: "sh"}
	dir := t.TempDir()

	out, err := e.Run(context.Background(), dir, "sh", "-c", "pwd; echo done >&2")
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, []string{dir, resolved}, out)
}

func TestExecutor_RunFailureIncludesStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	e := &Executor{shell: "sh"}

	_, err := e.Run(context.Background(), t.TempDir(), "sh", "-c", "echo nope >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestExecutor_RunShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	e := &Executor{shell: "sh"}

	assert.NoError(t, e.RunShell(context.Background(), t.TempDir(), "true"))
	assert.Error(t, e.RunShell(context.Background(), t.TempDir(), "exit 1"))
}
