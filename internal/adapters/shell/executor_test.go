package shell_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/shell"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
)

func TestExecutor_Execute_MultiLineOutput(t *testing.T) {
	executor := shell.NewExecutor()

	inv := ports.Invocation{
		Args: []string{"sh", "-c", "echo line1; echo line2"},
		Dir:  t.TempDir(),
	}

	var stdout bytes.Buffer
	err := executor.Execute(context.Background(), inv, &stdout, io.Discard)
	require.NoError(t, err)

	output := stdout.String()
	require.Contains(t, output, "line1")
	require.Contains(t, output, "line2")
}

func TestExecutor_Execute_Stdin(t *testing.T) {
	executor := shell.NewExecutor()

	inv := ports.Invocation{
		Args:  []string{"sh", "-c", "tr a-z A-Z; echo warn >&2"},
		Stdin: strings.NewReader("body { color: red }"),
	}

	var stdout, stderr bytes.Buffer
	err := executor.Execute(context.Background(), inv, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "BODY { COLOR: RED }", stdout.String())
	assert.Equal(t, "warn\n", stderr.String())
}

func TestExecutor_Execute_EnvironmentVariables(t *testing.T) {
	executor := shell.NewExecutor()
	t.Setenv("WEAVE_SECRET_TEST_VAR", "leaked")

	inv := ports.Invocation{
		Args:  []string{"sh", "-c", "echo \"$NODE_ENV:$WEAVE_SECRET_TEST_VAR\""},
		Env:   map[string]string{"NODE_ENV": "production"},
		Stdin: strings.NewReader(""),
	}

	var stdout bytes.Buffer
	err := executor.Execute(context.Background(), inv, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "production:\n", stdout.String())
}

func TestExecutor_Execute_NodeModulesBin(t *testing.T) {
	executor := shell.NewExecutor()

	dir := t.TempDir()
	bin := filepath.Join(dir, "node_modules", ".bin")
	require.NoError(t, os.MkdirAll(bin, 0o750))
	//nolint:gosec // Test requires executable file
	err := os.WriteFile(filepath.Join(bin, "fake-lint"), []byte("#!/bin/sh\necho linted\n"), 0o700)
	require.NoError(t, err)

	inv := ports.Invocation{Args: []string{"fake-lint"}, Dir: dir, Stdin: strings.NewReader("")}

	var stdout bytes.Buffer
	err = executor.Execute(context.Background(), inv, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "linted\n", stdout.String())
}

func TestExecutor_Execute_Failure(t *testing.T) {
	executor := shell.NewExecutor()

	inv := ports.Invocation{Args: []string{"sh", "-c", "exit 3"}, Stdin: strings.NewReader("")}
	err := executor.Execute(context.Background(), inv, io.Discard, io.Discard)
	require.ErrorIs(t, err, domain.ErrCommandFailed)
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestExecutor_Execute_InvalidCommand(t *testing.T) {
	executor := shell.NewExecutor()

	inv := ports.Invocation{Args: []string{"weave-command-that-does-not-exist"}}
	err := executor.Execute(context.Background(), inv, io.Discard, io.Discard)
	require.ErrorIs(t, err, domain.ErrCommandFailed)
}

func TestExecutor_Execute_EmptyCommand(t *testing.T) {
	executor := shell.NewExecutor()

	err := executor.Execute(context.Background(), ports.Invocation{}, io.Discard, io.Discard)
	require.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestExecutor_Execute_Canceled(t *testing.T) {
	executor := shell.NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := ports.Invocation{Args: []string{"sleep", "5"}, Stdin: strings.NewReader("")}
	err := executor.Execute(ctx, inv, io.Discard, io.Discard)
	require.ErrorIs(t, err, context.Canceled)
}
