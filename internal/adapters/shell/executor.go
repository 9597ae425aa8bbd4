// Package shell runs external tools: linters, style compilers, icon font
// generators and notification commands.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// Executor implements ports.Executor using os/exec and pty.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

var _ ports.Executor = (*Executor)(nil)

// Execute runs the invocation and waits for it to exit. Without Stdin the
// tool runs on a PTY, where stdout and stderr are merged into stdout. When no
// PTY can be allocated it falls back to plain pipes.
func (e *Executor) Execute(ctx context.Context, inv ports.Invocation, stdout, stderr io.Writer) error {
	if len(inv.Args) == 0 {
		return domain.ErrEmptyCommand
	}
	name := inv.Args[0]
	env := resolveEnvironment(os.Environ(), inv.Dir, inv.Env)

	var err error
	if inv.Stdin == nil {
		err = runPTY(command(ctx, inv, env), stdout)
		if errors.Is(err, errNoPTY) {
			err = runPipes(command(ctx, inv, env), nil, stdout, stderr)
		}
	} else {
		err = runPipes(command(ctx, inv, env), inv.Stdin, stdout, stderr)
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Capture exit code if possible
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return errors.Join(domain.ErrCommandFailed,
		zerr.With(zerr.With(zerr.Wrap(err, ""), "command", name), "exit_code", exitCode))
}

func command(ctx context.Context, inv ports.Invocation, env []string) *exec.Cmd {
	name := inv.Args[0]

	// Resolve the executable path
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, inv.Args[1:]...) //nolint:gosec // user provided command
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Dir = inv.Dir
	cmd.Env = env
	return cmd
}

var errNoPTY = errors.New("pty unavailable")

func runPTY(cmd *exec.Cmd, stdout io.Writer) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		if ptyUnavailable(err) {
			return errNoPTY
		}
		return err
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// PTY merges stdout and stderr.
		_, _ = io.Copy(stdout, ptmx)
	}()

	err = cmd.Wait()
	// The copy loop ends with EIO once the child side is closed.
	<-ioDone
	_ = ptmx.Close()
	return err
}

// ptyUnavailable reports whether err comes from allocating the terminal
// rather than from starting the program.
func ptyUnavailable(err error) bool {
	if errors.Is(err, pty.ErrUnsupported) {
		return true
	}
	var pathErr *os.PathError
	return errors.As(err, &pathErr) && pathErr.Op == "open"
}

func runPipes(cmd *exec.Cmd, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// allowListedEnvVars are the system environment variables inherited by tools.
// Everything else must be passed explicitly through the invocation.
var allowListedEnvVars = map[string]struct{}{
	"HOME":      {},
	"TERM":      {},
	"USER":      {},
	"PATH":      {},
	"TMPDIR":    {},
	"LANG":      {},
	"NO_COLOR":  {},
	"COLORTERM": {},
}

// resolveEnvironment merges the allow-listed system environment, the
// project's node_modules/.bin and the invocation overrides, in that order.
func resolveEnvironment(sysEnv []string, dir string, overrides map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)

	if dir != "" {
		prependPath(envMap, filepath.Join(dir, "node_modules", ".bin"))
	}

	for k, v := range overrides {
		if k == "PATH" {
			prependPath(envMap, v)
			continue
		}
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			if _, allowed := allowListedEnvVars[k]; allowed {
				envMap[k] = v
			}
		}
	}
	return envMap
}

func prependPath(envMap map[string]string, dir string) {
	if sysPath, exists := envMap["PATH"]; exists && sysPath != "" {
		envMap["PATH"] = dir + string(os.PathListSeparator) + sysPath
		return
	}
	envMap["PATH"] = dir
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env rather than the PATH of the current process.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
