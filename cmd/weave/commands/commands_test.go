package commands_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/cmd/weave/commands"
	"go.trai.ch/weave/internal/app"
	"go.trai.ch/weave/internal/build"
	"go.trai.ch/weave/internal/core/domain"
)

type mockApp struct {
	buildFunc func(ctx context.Context, cmd domain.Command, opts app.RunOptions) error
	watchFunc func(ctx context.Context, opts app.RunOptions, serve bool) error
	serveFunc func(ctx context.Context, opts app.RunOptions) error
	planFunc  func(ctx context.Context, cmd domain.Command, opts app.RunOptions, w io.Writer) error
	cleanFunc func(ctx context.Context, opts app.RunOptions, all bool, targets []string) error
}

func (m *mockApp) Build(ctx context.Context, cmd domain.Command, opts app.RunOptions) error {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, cmd, opts)
	}
	return nil
}

func (m *mockApp) Watch(ctx context.Context, opts app.RunOptions, serve bool) error {
	if m.watchFunc != nil {
		return m.watchFunc(ctx, opts, serve)
	}
	return nil
}

func (m *mockApp) Serve(ctx context.Context, opts app.RunOptions) error {
	if m.serveFunc != nil {
		return m.serveFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Plan(ctx context.Context, cmd domain.Command, opts app.RunOptions, w io.Writer) error {
	if m.planFunc != nil {
		return m.planFunc(ctx, cmd, opts, w)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.RunOptions, all bool, targets []string) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts, all, targets)
	}
	return nil
}

func TestCommands_Build(t *testing.T) {
	tests := []struct {
		args []string
		want domain.Command
		opts app.RunOptions
	}{
		{
			args: []string{"build"},
			want: domain.CommandBuild,
			opts: app.RunOptions{ConfigPath: "weave.yaml", OutputMode: "auto"},
		},
		{
			args: []string{"dev-build", "--mode", "bundle", "-c", "conf/weave.yaml"},
			want: domain.CommandDevBuild,
			opts: app.RunOptions{ConfigPath: "conf/weave.yaml", Mode: "bundle", OutputMode: "auto"},
		},
		{
			args: []string{"watch-build", "--ci", "--output-mode", "tui"},
			want: domain.CommandWatchBuild,
			opts: app.RunOptions{ConfigPath: "weave.yaml", OutputMode: "linear", CI: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			var captured domain.Command
			var capturedOpts app.RunOptions
			mock := &mockApp{
				buildFunc: func(_ context.Context, cmd domain.Command, opts app.RunOptions) error {
					captured = cmd
					capturedOpts = opts
					return nil
				},
			}

			cli := commands.New(mock)
			cli.SetArgs(tt.args)
			require.NoError(t, cli.Execute(context.Background()))
			assert.Equal(t, tt.want, captured)
			assert.Equal(t, tt.opts, capturedOpts)
		})
	}

	t.Run("returns error on build failure", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ domain.Command, _ app.RunOptions) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"build"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})

	t.Run("rejects arguments", func(t *testing.T) {
		cli := commands.New(&mockApp{})
		cli.SetArgs([]string{"build", "scripts"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		require.Error(t, cli.Execute(context.Background()))
	})
}

func TestCommands_Watch(t *testing.T) {
	for _, serve := range []bool{false, true} {
		var called, capturedServe bool
		mock := &mockApp{
			watchFunc: func(_ context.Context, _ app.RunOptions, s bool) error {
				called = true
				capturedServe = s
				return nil
			},
		}

		args := []string{"watch"}
		if serve {
			args = append(args, "--serve")
		}
		cli := commands.New(mock)
		cli.SetArgs(args)
		require.NoError(t, cli.Execute(context.Background()))
		assert.True(t, called)
		assert.Equal(t, serve, capturedServe)
	}
}

func TestCommands_Serve(t *testing.T) {
	called := false
	mock := &mockApp{
		serveFunc: func(_ context.Context, opts app.RunOptions) error {
			called = true
			assert.Equal(t, "site.yaml", opts.ConfigPath)
			return nil
		},
	}

	cli := commands.New(mock)
	cli.SetArgs([]string{"serve", "--config", "site.yaml"})
	require.NoError(t, cli.Execute(context.Background()))
	assert.True(t, called)
}

func TestCommands_Plan(t *testing.T) {
	t.Run("defaults to build", func(t *testing.T) {
		var captured domain.Command
		mock := &mockApp{
			planFunc: func(_ context.Context, cmd domain.Command, _ app.RunOptions, w io.Writer) error {
				captured = cmd
				_, err := io.WriteString(w, "stages\n")
				return err
			},
		}

		cli := commands.New(mock)
		buf := new(bytes.Buffer)
		cli.SetOutput(buf, buf)
		cli.SetArgs([]string{"plan"})
		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, domain.CommandBuild, captured)
		assert.Equal(t, "stages\n", buf.String())
	})

	t.Run("named command", func(t *testing.T) {
		var captured domain.Command
		mock := &mockApp{
			planFunc: func(_ context.Context, cmd domain.Command, _ app.RunOptions, _ io.Writer) error {
				captured = cmd
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"plan", "dev-build"})
		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, domain.CommandDevBuild, captured)
	})

	t.Run("unknown command", func(t *testing.T) {
		cli := commands.New(&mockApp{})
		cli.SetArgs([]string{"plan", "deploy"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.ErrorIs(t, err, domain.ErrUnknownCommand)
	})
}

func TestCommands_Clean(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		all     bool
		targets []string
	}{
		{name: "default", args: []string{"clean"}},
		{name: "all", args: []string{"clean", "--all"}, all: true},
		{name: "targets", args: []string{"clean", "vendor", "iconfont"}, targets: []string{"vendor", "iconfont"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mock := &mockApp{
				cleanFunc: func(_ context.Context, _ app.RunOptions, all bool, targets []string) error {
					called = true
					assert.Equal(t, tt.all, all)
					assert.Equal(t, len(tt.targets), len(targets))
					for i := range tt.targets {
						assert.Equal(t, tt.targets[i], targets[i])
					}
					return nil
				},
			}

			cli := commands.New(mock)
			cli.SetArgs(tt.args)
			require.NoError(t, cli.Execute(context.Background()))
			assert.True(t, called)
		})
	}
}

func TestCommands_Version(t *testing.T) {
	cli := commands.New(&mockApp{})
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "weave version "+build.Version+" (commit: none, date: unknown)\n", buf.String())
}

func TestCommands_VersionFlag(t *testing.T) {
	cli := commands.New(&mockApp{})
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"--version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, buf.String(), "weave version "+build.Version)
}
