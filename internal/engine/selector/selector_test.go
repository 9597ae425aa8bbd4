package selector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/engine/selector"
)

func testProject(mode string) *domain.Project {
	return &domain.Project{
		Root: "/project",
		Dist: "dist",
		Mode: mode,
		Scripts: domain.Scripts{
			Src:     []string{"src/**/*.ts"},
			Base:    "src",
			AppBase: "js",
			Dest:    "dist/js",
			Name:    "app.js",
			Target:  "es2017",
			Styles:  []string{"src/**/*.less"},
			Markup:  []string{"src/**/*.html"},
		},
		Styles:        domain.Styles{Src: []string{"styles/main.less"}, Base: "styles", Dest: "dist/css", Name: "app.css"},
		Index:         domain.Index{Src: "src/index.html", Dest: "dist", Name: "index.html"},
		Vendor:        domain.Vendor{Files: []string{"node_modules/a/a.js"}, Dest: "dist/vendor", Name: "bundle.js"},
		Icons:         domain.Icons{Src: []string{"icons/*.svg"}, Dest: "dist/fonts", FontName: "icons"},
		StyleCompiler: []string{"lessc", "-"},
		Context:       map[string]string{"API": "/api"},
	}
}

func config(t *testing.T, mode string, env domain.Environment) domain.BuildConfig {
	t.Helper()
	cfg, err := domain.NewBuildConfig(testProject(mode), env)
	require.NoError(t, err)
	return cfg
}

func TestSelect_DecisionTable(t *testing.T) {
	tests := []struct {
		name string
		mode string
		env  domain.Environment
		want []domain.TransformKind
	}{
		{
			name: "bundle production",
			mode: "bundle",
			env:  domain.EnvProduction,
			want: []domain.TransformKind{
				domain.KindPreprocess,
				domain.KindInlineTemplateStyle,
				domain.KindTranspile,
				domain.KindMinify,
			},
		},
		{
			name: "bundle development",
			mode: "bundle",
			env:  domain.EnvDevelopment,
			want: []domain.TransformKind{
				domain.KindSourcemapInit,
				domain.KindPreprocess,
				domain.KindInlineTemplateStyle,
				domain.KindTranspile,
				domain.KindMinify,
				domain.KindSourcemapWrite,
			},
		},
		{
			name: "lazy production",
			mode: "lazy",
			env:  domain.EnvProduction,
			want: []domain.TransformKind{
				domain.KindPreprocess,
				domain.KindRelativePathRewrite,
				domain.KindTranspile,
				domain.KindMinify,
				domain.KindStyleCompile,
				domain.KindMarkupCopy,
			},
		},
		{
			name: "lazy development",
			mode: "lazy",
			env:  domain.EnvDevelopment,
			want: []domain.TransformKind{
				domain.KindSourcemapInit,
				domain.KindPreprocess,
				domain.KindRelativePathRewrite,
				domain.KindTranspile,
				domain.KindMinify,
				domain.KindSourcemapWrite,
				domain.KindStyleCompile,
				domain.KindMarkupCopy,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := selector.Select(config(t, tt.mode, tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Kinds())
			assert.Equal(t, domain.TaskScripts, p.Task)
			assert.Equal(t, domain.AbortOnError, p.Policy)
			require.NotNil(t, p.Steps[0].Input, "first step opens the stream")
		})
	}
}

func TestSelect_Lazy(t *testing.T) {
	p, err := selector.Select(config(t, "lazy", domain.EnvDevelopment))
	require.NoError(t, err)

	t.Run("sourcemap write follows minify", func(t *testing.T) {
		assert.Greater(t, p.Index(domain.KindSourcemapWrite), p.Index(domain.KindMinify))
		assert.Less(t, p.Index(domain.KindSourcemapInit), p.Index(domain.KindPreprocess))
	})

	t.Run("sourcemap write resolves sources from the destination", func(t *testing.T) {
		write := p.Steps[p.Index(domain.KindSourcemapWrite)]
		assert.Equal(t, "dist/js", write.Options.OutDir)
		assert.Equal(t, "src", write.Options.SourceBase)

		styles := p.Steps[p.Index(domain.KindStyleCompile)]
		assert.Equal(t, "dist/js", styles.Options.OutDir)
	})

	t.Run("styles and markup open their own streams", func(t *testing.T) {
		styles := p.Steps[p.Index(domain.KindStyleCompile)]
		require.NotNil(t, styles.Input)
		assert.Equal(t, []string{"src/**/*.less"}, styles.Input.Patterns)
		assert.True(t, styles.Options.Sourcemaps)
		assert.True(t, styles.Options.Minify)

		markup := p.Steps[p.Index(domain.KindMarkupCopy)]
		require.NotNil(t, markup.Input)
		assert.Equal(t, []string{"src/**/*.html"}, markup.Input.Patterns)
	})

	t.Run("transpile keeps one output per source", func(t *testing.T) {
		transpile := p.Steps[p.Index(domain.KindTranspile)]
		assert.Empty(t, transpile.Options.OutFile)
		assert.Equal(t, "src", transpile.Options.SourceBase)
	})

	t.Run("rewrite is anchored at the app base", func(t *testing.T) {
		rewrite := p.Steps[p.Index(domain.KindRelativePathRewrite)]
		assert.Equal(t, "js", rewrite.Options.AppBase)
	})

	assert.Equal(t, []domain.Output{domain.TreeOutput("dist/js")}, p.Outputs)
}

func TestSelect_Bundle(t *testing.T) {
	p, err := selector.Select(config(t, "bundle", domain.EnvProduction))
	require.NoError(t, err)

	assert.False(t, p.Has(domain.KindStyleCompile))
	assert.False(t, p.Has(domain.KindMarkupCopy))
	assert.False(t, p.Has(domain.KindRelativePathRewrite))

	transpile := p.Steps[p.Index(domain.KindTranspile)]
	assert.Equal(t, "app.js", transpile.Options.OutFile)
	assert.Equal(t, "es2017", transpile.Options.Target)

	preprocess := p.Steps[p.Index(domain.KindPreprocess)]
	assert.Equal(t, "production", preprocess.Options.Context["NODE_ENV"])
	assert.Equal(t, "/api", preprocess.Options.Context["API"])

	assert.Equal(t, []domain.Output{domain.FileOutput("dist/js/app.js")}, p.Outputs)
}

func TestSelect_Errors(t *testing.T) {
	t.Run("unknown mode", func(t *testing.T) {
		cfg := config(t, "lazy", domain.EnvProduction)
		cfg.Mode = "split"
		_, err := selector.Select(cfg)
		require.ErrorIs(t, err, domain.ErrConfiguration)
		require.ErrorIs(t, err, domain.ErrUnknownPackagingMode)
	})

	t.Run("bundle without name", func(t *testing.T) {
		cfg := config(t, "bundle", domain.EnvProduction)
		cfg.Project.Scripts.Name = ""
		_, err := selector.Select(cfg)
		require.ErrorIs(t, err, domain.ErrMissingSetting)
	})

	t.Run("no sources", func(t *testing.T) {
		cfg := config(t, "lazy", domain.EnvProduction)
		cfg.Project.Scripts.Src = nil
		_, err := selector.Select(cfg)
		require.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestSelect_Deterministic(t *testing.T) {
	cfg := config(t, "lazy", domain.EnvDevelopment)
	a, err := selector.Select(cfg)
	require.NoError(t, err)
	b, err := selector.Select(cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestForTask(t *testing.T) {
	tests := []struct {
		name string
		task domain.TaskID
		env  domain.Environment
		want []domain.TransformKind
		dest string
	}{
		{
			name: "styles development",
			task: domain.TaskStyles,
			env:  domain.EnvDevelopment,
			want: []domain.TransformKind{
				domain.KindSourcemapInit,
				domain.KindStyleCompile,
				domain.KindStyleMinify,
				domain.KindRename,
				domain.KindSourcemapWrite,
			},
			dest: "dist/css",
		},
		{
			name: "styles production",
			task: domain.TaskStyles,
			env:  domain.EnvProduction,
			want: []domain.TransformKind{domain.KindStyleCompile, domain.KindStyleMinify, domain.KindRename},
			dest: "dist/css",
		},
		{
			name: "index never has sourcemaps",
			task: domain.TaskCopyIndex,
			env:  domain.EnvDevelopment,
			want: []domain.TransformKind{domain.KindPreprocess, domain.KindRename},
			dest: "dist",
		},
		{
			name: "vendor production",
			task: domain.TaskVendor,
			env:  domain.EnvProduction,
			want: []domain.TransformKind{domain.KindConcat, domain.KindMinify},
			dest: "dist/vendor",
		},
		{
			name: "iconfont",
			task: domain.TaskIconfont,
			env:  domain.EnvDevelopment,
			want: []domain.TransformKind{domain.KindIconCSS, domain.KindIconFont},
			dest: "dist/fonts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := selector.ForTask(config(t, "lazy", tt.env), tt.task)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Kinds())
			assert.Equal(t, tt.dest, p.Dest)
			assert.Equal(t, tt.task, p.Task)
		})
	}

	t.Run("vendor minify mangles", func(t *testing.T) {
		p, err := selector.ForTask(config(t, "bundle", domain.EnvProduction), domain.TaskVendor)
		require.NoError(t, err)
		assert.True(t, p.Steps[p.Index(domain.KindMinify)].Options.Mangle)
	})

	t.Run("non stream task", func(t *testing.T) {
		_, err := selector.ForTask(config(t, "bundle", domain.EnvProduction), domain.TaskCleanAll)
		require.ErrorIs(t, err, domain.ErrNotStreamable)
	})
}
