// Package selector decides which transforms run for a task, in which order and
// with which options, given the packaging mode and the environment.
package selector

import (
	"path"

	"go.trai.ch/weave/internal/core/domain"
)

// Select builds the application scripts pipeline.
//
// Bundle mode inlines templates and styles and concatenates the compiled
// scripts into one file. Lazy mode rewrites template and style URLs and emits
// component styles and markup beside the scripts. Sourcemap steps surround the
// script transforms in development only.
func Select(cfg domain.BuildConfig) (*domain.Pipeline, error) {
	if cfg.Project == nil {
		return nil, domain.ConfigError(domain.ErrMissingSetting, "setting", "project")
	}
	s := cfg.Project.Scripts

	switch cfg.Mode {
	case domain.ModeBundle, domain.ModeLazy:
	default:
		return nil, domain.ConfigError(domain.ErrUnknownPackagingMode, "mode", cfg.Mode)
	}
	if err := require("scripts.src", len(s.Src) > 0); err != nil {
		return nil, err
	}
	if err := require("scripts.dest", s.Dest != ""); err != nil {
		return nil, err
	}

	b := newBuilder(cfg, &domain.Selection{Base: s.Base, Patterns: s.Src})
	b.add(domain.KindPreprocess, domain.StepOptions{Context: cfg.PreprocessContext()})

	p := &domain.Pipeline{
		Task:        domain.TaskScripts,
		Mode:        cfg.Mode,
		Environment: cfg.Environment,
		Root:        cfg.Project.Root,
		Dest:        s.Dest,
		Policy:      domain.AbortOnError,
	}

	if cfg.Mode == domain.ModeBundle {
		if err := require("scripts.name", s.Name != ""); err != nil {
			return nil, err
		}
		b.add(domain.KindInlineTemplateStyle, domain.StepOptions{
			SourceBase: s.Base,
			Command:    cfg.Project.StyleCompiler,
		})
		b.add(domain.KindTranspile, domain.StepOptions{
			Target:     s.Target,
			SourceBase: s.Base,
			OutFile:    s.Name,
		})
		b.add(domain.KindMinify, domain.StepOptions{Target: s.Target})
		b.closeSourcemaps(s.Dest)

		p.Outputs = fileOutputs(cfg, path.Join(s.Dest, s.Name))
	} else {
		b.add(domain.KindRelativePathRewrite, domain.StepOptions{
			SourceBase: s.Base,
			AppBase:    s.AppBase,
		})
		b.add(domain.KindTranspile, domain.StepOptions{
			Target:     s.Target,
			SourceBase: s.Base,
		})
		b.add(domain.KindMinify, domain.StepOptions{Target: s.Target})
		b.closeSourcemaps(s.Dest)

		b.open(domain.KindStyleCompile, &domain.Selection{Base: s.Base, Patterns: s.Styles}, domain.StepOptions{
			Command:    cfg.Project.StyleCompiler,
			Minify:     true,
			Sourcemaps: cfg.Sourcemaps(),
			SourceBase: s.Base,
			OutDir:     s.Dest,
		})
		b.open(domain.KindMarkupCopy, &domain.Selection{Base: s.Base, Patterns: s.Markup}, domain.StepOptions{})

		p.Outputs = []domain.Output{domain.TreeOutput(s.Dest)}
	}

	p.Steps = b.steps
	return p, p.Validate()
}

// ForTask builds the pipeline of any task that streams artifacts.
func ForTask(cfg domain.BuildConfig, task domain.TaskID) (*domain.Pipeline, error) {
	switch task {
	case domain.TaskScripts:
		return Select(cfg)
	case domain.TaskStyles:
		return styles(cfg)
	case domain.TaskCopyIndex:
		return index(cfg)
	case domain.TaskVendor:
		return vendor(cfg)
	case domain.TaskIconfont:
		return iconfont(cfg)
	default:
		return nil, domain.ConfigError(domain.ErrNotStreamable, "task", task)
	}
}

func styles(cfg domain.BuildConfig) (*domain.Pipeline, error) {
	st := cfg.Project.Styles
	if err := require("styles.name", st.Name != ""); err != nil {
		return nil, err
	}

	b := newBuilder(cfg, &domain.Selection{Base: st.Base, Patterns: st.Src})
	b.add(domain.KindStyleCompile, domain.StepOptions{Command: cfg.Project.StyleCompiler})
	b.add(domain.KindStyleMinify, domain.StepOptions{})
	b.add(domain.KindRename, domain.StepOptions{Name: st.Name})
	b.closeSourcemaps(st.Dest)

	return finish(cfg, domain.TaskStyles, st.Dest, b, fileOutputs(cfg, path.Join(st.Dest, st.Name)))
}

func index(cfg domain.BuildConfig) (*domain.Pipeline, error) {
	ix := cfg.Project.Index
	if err := require("index.src", ix.Src != ""); err != nil {
		return nil, err
	}
	name := ix.Name
	if name == "" {
		name = path.Base(ix.Src)
	}

	// The entry document never carries a sourcemap.
	b := &builder{input: &domain.Selection{Base: path.Dir(ix.Src), Patterns: []string{ix.Src}}}
	b.add(domain.KindPreprocess, domain.StepOptions{Context: cfg.PreprocessContext()})
	b.add(domain.KindRename, domain.StepOptions{Name: name})

	return finish(cfg, domain.TaskCopyIndex, ix.Dest, b,
		[]domain.Output{domain.FileOutput(path.Join(ix.Dest, name))})
}

func vendor(cfg domain.BuildConfig) (*domain.Pipeline, error) {
	v := cfg.Project.Vendor
	if err := require("vendor.name", v.Name != ""); err != nil {
		return nil, err
	}

	b := newBuilder(cfg, &domain.Selection{Patterns: v.Files})
	b.add(domain.KindConcat, domain.StepOptions{OutFile: v.Name})
	b.add(domain.KindMinify, domain.StepOptions{Mangle: true, Target: cfg.Project.Scripts.Target})
	b.closeSourcemaps(v.Dest)

	return finish(cfg, domain.TaskVendor, v.Dest, b, fileOutputs(cfg, path.Join(v.Dest, v.Name)))
}

func iconfont(cfg domain.BuildConfig) (*domain.Pipeline, error) {
	ic := cfg.Project.Icons
	if err := require("icons.fontName", ic.FontName != ""); err != nil {
		return nil, err
	}

	b := &builder{input: &domain.Selection{Patterns: ic.Src}}
	b.add(domain.KindIconCSS, domain.StepOptions{
		FontName: ic.FontName,
		CSSClass: ic.CSSClass,
		Template: ic.Template,
		CSSDest:  ic.CSSDest,
		FontDest: ic.FontDest,
	})
	b.add(domain.KindIconFont, domain.StepOptions{
		FontName: ic.FontName,
		FontDest: ic.FontDest,
		Command:  ic.Generator,
	})

	return finish(cfg, domain.TaskIconfont, ic.Dest, b, []domain.Output{domain.TreeOutput(ic.Dest)})
}

func finish(
	cfg domain.BuildConfig,
	task domain.TaskID,
	dest string,
	b *builder,
	outputs []domain.Output,
) (*domain.Pipeline, error) {
	p := &domain.Pipeline{
		Task:        task,
		Mode:        cfg.Mode,
		Environment: cfg.Environment,
		Root:        cfg.Project.Root,
		Dest:        dest,
		Steps:       b.steps,
		Policy:      domain.AbortOnError,
		Outputs:     outputs,
	}
	return p, p.Validate()
}

// fileOutputs declares file and, in development, its sourcemap.
func fileOutputs(cfg domain.BuildConfig, file string) []domain.Output {
	out := []domain.Output{domain.FileOutput(file)}
	if cfg.Sourcemaps() {
		out = append(out, domain.FileOutput(file+".map"))
	}
	return out
}

func require(setting string, ok bool) error {
	if ok {
		return nil
	}
	return domain.ConfigError(domain.ErrMissingSetting, "setting", setting)
}
