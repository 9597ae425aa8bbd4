package transform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/tdewolff/minify/v2"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

// FirstCodepoint is assigned to the first glyph in name order; the following
// glyphs take the next code points of the private use area.
const FirstCodepoint = 0xE001

const defaultIconTemplate = `@font-face {
  font-family: "{{.FontName}}";
  src: url("{{.FontPath}}{{.FontName}}.eot");
  src: url("{{.FontPath}}{{.FontName}}.eot?#iefix") format("embedded-opentype"),
    url("{{.FontPath}}{{.FontName}}.woff2") format("woff2"),
    url("{{.FontPath}}{{.FontName}}.woff") format("woff"),
    url("{{.FontPath}}{{.FontName}}.ttf") format("truetype"),
    url("{{.FontPath}}{{.FontName}}.svg#{{.FontName}}") format("svg");
}
.{{.CSSClass}}:before {
  font-family: "{{.FontName}}";
  font-style: normal;
  font-weight: normal;
  line-height: 1;
  -webkit-font-smoothing: antialiased;
  -moz-osx-font-smoothing: grayscale;
}
{{range .Glyphs}}.{{$.CSSClass}}-{{.Name}}:before { content: "\{{.Codepoint}}"; }
{{end}}`

// Glyph is one icon of the font.
type Glyph struct {
	Name      string
	Codepoint string
	svg       *domain.Artifact
}

// FileName is the glyph file name handed to the font generator.
func (g Glyph) FileName() string {
	return "u" + g.Codepoint + "-" + g.Name + ".svg"
}

// glyphs returns the SVG artifacts of in as glyphs ordered by name.
func glyphs(in []*domain.Artifact) []Glyph {
	var out []Glyph
	for _, a := range in {
		if hasExt(a.Path, ".svg") {
			out = append(out, Glyph{Name: strings.TrimSuffix(path.Base(a.Path), path.Ext(a.Path)), svg: a})
		}
	}
	slices.SortStableFunc(out, func(a, b Glyph) int { return strings.Compare(a.Name, b.Name) })
	for i := range out {
		out[i].Codepoint = fmt.Sprintf("%X", FirstCodepoint+i)
	}
	return out
}

// IconCSS generates the stylesheet mapping glyph classes to code points.
// The SVG glyphs pass through, minified, for the font step.
type IconCSS struct {
	minifier *minify.M
	open     func(root string) billy.Filesystem
}

// NewIconCSS creates an IconCSS transformer. open may be nil to read the
// template from the OS filesystem.
func NewIconCSS(minifier *minify.M, open func(string) billy.Filesystem) *IconCSS {
	if open == nil {
		open = func(root string) billy.Filesystem { return osfs.New(root) }
	}
	return &IconCSS{minifier: minifier, open: open}
}

// Kind implements ports.Transformer.
func (t *IconCSS) Kind() domain.TransformKind { return domain.KindIconCSS }

// Apply implements ports.Transformer.
func (t *IconCSS) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := step.Options
	gs := glyphs(in)
	if len(gs) == 0 {
		return nil, nil
	}

	tmpl, err := t.template(opts)
	if err != nil {
		return nil, err
	}
	cssFile := iconCSSFile(opts)
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"FontName": opts.FontName,
		"CSSClass": orDefault(opts.CSSClass, "icon"),
		"FontPath": fontPath(cssFile, opts.FontDest),
		"Glyphs":   gs,
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to render icon stylesheet")
	}
	css, err := t.minifier.Bytes(mediaCSS, buf.Bytes())
	if err != nil {
		return nil, zerr.With(err, "path", cssFile)
	}

	out := []*domain.Artifact{{Path: "./" + cssFile, Contents: css}}
	for _, g := range gs {
		c := g.svg.Clone()
		min, err := t.minifier.Bytes(mediaSVG, c.Contents)
		if err != nil {
			return nil, zerr.With(err, "path", c.Path)
		}
		c.Contents = min
		out = append(out, c)
	}
	return out, nil
}

func (t *IconCSS) template(opts domain.StepOptions) (*template.Template, error) {
	text := defaultIconTemplate
	if opts.Template != "" {
		b, err := util.ReadFile(t.open(opts.Root), opts.Template)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "icon template not found"), "path", opts.Template)
		}
		text = string(b)
	}
	tmpl, err := template.New("icons").Parse(text)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid icon template"), "path", opts.Template)
	}
	return tmpl, nil
}

// iconCSSFile returns the stylesheet path relative to the icon output.
func iconCSSFile(opts domain.StepOptions) string {
	if hasExt(opts.CSSDest, ".css") {
		return path.Clean(opts.CSSDest)
	}
	return path.Join(opts.CSSDest, opts.FontName+".css")
}

// fontPath returns the url prefix leading from the stylesheet to the fonts.
func fontPath(cssFile, fontDest string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(cssFile)), filepath.FromSlash(path.Clean(fontDest)))
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel) + "/"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// IconFont renders the glyphs into font files through the configured
// generator. The generator receives the glyph directory, the output directory
// and the font name; every file it writes becomes an artifact below FontDest.
type IconFont struct {
	executor ports.Executor
}

// NewIconFont creates an IconFont transformer.
func NewIconFont(executor ports.Executor) *IconFont {
	return &IconFont{executor: executor}
}

// Kind implements ports.Transformer.
func (t *IconFont) Kind() domain.TransformKind { return domain.KindIconFont }

// Apply implements ports.Transformer.
func (t *IconFont) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	opts := step.Options
	gs := glyphs(in)
	var out []*domain.Artifact
	for _, a := range in {
		if !hasExt(a.Path, ".svg") {
			out = append(out, a.Clone())
		}
	}
	if len(gs) == 0 {
		return out, nil
	}
	if len(opts.Command) == 0 {
		return nil, domain.ConfigError(domain.ErrMissingSetting, "setting", "icons.generator")
	}

	work, err := os.MkdirTemp("", "weave-iconfont-")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create glyph directory")
	}
	defer func() { _ = os.RemoveAll(work) }()

	glyphDir := filepath.Join(work, "glyphs")
	fontDir := filepath.Join(work, "fonts")
	for _, dir := range []string{glyphDir, fontDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, zerr.Wrap(err, "failed to create glyph directory")
		}
	}
	for _, g := range gs {
		if err := os.WriteFile(filepath.Join(glyphDir, g.FileName()), g.svg.Contents, 0o600); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to write glyph"), "glyph", g.Name)
		}
	}

	var stderr bytes.Buffer
	inv := ports.Invocation{
		Args:  append(slices.Clone(opts.Command), glyphDir, fontDir, opts.FontName),
		Dir:   opts.Root,
		Env:   opts.Context,
		Stdin: bytes.NewReader(nil),
	}
	live := ports.OutputFrom(ctx)
	if err := t.executor.Execute(ctx, inv, live, io.MultiWriter(&stderr, live)); err != nil {
		err = zerr.Wrap(err, "icon font generator failed")
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			err = zerr.With(err, "output", string(msg))
		}
		return nil, err
	}

	entries, err := os.ReadDir(fontDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read generated fonts")
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(fontDir, e.Name())) //nolint:gosec // inside our temp dir
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read generated font"), "file", e.Name())
		}
		out = append(out, &domain.Artifact{Path: "./" + path.Join(opts.FontDest, e.Name()), Contents: b})
	}
	return out, nil
}
