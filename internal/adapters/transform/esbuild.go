package transform

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultTarget is used when no ECMAScript target is configured.
const DefaultTarget = "es2017"

// tsconfig enables the decorator semantics that component metadata relies on.
const tsconfig = `{"compilerOptions":{"experimentalDecorators":true,"useDefineForClassFields":false}}`

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es6":    api.ES2015,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

func parseTarget(s string) (api.Target, error) {
	if s == "" {
		s = DefaultTarget
	}
	t, ok := targets[strings.ToLower(s)]
	if !ok {
		return 0, domain.ConfigError(domain.ErrMissingSetting, "target", s)
	}
	return t, nil
}

// Transpile compiles TypeScript to JavaScript. With OutFile the scripts are
// bundled, in path order, into a single artifact: imports between streamed
// files are resolved in memory and bare module imports stay external.
type Transpile struct{}

// Kind implements ports.Transformer.
func (Transpile) Kind() domain.TransformKind { return domain.KindTranspile }

// Apply implements ports.Transformer.
func (Transpile) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	target, err := parseTarget(step.Options.Target)
	if err != nil {
		return nil, err
	}
	if step.Options.OutFile != "" {
		return bundle(ctx, step.Options, target, in)
	}

	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		switch {
		case strings.HasSuffix(a.Path, ".d.ts"):
			return nil, nil
		case !isScript(a.Path):
			return passthrough(a)
		}
		c, err := transform(a, api.TransformOptions{
			Loader:      loaderFor(a.Path),
			Target:      target,
			TsconfigRaw: tsconfig,
		})
		if err != nil {
			return nil, err
		}
		c.Path = withExt(a.Path, ".js")
		return []*domain.Artifact{c}, nil
	})
}

func isScript(p string) bool {
	return hasExt(p, ".ts", ".tsx", ".js")
}

func loaderFor(p string) api.Loader {
	switch path.Ext(p) {
	case ".tsx":
		return api.LoaderTSX
	case ".js":
		return api.LoaderJS
	default:
		return api.LoaderTS
	}
}

// resolveExts are tried, in order, for extensionless relative imports.
var resolveExts = []string{"", ".ts", ".tsx", ".js", "/index.ts", "/index.js"}

// bundle links the scripts of in into opts.OutFile. Files are served to esbuild
// from memory under a virtual root, so map sources stay relative to the
// project root. Non-script artifacts pass through after the bundle.
func bundle(ctx context.Context, opts domain.StepOptions, target api.Target, in []*domain.Artifact) ([]*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := virtualRoot(opts.Root)
	files := make(map[string]*domain.Artifact)
	var (
		order   []string
		rest    []*domain.Artifact
		tracked bool
	)
	for _, a := range in {
		switch {
		case strings.HasSuffix(a.Path, ".d.ts"):
		case isScript(a.Path):
			abs := filepath.Join(root, filepath.FromSlash(path.Clean(a.Path)))
			files[abs] = a
			order = append(order, abs)
			tracked = tracked || a.Tracked
		default:
			rest = append(rest, a.Clone())
		}
	}
	if len(order) == 0 {
		return rest, nil
	}
	slices.Sort(order)

	var entry strings.Builder
	for _, abs := range order {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to order bundle"), "path", abs)
		}
		entry.WriteString("import " + strconv.Quote("./"+filepath.ToSlash(rel)) + ";\n")
	}

	outfile := filepath.Join(root, filepath.FromSlash(path.Clean(opts.OutFile)))
	build := api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   entry.String(),
			ResolveDir: root,
			Sourcefile: "weave-bundle-entry.js",
			Loader:     api.LoaderJS,
		},
		AbsWorkingDir: root,
		Outfile:       outfile,
		Bundle:        true,
		Write:         false,
		Format:        api.FormatESModule,
		Target:        target,
		TreeShaking:   api.TreeShakingFalse,
		TsconfigRaw:   tsconfig,
		Plugins:       []api.Plugin{memoryPlugin(files)},
	}
	if tracked {
		build.Sourcemap = api.SourceMapExternal
		build.SourcesContent = api.SourcesContentInclude
	}

	res := api.Build(build)
	if len(res.Errors) > 0 {
		return nil, messagesError(opts.OutFile, res.Errors)
	}

	joined := &domain.Artifact{Path: "./" + opts.OutFile, Tracked: tracked}
	for _, f := range res.OutputFiles {
		if strings.HasSuffix(f.Path, ".map") {
			joined.SourceMap = f.Contents
			continue
		}
		joined.Contents = mappingURL.ReplaceAll(f.Contents, nil)
	}
	return append([]*domain.Artifact{joined}, rest...), nil
}

// virtualRoot anchors the in-memory files. The directory need not exist.
func virtualRoot(root string) string {
	if root == "" || !filepath.IsAbs(root) {
		return string(filepath.Separator)
	}
	return filepath.Clean(root)
}

// memoryPlugin resolves relative imports against files and loads them from
// memory. Bare specifiers are left to the runtime.
func memoryPlugin(files map[string]*domain.Artifact) api.Plugin {
	return api.Plugin{
		Name: "weave-memory",
		Setup: func(b api.PluginBuild) {
			b.OnResolve(api.OnResolveOptions{Filter: `.*`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if !strings.HasPrefix(args.Path, ".") && !filepath.IsAbs(args.Path) {
						return api.OnResolveResult{Path: args.Path, External: true}, nil
					}
					base := filepath.Join(args.ResolveDir, filepath.FromSlash(args.Path))
					for _, ext := range resolveExts {
						if _, ok := files[base+filepath.FromSlash(ext)]; ok {
							return api.OnResolveResult{Path: base + filepath.FromSlash(ext), Namespace: "file"}, nil
						}
					}
					return api.OnResolveResult{}, zerr.New("unresolved import " + strconv.Quote(args.Path))
				})
			b.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					a, ok := files[args.Path]
					if !ok {
						return api.OnLoadResult{}, zerr.New("unknown file " + strconv.Quote(args.Path))
					}
					contents := string(a.Contents)
					if a.Tracked {
						contents = withInlineMap(a.Contents, a.SourceMap, false)
					}
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: filepath.Dir(args.Path),
						Loader:     loaderFor(a.Path),
					}, nil
				})
		},
	}
}

// Minify compresses JavaScript. Local identifiers are renamed only when Mangle is set.
type Minify struct{}

// Kind implements ports.Transformer.
func (Minify) Kind() domain.TransformKind { return domain.KindMinify }

// Apply implements ports.Transformer.
func (Minify) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	target, err := parseTarget(step.Options.Target)
	if err != nil {
		return nil, err
	}
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		if !hasExt(a.Path, ".js") {
			return passthrough(a)
		}
		return one(transform(a, api.TransformOptions{
			Loader:            api.LoaderJS,
			Target:            target,
			MinifyWhitespace:  true,
			MinifySyntax:      true,
			MinifyIdentifiers: step.Options.Mangle,
		}))
	})
}

// transform runs esbuild on one artifact, chaining its sourcemap when tracked.
func transform(a *domain.Artifact, opts api.TransformOptions) (*domain.Artifact, error) {
	code := string(a.Contents)
	opts.Sourcefile = a.Path
	if a.Tracked {
		code = withInlineMap(a.Contents, a.SourceMap, opts.Loader == api.LoaderCSS)
		opts.Sourcemap = api.SourceMapExternal
		opts.SourcesContent = api.SourcesContentInclude
	}

	res := api.Transform(code, opts)
	if len(res.Errors) > 0 {
		return nil, messagesError(a.Path, res.Errors)
	}

	c := a.Clone()
	c.Contents = res.Code
	if a.Tracked {
		c.SourceMap = res.Map
	}
	return c, nil
}

func messagesError(p string, msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		err := zerr.With(zerr.New(m.Text), "path", p)
		if m.Location != nil {
			err = zerr.With(zerr.With(err, "line", m.Location.Line), "column", m.Location.Column)
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// concat joins in, in order, into one artifact named name. Tracked parts
// keep their maps as sections of an index map.
func concat(in []*domain.Artifact, name string) []*domain.Artifact {
	joined := &domain.Artifact{Path: "./" + name}
	var (
		maps    [][]byte
		offsets []int
		line    int
	)
	for _, a := range in {
		body := strings.TrimRight(string(mappingURL.ReplaceAll(a.Contents, nil)), "\n")
		if a.Tracked {
			joined.Tracked = true
			sm := a.SourceMap
			if len(sm) == 0 {
				sm = identityMap(a.Path, []byte(body))
			}
			maps = append(maps, sm)
			offsets = append(offsets, line)
		}
		joined.Contents = append(joined.Contents, body...)
		joined.Contents = append(joined.Contents, '\n')
		line += strings.Count(body, "\n") + 1
	}
	if joined.Tracked {
		joined.SourceMap = indexMap(name, maps, offsets)
	}
	return []*domain.Artifact{joined}
}

func one(a *domain.Artifact, err error) ([]*domain.Artifact, error) {
	if err != nil {
		return nil, err
	}
	return []*domain.Artifact{a}, nil
}
