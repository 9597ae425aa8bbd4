package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/tdewolff/minify/v2"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

const quotes = `'"` + "\x60"

var (
	templateURL = regexp.MustCompile(`templateUrl\s*:\s*([` + quotes + `])([^` + quotes + `]+)[` + quotes + `]`)
	styleURLs   = regexp.MustCompile(`styleUrls\s*:\s*\[([^\]]*)\]`)
	quoted      = regexp.MustCompile(`([` + quotes + `])([^` + quotes + `]+)[` + quotes + `]`)
)

// RelativePathRewrite rewrites component template and style URLs that are
// relative to the component file so that they are relative to the app base.
// Style URLs point at the compiled .css file.
type RelativePathRewrite struct{}

// Kind implements ports.Transformer.
func (RelativePathRewrite) Kind() domain.TransformKind { return domain.KindRelativePathRewrite }

// Apply implements ports.Transformer.
func (RelativePathRewrite) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		if !hasExt(a.Path, ".ts", ".js") {
			return passthrough(a)
		}
		rewrite := func(url string) string {
			return appURL(a.Path, url, step.Options.SourceBase, step.Options.AppBase)
		}

		c := a.Clone()
		c.Contents = templateURL.ReplaceAllFunc(c.Contents, func(m []byte) []byte {
			sm := templateURL.FindSubmatch(m)
			q := string(sm[1])
			return []byte("templateUrl: " + q + rewrite(string(sm[2])) + q)
		})
		c.Contents = styleURLs.ReplaceAllFunc(c.Contents, func(m []byte) []byte {
			list := styleURLs.FindSubmatch(m)[1]
			list = quoted.ReplaceAllFunc(list, func(u []byte) []byte {
				sm := quoted.FindSubmatch(u)
				q := string(sm[1])
				return []byte(q + styleURL(rewrite(string(sm[2]))) + q)
			})
			return []byte("styleUrls: [" + string(list) + "]")
		})
		return []*domain.Artifact{c}, nil
	})
}

// appURL resolves a component relative url against file and re-anchors it on appBase.
// Other urls are returned unchanged.
func appURL(file, url, sourceBase, appBase string) string {
	if !isRelative(url) {
		return url
	}
	resolved := path.Join(path.Dir(file), url)
	if base := path.Clean(sourceBase); base != "." && base != "" {
		resolved = strings.TrimPrefix(resolved, base+"/")
	}
	if appBase == "" {
		return resolved
	}
	return path.Join(appBase, resolved)
}

func styleURL(u string) string {
	if hasExt(u, ".less", ".scss", ".sass") {
		return withExt(u, ".css")
	}
	return u
}

func isRelative(url string) bool {
	return strings.HasPrefix(url, "./") || strings.HasPrefix(url, "../")
}

// InlineTemplateStyle replaces component templateUrl and styleUrls with the
// contents of the referenced files, compiling and minifying the styles.
type InlineTemplateStyle struct {
	styles   *StyleCompile
	minifier *minify.M
	open     func(root string) billy.Filesystem
}

// NewInlineTemplateStyle creates an InlineTemplateStyle transformer.
// open may be nil to read from the OS filesystem.
func NewInlineTemplateStyle(styles *StyleCompile, minifier *minify.M, open func(string) billy.Filesystem) *InlineTemplateStyle {
	if open == nil {
		open = func(root string) billy.Filesystem { return osfs.New(root) }
	}
	return &InlineTemplateStyle{styles: styles, minifier: minifier, open: open}
}

// Kind implements ports.Transformer.
func (t *InlineTemplateStyle) Kind() domain.TransformKind { return domain.KindInlineTemplateStyle }

// Apply implements ports.Transformer.
func (t *InlineTemplateStyle) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	bfs := t.open(step.Options.Root)
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		if !hasExt(a.Path, ".ts", ".js") {
			return passthrough(a)
		}
		var firstErr error
		fail := func(err error) []byte {
			if firstErr == nil {
				firstErr = err
			}
			return nil
		}

		c := a.Clone()
		c.Contents = templateURL.ReplaceAllFunc(c.Contents, func(m []byte) []byte {
			ref := resolveRef(a.Path, string(templateURL.FindSubmatch(m)[2]), step.Options.SourceBase)
			src, err := util.ReadFile(bfs, ref)
			if err != nil {
				return fail(zerr.With(zerr.Wrap(err, "template not found"), "path", ref))
			}
			min, err := t.minifier.Bytes(mediaHTML, src)
			if err != nil {
				return fail(zerr.With(err, "path", ref))
			}
			return []byte("template: " + jsString(min))
		})
		c.Contents = styleURLs.ReplaceAllFunc(c.Contents, func(m []byte) []byte {
			var styles []string
			for _, u := range quoted.FindAllSubmatch(styleURLs.FindSubmatch(m)[1], -1) {
				css, err := t.style(ctx, bfs, step.Options, resolveRef(a.Path, string(u[2]), step.Options.SourceBase))
				if err != nil {
					return fail(err)
				}
				styles = append(styles, jsString(css))
			}
			return []byte("styles: [" + strings.Join(styles, ", ") + "]")
		})
		if firstErr != nil {
			return nil, zerr.With(firstErr, "component", a.Path)
		}
		return []*domain.Artifact{c}, nil
	})
}

func (t *InlineTemplateStyle) style(ctx context.Context, bfs billy.Filesystem, opts domain.StepOptions, ref string) ([]byte, error) {
	src, err := util.ReadFile(bfs, ref)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "style not found"), "path", ref)
	}
	if !hasExt(ref, ".css") {
		src, err = t.styles.compile(ctx, opts, &domain.Artifact{Path: ref, Contents: src})
		if err != nil {
			return nil, err
		}
	}
	min, err := t.minifier.Bytes(mediaCSS, src)
	if err != nil {
		return nil, zerr.With(err, "path", ref)
	}
	return min, nil
}

// resolveRef returns the project relative path of a component reference.
func resolveRef(file, url, sourceBase string) string {
	if isRelative(url) {
		return path.Join(path.Dir(file), url)
	}
	return path.Join(sourceBase, url)
}

// jsString encodes b as a double quoted JavaScript string literal on one line.
func jsString(b []byte) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(string(b))
	return strings.TrimSuffix(buf.String(), "\n")
}
