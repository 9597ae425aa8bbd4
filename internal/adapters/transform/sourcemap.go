package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

var mappingURL = regexp.MustCompile(`(?m)^\s*(?://[#@]|/\*[#@])\s*sourceMappingURL=.*$\n?`)

// SourcemapInit starts tracking sourcemaps for the stream.
type SourcemapInit struct{}

// Kind implements ports.Transformer.
func (SourcemapInit) Kind() domain.TransformKind { return domain.KindSourcemapInit }

// Apply implements ports.Transformer.
func (SourcemapInit) Apply(ctx context.Context, _ domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		c := a.Clone()
		c.Tracked = true
		return []*domain.Artifact{c}, nil
	})
}

// SourcemapWrite emits every tracked map as a sibling .map file and links it
// from the artifact. With OutDir set, map sources are rewritten relative to
// the directory the map is written to.
type SourcemapWrite struct{}

// Kind implements ports.Transformer.
func (SourcemapWrite) Kind() domain.TransformKind { return domain.KindSourcemapWrite }

// Apply implements ports.Transformer.
func (SourcemapWrite) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		if !a.Tracked {
			return passthrough(a)
		}
		return writeMap(a, step.Options)
	})
}

// writeMap splits a tracked artifact into its untracked contents and the .map file.
func writeMap(a *domain.Artifact, opts domain.StepOptions) ([]*domain.Artifact, error) {
	sm := a.SourceMap
	if len(sm) == 0 {
		sm = identityMap(a.Path, a.Contents)
	}
	dir := ""
	if opts.OutDir != "" {
		dir = path.Dir(domain.OutputPath(opts.OutDir, domain.RewriteOutputPath(a.Path, opts.SourceBase)))
	}
	sm, err := finishMap(sm, path.Base(a.Path), dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid sourcemap"), "path", a.Path)
	}

	name := path.Base(a.Path) + ".map"
	code := mappingURL.ReplaceAll(a.Contents, nil)
	code = append(bytes.TrimRight(code, "\n"), '\n')
	if hasExt(a.Path, ".css") {
		code = append(code, "/*# sourceMappingURL="+name+" */\n"...)
	} else {
		code = append(code, "//# sourceMappingURL="+name+"\n"...)
	}

	return []*domain.Artifact{
		{Path: a.Path, Contents: code},
		{Path: a.Path + ".map", Contents: sm},
	}, nil
}

// sourceMap is the subset of a version 3 sourcemap written by this package.
type sourceMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	Sources        []string  `json:"sources,omitempty"`
	SourcesContent []string  `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings,omitempty"`
	Sections       []section `json:"sections,omitempty"`
}

type section struct {
	Offset struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"offset"`
	Map json.RawMessage `json:"map"`
}

// identityMap maps every line of contents onto the same line of source.
func identityMap(source string, contents []byte) []byte {
	lines := bytes.Count(contents, []byte{'\n'}) + 1
	var mappings strings.Builder
	mappings.WriteString("AAAA")
	for i := 1; i < lines; i++ {
		// Next line, same source, one line down, column 0.
		mappings.WriteString(";AACA")
	}
	b, _ := json.Marshal(sourceMap{
		Version:        3,
		Sources:        []string{source},
		SourcesContent: []string{string(contents)},
		Names:          []string{},
		Mappings:       mappings.String(),
	})
	return b
}

// indexMap joins the maps of concatenated parts into one sectioned map.
// lineOffsets holds the first output line of each part.
func indexMap(file string, maps [][]byte, lineOffsets []int) []byte {
	sm := sourceMap{Version: 3, File: file, Names: []string{}}
	for i, m := range maps {
		var s section
		s.Offset.Line = lineOffsets[i]
		s.Map = m
		sm.Sections = append(sm.Sections, s)
	}
	b, _ := json.Marshal(sm)
	return b
}

// finishMap sets the "file" field of a map. With dir set, relative sources,
// including those of index map sections, are rewritten relative to dir.
func finishMap(sm []byte, file, dir string) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(sm, &m); err != nil {
		return nil, err
	}
	m["file"] = file
	if dir != "" {
		relocate(m, dir)
	}
	return json.Marshal(m)
}

func relocate(m map[string]any, dir string) {
	if sources, ok := m["sources"].([]any); ok {
		for i, src := range sources {
			if s, ok := src.(string); ok {
				sources[i] = relativeSource(s, dir)
			}
		}
	}
	if sections, ok := m["sections"].([]any); ok {
		for _, sec := range sections {
			if sec, ok := sec.(map[string]any); ok {
				if inner, ok := sec["map"].(map[string]any); ok {
					relocate(inner, dir)
				}
			}
		}
	}
}

// relativeSource rewrites a project relative source so that it resolves from
// dir. Absolute paths, URLs and names without a path are kept.
func relativeSource(src, dir string) string {
	if src == "" || path.IsAbs(src) || strings.Contains(src, ":") || strings.HasPrefix(src, "<") {
		return src
	}
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(path.Clean(src)))
	if err != nil {
		return src
	}
	return filepath.ToSlash(rel)
}

// withInlineMap appends sm to code as a data URL comment so that a tool
// reading code picks it up as its input map.
func withInlineMap(code, sm []byte, css bool) string {
	if len(sm) == 0 {
		return string(code)
	}
	url := "sourceMappingURL=data:application/json;base64," + base64.StdEncoding.EncodeToString(sm)
	if css {
		return string(code) + "\n/*# " + url + " */\n"
	}
	return string(code) + "\n//# " + url + "\n"
}
