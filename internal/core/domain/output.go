package domain

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Output is a path a task writes to. A tree output owns everything below Path;
// a glob output owns every path its doublestar pattern matches.
type Output struct {
	Path string
	Tree bool
	Glob bool
}

// FileOutput declares a single written file.
func FileOutput(p string) Output {
	return Output{Path: path.Clean(p)}
}

// TreeOutput declares a written directory tree.
func TreeOutput(p string) Output {
	return Output{Path: path.Clean(p), Tree: true}
}

// GlobOutput declares the files matched by a doublestar pattern.
func GlobOutput(pattern string) Output {
	return Output{Path: path.Clean(pattern), Glob: true}
}

// Overlaps reports whether o and other can write the same file.
func (o Output) Overlaps(other Output) bool {
	a, b := path.Clean(o.Path), path.Clean(other.Path)
	switch {
	case o.Glob && other.Glob:
		ba, bb := globBase(a), globBase(b)
		return within(ba, bb) || within(bb, ba)
	case o.Glob:
		return globTouches(a, other)
	case other.Glob:
		return globTouches(b, o)
	}
	switch {
	case o.Tree && other.Tree:
		return within(a, b) || within(b, a)
	case o.Tree:
		return within(b, a)
	case other.Tree:
		return within(a, b)
	default:
		return a == b
	}
}

// globTouches reports whether pattern can match the file out, or a path inside
// the tree out.
func globTouches(pattern string, out Output) bool {
	if !out.Tree {
		ok, err := doublestar.Match(pattern, out.Path)
		return ok || err != nil
	}
	base := globBase(pattern)
	if within(base, out.Path) {
		return true
	}
	if !within(out.Path, base) {
		return false
	}
	// The tree lies below the literal base: walk its segments against the
	// pattern's and see whether the pattern can descend into it.
	rest := strings.Split(strings.TrimPrefix(pattern, base+"/"), "/")
	dirs := strings.Split(strings.TrimPrefix(out.Path, base+"/"), "/")
	if base == "." {
		rest = strings.Split(pattern, "/")
		dirs = strings.Split(out.Path, "/")
	}
	for i, dir := range dirs {
		if i >= len(rest) {
			return false
		}
		if rest[i] == "**" {
			return true
		}
		if ok, err := doublestar.Match(rest[i], dir); !ok && err == nil {
			return false
		}
	}
	return true
}

// globBase is the literal directory prefix of pattern.
func globBase(pattern string) string {
	base, _ := doublestar.SplitPattern(pattern)
	return path.Clean(base)
}

// within reports whether p equals dir or lies below it.
func within(p, dir string) bool {
	if dir == "." {
		return true
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// ValidateOutputs checks that no two tasks write overlapping outputs.
// Outputs of the same task may overlap.
func ValidateOutputs(outputs map[TaskID][]Output) error {
	tasks := make([]TaskID, 0, len(outputs))
	for t := range outputs {
		tasks = append(tasks, t)
	}
	slices.Sort(tasks)

	for i, a := range tasks {
		for _, b := range tasks[i+1:] {
			for _, oa := range outputs[a] {
				for _, ob := range outputs[b] {
					if oa.Overlaps(ob) {
						return ConfigError(ErrOverlappingDestinations, "tasks",
							fmt.Sprintf("%s (%s) and %s (%s)", a, oa.Path, b, ob.Path))
					}
				}
			}
		}
	}
	return nil
}
