package transform

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

var (
	// directiveLine matches a line holding only a directive inside a //, /* */
	// or <!-- --> comment.
	directiveLine = regexp.MustCompile(`^\s*(?://|/\*|<!--)\s*@(if|ifdef|ifndef|else|endif|exclude|endexclude)\b\s*(.*?)\s*(?:\*/|-->)?\s*$`)
	echoDirective = regexp.MustCompile(`/\*\s*@echo\s+([\w.]+)\s*\*/|<!--\s*@echo\s+([\w.]+)\s*-->|//\s*@echo\s+([\w.]+)[ \t]*`)
	comparison    = regexp.MustCompile(`^([\w.]+)\s*(==|=|!=)\s*(.+)$`)
)

// Preprocess evaluates conditional and echo directives against the step context.
type Preprocess struct{}

// Kind implements ports.Transformer.
func (Preprocess) Kind() domain.TransformKind { return domain.KindPreprocess }

// Apply implements ports.Transformer.
func (Preprocess) Apply(ctx context.Context, step domain.TransformStep, in []*domain.Artifact) ([]*domain.Artifact, error) {
	return each(ctx, in, func(a *domain.Artifact) ([]*domain.Artifact, error) {
		out, err := preprocess(a.Contents, step.Options.Context)
		if err != nil {
			return nil, zerr.With(err, "path", a.Path)
		}
		c := a.Clone()
		c.Contents = out
		return []*domain.Artifact{c}, nil
	})
}

type frame struct {
	directive string
	// active is set when the lines of this block are emitted.
	active bool
	// taken is set once a branch of an @if chain was emitted.
	taken bool
}

func preprocess(src []byte, vars map[string]string) ([]byte, error) {
	var (
		out   bytes.Buffer
		stack []frame
	)
	emitting := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if m := directiveLine.FindStringSubmatch(line); m != nil {
			outer := emitting()
			switch m[1] {
			case "if", "ifdef", "ifndef":
				ok := condition(m[1], m[2], vars)
				stack = append(stack, frame{directive: "if", active: outer && ok, taken: ok})
			case "exclude":
				stack = append(stack, frame{directive: "exclude", active: false, taken: true})
			case "else":
				if len(stack) == 0 || stack[len(stack)-1].directive != "if" {
					return nil, unbalanced(m[1], lineNo)
				}
				top := &stack[len(stack)-1]
				parent := len(stack) == 1 || stack[len(stack)-2].active
				top.active = parent && !top.taken
				top.taken = true
			case "endif", "endexclude":
				want := "if"
				if m[1] == "endexclude" {
					want = "exclude"
				}
				if len(stack) == 0 || stack[len(stack)-1].directive != want {
					return nil, unbalanced(m[1], lineNo)
				}
				stack = stack[:len(stack)-1]
			}
			continue
		}

		if !emitting() {
			continue
		}
		line = echoDirective.ReplaceAllStringFunc(line, func(s string) string {
			sm := echoDirective.FindStringSubmatch(s)
			return vars[firstNonEmpty(sm[1:]...)]
		})
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(stack) > 0 {
		return nil, zerr.With(zerr.New("unterminated @"+stack[len(stack)-1].directive), "line", lineNo)
	}

	// Keep a missing trailing newline missing.
	if len(src) > 0 && src[len(src)-1] != '\n' && out.Len() > 0 {
		out.Truncate(out.Len() - 1)
	}
	return out.Bytes(), nil
}

func unbalanced(directive string, line int) error {
	return zerr.With(zerr.New("unexpected @"+directive), "line", line)
}

// condition evaluates the argument of @if, @ifdef or @ifndef.
func condition(directive, arg string, vars map[string]string) bool {
	switch directive {
	case "ifdef":
		_, ok := vars[strings.TrimSpace(arg)]
		return ok
	case "ifndef":
		_, ok := vars[strings.TrimSpace(arg)]
		return !ok
	default:
		return evaluate(arg, vars)
	}
}

// evaluate supports ||, &&, !, comparisons with = == != and bare truthy names.
func evaluate(expr string, vars map[string]string) bool {
	for _, alt := range strings.Split(expr, "||") {
		all := true
		for _, term := range strings.Split(alt, "&&") {
			if !truthy(strings.TrimSpace(term), vars) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func truthy(t string, vars map[string]string) bool {
	if m := comparison.FindStringSubmatch(t); m != nil {
		eq := vars[m[1]] == unquote(strings.TrimSpace(m[3]))
		if m[2] == "!=" {
			return !eq
		}
		return eq
	}
	if rest, ok := strings.CutPrefix(t, "!"); ok {
		return !truthy(strings.TrimSpace(rest), vars)
	}
	v, ok := vars[t]
	return ok && v != "" && v != "false" && v != "0"
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' && s[len(s)-1] == '\'' || s[0] == '"' && s[len(s)-1] == '"') {
		if s[0] == '"' {
			if u, err := strconv.Unquote(s); err == nil {
				return u
			}
		}
		return s[1 : len(s)-1]
	}
	return s
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
