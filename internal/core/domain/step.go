package domain

// TransformKind names a transformation of the registry.
type TransformKind string

// Transform kinds.
const (
	KindPreprocess          TransformKind = "preprocess"
	KindRelativePathRewrite TransformKind = "relative-path-rewrite"
	KindInlineTemplateStyle TransformKind = "inline-template-style"
	KindTranspile           TransformKind = "transpile"
	KindMinify              TransformKind = "minify"
	KindSourcemapInit       TransformKind = "sourcemap-init"
	KindSourcemapWrite      TransformKind = "sourcemap-write"
	KindStyleCompile        TransformKind = "style-compile"
	KindMarkupCopy          TransformKind = "markup-copy"
	KindStyleMinify         TransformKind = "style-minify"
	KindConcat              TransformKind = "concat"
	KindRename              TransformKind = "rename"
	KindIconCSS             TransformKind = "icon-css"
	KindIconFont            TransformKind = "icon-font"
)

func (k TransformKind) String() string {
	return string(k)
}

// Selection picks source files. Patterns are doublestar globs relative to the
// project root; a leading "!" excludes. Paths of selected artifacts are rebased
// onto Base when they are written.
type Selection struct {
	Base     string
	Patterns []string
}

// StepOptions carries the settings of one step. Only the fields relevant to the
// step's kind are set.
type StepOptions struct {
	// Root is the project directory. The runner sets it before a step is applied.
	Root string
	// OutFile concatenates the stream into a single file (transpile, concat).
	OutFile string
	// Target is the ECMAScript target of transpile and minify.
	Target string
	// SourceBase is stripped from output paths after transpilation.
	SourceBase string
	// OutDir is the destination of the stream; sourcemap-write resolves map
	// sources against it.
	OutDir string
	// AppBase anchors rewritten template and style URLs.
	AppBase string
	// Name renames every artifact of the stream, keeping its directory.
	Name string
	// Mangle renames local identifiers when minifying.
	Mangle bool
	// Minify makes style-compile minify its output.
	Minify bool
	// Context holds preprocess variables.
	Context map[string]string
	// Command is the external tool of style-compile and icon-font.
	Command []string
	// Sourcemaps makes a step that opens its own stream track sourcemaps.
	Sourcemaps bool
	// Icon font settings.
	FontName string
	CSSClass string
	Template string
	CSSDest  string
	FontDest string
}

// TransformStep is one immutable step of a pipeline. A step with a non-nil
// Input starts a new stream: the previous stream is written out first.
type TransformStep struct {
	ID      string
	Kind    TransformKind
	Input   *Selection
	Options StepOptions
}
