package domain

import "path/filepath"

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "weave.yaml"
	// EnvFileName is loaded next to the configuration file into the preprocess context.
	EnvFileName = ".env"
	// DefaultDist is the output root used when none is configured.
	DefaultDist = "dist"
	// DefaultServePort is the port of the development server.
	DefaultServePort = 5000
)

// Project is the static description of a front-end project.
// Every path is slash separated and relative to Root.
type Project struct {
	// Root is the absolute directory holding the configuration file.
	Root string
	// Dist is the output root.
	Dist string
	// Mode is the packaging mode as written in the configuration. It is parsed
	// when a BuildConfig is created.
	Mode    string
	Scripts Scripts
	Styles  Styles
	Index   Index
	Assets  Assets
	Copy    []CopyRule
	Vendor  Vendor
	Icons   Icons
	// StyleCompiler is the external command turning a .less or .scss source into CSS.
	// It reads the source on stdin and writes CSS to stdout.
	StyleCompiler []string
	// Lint is the external lint command. Empty disables linting.
	Lint []string
	// Notify is the external notification command. Empty falls back to the log.
	Notify []string
	// Watch lists the globs that trigger a rebuild in watch mode.
	Watch []string
	Serve Serve
	// Context holds preprocess variables. NODE_ENV is added per build.
	Context map[string]string
}

// Scripts configures the application scripts pipeline.
type Scripts struct {
	Src []string
	// Base is the source directory stripped from output paths.
	Base string
	// AppBase is the base that rewritten template and style URLs are made relative to.
	AppBase string
	Dest    string
	// Name is the single output file in bundle mode.
	Name string
	// Target is the ECMAScript target, e.g. es2017.
	Target string
	// Styles and Markup select the component styles and templates emitted beside
	// the scripts in lazy mode.
	Styles []string
	Markup []string
}

// Styles configures the global stylesheet.
type Styles struct {
	Src  []string
	Base string
	Dest string
	Name string
}

// Index configures the entry document.
type Index struct {
	Src  string
	Dest string
	Name string
}

// Assets is copied into the output unchanged.
type Assets struct {
	Src  string
	Dest string
}

// CopyRule copies files selected under Base into Dest, keeping their relative layout.
type CopyRule struct {
	Base string
	Src  []string
	Dest string
}

// Vendor configures the third-party script bundle.
type Vendor struct {
	Files []string
	Dest  string
	Name  string
}

// Icons configures the icon font.
type Icons struct {
	Src      []string
	Dest     string
	FontName string
	CSSClass string
	// Template is an optional text/template for the generated stylesheet.
	Template string
	// CSSDest and FontDest are relative to Dest.
	CSSDest  string
	FontDest string
	// Generator renders the font. It receives the glyph directory, the output
	// directory and the font name as trailing arguments.
	Generator []string
}

// Serve configures the development server.
type Serve struct {
	Port int
	Root string
}

// Abs resolves a project relative path to an OS path.
func (p *Project) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// ServeRoot returns the directory served by the development server.
func (p *Project) ServeRoot() string {
	if p.Serve.Root != "" {
		return p.Serve.Root
	}
	return p.Dist
}
