package config

// Weavefile is the root of weave.yaml.
type Weavefile struct {
	Version       string            `yaml:"version"`
	Root          string            `yaml:"root"`
	Dist          string            `yaml:"dist"`
	Mode          string            `yaml:"mode"`
	Scripts       ScriptsDTO        `yaml:"scripts"`
	Styles        StylesDTO         `yaml:"styles"`
	Index         IndexDTO          `yaml:"index"`
	Assets        AssetsDTO         `yaml:"assets"`
	Copy          []CopyDTO         `yaml:"copy"`
	Vendor        VendorDTO         `yaml:"vendor"`
	Icons         IconsDTO          `yaml:"icons"`
	StyleCompiler []string          `yaml:"styleCompiler"`
	Lint          []string          `yaml:"lint"`
	Notify        []string          `yaml:"notify"`
	Watch         []string          `yaml:"watch"`
	Serve         ServeDTO          `yaml:"serve"`
	Context       map[string]string `yaml:"context"`
}

// ScriptsDTO configures the application scripts.
type ScriptsDTO struct {
	Src     []string `yaml:"src"`
	Base    string   `yaml:"base"`
	AppBase string   `yaml:"appBase"`
	Dest    string   `yaml:"dest"`
	Name    string   `yaml:"name"`
	Target  string   `yaml:"target"`
	Styles  []string `yaml:"styles"`
	Markup  []string `yaml:"markup"`
}

// StylesDTO configures the global stylesheet.
type StylesDTO struct {
	Src  []string `yaml:"src"`
	Base string   `yaml:"base"`
	Dest string   `yaml:"dest"`
	Name string   `yaml:"name"`
}

// IndexDTO configures the entry document.
type IndexDTO struct {
	Src  string `yaml:"src"`
	Dest string `yaml:"dest"`
	Name string `yaml:"name"`
}

// AssetsDTO configures the static assets.
type AssetsDTO struct {
	Src  string `yaml:"src"`
	Dest string `yaml:"dest"`
}

// CopyDTO is one copy rule.
type CopyDTO struct {
	Base string   `yaml:"base"`
	Src  []string `yaml:"src"`
	Dest string   `yaml:"dest"`
}

// VendorDTO configures the vendor bundle.
type VendorDTO struct {
	Files []string `yaml:"files"`
	Dest  string   `yaml:"dest"`
	Name  string   `yaml:"name"`
}

// IconsDTO configures the icon font.
type IconsDTO struct {
	Src       []string `yaml:"src"`
	Dest      string   `yaml:"dest"`
	FontName  string   `yaml:"fontName"`
	CSSClass  string   `yaml:"cssClass"`
	Template  string   `yaml:"templatePath"`
	CSSDest   string   `yaml:"cssDest"`
	FontDest  string   `yaml:"fontDest"`
	Generator []string `yaml:"generator"`
}

// ServeDTO configures the development server.
type ServeDTO struct {
	Port int    `yaml:"port"`
	Root string `yaml:"root"`
}
