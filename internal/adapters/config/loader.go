// Package config provides the configuration loader for weave.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the configuration schema version understood by this loader.
const SupportedVersion = "1"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

var _ ports.ConfigLoader = (*Loader)(nil)

// Load finds name starting at cwd and walking up, and returns the project it
// describes. A name holding a directory component is used as is.
func (l *Loader) Load(cwd, name string) (*domain.Project, error) {
	if name == "" {
		name = domain.ConfigFileName
	}
	configPath, err := findConfiguration(cwd, name)
	if err != nil {
		return nil, err
	}

	var wf Weavefile
	if err := readAndUnmarshalYAML(configPath, &wf); err != nil {
		return nil, domain.ConfigError(err, "path", configPath)
	}
	if wf.Version != "" && wf.Version != SupportedVersion {
		l.Logger.Warn(fmt.Sprintf("%s declares version %q, expected %q", filepath.Base(configPath), wf.Version, SupportedVersion))
	}

	p := toProject(&wf)
	p.Root = resolveRoot(configPath, wf.Root)

	env, err := loadEnvFile(filepath.Join(filepath.Dir(configPath), domain.EnvFileName))
	if err != nil {
		return nil, domain.ConfigError(err, "path", domain.EnvFileName)
	}
	if len(env) > 0 {
		if p.Context == nil {
			p.Context = make(map[string]string, len(env))
		}
		maps.Copy(p.Context, env)
	}

	return p, nil
}

func findConfiguration(cwd, name string) (string, error) {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, "/") {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		if _, err := os.Stat(p); err != nil {
			return "", domain.ConfigError(domain.ErrConfigNotFound, "path", p)
		}
		return filepath.Clean(p), nil
	}

	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", domain.ConfigError(domain.ErrConfigNotFound, "cwd", cwd)
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Join(domain.ErrConfigReadFailed, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(configFile))
	dec.KnownFields(true)
	if parseErr := dec.Decode(target); parseErr != nil {
		if errors.Is(parseErr, io.EOF) {
			return nil
		}
		return errors.Join(domain.ErrConfigParseFailed, parseErr)
	}

	return nil
}

// loadEnvFile reads the dotenv file at p. A missing file is not an error.
func loadEnvFile(p string) (map[string]string, error) {
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	env, err := godotenv.Read(p)
	if err != nil {
		return nil, errors.Join(domain.ErrEnvFileFailed, err)
	}
	return env, nil
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

func toProject(wf *Weavefile) *domain.Project {
	dist := clean(wf.Dist)
	if dist == "" {
		dist = domain.DefaultDist
	}

	p := &domain.Project{
		Dist: dist,
		Mode: strings.TrimSpace(wf.Mode),
		Scripts: domain.Scripts{
			Src:     cleanAll(wf.Scripts.Src),
			Base:    clean(wf.Scripts.Base),
			AppBase: clean(wf.Scripts.AppBase),
			Dest:    orDefault(clean(wf.Scripts.Dest), dist),
			Name:    wf.Scripts.Name,
			Target:  wf.Scripts.Target,
			Styles:  cleanAll(wf.Scripts.Styles),
			Markup:  cleanAll(wf.Scripts.Markup),
		},
		Styles: domain.Styles{
			Src:  cleanAll(wf.Styles.Src),
			Base: orDefault(clean(wf.Styles.Base), globBase(wf.Styles.Src)),
			Dest: orDefault(clean(wf.Styles.Dest), dist),
			Name: wf.Styles.Name,
		},
		Index: domain.Index{
			Src:  clean(wf.Index.Src),
			Dest: orDefault(clean(wf.Index.Dest), dist),
			Name: wf.Index.Name,
		},
		Assets: domain.Assets{
			Src:  clean(wf.Assets.Src),
			Dest: clean(wf.Assets.Dest),
		},
		Vendor: domain.Vendor{
			Files: cleanAll(wf.Vendor.Files),
			Dest:  orDefault(clean(wf.Vendor.Dest), path.Join(dist, "vendor")),
			Name:  orDefault(wf.Vendor.Name, "bundle.js"),
		},
		Icons: domain.Icons{
			Src:       cleanAll(wf.Icons.Src),
			Dest:      orDefault(clean(wf.Icons.Dest), path.Join(dist, "iconfont")),
			FontName:  orDefault(wf.Icons.FontName, "icons"),
			CSSClass:  orDefault(wf.Icons.CSSClass, "icon"),
			Template:  clean(wf.Icons.Template),
			CSSDest:   orDefault(clean(wf.Icons.CSSDest), "css"),
			FontDest:  orDefault(clean(wf.Icons.FontDest), "fonts"),
			Generator: wf.Icons.Generator,
		},
		StyleCompiler: wf.StyleCompiler,
		Lint:          wf.Lint,
		Notify:        wf.Notify,
		Watch:         cleanAll(wf.Watch),
		Serve: domain.Serve{
			Port: wf.Serve.Port,
			Root: clean(wf.Serve.Root),
		},
		Context: wf.Context,
	}

	if p.Index.Src != "" && p.Index.Name == "" {
		p.Index.Name = path.Base(p.Index.Src)
	}
	if p.Serve.Port == 0 {
		p.Serve.Port = domain.DefaultServePort
	}
	if p.Assets.Src != "" && p.Assets.Dest == "" {
		p.Assets.Dest = path.Join(dist, path.Base(p.Assets.Src))
	}
	for _, c := range wf.Copy {
		p.Copy = append(p.Copy, domain.CopyRule{
			Base: clean(c.Base),
			Src:  cleanAll(c.Src),
			Dest: orDefault(clean(c.Dest), dist),
		})
	}
	return p
}

// globBase returns the directory part of the first pattern before any glob
// meta character, the way a stream without an explicit base is rooted.
func globBase(patterns []string) string {
	for _, p := range cleanAll(patterns) {
		if strings.HasPrefix(p, "!") {
			continue
		}
		base, _ := doublestar.SplitPattern(p)
		if base == "." {
			return ""
		}
		return base
	}
	return ""
}

// clean normalizes a configured path to a slash separated relative form.
// Globs survive untouched apart from separators and a leading "./".
func clean(s string) string {
	s = strings.TrimSpace(filepath.ToSlash(s))
	if s == "" {
		return ""
	}
	neg := strings.HasPrefix(s, "!")
	if neg {
		s = s[1:]
	}
	s = path.Clean(s)
	if neg {
		s = "!" + s
	}
	return s
}

func cleanAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := clean(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
