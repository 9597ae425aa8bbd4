// Package domain holds the build model: configuration, tasks, pipelines and results.
package domain

import (
	"errors"
	"strings"

	"go.trai.ch/zerr"
)

// Environment selects between a development and a production build.
type Environment string

const (
	// EnvDevelopment emits sourcemaps and skips vendor bundling.
	EnvDevelopment Environment = "development"
	// EnvProduction is the deployable build.
	EnvProduction Environment = "production"
)

// ParseEnvironment parses s strictly. Surrounding whitespace and case are ignored.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case EnvDevelopment:
		return EnvDevelopment, nil
	case EnvProduction:
		return EnvProduction, nil
	default:
		return "", ConfigError(ErrUnknownEnvironment, "environment", s)
	}
}

func (e Environment) String() string {
	return string(e)
}

// PackagingMode selects how application scripts are packaged.
type PackagingMode string

const (
	// ModeLazy emits one output per source with external templates and styles.
	ModeLazy PackagingMode = "lazy"
	// ModeBundle concatenates all scripts into one file with templates and styles inlined.
	ModeBundle PackagingMode = "bundle"
)

// ParsePackagingMode parses s strictly. An empty value is an error; there is no default mode.
func ParsePackagingMode(s string) (PackagingMode, error) {
	switch PackagingMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLazy:
		return ModeLazy, nil
	case ModeBundle:
		return ModeBundle, nil
	default:
		return "", ConfigError(ErrUnknownPackagingMode, "mode", s)
	}
}

func (m PackagingMode) String() string {
	return string(m)
}

// ConfigError tags cause as a configuration failure so that both
// errors.Is(err, ErrConfiguration) and errors.Is(err, cause) hold.
func ConfigError(cause error, key string, value any) error {
	return errors.Join(ErrConfiguration, zerr.With(zerr.Wrap(cause, ""), key, value))
}
