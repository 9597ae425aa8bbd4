// Package detector picks how build progress is presented.
package detector

import (
	"os"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeTUI forces the interactive TUI renderer.
	ModeTUI
	// ModeLinear forces line by line output.
	ModeLinear
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeLinear:
		return "linear"
	default:
		return "auto"
	}
}

// ParseOutputMode parses the value of the --output-mode flag.
func ParseOutputMode(s string) (OutputMode, error) {
	switch s {
	case "auto", "":
		return ModeAuto, nil
	case "tui":
		return ModeTUI, nil
	case "linear", "ci":
		return ModeLinear, nil
	default:
		return ModeAuto, domain.ConfigError(zerr.New("unknown output mode, expected auto, tui or linear"), "output_mode", s)
	}
}

// Environment describes the terminal weave runs in.
type Environment struct {
	TTY bool
	CI  bool
}

// DetectEnvironment inspects stdout and the CI variable.
func DetectEnvironment() Environment {
	ci := os.Getenv("CI")
	return Environment{
		TTY: term.IsTerminal(int(os.Stdout.Fd())),
		CI:  ci == "true" || ci == "1",
	}
}

// Resolve returns the concrete mode for requested. Auto picks the TUI only on
// an interactive terminal outside CI; forceCI always yields linear output.
func (e Environment) Resolve(requested OutputMode, forceCI bool) OutputMode {
	if forceCI {
		return ModeLinear
	}
	if requested != ModeAuto {
		return requested
	}
	if !e.TTY || e.CI {
		return ModeLinear
	}
	return ModeTUI
}
