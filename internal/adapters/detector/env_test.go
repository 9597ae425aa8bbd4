package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/detector"
	"go.trai.ch/weave/internal/core/domain"
)

func TestParseOutputMode(t *testing.T) {
	for in, want := range map[string]detector.OutputMode{
		"":       detector.ModeAuto,
		"auto":   detector.ModeAuto,
		"tui":    detector.ModeTUI,
		"linear": detector.ModeLinear,
		"ci":     detector.ModeLinear,
	} {
		got, err := detector.ParseOutputMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := detector.ParseOutputMode("fancy")
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestEnvironment_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		env       detector.Environment
		requested detector.OutputMode
		forceCI   bool
		want      detector.OutputMode
	}{
		{"auto on a terminal", detector.Environment{TTY: true}, detector.ModeAuto, false, detector.ModeTUI},
		{"auto without terminal", detector.Environment{}, detector.ModeAuto, false, detector.ModeLinear},
		{"auto in CI", detector.Environment{TTY: true, CI: true}, detector.ModeAuto, false, detector.ModeLinear},
		{"forced tui", detector.Environment{}, detector.ModeTUI, false, detector.ModeTUI},
		{"ci flag wins", detector.Environment{TTY: true}, detector.ModeTUI, true, detector.ModeLinear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.env.Resolve(tt.requested, tt.forceCI))
		})
	}
}

func TestDetectEnvironment_CI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, detector.DetectEnvironment().CI)

	t.Setenv("CI", "")
	assert.False(t, detector.DetectEnvironment().CI)
}
