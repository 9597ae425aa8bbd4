package shell

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironment(t *testing.T) {
	sep := string(os.PathListSeparator)
	bin := filepath.Join("/project", "node_modules", ".bin")

	tests := []struct {
		name      string
		sysEnv    []string
		dir       string
		overrides map[string]string
		expected  []string
	}{
		{
			name:     "System Only (Allowed)",
			sysEnv:   []string{"USER=test", "PATH=/bin", "HOME=/home/test"},
			expected: []string{"USER=test", "PATH=/bin", "HOME=/home/test"},
		},
		{
			name:     "System Only (Filtered)",
			sysEnv:   []string{"USER=test", "SSH_AUTH_SOCK=/tmp/ssh", "SECRET=key"},
			expected: []string{"USER=test"},
		},
		{
			name:     "Project Bin Prepended",
			sysEnv:   []string{"PATH=/bin"},
			dir:      "/project",
			expected: []string{"PATH=" + bin + sep + "/bin"},
		},
		{
			name:      "Overrides",
			sysEnv:    []string{"USER=test", "PATH=/bin"},
			dir:       "/project",
			overrides: map[string]string{"NODE_ENV": "development", "PATH": "/tools"},
			expected:  []string{"USER=test", "NODE_ENV=development", "PATH=/tools" + sep + bin + sep + "/bin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveEnvironment(tt.sysEnv, tt.dir, tt.overrides)
			sort.Strings(got)
			sort.Strings(tt.expected)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "lessc")
	//nolint:gosec // Test requires executable file
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o700); err != nil {
		t.Fatal(err)
	}

	got, err := lookPath("lessc", []string{"PATH=" + dir})
	assert.NoError(t, err)
	assert.Equal(t, tool, got)

	_, err = lookPath("lessc", []string{"HOME=/"})
	assert.Error(t, err)
}
