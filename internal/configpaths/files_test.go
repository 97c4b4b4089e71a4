package configpaths_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Alia5/padbridge/internal/configpaths"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCandidatePathsUserFirst(t *testing.T) {
	tests := []struct {
		name string
		path string
		pick func(j, y, tm []string) []string
	}{
		{"json", "/tmp/my.json", func(j, _, _ []string) []string { return j }},
		{"unknown extension", "/tmp/my.conf", func(j, _, _ []string) []string { return j }},
		{"yaml", "/tmp/my.yml", func(_, y, _ []string) []string { return y }},
		{"toml", "/tmp/my.toml", func(_, _, tm []string) []string { return tm }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, y, tm := configpaths.ConfigCandidatePaths(tt.path)
			got := tt.pick(j, y, tm)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.path, got[0])
		})
	}
}

func TestConfigCandidatePathsDirs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix layout")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	j, y, tm := configpaths.ConfigCandidatePaths("")
	assert.Contains(t, j, filepath.Join(xdg, "padbridge", "config.json"))
	assert.Contains(t, y, filepath.Join(xdg, "padbridge", "padbridge.yml"))
	assert.Contains(t, tm, filepath.Join(configpaths.SystemDir, "bridge.toml"))
	assert.Equal(t, filepath.Join(configpaths.SystemDir, "bridge.toml"), tm[len(tm)-1])
}

func TestDefaultNamedConfigPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix layout")
	}
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for format, want := range map[string]string{"yml": "bridge.yaml", "toml": "bridge.toml", "": "bridge.json"} {
		p, err := configpaths.DefaultNamedConfigPath("bridge", format)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(xdg, "padbridge", want), p)
	}
}
