package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBoolAcceptsOriginalVocabulary(t *testing.T) {
	truthy := []string{"", "1", "yes", "YES", "true", "TRUE"}
	for _, s := range truthy {
		got, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.True(t, got, s)
	}

	falsy := []string{"0", "no", "NO", "false", "FALSE"}
	for _, s := range falsy {
		got, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.False(t, got, s)
	}
}

func TestParseBoolRejectsGarbage(t *testing.T) {
	_, err := ParseBool("maybe")
	assert.Error(t, err)
}

func TestLoadRequiresModelName(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(Flags{TOMLPath: filepath.Join(dir, "missing.toml")})
	assert.Error(t, err)
}

func TestLoadFlagsTakePrecedenceOverTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "ompc.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[model]
name = "FromFile"
output_dir = "from-file-out"
`), 0o644))

	opts, err := Load(Flags{ModelName: "FromFlag", TOMLPath: tomlPath})
	require.NoError(t, err)
	assert.Equal(t, "FromFlag", opts.ModelName)
	assert.Equal(t, "from-file-out", opts.OutputDir)
}

func TestLoadFallsBackToTOMLForBooleans(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "ompc.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[model]
name = "M"

[build]
event_trace = "yes"
index_errors = "no"
`), 0o644))

	opts, err := Load(Flags{TOMLPath: tomlPath})
	require.NoError(t, err)
	assert.True(t, opts.EventTrace)
	assert.False(t, opts.IndexErrors)
}

func TestLoadDefaultsIndexErrorsToTrueWhenUnset(t *testing.T) {
	opts, err := Load(Flags{ModelName: "M", TOMLPath: filepath.Join(t.TempDir(), "absent.toml")})
	require.NoError(t, err)
	assert.True(t, opts.IndexErrors)
	assert.False(t, opts.EventTrace)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, err := Load(Flags{ModelName: "M", TOMLPath: filepath.Join(t.TempDir(), "absent.toml")})
	assert.NoError(t, err)
}
