package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetValue_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, SetValue(configPath, "reconcile.matching", "loose"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "reconcile:\n  matching: loose\n", string(data))
}

func TestSetValue_PreservesCommentsAndOtherKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	initial := `# my settings
reconcile:
  matching: segments # default
  max_passes: 4
ui:
  show_help: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(initial), 0o600))

	require.NoError(t, SetValue(configPath, "reconcile.matching", "loose"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# my settings")
	assert.Contains(t, content, "matching: loose")
	assert.Contains(t, content, "max_passes: 4")
	assert.Contains(t, content, "show_help: false")
	assert.NotContains(t, content, "segments")
}

func TestSetValue_AddsMissingSections(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ui:\n  show_help: true\n"), 0o600))

	require.NoError(t, SetValue(configPath, "submit.base_url", "https://works.example.org"))
	require.NoError(t, SetValue(configPath, "flags.autosave", false))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "https://works.example.org", v.GetString("submit.base_url"))
	assert.False(t, v.GetBool("flags.autosave"))
	assert.True(t, v.GetBool("ui.show_help"))
}

func TestSetValue_ReplacesScalarSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("draft: none\n"), 0o600))

	require.NoError(t, SetValue(configPath, "draft.user_id", "jdoe"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "draft:\n  user_id: jdoe\n", string(data))
}

func TestSetValue_InvalidKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, SetValue(configPath, "reconcile..matching", "loose"))
	require.Error(t, SetValue(configPath, "", "x"))

	_, err := os.Stat(configPath)
	require.True(t, os.IsNotExist(err), "no file written for invalid keys")
}

func TestSetValue_MalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ui: [unclosed\n"), 0o600))

	err := SetValue(configPath, "ui.show_help", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing config")
}
