package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "nocturne", "config.json")
	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) { return configPath, nil }
	t.Cleanup(func() { getConfigPathFunc = oldGetConfigPath })
	return configPath
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "nocturne"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	withConfigPath(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestSaveAndLoadGlobalConfig(t *testing.T) {
	configPath := withConfigPath(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://notes.local:8080"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "http://notes.local:8080", config.APIURL)
}

func TestSaveGlobalConfig_Nil(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configPath := withConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	_, err := LoadGlobalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestRunConfigSetURL(t *testing.T) {
	withConfigPath(t)

	require.NoError(t, runConfigSetURL("http://localhost:9090"))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", config.APIURL)

	assert.Error(t, runConfigSetURL("not a url"))
}
