package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "FtpAddress": "files.example.com",
  "SyncFolder": "game",
  "User": "player",
  "Password": "secret",
  "DownloadIgnore": ["\\.log$", "^cache/"],
  "DownloadOnlyIfNotExists": ["settings.ini"],
  "DeleteIgnore": ["^saves/", ""],
  "AppUpdateUrl": "https://updates.example.com/",
  "IsCheckAppUpdates": true,
  "IsSilentMode": true,
  "IsSendAnonymousStatistics": false
}`

func loadSample(t *testing.T, body string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return FromViper(v)
}

func TestFromViper_ReadsAllKeys(t *testing.T) {
	cfg := loadSample(t, sampleConfig)

	assert.Equal(t, "files.example.com", cfg.FtpAddress)
	assert.Equal(t, "game", cfg.SyncFolder)
	assert.Equal(t, "player", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, []string{`\.log$`, "^cache/"}, cfg.DownloadIgnore)
	assert.Equal(t, []string{"settings.ini"}, cfg.DownloadOnlyIfNotExists)
	assert.Equal(t, []string{"^saves/", ""}, cfg.DeleteIgnore)
	assert.True(t, cfg.IsCheckAppUpdates)
	assert.True(t, cfg.IsSilentMode)
	assert.False(t, cfg.IsSendAnonymousStatistics)
	assert.Equal(t, DefaultFileName, filepath.Base(cfg.Path))
}

func TestValidate_DefaultsAndNormalization(t *testing.T) {
	cfg := loadSample(t, sampleConfig)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://updates.example.com", cfg.AppUpdateUrl)
	assert.Equal(t, 15*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout())
	assert.True(t, cfg.SelfUpdateEnabled())
}

func TestValidate_Errors(t *testing.T) {
	t.Run("missing address", func(t *testing.T) {
		cfg := &Config{SyncFolder: "game"}
		assert.ErrorIs(t, cfg.Validate(), ErrNoServerAddress)
	})

	t.Run("missing sync folder", func(t *testing.T) {
		cfg := &Config{FtpAddress: "files.example.com", SyncFolder: "  "}
		assert.ErrorIs(t, cfg.Validate(), ErrNoSyncFolder)
	})

	t.Run("bad download pattern", func(t *testing.T) {
		cfg := &Config{FtpAddress: "h", SyncFolder: "g", DownloadIgnore: []string{"("}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), KeyDownloadIgnore)
	})

	t.Run("bad delete pattern", func(t *testing.T) {
		cfg := &Config{FtpAddress: "h", SyncFolder: "g", DeleteIgnore: []string{"[a-"}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), KeyDeleteIgnore)
	})
}

func TestSelfUpdateEnabled(t *testing.T) {
	assert.False(t, (&Config{IsCheckAppUpdates: true}).SelfUpdateEnabled())
	assert.False(t, (&Config{AppUpdateUrl: "https://u"}).SelfUpdateEnabled())
	assert.True(t, (&Config{IsCheckAppUpdates: true, AppUpdateUrl: "https://u"}).SelfUpdateEnabled())
}
