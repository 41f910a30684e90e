// Package config holds the sync policy and runtime switches of the updater.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultFileName is looked up in the working directory when no path is given.
	DefaultFileName = "SUpdaterOptions.json"

	DefaultConnectTimeoutSeconds = 15
	DefaultIdleTimeoutSeconds    = 60
)

// Keys of the JSON document. Viper matches them case-insensitively.
const (
	KeyFtpAddress                = "FtpAddress"
	KeySyncFolder                = "SyncFolder"
	KeyUser                      = "User"
	KeyPassword                  = "Password"
	KeyDownloadIgnore            = "DownloadIgnore"
	KeyDownloadOnlyIfNotExists   = "DownloadOnlyIfNotExists"
	KeyDeleteIgnore              = "DeleteIgnore"
	KeyAppUpdateUrl              = "AppUpdateUrl"
	KeyIsCheckAppUpdates         = "IsCheckAppUpdates"
	KeyIsSilentMode              = "IsSilentMode"
	KeyIsSendAnonymousStatistics = "IsSendAnonymousStatistics"
	KeyStatsUrl                  = "StatsUrl"
	KeyConnectTimeoutSeconds     = "ConnectTimeoutSeconds"
	KeyIdleTimeoutSeconds        = "IdleTimeoutSeconds"
)

var (
	ErrNoServerAddress = errors.New("config: server address missing")
	ErrNoSyncFolder    = errors.New("config: sync folder missing")
)

// Config is the sync policy. It is read once at startup and never mutated by the engine.
type Config struct {
	FtpAddress string `json:"FtpAddress"`
	SyncFolder string `json:"SyncFolder"`
	User       string `json:"User"`
	Password   string `json:"Password"`

	// Regular expressions tested against the path relative to the sync root.
	DownloadIgnore []string `json:"DownloadIgnore"`
	// Substrings; a matching file is only downloaded when it is missing locally.
	DownloadOnlyIfNotExists []string `json:"DownloadOnlyIfNotExists"`
	// Regular expressions protecting local paths from deletion.
	DeleteIgnore []string `json:"DeleteIgnore"`

	AppUpdateUrl              string `json:"AppUpdateUrl"`
	IsCheckAppUpdates         bool   `json:"IsCheckAppUpdates"`
	IsSilentMode              bool   `json:"IsSilentMode"`
	IsSendAnonymousStatistics bool   `json:"IsSendAnonymousStatistics"`
	StatsUrl                  string `json:"StatsUrl"`

	ConnectTimeoutSeconds int `json:"ConnectTimeoutSeconds"`
	IdleTimeoutSeconds    int `json:"IdleTimeoutSeconds"`

	Path string `json:"-"`
}

// FromViper builds a Config from an already loaded viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		FtpAddress:                v.GetString(KeyFtpAddress),
		SyncFolder:                v.GetString(KeySyncFolder),
		User:                      v.GetString(KeyUser),
		Password:                  v.GetString(KeyPassword),
		DownloadIgnore:            v.GetStringSlice(KeyDownloadIgnore),
		DownloadOnlyIfNotExists:   v.GetStringSlice(KeyDownloadOnlyIfNotExists),
		DeleteIgnore:              v.GetStringSlice(KeyDeleteIgnore),
		AppUpdateUrl:              v.GetString(KeyAppUpdateUrl),
		IsCheckAppUpdates:         v.GetBool(KeyIsCheckAppUpdates),
		IsSilentMode:              v.GetBool(KeyIsSilentMode),
		IsSendAnonymousStatistics: v.GetBool(KeyIsSendAnonymousStatistics),
		StatsUrl:                  v.GetString(KeyStatsUrl),
		ConnectTimeoutSeconds:     v.GetInt(KeyConnectTimeoutSeconds),
		IdleTimeoutSeconds:        v.GetInt(KeyIdleTimeoutSeconds),
		Path:                      v.ConfigFileUsed(),
	}
}

// Validate checks required fields, compiles every pattern and applies defaults.
func (c *Config) Validate() error {
	c.FtpAddress = strings.TrimSpace(c.FtpAddress)
	if c.FtpAddress == "" {
		return ErrNoServerAddress
	}

	c.SyncFolder = strings.TrimSpace(c.SyncFolder)
	if c.SyncFolder == "" {
		return ErrNoSyncFolder
	}

	for _, set := range []struct {
		key      string
		patterns []string
	}{
		{KeyDownloadIgnore, c.DownloadIgnore},
		{KeyDeleteIgnore, c.DeleteIgnore},
	} {
		for _, p := range set.patterns {
			if p == "" {
				continue
			}
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("config: %s pattern %q: %w", set.key, p, err)
			}
		}
	}

	c.AppUpdateUrl = strings.TrimSuffix(strings.TrimSpace(c.AppUpdateUrl), "/")

	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = DefaultConnectTimeoutSeconds
	}
	if c.IdleTimeoutSeconds <= 0 {
		c.IdleTimeoutSeconds = DefaultIdleTimeoutSeconds
	}

	return nil
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// SelfUpdateEnabled reports whether the self-update pre-flight should run.
func (c *Config) SelfUpdateEnabled() bool {
	return c.IsCheckAppUpdates && c.AppUpdateUrl != ""
}
