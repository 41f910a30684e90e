package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sershocode/supdater/internal/config"
	"github.com/sershocode/supdater/internal/utils"
)

const envPrefix = "SUPDATER"

var ErrConfigNotFound = errors.New("config file not found")

// loadConfig resolves the sync root and reads the config file next to it.
// Environment variables prefixed with SUPDATER_ override file values.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, "", fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = "."
	}
	root, err := utils.ResolvePath(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve sync root %s: %w", dir, err)
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.DefaultFileName)
	} else if cfgPath, err = utils.ResolvePath(cfgPath); err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if !utils.FileExists(cfgPath) {
		return nil, "", fmt.Errorf("%w: %s", ErrConfigNotFound, cfgPath)
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, "", fmt.Errorf("failed to read config %s: %w", cfgPath, err)
	}

	cfg := config.FromViper(v)
	if silent, _ := cmd.Flags().GetBool("silent"); silent {
		cfg.IsSilentMode = true
	}
	return cfg, root, nil
}
