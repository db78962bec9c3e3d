// Package config loads the optional pageprime configuration file and
// hosts the device-to-pack catalog of last-written pack paths and digests.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional pageprime configuration file.
type Config struct {
	Trace  TraceConfig  `toml:"trace"`
	Replay ReplayConfig `toml:"replay"`
}

// TraceConfig holds persistent defaults for the trace subcommand.
type TraceConfig struct {
	IgnorePrefixes     []string `toml:"ignore_prefixes"`
	GroupHintThreshold *int     `toml:"group_hint_threshold"`
	BufferSizeKiB      *int     `toml:"buffer_size_kib"`
	ForceSSDMode       *bool    `toml:"force_ssd_mode"`
	PackDir            *string  `toml:"pack_dir"`
}

// ReplayConfig holds persistent defaults for the replay subcommand.
type ReplayConfig struct {
	Workers *int `toml:"workers"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "pageprime", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
