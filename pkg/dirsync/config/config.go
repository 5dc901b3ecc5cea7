// Package config loads and validates dirsync configuration from YAML
// files and DIRSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/arthur-debert/dirsync/pkg/dirsync/catalog"
	"github.com/arthur-debert/dirsync/pkg/dirsync/script"
)

// ByteSize is a byte count that accepts human-readable strings such as
// "64KiB" or "4 MB" in configuration files and environment variables.
type ByteSize int64

// Config is the full dirsync configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Hash    HashConfig    `mapstructure:"hash"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Script  ScriptConfig  `mapstructure:"script"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

type HashConfig struct {
	// Partial hashes only a window at each end of every file instead of
	// the whole content.
	Partial bool `mapstructure:"partial"`
	// Window is the size of each end's window in partial mode.
	Window ByteSize `mapstructure:"window" validate:"min=4096"`
}

type ScanConfig struct {
	Jobs    int      `mapstructure:"jobs" validate:"min=1,max=64"`
	Exclude []string `mapstructure:"exclude"`
}

type CatalogConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type ScriptConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "warn"},
		Hash:    HashConfig{Partial: false, Window: 64 * 1024},
		Scan:    ScanConfig{Jobs: defaultJobs(), Exclude: nil},
		Catalog: CatalogConfig{Name: catalog.DefaultName},
		Script:  ScriptConfig{Name: script.DefaultName},
	}
}

func defaultJobs() int {
	jobs := runtime.NumCPU()
	if jobs < 1 {
		jobs = 1
	}
	if jobs > 64 {
		jobs = 64
	}
	return jobs
}

// Load reads configuration from path, or, when path is empty, from
// config.yaml in the standard locations ($XDG_CONFIG_HOME/dirsync,
// ~/.config/dirsync, then the working directory). Missing files fall
// back to defaults; environment variables such as DIRSYNC_SCAN_JOBS
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("DIRSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode maps viper's merged settings onto the config struct. Weak typing
// matches viper's own unmarshalling, so env values arrive as strings and
// still land in int and bool fields.
func decode(settings map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       decodeHooks(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(settings)
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("hash.partial", def.Hash.Partial)
	v.SetDefault("hash.window", int64(def.Hash.Window))
	v.SetDefault("scan.jobs", def.Scan.Jobs)
	v.SetDefault("scan.exclude", def.Scan.Exclude)
	v.SetDefault("catalog.name", def.Catalog.Name)
	v.SetDefault("script.name", def.Script.Name)
}

func configDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "dirsync"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "dirsync"))
	}
	return dirs
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeHook parses strings like "64KiB" into ByteSize fields; numeric
// values pass through untouched.
func byteSizeHook() mapstructure.DecodeHookFunc {
	byteSizeType := reflect.TypeOf(ByteSize(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != byteSizeType || f.Kind() != reflect.String {
			return data, nil
		}
		n, err := humanize.ParseBytes(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid byte size %q: %w", data, err)
		}
		return ByteSize(n), nil
	}
}

// ParseByteSize converts a human-readable size string from a flag into a
// ByteSize.
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}
