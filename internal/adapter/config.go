package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Library  LibraryConfig  `mapstructure:"library"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Waveform WaveformConfig `mapstructure:"waveform"`
	UI       UIConfig       `mapstructure:"ui"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// LibraryConfig says where tracks come from
type LibraryConfig struct {
	Paths    []string `mapstructure:"paths"`    // Directories, files or http(s) URLs
	Watch    bool     `mapstructure:"watch"`    // Pick up new files while running
	Manifest string   `mapstructure:"manifest"` // Per-directory metadata override file
}

// PlaybackConfig holds audio output settings
type PlaybackConfig struct {
	SampleRate   int           `mapstructure:"sample_rate"`
	PollInterval time.Duration `mapstructure:"poll_interval"` // How often the session publishes time updates
	Volume       float64       `mapstructure:"volume"`        // dB, -30..+6
	SeekStep     time.Duration `mapstructure:"seek_step"`
}

// WaveformConfig holds decode and lazy-loading settings
type WaveformConfig struct {
	AnalysisRate        int `mapstructure:"analysis_rate"`
	PreloadMargin       int `mapstructure:"preload_margin"` // Rows beyond the viewport that activate early
	SmallViewportMargin int `mapstructure:"small_viewport_margin"`
	SmallViewportRows   int `mapstructure:"small_viewport_rows"`
	Overscan            int `mapstructure:"overscan"` // Items kept mounted beyond the viewport
}

// UIConfig holds UI configuration
type UIConfig struct {
	Breakpoints BreakpointsConfig `mapstructure:"breakpoints"`
}

// BreakpointsConfig holds the minimum widths of the regular and wide layouts
type BreakpointsConfig struct {
	Regular int `mapstructure:"regular"`
	Wide    int `mapstructure:"wide"`
}

// StoreConfig holds resume-position persistence settings
type StoreConfig struct {
	Path          string        `mapstructure:"path"` // Empty keeps positions in memory only
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			Paths:    []string{},
			Watch:    true,
			Manifest: "tracks.yaml",
		},
		Playback: PlaybackConfig{
			SampleRate:   44100,
			PollInterval: 100 * time.Millisecond,
			Volume:       0,
			SeekStep:     5 * time.Second,
		},
		Waveform: WaveformConfig{
			AnalysisRate:        8000,
			PreloadMargin:       2,
			SmallViewportMargin: 6,
			SmallViewportRows:   20,
			Overscan:            4,
		},
		UI: UIConfig{
			Breakpoints: BreakpointsConfig{Regular: 80, Wide: 140},
		},
		Store: StoreConfig{
			Path:          filepath.Join(defaultDataPath(), "positions.db"),
			FlushInterval: 2 * time.Second,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "tapedeck.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the directory for logs and persisted state
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tapedeck")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tapedeck")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tapedeck")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tapedeck")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(defaultConfigPath(), ".")
}

// LoadConfigFrom loads config.yaml from the first of dirs that has one.
// TAPEDECK_* environment variables override file values, e.g.
// TAPEDECK_PLAYBACK_VOLUME=-6.
func LoadConfigFrom(dirs ...string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	// Environment variable overrides
	v.SetEnvPrefix("TAPEDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Library.Paths = expandAll(cfg.Library.Paths)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Logging.File = expandHome(cfg.Logging.File)
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the file omits them
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range configValues(cfg) {
		v.SetDefault(key, value)
	}
}

func configValues(cfg *Config) map[string]any {
	return map[string]any{
		"library.paths":                  cfg.Library.Paths,
		"library.watch":                  cfg.Library.Watch,
		"library.manifest":               cfg.Library.Manifest,
		"playback.sample_rate":           cfg.Playback.SampleRate,
		"playback.poll_interval":         cfg.Playback.PollInterval.String(),
		"playback.volume":                cfg.Playback.Volume,
		"playback.seek_step":             cfg.Playback.SeekStep.String(),
		"waveform.analysis_rate":         cfg.Waveform.AnalysisRate,
		"waveform.preload_margin":        cfg.Waveform.PreloadMargin,
		"waveform.small_viewport_margin": cfg.Waveform.SmallViewportMargin,
		"waveform.small_viewport_rows":   cfg.Waveform.SmallViewportRows,
		"waveform.overscan":              cfg.Waveform.Overscan,
		"ui.breakpoints.regular":         cfg.UI.Breakpoints.Regular,
		"ui.breakpoints.wide":            cfg.UI.Breakpoints.Wide,
		"store.path":                     cfg.Store.Path,
		"store.flush_interval":           cfg.Store.FlushInterval.String(),
		"logging.file":                   cfg.Logging.File,
		"logging.level":                  cfg.Logging.Level,
	}
}

// SaveConfig saves the configuration to config.yaml in the default location
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(cfg, defaultConfigPath())
}

// SaveConfigTo writes cfg as dir/config.yaml
func SaveConfigTo(cfg *Config, dir string) error {
	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v := viper.New()
	for key, value := range configValues(cfg) {
		v.Set(key, value)
	}

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func expandAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = expandHome(p)
	}
	return out
}
