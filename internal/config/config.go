package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "GALLERIA"
	// legacyURLEnv is the base URL variable of the web client's .env file
	legacyURLEnv = "VITE_BASE_URL"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Gallery GalleryConfig `mapstructure:"gallery"`
	Store   StoreConfig   `mapstructure:"store"`
	Viewer  ViewerConfig  `mapstructure:"viewer"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds backend configuration
type ServerConfig struct {
	URL            string `mapstructure:"url" validate:"omitempty,url"`
	AuthCollection string `mapstructure:"auth_collection" validate:"required"`
}

// GalleryConfig holds listing settings
type GalleryConfig struct {
	PageSize     int    `mapstructure:"page_size" validate:"min=1,max=500"`
	FilterPrefix string `mapstructure:"filter_prefix"`
}

// StoreConfig holds local state settings. An empty path keeps state in memory.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ViewerConfig holds the external media viewer
type ViewerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			AuthCollection: "users",
		},
		Gallery: GalleryConfig{
			PageSize:     20,
			FilterPrefix: "content.",
		},
		Store: StoreConfig{
			Path: defaultDataPath(),
		},
		Viewer: ViewerConfig{
			Args: []string{},
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "galleria.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "galleria")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "galleria")
	}
}

// defaultConfigPath returns the config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "galleria")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "galleria")
	}
}

// Loader reads configuration from a YAML file, a .env file and the
// environment, in increasing precedence.
type Loader struct {
	v       *viper.Viper
	dirs    []string
	envFile string
}

// NewLoader creates a loader searching the default config directory and the
// working directory
func NewLoader() *Loader {
	return &Loader{
		v:       viper.New(),
		dirs:    []string{defaultConfigPath(), "."},
		envFile: ".env",
	}
}

// WithDirs replaces the directories searched for config.yaml
func (l *Loader) WithDirs(dirs ...string) *Loader {
	l.dirs = dirs
	return l
}

// WithEnvFile replaces the .env file location
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load loads and validates the configuration
func (l *Loader) Load() (*Config, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading %s: %w", l.envFile, err)
		}
	}

	cfg := DefaultConfig()
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range l.dirs {
		v.AddConfigPath(dir)
	}

	// Environment variable overrides, e.g. GALLERIA_SERVER_URL
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Server.URL == "" {
		cfg.Server.URL = os.Getenv(legacyURLEnv)
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration from the default locations
func Load() (*Config, error) {
	return NewLoader().Load()
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.auth_collection", cfg.Server.AuthCollection)
	v.SetDefault("gallery.page_size", cfg.Gallery.PageSize)
	v.SetDefault("gallery.filter_prefix", cfg.Gallery.FilterPrefix)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("viewer.command", cfg.Viewer.Command)
	v.SetDefault("viewer.args", cfg.Viewer.Args)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsConfigured returns true if the server URL is set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != ""
}

// SaveServerURL writes the server URL into the user's config file, keeping
// the other keys already there
func SaveServerURL(serverURL string) (string, error) {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.Set("server.url", strings.TrimRight(serverURL, "/"))
	if err := v.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

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
