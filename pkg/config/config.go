// Package config provides configuration management for the Yuna server
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the Yuna server
type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server" yaml:"server"`
	Security SecurityConfig `mapstructure:"security" json:"security" yaml:"security"`
	Storage  StorageConfig  `mapstructure:"storage" json:"storage" yaml:"storage"`
	Web      WebConfig      `mapstructure:"web" json:"web" yaml:"web"`
	Services ServicesConfig `mapstructure:"services" json:"services" yaml:"services"`
	LogLevel string         `mapstructure:"log_level" json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host         string        `mapstructure:"host" json:"host" yaml:"host"`
	Port         int           `mapstructure:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" json:"idle_timeout" yaml:"idle_timeout"`
}

// SecurityConfig holds session and credential settings
type SecurityConfig struct {
	SecretKey     string        `mapstructure:"secret_key" json:"secret_key" yaml:"secret_key" validate:"required,min=16"`
	CookieName    string        `mapstructure:"cookie_name" json:"cookie_name" yaml:"cookie_name" validate:"required"`
	SessionExpiry time.Duration `mapstructure:"session_expiry" json:"session_expiry" yaml:"session_expiry"`
	BcryptCost    int           `mapstructure:"bcrypt_cost" json:"bcrypt_cost" yaml:"bcrypt_cost" validate:"min=4,max=31"`
}

// StorageConfig holds durable state locations. Paths other than DataDir are
// relative to DataDir.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir" json:"data_dir" yaml:"data_dir" validate:"required"`
	UsersFile  string `mapstructure:"users_file" json:"users_file" yaml:"users_file" validate:"required"`
	HistoryDir string `mapstructure:"history_dir" json:"history_dir" yaml:"history_dir" validate:"required"`
	SessionsDB string `mapstructure:"sessions_db" json:"sessions_db" yaml:"sessions_db" validate:"required"`
}

// WebConfig holds locations of the pre-built web assets
type WebConfig struct {
	RootDir   string `mapstructure:"root_dir" json:"root_dir" yaml:"root_dir"`
	StaticDir string `mapstructure:"static_dir" json:"static_dir" yaml:"static_dir"`
}

// ServicesConfig configures the external service collaborators
type ServicesConfig struct {
	Chat           ChatConfig    `mapstructure:"chat" json:"chat" yaml:"chat"`
	ImageURL       string        `mapstructure:"image_url" json:"image_url" yaml:"image_url"`
	AudioURL       string        `mapstructure:"audio_url" json:"audio_url" yaml:"audio_url"`
	AudiobookURL   string        `mapstructure:"audiobook_url" json:"audiobook_url" yaml:"audiobook_url"`
	SearchURL      string        `mapstructure:"search_url" json:"search_url" yaml:"search_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	RetryCount     int           `mapstructure:"retry_count" json:"retry_count" yaml:"retry_count"`
}

// ChatConfig configures the OpenAI-compatible chat collaborator
type ChatConfig struct {
	APIBase string `mapstructure:"api_base" json:"api_base" yaml:"api_base"`
	APIKey  string `mapstructure:"api_key" json:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" json:"model" yaml:"model"`
}

// DefaultConfig returns a configuration with the stock Yuna layout
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         4848,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			CookieName:    "yuna_session",
			SessionExpiry: 24 * time.Hour,
			BcryptCost:    10,
		},
		Storage: StorageConfig{
			DataDir:    "db",
			UsersFile:  "admin/users.json",
			HistoryDir: "history",
			SessionsDB: "admin/sessions.db",
		},
		Web: WebConfig{
			RootDir:   ".",
			StaticDir: "static",
		},
		Services: ServicesConfig{
			Chat: ChatConfig{
				APIBase: "http://127.0.0.1:8000/v1",
				Model:   "yuna-ai",
			},
			RequestTimeout: 120 * time.Second,
			RetryCount:     2,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from the given file (YAML or JSON), layered over
// defaults, with YUNA_* environment variable overrides. An empty path loads
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("YUNA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindDefaults registers every known key with viper. Environment overrides
// only apply to keys viper has seen, so each key is seeded here even when the
// config file omits it.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("security.secret_key", cfg.Security.SecretKey)
	v.SetDefault("security.cookie_name", cfg.Security.CookieName)
	v.SetDefault("security.session_expiry", cfg.Security.SessionExpiry)
	v.SetDefault("security.bcrypt_cost", cfg.Security.BcryptCost)
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.users_file", cfg.Storage.UsersFile)
	v.SetDefault("storage.history_dir", cfg.Storage.HistoryDir)
	v.SetDefault("storage.sessions_db", cfg.Storage.SessionsDB)
	v.SetDefault("web.root_dir", cfg.Web.RootDir)
	v.SetDefault("web.static_dir", cfg.Web.StaticDir)
	v.SetDefault("services.chat.api_base", cfg.Services.Chat.APIBase)
	v.SetDefault("services.chat.api_key", cfg.Services.Chat.APIKey)
	v.SetDefault("services.chat.model", cfg.Services.Chat.Model)
	v.SetDefault("services.image_url", cfg.Services.ImageURL)
	v.SetDefault("services.audio_url", cfg.Services.AudioURL)
	v.SetDefault("services.audiobook_url", cfg.Services.AudiobookURL)
	v.SetDefault("services.search_url", cfg.Services.SearchURL)
	v.SetDefault("services.request_timeout", cfg.Services.RequestTimeout)
	v.SetDefault("services.retry_count", cfg.Services.RetryCount)
	v.SetDefault("log_level", cfg.LogLevel)
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SaveYAML writes the configuration to a YAML file
func (c *Config) SaveYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// UsersFilePath returns the absolute location of the credential record
func (c *Config) UsersFilePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.UsersFile)
}

// HistoryRoot returns the root directory holding per-user workspaces
func (c *Config) HistoryRoot() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.HistoryDir)
}

// SessionsDBPath returns the location of the session database
func (c *Config) SessionsDBPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.SessionsDB)
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
