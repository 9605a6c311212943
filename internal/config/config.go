package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type RepositoryConfig struct {
	Type       string `mapstructure:"type"` // "inmemory", "postgres" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DirectoryConfig struct {
	Type     string `mapstructure:"type"` // "inmemory" or "postgres"
	SeedFile string `mapstructure:"seed_file"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type NotifyConfig struct {
	Transport    string `mapstructure:"transport"` // "log" or "smtp"
	From         string `mapstructure:"from"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RPM int `mapstructure:"rpm"`
}

const envPrefix = "TASKMANAGER"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("repository.type", "inmemory")
	v.SetDefault("repository.sqlite_path", "taskmanager.db")
	v.SetDefault("directory.type", "inmemory")
	v.SetDefault("directory.seed_file", "users.yml")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "taskmanager")
	v.SetDefault("notify.transport", "log")
	v.SetDefault("notify.from", "no-reply@taskmanager.local")
	v.SetDefault("notify.smtp_host", "")
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("notify.smtp_username", "")
	v.SetDefault("notify.smtp_password", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("rate_limit.rpm", 100)
}

// Loader keeps the viper instance around so the file can be watched after load.
type Loader struct {
	v *viper.Viper
}

func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Load reads the file (a missing file falls back to defaults and env) and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicitly set but absent file surfaces as a plain fs error
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", l.v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch reloads the file on change and hands the fresh config to onChange.
func (l *Loader) Watch(onChange func(*Config, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var cfg Config
		if err := l.v.Unmarshal(&cfg); err != nil {
			onChange(nil, fmt.Errorf("parse config %s: %w", e.Name, err))
			return
		}
		onChange(&cfg, cfg.Validate())
	})
	l.v.WatchConfig()
}

func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case "inmemory", "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for the postgres repository")
		}
	default:
		return fmt.Errorf("config: unknown repository.type %q", c.Repository.Type)
	}

	switch c.Directory.Type {
	case "inmemory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for the postgres directory")
		}
	default:
		return fmt.Errorf("config: unknown directory.type %q", c.Directory.Type)
	}

	switch c.Notify.Transport {
	case "log":
	case "smtp":
		if c.Notify.SMTPHost == "" {
			return errors.New("config: notify.smtp_host is required for the smtp transport")
		}
	default:
		return fmt.Errorf("config: unknown notify.transport %q", c.Notify.Transport)
	}

	if c.RateLimit.RPM < 0 {
		return fmt.Errorf("config: rate_limit.rpm must not be negative (0 disables it), got %d", c.RateLimit.RPM)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
