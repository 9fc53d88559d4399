// Package config loads the server configuration.
//
// SOURCES, lowest precedence first:
//  1. built-in defaults (setDefaults)
//  2. an optional YAML file (--config, or ./inkpost.yaml)
//  3. a .env file in the working directory, copied into the process
//     environment without overriding variables that are already set
//  4. environment variables: INKPOST_<SECTION>_<KEY>, plus the short names
//     PORT, MONGODB_URI, JWT_SECRET and JWT_EXPIRE
//
// The result is validated once and then passed by value into constructors.
// Nothing reads the environment after startup.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/inkpost/internal/auth"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	CORSOrigins  []string      `mapstructure:"corsOrigins"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwtSecret"`
	TokenTTL   time.Duration `mapstructure:"tokenTTL"`
	BcryptCost int           `mapstructure:"bcryptCost"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	MongoURI      string `mapstructure:"mongoURI"`
	MongoDatabase string `mapstructure:"mongoDatabase"`
	SQLitePath    string `mapstructure:"sqlitePath"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig throttles the unauthenticated auth endpoints per client IP.
// RPS <= 0 turns throttling off.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// envAliases binds the short environment names in addition to the
// INKPOST_ prefixed ones. The first name found wins.
var envAliases = map[string][]string{
	"server.port":    {"INKPOST_SERVER_PORT", "PORT"},
	"store.mongoURI": {"INKPOST_STORE_MONGOURI", "MONGODB_URI"},
	"auth.jwtSecret": {"INKPOST_AUTH_JWTSECRET", "JWT_SECRET"},
	"auth.tokenTTL":  {"INKPOST_AUTH_TOKENTTL", "JWT_EXPIRE"},
}

// Load loads configuration from file and environment, then validates it.
// envFile names the dotenv file to read; a missing file is not an error.
func Load(configPath, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("inkpost")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("INKPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional unless it was asked for explicitly.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	// Token lifetimes accept the "7d" and bare-seconds forms on top of
	// Go durations, so they are parsed here rather than by the decoder.
	ttl, err := ParseTTL(v.GetString("auth.tokenTTL"))
	if err != nil {
		return Config{}, fmt.Errorf("config: auth.tokenTTL: %w", err)
	}
	v.Set("auth.tokenTTL", ttl)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", "24h")
	v.SetDefault("auth.bcryptCost", auth.DefaultCost)
	v.SetDefault("store.driver", DriverMongo)
	v.SetDefault("store.mongoURI", "mongodb://localhost:27017")
	v.SetDefault("store.mongoDatabase", "inkpost")
	v.SetDefault("store.sqlitePath", "data/inkpost.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("rateLimit.rps", 5)
	v.SetDefault("rateLimit.burst", 20)
}

// Validate reports the first setting the server cannot start with.
func (c Config) Validate() error {
	switch {
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	case len(c.Auth.JWTSecret) < auth.MinSecretLength:
		return fmt.Errorf("config: JWT_SECRET must be set and at least %d characters", auth.MinSecretLength)
	case c.Auth.TokenTTL <= 0:
		return fmt.Errorf("config: token ttl must be positive, got %s", c.Auth.TokenTTL)
	case c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost:
		return fmt.Errorf("config: auth.bcryptCost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	case c.Store.Driver != DriverMongo && c.Store.Driver != DriverSQLite:
		return fmt.Errorf("config: unknown store.driver %q (want %q or %q)", c.Store.Driver, DriverMongo, DriverSQLite)
	case c.Store.Driver == DriverMongo && c.Store.MongoURI == "":
		return errors.New("config: MONGODB_URI is required for the mongo driver")
	case c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "":
		return errors.New("config: store.sqlitePath is required for the sqlite driver")
	case c.Logging.Format != "text" && c.Logging.Format != "json":
		return fmt.Errorf("config: logging.format must be text or json, got %q", c.Logging.Format)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: logging.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger described by l. Call it after
// Validate; an unparsable level falls back to info.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseTTL parses a token lifetime. It accepts Go durations ("90m", "24h"),
// whole days ("7d") and bare seconds ("3600").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
