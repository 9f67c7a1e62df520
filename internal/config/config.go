package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

const (
	minJWTSecretBytes    = 32
	developmentJWTSecret = "socialfeed_development_secret_change_me"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Upload     UploadConfig     `mapstructure:"upload"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Redis      RedisConfig      `mapstructure:"redis"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"` // postgres (lib/pq) or pgx
	Host                   string `mapstructure:"host"`
	Port                   string `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	Name                   string `mapstructure:"name"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxIdleMinutes     int    `mapstructure:"conn_max_idle_minutes"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

type UploadConfig struct {
	Path         string `mapstructure:"path"`
	URLPrefix    string `mapstructure:"url_prefix"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes"`
	MaxParallel  int    `mapstructure:"max_parallel"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MonitoringConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DSN returns a libpq keyword/value connection string. Both lib/pq and pgx accept it.
func (d DatabaseConfig) DSN() string {
	pairs := [][2]string{
		{"host", d.Host},
		{"port", d.Port},
		{"user", d.User},
		{"password", d.Password},
		{"dbname", d.Name},
		{"sslmode", d.SSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts = append(parts, pair[0]+"="+quoteDSNValue(pair[1]))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue single-quotes a value, escaping backslashes and quotes.
func quoteDSNValue(value string) string {
	return "'" + dsnEscaper.Replace(value) + "'"
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// IsRelease reports whether the server runs in gin release mode.
func (c Config) IsRelease() bool {
	return strings.EqualFold(c.Server.Mode, "release")
}

// Load reads config.yaml from dir (or the working directory) and applies
// defaults and environment overrides.
func Load(dir string) (Config, error) {
	v := newViper(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		log.Println("No config file found, using environment and defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitOrigins(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces JWT secret safety and fills a development secret outside release mode.
func (c *Config) Validate() error {
	secret := strings.TrimSpace(c.JWT.Secret)
	if c.IsRelease() {
		if len(secret) < minJWTSecretBytes {
			return fmt.Errorf("JWT_SECRET must be at least %d characters in release mode", minJWTSecretBytes)
		}
	} else if secret == "" {
		log.Println("JWT_SECRET is not set, using an insecure development secret")
		secret = developmentJWTSecret
	}
	c.JWT.Secret = secret

	if c.JWT.ExpirationHours <= 0 {
		c.JWT.ExpirationHours = 24
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server mode %q", c.Server.Mode)
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()

	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "config"
	}
	v.AddConfigPath(dir)
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "4008")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "socialmediaapp")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_idle_minutes", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 30)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("upload.path", "./uploads")
	v.SetDefault("upload.url_prefix", "/uploads")
	v.SetDefault("upload.max_size_bytes", 10*1024*1024)
	v.SetDefault("upload.max_parallel", 4)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "socialfeed")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.api_key", "")

	v.SetEnvPrefix("SOCIALFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing deployments.
	bindings := map[string]string{
		"server.port":                        "PORT",
		"server.mode":                        "GIN_MODE",
		"database.driver":                    "DB_DRIVER",
		"database.host":                      "DB_HOST",
		"database.port":                      "DB_PORT",
		"database.user":                      "DB_USER",
		"database.password":                  "DB_PASSWORD",
		"database.name":                      "DB_NAME",
		"database.sslmode":                   "DB_SSLMODE",
		"database.max_open_conns":            "DB_MAX_OPEN_CONNS",
		"database.max_idle_conns":            "DB_MAX_IDLE_CONNS",
		"database.conn_max_idle_minutes":     "DB_CONN_MAX_IDLE_MINUTES",
		"database.conn_max_lifetime_minutes": "DB_CONN_MAX_LIFETIME_MINUTES",
		"jwt.secret":                         "JWT_SECRET",
		"upload.path":                        "UPLOADS_PATH",
		"upload.max_size_bytes":              "MAX_UPLOAD_SIZE_BYTES",
		"upload.max_parallel":                "MAX_PARALLEL_UPLOADS",
		"rate_limit.enabled":                 "RATE_LIMIT_ENABLED",
		"rate_limit.rps":                     "RATE_LIMIT_RPS",
		"rate_limit.burst":                   "RATE_LIMIT_BURST",
		"redis.enabled":                      "REDIS_ENABLED",
		"redis.addr":                         "REDIS_ADDR",
		"redis.password":                     "REDIS_PASSWORD",
		"redis.db":                           "REDIS_DB",
		"redis.prefix":                       "REDIS_PREFIX",
		"cors.allowed_origins":               "CORS_ALLOWED_ORIGINS",
		"monitoring.api_key":                 "MONITORING_API_KEY",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, "SOCIALFEED_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	return v
}

// splitOrigins accepts both a YAML list and a comma-separated env value.
func splitOrigins(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
