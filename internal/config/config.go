package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Env         string            `mapstructure:"env"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Razorpay    RazorpayConfig    `mapstructure:"razorpay"`
	Email       EmailConfig       `mapstructure:"email"`
	Appointment AppointmentConfig `mapstructure:"appointment"`
	Media       MediaConfig       `mapstructure:"media"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Log         LogConfig         `mapstructure:"log"`
	CORS        CORSConfig        `mapstructure:"cors"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	// WorkerPort serves the worker's health and metrics endpoints.
	WorkerPort      int           `mapstructure:"worker_port"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory"; memory keeps everything in process.
	Driver       string        `mapstructure:"driver"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Name         string        `mapstructure:"name"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnLifetime time.Duration `mapstructure:"conn_lifetime"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	Channel      string        `mapstructure:"channel"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	// ExpiryHours only matters for tokens minted by this service (tests, tooling).
	ExpiryHours int `mapstructure:"expiry_hours"`
}

type RazorpayConfig struct {
	KeyID     string        `mapstructure:"key_id"`
	KeySecret string        `mapstructure:"key_secret"`
	Currency  string        `mapstructure:"currency"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type AppointmentConfig struct {
	// MeetingLinkTemplate must contain exactly one %s, replaced by the appointment id.
	MeetingLinkTemplate string `mapstructure:"meeting_link_template"`
	DefaultFee          string `mapstructure:"default_fee"`
}

// Fee parses DefaultFee, treating an empty value as zero.
func (c AppointmentConfig) Fee() (decimal.Decimal, error) {
	if c.DefaultFee == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(c.DefaultFee)
}

type MediaConfig struct {
	Root    string `mapstructure:"root"`
	BaseURL string `mapstructure:"base_url"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type OutboxConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RetentionHours int           `mapstructure:"retention_hours"`
}

type CacheConfig struct {
	DoctorTTL       time.Duration `mapstructure:"doctor_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Secrets are read from the environment only, never from config files.
type Secrets struct {
	DatabasePassword  string `envconfig:"DATABASE_PASSWORD"`
	JWTSecret         string `envconfig:"JWT_SECRET"`
	RazorpayKeyID     string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `envconfig:"RAZORPAY_KEY_SECRET"`
	EmailPassword     string `envconfig:"EMAIL_PASSWORD"`
}

const envPrefix = "EZHEALTH"

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.worker_port", 8081)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_lifetime", 5*time.Minute)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.channel", "appointments")
	v.SetDefault("jwt.issuer", "ezhealth")
	v.SetDefault("jwt.expiry_hours", 24)
	v.SetDefault("razorpay.currency", "INR")
	v.SetDefault("razorpay.timeout", 10*time.Second)
	v.SetDefault("email.port", 587)
	v.SetDefault("appointment.meeting_link_template", "https://meet.jit.si/ezhealth-%s")
	v.SetDefault("appointment.default_fee", "500")
	v.SetDefault("media.root", "./uploads")
	v.SetDefault("media.base_url", "/media")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.retry_delay", 30*time.Second)
	v.SetDefault("outbox.retention_hours", 72)
	v.SetDefault("cache.doctor_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads config.yml from the usual locations, applies EZHEALTH_*
// environment overrides and then the secret variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	return load(v)
}

// LoadFile reads the configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process(envPrefix, &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	cfg.applySecrets(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s Secrets) {
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.RazorpayKeyID != "" {
		c.Razorpay.KeyID = s.RazorpayKeyID
	}
	if s.RazorpayKeySecret != "" {
		c.Razorpay.KeySecret = s.RazorpayKeySecret
	}
	if s.EmailPassword != "" {
		c.Email.Password = s.EmailPassword
	}
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Razorpay.KeySecret == "" {
		return errors.New("razorpay key secret is required")
	}
	if strings.Count(c.Appointment.MeetingLinkTemplate, "%s") != 1 {
		return fmt.Errorf("appointment.meeting_link_template must contain exactly one %%s")
	}
	if d := c.Database.Driver; d != "" && d != "postgres" && d != "memory" {
		return fmt.Errorf("unknown database driver %q", d)
	}
	fee, err := c.Appointment.Fee()
	if err != nil {
		return fmt.Errorf("invalid appointment.default_fee: %w", err)
	}
	if fee.IsNegative() {
		return errors.New("appointment.default_fee must not be negative")
	}
	return nil
}
