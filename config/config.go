// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ProviderKind selects the storage backend feedback is written to and read from.
type ProviderKind string

const (
	ProviderRealtime ProviderKind = "realtime"
	ProviderSupabase ProviderKind = "supabase"
	ProviderPostgres ProviderKind = "postgres"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// TrustedProxies is a list of CIDR ranges or IPs of trusted reverse proxies.
	// If empty, X-Forwarded-For headers are ignored entirely.
	TrustedProxies         []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
	ShutdownTimeoutSeconds int      `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
	// WSPingIntervalSeconds is how often live-stream connections are pinged.
	WSPingIntervalSeconds int `mapstructure:"WS_PING_INTERVAL_SECONDS" yaml:"ws_ping_interval_seconds"`
}

// ProviderConfig selects and tunes the feedback storage provider.
type ProviderConfig struct {
	Kind ProviderKind `mapstructure:"KIND" yaml:"kind"`
	// WriteTimeoutSeconds bounds a single append. Appends are detached from the
	// request context so a disconnecting client cannot abort a write.
	WriteTimeoutSeconds int `mapstructure:"WRITE_TIMEOUT_SECONDS" yaml:"write_timeout_seconds"`
	// FetchTimeoutSeconds bounds a single latest-feedback read.
	FetchTimeoutSeconds int `mapstructure:"FETCH_TIMEOUT_SECONDS" yaml:"fetch_timeout_seconds"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	ConnMaxLife    string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
	AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE" yaml:"auto_migrate"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and pgxpool.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details and the realtime collection layout.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
	// Collection is the hash the realtime provider stores documents in.
	Collection string `mapstructure:"COLLECTION" yaml:"collection"`
}

// SupabaseConfig holds the hosted backend project credentials.
type SupabaseConfig struct {
	URL        string `mapstructure:"URL" yaml:"url"`
	ServiceKey string `mapstructure:"SERVICE_KEY" yaml:"service_key"`
}

// EventsConfig holds configuration for the cross-instance change feed.
type EventsConfig struct {
	Enabled bool   `mapstructure:"ENABLED" yaml:"enabled"`
	Channel string `mapstructure:"CHANNEL" yaml:"channel"`
	// Timeout for publishing a single event to Redis (in seconds)
	PublishTimeoutSeconds int `mapstructure:"PUBLISH_TIMEOUT_SECONDS" yaml:"publish_timeout_seconds"`
	// Timeout for establishing a subscription connection via Redis (in seconds)
	SubscribeTimeoutSeconds int `mapstructure:"SUBSCRIBE_TIMEOUT_SECONDS" yaml:"subscribe_timeout_seconds"`
	EventBufferSize         int `mapstructure:"EVENT_BUFFER_SIZE" yaml:"event_buffer_size"`
}

// FormsConfig bounds the registry of in-progress submission forms.
type FormsConfig struct {
	MaxForms   int `mapstructure:"MAX_FORMS" yaml:"max_forms"`
	TTLSeconds int `mapstructure:"TTL_SECONDS" yaml:"ttl_seconds"`
}

// NotificationConfig holds configuration for submission summary emails.
type NotificationConfig struct {
	Enabled      bool     `mapstructure:"ENABLED" yaml:"enabled"`
	ResendAPIKey string   `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`
	FromAddress  string   `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	FromName     string   `mapstructure:"FROM_NAME" yaml:"from_name"`
	Recipients   []string `mapstructure:"RECIPIENTS" yaml:"recipients"`
	// TimeoutSeconds bounds a single send.
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// WorkerPoolConfig sizes the notification queue and its workers.
type WorkerPoolConfig struct {
	// MaxWorkers is the number of concurrent workers (default: 4)
	MaxWorkers int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	// QueueSize is the maximum number of pending jobs (default: 100)
	QueueSize int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	// ShutdownTimeoutSeconds is the max time to wait for workers during shutdown (default: 30)
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
	// MaxAttempts caps deliveries of one notification, first try included (default: 3)
	MaxAttempts int `mapstructure:"MAX_ATTEMPTS" yaml:"max_attempts"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server       ServerConfig       `mapstructure:"SERVER" yaml:"server"`
	Provider     ProviderConfig     `mapstructure:"PROVIDER" yaml:"provider"`
	Database     DatabaseConfig     `mapstructure:"DATABASE" yaml:"database"`
	Redis        RedisConfig        `mapstructure:"REDIS" yaml:"redis"`
	Supabase     SupabaseConfig     `mapstructure:"SUPABASE" yaml:"supabase"`
	Events       EventsConfig       `mapstructure:"EVENTS" yaml:"events"`
	Forms        FormsConfig        `mapstructure:"FORMS" yaml:"forms"`
	Notification NotificationConfig `mapstructure:"NOTIFICATION" yaml:"notification"`
	WorkerPool   WorkerPoolConfig   `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Provider.Kind == ProviderRealtime || c.Events.Enabled
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c *ProviderConfig) WriteTimeout() time.Duration { return seconds(c.WriteTimeoutSeconds) }
func (c *ProviderConfig) FetchTimeout() time.Duration { return seconds(c.FetchTimeoutSeconds) }
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return seconds(c.ShutdownTimeoutSeconds)
}
func (c *ServerConfig) WSPingInterval() time.Duration { return seconds(c.WSPingIntervalSeconds) }
func (c *FormsConfig) TTL() time.Duration             { return seconds(c.TTLSeconds) }

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("SERVER.SHUTDOWN_TIMEOUT_SECONDS", 15)
	v.SetDefault("SERVER.WS_PING_INTERVAL_SECONDS", 30)
	v.SetDefault("PROVIDER.KIND", ProviderRealtime)
	v.SetDefault("PROVIDER.WRITE_TIMEOUT_SECONDS", 10)
	v.SetDefault("PROVIDER.FETCH_TIMEOUT_SECONDS", 5)
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "feedback_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 10)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("DATABASE.AUTO_MIGRATE", true)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("REDIS.COLLECTION", "feedbacks")
	v.SetDefault("EVENTS.ENABLED", false)
	v.SetDefault("EVENTS.CHANNEL", "feedback:events")
	v.SetDefault("EVENTS.PUBLISH_TIMEOUT_SECONDS", 5)
	v.SetDefault("EVENTS.SUBSCRIBE_TIMEOUT_SECONDS", 10)
	v.SetDefault("EVENTS.EVENT_BUFFER_SIZE", 100)
	v.SetDefault("FORMS.MAX_FORMS", 10000)
	v.SetDefault("FORMS.TTL_SECONDS", 1800)
	v.SetDefault("NOTIFICATION.ENABLED", false)
	v.SetDefault("NOTIFICATION.FROM_NAME", "Feedback Hub")
	v.SetDefault("NOTIFICATION.RECIPIENTS", []string{})
	v.SetDefault("NOTIFICATION.TIMEOUT_SECONDS", 10)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 4)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 100)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("WORKER_POOL.MAX_ATTEMPTS", 3)
}

var envBindings = [][2]string{
	// Server config
	{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
	{"SERVER.PORT", "PORT"},
	{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	{"SERVER.VERSION", "VERSION"},
	{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
	{"SERVER.SHUTDOWN_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT_SECONDS"},
	{"SERVER.WS_PING_INTERVAL_SECONDS", "WS_PING_INTERVAL_SECONDS"},
	// Provider selection
	{"PROVIDER.KIND", "FEEDBACK_PROVIDER"},
	{"PROVIDER.WRITE_TIMEOUT_SECONDS", "PROVIDER_WRITE_TIMEOUT_SECONDS"},
	{"PROVIDER.FETCH_TIMEOUT_SECONDS", "PROVIDER_FETCH_TIMEOUT_SECONDS"},
	// Database config
	{"DATABASE.HOST", "DB_HOST"},
	{"DATABASE.PORT", "DB_PORT"},
	{"DATABASE.USER", "DB_USER"},
	{"DATABASE.PASSWORD", "DB_PASSWORD"},
	{"DATABASE.NAME", "DB_NAME"},
	{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
	{"DATABASE.MAX_CONNECTIONS", "DB_MAX_CONNECTIONS"},
	{"DATABASE.CONN_MAX_LIFE", "DB_CONN_MAX_LIFE"},
	{"DATABASE.AUTO_MIGRATE", "DB_AUTO_MIGRATE"},
	// Redis config
	{"REDIS.ADDRESS", "REDIS_ADDRESS"},
	{"REDIS.PASSWORD", "REDIS_PASSWORD"},
	{"REDIS.DB", "REDIS_DB"},
	{"REDIS.USE_TLS", "REDIS_USE_TLS"},
	{"REDIS.POOL_SIZE", "REDIS_POOL_SIZE"},
	{"REDIS.COLLECTION", "REDIS_COLLECTION"},
	// Supabase
	{"SUPABASE.URL", "SUPABASE_URL"},
	{"SUPABASE.SERVICE_KEY", "SUPABASE_SERVICE_KEY"},
	// Change feed
	{"EVENTS.ENABLED", "EVENTS_ENABLED"},
	{"EVENTS.CHANNEL", "EVENTS_CHANNEL"},
	{"EVENTS.PUBLISH_TIMEOUT_SECONDS", "EVENTS_PUBLISH_TIMEOUT_SECONDS"},
	{"EVENTS.SUBSCRIBE_TIMEOUT_SECONDS", "EVENTS_SUBSCRIBE_TIMEOUT_SECONDS"},
	{"EVENTS.EVENT_BUFFER_SIZE", "EVENTS_EVENT_BUFFER_SIZE"},
	// Forms
	{"FORMS.MAX_FORMS", "FORMS_MAX_FORMS"},
	{"FORMS.TTL_SECONDS", "FORMS_TTL_SECONDS"},
	// Notification config
	{"NOTIFICATION.ENABLED", "NOTIFICATION_ENABLED"},
	{"NOTIFICATION.RESEND_API_KEY", "RESEND_API_KEY"},
	{"NOTIFICATION.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
	{"NOTIFICATION.FROM_NAME", "EMAIL_FROM_NAME"},
	{"NOTIFICATION.RECIPIENTS", "NOTIFICATION_RECIPIENTS"},
	{"NOTIFICATION.TIMEOUT_SECONDS", "NOTIFICATION_TIMEOUT_SECONDS"},
	// WorkerPool config
	{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
	{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
	{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
	{"WORKER_POOL.MAX_ATTEMPTS", "WORKER_POOL_MAX_ATTEMPTS"},
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
// When CONFIG_FILE is set, that file is read first and environment
// variables override it.
func LoadConfig() (*Config, error) {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return LoadConfigFromFile(path)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	log := logger.GetLogger()

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"provider", v.GetString("PROVIDER.KIND"),
		"allowed_origins", v.GetStringSlice("SERVER.ALLOWED_ORIGINS"),
		"events_enabled", v.GetBool("EVENTS.ENABLED"),
		"notification_enabled", v.GetBool("NOTIFICATION.ENABLED"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}
	if cfg.Server.WSPingIntervalSeconds <= 0 {
		return fmt.Errorf("websocket ping interval must be positive")
	}

	if cfg.Provider.WriteTimeoutSeconds <= 0 || cfg.Provider.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("provider timeouts must be positive")
	}

	switch cfg.Provider.Kind {
	case ProviderRealtime:
		if cfg.Redis.Collection == "" {
			return fmt.Errorf("redis collection is required for the realtime provider")
		}
	case ProviderSupabase:
		if cfg.Supabase.URL == "" {
			return fmt.Errorf("supabase URL is required for the supabase provider")
		}
		if _, err := url.ParseRequestURI(cfg.Supabase.URL); err != nil {
			return fmt.Errorf("invalid supabase URL: %w", err)
		}
		if cfg.Supabase.ServiceKey == "" {
			return fmt.Errorf("supabase service key is required for the supabase provider")
		}
	case ProviderPostgres:
		if err := validateDatabaseConfig(&cfg.Database, log); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown feedback provider %q (want realtime, supabase or postgres)", cfg.Provider.Kind)
	}

	if cfg.NeedsRedis() {
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis address is required")
		}
		if cfg.Redis.Password == "" && cfg.Redis.UseTLS {
			log.Warn("Redis password is not set, but TLS is enabled. Ensure this is correct for your Redis provider.")
		}
	}

	if cfg.Events.Enabled {
		if cfg.Events.Channel == "" {
			return fmt.Errorf("events channel is required when the change feed is enabled")
		}
		if cfg.Events.PublishTimeoutSeconds <= 0 || cfg.Events.SubscribeTimeoutSeconds <= 0 {
			return fmt.Errorf("events timeouts must be positive")
		}
		if cfg.Events.EventBufferSize <= 0 {
			return fmt.Errorf("events buffer size must be positive")
		}
	}

	if cfg.Forms.MaxForms <= 0 {
		return fmt.Errorf("forms max size must be positive")
	}
	if cfg.Forms.TTLSeconds <= 0 {
		return fmt.Errorf("forms TTL must be positive")
	}

	if err := validateNotificationConfig(&cfg.Notification, log); err != nil {
		return err
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}
	if cfg.WorkerPool.MaxAttempts <= 0 {
		return fmt.Errorf("worker pool max attempts must be positive")
	}

	return nil
}

func validateDatabaseConfig(db *DatabaseConfig, log *zap.SugaredLogger) error {
	if db.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if db.User == "" {
		return fmt.Errorf("database user is required")
	}
	if db.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}
	if db.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if db.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}
	if _, err := time.ParseDuration(db.ConnMaxLife); err != nil {
		return fmt.Errorf("invalid database connection lifetime %q: %w", db.ConnMaxLife, err)
	}
	return nil
}

// validateNotificationConfig validates the submission email settings.
// If enabled but missing the API key or recipients, it auto-disables the
// notifier with a warning.
func validateNotificationConfig(cfg *NotificationConfig, log *zap.SugaredLogger) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.ResendAPIKey == "" || len(cfg.Recipients) == 0 {
		log.Warn("Resend API key or recipients not set, auto-disabling submission notifications")
		cfg.Enabled = false
		return nil
	}

	if _, err := mail.ParseAddress(cfg.FromAddress); err != nil {
		return fmt.Errorf("invalid notification from address: %w", err)
	}
	for _, r := range cfg.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("invalid notification recipient %q: %w", r, err)
		}
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("notification timeout must be positive")
	}

	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
