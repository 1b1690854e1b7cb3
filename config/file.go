package config

import (
	"fmt"
	"io"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at a YAML config file.
const ConfigFileEnv = "CONFIG_FILE"

// LoadConfigFromFile reads a YAML file with the same layout as Config's yaml
// tags. Environment variables still take precedence over file values.
func LoadConfigFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return load(v)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}
	return &cfg, nil
}

// WriteConfigTemplate writes a YAML starting point for env. Secrets are left
// empty; supply them through the environment.
func WriteConfigTemplate(w io.Writer, env Environment) error {
	cfg, err := DefaultConfig()
	if err != nil {
		return err
	}

	switch env {
	case EnvDevelopment:
	case EnvProduction:
		cfg.Server.AllowedOrigins = []string{"https://feedback.example.com"}
		cfg.Database.SSLMode = "require"
		cfg.Database.AutoMigrate = false
		cfg.Redis.UseTLS = true
	default:
		return fmt.Errorf("unknown environment: %s", env)
	}
	cfg.Server.Environment = env

	if _, err := fmt.Fprintf(w, "# Feedback hub config for the %s environment\n", env); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config template: %w", err)
	}
	return enc.Close()
}
