// Package config loads the demo's settings from an optional bedrock.yaml,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultModelID          = "meta.llama3-8b-instruct-v1:0"
	DefaultAnthropicModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	DefaultSessionDuration  = time.Hour
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Config is the resolved demo configuration: AWS credentials and region,
// model selection, logging and tracing.
type Config struct {
	Region           string        `mapstructure:"region"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	SessionToken     string        `mapstructure:"session_token"`
	ModelID          string        `mapstructure:"model_id"`
	AnthropicModelID string        `mapstructure:"anthropic_model_id"`
	SessionDuration  time.Duration `mapstructure:"session_duration"`
	Offline          bool          `mapstructure:"offline"`
	ModelsPath       string        `mapstructure:"models_path"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	OTLPEndpoint     string        `mapstructure:"otlp_endpoint"`
}

// env lists the environment variables bound to each key. AWS keys keep the
// SDK's names; the rest use the BEDROCK_ prefix.
var env = map[string][]string{
	"region":             {"AWS_REGION", "AWS_DEFAULT_REGION"},
	"access_key_id":      {"AWS_ACCESS_KEY_ID"},
	"secret_access_key":  {"AWS_SECRET_ACCESS_KEY"},
	"session_token":      {"AWS_SESSION_TOKEN"},
	"model_id":           {"BEDROCK_MODEL_ID"},
	"anthropic_model_id": {"BEDROCK_ANTHROPIC_MODEL_ID"},
	"session_duration":   {"BEDROCK_SESSION_DURATION"},
	"offline":            {"BEDROCK_OFFLINE"},
	"models_path":        {"BEDROCK_MODELS_PATH"},
	"log_level":          {"BEDROCK_LOG_LEVEL"},
	"log_format":         {"BEDROCK_LOG_FORMAT"},
	"otlp_endpoint":      {"BEDROCK_OTLP_ENDPOINT"},
}

// Load reads configuration. An empty path looks for bedrock.yaml in the
// working directory and ./config, and a missing file is not an error; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bedrock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetDefault("model_id", DefaultModelID)
	v.SetDefault("anthropic_model_id", DefaultAnthropicModelID)
	v.SetDefault("session_duration", DefaultSessionDuration)
	v.SetDefault("offline", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)

	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if c.ModelID == "" {
		return errors.New("config: model_id must not be empty")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	if c.SessionDuration < 0 {
		return fmt.Errorf("config: session_duration must not be negative, got %s", c.SessionDuration)
	}
	return nil
}

// HasStaticKeys reports whether both halves of an access key pair are set.
func (c *Config) HasStaticKeys() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// LoadEnv searches for a .env file starting from dir and walking up the
// directory tree, and loads the first one found. Variables already set in
// the environment win. It returns the loaded path, or "" if none was found.
func LoadEnv(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("failed to load %s: %w", envPath, err)
			}
			return envPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
