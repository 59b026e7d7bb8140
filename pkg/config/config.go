// Package config loads the guard agent configuration from an optional YAML
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/run-bigpig/agent-guard/pkg/modelarmor"
	"github.com/run-bigpig/agent-guard/pkg/session"
	"github.com/run-bigpig/agent-guard/pkg/tracing"
)

// ErrMissingProject is returned by Validate when no project id is set
var ErrMissingProject = errors.New("google cloud project id is required")

// DefaultTemplateID is the Model Armor template used when none is configured
const DefaultTemplateID = "dev-template"

// Config is the complete configuration of the guard agent
type Config struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	CredentialsFile string `yaml:"credentials_file"`

	ModelArmor ModelArmorConfig `yaml:"model_armor"`
	Vertex     VertexConfig     `yaml:"vertex"`
	Redis      RedisConfig      `yaml:"redis"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Server     ServerConfig     `yaml:"server"`

	LogLevel string `yaml:"log_level"`
}

// ModelArmorConfig configures the classifier
type ModelArmorConfig struct {
	TemplateID    string        `yaml:"template_id"`
	Endpoint      string        `yaml:"endpoint"`
	FailurePolicy string        `yaml:"failure_policy"`
	Timeout       time.Duration `yaml:"timeout"`
}

// VertexConfig configures the model
type VertexConfig struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// RedisConfig selects the Redis session store when URL is set
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// TracingConfig enables OTLP trace export when Endpoint is set
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing else is set
func Default() Config {
	return Config{
		Location: modelarmor.DefaultLocation,
		ModelArmor: ModelArmorConfig{
			TemplateID:    DefaultTemplateID,
			FailurePolicy: string(modelarmor.DefaultFailurePolicy),
			Timeout:       modelarmor.DefaultTimeout,
		},
		Vertex: VertexConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
		},
		Redis: RedisConfig{
			TTL: 24 * time.Hour,
		},
		Tracing: TracingConfig{
			ServiceName: "agent-guard",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and then the environment
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if !isValidFilePath(path) {
			return Config{}, fmt.Errorf("invalid config file path: %s", path)
		}
		data, err := os.ReadFile(path) // #nosec G304 - Path is validated with isValidFilePath() before use
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	str("GOOGLE_CLOUD_PROJECT", &c.ProjectID)
	str("GOOGLE_CLOUD_LOCATION", &c.Location)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.CredentialsFile)
	str("MODEL_ARMOR_TEMPLATE", &c.ModelArmor.TemplateID)
	str("MODEL_ARMOR_ENDPOINT", &c.ModelArmor.Endpoint)
	str("MODEL_ARMOR_FAIL_POLICY", &c.ModelArmor.FailurePolicy)
	str("VERTEX_MODEL", &c.Vertex.Model)
	str("LOG_LEVEL", &c.LogLevel)
	str("REDIS_URL", &c.Redis.URL)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("OTEL_ENDPOINT", &c.Tracing.Endpoint)
	str("HTTP_ADDR", &c.Server.Addr)

	if v, ok := lookup("MODEL_ARMOR_TIMEOUT"); ok && v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MODEL_ARMOR_TIMEOUT: %w", err)
		}
		c.ModelArmor.Timeout = timeout
	}
	return nil
}

// Validate checks the configuration. A project id is required unless the
// template is already a full resource name.
func (c Config) Validate() error {
	if c.ProjectID == "" && !strings.HasPrefix(c.ModelArmor.TemplateID, "projects/") {
		return ErrMissingProject
	}
	if c.ModelArmor.TemplateID == "" {
		return fmt.Errorf("model armor template id is required")
	}
	if _, err := modelarmor.ParseFailurePolicy(c.ModelArmor.FailurePolicy); err != nil {
		return err
	}
	return nil
}

// ModelArmorClientConfig returns the settings of the Model Armor client
func (c Config) ModelArmorClientConfig() (modelarmor.Config, error) {
	policy, err := modelarmor.ParseFailurePolicy(c.ModelArmor.FailurePolicy)
	if err != nil {
		return modelarmor.Config{}, err
	}
	return modelarmor.Config{
		ProjectID:       c.ProjectID,
		Location:        c.Location,
		TemplateID:      c.ModelArmor.TemplateID,
		Endpoint:        c.ModelArmor.Endpoint,
		CredentialsFile: c.CredentialsFile,
		Timeout:         c.ModelArmor.Timeout,
		FailurePolicy:   policy,
	}, nil
}

// RedisSessionConfig returns the Redis session store settings
func (c Config) RedisSessionConfig() session.RedisConfig {
	return session.RedisConfig{
		URL:      c.Redis.URL,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// OTelConfig returns the tracer settings
func (c Config) OTelConfig() tracing.OTelConfig {
	return tracing.OTelConfig{
		Enabled:           c.Tracing.Endpoint != "",
		ServiceName:       c.Tracing.ServiceName,
		CollectorEndpoint: c.Tracing.Endpoint,
	}
}

// isValidFilePath checks if a file path is valid and safe
func isValidFilePath(filePath string) bool {
	if filePath == "" {
		return false
	}

	cleanPath := filepath.Clean(filePath)
	if strings.Contains(cleanPath, "..") {
		return false
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return false
	}
	if strings.HasPrefix(absPath, "/proc") ||
		strings.HasPrefix(absPath, "/sys") ||
		strings.HasPrefix(absPath, "/dev") {
		return false
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}
