package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded from a yaml file
// selected by APP_ENV with environment-variable overrides for secrets.
type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	// TextGen is the OpenAI-compatible caption generation endpoint
	TextGen struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"text_gen"`

	// ImageGen holds the template renderer (primary) and the
	// prompt-based generator used as backup
	ImageGen struct {
		TemplateURL       string `yaml:"template_url"`
		TemplateAPIKey    string `yaml:"template_api_key"`
		DefaultTemplateID string `yaml:"default_template_id"`
		PromptURL         string `yaml:"prompt_url"`
		PromptAPIKey      string `yaml:"prompt_api_key"`
		TimeoutSeconds    int    `yaml:"timeout_seconds"`
		FallbackImage     string `yaml:"fallback_image"`
	} `yaml:"image_gen"`

	// Scheduler is the external multi-platform publish API.
	// WorkspaceID and APIKey are process-wide defaults; clients may
	// carry their own workspace which then takes precedence.
	Scheduler struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		WorkspaceID    string `yaml:"workspace_id"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"scheduler"`

	// PublishLog is the remote append-only audit log with a local
	// CSV fallback path
	PublishLog struct {
		RemoteURL string `yaml:"remote_url"`
		APIKey    string `yaml:"api_key"`
		LocalPath string `yaml:"local_path"`
	} `yaml:"publish_log"`

	Pipeline struct {
		MaxRetries           int    `yaml:"max_retries"`
		ImageRetries         int    `yaml:"image_retries"`
		RetryDelaySeconds    int    `yaml:"retry_delay_seconds"`
		MediaUsageThreshold  int    `yaml:"media_usage_threshold"`
		ApprovalTimeoutHours int    `yaml:"approval_timeout_hours"`
		RecycleAfterDays     int    `yaml:"recycle_after_days"`
		RecycleBatchLimit    int    `yaml:"recycle_batch_limit"`
		ExportDir            string `yaml:"export_dir"`
	} `yaml:"pipeline"`

	Approval struct {
		LinkSecret   string `yaml:"link_secret"`
		LinkTTLHours int    `yaml:"link_ttl_hours"`
	} `yaml:"approval"`
}

// Load reads the yaml config at path, applies defaults and env overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if cfg.Approval.LinkSecret == "" {
		return nil, fmt.Errorf("approval.link_secret is required")
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.TextGen.TimeoutSeconds == 0 {
		c.TextGen.TimeoutSeconds = 90
	}
	if c.ImageGen.TimeoutSeconds == 0 {
		c.ImageGen.TimeoutSeconds = 60
	}
	if c.Scheduler.TimeoutSeconds == 0 {
		c.Scheduler.TimeoutSeconds = 60
	}
	if c.PublishLog.LocalPath == "" {
		c.PublishLog.LocalPath = "logs/publish_log.csv"
	}
	if c.Pipeline.MaxRetries == 0 {
		c.Pipeline.MaxRetries = 3
	}
	if c.Pipeline.ImageRetries == 0 {
		c.Pipeline.ImageRetries = 2
	}
	if c.Pipeline.RetryDelaySeconds == 0 {
		c.Pipeline.RetryDelaySeconds = 15
	}
	if c.Pipeline.MediaUsageThreshold == 0 {
		c.Pipeline.MediaUsageThreshold = 3
	}
	if c.Pipeline.ApprovalTimeoutHours == 0 {
		c.Pipeline.ApprovalTimeoutHours = 72
	}
	if c.Pipeline.RecycleAfterDays == 0 {
		c.Pipeline.RecycleAfterDays = 30
	}
	if c.Pipeline.RecycleBatchLimit == 0 {
		c.Pipeline.RecycleBatchLimit = 50
	}
	if c.Pipeline.ExportDir == "" {
		c.Pipeline.ExportDir = "exports"
	}
	if c.Approval.LinkTTLHours == 0 {
		c.Approval.LinkTTLHours = 96
	}
}

// applyEnvOverrides lets deployment environments override secrets and
// connection details without touching the yaml file
func (c *Config) applyEnvOverrides() {
	overrideStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overrideInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	overrideStr(&c.Database.Host, "DB_HOST")
	overrideInt(&c.Database.Port, "DB_PORT")
	overrideStr(&c.Database.User, "DB_USER")
	overrideStr(&c.Database.Password, "DB_PASSWORD")
	overrideStr(&c.Database.Name, "DB_NAME")

	overrideStr(&c.Redis.Host, "REDIS_HOST")
	overrideInt(&c.Redis.Port, "REDIS_PORT")
	overrideStr(&c.Redis.Password, "REDIS_PASSWORD")

	overrideStr(&c.TextGen.APIKey, "TEXTGEN_API_KEY")
	overrideStr(&c.ImageGen.TemplateAPIKey, "IMAGE_TEMPLATE_API_KEY")
	overrideStr(&c.ImageGen.PromptAPIKey, "IMAGE_PROMPT_API_KEY")
	overrideStr(&c.Scheduler.APIKey, "SCHEDULER_API_KEY")
	overrideStr(&c.Scheduler.WorkspaceID, "SCHEDULER_WORKSPACE_ID")
	overrideStr(&c.PublishLog.APIKey, "PUBLISH_LOG_API_KEY")
	overrideStr(&c.Approval.LinkSecret, "APPROVAL_LINK_SECRET")
}

// DSN builds the MySQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}

// RetryDelay returns the dispatcher retry delay as a duration
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Pipeline.RetryDelaySeconds) * time.Second
}

// ApprovalTimeout returns the pending-review timeout as a duration
func (c *Config) ApprovalTimeout() time.Duration {
	return time.Duration(c.Pipeline.ApprovalTimeoutHours) * time.Hour
}

// RecycleAfter returns the minimum age for recycling as a duration
func (c *Config) RecycleAfter() time.Duration {
	return time.Duration(c.Pipeline.RecycleAfterDays) * 24 * time.Hour
}
