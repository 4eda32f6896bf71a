package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Recorder RecorderConfig `yaml:"recorder"`
	REST     RESTConfig     `yaml:"rest"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SessionConfig struct {
	Market        StreamConfig    `yaml:"market"`
	User          StreamConfig    `yaml:"user"`
	Authenticate  bool            `yaml:"authenticate"`
	APIKey        string          `yaml:"api_key"`
	SecretKey     string          `yaml:"secret_key"`
	WriteTimeout  time.Duration   `yaml:"write_timeout"`
	CloseTimeout  time.Duration   `yaml:"close_timeout"`
	Subscriptions SubscriptionSet `yaml:"subscriptions"`
}

type StreamConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

type MetricsConfig struct {
	Enabled        bool             `yaml:"enabled"`
	Addr           string           `yaml:"addr"`
	ReportInterval time.Duration    `yaml:"report_interval"`
	QueueInterval  time.Duration    `yaml:"queue_interval"`
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Parquet       ParquetConfig `yaml:"parquet"`
	S3            S3Config      `yaml:"s3"`
	Kafka         KafkaConfig   `yaml:"kafka"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RESTConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Metrics: MetricsConfig{
			Addr:           ":9102",
			ReportInterval: time.Minute,
			QueueInterval:  10 * time.Second,
		},
		Recorder: RecorderConfig{
			BatchSize:     500,
			FlushInterval: 30 * time.Second,
		},
		REST: RESTConfig{Timeout: 10 * time.Second},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	endpoints := EndpointsFor(AppEnvironment())
	if config.Session.Market.URL == "" {
		config.Session.Market.URL = endpoints.Market
	}
	if config.Session.User.URL == "" {
		config.Session.User.URL = endpoints.User
	}
	if config.REST.BaseURL == "" {
		config.REST.BaseURL = endpoints.REST
	}

	config.Recorder.S3.Bucket = strings.TrimSpace(config.Recorder.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"CDC_API_KEY", &cfg.Session.APIKey},
		{"CDC_SECRET_KEY", &cfg.Session.SecretKey},
		{"CDC_MARKET_URL", &cfg.Session.Market.URL},
		{"CDC_USER_URL", &cfg.Session.User.URL},
		{"CDC_REST_URL", &cfg.REST.BaseURL},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = strings.TrimSpace(v)
		}
	}

	if cfg.Recorder.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Recorder.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Recorder.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Recorder.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Recorder.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if !cfg.Session.Market.Enabled && !cfg.Session.User.Enabled {
		return fmt.Errorf("at least one of session.market and session.user must be enabled")
	}

	if cfg.Session.Authenticate {
		if !cfg.Session.User.Enabled {
			return fmt.Errorf("session.authenticate requires session.user to be enabled")
		}
		if cfg.Session.APIKey == "" || cfg.Session.SecretKey == "" {
			return fmt.Errorf("session.api_key and session.secret_key are required when session.authenticate is true")
		}
	}

	if err := cfg.Session.Subscriptions.validate(); err != nil {
		return err
	}

	if cfg.Recorder.Enabled {
		if cfg.Recorder.BatchSize <= 0 {
			return fmt.Errorf("recorder.batch_size must be greater than 0")
		}
		if cfg.Recorder.FlushInterval <= 0 {
			return fmt.Errorf("recorder.flush_interval must be greater than 0")
		}
		if !cfg.Recorder.Parquet.Enabled && !cfg.Recorder.S3.Enabled && !cfg.Recorder.Kafka.Enabled {
			return fmt.Errorf("recorder requires at least one of parquet, s3 or kafka")
		}
		if cfg.Recorder.Parquet.Enabled && cfg.Recorder.Parquet.Dir == "" {
			return fmt.Errorf("recorder.parquet.dir is required when parquet is enabled")
		}
		if cfg.Recorder.Kafka.Enabled && (len(cfg.Recorder.Kafka.Brokers) == 0 || cfg.Recorder.Kafka.Topic == "") {
			return fmt.Errorf("recorder.kafka.brokers and recorder.kafka.topic are required when kafka is enabled")
		}
	}

	if cfg.Recorder.S3.Enabled {
		if cfg.Recorder.S3.Bucket == "" {
			return fmt.Errorf("recorder.s3.bucket is required when S3 is enabled")
		}
		if cfg.Recorder.S3.Region == "" {
			return fmt.Errorf("recorder.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Recorder.S3.Bucket) {
			return fmt.Errorf("recorder.s3.bucket '%s' is invalid", cfg.Recorder.S3.Bucket)
		}
	}

	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Region == "" {
		return fmt.Errorf("metrics.cloudwatch.region is required when cloudwatch is enabled")
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
