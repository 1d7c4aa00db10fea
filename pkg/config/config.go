package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"PredWatch/internal/domain/models"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Mirror struct {
		Dir string `yaml:"dir"` // directory holding the embedded SQLite mirror
	} `yaml:"mirror"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		AlertsTopic  string        `yaml:"alerts_topic"`
		LogsTopic    string        `yaml:"logs_topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"kafka"`
	Providers struct {
		YahooBaseURL    string        `yaml:"yahoo_base_url"`
		StooqBaseURL    string        `yaml:"stooq_base_url"`
		ProviderTimeout time.Duration `yaml:"provider_timeout"`
	} `yaml:"providers"`
	Collaborators struct {
		TrainingURL  string        `yaml:"training_url"`
		InferenceURL string        `yaml:"inference_url"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"collaborators"`
	Monitor struct {
		Tickers           []string      `yaml:"tickers"`
		GraceDays         int           `yaml:"grace_days"`          // horizon grace before Expired
		SummaryWindowDays int           `yaml:"summary_window_days"` // trailing metrics window
		DriftWindowDays   int           `yaml:"drift_window_days"`   // current window size
		Significance      float64       `yaml:"significance"`        // drift p-value threshold
		ReferenceStart    string        `yaml:"reference_start"`     // training period, YYYY-MM-DD
		ReferenceEnd      string        `yaml:"reference_end"`
		RefreshEvery      time.Duration `yaml:"refresh_every"`
		PredictEvery      time.Duration `yaml:"predict_every"`
		ValidateEvery     time.Duration `yaml:"validate_every"`
		DriftEvery        time.Duration `yaml:"drift_every"`
		ReconcileEvery    time.Duration `yaml:"reconcile_every"`
		RetrainEvery      time.Duration `yaml:"retrain_every"`
		RetrainEnabled    bool          `yaml:"retrain_enabled"`
	} `yaml:"monitor"`
	Retrain struct {
		Tolerance  float64 `yaml:"tolerance"`   // allowed relative worsening vs Active
		MaxMAPE    float64 `yaml:"max_mape"`    // minimum absolute quality bars
		MinR2      float64 `yaml:"min_r2"`
		TrainYears int     `yaml:"train_years"`
	} `yaml:"retrain"`
	Thresholds map[string]models.Threshold `yaml:"thresholds"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TICKERS"); v != "" {
		c.Monitor.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MIRROR_DIR"); v != "" {
		c.Mirror.Dir = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Monitor.Tickers) == 0 {
		return fmt.Errorf("monitor.tickers cannot be empty")
	}
	if c.Mirror.Dir == "" {
		return fmt.Errorf("mirror.dir is required")
	}
	if c.Monitor.Significance <= 0 || c.Monitor.Significance >= 1 {
		return fmt.Errorf("monitor.significance must be in (0, 1), got %v", c.Monitor.Significance)
	}
	if c.Monitor.GraceDays <= 0 {
		c.Monitor.GraceDays = 7
	}
	if c.Monitor.DriftWindowDays <= 0 {
		c.Monitor.DriftWindowDays = 30
	}
	if c.Monitor.SummaryWindowDays <= 0 {
		c.Monitor.SummaryWindowDays = 7
	}
	if c.Retrain.Tolerance < 0 {
		return fmt.Errorf("retrain.tolerance must be >= 0, got %v", c.Retrain.Tolerance)
	}
	if c.Providers.ProviderTimeout <= 0 {
		c.Providers.ProviderTimeout = 10 * time.Second
	}
	return nil
}
