package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	API       APIConfig       `yaml:"api" envconfig:"API"`
	Warehouse WarehouseConfig `yaml:"warehouse" envconfig:"WAREHOUSE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
}

// PathsConfig contains the input and output locations of one run.
type PathsConfig struct {
	ReportsDir     string   `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"Relatorio_vendas"`
	ProductFeedCSV string   `yaml:"product_feed_csv" envconfig:"PRODUCT_FEED_CSV" default:"dados_bling/relatorio_bling_otimizado.csv"`
	BundleArchives []string `yaml:"bundle_archives" envconfig:"BUNDLE_ARCHIVES"`
	MarkdownOutput string   `yaml:"markdown_output" envconfig:"MARKDOWN_OUTPUT" default:"base_dash_relatorio_vendas.md"`
}

// APIConfig configures the paginated sales-order API client.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url" envconfig:"BASE_URL"`
	Key        string        `yaml:"key" envconfig:"KEY"`
	PageSize   int           `yaml:"page_size" envconfig:"PAGE_SIZE" default:"50"`
	PageDelay  time.Duration `yaml:"page_delay" envconfig:"PAGE_DELAY" default:"500ms"`
	MaxRetries int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
}

// WarehouseConfig configures the analytical warehouse writer. Credentials
// travel inside the DSN and are handed to the writer's constructor
// explicitly; nothing is read from ambient environment at call time.
type WarehouseConfig struct {
	DSN               string `yaml:"dsn" envconfig:"DSN"`
	SalesTable        string `yaml:"sales_table" envconfig:"SALES_TABLE" default:"base_dash_relatorio_vendas"`
	ParetoTablePrefix string `yaml:"pareto_table_prefix" envconfig:"PARETO_TABLE_PREFIX" default:"pareto"`
	// FullLoad selects the full-replace upload mode. The default mode
	// deletes only the months present in the run's output, then appends.
	FullLoad bool `yaml:"full_load" envconfig:"FULL_LOAD" default:"false"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// Load loads configuration from environment variables and, when present, a
// config file. Environment variables win over file values.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("VENDAS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := os.Getenv("VENDAS_CONFIG_FILE"); configFile != "" {
		if err := loadFromFile(&cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
		// Re-apply env so explicit environment settings take precedence.
		if err := envconfig.Process("VENDAS", &cfg); err != nil {
			return nil, fmt.Errorf("failed to reload config from env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks the loaded configuration for values the pipeline cannot
// run without.
func (c *Config) Validate() error {
	if c.Paths.ReportsDir == "" {
		return fmt.Errorf("paths.reports_dir must not be empty")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must not be negative, got %d", c.API.MaxRetries)
	}
	return nil
}
