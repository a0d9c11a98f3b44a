package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the immutable configuration value passed into each engine at
// construction. Loaded once in main; engines never read globals.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Extractor ModelConfig     `mapstructure:"extractor"`
	Generator ModelConfig     `mapstructure:"generator"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Curation  CurationConfig  `mapstructure:"curation"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"` // archive processed source pages
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// ModelConfig configures an OpenAI-compatible chat-completions collaborator,
// used by both the extraction and generation engines.
type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// Validate checks that the model configuration has all required fields.
func (c *ModelConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model config: model is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("model config: api_key is required")
	}
	return nil
}

// CurationConfig holds the per-run curation parameters. Flag values in main
// override the file/env values before the config is handed to the engines.
type CurationConfig struct {
	Subject       string             `mapstructure:"subject"`
	Topic         string             `mapstructure:"topic"`
	QuestionTypes []string           `mapstructure:"question_types"`
	Difficulty    string             `mapstructure:"difficulty"` // easy, medium, hard, mixed
	Distribution  DistributionConfig `mapstructure:"distribution"`
	Limit         int                `mapstructure:"limit"`
	SourceDir     string             `mapstructure:"source_dir"`
	ReportDir     string             `mapstructure:"report_dir"`
	SetTopic      string             `mapstructure:"set_topic"`
	SetDesc       string             `mapstructure:"set_description"`
}

// DistributionConfig is the per-band sample count triple for stratified
// sampling. All-zero means "use the flat limit instead".
type DistributionConfig struct {
	Easy   int `mapstructure:"easy"`
	Medium int `mapstructure:"medium"`
	Hard   int `mapstructure:"hard"`
}

// IsZero reports whether no band count is set.
func (d DistributionConfig) IsZero() bool {
	return d.Easy == 0 && d.Medium == 0 && d.Hard == 0
}

// Load reads configuration from file and environment.
// Parameters:
//   - configPath: explicit config file path, or empty to search defaults.
// Returns:
//   - *Config: parsed configuration with defaults applied.
//   - error: non-nil if reading or unmarshaling fails.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/hagwon.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "questions")
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "exam-pages")
	v.SetDefault("extractor.provider", "openai")
	v.SetDefault("extractor.model", "gpt-4o-mini")
	v.SetDefault("extractor.base_url", "https://api.openai.com/v1")
	v.SetDefault("generator.provider", "openai")
	v.SetDefault("generator.model", "gpt-4o-mini")
	v.SetDefault("generator.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("curation.subject", "korean")
	v.SetDefault("curation.difficulty", "mixed")
	v.SetDefault("curation.limit", 10)
	v.SetDefault("curation.source_dir", "./data/pages")
	v.SetDefault("curation.report_dir", "./reports")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("extractor.api_key", "OPENAI_API_KEY")
	v.BindEnv("extractor.base_url", "OPENAI_BASE_URL")
	v.BindEnv("extractor.model", "EXTRACTOR_MODEL")
	v.BindEnv("generator.api_key", "OPENAI_API_KEY")
	v.BindEnv("generator.base_url", "OPENAI_BASE_URL")
	v.BindEnv("generator.model", "GENERATOR_MODEL")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Embedding.ResolveEnvVars()

	return &cfg, nil
}
