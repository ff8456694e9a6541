package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Qdrant    QdrantConfig    `yaml:"qdrant" mapstructure:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Translate TranslateConfig `yaml:"translate" mapstructure:"translate"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the on-disk corpus: downloaded artifacts, the metadata
// registry, and the query log.
type DataConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	RegistryFile string `yaml:"registry_file" mapstructure:"registry_file"`
	QueryLogFile string `yaml:"query_log_file" mapstructure:"query_log_file"`
}

// RegistryPath returns the absolute path of the registry file.
func (d DataConfig) RegistryPath() string {
	return filepath.Join(d.Dir, d.RegistryFile)
}

// QueryLogPath returns the absolute path of the query log database.
func (d DataConfig) QueryLogPath() string {
	return filepath.Join(d.Dir, d.QueryLogFile)
}

// QdrantConfig holds vector search settings.
type QdrantConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	Key        string `yaml:"key" mapstructure:"key"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	VectorSize int    `yaml:"vector_size" mapstructure:"vector_size"`
}

// EmbeddingConfig holds embedding API settings.
type EmbeddingConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Model      string `yaml:"model" mapstructure:"model"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// AnthropicConfig holds Anthropic API settings. Models is the fallback
// rotation, tried in order.
type AnthropicConfig struct {
	Key       string   `yaml:"key" mapstructure:"key"`
	Models    []string `yaml:"models" mapstructure:"models"`
	MaxTokens int64    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TranslateConfig holds translation endpoint settings. An empty URL disables
// query translation.
type TranslateConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
	Key string `yaml:"key" mapstructure:"key"`
}

// ScrapeConfig configures corpus ingestion runs.
type ScrapeConfig struct {
	Concurrency    int `yaml:"concurrency" mapstructure:"concurrency"`
	RequestTimeout int `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// RetrievalConfig configures the adaptive chunk filter and search pool.
type RetrievalConfig struct {
	CandidatePool     int     `yaml:"candidate_pool" mapstructure:"candidate_pool"`
	MinChunks         int     `yaml:"min_chunks" mapstructure:"min_chunks"`
	RelativeMargin    float64 `yaml:"relative_margin" mapstructure:"relative_margin"`
	AbsoluteThreshold float64 `yaml:"absolute_threshold" mapstructure:"absolute_threshold"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and QANOON_*
// environment variables, applying defaults for everything else.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QANOON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.registry_file", "metadata/documents_metadata.json")
	v.SetDefault("data.query_log_file", "querylog.db")
	v.SetDefault("qdrant.url", "http://localhost:6333")
	v.SetDefault("qdrant.collection", "legal_chunks")
	v.SetDefault("qdrant.vector_size", 768)
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("anthropic.models", []string{
		"claude-haiku-4-5-20251001",
		"claude-sonnet-4-5-20250929",
	})
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("scrape.concurrency", 3)
	v.SetDefault("scrape.request_timeout_secs", 60)
	v.SetDefault("retrieval.candidate_pool", 50)
	v.SetDefault("retrieval.min_chunks", 10)
	v.SetDefault("retrieval.relative_margin", 0.1)
	v.SetDefault("retrieval.absolute_threshold", 0.5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger configures the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
