// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Store, Annotator, Oracle, Ranking, Topics, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Annotator AnnotatorConfig `yaml:"annotator"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Topics    TopicsConfig    `yaml:"topics"`
	Stopwords StopwordsConfig `yaml:"stopwords"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StoreConfig selects the document-frequency store backend and the corpus
// used when a request does not name one.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // memory, postgres or sqlite
	DefaultCorpus string `yaml:"defaultCorpus"`
	// CommitVia is "direct" (write to the store in-process) or "kafka"
	// (publish a commit event for the indexer).
	CommitVia string `yaml:"commitVia"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentCommit  string `yaml:"documentCommit"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
	// CacheTTL bounds specificity cache entries; zero keeps them forever.
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnnotatorConfig selects and tunes the NLP annotation backend.
type AnnotatorConfig struct {
	Backend  string        `yaml:"backend"` // corenlp or prose
	URL      string        `yaml:"url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`

	// Stemmer approximates lemmas for the prose backend: snowball or porter.
	Stemmer string `yaml:"stemmer"`
}

// OracleConfig controls the specificity oracle and its pacing.
type OracleConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	// Saturation is the result count at which specificity reaches zero.
	Saturation     int           `yaml:"saturation"`
	Delay          time.Duration `yaml:"delay"`
	Budget         time.Duration `yaml:"budget"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// RankingConfig controls the hybrid ranker and the TF-IUDF blend.
type RankingConfig struct {
	DefaultTargetCount  int      `yaml:"defaultTargetCount"`
	MaxTargetCount      int      `yaml:"maxTargetCount"`
	BlendWeight         float64  `yaml:"blendWeight"`
	SimilarityThreshold float64  `yaml:"similarityThreshold"`
	EntityTypes         []string `yaml:"entityTypes"`
}

// TopicsConfig holds the LDA sampler parameters.
type TopicsConfig struct {
	Count         int     `yaml:"count"`
	Alpha         float64 `yaml:"alpha"`
	Beta          float64 `yaml:"beta"`
	Iterations    int     `yaml:"iterations"`
	BurnIn        int     `yaml:"burnIn"`
	ThinInterval  int     `yaml:"thinInterval"`
	SampleLag     int     `yaml:"sampleLag"`
	TermsPerTopic int     `yaml:"termsPerTopic"`
	MaxDocuments  int     `yaml:"maxDocuments"`
}

// StopwordsConfig points at an optional stopword list overriding the
// built-in English set.
type StopwordsConfig struct {
	Path string `yaml:"path"`
}

// AnalyticsConfig controls event collection and stats snapshots.
type AnalyticsConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"bufferSize"`
	// SnapshotBackend is "none", "postgres" or "sqlite".
	SnapshotBackend  string        `yaml:"snapshotBackend"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Ranking.BlendWeight < 0 || c.Ranking.BlendWeight > 1 {
		return fmt.Errorf("ranking.blendWeight must be within [0,1], got %v", c.Ranking.BlendWeight)
	}
	if c.Ranking.SimilarityThreshold <= 0 || c.Ranking.SimilarityThreshold > 1 {
		return fmt.Errorf("ranking.similarityThreshold must be within (0,1], got %v", c.Ranking.SimilarityThreshold)
	}
	if c.Topics.Count < 1 {
		return fmt.Errorf("topics.count must be positive, got %d", c.Topics.Count)
	}
	switch c.Store.Backend {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Annotator.Backend {
	case "corenlp", "prose":
	default:
		return fmt.Errorf("unknown annotator backend %q", c.Annotator.Backend)
	}
	switch c.Analytics.SnapshotBackend {
	case "none", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown analytics snapshot backend %q", c.Analytics.SnapshotBackend)
	}
	switch c.Annotator.Stemmer {
	case "snowball", "porter":
	default:
		return fmt.Errorf("unknown stemmer %q", c.Annotator.Stemmer)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Backend:       "memory",
			DefaultCorpus: "default",
			CommitVia:     "direct",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "summarizer",
			User:            "summarizer",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "data/frequencies.db",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "summarizer-indexer",
			Topics: KafkaTopics{
				DocumentCommit:  "document-commit",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Annotator: AnnotatorConfig{
			Backend:  "prose",
			URL:      "http://localhost:9000",
			Language: "en",
			Timeout:  30 * time.Second,
			Stemmer:  "snowball",
		},
		Oracle: OracleConfig{
			Enabled:        true,
			URL:            "https://lookup.dbpedia.org/api/search",
			Saturation:     100,
			Delay:          500 * time.Millisecond,
			Budget:         60 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Ranking: RankingConfig{
			DefaultTargetCount:  10,
			MaxTargetCount:      100,
			BlendWeight:         0.5,
			SimilarityThreshold: 0.75,
			EntityTypes: []string{
				"PERSON", "LOCATION", "ORGANIZATION", "MISC", "TITLE",
				"CITY", "STATE_OR_PROVINCE", "COUNTRY", "NATIONALITY",
				"RELIGION", "IDEOLOGY", "GPE",
			},
		},
		Topics: TopicsConfig{
			Count:         5,
			Alpha:         2,
			Beta:          0.5,
			Iterations:    1000,
			BurnIn:        200,
			ThinInterval:  100,
			SampleLag:     10,
			TermsPerTopic: 5,
			MaxDocuments:  500,
		},
		Analytics: AnalyticsConfig{
			Enabled:          false,
			BufferSize:       10000,
			SnapshotBackend:  "none",
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TS_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("TS_STORE_COMMIT_VIA"); v != "" {
		cfg.Store.CommitVia = v
	}
	if v := os.Getenv("TS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("TS_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("TS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TS_ANNOTATOR_BACKEND"); v != "" {
		cfg.Annotator.Backend = v
	}
	if v := os.Getenv("TS_ANNOTATOR_URL"); v != "" {
		cfg.Annotator.URL = v
	}
	if v := os.Getenv("TS_ANNOTATOR_STEMMER"); v != "" {
		cfg.Annotator.Stemmer = v
	}
	if v := os.Getenv("TS_ORACLE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Oracle.Enabled = enabled
		}
	}
	if v := os.Getenv("TS_ORACLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Oracle.Delay = d
		}
	}
	if v := os.Getenv("TS_ORACLE_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Oracle.Budget = d
		}
	}
	if v := os.Getenv("TS_STOPWORDS_PATH"); v != "" {
		cfg.Stopwords.Path = v
	}
	if v := os.Getenv("TS_ANALYTICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = enabled
		}
	}
	if v := os.Getenv("TS_ANALYTICS_SNAPSHOT_BACKEND"); v != "" {
		cfg.Analytics.SnapshotBackend = v
	}
	if v := os.Getenv("TS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
