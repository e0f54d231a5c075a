package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	S3             S3Config             `mapstructure:"s3"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Log            LogConfig            `mapstructure:"log"`
	Embedding      EmbeddingConfig      `mapstructure:"embedding"`
	Qdrant         QdrantConfig         `mapstructure:"qdrant"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Reindex        ReindexConfig        `mapstructure:"reindex"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	Mode           string        `mapstructure:"mode"` // gin mode: "debug" or "release"
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// S3Config locates exercise images. An empty bucket disables image links.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig holds the secret used to verify bearer tokens. Tokens are issued elsewhere.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// EmbeddingConfig configures the Gemini embedding provider.
// An empty API key disables the vector path.
type EmbeddingConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// QdrantConfig configures the vector index. An empty URL disables the vector path.
type QdrantConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RedisConfig configures the embedding cache. An empty address disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RecommendationConfig struct {
	DefaultLimit     int           `mapstructure:"default_limit"`
	MaxLimit         int           `mapstructure:"max_limit"`
	SearchMultiplier int           `mapstructure:"search_multiplier"`
	MinScore         float64       `mapstructure:"min_score"`
	VectorTimeout    time.Duration `mapstructure:"vector_timeout"`
	MinVectorBudget  time.Duration `mapstructure:"min_vector_budget"`
	BreakerFailures  uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type ReindexConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Timeout       time.Duration `mapstructure:"timeout"`
	OnStartup     bool          `mapstructure:"on_startup"`
}

// VectorEnabled reports whether both the embedding provider and the index are configured.
func (c Config) VectorEnabled() bool {
	return c.Embedding.APIKey != "" && c.Qdrant.URL != ""
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Nested keys map to env vars, e.g. embedding.api_key -> EMBEDDING_API_KEY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil // Env vars and defaults are enough
	} else if err != nil {
		return
	}

	// Duration strings ("30s", "10m") decode straight into time.Duration fields.
	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "workout_recommender")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("log.mode", "development")

	v.SetDefault("embedding.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "models/text-embedding-004")
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.timeout", "30s")

	v.SetDefault("qdrant.url", "")
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.collection", "exercises")
	v.SetDefault("qdrant.timeout", "10s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("recommendation.default_limit", 10)
	v.SetDefault("recommendation.max_limit", 50)
	v.SetDefault("recommendation.search_multiplier", 3)
	v.SetDefault("recommendation.min_score", 0.2)
	v.SetDefault("recommendation.vector_timeout", "3s")
	v.SetDefault("recommendation.min_vector_budget", "500ms")
	v.SetDefault("recommendation.breaker_failures", 5)
	v.SetDefault("recommendation.breaker_cooldown", "30s")

	v.SetDefault("reindex.concurrency", 4)
	v.SetDefault("reindex.rate_per_second", 5)
	v.SetDefault("reindex.timeout", "10m")
	v.SetDefault("reindex.on_startup", false)
}
