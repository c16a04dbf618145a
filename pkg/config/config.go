package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Redis      RedisConfig
	TasteGraph TasteGraphConfig
	Recommend  RecommendConfig
	LLM        LLMConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type StorageConfig struct {
	// Driver is "memory" or "sqlite".
	Driver     string
	SQLitePath string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type TasteGraphConfig struct {
	BaseURL           string
	APIKey            string
	TimeoutSec        int
	ItemsPerCategory  int
	EntityIDsPerQuery int
}

type RecommendConfig struct {
	ItemsPerCategory int
	MaxCandidates    int
	MinMatch         int
	MaxMatch         int
}

type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type RateLimitConfig struct {
	Enabled              bool
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/culture-compass")

	return load(v)
}

// LoadFile reads an explicit config file instead of searching the default paths.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CULTURE_COMPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Recommend.MinMatch < 0 || c.Recommend.MaxMatch > 100 || c.Recommend.MinMatch > c.Recommend.MaxMatch {
		return fmt.Errorf("invalid recommend match range [%d, %d]", c.Recommend.MinMatch, c.Recommend.MaxMatch)
	}
	if c.TasteGraph.ItemsPerCategory < 1 || c.Recommend.ItemsPerCategory < 1 {
		return errors.New("itemsPerCategory must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.development", false)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlitePath", "./data/culture.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("tasteGraph.baseURL", "https://hackathon.api.qloo.com")
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("tasteGraph.apiKey", "")
	v.SetDefault("tasteGraph.timeoutSec", 20)
	v.SetDefault("tasteGraph.itemsPerCategory", 2)
	v.SetDefault("tasteGraph.entityIDsPerQuery", 3)

	v.SetDefault("recommend.itemsPerCategory", 2)
	v.SetDefault("recommend.maxCandidates", 15)
	v.SetDefault("recommend.minMatch", 80)
	v.SetDefault("recommend.maxMatch", 100)

	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.maxTokens", 2000)
	v.SetDefault("llm.timeoutSec", 60)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.maxRequestsPerMinute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
