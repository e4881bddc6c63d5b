package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported classifier backends
const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

// Config holds all service configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Analyze AnalyzeConfig `mapstructure:"analyze"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig binds the classifier to a pinned model and revision
type ModelConfig struct {
	Backend        string        `mapstructure:"backend"`
	ID             string        `mapstructure:"id"`
	Revision       string        `mapstructure:"revision"`
	HubURL         string        `mapstructure:"hub_url"`
	CacheDir       string        `mapstructure:"cache_dir"`
	ONNXFile       string        `mapstructure:"onnx_file"`
	RuntimeLibrary string        `mapstructure:"runtime_library"`
	IntraOpThreads int           `mapstructure:"intra_op_threads"`
	Endpoint       string        `mapstructure:"endpoint"`
	APIToken       string        `mapstructure:"api_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxConcurrency int64         `mapstructure:"max_concurrency"`
}

// AnalyzeConfig holds request handling settings for /analyze
type AnalyzeConfig struct {
	ExposeErrors  bool          `mapstructure:"expose_errors"`
	MaxTextLength int           `mapstructure:"max_text_length"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// CORSConfig holds the cross-origin allow-list for /analyze
type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

// RedisConfig holds the optional result cache settings
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional config.yaml and
// SENTIMENT_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is a local development convenience; absence is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SENTIMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("model.backend", BackendONNX)
	v.SetDefault("model.id", "distilbert/distilbert-base-uncased-finetuned-sst-2-english")
	v.SetDefault("model.revision", "714eb0f")
	v.SetDefault("model.hub_url", "https://huggingface.co")
	v.SetDefault("model.cache_dir", "models")
	v.SetDefault("model.onnx_file", "onnx/model.onnx")
	v.SetDefault("model.runtime_library", "")
	v.SetDefault("model.intra_op_threads", 4)
	v.SetDefault("model.endpoint", "http://localhost:8081")
	v.SetDefault("model.api_token", "")
	v.SetDefault("model.request_timeout", 30*time.Second)
	v.SetDefault("model.max_concurrency", 0)

	v.SetDefault("analyze.expose_errors", true)
	v.SetDefault("analyze.max_text_length", 0)
	v.SetDefault("analyze.timeout", time.Duration(0))

	v.SetDefault("cors.allowed_origins", []string{"https://ai-sentiment-analysis.vercel.app"})
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("server.mode must be %q, %q or %q, got %q", gin.DebugMode, gin.ReleaseMode, gin.TestMode, c.Server.Mode))
	}

	switch c.Model.Backend {
	case BackendONNX:
		if c.Model.ONNXFile == "" {
			errs = append(errs, errors.New("model.onnx_file is required for the onnx backend"))
		}
	case BackendRemote:
		if c.Model.Endpoint == "" {
			errs = append(errs, errors.New("model.endpoint is required for the remote backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("model.backend must be %q or %q, got %q", BackendONNX, BackendRemote, c.Model.Backend))
	}
	if c.Model.ID == "" {
		errs = append(errs, errors.New("model.id is required"))
	}
	if c.Model.Revision == "" {
		errs = append(errs, errors.New("model.revision is required"))
	}
	if c.Model.MaxConcurrency < 0 {
		errs = append(errs, errors.New("model.max_concurrency must not be negative"))
	}

	if c.Analyze.MaxTextLength < 0 {
		errs = append(errs, errors.New("analyze.max_text_length must not be negative"))
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("cors.allowed_origins must contain at least one origin"))
	}
	for _, origin := range c.CORS.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("cors.allowed_origins: %q must start with http:// or https://", origin))
		}
	}

	return errors.Join(errs...)
}

// Address returns the listen address of the HTTP server
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
