package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	OpenRouter OpenRouter `mapstructure:"openrouter"`
	Generation Generation `mapstructure:"generation"`
	Paths      Paths      `mapstructure:"paths"`
	Catalog    Catalog    `mapstructure:"catalog"`
	Server     Server     `mapstructure:"server"`
	Log        Log        `mapstructure:"log"`
}

// OpenRouter holds the chat-completion endpoint settings.
type OpenRouter struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	DefaultModel string        `mapstructure:"default_model" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0"`
}

// Generation holds the request parameters shared by every demo.
type Generation struct {
	Temperature      float64  `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens        int      `mapstructure:"max_tokens" validate:"gt=0"`
	MaxContinuations int      `mapstructure:"max_continuations" validate:"gte=0"`
	SystemPrompt     string   `mapstructure:"system_prompt"`
	Models           []string `mapstructure:"models" validate:"min=1,dive,required"`
	Concurrency      int      `mapstructure:"concurrency" validate:"gte=1"`
}

type Paths struct {
	Pages string `mapstructure:"pages" validate:"required"`
}

type Catalog struct {
	CacheFile string        `mapstructure:"cache_file"`
	MaxAge    time.Duration `mapstructure:"max_age"`
}

type Server struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type Log struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

var validate = validator.New()

// DefaultConfigPath is read when present; a missing file is not an error.
const DefaultConfigPath = "config/config.json"

// Load reads .env (if any), the JSON config file (if any) and environment
// overrides, in increasing order of precedence.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			if !(configPath == DefaultConfigPath && isNotExist(err)) {
				return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("openrouter.base_url", "OPENROUTER_BASE_URL", "OPENROUTER_API_URL")
	_ = v.BindEnv("openrouter.default_model", "OPENROUTER_DEFAULT_MODEL", "DEFAULT_MODEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.OpenRouter.BaseURL = NormalizeBaseURL(cfg.OpenRouter.BaseURL)
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.default_model", "openai/gpt-3.5-turbo")
	v.SetDefault("openrouter.timeout", "120s")
	v.SetDefault("openrouter.max_retries", 2)

	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.max_tokens", 2000)
	v.SetDefault("generation.max_continuations", 3)
	v.SetDefault("generation.system_prompt", "")
	v.SetDefault("generation.models", []string{
		"openai/gpt-3.5-turbo",
		"openai/gpt-4-turbo",
		"anthropic/claude-3-haiku",
		"anthropic/claude-3-5-sonnet",
		"google/gemini-pro",
		"meta-llama/llama-3.1-8b-instruct",
	})
	v.SetDefault("generation.concurrency", 2)

	v.SetDefault("paths.pages", "pages")
	v.SetDefault("catalog.cache_file", "openrouter-models.json")
	v.SetDefault("catalog.max_age", "24h")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
}

// NormalizeBaseURL accepts either the API base or a full chat-completions URL.
func NormalizeBaseURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return u
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
