// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/celiscope/celiscope/internal/ai"
)

// Config holds all application configuration.
type Config struct {
	Port        string `yaml:"port"`
	Env         string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url"`
	Timezone    string `yaml:"timezone"`

	CORSOrigins  []string `yaml:"cors_origins"`
	CookieDomain string   `yaml:"cookie_domain"`

	Auth      AuthConfig      `yaml:"auth"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	AI        AIConfig        `yaml:"ai"`
	S3        S3Config        `yaml:"s3"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	PlaceholderImageURL string `yaml:"placeholder_image_url"`
}

// AuthConfig holds the token secrets and lifetimes.
type AuthConfig struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
}

// TelegramConfig configures the bot used for login and notifications.
type TelegramConfig struct {
	BotToken       string `yaml:"bot_token"`
	BotUsername    string `yaml:"bot_username"`
	VerifyInitData bool   `yaml:"verify_init_data"`
}

// AIConfig selects the completion provider.
type AIConfig struct {
	Provider       string        `yaml:"provider"`
	DeepSeekAPIKey string        `yaml:"deepseek_api_key"`
	DeepSeekBase   string        `yaml:"deepseek_api_base"`
	DeepSeekModel  string        `yaml:"deepseek_model"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
}

// S3Config configures object storage for uploaded images.
type S3Config struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
}

// SchedulerConfig toggles the notification and report jobs.
type SchedulerConfig struct {
	Enabled             bool `yaml:"enabled"`
	WeeklyReportOnStart bool `yaml:"weekly_report_on_start"`
}

// Default returns the built-in defaults.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Port:        "4000",
		Env:         "development",
		LogLevel:    "info",
		DatabaseURL: "sqlite://./data/celiscope.db",
		CORSOrigins: []string{
			"https://celiscope.ru",
			"https://www.celiscope.ru",
			"https://api.celiscope.ru",
			"http://localhost:5173",
		},
		Auth: AuthConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Telegram: TelegramConfig{VerifyInitData: true},
		AI: AIConfig{
			Provider:      ai.ProviderDeepSeek,
			DeepSeekBase:  aiDefaults.BaseURL,
			DeepSeekModel: aiDefaults.Model,
			GeminiModel:   "gemini-1.5-flash",
			RateLimit:     20,
			RateWindow:    time.Minute,
		},
		S3:                  S3Config{Region: "eu-north-1"},
		Scheduler:           SchedulerConfig{Enabled: true, WeeklyReportOnStart: true},
		PlaceholderImageURL: "https://celiscope.ru/placeholder-image.jpg",
	}
}

// Load builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE and the environment, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("APP_ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.CookieDomain = getEnv("COOKIE_DOMAIN", c.CookieDomain)
	c.PlaceholderImageURL = getEnv("PLACEHOLDER_IMAGE_URL", c.PlaceholderImageURL)
	if origins := getEnvList("CORS_ORIGINS"); origins != nil {
		c.CORSOrigins = origins
	}

	c.Auth.AccessSecret = getEnv("JWT_ACCESS_SECRET", c.Auth.AccessSecret)
	c.Auth.RefreshSecret = getEnv("JWT_REFRESH_SECRET", c.Auth.RefreshSecret)
	c.Auth.AccessTTL = getEnvDuration("ACCESS_TOKEN_TTL", c.Auth.AccessTTL)
	c.Auth.RefreshTTL = getEnvDuration("REFRESH_TOKEN_TTL", c.Auth.RefreshTTL)

	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.Telegram.BotUsername = getEnv("TELEGRAM_BOT_USERNAME", c.Telegram.BotUsername)
	c.Telegram.VerifyInitData = getEnvBool("TELEGRAM_VERIFY_INIT_DATA", c.Telegram.VerifyInitData)

	c.AI.Provider = getEnv("AI_PROVIDER", c.AI.Provider)
	c.AI.DeepSeekAPIKey = getEnv("DEEPSEEK_API_KEY", c.AI.DeepSeekAPIKey)
	c.AI.DeepSeekBase = getEnv("DEEPSEEK_API_BASE", c.AI.DeepSeekBase)
	c.AI.DeepSeekModel = getEnv("DEEPSEEK_MODEL", c.AI.DeepSeekModel)
	c.AI.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.AI.GeminiAPIKey)
	c.AI.GeminiModel = getEnv("GEMINI_MODEL", c.AI.GeminiModel)
	c.AI.RateLimit = getEnvInt("AI_RATE_LIMIT", c.AI.RateLimit)
	c.AI.RateWindow = getEnvDuration("AI_RATE_WINDOW", c.AI.RateWindow)

	c.S3.Region = getEnv("AWS_REGION", getEnv("REGION", c.S3.Region))
	c.S3.AccessKey = getEnv("AWS_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY", c.S3.AccessKey))
	c.S3.SecretKey = getEnv("AWS_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_KEY", c.S3.SecretKey))
	c.S3.Bucket = getEnv("AWS_BUCKET_NAME", c.S3.Bucket)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)

	c.Scheduler.Enabled = getEnvBool("SCHEDULER_ENABLED", c.Scheduler.Enabled)
	c.Scheduler.WeeklyReportOnStart = getEnvBool("WEEKLY_REPORT_ON_START", c.Scheduler.WeeklyReportOnStart)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be > 0")
	}
	if c.IsProduction() && (c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "") {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required in production")
	}
	if c.AI.RateLimit <= 0 || c.AI.RateWindow <= 0 {
		return fmt.Errorf("AI_RATE_LIMIT and AI_RATE_WINDOW must be > 0")
	}
	switch strings.ToLower(c.AI.Provider) {
	case ai.ProviderDeepSeek, ai.ProviderGemini:
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q", ai.ProviderDeepSeek, ai.ProviderGemini)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("TIMEZONE: %w", err)
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

// AIClient returns the settings of the selected completion provider.
func (c *Config) AIClient() ai.Config {
	if strings.EqualFold(c.AI.Provider, ai.ProviderGemini) {
		return ai.Config{
			Provider: ai.ProviderGemini,
			APIKey:   c.AI.GeminiAPIKey,
			Model:    c.AI.GeminiModel,
		}
	}
	return ai.Config{
		Provider: ai.ProviderDeepSeek,
		APIKey:   c.AI.DeepSeekAPIKey,
		BaseURL:  c.AI.DeepSeekBase,
		Model:    c.AI.DeepSeekModel,
	}
}

// Location returns the scheduler time zone, time.Local when unset.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
