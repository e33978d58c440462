package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"resume-matcher/internal/shared/secrets"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	TrustedProxies  []string
	DatabaseURL     string
	SessionTTL      time.Duration
	SessionSweep    time.Duration
	LLMProvider     string
	LLMModel        string
	LLMTimeout      time.Duration
	APIKey          string
	AnalyzeRate     float64
	AnalyzeBurst    int
	ShutdownTimeout time.Duration
	LogJSON         bool
	LogDebug        bool
}

// Load reads configuration from environment variables and an optional config file,
// falling back to sensible defaults.
func Load(configFile string) (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env: %w", err)
	}

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	apiKey, err := loadAPIKey(v)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:            v.GetString("port"),
		Env:             normalizeEnv(v.GetString("env")),
		CORSAllowOrigin: splitAndTrim(v.GetString("cors_allow_origins")),
		TrustedProxies:  splitAndTrim(v.GetString("trusted_proxies")),
		DatabaseURL:     strings.TrimSpace(v.GetString("database_url")),
		SessionTTL:      v.GetDuration("session_ttl"),
		SessionSweep:    v.GetDuration("session_sweep_interval"),
		LLMProvider:     normalizeProvider(v.GetString("llm_provider")),
		LLMModel:        strings.TrimSpace(v.GetString("gemini_model")),
		LLMTimeout:      v.GetDuration("llm_timeout"),
		APIKey:          apiKey,
		AnalyzeRate:     v.GetFloat64("analyze_rate"),
		AnalyzeBurst:    v.GetInt("analyze_burst"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		LogJSON:         v.GetBool("log_json"),
		LogDebug:        v.GetBool("log_debug"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "dev")
	v.SetDefault("cors_allow_origins", "http://localhost:5173")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("database_url", "")
	v.SetDefault("session_ttl", 2*time.Hour)
	v.SetDefault("session_sweep_interval", 10*time.Minute)
	v.SetDefault("llm_provider", "gemini")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("llm_timeout", 120*time.Second)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_api_key_file", "")
	v.SetDefault("analyze_rate", 0.2)
	v.SetDefault("analyze_burst", 3)
	v.SetDefault("shutdown_timeout", 15*time.Second)
	v.SetDefault("log_json", false)
	v.SetDefault("log_debug", false)
}

// loadAPIKey resolves the provider credential. A missing key is not fatal here:
// analysis calls fail with a configuration error instead.
func loadAPIKey(v *viper.Viper) (string, error) {
	src := secrets.Source{
		Name:  "gemini api key",
		Value: v.GetString("gemini_api_key"),
		File:  v.GetString("gemini_api_key_file"),
	}
	if strings.TrimSpace(src.Value) == "" && strings.TrimSpace(src.File) == "" {
		return "", nil
	}
	return secrets.Load(src)
}

// IsDevLike reports whether the environment tolerates degraded dependencies.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "gemini", "google":
		return "gemini"
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}
