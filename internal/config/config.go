package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	JWTRefreshSecret       string
	NATSUrl                string
	EventSubjectPrefix     string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	CORSAllowOrigins       string
	StatsCacheTTL          time.Duration
	AutoSaveInterval       time.Duration
	GatewayTimeout         time.Duration
	SessionIdleTTL         time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("KELAS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Kelas Admin API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("events.subject_prefix", "kelas.grading")
	v.SetDefault("cloudinary.folder", "kelas/exports")
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("grading.autosave_interval", "30s")
	v.SetDefault("grading.gateway_timeout", "10s")
	v.SetDefault("grading.session_idle_ttl", "2h")

	statsTTL, err := parseDuration(v, "stats.cache_ttl", "invalid stats cache ttl")
	if err != nil {
		return Config{}, err
	}
	autoSave, err := parseDuration(v, "grading.autosave_interval", "invalid autosave interval")
	if err != nil {
		return Config{}, err
	}
	gatewayTimeout, err := parseDuration(v, "grading.gateway_timeout", "invalid gateway timeout")
	if err != nil {
		return Config{}, err
	}
	idleTTL, err := parseDuration(v, "grading.session_idle_ttl", "invalid session idle ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		NATSUrl:                v.GetString("nats.url"),
		EventSubjectPrefix:     v.GetString("events.subject_prefix"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		StatsCacheTTL:          statsTTL,
		AutoSaveInterval:       autoSave,
		GatewayTimeout:         gatewayTimeout,
		SessionIdleTTL:         idleTTL,
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, message string) (time.Duration, error) {
	raw := v.GetString(key)
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", message, err)
	}
	return parsed, nil
}
