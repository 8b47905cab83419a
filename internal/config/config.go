package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	History      HistoryConfig
	Troubleshoot TroubleshootConfig
	Directory    DirectoryConfig
	AWS          AWSConfig
	LLM          LLMConfig
	REST         RESTConfig
	Files        FilesConfig
	JWT          JWTConfig
	MQTT         MQTTConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type HistoryConfig struct {
	Driver         string // sqlite or postgres
	SQLitePath     string
	MaxMessages    int
	DefaultSession string
}

type TroubleshootConfig struct {
	DefaultStreamID    string
	ThresholdMinutes   int
	FreshnessTable     string
	MaxConcurrency     int
	FleetCheckInterval time.Duration
}

type DirectoryConfig struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
}

type AWSConfig struct {
	Region string
}

// LLMEndpoint is one entry of the completion fallback chain.
type LLMEndpoint struct {
	URL   string
	Model string
}

type LLMConfig struct {
	Endpoints []LLMEndpoint
	APIKey    string
}

type RESTConfig struct {
	Token   string
	Timeout time.Duration
}

type FilesConfig struct {
	BaseDir string
}

type JWTConfig struct {
	Secret string
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	ReportTopic string
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("HISTORY_DRIVER", "sqlite")
	v.SetDefault("HISTORY_SQLITE_PATH", "chat_history.db")
	v.SetDefault("HISTORY_MAX_MESSAGES", 50)
	v.SetDefault("HISTORY_DEFAULT_SESSION", "main_session")

	v.SetDefault("RECENT_EVENT_THRESHOLD_MINUTES", 15)
	v.SetDefault("FRESHNESS_TABLE", "last_event_tracking_per_device")
	v.SetDefault("TROUBLESHOOT_MAX_CONCURRENCY", 8)
	v.SetDefault("FLEET_CHECK_INTERVAL", "0s")

	v.SetDefault("DIRECTORY_BASE_URL", "https://us.manage.security.cisco.com/api/rest/v1")
	v.SetDefault("DIRECTORY_TIMEOUT", "30s")
	v.SetDefault("AWS_REGION", "us-east-2")
	v.SetDefault("REST_API_TIMEOUT", "30s")
	v.SetDefault("FILE_BASE_DIR", ".")

	v.SetDefault("MQTT_CLIENT_ID", "intent-orchestrator")
	v.SetDefault("MQTT_REPORT_TOPIC", "orchestrator/fleet-health")

	v.SetDefault("RATE_LIMIT_GENERAL_RPS", 10)
	v.SetDefault("RATE_LIMIT_GENERAL_BURST", 20)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,DELETE,OPTIONS")
	v.SetDefault("CORS_ALLOWED_HEADERS", "Origin,Content-Type,Authorization,X-Request-ID")
	v.SetDefault("CORS_EXPOSED_HEADERS", "X-Request-ID")
	v.SetDefault("CORS_MAX_AGE", 43200)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(homeDir)
	}
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	endpoints, err := parseLLMEndpoints(v.GetString("LLM_ENDPOINTS"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Host:        v.GetString("SERVER_HOST"),
			Environment: v.GetString("ENVIRONMENT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		History: HistoryConfig{
			Driver:         strings.ToLower(v.GetString("HISTORY_DRIVER")),
			SQLitePath:     v.GetString("HISTORY_SQLITE_PATH"),
			MaxMessages:    v.GetInt("HISTORY_MAX_MESSAGES"),
			DefaultSession: v.GetString("HISTORY_DEFAULT_SESSION"),
		},
		Troubleshoot: TroubleshootConfig{
			DefaultStreamID:    v.GetString("DEFAULT_STREAM_ID"),
			ThresholdMinutes:   v.GetInt("RECENT_EVENT_THRESHOLD_MINUTES"),
			FreshnessTable:     v.GetString("FRESHNESS_TABLE"),
			MaxConcurrency:     v.GetInt("TROUBLESHOOT_MAX_CONCURRENCY"),
			FleetCheckInterval: v.GetDuration("FLEET_CHECK_INTERVAL"),
		},
		Directory: DirectoryConfig{
			BaseURL:     v.GetString("DIRECTORY_BASE_URL"),
			BearerToken: v.GetString("DIRECTORY_BEARER_TOKEN"),
			Timeout:     v.GetDuration("DIRECTORY_TIMEOUT"),
		},
		AWS: AWSConfig{
			Region: v.GetString("AWS_REGION"),
		},
		LLM: LLMConfig{
			Endpoints: endpoints,
			APIKey:    v.GetString("LLM_API_KEY"),
		},
		REST: RESTConfig{
			Token:   v.GetString("REST_API_TOKEN"),
			Timeout: v.GetDuration("REST_API_TIMEOUT"),
		},
		Files: FilesConfig{
			BaseDir: v.GetString("FILE_BASE_DIR"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		MQTT: MQTTConfig{
			Broker:      v.GetString("MQTT_BROKER"),
			ClientID:    v.GetString("MQTT_CLIENT_ID"),
			Username:    v.GetString("MQTT_USERNAME"),
			Password:    v.GetString("MQTT_PASSWORD"),
			ReportTopic: v.GetString("MQTT_REPORT_TOPIC"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   v.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: v.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods:   splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders:   splitList(v.GetString("CORS_ALLOWED_HEADERS")),
			ExposedHeaders:   splitList(v.GetString("CORS_EXPOSED_HEADERS")),
			AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           v.GetInt("CORS_MAX_AGE"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects values that would make a component misbehave silently.
func (c *Config) Validate() error {
	if c.Troubleshoot.ThresholdMinutes < 0 {
		return fmt.Errorf("RECENT_EVENT_THRESHOLD_MINUTES must not be negative, got %d", c.Troubleshoot.ThresholdMinutes)
	}
	if c.Troubleshoot.MaxConcurrency < 1 {
		return fmt.Errorf("TROUBLESHOOT_MAX_CONCURRENCY must be at least 1, got %d", c.Troubleshoot.MaxConcurrency)
	}
	if c.History.MaxMessages < 1 {
		return fmt.Errorf("HISTORY_MAX_MESSAGES must be at least 1, got %d", c.History.MaxMessages)
	}
	switch c.History.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("HISTORY_DRIVER must be sqlite or postgres, got %q", c.History.Driver)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// parseLLMEndpoints reads "url|model,url|model". A missing model falls back to
// the previous entry's model so a single model can be shared by mirrors.
func parseLLMEndpoints(raw string) ([]LLMEndpoint, error) {
	var endpoints []LLMEndpoint
	model := ""
	for _, item := range splitList(raw) {
		url, m, _ := strings.Cut(item, "|")
		url = strings.TrimSpace(url)
		if url == "" {
			return nil, fmt.Errorf("LLM_ENDPOINTS entry %q has no URL", item)
		}
		if m = strings.TrimSpace(m); m != "" {
			model = m
		}
		if model == "" {
			return nil, fmt.Errorf("LLM_ENDPOINTS entry %q has no model", item)
		}
		endpoints = append(endpoints, LLMEndpoint{URL: url, Model: model})
	}
	return endpoints, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
