// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Supported values for DB_DRIVER.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes int    `mapstructure:"JWT_TTL_MINUTES"`

	KakaoRESTAPIKey     string `mapstructure:"KAKAO_REST_API_KEY"`
	KakaoClientSecret   string `mapstructure:"KAKAO_CLIENT_SECRET"`
	KakaoRedirectURI    string `mapstructure:"KAKAO_REDIRECT_URI"`
	KakaoAuthURL        string `mapstructure:"KAKAO_AUTH_URL"`
	KakaoTokenURL       string `mapstructure:"KAKAO_TOKEN_URL"`
	KakaoProfileURL     string `mapstructure:"KAKAO_PROFILE_URL"`
	KakaoTimeoutSeconds int    `mapstructure:"KAKAO_TIMEOUT_SECONDS"`

	UploadDir         string  `mapstructure:"UPLOAD_DIR"`
	UploadURLPrefix   string  `mapstructure:"UPLOAD_URL_PREFIX"`
	UploadMaxSizeMB   int     `mapstructure:"UPLOAD_MAX_SIZE_MB"`
	AllowedOrigins    string  `mapstructure:"ALLOWED_ORIGINS"`
	TracingEnabled    bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter   string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint      string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRate float64 `mapstructure:"TRACING_SAMPLE_RATE"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("APP_ENV", "development")

	viper.SetDefault("DB_DRIVER", DriverMySQL)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_USER", "root")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "lookup_db")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	viper.SetDefault("REDIS_URL", "")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_TTL_MINUTES", 60)

	viper.SetDefault("KAKAO_REST_API_KEY", "")
	viper.SetDefault("KAKAO_CLIENT_SECRET", "")
	viper.SetDefault("KAKAO_REDIRECT_URI", "http://localhost:3000/auth/kakao/callback")
	viper.SetDefault("KAKAO_AUTH_URL", "https://kauth.kakao.com/oauth/authorize")
	viper.SetDefault("KAKAO_TOKEN_URL", "https://kauth.kakao.com/oauth/token")
	viper.SetDefault("KAKAO_PROFILE_URL", "https://kapi.kakao.com/v2/user/me")
	viper.SetDefault("KAKAO_TIMEOUT_SECONDS", 10)

	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("UPLOAD_URL_PREFIX", "/uploads")
	viper.SetDefault("UPLOAD_MAX_SIZE_MB", 20)
	viper.SetDefault("ALLOWED_ORIGINS", "*")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATE", 1.0)
}

func (c *Config) normalize() {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.UploadURLPrefix != "" && !strings.HasPrefix(c.UploadURLPrefix, "/") {
		c.UploadURLPrefix = "/" + c.UploadURLPrefix
	}
	c.UploadURLPrefix = strings.TrimRight(c.UploadURLPrefix, "/")
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// JWTTTL returns the bearer token lifetime.
func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// KakaoTimeout bounds every call to the Kakao endpoints.
func (c *Config) KakaoTimeout() time.Duration {
	if c.KakaoTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.KakaoTimeoutSeconds) * time.Second
}

// UploadMaxSizeBytes returns the multipart body limit.
func (c *Config) UploadMaxSizeBytes() int {
	if c.UploadMaxSizeMB <= 0 {
		return 20 * 1024 * 1024
	}
	return c.UploadMaxSizeMB * 1024 * 1024
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBMaxOpenConns < 0 {
		return errors.New("DB_MAX_OPEN_CONNS must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver != DriverSQLite && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.KakaoRESTAPIKey == "" {
			return errors.New("KAKAO_REST_API_KEY is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
