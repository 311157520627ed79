// backend-go/internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Forecast ForecastConfig
	Quality  QualityConfig
	Risk     RiskConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	CalendarTTLSeconds int
	CalendarVersion    string
}

// StorageConfig points at the S3-compatible bucket holding synthetic patterns and result archives.
type StorageConfig struct {
	Enabled        bool
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	PatternPrefix  string
	ArchivePrefix  string
	PatternRefresh time.Duration // 0 disables reloading
}

type ForecastConfig struct {
	MinHorizonDays       int
	MaxHorizonDays       int
	PatternVariance      float64
	BaseConfidenceML     float64
	BaseConfidenceHybrid float64
	BaseConfidencePatt   float64
	FallbackPenalty      float64
	DegradedFestival     float64
	ProviderURL          string
	ProviderTimeout      time.Duration
	ProviderRPS          float64
	ProviderBurst        int
	CalendarTimeout      time.Duration
	StoreTimeout         time.Duration
	RetryAttempts        int
	RetryBackoff         time.Duration
	WorkerCount          int
	MaxItems             int
}

type QualityConfig struct {
	WindowDays        int
	MinCompleteness   float64
	MaxRecencyDays    int
	MaxVariationCoeff float64
}

type RiskConfig struct {
	MediumThreshold     float64
	HighThreshold       float64
	ExcessThreshold     float64
	ShelfLifeBufferDays int
	HoldingCostPerUnit  float64
	MaxHoldingDays      int
	DefaultLeadTimeDays int
	DefaultSafetyDays   int
	PackSize            float64
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Log: LogConfig{
				Level:  viper.GetString("LOG_LEVEL"),
				Format: viper.GetString("LOG_FORMAT"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				CalendarTTLSeconds: viper.GetInt("CACHE_CALENDAR_TTL_SECONDS"),
				CalendarVersion:    viper.GetString("CACHE_CALENDAR_VERSION"),
			},
			Storage: StorageConfig{
				Enabled:        viper.GetBool("STORAGE_ENABLED"),
				Endpoint:       viper.GetString("STORAGE_ENDPOINT"),
				AccessKey:      viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey:      viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:         viper.GetString("STORAGE_BUCKET"),
				Region:         viper.GetString("STORAGE_REGION"),
				UseSSL:         viper.GetBool("STORAGE_USE_SSL"),
				PatternPrefix:  viper.GetString("STORAGE_PATTERN_PREFIX"),
				ArchivePrefix:  viper.GetString("STORAGE_ARCHIVE_PREFIX"),
				PatternRefresh: viper.GetDuration("STORAGE_PATTERN_REFRESH"),
			},
			Forecast: ForecastConfig{
				MinHorizonDays:       viper.GetInt("FORECAST_MIN_HORIZON_DAYS"),
				MaxHorizonDays:       viper.GetInt("FORECAST_MAX_HORIZON_DAYS"),
				PatternVariance:      viper.GetFloat64("FORECAST_PATTERN_VARIANCE"),
				BaseConfidenceML:     viper.GetFloat64("FORECAST_BASE_CONFIDENCE_ML"),
				BaseConfidenceHybrid: viper.GetFloat64("FORECAST_BASE_CONFIDENCE_HYBRID"),
				BaseConfidencePatt:   viper.GetFloat64("FORECAST_BASE_CONFIDENCE_PATTERN"),
				FallbackPenalty:      viper.GetFloat64("FORECAST_FALLBACK_PENALTY"),
				DegradedFestival:     viper.GetFloat64("FORECAST_DEGRADED_FESTIVAL_FACTOR"),
				ProviderURL:          viper.GetString("FORECAST_PROVIDER_URL"),
				ProviderTimeout:      viper.GetDuration("FORECAST_PROVIDER_TIMEOUT"),
				ProviderRPS:          viper.GetFloat64("FORECAST_PROVIDER_RPS"),
				ProviderBurst:        viper.GetInt("FORECAST_PROVIDER_BURST"),
				CalendarTimeout:      viper.GetDuration("FORECAST_CALENDAR_TIMEOUT"),
				StoreTimeout:         viper.GetDuration("FORECAST_STORE_TIMEOUT"),
				RetryAttempts:        viper.GetInt("FORECAST_RETRY_ATTEMPTS"),
				RetryBackoff:         viper.GetDuration("FORECAST_RETRY_BACKOFF"),
				WorkerCount:          viper.GetInt("FORECAST_WORKER_COUNT"),
				MaxItems:             viper.GetInt("FORECAST_MAX_ITEMS"),
			},
			Quality: QualityConfig{
				WindowDays:        viper.GetInt("QUALITY_WINDOW_DAYS"),
				MinCompleteness:   viper.GetFloat64("QUALITY_MIN_COMPLETENESS"),
				MaxRecencyDays:    viper.GetInt("QUALITY_MAX_RECENCY_DAYS"),
				MaxVariationCoeff: viper.GetFloat64("QUALITY_MAX_VARIATION_COEFF"),
			},
			Risk: RiskConfig{
				MediumThreshold:     viper.GetFloat64("RISK_MEDIUM_THRESHOLD"),
				HighThreshold:       viper.GetFloat64("RISK_HIGH_THRESHOLD"),
				ExcessThreshold:     viper.GetFloat64("RISK_EXCESS_THRESHOLD"),
				ShelfLifeBufferDays: viper.GetInt("RISK_SHELF_LIFE_BUFFER_DAYS"),
				HoldingCostPerUnit:  viper.GetFloat64("RISK_HOLDING_COST_PER_UNIT_DAY"),
				MaxHoldingDays:      viper.GetInt("RISK_MAX_HOLDING_DAYS"),
				DefaultLeadTimeDays: viper.GetInt("RISK_DEFAULT_LEAD_TIME_DAYS"),
				DefaultSafetyDays:   viper.GetInt("RISK_DEFAULT_SAFETY_STOCK_DAYS"),
				PackSize:            viper.GetFloat64("RISK_PACK_SIZE"),
			},
		}
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "vyaparsaathi")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_CALENDAR_TTL_SECONDS", 3600)
	viper.SetDefault("CACHE_CALENDAR_VERSION", "v1")

	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PATTERN_PREFIX", "patterns")
	viper.SetDefault("STORAGE_ARCHIVE_PREFIX", "results")
	viper.SetDefault("STORAGE_PATTERN_REFRESH", "15m")

	viper.SetDefault("FORECAST_MIN_HORIZON_DAYS", 7)
	viper.SetDefault("FORECAST_MAX_HORIZON_DAYS", 14)
	viper.SetDefault("FORECAST_PATTERN_VARIANCE", 0.2)
	viper.SetDefault("FORECAST_BASE_CONFIDENCE_ML", 0.85)
	viper.SetDefault("FORECAST_BASE_CONFIDENCE_HYBRID", 0.75)
	viper.SetDefault("FORECAST_BASE_CONFIDENCE_PATTERN", 0.65)
	viper.SetDefault("FORECAST_FALLBACK_PENALTY", 0.8)
	viper.SetDefault("FORECAST_DEGRADED_FESTIVAL_FACTOR", 0.9)
	viper.SetDefault("FORECAST_PROVIDER_URL", "")
	viper.SetDefault("FORECAST_PROVIDER_TIMEOUT", "5s")
	viper.SetDefault("FORECAST_PROVIDER_RPS", 20)
	viper.SetDefault("FORECAST_PROVIDER_BURST", 5)
	viper.SetDefault("FORECAST_CALENDAR_TIMEOUT", "2s")
	viper.SetDefault("FORECAST_STORE_TIMEOUT", "3s")
	viper.SetDefault("FORECAST_RETRY_ATTEMPTS", 3)
	viper.SetDefault("FORECAST_RETRY_BACKOFF", "200ms")
	viper.SetDefault("FORECAST_WORKER_COUNT", 4)
	viper.SetDefault("FORECAST_MAX_ITEMS", 500)

	viper.SetDefault("QUALITY_WINDOW_DAYS", 90)
	viper.SetDefault("QUALITY_MIN_COMPLETENESS", 0.5)
	viper.SetDefault("QUALITY_MAX_RECENCY_DAYS", 14)
	viper.SetDefault("QUALITY_MAX_VARIATION_COEFF", 1.5)

	viper.SetDefault("RISK_MEDIUM_THRESHOLD", 0.30)
	viper.SetDefault("RISK_HIGH_THRESHOLD", 0.60)
	viper.SetDefault("RISK_EXCESS_THRESHOLD", 0.20)
	viper.SetDefault("RISK_SHELF_LIFE_BUFFER_DAYS", 7)
	viper.SetDefault("RISK_HOLDING_COST_PER_UNIT_DAY", 0.05)
	viper.SetDefault("RISK_MAX_HOLDING_DAYS", 90)
	viper.SetDefault("RISK_DEFAULT_LEAD_TIME_DAYS", 7)
	viper.SetDefault("RISK_DEFAULT_SAFETY_STOCK_DAYS", 3)
	viper.SetDefault("RISK_PACK_SIZE", 1)
}
