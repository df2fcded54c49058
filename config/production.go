// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/smm-panel/utils"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database     DatabaseConfig     `json:"database"`
	Server       ServerConfig       `json:"server"`
	Security     SecurityConfig     `json:"security"`
	JWT          JWTConfig          `json:"jwt"`
	Email        EmailConfig        `json:"email"`
	Logging      LoggingConfig      `json:"logging"`
	Metrics      MetricsConfig      `json:"metrics"`
	Cache        CacheConfig        `json:"cache"`
	Deployment   DeploymentConfig   `json:"deployment"`
	Admin        AdminConfig        `json:"admin"`
	Deposit      DepositConfig      `json:"deposit"`
	Cryptomus    CryptomusConfig    `json:"cryptomus"`
	ExchangeRate ExchangeRateConfig `json:"exchange_rate"`
	SMMProvider  ProviderConfig     `json:"smm_provider"`
	SMSProvider  ProviderConfig     `json:"sms_provider"`
	Scheduler    SchedulerConfig    `json:"scheduler"`
	Referral     ReferralConfig     `json:"referral"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN renders a libpq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	TrustedProxies  []string      `json:"trusted_proxies"`
	ProxyHeader     string        `json:"proxy_header"`
}

type SecurityConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// requests per window
	AuthRateLimit   int           `json:"auth_rate_limit"`
	GlobalRateLimit int           `json:"global_rate_limit"`
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	BcryptCost int `json:"bcrypt_cost"`
}

type JWTConfig struct {
	SecretKey       string        `json:"secret_key"`
	PrivateKey      string        `json:"private_key"`
	PublicKey       string        `json:"public_key"`
	UseRSAKeys      bool          `json:"use_rsa_keys"`
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
	Issuer          string        `json:"issuer"`
	Audience        string        `json:"audience"`
}

type EmailConfig struct {
	// "smtp" or "log"
	Provider  string        `json:"provider"`
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	FromEmail string        `json:"from_email"`
	Timeout   time.Duration `json:"timeout"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, console
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool   `json:"enabled"`
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`
}

type DeploymentConfig struct {
	Domain      string `json:"domain"`
	APIDomain   string `json:"api_domain"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

type AdminConfig struct {
	Email string `json:"email"`
}

type DepositConfig struct {
	MinBankAmountNGN decimal.Decimal `json:"min_bank_amount_ngn"`
	MinCryptoUSD     decimal.Decimal `json:"min_crypto_usd"`
	MinCryptoNGN     decimal.Decimal `json:"min_crypto_ngn"`
	MaxProofSize     int             `json:"max_proof_size"`
}

type CryptomusConfig struct {
	Enabled         bool          `json:"enabled"`
	BaseURL         string        `json:"base_url"`
	MerchantID      string        `json:"merchant_id"`
	APIKey          string        `json:"-"`
	CallbackURL     string        `json:"callback_url"`
	ReturnURL       string        `json:"return_url"`
	PaymentLifetime time.Duration `json:"payment_lifetime"`
	WebhookIPs      []string      `json:"webhook_ips"`
	Timeout         time.Duration `json:"timeout"`
}

type ExchangeRateConfig struct {
	BaseURL  string        `json:"base_url"`
	TTL      time.Duration `json:"ttl"`
	MaxStale time.Duration `json:"max_stale"`
	Timeout  time.Duration `json:"timeout"`
}

// ProviderConfig describes one order provider. Prices quoted in Currency are
// converted to the user's currency and multiplied by PriceMultiplier.
type ProviderConfig struct {
	BaseURL         string          `json:"base_url"`
	APIKey          string          `json:"-"`
	Timeout         time.Duration   `json:"timeout"`
	Currency        string          `json:"currency"`
	PriceMultiplier decimal.Decimal `json:"price_multiplier"`
}

type SchedulerConfig struct {
	Enabled      bool          `json:"enabled"`
	SMSInterval  time.Duration `json:"sms_interval"`
	SMMInterval  time.Duration `json:"smm_interval"`
	SMMBatchSize int           `json:"smm_batch_size"`
	LockTTL      time.Duration `json:"lock_ttl"`
}

type ReferralConfig struct {
	MinWithdrawal decimal.Decimal `json:"min_withdrawal"`
}

// LoadProductionConfig loads and validates configuration from environment
// variables, after reading envFile when it exists.
func LoadProductionConfig(envFile string) (*ProductionConfig, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "smm_panel"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 6*1024*1024),
			TrustedProxies:  getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			AuthRateLimit:    getEnvInt("AUTH_RATE_LIMIT", 20),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 1000),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			BcryptCost:       getEnvInt("BCRYPT_COST", 12),
		},
		JWT: JWTConfig{
			SecretKey:       getEnvString("JWT_SECRET_KEY", ""),
			PrivateKey:      getEnvString("JWT_PRIVATE_KEY", ""),
			PublicKey:       getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:      getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TOKEN_TTL", utils.AccessTokenTTL),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TOKEN_TTL", utils.RefreshTokenTTL),
			Issuer:          getEnvString("JWT_ISSUER", "smm-panel"),
			Audience:        getEnvString("JWT_AUDIENCE", "smm-panel-api"),
		},
		Email: EmailConfig{
			Provider:  getEnvString("EMAIL_PROVIDER", "log"),
			Host:      getEnvString("EMAIL_HOST", ""),
			Port:      getEnvInt("EMAIL_PORT", 587),
			Username:  getEnvString("EMAIL_USERNAME", ""),
			Password:  getEnvString("EMAIL_PASSWORD", ""),
			FromEmail: getEnvString("EMAIL_FROM_EMAIL", "noreply@localhost"),
			Timeout:   getEnvDuration("EMAIL_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "json"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/smm-panel/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", false),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "smm:"),
		},
		Deployment: DeploymentConfig{
			Domain:      getEnvString("DOMAIN", "localhost"),
			APIDomain:   getEnvString("API_DOMAIN", "localhost:8080"),
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "dev"),
		},
		Admin: AdminConfig{
			Email: getEnvString("ADMIN_EMAIL", ""),
		},
		Deposit: DepositConfig{
			MinBankAmountNGN: getEnvDecimal("DEPOSIT_MIN_BANK_NGN", decimal.NewFromInt(500)),
			MinCryptoUSD:     getEnvDecimal("DEPOSIT_MIN_CRYPTO_USD", decimal.NewFromInt(3)),
			MinCryptoNGN:     getEnvDecimal("DEPOSIT_MIN_CRYPTO_NGN", decimal.NewFromInt(1500)),
			MaxProofSize:     getEnvInt("DEPOSIT_MAX_PROOF_SIZE", 5*1024*1024),
		},
		Cryptomus: CryptomusConfig{
			Enabled:         getEnvBool("CRYPTOMUS_ENABLED", false),
			BaseURL:         getEnvString("CRYPTOMUS_BASE_URL", "https://api.cryptomus.com"),
			MerchantID:      getEnvString("CRYPTOMUS_MERCHANT_ID", ""),
			APIKey:          getEnvString("CRYPTOMUS_API_KEY", ""),
			CallbackURL:     getEnvString("CRYPTOMUS_CALLBACK_URL", ""),
			ReturnURL:       getEnvString("CRYPTOMUS_RETURN_URL", ""),
			PaymentLifetime: getEnvDuration("CRYPTOMUS_PAYMENT_LIFETIME", time.Hour),
			WebhookIPs:      getEnvStringSlice("CRYPTOMUS_WEBHOOK_IPS", []string{}),
			Timeout:         getEnvDuration("CRYPTOMUS_TIMEOUT", 10*time.Second),
		},
		ExchangeRate: ExchangeRateConfig{
			BaseURL:  getEnvString("EXCHANGE_RATE_BASE_URL", "https://open.er-api.com/v6"),
			TTL:      getEnvDuration("EXCHANGE_RATE_TTL", time.Hour),
			MaxStale: getEnvDuration("EXCHANGE_RATE_MAX_STALE", 24*time.Hour),
			Timeout:  getEnvDuration("EXCHANGE_RATE_TIMEOUT", 10*time.Second),
		},
		SMMProvider: ProviderConfig{
			BaseURL:         getEnvString("SMM_API_URL", "https://wksmm.com/api/v2"),
			APIKey:          getEnvString("SMM_API_KEY", ""),
			Timeout:         getEnvDuration("SMM_TIMEOUT", 10*time.Second),
			Currency:        getEnvString("SMM_CURRENCY", "USD"),
			PriceMultiplier: getEnvDecimal("SMM_PRICE_MULTIPLIER", decimal.NewFromInt(1)),
		},
		SMSProvider: ProviderConfig{
			BaseURL:         getEnvString("SMS_API_URL", "https://api.smspool.net"),
			APIKey:          getEnvString("SMS_API_KEY", ""),
			Timeout:         getEnvDuration("SMS_TIMEOUT", 10*time.Second),
			Currency:        getEnvString("SMS_CURRENCY", "USD"),
			PriceMultiplier: getEnvDecimal("SMS_PRICE_MULTIPLIER", decimal.NewFromInt(1)),
		},
		Scheduler: SchedulerConfig{
			Enabled:      getEnvBool("SCHEDULER_ENABLED", true),
			SMSInterval:  getEnvDuration("SCHEDULER_SMS_INTERVAL", 90*time.Second),
			SMMInterval:  getEnvDuration("SCHEDULER_SMM_INTERVAL", 2*time.Minute),
			SMMBatchSize: getEnvInt("SCHEDULER_SMM_BATCH_SIZE", 100),
			LockTTL:      getEnvDuration("SCHEDULER_LOCK_TTL", time.Minute),
		},
		Referral: ReferralConfig{
			MinWithdrawal: getEnvDecimal("REFERRAL_MIN_WITHDRAWAL", decimal.NewFromInt(1000)),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads variables from envFile without overriding the environment
func loadEnvFile(envFile string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(envFile)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var problems []string

	if cfg.Database.Host == "" {
		problems = append(problems, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		problems = append(problems, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		problems = append(problems, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		problems = append(problems, "DB_PASSWORD is required")
	}

	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PrivateKey == "" || cfg.JWT.PublicKey == "" {
			problems = append(problems, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when JWT_USE_RSA_KEYS is set")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		problems = append(problems, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		problems = append(problems, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.RefreshTokenTTL <= 0 {
		problems = append(problems, "JWT_REFRESH_TOKEN_TTL must be positive")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		problems = append(problems, "SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Security.BcryptCost < 10 || cfg.Security.BcryptCost > 14 {
		problems = append(problems, "BCRYPT_COST must be between 10 and 14")
	}

	if cfg.Email.Provider == "smtp" {
		if cfg.Email.Host == "" {
			problems = append(problems, "EMAIL_HOST is required for the smtp provider")
		}
		if cfg.Email.FromEmail == "" {
			problems = append(problems, "EMAIL_FROM_EMAIL is required for the smtp provider")
		}
	} else if cfg.Email.Provider != "log" {
		problems = append(problems, "EMAIL_PROVIDER must be smtp or log")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Logging.Level) {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if !slices.Contains([]string{"stdout", "file", "both"}, cfg.Logging.Output) {
		problems = append(problems, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		problems = append(problems, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if !cfg.Deposit.MinBankAmountNGN.IsPositive() {
		problems = append(problems, "DEPOSIT_MIN_BANK_NGN must be positive")
	}
	if cfg.Deposit.MaxProofSize <= 0 {
		problems = append(problems, "DEPOSIT_MAX_PROOF_SIZE must be positive")
	}

	if cfg.Cryptomus.Enabled {
		if cfg.Cryptomus.MerchantID == "" {
			problems = append(problems, "CRYPTOMUS_MERCHANT_ID is required when crypto is enabled")
		}
		if cfg.Cryptomus.APIKey == "" {
			problems = append(problems, "CRYPTOMUS_API_KEY is required when crypto is enabled")
		}
		if len(cfg.Cryptomus.WebhookIPs) == 0 {
			problems = append(problems, "CRYPTOMUS_WEBHOOK_IPS must list at least one address when crypto is enabled")
		}
	}

	if cfg.Scheduler.Enabled {
		if cfg.SMMProvider.APIKey == "" {
			problems = append(problems, "SMM_API_KEY is required when the scheduler is enabled")
		}
		if cfg.SMSProvider.APIKey == "" {
			problems = append(problems, "SMS_API_KEY is required when the scheduler is enabled")
		}
		if cfg.Scheduler.SMSInterval <= 0 || cfg.Scheduler.SMMInterval <= 0 {
			problems = append(problems, "scheduler intervals must be positive")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}

	return nil
}
