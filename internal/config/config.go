package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Email    EmailConfig
	Password PasswordConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. Supports single, sentinel and
// cluster modes; single mode can use either Addr or the first entry of Addrs.
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
}

// JWTConfig holds access token settings.
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	AccessTokenMins int    `mapstructure:"access_token_mins"`
}

// AuthConfig holds refresh token settings.
type AuthConfig struct {
	RefreshTokenLifetimeHrs int `mapstructure:"refresh_token_lifetime_hrs"`
}

// OTPConfig holds one-time code settings.
type OTPConfig struct {
	TTLMins     int    `mapstructure:"ttl_mins"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	CodePepper  string `mapstructure:"code_pepper"`
}

// EmailConfig holds outbound email settings. Provider selects the sender
// implementation: "resend", "smtp" or "noop".
type EmailConfig struct {
	Provider     string `mapstructure:"provider"`
	From         string `mapstructure:"from"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

// PasswordConfig holds the password strength policy.
type PasswordConfig struct {
	MinLength int `mapstructure:"min_length"`
}

// OTPTTL returns the configured OTP lifetime.
func (o *OTPConfig) OTPTTL() time.Duration {
	if o.TTLMins <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(o.TTLMins) * time.Minute
}

// PostgresConnectionString builds the PostgreSQL DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from the optional file at configPath plus
// explicitly bound environment variables. Env vars win over the file.
func Load(configPath string) (*Config, error) {
	vip := viper.New()

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.readtimeout", "SERVER_READTIMEOUT")
	vip.BindEnv("server.writetimeout", "SERVER_WRITETIMEOUT")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.access_token_mins", "JWT_ACCESS_TOKEN_MINS")

	vip.BindEnv("auth.refresh_token_lifetime_hrs", "AUTH_REFRESH_TOKEN_LIFETIME_HRS")

	vip.BindEnv("otp.ttl_mins", "OTP_TTL_MINS")
	vip.BindEnv("otp.max_attempts", "OTP_MAX_ATTEMPTS")
	vip.BindEnv("otp.code_pepper", "OTP_CODE_PEPPER")

	vip.BindEnv("email.provider", "EMAIL_PROVIDER")
	vip.BindEnv("email.from", "EMAIL_FROM")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.smtp_host", "EMAIL_SMTP_HOST")
	vip.BindEnv("email.smtp_port", "EMAIL_SMTP_PORT")
	vip.BindEnv("email.smtp_user", "EMAIL_SMTP_USER")
	vip.BindEnv("email.smtp_password", "EMAIL_SMTP_PASSWORD")

	vip.BindEnv("password.min_length", "PASSWORD_MIN_LENGTH")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			// Missing file is fine because of the env bindings above.
			log.Printf("[Config] config file %s not read: %v (falling back to environment)", configPath, err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret (JWT_SECRET) is required")
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.JWT.AccessTokenMins <= 0 {
		cfg.JWT.AccessTokenMins = 15
	}
	if cfg.Auth.RefreshTokenLifetimeHrs <= 0 {
		cfg.Auth.RefreshTokenLifetimeHrs = 30 * 24
	}
	if cfg.OTP.TTLMins <= 0 {
		cfg.OTP.TTLMins = 5
	}
	if cfg.OTP.MaxAttempts <= 0 {
		cfg.OTP.MaxAttempts = 5
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "noop"
	}
	if cfg.Password.MinLength <= 0 {
		cfg.Password.MinLength = 8
	}
}
