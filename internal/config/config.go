package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Storage       StorageConfig       `yaml:"storage"`
	Mail          MailConfig          `yaml:"mail"`
	Auth          AuthConfig          `yaml:"auth"`
	Upload        UploadConfig        `yaml:"upload"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DatabaseConfig selects the SQL driver. "sqlite" uses Path, "mysql" uses
// the host/port/user fields.
type DatabaseConfig struct {
	Driver             string        `yaml:"driver"`
	Path               string        `yaml:"path"`
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type StorageConfig struct {
	Driver string      `yaml:"driver"` // local|s3
	Local  LocalConfig `yaml:"local"`
	S3     S3Config    `yaml:"s3"`
}

type LocalConfig struct {
	Dir string `yaml:"dir"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type MailConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	TLS             string        `yaml:"tls"` // mandatory|opportunistic|none
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	FromName        string        `yaml:"from_name"`
	Timeout         time.Duration `yaml:"timeout"`
	CredentialsFile string        `yaml:"credentials_file"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	CookieName    string        `yaml:"cookie_name"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
	DefaultAdmin  DefaultAdmin  `yaml:"default_admin"`
	LoginAttempts LoginLimit    `yaml:"login_attempts"`
}

type DefaultAdmin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
}

// LoginLimit is a token bucket: Burst attempts, refilled at PerMinute.
type LoginLimit struct {
	Burst     int     `yaml:"burst"`
	PerMinute float64 `yaml:"per_minute"`
}

type UploadConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ObservabilityConfig struct {
	SentryDSN string `yaml:"sentry_dsn"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	return LoadFile(configPath)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.loadMailCredentials(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	setString(&c.App.Name, "student-result-system")
	setString(&c.App.Version, "dev")
	setString(&c.App.Env, "development")

	setInt(&c.Server.Port, 5000)
	setDuration(&c.Server.ReadTimeout, 30*time.Second)
	// Dispatch is sequential, so a large batch needs a generous write timeout.
	setDuration(&c.Server.WriteTimeout, 10*time.Minute)
	setDuration(&c.Server.ShutdownTimeout, 15*time.Second)

	setString(&c.Database.Driver, "sqlite")
	setString(&c.Database.Path, "student_results.db")
	setString(&c.Database.Charset, "utf8mb4")
	setString(&c.Database.Loc, "UTC")
	setInt(&c.Database.MaxConnections, 10)
	setInt(&c.Database.MaxIdleConnections, 5)
	setDuration(&c.Database.ConnectionLifetime, time.Hour)

	setString(&c.Redis.Host, "localhost")
	setInt(&c.Redis.Port, 6379)
	setInt(&c.Redis.PoolSize, 10)

	setString(&c.Storage.Driver, "local")
	setString(&c.Storage.Local.Dir, "uploads")

	setString(&c.Mail.Host, "smtp.gmail.com")
	setInt(&c.Mail.Port, 587)
	setString(&c.Mail.TLS, "mandatory")
	setString(&c.Mail.FromName, "Academic Department")
	setDuration(&c.Mail.Timeout, 30*time.Second)
	setString(&c.Mail.CredentialsFile, ".env")
	if c.Mail.Breaker.ConsecutiveFailures == 0 {
		c.Mail.Breaker.ConsecutiveFailures = 5
	}
	setDuration(&c.Mail.Breaker.OpenTimeout, time.Minute)

	setString(&c.Auth.JWTSecret, "change-me-in-production")
	setDuration(&c.Auth.SessionTTL, 24*time.Hour)
	setString(&c.Auth.CookieName, "session")
	setInt(&c.Auth.BcryptCost, 10)
	setString(&c.Auth.DefaultAdmin.Username, "admin")
	setString(&c.Auth.DefaultAdmin.Password, "admin123")
	setString(&c.Auth.DefaultAdmin.Email, "admin@school.com")
	setString(&c.Auth.DefaultAdmin.FullName, "Administrator")
	setInt(&c.Auth.LoginAttempts.Burst, 5)
	if c.Auth.LoginAttempts.PerMinute == 0 {
		c.Auth.LoginAttempts.PerMinute = 1
	}

	if c.Upload.MaxSizeBytes == 0 {
		c.Upload.MaxSizeBytes = 16 << 20
	}

	setString(&c.Logging.Level, "info")
	setString(&c.Logging.Format, "json")
}

// loadMailCredentials overlays MAIL_USERNAME / MAIL_PASSWORD from the
// credentials file (and then the process environment) onto the YAML values.
func (c *Config) loadMailCredentials() error {
	env, err := godotenv.Read(c.Mail.CredentialsFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read mail credentials file: %w", err)
	}
	if v := env["MAIL_USERNAME"]; v != "" {
		c.Mail.Username = v
	}
	if v := env["MAIL_PASSWORD"]; v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv("MAIL_USERNAME"); v != "" {
		c.Mail.Username = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		c.Mail.Password = v
	}
	return nil
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
