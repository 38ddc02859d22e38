package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は設定を上書きする環境変数の接頭辞です。
const EnvPrefix = "EM_"

const (
	defaultTokenTTL         = 24 * time.Hour
	defaultBcryptCost       = 12
	defaultIssuer           = "EmployeeManagement"
	defaultLoginMaxAttempts = 5
	defaultLoginWindow      = 10 * time.Minute
	defaultKafkaTopic       = "employee-events"
	minJWTSecretLength      = 32
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig は HTTP / gRPC サーバーに関する設定です。
type ServerConfig struct {
	HTTPListenAddr     string        `yaml:"http_listen_addr" env:"SERVER_HTTP_LISTEN_ADDR"`
	GRPCListenAddr     string        `yaml:"grpc_listen_addr" env:"SERVER_GRPC_LISTEN_ADDR"`
	AllowedOrigins     []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"DB_HOST"`
	Port               int           `yaml:"port" env:"DB_PORT"`
	User               string        `yaml:"user" env:"DB_USER"`
	Password           string        `yaml:"password" env:"DB_PASSWORD"`
	Name               string        `yaml:"name" env:"DB_NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME"`
}

// AuthConfig はトークン発行とログイン試行制限の設定です。
type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer           string        `yaml:"issuer" env:"AUTH_ISSUER"`
	Audience         string        `yaml:"audience" env:"AUTH_AUDIENCE"`
	TokenTTL         time.Duration `yaml:"-"`
	TokenTTLRaw      string        `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
	BcryptCost       int           `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST"`
	LoginMaxAttempts int           `yaml:"login_max_attempts" env:"AUTH_LOGIN_MAX_ATTEMPTS"`
	LoginWindow      time.Duration `yaml:"-"`
	LoginWindowRaw   string        `yaml:"login_window" env:"AUTH_LOGIN_WINDOW"`
}

// RedisConfig は Redis 接続の設定です。Addr が空の場合は試行制限とトークン失効を無効にします。
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// Enabled は Redis を利用するかを返します。
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// KafkaConfig はイベント送信の設定です。Brokers が空の場合は送信しません。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

// Enabled は Kafka へイベントを送信するかを返します。
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
// 作業ディレクトリに .env があれば先に読み込みます。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	return parse(b, env.Options{Prefix: EnvPrefix})
}

func parse(b []byte, opts env.Options) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Auth.validateAndNormalize(); err != nil {
		return err
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = defaultKafkaTopic
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "":
		c.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is not supported", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.HTTPListenAddr == "" {
		return fmt.Errorf("config: server.http_listen_addr must be set")
	}
	if s.GRPCListenAddr == "" {
		return fmt.Errorf("config: server.grpc_listen_addr must be set")
	}

	timeout, err := parseDurationAllowEmpty(s.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	s.ShutdownTimeout = timeout

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (a *AuthConfig) validateAndNormalize() error {
	if len(a.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("config: auth.jwt_secret must be at least %d bytes", minJWTSecretLength)
	}
	if a.Issuer == "" {
		a.Issuer = defaultIssuer
	}
	if a.Audience == "" {
		a.Audience = defaultIssuer
	}

	ttl, err := parseDurationAllowEmpty(a.TokenTTLRaw)
	if err != nil {
		return fmt.Errorf("config: auth.token_ttl: %w", err)
	}
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	a.TokenTTL = ttl

	if a.BcryptCost == 0 {
		a.BcryptCost = defaultBcryptCost
	}
	if a.BcryptCost < 4 || a.BcryptCost > 31 {
		return fmt.Errorf("config: auth.bcrypt_cost must be between 4 and 31")
	}

	if a.LoginMaxAttempts == 0 {
		a.LoginMaxAttempts = defaultLoginMaxAttempts
	}
	window, err := parseDurationAllowEmpty(a.LoginWindowRaw)
	if err != nil {
		return fmt.Errorf("config: auth.login_window: %w", err)
	}
	if window == 0 {
		window = defaultLoginWindow
	}
	a.LoginWindow = window

	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
