package config

import (
	"bytes"
	_ "embed"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	MySQL     DatabaseConfig  `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Transport TransportConfig `mapstructure:"transport"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type WorkerConfig struct {
	Count          int           `mapstructure:"count"`
	InvokeTimeout  time.Duration `mapstructure:"invoke_timeout"`
	TrustedCallers []string      `mapstructure:"trusted_callers"`
	VerboseFlag    string        `mapstructure:"verbose_flag"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type TransportConfig struct {
	TimeoutMs    int           `mapstructure:"timeout_ms"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

// EndpointsConfig holds provider base URLs. Profile maps "environment/region"
// to the Profile API base URL.
type EndpointsConfig struct {
	Twilio   string            `mapstructure:"twilio"`
	Content  string            `mapstructure:"content"`
	Notify   string            `mapstructure:"notify"`
	SendGrid string            `mapstructure:"sendgrid"`
	Profile  map[string]string `mapstructure:"profile"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// Load reads embedded defaults, merges user YAML (if provided), loads a .env file
// when present and applies env overrides (MSGD_*, nested keys joined by "_").
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	// env override (MSGD_*)
	v.SetEnvPrefix("MSGD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (t TransportConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

func (b BreakerConfig) OpenFor() time.Duration {
	return time.Duration(b.OpenForMs) * time.Millisecond
}
