package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"quiz-assessment-service/internal/analytics"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Postgres  PostgresConfig  `yaml:"postgres" envPrefix:"POSTGRES_"`
	SQLite    SQLiteConfig    `yaml:"sqlite" envPrefix:"SQLITE_"`
	Quiz      QuizConfig      `yaml:"quiz" envPrefix:"QUIZ_"`
	AMQP      AMQPConfig      `yaml:"amqp" envPrefix:"AMQP_"`
	Analytics AnalyticsConfig `yaml:"analytics" envPrefix:"ANALYTICS_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"SERVER_PORT"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	TTL      string `yaml:"ttl" env:"TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"URL"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type QuizConfig struct {
	TTL string `yaml:"ttl" env:"TTL"`
}

type AMQPConfig struct {
	URL      string `yaml:"url" env:"URL"`
	Exchange string `yaml:"exchange" env:"EXCHANGE"`
}

type AnalyticsConfig struct {
	Timezone        string `yaml:"timezone" env:"TIMEZONE"`
	WindowDays      int    `yaml:"window_days" env:"WINDOW_DAYS"`
	AverageSample   int    `yaml:"average_sample" env:"AVERAGE_SAMPLE"`
	FallbackSample  int    `yaml:"fallback_sample" env:"FALLBACK_SAMPLE"`
	TopQuizzes      int    `yaml:"top_quizzes" env:"TOP_QUIZZES"`
	PassRateQuizzes int    `yaml:"pass_rate_quizzes" env:"PASS_RATE_QUIZZES"`
	Recent          int    `yaml:"recent" env:"RECENT"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Load reads YAML config from path, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port != "" {
		if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
			result = multierror.Append(result, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
		}
	}
	for name, raw := range map[string]string{"redis.ttl": c.Redis.TTL, "quiz.ttl": c.Quiz.TTL} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Postgres.URL != "" && c.SQLite.Path != "" {
		result = multierror.Append(result, fmt.Errorf("postgres.url and sqlite.path are mutually exclusive"))
	}
	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		result = multierror.Append(result, fmt.Errorf("amqp.exchange is required when amqp.url is set"))
	}
	if c.Analytics.Timezone != "" {
		if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
			result = multierror.Append(result, fmt.Errorf("analytics.timezone: %w", err))
		}
	}
	a := c.Analytics
	for name, v := range map[string]int{
		"analytics.window_days":       a.WindowDays,
		"analytics.average_sample":    a.AverageSample,
		"analytics.fallback_sample":   a.FallbackSample,
		"analytics.top_quizzes":       a.TopQuizzes,
		"analytics.pass_rate_quizzes": a.PassRateQuizzes,
		"analytics.recent":            a.Recent,
	} {
		if v < 0 {
			result = multierror.Append(result, fmt.Errorf("%s must not be negative", name))
		}
	}
	return result.ErrorOrNil()
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Limits merges configured sample sizes over the analytics defaults.
func (a AnalyticsConfig) Limits() analytics.Limits {
	l := analytics.DefaultLimits()
	if a.AverageSample > 0 {
		l.AverageSample = a.AverageSample
	}
	if a.FallbackSample > 0 {
		l.FallbackSample = a.FallbackSample
	}
	if a.TopQuizzes > 0 {
		l.TopQuizzes = a.TopQuizzes
	}
	if a.PassRateQuizzes > 0 {
		l.PassRateQuizzes = a.PassRateQuizzes
	}
	if a.Recent > 0 {
		l.Recent = a.Recent
	}
	return l
}

// Location is the calendar used for daily buckets, UTC unless configured.
func (a AnalyticsConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
