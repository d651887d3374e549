package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Transport modes.
const (
	TransportTelegram  = "telegram"
	TransportWebSocket = "websocket"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizbot"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	Transport               string        `env:"TRANSPORT" envDefault:"telegram"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	WSAllowedOrigins        []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	Telegram Telegram
	Quiz     Quiz
	Redis    Redis
}

// Telegram configures the Bot API client.
type Telegram struct {
	Token         string `env:"TELEGRAM_BOT_TOKEN"`
	Debug         bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`
	UpdateTimeout int    `env:"TELEGRAM_UPDATE_TIMEOUT" envDefault:"60"`
}

// Quiz groups gameplay defaults.
type Quiz struct {
	BankDir         string        `env:"QUIZ_BANK_DIR" envDefault:"quizzes"`
	TimerChoices    []int         `env:"QUIZ_TIMER_CHOICES" envSeparator:"," envDefault:"30,45,60"`
	DefaultTimeout  time.Duration `env:"QUIZ_DEFAULT_TIMEOUT" envDefault:"30s"`
	TransitionDelay time.Duration `env:"QUIZ_TRANSITION_DELAY" envDefault:"1s"`
}

// Redis holds the optional bank cache configuration. An empty address
// disables Redis and banks are read straight from disk.
type Redis struct {
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	BankTTL      time.Duration `env:"REDIS_BANK_TTL" envDefault:"10m"`
	WarmInterval time.Duration `env:"BANK_WARM_INTERVAL" envDefault:"5m"`
}

// TimerChoiceDurations returns the configured per-question timer options.
func (q Quiz) TimerChoiceDurations() []time.Duration {
	out := make([]time.Duration, 0, len(q.TimerChoices))
	for _, sec := range q.TimerChoices {
		if sec > 0 {
			out = append(out, time.Duration(sec)*time.Second)
		}
	}
	return out
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements the struct tags cannot express.
func (c *App) Validate() error {
	switch c.Transport {
	case TransportTelegram:
		if c.Telegram.Token == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN must be set for the telegram transport")
		}
	case TransportWebSocket:
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}
	if len(c.Quiz.TimerChoiceDurations()) == 0 {
		return fmt.Errorf("QUIZ_TIMER_CHOICES must contain at least one positive value")
	}
	if c.Quiz.DefaultTimeout <= 0 {
		return fmt.Errorf("QUIZ_DEFAULT_TIMEOUT must be positive")
	}
	return nil
}
