package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// Config es la configuración completa del servicio.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Signals     SignalsConfig     `yaml:"signals"`
	API         APIConfig         `yaml:"api"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// DatabaseConfig selecciona el store. `postgres://…` usa Postgres; el resto es un DSN de SQLite.
type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// TelegramConfig es opcional: sin token se publica por consola.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

// SchedulerConfig controla el loop y los jobs periódicos.
type SchedulerConfig struct {
	Timezone       string `yaml:"timezone" env:"TIMEZONE"`
	PollIntervalMS int    `yaml:"poll_interval_ms" env:"POLL_INTERVAL"`
	Workers        int    `yaml:"workers" env:"WORKERS"`
	DailyCron      string `yaml:"daily_cron" env:"DAILY_CRON"`
	Reprocess      bool   `yaml:"reprocess" env:"REPROCESS"`
}

// SignalsConfig contiene los umbrales de admisión y de emisión.
type SignalsConfig struct {
	LosingStreakThreshold int     `yaml:"losing_streak_threshold" env:"LOSING_STREAK_THRESHOLD"`
	MinWalletsForSignal   int     `yaml:"min_wallets_for_signal" env:"MIN_WALLETS_FOR_SIGNAL"`
	WinRateThreshold      float64 `yaml:"win_rate_threshold" env:"WIN_RATE_THRESHOLD"` // porcentaje 0-100
	Conf2                 int     `yaml:"conf_2" env:"CONF_2"`
	Conf3                 int     `yaml:"conf_3" env:"CONF_3"`
	Conf4                 int     `yaml:"conf_4" env:"CONF_4"`
	Conf5                 int     `yaml:"conf_5" env:"CONF_5"`
	ForceSend             bool    `yaml:"force_send" env:"FORCE_SEND"`
	NotesSlug             string  `yaml:"notes_slug" env:"NOTES_SLUG"`
}

// APIConfig contiene los base URLs y la política de reintentos del cliente upstream.
type APIConfig struct {
	DataBase   string `yaml:"data_base" env:"DATA_API_BASE"`
	TradesBase string `yaml:"trades_base" env:"TRADES_API_BASE"`
	EventsBase string `yaml:"events_base" env:"EVENTS_API_BASE"`
	TimeoutMS  int    `yaml:"timeout_ms" env:"HTTP_TIMEOUT"`
	Retries    int    `yaml:"retries" env:"HTTP_RETRIES"`
}

// LeaderboardConfig define los buckets que recorre el ingestor diario.
type LeaderboardConfig struct {
	Categories []string `yaml:"categories" env:"LEADERBOARD_CATEGORIES" envSeparator:","`
	Periods    []string `yaml:"periods" env:"LEADERBOARD_PERIODS" envSeparator:","`
	Limit      int      `yaml:"limit" env:"LEADERBOARD_LIMIT"`
	PnLMin     float64  `yaml:"pnl_min" env:"LEADERBOARD_PNL_MIN"`
	VolMult    float64  `yaml:"vol_mult" env:"LEADERBOARD_VOL_MULT"`
}

// ServerConfig es el puerto del endpoint de salud.
type ServerConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // text | json
}

// Load carga el YAML (opcional), luego .env y el entorno, aplica defaults y valida.
// Las variables de entorno sobreescriben al YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// sin fichero: solo entorno
		case err != nil:
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		}
	}

	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse env: %w", err)
	}

	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}
	if cfg.Scheduler.PollIntervalMS == 0 {
		cfg.Scheduler.PollIntervalMS = 30_000
	}
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 8
	}
	if cfg.Scheduler.DailyCron == "" {
		cfg.Scheduler.DailyCron = "0 7 * * *"
	}

	if cfg.Signals.LosingStreakThreshold <= 0 {
		cfg.Signals.LosingStreakThreshold = 5
	}
	if cfg.Signals.MinWalletsForSignal <= 0 {
		cfg.Signals.MinWalletsForSignal = 2
	}
	if cfg.Signals.WinRateThreshold == 0 {
		cfg.Signals.WinRateThreshold = 70
	}
	if cfg.Signals.Conf2 <= 0 {
		cfg.Signals.Conf2 = 5
	}
	if cfg.Signals.Conf3 <= 0 {
		cfg.Signals.Conf3 = 10
	}
	if cfg.Signals.Conf4 <= 0 {
		cfg.Signals.Conf4 = 20
	}
	if cfg.Signals.Conf5 <= 0 {
		cfg.Signals.Conf5 = 50
	}
	if cfg.Signals.NotesSlug == "" {
		cfg.Signals.NotesSlug = "copy-signals"
	}

	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.TradesBase == "" {
		cfg.API.TradesBase = cfg.API.DataBase
	}
	if cfg.API.EventsBase == "" {
		cfg.API.EventsBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.TimeoutMS <= 0 {
		cfg.API.TimeoutMS = 15_000
	}
	if cfg.API.Retries <= 0 {
		cfg.API.Retries = 3
	}

	if len(cfg.Leaderboard.Categories) == 0 {
		cfg.Leaderboard.Categories = []string{"OVERALL", "POLITICS", "SPORTS", "CRYPTO"}
	}
	if len(cfg.Leaderboard.Periods) == 0 {
		cfg.Leaderboard.Periods = []string{"DAY", "WEEK", "MONTH"}
	}
	if cfg.Leaderboard.Limit <= 0 {
		cfg.Leaderboard.Limit = 50
	}
	if cfg.Leaderboard.PnLMin <= 0 {
		cfg.Leaderboard.PnLMin = 1000
	}
	if cfg.Leaderboard.VolMult <= 0 {
		cfg.Leaderboard.VolMult = 10
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate rechaza configuraciones con las que el servicio no puede arrancar.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Scheduler.Timezone, err))
	}
	if c.Scheduler.PollIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %d", c.Scheduler.PollIntervalMS))
	}
	if c.Signals.WinRateThreshold < 0 || c.Signals.WinRateThreshold > 100 {
		errs = append(errs, fmt.Errorf("WIN_RATE_THRESHOLD must be within 0-100, got %.1f", c.Signals.WinRateThreshold))
	}
	ladder := c.Ladder()
	for i := 1; i < len(ladder); i++ {
		if ladder[i] < ladder[i-1] {
			errs = append(errs, fmt.Errorf("confidence cutoffs must be non-decreasing: %v", ladder))
			break
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config.Validate: %w", errors.Join(errs...))
	}
	return nil
}

// PollInterval devuelve el intervalo del loop como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Scheduler.PollIntervalMS) * time.Millisecond
}

// HTTPTimeout devuelve el timeout por llamada upstream.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.API.TimeoutMS) * time.Millisecond
}

// Location devuelve la zona horaria del job diario.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Ladder devuelve los cortes ★…★★★★★; el primero es MIN_WALLETS_FOR_SIGNAL.
func (c *Config) Ladder() domain.ConfidenceLadder {
	return domain.ConfidenceLadder{
		c.Signals.MinWalletsForSignal,
		c.Signals.Conf2,
		c.Signals.Conf3,
		c.Signals.Conf4,
		c.Signals.Conf5,
	}
}

// TelegramEnabled indica si hay credenciales de chat.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
