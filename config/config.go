package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	R2       R2Config       `mapstructure:"r2"`
	Game     GameConfig     `mapstructure:"game"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	RateLimitMax   int    `mapstructure:"rate_limit_max"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig is optional; an empty Addr disables the leaderboard cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// R2Config is optional; an empty Bucket disables upload archiving.
type R2Config struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	CDNBaseURL      string `mapstructure:"cdn_base_url"`
}

type GameConfig struct {
	RoundSeconds            int     `mapstructure:"round_seconds"`
	QuestionsPerRound       int     `mapstructure:"questions_per_round"`
	QuestionPoolLimit       int     `mapstructure:"question_pool_limit"`
	WinPayout               float64 `mapstructure:"win_payout"`
	MutationAttempts        int     `mapstructure:"mutation_attempts"`
	VerifyAttempts          int     `mapstructure:"verify_attempts"`
	RefreshAttempts         int     `mapstructure:"refresh_attempts"`
	BackoffMS               int     `mapstructure:"backoff_ms"`
	SessionTTLMinutes       int     `mapstructure:"session_ttl_minutes"`
	AllowSimulatedPurchases bool    `mapstructure:"allow_simulated_purchases"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (g GameConfig) RoundDuration() time.Duration {
	return time.Duration(g.RoundSeconds) * time.Second
}

func (g GameConfig) Backoff() time.Duration {
	return time.Duration(g.BackoffMS) * time.Millisecond
}

func (g GameConfig) SessionTTL() time.Duration {
	return time.Duration(g.SessionTTLMinutes) * time.Minute
}

func (g GameConfig) Payout() decimal.Decimal {
	return decimal.NewFromFloat(g.WinPayout).Round(2)
}

// envKeys maps config keys to the environment variable names used in deployment.
var envKeys = map[string]string{
	"server.port":                    "PORT",
	"server.allowed_origins":         "ALLOWED_ORIGINS",
	"server.rate_limit_max":          "RATE_LIMIT_MAX",
	"database.url":                   "DATABASE_URL",
	"database.max_open_conns":        "DATABASE_MAX_OPEN_CONNS",
	"database.max_idle_conns":        "DATABASE_MAX_IDLE_CONNS",
	"redis.addr":                     "REDIS_ADDR",
	"redis.password":                 "REDIS_PASSWORD",
	"redis.db":                       "REDIS_DB",
	"r2.account_id":                  "CLOUDFLARE_ACCOUNT_ID",
	"r2.access_key_id":               "R2_ACCESS_KEY_ID",
	"r2.access_key_secret":           "R2_ACCESS_KEY_SECRET",
	"r2.bucket":                      "R2_BUCKET_NAME",
	"r2.cdn_base_url":                "CDN_BASE_URL",
	"game.round_seconds":             "GAME_ROUND_SECONDS",
	"game.questions_per_round":       "GAME_QUESTIONS_PER_ROUND",
	"game.question_pool_limit":       "GAME_QUESTION_POOL_LIMIT",
	"game.win_payout":                "GAME_WIN_PAYOUT",
	"game.mutation_attempts":         "GAME_MUTATION_ATTEMPTS",
	"game.verify_attempts":           "GAME_VERIFY_ATTEMPTS",
	"game.refresh_attempts":          "GAME_REFRESH_ATTEMPTS",
	"game.backoff_ms":                "GAME_BACKOFF_MS",
	"game.session_ttl_minutes":       "GAME_SESSION_TTL_MINUTES",
	"game.allow_simulated_purchases": "ALLOW_SIMULATED_PURCHASES",
	"admin.token":                    "ADMIN_TOKEN",
	"logging.level":                  "LOG_LEVEL",
	"logging.format":                 "LOG_FORMAT",
	"logging.output":                 "LOG_OUTPUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5200)
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("server.rate_limit_max", 120)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.db", 0)
	v.SetDefault("game.round_seconds", 30)
	v.SetDefault("game.questions_per_round", 3)
	v.SetDefault("game.question_pool_limit", 100)
	v.SetDefault("game.win_payout", 2.00)
	v.SetDefault("game.mutation_attempts", 3)
	v.SetDefault("game.verify_attempts", 5)
	v.SetDefault("game.refresh_attempts", 3)
	v.SetDefault("game.backoff_ms", 100)
	v.SetDefault("game.session_ttl_minutes", 30)
	v.SetDefault("game.allow_simulated_purchases", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// Load reads .env (if present) and the process environment into a Config.
// It returns an error when a required value is missing.
func Load() (*Config, error) {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.Game.QuestionsPerRound < 1 {
		return fmt.Errorf("GAME_QUESTIONS_PER_ROUND must be at least 1")
	}
	if c.Game.RoundSeconds < 1 {
		return fmt.Errorf("GAME_ROUND_SECONDS must be at least 1")
	}
	if c.Game.QuestionPoolLimit < c.Game.QuestionsPerRound {
		return fmt.Errorf("GAME_QUESTION_POOL_LIMIT must be >= GAME_QUESTIONS_PER_ROUND")
	}
	if c.Game.MutationAttempts < 1 || c.Game.VerifyAttempts < 1 || c.Game.RefreshAttempts < 1 {
		return fmt.Errorf("retry attempt budgets must be at least 1")
	}
	return nil
}

// AllowedOriginsList splits ALLOWED_ORIGINS and trims each entry.
func (s ServerConfig) AllowedOriginsList() []string {
	var out []string
	for _, origin := range strings.Split(s.AllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
