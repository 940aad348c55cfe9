// Package config loads the engine's runtime configuration via viper, mapping
// directly onto spec.md §6's key names plus the ambient Timers/LLM blocks
// SPEC_FULL.md §A adds. Grounded on the teacher's internal/config/config.go:
// a per-call viper.New() instance (no global state), explicit BindEnv per
// key, tolerant ReadInConfig, Unmarshal, then a validation/defaulting pass.
package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/engine"
	"github.com/yourusername/quiz-engine/internal/presenter"
	"github.com/yourusername/quiz-engine/internal/questionsource/llm"
	"github.com/yourusername/quiz-engine/internal/scorer"
)

// Config holds every runtime setting of the quiz engine (§6).
type Config struct {
	Database              DatabaseConfig        `mapstructure:"database"`
	Redis                 RedisConfig           `mapstructure:"redis"`
	Solo                  SoloConfig            `mapstructure:"solo"`
	Group                 GroupConfig           `mapstructure:"group"`
	QuestionTimeout       QuestionTimeoutConfig `mapstructure:"question_timeout"`
	Session               SessionConfig         `mapstructure:"session"`
	InterQuestionPauseS   int                   `mapstructure:"inter_question_pause_s"`
	Recovery              RecoveryConfig        `mapstructure:"recovery"`
	AnswerChannelCapacity int                   `mapstructure:"answer_channel_capacity"`
	Provider              ProviderConfig        `mapstructure:"provider"`
	Scoring               ScoringConfig         `mapstructure:"scoring"`
	Timers                TimersConfig          `mapstructure:"timers"`
	LLMRetry              RetryConfig           `mapstructure:"llm_retry"`
	LLM                   map[string]llm.Config `mapstructure:"llm"`
}

// DatabaseConfig carries the durable-store (Postgres) connection settings,
// unchanged in shape from the teacher's own DatabaseConfig.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// PostgresConnectionString builds a libpq DSN, identical to the teacher's
// DatabaseConfig.PostgresConnectionString.
func (d DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig carries the recovery-store (Redis) connection settings,
// unchanged in shape from the teacher's own RedisConfig — single/sentinel/
// cluster modes, unified via redis.NewUniversalClient in pkg/database.
type RedisConfig struct {
	Mode            string   `mapstructure:"mode"`
	Addrs           []string `mapstructure:"addrs"`
	Addr            string   `mapstructure:"addr"`
	Password        string   `mapstructure:"password"`
	DB              int      `mapstructure:"db"`
	MasterName      string   `mapstructure:"master_name"`
	MaxRetries      int      `mapstructure:"max_retries"`
	MinRetryBackoff int      `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int      `mapstructure:"max_retry_backoff"`
}

// RetryConfig mirrors llm.RetryConfig in milliseconds so it unmarshals cleanly
// from plain YAML ints (viper's default Unmarshal has no time.Duration hook
// wired up), rather than asking config files to spell out "500ms" strings.
type RetryConfig struct {
	MaxAttempts   int     `mapstructure:"max_attempts"`
	InitialWaitMS int     `mapstructure:"initial_wait_ms"`
	MaxWaitMS     int     `mapstructure:"max_wait_ms"`
	Multiplier    float64 `mapstructure:"multiplier"`
}

func (r RetryConfig) toLLMRetryConfig() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts: r.MaxAttempts,
		InitialWait: time.Duration(r.InitialWaitMS) * time.Millisecond,
		MaxWait:     time.Duration(r.MaxWaitMS) * time.Millisecond,
		Multiplier:  r.Multiplier,
	}
}

// SoloConfig caps question counts for Private-mode sessions — see Clamp's
// comment: "solo" gates on Private, not participant count, since no explicit
// solo flag exists in §3. Kept here under the name spec.md §6 uses.
type SoloConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
}

// GroupConfig caps question counts for Public-mode sessions.
type GroupConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
}

// QuestionTimeoutConfig bounds QuizRequest.TimeoutS after clamping (§3).
type QuestionTimeoutConfig struct {
	MinS int `mapstructure:"min_s"`
	MaxS int `mapstructure:"max_s"`
}

// SessionConfig carries §5's inactivity/hard-cap sweep thresholds plus the
// sweep cadence itself (not named in spec.md §6 directly, but required to
// parameterize Engine.Config.SweepInterval).
type SessionConfig struct {
	InactivityS    int `mapstructure:"inactivity_s"`
	HardCapS       int `mapstructure:"hard_cap_s"`
	SweepIntervalS int `mapstructure:"sweep_interval_s"`
	IdleNudgeS     int `mapstructure:"idle_nudge_s"`
}

// RecoveryConfig parameterizes the §4.10 journal.
type RecoveryConfig struct {
	TTLS int `mapstructure:"ttl_s"`
}

// ProviderConfig lists question providers in fallback order (§6 provider.order).
type ProviderConfig struct {
	Order []string `mapstructure:"order"`
}

// ScoringConfig overrides scorer.BaseByDifficulty (§6 scoring.base_by_difficulty).
type ScoringConfig struct {
	BaseByDifficulty map[string]int `mapstructure:"base_by_difficulty"`
}

// TimersConfig overrides presenter.ActiveCadence, the countdown redraw table (§4.3).
type TimersConfig struct {
	FastThresholdS   int `mapstructure:"fast_threshold_s"`
	FastIntervalS    int `mapstructure:"fast_interval_s"`
	MediumThresholdS int `mapstructure:"medium_threshold_s"`
	MediumIntervalS  int `mapstructure:"medium_interval_s"`
	SlowIntervalS    int `mapstructure:"slow_interval_s"`
}

func defaults() Config {
	cadence := presenter.DefaultCadence()
	retry := llm.DefaultRetryConfig()
	return Config{
		Database: DatabaseConfig{Host: "localhost", Port: "5432", SSLMode: "disable"},
		Redis:    RedisConfig{Mode: "single", Addr: "localhost:6379"},
		Solo:            SoloConfig{MaxQuestions: 20},
		Group:           GroupConfig{MaxQuestions: 5},
		QuestionTimeout: QuestionTimeoutConfig{MinS: 5, MaxS: 120},
		Session: SessionConfig{
			InactivityS:    1800,
			HardCapS:       3600,
			SweepIntervalS: 300,
			IdleNudgeS:     1200,
		},
		InterQuestionPauseS:   5,
		Recovery:              RecoveryConfig{TTLS: 1800},
		AnswerChannelCapacity: 64,
		Provider:              ProviderConfig{Order: []string{"anthropic", "openai", "google"}},
		Scoring: ScoringConfig{BaseByDifficulty: map[string]int{
			string(entity.DifficultyEasy):   10,
			string(entity.DifficultyMedium): 20,
			string(entity.DifficultyHard):   30,
		}},
		Timers: TimersConfig{
			FastThresholdS:   cadence.FastThresholdS,
			FastIntervalS:    cadence.FastIntervalS,
			MediumThresholdS: cadence.MediumThresholdS,
			MediumIntervalS:  cadence.MediumIntervalS,
			SlowIntervalS:    cadence.SlowIntervalS,
		},
		LLMRetry: RetryConfig{
			MaxAttempts:   retry.MaxAttempts,
			InitialWaitMS: int(retry.InitialWait / time.Millisecond),
			MaxWaitMS:     int(retry.MaxWait / time.Millisecond),
			Multiplier:    retry.Multiplier,
		},
	}
}

// Load reads configuration from configPath (YAML, may be absent) layered
// under explicit environment-variable bindings, exactly as the teacher's
// Load does for its own sections.
func Load(configPath string) (*Config, error) {
	vip := viper.New()
	cfg := defaults()

	vip.BindEnv("database.host", "DB_HOST")
	vip.BindEnv("database.port", "DB_PORT")
	vip.BindEnv("database.user", "DB_USER")
	vip.BindEnv("database.password", "DB_PASSWORD")
	vip.BindEnv("database.dbname", "DB_NAME")
	vip.BindEnv("database.sslmode", "DB_SSLMODE")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("solo.max_questions", "SOLO_MAX_QUESTIONS")
	vip.BindEnv("group.max_questions", "GROUP_MAX_QUESTIONS")
	vip.BindEnv("question_timeout.min_s", "QUESTION_TIMEOUT_MIN_S")
	vip.BindEnv("question_timeout.max_s", "QUESTION_TIMEOUT_MAX_S")
	vip.BindEnv("session.inactivity_s", "SESSION_INACTIVITY_S")
	vip.BindEnv("session.hard_cap_s", "SESSION_HARD_CAP_S")
	vip.BindEnv("session.sweep_interval_s", "SESSION_SWEEP_INTERVAL_S")
	vip.BindEnv("session.idle_nudge_s", "SESSION_IDLE_NUDGE_S")
	vip.BindEnv("inter_question_pause_s", "INTER_QUESTION_PAUSE_S")
	vip.BindEnv("recovery.ttl_s", "RECOVERY_TTL_S")
	vip.BindEnv("answer_channel_capacity", "ANSWER_CHANNEL_CAPACITY")
	vip.BindEnv("provider.order", "PROVIDER_ORDER")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("[Config] файл конфигурации %q не найден, используются переменные окружения/умолчания", configPath)
			} else {
				log.Printf("[Config] предупреждение: не удалось прочитать файл конфигурации %q: %v", configPath, err)
			}
		}
	}

	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("[Config] solo.max_questions=%d group.max_questions=%d question_timeout=[%d,%d]s",
		cfg.Solo.MaxQuestions, cfg.Group.MaxQuestions, cfg.QuestionTimeout.MinS, cfg.QuestionTimeout.MaxS)
	log.Printf("[Config] session.inactivity_s=%d hard_cap_s=%d sweep_interval_s=%d recovery.ttl_s=%d",
		cfg.Session.InactivityS, cfg.Session.HardCapS, cfg.Session.SweepIntervalS, cfg.Recovery.TTLS)
	log.Printf("[Config] provider.order=%v answer_channel_capacity=%d", cfg.Provider.Order, cfg.AnswerChannelCapacity)

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Solo.MaxQuestions <= 0 || c.Group.MaxQuestions <= 0 {
		return fmt.Errorf("solo.max_questions and group.max_questions must be positive")
	}
	if c.QuestionTimeout.MinS <= 0 || c.QuestionTimeout.MaxS < c.QuestionTimeout.MinS {
		return fmt.Errorf("question_timeout.min_s/max_s are invalid: min=%d max=%d", c.QuestionTimeout.MinS, c.QuestionTimeout.MaxS)
	}
	if len(c.Provider.Order) == 0 {
		return fmt.Errorf("provider.order must name at least one question provider")
	}
	return nil
}

// ClampLimits projects Config onto entity.ClampLimits for QuizRequest.Clamp.
func (c *Config) ClampLimits() entity.ClampLimits {
	return entity.ClampLimits{
		SoloMaxQuestions:  c.Solo.MaxQuestions,
		GroupMaxQuestions: c.Group.MaxQuestions,
		TimeoutMinS:       c.QuestionTimeout.MinS,
		TimeoutMaxS:       c.QuestionTimeout.MaxS,
	}
}

// EngineConfig projects Config onto engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		ClampLimits:        c.ClampLimits(),
		InactivityLimit:    secondsToDuration(c.Session.InactivityS),
		HardCap:            secondsToDuration(c.Session.HardCapS),
		InterQuestionPause: secondsToDuration(c.InterQuestionPauseS),
		SweepInterval:      secondsToDuration(c.Session.SweepIntervalS),
		RegistryCapacity:   c.AnswerChannelCapacity,
		IdleNudgeThreshold: secondsToDuration(c.Session.IdleNudgeS),
	}
}

// ApplyOverrides pushes Scoring and Timers onto the package-level vars they
// configure (scorer.BaseByDifficulty, presenter.ActiveCadence). Call once at
// startup, before Engine.Bootstrap.
func (c *Config) ApplyOverrides() {
	if len(c.Scoring.BaseByDifficulty) > 0 {
		overridden := make(map[entity.Difficulty]int, len(c.Scoring.BaseByDifficulty))
		for k, v := range c.Scoring.BaseByDifficulty {
			overridden[entity.Difficulty(k)] = v
		}
		scorer.BaseByDifficulty = overridden
	}
	presenter.ActiveCadence = presenter.Cadence{
		FastThresholdS:   c.Timers.FastThresholdS,
		FastIntervalS:    c.Timers.FastIntervalS,
		MediumThresholdS: c.Timers.MediumThresholdS,
		MediumIntervalS:  c.Timers.MediumIntervalS,
		SlowIntervalS:    c.Timers.SlowIntervalS,
	}
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// BuildRegistry constructs an llm.Registry from Provider.Order and the LLM
// block, skipping any provider named in the order that has no matching LLM
// entry (it simply falls out of Available() — no config present, no provider
// built, the fallback chain just moves to the next name).
func (c *Config) BuildRegistry(ctx context.Context) (*llm.Registry, error) {
	retry := c.LLMRetry.toLLMRetryConfig()
	providers := make(map[string]llm.Provider, len(c.Provider.Order))
	for _, name := range c.Provider.Order {
		pcfg, ok := c.LLM[name]
		if !ok {
			continue
		}
		p, err := llm.NewProvider(ctx, name, pcfg, retry)
		if err != nil {
			return nil, fmt.Errorf("build %s provider: %w", name, err)
		}
		providers[name] = p
	}
	return llm.NewRegistry(c.Provider.Order, providers), nil
}
