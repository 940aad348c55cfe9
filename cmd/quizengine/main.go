package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/quiz-engine/internal/clock"
	"github.com/yourusername/quiz-engine/internal/config"
	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/engine"
	"github.com/yourusername/quiz-engine/internal/presenter"
	"github.com/yourusername/quiz-engine/internal/questionsource"
	"github.com/yourusername/quiz-engine/internal/recorder"
	"github.com/yourusername/quiz-engine/internal/recovery"
	"github.com/yourusername/quiz-engine/internal/session"
	"github.com/yourusername/quiz-engine/pkg/database"
	pgStore "github.com/yourusername/quiz-engine/pkg/store/postgres"
	redisStore "github.com/yourusername/quiz-engine/pkg/store/redis"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg.ApplyOverrides()

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.MigrateDB(db, &pgStore.ResultRow{}, &pgStore.GuildMemberRow{}); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	snapshots := redisStore.New(redisClient, secondsOr(cfg.Recovery.TTLS)*time.Second)
	store := pgStore.New(db, snapshots)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := cfg.BuildRegistry(ctx)
	if err != nil {
		log.Printf("Failed to build question-provider registry: %v", err)
		os.Exit(1)
	}
	source := questionsource.New(registry)

	pres := presenter.NewInMemory()
	sessionRegistry := session.NewRegistry(cfg.AnswerChannelCapacity)
	rec := recorder.New(store)
	journal := recovery.New(store, pres, clock.New(), cfg.Recovery.TTLS)

	eng := engine.New(sessionRegistry, clock.New(), source, pres, rec, journal, cfg.EngineConfig())
	if err := eng.Bootstrap(ctx); err != nil {
		log.Printf("Failed to bootstrap engine (recovery sweep): %v", err)
		os.Exit(1)
	}
	defer eng.Shutdown()

	log.Println("Quiz engine started")

	if topic := os.Getenv("DEMO_QUIZ_TOPIC"); topic != "" {
		go runDemo(ctx, eng, topic)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down quiz engine...")
	cancel()
}

func secondsOr(s int) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s)
}

// runDemo starts a single public quiz session against DEMO_QUIZ_TOPIC,
// exercising the full Start→runSession→finalize path against the
// in-memory presenter when no chat-platform adapter is wired up yet.
func runDemo(ctx context.Context, eng *engine.Engine, topic string) {
	req := entity.QuizRequest{
		Topic:      topic,
		Count:      5,
		Difficulty: entity.DifficultyMedium,
		Type:       entity.QuestionShortAnswer,
		TimeoutS:   30,
		Mode:       entity.ModeStandard,
		Privacy:    entity.PrivacyPublic,
		HostID:     "demo-host",
		GuildID:    "demo-guild",
		ChannelID:  "demo-channel",
	}
	key, err := eng.Start(ctx, req)
	if err != nil {
		log.Printf("[Demo] failed to start quiz: %v", err)
		return
	}
	log.Printf("[Demo] started quiz %s/%s on topic %q", key.GuildID, key.ChannelID, topic)
}
