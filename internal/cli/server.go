package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"trivia-service/internal/app"
	"trivia-service/internal/bank"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	pgloader "trivia-service/internal/infra/postgres"
	redisinfra "trivia-service/internal/infra/redis"
	transport "trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(map[string]domain.Bank{
		bank.DefaultID: bank.Default(),
	})
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks app.BankRepository
	var sessions app.SessionRepository
	var scores app.ScoreRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
		scores = redisinfra.NewScoreBoard(redisClient)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
		sessions = memory.NewSessionStore()
		scores = memory.NewScoreBoard()
	}

	service := app.NewGameService(sessions, banks, scores,
		app.WithRules(rulesFromConfig(cfg)),
		app.WithTickInterval(config.TTLDuration(cfg.Game.Tick, time.Second)),
	)

	msgRate := rate.Limit(cfg.Game.MessageRate)
	if cfg.Game.MessageRate <= 0 {
		msgRate = 5
	}
	msgBurst := cfg.Game.MessageBurst
	if msgBurst <= 0 {
		msgBurst = 10
	}
	wsHandler := transport.NewWSHandler(service, msgRate, msgBurst)
	restHandler := transport.NewRESTHandler(service, cfg.Game.LeaderboardLimit)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(restHandler, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// rulesFromConfig applies the configured session length to the default rules.
func rulesFromConfig(cfg config.Config) domain.Rules {
	rules := domain.DefaultRules()
	if cfg.Game.Seconds > 0 {
		rules.SessionSeconds = cfg.Game.Seconds
	}
	return rules
}
