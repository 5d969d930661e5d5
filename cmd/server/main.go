package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"messagehub/internal/api"
	"messagehub/internal/config"
	"messagehub/internal/fanout"
	"messagehub/internal/notify"
	"messagehub/internal/presence"
	"messagehub/internal/server"
	"messagehub/internal/stats"
	"messagehub/internal/store"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var (
	addr           string
	dsn            string
	redisURL       string
	usersURL       string
	fanoutDriver   string
	allowedOrigins stringSliceFlag
	strictFrames   bool
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	flag.StringVar(&addr, "addr", envOrDefault("SERVER_ADDR", "localhost:3005"), "server address")
	flag.StringVar(&dsn, "dsn", envOrDefault("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=messagehub sslmode=disable"), "database connection string")
	flag.StringVar(&redisURL, "redis-url", envOrDefault("REDIS_URL", "redis://localhost:6379"), "redis URL for fanout and the mail queue")
	flag.StringVar(&usersURL, "users-url", envOrDefault("USERS_SERVICE_URL", "http://localhost:3001"), "users service base URL")
	flag.StringVar(&fanoutDriver, "fanout", envOrDefault("FANOUT_DRIVER", config.FanoutRedis), "fanout driver: redis or memory")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.BoolVar(&strictFrames, "strict-frames", false, "close websocket connections on protocol violations")
	flag.Parse()

	logger := log.New(os.Stderr, "[messagehub] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, redisURL, usersURL, fanoutDriver, allowedOrigins, strictFrames)
	if err != nil {
		logger.Fatal("config:", err)
	}

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		logger.Fatal("migrate:", err)
	}

	repo := store.NewPgRepository(db)
	tracker := presence.NewPgTracker(db, logger)

	var bus fanout.Bus
	switch cfg.FanoutDriver {
	case config.FanoutMemory:
		bus = fanout.NewMemoryBus()
	default:
		bus, err = fanout.NewRedisBus(cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("redis:", err)
		}
	}
	defer bus.Close()

	mailQueue, err := notify.NewAsynqMailQueue(cfg.RedisURL)
	if err != nil {
		logger.Fatal("mail queue:", err)
	}
	defer mailQueue.Close()

	profiles := notify.NewHTTPProfileClient(cfg.UsersServiceURL)
	escalator := notify.NewEmailEscalator(tracker, profiles, mailQueue, logger)

	mux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(mux)

	gateway := server.NewGateway(logger, repo, tracker, bus, escalator, statsUpdater, cfg.StrictFrames)

	app := api.NewApp(mux, logger, gateway, repo, bus, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down gateway...")
	gateway.Shutdown()

	logger.Println("shutdown complete")
}
