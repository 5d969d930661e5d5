package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"messagehub/internal/mailer"
	"messagehub/internal/notify"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var (
	redisURL    string
	apiKey      string
	fromEmail   string
	fromName    string
	concurrency int
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	flag.StringVar(&redisURL, "redis-url", envOrDefault("REDIS_URL", "redis://localhost:6379"), "redis URL for the mail queue")
	flag.StringVar(&apiKey, "api-key", os.Getenv("BREVO_API_KEY"), "transactional email API key; emails are logged when empty")
	flag.StringVar(&fromEmail, "from-email", envOrDefault("FROM_EMAIL", "noreply@messagehub.local"), "sender address")
	flag.StringVar(&fromName, "from-name", envOrDefault("FROM_NAME", "MessageHub"), "sender display name")
	flag.IntVar(&concurrency, "concurrency", 10, "number of concurrent workers")
	flag.Parse()

	logger := log.New(os.Stderr, "[mailer] ", log.LstdFlags)

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		logger.Fatal("parse redis url:", err)
	}

	var sender mailer.Sender
	if apiKey != "" {
		sender = mailer.NewBrevoSender(apiKey, fromEmail, fromName)
	} else {
		logger.Println("no API key configured, emails will be logged only")
		sender = mailer.NewLogSender(logger)
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{notify.MailQueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Printf("task %s failed: %v", task.Type(), err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(notify.TaskNewMessageEmail, mailer.NewMessageHandler(sender, logger))

	logger.Println("mailer waiting for notification tasks")
	if err := srv.Run(mux); err != nil {
		logger.Fatal("run:", err)
	}
}
