package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"frs/internal/config"
	"frs/internal/jobs"
	"frs/internal/mail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// The worker delivers what the server queued, so "queue" means SMTP here.
	var sender mail.EmailSender = mail.NewSMTPSender(cfg.Mail.SMTP())
	if cfg.Mail.Transport == "log" {
		sender = mail.NewLogSender(logger)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		},
		Logger: logger,
		Sender: sender,
		Queue:  cfg.Mail.Queue,
	})
	if err != nil {
		log.Fatalf("worker init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
