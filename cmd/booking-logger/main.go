package main // Background consumer appending booking events to logs/booking.log

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/cinema-booking-gateway/internal/config"
	"github.com/iliyamo/cinema-booking-gateway/internal/logger"
	"github.com/iliyamo/cinema-booking-gateway/internal/queue"
)

func main() {
	cfg := config.LoadConsumer()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.AMQPURL, LogDir: cfg.LogDir, Log: log}
	log.Info("booking-consumer: starting", "queue", queue.QueueName, "log_dir", c.LogDir)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("booking-consumer: stopped", "error", err)
		os.Exit(1)
	}
}
