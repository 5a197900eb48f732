package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/db"
	"github.com/escrowdesk/backend/internal/events"
	"github.com/escrowdesk/backend/internal/services"
	"go.uber.org/zap"
)

// notify-bridge relays deal events from redis to the bot's internal API. It
// is split from the worker so notification backpressure never delays sweeps.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	notifier := services.NewNotifyClient(cfg.BotInternalURL, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	err = subscriber.Subscribe(ctx, events.DealStream, func(event events.Event) {
		sendCtx, sendCancel := context.WithTimeout(ctx, 20*time.Second)
		defer sendCancel()
		if err := notifier.SendDealEvent(sendCtx, event); err != nil {
			log.Warn("failed to deliver deal event",
				zap.String("type", event.Type),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		log.Fatal("failed to subscribe to deal events", zap.Error(err))
	}

	log.Info("notify bridge started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down notify bridge")
	cancel()
}
