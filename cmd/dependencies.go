package cmd

import (
	"context"
	"errors"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/notifier"
	"signal-alert-engine/pkg/cache"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/postgres"
	"signal-alert-engine/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type AppDependency struct {
	db          *postgres.DB
	cfg         *config.Config
	log         *logger.Logger
	echo        *echo.Echo
	metrics     *metrics.Recorder
	redis       *redis.Client
	signalCache *cache.FlightCache[[]dto.TradingSignal]
	telegram    *telegram.TelegramRateLimiter
	natsConn    *nats.Conn
	kafka       *kafka.Writer
	dispatcher  notifier.Dispatcher
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	dep := &AppDependency{
		cfg:     cfg,
		log:     log,
		echo:    echo.New(),
		metrics: metrics.New(),
	}

	if cfg.Alert.StoreDriver != "memory" {
		dep.db, err = postgres.NewDB(ctx, cfg.DB, log)
		if err != nil {
			log.Error("Failed to connect to database", logger.ErrorField(err))
			return nil, err
		}
	}

	cacheOpts := []cache.FlightOption[[]dto.TradingSignal]{
		cache.WithObserver[[]dto.TradingSignal](func(name string, outcome cache.Outcome) {
			dep.metrics.RecordCache(name, string(outcome))
		}),
		cache.WithComputeTimeout[[]dto.TradingSignal](cfg.Signal.ComputeTimeout),
	}
	if cfg.Redis.Enabled {
		dep.redis, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// the shared tier is optional; run with the local cache only
			log.Warn("Redis unavailable, using local signal cache only", logger.ErrorField(err))
		} else {
			cacheOpts = append(cacheOpts, cache.WithRemote[[]dto.TradingSignal](cache.NewRedisStore(dep.redis, cfg.Redis.Prefix)))
		}
	}
	dep.signalCache = cache.NewFlightCache[[]dto.TradingSignal]("signals", cfg.Signal.CacheTTL, log, cacheOpts...)

	sinks := []notifier.Notifier{notifier.NewLogNotifier(log)}

	if cfg.Telegram.Enabled {
		bot, err := telegram.NewBot(cfg.Telegram)
		if err != nil {
			dep.Close()
			return nil, err
		}
		dep.telegram = telegram.NewTelegramRateLimiter(cfg.Telegram, log, bot)
		sinks = append(sinks, notifier.NewTelegramNotifier(dep.telegram, cfg.Telegram.ChatID, cfg.Telegram.OwnerChats))
	}

	if cfg.NATS.Enabled {
		dep.natsConn, err = notifier.ConnectNATS(cfg.NATS, log)
		if err != nil {
			dep.Close()
			return nil, err
		}
		sinks = append(sinks, notifier.NewNATSNotifier(dep.natsConn, cfg.NATS.Subject))
	}

	if cfg.Kafka.Enabled {
		dep.kafka = notifier.NewKafkaWriter(cfg.Kafka)
		sinks = append(sinks, notifier.NewKafkaNotifier(dep.kafka))
	}

	dep.dispatcher = notifier.NewDispatcher(log, dep.metrics, cfg.Alert.NotifyTimeout, sinks...)
	return dep, nil
}

// Close waits for in-flight notifications, then releases connections.
func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.dispatcher != nil {
		d.dispatcher.Wait()
	}

	var errs []error
	if d.kafka != nil {
		errs = append(errs, d.kafka.Close())
	}
	if d.natsConn != nil {
		errs = append(errs, d.natsConn.Drain())
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	_ = d.log.Sync()
	return errors.Join(errs...)
}

func (d *AppDependency) gormDB() *gorm.DB {
	if d.db == nil {
		return nil
	}
	return d.db.DB
}
