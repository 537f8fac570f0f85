package notifier

import (
	"context"
	"sync"
	"time"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/utils"
)

// Notifier delivers a triggered alert to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event dto.NotificationEvent) error
}

// Dispatcher fans an event out to every configured sink without waiting for
// delivery. Wait blocks until deliveries already started have finished.
type Dispatcher interface {
	Dispatch(ctx context.Context, event dto.NotificationEvent)
	Wait()
}

type dispatcher struct {
	sinks   []Notifier
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Recorder
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher that calls each sink in its own goroutine,
// bounded by timeout. Delivery is detached from the caller's cancellation.
func NewDispatcher(log *logger.Logger, rec *metrics.Recorder, timeout time.Duration, sinks ...Notifier) Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &dispatcher{
		sinks:   sinks,
		timeout: timeout,
		log:     log,
		metrics: rec,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, event dto.NotificationEvent) {
	detached := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		sink := sink
		d.wg.Add(1)
		utils.GoSafe(d.log, func() {
			defer d.wg.Done()

			sinkCtx, cancel := context.WithTimeout(detached, d.timeout)
			defer cancel()

			err := sink.Notify(sinkCtx, event)
			d.metrics.RecordNotification(sink.Name(), err)
			if err != nil {
				d.log.WarnContext(sinkCtx, "Failed to deliver alert notification",
					logger.StringField("sink", sink.Name()),
					logger.StringField("alert_id", event.AlertID),
					logger.ErrorField(err),
				)
			}
		})
	}
}

func (d *dispatcher) Wait() {
	d.wg.Wait()
}

type logNotifier struct {
	log *logger.Logger
}

// NewLogNotifier writes events to the structured log. It is always enabled so
// a trigger is never silent.
func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) Name() string { return "log" }

func (n *logNotifier) Notify(ctx context.Context, event dto.NotificationEvent) error {
	n.log.InfoContext(ctx, "Price alert triggered",
		logger.StringField("alert_id", event.AlertID),
		logger.StringField("owner", event.Owner),
		logger.StringField("asset_id", event.AssetID),
		logger.StringField("condition", event.Condition),
		logger.FloatField("target_price", event.TargetPrice),
		logger.FloatField("price", event.Price),
		logger.StringField("currency", event.Currency),
	)
	return nil
}
