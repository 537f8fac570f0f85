package service

import (
	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/notifier"
	"signal-alert-engine/internal/repository"
	"signal-alert-engine/internal/strategy"
	"signal-alert-engine/pkg/cache"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
)

type Service struct {
	SchedulerService SchedulerService
	TaskExecutor     TaskExecutor
	SignalService    SignalService
	AlertService     AlertService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	signalCache *cache.FlightCache[[]dto.TradingSignal],
	dispatcher notifier.Dispatcher,
	rec *metrics.Recorder,
) (*Service, error) {
	signalService := NewSignalService(cfg, log, repo.CandleRepo, repo.SentimentRepo, repo.OnChainRepo, signalCache, rec)
	alertService := NewAlertService(cfg, log, repo.AlertRepo, repo.PriceFeedRepo, repo.SentimentRepo, signalService, dispatcher, rec)

	executorStrategies := make(map[strategy.JobType]strategy.JobExecutionStrategy)
	executorStrategies[strategy.JobTypeAlertTriggerCheck] = strategy.NewAlertTriggerCheckStrategy(cfg, log, alertService)
	executorStrategies[strategy.JobTypeSmartAlertGenerator] = strategy.NewSmartAlertGeneratorStrategy(cfg, log, alertService)
	executorStrategies[strategy.JobTypeAlertCleanUp] = strategy.NewAlertCleanUpStrategy(cfg, log, alertService)

	taskExecutor := NewTaskExecutor(cfg, log, rec, executorStrategies)

	schedulerService, err := NewSchedulerService(cfg, log, taskExecutor)
	if err != nil {
		return nil, err
	}
	return &Service{
		SchedulerService: schedulerService,
		TaskExecutor:     taskExecutor,
		SignalService:    signalService,
		AlertService:     alertService,
	}, nil
}
