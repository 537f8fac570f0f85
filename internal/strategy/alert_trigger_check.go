package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/pkg/logger"
)

// TriggerChecker runs one trigger pass over every pending alert.
type TriggerChecker interface {
	CheckAll(ctx context.Context) ([]model.PriceAlert, error)
}

type AlertTriggerCheck interface {
	JobExecutionStrategy
}

type AlertTriggerCheckResult struct {
	AlertID  string  `json:"alert_id"`
	Owner    string  `json:"owner"`
	AssetID  string  `json:"asset_id"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

type AlertTriggerCheckStrategy struct {
	cfg     *config.Config
	log     *logger.Logger
	checker TriggerChecker
}

func NewAlertTriggerCheckStrategy(cfg *config.Config, log *logger.Logger, checker TriggerChecker) AlertTriggerCheck {
	return &AlertTriggerCheckStrategy{
		cfg:     cfg,
		log:     log,
		checker: checker,
	}
}

func (s *AlertTriggerCheckStrategy) GetType() JobType {
	return JobTypeAlertTriggerCheck
}

func (s *AlertTriggerCheckStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	triggered, checkErr := s.checker.CheckAll(ctx)

	results := make([]AlertTriggerCheckResult, 0, len(triggered))
	for _, a := range triggered {
		result := AlertTriggerCheckResult{
			AlertID:  a.ID,
			Owner:    a.Owner,
			AssetID:  a.AssetID,
			Currency: a.Currency,
		}
		if a.TriggeredPrice != nil {
			result.Price = *a.TriggeredPrice
		}
		results = append(results, result)
	}

	if checkErr != nil {
		s.log.ErrorContext(ctx, "Alert trigger check finished with errors",
			logger.ErrorField(checkErr),
			logger.StringField("job_name", job.Name),
			logger.IntField("triggered", len(results)),
		)
		exitCode := int32(JOB_EXIT_CODE_FAILED)
		if len(results) > 0 {
			exitCode = JOB_EXIT_CODE_PARTIAL_SUCCESS
		}
		return JobResult{ExitCode: exitCode, Output: checkErr.Error()}, fmt.Errorf("alert trigger check: %w", checkErr)
	}

	if len(results) == 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "no alerts triggered"}, nil
	}

	res, err := json.Marshal(results)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", err)}, fmt.Errorf("failed to marshal output message: %w", err)
	}
	s.log.InfoContext(ctx, "Alert trigger check finished", logger.IntField("triggered", len(results)))
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(res)}, nil
}
