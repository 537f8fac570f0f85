package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/utils"
)

// TriggeredAlertPurger removes alerts that triggered before a cut-off.
type TriggeredAlertPurger interface {
	CleanupTriggered(ctx context.Context, olderThan time.Time) (int64, error)
}

type AlertCleaner interface {
	JobExecutionStrategy
}

type AlertCleanUpPayload struct {
	RetentionDays int `json:"retention_days"`
}

type AlertCleanUpResult struct {
	Table string `json:"table"`
	Total int64  `json:"total"`
	Error string `json:"error,omitempty"`
}

type AlertCleanUpStrategy struct {
	cfg    *config.Config
	log    *logger.Logger
	purger TriggeredAlertPurger
}

func NewAlertCleanUpStrategy(cfg *config.Config, log *logger.Logger, purger TriggeredAlertPurger) AlertCleaner {
	return &AlertCleanUpStrategy{
		cfg:    cfg,
		log:    log,
		purger: purger,
	}
}

func (s *AlertCleanUpStrategy) GetType() JobType {
	return JobTypeAlertCleanUp
}

func (s *AlertCleanUpStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	s.log.InfoContext(ctx, "Starting alert clean up")

	payload := AlertCleanUpPayload{RetentionDays: s.cfg.Alert.RetentionDays}
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.StringField("job_name", job.Name))
			return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)}, fmt.Errorf("failed to unmarshal job payload: %w", err)
		}
	}
	if payload.RetentionDays <= 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_SKIPPED, Output: "retention disabled"}, nil
	}

	date := utils.DaysAgo(payload.RetentionDays)
	totalDeleted, err := s.purger.CleanupTriggered(ctx, date)
	result := AlertCleanUpResult{Table: "price_alerts", Total: totalDeleted}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to delete triggered alerts", logger.ErrorField(err), logger.StringField("job_name", job.Name))
		result.Error = fmt.Sprintf("failed to delete alerts triggered before %v: %v", date, err)
	}

	res, marshalErr := json.Marshal([]AlertCleanUpResult{result})
	if marshalErr != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", marshalErr)}, fmt.Errorf("failed to marshal output message: %w", marshalErr)
	}
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: string(res)}, err
	}
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(res)}, nil
}
