package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/pkg/logger"
)

// SmartAlertCreator creates smart alerts for the configured top assets.
type SmartAlertCreator interface {
	GenerateAutomaticAlerts(ctx context.Context, owner string) ([]model.PriceAlert, map[string]error)
}

type SmartAlertGenerator interface {
	JobExecutionStrategy
}

type SmartAlertGeneratorPayload struct {
	Owner string `json:"owner"`
}

type SmartAlertGeneratorResult struct {
	AssetID    string `json:"asset_id"`
	AlertID    string `json:"alert_id,omitempty"`
	SignalType string `json:"signal_type,omitempty"`
	Error      string `json:"error,omitempty"`
}

type SmartAlertGeneratorStrategy struct {
	cfg     *config.Config
	log     *logger.Logger
	creator SmartAlertCreator
}

func NewSmartAlertGeneratorStrategy(cfg *config.Config, log *logger.Logger, creator SmartAlertCreator) SmartAlertGenerator {
	return &SmartAlertGeneratorStrategy{
		cfg:     cfg,
		log:     log,
		creator: creator,
	}
}

func (s *SmartAlertGeneratorStrategy) GetType() JobType {
	return JobTypeSmartAlertGenerator
}

func (s *SmartAlertGeneratorStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	var payload SmartAlertGeneratorPayload
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.StringField("job_name", job.Name))
			return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)}, fmt.Errorf("failed to unmarshal job payload: %w", err)
		}
	}
	if payload.Owner == "" {
		payload.Owner = s.cfg.Alert.SystemOwner
	}

	created, errs := s.creator.GenerateAutomaticAlerts(ctx, payload.Owner)

	results := make([]SmartAlertGeneratorResult, 0, len(created)+len(errs))
	for _, a := range created {
		results = append(results, SmartAlertGeneratorResult{AssetID: a.AssetID, AlertID: a.ID, SignalType: a.SignalType})
	}
	onlyNoSignal := true
	for assetID, err := range errs {
		if !errors.Is(err, dto.ErrNoSignal) {
			onlyNoSignal = false
		}
		results = append(results, SmartAlertGeneratorResult{AssetID: assetID, Error: err.Error()})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].AssetID < results[j].AssetID })

	res, err := json.Marshal(results)
	if err != nil {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", err)}, fmt.Errorf("failed to marshal output message: %w", err)
	}

	exitCode := int32(JOB_EXIT_CODE_SUCCESS)
	switch {
	case len(errs) == 0 && len(created) == 0:
		exitCode = JOB_EXIT_CODE_SKIPPED
	case len(errs) > 0 && len(created) == 0 && onlyNoSignal:
		exitCode = JOB_EXIT_CODE_SKIPPED
	case len(errs) > 0:
		exitCode = JOB_EXIT_CODE_PARTIAL_SUCCESS
	}

	s.log.InfoContext(ctx, "Smart alert generation finished",
		logger.StringField("owner", payload.Owner),
		logger.IntField("created", len(created)),
		logger.IntField("failed", len(errs)),
	)
	return JobResult{ExitCode: exitCode, Output: string(res)}, nil
}
