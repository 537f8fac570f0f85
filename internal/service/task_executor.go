package service

import (
	"context"
	"fmt"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/internal/strategy"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/utils"
)

type TaskExecutor interface {
	Execute(ctx context.Context, job *model.Job) *model.JobRun
}

type taskExecutor struct {
	cfg                *config.Config
	log                *logger.Logger
	metrics            *metrics.Recorder
	executorStrategies map[strategy.JobType]strategy.JobExecutionStrategy
}

func NewTaskExecutor(cfg *config.Config, log *logger.Logger, rec *metrics.Recorder, executorStrategies map[strategy.JobType]strategy.JobExecutionStrategy) TaskExecutor {
	return &taskExecutor{
		cfg:                cfg,
		log:                log,
		metrics:            rec,
		executorStrategies: executorStrategies,
	}
}

// Execute runs the job's strategy and reports the outcome as a JobRun. It
// never returns an error; failures are recorded on the run.
func (t *taskExecutor) Execute(ctx context.Context, job *model.Job) *model.JobRun {
	t.log.InfoContext(ctx, "Processing job", logger.StringField("job_name", job.Name), logger.StringField("job_type", job.Type))

	run := &model.JobRun{
		JobName:   job.Name,
		Type:      job.Type,
		Status:    model.StatusRunning,
		StartedAt: utils.Now(),
	}
	defer t.metrics.ObserveSince("job_"+job.Type, run.StartedAt)

	executor := t.executorStrategies[strategy.JobType(job.Type)]
	if executor == nil {
		t.log.ErrorContext(ctx, "Job type not found", logger.StringField("job_name", job.Name), logger.StringField("job_type", job.Type))
		run.Status = model.StatusFailed
		run.ExitCode = strategy.JOB_EXIT_CODE_FAILED
		run.ErrorMessage = fmt.Sprintf("job type %q not found", job.Type)
	} else {
		result, err := executor.Execute(ctx, job)
		if err != nil {
			t.log.ErrorContext(ctx, "Failed to execute job", logger.ErrorField(err), logger.StringField("job_name", job.Name))
			run.Status = model.StatusFailed
			run.ErrorMessage = err.Error()
		} else {
			run.Status = model.StatusCompleted
		}
		run.ExitCode = result.ExitCode
		run.Output = result.Output
	}

	completed := utils.Now()
	run.CompletedAt = &completed
	return run
}
