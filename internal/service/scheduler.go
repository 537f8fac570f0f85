package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/utils"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = time.Minute

type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
	GetJobSchedule(ctx context.Context) []model.JobStatus
	RunJobTask(ctx context.Context, name string) (*model.JobRun, error)
}

type schedulerService struct {
	cfg          *config.Config
	log          *logger.Logger
	cronParser   cron.Parser
	cron         *cron.Cron
	taskExecutor TaskExecutor
	semaphore    chan struct{}

	jobs    []model.Job
	entries map[string]cron.EntryID

	mu      sync.RWMutex
	lastRun map[string]*model.JobRun
	wg      sync.WaitGroup
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	taskExecutor TaskExecutor,
) (SchedulerService, error) {
	maxConcurrency := cfg.Scheduler.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	s := &schedulerService{
		cfg:          cfg,
		log:          log,
		cronParser:   parser,
		cron:         cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		taskExecutor: taskExecutor,
		semaphore:    make(chan struct{}, maxConcurrency),
		entries:      make(map[string]cron.EntryID),
		lastRun:      make(map[string]*model.JobRun),
	}

	seen := make(map[string]bool, len(cfg.Scheduler.Jobs))
	for _, jc := range cfg.Scheduler.Jobs {
		if seen[jc.Name] {
			return nil, fmt.Errorf("duplicate job name %q", jc.Name)
		}
		seen[jc.Name] = true

		if _, err := parser.Parse(jc.Spec); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q for job %s: %w", jc.Spec, jc.Name, err)
		}
		job := model.Job{
			Name:    jc.Name,
			Type:    jc.Type,
			Spec:    jc.Spec,
			Timeout: jc.Timeout,
		}
		if len(jc.Payload) > 0 {
			payload, err := json.Marshal(jc.Payload)
			if err != nil {
				return nil, fmt.Errorf("invalid payload for job %s: %w", jc.Name, err)
			}
			job.Payload = payload
		}
		if job.Timeout <= 0 {
			job.Timeout = defaultJobTimeout
		}
		s.jobs = append(s.jobs, job)
	}
	return s, nil
}

// Start registers every configured job on the cron runner. Jobs stop being
// scheduled when ctx ends.
func (s *schedulerService) Start(ctx context.Context) error {
	for i := range s.jobs {
		job := s.jobs[i]
		id, err := s.cron.AddFunc(job.Spec, func() {
			if ctx.Err() != nil {
				return
			}
			if _, err := s.executeJob(ctx, job); err != nil {
				s.log.WarnContext(ctx, "Scheduled job not run", logger.StringField("job_name", job.Name), logger.ErrorField(err))
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}
		s.entries[job.Name] = id
	}

	s.log.InfoContext(ctx, "Scheduler started",
		logger.IntField("job_count", len(s.jobs)),
		logger.IntField("max_concurrency", cap(s.semaphore)),
	)
	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *schedulerService) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

// executeJob waits for a free slot, then runs the job with its own timeout.
// The run is detached from ctx once started.
func (s *schedulerService) executeJob(ctx context.Context, job model.Job) (*model.JobRun, error) {
	select {
	case s.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() {
		<-s.semaphore
	}()

	s.wg.Add(1)
	defer s.wg.Done()

	s.log.DebugContext(ctx, "Executing job",
		logger.StringField("job_name", job.Name),
		logger.StringField("job_type", job.Type),
		logger.DurationField("timeout", job.Timeout),
		logger.IntField("active_concurrency", len(s.semaphore)),
		logger.IntField("max_concurrency", cap(s.semaphore)),
	)

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), job.Timeout)
	defer cancel()

	run := s.taskExecutor.Execute(jobCtx, &job)

	s.mu.Lock()
	s.lastRun[job.Name] = run
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Job execution completed",
		logger.StringField("job_name", job.Name),
		logger.StringField("status", run.Status),
		logger.IntField("exit_code", int(run.ExitCode)),
	)
	return run, nil
}

func (s *schedulerService) GetJobSchedule(ctx context.Context) []model.JobStatus {
	now := utils.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		status := model.JobStatus{Job: job}
		if sched, err := s.cronParser.Parse(job.Spec); err == nil {
			next := sched.Next(now)
			status.NextRun = &next
		}
		if run, ok := s.lastRun[job.Name]; ok {
			copied := *run
			status.LastRun = &copied
		}
		out = append(out, status)
	}
	return out
}

// RunJobTask runs a configured job immediately and waits for its result.
func (s *schedulerService) RunJobTask(ctx context.Context, name string) (*model.JobRun, error) {
	for _, job := range s.jobs {
		if job.Name == name {
			s.log.InfoContext(ctx, "Running job task", logger.StringField("job_name", name))
			return s.executeJob(ctx, job)
		}
	}
	return nil, fmt.Errorf("%w: %s", dto.ErrJobNotFound, name)
}
