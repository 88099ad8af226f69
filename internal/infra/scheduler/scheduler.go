package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"finance_automation/internal/app"
	"finance_automation/internal/infra/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var ErrUnknownJob = errors.New("unknown job")

// JobFunc is one unit of scheduled work.
type JobFunc func(ctx context.Context) (app.RunStats, error)

// JobSpec binds a job name to its cron expression. TimeZone is applied through the
// CRON_TZ prefix so each job can be evaluated in its own zone.
type JobSpec struct {
	Name     string
	Spec     string
	TimeZone string
	Run      JobFunc
}

// JobStatus is the externally visible state of one job.
type JobStatus struct {
	Name         string       `json:"name"`
	Spec         string       `json:"spec"`
	TimeZone     string       `json:"time_zone,omitempty"`
	Running      bool         `json:"running"`
	NextRun      time.Time    `json:"next_run"`
	Runs         int          `json:"runs"`
	Skips        int          `json:"skips"`
	LastRunID    string       `json:"last_run_id,omitempty"`
	LastStarted  time.Time    `json:"last_started,omitempty"`
	LastFinished time.Time    `json:"last_finished,omitempty"`
	LastStats    app.RunStats `json:"last_stats"`
	LastError    string       `json:"last_error,omitempty"`
}

type registeredJob struct {
	spec     JobSpec
	schedule cron.Schedule
	status   JobStatus
}

type NotificationScheduler struct {
	cronEngine *cron.Cron
	guard      *Guard
	timeout    time.Duration
	logger     *logrus.Entry

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

func NewNotificationScheduler(guard *Guard, timeout time.Duration, log *logrus.Entry) *NotificationScheduler {
	cl := logger.NewCronLogger(log.WithField("source", "cron"))
	return &NotificationScheduler{
		cronEngine: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		guard:      guard,
		timeout:    timeout,
		logger:     log,
		jobs:       make(map[string]*registeredJob),
	}
}

func cronExpression(spec JobSpec) string {
	if spec.TimeZone == "" {
		return spec.Spec
	}
	return fmt.Sprintf("CRON_TZ=%s %s", spec.TimeZone, spec.Spec)
}

// Register adds a job. It must be called before Start.
func (s *NotificationScheduler) Register(spec JobSpec) error {
	if spec.Name == "" || spec.Run == nil {
		return fmt.Errorf("job needs a name and a body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[spec.Name]; ok {
		return fmt.Errorf("job %s registered twice", spec.Name)
	}

	expr := cronExpression(spec)
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", expr, spec.Name, err)
	}
	name := spec.Name
	s.cronEngine.Schedule(schedule, cron.FuncJob(func() {
		_, _ = s.execute(context.Background(), name)
	}))
	s.jobs[name] = &registeredJob{
		spec:     spec,
		schedule: schedule,
		status:   JobStatus{Name: name, Spec: spec.Spec, TimeZone: spec.TimeZone},
	}
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": expr}).Info("Job registered")
	return nil
}

func (s *NotificationScheduler) Start() {
	s.logger.Info("Starting job scheduler...")
	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.jobs)).Info("Job scheduler started")
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping job scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Job scheduler gracefully stopped.")
}

// RunNow executes a job immediately through the same guard the cron ticks use.
func (s *NotificationScheduler) RunNow(ctx context.Context, name string) (app.RunStats, error) {
	s.mu.RLock()
	_, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return app.RunStats{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, name)
}

func (s *NotificationScheduler) execute(ctx context.Context, name string) (app.RunStats, error) {
	s.mu.RLock()
	job := s.jobs[name]
	s.mu.RUnlock()

	runID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{"job": name, "run_id": runID})
	started := time.Now().UTC()

	var (
		statsMu sync.Mutex
		stats   app.RunStats
	)
	ran, err := s.guard.Run(ctx, name, s.timeout, func(ctx context.Context) error {
		log.Info("Job triggered")
		st, err := job.spec.Run(ctx)
		statsMu.Lock()
		stats = st
		statsMu.Unlock()
		return err
	})
	if !ran && err == nil {
		s.mu.Lock()
		job.status.Skips++
		s.mu.Unlock()
		return app.RunStats{}, ErrJobAlreadyRunning
	}

	statsMu.Lock()
	result := stats
	statsMu.Unlock()

	s.mu.Lock()
	job.status.Runs++
	job.status.LastRunID = runID
	job.status.LastStarted = started
	job.status.LastFinished = time.Now().UTC()
	job.status.LastStats = result
	job.status.LastError = ""
	if err != nil {
		job.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		log.WithError(err).WithFields(result.Fields()).Error("Job failed")
		return result, err
	}
	log.WithFields(result.Fields()).WithField("duration", time.Since(started).String()).Info("Job finished")
	return result, nil
}

// Snapshot returns the status of every registered job ordered by name.
func (s *NotificationScheduler) Snapshot() []JobStatus {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for name, job := range s.jobs {
		st := job.status
		st.Running = s.guard.Running(name)
		st.NextRun = job.schedule.Next(now).UTC()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Jobs lists the registered job names in order.
func (s *NotificationScheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
