package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
)

const (
	historySuccess         = "success"
	historyFailure         = "failure"
	historyHandlerNotFound = "handler_not_found"
)

// Runner picks up due scheduled tasks and executes their handlers
type Runner struct {
	db       *gorm.DB
	registry *Registry
	deps     Deps
	log      *zap.Logger
	now      func() time.Time
}

func NewRunner(db *gorm.DB, registry *Registry, deps Deps, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Log == nil {
		deps.Log = log
	}
	if deps.DB == nil {
		deps.DB = db
	}
	return &Runner{db: db, registry: registry, deps: deps, log: log.Named("worker"), now: time.Now}
}

// WithClock replaces the time source used for due checks and history rows
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run processes due tasks once, then on every tick of the cron schedule until
// ctx is cancelled. It returns after the in-flight pass has finished.
func (r *Runner) Run(ctx context.Context, schedule string) error {
	tick := func() {
		if _, err := r.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("processing scheduled tasks failed", zap.Error(err))
		}
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(schedule, tick); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	tick()
	if ctx.Err() == nil {
		c.Start()
		<-ctx.Done()
	}
	<-c.Stop().Done()
	return nil
}

// ProcessDue executes every active task whose due time has passed and
// returns how many were picked up
func (r *Runner) ProcessDue(ctx context.Context) (int, error) {
	var pending []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due, id").
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending tasks: %w", err)
	}

	if len(pending) == 0 {
		r.log.Debug("no pending tasks")
		return 0, nil
	}
	r.log.Info("found pending tasks", zap.Int("count", len(pending)))

	processed := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		r.Execute(ctx, task)
		processed++
	}
	return processed, nil
}

// Execute runs one task, retrying up to its MaxAttempt, and records each
// attempt in the task history
func (r *Runner) Execute(ctx context.Context, task models.ScheduledTask) {
	log := r.log.With(zap.String("task", task.TaskName), zap.Uint("task_id", task.ID))
	if task.Arguments == nil {
		task.Arguments = make(map[string]interface{})
	}

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		log.Error("task handler not found, marking as failure")
		now := r.now()
		r.recordHistory(ctx, task, now, 0, historyHandlerNotFound, 1, map[string]interface{}{"error": "handler not found"})
		r.updateTask(ctx, task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		return
	}

	maxAttempt := task.MaxAttempt
	if maxAttempt < 1 {
		maxAttempt = 1
	}

	var (
		startTime time.Time
		succeeded bool
	)
	for attempt := 1; attempt <= maxAttempt; attempt++ {
		startTime = r.now()
		began := time.Now()
		result, err := handler(ctx, r.deps, task)
		runtimeMs := int(time.Since(began).Milliseconds())

		if err == nil {
			log.Info("task completed", zap.Int("attempt", attempt))
			r.recordHistory(ctx, task, startTime, runtimeMs, historySuccess, attempt, result)
			succeeded = true
			break
		}

		log.Warn("task attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		resultData := map[string]interface{}{"error": err.Error()}
		for k, v := range result {
			resultData[k] = v
		}
		r.recordHistory(ctx, task, startTime, runtimeMs, historyFailure, attempt, resultData)
		if ctx.Err() != nil {
			break
		}
	}

	updates := map[string]interface{}{"last_run": &startTime}
	switch {
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		// a failed occurrence still moves on to the next one
		nextDue := task.NextDue(r.now())
		if nextDue.After(task.Due) {
			updates["status"] = models.ScheduledTaskStatusActive
			updates["due"] = nextDue
		} else if succeeded {
			updates["status"] = models.ScheduledTaskStatusDone
		} else {
			updates["status"] = models.ScheduledTaskStatusFailure
		}
	case succeeded:
		updates["status"] = models.ScheduledTaskStatusDone
	default:
		updates["status"] = models.ScheduledTaskStatusFailure
	}
	r.updateTask(ctx, task, updates)
}

func (r *Runner) recordHistory(ctx context.Context, task models.ScheduledTask, runAt time.Time, runtimeMs int, status string, attempt int, result map[string]interface{}) {
	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		RuntimeMs:       runtimeMs,
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := r.db.WithContext(context.WithoutCancel(ctx)).Create(&history).Error; err != nil {
		r.log.Error("failed to record task history", zap.Uint("task_id", task.ID), zap.Error(err))
	}
}

func (r *Runner) updateTask(ctx context.Context, task models.ScheduledTask, updates map[string]interface{}) {
	err := r.db.WithContext(context.WithoutCancel(ctx)).
		Model(&models.ScheduledTask{}).
		Where("id = ?", task.ID).
		Updates(updates).Error
	if err != nil {
		r.log.Error("failed to update scheduled task", zap.Uint("task_id", task.ID), zap.Error(err))
	}
}
