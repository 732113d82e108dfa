package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"isp_billing_echo/internal/models"
)

// MonthlyBillingRule runs billing on the first day of every month
const MonthlyBillingRule = "FREQ=MONTHLY;BYMONTHDAY=1"

// RunBillingArgs defines the arguments for a billing run. An empty period
// bills the period current at execution time.
type RunBillingArgs struct {
	Period string `json:"period,omitempty"`
}

// RunBillingTaskDef encapsulates the monthly billing run
type RunBillingTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *RunBillingTaskDef) TaskID() string {
	return "run_billing"
}

// CreateTask builds a ScheduledTask record for this task. A non-empty rule
// makes it recurring.
func (t *RunBillingTaskDef) CreateTask(args RunBillingArgs, due time.Time, rule string, maxAttempt int) (*models.ScheduledTask, error) {
	if rule == "" {
		return BuildScheduledTask(t.TaskID(), args, due, nil, models.ScheduledTaskTypeOneTime, maxAttempt)
	}
	return BuildScheduledTask(t.TaskID(), args, due, &rule, models.ScheduledTaskTypeRecurring, maxAttempt)
}

// HandleExecution creates and processes the billing cycles of the period
func (t *RunBillingTaskDef) HandleExecution(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	var args RunBillingArgs
	if err := decodeArgs(task.Arguments, &args); err != nil {
		return nil, err
	}

	result, err := deps.Billing.RunBilling(ctx, args.Period)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"period":           result.Period,
		"created":          result.Created,
		"invoices_created": result.InvoicesCreated,
	}, nil
}

// RunBillingTask is the singleton instance of RunBillingTaskDef
var RunBillingTask = &RunBillingTaskDef{}

// FlagPendingCyclesTaskDef reports billing cycles that a finished run left
// PENDING, so someone can look at why they were never invoiced.
type FlagPendingCyclesTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *FlagPendingCyclesTaskDef) TaskID() string {
	return "flag_pending_cycles"
}

// HandleExecution counts leftover PENDING cycles, the current period
// included, and mails the alert address when there are any
func (t *FlagPendingCyclesTaskDef) HandleExecution(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	cycles, err := deps.Billing.StalePendingCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending cycles: %w", err)
	}

	periods := lo.Uniq(lo.Map(cycles, func(c models.BillingCycle, _ int) string { return c.Period }))
	result := map[string]interface{}{
		"pending": len(cycles),
		"periods": periods,
	}
	if len(cycles) == 0 {
		return result, nil
	}

	deps.Log.Warn("billing cycles left pending",
		zap.Int("count", len(cycles)),
		zap.Strings("periods", periods),
	)

	if deps.AlertEmail == "" || !deps.Email.Configured() {
		result["notified"] = false
		return result, nil
	}

	body := fmt.Sprintf("%d billing cycle(s) are still PENDING for period(s): %s.\n"+
		"Re-run billing for these periods or check the customers' plans.",
		len(cycles), strings.Join(periods, ", "))
	if err := deps.Email.SendEmail([]string{deps.AlertEmail}, "Billing cycles left pending", body); err != nil {
		return result, err
	}
	result["notified"] = true
	return result, nil
}

// FlagPendingCyclesTask is the singleton instance of FlagPendingCyclesTaskDef
var FlagPendingCyclesTask = &FlagPendingCyclesTaskDef{}
