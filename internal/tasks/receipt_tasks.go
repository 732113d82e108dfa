package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
)

// SendPaymentReceiptArgs names the payments of one collection
type SendPaymentReceiptArgs struct {
	PaymentIDs []uint `json:"payment_ids"`
}

// SendPaymentReceiptTaskDef sends the customer a WhatsApp receipt after a
// collection
type SendPaymentReceiptTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *SendPaymentReceiptTaskDef) TaskID() string {
	return "send_payment_receipt"
}

// HandleExecution loads the payments and messages the customer's phone
func (t *SendPaymentReceiptTaskDef) HandleExecution(ctx context.Context, deps Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SendPaymentReceiptArgs
	if err := decodeArgs(task.Arguments, &args); err != nil {
		return nil, err
	}
	if len(args.PaymentIDs) == 0 {
		return map[string]interface{}{"sent": false, "reason": "no payments"}, nil
	}

	var payments []models.Payment
	err := deps.DB.WithContext(ctx).
		Preload("Customer").Preload("Invoice").
		Where("id IN ?", args.PaymentIDs).
		Order("id").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	if len(payments) == 0 || payments[0].Customer == nil {
		return map[string]interface{}{"sent": false, "reason": "payments not found"}, nil
	}

	customer := *payments[0].Customer
	if customer.Phone == "" {
		return map[string]interface{}{"sent": false, "reason": "customer has no phone"}, nil
	}
	if !deps.WhatsApp.Configured() {
		return map[string]interface{}{"sent": false, "reason": "whatsapp not configured"}, nil
	}

	if err := deps.WhatsApp.SendMessage(ctx, customer.Phone, services.ReceiptMessage(customer, payments)); err != nil {
		return nil, err
	}

	deps.Log.Info("payment receipt sent",
		zap.Uint("customer_id", customer.ID),
		zap.Int("payments", len(payments)),
	)
	return map[string]interface{}{
		"sent":        true,
		"customer_id": customer.ID,
		"receipts":    lo.Map(payments, func(p models.Payment, _ int) string { return p.ReceiptNo }),
	}, nil
}

// SendPaymentReceiptTask is the singleton instance of SendPaymentReceiptTaskDef
var SendPaymentReceiptTask = &SendPaymentReceiptTaskDef{}

// ReceiptQueue schedules receipt messages for the worker to deliver
type ReceiptQueue struct {
	db         *gorm.DB
	maxAttempt int
	now        func() time.Time
}

func NewReceiptQueue(db *gorm.DB) *ReceiptQueue {
	return &ReceiptQueue{db: db, maxAttempt: 3, now: time.Now}
}

// Enqueue stores a one-time receipt task due immediately
func (q *ReceiptQueue) Enqueue(ctx context.Context, payments []models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	args := SendPaymentReceiptArgs{
		PaymentIDs: lo.Map(payments, func(p models.Payment, _ int) uint { return p.ID }),
	}
	task, err := BuildScheduledTask(SendPaymentReceiptTask.TaskID(), args, q.now(), nil, models.ScheduledTaskTypeOneTime, q.maxAttempt)
	if err != nil {
		return err
	}
	return q.db.WithContext(ctx).Create(task).Error
}
