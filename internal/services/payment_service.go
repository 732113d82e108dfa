package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"isp_billing_echo/internal/models"
)

const maxReceiptAttempts = 3

// PaymentService applies cash collected in the field to customer invoices
type PaymentService struct {
	db  *gorm.DB
	log *zap.Logger
	now Clock
}

func NewPaymentService(db *gorm.DB, log *zap.Logger) *PaymentService {
	return &PaymentService{db: db, log: log.Named("payments"), now: time.Now}
}

// WithClock overrides the time source
func (s *PaymentService) WithClock(now Clock) *PaymentService {
	s.now = now
	return s
}

// CollectPaymentRequest is one cash hand-over from a customer to a collector
type CollectPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	CustomerID    uint            `json:"customer_id" validate:"required"`
	InvoiceIDs    []uint          `json:"invoice_ids" validate:"required,min=1,dive,required"`
	CashSessionID uint            `json:"cash_session_id" validate:"required"`
	CollectorID   uint            `json:"collector_id" validate:"required"`
}

// CollectPaymentResult holds the receipts written and the invoices they settled
type CollectPaymentResult struct {
	Payments []models.Payment `json:"payments"`
	Invoices []models.Invoice `json:"invoices"`
}

// CollectPayment records a cash payment against the selected invoices of a
// customer inside the collector's open cash session. The amount settles the
// oldest due invoice first. Either every allocation is written or none is.
func (s *PaymentService) CollectPayment(ctx context.Context, req CollectPaymentRequest) (*CollectPaymentResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.Amount.Equal(models.RoundMoney(req.Amount)) {
		return nil, fmt.Errorf("%w: amount must have at most %d decimal places", ErrInvalidInput, models.MoneyScale)
	}
	invoiceIDs := lo.Uniq(req.InvoiceIDs)

	var lastErr error
	for attempt := 1; attempt <= maxReceiptAttempts; attempt++ {
		result, err := s.collect(ctx, req, invoiceIDs)
		if err == nil {
			s.log.Info("payment collected",
				zap.Uint("customer_id", req.CustomerID),
				zap.Uint("collector_id", req.CollectorID),
				zap.Uint("cash_session_id", req.CashSessionID),
				zap.String("amount", req.Amount.StringFixed(models.MoneyScale)),
				zap.Int("receipts", len(result.Payments)),
			)
			return result, nil
		}
		if !IsConstraintViolation(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		s.log.Warn("receipt number collision, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, fmt.Errorf("failed to record payment after %d attempts: %w", maxReceiptAttempts, lastErr)
}

func (s *PaymentService) collect(ctx context.Context, req CollectPaymentRequest, invoiceIDs []uint) (*CollectPaymentResult, error) {
	result := &CollectPaymentResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.CashSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND collector_id = ? AND status = ?", req.CashSessionID, req.CollectorID, models.CashSessionStatusOpen).
			First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionUnavailable
		}
		if err != nil {
			return err
		}

		var invoices []models.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ? AND customer_id = ? AND status IN ?", invoiceIDs, req.CustomerID, models.CollectibleInvoiceStatuses).
			Order("due_date ASC, id ASC").
			Find(&invoices).Error; err != nil {
			return err
		}
		if len(invoices) == 0 {
			return ErrNoDueInvoices
		}

		allocations, remaining := AllocatePayment(req.Amount, invoices)
		if remaining.GreaterThan(models.OverpaymentTolerance) {
			return &OverpaymentError{Remaining: remaining.StringFixed(models.MoneyScale)}
		}
		if len(allocations) == 0 {
			return ErrNoDueInvoices
		}

		byID := lo.KeyBy(invoices, func(inv models.Invoice) uint { return inv.ID })
		receivedAt := s.now()

		for _, alloc := range allocations {
			invoice := byID[alloc.InvoiceID]

			payment := models.Payment{
				ReceiptNo:     newReceiptNo(receivedAt),
				Amount:        alloc.Amount,
				CustomerID:    req.CustomerID,
				InvoiceID:     invoice.ID,
				CollectorID:   req.CollectorID,
				CashSessionID: session.ID,
				ReceivedAt:    receivedAt,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return classifyStoreError(err)
			}

			invoice.ApplyPayment(alloc.Amount)
			if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Updates(map[string]interface{}{
				"paid_amount": invoice.PaidAmount,
				"status":      invoice.Status,
			}).Error; err != nil {
				return err
			}

			result.Payments = append(result.Payments, payment)
			result.Invoices = append(result.Invoices, invoice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// newReceiptNo builds a receipt number such as RCPT-1718000000000-9F86D081
func newReceiptNo(at time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("RCPT-%d-%s", at.UnixMilli(), token)
}

// CustomerPayments lists the receipts of a customer, newest first
func (s *PaymentService) CustomerPayments(ctx context.Context, customerID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("received_at DESC, id DESC").
		Find(&payments).Error
	return payments, err
}
