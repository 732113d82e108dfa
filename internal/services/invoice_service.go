package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"isp_billing_echo/internal/models"
)

// InvoiceService manages invoices raised outside the monthly run
type InvoiceService struct {
	db  *gorm.DB
	log *zap.Logger
	now Clock
}

func NewInvoiceService(db *gorm.DB, log *zap.Logger) *InvoiceService {
	return &InvoiceService{db: db, log: log.Named("invoices"), now: time.Now}
}

// WithClock overrides the time source
func (s *InvoiceService) WithClock(now Clock) *InvoiceService {
	s.now = now
	return s
}

// CustomInvoiceRequest describes an ad-hoc charge such as an installation
// fee or a router replacement.
type CustomInvoiceRequest struct {
	CustomerID  uint            `json:"customer_id" validate:"required"`
	Category    string          `json:"category" validate:"required,max=100"`
	Notes       string          `json:"notes"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	ExtraAmount decimal.Decimal `json:"extra_amount" validate:"gte=0"`
	DueDate     *time.Time      `json:"due_date"`
	CreatorID   uint            `json:"-"`
}

// CreateCustomInvoice raises a DUE invoice with no period or billing cycle.
// Without a due date the invoice is due today.
func (s *InvoiceService) CreateCustomInvoice(ctx context.Context, req CustomInvoiceRequest) (*models.Invoice, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Customer{}).Where("id = ?", req.CustomerID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrCustomerNotFound
	}

	due := startOfDay(s.now())
	if req.DueDate != nil {
		due = *req.DueDate
	}

	invoice := models.Invoice{
		CustomerID:  req.CustomerID,
		Category:    req.Category,
		Notes:       req.Notes,
		Amount:      models.RoundMoney(req.Amount),
		ExtraAmount: models.RoundMoney(req.ExtraAmount),
		Status:      models.InvoiceStatusDue,
		DueDate:     due,
	}
	if req.CreatorID != 0 {
		creator := req.CreatorID
		invoice.CreatorID = &creator
	}

	if err := db.Create(&invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", classifyStoreError(err))
	}

	s.log.Info("custom invoice created",
		zap.Uint("invoice_id", invoice.ID),
		zap.Uint("customer_id", invoice.CustomerID),
		zap.String("category", invoice.Category),
	)
	return &invoice, nil
}

// CancelInvoice cancels an invoice that has received no payment
func (s *InvoiceService) CancelInvoice(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}

		if invoice.Status != models.InvoiceStatusDue || !invoice.PaidAmount.IsZero() {
			return ErrInvoiceNotCancellable
		}

		invoice.Status = models.InvoiceStatusCancelled
		return tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Update("status", invoice.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// DueInvoices lists the invoices of a customer that still accept payment,
// oldest due date first.
func (s *InvoiceService) DueInvoices(ctx context.Context, customerID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND status IN ?", customerID, models.CollectibleInvoiceStatuses).
		Order("due_date ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

// CustomerInvoices lists every invoice of a customer, newest first
func (s *InvoiceService) CustomerInvoices(ctx context.Context, customerID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("due_date DESC, id DESC").
		Find(&invoices).Error
	return invoices, err
}
