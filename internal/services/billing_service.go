package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"isp_billing_echo/internal/models"
)

const (
	// DefaultInvoiceDueDays is how many days after issue an invoice falls due
	DefaultInvoiceDueDays = 10

	billingRunLockTTL = 30 * time.Minute
	cycleInsertBatch  = 500
)

// BillingService generates monthly invoices in two phases. Phase 1 records
// which customers owe for a period, Phase 2 turns each pending record into an
// invoice. Both phases are safe to re-run.
type BillingService struct {
	db      *gorm.DB
	cache   *RedisCache
	log     *zap.Logger
	now     Clock
	dueDays int
}

// NewBillingService creates a BillingService. cache may be nil.
func NewBillingService(db *gorm.DB, cache *RedisCache, log *zap.Logger) *BillingService {
	return &BillingService{
		db:      db,
		cache:   cache,
		log:     log.Named("billing"),
		now:     time.Now,
		dueDays: DefaultInvoiceDueDays,
	}
}

// WithClock overrides the time source
func (s *BillingService) WithClock(now Clock) *BillingService {
	s.now = now
	return s
}

// WithDueDays overrides the number of days until an invoice falls due
func (s *BillingService) WithDueDays(days int) *BillingService {
	if days > 0 {
		s.dueDays = days
	}
	return s
}

// CurrentPeriod returns the billing period of the service clock
func (s *BillingService) CurrentPeriod() string {
	return models.PeriodOf(s.now())
}

func (s *BillingService) dueDate() time.Time {
	return startOfDay(s.now()).AddDate(0, 0, s.dueDays)
}

func checkPeriod(period string) error {
	if _, err := models.ParsePeriod(period); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return nil
}

// CreateBillingCycles inserts a PENDING billing cycle for every active
// customer that has none for the period and returns how many were created.
func (s *BillingService) CreateBillingCycles(ctx context.Context, period string) (int64, error) {
	if err := checkPeriod(period); err != nil {
		return 0, err
	}
	db := s.db.WithContext(ctx)

	var activeIDs []uint
	if err := db.Model(&models.Customer{}).
		Where("status = ?", models.CustomerStatusActive).
		Order("id").
		Pluck("id", &activeIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to load active customers: %w", err)
	}

	var coveredIDs []uint
	if err := db.Model(&models.BillingCycle{}).
		Where("period = ?", period).
		Pluck("customer_id", &coveredIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to load billing cycles for %s: %w", period, err)
	}

	missing := lo.Without(activeIDs, coveredIDs...)
	if len(missing) == 0 {
		s.log.Info("no billing cycles to create", zap.String("period", period))
		return 0, nil
	}

	cycles := lo.Map(missing, func(customerID uint, _ int) models.BillingCycle {
		return models.BillingCycle{
			CustomerID: customerID,
			Period:     period,
			Status:     models.BillingCycleStatusPending,
		}
	})

	// a concurrent run may insert the same rows; the unique index drops them
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "period"}},
		DoNothing: true,
	}).CreateInBatches(&cycles, cycleInsertBatch)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to create billing cycles: %w", classifyStoreError(result.Error))
	}

	s.log.Info("billing cycles created",
		zap.String("period", period),
		zap.Int("candidates", len(missing)),
		zap.Int64("created", result.RowsAffected),
	)
	return result.RowsAffected, nil
}

// ProcessBillingCycles issues an invoice for every PENDING cycle of the
// period and returns how many invoices were created. Each cycle is billed in
// its own transaction; a failing cycle is logged and left PENDING for the
// next run.
func (s *BillingService) ProcessBillingCycles(ctx context.Context, period string) (int64, error) {
	if err := checkPeriod(period); err != nil {
		return 0, err
	}

	var cycles []models.BillingCycle
	if err := s.db.WithContext(ctx).
		Preload("Customer.Plan").
		Where("period = ? AND status = ?", period, models.BillingCycleStatusPending).
		Order("id").
		Find(&cycles).Error; err != nil {
		return 0, fmt.Errorf("failed to load pending billing cycles: %w", err)
	}

	var created, skipped, failed int64
	for _, cycle := range cycles {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		if cycle.Customer == nil || cycle.Customer.Plan == nil {
			s.log.Warn("skipping billing cycle without customer plan",
				zap.Uint("cycle_id", cycle.ID),
				zap.Uint("customer_id", cycle.CustomerID),
			)
			skipped++
			continue
		}

		billed, err := s.billCycle(ctx, cycle.ID, *cycle.Customer.Plan)
		if err != nil {
			s.log.Error("failed to bill cycle",
				zap.Uint("cycle_id", cycle.ID),
				zap.Uint("customer_id", cycle.CustomerID),
				zap.Error(err),
			)
			failed++
			continue
		}
		if billed {
			created++
		}
	}

	s.log.Info("billing cycles processed",
		zap.String("period", period),
		zap.Int("pending", len(cycles)),
		zap.Int64("invoices_created", created),
		zap.Int64("skipped", skipped),
		zap.Int64("failed", failed),
	)
	return created, nil
}

// billCycle creates the invoice for one cycle and marks it BILLED. It returns
// false when another run billed the cycle first.
func (s *BillingService) billCycle(ctx context.Context, cycleID uint, plan models.Plan) (bool, error) {
	billed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cycle models.BillingCycle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cycle, cycleID).Error; err != nil {
			return err
		}
		if cycle.Status != models.BillingCycleStatusPending {
			return nil
		}

		period := cycle.Period
		invoice := models.Invoice{
			CustomerID:     cycle.CustomerID,
			BillingCycleID: &cycle.ID,
			Period:         &period,
			Category:       models.InvoiceCategoryMonthly,
			Amount:         models.RoundMoney(plan.MonthlyCharge),
			Status:         models.InvoiceStatusDue,
			DueDate:        s.dueDate(),
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return classifyStoreError(err)
		}

		res := tx.Model(&models.BillingCycle{}).
			Where("id = ? AND status = ?", cycle.ID, models.BillingCycleStatusPending).
			Update("status", models.BillingCycleStatusBilled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("billing cycle %d changed while billing", cycle.ID)
		}

		billed = true
		return nil
	})
	return billed, err
}

// BillNewCustomer bills a customer for the current period right away: a
// BILLED cycle and its "First Bill" invoice are created together.
func (s *BillingService) BillNewCustomer(ctx context.Context, customerID uint) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.Preload("Plan").First(&customer, customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		inv, err := s.billNewCustomerTx(tx, customer)
		if err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("new customer billed",
		zap.Uint("customer_id", customerID),
		zap.Uint("invoice_id", invoice.ID),
	)
	return invoice, nil
}

// billNewCustomerTx runs inside the caller's transaction. customer.Plan must
// be loaded.
func (s *BillingService) billNewCustomerTx(tx *gorm.DB, customer models.Customer) (*models.Invoice, error) {
	if customer.Plan == nil {
		return nil, ErrPlanNotFound
	}

	period := s.CurrentPeriod()
	cycle := models.BillingCycle{
		CustomerID: customer.ID,
		Period:     period,
		Status:     models.BillingCycleStatusBilled,
	}
	if err := tx.Create(&cycle).Error; err != nil {
		err = classifyStoreError(err)
		if IsConstraintViolation(err) {
			return nil, fmt.Errorf("%w (customer %d, period %s): %w", ErrPeriodAlreadyBilled, customer.ID, period, err)
		}
		return nil, err
	}

	invoice := models.Invoice{
		CustomerID:     customer.ID,
		BillingCycleID: &cycle.ID,
		Period:         &period,
		Category:       models.InvoiceCategoryFirst,
		Amount:         models.RoundMoney(customer.Plan.MonthlyCharge),
		Status:         models.InvoiceStatusDue,
		DueDate:        s.dueDate(),
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return nil, classifyStoreError(err)
	}
	return &invoice, nil
}

// BillingRunResult summarises a full billing run
type BillingRunResult struct {
	Period          string `json:"period"`
	Created         int64  `json:"created"`
	InvoicesCreated int64  `json:"invoicesCreated"`
}

// RunBilling runs both phases for the period, defaulting to the current one.
// When Redis is configured a per-period lock keeps runs from overlapping.
func (s *BillingService) RunBilling(ctx context.Context, period string) (*BillingRunResult, error) {
	if period == "" {
		period = s.CurrentPeriod()
	}
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	lockKey := "billing:run:" + period
	token, locked, err := s.cache.AcquireLock(ctx, lockKey, billingRunLockTTL)
	switch {
	case err != nil:
		// store constraints still prevent double billing
		s.log.Warn("billing run lock unavailable, running unlocked", zap.String("period", period), zap.Error(err))
	case !locked:
		return nil, ErrBillingRunInProgress
	default:
		defer func() {
			if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				s.log.Warn("failed to release billing run lock", zap.String("period", period), zap.Error(err))
			}
		}()
	}

	created, err := s.CreateBillingCycles(ctx, period)
	if err != nil {
		return nil, err
	}
	invoices, err := s.ProcessBillingCycles(ctx, period)
	if err != nil {
		return nil, err
	}

	return &BillingRunResult{Period: period, Created: created, InvoicesCreated: invoices}, nil
}

// PendingCycles returns PENDING cycles created before the given instant,
// oldest period first.
func (s *BillingService) PendingCycles(ctx context.Context, createdBefore time.Time) ([]models.BillingCycle, error) {
	var cycles []models.BillingCycle
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.BillingCycleStatusPending, createdBefore).
		Order("period, id").
		Find(&cycles).Error
	return cycles, err
}

// StalePendingCycles returns PENDING cycles that no billing run can still be
// working on: they are older than the run lock TTL. This includes cycles of
// the current period once its run has ended.
func (s *BillingService) StalePendingCycles(ctx context.Context) ([]models.BillingCycle, error) {
	return s.PendingCycles(ctx, s.now().Add(-billingRunLockTTL))
}
