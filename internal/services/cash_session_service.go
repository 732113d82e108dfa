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

// CashSessionService runs the OPEN -> CLOSED -> APPROVED lifecycle of a
// collector's cash session.
type CashSessionService struct {
	db  *gorm.DB
	log *zap.Logger
	now Clock
}

func NewCashSessionService(db *gorm.DB, log *zap.Logger) *CashSessionService {
	return &CashSessionService{db: db, log: log.Named("cash_sessions"), now: time.Now}
}

// WithClock overrides the time source
func (s *CashSessionService) WithClock(now Clock) *CashSessionService {
	s.now = now
	return s
}

// activeRegionIDs is a subquery selecting the regions currently assigned to a user
func activeRegionIDs(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.Assignment{}).
		Select("region_id").
		Where("user_id = ? AND active_to IS NULL", userID)
}

func findUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// OpenSession starts a cash session for the collector. If one is already
// open it is returned unchanged and reused is true.
func (s *CashSessionService) OpenSession(ctx context.Context, collectorID uint) (session *models.CashSession, reused bool, err error) {
	db := s.db.WithContext(ctx)

	collector, err := findUser(db, collectorID)
	if err != nil {
		return nil, false, err
	}
	if !collector.IsCollector() {
		return nil, false, ErrForbidden
	}

	existing, err := s.ActiveSession(ctx, collectorID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	expected, err := s.expectedTotal(db, collectorID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to compute expected total: %w", err)
	}

	opened := models.CashSession{
		CollectorID:   collectorID,
		Status:        models.CashSessionStatusOpen,
		OpenedAt:      s.now(),
		ExpectedTotal: expected,
	}
	if err := db.Create(&opened).Error; err != nil {
		err = classifyStoreError(err)
		if IsConstraintViolation(err) {
			// lost a race with another open; hand back the winner
			if winner, ferr := s.ActiveSession(ctx, collectorID); ferr == nil && winner != nil {
				return winner, true, nil
			}
		}
		return nil, false, fmt.Errorf("failed to open cash session: %w", err)
	}

	s.log.Info("cash session opened",
		zap.Uint("session_id", opened.ID),
		zap.Uint("collector_id", collectorID),
		zap.String("expected_total", expected.StringFixed(models.MoneyScale)),
	)
	return &opened, false, nil
}

// expectedTotal sums the outstanding balance of collectible invoices of
// customers in the collector's currently assigned regions.
func (s *CashSessionService) expectedTotal(db *gorm.DB, collectorID uint) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := db.Table("invoices").
		Select("COALESCE(SUM(invoices.amount + invoices.extra_amount - invoices.paid_amount), 0) AS total").
		Joins("JOIN customers ON customers.id = invoices.customer_id AND customers.deleted_at IS NULL").
		Where("invoices.status IN ?", models.CollectibleInvoiceStatuses).
		Where("customers.region_id IN (?)", activeRegionIDs(db, collectorID)).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return models.RoundMoney(row.Total), nil
}

// ActiveSession returns the collector's OPEN session, or nil when there is none
func (s *CashSessionService) ActiveSession(ctx context.Context, collectorID uint) (*models.CashSession, error) {
	var session models.CashSession
	err := s.db.WithContext(ctx).
		Where("collector_id = ? AND status = ?", collectorID, models.CashSessionStatusOpen).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func sumSessionPayments(db *gorm.DB, sessionID uint) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("cash_session_id = ?", sessionID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return models.RoundMoney(row.Total), nil
}

// CloseSession ends the collector's session, recording the cash counted from
// its payments and the variance against the expected total.
func (s *CashSessionService) CloseSession(ctx context.Context, sessionID, collectorID uint) (*models.CashSession, error) {
	var session models.CashSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND collector_id = ?", sessionID, collectorID).
			First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return ErrSessionNotOpen
		}

		counted, err := sumSessionPayments(tx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to sum session payments: %w", err)
		}

		closedAt := s.now()
		session.Status = models.CashSessionStatusClosed
		session.ClosedAt = &closedAt
		session.CountedTotal = decimal.NewNullDecimal(counted)
		session.Variance = decimal.NewNullDecimal(models.RoundMoney(counted.Sub(session.ExpectedTotal)))

		return tx.Model(&models.CashSession{}).Where("id = ?", session.ID).Updates(map[string]interface{}{
			"status":        session.Status,
			"closed_at":     closedAt,
			"counted_total": session.CountedTotal,
			"variance":      session.Variance,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cash session closed",
		zap.Uint("session_id", session.ID),
		zap.Uint("collector_id", collectorID),
		zap.String("counted_total", session.CountedTotal.Decimal.StringFixed(models.MoneyScale)),
		zap.String("variance", session.Variance.Decimal.StringFixed(models.MoneyScale)),
	)
	return &session, nil
}

// ApproveSession confirms a closed session once the approver's own count of
// the handed-over cash matches what the collector submitted.
func (s *CashSessionService) ApproveSession(ctx context.Context, sessionID, approverID uint, entered decimal.Decimal) (*models.CashSession, error) {
	if entered.IsNegative() {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}

	var session models.CashSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approver, err := findUser(tx, approverID)
		if err != nil {
			return err
		}
		if !approver.CanReconcile() {
			return ErrForbidden
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if session.Status != models.CashSessionStatusClosed {
			return ErrSessionNotClosed
		}

		counted := session.CountedTotal.Decimal
		if !entered.Equal(counted) {
			return amountMismatch(counted.StringFixed(models.MoneyScale), entered.StringFixed(models.MoneyScale))
		}

		approvedAt := s.now()
		res := tx.Model(&models.CashSession{}).
			Where("id = ? AND status = ?", session.ID, models.CashSessionStatusClosed).
			Updates(map[string]interface{}{
				"status":         models.CashSessionStatusApproved,
				"approved_at":    approvedAt,
				"approved_by_id": approver.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrSessionNotClosed
		}

		session.Status = models.CashSessionStatusApproved
		session.ApprovedAt = &approvedAt
		session.ApprovedByID = &approver.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cash session approved",
		zap.Uint("session_id", session.ID),
		zap.Uint("approver_id", approverID),
	)
	return &session, nil
}

// SessionPayments lists the receipts of a session in the order they were taken
func (s *CashSessionService) SessionPayments(ctx context.Context, sessionID uint) ([]models.Payment, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.CashSession{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrSessionNotFound
	}

	var payments []models.Payment
	err := db.Preload("Customer").
		Where("cash_session_id = ?", sessionID).
		Order("received_at ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

// ListSessions returns sessions newest first, optionally filtered by status
func (s *CashSessionService) ListSessions(ctx context.Context, status models.CashSessionStatus) ([]models.CashSession, error) {
	query := s.db.WithContext(ctx).Preload("Collector")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var sessions []models.CashSession
	err := query.Order("opened_at DESC, id DESC").Find(&sessions).Error
	return sessions, err
}
