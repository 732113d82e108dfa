package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
)

// PlanService manages service plans
type PlanService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPlanService(db *gorm.DB, log *zap.Logger) *PlanService {
	return &PlanService{db: db, log: log.Named("plans")}
}

// PlanInput holds the editable fields of a plan
type PlanInput struct {
	Name          string          `json:"name" validate:"required,max=255"`
	MonthlyCharge decimal.Decimal `json:"monthly_charge" validate:"gte=0"`
	TaxRate       decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=100"`
	Company       string          `json:"company" validate:"max=255"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"`
}

func (in PlanInput) apply(plan *models.Plan) {
	plan.Name = strings.TrimSpace(in.Name)
	plan.MonthlyCharge = models.RoundMoney(in.MonthlyCharge)
	plan.TaxRate = models.RoundMoney(in.TaxRate)
	plan.Company = in.Company
	plan.PurchasePrice = models.RoundMoney(in.PurchasePrice)
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
}

func (s *PlanService) Create(ctx context.Context, in PlanInput) (*models.Plan, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	plan := models.Plan{IsActive: true}
	in.apply(&plan)

	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, classifyStoreError(err)
	}
	return &plan, nil
}

func (s *PlanService) Get(ctx context.Context, id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Update changes a plan. Invoices already issued keep their amounts.
func (s *PlanService) Update(ctx context.Context, id uint, in PlanInput) (*models.Plan, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(plan)

	if err := s.db.WithContext(ctx).Save(plan).Error; err != nil {
		return nil, classifyStoreError(err)
	}
	return plan, nil
}

// Delete removes a plan no customer is subscribed to
func (s *PlanService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.Plan
		if err := tx.First(&plan, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		var customers int64
		if err := tx.Model(&models.Customer{}).Where("plan_id = ?", id).Count(&customers).Error; err != nil {
			return err
		}
		if customers > 0 {
			return &DependentsError{Entity: "plan", Dependent: "customers", Count: customers}
		}

		s.log.Info("plan deleted", zap.Uint("plan_id", id))
		return tx.Delete(&plan).Error
	})
}

// List returns plans ordered by name
func (s *PlanService) List(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	query := s.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var plans []models.Plan
	err := query.Order("name").Find(&plans).Error
	return plans, err
}
