package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
)

// CustomerService manages subscriber records
type CustomerService struct {
	db      *gorm.DB
	billing *BillingService
	log     *zap.Logger
}

func NewCustomerService(db *gorm.DB, billing *BillingService, log *zap.Logger) *CustomerService {
	return &CustomerService{db: db, billing: billing, log: log.Named("customers")}
}

// CustomerInput holds the editable fields of a customer
type CustomerInput struct {
	FullName string                `json:"full_name" validate:"required,max=255"`
	Username string                `json:"username" validate:"required,max=100"`
	Phone    string                `json:"phone" validate:"max=50"`
	Address  string                `json:"address"`
	RegionID uint                  `json:"region_id" validate:"required"`
	PlanID   uint                  `json:"plan_id" validate:"required"`
	Status   models.CustomerStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
}

// CustomerFilter narrows a customer listing
type CustomerFilter struct {
	Status   models.CustomerStatus
	RegionID uint
	Search   string
}

func checkRegionAndPlan(tx *gorm.DB, regionID, planID uint) (*models.Plan, error) {
	var count int64
	if err := tx.Model(&models.Region{}).Where("id = ?", regionID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrRegionNotFound
	}

	var plan models.Plan
	if err := tx.First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Create stores a new customer. An ACTIVE customer is billed for the current
// period in the same transaction, so the monthly run will not bill them again.
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, *models.Invoice, error) {
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}
	if in.Status == "" {
		in.Status = models.CustomerStatusActive
	}

	customer := models.Customer{
		FullName: strings.TrimSpace(in.FullName),
		Username: strings.TrimSpace(in.Username),
		Phone:    in.Phone,
		Address:  in.Address,
		RegionID: in.RegionID,
		PlanID:   in.PlanID,
		Status:   in.Status,
	}

	var invoice *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := checkRegionAndPlan(tx, in.RegionID, in.PlanID)
		if err != nil {
			return err
		}

		if err := tx.Create(&customer).Error; err != nil {
			return classifyStoreError(err)
		}

		if customer.Status != models.CustomerStatusActive {
			return nil
		}
		customer.Plan = plan
		invoice, err = s.billing.billNewCustomerTx(tx, customer)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("customer created", zap.Uint("customer_id", customer.ID), zap.Bool("billed", invoice != nil))
	return &customer, invoice, nil
}

// Get loads a customer with region and plan
func (s *CustomerService) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Preload("Region").Preload("Plan").First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// Update replaces the editable fields of a customer. Existing invoices are
// not touched when the plan changes.
func (s *CustomerService) Update(ctx context.Context, id uint, in CustomerInput) (*models.Customer, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var customer models.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&customer, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		if _, err := checkRegionAndPlan(tx, in.RegionID, in.PlanID); err != nil {
			return err
		}

		customer.FullName = strings.TrimSpace(in.FullName)
		customer.Username = strings.TrimSpace(in.Username)
		customer.Phone = in.Phone
		customer.Address = in.Address
		customer.RegionID = in.RegionID
		customer.PlanID = in.PlanID
		if in.Status != "" {
			customer.Status = in.Status
		}

		return classifyStoreError(tx.Save(&customer).Error)
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// Delete removes a customer that has never been invoiced. Unbilled PENDING
// cycles are dropped along with it.
func (s *CustomerService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("customer_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if invoices > 0 {
			return &DependentsError{Entity: "customer", Dependent: "invoices", Count: invoices}
		}

		if err := tx.Where("customer_id = ? AND status = ?", id, models.BillingCycleStatusPending).
			Delete(&models.BillingCycle{}).Error; err != nil {
			return err
		}
		return classifyStoreError(tx.Delete(&customer).Error)
	})
}

// List returns customers ordered by name
func (s *CustomerService) List(ctx context.Context, filter CustomerFilter) ([]models.Customer, error) {
	query := s.db.WithContext(ctx).Preload("Region").Preload("Plan")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RegionID != 0 {
		query = query.Where("region_id = ?", filter.RegionID)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(username) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var customers []models.Customer
	if err := query.Order("full_name").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// ListForCollector returns the active customers in the regions a collector
// currently covers.
func (s *CustomerService) ListForCollector(ctx context.Context, collectorID uint) ([]models.Customer, error) {
	db := s.db.WithContext(ctx)

	var customers []models.Customer
	err := db.Preload("Region").Preload("Plan").
		Where("status = ? AND region_id IN (?)", models.CustomerStatusActive, activeRegionIDs(db, collectorID)).
		Order("full_name").
		Find(&customers).Error
	return customers, err
}
