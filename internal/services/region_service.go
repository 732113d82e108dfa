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

// RegionService manages the service-area tree
type RegionService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRegionService(db *gorm.DB, log *zap.Logger) *RegionService {
	return &RegionService{db: db, log: log.Named("regions")}
}

// RegionInput holds the editable fields of a region. A nil or zero ParentID
// makes the region a root.
type RegionInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	ParentID *uint  `json:"parent_id"`
}

func (in RegionInput) parent() *uint {
	if in.ParentID == nil || *in.ParentID == 0 {
		return nil
	}
	return in.ParentID
}

func (s *RegionService) Create(ctx context.Context, in RegionInput) (*models.Region, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	region := models.Region{Name: strings.TrimSpace(in.Name), ParentID: in.parent()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if region.ParentID != nil {
			if _, err := findRegion(tx, *region.ParentID); err != nil {
				return err
			}
		}
		return classifyStoreError(tx.Create(&region).Error)
	})
	if err != nil {
		return nil, err
	}
	return &region, nil
}

func findRegion(db *gorm.DB, id uint) (*models.Region, error) {
	var region models.Region
	if err := db.First(&region, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}
	return &region, nil
}

// Update renames or re-parents a region. A region cannot be moved under
// itself or one of its descendants.
func (s *RegionService) Update(ctx context.Context, id uint, in RegionInput) (*models.Region, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var region *models.Region
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		region, err = findRegion(tx, id)
		if err != nil {
			return err
		}

		parentID := in.parent()
		for cursor := parentID; cursor != nil; {
			if *cursor == id {
				return fmt.Errorf("%w: region cannot be its own ancestor", ErrInvalidInput)
			}
			ancestor, err := findRegion(tx, *cursor)
			if err != nil {
				return err
			}
			cursor = ancestor.ParentID
		}

		region.Name = strings.TrimSpace(in.Name)
		region.ParentID = parentID
		return classifyStoreError(tx.Save(region).Error)
	})
	if err != nil {
		return nil, err
	}
	return region, nil
}

// Delete removes a region with no child regions and no customers
func (s *RegionService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		region, err := findRegion(tx, id)
		if err != nil {
			return err
		}

		var children int64
		if err := tx.Model(&models.Region{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return &DependentsError{Entity: "region", Dependent: "child regions", Count: children}
		}

		var customers int64
		if err := tx.Model(&models.Customer{}).Where("region_id = ?", id).Count(&customers).Error; err != nil {
			return err
		}
		if customers > 0 {
			return &DependentsError{Entity: "region", Dependent: "customers", Count: customers}
		}

		if err := tx.Model(&models.Assignment{}).
			Where("region_id = ? AND active_to IS NULL", id).
			Update("active_to", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
			return err
		}

		s.log.Info("region deleted", zap.Uint("region_id", id))
		return tx.Delete(region).Error
	})
}

// List returns all regions ordered by name
func (s *RegionService) List(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	err := s.db.WithContext(ctx).Order("name").Find(&regions).Error
	return regions, err
}
