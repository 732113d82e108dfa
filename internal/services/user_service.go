package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
)

// UserService manages staff accounts and collector region assignments
type UserService struct {
	db    *gorm.DB
	cache *RedisCache
	log   *zap.Logger
	now   Clock
}

func NewUserService(db *gorm.DB, cache *RedisCache, log *zap.Logger) *UserService {
	return &UserService{db: db, cache: cache, log: log.Named("users"), now: time.Now}
}

// WithClock overrides the time source
func (s *UserService) WithClock(now Clock) *UserService {
	s.now = now
	return s
}

// UserInput holds the editable fields of a user. Password is required on
// create and optional on update. RegionIDs only apply to collectors.
type UserInput struct {
	FullName  string            `json:"full_name" validate:"required,max=255"`
	Username  string            `json:"username" validate:"required,max=100"`
	Phone     string            `json:"phone" validate:"max=50"`
	Password  string            `json:"password" validate:"omitempty,min=6,max=72"`
	Role      models.UserRole   `json:"role" validate:"required,oneof=ADMIN MANAGER COLLECTOR"`
	Status    models.UserStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
	RegionIDs []uint            `json:"region_ids" validate:"dive,required"`
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Create stores a new user with a hashed password
func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = models.UserStatusActive
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		FullName:     strings.TrimSpace(in.FullName),
		Username:     strings.TrimSpace(in.Username),
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       in.Status,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return classifyStoreError(err)
		}
		return s.syncAssignments(tx, user, in.RegionIDs)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return &user, nil
}

// Get loads a user with current region assignments
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Assignments", "active_to IS NULL").
		Preload("Assignments.Region").
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update changes a user's profile, role and status. The password changes only
// when a new one is supplied. Region assignments are replaced as a whole.
func (s *UserService) Update(ctx context.Context, id uint, in UserInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		user.FullName = strings.TrimSpace(in.FullName)
		user.Username = strings.TrimSpace(in.Username)
		user.Phone = in.Phone
		user.Role = in.Role
		if in.Status != "" {
			user.Status = in.Status
		}
		if in.Password != "" {
			hash, err := hashPassword(in.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if err := tx.Save(&user).Error; err != nil {
			return classifyStoreError(err)
		}
		return s.syncAssignments(tx, user, in.RegionIDs)
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, collectorRegionsKey(user.ID)); err != nil {
		s.log.Warn("failed to drop cached regions", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return &user, nil
}

// syncAssignments makes regionIDs the user's current regions. Dropped regions
// are closed rather than deleted so past coverage stays on record. Users who
// are not collectors end up with no current region.
func (s *UserService) syncAssignments(tx *gorm.DB, user models.User, regionIDs []uint) error {
	wanted := lo.Uniq(regionIDs)
	if user.Role != models.UserRoleCollector {
		wanted = nil
	}

	if len(wanted) > 0 {
		var found int64
		if err := tx.Model(&models.Region{}).Where("id IN ?", wanted).Count(&found).Error; err != nil {
			return err
		}
		if found != int64(len(wanted)) {
			return ErrRegionNotFound
		}
	}

	var current []models.Assignment
	if err := tx.Where("user_id = ? AND active_to IS NULL", user.ID).Find(&current).Error; err != nil {
		return err
	}
	currentIDs := lo.Map(current, func(a models.Assignment, _ int) uint { return a.RegionID })

	now := s.now()
	if dropped := lo.Without(currentIDs, wanted...); len(dropped) > 0 {
		if err := tx.Model(&models.Assignment{}).
			Where("user_id = ? AND region_id IN ? AND active_to IS NULL", user.ID, dropped).
			Update("active_to", now).Error; err != nil {
			return err
		}
	}

	added := lo.Without(wanted, currentIDs...)
	if len(added) == 0 {
		return nil
	}
	assignments := lo.Map(added, func(regionID uint, _ int) models.Assignment {
		return models.Assignment{UserID: user.ID, RegionID: regionID, ActiveFrom: now}
	})
	return tx.Create(&assignments).Error
}

// Delete removes a user who has never run a cash session
func (s *UserService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, id)
		if err != nil {
			return err
		}

		var sessions int64
		if err := tx.Model(&models.CashSession{}).Where("collector_id = ?", id).Count(&sessions).Error; err != nil {
			return err
		}
		if sessions > 0 {
			return &DependentsError{Entity: "user", Dependent: "cash sessions", Count: sessions}
		}

		if err := tx.Model(&models.Assignment{}).
			Where("user_id = ? AND active_to IS NULL", id).
			Update("active_to", s.now()).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, collectorRegionsKey(id))
	return nil
}

// List returns users ordered by name, optionally filtered by role
func (s *UserService) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := s.db.WithContext(ctx).Preload("Assignments", "active_to IS NULL")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var users []models.User
	err := query.Order("full_name").Find(&users).Error
	return users, err
}

// Authenticate checks a username and password pair for an active user
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.IsActive() {
		return nil, ErrForbidden
	}
	return &user, nil
}
