package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
)

const collectorRegionsTTL = 10 * time.Minute

func collectorRegionsKey(collectorID uint) string {
	return fmt.Sprintf("collector:%d:regions", collectorID)
}

// DashboardService assembles read-only summaries for the back office screens
type DashboardService struct {
	db       *gorm.DB
	cache    *RedisCache
	sessions *CashSessionService
	log      *zap.Logger
	now      Clock
}

func NewDashboardService(db *gorm.DB, cache *RedisCache, sessions *CashSessionService, log *zap.Logger) *DashboardService {
	return &DashboardService{db: db, cache: cache, sessions: sessions, log: log.Named("dashboard"), now: time.Now}
}

// WithClock overrides the time source
func (s *DashboardService) WithClock(now Clock) *DashboardService {
	s.now = now
	return s
}

// CollectorSummary is the collector's landing view
type CollectorSummary struct {
	CollectedToday decimal.Decimal     `json:"collected_today"`
	ActiveSession  *models.CashSession `json:"active_session"`
	Regions        []models.Region     `json:"regions"`
}

// CollectorSummary gathers today's takings, the open session and the
// assigned regions of a collector concurrently.
func (s *DashboardService) CollectorSummary(ctx context.Context, collectorID uint) (*CollectorSummary, error) {
	summary := &CollectorSummary{CollectedToday: decimal.Zero}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		from := startOfDay(s.now())
		var row struct {
			Total decimal.Decimal
		}
		err := s.db.WithContext(gctx).Model(&models.Payment{}).
			Select("COALESCE(SUM(amount), 0) AS total").
			Where("collector_id = ? AND received_at >= ? AND received_at < ?", collectorID, from, from.AddDate(0, 0, 1)).
			Scan(&row).Error
		if err != nil {
			return fmt.Errorf("failed to sum today's payments: %w", err)
		}
		summary.CollectedToday = models.RoundMoney(row.Total)
		return nil
	})

	g.Go(func() error {
		session, err := s.sessions.ActiveSession(gctx, collectorID)
		if err != nil {
			return fmt.Errorf("failed to load active session: %w", err)
		}
		summary.ActiveSession = session
		return nil
	})

	g.Go(func() error {
		regions, err := s.AssignedRegions(gctx, collectorID)
		if err != nil {
			return err
		}
		summary.Regions = regions
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// AssignedRegions returns the regions a collector currently covers. Results
// are cached briefly; UserService drops the entry when assignments change.
func (s *DashboardService) AssignedRegions(ctx context.Context, collectorID uint) ([]models.Region, error) {
	return GetOrSet(s.cache, ctx, collectorRegionsKey(collectorID), collectorRegionsTTL, func() ([]models.Region, error) {
		var regions []models.Region
		err := s.db.WithContext(ctx).
			Where("id IN (?)", activeRegionIDs(s.db.WithContext(ctx), collectorID)).
			Order("name").
			Find(&regions).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load assigned regions: %w", err)
		}
		return regions, nil
	})
}
