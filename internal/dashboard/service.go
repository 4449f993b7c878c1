package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Stats is the aggregate snapshot shown on the landing page.
type Stats struct {
	TotalProducts  int64       `json:"total_products"`
	TodaySales     float64     `json:"today_sales"`
	TodayInvoices  int64       `json:"today_invoices"`
	LowStockCount  int64       `json:"low_stock_count"`
	OpenAlerts     int64       `json:"open_alerts"`
	TotalCustomers int64       `json:"total_customers"`
	RecentSales    []SaleBrief `json:"recent_sales"`
	GeneratedAt    time.Time   `json:"generated_at"`
}

// SaleBrief is a compact recent-sale row.
type SaleBrief struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerName  string    `json:"customer_name"`
	TotalAmount   float64   `json:"total_amount"`
	PaymentStatus string    `json:"payment_status"`
	SaleDate      time.Time `json:"sale_date"`
}

// ChartPoint is one day in the sales trend series.
type ChartPoint struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// StatsPort abstracts the aggregate queries.
type StatsPort interface {
	CollectStats(ctx context.Context) (Stats, error)
	SalesByDay(ctx context.Context, days int) ([]ChartPoint, error)
}

const statsCacheKey = "dashboard:stats"

// Service serves dashboard aggregates. Snapshots are cached in Redis
// and concurrent cache misses collapse into one query via
// singleflight.
type Service struct {
	repo  StatsPort
	redis *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewService builds Service.
func NewService(repo StatsPort, redisClient *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{repo: repo, redis: redisClient, ttl: ttl}
}

// Stats returns the cached snapshot, refreshing it on a miss.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var cached Stats
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return Stats{}, err
		}
	}
	value, err, _ := s.group.Do(statsCacheKey, func() (any, error) {
		stats, err := s.repo.CollectStats(ctx)
		if err != nil {
			return Stats{}, err
		}
		stats.GeneratedAt = time.Now().UTC()
		if s.redis != nil {
			if raw, err := json.Marshal(stats); err == nil {
				s.redis.Set(ctx, statsCacheKey, raw, s.ttl)
			}
		}
		return stats, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return value.(Stats), nil
}

// Refresh recomputes the snapshot and rewrites the cache. The warmup
// job calls this so the first morning request is already warm.
func (s *Service) Refresh(ctx context.Context) (Stats, error) {
	stats, err := s.repo.CollectStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.GeneratedAt = time.Now().UTC()
	if s.redis != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.redis.Set(ctx, statsCacheKey, raw, s.ttl).Err(); err != nil {
				return Stats{}, err
			}
		}
	}
	return stats, nil
}

// SalesTrend returns the last n days of sales totals, oldest first.
func (s *Service) SalesTrend(ctx context.Context, days int) ([]ChartPoint, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	return s.repo.SalesByDay(ctx, days)
}
