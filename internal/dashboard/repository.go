package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CollectStats gathers the landing page snapshot in one round of
// queries.
func (r *Repository) CollectStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active`).Scan(&stats.TotalProducts)
	if err != nil {
		return Stats{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM sales WHERE sale_date::date = CURRENT_DATE`).Scan(&stats.TodaySales, &stats.TodayInvoices)
	if err != nil {
		return Stats{}, err
	}
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT p.id
			FROM products p
			LEFT JOIN stock_movements m ON m.product_id = p.id
			WHERE p.is_active
			GROUP BY p.id, p.minimum_stock_level
			HAVING COALESCE(SUM(CASE m.movement_type WHEN 'IN' THEN m.quantity WHEN 'OUT' THEN -m.quantity END), 0) <= p.minimum_stock_level
		) low`).Scan(&stats.LowStockCount)
	if err != nil {
		return Stats{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_alerts WHERE NOT is_resolved`).Scan(&stats.OpenAlerts)
	if err != nil {
		return Stats{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE is_active`).Scan(&stats.TotalCustomers)
	if err != nil {
		return Stats{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.invoice_number, c.name, s.total_amount, s.payment_status, s.sale_date FROM sales s JOIN customers c ON c.id = s.customer_id ORDER BY s.sale_date DESC, s.id DESC LIMIT 5`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var brief SaleBrief
		if err := rows.Scan(&brief.ID, &brief.InvoiceNumber, &brief.CustomerName, &brief.TotalAmount, &brief.PaymentStatus, &brief.SaleDate); err != nil {
			return Stats{}, err
		}
		stats.RecentSales = append(stats.RecentSales, brief)
	}
	return stats, rows.Err()
}

// SalesByDay returns one point per day over the window, padding days
// without sales with zero totals.
func (r *Repository) SalesByDay(ctx context.Context, days int) ([]ChartPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sale_date::date AS day, COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM sales
		WHERE sale_date >= CURRENT_DATE - $1::int + 1
		GROUP BY day
		ORDER BY day`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byDay := map[string]ChartPoint{}
	for rows.Next() {
		var (
			day   time.Time
			point ChartPoint
		)
		if err := rows.Scan(&day, &point.Total, &point.Count); err != nil {
			return nil, err
		}
		point.Day = day.Format("2006-01-02")
		byDay[point.Day] = point
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	points := make([]ChartPoint, 0, days)
	start := time.Now().AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		if point, ok := byDay[key]; ok {
			points = append(points, point)
			continue
		}
		points = append(points, ChartPoint{Day: key})
	}
	return points, nil
}
