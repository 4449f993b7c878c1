package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowdasare/everpack-system-hnd/internal/platform/db"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

// ErrDuplicateSKU indicates a unique constraint hit on the SKU column.
var ErrDuplicateSKU = errors.New("inventory: sku already exists")

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListCategories(ctx context.Context) ([]Category, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	InsertProduct(ctx context.Context, p Product) (int64, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
	StockLevels(ctx context.Context) ([]StockLevel, error)
	OpenAlerts(ctx context.Context) ([]StockAlert, error)
	HasOpenAlert(ctx context.Context, productID int64, alertType AlertType) (bool, error)
	InsertAlert(ctx context.Context, productID int64, alertType AlertType, message string) error
	ResolveAlerts(ctx context.Context, productID int64) (int64, error)
}

// TxRepository exposes the operations available inside a movement
// posting transaction.
type TxRepository interface {
	CurrentStockForUpdate(ctx context.Context, productID int64) (int, error)
	InsertMovement(ctx context.Context, m StockMovement) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListCategories returns all categories by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, ''), created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListSuppliers returns all suppliers by name.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(contact_person, ''), COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), is_active, created_at, updated_at FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

const productColumns = `p.id, p.name, p.description, p.category_id, c.name, p.sku, COALESCE(p.barcode, ''), p.unit, p.cost_price, p.selling_price, p.minimum_stock_level, p.supplier_id, s.name, p.is_active, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName, &p.SKU, &p.Barcode, &p.Unit, &p.CostPrice, &p.SellingPrice, &p.MinimumStockLevel, &p.SupplierID, &p.SupplierName, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProducts returns products joined with category and supplier names.
func (r *Repository) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id JOIN suppliers s ON s.id = p.supplier_id`
	if activeOnly {
		query += ` WHERE p.is_active`
	}
	query += ` ORDER BY p.name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct fetches one product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p JOIN categories c ON c.id = p.category_id JOIN suppliers s ON s.id = p.supplier_id WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// InsertProduct stores a new product.
func (r *Repository) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, description, category_id, sku, barcode, unit, cost_price, selling_price, minimum_stock_level, supplier_id, is_active) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11) RETURNING id`,
		p.Name, p.Description, p.CategoryID, p.SKU, p.Barcode, p.Unit, p.CostPrice, p.SellingPrice, p.MinimumStockLevel, p.SupplierID, p.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateSKU
		}
		return 0, err
	}
	return id, nil
}

// UpdateProduct edits a product.
func (r *Repository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name = $2, description = $3, category_id = $4, sku = $5, barcode = NULLIF($6, ''), unit = $7, cost_price = $8, selling_price = $9, minimum_stock_level = $10, supplier_id = $11, is_active = $12, updated_at = NOW() WHERE id = $1`,
		p.ID, p.Name, p.Description, p.CategoryID, p.SKU, p.Barcode, p.Unit, p.CostPrice, p.SellingPrice, p.MinimumStockLevel, p.SupplierID, p.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSKU
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListMovements returns ledger entries, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	query := `SELECT m.id, m.product_id, p.name, m.movement_type, m.quantity, m.reason, COALESCE(m.reference, ''), COALESCE(m.notes, ''), m.created_by, m.created_at FROM stock_movements m JOIN products p ON p.id = m.product_id`
	args := []any{}
	where := ``
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		where = ` WHERE m.product_id = $1`
	}
	query += where + ` ORDER BY m.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity, &m.Reason, &m.Reference, &m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// StockLevels derives stock on hand for every active product.
func (r *Repository) StockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.sku, p.minimum_stock_level,
		       COALESCE(SUM(CASE m.movement_type WHEN 'IN' THEN m.quantity WHEN 'OUT' THEN -m.quantity END), 0) AS current_stock
		FROM products p
		LEFT JOIN stock_movements m ON m.product_id = p.id
		WHERE p.is_active
		GROUP BY p.id, p.name, p.sku, p.minimum_stock_level
		ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.SKU, &l.MinimumStockLevel, &l.CurrentStock); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// OpenAlerts returns unresolved alerts, newest first.
func (r *Repository) OpenAlerts(ctx context.Context) ([]StockAlert, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.product_id, p.name, a.alert_type, a.message, a.is_resolved, a.created_at, a.resolved_at FROM stock_alerts a JOIN products p ON p.id = a.product_id WHERE NOT a.is_resolved ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var alerts []StockAlert
	for rows.Next() {
		var a StockAlert
		if err := rows.Scan(&a.ID, &a.ProductID, &a.ProductName, &a.Type, &a.Message, &a.IsResolved, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// HasOpenAlert reports whether an unresolved alert of this type exists.
func (r *Repository) HasOpenAlert(ctx context.Context, productID int64, alertType AlertType) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_alerts WHERE product_id = $1 AND alert_type = $2 AND NOT is_resolved)`, productID, alertType).Scan(&exists)
	return exists, err
}

// InsertAlert records a new alert.
func (r *Repository) InsertAlert(ctx context.Context, productID int64, alertType AlertType, message string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO stock_alerts (product_id, alert_type, message) VALUES ($1, $2, $3)`, productID, alertType, message)
	return err
}

// ResolveAlerts closes all open alerts for the product.
func (r *Repository) ResolveAlerts(ctx context.Context, productID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE stock_alerts SET is_resolved = TRUE, resolved_at = $2 WHERE product_id = $1 AND NOT is_resolved`, productID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CurrentStockForUpdate derives stock on hand while holding the
// product row so concurrent postings serialise.
func (t *txRepo) CurrentStockForUpdate(ctx context.Context, productID int64) (int, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(CASE movement_type WHEN 'IN' THEN quantity WHEN 'OUT' THEN -quantity END), 0) FROM stock_movements WHERE product_id = $1`, productID).Scan(&stock)
	return stock, err
}

// InsertMovement appends one ledger entry.
func (t *txRepo) InsertMovement(ctx context.Context, m StockMovement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, movement_type, quantity, reason, reference, notes, created_by) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7) RETURNING id`,
		m.ProductID, m.Type, m.Quantity, m.Reason, m.Reference, m.Notes, m.CreatedBy).Scan(&id)
	return id, err
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
