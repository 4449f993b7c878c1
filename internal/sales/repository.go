package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowdasare/everpack-system-hnd/internal/platform/db"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListCustomers(ctx context.Context, activeOnly bool) ([]Customer, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	InsertCustomer(ctx context.Context, c Customer) (int64, error)
	UpdateCustomer(ctx context.Context, c Customer) error
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
	DeleteSale(ctx context.Context, id int64) error
	ListBulkOrders(ctx context.Context) ([]BulkOrder, error)
	GetBulkOrder(ctx context.Context, id int64) (BulkOrder, error)
}

// TxRepository exposes the operations available inside a posting
// transaction.
type TxRepository interface {
	NextInvoiceSeq(ctx context.Context) (int64, error)
	NextBulkOrderSeq(ctx context.Context) (int64, error)
	InsertSale(ctx context.Context, s Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	UpdateSalePayment(ctx context.Context, saleID int64, amountPaid float64, status PaymentStatus) error
	UpdateSaleItemQuantity(ctx context.Context, itemID int64, quantity int, totalPrice float64) error
	UpdateSaleTotal(ctx context.Context, saleID int64, total float64, status PaymentStatus) error
	InsertBulkOrder(ctx context.Context, o BulkOrder) (int64, error)
	InsertBulkOrderItem(ctx context.Context, item BulkOrderItem) (int64, error)
	SetBulkOrderStatus(ctx context.Context, id int64, status BulkOrderStatus) error
	GetBulkOrderForUpdate(ctx context.Context, id int64) (BulkOrder, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
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

// ListCustomers returns customers by name.
func (r *Repository) ListCustomers(ctx context.Context, activeOnly bool) ([]Customer, error) {
	query := `SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), customer_type, is_active, created_at, updated_at FROM customers`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Type, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// GetCustomer fetches one customer.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), customer_type, is_active, created_at, updated_at FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Type, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

// InsertCustomer stores a new customer.
func (r *Repository) InsertCustomer(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, phone, email, address, customer_type, is_active) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6) RETURNING id`,
		c.Name, c.Phone, c.Email, c.Address, c.Type, c.IsActive).Scan(&id)
	return id, err
}

// UpdateCustomer edits a customer.
func (r *Repository) UpdateCustomer(ctx context.Context, c Customer) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET name = $2, phone = NULLIF($3, ''), email = NULLIF($4, ''), address = NULLIF($5, ''), customer_type = $6, is_active = $7, updated_at = NOW() WHERE id = $1`,
		c.ID, c.Name, c.Phone, c.Email, c.Address, c.Type, c.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const saleColumns = `s.id, s.invoice_number, s.customer_id, c.name, s.sale_date, s.total_amount, s.amount_paid, s.payment_status, s.payment_method, COALESCE(s.notes, ''), s.created_by, s.created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.InvoiceNumber, &s.CustomerID, &s.CustomerName, &s.SaleDate, &s.TotalAmount, &s.AmountPaid, &s.PaymentStatus, &s.PaymentMethod, &s.Notes, &s.CreatedBy, &s.CreatedAt)
	return s, err
}

// ListSales returns sales, newest first, without items.
func (r *Repository) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales s JOIN customers c ON c.id = s.customer_id`
	args := []any{}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` WHERE s.sale_date >= $1`
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		if len(args) == 1 {
			query += ` WHERE s.sale_date <= $1`
		} else {
			query += ` AND s.sale_date <= $2`
		}
	}
	query += ` ORDER BY s.sale_date DESC, s.id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// GetSale fetches one sale with its items.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales s JOIN customers c ON c.id = s.customer_id WHERE s.id = $1`, id)
	s, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.sale_id, i.product_id, p.name, i.quantity, i.unit_price, i.total_price FROM sale_items i JOIN products p ON p.id = i.product_id WHERE i.sale_id = $1 ORDER BY i.id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return Sale{}, err
		}
		s.Items = append(s.Items, item)
	}
	return s, rows.Err()
}

// DeleteSale removes a sale and its items. Used as compensation when
// stock issue fails after the invoice row was written.
func (r *Repository) DeleteSale(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	return err
}

// ListBulkOrders returns bulk orders, newest first, without items.
func (r *Repository) ListBulkOrders(ctx context.Context) ([]BulkOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.order_number, o.customer_id, c.name, o.status, o.total_amount, COALESCE(o.notes, ''), o.created_by, o.created_at, o.updated_at FROM bulk_orders o JOIN customers c ON c.id = o.customer_id ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []BulkOrder
	for rows.Next() {
		var o BulkOrder
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetBulkOrder fetches one bulk order with its items.
func (r *Repository) GetBulkOrder(ctx context.Context, id int64) (BulkOrder, error) {
	var o BulkOrder
	err := r.pool.QueryRow(ctx, `SELECT o.id, o.order_number, o.customer_id, c.name, o.status, o.total_amount, COALESCE(o.notes, ''), o.created_by, o.created_at, o.updated_at FROM bulk_orders o JOIN customers c ON c.id = o.customer_id WHERE o.id = $1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BulkOrder{}, shared.ErrNotFound
		}
		return BulkOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.bulk_order_id, i.product_id, p.name, i.quantity, i.unit_price FROM bulk_order_items i JOIN products p ON p.id = i.product_id WHERE i.bulk_order_id = $1 ORDER BY i.id`, id)
	if err != nil {
		return BulkOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item BulkOrderItem
		if err := rows.Scan(&item.ID, &item.BulkOrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return BulkOrder{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// NextInvoiceSeq draws the next invoice number from its sequence.
func (t *txRepo) NextInvoiceSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('sales_invoice_seq')`).Scan(&seq)
	return seq, err
}

// NextBulkOrderSeq draws the next bulk order number from its sequence.
func (t *txRepo) NextBulkOrderSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('bulk_order_seq')`).Scan(&seq)
	return seq, err
}

// InsertSale stores the invoice row.
func (t *txRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (invoice_number, customer_id, sale_date, total_amount, amount_paid, payment_status, payment_method, notes, created_by) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9) RETURNING id`,
		s.InvoiceNumber, s.CustomerID, s.SaleDate, s.TotalAmount, s.AmountPaid, s.PaymentStatus, s.PaymentMethod, s.Notes, s.CreatedBy).Scan(&id)
	return id, err
}

// InsertSaleItem stores one invoice line.
func (t *txRepo) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, total_price) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice).Scan(&id)
	return id, err
}

// UpdateSalePayment records a payment and its derived status.
func (t *txRepo) UpdateSalePayment(ctx context.Context, saleID int64, amountPaid float64, status PaymentStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales SET amount_paid = $2, payment_status = $3 WHERE id = $1`, saleID, amountPaid, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateSaleItemQuantity rewrites one line after a reduction.
func (t *txRepo) UpdateSaleItemQuantity(ctx context.Context, itemID int64, quantity int, totalPrice float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sale_items SET quantity = $2, total_price = $3 WHERE id = $1`, itemID, quantity, totalPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateSaleTotal rewrites the invoice total and derived status.
func (t *txRepo) UpdateSaleTotal(ctx context.Context, saleID int64, total float64, status PaymentStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales SET total_amount = $2, payment_status = $3 WHERE id = $1`, saleID, total, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// InsertBulkOrder stores the draft row.
func (t *txRepo) InsertBulkOrder(ctx context.Context, o BulkOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO bulk_orders (order_number, customer_id, status, total_amount, notes, created_by) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6) RETURNING id`,
		o.OrderNumber, o.CustomerID, o.Status, o.TotalAmount, o.Notes, o.CreatedBy).Scan(&id)
	return id, err
}

// InsertBulkOrderItem stores one staged line.
func (t *txRepo) InsertBulkOrderItem(ctx context.Context, item BulkOrderItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO bulk_order_items (bulk_order_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4) RETURNING id`,
		item.BulkOrderID, item.ProductID, item.Quantity, item.UnitPrice).Scan(&id)
	return id, err
}

// SetBulkOrderStatus rewrites the status column.
func (t *txRepo) SetBulkOrderStatus(ctx context.Context, id int64, status BulkOrderStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bulk_orders SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetBulkOrderForUpdate locks the order row for a status transition.
func (t *txRepo) GetBulkOrderForUpdate(ctx context.Context, id int64) (BulkOrder, error) {
	var o BulkOrder
	err := t.tx.QueryRow(ctx, `SELECT id, order_number, customer_id, status, total_amount, COALESCE(notes, ''), created_by, created_at, updated_at FROM bulk_orders WHERE id = $1 FOR UPDATE`, id).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BulkOrder{}, shared.ErrNotFound
	}
	if err != nil {
		return BulkOrder{}, err
	}
	rows, err := t.tx.Query(ctx, `SELECT id, bulk_order_id, product_id, quantity, unit_price FROM bulk_order_items WHERE bulk_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return BulkOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item BulkOrderItem
		if err := rows.Scan(&item.ID, &item.BulkOrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return BulkOrder{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// GetSaleForUpdate locks the sale row with its items.
func (t *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	err := t.tx.QueryRow(ctx, `SELECT id, invoice_number, customer_id, sale_date, total_amount, amount_paid, payment_status, payment_method, COALESCE(notes, ''), created_by, created_at FROM sales WHERE id = $1 FOR UPDATE`, id).
		Scan(&s.ID, &s.InvoiceNumber, &s.CustomerID, &s.SaleDate, &s.TotalAmount, &s.AmountPaid, &s.PaymentStatus, &s.PaymentMethod, &s.Notes, &s.CreatedBy, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	rows, err := t.tx.Query(ctx, `SELECT id, sale_id, product_id, quantity, unit_price, total_price FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return Sale{}, err
		}
		s.Items = append(s.Items, item)
	}
	return s, rows.Err()
}
