package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wowdasare/everpack-system-hnd/internal/inventory"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

// InventoryPort is the slice of the inventory service a sale needs:
// price lookups and ledger postings.
type InventoryPort interface {
	GetProduct(ctx context.Context, id int64) (inventory.Product, error)
	PostMovement(ctx context.Context, input inventory.MovementInput) (inventory.StockMovement, error)
}

// IdempotencyPort deduplicates sale submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates sales operations.
type Service struct {
	repo  RepositoryPort
	inv   InventoryPort
	idem  IdempotencyPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, inv InventoryPort, idem IdempotencyPort, audit AuditPort) *Service {
	return &Service{repo: repo, inv: inv, idem: idem, audit: audit, now: time.Now}
}

// ListCustomers returns customers on record.
func (s *Service) ListCustomers(ctx context.Context, activeOnly bool) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, activeOnly)
}

// GetCustomer fetches one customer.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// SaveCustomer validates and stores a customer.
func (s *Service) SaveCustomer(ctx context.Context, actorID int64, c Customer) (int64, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return 0, errors.New("sales: customer name required")
	}
	switch c.Type {
	case CustomerRetail, CustomerWholesale, CustomerDistributor:
	default:
		return 0, fmt.Errorf("sales: unknown customer type %q", c.Type)
	}
	if c.ID == 0 {
		id, err := s.repo.InsertCustomer(ctx, c)
		if err != nil {
			return 0, err
		}
		s.record(ctx, actorID, "sales:customer_create", fmt.Sprintf("%d", id), map[string]any{"name": c.Name})
		return id, nil
	}
	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return 0, err
	}
	s.record(ctx, actorID, "sales:customer_update", fmt.Sprintf("%d", c.ID), map[string]any{"name": c.Name})
	return c.ID, nil
}

// ListSales lists invoices.
func (s *Service) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

// GetSale fetches one invoice with items.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// CreateSale writes the invoice and issues stock for every line. The
// invoice row commits before stock posting; if any issue fails the
// invoice is removed again so the two never diverge.
func (s *Service) CreateSale(ctx context.Context, input SaleInput) (Sale, error) {
	if len(input.Items) == 0 {
		return Sale{}, ErrEmptySale
	}
	if _, err := s.repo.GetCustomer(ctx, input.CustomerID); err != nil {
		return Sale{}, err
	}
	saleDate, err := s.resolveSaleDate(input.SaleDate)
	if err != nil {
		return Sale{}, err
	}
	items := make([]SaleItem, 0, len(input.Items))
	var total float64
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return Sale{}, inventory.ErrInvalidQuantity
		}
		product, err := s.inv.GetProduct(ctx, in.ProductID)
		if err != nil {
			return Sale{}, err
		}
		unitPrice := in.UnitPrice
		if unitPrice <= 0 {
			unitPrice = product.SellingPrice
		}
		line := SaleItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			UnitPrice:   unitPrice,
			TotalPrice:  unitPrice * float64(in.Quantity),
		}
		total += line.TotalPrice
		items = append(items, line)
	}
	if input.AmountPaid < 0 {
		return Sale{}, errors.New("sales: amount paid must be >= 0")
	}
	if input.AmountPaid > total {
		return Sale{}, ErrOverpayment
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, "sales"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Sale{}, ErrDuplicateSubmission
			}
			return Sale{}, err
		}
	}

	sale := Sale{
		CustomerID:    input.CustomerID,
		SaleDate:      saleDate,
		TotalAmount:   total,
		AmountPaid:    input.AmountPaid,
		PaymentStatus: DerivePaymentStatus(total, input.AmountPaid),
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		CreatedBy:     input.ActorID,
		Items:         items,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextInvoiceSeq(ctx)
		if err != nil {
			return err
		}
		sale.InvoiceNumber = fmt.Sprintf("INV-%06d", seq)
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		for i := range sale.Items {
			sale.Items[i].SaleID = id
			itemID, err := tx.InsertSaleItem(ctx, sale.Items[i])
			if err != nil {
				return err
			}
			sale.Items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Sale{}, err
	}

	for i, item := range sale.Items {
		_, err := s.inv.PostMovement(ctx, inventory.MovementInput{
			ProductID: item.ProductID,
			Type:      inventory.MovementOut,
			Quantity:  item.Quantity,
			Reason:    inventory.ReasonSale,
			Reference: sale.InvoiceNumber,
			ActorID:   input.ActorID,
		})
		if err != nil {
			// Return the lines already issued before unwinding.
			for _, done := range sale.Items[:i] {
				_, _ = s.inv.PostMovement(ctx, inventory.MovementInput{
					ProductID: done.ProductID,
					Type:      inventory.MovementIn,
					Quantity:  done.Quantity,
					Reason:    inventory.ReasonReturn,
					Reference: sale.InvoiceNumber,
					ActorID:   input.ActorID,
				})
			}
			_ = s.repo.DeleteSale(ctx, sale.ID)
			s.releaseKey(ctx, input.IdempotencyKey)
			return Sale{}, err
		}
	}

	s.record(ctx, input.ActorID, "sales:create", fmt.Sprintf("%d", sale.ID), map[string]any{
		"invoice": sale.InvoiceNumber,
		"total":   sale.TotalAmount,
	})
	return sale, nil
}

// AddPayment records a partial or final settlement on an invoice.
func (s *Service) AddPayment(ctx context.Context, actorID, saleID int64, amount float64) (Sale, error) {
	if amount <= 0 {
		return Sale{}, errors.New("sales: payment must be positive")
	}
	var updated Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		paid := sale.AmountPaid + amount
		if paid > sale.TotalAmount {
			return ErrOverpayment
		}
		status := DerivePaymentStatus(sale.TotalAmount, paid)
		if err := tx.UpdateSalePayment(ctx, saleID, paid, status); err != nil {
			return err
		}
		sale.AmountPaid = paid
		sale.PaymentStatus = status
		updated = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.record(ctx, actorID, "sales:payment", fmt.Sprintf("%d", saleID), map[string]any{"amount": amount, "status": updated.PaymentStatus})
	return updated, nil
}

// ReduceSaleItem lowers one line's quantity and returns the delta to
// stock with a RETURN movement.
func (s *Service) ReduceSaleItem(ctx context.Context, actorID, saleID, itemID int64, newQuantity int) error {
	if newQuantity < 0 {
		return inventory.ErrInvalidQuantity
	}
	var (
		invoice   string
		productID int64
		delta     int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		var item *SaleItem
		for i := range sale.Items {
			if sale.Items[i].ID == itemID {
				item = &sale.Items[i]
				break
			}
		}
		if item == nil {
			return shared.ErrNotFound
		}
		if newQuantity >= item.Quantity {
			return errors.New("sales: reduction must lower the quantity")
		}
		delta = item.Quantity - newQuantity
		invoice = sale.InvoiceNumber
		productID = item.ProductID
		newLineTotal := item.UnitPrice * float64(newQuantity)
		if err := tx.UpdateSaleItemQuantity(ctx, itemID, newQuantity, newLineTotal); err != nil {
			return err
		}
		total := sale.TotalAmount - item.TotalPrice + newLineTotal
		return tx.UpdateSaleTotal(ctx, saleID, total, DerivePaymentStatus(total, sale.AmountPaid))
	})
	if err != nil {
		return err
	}
	_, err = s.inv.PostMovement(ctx, inventory.MovementInput{
		ProductID: productID,
		Type:      inventory.MovementIn,
		Quantity:  delta,
		Reason:    inventory.ReasonReturn,
		Reference: invoice,
		ActorID:   actorID,
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "sales:item_reduce", fmt.Sprintf("%d", itemID), map[string]any{"delta": delta})
	return nil
}

// ListBulkOrders lists bulk orders.
func (s *Service) ListBulkOrders(ctx context.Context) ([]BulkOrder, error) {
	return s.repo.ListBulkOrders(ctx)
}

// GetBulkOrder fetches one bulk order with items.
func (s *Service) GetBulkOrder(ctx context.Context, id int64) (BulkOrder, error) {
	return s.repo.GetBulkOrder(ctx, id)
}

// CreateBulkOrder stages a draft order. Nothing touches stock until
// the order converts into a sale.
func (s *Service) CreateBulkOrder(ctx context.Context, input BulkOrderInput) (BulkOrder, error) {
	if len(input.Items) == 0 {
		return BulkOrder{}, ErrEmptySale
	}
	if _, err := s.repo.GetCustomer(ctx, input.CustomerID); err != nil {
		return BulkOrder{}, err
	}
	order := BulkOrder{
		CustomerID: input.CustomerID,
		Status:     BulkDraft,
		Notes:      input.Notes,
		CreatedBy:  input.ActorID,
	}
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return BulkOrder{}, inventory.ErrInvalidQuantity
		}
		product, err := s.inv.GetProduct(ctx, in.ProductID)
		if err != nil {
			return BulkOrder{}, err
		}
		unitPrice := in.UnitPrice
		if unitPrice <= 0 {
			unitPrice = product.SellingPrice
		}
		order.Items = append(order.Items, BulkOrderItem{ProductID: product.ID, ProductName: product.Name, Quantity: in.Quantity, UnitPrice: unitPrice})
		order.TotalAmount += unitPrice * float64(in.Quantity)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextBulkOrderSeq(ctx)
		if err != nil {
			return err
		}
		order.OrderNumber = fmt.Sprintf("BULK-%06d", seq)
		id, err := tx.InsertBulkOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for i := range order.Items {
			order.Items[i].BulkOrderID = id
			itemID, err := tx.InsertBulkOrderItem(ctx, order.Items[i])
			if err != nil {
				return err
			}
			order.Items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return BulkOrder{}, err
	}
	s.record(ctx, input.ActorID, "sales:bulk_create", fmt.Sprintf("%d", order.ID), map[string]any{"order": order.OrderNumber})
	return order, nil
}

// SubmitBulkOrder moves a draft into the submitted state.
func (s *Service) SubmitBulkOrder(ctx context.Context, actorID, id int64) error {
	return s.transitionBulkOrder(ctx, actorID, id, BulkSubmitted)
}

// CancelBulkOrder cancels an order that has not started processing.
func (s *Service) CancelBulkOrder(ctx context.Context, actorID, id int64) error {
	return s.transitionBulkOrder(ctx, actorID, id, BulkCancelled)
}

func (s *Service) transitionBulkOrder(ctx context.Context, actorID, id int64, to BulkOrderStatus) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetBulkOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(order.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
		}
		return tx.SetBulkOrderStatus(ctx, id, to)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "sales:bulk_transition", fmt.Sprintf("%d", id), map[string]any{"to": to})
	return nil
}

// ConvertBulkOrder turns a submitted order into a sale. The order is
// parked in PROCESSING while stock is issued and moves to COMPLETED
// once the invoice exists; a failed conversion rolls the order back
// to SUBMITTED.
func (s *Service) ConvertBulkOrder(ctx context.Context, actorID, id int64, method PaymentMethod) (Sale, error) {
	var order BulkOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetBulkOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status != BulkSubmitted {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, locked.Status, BulkProcessing)
		}
		order = locked
		return tx.SetBulkOrderStatus(ctx, id, BulkProcessing)
	})
	if err != nil {
		return Sale{}, err
	}

	input := SaleInput{
		CustomerID:    order.CustomerID,
		PaymentMethod: method,
		Notes:         fmt.Sprintf("Converted from bulk order %s", order.OrderNumber),
		ActorID:       actorID,
	}
	for _, item := range order.Items {
		input.Items = append(input.Items, SaleItemInput{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	sale, err := s.CreateSale(ctx, input)
	if err != nil {
		_ = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.SetBulkOrderStatus(ctx, id, BulkSubmitted)
		})
		return Sale{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetBulkOrderStatus(ctx, id, BulkCompleted)
	})
	if err != nil {
		return Sale{}, err
	}
	s.record(ctx, actorID, "sales:bulk_convert", fmt.Sprintf("%d", id), map[string]any{"invoice": sale.InvoiceNumber})
	return sale, nil
}

// resolveSaleDate defaults a zero date to now and refuses dates
// outside today.
func (s *Service) resolveSaleDate(raw time.Time) (time.Time, error) {
	now := s.now()
	if raw.IsZero() {
		return now, nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(raw.Year(), raw.Month(), raw.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return time.Time{}, ErrBackdatedSale
	}
	if day.After(today) {
		return time.Time{}, ErrFutureSale
	}
	return raw, nil
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if key == "" || s.idem == nil {
		return
	}
	_ = s.idem.Delete(ctx, key)
}

func (s *Service) record(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales",
		EntityID: entityID,
		Meta:     meta,
	})
}
