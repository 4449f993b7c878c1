package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wowdasare/everpack-system-hnd/internal/inventory"
	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

type memoryRepo struct {
	customers  map[int64]Customer
	sales      map[int64]*Sale
	orders     map[int64]*BulkOrder
	invoiceSeq int64
	bulkSeq    int64
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[int64]Customer{}, sales: map[int64]*Sale{}, orders: map[int64]*BulkOrder{}, nextID: 1}
}

func (m *memoryRepo) addCustomer(name string) int64 {
	id := m.nextID
	m.nextID++
	m.customers[id] = Customer{ID: id, Name: name, Type: CustomerRetail, IsActive: true}
	return id
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ListCustomers(_ context.Context, activeOnly bool) ([]Customer, error) {
	var out []Customer
	for _, c := range m.customers {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) GetCustomer(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) InsertCustomer(_ context.Context, c Customer) (int64, error) {
	c.ID = m.nextID
	m.nextID++
	m.customers[c.ID] = c
	return c.ID, nil
}

func (m *memoryRepo) UpdateCustomer(_ context.Context, c Customer) error {
	if _, ok := m.customers[c.ID]; !ok {
		return shared.ErrNotFound
	}
	m.customers[c.ID] = c
	return nil
}

func (m *memoryRepo) ListSales(_ context.Context, filter SaleFilter) ([]Sale, error) {
	var out []Sale
	for _, s := range m.sales {
		if !filter.From.IsZero() && s.SaleDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && s.SaleDate.After(filter.To) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memoryRepo) GetSale(_ context.Context, id int64) (Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return *s, nil
}

func (m *memoryRepo) DeleteSale(_ context.Context, id int64) error {
	delete(m.sales, id)
	return nil
}

func (m *memoryRepo) ListBulkOrders(context.Context) ([]BulkOrder, error) {
	var out []BulkOrder
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memoryRepo) GetBulkOrder(_ context.Context, id int64) (BulkOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return BulkOrder{}, shared.ErrNotFound
	}
	return *o, nil
}

func (m *memoryRepo) NextInvoiceSeq(context.Context) (int64, error) {
	m.invoiceSeq++
	return m.invoiceSeq, nil
}

func (m *memoryRepo) NextBulkOrderSeq(context.Context) (int64, error) {
	m.bulkSeq++
	return m.bulkSeq, nil
}

func (m *memoryRepo) InsertSale(_ context.Context, s Sale) (int64, error) {
	s.ID = m.nextID
	m.nextID++
	s.Items = nil
	m.sales[s.ID] = &s
	return s.ID, nil
}

func (m *memoryRepo) InsertSaleItem(_ context.Context, item SaleItem) (int64, error) {
	item.ID = m.nextID
	m.nextID++
	sale := m.sales[item.SaleID]
	sale.Items = append(sale.Items, item)
	return item.ID, nil
}

func (m *memoryRepo) UpdateSalePayment(_ context.Context, saleID int64, amountPaid float64, status PaymentStatus) error {
	s, ok := m.sales[saleID]
	if !ok {
		return shared.ErrNotFound
	}
	s.AmountPaid = amountPaid
	s.PaymentStatus = status
	return nil
}

func (m *memoryRepo) UpdateSaleItemQuantity(_ context.Context, itemID int64, quantity int, totalPrice float64) error {
	for _, s := range m.sales {
		for i := range s.Items {
			if s.Items[i].ID == itemID {
				s.Items[i].Quantity = quantity
				s.Items[i].TotalPrice = totalPrice
				return nil
			}
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRepo) UpdateSaleTotal(_ context.Context, saleID int64, total float64, status PaymentStatus) error {
	s, ok := m.sales[saleID]
	if !ok {
		return shared.ErrNotFound
	}
	s.TotalAmount = total
	s.PaymentStatus = status
	return nil
}

func (m *memoryRepo) InsertBulkOrder(_ context.Context, o BulkOrder) (int64, error) {
	o.ID = m.nextID
	m.nextID++
	o.Items = nil
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *memoryRepo) InsertBulkOrderItem(_ context.Context, item BulkOrderItem) (int64, error) {
	item.ID = m.nextID
	m.nextID++
	order := m.orders[item.BulkOrderID]
	order.Items = append(order.Items, item)
	return item.ID, nil
}

func (m *memoryRepo) SetBulkOrderStatus(_ context.Context, id int64, status BulkOrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memoryRepo) GetBulkOrderForUpdate(ctx context.Context, id int64) (BulkOrder, error) {
	return m.GetBulkOrder(ctx, id)
}

func (m *memoryRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return m.GetSale(ctx, id)
}

type fakeInventory struct {
	products  map[int64]inventory.Product
	stock     map[int64]int
	movements []inventory.MovementInput
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{products: map[int64]inventory.Product{}, stock: map[int64]int{}}
}

func (f *fakeInventory) addProduct(name string, price float64, stock int) int64 {
	id := int64(len(f.products) + 1)
	f.products[id] = inventory.Product{ID: id, Name: name, SellingPrice: price, IsActive: true}
	f.stock[id] = stock
	return id
}

func (f *fakeInventory) GetProduct(_ context.Context, id int64) (inventory.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return inventory.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeInventory) PostMovement(_ context.Context, input inventory.MovementInput) (inventory.StockMovement, error) {
	if input.Type == inventory.MovementOut && f.stock[input.ProductID] < input.Quantity {
		return inventory.StockMovement{}, inventory.ErrInsufficientStock
	}
	if input.Type == inventory.MovementOut {
		f.stock[input.ProductID] -= input.Quantity
	} else {
		f.stock[input.ProductID] += input.Quantity
	}
	f.movements = append(f.movements, input)
	return inventory.StockMovement{ID: int64(len(f.movements))}, nil
}

type fakeIdempotency struct {
	seen map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	f.seen[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	delete(f.seen, key)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *fakeInventory, *fakeIdempotency) {
	t.Helper()
	repo := newMemoryRepo()
	inv := newFakeInventory()
	idem := &fakeIdempotency{}
	svc := NewService(repo, inv, idem, nil)
	return svc, repo, inv, idem
}

func TestCreateSalePostsStockAndDerivesStatus(t *testing.T) {
	svc, repo, inv, _ := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Kumasi Traders")
	productID := inv.addProduct("Poly Bags", 5, 100)

	sale, err := svc.CreateSale(ctx, SaleInput{
		CustomerID:    customerID,
		AmountPaid:    25,
		PaymentMethod: MethodCash,
		Items:         []SaleItemInput{{ProductID: productID, Quantity: 10}},
		ActorID:       1,
	})
	require.NoError(t, err)
	require.Equal(t, "INV-000001", sale.InvoiceNumber)
	require.Equal(t, 50.0, sale.TotalAmount)
	require.Equal(t, PaymentPartial, sale.PaymentStatus)
	require.Equal(t, 90, inv.stock[productID])
	require.Len(t, inv.movements, 1)
	require.Equal(t, inventory.MovementOut, inv.movements[0].Type)
	require.Equal(t, inventory.ReasonSale, inv.movements[0].Reason)
	require.Equal(t, sale.InvoiceNumber, inv.movements[0].Reference)

	second, err := svc.CreateSale(ctx, SaleInput{
		CustomerID: customerID,
		AmountPaid: 50,
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 10}},
		ActorID:    1,
	})
	require.NoError(t, err)
	require.Equal(t, "INV-000002", second.InvoiceNumber)
	require.Equal(t, PaymentPaid, second.PaymentStatus)
}

func TestCreateSaleValidation(t *testing.T) {
	svc, repo, inv, _ := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Accra Mart")
	productID := inv.addProduct("Cartons", 10, 50)

	_, err := svc.CreateSale(ctx, SaleInput{CustomerID: customerID})
	require.ErrorIs(t, err, ErrEmptySale)

	_, err = svc.CreateSale(ctx, SaleInput{
		CustomerID: customerID,
		SaleDate:   time.Now().AddDate(0, 0, -1),
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrBackdatedSale)

	_, err = svc.CreateSale(ctx, SaleInput{
		CustomerID: customerID,
		SaleDate:   time.Now().AddDate(0, 0, 1),
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrFutureSale)

	_, err = svc.CreateSale(ctx, SaleInput{
		CustomerID: customerID,
		AmountPaid: 1000,
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrOverpayment)
}

func TestCreateSaleIdempotency(t *testing.T) {
	svc, repo, inv, _ := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Tema Wholesale")
	productID := inv.addProduct("Rolls", 2, 100)

	input := SaleInput{
		CustomerID:     customerID,
		Items:          []SaleItemInput{{ProductID: productID, Quantity: 5}},
		IdempotencyKey: "submit-1",
	}
	_, err := svc.CreateSale(ctx, input)
	require.NoError(t, err)

	_, err = svc.CreateSale(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	require.Equal(t, 95, inv.stock[productID])
}

func TestCreateSaleRollsBackOnInsufficientStock(t *testing.T) {
	svc, repo, inv, idem := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Cape Coast Shop")
	okID := inv.addProduct("Sacks", 3, 100)
	shortID := inv.addProduct("Tapes", 4, 2)

	_, err := svc.CreateSale(ctx, SaleInput{
		CustomerID:     customerID,
		Items:          []SaleItemInput{{ProductID: okID, Quantity: 5}, {ProductID: shortID, Quantity: 10}},
		IdempotencyKey: "submit-2",
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Empty(t, repo.sales)
	require.False(t, idem.seen["submit-2"])
	// The issued line was returned during the unwind.
	require.Equal(t, 100, inv.stock[okID])

	// The retry with the same key must be allowed once stock exists.
	inv.stock[shortID] = 50
	_, err = svc.CreateSale(ctx, SaleInput{
		CustomerID:     customerID,
		Items:          []SaleItemInput{{ProductID: okID, Quantity: 5}, {ProductID: shortID, Quantity: 10}},
		IdempotencyKey: "submit-2",
	})
	require.NoError(t, err)
}

func TestAddPaymentTransitions(t *testing.T) {
	svc, repo, inv, _ := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Takoradi Depot")
	productID := inv.addProduct("Twine", 10, 100)

	sale, err := svc.CreateSale(ctx, SaleInput{
		CustomerID: customerID,
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, PaymentPending, sale.PaymentStatus)

	updated, err := svc.AddPayment(ctx, 1, sale.ID, 40)
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, updated.PaymentStatus)

	_, err = svc.AddPayment(ctx, 1, sale.ID, 100)
	require.ErrorIs(t, err, ErrOverpayment)

	updated, err = svc.AddPayment(ctx, 1, sale.ID, 60)
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, updated.PaymentStatus)
}

func TestReduceSaleItemReturnsStock(t *testing.T) {
	svc, repo, inv, _ := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Ho Central")
	productID := inv.addProduct("Glue", 5, 100)

	sale, err := svc.CreateSale(ctx, SaleInput{
		CustomerID: customerID,
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 20}},
	})
	require.NoError(t, err)
	require.Equal(t, 80, inv.stock[productID])

	itemID := repo.sales[sale.ID].Items[0].ID
	require.NoError(t, svc.ReduceSaleItem(ctx, 1, sale.ID, itemID, 15))

	require.Equal(t, 85, inv.stock[productID])
	stored := repo.sales[sale.ID]
	require.Equal(t, 75.0, stored.TotalAmount)
	last := inv.movements[len(inv.movements)-1]
	require.Equal(t, inventory.MovementIn, last.Type)
	require.Equal(t, inventory.ReasonReturn, last.Reason)
	require.Equal(t, 5, last.Quantity)

	err = svc.ReduceSaleItem(ctx, 1, sale.ID, itemID, 15)
	require.Error(t, err)
}

func TestBulkOrderLifecycle(t *testing.T) {
	svc, repo, inv, _ := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Volta Distributors")
	productID := inv.addProduct("Labels", 2, 100)

	order, err := svc.CreateBulkOrder(ctx, BulkOrderInput{
		CustomerID: customerID,
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 30}},
		ActorID:    1,
	})
	require.NoError(t, err)
	require.Equal(t, "BULK-000001", order.OrderNumber)
	require.Equal(t, BulkDraft, order.Status)
	require.Equal(t, 60.0, order.TotalAmount)
	// Drafting never touches stock.
	require.Equal(t, 100, inv.stock[productID])

	// Draft orders cannot convert.
	_, err = svc.ConvertBulkOrder(ctx, 1, order.ID, MethodCredit)
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, svc.SubmitBulkOrder(ctx, 1, order.ID))

	sale, err := svc.ConvertBulkOrder(ctx, 1, order.ID, MethodCredit)
	require.NoError(t, err)
	require.Equal(t, 60.0, sale.TotalAmount)
	require.Equal(t, 70, inv.stock[productID])
	require.Equal(t, BulkCompleted, repo.orders[order.ID].Status)

	// Completed orders are terminal.
	require.ErrorIs(t, svc.CancelBulkOrder(ctx, 1, order.ID), ErrInvalidTransition)
}

func TestConvertBulkOrderRevertsOnFailure(t *testing.T) {
	svc, repo, inv, _ := newTestService(t)
	ctx := context.Background()
	customerID := repo.addCustomer("Sunyani Stores")
	productID := inv.addProduct("Shrink Wrap", 8, 5)

	order, err := svc.CreateBulkOrder(ctx, BulkOrderInput{
		CustomerID: customerID,
		Items:      []SaleItemInput{{ProductID: productID, Quantity: 50}},
		ActorID:    1,
	})
	require.NoError(t, err)
	require.NoError(t, svc.SubmitBulkOrder(ctx, 1, order.ID))

	_, err = svc.ConvertBulkOrder(ctx, 1, order.ID, MethodCredit)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Equal(t, BulkSubmitted, repo.orders[order.ID].Status)
	require.Equal(t, 5, inv.stock[productID])
}

func TestSaveCustomerValidatesType(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveCustomer(ctx, 1, Customer{Name: "Nsawam Kiosk", Type: "VIP"})
	require.Error(t, err)

	id, err := svc.SaveCustomer(ctx, 1, Customer{Name: "Nsawam Kiosk", Type: CustomerRetail, IsActive: true})
	require.NoError(t, err)
	require.NotZero(t, id)
}
