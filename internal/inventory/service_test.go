package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

type memoryRepo struct {
	products  map[int64]Product
	movements []StockMovement
	alerts    []StockAlert
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[int64]Product{}, nextID: 1}
}

func (m *memoryRepo) addProduct(name, sku string, minLevel int) int64 {
	id := m.nextID
	m.nextID++
	m.products[id] = Product{ID: id, Name: name, SKU: sku, CategoryID: 1, SupplierID: 1, Unit: UnitPack, MinimumStockLevel: minLevel, IsActive: true}
	return id
}

func (m *memoryRepo) stock(productID int64) int {
	total := 0
	for _, mv := range m.movements {
		if mv.ProductID != productID {
			continue
		}
		if mv.Type == MovementIn {
			total += mv.Quantity
		} else {
			total -= mv.Quantity
		}
	}
	return total
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) CurrentStockForUpdate(_ context.Context, productID int64) (int, error) {
	if _, ok := m.products[productID]; !ok {
		return 0, shared.ErrNotFound
	}
	return m.stock(productID), nil
}

func (m *memoryRepo) InsertMovement(_ context.Context, mv StockMovement) (int64, error) {
	mv.ID = m.nextID
	m.nextID++
	m.movements = append(m.movements, mv)
	return mv.ID, nil
}

func (m *memoryRepo) ListCategories(context.Context) ([]Category, error) { return nil, nil }
func (m *memoryRepo) ListSuppliers(context.Context) ([]Supplier, error)  { return nil, nil }

func (m *memoryRepo) ListProducts(_ context.Context, activeOnly bool) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) InsertProduct(_ context.Context, p Product) (int64, error) {
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			return 0, ErrDuplicateSKU
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return p.ID, nil
}

func (m *memoryRepo) UpdateProduct(_ context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memoryRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryRepo) ListMovements(_ context.Context, filter MovementFilter) ([]StockMovement, error) {
	var out []StockMovement
	for _, mv := range m.movements {
		if filter.ProductID != 0 && mv.ProductID != filter.ProductID {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

func (m *memoryRepo) StockLevels(context.Context) ([]StockLevel, error) {
	var out []StockLevel
	for _, p := range m.products {
		if !p.IsActive {
			continue
		}
		out = append(out, StockLevel{ProductID: p.ID, ProductName: p.Name, SKU: p.SKU, CurrentStock: m.stock(p.ID), MinimumStockLevel: p.MinimumStockLevel})
	}
	return out, nil
}

func (m *memoryRepo) OpenAlerts(context.Context) ([]StockAlert, error) {
	var out []StockAlert
	for _, a := range m.alerts {
		if !a.IsResolved {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryRepo) HasOpenAlert(_ context.Context, productID int64, alertType AlertType) (bool, error) {
	for _, a := range m.alerts {
		if a.ProductID == productID && a.Type == alertType && !a.IsResolved {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) InsertAlert(_ context.Context, productID int64, alertType AlertType, message string) error {
	m.alerts = append(m.alerts, StockAlert{ID: m.nextID, ProductID: productID, Type: alertType, Message: message})
	m.nextID++
	return nil
}

func (m *memoryRepo) ResolveAlerts(_ context.Context, productID int64) (int64, error) {
	var resolved int64
	for i := range m.alerts {
		if m.alerts[i].ProductID == productID && !m.alerts[i].IsResolved {
			m.alerts[i].IsResolved = true
			resolved++
		}
	}
	return resolved, nil
}

func TestPostMovementValidatesInput(t *testing.T) {
	repo := newMemoryRepo()
	productID := repo.addProduct("Poly Bags", "PB-001", 5)
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, MovementInput{ProductID: productID, Type: MovementIn, Quantity: 0, Reason: ReasonPurchase})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostMovement(ctx, MovementInput{ProductID: productID, Type: "SIDEWAYS", Quantity: 1, Reason: ReasonPurchase})
	require.ErrorIs(t, err, ErrInvalidMovement)

	_, err = svc.PostMovement(ctx, MovementInput{ProductID: productID, Type: MovementIn, Quantity: 1, Reason: "GIFT"})
	require.ErrorIs(t, err, ErrInvalidMovement)
}

func TestPostMovementRefusesNegativeStock(t *testing.T) {
	repo := newMemoryRepo()
	productID := repo.addProduct("Cartons", "CT-001", 2)
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, MovementInput{ProductID: productID, Type: MovementIn, Quantity: 10, Reason: ReasonPurchase})
	require.NoError(t, err)

	_, err = svc.PostMovement(ctx, MovementInput{ProductID: productID, Type: MovementOut, Quantity: 11, Reason: ReasonSale})
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.PostMovement(ctx, MovementInput{ProductID: productID, Type: MovementOut, Quantity: 10, Reason: ReasonSale})
	require.NoError(t, err)
	require.Equal(t, 0, repo.stock(productID))
}

func TestStockDerivedFromLedger(t *testing.T) {
	repo := newMemoryRepo()
	productID := repo.addProduct("Rolls", "RL-001", 3)
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	for _, step := range []struct {
		typ MovementType
		qty int
	}{
		{MovementIn, 20},
		{MovementOut, 5},
		{MovementIn, 2},
		{MovementOut, 7},
	} {
		reason := ReasonPurchase
		if step.typ == MovementOut {
			reason = ReasonSale
		}
		_, err := svc.PostMovement(ctx, MovementInput{ProductID: productID, Type: step.typ, Quantity: step.qty, Reason: reason})
		require.NoError(t, err)
	}

	levels, err := svc.StockLevels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Equal(t, 10, levels[0].CurrentStock)
}

func TestScanAlertsCreatesAndResolves(t *testing.T) {
	repo := newMemoryRepo()
	emptyID := repo.addProduct("Sacks", "SK-001", 5)
	lowID := repo.addProduct("Tapes", "TP-001", 10)
	okID := repo.addProduct("Labels", "LB-001", 1)
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, MovementInput{ProductID: lowID, Type: MovementIn, Quantity: 4, Reason: ReasonPurchase})
	require.NoError(t, err)
	_, err = svc.PostMovement(ctx, MovementInput{ProductID: okID, Type: MovementIn, Quantity: 50, Reason: ReasonPurchase})
	require.NoError(t, err)

	result, err := svc.ScanAlerts(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, result.AlertsCreated)
	require.Equal(t, 0, result.AlertsResolved)

	byProduct := map[int64]AlertType{}
	for _, a := range repo.alerts {
		byProduct[a.ProductID] = a.Type
	}
	require.Equal(t, AlertOutOfStock, byProduct[emptyID])
	require.Equal(t, AlertLowStock, byProduct[lowID])
	require.NotContains(t, byProduct, okID)

	// A second scan is idempotent while the alerts stay open.
	result, err = svc.ScanAlerts(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 0, result.AlertsCreated)

	// Restock and scan with resolution enabled.
	_, err = svc.PostMovement(ctx, MovementInput{ProductID: lowID, Type: MovementIn, Quantity: 100, Reason: ReasonPurchase})
	require.NoError(t, err)
	result, err = svc.ScanAlerts(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, result.AlertsResolved)

	open, err := svc.OpenAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, emptyID, open[0].ProductID)
}

func TestSaveProductValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	valid := Product{Name: "Shrink Wrap", SKU: "SW-001", CategoryID: 1, SupplierID: 1, Unit: UnitRoll, CostPrice: 2, SellingPrice: 3, MinimumStockLevel: 5, IsActive: true}

	id, err := svc.SaveProduct(ctx, 1, valid)
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = svc.SaveProduct(ctx, 1, valid)
	require.ErrorIs(t, err, ErrDuplicateSKU)

	bad := valid
	bad.SKU = "SW-002"
	bad.Unit = "BUNDLE"
	_, err = svc.SaveProduct(ctx, 1, bad)
	require.Error(t, err)

	bad = valid
	bad.SKU = "SW-003"
	bad.SellingPrice = -1
	_, err = svc.SaveProduct(ctx, 1, bad)
	require.Error(t, err)
}

func TestLowStockFiltersLevels(t *testing.T) {
	repo := newMemoryRepo()
	lowID := repo.addProduct("Twine", "TW-001", 10)
	okID := repo.addProduct("Glue", "GL-001", 1)
	svc := NewService(repo, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, MovementInput{ProductID: lowID, Type: MovementIn, Quantity: 10, Reason: ReasonPurchase})
	require.NoError(t, err)
	_, err = svc.PostMovement(ctx, MovementInput{ProductID: okID, Type: MovementIn, Quantity: 10, Reason: ReasonPurchase})
	require.NoError(t, err)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, lowID, low[0].ProductID)
}
