package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	allowNeg bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, allowNeg: cfg.AllowNegativeStock}
}

// ListCategories returns product categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// ListSuppliers returns suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// ListProducts returns the catalogue.
func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// SaveProduct validates and stores a product, inserting or updating
// depending on whether an ID is present.
func (s *Service) SaveProduct(ctx context.Context, actorID int64, p Product) (int64, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	if p.Name == "" || p.SKU == "" {
		return 0, errors.New("inventory: name and sku required")
	}
	if p.CategoryID == 0 || p.SupplierID == 0 {
		return 0, errors.New("inventory: category and supplier required")
	}
	if p.CostPrice < 0 || p.SellingPrice < 0 {
		return 0, errors.New("inventory: prices must be >= 0")
	}
	if p.MinimumStockLevel < 0 {
		return 0, errors.New("inventory: minimum stock level must be >= 0")
	}
	switch p.Unit {
	case UnitPack, UnitCarton, UnitPiece, UnitRoll:
	default:
		return 0, fmt.Errorf("inventory: unknown unit %q", p.Unit)
	}
	if p.ID == 0 {
		id, err := s.repo.InsertProduct(ctx, p)
		if err != nil {
			return 0, err
		}
		s.record(ctx, actorID, "inventory:product_create", fmt.Sprintf("%d", id), map[string]any{"sku": p.SKU})
		return id, nil
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return 0, err
	}
	s.record(ctx, actorID, "inventory:product_update", fmt.Sprintf("%d", p.ID), map[string]any{"sku": p.SKU})
	return p.ID, nil
}

// DeleteProduct removes a product from the catalogue.
func (s *Service) DeleteProduct(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "inventory:product_delete", fmt.Sprintf("%d", id), nil)
	return nil
}

// ListMovements lists ledger entries.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// PostMovement appends a movement to the ledger. Issues are refused
// when they would drive the derived stock negative.
func (s *Service) PostMovement(ctx context.Context, input MovementInput) (StockMovement, error) {
	if input.ProductID == 0 {
		return StockMovement{}, errors.New("inventory: product required")
	}
	if input.Quantity <= 0 {
		return StockMovement{}, ErrInvalidQuantity
	}
	switch input.Type {
	case MovementIn, MovementOut:
	default:
		return StockMovement{}, ErrInvalidMovement
	}
	switch input.Reason {
	case ReasonPurchase, ReasonSale, ReasonReturn, ReasonDamage, ReasonTheft, ReasonAdjustment, ReasonTransfer:
	default:
		return StockMovement{}, ErrInvalidMovement
	}

	movement := StockMovement{
		ProductID: input.ProductID,
		Type:      input.Type,
		Quantity:  input.Quantity,
		Reason:    input.Reason,
		Reference: input.Reference,
		Notes:     input.Notes,
		CreatedBy: input.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stock, err := tx.CurrentStockForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if input.Type == MovementOut && !s.allowNeg && stock < input.Quantity {
			return ErrInsufficientStock
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id
		return nil
	})
	if err != nil {
		return StockMovement{}, err
	}
	s.record(ctx, input.ActorID, fmt.Sprintf("inventory:%s", input.Type), fmt.Sprintf("%d", movement.ID), map[string]any{
		"product_id": input.ProductID,
		"qty":        input.Quantity,
		"reason":     input.Reason,
	})
	return movement, nil
}

// StockLevels returns derived stock for all active products.
func (s *Service) StockLevels(ctx context.Context) ([]StockLevel, error) {
	return s.repo.StockLevels(ctx)
}

// LowStock returns only the products at or below their minimum level.
func (s *Service) LowStock(ctx context.Context) ([]StockLevel, error) {
	levels, err := s.repo.StockLevels(ctx)
	if err != nil {
		return nil, err
	}
	low := levels[:0:0]
	for _, l := range levels {
		if l.IsLow() {
			low = append(low, l)
		}
	}
	return low, nil
}

// OpenAlerts lists unresolved stock alerts.
func (s *Service) OpenAlerts(ctx context.Context) ([]StockAlert, error) {
	return s.repo.OpenAlerts(ctx)
}

// ResolveProductAlerts closes all open alerts for one product.
func (s *Service) ResolveProductAlerts(ctx context.Context, actorID, productID int64) (int64, error) {
	resolved, err := s.repo.ResolveAlerts(ctx, productID)
	if err != nil {
		return 0, err
	}
	if resolved > 0 {
		s.record(ctx, actorID, "inventory:alerts_resolve", fmt.Sprintf("%d", productID), map[string]any{"count": resolved})
	}
	return resolved, nil
}

// ScanResult summarises one alert scan run.
type ScanResult struct {
	AlertsCreated  int
	LowStock       int
	OutOfStock     int
	AlertsResolved int
}

// ScanAlerts walks every active product and creates or resolves
// alerts based on the derived stock level. Resolution only runs when
// requested so a plain scan never closes alerts behind an operator's
// back.
func (s *Service) ScanAlerts(ctx context.Context, resolve bool) (ScanResult, error) {
	levels, err := s.repo.StockLevels(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	var result ScanResult
	for _, level := range levels {
		if level.IsLow() {
			alertType := AlertLowStock
			message := fmt.Sprintf("%s is running low on stock. Current stock: %d, Minimum required: %d", level.ProductName, level.CurrentStock, level.MinimumStockLevel)
			if level.CurrentStock <= 0 {
				alertType = AlertOutOfStock
				message = fmt.Sprintf("%s is out of stock. Current stock: %d, Minimum required: %d", level.ProductName, level.CurrentStock, level.MinimumStockLevel)
			}
			exists, err := s.repo.HasOpenAlert(ctx, level.ProductID, alertType)
			if err != nil {
				return result, err
			}
			if !exists {
				if err := s.repo.InsertAlert(ctx, level.ProductID, alertType, message); err != nil {
					return result, err
				}
				result.AlertsCreated++
				if alertType == AlertOutOfStock {
					result.OutOfStock++
				} else {
					result.LowStock++
				}
			}
			continue
		}
		if resolve {
			resolved, err := s.repo.ResolveAlerts(ctx, level.ProductID)
			if err != nil {
				return result, err
			}
			result.AlertsResolved += int(resolved)
		}
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inventory",
		EntityID: entityID,
		Meta:     meta,
	})
}
