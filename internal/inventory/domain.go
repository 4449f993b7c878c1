package inventory

import (
	"errors"
	"time"
)

// Unit enumerates packaging units for products.
type Unit string

const (
	UnitPack   Unit = "PACK"
	UnitCarton Unit = "CARTON"
	UnitPiece  Unit = "PIECE"
	UnitRoll   Unit = "ROLL"
)

// MovementType enumerates stock movement directions.
type MovementType string

const (
	// MovementIn represents stock received.
	MovementIn MovementType = "IN"
	// MovementOut represents stock issued.
	MovementOut MovementType = "OUT"
)

// MovementReason explains why stock moved.
type MovementReason string

const (
	ReasonPurchase   MovementReason = "PURCHASE"
	ReasonSale       MovementReason = "SALE"
	ReasonReturn     MovementReason = "RETURN"
	ReasonDamage     MovementReason = "DAMAGE"
	ReasonTheft      MovementReason = "THEFT"
	ReasonAdjustment MovementReason = "ADJUSTMENT"
	ReasonTransfer   MovementReason = "TRANSFER"
)

// AlertType classifies stock alerts.
type AlertType string

const (
	AlertLowStock   AlertType = "LOW_STOCK"
	AlertOutOfStock AlertType = "OUT_OF_STOCK"
)

// Category groups products.
type Category struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Supplier is a source of products.
type Supplier struct {
	ID            int64
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Product is a stocked item. Stock on hand is never stored; it is
// always derived from the movement ledger.
type Product struct {
	ID                int64
	Name              string
	Description       string
	CategoryID        int64
	CategoryName      string
	SKU               string
	Barcode           string
	Unit              Unit
	CostPrice         float64
	SellingPrice      float64
	MinimumStockLevel int
	SupplierID        int64
	SupplierName      string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProfitMargin returns the margin percentage over cost.
func (p Product) ProfitMargin() float64 {
	if p.CostPrice <= 0 {
		return 0
	}
	return (p.SellingPrice - p.CostPrice) / p.CostPrice * 100
}

// StockMovement is one entry in the movement ledger.
type StockMovement struct {
	ID          int64
	ProductID   int64
	ProductName string
	Type        MovementType
	Quantity    int
	Reason      MovementReason
	Reference   string
	Notes       string
	CreatedBy   int64
	CreatedAt   time.Time
}

// StockLevel pairs a product with its derived stock on hand.
type StockLevel struct {
	ProductID         int64
	ProductName       string
	SKU               string
	CurrentStock      int
	MinimumStockLevel int
}

// IsLow reports whether the level sits at or below the minimum.
func (l StockLevel) IsLow() bool {
	return l.CurrentStock <= l.MinimumStockLevel
}

// StockAlert flags a product needing attention.
type StockAlert struct {
	ID          int64
	ProductID   int64
	ProductName string
	Type        AlertType
	Message     string
	IsResolved  bool
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// MovementInput describes a requested stock movement.
type MovementInput struct {
	ProductID int64
	Type      MovementType
	Quantity  int
	Reason    MovementReason
	Reference string
	Notes     string
	ActorID   int64
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	Limit     int
}

// ErrInsufficientStock triggered when an issue would drive stock negative.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrInvalidMovement indicates an unknown type or reason.
var ErrInvalidMovement = errors.New("inventory: invalid movement type or reason")
