package sales

import (
	"errors"
	"time"
)

// CustomerType segments customers by trade channel.
type CustomerType string

const (
	CustomerRetail      CustomerType = "RETAIL"
	CustomerWholesale   CustomerType = "WHOLESALE"
	CustomerDistributor CustomerType = "DISTRIBUTOR"
)

// PaymentStatus is always derived from amounts, never set directly.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPending PaymentStatus = "PENDING"
)

// PaymentMethod enumerates how a sale was settled.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCredit       PaymentMethod = "CREDIT"
)

// BulkOrderStatus tracks a bulk order through its lifecycle.
type BulkOrderStatus string

const (
	BulkDraft      BulkOrderStatus = "DRAFT"
	BulkSubmitted  BulkOrderStatus = "SUBMITTED"
	BulkProcessing BulkOrderStatus = "PROCESSING"
	BulkCompleted  BulkOrderStatus = "COMPLETED"
	BulkCancelled  BulkOrderStatus = "CANCELLED"
)

// Customer is a buyer on record.
type Customer struct {
	ID        int64
	Name      string
	Phone     string
	Email     string
	Address   string
	Type      CustomerType
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sale is a completed invoice. Creating one issues stock for every
// line item.
type Sale struct {
	ID            int64
	InvoiceNumber string
	CustomerID    int64
	CustomerName  string
	SaleDate      time.Time
	TotalAmount   float64
	AmountPaid    float64
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
	Notes         string
	CreatedBy     int64
	CreatedAt     time.Time
	Items         []SaleItem
}

// SaleItem is one invoice line.
type SaleItem struct {
	ID          int64
	SaleID      int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   float64
	TotalPrice  float64
}

// BulkOrder is a staged large order that converts into a sale once
// submitted.
type BulkOrder struct {
	ID           int64
	OrderNumber  string
	CustomerID   int64
	CustomerName string
	Status       BulkOrderStatus
	TotalAmount  float64
	Notes        string
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []BulkOrderItem
}

// BulkOrderItem is one staged line.
type BulkOrderItem struct {
	ID          int64
	BulkOrderID int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// SaleItemInput describes one requested invoice line.
type SaleItemInput struct {
	ProductID int64
	Quantity  int
	UnitPrice float64
}

// SaleInput describes a requested sale.
type SaleInput struct {
	CustomerID     int64
	SaleDate       time.Time
	AmountPaid     float64
	PaymentMethod  PaymentMethod
	Notes          string
	Items          []SaleItemInput
	ActorID        int64
	IdempotencyKey string
}

// BulkOrderInput describes a requested bulk order draft.
type BulkOrderInput struct {
	CustomerID int64
	Notes      string
	Items      []SaleItemInput
	ActorID    int64
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

var (
	// ErrEmptySale indicates a sale without line items.
	ErrEmptySale = errors.New("sales: at least one item required")
	// ErrBackdatedSale refuses sale dates before today.
	ErrBackdatedSale = errors.New("sales: sale date cannot be in the past")
	// ErrFutureSale refuses sale dates ahead of today.
	ErrFutureSale = errors.New("sales: sale date cannot be in the future")
	// ErrDuplicateSubmission indicates an idempotency key replay.
	ErrDuplicateSubmission = errors.New("sales: sale already recorded for this submission")
	// ErrInvalidTransition refuses a bulk order status change outside
	// the lifecycle.
	ErrInvalidTransition = errors.New("sales: invalid bulk order transition")
	// ErrOverpayment refuses payments beyond the outstanding balance.
	ErrOverpayment = errors.New("sales: payment exceeds outstanding balance")
)

// DerivePaymentStatus maps paid amount against total.
func DerivePaymentStatus(total, paid float64) PaymentStatus {
	switch {
	case paid >= total && total > 0:
		return PaymentPaid
	case paid > 0:
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// canTransition encodes the bulk order lifecycle. Cancellation is
// allowed until processing starts.
func canTransition(from, to BulkOrderStatus) bool {
	switch from {
	case BulkDraft:
		return to == BulkSubmitted || to == BulkCancelled
	case BulkSubmitted:
		return to == BulkProcessing || to == BulkCancelled
	case BulkProcessing:
		return to == BulkCompleted
	default:
		return false
	}
}
