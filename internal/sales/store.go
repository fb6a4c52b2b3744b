package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimhafez/backend-pos/internal/pricing"
)

// PaymentMethod enumerates the accepted payment methods.
type PaymentMethod string

const (
	// PaymentCash is a cash payment.
	PaymentCash PaymentMethod = "Cash"
	// PaymentInstaPay is an InstaPay transfer.
	PaymentInstaPay PaymentMethod = "InstaPay"
)

// ValidPaymentMethod reports whether the value is an accepted payment method.
func ValidPaymentMethod(v string) bool {
	switch PaymentMethod(v) {
	case PaymentCash, PaymentInstaPay:
		return true
	}
	return false
}

// SaleItem is a line snapshot persisted with a sale.
type SaleItem struct {
	ProductID    uuid.UUID       `json:"productId"`
	Name         string          `json:"name"`
	Quantity     int32           `json:"quantity"`
	RegularPrice decimal.Decimal `json:"regularPrice"`
	StaffPrice   decimal.Decimal `json:"staffPrice"`
	PriceUsed    decimal.Decimal `json:"priceUsed"`
	Category     string          `json:"category,omitempty"`
	Subcategory  string          `json:"subcategory,omitempty"`
}

// Sale is the persisted record of a completed transaction. Sales are
// immutable once created.
type Sale struct {
	ID               uuid.UUID       `json:"_id"`
	Items            []SaleItem      `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Total            decimal.Decimal `json:"total"`
	StaffDiscount    bool            `json:"staffDiscount"`
	StaffID          *uuid.UUID      `json:"staffId,omitempty"`
	StaffName        *string         `json:"staffName,omitempty"`
	LargeWaterBottle bool            `json:"largeWaterBottle"`
	SmallWaterBottle bool            `json:"smallWaterBottle"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	SharoofaAmount   decimal.Decimal `json:"sharoofaAmount"`
	CreatedBy        string          `json:"createdBy"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ProductRow is the live product state read inside the sale transaction.
type ProductRow struct {
	ID         uuid.UUID
	Name       string
	Owner      string
	BottleSize pricing.BottleSize
	Stock      int32
	SellPrice  decimal.Decimal
	StaffPrice decimal.Decimal
	Available  bool
}

// StaffRow is the staff member state read inside the sale transaction.
type StaffRow struct {
	ID   uuid.UUID
	Name string
}

// Tx is the set of storage operations available inside a sale transaction.
// Every mutation made through a Tx is committed or rolled back as a unit,
// so a rejected sale leaves no stock or allowance change behind.
type Tx interface {
	// GetProductForSale reads and row-locks a product.
	GetProductForSale(ctx context.Context, id uuid.UUID) (ProductRow, bool, error)
	// DecrementStock subtracts qty from the product's stock only when
	// enough stock remains. Reports whether the decrement applied.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int32) (bool, error)
	FindStaffByID(ctx context.Context, id uuid.UUID) (StaffRow, bool, error)
	FindStaffByName(ctx context.Context, name string) (StaffRow, bool, error)
	// ConsumeAllowance decrements the staff member's counter for the given
	// size when above zero. Reports whether a free unit was granted.
	ConsumeAllowance(ctx context.Context, staffID uuid.UUID, size pricing.BottleSize) (bool, error)
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
}

// Store provides transactional access to the records a sale touches.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	ListSales(ctx context.Context, limit, offset int32) ([]Sale, int64, error)
	GetSale(ctx context.Context, id uuid.UUID) (Sale, bool, error)
}
