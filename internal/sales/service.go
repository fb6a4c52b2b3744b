package sales

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karimhafez/backend-pos/internal/common"
	"github.com/karimhafez/backend-pos/internal/obs"
	"github.com/karimhafez/backend-pos/internal/pricing"
)

// InputItem is one requested cart line.
type InputItem struct {
	ProductID    string          `json:"productId" validate:"required,uuid"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity" validate:"required,gte=1"`
	RegularPrice decimal.Decimal `json:"regularPrice"`
	StaffPrice   decimal.Decimal `json:"staffPrice"`
	PriceUsed    decimal.Decimal `json:"priceUsed"`
	Category     string          `json:"category,omitempty"`
	Subcategory  string          `json:"subcategory,omitempty"`
}

// Input is the sale request decoded from the HTTP layer. The declared
// subtotal and total are accepted for display parity with the frontend but
// totals are always recomputed server-side.
type Input struct {
	Items         []InputItem     `json:"items" validate:"required,min=1,dive"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	StaffDiscount bool            `json:"staffDiscount"`
	StaffID       string          `json:"staffId,omitempty"`
	StaffName     string          `json:"staffName,omitempty"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	Total         decimal.Decimal `json:"total"`
}

// Service orchestrates sale processing inside one storage transaction so
// a rejected sale leaves no stock or allowance change behind.
type Service struct {
	Store Store
	// PartnerTag is the owner tag whose revenue is owed to the
	// revenue-sharing partner.
	PartnerTag string
}

func errValidation(message string) *common.AppError {
	return common.NewAppError("VALIDATION", message, http.StatusBadRequest, nil)
}

func errProductNotFound(name string) *common.AppError {
	return common.NewAppError("PRODUCT_NOT_FOUND", fmt.Sprintf("product %q not found", name), http.StatusBadRequest, nil).
		WithDetails(map[string]any{"product": name})
}

func errInsufficientStock(name string, available, requested int32) *common.AppError {
	return common.NewAppError("INSUFFICIENT_STOCK",
		fmt.Sprintf("insufficient stock for %q: %d available, %d requested", name, available, requested),
		http.StatusBadRequest, nil).
		WithDetails(map[string]any{"product": name, "available": available, "requested": requested})
}

func errStaffNotFound() *common.AppError {
	return common.NewAppError("STAFF_NOT_FOUND", "staff member not found", http.StatusBadRequest, nil)
}

func errAllowanceExceeded(size pricing.BottleSize) *common.AppError {
	return common.NewAppError("ALLOWANCE_EXCEEDED",
		fmt.Sprintf("%s bottle allowance exhausted", size), http.StatusBadRequest, nil).
		WithDetails(map[string]any{"size": string(size)})
}

// ProcessSale validates the cart, reserves stock, applies staff pricing and
// the free-bottle allowance, computes totals and the partner split, and
// persists the sale. Any rejection rolls back every mutation.
func (s *Service) ProcessSale(ctx context.Context, createdBy string, in Input) (Sale, error) {
	if err := s.validate(in); err != nil {
		countFailure(err)
		return Sale{}, err
	}

	var sale Sale
	err := s.Store.InTx(ctx, func(tx Tx) error {
		built, err := s.buildSale(ctx, tx, createdBy, in)
		if err != nil {
			return err
		}
		sale, err = tx.InsertSale(ctx, built)
		return err
	})
	if err != nil {
		countFailure(err)
		return Sale{}, err
	}

	if obs.SalesProcessedTotal != nil {
		obs.SalesProcessedTotal.WithLabelValues(string(sale.PaymentMethod), fmt.Sprintf("%t", sale.StaffDiscount)).Inc()
	}
	if obs.SaleTotalAmount != nil {
		obs.SaleTotalAmount.Observe(sale.Total.InexactFloat64())
	}
	return sale, nil
}

func (s *Service) validate(in Input) error {
	if len(in.Items) == 0 {
		return errValidation("cart must not be empty")
	}
	if !ValidPaymentMethod(in.PaymentMethod) {
		return errValidation("paymentMethod must be Cash or InstaPay")
	}
	for i, item := range in.Items {
		if item.Quantity < 1 {
			return errValidation(fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return errValidation(fmt.Sprintf("items[%d]: invalid productId", i))
		}
		if item.RegularPrice.IsNegative() || item.StaffPrice.IsNegative() || item.PriceUsed.IsNegative() {
			return errValidation(fmt.Sprintf("items[%d]: prices must not be negative", i))
		}
	}
	if in.StaffDiscount && strings.TrimSpace(in.StaffID) == "" && strings.TrimSpace(in.StaffName) == "" {
		return errValidation("staffId or staffName is required when staffDiscount is set")
	}
	return nil
}

func (s *Service) buildSale(ctx context.Context, tx Tx, createdBy string, in Input) (Sale, error) {
	// Staff resolution happens before any stock mutation so a bad staff
	// reference cannot leave partially reserved stock behind.
	var staff *StaffRow
	if in.StaffDiscount {
		resolved, err := resolveStaff(ctx, tx, in.StaffID, in.StaffName)
		if err != nil {
			return Sale{}, err
		}
		staff = &resolved
	}

	resolved := make([]pricing.ResolvedLine, 0, len(in.Items))
	items := make([]SaleItem, 0, len(in.Items))
	var firstLarge, firstSmall *pricing.ResolvedLine

	for _, item := range in.Items {
		productID := uuid.MustParse(item.ProductID)
		product, found, err := tx.GetProductForSale(ctx, productID)
		if err != nil {
			return Sale{}, err
		}
		if !found {
			name := item.Name
			if name == "" {
				name = item.ProductID
			}
			return Sale{}, errProductNotFound(name)
		}
		qty := int32(item.Quantity)
		if product.Stock < qty {
			return Sale{}, errInsufficientStock(product.Name, product.Stock, qty)
		}
		ok, err := tx.DecrementStock(ctx, productID, qty)
		if err != nil {
			return Sale{}, err
		}
		if !ok {
			return Sale{}, errInsufficientStock(product.Name, product.Stock, qty)
		}

		line := pricing.ResolveLine(pricing.Line{
			ProductName:  product.Name,
			TaggedBottle: product.BottleSize,
			Quantity:     item.Quantity,
			RegularPrice: item.RegularPrice,
			StaffPrice:   item.StaffPrice,
			PriceUsed:    item.PriceUsed,
			Owner:        product.Owner,
		}, in.StaffDiscount)
		resolved = append(resolved, line)

		if line.Bottle == pricing.BottleLarge && firstLarge == nil {
			firstLarge = &resolved[len(resolved)-1]
		}
		if line.Bottle == pricing.BottleSmall && firstSmall == nil {
			firstSmall = &resolved[len(resolved)-1]
		}

		items = append(items, SaleItem{
			ProductID:    productID,
			Name:         product.Name,
			Quantity:     qty,
			RegularPrice: item.RegularPrice,
			StaffPrice:   item.StaffPrice,
			PriceUsed:    line.UnitPrice,
			Category:     item.Category,
			Subcategory:  item.Subcategory,
		})
	}

	sale := Sale{
		Items:         items,
		StaffDiscount: in.StaffDiscount,
		PaymentMethod: PaymentMethod(in.PaymentMethod),
		CreatedBy:     createdBy,
	}
	if staff != nil {
		id := staff.ID
		name := staff.Name
		sale.StaffID = &id
		sale.StaffName = &name
	}

	// At most one unit per size is free per sale, whatever the line
	// quantities. An exhausted allowance aborts the whole sale rather
	// than falling back to charging full price.
	freeDeduction := decimal.Zero
	if in.StaffDiscount && firstLarge != nil {
		granted, err := tx.ConsumeAllowance(ctx, staff.ID, pricing.BottleLarge)
		if err != nil {
			return Sale{}, err
		}
		if !granted {
			return Sale{}, errAllowanceExceeded(pricing.BottleLarge)
		}
		sale.LargeWaterBottle = true
		freeDeduction = freeDeduction.Add(firstLarge.UnitPrice)
		countGranted(pricing.BottleLarge)
	}
	if in.StaffDiscount && firstSmall != nil {
		granted, err := tx.ConsumeAllowance(ctx, staff.ID, pricing.BottleSmall)
		if err != nil {
			return Sale{}, err
		}
		if !granted {
			return Sale{}, errAllowanceExceeded(pricing.BottleSmall)
		}
		sale.SmallWaterBottle = true
		freeDeduction = freeDeduction.Add(firstSmall.UnitPrice)
		countGranted(pricing.BottleSmall)
	}

	subtotal := pricing.Subtotal(resolved)
	total := subtotal.Sub(freeDeduction)
	if total.IsNegative() {
		total = decimal.Zero
	}
	sale.Subtotal = subtotal.Round(2)
	sale.Total = total.Round(2)
	sale.SharoofaAmount = pricing.PartnerSplit(resolved, s.PartnerTag).Round(2)
	return sale, nil
}

func resolveStaff(ctx context.Context, tx Tx, staffID, staffName string) (StaffRow, error) {
	if id, err := uuid.Parse(strings.TrimSpace(staffID)); err == nil {
		row, found, err := tx.FindStaffByID(ctx, id)
		if err != nil {
			return StaffRow{}, err
		}
		if found {
			return row, nil
		}
	}
	if name := strings.TrimSpace(staffName); name != "" {
		row, found, err := tx.FindStaffByName(ctx, name)
		if err != nil {
			return StaffRow{}, err
		}
		if found {
			return row, nil
		}
	}
	return StaffRow{}, errStaffNotFound()
}

func countFailure(err error) {
	if obs.SaleFailuresTotal == nil {
		return
	}
	reason := "internal"
	if appErr, ok := err.(*common.AppError); ok && appErr.Code != "" {
		reason = strings.ToLower(appErr.Code)
	}
	obs.SaleFailuresTotal.WithLabelValues(reason).Inc()
}

func countGranted(size pricing.BottleSize) {
	if obs.FreeBottlesGrantedTotal != nil {
		obs.FreeBottlesGrantedTotal.WithLabelValues(string(size)).Inc()
	}
}
