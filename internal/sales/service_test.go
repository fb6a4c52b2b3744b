package sales

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karimhafez/backend-pos/internal/common"
	"github.com/karimhafez/backend-pos/internal/pricing"
)

// memStore is an in-memory Store with transaction semantics: mutations made
// through a Tx are discarded when fn returns an error.
type memStore struct {
	products   map[uuid.UUID]ProductRow
	staff      []StaffRow
	allowances map[uuid.UUID]map[pricing.BottleSize]int32
	sales      []Sale
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[uuid.UUID]ProductRow{},
		allowances: map[uuid.UUID]map[pricing.BottleSize]int32{},
	}
}

func (m *memStore) addProduct(p ProductRow) uuid.UUID {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.products[p.ID] = p
	return p.ID
}

func (m *memStore) addStaff(name string, large, small int32) uuid.UUID {
	id := uuid.New()
	m.staff = append(m.staff, StaffRow{ID: id, Name: name})
	m.allowances[id] = map[pricing.BottleSize]int32{
		pricing.BottleLarge: large,
		pricing.BottleSmall: small,
	}
	return id
}

func (m *memStore) snapshot() *memStore {
	cp := newMemStore()
	for id, p := range m.products {
		cp.products[id] = p
	}
	cp.staff = append(cp.staff, m.staff...)
	for id, counters := range m.allowances {
		inner := map[pricing.BottleSize]int32{}
		for size, n := range counters {
			inner[size] = n
		}
		cp.allowances[id] = inner
	}
	cp.sales = append(cp.sales, m.sales...)
	return cp
}

func (m *memStore) restore(snap *memStore) {
	m.products = snap.products
	m.staff = snap.staff
	m.allowances = snap.allowances
	m.sales = snap.sales
}

func (m *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	snap := m.snapshot()
	if err := fn(memTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) ListSales(ctx context.Context, limit, offset int32) ([]Sale, int64, error) {
	return m.sales, int64(len(m.sales)), nil
}

func (m *memStore) GetSale(ctx context.Context, id uuid.UUID) (Sale, bool, error) {
	for _, s := range m.sales {
		if s.ID == id {
			return s, true, nil
		}
	}
	return Sale{}, false, nil
}

type memTx struct {
	m *memStore
}

func (t memTx) GetProductForSale(ctx context.Context, id uuid.UUID) (ProductRow, bool, error) {
	p, ok := t.m.products[id]
	return p, ok, nil
}

func (t memTx) DecrementStock(ctx context.Context, id uuid.UUID, qty int32) (bool, error) {
	p, ok := t.m.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	t.m.products[id] = p
	return true, nil
}

func (t memTx) FindStaffByID(ctx context.Context, id uuid.UUID) (StaffRow, bool, error) {
	for _, s := range t.m.staff {
		if s.ID == id {
			return s, true, nil
		}
	}
	return StaffRow{}, false, nil
}

func (t memTx) FindStaffByName(ctx context.Context, name string) (StaffRow, bool, error) {
	for _, s := range t.m.staff {
		if strings.EqualFold(s.Name, name) {
			return s, true, nil
		}
	}
	return StaffRow{}, false, nil
}

func (t memTx) ConsumeAllowance(ctx context.Context, staffID uuid.UUID, size pricing.BottleSize) (bool, error) {
	counters, ok := t.m.allowances[staffID]
	if !ok || counters[size] <= 0 {
		return false, nil
	}
	counters[size]--
	return true, nil
}

func (t memTx) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	sale.ID = uuid.New()
	sale.CreatedAt = time.Now()
	t.m.sales = append(t.m.sales, sale)
	return sale, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lineFor(id uuid.UUID, qty int, regular, staffPrice, used string) InputItem {
	return InputItem{
		ProductID:    id.String(),
		Quantity:     qty,
		RegularPrice: dec(regular),
		StaffPrice:   dec(staffPrice),
		PriceUsed:    dec(used),
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := err.(*common.AppError)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	return appErr.Code
}

func TestProcessSaleRegularCustomer(t *testing.T) {
	store := newMemStore()
	proteinID := store.addProduct(ProductRow{Name: "Protein Bar", Owner: "house", Stock: 10})
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	sale, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items:         []InputItem{lineFor(proteinID, 2, "50", "40", "50")},
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)

	assert.True(t, sale.Subtotal.Equal(dec("100")))
	assert.True(t, sale.Total.Equal(dec("100")))
	assert.True(t, sale.SharoofaAmount.IsZero())
	assert.False(t, sale.StaffDiscount)
	assert.Nil(t, sale.StaffID)
	assert.Equal(t, "cashier-1", sale.CreatedBy)
	assert.Equal(t, int32(8), store.products[proteinID].Stock)
	require.Len(t, store.sales, 1)
}

func TestProcessSaleStaffFreeLargeBottle(t *testing.T) {
	store := newMemStore()
	bottleID := store.addProduct(ProductRow{
		Name: "Large Water Bottle", BottleSize: pricing.BottleLarge, Owner: "house", Stock: 5,
	})
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 5})
	staffID := store.addStaff("Omar", 2, 2)
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	sale, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items: []InputItem{
			lineFor(bottleID, 1, "20", "10", "10"),
			lineFor(snackID, 1, "30", "25", "25"),
		},
		StaffDiscount: true,
		StaffID:       staffID.String(),
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)

	assert.True(t, sale.LargeWaterBottle)
	assert.False(t, sale.SmallWaterBottle)
	// 10 + 25 charged, one large bottle unit comped.
	assert.True(t, sale.Subtotal.Equal(dec("35")), "subtotal %s", sale.Subtotal)
	assert.True(t, sale.Total.Equal(dec("25")), "total %s", sale.Total)
	require.NotNil(t, sale.StaffID)
	assert.Equal(t, staffID, *sale.StaffID)
	assert.Equal(t, int32(1), store.allowances[staffID][pricing.BottleLarge])
	assert.Equal(t, int32(2), store.allowances[staffID][pricing.BottleSmall])
}

func TestProcessSaleStaffResolvedByName(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 5})
	store.addStaff("Omar", 2, 2)
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	sale, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items:         []InputItem{lineFor(snackID, 1, "30", "25", "25")},
		StaffDiscount: true,
		StaffName:     "omar",
		PaymentMethod: "InstaPay",
	})
	require.NoError(t, err)
	require.NotNil(t, sale.StaffName)
	assert.Equal(t, "Omar", *sale.StaffName)
}

func TestProcessSaleAllowanceExhaustedRollsBackStock(t *testing.T) {
	store := newMemStore()
	bottleID := store.addProduct(ProductRow{
		Name: "Large Water Bottle", BottleSize: pricing.BottleLarge, Owner: "house", Stock: 5,
	})
	staffID := store.addStaff("Omar", 0, 2)
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	_, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items:         []InputItem{lineFor(bottleID, 1, "20", "10", "10")},
		StaffDiscount: true,
		StaffID:       staffID.String(),
		PaymentMethod: "Cash",
	})
	require.Error(t, err)
	assert.Equal(t, "ALLOWANCE_EXCEEDED", appCode(t, err))

	// The stock decrement from earlier in the transaction must be undone.
	assert.Equal(t, int32(5), store.products[bottleID].Stock)
	assert.Empty(t, store.sales)
}

func TestProcessSaleInsufficientStock(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 1})
	otherID := store.addProduct(ProductRow{Name: "Other", Owner: "house", Stock: 10})
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	_, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items: []InputItem{
			lineFor(otherID, 2, "10", "8", "10"),
			lineFor(snackID, 3, "30", "25", "30"),
		},
		PaymentMethod: "Cash",
	})
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Snack", details["product"])
	assert.Equal(t, int32(1), details["available"])
	assert.Equal(t, int32(3), details["requested"])

	// The first line's decrement must not survive the rejection.
	assert.Equal(t, int32(10), store.products[otherID].Stock)
	assert.Empty(t, store.sales)
}

func TestProcessSaleUnknownProduct(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	_, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items:         []InputItem{lineFor(uuid.New(), 1, "10", "8", "10")},
		PaymentMethod: "Cash",
	})
	require.Error(t, err)
	assert.Equal(t, "PRODUCT_NOT_FOUND", appCode(t, err))
}

func TestProcessSaleStaffNotFoundBeforeStockMutation(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 5})
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	_, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items:         []InputItem{lineFor(snackID, 1, "30", "25", "25")},
		StaffDiscount: true,
		StaffName:     "nobody",
		PaymentMethod: "Cash",
	})
	require.Error(t, err)
	assert.Equal(t, "STAFF_NOT_FOUND", appCode(t, err))
	assert.Equal(t, int32(5), store.products[snackID].Stock)
}

func TestProcessSalePartnerSplit(t *testing.T) {
	store := newMemStore()
	partnerID := store.addProduct(ProductRow{Name: "Energy Drink", Owner: "Sharoofa", Stock: 10})
	houseID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 10})
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	sale, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items: []InputItem{
			lineFor(partnerID, 3, "15", "12", "15"),
			lineFor(houseID, 1, "30", "25", "30"),
		},
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	assert.True(t, sale.SharoofaAmount.Equal(dec("45")), "sharoofa %s", sale.SharoofaAmount)
	assert.True(t, sale.Total.Equal(dec("75")))
}

func TestProcessSalePriceUsedOverride(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 10})
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	sale, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items:         []InputItem{lineFor(snackID, 2, "30", "25", "27.5")},
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	assert.True(t, sale.Total.Equal(dec("55")), "total %s", sale.Total)
	require.Len(t, sale.Items, 1)
	assert.True(t, sale.Items[0].PriceUsed.Equal(dec("27.5")))
}

func TestProcessSaleValidation(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 10})
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	cases := []struct {
		name string
		in   Input
	}{
		{"empty cart", Input{PaymentMethod: "Cash"}},
		{"bad payment method", Input{
			Items:         []InputItem{lineFor(snackID, 1, "30", "25", "30")},
			PaymentMethod: "Barter",
		}},
		{"zero quantity", Input{
			Items:         []InputItem{lineFor(snackID, 0, "30", "25", "30")},
			PaymentMethod: "Cash",
		}},
		{"malformed product id", Input{
			Items:         []InputItem{{ProductID: "not-a-uuid", Quantity: 1}},
			PaymentMethod: "Cash",
		}},
		{"staff discount without reference", Input{
			Items:         []InputItem{lineFor(snackID, 1, "30", "25", "25")},
			StaffDiscount: true,
			PaymentMethod: "Cash",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ProcessSale(context.Background(), "cashier-1", tc.in)
			require.Error(t, err)
			assert.Equal(t, "VALIDATION", appCode(t, err))
		})
	}
	assert.Empty(t, store.sales)
}

func TestProcessSaleZeroPriceUsedFallsBackToFlagPrice(t *testing.T) {
	store := newMemStore()
	snackID := store.addProduct(ProductRow{Name: "Snack", Owner: "house", Stock: 10})
	staffID := store.addStaff("Omar", 2, 2)
	svc := &Service{Store: store, PartnerTag: "Sharoofa"}

	sale, err := svc.ProcessSale(context.Background(), "cashier-1", Input{
		Items:         []InputItem{lineFor(snackID, 1, "30", "25", "0")},
		StaffDiscount: true,
		StaffID:       staffID.String(),
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	assert.True(t, sale.Total.Equal(dec("25")), "total %s", sale.Total)
}
