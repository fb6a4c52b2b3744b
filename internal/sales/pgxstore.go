package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karimhafez/backend-pos/internal/pricing"
)

// PgxStore implements Store on a pgx connection pool.
type PgxStore struct {
	Pool *pgxpool.Pool
}

type pgxTx struct {
	tx pgx.Tx
}

// InTx runs fn inside a database transaction. The transaction is rolled
// back unless fn returns nil.
func (s *PgxStore) InTx(ctx context.Context, fn func(Tx) error) error {
	if s == nil || s.Pool == nil {
		return errors.New("sales: store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(pgxTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (t pgxTx) GetProductForSale(ctx context.Context, id uuid.UUID) (ProductRow, bool, error) {
	var p ProductRow
	var bottle string
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, owner, COALESCE(bottle_size, ''), stock, sell_price, staff_price, available
		FROM products
		WHERE id = $1
		FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.Owner, &bottle, &p.Stock, &p.SellPrice, &p.StaffPrice, &p.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductRow{}, false, nil
		}
		return ProductRow{}, false, fmt.Errorf("lock product: %w", err)
	}
	p.BottleSize = pricing.BottleSize(bottle)
	return p, true, nil
}

func (t pgxTx) DecrementStock(ctx context.Context, id uuid.UUID, qty int32) (bool, error) {
	// GREATEST keeps the invariant even if the precheck is ever bypassed.
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET stock = GREATEST(stock - $2, 0), updated_at = now()
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t pgxTx) FindStaffByID(ctx context.Context, id uuid.UUID) (StaffRow, bool, error) {
	var row StaffRow
	err := t.tx.QueryRow(ctx, `SELECT id, name FROM staff_members WHERE id = $1`, id).
		Scan(&row.ID, &row.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StaffRow{}, false, nil
		}
		return StaffRow{}, false, fmt.Errorf("find staff by id: %w", err)
	}
	return row, true, nil
}

func (t pgxTx) FindStaffByName(ctx context.Context, name string) (StaffRow, bool, error) {
	var row StaffRow
	err := t.tx.QueryRow(ctx, `SELECT id, name FROM staff_members WHERE lower(name) = lower($1)`, name).
		Scan(&row.ID, &row.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StaffRow{}, false, nil
		}
		return StaffRow{}, false, fmt.Errorf("find staff by name: %w", err)
	}
	return row, true, nil
}

func (t pgxTx) ConsumeAllowance(ctx context.Context, staffID uuid.UUID, size pricing.BottleSize) (bool, error) {
	var column string
	switch size {
	case pricing.BottleLarge:
		column = "large_bottles"
	case pricing.BottleSmall:
		column = "small_bottles"
	default:
		return false, fmt.Errorf("sales: unknown bottle size %q", size)
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE staff_members
		SET `+column+` = `+column+` - 1, updated_at = now()
		WHERE id = $1 AND `+column+` > 0`, staffID)
	if err != nil {
		return false, fmt.Errorf("consume allowance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t pgxTx) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales (subtotal, total, staff_discount, staff_id, staff_name,
			large_water_bottle, small_water_bottle, payment_method, sharoofa_amount, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		sale.Subtotal, sale.Total, sale.StaffDiscount, sale.StaffID, sale.StaffName,
		sale.LargeWaterBottle, sale.SmallWaterBottle, string(sale.PaymentMethod),
		sale.SharoofaAmount, sale.CreatedBy).
		Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return Sale{}, fmt.Errorf("insert sale: %w", err)
	}
	for _, item := range sale.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, quantity, regular_price, staff_price, price_used, category, subcategory)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))`,
			sale.ID, item.ProductID, item.Name, item.Quantity,
			item.RegularPrice, item.StaffPrice, item.PriceUsed,
			item.Category, item.Subcategory); err != nil {
			return Sale{}, fmt.Errorf("insert sale item: %w", err)
		}
	}
	return sale, nil
}

const saleColumns = `id, subtotal, total, staff_discount, staff_id, staff_name,
	large_water_bottle, small_water_bottle, payment_method, sharoofa_amount, created_by, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var method string
	err := row.Scan(&s.ID, &s.Subtotal, &s.Total, &s.StaffDiscount, &s.StaffID, &s.StaffName,
		&s.LargeWaterBottle, &s.SmallWaterBottle, &method, &s.SharoofaAmount, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return Sale{}, err
	}
	s.PaymentMethod = PaymentMethod(method)
	return s, nil
}

// ListSales returns recent sales, newest first, with their line snapshots.
func (s *PgxStore) ListSales(ctx context.Context, limit, offset int32) ([]Sale, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	result := make([]Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		result = append(result, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range result {
		items, err := s.saleItems(ctx, result[i].ID)
		if err != nil {
			return nil, 0, err
		}
		result[i].Items = items
	}

	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// GetSale returns a single sale with its line snapshots.
func (s *PgxStore) GetSale(ctx context.Context, id uuid.UUID) (Sale, bool, error) {
	sale, err := scanSale(s.Pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, false, nil
		}
		return Sale{}, false, fmt.Errorf("get sale: %w", err)
	}
	items, err := s.saleItems(ctx, id)
	if err != nil {
		return Sale{}, false, err
	}
	sale.Items = items
	return sale, true, nil
}

func (s *PgxStore) saleItems(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, name, quantity, regular_price, staff_price, price_used,
			COALESCE(category, ''), COALESCE(subcategory, '')
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	items := make([]SaleItem, 0, 8)
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity,
			&item.RegularPrice, &item.StaffPrice, &item.PriceUsed,
			&item.Category, &item.Subcategory); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
