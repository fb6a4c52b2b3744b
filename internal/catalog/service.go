package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/karimhafez/backend-pos/internal/common"
	"github.com/karimhafez/backend-pos/internal/pricing"
)

// Product represents a sellable SKU.
type Product struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	SellPrice   decimal.Decimal    `json:"sell_price"`
	StaffPrice  decimal.Decimal    `json:"staff_price"`
	CostPrice   decimal.Decimal    `json:"cost_price"`
	Stock       int32              `json:"stock"`
	Owner       string             `json:"owner,omitempty"`
	BottleSize  pricing.BottleSize `json:"bottle_size,omitempty"`
	Available   bool               `json:"available"`
	Category    string             `json:"category,omitempty"`
	Subcategory string             `json:"subcategory,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ProductInput captures the payload for creating or updating a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required"`
	SellPrice   decimal.Decimal `json:"sell_price"`
	StaffPrice  decimal.Decimal `json:"staff_price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Stock       int32           `json:"stock" validate:"gte=0"`
	Owner       string          `json:"owner"`
	BottleSize  string          `json:"bottle_size" validate:"omitempty,oneof=large small"`
	Available   *bool           `json:"available"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
}

// Service manages the product registry.
type Service struct {
	pool  *pgxpool.Pool
	cache *Cache
}

// NewService constructs a catalog service.
func NewService(pool *pgxpool.Pool, cache *Cache) *Service {
	return &Service{pool: pool, cache: cache}
}

const productColumns = `id, name, sell_price, staff_price, cost_price, stock, owner, COALESCE(bottle_size, ''), available, COALESCE(category, ''), COALESCE(subcategory, ''), created_at, updated_at`

const listCacheKey = "catalog:products"

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var bottle string
	err := row.Scan(&p.ID, &p.Name, &p.SellPrice, &p.StaffPrice, &p.CostPrice, &p.Stock, &p.Owner, &bottle, &p.Available, &p.Category, &p.Subcategory, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.BottleSize = pricing.BottleSize(bottle)
	return p, nil
}

// List returns all products ordered by name. The full list is small enough
// for a single store to serve uncut; it is cached until the next write.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	var cached []Product
	if hit, err := s.cache.GetJSON(ctx, listCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, listCacheKey, products)
	return products, nil
}

// Get returns a single product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Create inserts a new product.
func (s *Service) Create(ctx context.Context, input ProductInput) (Product, error) {
	if err := validateInput(input); err != nil {
		return Product{}, err
	}
	available := true
	if input.Available != nil {
		available = *input.Available
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, sell_price, staff_price, cost_price, stock, owner, bottle_size, available, category, subcategory)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''))
		RETURNING `+productColumns,
		strings.TrimSpace(input.Name), input.SellPrice, input.StaffPrice, input.CostPrice,
		input.Stock, strings.TrimSpace(input.Owner), input.BottleSize, available,
		strings.TrimSpace(input.Category), strings.TrimSpace(input.Subcategory),
	)
	p, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, common.NewAppError("PRODUCT_EXISTS", "a product with this name already exists", http.StatusConflict, err)
		}
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

// Update replaces a product's attributes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (Product, error) {
	if err := validateInput(input); err != nil {
		return Product{}, err
	}
	available := true
	if input.Available != nil {
		available = *input.Available
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, sell_price = $3, staff_price = $4, cost_price = $5, stock = $6,
		    owner = $7, bottle_size = NULLIF($8, ''), available = $9,
		    category = NULLIF($10, ''), subcategory = NULLIF($11, ''), updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, strings.TrimSpace(input.Name), input.SellPrice, input.StaffPrice, input.CostPrice,
		input.Stock, strings.TrimSpace(input.Owner), input.BottleSize, available,
		strings.TrimSpace(input.Category), strings.TrimSpace(input.Subcategory),
	)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, listCacheKey)
}

func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return common.NewAppError("VALIDATION", "product name is required", http.StatusBadRequest, nil)
	}
	if input.SellPrice.IsNegative() || input.StaffPrice.IsNegative() || input.CostPrice.IsNegative() {
		return common.NewAppError("VALIDATION", "prices must not be negative", http.StatusBadRequest, nil)
	}
	if input.Stock < 0 {
		return common.NewAppError("VALIDATION", "stock must not be negative", http.StatusBadRequest, nil)
	}
	switch input.BottleSize {
	case "", string(pricing.BottleLarge), string(pricing.BottleSmall):
	default:
		return common.NewAppError("VALIDATION", "bottle_size must be large or small", http.StatusBadRequest, nil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
