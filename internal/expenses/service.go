package expenses

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/karimhafez/backend-pos/internal/common"
)

// Expense is an operating cost recorded outside the sales ledger.
type Expense struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category,omitempty"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// ExpenseInput captures the payload for recording an expense.
type ExpenseInput struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
}

// Service manages the expense ledger.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs an expense service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

const expenseColumns = `id, name, amount, COALESCE(category, ''), created_by, created_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Name, &e.Amount, &e.Category, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

// List returns expenses, newest first.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]Expense, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	result := make([]Expense, 0, limit)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM expenses`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Create records an expense.
func (s *Service) Create(ctx context.Context, createdBy string, input ExpenseInput) (Expense, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Expense{}, common.NewAppError("VALIDATION", "expense name is required", http.StatusBadRequest, nil)
	}
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return Expense{}, common.NewAppError("VALIDATION", "expense amount must be positive", http.StatusBadRequest, nil)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO expenses (name, amount, category, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING `+expenseColumns,
		name, input.Amount.Round(2), strings.TrimSpace(input.Category), createdBy)
	e, err := scanExpense(row)
	if err != nil {
		return Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

// Delete removes an expense record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("EXPENSE_NOT_FOUND", "expense not found", http.StatusNotFound, pgx.ErrNoRows)
	}
	return nil
}

// Get returns a single expense.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Expense, error) {
	e, err := scanExpense(s.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, common.NewAppError("EXPENSE_NOT_FOUND", "expense not found", http.StatusNotFound, err)
		}
		return Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}
