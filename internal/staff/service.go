package staff

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

	"github.com/karimhafez/backend-pos/internal/common"
	"github.com/karimhafez/backend-pos/internal/obs"
	"github.com/karimhafez/backend-pos/internal/pricing"
)

// Member represents an employee eligible for staff pricing and the
// recurring free-bottle allowance.
type Member struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	LargeBottles int32     `json:"large_bottles"`
	SmallBottles int32     `json:"small_bottles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MemberInput captures the payload for creating or renaming a staff member.
type MemberInput struct {
	Name string `json:"name"`
}

// Service manages the staff registry and the bottle allowance ledger.
type Service struct {
	pool *pgxpool.Pool
	// max is the per-size allowance ceiling counters are reset to.
	max int32
}

// NewService constructs a staff service.
func NewService(pool *pgxpool.Pool, allowanceMax int) *Service {
	max := int32(allowanceMax)
	if max < 0 {
		max = 0
	}
	return &Service{pool: pool, max: max}
}

const memberColumns = `id, name, large_bottles, small_bottles, created_at, updated_at`

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.Name, &m.LargeBottles, &m.SmallBottles, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// List returns all staff members ordered by name.
func (s *Service) List(ctx context.Context) ([]Member, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+memberColumns+` FROM staff_members ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	members := make([]Member, 0, 16)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetByID returns a staff member by identifier.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Member, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM staff_members WHERE id = $1`, id)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, common.NewAppError("STAFF_NOT_FOUND", "staff member not found", http.StatusNotFound, err)
		}
		return Member{}, fmt.Errorf("get staff member: %w", err)
	}
	return m, nil
}

// GetByName returns a staff member by case-insensitive exact name match.
func (s *Service) GetByName(ctx context.Context, name string) (Member, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM staff_members WHERE lower(name) = lower($1)`, strings.TrimSpace(name))
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, common.NewAppError("STAFF_NOT_FOUND", "staff member not found", http.StatusNotFound, err)
		}
		return Member{}, fmt.Errorf("get staff member by name: %w", err)
	}
	return m, nil
}

// Create inserts a staff member with a full allowance.
func (s *Service) Create(ctx context.Context, input MemberInput) (Member, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Member{}, common.NewAppError("VALIDATION", "staff name is required", http.StatusBadRequest, nil)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO staff_members (name, large_bottles, small_bottles)
		VALUES ($1, $2, $2)
		RETURNING `+memberColumns, name, s.max)
	m, err := scanMember(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Member{}, common.NewAppError("STAFF_EXISTS", "a staff member with this name already exists", http.StatusConflict, err)
		}
		return Member{}, fmt.Errorf("create staff member: %w", err)
	}
	return m, nil
}

// Rename updates a staff member's name.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, input MemberInput) (Member, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Member{}, common.NewAppError("VALIDATION", "staff name is required", http.StatusBadRequest, nil)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE staff_members SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+memberColumns, id, name)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, common.NewAppError("STAFF_NOT_FOUND", "staff member not found", http.StatusNotFound, err)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Member{}, common.NewAppError("STAFF_EXISTS", "a staff member with this name already exists", http.StatusConflict, err)
		}
		return Member{}, fmt.Errorf("rename staff member: %w", err)
	}
	return m, nil
}

// ConsumeIfAvailable decrements the staff member's remaining counter for the
// given bottle size if it is above zero. The decrement is a single
// conditional update, so concurrent consumers cannot drive a counter
// negative. Reports whether a unit was granted.
func (s *Service) ConsumeIfAvailable(ctx context.Context, id uuid.UUID, size pricing.BottleSize) (bool, error) {
	column, err := allowanceColumn(size)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE staff_members
		SET `+column+` = `+column+` - 1, updated_at = now()
		WHERE id = $1 AND `+column+` > 0`, id)
	if err != nil {
		return false, fmt.Errorf("consume allowance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ResetAll unconditionally restores every staff member's large and small
// counters to the configured maximum.
func (s *Service) ResetAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE staff_members
		SET large_bottles = $1, small_bottles = $1, updated_at = now()`, s.max)
	if err != nil {
		return fmt.Errorf("reset allowances: %w", err)
	}
	if obs.AllowanceResetsTotal != nil {
		obs.AllowanceResetsTotal.Inc()
	}
	return nil
}

func allowanceColumn(size pricing.BottleSize) (string, error) {
	switch size {
	case pricing.BottleLarge:
		return "large_bottles", nil
	case pricing.BottleSmall:
		return "small_bottles", nil
	default:
		return "", fmt.Errorf("staff: unknown bottle size %q", size)
	}
}
