package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Ledger {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Balance(ctx context.Context, userID string) (int, error) {
	query := `SELECT ai_credits FROM users WHERE id = $1`

	var balance int
	err := s.db.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get credit balance: %w", err)
	}

	return balance, nil
}

// Deduct spends exactly one credit. The WHERE guard keeps the balance
// non-negative even when concurrent requests race past the advisory
// Balance check.
func (s *PostgresStore) Deduct(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET ai_credits = ai_credits - 1, updated_at = NOW()
		WHERE id = $1 AND ai_credits > 0
	`
	tag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to deduct credit: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNoCredits
	}

	return nil
}

func (s *PostgresStore) Grant(ctx context.Context, userID string, amount int) error {
	query := `
		INSERT INTO users (id, ai_credits)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET ai_credits = users.ai_credits + $2, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}

	return nil
}
