package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Logger {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Log(ctx context.Context, entry *Entry) error {
	input, err := json.Marshal(entry.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction input: %w", err)
	}

	query := `
		INSERT INTO ai_interactions (id, user_id, interaction_type, input, output, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.Exec(ctx, query,
		uuid.NewString(), entry.UserID, entry.Type, input, entry.Output, entry.Provider, entry.At,
	)
	if err != nil {
		return fmt.Errorf("failed to log interaction: %w", err)
	}

	return nil
}
