package credits

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	balance int
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*int); ok {
		*p = r.balance
	}
	return nil
}

type fakeDB struct {
	row     fakeRow
	tag     pgconn.CommandTag
	execErr error

	lastSQL  string
	lastArgs []any
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.lastSQL, db.lastArgs = sql, args
	return db.row
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.lastSQL, db.lastArgs = sql, args
	return db.tag, db.execErr
}

func TestBalance(t *testing.T) {
	db := &fakeDB{row: fakeRow{balance: 7}}
	ledger := NewPostgresStore(db)

	balance, err := ledger.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, balance)
	assert.Equal(t, []any{"u1"}, db.lastArgs)
}

func TestBalance_UserNotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	ledger := NewPostgresStore(db)

	_, err := ledger.Balance(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeduct(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	ledger := NewPostgresStore(db)

	err := ledger.Deduct(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, db.lastSQL, "ai_credits > 0", "decrement must be guarded")
}

func TestDeduct_NoCredits(t *testing.T) {
	// Zero rows affected: the guard blocked the decrement.
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	ledger := NewPostgresStore(db)

	err := ledger.Deduct(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoCredits)
}
