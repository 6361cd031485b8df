// Package ledger persists workspaces and their credit transactions. The
// Postgres store serializes balance mutation with row locks; the memory store
// mirrors the same guarantees with per-workspace mutexes for tests and local
// runs.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/credit"
)

const (
	schemaSQL = `
CREATE TABLE IF NOT EXISTS workspaces (
    id              TEXT PRIMARY KEY,
    owner_user_id   TEXT NOT NULL,
    plan_id         TEXT NOT NULL DEFAULT '',
    credit_balance  BIGINT NOT NULL DEFAULT 0,
    credit_reserved BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS credit_transactions (
    id           TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL REFERENCES workspaces (id),
    amount       BIGINT NOT NULL,
    type         TEXT NOT NULL,
    reference_id TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    contact_id   TEXT NOT NULL DEFAULT '',
    meta         JSONB,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS credit_tx_workspace_idx
    ON credit_transactions (workspace_id);
CREATE UNIQUE INDEX IF NOT EXISTS credit_tx_reference_idx
    ON credit_transactions (workspace_id, reference_id)
    WHERE type = 'spend' AND reference_id <> '';`

	insertWorkspaceSQL = `
INSERT INTO workspaces (id, owner_user_id, credit_balance)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING`

	getWorkspaceSQL = `
SELECT id, owner_user_id, plan_id, credit_balance, credit_reserved
FROM workspaces WHERE id = $1`

	lockWorkspaceSQL = getWorkspaceSQL + `
FOR UPDATE`

	findSpendByReferenceSQL = `
SELECT id, workspace_id, amount, type, reference_id, category, contact_id, meta, created_at
FROM credit_transactions
WHERE workspace_id = $1 AND reference_id = $2 AND type = 'spend'
LIMIT 1`

	findSpendByContactSQL = `
SELECT id, workspace_id, amount, type, reference_id, category, contact_id, meta, created_at
FROM credit_transactions
WHERE workspace_id = $1 AND category = $2 AND contact_id = $3 AND type = 'spend'
LIMIT 1`

	insertTransactionSQL = `
INSERT INTO credit_transactions (id, workspace_id, amount, type, reference_id, category, contact_id, meta, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	moveBalanceSQL = `
UPDATE workspaces SET credit_balance = credit_balance + $2 WHERE id = $1
RETURNING credit_balance`

	sumTransactionsSQL = `
SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE workspace_id = $1`

	setBalanceSQL = `
UPDATE workspaces SET credit_balance = $2 WHERE id = $1`
)

// PostgresStore implements the ledger store over database/sql with the pgx
// driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger tables when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// EnsureWorkspace inserts the workspace when absent. The starting balance is
// recorded as a signup grant row so the ledger sum always covers it.
func (s *PostgresStore) EnsureWorkspace(ctx context.Context, workspaceID, ownerUserID string, startingBalance int64) (credit.Workspace, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertWorkspaceSQL, workspaceID, ownerUserID, startingBalance)
		if err != nil {
			return fmt.Errorf("insert workspace %s: %w", workspaceID, err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert workspace %s: %w", workspaceID, err)
		}
		if inserted == 0 || startingBalance <= 0 {
			return nil
		}
		return appendTransaction(ctx, tx, credit.Transaction{
			ID:          uuid.NewString(),
			WorkspaceID: workspaceID,
			Amount:      startingBalance,
			Type:        credit.Grant,
			Meta:        map[string]string{"reason": "signup"},
			CreatedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return credit.Workspace{}, err
	}
	return s.GetWorkspace(ctx, workspaceID)
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, workspaceID string) (credit.Workspace, error) {
	var ws credit.Workspace
	err := s.db.QueryRowContext(ctx, getWorkspaceSQL, workspaceID).
		Scan(&ws.ID, &ws.OwnerUserID, &ws.PlanID, &ws.Balance, &ws.Reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return credit.Workspace{}, fmt.Errorf("workspace %s: %w", workspaceID, domain.ErrNotFound)
	}
	if err != nil {
		return credit.Workspace{}, fmt.Errorf("get workspace %s: %w", workspaceID, err)
	}
	return ws, nil
}

func (s *PostgresStore) FindSpendByReference(ctx context.Context, workspaceID, referenceID string) (credit.Transaction, error) {
	return s.scanTransaction(s.db.QueryRowContext(ctx, findSpendByReferenceSQL, workspaceID, referenceID))
}

func (s *PostgresStore) FindSpendByContact(ctx context.Context, workspaceID, category, contactID string) (credit.Transaction, error) {
	return s.scanTransaction(s.db.QueryRowContext(ctx, findSpendByContactSQL, workspaceID, category, contactID))
}

// Debit re-checks the balance under a row lock, then moves the balance and
// appends the spend row in one transaction.
func (s *PostgresStore) Debit(ctx context.Context, workspaceID string, txn credit.Transaction) (credit.Workspace, error) {
	var out credit.Workspace
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ws, err := lockWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}
		required := -txn.Amount
		if ws.Balance < required {
			return &domain.InsufficientCreditsError{Balance: ws.Balance, Required: required}
		}
		if err := appendTransaction(ctx, tx, txn); err != nil {
			return err
		}
		ws.Balance, err = moveBalance(ctx, tx, workspaceID, txn.Amount)
		if err != nil {
			return err
		}
		out = ws
		return nil
	})
	return out, err
}

// Credit moves the balance up (or down, for negative adjustments) and appends
// the row in one transaction.
func (s *PostgresStore) Credit(ctx context.Context, workspaceID string, txn credit.Transaction) (credit.Workspace, error) {
	var out credit.Workspace
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ws, err := lockWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}
		if err := appendTransaction(ctx, tx, txn); err != nil {
			return err
		}
		ws.Balance, err = moveBalance(ctx, tx, workspaceID, txn.Amount)
		if err != nil {
			return err
		}
		out = ws
		return nil
	})
	return out, err
}

// Reconcile overwrites the cached balance with the ledger sum, under the same
// row lock the mutating paths take.
func (s *PostgresStore) Reconcile(ctx context.Context, workspaceID string) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockWorkspace(ctx, tx, workspaceID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, sumTransactionsSQL, workspaceID).Scan(&balance); err != nil {
			return fmt.Errorf("sum transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, setBalanceSQL, workspaceID, balance); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// withTx runs fn inside a transaction. Denials and missing rows pass through
// unchanged; any other failure after the lock is a consistency failure, since
// the balance move and the ledger append must land together.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		var insufficient *domain.InsufficientCreditsError
		if errors.As(err, &insufficient) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrLedgerConsistency, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrLedgerConsistency, err)
	}
	return nil
}

func lockWorkspace(ctx context.Context, tx *sql.Tx, workspaceID string) (credit.Workspace, error) {
	var ws credit.Workspace
	err := tx.QueryRowContext(ctx, lockWorkspaceSQL, workspaceID).
		Scan(&ws.ID, &ws.OwnerUserID, &ws.PlanID, &ws.Balance, &ws.Reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return credit.Workspace{}, fmt.Errorf("workspace %s: %w", workspaceID, domain.ErrNotFound)
	}
	if err != nil {
		return credit.Workspace{}, fmt.Errorf("lock workspace %s: %w", workspaceID, err)
	}
	return ws, nil
}

// moveBalance applies the delta to the stored balance and returns the value
// the database now holds.
func moveBalance(ctx context.Context, tx *sql.Tx, workspaceID string, amount int64) (int64, error) {
	var balance int64
	if err := tx.QueryRowContext(ctx, moveBalanceSQL, workspaceID, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("move balance for %s: %w", workspaceID, err)
	}
	return balance, nil
}

func appendTransaction(ctx context.Context, tx *sql.Tx, txn credit.Transaction) error {
	var meta []byte
	if len(txn.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(txn.Meta); err != nil {
			return fmt.Errorf("encode transaction meta: %w", err)
		}
	}
	_, err := tx.ExecContext(ctx, insertTransactionSQL,
		txn.ID, txn.WorkspaceID, txn.Amount, string(txn.Type),
		txn.ReferenceID, txn.Category, txn.ContactID, meta, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transaction %s: %w", txn.ID, err)
	}
	return nil
}

func (s *PostgresStore) scanTransaction(row *sql.Row) (credit.Transaction, error) {
	var (
		txn  credit.Transaction
		meta []byte
	)
	err := row.Scan(&txn.ID, &txn.WorkspaceID, &txn.Amount, &txn.Type,
		&txn.ReferenceID, &txn.Category, &txn.ContactID, &meta, &txn.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return credit.Transaction{}, domain.ErrNotFound
	}
	if err != nil {
		return credit.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &txn.Meta); err != nil {
			return credit.Transaction{}, fmt.Errorf("decode transaction meta: %w", err)
		}
	}
	return txn, nil
}
