package credits

import (
	"context"

	"github.com/prospectio/prospect/internal/domain/credit"
)

// Store is the ledger persistence surface the service consumes. Implementations
// must keep balance mutation and ledger append atomic: a failure in either
// rolls back both.
type Store interface {
	// EnsureWorkspace returns the workspace for the owner, creating it with
	// the given starting balance when absent.
	EnsureWorkspace(ctx context.Context, workspaceID, ownerUserID string, startingBalance int64) (credit.Workspace, error)

	// GetWorkspace returns a workspace by id, domain.ErrNotFound when absent.
	GetWorkspace(ctx context.Context, workspaceID string) (credit.Workspace, error)

	// FindSpendByReference returns the spend transaction recorded under the
	// caller-supplied reference id, domain.ErrNotFound when none exists.
	FindSpendByReference(ctx context.Context, workspaceID, referenceID string) (credit.Transaction, error)

	// FindSpendByContact returns a prior spend for the same workspace,
	// category, and contact, domain.ErrNotFound when none exists.
	FindSpendByContact(ctx context.Context, workspaceID, category, contactID string) (credit.Transaction, error)

	// Debit locks the workspace row, re-checks the balance, decrements it and
	// appends the spend transaction atomically. Returns
	// *domain.InsufficientCreditsError when the locked balance cannot cover
	// the amount. tx.Amount must be negative.
	Debit(ctx context.Context, workspaceID string, tx credit.Transaction) (credit.Workspace, error)

	// Credit locks the workspace row, increments the balance and appends the
	// grant or adjustment transaction atomically.
	Credit(ctx context.Context, workspaceID string, tx credit.Transaction) (credit.Workspace, error)

	// Reconcile recomputes the balance as the sum of all transactions for the
	// workspace and overwrites the cached balance, returning the new value.
	Reconcile(ctx context.Context, workspaceID string) (int64, error)
}
