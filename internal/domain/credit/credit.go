// Package credit defines the workspace balance and ledger transaction models.
package credit

import "time"

// TransactionType classifies a ledger row.
type TransactionType string

const (
	// Spend is a debit for a paid operation.
	Spend TransactionType = "spend"
	// Adjustment is a signed manual correction.
	Adjustment TransactionType = "adjustment"
	// Grant is a credit allocation (signup, plan renewal, top-up).
	Grant TransactionType = "grant"
)

// Workspace owns a credit balance. The balance is a cached projection of the
// transaction ledger and must never go negative; it is mutated only inside a
// locked ledger transaction.
type Workspace struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`
	PlanID      string `json:"plan_id"`
	Balance     int64  `json:"credit_balance"`
	Reserved    int64  `json:"credit_reserved"`
}

// Transaction is one immutable, append-only ledger row. Amount is signed:
// negative for spends, positive for grants.
type Transaction struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	// ReferenceID is the caller-supplied request id used as idempotency key.
	ReferenceID string `json:"reference_id,omitempty"`
	// Category names the paid operation (reveal_email, reveal_phone, export).
	Category string `json:"category,omitempty"`
	// ContactID keys reveal spends so the same contact is never charged twice.
	ContactID string            `json:"contact_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
