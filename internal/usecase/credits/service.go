// Package credits meters paid operations against a per-workspace credit
// balance backed by an append-only transaction ledger.
package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/credit"
)

// Config carries the per-category pricing and the starting grant for
// auto-created workspaces.
type Config struct {
	// DefaultGrant is the balance a workspace starts with.
	DefaultGrant int64
	// Costs maps a spend category to its price in credits. Used when the
	// caller does not fix the amount itself.
	Costs map[string]int64
}

// Caller identifies who is attempting the paid operation.
type Caller struct {
	UserID      string
	WorkspaceID string
	Admin       bool
}

// SpendRequest describes one paid operation to meter.
type SpendRequest struct {
	Caller   Caller
	Category string
	// Required is the debit amount. Zero falls back to the configured cost
	// for the category.
	Required int64
	// RequestID is the caller-supplied idempotency key. Retries carrying the
	// same id are never charged twice.
	RequestID string
	// ContactID keys reveal spends: a contact already paid for in this
	// workspace and category is never charged again.
	ContactID string
	Meta      map[string]string
}

// SpendResult reports how the spend attempt resolved.
type SpendResult struct {
	// Charged is true when a new debit was recorded.
	Charged bool
	// Replayed is true when an idempotency short-circuit matched a prior
	// spend and no new debit was recorded.
	Replayed bool
	// Bypassed is true for admin callers, which are never metered.
	Bypassed bool
	// Balance is the workspace balance after the attempt. Zero for bypassed
	// calls, which never touch storage.
	Balance int64
}

// Service orchestrates spend attempts, grants, and reconciliation over a
// ledger store.
type Service struct {
	store       Store
	cfg         Config
	logger      *zap.Logger
	spendsTotal *prometheus.CounterVec
	now         func() time.Time
}

// NewService creates the credit service. spendsTotal may be nil; it is
// labelled by outcome (charged, denied, replayed, bypassed).
func NewService(store Store, cfg Config, logger *zap.Logger, spendsTotal *prometheus.CounterVec) *Service {
	return &Service{
		store:       store,
		cfg:         cfg,
		logger:      logger,
		spendsTotal: spendsTotal,
		now:         time.Now,
	}
}

// EnsureCreditsAvailable runs one spend attempt: admin bypass, idempotency
// short-circuits, optimistic balance pre-check, then a locked debit that
// re-checks the balance before mutating it. On denial the returned error is a
// *domain.InsufficientCreditsError carrying balance, required, and shortfall.
func (s *Service) EnsureCreditsAvailable(ctx context.Context, req SpendRequest) (SpendResult, error) {
	if req.Caller.Admin {
		s.count("bypassed")
		return SpendResult{Bypassed: true}, nil
	}

	ws, err := s.store.EnsureWorkspace(ctx, req.Caller.WorkspaceID, req.Caller.UserID, s.cfg.DefaultGrant)
	if err != nil {
		return SpendResult{}, fmt.Errorf("ensure workspace: %w", err)
	}

	required := req.Required
	if required <= 0 {
		required = s.cfg.Costs[req.Category]
	}
	if required <= 0 {
		// Unpriced category: nothing to meter.
		return SpendResult{Balance: ws.Balance}, nil
	}

	if req.RequestID != "" {
		if _, err := s.store.FindSpendByReference(ctx, ws.ID, req.RequestID); err == nil {
			s.count("replayed")
			return SpendResult{Replayed: true, Balance: ws.Balance}, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return SpendResult{}, fmt.Errorf("find spend by reference: %w", err)
		}
	}

	if req.ContactID != "" {
		if _, err := s.store.FindSpendByContact(ctx, ws.ID, req.Category, req.ContactID); err == nil {
			s.count("replayed")
			return SpendResult{Replayed: true, Balance: ws.Balance}, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return SpendResult{}, fmt.Errorf("find spend by contact: %w", err)
		}
	}

	// Optimistic pre-check, no lock. The store re-checks under the row lock:
	// the balance may change between here and the debit.
	if ws.Balance < required {
		s.count("denied")
		return SpendResult{}, &domain.InsufficientCreditsError{Balance: ws.Balance, Required: required}
	}

	tx := credit.Transaction{
		ID:          uuid.NewString(),
		WorkspaceID: ws.ID,
		Amount:      -required,
		Type:        credit.Spend,
		ReferenceID: req.RequestID,
		Category:    req.Category,
		ContactID:   req.ContactID,
		Meta:        req.Meta,
		CreatedAt:   s.now().UTC(),
	}
	debited, err := s.store.Debit(ctx, ws.ID, tx)
	if err != nil {
		var insufficient *domain.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			s.count("denied")
			return SpendResult{}, err
		}
		return SpendResult{}, fmt.Errorf("debit workspace %s: %w", ws.ID, err)
	}

	s.count("charged")
	return SpendResult{Charged: true, Balance: debited.Balance}, nil
}

// GrantCredits appends a signed grant or adjustment transaction and moves the
// balance inside the same storage transaction.
func (s *Service) GrantCredits(ctx context.Context, workspaceID string, amount int64, txType credit.TransactionType, meta map[string]string) (credit.Workspace, error) {
	switch txType {
	case credit.Grant:
		if amount <= 0 {
			return credit.Workspace{}, fmt.Errorf("grant amount must be positive, got %d", amount)
		}
	case credit.Adjustment:
		if amount == 0 {
			return credit.Workspace{}, errors.New("adjustment amount must be non-zero")
		}
	default:
		return credit.Workspace{}, fmt.Errorf("transaction type %q cannot be granted", txType)
	}

	tx := credit.Transaction{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Amount:      amount,
		Type:        txType,
		Meta:        meta,
		CreatedAt:   s.now().UTC(),
	}
	ws, err := s.store.Credit(ctx, workspaceID, tx)
	if err != nil {
		return credit.Workspace{}, fmt.Errorf("credit workspace %s: %w", workspaceID, err)
	}
	return ws, nil
}

// ReconcileCredits recomputes the workspace balance from the ledger and
// overwrites the cached value. Drift between the two is logged: it means a
// past mutation escaped the transactional path.
func (s *Service) ReconcileCredits(ctx context.Context, workspaceID string) (int64, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("get workspace %s: %w", workspaceID, err)
	}

	balance, err := s.store.Reconcile(ctx, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("reconcile workspace %s: %w", workspaceID, err)
	}
	if balance != ws.Balance {
		s.logger.Warn("credit balance drift repaired",
			zap.String("workspace_id", workspaceID),
			zap.Int64("cached", ws.Balance),
			zap.Int64("ledger", balance),
		)
	}
	return balance, nil
}

func (s *Service) count(outcome string) {
	if s.spendsTotal != nil {
		s.spendsTotal.WithLabelValues(outcome).Inc()
	}
}
