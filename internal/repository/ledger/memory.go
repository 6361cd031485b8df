package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/credit"
)

// MemoryStore keeps the ledger in process memory. A per-workspace mutex
// stands in for the row lock: debits against the same workspace serialize,
// debits against different workspaces do not.
type MemoryStore struct {
	mu           sync.Mutex
	workspaces   map[string]credit.Workspace
	transactions map[string][]credit.Transaction
	locks        map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-process ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workspaces:   make(map[string]credit.Workspace),
		transactions: make(map[string][]credit.Transaction),
		locks:        make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) rowLock(workspaceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[workspaceID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[workspaceID] = l
	}
	return l
}

func (s *MemoryStore) EnsureWorkspace(_ context.Context, workspaceID, ownerUserID string, startingBalance int64) (credit.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[workspaceID]
	if !ok {
		ws = credit.Workspace{ID: workspaceID, OwnerUserID: ownerUserID, Balance: startingBalance}
		s.workspaces[workspaceID] = ws
		if startingBalance > 0 {
			s.transactions[workspaceID] = append(s.transactions[workspaceID], credit.Transaction{
				ID:          uuid.NewString(),
				WorkspaceID: workspaceID,
				Amount:      startingBalance,
				Type:        credit.Grant,
				Meta:        map[string]string{"reason": "signup"},
				CreatedAt:   time.Now().UTC(),
			})
		}
	}
	return ws, nil
}

func (s *MemoryStore) GetWorkspace(_ context.Context, workspaceID string) (credit.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[workspaceID]
	if !ok {
		return credit.Workspace{}, domain.ErrNotFound
	}
	return ws, nil
}

func (s *MemoryStore) FindSpendByReference(_ context.Context, workspaceID, referenceID string) (credit.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.transactions[workspaceID] {
		if txn.Type == credit.Spend && txn.ReferenceID == referenceID && referenceID != "" {
			return txn, nil
		}
	}
	return credit.Transaction{}, domain.ErrNotFound
}

func (s *MemoryStore) FindSpendByContact(_ context.Context, workspaceID, category, contactID string) (credit.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.transactions[workspaceID] {
		if txn.Type == credit.Spend && txn.Category == category && txn.ContactID == contactID && contactID != "" {
			return txn, nil
		}
	}
	return credit.Transaction{}, domain.ErrNotFound
}

func (s *MemoryStore) Debit(_ context.Context, workspaceID string, txn credit.Transaction) (credit.Workspace, error) {
	lock := s.rowLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[workspaceID]
	if !ok {
		return credit.Workspace{}, domain.ErrNotFound
	}
	required := -txn.Amount
	if ws.Balance < required {
		return credit.Workspace{}, &domain.InsufficientCreditsError{Balance: ws.Balance, Required: required}
	}
	ws.Balance += txn.Amount
	s.workspaces[workspaceID] = ws
	s.transactions[workspaceID] = append(s.transactions[workspaceID], txn)
	return ws, nil
}

func (s *MemoryStore) Credit(_ context.Context, workspaceID string, txn credit.Transaction) (credit.Workspace, error) {
	lock := s.rowLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[workspaceID]
	if !ok {
		return credit.Workspace{}, domain.ErrNotFound
	}
	ws.Balance += txn.Amount
	s.workspaces[workspaceID] = ws
	s.transactions[workspaceID] = append(s.transactions[workspaceID], txn)
	return ws, nil
}

func (s *MemoryStore) Reconcile(_ context.Context, workspaceID string) (int64, error) {
	lock := s.rowLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[workspaceID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	var balance int64
	for _, txn := range s.transactions[workspaceID] {
		balance += txn.Amount
	}
	ws.Balance = balance
	s.workspaces[workspaceID] = ws
	return balance, nil
}

// SetBalance overwrites the cached balance without a ledger row. Test hook
// for simulating drift.
func (s *MemoryStore) SetBalance(workspaceID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.workspaces[workspaceID]
	ws.ID = workspaceID
	ws.Balance = balance
	s.workspaces[workspaceID] = ws
}
