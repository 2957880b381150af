package account

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"quietdrop/internal/model"
)

// MemoryRepo is a Store for servers started without MongoDB.
type MemoryRepo struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
}

var _ Store = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		accounts: make(map[string]model.Account),
	}
}

func (r *MemoryRepo) GetByName(_ context.Context, name string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[name]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

func (r *MemoryRepo) Create(_ context.Context, acc *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[acc.Name]; ok {
		return ErrExists
	}
	acc.ID = primitive.NewObjectID()
	r.accounts[acc.Name] = *acc
	return nil
}
