package accounts

import (
	"context"
	"errors"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (Account, error) {
	return s.repo.GetByNumber(ctx, number)
}

// Create registers a new account. The type is fixed for the lifetime of the
// account; there is deliberately no update path for it.
func (s *Service) Create(ctx context.Context, a Account) (Account, error) {
	if a.Number == "" {
		return Account{}, errors.New("accounts: number required")
	}
	if a.Name == "" {
		return Account{}, errors.New("accounts: name required")
	}
	if !a.Type.Valid() {
		return Account{}, shared.ErrWrongAccountType
	}
	a.IsActive = true
	return s.repo.Insert(ctx, a)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// Delete removes an account that no journal line references. Referenced
// accounts are protected at the schema level and surface ErrAccountInUse.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
