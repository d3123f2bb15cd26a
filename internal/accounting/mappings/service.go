package mappings

import (
	"context"
	"errors"
	"fmt"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Require returns the active mapping for tt, or ErrMappingNotFound. Posting
// rules call it before building any lines so a misconfigured ledger fails the
// whole operation instead of producing a partial entry.
func (s *Service) Require(ctx context.Context, tt TransactionType) (Mapping, error) {
	m, err := s.repo.GetByType(ctx, tt)
	if err != nil {
		return Mapping{}, err
	}
	if !m.IsActive {
		return Mapping{}, shared.ErrMappingNotFound
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]Mapping, error) {
	return s.repo.List(ctx)
}

func (s *Service) Upsert(ctx context.Context, m Mapping) (Mapping, error) {
	if m.DebitAccountID == 0 || m.CreditAccountID == 0 {
		return Mapping{}, shared.ErrMissingAccount
	}
	return s.repo.Upsert(ctx, m)
}

// ValidateStartup verifies an active mapping exists for every listed
// transaction type. Wiring calls it at boot with mappings.All.
func (s *Service) ValidateStartup(ctx context.Context, types ...TransactionType) error {
	var missing []TransactionType
	for _, tt := range types {
		if _, err := s.Require(ctx, tt); err != nil {
			if errors.Is(err, shared.ErrMappingNotFound) {
				missing = append(missing, tt)
				continue
			}
			return err
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", shared.ErrMappingNotFound, missing)
	}
	return nil
}
