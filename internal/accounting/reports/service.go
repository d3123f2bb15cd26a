package reports

import (
	"context"
	"time"
)

// Service assembles reporting views from aggregated ledger reads.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TrialBalance aggregates all account movement within the date range.
func (s *Service) TrialBalance(ctx context.Context, from, to *time.Time) (TrialBalance, error) {
	balances, err := s.repo.AccountBalances(ctx, from, to)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(balances), nil
}

// GeneralLedger lists journal lines matching the filter with totals.
func (s *Service) GeneralLedger(ctx context.Context, f GeneralLedgerFilter) (GeneralLedger, error) {
	rows, err := s.repo.GeneralLedgerRows(ctx, f)
	if err != nil {
		return GeneralLedger{}, err
	}
	return BuildGeneralLedger(rows), nil
}
