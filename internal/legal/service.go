package legal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrInvalidTransition = errors.New("legal: invalid status transition")

// UnitStatusSink receives the unit status a case imposes on its unit. The
// leasing side registers an implementation; a nil sink disables the sync.
type UnitStatusSink interface {
	SetUnitStatus(ctx context.Context, unitID int64, status UnitStatus) error
}

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service drives the legal case workflow. Cases carry no accounting; their
// effect is the status trail and the unit-status sync.
type Service struct {
	repo   Repository
	units  UnitStatusSink
	tx     TxRunner
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, units UnitStatusSink, tx TxRunner, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		units:  units,
		tx:     tx,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// FileCaseInput carries a new case.
type FileCaseInput struct {
	Number   string
	LeaseID  int64
	TenantID int64
	UnitID   int64
	Reason   string
	FiledOn  time.Time
}

// FileCase opens a case in the filed status and flags the unit as under a
// legal case.
func (s *Service) FileCase(ctx context.Context, in FileCaseInput) (Case, error) {
	var c Case
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.Insert(ctx, Case{
			Number:   in.Number,
			LeaseID:  in.LeaseID,
			TenantID: in.TenantID,
			UnitID:   in.UnitID,
			Reason:   in.Reason,
			Status:   StatusFiled,
			FiledOn:  in.FiledOn,
		})
		if err != nil {
			return err
		}
		return s.syncUnit(ctx, c)
	})
	if err != nil {
		return Case{}, err
	}
	return c, nil
}

// AdvanceStatus moves a case one step along the workflow, records the change
// in the status trail and syncs the unit status. Closing statuses stamp
// ResolvedOn.
func (s *Service) AdvanceStatus(ctx context.Context, id int64, next CaseStatus, note string) (Case, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Case{}, err
	}
	if !CanTransition(c.Status, next) {
		return Case{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, next)
	}

	now := s.now().UTC()
	var resolvedOn *time.Time
	if next == StatusClosedTenantWon || next == StatusClosedOwnerWon {
		resolvedOn = &now
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, c.ID, next, resolvedOn); err != nil {
			return err
		}
		if err := s.repo.AppendStatusChange(ctx, StatusChange{
			CaseID:    c.ID,
			From:      c.Status,
			To:        next,
			Note:      note,
			ChangedAt: now,
		}); err != nil {
			return err
		}
		c.Status = next
		c.ResolvedOn = resolvedOn
		return s.syncUnit(ctx, c)
	})
	if err != nil {
		return Case{}, err
	}
	return c, nil
}

// History returns the status trail of a case, oldest first.
func (s *Service) History(ctx context.Context, caseID int64) ([]StatusChange, error) {
	if _, err := s.repo.Get(ctx, caseID); err != nil {
		return nil, err
	}
	return s.repo.StatusHistory(ctx, caseID)
}

func (s *Service) syncUnit(ctx context.Context, c Case) error {
	if s.units == nil {
		return nil
	}
	status, ok := UnitStatusFor(c.Status)
	if !ok {
		return nil
	}
	if err := s.units.SetUnitStatus(ctx, c.UnitID, status); err != nil {
		return fmt.Errorf("legal: sync unit %d status: %w", c.UnitID, err)
	}
	return nil
}
