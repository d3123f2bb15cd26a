package journals

import (
	"context"
	"errors"
	"time"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the posting entry point for the ledger. Every posting rule in
// the domain packages funnels through Post, which owns the idempotency check
// and the atomic header+lines insert.
type Service struct {
	repo Repository
	tx   TxRunner
	now  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, tx TxRunner) *Service {
	return &Service{repo: repo, tx: tx, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post creates the journal entry for in. The existence check, the header
// insert and every line insert run in one transaction; two concurrent callers
// posting the same document cannot both get past the unique reference index.
//
// When an entry already exists for (reference_type, reference_id, entry_type,
// period) the call is a no-op returning the existing entry and created=false.
// Manual entries are exempt: each call creates a new numbered entry.
func (s *Service) Post(ctx context.Context, in PostingInput) (JournalEntry, bool, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, false, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if in.EntryType == EntryTypeManual && in.ReferenceType == "" {
		in.ReferenceType = "manual_journal"
	}

	var entry JournalEntry
	created := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.EntryType != EntryTypeManual {
			existing, err := s.repo.FindByReference(ctx, in.ReferenceType, in.ReferenceID, in.EntryType, in.Period)
			if err == nil {
				entry = existing
				return nil
			}
			if !errors.Is(err, shared.ErrEntryNotFound) {
				return err
			}
		}
		inserted, err := s.repo.InsertEntry(ctx, in)
		if err != nil {
			return err
		}
		lines, err := s.repo.InsertLines(ctx, inserted, in.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		created = true
		return nil
	})
	if err != nil {
		// A concurrent poster won the unique index race; their entry is the
		// posting for this key.
		if errors.Is(err, shared.ErrAlreadyPosted) {
			existing, findErr := s.repo.FindByReference(ctx, in.ReferenceType, in.ReferenceID, in.EntryType, in.Period)
			if findErr != nil {
				return JournalEntry{}, false, findErr
			}
			return existing, false, nil
		}
		return JournalEntry{}, false, err
	}
	return entry, created, nil
}

// List returns journal headers matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]JournalEntry, error) {
	return s.repo.List(ctx, f)
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

// FindByReference exposes the idempotency lookup to read paths.
func (s *Service) FindByReference(ctx context.Context, referenceType string, referenceID int64, entryType EntryType, period string) (JournalEntry, error) {
	return s.repo.FindByReference(ctx, referenceType, referenceID, entryType, period)
}
