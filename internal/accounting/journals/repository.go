package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
	platformdb "github.com/keystone-pm/keystone/internal/platform/db"
)

// Repository encapsulates DB operations for the ledger store.
//
// Expected DDL:
//
//	CREATE TABLE journal_entries (
//	    id             BIGSERIAL PRIMARY KEY,
//	    number         BIGINT NOT NULL GENERATED BY DEFAULT AS IDENTITY,
//	    entry_type     TEXT NOT NULL,
//	    reference_type TEXT NOT NULL,
//	    reference_id   BIGINT NOT NULL DEFAULT 0,
//	    period         TEXT NOT NULL DEFAULT '',
//	    date           DATE NOT NULL,
//	    description    TEXT NOT NULL DEFAULT '',
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	-- idempotency key; manual entries are numbered individually and exempt
//	CREATE UNIQUE INDEX uq_journal_entries_reference
//	    ON journal_entries (reference_type, reference_id, entry_type, period)
//	    WHERE entry_type <> 'manual';
//
//	CREATE TABLE journal_lines (
//	    id             BIGSERIAL PRIMARY KEY,
//	    entry_id       BIGINT NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
//	    account_id     BIGINT NOT NULL REFERENCES accounts(id) ON DELETE RESTRICT,
//	    cost_center_id BIGINT NOT NULL REFERENCES cost_centers(id) ON DELETE RESTRICT,
//	    debit          NUMERIC(15,2) NOT NULL DEFAULT 0 CHECK (debit >= 0),
//	    credit         NUMERIC(15,2) NOT NULL DEFAULT 0 CHECK (credit >= 0),
//	    reference_type TEXT NOT NULL,
//	    reference_id   BIGINT NOT NULL DEFAULT 0,
//	    CHECK (NOT (debit > 0 AND credit > 0))
//	);
type Repository interface {
	List(ctx context.Context, f Filter) ([]JournalEntry, error)
	Get(ctx context.Context, id int64) (JournalEntry, error)
	// FindByReference looks up the entry for the idempotency key. Returns
	// shared.ErrEntryNotFound when absent.
	FindByReference(ctx context.Context, referenceType string, referenceID int64, entryType EntryType, period string) (JournalEntry, error)
	InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	InsertLines(ctx context.Context, entry JournalEntry, lines []LineInput) ([]JournalLine, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `id, number, entry_type, reference_type, reference_id, period, date, description, created_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.Number, &e.EntryType, &e.ReferenceType, &e.ReferenceID, &e.Period, &e.Date, &e.Description, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, f Filter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`
	args := make([]any, 0, 6)
	idx := 1
	appendArg := func(clause string, value any) {
		query += fmt.Sprintf(" AND %s$%d", clause, idx)
		args = append(args, value)
		idx++
	}
	if f.EntryType != "" {
		appendArg("entry_type=", f.EntryType)
	}
	if f.ReferenceType != "" {
		appendArg("reference_type=", f.ReferenceType)
	}
	if f.ReferenceID != 0 {
		appendArg("reference_id=", f.ReferenceID)
	}
	if f.Period != "" {
		appendArg("period=", f.Period)
	}
	if f.From != nil {
		appendArg("date>=", *f.From)
	}
	if f.To != nil {
		appendArg("date<=", *f.To)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := platformdb.QuerierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Number, &e.EntryType, &e.ReferenceType, &e.ReferenceID, &e.Period, &e.Date, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	q := platformdb.QuerierFrom(ctx, r.pool)
	entry, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		return JournalEntry{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, cost_center_id, debit, credit, reference_type, reference_id
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.CostCenterID, &line.Debit, &line.Credit, &line.ReferenceType, &line.ReferenceID); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *repository) FindByReference(ctx context.Context, referenceType string, referenceID int64, entryType EntryType, period string) (JournalEntry, error) {
	entry, err := scanEntry(platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+entryColumns+` FROM journal_entries
WHERE reference_type=$1 AND reference_id=$2 AND entry_type=$3 AND period=$4`,
		referenceType, referenceID, entryType, period))
	if err != nil {
		return JournalEntry{}, err
	}
	return r.Get(ctx, entry.ID)
}

func (r *repository) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	row := platformdb.QuerierFrom(ctx, r.pool).QueryRow(ctx, `INSERT INTO journal_entries
(entry_type, reference_type, reference_id, period, date, description)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, number, created_at`,
		in.EntryType, in.ReferenceType, in.ReferenceID, in.Period, in.Date, in.Description)
	entry := JournalEntry{
		EntryType:     in.EntryType,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Period:        in.Period,
		Date:          in.Date,
		Description:   in.Description,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_journal_entries_reference" {
			return JournalEntry{}, shared.ErrAlreadyPosted
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *repository) InsertLines(ctx context.Context, entry JournalEntry, lines []LineInput) ([]JournalLine, error) {
	q := platformdb.QuerierFrom(ctx, r.pool)
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		inserted := JournalLine{
			EntryID:       entry.ID,
			AccountID:     line.AccountID,
			CostCenterID:  line.CostCenterID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			ReferenceType: entry.ReferenceType,
			ReferenceID:   entry.ReferenceID,
		}
		err := q.QueryRow(ctx, `INSERT INTO journal_lines
(entry_id, account_id, cost_center_id, debit, credit, reference_type, reference_id)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			entry.ID, line.AccountID, line.CostCenterID, line.Debit, line.Credit, entry.ReferenceType, entry.ReferenceID).
			Scan(&inserted.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, inserted)
	}
	return out, nil
}
