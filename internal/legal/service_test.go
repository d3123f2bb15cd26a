package legal

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type nopTxRunner struct{}

func (nopTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memoryRepo struct {
	cases   map[int64]Case
	history []StatusChange
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{cases: make(map[int64]Case)}
}

func (r *memoryRepo) Insert(ctx context.Context, c Case) (Case, error) {
	r.nextID++
	c.ID = r.nextID
	r.cases[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Case, error) {
	c, ok := r.cases[id]
	if !ok {
		return Case{}, ErrCaseNotFound
	}
	return c, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, status CaseStatus, resolvedOn *time.Time) error {
	c, ok := r.cases[id]
	if !ok {
		return ErrCaseNotFound
	}
	c.Status = status
	if resolvedOn != nil {
		c.ResolvedOn = resolvedOn
	}
	r.cases[id] = c
	return nil
}

func (r *memoryRepo) AppendStatusChange(ctx context.Context, change StatusChange) error {
	change.ID = int64(len(r.history) + 1)
	r.history = append(r.history, change)
	return nil
}

func (r *memoryRepo) StatusHistory(ctx context.Context, caseID int64) ([]StatusChange, error) {
	var out []StatusChange
	for _, ch := range r.history {
		if ch.CaseID == caseID {
			out = append(out, ch)
		}
	}
	return out, nil
}

type recordingUnitSink struct {
	statuses map[int64]UnitStatus
}

func newRecordingUnitSink() *recordingUnitSink {
	return &recordingUnitSink{statuses: make(map[int64]UnitStatus)}
}

func (s *recordingUnitSink) SetUnitStatus(ctx context.Context, unitID int64, status UnitStatus) error {
	s.statuses[unitID] = status
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fileTestCase(t *testing.T, svc *Service) Case {
	t.Helper()
	c, err := svc.FileCase(context.Background(), FileCaseInput{
		Number:   "LC-0001",
		LeaseID:  5,
		TenantID: 3,
		UnitID:   12,
		Reason:   "rent arrears",
		FiledOn:  date(2025, 4, 1),
	})
	require.NoError(t, err)
	require.Equal(t, StatusFiled, c.Status)
	return c
}

func TestFileCaseFlagsUnit(t *testing.T) {
	repo := newMemoryRepo()
	sink := newRecordingUnitSink()
	svc := NewService(repo, sink, nopTxRunner{}, slog.Default())

	c := fileTestCase(t, svc)
	require.Equal(t, UnitUnderLegalCase, sink.statuses[c.UnitID])
}

func TestAdvanceStatusFollowsWorkflow(t *testing.T) {
	repo := newMemoryRepo()
	sink := newRecordingUnitSink()
	svc := NewService(repo, sink, nopTxRunner{}, slog.Default())

	c := fileTestCase(t, svc)

	c, err := svc.AdvanceStatus(context.Background(), c.ID, StatusInProgress, "hearing scheduled")
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, c.Status)
	require.Equal(t, UnitUnderLegalCase, sink.statuses[c.UnitID])

	c, err = svc.AdvanceStatus(context.Background(), c.ID, StatusJudgmentPassed, "judgment issued")
	require.NoError(t, err)
	require.Equal(t, UnitBlocked, sink.statuses[c.UnitID])
	require.Nil(t, c.ResolvedOn)

	c, err = svc.AdvanceStatus(context.Background(), c.ID, StatusClosedOwnerWon, "eviction granted")
	require.NoError(t, err)
	require.Equal(t, UnitVacant, sink.statuses[c.UnitID])
	require.NotNil(t, c.ResolvedOn)

	history, err := svc.History(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, StatusFiled, history[0].From)
	require.Equal(t, StatusClosedOwnerWon, history[2].To)
}

func TestTenantWinReleasesUnitToOccupied(t *testing.T) {
	repo := newMemoryRepo()
	sink := newRecordingUnitSink()
	svc := NewService(repo, sink, nopTxRunner{}, slog.Default())

	c := fileTestCase(t, svc)
	_, err := svc.AdvanceStatus(context.Background(), c.ID, StatusInProgress, "")
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(context.Background(), c.ID, StatusClosedTenantWon, "claim dismissed")
	require.NoError(t, err)
	require.Equal(t, UnitOccupied, sink.statuses[c.UnitID])
}

func TestAdvanceStatusRejectsSkips(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nopTxRunner{}, slog.Default())

	c := fileTestCase(t, svc)

	_, err := svc.AdvanceStatus(context.Background(), c.ID, StatusJudgmentPassed, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.AdvanceStatus(context.Background(), c.ID, StatusFiled, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClosedCaseIsTerminal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nopTxRunner{}, slog.Default())

	c := fileTestCase(t, svc)
	_, err := svc.AdvanceStatus(context.Background(), c.ID, StatusInProgress, "")
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(context.Background(), c.ID, StatusClosedOwnerWon, "")
	require.NoError(t, err)

	_, err = svc.AdvanceStatus(context.Background(), c.ID, StatusInProgress, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}
