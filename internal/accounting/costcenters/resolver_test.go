package costcenters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keystone-pm/keystone/internal/accounting/shared"
)

type memoryCCRepo struct {
	byID    map[int64]CostCenter
	byCode  map[string]int64
	nextID  int64
	creates int
}

func newMemoryCCRepo() *memoryCCRepo {
	return &memoryCCRepo{byID: make(map[int64]CostCenter), byCode: make(map[string]int64)}
}

func (r *memoryCCRepo) List(ctx context.Context) ([]CostCenter, error) {
	var out []CostCenter
	for _, cc := range r.byID {
		out = append(out, cc)
	}
	return out, nil
}

func (r *memoryCCRepo) Get(ctx context.Context, id int64) (CostCenter, error) {
	cc, ok := r.byID[id]
	if !ok {
		return CostCenter{}, shared.ErrMissingCostCenter
	}
	return cc, nil
}

func (r *memoryCCRepo) GetOrCreate(ctx context.Context, code, name string) (CostCenter, error) {
	if id, ok := r.byCode[code]; ok {
		return r.byID[id], nil
	}
	r.nextID++
	r.creates++
	cc := CostCenter{ID: r.nextID, Code: code, Name: name, IsActive: true, CreatedAt: time.Now()}
	r.byID[cc.ID] = cc
	r.byCode[code] = cc.ID
	return cc, nil
}

func (r *memoryCCRepo) Delete(ctx context.Context, id int64) error {
	delete(r.byID, id)
	return nil
}

func TestResolveAutoCreatesDeterministicCode(t *testing.T) {
	repo := newMemoryCCRepo()
	resolver := NewResolver(repo)

	cc, err := resolver.Resolve(context.Background(), Ref{Kind: KindUnit, EntityID: 7, Name: "Marina Tower - 12B"})
	require.NoError(t, err)
	require.Equal(t, "CC-UNIT-0007", cc.Code)
	require.Equal(t, 1, repo.creates)
}

func TestResolveIsStableAcrossCalls(t *testing.T) {
	repo := newMemoryCCRepo()
	resolver := NewResolver(repo)

	first, err := resolver.Resolve(context.Background(), Ref{Kind: KindUnit, EntityID: 3, Name: "Unit 3"})
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), Ref{Kind: KindUnit, EntityID: 3, Name: "Unit 3"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, repo.creates)
}

func TestResolvePrecedence(t *testing.T) {
	repo := newMemoryCCRepo()
	explicit, err := repo.GetOrCreate(context.Background(), "CC-001", "Explicit")
	require.NoError(t, err)
	unitLevel, err := repo.GetOrCreate(context.Background(), "CC-002", "Unit level")
	require.NoError(t, err)
	classDefault, err := repo.GetOrCreate(context.Background(), "CC-003", "Classification default")
	require.NoError(t, err)

	resolver := NewResolver(repo)
	ref := Ref{
		Kind:                    KindUnit,
		EntityID:                9,
		ExplicitID:              &explicit.ID,
		UnitCostCenterID:        &unitLevel.ID,
		ClassificationDefaultID: &classDefault.ID,
	}

	got, err := resolver.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, explicit.ID, got.ID)

	ref.ExplicitID = nil
	got, err = resolver.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, unitLevel.ID, got.ID)

	ref.UnitCostCenterID = nil
	got, err = resolver.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, classDefault.ID, got.ID)

	ref.ClassificationDefaultID = nil
	got, err = resolver.Resolve(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "CC-UNIT-0009", got.Code)
}

func TestKindCodesZeroPad(t *testing.T) {
	require.Equal(t, "CC-TENANT-0042", Code(KindTenant, 42))
	require.Equal(t, "CC-PROP-1234", Code(KindProperty, 1234))
	require.Equal(t, "CC-SUPPLIER-0001", Code(KindSupplier, 1))
}
