package costcenters

import (
	"context"
	"errors"
)

// Ref describes the entity a posting needs attribution for, together with the
// candidate cost centers known to the caller.
type Ref struct {
	Kind     Kind
	EntityID int64
	// Name labels the cost center if it has to be created, e.g.
	// "Marina Tower - Unit 12B".
	Name string
	// ExplicitID is the cost center chosen on the document itself.
	ExplicitID *int64
	// UnitCostCenterID is the cost center already assigned to the owning unit.
	UnitCostCenterID *int64
	// ClassificationDefaultID is the property classification's default.
	ClassificationDefaultID *int64
}

// Resolver derives the cost center for a posting. Precedence: explicit
// document choice, then the unit's cost center, then the classification
// default, then lazy creation from the deterministic code. Creation happens
// here and only here; entity save paths never create cost centers as a side
// effect. The posting flow stamps the resolved id back onto the document, so
// a repeat resolution for the same entity is a code lookup, not a create.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the cost center for ref, creating one on first use.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (CostCenter, error) {
	for _, id := range []*int64{ref.ExplicitID, ref.UnitCostCenterID, ref.ClassificationDefaultID} {
		if id != nil && *id != 0 {
			return r.repo.Get(ctx, *id)
		}
	}
	if ref.EntityID == 0 {
		return CostCenter{}, errors.New("costcenters: entity id required for auto-creation")
	}
	return r.repo.GetOrCreate(ctx, Code(ref.Kind, ref.EntityID), ref.Name)
}
