package costcenters

import (
	"fmt"
	"time"
)

// Kind identifies the entity family a cost center is derived from.
type Kind string

const (
	KindUnit     Kind = "UNIT"
	KindTenant   Kind = "TENANT"
	KindProperty Kind = "PROP"
	KindSupplier Kind = "SUPPLIER"
)

// CostCenter is an attribution unit for segmenting ledger activity.
type CostCenter struct {
	ID        int64
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Code builds the deterministic code for an auto-created cost center,
// e.g. CC-UNIT-0012. Codes are stable per entity so repeated resolution
// always lands on the same row.
func Code(kind Kind, entityID int64) string {
	return fmt.Sprintf("CC-%s-%04d", kind, entityID)
}
