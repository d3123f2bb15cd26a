package legal

import "time"

// CaseStatus tracks a rental legal case through the court workflow.
type CaseStatus string

const (
	StatusFiled           CaseStatus = "filed"
	StatusInProgress      CaseStatus = "in_progress"
	StatusJudgmentPassed  CaseStatus = "judgment_passed"
	StatusClosedTenantWon CaseStatus = "closed_tenant_won"
	StatusClosedOwnerWon  CaseStatus = "closed_owner_won"
)

// transitions lists the allowed next statuses per current status.
var transitions = map[CaseStatus][]CaseStatus{
	StatusFiled:          {StatusInProgress},
	StatusInProgress:     {StatusJudgmentPassed, StatusClosedTenantWon, StatusClosedOwnerWon},
	StatusJudgmentPassed: {StatusClosedTenantWon, StatusClosedOwnerWon},
}

// CanTransition reports whether moving from to next is an allowed step.
func CanTransition(from, next CaseStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == next {
			return true
		}
	}
	return false
}

// UnitStatus mirrors a case status onto the disputed unit.
type UnitStatus string

const (
	UnitUnderLegalCase UnitStatus = "under_legal_case"
	UnitBlocked        UnitStatus = "blocked"
	UnitOccupied       UnitStatus = "occupied"
	UnitVacant         UnitStatus = "vacant"
)

// unitStatusFor maps case statuses to the unit status they impose.
var unitStatusFor = map[CaseStatus]UnitStatus{
	StatusFiled:           UnitUnderLegalCase,
	StatusInProgress:      UnitUnderLegalCase,
	StatusJudgmentPassed:  UnitBlocked,
	StatusClosedTenantWon: UnitOccupied,
	StatusClosedOwnerWon:  UnitVacant,
}

// UnitStatusFor returns the unit status a case status imposes.
func UnitStatusFor(s CaseStatus) (UnitStatus, bool) {
	u, ok := unitStatusFor[s]
	return u, ok
}

// Case is a rental dispute filed against a tenant over a unit.
type Case struct {
	ID         int64
	Number     string
	LeaseID    int64
	TenantID   int64
	UnitID     int64
	Reason     string
	Status     CaseStatus
	FiledOn    time.Time
	ResolvedOn *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusChange is one step in a case's audit trail.
type StatusChange struct {
	ID        int64
	CaseID    int64
	From      CaseStatus
	To        CaseStatus
	Note      string
	ChangedAt time.Time
}
