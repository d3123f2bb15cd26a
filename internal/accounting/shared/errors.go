package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrLineBothSides indicates a line carrying both a debit and a credit.
	ErrLineBothSides = errors.New("accounting: line cannot be both debit and credit")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("accounting: line amount cannot be negative")
	// ErrNonPositiveAmount indicates a document amount that is zero or below.
	ErrNonPositiveAmount = errors.New("accounting: amount must be greater than zero")
	// ErrMissingAccount indicates a required account reference is absent.
	ErrMissingAccount = errors.New("accounting: required account missing")
	// ErrMissingCostCenter indicates a line without cost-center attribution.
	ErrMissingCostCenter = errors.New("accounting: cost center required")
	// ErrWrongAccountType indicates an account of an unexpected type.
	ErrWrongAccountType = errors.New("accounting: account has wrong type")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("accounting: journal entry not found")
	// ErrAccountNotFound indicates a missing chart-of-accounts row.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrAccountInUse indicates an account still referenced by journal lines.
	ErrAccountInUse = errors.New("accounting: account referenced by journal lines")
	// ErrCostCenterInUse indicates a cost center still referenced by journal lines.
	ErrCostCenterInUse = errors.New("accounting: cost center referenced by journal lines")
	// ErrMappingNotFound indicates a transaction account mapping is missing.
	ErrMappingNotFound = errors.New("accounting: transaction account mapping not found")
	// ErrUnknownPaymentMethod indicates an unsupported payment method.
	ErrUnknownPaymentMethod = errors.New("accounting: unknown payment method")
	// ErrAlreadyPosted indicates the document has already been posted.
	ErrAlreadyPosted = errors.New("accounting: document already posted")
)
