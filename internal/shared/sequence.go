package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-pm/keystone/internal/platform/db"
)

// Document types with dedicated number sequences.
const (
	SeqReceiptVoucher   = "receipt_voucher"
	SeqPaymentVoucher   = "payment_voucher"
	SeqCustomerInvoice  = "customer_invoice"
	SeqSupplierInvoice  = "supplier_invoice"
	SeqLeaseTermination = "lease_termination"
	SeqLeaseRenewal     = "lease_renewal"
)

var seqPrefixes = map[string]string{
	SeqReceiptVoucher:   "RV",
	SeqPaymentVoucher:   "PV",
	SeqCustomerInvoice:  "INV",
	SeqSupplierInvoice:  "SINV",
	SeqLeaseTermination: "TERM",
	SeqLeaseRenewal:     "REN",
}

// SequenceStore hands out document numbers from per-type atomic counters.
// The upsert-returning statement makes concurrent callers serialize on the
// counter row, so two creations never receive the same number.
type SequenceStore struct {
	pool *pgxpool.Pool
}

// NewSequenceStore constructs the store.
func NewSequenceStore(pool *pgxpool.Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

// Next allocates the next number for docType and returns it formatted,
// e.g. "RV-00042".
func (s *SequenceStore) Next(ctx context.Context, docType string) (string, error) {
	if s == nil {
		return "", errors.New("sequence store not initialised")
	}
	prefix, ok := seqPrefixes[docType]
	if !ok {
		return "", fmt.Errorf("shared: unknown document type %q", docType)
	}
	var value int64
	err := db.QuerierFrom(ctx, s.pool).QueryRow(ctx, `INSERT INTO doc_sequences (doc_type, last_value)
VALUES ($1, 1)
ON CONFLICT (doc_type) DO UPDATE SET last_value = doc_sequences.last_value + 1
RETURNING last_value`, docType).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("shared: next sequence for %s: %w", docType, err)
	}
	return FormatDocNumber(prefix, value), nil
}

// FormatDocNumber renders a document number in the PREFIX-00001 form.
func FormatDocNumber(prefix string, value int64) string {
	return fmt.Sprintf("%s-%05d", prefix, value)
}
