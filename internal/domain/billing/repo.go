package billing

import "context"

// PatientRepository owns the patient collection. Create assigns the id
// and the patient code in the same critical section, so concurrent
// creations never collide.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// GetByCode matches case-insensitively.
	GetByCode(ctx context.Context, code string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Delete fails with a conflict error while any receipt still
	// references the patient.
	Delete(ctx context.Context, id int64) error
	// NextCode previews the code the next creation would receive.
	NextCode(ctx context.Context) (string, error)
}

// ReceiptRepository owns the receipt collection. Implementations must
// apply the balance reconciliation rule (BalanceDelta, clamped at
// zero) to the owning patient atomically with each mutation.
type ReceiptRepository interface {
	Create(ctx context.Context, r *Receipt) error
	GetByID(ctx context.Context, id int64) (*Receipt, error)
	// List returns matches sorted by date descending; ties keep a
	// stable id order.
	List(ctx context.Context, f ReceiptFilter) ([]*Receipt, error)
	Update(ctx context.Context, r *Receipt) error
	Delete(ctx context.Context, id int64) error
}
