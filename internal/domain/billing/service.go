package billing

import (
	"context"
	"time"

	"github.com/clinfin/clinfin/internal/platform/apperr"
)

// Service owns patient registry and receipt ledger semantics:
// presence validation, defaulting, the patient-identity snapshot taken
// at receipt creation, and the reconciliation rule the repositories
// apply atomically.
type Service struct {
	patients PatientRepository
	receipts ReceiptRepository
}

func NewService(patients PatientRepository, receipts ReceiptRepository) *Service {
	return &Service{patients: patients, receipts: receipts}
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	if in.Name == "" || in.Phone == "" {
		return nil, apperr.Validation("Nome e telefone são obrigatórios")
	}
	p := &Patient{
		Name:          in.Name,
		Phone:         in.Phone,
		Email:         in.Email,
		Address:       in.Address,
		BirthDate:     in.BirthDate,
		Notes:         in.Notes,
		TotalReceived: 0,
		Status:        PatientActive,
		RegisteredOn:  Today(),
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByCode(ctx context.Context, code string) (*Patient, error) {
	return s.patients.GetByCode(ctx, code)
}

func (s *Service) ListPatients(ctx context.Context) ([]*Patient, error) {
	return s.patients.List(ctx)
}

// UpdatePatient merges the provided fields over the stored record.
// Id and code are never taken from the payload.
func (s *Service) UpdatePatient(ctx context.Context, id int64, upd PatientUpdate) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Phone != nil {
		p.Phone = *upd.Phone
	}
	if upd.Email != nil {
		p.Email = *upd.Email
	}
	if upd.Address != nil {
		p.Address = *upd.Address
	}
	if upd.BirthDate != nil {
		p.BirthDate = *upd.BirthDate
	}
	if upd.Notes != nil {
		p.Notes = *upd.Notes
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePatient removes a patient. Patients with receipts attached are
// never deleted: the call fails with a conflict error instead of
// cascading, so ledger history cannot be destroyed through the
// registry.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.patients.Delete(ctx, id)
}

// NextPatientCode previews the code the next created patient receives.
func (s *Service) NextPatientCode(ctx context.Context) (string, error) {
	return s.patients.NextCode(ctx)
}

// -- Receipts --

func (s *Service) CreateReceipt(ctx context.Context, in ReceiptInput) (*Receipt, error) {
	patient, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation("Valor deve ser maior que zero")
	}

	r := &Receipt{
		PatientID:   patient.ID,
		PatientName: patient.Name,
		PatientCode: patient.Code,
		Amount:      in.Amount,
		Date:        in.Date,
		Month:       in.Month,
		Year:        in.Year,
		Type:        in.Type,
		Status:      in.Status,
		Note:        in.Note,
	}
	if r.Date == "" {
		r.Date = Today()
	}
	if r.Month == 0 || r.Year == 0 {
		month, year := monthYearOf(r.Date)
		if r.Month == 0 {
			r.Month = month
		}
		if r.Year == 0 {
			r.Year = year
		}
	}
	if r.Type == "" {
		r.Type = "consulta"
	}
	if r.Status == "" {
		r.Status = StatusPending
	}

	if err := s.receipts.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) GetReceipt(ctx context.Context, id int64) (*Receipt, error) {
	return s.receipts.GetByID(ctx, id)
}

// ReceiptQuery is the list request surface: every dimension is
// optional and they compose. PatientCode is resolved to an id before
// filtering; an unknown code matches nothing.
type ReceiptQuery struct {
	Start       string
	End         string
	Status      string
	PatientID   int64
	PatientCode string
}

func (s *Service) ListReceipts(ctx context.Context, q ReceiptQuery) ([]*Receipt, error) {
	f := ReceiptFilter{
		Start:     q.Start,
		End:       q.End,
		Status:    q.Status,
		PatientID: q.PatientID,
	}
	if q.PatientCode != "" {
		p, err := s.patients.GetByCode(ctx, q.PatientCode)
		if err != nil {
			return []*Receipt{}, nil
		}
		f.PatientID = p.ID
	}
	return s.receipts.List(ctx, f)
}

// UpdateReceipt merges the provided fields over the stored record and
// settles the balance adjustment the status/amount transition owes.
// The patient identity snapshot is left as captured at creation.
func (s *Service) UpdateReceipt(ctx context.Context, id int64, upd ReceiptUpdate) (*Receipt, error) {
	r, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Amount != nil && *upd.Amount <= 0 {
		return nil, apperr.Validation("Valor deve ser maior que zero")
	}
	if upd.PatientID != nil {
		r.PatientID = *upd.PatientID
	}
	if upd.Amount != nil {
		r.Amount = *upd.Amount
	}
	if upd.Date != nil {
		r.Date = *upd.Date
	}
	if upd.Month != nil {
		r.Month = *upd.Month
	}
	if upd.Year != nil {
		r.Year = *upd.Year
	}
	if upd.Type != nil {
		r.Type = *upd.Type
	}
	if upd.Status != nil {
		r.Status = *upd.Status
	}
	if upd.Note != nil {
		r.Note = *upd.Note
	}
	if err := s.receipts.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SetReceiptStatus is the status-only shorthand; the same
// reconciliation rule applies.
func (s *Service) SetReceiptStatus(ctx context.Context, id int64, status string) (*Receipt, error) {
	return s.UpdateReceipt(ctx, id, ReceiptUpdate{Status: &status})
}

func (s *Service) DeleteReceipt(ctx context.Context, id int64) error {
	return s.receipts.Delete(ctx, id)
}

// monthYearOf derives defaults for mes/ano from a receipt date,
// falling back to the current date when it does not parse.
func monthYearOf(date string) (int, int) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		t = time.Now()
	}
	return int(t.Month()), t.Year()
}
