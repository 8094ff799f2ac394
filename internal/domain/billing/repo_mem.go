package billing

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/clinfin/clinfin/internal/platform/apperr"
)

// MemStore holds both collections behind a single mutex. Id/code
// assignment and balance reconciliation run inside the critical
// section of the mutation that triggers them, so every API operation
// is atomic with respect to concurrent requests.
//
// The per-collection repositories (NewPatientRepoMem,
// NewReceiptRepoMem) share one MemStore the way the persistent
// variants would share one connection pool.
type MemStore struct {
	mu       sync.Mutex
	patients map[int64]*Patient
	receipts map[int64]*Receipt
}

func NewMemStore() *MemStore {
	return &MemStore{
		patients: make(map[int64]*Patient),
		receipts: make(map[int64]*Receipt),
	}
}

// PatientRepoMem implements PatientRepository over a MemStore.
type PatientRepoMem struct {
	store *MemStore
}

func NewPatientRepoMem(store *MemStore) *PatientRepoMem {
	return &PatientRepoMem{store: store}
}

func (r *PatientRepoMem) Create(ctx context.Context, p *Patient) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = nextID(s.patients)
	p.Code = NextPatientCode(s.patientCodes())

	stored := *p
	s.patients[p.ID] = &stored
	return nil
}

func (r *PatientRepoMem) GetByID(ctx context.Context, id int64) (*Patient, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, apperr.NotFound("Paciente não encontrado")
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepoMem) GetByCode(ctx context.Context, code string) (*Patient, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if strings.EqualFold(p.Code, code) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Paciente não encontrado")
}

func (r *PatientRepoMem) List(ctx context.Context) ([]*Patient, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Patient, 0, len(s.patients))
	for _, id := range sortedKeys(s.patients) {
		cp := *s.patients[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *PatientRepoMem) Update(ctx context.Context, p *Patient) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.ID]; !ok {
		return apperr.NotFound("Paciente não encontrado")
	}
	stored := *p
	s.patients[p.ID] = &stored
	return nil
}

func (r *PatientRepoMem) Delete(ctx context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return apperr.NotFound("Paciente não encontrado")
	}
	for _, rec := range s.receipts {
		if rec.PatientID == id {
			return apperr.Conflict("Não é possível excluir paciente com recebimentos vinculados")
		}
	}
	delete(s.patients, id)
	return nil
}

func (r *PatientRepoMem) NextCode(ctx context.Context) (string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextPatientCode(s.patientCodes()), nil
}

// ReceiptRepoMem implements ReceiptRepository over a MemStore.
type ReceiptRepoMem struct {
	store *MemStore
}

func NewReceiptRepoMem(store *MemStore) *ReceiptRepoMem {
	return &ReceiptRepoMem{store: store}
}

func (r *ReceiptRepoMem) Create(ctx context.Context, rec *Receipt) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = nextID(s.receipts)
	stored := *rec
	s.receipts[rec.ID] = &stored

	if delta := BalanceDelta(StatusPending, 0, rec.Status, rec.Amount); delta != 0 {
		s.applyBalance(rec.PatientID, delta)
	}
	return nil
}

func (r *ReceiptRepoMem) GetByID(ctx context.Context, id int64) (*Receipt, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.receipts[id]
	if !ok {
		return nil, apperr.NotFound("Recebimento não encontrado")
	}
	cp := *rec
	return &cp, nil
}

func (r *ReceiptRepoMem) List(ctx context.Context, f ReceiptFilter) ([]*Receipt, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Receipt, 0, len(s.receipts))
	for _, id := range sortedKeys(s.receipts) {
		rec := s.receipts[id]
		if !matches(rec, f) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	// Most recent first; equal dates keep id order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out, nil
}

func (r *ReceiptRepoMem) Update(ctx context.Context, rec *Receipt) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.receipts[rec.ID]
	if !ok {
		return apperr.NotFound("Recebimento não encontrado")
	}

	// The adjustment targets the patient that owned the receipt
	// before the edit, as the original system did.
	if delta := BalanceDelta(old.Status, old.Amount, rec.Status, rec.Amount); delta != 0 {
		s.applyBalance(old.PatientID, delta)
	}

	stored := *rec
	s.receipts[rec.ID] = &stored
	return nil
}

func (r *ReceiptRepoMem) Delete(ctx context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.receipts[id]
	if !ok {
		return apperr.NotFound("Recebimento não encontrado")
	}
	if delta := BalanceDelta(old.Status, old.Amount, StatusPending, 0); delta != 0 {
		s.applyBalance(old.PatientID, delta)
	}
	delete(s.receipts, id)
	return nil
}

// -- Backup support --

// SnapshotAll returns deep copies of both collections in id order.
func (s *MemStore) SnapshotAll(ctx context.Context) ([]*Patient, []*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patients := make([]*Patient, 0, len(s.patients))
	for _, id := range sortedKeys(s.patients) {
		cp := *s.patients[id]
		patients = append(patients, &cp)
	}
	receipts := make([]*Receipt, 0, len(s.receipts))
	for _, id := range sortedKeys(s.receipts) {
		cp := *s.receipts[id]
		receipts = append(receipts, &cp)
	}
	return patients, receipts, nil
}

// ReplaceAll swaps in both collections wholesale. Callers are expected
// to have renumbered ids beforehand; the swap itself is atomic.
func (s *MemStore) ReplaceAll(ctx context.Context, patients []*Patient, receipts []*Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	np := make(map[int64]*Patient, len(patients))
	for _, p := range patients {
		cp := *p
		np[p.ID] = &cp
	}
	nr := make(map[int64]*Receipt, len(receipts))
	for _, r := range receipts {
		cp := *r
		nr[r.ID] = &cp
	}
	s.patients = np
	s.receipts = nr
	return nil
}

// -- internals (callers hold s.mu) --

// applyBalance adjusts a patient's running total, flooring at zero.
// A receipt pointing at a deleted patient adjusts nothing.
func (s *MemStore) applyBalance(patientID int64, delta float64) {
	p, ok := s.patients[patientID]
	if !ok {
		return
	}
	p.TotalReceived += delta
	if p.TotalReceived < 0 {
		p.TotalReceived = 0
	}
}

func (s *MemStore) patientCodes() []string {
	codes := make([]string, 0, len(s.patients))
	for _, p := range s.patients {
		codes = append(codes, p.Code)
	}
	return codes
}

func matches(r *Receipt, f ReceiptFilter) bool {
	if f.Start != "" && r.Date < f.Start {
		return false
	}
	if f.End != "" && r.Date > f.End {
		return false
	}
	if f.Status != "" && f.Status != StatusAll && r.Status != f.Status {
		return false
	}
	if f.PatientID != 0 && r.PatientID != f.PatientID {
		return false
	}
	return true
}

func nextID[T any](m map[int64]*T) int64 {
	var max int64
	for id := range m {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func sortedKeys[T any](m map[int64]*T) []int64 {
	keys := make([]int64, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
