package backup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clinfin/clinfin/internal/domain/billing"
	"github.com/clinfin/clinfin/internal/domain/reporting"
	"github.com/clinfin/clinfin/internal/platform/apperr"
)

type fixture struct {
	store   *billing.MemStore
	billing *billing.Service
	backup  *Service
}

func newFixture(keep int) *fixture {
	store := billing.NewMemStore()
	patients := billing.NewPatientRepoMem(store)
	receipts := billing.NewReceiptRepoMem(store)
	return &fixture{
		store:   store,
		billing: billing.NewService(patients, receipts),
		backup:  NewService(store, reporting.NewService(patients, receipts), keep),
	}
}

func seedOffice(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	p1, err := f.billing.CreatePatient(ctx, billing.PatientInput{Name: "João Silva", Phone: "1"})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := f.billing.CreatePatient(ctx, billing.PatientInput{Name: "Maria Santos", Phone: "2"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.billing.CreateReceipt(ctx, billing.ReceiptInput{PatientID: p1.ID, Amount: 150, Status: billing.StatusPaid}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.billing.CreateReceipt(ctx, billing.ReceiptInput{PatientID: p2.ID, Amount: 200}); err != nil {
		t.Fatal(err)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(10)
	seedOffice(t, f)

	archive, err := f.backup.Export(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archive.Schema != SchemaVersion {
		t.Errorf("expected schema %s, got %s", SchemaVersion, archive.Schema)
	}
	if archive.Timestamp == "" {
		t.Error("expected timestamp")
	}
	if len(archive.Patients) != 2 || len(archive.Receipts) != 2 {
		t.Errorf("expected 2/2, got %d/%d", len(archive.Patients), len(archive.Receipts))
	}
	if archive.Stats == nil || archive.Stats.TotalReceived != 150 {
		t.Errorf("unexpected estatisticas: %+v", archive.Stats)
	}
}

func TestRestore_RenumbersAndRemaps(t *testing.T) {
	f := newFixture(10)
	ctx := context.Background()

	payload := RestorePayload{
		Patients: json.RawMessage(`[
			{"id": 40, "codigo": "PAC001", "nome": "João Silva", "telefone": "1", "totalRecebido": 150, "status": "ativo"},
			{"id": 77, "codigo": "PAC002", "nome": "Maria Santos", "telefone": "2", "totalRecebido": 0, "status": "ativo"}
		]`),
		Receipts: json.RawMessage(`[
			{"id": 9, "pacienteId": 77, "pacienteNome": "Maria Santos", "valor": 200, "status": "pendente"},
			{"id": 3, "pacienteId": 40, "pacienteNome": "João Silva", "valor": 150, "status": "pago"}
		]`),
	}
	result, err := f.backup.Restore(ctx, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PatientCount != 2 || result.ReceiptCount != 2 {
		t.Errorf("unexpected counts: %+v", result)
	}

	patients, receipts, err := f.store.SnapshotAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if patients[0].ID != 1 || patients[1].ID != 2 {
		t.Errorf("expected sequential patient ids, got %d, %d", patients[0].ID, patients[1].ID)
	}
	if receipts[0].ID != 1 || receipts[1].ID != 2 {
		t.Errorf("expected sequential receipt ids, got %d, %d", receipts[0].ID, receipts[1].ID)
	}
	// Receipt order was preserved, so id 1 is Maria's and must now
	// point at patient 2.
	if receipts[0].PatientID != 2 || receipts[1].PatientID != 1 {
		t.Errorf("expected remapped patient refs, got %d, %d", receipts[0].PatientID, receipts[1].PatientID)
	}
}

func TestRestore_RoundTripPreservesData(t *testing.T) {
	f := newFixture(10)
	seedOffice(t, f)
	ctx := context.Background()

	archive, err := f.backup.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rawPatients, _ := json.Marshal(archive.Patients)
	rawReceipts, _ := json.Marshal(archive.Receipts)

	if _, err := f.backup.Restore(ctx, RestorePayload{Patients: rawPatients, Receipts: rawReceipts}); err != nil {
		t.Fatalf("restore: %v", err)
	}

	patients, receipts, err := f.store.SnapshotAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(patients) != 2 || len(receipts) != 2 {
		t.Fatalf("expected 2/2 after round trip, got %d/%d", len(patients), len(receipts))
	}
	if patients[0].Name != "João Silva" || patients[0].TotalReceived != 150 {
		t.Errorf("unexpected patient after round trip: %+v", patients[0])
	}
}

func TestRestore_RejectsNonArrayMembers(t *testing.T) {
	f := newFixture(10)
	seedOffice(t, f)
	ctx := context.Background()

	bad := []RestorePayload{
		{Patients: json.RawMessage(`{}`), Receipts: json.RawMessage(`[]`)},
		{Patients: json.RawMessage(`[]`), Receipts: json.RawMessage(`"nope"`)},
		{Patients: nil, Receipts: json.RawMessage(`[]`)},
		{Patients: json.RawMessage(`null`), Receipts: json.RawMessage(`[]`)},
	}
	for i, payload := range bad {
		_, err := f.backup.Restore(ctx, payload)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}

	// Failed restores leave the store untouched.
	patients, _, err := f.store.SnapshotAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(patients) != 2 {
		t.Errorf("expected store untouched, got %d patients", len(patients))
	}
}

func TestCreateSnapshot_AndDownload(t *testing.T) {
	f := newFixture(10)
	seedOffice(t, f)
	ctx := context.Background()

	snap, err := f.backup.CreateSnapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.PatientCount != 2 || snap.ReceiptCount != 2 {
		t.Errorf("unexpected counts: %+v", snap)
	}

	archive, err := f.backup.GetSnapshot(snap.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archive.Patients) != 2 {
		t.Errorf("expected stored archive, got %d patients", len(archive.Patients))
	}

	// The snapshot is a frozen copy, not a live view.
	if _, err := f.billing.CreatePatient(ctx, billing.PatientInput{Name: "Carlos Oliveira", Phone: "3"}); err != nil {
		t.Fatal(err)
	}
	archive, _ = f.backup.GetSnapshot(snap.ID.String())
	if len(archive.Patients) != 2 {
		t.Errorf("expected frozen snapshot, got %d patients", len(archive.Patients))
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	f := newFixture(10)
	_, err := f.backup.GetSnapshot("00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	_, err = f.backup.GetSnapshot("not-a-uuid")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for malformed id, got %v", err)
	}
}

func TestSnapshotRetention(t *testing.T) {
	f := newFixture(2)
	seedOffice(t, f)
	ctx := context.Background()

	first, err := f.backup.CreateSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.backup.CreateSnapshot(ctx); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(f.backup.ListSnapshots()); got != 2 {
		t.Errorf("expected 2 retained snapshots, got %d", got)
	}
	if _, err := f.backup.GetSnapshot(first.ID.String()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected oldest snapshot pruned, got %v", err)
	}
}
