// Package backup provides point-in-time snapshots of the registry and
// ledger: immediate export, wholesale restore, and named snapshots
// kept in memory for later download. Snapshots can also be produced on
// a cron schedule (see Scheduler).
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinfin/clinfin/internal/domain/billing"
	"github.com/clinfin/clinfin/internal/domain/reporting"
	"github.com/clinfin/clinfin/internal/platform/apperr"
)

// SchemaVersion tags every exported archive.
const SchemaVersion = "2.0.0"

// Store is the slice of the in-memory store the backup module needs:
// a consistent copy of both collections, and an atomic wholesale swap.
// *billing.MemStore implements it.
type Store interface {
	SnapshotAll(ctx context.Context) ([]*billing.Patient, []*billing.Receipt, error)
	ReplaceAll(ctx context.Context, patients []*billing.Patient, receipts []*billing.Receipt) error
}

// StatsSource supplies the aggregate block embedded in archives.
// *reporting.Service implements it.
type StatsSource interface {
	Stats(ctx context.Context) (*reporting.Stats, error)
}

// Archive is a full point-in-time snapshot of both collections.
type Archive struct {
	Timestamp string             `json:"timestamp"`
	Schema    string             `json:"versao"`
	Stats     *reporting.Stats   `json:"estatisticas"`
	Patients  []*billing.Patient `json:"pacientes"`
	Receipts  []*billing.Receipt `json:"recebimentos"`
}

// Snapshot is the stored-archive metadata returned by criar/listar.
// seq orders snapshots taken within the same timestamp second.
type Snapshot struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    string    `json:"criadoEm"`
	PatientCount int       `json:"totalPacientes"`
	ReceiptCount int       `json:"totalRecebimentos"`

	archive *Archive
	seq     uint64
}

// RestorePayload is the wire shape of a restore request. Raw messages
// keep the array-shape validation explicit.
type RestorePayload struct {
	Patients json.RawMessage `json:"pacientes"`
	Receipts json.RawMessage `json:"recebimentos"`
}

// RestoreResult reports what was swapped in.
type RestoreResult struct {
	PatientCount int `json:"totalPacientes"`
	ReceiptCount int `json:"totalRecebimentos"`
}

type Service struct {
	store Store
	stats StatsSource

	mu        sync.Mutex
	snapshots map[uuid.UUID]*Snapshot
	keep      int
	nextSeq   uint64
}

func NewService(store Store, stats StatsSource, keep int) *Service {
	if keep < 1 {
		keep = 1
	}
	return &Service{
		store:     store,
		stats:     stats,
		snapshots: make(map[uuid.UUID]*Snapshot),
		keep:      keep,
	}
}

// Export builds an archive of the current state.
func (s *Service) Export(ctx context.Context) (*Archive, error) {
	patients, receipts, err := s.store.SnapshotAll(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Archive{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Schema:    SchemaVersion,
		Stats:     stats,
		Patients:  patients,
		Receipts:  receipts,
	}, nil
}

// Restore swaps in replacement collections wholesale. Both members
// must be JSON arrays. Ids are re-assigned sequentially in the order
// given and receipt patient references are remapped through the
// old-to-new patient id mapping, so restored archives cannot collide
// with whatever ids they were exported under.
func (s *Service) Restore(ctx context.Context, payload RestorePayload) (*RestoreResult, error) {
	patients, err := decodeArray[*billing.Patient](payload.Patients, "pacientes")
	if err != nil {
		return nil, err
	}
	receipts, err := decodeArray[*billing.Receipt](payload.Receipts, "recebimentos")
	if err != nil {
		return nil, err
	}

	idMap := make(map[int64]int64, len(patients))
	for i, p := range patients {
		newID := int64(i + 1)
		idMap[p.ID] = newID
		p.ID = newID
	}
	for i, r := range receipts {
		r.ID = int64(i + 1)
		if newID, ok := idMap[r.PatientID]; ok {
			r.PatientID = newID
		}
	}

	if err := s.store.ReplaceAll(ctx, patients, receipts); err != nil {
		return nil, err
	}
	return &RestoreResult{PatientCount: len(patients), ReceiptCount: len(receipts)}, nil
}

// CreateSnapshot stores the current archive under a fresh id. Only the
// most recent snapshots are retained, bounding memory.
func (s *Service) CreateSnapshot(ctx context.Context) (*Snapshot, error) {
	archive, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ID:           uuid.New(),
		CreatedAt:    archive.Timestamp,
		PatientCount: len(archive.Patients),
		ReceiptCount: len(archive.Receipts),
		archive:      archive,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	snap.seq = s.nextSeq
	s.snapshots[snap.ID] = snap
	s.prune()
	return snap, nil
}

// GetSnapshot returns the archive stored under id.
func (s *Service) GetSnapshot(id string) (*Archive, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("Backup não encontrado")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[parsed]
	if !ok {
		return nil, apperr.NotFound("Backup não encontrado")
	}
	return snap.archive, nil
}

// ListSnapshots returns stored snapshot metadata, newest first.
func (s *Service) ListSnapshots() []*Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

// prune drops the oldest snapshots beyond the retention limit.
// Callers hold s.mu.
func (s *Service) prune() {
	if len(s.snapshots) <= s.keep {
		return
	}
	snaps := make([]*Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].seq < snaps[j].seq })
	for _, snap := range snaps[:len(snaps)-s.keep] {
		delete(s.snapshots, snap.ID)
	}
}

func decodeArray[T any](raw json.RawMessage, member string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, apperr.Validation("Backup inválido: %q deve ser uma lista", member)
	}
	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, apperr.Validation("Backup inválido: %q deve ser uma lista", member)
	}
	return out, nil
}
