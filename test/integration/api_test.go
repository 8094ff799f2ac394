package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinfin/clinfin/internal/domain/backup"
	"github.com/clinfin/clinfin/internal/domain/billing"
	"github.com/clinfin/clinfin/internal/domain/reporting"
)

// newTestServer assembles the full API the way the serve command does,
// minus logging middleware.
func newTestServer() *echo.Echo {
	store := billing.NewMemStore()
	patients := billing.NewPatientRepoMem(store)
	receipts := billing.NewReceiptRepoMem(store)

	billingSvc := billing.NewService(patients, receipts)
	reportingSvc := reporting.NewService(patients, receipts)
	backupSvc := backup.NewService(store, reportingSvc, 10)

	e := echo.New()
	api := e.Group("/api")
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	reporting.NewHandler(reportingSvc).RegisterRoutes(api)
	backup.NewHandler(backupSvc).RegisterRoutes(api)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if len(rec.Body.Bytes()) > 0 && rec.Body.Bytes()[0] == '{' {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestPatientReceiptLifecycle(t *testing.T) {
	e := newTestServer()

	// Register a patient.
	rec, p := do(t, e, http.MethodPost, "/api/pacientes", `{"nome":"Ana Costa","telefone":"(11) 66666-6666"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create patient: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if p["codigo"] != "PAC001" {
		t.Fatalf("expected PAC001, got %v", p["codigo"])
	}

	// A pending receipt leaves the balance alone.
	rec, r := do(t, e, http.MethodPost, "/api/recebimentos", `{"pacienteId":1,"valor":120,"tipo":"consulta"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create receipt: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if r["status"] != "pendente" {
		t.Fatalf("expected default pendente, got %v", r["status"])
	}
	_, p = do(t, e, http.MethodGet, "/api/pacientes/1", "")
	if p["totalRecebido"] != float64(0) {
		t.Fatalf("expected balance 0, got %v", p["totalRecebido"])
	}

	// Marking it paid moves the amount onto the balance.
	rec, _ = do(t, e, http.MethodPut, "/api/recebimentos/1/status", `{"status":"pago"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set status: expected 200, got %d", rec.Code)
	}
	_, p = do(t, e, http.MethodGet, "/api/pacientes/1", "")
	if p["totalRecebido"] != float64(120) {
		t.Fatalf("expected balance 120, got %v", p["totalRecebido"])
	}

	// The patient cannot be deleted while the receipt exists.
	rec, _ = do(t, e, http.MethodDelete, "/api/pacientes/1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete with receipts: expected 400, got %d", rec.Code)
	}

	// Deleting the paid receipt takes the amount back off.
	rec, _ = do(t, e, http.MethodDelete, "/api/recebimentos/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete receipt: expected 204, got %d", rec.Code)
	}
	_, p = do(t, e, http.MethodGet, "/api/pacientes/1", "")
	if p["totalRecebido"] != float64(0) {
		t.Fatalf("expected balance back to 0, got %v", p["totalRecebido"])
	}

	// Now the delete goes through.
	rec, _ = do(t, e, http.MethodDelete, "/api/pacientes/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete patient: expected 204, got %d", rec.Code)
	}
}

func TestDashboardAndHealth(t *testing.T) {
	e := newTestServer()
	do(t, e, http.MethodPost, "/api/pacientes", `{"nome":"João Silva","telefone":"1"}`)
	do(t, e, http.MethodPost, "/api/recebimentos", `{"pacienteId":1,"valor":150,"status":"pago"}`)
	do(t, e, http.MethodPost, "/api/recebimentos", `{"pacienteId":1,"valor":200}`)

	rec, health := do(t, e, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	stats := health["estatisticas"].(map[string]interface{})
	if stats["totalRecebido"] != float64(150) || stats["totalAberto"] != float64(200) {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if stats["taxaPagamento"] != float64(50) {
		t.Fatalf("expected taxaPagamento 50, got %v", stats["taxaPagamento"])
	}

	rec, dash := do(t, e, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	metrics := dash["metricas"].(map[string]interface{})
	if metrics["totalPacientes"] != float64(1) {
		t.Fatalf("unexpected metricas: %v", metrics)
	}
}

func TestBackupRoundTripOverHTTP(t *testing.T) {
	e := newTestServer()
	do(t, e, http.MethodPost, "/api/pacientes", `{"nome":"Maria Santos","telefone":"2"}`)
	do(t, e, http.MethodPost, "/api/recebimentos", `{"pacienteId":1,"valor":150,"status":"pago"}`)

	rec, _ := do(t, e, http.MethodGet, "/api/backup/exportar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	exported := rec.Body.String()

	// Wipe through a restore of the export itself.
	rec, result := do(t, e, http.MethodPost, "/api/backup/restaurar", exported)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if result["totalPacientes"] != float64(1) || result["totalRecebimentos"] != float64(1) {
		t.Fatalf("unexpected restore result: %v", result)
	}

	_, p := do(t, e, http.MethodGet, "/api/pacientes/1", "")
	if p["nome"] != "Maria Santos" || p["totalRecebido"] != float64(150) {
		t.Fatalf("unexpected patient after round trip: %v", p)
	}
}

func TestBackupRestore_RejectsMalformedPayload(t *testing.T) {
	e := newTestServer()
	rec, _ := do(t, e, http.MethodPost, "/api/backup/restaurar", `{"pacientes":"nope","recebimentos":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
