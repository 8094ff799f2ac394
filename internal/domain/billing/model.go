package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Receipt statuses. The ledger knows no other states and imposes no
// transition restrictions.
const (
	StatusPaid    = "pago"
	StatusPending = "pendente"
)

// StatusAll is the list-filter sentinel meaning "no status filter".
const StatusAll = "todos"

// Patient statuses.
const PatientActive = "ativo"

// DateLayout is the wire format for all date fields. ISO dates compare
// lexicographically, which the range filters rely on.
const DateLayout = "2006-01-02"

// Patient is a registry record. TotalReceived is a running balance
// maintained by the ledger: it always equals the sum of the patient's
// paid receipts, clamped at zero.
type Patient struct {
	ID            int64   `json:"id"`
	Code          string  `json:"codigo"`
	Name          string  `json:"nome"`
	Phone         string  `json:"telefone"`
	Email         string  `json:"email,omitempty"`
	Address       string  `json:"endereco,omitempty"`
	BirthDate     string  `json:"dataNascimento,omitempty"`
	Notes         string  `json:"observacoes,omitempty"`
	TotalReceived float64 `json:"totalRecebido"`
	Status        string  `json:"status"`
	RegisteredOn  string  `json:"dataCadastro"`
}

// Receipt is a single billable event tied to one patient. PatientName
// and PatientCode are snapshots of the patient's identity at creation
// time and are never synchronized with later patient edits.
type Receipt struct {
	ID          int64   `json:"id"`
	PatientID   int64   `json:"pacienteId"`
	PatientName string  `json:"pacienteNome"`
	PatientCode string  `json:"pacienteCodigo"`
	Amount      float64 `json:"valor"`
	Date        string  `json:"data"`
	Month       int     `json:"mes"`
	Year        int     `json:"ano"`
	Type        string  `json:"tipo"`
	Status      string  `json:"status"`
	Note        string  `json:"observacao,omitempty"`
}

// PatientInput carries caller-supplied fields for patient creation.
// ID, code, balance, status and registration date are always assigned
// by the registry.
type PatientInput struct {
	Name      string `json:"nome"`
	Phone     string `json:"telefone"`
	Email     string `json:"email"`
	Address   string `json:"endereco"`
	BirthDate string `json:"dataNascimento"`
	Notes     string `json:"observacoes"`
}

// PatientUpdate carries a partial patient update. Nil fields are left
// untouched; id and code are immutable regardless of the payload.
type PatientUpdate struct {
	Name      *string `json:"nome"`
	Phone     *string `json:"telefone"`
	Email     *string `json:"email"`
	Address   *string `json:"endereco"`
	BirthDate *string `json:"dataNascimento"`
	Notes     *string `json:"observacoes"`
	Status    *string `json:"status"`
}

// ReceiptInput carries caller-supplied fields for receipt creation.
type ReceiptInput struct {
	PatientID int64   `json:"pacienteId"`
	Amount    float64 `json:"valor"`
	Date      string  `json:"data"`
	Month     int     `json:"mes"`
	Year      int     `json:"ano"`
	Type      string  `json:"tipo"`
	Status    string  `json:"status"`
	Note      string  `json:"observacao"`
}

// ReceiptUpdate carries a partial receipt update. The id is immutable;
// the patient identity snapshot is never recomputed.
type ReceiptUpdate struct {
	PatientID *int64   `json:"pacienteId"`
	Amount    *float64 `json:"valor"`
	Date      *string  `json:"data"`
	Month     *int     `json:"mes"`
	Year      *int     `json:"ano"`
	Type      *string  `json:"tipo"`
	Status    *string  `json:"status"`
	Note      *string  `json:"observacao"`
}

// ReceiptFilter selects receipts for listing. Zero values mean "no
// filter" for each dimension; Start/End are inclusive ISO dates.
type ReceiptFilter struct {
	Start     string
	End       string
	Status    string
	PatientID int64
}

// Patient code generation.
const (
	codePrefix = "PAC"
	codeWidth  = 3
)

// NextPatientCode computes the next code from the codes currently in
// use: strip the PAC prefix, parse the remaining digits, take the
// maximum and add one. Codes that fail to parse (malformed legacy
// entries) are skipped rather than rejected. An empty registry yields
// PAC001.
func NextPatientCode(existing []string) string {
	max := 0
	for _, code := range existing {
		digits := code
		if len(digits) >= len(codePrefix) && strings.EqualFold(digits[:len(codePrefix)], codePrefix) {
			digits = digits[len(codePrefix):]
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%0*d", codePrefix, codeWidth, max+1)
}

// BalanceDelta returns the adjustment owed to the patient's running
// balance when a receipt transitions between (oldStatus, oldAmount)
// and (newStatus, newAmount):
//
//	pendente -> pendente  none
//	pendente -> pago      +new amount
//	pago     -> pendente  -old amount
//	pago     -> pago      +(new - old) when the amount changed
//
// Creation passes oldStatus pendente; deletion passes newStatus
// pendente with the stored amount.
func BalanceDelta(oldStatus string, oldAmount float64, newStatus string, newAmount float64) float64 {
	oldPaid := oldStatus == StatusPaid
	newPaid := newStatus == StatusPaid
	switch {
	case !oldPaid && newPaid:
		return newAmount
	case oldPaid && !newPaid:
		return -oldAmount
	case oldPaid && newPaid:
		return newAmount - oldAmount
	default:
		return 0
	}
}

// Today returns the current date in wire format.
func Today() string {
	return time.Now().Format(DateLayout)
}
