// Package reporting computes the read-side views over the registry and
// ledger: health statistics, the dashboard and the ad-hoc reports. It
// never mutates either collection.
package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/clinfin/clinfin/internal/domain/billing"
)

const (
	SystemName = "Consultório Financeiro"
	Version    = "2.0.0"
)

type Service struct {
	patients billing.PatientRepository
	receipts billing.ReceiptRepository
}

func NewService(patients billing.PatientRepository, receipts billing.ReceiptRepository) *Service {
	return &Service{patients: patients, receipts: receipts}
}

// Stats is the aggregate block shared by the health and backup
// payloads.
type Stats struct {
	TotalPatients int     `json:"totalPacientes"`
	TotalReceipts int     `json:"totalRecebimentos"`
	TotalReceived float64 `json:"totalRecebido"`
	TotalOpen     float64 `json:"totalAberto"`
	PaymentRate   float64 `json:"taxaPagamento"`
}

type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	System    string `json:"sistema"`
	Version   string `json:"versao"`
	Stats     Stats  `json:"estatisticas"`
	NextCode  string `json:"proximoCodigo"`
}

type Metrics struct {
	TotalReceived float64 `json:"totalRecebido"`
	TotalOpen     float64 `json:"totalAberto"`
	TotalPatients int     `json:"totalPacientes"`
	PaymentRate   float64 `json:"taxaPagamento"`
}

type Dashboard struct {
	Metrics        Metrics            `json:"metricas"`
	LatestReceipts []*billing.Receipt `json:"ultimosRecebimentos"`
	TopPatients    []*billing.Patient `json:"pacientesTop"`
}

type TypeAggregate struct {
	Total   float64 `json:"total"`
	Count   int     `json:"quantidade"`
	Average float64 `json:"media"`
}

type StatusAggregate struct {
	Total float64 `json:"total"`
	Count int     `json:"quantidade"`
}

type PatientAggregate struct {
	Name  string  `json:"nome"`
	Code  string  `json:"codigo,omitempty"`
	Total float64 `json:"total"`
	Count int     `json:"quantidade"`
}

type Report struct {
	Title         string                      `json:"titulo"`
	Period        string                      `json:"periodo"`
	TotalReceived float64                     `json:"totalRecebido"`
	TotalOpen     float64                     `json:"totalAberto"`
	Count         int                         `json:"quantidade"`
	ByType        map[string]*TypeAggregate   `json:"porTipo"`
	ByStatus      map[string]*StatusAggregate `json:"porStatus"`
	TopPatients   []*PatientAggregate         `json:"porPaciente"`
	Receipts      []*billing.Receipt          `json:"recebimentos"`
}

// ReportQuery selects a report kind and its parameters. An
// unrecognized kind, or a kind whose parameters are missing, yields
// the unfiltered full-ledger report.
type ReportQuery struct {
	Kind        string
	Month       int
	Year        int
	PatientID   int64
	PatientCode string
	Start       string
	End         string
}

func (s *Service) Health(ctx context.Context) (*Health, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	nextCode, err := s.patients.NextCode(ctx)
	if err != nil {
		return nil, err
	}
	return &Health{
		Status:    "online",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		System:    SystemName,
		Version:   Version,
		Stats:     *stats,
		NextCode:  nextCode,
	}, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := s.receipts.List(ctx, billing.ReceiptFilter{})
	if err != nil {
		return nil, err
	}
	paid, open, paidCount := totals(receipts)
	return &Stats{
		TotalPatients: len(patients),
		TotalReceipts: len(receipts),
		TotalReceived: paid,
		TotalOpen:     open,
		PaymentRate:   paymentRate(paidCount, len(receipts)),
	}, nil
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := s.receipts.List(ctx, billing.ReceiptFilter{})
	if err != nil {
		return nil, err
	}

	paid, open, paidCount := totals(receipts)

	latest := receipts
	if len(latest) > 5 {
		latest = latest[:5]
	}

	top := make([]*billing.Patient, len(patients))
	copy(top, patients)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].TotalReceived > top[j].TotalReceived
	})
	if len(top) > 5 {
		top = top[:5]
	}

	return &Dashboard{
		Metrics: Metrics{
			TotalReceived: paid,
			TotalOpen:     open,
			TotalPatients: len(patients),
			PaymentRate:   paymentRate(paidCount, len(receipts)),
		},
		LatestReceipts: latest,
		TopPatients:    top,
	}, nil
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

func (s *Service) Report(ctx context.Context, q ReportQuery) (*Report, error) {
	receipts, err := s.receipts.List(ctx, billing.ReceiptFilter{})
	if err != nil {
		return nil, err
	}

	title := "Relatório"
	period := ""

	switch {
	case q.Kind == "mensal" && q.Month >= 1 && q.Month <= 12 && q.Year != 0:
		receipts = keep(receipts, func(r *billing.Receipt) bool {
			return r.Month == q.Month && r.Year == q.Year
		})
		label := fmt.Sprintf("%s/%d", monthNames[q.Month-1], q.Year)
		title = "Relatório Mensal - " + label
		period = "Período: " + label

	case q.Kind == "anual" && q.Year != 0:
		receipts = keep(receipts, func(r *billing.Receipt) bool {
			return r.Year == q.Year
		})
		title = fmt.Sprintf("Relatório Anual - %d", q.Year)
		period = fmt.Sprintf("Período: Ano %d", q.Year)

	case q.Kind == "paciente" && q.PatientID != 0:
		receipts = keep(receipts, func(r *billing.Receipt) bool {
			return r.PatientID == q.PatientID
		})
		title, period = s.patientLabels(ctx, q.PatientID)

	case q.Kind == "paciente-codigo" && q.PatientCode != "":
		p, err := s.patients.GetByCode(ctx, q.PatientCode)
		if err != nil {
			receipts = nil
			title, period = "Relatório do Paciente - N/A", ""
			break
		}
		receipts = keep(receipts, func(r *billing.Receipt) bool {
			return r.PatientID == p.ID
		})
		title = "Relatório do Paciente - " + p.Name
		period = "Paciente: " + p.Name

	case q.Kind == "periodo" && q.Start != "" && q.End != "":
		receipts = keep(receipts, func(r *billing.Receipt) bool {
			return r.Date >= q.Start && r.Date <= q.End
		})
		title = "Relatório por Período"
		period = fmt.Sprintf("Período: %s a %s", dateBR(q.Start), dateBR(q.End))
	}

	return buildReport(title, period, receipts), nil
}

func (s *Service) patientLabels(ctx context.Context, id int64) (string, string) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return "Relatório do Paciente - N/A", ""
	}
	return "Relatório do Paciente - " + p.Name, "Paciente: " + p.Name
}

func buildReport(title, period string, receipts []*billing.Receipt) *Report {
	paid, open, _ := totals(receipts)

	byType := make(map[string]*TypeAggregate)
	byStatus := make(map[string]*StatusAggregate)
	byPatient := make(map[int64]*PatientAggregate)
	for _, r := range receipts {
		ta := byType[r.Type]
		if ta == nil {
			ta = &TypeAggregate{}
			byType[r.Type] = ta
		}
		ta.Total += r.Amount
		ta.Count++

		sa := byStatus[r.Status]
		if sa == nil {
			sa = &StatusAggregate{}
			byStatus[r.Status] = sa
		}
		sa.Total += r.Amount
		sa.Count++

		pa := byPatient[r.PatientID]
		if pa == nil {
			pa = &PatientAggregate{Name: r.PatientName, Code: r.PatientCode}
			byPatient[r.PatientID] = pa
		}
		pa.Count++
		if r.Status == billing.StatusPaid {
			pa.Total += r.Amount
		}
	}
	for _, ta := range byType {
		ta.Average = ta.Total / float64(ta.Count)
	}

	top := make([]*PatientAggregate, 0, len(byPatient))
	for _, pa := range byPatient {
		top = append(top, pa)
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Total != top[j].Total {
			return top[i].Total > top[j].Total
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > 5 {
		top = top[:5]
	}

	if receipts == nil {
		receipts = []*billing.Receipt{}
	}
	return &Report{
		Title:         title,
		Period:        period,
		TotalReceived: paid,
		TotalOpen:     open,
		Count:         len(receipts),
		ByType:        byType,
		ByStatus:      byStatus,
		TopPatients:   top,
		Receipts:      receipts,
	}
}

func totals(receipts []*billing.Receipt) (paid, open float64, paidCount int) {
	for _, r := range receipts {
		switch r.Status {
		case billing.StatusPaid:
			paid += r.Amount
			paidCount++
		case billing.StatusPending:
			open += r.Amount
		}
	}
	return paid, open, paidCount
}

// paymentRate is the paid share of all receipts as a percentage with
// one decimal, or 0 when the ledger is empty.
func paymentRate(paidCount, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(paidCount)/float64(total)*1000) / 10
}

func keep(receipts []*billing.Receipt, pred func(*billing.Receipt) bool) []*billing.Receipt {
	out := make([]*billing.Receipt, 0, len(receipts))
	for _, r := range receipts {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// dateBR renders an ISO date as DD/MM/YYYY for the period label.
func dateBR(iso string) string {
	t, err := time.Parse(billing.DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}
