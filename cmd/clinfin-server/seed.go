package main

import (
	"context"

	"github.com/clinfin/clinfin/internal/domain/billing"
)

// seedSampleData loads a small demo office through the service layer,
// so codes and balances come out the same way live traffic produces
// them.
func seedSampleData(ctx context.Context, svc *billing.Service) error {
	patients := []billing.PatientInput{
		{
			Name:      "João Silva",
			Phone:     "(11) 99999-9999",
			Email:     "joao@email.com",
			Address:   "Rua das Flores, 123",
			BirthDate: "1980-05-15",
			Notes:     "Paciente regular",
		},
		{
			Name:      "Maria Santos",
			Phone:     "(11) 88888-8888",
			Email:     "maria@email.com",
			Address:   "Av. Paulista, 456",
			BirthDate: "1975-08-20",
			Notes:     "Realiza exames periódicos",
		},
		{
			Name:      "Carlos Oliveira",
			Phone:     "(11) 77777-7777",
			Email:     "carlos@email.com",
			Address:   "Rua Augusta, 789",
			BirthDate: "1990-03-10",
			Notes:     "Paciente novo",
		},
		{
			Name:      "Ana Costa",
			Phone:     "(11) 66666-6666",
			Email:     "ana@email.com",
			Address:   "Rua Consolação, 321",
			BirthDate: "1985-11-25",
			Notes:     "Em tratamento",
		},
		{
			Name:      "Pedro Alves",
			Phone:     "(11) 55555-5555",
			Email:     "pedro@email.com",
			Address:   "Alameda Santos, 654",
			BirthDate: "1970-12-05",
			Notes:     "Paciente preferencial",
		},
	}

	ids := make([]int64, 0, len(patients))
	for _, in := range patients {
		p, err := svc.CreatePatient(ctx, in)
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}

	receipts := []billing.ReceiptInput{
		{PatientID: ids[0], Amount: 150, Date: "2024-01-15", Type: "consulta", Status: billing.StatusPaid, Note: "Consulta de rotina"},
		{PatientID: ids[1], Amount: 200, Date: "2024-01-14", Type: "exame", Status: billing.StatusPending, Note: "Exames laboratoriais"},
		{PatientID: ids[2], Amount: 180, Date: "2024-01-13", Type: "consulta", Status: billing.StatusPaid, Note: "Retorno"},
		{PatientID: ids[0], Amount: 300, Date: "2024-01-10", Type: "cirurgia", Status: billing.StatusPaid, Note: "Cirurgia menor"},
		{PatientID: ids[3], Amount: 120, Date: "2024-01-09", Type: "consulta", Status: billing.StatusPaid, Note: "Consulta emergencial"},
		{PatientID: ids[4], Amount: 500, Date: "2024-01-08", Type: "exame", Status: billing.StatusPending, Note: "Exames de imagem"},
		{PatientID: ids[1], Amount: 150, Date: "2023-12-20", Type: "consulta", Status: billing.StatusPaid, Note: "Consulta final de ano"},
	}

	for _, in := range receipts {
		if _, err := svc.CreateReceipt(ctx, in); err != nil {
			return err
		}
	}
	return nil
}
