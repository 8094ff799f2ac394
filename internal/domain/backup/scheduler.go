package backup

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler produces automatic snapshots on a cron expression
// (BACKUP_CRON). Retention in the service bounds how many it keeps.
type Scheduler struct {
	svc    *Service
	cron   *cron.Cron
	spec   string
	logger zerolog.Logger
}

func NewScheduler(svc *Service, spec string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		svc:    svc,
		cron:   cron.New(),
		spec:   spec,
		logger: logger,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("cron", s.spec).Msg("backup scheduler started")
	return nil
}

// Stop halts scheduling and waits for a running snapshot to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("backup scheduler stopped")
}

func (s *Scheduler) run() {
	snap, err := s.svc.CreateSnapshot(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled backup failed")
		return
	}
	s.logger.Info().
		Str("backup_id", snap.ID.String()).
		Int("pacientes", snap.PatientCount).
		Int("recebimentos", snap.ReceiptCount).
		Msg("scheduled backup created")
}
