// internal/engine/trigger/scheduler.go
package trigger

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"school-notify/internal/common/config"
	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

// Scheduler runs the daily and weekly trigger evaluations on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	evaluator *Evaluator
	logger    logger.Logger
}

func NewScheduler(cfg config.TriggersConfig, evaluator *Evaluator, log logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		evaluator: evaluator,
		logger:    log.WithFields(map[string]interface{}{"component": "trigger-scheduler"}),
	}

	if _, err := s.cron.AddFunc(cfg.DailySchedule, func() {
		s.run(models.FrequencyDaily)
	}); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(cfg.WeeklySchedule, func() {
		s.run(models.FrequencyWeekly)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run(freq models.Frequency) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.evaluator.RunDue(ctx, time.Now().UTC(), freq); err != nil {
		s.logger.WithError(err).Error("scheduled trigger run failed", map[string]interface{}{
			"frequency": freq,
		})
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("trigger scheduler started", nil)
}

// Stop halts the schedule and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("trigger scheduler stopped", nil)
}
