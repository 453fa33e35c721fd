package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"GapSentinel/internal/calendar"
	"GapSentinel/internal/model"
	"GapSentinel/internal/notifier"
	"GapSentinel/internal/runner"
)

// BatchRunner runs a batch of requests.
type BatchRunner interface {
	Run(ctx context.Context, reqs []model.MetricsRequest) (*runner.Report, error)
}

// Sender delivers a run summary.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the daily cron task.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    BatchRunner
	Calendar  calendar.Calendar
	Symbols   []string
	Location  *time.Location
	Notifier  Sender
	StateFile string
	Ctx       context.Context

	now    func() time.Time
	logger zerolog.Logger
}

// NewScheduler creates a new Scheduler. Notifier may be nil.
func NewScheduler(ctx context.Context, br BatchRunner, cal calendar.Calendar, symbols []string, loc *time.Location, sender Sender, stateFile string) *Scheduler {
	if cal == nil {
		cal = calendar.Weekdays{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Runner:    br,
		Calendar:  cal,
		Symbols:   symbols,
		Location:  loc,
		Notifier:  sender,
		StateFile: stateFile,
		Ctx:       ctx,
		now:       time.Now,
		logger:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the daily batch task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("symbols", len(s.Symbols)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes the daily task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

// TargetDate returns the session the daily task analyzes at now: the trading
// day before today in the exchange timezone, so that today's bar supplies the
// next-day open. ok is false when today is not a trading day.
func (s *Scheduler) TargetDate(now time.Time) (target time.Time, ok bool) {
	today := model.Day(now.In(s.Location))
	if !s.Calendar.IsTradingDay(today) {
		return time.Time{}, false
	}
	return calendar.PreviousTradingDay(s.Calendar, today), true
}

// Requests builds one request per watchlist symbol for target.
func (s *Scheduler) Requests(target time.Time) []model.MetricsRequest {
	reqs := make([]model.MetricsRequest, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		reqs = append(reqs, model.MetricsRequest{Symbol: sym, Date: target})
	}
	return reqs
}

func (s *Scheduler) dailyTask() {
	target, ok := s.TargetDate(s.now())
	if !ok {
		s.logger.Info().Msg("market closed today, skipping daily task")
		return
	}
	day := target.Format(model.DateLayout)
	logger := s.logger.With().Str("target", day).Logger()

	state, err := LoadState(s.StateFile)
	if err != nil {
		logger.Error().Err(err).Msg("load scheduler state")
		state = &State{}
	}
	if state.LastTarget == day {
		logger.Info().Str("run_id", state.LastRunID).Msg("target already processed, skipping")
		return
	}
	if len(s.Symbols) == 0 {
		logger.Warn().Msg("watchlist is empty")
		return
	}

	logger.Info().Int("symbols", len(s.Symbols)).Msg("running daily task")
	report, err := s.Runner.Run(s.Ctx, s.Requests(target))
	if err != nil {
		logger.Error().Err(err).Msg("daily run aborted")
		return
	}

	state.LastTarget = day
	state.LastRunID = report.RunID
	state.Failures = report.Failures
	if err := SaveState(s.StateFile, state); err != nil {
		logger.Error().Err(err).Msg("save scheduler state")
	}

	s.trySend(notifier.FormatRunSummary(report.RunID, report.Results(), report.Failures))
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
