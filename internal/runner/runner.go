package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"GapSentinel/internal/model"
	"GapSentinel/internal/recorder"
)

// Analyzer computes the metrics for one request.
type Analyzer interface {
	Analyze(ctx context.Context, req model.MetricsRequest) (*model.MetricsResult, error)
}

// Outcome is the result of one request. Result is nil only when the request
// itself was invalid; a source failure still yields an all-N/A result.
type Outcome struct {
	Request model.MetricsRequest
	Result  *model.MetricsResult
	Err     error
}

// Report summarizes one batch run.
type Report struct {
	RunID       string
	Source      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcomes    []Outcome
	Failures    int
	StoreErrors int
}

// Results returns the produced results in request order.
func (r *Report) Results() []*model.MetricsResult {
	out := make([]*model.MetricsResult, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Result != nil {
			out = append(out, o.Result)
		}
	}
	return out
}

// Runner drives a batch of requests through the analyzer and the store.
type Runner struct {
	Analyzer    Analyzer
	Recorder    recorder.Recorder
	Source      string
	Parallelism int

	now    func() time.Time
	logger zerolog.Logger
}

// New creates a Runner. Parallelism below 2 runs requests one at a time.
func New(an Analyzer, rec recorder.Recorder, source string, parallelism int) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Runner{
		Analyzer:    an,
		Recorder:    rec,
		Source:      source,
		Parallelism: parallelism,
		now:         time.Now,
		logger:      log.With().Str("component", "runner").Logger(),
	}
}

// Run analyzes every request and appends each result to the store in request
// order. Per-request failures are counted in the report; only cancellation
// aborts the batch.
func (r *Runner) Run(ctx context.Context, reqs []model.MetricsRequest) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Source:    r.Source,
		StartedAt: r.now().UTC(),
		Outcomes:  make([]Outcome, len(reqs)),
	}
	logger := r.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().Int("requests", len(reqs)).Str("source", r.Source).Int("parallelism", r.Parallelism).Msg("run started")

	run := &recorder.Run{ID: report.RunID, Source: r.Source, StartedAt: report.StartedAt, Requests: len(reqs)}
	if err := r.Recorder.StartRun(ctx, run); err != nil {
		logger.Error().Err(err).Msg("record run start")
	}

	if err := r.analyzeAll(ctx, reqs, report.Outcomes); err != nil {
		for _, o := range report.Outcomes {
			if o.Err != nil {
				report.Failures++
			}
		}
		r.finish(ctx, run, report, logger)
		logger.Warn().Err(err).Int("failures", report.Failures).Msg("run aborted")
		return report, err
	}

	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		if o.Err != nil {
			report.Failures++
		}
		if o.Result == nil {
			continue
		}
		if err := r.Recorder.Record(ctx, o.Result); err != nil {
			report.StoreErrors++
			logger.Error().Err(err).Str("request", o.Request.String()).Msg("store result")
		}
	}

	r.finish(ctx, run, report, logger)
	logger.Info().
		Int("failures", report.Failures).
		Int("store_errors", report.StoreErrors).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("run finished")
	return report, nil
}

// finish stamps the report and closes the run record. The write outlives a
// cancelled ctx so an aborted run still gets its finish time.
func (r *Runner) finish(ctx context.Context, run *recorder.Run, report *Report, logger zerolog.Logger) {
	report.FinishedAt = r.now().UTC()
	run.FinishedAt = report.FinishedAt
	run.Failures = report.Failures
	if err := r.Recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error().Err(err).Msg("record run finish")
	}
}

func (r *Runner) analyzeAll(ctx context.Context, reqs []model.MetricsRequest, out []Outcome) error {
	if r.Parallelism < 2 {
		for i, req := range reqs {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = r.analyzeOne(ctx, req)
		}
		return ctx.Err()
	}

	var g errgroup.Group
	g.SetLimit(r.Parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = r.analyzeOne(ctx, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) analyzeOne(ctx context.Context, req model.MetricsRequest) Outcome {
	res, err := r.Analyzer.Analyze(ctx, req)
	switch {
	case err == nil:
		return Outcome{Request: req, Result: res}
	case errors.Is(err, model.ErrInvalidInput):
		r.logger.Error().Err(err).Str("request", req.String()).Msg("invalid request")
		return Outcome{Request: req, Err: err}
	default:
		r.logger.Error().Err(err).Str("request", req.String()).Msg("analysis failed, recording empty result")
		return Outcome{Request: req, Result: model.EmptyResult(req), Err: fmt.Errorf("%s: %w", req, err)}
	}
}
