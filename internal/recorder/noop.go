package recorder

import (
	"context"

	"GapSentinel/internal/model"
)

// NoopRecorder discards everything. Used with --no-store or database.driver "none".
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) StartRun(_ context.Context, _ *Run) error               { return nil }
func (n *NoopRecorder) Record(_ context.Context, _ *model.MetricsResult) error { return nil }
func (n *NoopRecorder) FinishRun(_ context.Context, _ *Run) error              { return nil }
func (n *NoopRecorder) Close() error                                           { return nil }
