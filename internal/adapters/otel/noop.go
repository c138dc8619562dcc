package otel

import (
	"context"

	"github.com/emiliopalmerini/worktimer/internal/domain"
	"github.com/emiliopalmerini/worktimer/internal/ports"
)

// NoOpRecorder is a metrics recorder that does nothing.
type NoOpRecorder struct{}

// NewNoOpRecorder creates a new no-op recorder for graceful degradation.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

func (NoOpRecorder) RecordAccrual(context.Context, ports.AccrualKind, int64) {}

func (NoOpRecorder) RecordEvent(context.Context, domain.Reason, domain.Source) {}

func (NoOpRecorder) RecordDeliveryFailure(context.Context, ports.DeliveryMode) {}

func (NoOpRecorder) Close(context.Context) error {
	return nil
}
