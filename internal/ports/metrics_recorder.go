package ports

import (
	"context"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// AccrualKind classifies what a tick did with the elapsed time.
type AccrualKind string

const (
	AccrualActive    AccrualKind = "active"
	AccrualIdle      AccrualKind = "idle"
	AccrualDiscarded AccrualKind = "discarded"
	AccrualIgnored   AccrualKind = "ignored"
)

// DeliveryMode distinguishes the two delivery transports.
type DeliveryMode string

const (
	DeliveryNormal   DeliveryMode = "normal"
	DeliveryReliable DeliveryMode = "reliable"
)

// MetricsRecorder exports tracker metrics to an external observability system.
type MetricsRecorder interface {
	// RecordAccrual records the elapsed milliseconds a tick classified as kind.
	RecordAccrual(ctx context.Context, kind AccrualKind, ms int64)
	// RecordEvent counts an emitted event.
	RecordEvent(ctx context.Context, reason domain.Reason, source domain.Source)
	// RecordDeliveryFailure counts a send that was given up on.
	RecordDeliveryFailure(ctx context.Context, mode DeliveryMode)
	// Close shuts down the recorder and flushes any pending metrics.
	Close(ctx context.Context) error
}
