package service

import (
	"context"
	"errors"
	"log/slog"

	"passbook/internal/passes/events"
	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
	dErrors "passbook/pkg/domain-errors"
	"passbook/pkg/requestcontext"
)

// Error wrapping helpers translate sentinel errors to domain errors.

func wrapPassErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "pass not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

func wrapRegistrationErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errRegistrationNotFound()
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

func errRegistrationNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "registration not found")
}

func errPassTypeNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "pass type not found")
}

// outcomeOf maps an operation result to its metrics label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return passmetrics.OutcomeOK
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return passmetrics.OutcomeNotFound
	case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeBadRequest):
		return passmetrics.OutcomeInvalid
	case dErrors.HasCode(err, dErrors.CodeConflict):
		return passmetrics.OutcomeConflict
	default:
		return passmetrics.OutcomeError
	}
}

// eventEmitter writes a log line for each mutation and hands the matching
// event to the publisher when one is configured.
type eventEmitter struct {
	logger    *slog.Logger
	publisher Publisher
	metrics   *passmetrics.Metrics
}

func newEventEmitter(logger *slog.Logger, publisher Publisher, metrics *passmetrics.Metrics) *eventEmitter {
	return &eventEmitter{logger: logger, publisher: publisher, metrics: metrics}
}

func (e *eventEmitter) emit(ctx context.Context, t events.Type, id models.Identity, deviceID string) {
	event := events.New(t, id.PassTypeIdentifier, id.SerialNumber, deviceID, requestcontext.Now(ctx))
	event.RequestID = requestcontext.RequestID(ctx)

	e.log(ctx, event)
	e.publish(ctx, event)
}

func (e *eventEmitter) log(ctx context.Context, event events.Event) {
	if e.logger == nil {
		return
	}
	args := []any{
		"event", string(event.Type),
		"log_type", "registration",
		"pass_type", event.PassTypeIdentifier,
		"serial_number", event.SerialNumber,
	}
	if event.DeviceLibraryIdentifier != "" {
		args = append(args, "device_id", event.DeviceLibraryIdentifier)
	}
	if name := requestcontext.DeviceName(ctx); name != "" {
		args = append(args, "device_name", name)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	e.logger.InfoContext(ctx, string(event.Type), args...)
}

func (e *eventEmitter) publish(ctx context.Context, event events.Event) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.Publish(ctx, event)
	e.metrics.ObserveEvent(string(event.Type), err)
	if err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to publish event",
			"event", string(event.Type),
			"event_id", event.ID,
			"error", err,
		)
	}
}
