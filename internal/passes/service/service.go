package service

import (
	"context"
	"log/slog"
	"time"

	"passbook/internal/passes/events"
	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/models"
	"passbook/internal/platform/tracing"
)

// Store interfaces define persistence contracts.

type PassStore interface {
	Create(ctx context.Context, p *models.Pass) error
	FindByIdentity(ctx context.Context, passType, serial string) (*models.Pass, error)
	FindByType(ctx context.Context, passType string) ([]*models.Pass, error)
	Touch(ctx context.Context, p *models.Pass) error
}

type RegistrationStore interface {
	FindByPassAndDevice(ctx context.Context, passID int64, deviceID string) (*models.Registration, error)
	FindAllByPassAndDevice(ctx context.Context, passID int64, deviceID string, updatedSince *time.Time) ([]*models.Registration, error)
	Upsert(ctx context.Context, deviceID string, passID int64, pushToken string, now time.Time) (*models.Registration, error)
	Delete(ctx context.Context, r *models.Registration) error
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Service implements the device registration protocol and the pass
// provisioning operations on top of the two stores. It holds no state of its
// own; every invariant is enforced by the stores.
type Service struct {
	passes        PassStore
	registrations RegistrationStore
	logger        *slog.Logger
	metrics       *passmetrics.Metrics
	publisher     Publisher
	tracer        tracing.Tracer
	emitter       *eventEmitter
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *passmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher enables event publication. A nil publisher disables it.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithTracer(t tracing.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(passes PassStore, registrations RegistrationStore, opts ...Option) *Service {
	s := &Service{passes: passes, registrations: registrations}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracing.NewNoop()
	}
	s.emitter = newEventEmitter(s.logger, s.publisher, s.metrics)
	return s
}
