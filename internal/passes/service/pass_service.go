package service

import (
	"context"
	"errors"

	"passbook/internal/passes/events"
	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/models"
	"passbook/internal/platform/tracing"
	"passbook/internal/sentinel"
	dErrors "passbook/pkg/domain-errors"
	"passbook/pkg/requestcontext"
)

// Provisioning operations. These back passctl and are not exposed over HTTP.

// CreatePass validates and stores a new pass. A duplicate identity is a conflict.
func (s *Service) CreatePass(ctx context.Context, passType, serial string, data []byte) (p *models.Pass, err error) {
	ctx, span := s.tracer.Start(ctx, "passes.CreatePass",
		tracing.String("pass_type", passType),
		tracing.String("serial_number", serial),
	)
	defer func() {
		s.metrics.ObserveOperation(passmetrics.OpCreatePass, outcomeOf(err))
		span.End(err)
	}()

	p, err = models.NewPass(passType, serial, data, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.passes.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "pass already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create pass")
	}

	s.logger.InfoContext(ctx, "pass created",
		"pass_type", passType,
		"serial_number", serial,
		"pass_id", p.ID,
	)
	return p, nil
}

// UpdatePassData replaces the payload and advances UpdatedAt. An identical
// payload leaves the pass untouched and publishes nothing.
func (s *Service) UpdatePassData(ctx context.Context, passType, serial string, data []byte) (p *models.Pass, err error) {
	ctx, span := s.tracer.Start(ctx, "passes.UpdatePassData",
		tracing.String("pass_type", passType),
		tracing.String("serial_number", serial),
	)
	defer func() {
		s.metrics.ObserveOperation(passmetrics.OpUpdatePass, outcomeOf(err))
		span.End(err)
	}()

	p, err = s.passes.FindByIdentity(ctx, passType, serial)
	if err != nil {
		return nil, wrapPassErr(err, "failed to find pass")
	}
	changed, err := p.ReplaceData(data, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.Bool("changed", changed))
	if !changed {
		return p, nil
	}
	if err := s.passes.Touch(ctx, p); err != nil {
		return nil, wrapPassErr(err, "failed to update pass")
	}

	s.emitter.emit(ctx, events.PassUpdated, p.Identity(), "")
	return p, nil
}

// ShowPass is the provisioning read path.
func (s *Service) ShowPass(ctx context.Context, passType, serial string) (*models.Pass, error) {
	return s.GetLatestPass(ctx, passType, serial)
}
