package service

import (
	"context"
	"errors"
	"time"

	"passbook/internal/passes/events"
	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/models"
	"passbook/internal/platform/tracing"
	"passbook/internal/sentinel"
	"passbook/pkg/requestcontext"
)

// GetLatestPass returns the stored pass so the caller can write its payload
// verbatim.
func (s *Service) GetLatestPass(ctx context.Context, passType, serial string) (p *models.Pass, err error) {
	ctx, span := s.tracer.Start(ctx, "passes.GetLatestPass",
		tracing.String("pass_type", passType),
		tracing.String("serial_number", serial),
	)
	defer func() {
		s.metrics.ObserveOperation(passmetrics.OpLookup, outcomeOf(err))
		span.End(err)
	}()

	p, err = s.passes.FindByIdentity(ctx, passType, serial)
	if err != nil {
		return nil, wrapPassErr(err, "failed to find pass")
	}
	return p, nil
}

// GetUpdatedSerials lists the serials of passes of passType that deviceID is
// registered for, optionally limited to registrations updated at or after
// updatedSince. A nil result with a nil error means there is nothing to report.
func (s *Service) GetUpdatedSerials(ctx context.Context, deviceID, passType string, updatedSince *time.Time) (update *models.SerialsUpdate, err error) {
	ctx, span := s.tracer.Start(ctx, "passes.GetUpdatedSerials",
		tracing.String("device_id", deviceID),
		tracing.String("pass_type", passType),
		tracing.Bool("filtered", updatedSince != nil),
	)
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && update == nil {
			outcome = passmetrics.OutcomeNoContent
		}
		s.metrics.ObserveOperation(passmetrics.OpSerials, outcome)
		span.End(err)
	}()

	passes, err := s.findPassesByType(ctx, passType)
	if err != nil {
		return nil, err
	}

	for _, p := range passes {
		regs, err := s.registrations.FindAllByPassAndDevice(ctx, p.ID, deviceID, updatedSince)
		if err != nil {
			return nil, wrapRegistrationErr(err, "failed to list registrations")
		}
		if len(regs) == 0 {
			continue
		}
		if update == nil {
			update = &models.SerialsUpdate{}
		}
		update.SerialNumbers = append(update.SerialNumbers, p.SerialNumber)
		if p.UpdatedAt.After(update.LastUpdated) {
			update.LastUpdated = p.UpdatedAt
		}
	}
	if update != nil {
		span.SetAttributes(tracing.Int("serials", len(update.SerialNumbers)))
	}
	return update, nil
}

// RegisterDevice associates deviceID with the pass, creating the
// registration or refreshing its push token. Repeating the call is safe.
func (s *Service) RegisterDevice(ctx context.Context, deviceID, passType, serial, pushToken string) (reg *models.Registration, err error) {
	ctx, span := s.tracer.Start(ctx, "passes.RegisterDevice",
		tracing.String("device_id", deviceID),
		tracing.String("pass_type", passType),
		tracing.String("serial_number", serial),
	)
	defer func() {
		s.metrics.ObserveOperation(passmetrics.OpRegister, outcomeOf(err))
		span.End(err)
	}()

	// An unknown pass is reported before a bad token.
	p, err := s.passes.FindByIdentity(ctx, passType, serial)
	if err != nil {
		return nil, wrapPassErr(err, "failed to find pass")
	}
	if err := models.ValidateRegistration(deviceID, pushToken); err != nil {
		return nil, err
	}

	now := models.Timestamp(requestcontext.Now(ctx))
	reg, err = s.registrations.Upsert(ctx, deviceID, p.ID, pushToken, now)
	if err != nil {
		// The pass can vanish between lookup and upsert when the foreign key fires.
		return nil, wrapPassErr(err, "failed to save registration")
	}

	s.emitter.emit(ctx, events.DeviceRegistered, p.Identity(), deviceID)
	return reg, nil
}

// UnregisterDevice removes deviceID's registrations for every pass of
// passType. It fails with not found when the device had none, so a second
// call after a successful one is an error.
func (s *Service) UnregisterDevice(ctx context.Context, deviceID, passType string) (err error) {
	ctx, span := s.tracer.Start(ctx, "passes.UnregisterDevice",
		tracing.String("device_id", deviceID),
		tracing.String("pass_type", passType),
	)
	defer func() {
		s.metrics.ObserveOperation(passmetrics.OpUnregister, outcomeOf(err))
		span.End(err)
	}()

	passes, err := s.findPassesByType(ctx, passType)
	if err != nil {
		return err
	}

	removed := 0
	for _, p := range passes {
		deleted, err := s.deleteRegistration(ctx, p, deviceID)
		if err != nil {
			return err
		}
		if deleted {
			removed++
		}
	}
	span.SetAttributes(tracing.Int("removed", removed))
	if removed == 0 {
		return errRegistrationNotFound()
	}
	return nil
}

// UnregisterDeviceFromPass removes the single registration of deviceID for
// the pass identified by passType and serial.
func (s *Service) UnregisterDeviceFromPass(ctx context.Context, deviceID, passType, serial string) (err error) {
	ctx, span := s.tracer.Start(ctx, "passes.UnregisterDeviceFromPass",
		tracing.String("device_id", deviceID),
		tracing.String("pass_type", passType),
		tracing.String("serial_number", serial),
	)
	defer func() {
		s.metrics.ObserveOperation(passmetrics.OpUnregister, outcomeOf(err))
		span.End(err)
	}()

	p, err := s.passes.FindByIdentity(ctx, passType, serial)
	if err != nil {
		return wrapPassErr(err, "failed to find pass")
	}
	deleted, err := s.deleteRegistration(ctx, p, deviceID)
	if err != nil {
		return err
	}
	if !deleted {
		return errRegistrationNotFound()
	}
	return nil
}

// deleteRegistration reports false when there was nothing to delete,
// including when a concurrent request removed the row first.
func (s *Service) deleteRegistration(ctx context.Context, p *models.Pass, deviceID string) (bool, error) {
	reg, err := s.registrations.FindByPassAndDevice(ctx, p.ID, deviceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapRegistrationErr(err, "failed to find registration")
	}
	if err := s.registrations.Delete(ctx, reg); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, wrapRegistrationErr(err, "failed to delete registration")
	}
	s.emitter.emit(ctx, events.DeviceUnregistered, p.Identity(), deviceID)
	return true, nil
}

func (s *Service) findPassesByType(ctx context.Context, passType string) ([]*models.Pass, error) {
	passes, err := s.passes.FindByType(ctx, passType)
	if err != nil {
		return nil, wrapPassErr(err, "failed to list passes")
	}
	if len(passes) == 0 {
		return nil, errPassTypeNotFound()
	}
	return passes, nil
}
