package service

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"passbook/internal/passes/events"
	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
	dErrors "passbook/pkg/domain-errors"
	fixtures "passbook/pkg/testutil"
)

func (s *ServiceSuite) TestGetLatestPass() {
	s.Run("returns the stored pass", func() {
		p := s.newPass(1, fixtures.Serial)
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), fixtures.PassType, fixtures.Serial).Return(p, nil)

		got, err := s.service.GetLatestPass(s.ctx, fixtures.PassType, fixtures.Serial)
		s.Require().NoError(err)
		s.Equal(p, got)
	})

	s.Run("missing pass is not found", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), fixtures.PassType, "nope").Return(nil, sentinel.ErrNotFound)

		_, err := s.service.GetLatestPass(s.ctx, fixtures.PassType, "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(1.0, s.operationCount(passmetrics.OpLookup, passmetrics.OutcomeNotFound))
	})

	s.Run("store failure is internal", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		_, err := s.service.GetLatestPass(s.ctx, fixtures.PassType, fixtures.Serial)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestGetUpdatedSerials() {
	s.Run("unknown pass type is not found", func() {
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.OtherType).Return([]*models.Pass{}, nil)

		update, err := s.service.GetUpdatedSerials(s.ctx, fixtures.Device, fixtures.OtherType, nil)
		s.Nil(update)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("no matching registration is no content", func() {
		p := s.newPass(1, fixtures.Serial)
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{p}, nil)
		s.mockRegs.EXPECT().FindAllByPassAndDevice(gomock.Any(), int64(1), fixtures.Device, gomock.Nil()).Return(nil, nil)

		update, err := s.service.GetUpdatedSerials(s.ctx, fixtures.Device, fixtures.PassType, nil)
		s.NoError(err)
		s.Nil(update)
		s.Equal(1.0, s.operationCount(passmetrics.OpSerials, passmetrics.OutcomeNoContent))
	})

	s.Run("single pass reports its serial and timestamp", func() {
		p := s.newPass(1, fixtures.Serial)
		since := fixtures.FixedTime.Add(-time.Hour)
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{p}, nil)
		s.mockRegs.EXPECT().FindAllByPassAndDevice(gomock.Any(), int64(1), fixtures.Device, &since).
			Return([]*models.Registration{s.newRegistration(1)}, nil)

		update, err := s.service.GetUpdatedSerials(s.ctx, fixtures.Device, fixtures.PassType, &since)
		s.Require().NoError(err)
		s.Equal([]string{fixtures.Serial}, update.SerialNumbers)
		s.Equal(p.UpdatedAt, update.LastUpdated)
	})

	s.Run("several passes report the latest update", func() {
		older := s.newPass(1, "A")
		newer := s.newPass(2, "B")
		newer.UpdatedAt = fixtures.FixedTime.Add(time.Minute)
		skipped := s.newPass(3, "C")
		skipped.UpdatedAt = fixtures.FixedTime.Add(time.Hour)

		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{older, newer, skipped}, nil)
		s.mockRegs.EXPECT().FindAllByPassAndDevice(gomock.Any(), int64(1), fixtures.Device, gomock.Any()).
			Return([]*models.Registration{s.newRegistration(1)}, nil)
		s.mockRegs.EXPECT().FindAllByPassAndDevice(gomock.Any(), int64(2), fixtures.Device, gomock.Any()).
			Return([]*models.Registration{s.newRegistration(2)}, nil)
		s.mockRegs.EXPECT().FindAllByPassAndDevice(gomock.Any(), int64(3), fixtures.Device, gomock.Any()).
			Return(nil, nil)

		update, err := s.service.GetUpdatedSerials(s.ctx, fixtures.Device, fixtures.PassType, nil)
		s.Require().NoError(err)
		s.Equal([]string{"A", "B"}, update.SerialNumbers)
		s.Equal(newer.UpdatedAt, update.LastUpdated)
	})

	s.Run("registration store failure is internal", func() {
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{s.newPass(1, fixtures.Serial)}, nil)
		s.mockRegs.EXPECT().FindAllByPassAndDevice(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("timeout"))

		_, err := s.service.GetUpdatedSerials(s.ctx, fixtures.Device, fixtures.PassType, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestRegisterDevice() {
	s.Run("upserts at request time and publishes", func() {
		p := s.newPass(7, fixtures.Serial)
		reg := s.newRegistration(7)
		var published events.Event

		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), fixtures.PassType, fixtures.Serial).Return(p, nil)
		s.mockRegs.EXPECT().Upsert(gomock.Any(), fixtures.Device, int64(7), fixtures.PushToken, fixtures.FixedTime).Return(reg, nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e events.Event) error {
				published = e
				return nil
			})

		got, err := s.service.RegisterDevice(s.ctx, fixtures.Device, fixtures.PassType, fixtures.Serial, fixtures.PushToken)
		s.Require().NoError(err)
		s.Equal(reg, got)
		s.Equal(events.DeviceRegistered, published.Type)
		s.Equal(fixtures.Device, published.DeviceLibraryIdentifier)
		s.Equal(fixtures.Serial, published.SerialNumber)
		s.Equal("req-123", published.RequestID)
		s.Equal(fixtures.FixedTime, published.OccurredAt)
	})

	s.Run("invalid input never reaches the registration store", func() {
		tests := []struct {
			name      string
			deviceID  string
			pushToken string
		}{
			{"missing push token", fixtures.Device, ""},
			{"blank push token", fixtures.Device, "   "},
			{"missing device", "", fixtures.PushToken},
			{"oversized token", fixtures.Device, string(make([]byte, 256))},
		}
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), fixtures.PassType, fixtures.Serial).
			Return(s.newPass(1, fixtures.Serial), nil).Times(len(tests))
		for _, tt := range tests {
			_, err := s.service.RegisterDevice(s.ctx, tt.deviceID, fixtures.PassType, fixtures.Serial, tt.pushToken)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), tt.name)
		}
	})

	s.Run("unknown pass is reported before a missing token", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), fixtures.PassType, "missing").Return(nil, sentinel.ErrNotFound)

		_, err := s.service.RegisterDevice(s.ctx, fixtures.Device, fixtures.PassType, "missing", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown pass is not found", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.RegisterDevice(s.ctx, fixtures.Device, fixtures.PassType, "missing", fixtures.PushToken)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("pass removed before upsert is not found", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.newPass(1, fixtures.Serial), nil)
		s.mockRegs.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.RegisterDevice(s.ctx, fixtures.Device, fixtures.PassType, fixtures.Serial, fixtures.PushToken)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("publisher failure is not surfaced", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.newPass(1, fixtures.Serial), nil)
		s.mockRegs.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(s.newRegistration(1), nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		_, err := s.service.RegisterDevice(s.ctx, fixtures.Device, fixtures.PassType, fixtures.Serial, fixtures.PushToken)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestUnregisterDevice() {
	s.Run("deletes the registration of every pass of the type", func() {
		a, b := s.newPass(1, "A"), s.newPass(2, "B")
		regA, regB := s.newRegistration(1), s.newRegistration(2)

		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{a, b}, nil)
		s.mockRegs.EXPECT().FindByPassAndDevice(gomock.Any(), int64(1), fixtures.Device).Return(regA, nil)
		s.mockRegs.EXPECT().Delete(gomock.Any(), regA).Return(nil)
		s.mockRegs.EXPECT().FindByPassAndDevice(gomock.Any(), int64(2), fixtures.Device).Return(regB, nil)
		s.mockRegs.EXPECT().Delete(gomock.Any(), regB).Return(nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		s.NoError(s.service.UnregisterDevice(s.ctx, fixtures.Device, fixtures.PassType))
	})

	s.Run("device without registrations is not found", func() {
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{s.newPass(1, "A")}, nil)
		s.mockRegs.EXPECT().FindByPassAndDevice(gomock.Any(), int64(1), fixtures.Device).Return(nil, sentinel.ErrNotFound)

		err := s.service.UnregisterDevice(s.ctx, fixtures.Device, fixtures.PassType)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(1.0, s.operationCount(passmetrics.OpUnregister, passmetrics.OutcomeNotFound))
	})

	s.Run("unknown type is not found", func() {
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.OtherType).Return(nil, nil)

		err := s.service.UnregisterDevice(s.ctx, fixtures.Device, fixtures.OtherType)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("row deleted concurrently counts as absent", func() {
		reg := s.newRegistration(1)
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{s.newPass(1, "A")}, nil)
		s.mockRegs.EXPECT().FindByPassAndDevice(gomock.Any(), int64(1), fixtures.Device).Return(reg, nil)
		s.mockRegs.EXPECT().Delete(gomock.Any(), reg).Return(sentinel.ErrNotFound)

		err := s.service.UnregisterDevice(s.ctx, fixtures.Device, fixtures.PassType)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("delete failure is internal", func() {
		reg := s.newRegistration(1)
		s.mockPasses.EXPECT().FindByType(gomock.Any(), fixtures.PassType).Return([]*models.Pass{s.newPass(1, "A")}, nil)
		s.mockRegs.EXPECT().FindByPassAndDevice(gomock.Any(), int64(1), fixtures.Device).Return(reg, nil)
		s.mockRegs.EXPECT().Delete(gomock.Any(), reg).Return(errors.New("disk full"))

		err := s.service.UnregisterDevice(s.ctx, fixtures.Device, fixtures.PassType)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestUnregisterDeviceFromPass() {
	s.Run("deletes the single registration", func() {
		reg := s.newRegistration(1)
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), fixtures.PassType, fixtures.Serial).Return(s.newPass(1, fixtures.Serial), nil)
		s.mockRegs.EXPECT().FindByPassAndDevice(gomock.Any(), int64(1), fixtures.Device).Return(reg, nil)
		s.mockRegs.EXPECT().Delete(gomock.Any(), reg).Return(nil)
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		s.NoError(s.service.UnregisterDeviceFromPass(s.ctx, fixtures.Device, fixtures.PassType, fixtures.Serial))
	})

	s.Run("missing pass is not found", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		err := s.service.UnregisterDeviceFromPass(s.ctx, fixtures.Device, fixtures.PassType, "missing")
		assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing registration is not found", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.newPass(1, fixtures.Serial), nil)
		s.mockRegs.EXPECT().FindByPassAndDevice(gomock.Any(), int64(1), fixtures.Device).Return(nil, sentinel.ErrNotFound)

		err := s.service.UnregisterDeviceFromPass(s.ctx, fixtures.Device, fixtures.PassType, fixtures.Serial)
		assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
