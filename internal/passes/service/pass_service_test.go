package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/mock/gomock"

	"passbook/internal/passes/events"
	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
	dErrors "passbook/pkg/domain-errors"
	fixtures "passbook/pkg/testutil"
)

func (s *ServiceSuite) TestCreatePass() {
	s.Run("stores a validated pass", func() {
		s.mockPasses.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *models.Pass) error {
				p.ID = 42
				return nil
			})

		p, err := s.service.CreatePass(s.ctx, fixtures.PassType, fixtures.Serial, []byte(fixtures.PassPayload))
		s.Require().NoError(err)
		s.Equal(int64(42), p.ID)
		s.JSONEq(fixtures.PassPayload, string(p.Data))
		s.Equal(fixtures.FixedTime, p.UpdatedAt)
	})

	s.Run("malformed identifiers are validation errors", func() {
		for _, passType := range []string{"", ".bad", "a..b", "bad id"} {
			_, err := s.service.CreatePass(s.ctx, passType, fixtures.Serial, nil)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), passType)
		}
		_, err := s.service.CreatePass(s.ctx, fixtures.PassType, "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate identity is a conflict", func() {
		s.mockPasses.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("pass exists: %w", sentinel.ErrAlreadyUsed))

		_, err := s.service.CreatePass(s.ctx, fixtures.PassType, fixtures.Serial, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestUpdatePassData() {
	s.Run("changed payload is touched and published", func() {
		p := s.newPass(1, fixtures.Serial)
		p.UpdatedAt = fixtures.FixedTime.Add(-24 * time.Hour)
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), fixtures.PassType, fixtures.Serial).Return(p, nil)
		s.mockPasses.EXPECT().Touch(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, touched *models.Pass) error {
				s.JSONEq(`{"foo":58}`, string(touched.Data))
				s.Equal(fixtures.FixedTime, touched.UpdatedAt)
				return nil
			})
		s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e events.Event) error {
				s.Equal(events.PassUpdated, e.Type)
				s.Empty(e.DeviceLibraryIdentifier)
				return nil
			})

		_, err := s.service.UpdatePassData(s.ctx, fixtures.PassType, fixtures.Serial, []byte(`{"foo":58}`))
		s.NoError(err)
	})

	s.Run("identical payload is a no-op", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.newPass(1, fixtures.Serial), nil)

		p, err := s.service.UpdatePassData(s.ctx, fixtures.PassType, fixtures.Serial, []byte(fixtures.PassPayload))
		s.Require().NoError(err)
		s.Equal(fixtures.FixedTime, p.UpdatedAt)
	})

	s.Run("invalid JSON is rejected", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.newPass(1, fixtures.Serial), nil)

		_, err := s.service.UpdatePassData(s.ctx, fixtures.PassType, fixtures.Serial, []byte(`{"foo":`))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown pass is not found", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.UpdatePassData(s.ctx, fixtures.PassType, "missing", []byte(`{}`))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("touch failure is internal", func() {
		s.mockPasses.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.newPass(1, fixtures.Serial), nil)
		s.mockPasses.EXPECT().Touch(gomock.Any(), gomock.Any()).Return(errors.New("read-only"))

		_, err := s.service.UpdatePassData(s.ctx, fixtures.PassType, fixtures.Serial, []byte(`{"foo":1}`))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
