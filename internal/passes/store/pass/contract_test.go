package pass

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passbook/internal/passes/models"
	"passbook/internal/platform/database"
	"passbook/internal/sentinel"
	"passbook/pkg/testutil"
)

// StoreContractSuite runs the same behavioural checks against every Store.
type StoreContractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
}

func (s *StoreContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func (s *StoreContractSuite) createPass(passType, serial, data string) *models.Pass {
	p, err := models.NewPass(passType, serial, []byte(data), testutil.FixedTime)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, p))
	return p
}

func (s *StoreContractSuite) TestCreateAndFind() {
	created := s.createPass(testutil.PassType, testutil.Serial, testutil.PassPayload)
	s.NotZero(created.ID)

	got, err := s.store.FindByIdentity(s.ctx, testutil.PassType, testutil.Serial)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.JSONEq(testutil.PassPayload, string(got.Data))
	s.True(got.UpdatedAt.Equal(testutil.FixedTime))
	s.Equal(time.UTC, got.UpdatedAt.Location())
}

func (s *StoreContractSuite) TestFindByIdentityIsExact() {
	s.createPass(testutil.PassType, testutil.Serial, testutil.PassPayload)

	_, err := s.store.FindByIdentity(s.ctx, testutil.PassType, "abc123")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByIdentity(s.ctx, testutil.OtherType, testutil.Serial)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreContractSuite) TestCreateDuplicateIdentity() {
	s.createPass(testutil.PassType, testutil.Serial, testutil.PassPayload)

	dup, err := models.NewPass(testutil.PassType, testutil.Serial, nil, testutil.FixedTime)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
}

func (s *StoreContractSuite) TestSameSerialDifferentTypes() {
	s.createPass(testutil.PassType, testutil.Serial, `{}`)
	s.createPass(testutil.OtherType, testutil.Serial, `{}`)
}

func (s *StoreContractSuite) TestFindByType() {
	s.createPass(testutil.PassType, testutil.SerialN(2), `{}`)
	s.createPass(testutil.PassType, testutil.SerialN(1), `{}`)
	s.createPass(testutil.OtherType, testutil.SerialN(3), `{}`)

	got, err := s.store.FindByType(s.ctx, testutil.PassType)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(testutil.SerialN(1), got[0].SerialNumber)
	s.Equal(testutil.SerialN(2), got[1].SerialNumber)

	none, err := s.store.FindByType(s.ctx, "com.unknown")
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *StoreContractSuite) TestTouch() {
	p := s.createPass(testutil.PassType, testutil.Serial, testutil.PassPayload)

	later := testutil.FixedTime.Add(time.Hour)
	changed, err := p.ReplaceData(json.RawMessage(`{"foo":58}`), later)
	s.Require().NoError(err)
	s.Require().True(changed)
	s.Require().NoError(s.store.Touch(s.ctx, p))

	got, err := s.store.FindByIdentity(s.ctx, testutil.PassType, testutil.Serial)
	s.Require().NoError(err)
	s.JSONEq(`{"foo":58}`, string(got.Data))
	s.True(got.UpdatedAt.Equal(later))
	s.True(got.CreatedAt.Equal(testutil.FixedTime))
}

func (s *StoreContractSuite) TestTouchMissing() {
	p, err := models.NewPass(testutil.PassType, "missing", nil, testutil.FixedTime)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Touch(s.ctx, p), sentinel.ErrNotFound)
}

func (s *StoreContractSuite) TestReturnedPassIsACopy() {
	s.createPass(testutil.PassType, testutil.Serial, testutil.PassPayload)

	got, err := s.store.FindByIdentity(s.ctx, testutil.PassType, testutil.Serial)
	s.Require().NoError(err)
	got.SerialNumber = "mutated"
	got.Data[2] = 'X'

	again, err := s.store.FindByIdentity(s.ctx, testutil.PassType, testutil.Serial)
	s.Require().NoError(err)
	s.JSONEq(testutil.PassPayload, string(again.Data))
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func() Store { return NewInMemory() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func() Store {
		pool, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "passes.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		if err := pool.Migrate(context.Background()); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		t.Cleanup(func() { _ = pool.Close() })
		return NewSQLite(pool.DB())
	}})
}
