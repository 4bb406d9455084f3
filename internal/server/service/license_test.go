package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shayra-ai/license-server/internal/license"
	"github.com/shayra-ai/license-server/internal/transactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type LicenseStorageMock struct {
	mock.Mock
}

func (s *LicenseStorageMock) GetLicense(ctx context.Context, deviceID string) (license.License, error) {
	args := s.Called(ctx, deviceID)
	return args.Get(0).(license.License), args.Error(1)
}

func (s *LicenseStorageMock) SaveLicense(ctx context.Context, l license.License) error {
	args := s.Called(ctx, l)
	return args.Error(0)
}

func (s *LicenseStorageMock) Licenses(ctx context.Context, limit int) ([]license.License, error) {
	args := s.Called(ctx, limit)
	return args.Get(0).([]license.License), args.Error(1)
}

func (s *LicenseStorageMock) GetCoupon(ctx context.Context, code string) (license.Coupon, error) {
	args := s.Called(ctx, code)
	return args.Get(0).(license.Coupon), args.Error(1)
}

func (s *LicenseStorageMock) SaveCoupon(ctx context.Context, c license.Coupon) error {
	args := s.Called(ctx, c)
	return args.Error(0)
}

func (s *LicenseStorageMock) Coupons(ctx context.Context, limit int) ([]license.Coupon, error) {
	args := s.Called(ctx, limit)
	return args.Get(0).([]license.Coupon), args.Error(1)
}

func (s *LicenseStorageMock) AddNotification(ctx context.Context, n license.Notification) error {
	args := s.Called(ctx, n)
	return args.Error(0)
}

func (s *LicenseStorageMock) Notifications(ctx context.Context, deviceID string, onlyUnseen bool, limit int) ([]license.Notification, error) {
	args := s.Called(ctx, deviceID, onlyUnseen, limit)
	return args.Get(0).([]license.Notification), args.Error(1)
}

func (s *LicenseStorageMock) MarkNotificationsSeen(ctx context.Context, deviceID string) error {
	args := s.Called(ctx, deviceID)
	return args.Error(0)
}

func (s *LicenseStorageMock) AddUsage(ctx context.Context, u license.Usage) error {
	args := s.Called(ctx, u)
	return args.Error(0)
}

func (s *LicenseStorageMock) UsageHistory(ctx context.Context, deviceID string, limit int) ([]license.Usage, error) {
	args := s.Called(ctx, deviceID, limit)
	return args.Get(0).([]license.Usage), args.Error(1)
}

func (s *LicenseStorageMock) Stats(ctx context.Context) (license.Stats, error) {
	args := s.Called(ctx)
	return args.Get(0).(license.Stats), args.Error(1)
}

func today() string {
	return time.Now().Format(license.DateLayout)
}

func TestLicenseService_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a free license for an unknown device", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		mockStorage.On("GetLicense", ctx, "new-device").Return(license.License{}, license.ErrLicenseNotFound)
		mockStorage.On("SaveLicense", ctx, mock.MatchedBy(func(l license.License) bool {
			return l.DeviceID == "new-device" && l.Tier == license.TierFree
		})).Return(nil)

		status, err := service.Status(ctx, "new-device")
		assert.NoError(t, err)
		assert.Equal(t, license.TierFree, status.Tier)
		assert.Equal(t, int64(10), status.Remaining)
		assert.Equal(t, int64(10), status.DailyLimit)

		mockStorage.AssertExpectations(t)
	})

	t.Run("reports a reduced state for a suspended device", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		existing := license.License{
			DeviceID:      "bad-device",
			Tier:          license.TierPro,
			Credits:       100,
			DailyReset:    today(),
			Suspended:     true,
			SuspendReason: "abuse",
		}

		mockStorage.On("GetLicense", ctx, "bad-device").Return(existing, nil)
		mockStorage.On("SaveLicense", ctx, mock.Anything).Return(nil)

		status, err := service.Status(ctx, "bad-device")
		assert.NoError(t, err)
		assert.True(t, status.Suspended)
		assert.Equal(t, "abuse", status.SuspendReason)
		assert.Zero(t, status.Remaining)

		mockStorage.AssertExpectations(t)
	})

	t.Run("fails on unexpected storage error", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		mockStorage.On("GetLicense", ctx, "broken").Return(license.License{}, errors.New("storage down"))

		_, err := service.Status(ctx, "broken")
		assert.Error(t, err)

		mockStorage.AssertExpectations(t)
	})
}

func TestLicenseService_Use(t *testing.T) {
	ctx := context.Background()

	t.Run("charges a free license and logs usage", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		existing := license.License{
			DeviceID:   "device-1",
			Tier:       license.TierFree,
			DailyUsed:  2,
			DailyReset: today(),
		}

		mockStorage.On("GetLicense", ctx, "device-1").Return(existing, nil)
		mockStorage.On("SaveLicense", ctx, mock.Anything).Return(nil)
		mockStorage.On("AddUsage", ctx, mock.MatchedBy(func(u license.Usage) bool {
			return u.DeviceID == "device-1" && u.TextPreview == "hello" && u.Voice == "aria"
		})).Return(nil)

		status, err := service.Use(ctx, "device-1", "hello", "aria", "127.0.0.1")
		assert.NoError(t, err)
		assert.Equal(t, int64(3), status.DailyUsed)
		assert.Equal(t, int64(7), status.Remaining)

		mockStorage.AssertExpectations(t)
	})

	t.Run("logs usage even for suspended devices", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		existing := license.License{
			DeviceID:   "bad-device",
			DailyReset: today(),
			Suspended:  true,
		}

		mockStorage.On("GetLicense", ctx, "bad-device").Return(existing, nil)
		mockStorage.On("SaveLicense", ctx, mock.Anything).Return(nil)
		mockStorage.On("AddUsage", ctx, mock.Anything).Return(nil)

		status, err := service.Use(ctx, "bad-device", "hello", "aria", "127.0.0.1")
		assert.NoError(t, err)
		assert.True(t, status.Suspended)

		mockStorage.AssertExpectations(t)
	})
}

func TestLicenseService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("redeems a coupon", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		coupon := license.Coupon{
			Code:    "PRO30-AAAAAAAA-BBBB",
			Type:    "PRO30",
			Credits: 300,
			Days:    30,
		}

		mockStorage.On("GetLicense", ctx, "device-1").Return(license.License{}, license.ErrLicenseNotFound)
		mockStorage.On("SaveLicense", ctx, mock.Anything).Return(nil)
		mockStorage.On("GetCoupon", ctx, "PRO30-AAAAAAAA-BBBB").Return(coupon, nil)
		mockStorage.On("SaveCoupon", ctx, mock.MatchedBy(func(c license.Coupon) bool {
			return c.Used && c.UsedBy == "device-1"
		})).Return(nil)

		activation, err := service.Activate(ctx, "device-1", "pro30-aaaaaaaa-bbbb")
		require.NoError(t, err)

		assert.Equal(t, "License activated: Pro 30 Days", activation.Message)
		assert.Equal(t, license.TierPro, activation.Tier)
		assert.Equal(t, int64(300), activation.Credits)

		mockStorage.AssertExpectations(t)
	})

	t.Run("rejects an already used coupon", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		coupon := license.Coupon{
			Code:   "PRO30-AAAAAAAA-BBBB",
			Type:   "PRO30",
			Used:   true,
			UsedBy: "other-device",
		}

		mockStorage.On("GetLicense", ctx, "device-1").Return(license.License{DeviceID: "device-1", DailyReset: today()}, nil)
		mockStorage.On("SaveLicense", ctx, mock.Anything).Return(nil)
		mockStorage.On("GetCoupon", ctx, "PRO30-AAAAAAAA-BBBB").Return(coupon, nil)

		_, err := service.Activate(ctx, "device-1", "PRO30-AAAAAAAA-BBBB")
		assert.ErrorIs(t, err, license.ErrCouponAlreadyUsed)

		mockStorage.AssertExpectations(t)
	})

	t.Run("rejects activation for suspended devices", func(t *testing.T) {
		mockStorage := new(LicenseStorageMock)
		service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

		existing := license.License{
			DeviceID:   "bad-device",
			DailyReset: today(),
			Suspended:  true,
		}

		mockStorage.On("GetLicense", ctx, "bad-device").Return(existing, nil)
		mockStorage.On("SaveLicense", ctx, mock.Anything).Return(nil)

		_, err := service.Activate(ctx, "bad-device", "PRO30-AAAAAAAA-BBBB")
		assert.ErrorIs(t, err, license.ErrLicenseSuspended)

		mockStorage.AssertExpectations(t)
	})
}

func TestLicenseService_Notifications(t *testing.T) {
	ctx := context.Background()

	mockStorage := new(LicenseStorageMock)
	service := NewLicenseService(mockStorage, transactions.DiscardManager{}, 10)

	unseen := []license.Notification{
		{ID: 1, DeviceID: "device-1", Kind: license.NotificationBonus, Title: "🎁 Bonus Credits!"},
	}

	mockStorage.On("Notifications", ctx, "device-1", true, 0).Return(unseen, nil)
	mockStorage.On("MarkNotificationsSeen", ctx, "device-1").Return(nil)

	notifications, err := service.Notifications(ctx, "device-1")
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, "🎁 Bonus Credits!", notifications[0].Title)

	mockStorage.AssertExpectations(t)
}
