package memory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shayra-ai/license-server/internal/license"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLicenseStorage_Licenses(t *testing.T) {
	ctx := context.Background()

	storage, err := NewLicenseStorage(nil, 0, false)
	require.NoError(t, err)

	_, err = storage.GetLicense(ctx, "device-1")
	assert.ErrorIs(t, err, license.ErrLicenseNotFound)

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	first := license.New("device-1", now)
	second := license.New("device-2", now.Add(time.Hour))

	require.NoError(t, storage.SaveLicense(ctx, first))
	require.NoError(t, storage.SaveLicense(ctx, second))

	got, err := storage.GetLicense(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	t.Run("ordered by last activity", func(t *testing.T) {
		licenses, err := storage.Licenses(ctx, 0)
		require.NoError(t, err)
		require.Len(t, licenses, 2)

		assert.Equal(t, "device-2", licenses[0].DeviceID)
		assert.Equal(t, "device-1", licenses[1].DeviceID)
	})

	t.Run("limited listing", func(t *testing.T) {
		licenses, err := storage.Licenses(ctx, 1)
		require.NoError(t, err)
		require.Len(t, licenses, 1)

		assert.Equal(t, "device-2", licenses[0].DeviceID)
	})
}

func TestLicenseStorage_Coupons(t *testing.T) {
	ctx := context.Background()

	storage, err := NewLicenseStorage(nil, 0, false)
	require.NoError(t, err)

	_, err = storage.GetCoupon(ctx, "PRO30-AAAAAAAA-BBBB")
	assert.ErrorIs(t, err, license.ErrCouponNotFound)

	coupon := license.Coupon{
		Code:      "PRO30-AAAAAAAA-BBBB",
		Type:      "PRO30",
		Credits:   300,
		Days:      30,
		CreatedAt: time.Now(),
	}

	require.NoError(t, storage.SaveCoupon(ctx, coupon))

	got, err := storage.GetCoupon(ctx, coupon.Code)
	require.NoError(t, err)
	assert.Equal(t, coupon, got)
}

func TestLicenseStorage_Notifications(t *testing.T) {
	ctx := context.Background()

	storage, err := NewLicenseStorage(nil, 0, false)
	require.NoError(t, err)

	now := time.Now()

	require.NoError(t, storage.AddNotification(ctx, license.Notification{
		DeviceID:  "device-1",
		Kind:      license.NotificationBonus,
		Title:     "🎁 Bonus Credits!",
		CreatedAt: now,
	}))
	require.NoError(t, storage.AddNotification(ctx, license.Notification{
		DeviceID:  "device-2",
		Kind:      license.NotificationSuspend,
		CreatedAt: now,
	}))

	unseen, err := storage.Notifications(ctx, "device-1", true, 0)
	require.NoError(t, err)
	require.Len(t, unseen, 1)

	assert.NotZero(t, unseen[0].ID)
	assert.Equal(t, "🎁 Bonus Credits!", unseen[0].Title)

	require.NoError(t, storage.MarkNotificationsSeen(ctx, "device-1"))

	unseen, err = storage.Notifications(ctx, "device-1", true, 0)
	require.NoError(t, err)
	assert.Empty(t, unseen)

	t.Run("seen notifications stay visible to listing", func(t *testing.T) {
		all, err := storage.Notifications(ctx, "device-1", false, 0)
		require.NoError(t, err)
		require.Len(t, all, 1)

		assert.True(t, all[0].Seen)
	})

	t.Run("other devices are not affected", func(t *testing.T) {
		unseen, err := storage.Notifications(ctx, "device-2", true, 0)
		require.NoError(t, err)
		assert.Len(t, unseen, 1)
	})
}

func TestLicenseStorage_Stats(t *testing.T) {
	ctx := context.Background()

	storage, err := NewLicenseStorage(nil, 0, false)
	require.NoError(t, err)

	now := time.Now()

	pro := license.New("device-1", now)
	pro.Tier = license.TierPro
	pro.TotalGenerations = 5

	suspended := license.New("device-2", now)
	suspended.Suspended = true
	suspended.TotalGenerations = 2

	require.NoError(t, storage.SaveLicense(ctx, pro))
	require.NoError(t, storage.SaveLicense(ctx, suspended))
	require.NoError(t, storage.SaveCoupon(ctx, license.Coupon{Code: "PRO30-AAAAAAAA-BBBB", Used: true}))
	require.NoError(t, storage.SaveCoupon(ctx, license.Coupon{Code: "PRO30-CCCCCCCC-DDDD"}))

	stats, err := storage.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.ProUsers)
	assert.Equal(t, int64(1), stats.SuspendedUsers)
	assert.Equal(t, int64(2), stats.TotalCoupons)
	assert.Equal(t, int64(1), stats.UsedCoupons)
	assert.Equal(t, int64(7), stats.TotalGenerations)
}

func TestLicenseStorage_ArchiveAndRestore(t *testing.T) {
	ctx := context.Background()

	file, err := os.CreateTemp(t.TempDir(), "licenses-*.json")
	require.NoError(t, err)

	storage, err := NewLicenseStorage(file, 0, false)
	require.NoError(t, err)

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	l := license.New("device-1", now)
	l.Tier = license.TierPro
	l.Credits = 300

	require.NoError(t, storage.SaveLicense(ctx, l))
	require.NoError(t, storage.AddNotification(ctx, license.Notification{DeviceID: "device-1", Kind: license.NotificationBonus, CreatedAt: now}))
	require.NoError(t, storage.Close())

	_, err = file.Seek(0, 0)
	require.NoError(t, err)

	restored, err := NewLicenseStorage(file, 0, true)
	require.NoError(t, err)

	got, err := restored.GetLicense(ctx, "device-1")
	require.NoError(t, err)

	assert.Equal(t, license.TierPro, got.Tier)
	assert.Equal(t, int64(300), got.Credits)

	t.Run("id sequence continues after restore", func(t *testing.T) {
		require.NoError(t, restored.AddNotification(ctx, license.Notification{DeviceID: "device-1", Kind: license.NotificationPenalty, CreatedAt: now}))

		notifications, err := restored.Notifications(ctx, "device-1", true, 0)
		require.NoError(t, err)
		require.Len(t, notifications, 2)

		assert.NotEqual(t, notifications[0].ID, notifications[1].ID)
	})
}
