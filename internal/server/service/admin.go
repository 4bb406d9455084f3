package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shayra-ai/license-server/internal/license"
)

const (
	recentLimit       = 10
	usageHistoryLimit = 50
	notificationLimit = 20
)

type AdminService struct {
	storage AdminStorage
	tm      transactionManager
	secret  string
}

func NewAdminService(storage AdminStorage, tm transactionManager, secret string) *AdminService {
	return &AdminService{
		storage: storage,
		tm:      tm,
		secret:  secret,
	}
}

type AdminStorage interface {
	GetLicense(ctx context.Context, deviceID string) (license.License, error)
	SaveLicense(ctx context.Context, l license.License) error
	Licenses(ctx context.Context, limit int) ([]license.License, error)
	SaveCoupon(ctx context.Context, c license.Coupon) error
	Coupons(ctx context.Context, limit int) ([]license.Coupon, error)
	AddNotification(ctx context.Context, n license.Notification) error
	Notifications(ctx context.Context, deviceID string, onlyUnseen bool, limit int) ([]license.Notification, error)
	UsageHistory(ctx context.Context, deviceID string, limit int) ([]license.Usage, error)
	Stats(ctx context.Context) (license.Stats, error)
}

// GenerateCoupons mints count coupons of the given type and returns
// their codes.
func (s *AdminService) GenerateCoupons(ctx context.Context, couponType string, count int) ([]string, error) {
	if _, ok := license.CouponTypes[couponType]; !ok {
		return nil, license.ErrIncorrectCouponType
	}

	if count < 1 {
		count = 1
	}

	codes := make([]string, 0, count)

	err := s.tm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()

		for i := 0; i < count; i++ {
			coupon, err := license.NewCoupon(couponType, s.secret, now)
			if err != nil {
				return err
			}

			if err := s.storage.SaveCoupon(ctx, coupon); err != nil {
				return fmt.Errorf("can not save coupon: %w", err)
			}

			codes = append(codes, coupon.Code)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return codes, nil
}

func (s *AdminService) Suspend(ctx context.Context, deviceID, reason string) error {
	return s.tm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()

		l, err := s.storage.GetLicense(ctx, deviceID)
		if err != nil {
			return err
		}

		l.Suspended = true
		l.SuspendReason = reason
		l.UpdatedAt = now

		if err := s.storage.SaveLicense(ctx, l); err != nil {
			return fmt.Errorf("can not save license: %w", err)
		}

		message := reason
		if message == "" {
			message = "Your account has been suspended."
		}

		return s.storage.AddNotification(ctx, license.Notification{
			DeviceID:  deviceID,
			Kind:      license.NotificationSuspend,
			Title:     "⚠️ Account Suspended",
			Message:   message,
			CreatedAt: now,
		})
	})
}

func (s *AdminService) Unsuspend(ctx context.Context, deviceID string) error {
	return s.tm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()

		l, err := s.storage.GetLicense(ctx, deviceID)
		if err != nil {
			return err
		}

		l.Suspended = false
		l.SuspendReason = ""
		l.UpdatedAt = now

		if err := s.storage.SaveLicense(ctx, l); err != nil {
			return fmt.Errorf("can not save license: %w", err)
		}

		return s.storage.AddNotification(ctx, license.Notification{
			DeviceID:  deviceID,
			Kind:      license.NotificationUnsuspend,
			Title:     "✅ Account Restored",
			Message:   "Your account has been restored.",
			CreatedAt: now,
		})
	})
}

// Bonus adds credits to a device and promotes it to the pro tier.
func (s *AdminService) Bonus(ctx context.Context, deviceID string, credits int64, message string) error {
	if credits <= 0 {
		return license.ErrIncorrectCredits
	}

	if message == "" {
		message = "You received bonus credits!"
	}

	return s.tm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()

		l, err := s.storage.GetLicense(ctx, deviceID)
		if err != nil {
			return err
		}

		l.Credits += credits
		l.Tier = license.TierPro
		l.UpdatedAt = now

		if err := s.storage.SaveLicense(ctx, l); err != nil {
			return fmt.Errorf("can not save license: %w", err)
		}

		return s.storage.AddNotification(ctx, license.Notification{
			DeviceID:      deviceID,
			Kind:          license.NotificationBonus,
			Title:         "🎁 Bonus Credits!",
			Message:       message,
			CreditsChange: credits,
			CreatedAt:     now,
		})
	})
}

// Penalty deducts credits from a device, never going below zero.
func (s *AdminService) Penalty(ctx context.Context, deviceID string, credits int64, reason string) error {
	if credits <= 0 {
		return license.ErrIncorrectCredits
	}

	if reason == "" {
		reason = "Credits deducted"
	}

	return s.tm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()

		l, err := s.storage.GetLicense(ctx, deviceID)
		if err != nil {
			return err
		}

		l.Credits -= credits
		if l.Credits < 0 {
			l.Credits = 0
		}
		l.UpdatedAt = now

		if err := s.storage.SaveLicense(ctx, l); err != nil {
			return fmt.Errorf("can not save license: %w", err)
		}

		return s.storage.AddNotification(ctx, license.Notification{
			DeviceID:      deviceID,
			Kind:          license.NotificationPenalty,
			Title:         "⚠️ Credits Deducted",
			Message:       reason,
			CreditsChange: -credits,
			CreatedAt:     now,
		})
	})
}

func (s *AdminService) Overview(ctx context.Context) (license.Overview, error) {
	stats, err := s.storage.Stats(ctx)
	if err != nil {
		return license.Overview{}, err
	}

	coupons, err := s.storage.Coupons(ctx, recentLimit)
	if err != nil {
		return license.Overview{}, err
	}

	users, err := s.storage.Licenses(ctx, recentLimit)
	if err != nil {
		return license.Overview{}, err
	}

	return license.Overview{
		Stats:         stats,
		RecentCoupons: coupons,
		RecentUsers:   users,
	}, nil
}

func (s *AdminService) Users(ctx context.Context) ([]license.License, error) {
	return s.storage.Licenses(ctx, 0)
}

func (s *AdminService) UserDetail(ctx context.Context, deviceID string) (license.UserDetail, error) {
	l, err := s.storage.GetLicense(ctx, deviceID)
	if err != nil {
		return license.UserDetail{}, err
	}

	usage, err := s.storage.UsageHistory(ctx, deviceID, usageHistoryLimit)
	if err != nil {
		return license.UserDetail{}, err
	}

	notifications, err := s.storage.Notifications(ctx, deviceID, false, notificationLimit)
	if err != nil {
		return license.UserDetail{}, err
	}

	return license.UserDetail{
		License:       l,
		Usage:         usage,
		Notifications: notifications,
	}, nil
}
