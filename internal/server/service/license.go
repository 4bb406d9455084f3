package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shayra-ai/license-server/internal/license"
)

type LicenseService struct {
	storage        LicenseStorage
	tm             transactionManager
	freeDailyLimit int64
}

func NewLicenseService(storage LicenseStorage, tm transactionManager, freeDailyLimit int64) *LicenseService {
	return &LicenseService{
		storage:        storage,
		tm:             tm,
		freeDailyLimit: freeDailyLimit,
	}
}

type transactionManager interface {
	Do(context.Context, func(context.Context) error) error
}

type LicenseStorage interface {
	GetLicense(ctx context.Context, deviceID string) (license.License, error)
	SaveLicense(ctx context.Context, l license.License) error
	GetCoupon(ctx context.Context, code string) (license.Coupon, error)
	SaveCoupon(ctx context.Context, c license.Coupon) error
	AddNotification(ctx context.Context, n license.Notification) error
	Notifications(ctx context.Context, deviceID string, onlyUnseen bool, limit int) ([]license.Notification, error)
	MarkNotificationsSeen(ctx context.Context, deviceID string) error
	AddUsage(ctx context.Context, u license.Usage) error
}

// Status reports the current license state for the device, creating a
// free tier license for unknown devices.
func (s *LicenseService) Status(ctx context.Context, deviceID string) (license.Status, error) {
	var l license.License

	err := s.tm.Do(ctx, func(ctx context.Context) error {
		var err error
		l, err = s.loadOrCreate(ctx, deviceID, time.Now())
		return err
	})

	if err != nil {
		return license.Status{}, err
	}

	return l.Status(s.freeDailyLimit), nil
}

// Validate answers whether the device may run a generation right now.
func (s *LicenseService) Validate(ctx context.Context, deviceID string) (license.Validation, error) {
	var l license.License

	err := s.tm.Do(ctx, func(ctx context.Context) error {
		var err error
		l, err = s.loadOrCreate(ctx, deviceID, time.Now())
		return err
	})

	if err != nil {
		return license.Validation{}, err
	}

	return l.Validation(s.freeDailyLimit), nil
}

// Use logs one generation and deducts it from the license, then reports
// the resulting state.
func (s *LicenseService) Use(ctx context.Context, deviceID, text, voice, ipAddress string) (license.Status, error) {
	var l license.License

	err := s.tm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()

		var err error

		l, err = s.loadOrCreate(ctx, deviceID, now)
		if err != nil {
			return err
		}

		if err := s.storage.AddUsage(ctx, license.NewUsage(deviceID, text, voice, ipAddress, now)); err != nil {
			return fmt.Errorf("can not log usage: %w", err)
		}

		l.Charge(now)

		if err := s.storage.SaveLicense(ctx, l); err != nil {
			return fmt.Errorf("can not save license: %w", err)
		}

		return nil
	})

	if err != nil {
		return license.Status{}, err
	}

	return l.Status(s.freeDailyLimit), nil
}

// Activate redeems a coupon code for the device.
func (s *LicenseService) Activate(ctx context.Context, deviceID, code string) (license.Activation, error) {
	var result license.Activation

	err := s.tm.Do(ctx, func(ctx context.Context) error {
		now := time.Now()

		l, err := s.loadOrCreate(ctx, deviceID, now)
		if err != nil {
			return err
		}

		if l.Suspended {
			return license.ErrLicenseSuspended
		}

		coupon, err := s.storage.GetCoupon(ctx, license.NormalizeCode(code))
		if err != nil {
			return err
		}

		if err := coupon.Redeem(deviceID, now); err != nil {
			return err
		}

		if err := s.storage.SaveCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("can not save coupon: %w", err)
		}

		l.Activate(coupon, now)

		if err := s.storage.SaveLicense(ctx, l); err != nil {
			return fmt.Errorf("can not save license: %w", err)
		}

		result = license.Activation{
			Message:   "License activated: " + license.TypeName(coupon.Type),
			Tier:      l.Tier,
			Credits:   l.Credits,
			Unlimited: coupon.Unlimited,
			Expires:   l.Expires,
		}

		return nil
	})

	if err != nil {
		return license.Activation{}, err
	}

	return result, nil
}

// Notifications returns the unseen notifications for the device and
// marks them seen.
func (s *LicenseService) Notifications(ctx context.Context, deviceID string) ([]license.Notification, error) {
	var notifications []license.Notification

	err := s.tm.Do(ctx, func(ctx context.Context) error {
		var err error

		notifications, err = s.storage.Notifications(ctx, deviceID, true, 0)
		if err != nil {
			return err
		}

		return s.storage.MarkNotificationsSeen(ctx, deviceID)
	})

	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (s *LicenseService) loadOrCreate(ctx context.Context, deviceID string, now time.Time) (license.License, error) {
	l, err := s.storage.GetLicense(ctx, deviceID)

	if err != nil {
		if !errors.Is(err, license.ErrLicenseNotFound) {
			return license.License{}, err
		}

		l = license.New(deviceID, now)
	}

	l.Touch(now)
	l.Refresh(now)

	if err := s.storage.SaveLicense(ctx, l); err != nil {
		return license.License{}, fmt.Errorf("can not save license: %w", err)
	}

	return l, nil
}
