package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shayra-ai/license-server/internal/license"
)

// LicenseStorage keeps the whole license state in memory, optionally
// archiving it to a file as JSON. With an archive interval below one
// second every write is archived synchronously.
type LicenseStorage struct {
	mx          sync.RWMutex
	state       state
	archiver    io.ReadWriteSeeker
	syncArchive bool
	stopArchive chan int
	nextID      int64
}

type state struct {
	Licenses      map[string]license.License `json:"licenses"`
	Coupons       map[string]license.Coupon  `json:"coupons"`
	Notifications []license.Notification     `json:"notifications"`
	Usage         []license.Usage            `json:"usage"`
}

func newState() state {
	return state{
		Licenses: make(map[string]license.License),
		Coupons:  make(map[string]license.Coupon),
	}
}

// NewLicenseStorage builds the storage. A nil archiver disables
// persistence entirely.
func NewLicenseStorage(archiver io.ReadWriteSeeker, archiveInterval int64, restore bool) (*LicenseStorage, error) {
	storage := &LicenseStorage{
		state:    newState(),
		archiver: archiver,
		nextID:   1,
	}

	if archiver == nil {
		return storage, nil
	}

	if restore {
		if err := storage.restore(); err != nil {
			return nil, fmt.Errorf("failed to restore storage: %w", err)
		}
	}

	if archiveInterval < 1 {
		storage.syncArchive = true
	} else {
		storage.stopArchive = make(chan int)

		go func() {
			for {
				time.Sleep(time.Duration(archiveInterval) * time.Second)
				select {
				case <-storage.stopArchive:
					close(storage.stopArchive)
					return
				default:
					if err := storage.archive(); err != nil {
						slog.Error("failed to archive licenses by timer", "error", err)
					}
				}
			}
		}()
	}

	return storage, nil
}

func (s *LicenseStorage) GetLicense(_ context.Context, deviceID string) (license.License, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	l, ok := s.state.Licenses[deviceID]
	if !ok {
		return license.License{}, license.ErrLicenseNotFound
	}

	return l, nil
}

func (s *LicenseStorage) SaveLicense(_ context.Context, l license.License) error {
	s.mx.Lock()
	s.state.Licenses[l.DeviceID] = l
	s.mx.Unlock()

	return s.archiveSync()
}

func (s *LicenseStorage) Licenses(_ context.Context, limit int) ([]license.License, error) {
	s.mx.RLock()

	licenses := make([]license.License, 0, len(s.state.Licenses))
	for _, l := range s.state.Licenses {
		licenses = append(licenses, l)
	}

	s.mx.RUnlock()

	sort.Slice(licenses, func(i, j int) bool {
		return licenses[i].LastActive.After(licenses[j].LastActive)
	})

	if limit > 0 && len(licenses) > limit {
		licenses = licenses[:limit]
	}

	return licenses, nil
}

func (s *LicenseStorage) GetCoupon(_ context.Context, code string) (license.Coupon, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	c, ok := s.state.Coupons[code]
	if !ok {
		return license.Coupon{}, license.ErrCouponNotFound
	}

	return c, nil
}

func (s *LicenseStorage) SaveCoupon(_ context.Context, c license.Coupon) error {
	s.mx.Lock()
	s.state.Coupons[c.Code] = c
	s.mx.Unlock()

	return s.archiveSync()
}

func (s *LicenseStorage) Coupons(_ context.Context, limit int) ([]license.Coupon, error) {
	s.mx.RLock()

	coupons := make([]license.Coupon, 0, len(s.state.Coupons))
	for _, c := range s.state.Coupons {
		coupons = append(coupons, c)
	}

	s.mx.RUnlock()

	sort.Slice(coupons, func(i, j int) bool {
		return coupons[i].CreatedAt.After(coupons[j].CreatedAt)
	})

	if limit > 0 && len(coupons) > limit {
		coupons = coupons[:limit]
	}

	return coupons, nil
}

func (s *LicenseStorage) AddNotification(_ context.Context, n license.Notification) error {
	s.mx.Lock()

	n.ID = s.nextID
	s.nextID++
	s.state.Notifications = append(s.state.Notifications, n)

	s.mx.Unlock()

	return s.archiveSync()
}

func (s *LicenseStorage) Notifications(_ context.Context, deviceID string, onlyUnseen bool, limit int) ([]license.Notification, error) {
	s.mx.RLock()

	var notifications []license.Notification

	for _, n := range s.state.Notifications {
		if n.DeviceID != deviceID {
			continue
		}

		if onlyUnseen && n.Seen {
			continue
		}

		notifications = append(notifications, n)
	}

	s.mx.RUnlock()

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}

	return notifications, nil
}

func (s *LicenseStorage) MarkNotificationsSeen(_ context.Context, deviceID string) error {
	s.mx.Lock()

	for i, n := range s.state.Notifications {
		if n.DeviceID == deviceID && !n.Seen {
			s.state.Notifications[i].Seen = true
		}
	}

	s.mx.Unlock()

	return s.archiveSync()
}

func (s *LicenseStorage) AddUsage(_ context.Context, u license.Usage) error {
	s.mx.Lock()

	u.ID = s.nextID
	s.nextID++
	s.state.Usage = append(s.state.Usage, u)

	s.mx.Unlock()

	return s.archiveSync()
}

func (s *LicenseStorage) UsageHistory(_ context.Context, deviceID string, limit int) ([]license.Usage, error) {
	s.mx.RLock()

	var usage []license.Usage

	for _, u := range s.state.Usage {
		if u.DeviceID == deviceID {
			usage = append(usage, u)
		}
	}

	s.mx.RUnlock()

	sort.Slice(usage, func(i, j int) bool {
		return usage[i].CreatedAt.After(usage[j].CreatedAt)
	})

	if limit > 0 && len(usage) > limit {
		usage = usage[:limit]
	}

	return usage, nil
}

func (s *LicenseStorage) Stats(_ context.Context) (license.Stats, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	var stats license.Stats

	stats.TotalCoupons = int64(len(s.state.Coupons))
	for _, c := range s.state.Coupons {
		if c.Used {
			stats.UsedCoupons++
		}
	}

	stats.TotalUsers = int64(len(s.state.Licenses))
	for _, l := range s.state.Licenses {
		if l.Tier == license.TierPro {
			stats.ProUsers++
		}
		if l.Suspended {
			stats.SuspendedUsers++
		}
		stats.TotalGenerations += l.TotalGenerations
	}

	return stats, nil
}

func (s *LicenseStorage) archiveSync() error {
	if s.syncArchive {
		return s.archive()
	}

	return nil
}

func (s *LicenseStorage) restore() error {
	bytes, err := io.ReadAll(s.archiver)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(bytes) == 0 {
		return nil
	}

	var restored state

	if err := json.Unmarshal(bytes, &restored); err != nil {
		return fmt.Errorf("failed to deserialize storage: %w", err)
	}

	if restored.Licenses == nil {
		restored.Licenses = make(map[string]license.License)
	}
	if restored.Coupons == nil {
		restored.Coupons = make(map[string]license.Coupon)
	}

	s.state = restored

	for _, n := range s.state.Notifications {
		if n.ID >= s.nextID {
			s.nextID = n.ID + 1
		}
	}
	for _, u := range s.state.Usage {
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}

	return nil
}

func (s *LicenseStorage) archive() error {
	if s.archiver == nil {
		return nil
	}

	s.mx.RLock()
	data, err := json.Marshal(&s.state)
	s.mx.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to serialize data: %w", err)
	}

	if _, err := s.archiver.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	if _, err := s.archiver.Write(data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (s *LicenseStorage) Close() error {
	if s.archiver == nil {
		return nil
	}

	if !s.syncArchive {
		s.stopArchive <- 1
	}

	return s.archive()
}
