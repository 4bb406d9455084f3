package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shayra-ai/license-server/internal/client"
	"golang.org/x/sync/errgroup"
)

// LicenseAgent keeps a device's license state fresh and surfaces server
// notifications. The desktop application reads the cached status instead
// of calling the server on every generation.
type LicenseAgent struct {
	mx       sync.RWMutex
	status   client.Status
	deviceID string
	api      licenseAPI
}

type licenseAPI interface {
	Status(ctx context.Context, deviceID string) (client.Status, error)
	Activate(ctx context.Context, deviceID, code string) (client.Activation, error)
	Notifications(ctx context.Context, deviceID string) ([]client.Notification, error)
}

func NewLicenseAgent(deviceID string, api licenseAPI) *LicenseAgent {
	return &LicenseAgent{
		mx:       sync.RWMutex{},
		deviceID: deviceID,
		api:      api,
	}
}

// Activate redeems a coupon before the polling loop starts.
func (a *LicenseAgent) Activate(ctx context.Context, code string) error {
	activation, err := a.api.Activate(ctx, a.deviceID, code)
	if err != nil {
		return fmt.Errorf("failed to activate coupon: %w", err)
	}

	slog.Info("coupon activated", "message", activation.Message, "tier", activation.Tier)

	return nil
}

func (a *LicenseAgent) Status() client.Status {
	a.mx.RLock()
	defer a.mx.RUnlock()

	return a.status
}

func (a *LicenseAgent) Run(ctx context.Context, pollInterval, notifyInterval time.Duration) error {

	slog.Info("license agent start")

	g, ctx := errgroup.WithContext(ctx)

	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	notifyTicker := time.NewTicker(notifyInterval)
	defer notifyTicker.Stop()

	g.Go(func() error {

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pollTicker.C:
				slog.Info("refreshing license status")

				if err := a.poll(ctx); err != nil {
					slog.Error("failed to refresh status", "error", err)
				}
			}
		}
	})

	g.Go(func() error {

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-notifyTicker.C:
				slog.Info("checking notifications")

				if err := a.notify(ctx); err != nil {
					slog.Error("failed to check notifications", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("license agent stop reason: %w", err)
	}

	return nil
}

func (a *LicenseAgent) poll(ctx context.Context) error {
	status, err := a.api.Status(ctx, a.deviceID)
	if err != nil {
		return fmt.Errorf("cant get status: %w", err)
	}

	a.mx.Lock()
	a.status = status
	a.mx.Unlock()

	slog.Info("license status",
		"tier", status.TierDisplay,
		"remaining", remainingString(status.Remaining),
		"suspended", status.Suspended)

	return nil
}

func (a *LicenseAgent) notify(ctx context.Context) error {
	notifications, err := a.api.Notifications(ctx, a.deviceID)
	if err != nil {
		return fmt.Errorf("cant get notifications: %w", err)
	}

	for _, n := range notifications {
		slog.Info("notification", "title", n.Title, "message", n.Message, "credits_change", n.CreditsChange)
	}

	return nil
}

// remainingString flattens the polymorphic remaining field, which is
// either a number or the string "unlimited".
func remainingString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}

	return string(raw)
}
