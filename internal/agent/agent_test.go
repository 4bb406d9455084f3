package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shayra-ai/license-server/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type licenseAPIMock struct {
	status        client.Status
	statusErr     error
	notifications []client.Notification
	activations   []string
}

func (m *licenseAPIMock) Status(_ context.Context, _ string) (client.Status, error) {
	return m.status, m.statusErr
}

func (m *licenseAPIMock) Activate(_ context.Context, _ string, code string) (client.Activation, error) {
	m.activations = append(m.activations, code)
	return client.Activation{Success: true, Message: "License activated: Pro 30 Days"}, nil
}

func (m *licenseAPIMock) Notifications(_ context.Context, _ string) ([]client.Notification, error) {
	return m.notifications, nil
}

func TestLicenseAgent_Activate(t *testing.T) {
	api := &licenseAPIMock{}
	agent := NewLicenseAgent("device-1", api)

	err := agent.Activate(context.Background(), "PRO30-AAAAAAAA-BBBB")
	require.NoError(t, err)

	assert.Equal(t, []string{"PRO30-AAAAAAAA-BBBB"}, api.activations)
}

func TestLicenseAgent_Run(t *testing.T) {
	api := &licenseAPIMock{
		status: client.Status{
			Tier:        "pro",
			TierDisplay: "Pro-Limited",
			Remaining:   json.RawMessage(`300`),
		},
	}

	agent := NewLicenseAgent("device-1", api)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := agent.Run(ctx, 10*time.Millisecond, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	status := agent.Status()
	assert.Equal(t, "pro", status.Tier)
	assert.Equal(t, "300", string(status.Remaining))
}

func TestRemainingString(t *testing.T) {
	assert.Equal(t, "unlimited", remainingString(json.RawMessage(`"unlimited"`)))
	assert.Equal(t, "42", remainingString(json.RawMessage(`42`)))
}
