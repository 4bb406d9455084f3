package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/status", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "device-1", req["device_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tier":"pro","tier_display":"Pro-UNLIMITED","remaining":"unlimited","unlimited":true,"daily_limit":10}`))
	}))
	defer server.Close()

	c := New(server.URL)

	status, err := c.Status(context.Background(), "device-1")
	require.NoError(t, err)

	assert.Equal(t, "pro", status.Tier)
	assert.True(t, status.Unlimited)
	assert.Equal(t, `"unlimited"`, string(status.Remaining))
}

func TestClient_Activate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/activate", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "PRO30-AAAAAAAA-BBBB", req["code"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"License activated: Pro 30 Days","tier":"pro","credits":300}`))
	}))
	defer server.Close()

	c := New(server.URL)

	activation, err := c.Activate(context.Background(), "device-1", "PRO30-AAAAAAAA-BBBB")
	require.NoError(t, err)

	assert.True(t, activation.Success)
	assert.Equal(t, "License activated: Pro 30 Days", activation.Message)
	assert.Equal(t, int64(300), activation.Credits)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid coupon code"}`))
	}))
	defer server.Close()

	c := New(server.URL)

	_, err := c.Activate(context.Background(), "device-1", "WRONG-CODE")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)

	assert.Equal(t, "Invalid coupon code", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClient_Notifications(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/notifications", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"notifications":[{"id":1,"type":"bonus","title":"🎁 Bonus Credits!","credits_change":50}]}`))
	}))
	defer server.Close()

	c := New(server.URL)

	notifications, err := c.Notifications(context.Background(), "device-1")
	require.NoError(t, err)

	require.Len(t, notifications, 1)
	assert.Equal(t, "🎁 Bonus Credits!", notifications[0].Title)
	assert.Equal(t, int64(50), notifications[0].CreditsChange)
}

func TestNew_AddressPrefix(t *testing.T) {
	assert.Equal(t, "http://localhost:5005", New("localhost:5005").address)
	assert.Equal(t, "http://localhost:5005", New("http://localhost:5005").address)
	assert.Equal(t, "https://license.example.com", New("https://license.example.com").address)
}
