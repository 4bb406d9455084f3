package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	l := New("device-1", testNow)

	assert.Equal(t, "device-1", l.DeviceID)
	assert.Equal(t, TierFree, l.Tier)
	assert.Equal(t, "2024-06-15", l.DailyReset)
	assert.Zero(t, l.Credits)
	assert.False(t, l.Unlimited)
	assert.False(t, l.Suspended)
}

func TestLicense_Refresh(t *testing.T) {
	t.Run("resets daily usage on a new day", func(t *testing.T) {
		l := New("device-1", testNow)
		l.DailyUsed = 7
		l.DailyReset = "2024-06-14"

		l.Refresh(testNow)

		assert.Zero(t, l.DailyUsed)
		assert.Equal(t, "2024-06-15", l.DailyReset)
	})

	t.Run("keeps daily usage within the same day", func(t *testing.T) {
		l := New("device-1", testNow)
		l.DailyUsed = 7

		l.Refresh(testNow)

		assert.Equal(t, int64(7), l.DailyUsed)
	})

	t.Run("downgrades an expired pro license", func(t *testing.T) {
		l := New("device-1", testNow)
		l.Tier = TierPro
		l.Credits = 100
		l.Unlimited = true
		l.Expires = "2024-06-10"

		l.Refresh(testNow)

		assert.Equal(t, TierFree, l.Tier)
		assert.Zero(t, l.Credits)
		assert.False(t, l.Unlimited)
		assert.Empty(t, l.Expires)
	})

	t.Run("keeps a pro license valid through its expiry day", func(t *testing.T) {
		l := New("device-1", testNow)
		l.Tier = TierPro
		l.Credits = 100
		l.Expires = "2024-06-15"

		l.Refresh(testNow)

		assert.Equal(t, TierFree, l.Tier, "mid-day timestamps are after the midnight expiry mark")
	})
}

func TestLicense_CanGenerate(t *testing.T) {
	tests := []struct {
		name    string
		license License
		want    bool
	}{
		{
			name:    "suspended license",
			license: License{Tier: TierPro, Credits: 100, Suspended: true},
			want:    false,
		},
		{
			name:    "unlimited license",
			license: License{Tier: TierPro, Unlimited: true},
			want:    true,
		},
		{
			name:    "pro license with credits",
			license: License{Tier: TierPro, Credits: 1},
			want:    true,
		},
		{
			name:    "pro license without credits",
			license: License{Tier: TierPro},
			want:    false,
		},
		{
			name:    "free license under the daily limit",
			license: License{Tier: TierFree, DailyUsed: 9},
			want:    true,
		},
		{
			name:    "free license at the daily limit",
			license: License{Tier: TierFree, DailyUsed: 10},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.license.CanGenerate(10))
		})
	}
}

func TestLicense_Charge(t *testing.T) {
	t.Run("unlimited license is not charged", func(t *testing.T) {
		l := License{Tier: TierPro, Unlimited: true, Credits: 5}

		l.Charge(testNow)

		assert.Equal(t, int64(5), l.Credits)
		assert.Equal(t, int64(1), l.TotalGenerations)
	})

	t.Run("pro license burns a credit", func(t *testing.T) {
		l := License{Tier: TierPro, Credits: 5}

		l.Charge(testNow)

		assert.Equal(t, int64(4), l.Credits)
		assert.Equal(t, TierPro, l.Tier)
	})

	t.Run("pro license drops to free when the last credit is spent", func(t *testing.T) {
		l := License{Tier: TierPro, Credits: 1, Expires: "2024-12-31"}

		l.Charge(testNow)

		assert.Equal(t, TierFree, l.Tier)
		assert.Zero(t, l.Credits)
		assert.Empty(t, l.Expires)
	})

	t.Run("free license counts against the daily limit", func(t *testing.T) {
		l := License{Tier: TierFree, DailyUsed: 3}

		l.Charge(testNow)

		assert.Equal(t, int64(4), l.DailyUsed)
	})
}

func TestLicense_TierDisplay(t *testing.T) {
	tests := []struct {
		name    string
		license License
		want    string
	}{
		{"free", License{Tier: TierFree}, "Free"},
		{"unlimited with expiry", License{Tier: TierPro, Unlimited: true, Expires: "2024-07-15"}, "Pro-UNLIMITED"},
		{"lifetime", License{Tier: TierPro, Unlimited: true}, "LIFETIME"},
		{"limited pro", License{Tier: TierPro, Credits: 300}, "Pro-Limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.license.TierDisplay())
		})
	}
}

func TestLicense_Activate(t *testing.T) {
	l := New("device-1", testNow)
	l.Tier = TierPro
	l.Credits = 50

	c := Coupon{Code: "PRO30-AAAAAAAA-BBBB", Type: "PRO30", Credits: 300, Days: 30}

	l.Activate(c, testNow)

	assert.Equal(t, TierPro, l.Tier)
	assert.Equal(t, int64(350), l.Credits, "coupon credits stack on top of existing ones")
	assert.Equal(t, "2024-07-15", l.Expires)
	assert.Equal(t, c.Code, l.CouponUsed)
}

func TestLicense_Status(t *testing.T) {
	t.Run("suspended license reports a reduced state", func(t *testing.T) {
		l := License{Tier: TierPro, Credits: 100, Suspended: true}

		s := l.Status(10)

		assert.True(t, s.Suspended)
		assert.Equal(t, "Account suspended", s.SuspendReason)
		assert.Zero(t, s.Remaining)
	})

	t.Run("free license reports remaining daily generations", func(t *testing.T) {
		l := License{Tier: TierFree, DailyUsed: 3}

		s := l.Status(10)

		assert.Equal(t, int64(7), s.Remaining)
		assert.Equal(t, int64(10), s.DailyLimit)
		assert.Equal(t, "Free", s.TierDisplay)
	})
}

func TestLicense_Validation(t *testing.T) {
	t.Run("suspended", func(t *testing.T) {
		v := License{Suspended: true}.Validation(10)

		assert.False(t, v.CanGenerate)
		assert.Equal(t, "Account suspended", v.Reason)
	})

	t.Run("allowed", func(t *testing.T) {
		v := License{Tier: TierFree}.Validation(10)

		assert.True(t, v.CanGenerate)
		assert.Empty(t, v.Reason)
	})
}

func TestNewUsage(t *testing.T) {
	t.Run("short text is kept whole", func(t *testing.T) {
		u := NewUsage("device-1", "hello world", "aria", "127.0.0.1", testNow)

		assert.Equal(t, "hello world", u.TextPreview)
		assert.Equal(t, 11, u.TextLength)
	})

	t.Run("long text is truncated to a preview", func(t *testing.T) {
		text := ""
		for i := 0; i < 150; i++ {
			text += "a"
		}

		u := NewUsage("device-1", text, "aria", "127.0.0.1", testNow)

		assert.Len(t, u.TextPreview, 103)
		assert.Equal(t, "...", u.TextPreview[100:])
		assert.Equal(t, 150, u.TextLength)
	})
}
