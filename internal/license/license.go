package license

import (
	"strings"
	"time"
)

// DateLayout is the wire format for expiry and daily reset dates.
const DateLayout = "2006-01-02"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func ParseTier(s string) Tier {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return Tier(s)
}

func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierPro:
		return true
	default:
		return false
	}
}

func (t Tier) String() string {
	return string(t)
}

type License struct {
	DeviceID         string
	Tier             Tier
	Credits          int64
	Unlimited        bool
	Expires          string
	DailyUsed        int64
	DailyReset       string
	CouponUsed       string
	Suspended        bool
	SuspendReason    string
	TotalGenerations int64
	LastActive       time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// New returns a fresh free tier license for the device.
func New(deviceID string, now time.Time) License {
	return License{
		DeviceID:   deviceID,
		Tier:       TierFree,
		DailyReset: now.Format(DateLayout),
		LastActive: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Refresh applies the daily usage reset and the expiry downgrade.
// Expired licenses fall back to the free tier and lose their credits.
func (l *License) Refresh(now time.Time) {
	today := now.Format(DateLayout)

	if l.DailyReset != today {
		l.DailyUsed = 0
		l.DailyReset = today
		l.UpdatedAt = now
	}

	if l.Expired(now) {
		l.Tier = TierFree
		l.Credits = 0
		l.Unlimited = false
		l.Expires = ""
		l.UpdatedAt = now
	}
}

func (l License) Expired(now time.Time) bool {
	if l.Expires == "" {
		return false
	}

	expiry, err := time.Parse(DateLayout, l.Expires)
	if err != nil {
		return false
	}

	return now.After(expiry)
}

func (l License) CanGenerate(freeDailyLimit int64) bool {
	switch {
	case l.Suspended:
		return false
	case l.Unlimited:
		return true
	case l.Tier == TierPro && l.Credits > 0:
		return true
	case l.Tier == TierFree && l.DailyUsed < freeDailyLimit:
		return true
	default:
		return false
	}
}

// Remaining reports how many generations are left; meaningless for
// unlimited licenses, callers must check Unlimited first.
func (l License) Remaining(freeDailyLimit int64) int64 {
	if l.Tier == TierPro {
		return l.Credits
	}

	return freeDailyLimit - l.DailyUsed
}

func (l License) TierDisplay() string {
	switch {
	case l.Tier == TierFree:
		return "Free"
	case l.Unlimited && l.Expires != "":
		return "Pro-UNLIMITED"
	case l.Unlimited:
		return "LIFETIME"
	default:
		return "Pro-Limited"
	}
}

// Charge records one generation and deducts it: unlimited licenses are
// not charged, pro licenses burn a credit and drop back to free when the
// last one is spent, free licenses count against the daily limit.
func (l *License) Charge(now time.Time) {
	l.TotalGenerations++
	l.LastActive = now
	l.UpdatedAt = now

	switch {
	case l.Unlimited:
	case l.Tier == TierPro && l.Credits > 0:
		l.Credits--
		if l.Credits <= 0 {
			l.Tier = TierFree
			l.Credits = 0
			l.Unlimited = false
			l.Expires = ""
		}
	default:
		l.DailyUsed++
	}
}

// Activate applies a redeemed coupon. Credits are added on top of any the
// license already holds.
func (l *License) Activate(c Coupon, now time.Time) {
	l.Tier = TierPro
	l.Credits += c.Credits
	l.Unlimited = c.Unlimited
	l.Expires = now.AddDate(0, 0, c.Days).Format(DateLayout)
	l.CouponUsed = c.Code
	l.UpdatedAt = now
}

func (l *License) Touch(now time.Time) {
	l.LastActive = now
}
