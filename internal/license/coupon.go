package license

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type Coupon struct {
	Code      string
	Type      string
	Credits   int64
	Days      int
	Unlimited bool
	Used      bool
	UsedBy    string
	UsedAt    time.Time
	CreatedAt time.Time
}

type CouponType struct {
	Name      string
	Credits   int64
	Days      int
	Unlimited bool
}

var CouponTypes = map[string]CouponType{
	"PRO30": {Name: "Pro 30 Days", Credits: 300, Days: 30},
	"PRO90": {Name: "Pro 90 Days", Credits: 1500, Days: 90},
	"UNL7":  {Name: "Unlimited 7 Days", Days: 7, Unlimited: true},
	"UNL30": {Name: "Unlimited 30 Days", Days: 30, Unlimited: true},
	"UNL90": {Name: "Unlimited 90 Days", Days: 90, Unlimited: true},
	"LIFE":  {Name: "Lifetime", Days: 36500, Unlimited: true},
}

// TypeName returns the human readable name of a coupon type, falling
// back to "Pro" for codes of retired types.
func TypeName(couponType string) string {
	if info, ok := CouponTypes[couponType]; ok {
		return info.Name
	}

	return "Pro"
}

func NewCoupon(couponType, secret string, now time.Time) (Coupon, error) {
	info, ok := CouponTypes[couponType]
	if !ok {
		return Coupon{}, ErrIncorrectCouponType
	}

	code, err := NewCode(couponType, secret)
	if err != nil {
		return Coupon{}, err
	}

	return Coupon{
		Code:      code,
		Type:      couponType,
		Credits:   info.Credits,
		Days:      info.Days,
		Unlimited: info.Unlimited,
		CreatedAt: now,
	}, nil
}

// NewCode builds a coupon code of the form TYPE-RRRRRRRR-SSSS where R is
// a random hex part and S the first four hex chars of
// sha256("TYPE-RRRRRRRR-<secret>").
func NewCode(couponType, secret string) (string, error) {
	buf := make([]byte, 4)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	random := strings.ToUpper(hex.EncodeToString(buf))

	sum := sha256.Sum256([]byte(couponType + "-" + random + "-" + secret))
	sign := strings.ToUpper(hex.EncodeToString(sum[:2]))

	return couponType + "-" + random + "-" + sign, nil
}

func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Redeem marks the coupon as spent by the device.
func (c *Coupon) Redeem(deviceID string, now time.Time) error {
	if c.Used {
		return ErrCouponAlreadyUsed
	}

	c.Used = true
	c.UsedBy = deviceID
	c.UsedAt = now

	return nil
}

type Activation struct {
	Message   string
	Tier      Tier
	Credits   int64
	Unlimited bool
	Expires   string
}
