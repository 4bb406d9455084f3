package v1

import (
	"time"

	"github.com/shayra-ai/license-server/internal/license"
)

type deviceRequest struct {
	DeviceID string `json:"device_id"`
}

func (r deviceRequest) deviceID() string { return r.DeviceID }

type useRequest struct {
	DeviceID string `json:"device_id"`
	Text     string `json:"text"`
	Voice    string `json:"voice"`
}

func (r useRequest) deviceID() string { return r.DeviceID }

type activateRequest struct {
	DeviceID string `json:"device_id"`
	Code     string `json:"code"`
}

func (r activateRequest) deviceID() string { return r.DeviceID }

type statusResponse struct {
	Tier        string  `json:"tier"`
	TierDisplay string  `json:"tier_display"`
	Remaining   any     `json:"remaining"`
	Unlimited   bool    `json:"unlimited"`
	Expires     *string `json:"expires"`
	DailyUsed   int64   `json:"daily_used"`
	DailyLimit  int64   `json:"daily_limit"`
	Suspended   bool    `json:"suspended"`
}

type suspendedStatusResponse struct {
	Suspended     bool   `json:"suspended"`
	SuspendReason string `json:"suspend_reason"`
	Remaining     int64  `json:"remaining"`
}

// convertStatus keeps the wire shape of the original service: suspended
// devices get a reduced payload and remaining degrades to the string
// "unlimited" for unlimited licenses.
func convertStatus(s license.Status) any {
	if s.Suspended {
		return suspendedStatusResponse{
			Suspended:     true,
			SuspendReason: s.SuspendReason,
		}
	}

	res := statusResponse{
		Tier:        s.Tier.String(),
		TierDisplay: s.TierDisplay,
		DailyUsed:   s.DailyUsed,
		DailyLimit:  s.DailyLimit,
		Unlimited:   s.Unlimited,
		Expires:     optional(s.Expires),
	}

	if s.Unlimited {
		res.Remaining = "unlimited"
	} else {
		res.Remaining = s.Remaining
	}

	return res
}

type validationResponse struct {
	CanGenerate bool   `json:"can_generate"`
	Reason      string `json:"reason,omitempty"`
}

func convertValidation(v license.Validation) validationResponse {
	return validationResponse{
		CanGenerate: v.CanGenerate,
		Reason:      v.Reason,
	}
}

type activationResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Tier      string `json:"tier"`
	Credits   int64  `json:"credits"`
	Unlimited bool   `json:"unlimited"`
	Expires   string `json:"expires"`
}

func convertActivation(a license.Activation) activationResponse {
	return activationResponse{
		Success:   true,
		Message:   a.Message,
		Tier:      a.Tier.String(),
		Credits:   a.Credits,
		Unlimited: a.Unlimited,
		Expires:   a.Expires,
	}
}

type notificationResponse struct {
	ID            int64     `json:"id"`
	DeviceID      string    `json:"device_id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	CreditsChange int64     `json:"credits_change"`
	Seen          bool      `json:"seen"`
	CreatedAt     time.Time `json:"created_at"`
}

type notificationsResponse struct {
	Notifications []notificationResponse `json:"notifications"`
}

func convertNotifications(notifications []license.Notification) notificationsResponse {
	res := notificationsResponse{
		Notifications: make([]notificationResponse, 0, len(notifications)),
	}

	for _, n := range notifications {
		res.Notifications = append(res.Notifications, notificationResponse{
			ID:            n.ID,
			DeviceID:      n.DeviceID,
			Type:          n.Kind.String(),
			Title:         n.Title,
			Message:       n.Message,
			CreditsChange: n.CreditsChange,
			Seen:          n.Seen,
			CreatedAt:     n.CreatedAt,
		})
	}

	return res
}

type licenseResponse struct {
	DeviceID         string    `json:"device_id"`
	Tier             string    `json:"tier"`
	Credits          int64     `json:"credits"`
	Unlimited        bool      `json:"unlimited"`
	Expires          *string   `json:"expires"`
	DailyUsed        int64     `json:"daily_used"`
	DailyReset       string    `json:"daily_reset"`
	CouponUsed       string    `json:"coupon_used,omitempty"`
	Suspended        bool      `json:"suspended"`
	SuspendReason    string    `json:"suspend_reason,omitempty"`
	TotalGenerations int64     `json:"total_generations"`
	LastActive       time.Time `json:"last_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func convertLicense(l license.License) licenseResponse {
	return licenseResponse{
		DeviceID:         l.DeviceID,
		Tier:             l.Tier.String(),
		Credits:          l.Credits,
		Unlimited:        l.Unlimited,
		Expires:          optional(l.Expires),
		DailyUsed:        l.DailyUsed,
		DailyReset:       l.DailyReset,
		CouponUsed:       l.CouponUsed,
		Suspended:        l.Suspended,
		SuspendReason:    l.SuspendReason,
		TotalGenerations: l.TotalGenerations,
		LastActive:       l.LastActive,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func convertLicenses(licenses []license.License) []licenseResponse {
	res := make([]licenseResponse, 0, len(licenses))

	for _, l := range licenses {
		res = append(res, convertLicense(l))
	}

	return res
}

type couponResponse struct {
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	Credits   int64      `json:"credits"`
	Days      int        `json:"days"`
	Unlimited bool       `json:"unlimited"`
	Used      bool       `json:"used"`
	UsedBy    string     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func convertCoupons(coupons []license.Coupon) []couponResponse {
	res := make([]couponResponse, 0, len(coupons))

	for _, c := range coupons {
		cr := couponResponse{
			Code:      c.Code,
			Type:      c.Type,
			Credits:   c.Credits,
			Days:      c.Days,
			Unlimited: c.Unlimited,
			Used:      c.Used,
			UsedBy:    c.UsedBy,
			CreatedAt: c.CreatedAt,
		}

		if !c.UsedAt.IsZero() {
			usedAt := c.UsedAt
			cr.UsedAt = &usedAt
		}

		res = append(res, cr)
	}

	return res
}

type usageResponse struct {
	ID          int64     `json:"id"`
	DeviceID    string    `json:"device_id"`
	TextPreview string    `json:"text_preview"`
	TextLength  int       `json:"text_length"`
	Voice       string    `json:"voice"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

func convertUsage(usage []license.Usage) []usageResponse {
	res := make([]usageResponse, 0, len(usage))

	for _, u := range usage {
		res = append(res, usageResponse{
			ID:          u.ID,
			DeviceID:    u.DeviceID,
			TextPreview: u.TextPreview,
			TextLength:  u.TextLength,
			Voice:       u.Voice,
			IPAddress:   u.IPAddress,
			CreatedAt:   u.CreatedAt,
		})
	}

	return res
}

type statsResponse struct {
	TotalCoupons     int64 `json:"total_coupons"`
	UsedCoupons      int64 `json:"used_coupons"`
	TotalUsers       int64 `json:"total_users"`
	ProUsers         int64 `json:"pro_users"`
	SuspendedUsers   int64 `json:"suspended_users"`
	TotalGenerations int64 `json:"total_generations"`
}

func convertStats(s license.Stats) statsResponse {
	return statsResponse(s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
