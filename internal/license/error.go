package license

import "errors"

var (
	ErrLicenseNotFound     = errors.New("license not found")
	ErrLicenseSuspended    = errors.New("license suspended")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponAlreadyUsed   = errors.New("coupon already used")
	ErrIncorrectCouponType = errors.New("incorrect coupon type")
	ErrIncorrectCredits    = errors.New("credits must be positive")
)
