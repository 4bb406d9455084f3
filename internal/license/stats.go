package license

type Stats struct {
	TotalCoupons     int64
	UsedCoupons      int64
	TotalUsers       int64
	ProUsers         int64
	SuspendedUsers   int64
	TotalGenerations int64
}

type Overview struct {
	Stats         Stats
	RecentCoupons []Coupon
	RecentUsers   []License
}

type UserDetail struct {
	License       License
	Usage         []Usage
	Notifications []Notification
}
