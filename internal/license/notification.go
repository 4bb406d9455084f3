package license

import "time"

type NotificationKind string

const (
	NotificationSuspend   NotificationKind = "suspend"
	NotificationUnsuspend NotificationKind = "unsuspend"
	NotificationBonus     NotificationKind = "bonus"
	NotificationPenalty   NotificationKind = "penalty"
)

func (k NotificationKind) String() string {
	return string(k)
}

// Notification is a one-shot message shown to a device, written by admin
// actions and delivered (and marked seen) on the next poll.
type Notification struct {
	ID            int64
	DeviceID      string
	Kind          NotificationKind
	Title         string
	Message       string
	CreditsChange int64
	Seen          bool
	CreatedAt     time.Time
}
