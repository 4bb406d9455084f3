package license

// Status is the license state reported to a device.
type Status struct {
	Tier          Tier
	TierDisplay   string
	Remaining     int64
	Unlimited     bool
	Expires       string
	DailyUsed     int64
	DailyLimit    int64
	Suspended     bool
	SuspendReason string
}

func (l License) Status(freeDailyLimit int64) Status {
	if l.Suspended {
		reason := l.SuspendReason
		if reason == "" {
			reason = "Account suspended"
		}

		return Status{
			Suspended:     true,
			SuspendReason: reason,
		}
	}

	return Status{
		Tier:        l.Tier,
		TierDisplay: l.TierDisplay(),
		Remaining:   l.Remaining(freeDailyLimit),
		Unlimited:   l.Unlimited,
		Expires:     l.Expires,
		DailyUsed:   l.DailyUsed,
		DailyLimit:  freeDailyLimit,
	}
}

type Validation struct {
	CanGenerate bool
	Reason      string
}

func (l License) Validation(freeDailyLimit int64) Validation {
	if l.Suspended {
		return Validation{Reason: "Account suspended"}
	}

	return Validation{CanGenerate: l.CanGenerate(freeDailyLimit)}
}
