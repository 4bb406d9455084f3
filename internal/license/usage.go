package license

import "time"

const previewLength = 100

type Usage struct {
	ID          int64
	DeviceID    string
	TextPreview string
	TextLength  int
	Voice       string
	IPAddress   string
	CreatedAt   time.Time
}

// NewUsage builds a usage log entry; only a short preview of the spoken
// text is retained.
func NewUsage(deviceID, text, voice, ipAddress string, now time.Time) Usage {
	preview := text

	if runes := []rune(text); len(runes) > previewLength {
		preview = string(runes[:previewLength]) + "..."
	}

	return Usage{
		DeviceID:    deviceID,
		TextPreview: preview,
		TextLength:  len([]rune(text)),
		Voice:       voice,
		IPAddress:   ipAddress,
		CreatedAt:   now,
	}
}
