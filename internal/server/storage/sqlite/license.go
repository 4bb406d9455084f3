package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shayra-ai/license-server/internal/license"
)

type LicenseStorage struct {
	db *sqlx.DB
}

func NewLicenseStorage(db *sqlx.DB) (*LicenseStorage, error) {
	s := &LicenseStorage{db: db}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// q returns the transaction carried by the context, falling back to the
// plain connection.
func (s *LicenseStorage) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(ctxTxKey{}).(*sqlx.Tx); ok {
		return tx
	}

	return s.db
}

func (s *LicenseStorage) GetLicense(ctx context.Context, deviceID string) (license.License, error) {
	query := `SELECT device_id, tier, credits, unlimited, expires, daily_used, daily_reset, coupon_used,
		suspended, suspend_reason, total_generations, last_active, created_at, updated_at
		FROM licenses WHERE device_id = ?`

	var r licenseRow

	if err := s.q(ctx).GetContext(ctx, &r, query, deviceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return license.License{}, license.ErrLicenseNotFound
		}
		return license.License{}, err
	}

	return r.license(), nil
}

func (s *LicenseStorage) SaveLicense(ctx context.Context, l license.License) error {
	query := `INSERT INTO licenses (device_id, tier, credits, unlimited, expires, daily_used, daily_reset,
			coupon_used, suspended, suspend_reason, total_generations, last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			tier = excluded.tier,
			credits = excluded.credits,
			unlimited = excluded.unlimited,
			expires = excluded.expires,
			daily_used = excluded.daily_used,
			daily_reset = excluded.daily_reset,
			coupon_used = excluded.coupon_used,
			suspended = excluded.suspended,
			suspend_reason = excluded.suspend_reason,
			total_generations = excluded.total_generations,
			last_active = excluded.last_active,
			updated_at = excluded.updated_at`

	r := newLicenseRow(l)

	_, err := s.q(ctx).ExecContext(ctx, query,
		r.DeviceID, r.Tier, r.Credits, r.Unlimited, r.Expires, r.DailyUsed, r.DailyReset,
		r.CouponUsed, r.Suspended, r.SuspendReason, r.TotalGenerations, r.LastActive, r.CreatedAt, r.UpdatedAt)

	return err
}

func (s *LicenseStorage) Licenses(ctx context.Context, limit int) ([]license.License, error) {
	query := `SELECT device_id, tier, credits, unlimited, expires, daily_used, daily_reset, coupon_used,
		suspended, suspend_reason, total_generations, last_active, created_at, updated_at
		FROM licenses ORDER BY last_active DESC`

	var rows []licenseRow
	var err error

	if limit > 0 {
		err = s.q(ctx).SelectContext(ctx, &rows, query+` LIMIT ?`, limit)
	} else {
		err = s.q(ctx).SelectContext(ctx, &rows, query)
	}

	if err != nil {
		return nil, err
	}

	licenses := make([]license.License, 0, len(rows))
	for _, r := range rows {
		licenses = append(licenses, r.license())
	}

	return licenses, nil
}

func (s *LicenseStorage) GetCoupon(ctx context.Context, code string) (license.Coupon, error) {
	query := `SELECT code, type, credits, days, unlimited, used, used_by, used_at, created_at
		FROM coupons WHERE code = ?`

	var r couponRow

	if err := s.q(ctx).GetContext(ctx, &r, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return license.Coupon{}, license.ErrCouponNotFound
		}
		return license.Coupon{}, err
	}

	return r.coupon(), nil
}

func (s *LicenseStorage) SaveCoupon(ctx context.Context, c license.Coupon) error {
	query := `INSERT INTO coupons (code, type, credits, days, unlimited, used, used_by, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			used = excluded.used,
			used_by = excluded.used_by,
			used_at = excluded.used_at`

	r := newCouponRow(c)

	_, err := s.q(ctx).ExecContext(ctx, query,
		r.Code, r.Type, r.Credits, r.Days, r.Unlimited, r.Used, r.UsedBy, r.UsedAt, r.CreatedAt)

	return err
}

func (s *LicenseStorage) Coupons(ctx context.Context, limit int) ([]license.Coupon, error) {
	query := `SELECT code, type, credits, days, unlimited, used, used_by, used_at, created_at
		FROM coupons ORDER BY created_at DESC`

	var rows []couponRow
	var err error

	if limit > 0 {
		err = s.q(ctx).SelectContext(ctx, &rows, query+` LIMIT ?`, limit)
	} else {
		err = s.q(ctx).SelectContext(ctx, &rows, query)
	}

	if err != nil {
		return nil, err
	}

	coupons := make([]license.Coupon, 0, len(rows))
	for _, r := range rows {
		coupons = append(coupons, r.coupon())
	}

	return coupons, nil
}

func (s *LicenseStorage) AddNotification(ctx context.Context, n license.Notification) error {
	query := `INSERT INTO notifications (device_id, type, title, message, credits_change, seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q(ctx).ExecContext(ctx, query,
		n.DeviceID, n.Kind.String(), n.Title, n.Message, n.CreditsChange, boolToInt(n.Seen), formatTime(n.CreatedAt))

	return err
}

func (s *LicenseStorage) Notifications(ctx context.Context, deviceID string, onlyUnseen bool, limit int) ([]license.Notification, error) {
	query := `SELECT id, device_id, type, title, message, credits_change, seen, created_at
		FROM notifications WHERE device_id = ?`

	if onlyUnseen {
		query += ` AND seen = 0`
	}

	query += ` ORDER BY created_at DESC`

	var rows []notificationRow
	var err error

	if limit > 0 {
		err = s.q(ctx).SelectContext(ctx, &rows, query+` LIMIT ?`, deviceID, limit)
	} else {
		err = s.q(ctx).SelectContext(ctx, &rows, query, deviceID)
	}

	if err != nil {
		return nil, err
	}

	notifications := make([]license.Notification, 0, len(rows))
	for _, r := range rows {
		notifications = append(notifications, r.notification())
	}

	return notifications, nil
}

func (s *LicenseStorage) MarkNotificationsSeen(ctx context.Context, deviceID string) error {
	query := `UPDATE notifications SET seen = 1 WHERE device_id = ? AND seen = 0`

	_, err := s.q(ctx).ExecContext(ctx, query, deviceID)

	return err
}

func (s *LicenseStorage) AddUsage(ctx context.Context, u license.Usage) error {
	query := `INSERT INTO usage_logs (device_id, text_preview, text_length, voice, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.q(ctx).ExecContext(ctx, query,
		u.DeviceID, u.TextPreview, u.TextLength, u.Voice, u.IPAddress, formatTime(u.CreatedAt))

	return err
}

func (s *LicenseStorage) UsageHistory(ctx context.Context, deviceID string, limit int) ([]license.Usage, error) {
	query := `SELECT id, device_id, text_preview, text_length, voice, ip_address, created_at
		FROM usage_logs WHERE device_id = ? ORDER BY created_at DESC`

	var rows []usageRow
	var err error

	if limit > 0 {
		err = s.q(ctx).SelectContext(ctx, &rows, query+` LIMIT ?`, deviceID, limit)
	} else {
		err = s.q(ctx).SelectContext(ctx, &rows, query, deviceID)
	}

	if err != nil {
		return nil, err
	}

	usage := make([]license.Usage, 0, len(rows))
	for _, r := range rows {
		usage = append(usage, r.usage())
	}

	return usage, nil
}

func (s *LicenseStorage) Stats(ctx context.Context) (license.Stats, error) {
	query := `SELECT
		(SELECT COUNT(*) FROM coupons) AS total_coupons,
		(SELECT COUNT(*) FROM coupons WHERE used = 1) AS used_coupons,
		(SELECT COUNT(*) FROM licenses) AS total_users,
		(SELECT COUNT(*) FROM licenses WHERE tier = 'pro') AS pro_users,
		(SELECT COUNT(*) FROM licenses WHERE suspended = 1) AS suspended_users,
		(SELECT COALESCE(SUM(total_generations), 0) FROM licenses) AS total_generations`

	var r statsRow

	if err := s.q(ctx).GetContext(ctx, &r, query); err != nil {
		return license.Stats{}, err
	}

	return license.Stats(r), nil
}

func (s *LicenseStorage) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS coupons (
			code TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			credits INTEGER NOT NULL DEFAULT 0,
			days INTEGER NOT NULL DEFAULT 0,
			unlimited INTEGER NOT NULL DEFAULT 0,
			used INTEGER NOT NULL DEFAULT 0,
			used_by TEXT,
			used_at TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS licenses (
			device_id TEXT PRIMARY KEY,
			tier TEXT NOT NULL DEFAULT 'free',
			credits INTEGER NOT NULL DEFAULT 0,
			unlimited INTEGER NOT NULL DEFAULT 0,
			expires TEXT,
			daily_used INTEGER NOT NULL DEFAULT 0,
			daily_reset TEXT,
			coupon_used TEXT,
			suspended INTEGER NOT NULL DEFAULT 0,
			suspend_reason TEXT,
			total_generations INTEGER NOT NULL DEFAULT 0,
			last_active TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			credits_change INTEGER NOT NULL DEFAULT 0,
			seen INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			text_preview TEXT,
			text_length INTEGER NOT NULL DEFAULT 0,
			voice TEXT,
			ip_address TEXT,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}

	return t
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

type licenseRow struct {
	DeviceID         string         `db:"device_id"`
	Tier             string         `db:"tier"`
	Credits          int64          `db:"credits"`
	Unlimited        int64          `db:"unlimited"`
	Expires          sql.NullString `db:"expires"`
	DailyUsed        int64          `db:"daily_used"`
	DailyReset       sql.NullString `db:"daily_reset"`
	CouponUsed       sql.NullString `db:"coupon_used"`
	Suspended        int64          `db:"suspended"`
	SuspendReason    sql.NullString `db:"suspend_reason"`
	TotalGenerations int64          `db:"total_generations"`
	LastActive       sql.NullString `db:"last_active"`
	CreatedAt        string         `db:"created_at"`
	UpdatedAt        string         `db:"updated_at"`
}

func newLicenseRow(l license.License) licenseRow {
	return licenseRow{
		DeviceID:         l.DeviceID,
		Tier:             l.Tier.String(),
		Credits:          l.Credits,
		Unlimited:        boolToInt(l.Unlimited),
		Expires:          nullString(l.Expires),
		DailyUsed:        l.DailyUsed,
		DailyReset:       nullString(l.DailyReset),
		CouponUsed:       nullString(l.CouponUsed),
		Suspended:        boolToInt(l.Suspended),
		SuspendReason:    nullString(l.SuspendReason),
		TotalGenerations: l.TotalGenerations,
		LastActive:       nullString(formatTime(l.LastActive)),
		CreatedAt:        formatTime(l.CreatedAt),
		UpdatedAt:        formatTime(l.UpdatedAt),
	}
}

func (r licenseRow) license() license.License {
	return license.License{
		DeviceID:         r.DeviceID,
		Tier:             license.ParseTier(r.Tier),
		Credits:          r.Credits,
		Unlimited:        r.Unlimited != 0,
		Expires:          r.Expires.String,
		DailyUsed:        r.DailyUsed,
		DailyReset:       r.DailyReset.String,
		CouponUsed:       r.CouponUsed.String,
		Suspended:        r.Suspended != 0,
		SuspendReason:    r.SuspendReason.String,
		TotalGenerations: r.TotalGenerations,
		LastActive:       parseTime(r.LastActive.String),
		CreatedAt:        parseTime(r.CreatedAt),
		UpdatedAt:        parseTime(r.UpdatedAt),
	}
}

type couponRow struct {
	Code      string         `db:"code"`
	Type      string         `db:"type"`
	Credits   int64          `db:"credits"`
	Days      int            `db:"days"`
	Unlimited int64          `db:"unlimited"`
	Used      int64          `db:"used"`
	UsedBy    sql.NullString `db:"used_by"`
	UsedAt    sql.NullString `db:"used_at"`
	CreatedAt string         `db:"created_at"`
}

func newCouponRow(c license.Coupon) couponRow {
	return couponRow{
		Code:      c.Code,
		Type:      c.Type,
		Credits:   c.Credits,
		Days:      c.Days,
		Unlimited: boolToInt(c.Unlimited),
		Used:      boolToInt(c.Used),
		UsedBy:    nullString(c.UsedBy),
		UsedAt:    nullString(formatTime(c.UsedAt)),
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func (r couponRow) coupon() license.Coupon {
	return license.Coupon{
		Code:      r.Code,
		Type:      r.Type,
		Credits:   r.Credits,
		Days:      r.Days,
		Unlimited: r.Unlimited != 0,
		Used:      r.Used != 0,
		UsedBy:    r.UsedBy.String,
		UsedAt:    parseTime(r.UsedAt.String),
		CreatedAt: parseTime(r.CreatedAt),
	}
}

type notificationRow struct {
	ID            int64  `db:"id"`
	DeviceID      string `db:"device_id"`
	Type          string `db:"type"`
	Title         string `db:"title"`
	Message       string `db:"message"`
	CreditsChange int64  `db:"credits_change"`
	Seen          int64  `db:"seen"`
	CreatedAt     string `db:"created_at"`
}

func (r notificationRow) notification() license.Notification {
	return license.Notification{
		ID:            r.ID,
		DeviceID:      r.DeviceID,
		Kind:          license.NotificationKind(r.Type),
		Title:         r.Title,
		Message:       r.Message,
		CreditsChange: r.CreditsChange,
		Seen:          r.Seen != 0,
		CreatedAt:     parseTime(r.CreatedAt),
	}
}

type usageRow struct {
	ID          int64          `db:"id"`
	DeviceID    string         `db:"device_id"`
	TextPreview sql.NullString `db:"text_preview"`
	TextLength  int            `db:"text_length"`
	Voice       sql.NullString `db:"voice"`
	IPAddress   sql.NullString `db:"ip_address"`
	CreatedAt   string         `db:"created_at"`
}

func (r usageRow) usage() license.Usage {
	return license.Usage{
		ID:          r.ID,
		DeviceID:    r.DeviceID,
		TextPreview: r.TextPreview.String,
		TextLength:  r.TextLength,
		Voice:       r.Voice.String,
		IPAddress:   r.IPAddress.String,
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

type statsRow struct {
	TotalCoupons     int64 `db:"total_coupons"`
	UsedCoupons      int64 `db:"used_coupons"`
	TotalUsers       int64 `db:"total_users"`
	ProUsers         int64 `db:"pro_users"`
	SuspendedUsers   int64 `db:"suspended_users"`
	TotalGenerations int64 `db:"total_generations"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
