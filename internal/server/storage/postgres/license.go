package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shayra-ai/license-server/internal/license"
)

type LicenseStorage struct {
	db *sql.DB
}

func NewLicenseStorage(db *sql.DB) (*LicenseStorage, error) {
	s := &LicenseStorage{db: db}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *LicenseStorage) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(ctxTxKey{}).(*sql.Tx); ok {
		return tx
	}

	return s.db
}

const licenseColumns = `device_id, tier, credits, unlimited, expires, daily_used, daily_reset, coupon_used,
	suspended, suspend_reason, total_generations, last_active, created_at, updated_at`

func (s *LicenseStorage) GetLicense(ctx context.Context, deviceID string) (license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE device_id = $1`

	row := s.q(ctx).QueryRowContext(ctx, query, deviceID)

	var r licenseRow

	err := row.Scan(&r.DeviceID, &r.Tier, &r.Credits, &r.Unlimited, &r.Expires, &r.DailyUsed, &r.DailyReset,
		&r.CouponUsed, &r.Suspended, &r.SuspendReason, &r.TotalGenerations, &r.LastActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return license.License{}, license.ErrLicenseNotFound
		}
		return license.License{}, err
	}

	return r.license(), nil
}

func (s *LicenseStorage) SaveLicense(ctx context.Context, l license.License) error {
	query := `INSERT INTO licenses (` + licenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
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

	return retry(func() error {
		_, err := s.q(ctx).ExecContext(ctx, query,
			r.DeviceID, r.Tier, r.Credits, r.Unlimited, r.Expires, r.DailyUsed, r.DailyReset,
			r.CouponUsed, r.Suspended, r.SuspendReason, r.TotalGenerations, r.LastActive, r.CreatedAt, r.UpdatedAt)

		return err
	})
}

func (s *LicenseStorage) Licenses(ctx context.Context, limit int) (licenses []license.License, err error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses ORDER BY last_active DESC`

	var rows *sql.Rows

	if limit > 0 {
		rows, err = s.q(ctx).QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.q(ctx).QueryContext(ctx, query)
	}

	if err != nil {
		return nil, err
	}

	defer func() {
		if r := rows.Close(); r != nil {
			err = errors.Join(err, r)
		}
	}()

	for rows.Next() {
		var r licenseRow

		err = rows.Scan(&r.DeviceID, &r.Tier, &r.Credits, &r.Unlimited, &r.Expires, &r.DailyUsed, &r.DailyReset,
			&r.CouponUsed, &r.Suspended, &r.SuspendReason, &r.TotalGenerations, &r.LastActive, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, err
		}

		licenses = append(licenses, r.license())
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return licenses, nil
}

const couponColumns = `code, type, credits, days, unlimited, used, used_by, used_at, created_at`

func (s *LicenseStorage) GetCoupon(ctx context.Context, code string) (license.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	row := s.q(ctx).QueryRowContext(ctx, query, code)

	var r couponRow

	err := row.Scan(&r.Code, &r.Type, &r.Credits, &r.Days, &r.Unlimited, &r.Used, &r.UsedBy, &r.UsedAt, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return license.Coupon{}, license.ErrCouponNotFound
		}
		return license.Coupon{}, err
	}

	return r.coupon(), nil
}

func (s *LicenseStorage) SaveCoupon(ctx context.Context, c license.Coupon) error {
	query := `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			used = excluded.used,
			used_by = excluded.used_by,
			used_at = excluded.used_at`

	r := newCouponRow(c)

	return retry(func() error {
		_, err := s.q(ctx).ExecContext(ctx, query,
			r.Code, r.Type, r.Credits, r.Days, r.Unlimited, r.Used, r.UsedBy, r.UsedAt, r.CreatedAt)

		return err
	})
}

func (s *LicenseStorage) Coupons(ctx context.Context, limit int) (coupons []license.Coupon, err error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	var rows *sql.Rows

	if limit > 0 {
		rows, err = s.q(ctx).QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.q(ctx).QueryContext(ctx, query)
	}

	if err != nil {
		return nil, err
	}

	defer func() {
		if r := rows.Close(); r != nil {
			err = errors.Join(err, r)
		}
	}()

	for rows.Next() {
		var r couponRow

		err = rows.Scan(&r.Code, &r.Type, &r.Credits, &r.Days, &r.Unlimited, &r.Used, &r.UsedBy, &r.UsedAt, &r.CreatedAt)
		if err != nil {
			return nil, err
		}

		coupons = append(coupons, r.coupon())
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return coupons, nil
}

func (s *LicenseStorage) AddNotification(ctx context.Context, n license.Notification) error {
	query := `INSERT INTO notifications (device_id, type, title, message, credits_change, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	return retry(func() error {
		_, err := s.q(ctx).ExecContext(ctx, query,
			n.DeviceID, n.Kind.String(), n.Title, n.Message, n.CreditsChange, boolToInt(n.Seen), formatTime(n.CreatedAt))

		return err
	})
}

func (s *LicenseStorage) Notifications(ctx context.Context, deviceID string, onlyUnseen bool, limit int) (notifications []license.Notification, err error) {
	query := `SELECT id, device_id, type, title, message, credits_change, seen, created_at
		FROM notifications WHERE device_id = $1`

	if onlyUnseen {
		query += ` AND seen = 0`
	}

	query += ` ORDER BY created_at DESC`

	var rows *sql.Rows

	if limit > 0 {
		rows, err = s.q(ctx).QueryContext(ctx, query+` LIMIT $2`, deviceID, limit)
	} else {
		rows, err = s.q(ctx).QueryContext(ctx, query, deviceID)
	}

	if err != nil {
		return nil, err
	}

	defer func() {
		if r := rows.Close(); r != nil {
			err = errors.Join(err, r)
		}
	}()

	for rows.Next() {
		var r notificationRow

		err = rows.Scan(&r.ID, &r.DeviceID, &r.Type, &r.Title, &r.Message, &r.CreditsChange, &r.Seen, &r.CreatedAt)
		if err != nil {
			return nil, err
		}

		notifications = append(notifications, r.notification())
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (s *LicenseStorage) MarkNotificationsSeen(ctx context.Context, deviceID string) error {
	query := `UPDATE notifications SET seen = 1 WHERE device_id = $1 AND seen = 0`

	return retry(func() error {
		_, err := s.q(ctx).ExecContext(ctx, query, deviceID)

		return err
	})
}

func (s *LicenseStorage) AddUsage(ctx context.Context, u license.Usage) error {
	query := `INSERT INTO usage_logs (device_id, text_preview, text_length, voice, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	return retry(func() error {
		_, err := s.q(ctx).ExecContext(ctx, query,
			u.DeviceID, u.TextPreview, u.TextLength, u.Voice, u.IPAddress, formatTime(u.CreatedAt))

		return err
	})
}

func (s *LicenseStorage) UsageHistory(ctx context.Context, deviceID string, limit int) (usage []license.Usage, err error) {
	query := `SELECT id, device_id, text_preview, text_length, voice, ip_address, created_at
		FROM usage_logs WHERE device_id = $1 ORDER BY created_at DESC`

	var rows *sql.Rows

	if limit > 0 {
		rows, err = s.q(ctx).QueryContext(ctx, query+` LIMIT $2`, deviceID, limit)
	} else {
		rows, err = s.q(ctx).QueryContext(ctx, query, deviceID)
	}

	if err != nil {
		return nil, err
	}

	defer func() {
		if r := rows.Close(); r != nil {
			err = errors.Join(err, r)
		}
	}()

	for rows.Next() {
		var r usageRow

		err = rows.Scan(&r.ID, &r.DeviceID, &r.TextPreview, &r.TextLength, &r.Voice, &r.IPAddress, &r.CreatedAt)
		if err != nil {
			return nil, err
		}

		usage = append(usage, r.usage())
	}

	if err = rows.Err(); err != nil {
		return nil, err
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

	row := s.q(ctx).QueryRowContext(ctx, query)

	var stats license.Stats

	err := row.Scan(&stats.TotalCoupons, &stats.UsedCoupons, &stats.TotalUsers,
		&stats.ProUsers, &stats.SuspendedUsers, &stats.TotalGenerations)
	if err != nil {
		return license.Stats{}, err
	}

	return stats, nil
}

func (s *LicenseStorage) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS coupons (
			code VARCHAR(64) PRIMARY KEY,
			type VARCHAR(30) NOT NULL,
			credits BIGINT NOT NULL DEFAULT 0,
			days INTEGER NOT NULL DEFAULT 0,
			unlimited INTEGER NOT NULL DEFAULT 0,
			used INTEGER NOT NULL DEFAULT 0,
			used_by VARCHAR(128),
			used_at VARCHAR(40),
			created_at VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS licenses (
			device_id VARCHAR(128) PRIMARY KEY,
			tier VARCHAR(30) NOT NULL DEFAULT 'free',
			credits BIGINT NOT NULL DEFAULT 0,
			unlimited INTEGER NOT NULL DEFAULT 0,
			expires VARCHAR(10),
			daily_used BIGINT NOT NULL DEFAULT 0,
			daily_reset VARCHAR(10),
			coupon_used VARCHAR(64),
			suspended INTEGER NOT NULL DEFAULT 0,
			suspend_reason TEXT,
			total_generations BIGINT NOT NULL DEFAULT 0,
			last_active VARCHAR(40),
			created_at VARCHAR(40) NOT NULL,
			updated_at VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			device_id VARCHAR(128) NOT NULL,
			type VARCHAR(30) NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			credits_change BIGINT NOT NULL DEFAULT 0,
			seen INTEGER NOT NULL DEFAULT 0,
			created_at VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage_logs (
			id BIGSERIAL PRIMARY KEY,
			device_id VARCHAR(128) NOT NULL,
			text_preview TEXT,
			text_length INTEGER NOT NULL DEFAULT 0,
			voice VARCHAR(64),
			ip_address VARCHAR(64),
			created_at VARCHAR(40) NOT NULL
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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type licenseRow struct {
	DeviceID         string
	Tier             string
	Credits          int64
	Unlimited        int64
	Expires          sql.NullString
	DailyUsed        int64
	DailyReset       sql.NullString
	CouponUsed       sql.NullString
	Suspended        int64
	SuspendReason    sql.NullString
	TotalGenerations int64
	LastActive       sql.NullString
	CreatedAt        string
	UpdatedAt        string
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
	Code      string
	Type      string
	Credits   int64
	Days      int
	Unlimited int64
	Used      int64
	UsedBy    sql.NullString
	UsedAt    sql.NullString
	CreatedAt string
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
	ID            int64
	DeviceID      string
	Type          string
	Title         string
	Message       string
	CreditsChange int64
	Seen          int64
	CreatedAt     string
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
	ID          int64
	DeviceID    string
	TextPreview sql.NullString
	TextLength  int
	Voice       sql.NullString
	IPAddress   sql.NullString
	CreatedAt   string
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
