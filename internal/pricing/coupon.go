package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

var (
	ErrCouponNotFound  = errors.New("pricing: coupon not found")
	ErrCouponInactive  = errors.New("pricing: coupon is inactive")
	ErrCouponExpired   = errors.New("pricing: coupon has expired")
	ErrCouponExhausted = errors.New("pricing: coupon usage limit reached")
)

// DB is the subset of pgxpool.Pool the coupon repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CouponRepository validates coupon codes against Postgres.
type CouponRepository struct {
	db     DB
	logger *logging.Logger
}

// NewCouponRepository creates a coupon repository.
func NewCouponRepository(db DB, logger *logging.Logger) *CouponRepository {
	if db == nil {
		panic("pricing: db cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CouponRepository{db: db, logger: logger}
}

const getCouponSQL = `
SELECT code, discount_type, discount_value, active, expires_at, max_uses, used_count
FROM coupons
WHERE lower(code) = lower($1)`

const incrementCouponUseSQL = `
UPDATE coupons SET used_count = used_count + 1, updated_at = now()
WHERE lower(code) = lower($1)`

// Validate checks a coupon code and returns its normalized projection.
// Lookup is case-insensitive. Inactive, expired, and exhausted coupons
// each fail with their own sentinel error.
func (r *CouponRepository) Validate(ctx context.Context, code string) (*Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCouponNotFound
	}

	var (
		coupon    Coupon
		active    bool
		expiresAt *time.Time
		maxUses   *int
		usedCount int
	)
	err := r.db.QueryRow(ctx, getCouponSQL, code).Scan(
		&coupon.Code, &coupon.DiscountType, &coupon.DiscountValue,
		&active, &expiresAt, &maxUses, &usedCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("pricing: failed to look up coupon: %w", err)
	}

	if !active {
		return nil, ErrCouponInactive
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		return nil, ErrCouponExpired
	}
	if maxUses != nil && usedCount >= *maxUses {
		return nil, ErrCouponExhausted
	}
	return &coupon, nil
}

// MarkUsed bumps the usage counter after a successful checkout. Failures are
// logged and swallowed.
func (r *CouponRepository) MarkUsed(ctx context.Context, code string) {
	if strings.TrimSpace(code) == "" {
		return
	}
	if _, err := r.db.Exec(ctx, incrementCouponUseSQL, code); err != nil {
		r.logger.Warn("failed to increment coupon usage", "error", err, "code", code)
	}
}
