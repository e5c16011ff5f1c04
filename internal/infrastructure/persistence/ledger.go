package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopkit/backend/internal/domain/coupon"
)

// GormLedger enforces coupon usage limits at the database. Holds are
// reserved with a conditional insert whose WHERE clause re-counts usage
// inside the same statement, so two concurrent checkouts can never both
// take the last slot: the statement that runs second sees the first hold
// and affects zero rows.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger creates a ledger on the given database.
func NewGormLedger(db *Database) *GormLedger {
	return &GormLedger{db: db.DB()}
}

func newHoldKey() string {
	return uuid.NewString()
}

// CheckAndHold reserves one global usage slot. Confirmed redemptions and
// outstanding global holds both count toward the limit.
func (l *GormLedger) CheckAndHold(ctx context.Context, c *coupon.Coupon) (string, error) {
	key := newHoldKey()
	result := l.db.WithContext(ctx).Exec(`
		INSERT INTO coupon_holds (coupon_id, hold_key, alias, created_at)
		SELECT ?, ?, '', ?
		WHERE (SELECT usage_count FROM coupons WHERE id = ?)
		    + (SELECT COUNT(*) FROM coupon_holds WHERE coupon_id = ? AND alias = '')
		    < ?`,
		c.GetID(), key, time.Now().UTC(), c.GetID(), c.GetID(), c.UsageLimit())
	if result.Error != nil {
		return "", fmt.Errorf("failed to hold coupon %q: %w", c.Code(), result.Error)
	}
	if result.RowsAffected == 0 {
		return "", coupon.ErrLimitExhausted
	}
	return key, nil
}

// CheckAndHoldForUser reserves one usage slot against the given user
// aliases. Redemptions and holds under any alias count toward the limit;
// the new hold is recorded under primaryAlias.
func (l *GormLedger) CheckAndHoldForUser(ctx context.Context, c *coupon.Coupon, aliases []string, primaryAlias string) (string, error) {
	if len(aliases) == 0 {
		return "", fmt.Errorf("no user aliases for coupon %q", c.Code())
	}
	key := newHoldKey()
	result := l.db.WithContext(ctx).Exec(`
		INSERT INTO coupon_holds (coupon_id, hold_key, alias, created_at)
		SELECT ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = ? AND used_by IN ?)
		    + (SELECT COUNT(*) FROM coupon_holds WHERE coupon_id = ? AND alias IN ?)
		    < ?`,
		c.GetID(), key, primaryAlias, time.Now().UTC(),
		c.GetID(), aliases, c.GetID(), aliases, c.UsageLimitPerUser())
	if result.Error != nil {
		return "", fmt.Errorf("failed to hold coupon %q for user: %w", c.Code(), result.Error)
	}
	if result.RowsAffected == 0 {
		return "", coupon.ErrLimitExhausted
	}
	return key, nil
}

// UsageByEmail returns the confirmed redemption count recorded under the
// given email alias.
func (l *GormLedger) UsageByEmail(ctx context.Context, c *coupon.Coupon, email string) (int, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&CouponUsageModel{}).
		Where("coupon_id = ? AND used_by = ?", c.GetID(), email).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count usage of coupon %q: %w", c.Code(), err)
	}
	return int(count), nil
}

// IncreaseUsage confirms one redemption: a usage row is recorded under the
// alias, the coupon counter is incremented, and one outstanding hold for
// the alias (and one global hold) is released.
func (l *GormLedger) IncreaseUsage(ctx context.Context, c *coupon.Coupon, usedBy string) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usage := CouponUsageModel{CouponID: c.GetID(), UsedBy: usedBy}
		if err := tx.Create(&usage).Error; err != nil {
			return err
		}
		if err := tx.Model(&CouponModel{}).
			Where("id = ?", c.GetID()).
			Update("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
			return err
		}
		if err := releaseOneHold(tx, c.GetID(), usedBy); err != nil {
			return err
		}
		return releaseOneHold(tx, c.GetID(), "")
	})
	if err != nil {
		return fmt.Errorf("failed to record usage of coupon %q: %w", c.Code(), err)
	}
	c.SetUsageCount(c.UsageCount() + 1)
	return nil
}

// DecreaseUsage releases one confirmed redemption recorded under the alias.
func (l *GormLedger) DecreaseUsage(ctx context.Context, c *coupon.Coupon, usedBy string) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var usage CouponUsageModel
		err := tx.Where("coupon_id = ? AND used_by = ?", c.GetID(), usedBy).
			Order("id").
			First(&usage).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.Delete(&CouponUsageModel{}, usage.ID).Error; err != nil {
			return err
		}
		return tx.Model(&CouponModel{}).
			Where("id = ? AND usage_count > 0", c.GetID()).
			Update("usage_count", gorm.Expr("usage_count - 1")).Error
	})
	if err != nil {
		return fmt.Errorf("failed to release usage of coupon %q: %w", c.Code(), err)
	}
	if c.UsageCount() > 0 {
		c.SetUsageCount(c.UsageCount() - 1)
	}
	return nil
}

// ReleaseHold drops a hold by its key, e.g. when a checkout is abandoned.
func (l *GormLedger) ReleaseHold(ctx context.Context, holdKey string) error {
	err := l.db.WithContext(ctx).
		Where("hold_key = ?", holdKey).
		Delete(&CouponHoldModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to release hold %q: %w", holdKey, err)
	}
	return nil
}

// ExpireHolds drops every hold older than the given age. Run periodically
// so abandoned checkouts give their slots back.
func (l *GormLedger) ExpireHolds(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result := l.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&CouponHoldModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire holds: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func releaseOneHold(tx *gorm.DB, couponID uint64, alias string) error {
	var hold CouponHoldModel
	err := tx.Where("coupon_id = ? AND alias = ?", couponID, alias).
		Order("id").
		First(&hold).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	return tx.Delete(&CouponHoldModel{}, hold.ID).Error
}
