package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/shopkit/backend/internal/domain/coupon"
)

type hold struct {
	key   string
	alias string // empty for global holds
}

// Ledger is an in-memory coupon usage ledger. The whole check-and-hold
// runs under one mutex, so concurrent holds against the last slot resolve
// to exactly one winner, matching the database ledger's guarantee.
type Ledger struct {
	mu     sync.Mutex
	holds  map[uint64][]hold
	usages map[uint64]map[string]int
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		holds:  make(map[uint64][]hold),
		usages: make(map[uint64]map[string]int),
	}
}

// CheckAndHold reserves one global usage slot.
func (l *Ledger) CheckAndHold(ctx context.Context, c *coupon.Coupon) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	held := 0
	for _, h := range l.holds[c.GetID()] {
		if h.alias == "" {
			held++
		}
	}
	if c.UsageCount()+held >= c.UsageLimit() {
		return "", coupon.ErrLimitExhausted
	}

	key := uuid.NewString()
	l.holds[c.GetID()] = append(l.holds[c.GetID()], hold{key: key})
	return key, nil
}

// CheckAndHoldForUser reserves one usage slot against the given aliases,
// recorded under primaryAlias.
func (l *Ledger) CheckAndHoldForUser(ctx context.Context, c *coupon.Coupon, aliases []string, primaryAlias string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	used := 0
	for _, alias := range aliases {
		used += l.usages[c.GetID()][alias]
		for _, h := range l.holds[c.GetID()] {
			if h.alias == alias {
				used++
			}
		}
	}
	if used >= c.UsageLimitPerUser() {
		return "", coupon.ErrLimitExhausted
	}

	key := uuid.NewString()
	l.holds[c.GetID()] = append(l.holds[c.GetID()], hold{key: key, alias: primaryAlias})
	return key, nil
}

// UsageByEmail returns the confirmed redemption count recorded under the
// email alias.
func (l *Ledger) UsageByEmail(ctx context.Context, c *coupon.Coupon, email string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usages[c.GetID()][email], nil
}

// IncreaseUsage confirms one redemption and releases one matching hold of
// each scope.
func (l *Ledger) IncreaseUsage(ctx context.Context, c *coupon.Coupon, usedBy string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.usages[c.GetID()] == nil {
		l.usages[c.GetID()] = make(map[string]int)
	}
	l.usages[c.GetID()][usedBy]++
	l.releaseOneLocked(c.GetID(), usedBy)
	l.releaseOneLocked(c.GetID(), "")
	c.SetUsageCount(c.UsageCount() + 1)
	return nil
}

// DecreaseUsage releases one confirmed redemption.
func (l *Ledger) DecreaseUsage(ctx context.Context, c *coupon.Coupon, usedBy string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.usages[c.GetID()][usedBy] > 0 {
		l.usages[c.GetID()][usedBy]--
	}
	if c.UsageCount() > 0 {
		c.SetUsageCount(c.UsageCount() - 1)
	}
	return nil
}

// ReleaseHold drops a hold by its key.
func (l *Ledger) ReleaseHold(ctx context.Context, holdKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for couponID, holds := range l.holds {
		for i, h := range holds {
			if h.key == holdKey {
				l.holds[couponID] = append(holds[:i], holds[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// Holds reports how many holds are outstanding for a coupon.
func (l *Ledger) Holds(couponID uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holds[couponID])
}

func (l *Ledger) releaseOneLocked(couponID uint64, alias string) {
	holds := l.holds[couponID]
	for i, h := range holds {
		if h.alias == alias {
			l.holds[couponID] = append(holds[:i], holds[i+1:]...)
			return
		}
	}
}
