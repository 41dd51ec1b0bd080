package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const billingKeyPrefix = "billing"

// Billing invalidates cached billing views after a remote balance changes.
// Presentation layers cache rendered billing pages under the account
// identifier; a successful top-up makes those entries stale.
type Billing struct {
	redis redis.Cmdable
}

// NewBilling creates a billing cache bound to a redis client.
func NewBilling(r redis.Cmdable) *Billing {
	return &Billing{redis: r}
}

// Invalidate drops the cached billing view for the account. A nil receiver
// or missing redis client is a no-op.
func (b *Billing) Invalidate(ctx context.Context, accountID string) error {
	if b == nil || b.redis == nil {
		return nil
	}
	if err := b.redis.Del(ctx, billingKey(accountID)).Err(); err != nil {
		return fmt.Errorf("invalidate billing cache for %s: %w", accountID, err)
	}
	return nil
}

func billingKey(accountID string) string {
	return fmt.Sprintf("%s:%s", billingKeyPrefix, accountID)
}
