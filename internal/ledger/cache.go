package ledger

import (
	"context"
	"fmt"
	"time"
)

// RecordCache is the slice of the redis client used to keep the read-through
// inventory record cache coherent. Every path that mutates inventory_records
// must delete the touched keys after commit, not just the administrative
// adjust path; transfer and quality control use cases share this contract.
type RecordCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

// RecordCacheKey addresses the cached inventory record of one
// (product, location) pair.
func RecordCacheKey(productID, locationID string) string {
	return fmt.Sprintf("inventory:record:%s:%s", productID, locationID)
}
