package redisx

import "time"

const (
	// Resolved bearer token: auth:token:{token} -> user_id
	KeyAuthToken = "auth:token:%s"

	// Cached GET representation of an order, scoped to its owner so a
	// cache hit never leaks across users: order:{user_id}:{order_id}
	KeyOrder = "order:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Recent movement feed, capped list for back-office tooling.
	KeyMovementFeed = "movements:recent"
)

var (
	TTLAuthToken  = 5 * time.Minute
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour

	MovementFeedMax int64 = 1000
)
