package model

import "time"

// BookingLock is an advisory lock document. The fixed _id per vehicle makes
// concurrent inserts collide on the unique index, which is how two coordinators
// racing for the same vehicle serialize. A TTL index on expires_at reaps locks
// abandoned by crashed processes.
type BookingLock struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
