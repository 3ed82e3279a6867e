// Idempotency records for safe retries of offer responses.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed request,
// keyed by (customer_id, entry_id, key). It lets a client retry an accept
// without converting the same offer twice: the original booking id is replayed
// instead of re-executing side effects.
type Idempotency struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	CustomerID string    `gorm:"type:char(36);not null;uniqueIndex:ux_customer_entry_key,priority:1"`
	EntryID    string    `gorm:"type:char(36);not null;uniqueIndex:ux_customer_entry_key,priority:2"`
	Key        string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_customer_entry_key,priority:3"`
	BookingID  string    `gorm:"type:char(36);not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
