// Package domain defines the persistence models for the waitlist engine:
// waitlist entries, notification audit records, time slots, bookings, and the
// directory entities (salons, services, staff, customers) they reference.
// These types are mapped with GORM and form the core data layer of the
// application.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Waitlist entry statuses. An entry is created as StatusWaiting, moves to
// StatusNotified when a slot is offered, and ends in exactly one of the
// terminal states (StatusBooked, StatusCancelled, StatusExpired).
const (
	StatusWaiting   = "waiting"
	StatusNotified  = "notified"
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// IsTerminalStatus reports whether s is a terminal waitlist entry status.
// Terminal entries accept no further transitions.
func IsTerminalStatus(s string) bool {
	switch s {
	case StatusBooked, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Notification responses recorded when an offer is closed out.
const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
	ResponseExpired  = "expired"
)

// WaitlistEntry represents one customer's request to be told when a bookable
// slot frees up inside a time window on (or near) a requested date.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - CustomerID / SalonID / ServiceID: owning customer and requested target.
//   - StaffID: optional staff constraint; nil means "any staff member".
//   - RequestedDate: calendar date the customer asked for ("2006-01-02").
//   - WindowStart / WindowEnd: zero-padded "HH:MM" time-of-day bounds.
//   - FlexibilityDays: how many days either side of RequestedDate are acceptable.
//   - Priority: loyalty-derived rank; higher is served first.
//   - Status: see status constants above.
//   - NotifiedSlotID / NotifiedAt / ResponseDeadline: set while Status is
//     "notified"; NotifiedSlotID is non-nil iff the entry is notified.
//   - ExpiresAt: overall expiry; waiting entries past this are swept to expired.
//   - BookedAt: set when an offer is accepted and converted into a booking.
//   - ActiveKey: duplicate-join guard. While the entry is waiting or notified it
//     holds "customer|salon|service|date" under a unique index; it is cleared on
//     every terminal transition so the customer can re-join afterwards. NULLs do
//     not collide, which closes the check-then-insert race between two
//     concurrent joins.
type WaitlistEntry struct {
	ID               string         `json:"id"               gorm:"type:char(36);primaryKey"`
	CustomerID       string         `json:"customer_id"      gorm:"type:char(36);not null;index:idx_customer_entries"`
	SalonID          string         `json:"salon_id"         gorm:"type:char(36);not null;index:idx_salon_entries,priority:1"`
	ServiceID        string         `json:"service_id"       gorm:"type:char(36);not null;index"`
	StaffID          *string        `json:"staff_id,omitempty" gorm:"type:char(36)"`
	RequestedDate    string         `json:"requested_date"   gorm:"type:char(10);not null;index:idx_salon_entries,priority:2"`
	WindowStart      string         `json:"window_start"     gorm:"type:char(5);not null"`
	WindowEnd        string         `json:"window_end"       gorm:"type:char(5);not null"`
	FlexibilityDays  int            `json:"flexibility_days" gorm:"not null;default:0"`
	Priority         Priority       `json:"priority"         gorm:"not null;default:1"`
	Status           string         `json:"status"           gorm:"type:varchar(16);not null;index;check:status IN ('waiting','notified','booked','cancelled','expired')"`
	NotifiedSlotID   *string        `json:"notified_slot_id,omitempty" gorm:"type:char(36)"`
	NotifiedAt       *time.Time     `json:"notified_at,omitempty"`
	ResponseDeadline *time.Time     `json:"response_deadline,omitempty"`
	ExpiresAt        time.Time      `json:"expires_at"       gorm:"not null;index"`
	BookedAt         *time.Time     `json:"booked_at,omitempty"`
	ActiveKey        *string        `json:"-"                gorm:"type:varchar(160);uniqueIndex:ux_active_entry"`
	CreatedAt        time.Time      `json:"created_at"       gorm:"index"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for WaitlistEntry.
func (WaitlistEntry) TableName() string { return "waitlist_entries" }

// ActiveKeyFor builds the duplicate-guard key for an entry that is waiting or
// notified. The tuple mirrors the duplicate-join rule: one live entry per
// (customer, salon, service, requested date).
func ActiveKeyFor(customerID, salonID, serviceID, requestedDate string) string {
	return customerID + "|" + salonID + "|" + serviceID + "|" + requestedDate
}

// WaitlistNotification is the audit record of a single slot offer made to a
// waitlist entry. At most one notification exists per (entry, slot) pair; the
// Response field stays nil while the offer is pending and is closed exactly
// once with accepted/declined/expired.
type WaitlistNotification struct {
	ID          string     `json:"id"          gorm:"type:char(36);primaryKey"`
	WaitlistID  string     `json:"waitlist_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_notification_entry_slot,priority:1"`
	SlotID      string     `json:"slot_id"     gorm:"type:char(36);not null;index;uniqueIndex:ux_notification_entry_slot,priority:2"`
	Channel     string     `json:"channel"     gorm:"type:varchar(16);not null"`
	SentAt      time.Time  `json:"sent_at"     gorm:"not null"`
	Response    *string    `json:"response,omitempty" gorm:"type:varchar(16);check:response IN ('accepted','declined','expired')"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	// Entry is the owning waitlist entry; notifications are cascade-deleted
	// with it.
	Entry WaitlistEntry `json:"-" gorm:"foreignKey:WaitlistID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for WaitlistNotification.
func (WaitlistNotification) TableName() string { return "waitlist_notifications" }

// TimeSlot is a bookable unit of staff time. The waitlist engine reads and
// flips IsBooked but does not own slot generation; slots arrive from the
// scheduling side of the platform.
type TimeSlot struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SalonID   string    `json:"salon_id"   gorm:"type:char(36);not null;index:idx_salon_slots,priority:1"`
	StaffID   string    `json:"staff_id"   gorm:"type:char(36);not null;index"`
	StartTime time.Time `json:"start_time" gorm:"not null;index:idx_salon_slots,priority:2"`
	IsBooked  bool      `json:"is_booked"  gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for TimeSlot.
func (TimeSlot) TableName() string { return "time_slots" }

// Booking is the confirmed appointment produced when a notified customer
// accepts an offered slot. The unique SlotID index is a second line of defence
// behind the conditional slot update: a slot converts to at most one booking.
type Booking struct {
	ID            string          `json:"id"             gorm:"type:char(36);primaryKey"`
	CustomerID    string          `json:"customer_id"    gorm:"type:char(36);not null;index"`
	SalonID       string          `json:"salon_id"       gorm:"type:char(36);not null;index"`
	ServiceID     string          `json:"service_id"     gorm:"type:char(36);not null"`
	StaffID       string          `json:"staff_id"       gorm:"type:char(36);not null"`
	SlotID        string          `json:"slot_id"        gorm:"type:char(36);not null;uniqueIndex"`
	Status        string          `json:"status"         gorm:"type:varchar(16);not null;default:'confirmed'"`
	Amount        decimal.Decimal `json:"amount"         gorm:"type:decimal(10,2);not null"`
	PaymentMethod string          `json:"payment_method" gorm:"type:varchar(24);not null;default:'pay_at_salon'"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// Salon is a directory entity: a participating salon and its owner account.
type Salon struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	OwnerID   string    `json:"owner_id"  gorm:"type:char(36);not null;index"`
	Name      string    `json:"name"      gorm:"type:varchar(255);not null"`
	Address   string    `json:"address"   gorm:"type:varchar(255)"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Salon.
func (Salon) TableName() string { return "salons" }

// Service is a directory entity: one treatment sold by a salon.
type Service struct {
	ID              string          `json:"id"       gorm:"type:char(36);primaryKey"`
	SalonID         string          `json:"salon_id" gorm:"type:char(36);not null;index"`
	Name            string          `json:"name"     gorm:"type:varchar(255);not null"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null;default:30"`
	Price           decimal.Decimal `json:"price"    gorm:"type:decimal(10,2);not null"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Service.
func (Service) TableName() string { return "services" }

// Staff is a directory entity: one employee of a salon.
type Staff struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	SalonID   string    `json:"salon_id"  gorm:"type:char(36);not null;index"`
	Name      string    `json:"name"      gorm:"type:varchar(255);not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Staff.
func (Staff) TableName() string { return "staff" }

// Customer is a directory entity. LoyaltyTier backs the default loyalty
// lookup used by the priority resolver; an empty tier maps to the base
// priority.
type Customer struct {
	ID          string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"  gorm:"type:varchar(255);not null"`
	Email       string    `json:"email" gorm:"type:varchar(255)"`
	Phone       string    `json:"phone" gorm:"type:varchar(32)"`
	LoyaltyTier string    `json:"loyalty_tier" gorm:"type:varchar(32)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }
