// Package notify abstracts the outbound notification delivery channel
// (push/SMS/email). Delivery transport, templating, and retry policy belong
// to the platform's communication service; the waitlist engine only hands an
// offer payload across this seam and logs failures without retrying.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Channel names recognized by the delivery collaborator.
const (
	ChannelPush  = "push"
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// OfferPayload describes a slot offer made to a waitlisted customer.
type OfferPayload struct {
	EntryID   string    `json:"entry_id"`
	SlotID    string    `json:"slot_id"`
	SalonID   string    `json:"salon_id"`
	StaffID   string    `json:"staff_id"`
	StartTime time.Time `json:"start_time"`
	Deadline  time.Time `json:"deadline"`
}

// Sender delivers an offer to a customer over a channel. Implementations must
// be safe for concurrent use. Errors are reported to the caller for logging
// only; the engine does not retry deliveries.
type Sender interface {
	Send(ctx context.Context, customerID, channel string, payload OfferPayload) error
}

// LogSender is the development and test implementation: it records the offer
// in the structured log and always succeeds.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, customerID, channel string, payload OfferPayload) error {
	log.Info().
		Str("customer_id", customerID).
		Str("channel", channel).
		Str("entry_id", payload.EntryID).
		Str("slot_id", payload.SlotID).
		Time("slot_start", payload.StartTime).
		Time("deadline", payload.Deadline).
		Msg("waitlist offer dispatched")
	return nil
}
