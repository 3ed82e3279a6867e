// Package services – domain metrics
//
// Counters for the waitlist state machine, exposed on /metrics alongside the
// HTTP middleware instrumentation.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// notificationsSent counts slot offers dispatched to customers.
	notificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_notifications_sent_total",
		Help: "Total number of slot offers sent to waitlisted customers.",
	})

	// bookingsConverted counts offers accepted and turned into bookings.
	bookingsConverted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_bookings_converted_total",
		Help: "Total number of waitlist offers converted into confirmed bookings.",
	})

	// offersDeclined counts offers explicitly declined by customers.
	offersDeclined = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_offers_declined_total",
		Help: "Total number of slot offers declined by customers.",
	})
)

func init() {
	prometheus.MustRegister(notificationsSent, bookingsConverted, offersDeclined)
}
