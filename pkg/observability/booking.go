package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const bookingScope = "github.com/pitchside/pitchside_backend/booking"

// BookingInstruments are the spans and counters the booking flow reports.
// They resolve against the global providers, so they are no-ops until
// InitTelemetry has run.
type BookingInstruments struct {
	Tracer         trace.Tracer
	Confirmed      metric.Int64Counter
	Conflicts      metric.Int64Counter
	RefundFailures metric.Int64Counter
}

func NewBookingInstruments() *BookingInstruments {
	meter := otel.Meter(bookingScope)

	confirmed, _ := meter.Int64Counter("bookings_confirmed_total",
		metric.WithDescription("Bookings that reached the confirmed state"))
	conflicts, _ := meter.Int64Counter("booking_conflicts_total",
		metric.WithDescription("Paid checkouts that lost the slot to another booking"))
	refundFailures, _ := meter.Int64Counter("refund_failures_total",
		metric.WithDescription("Refunds that the payment provider rejected or never answered"))

	return &BookingInstruments{
		Tracer:         otel.Tracer(bookingScope),
		Confirmed:      confirmed,
		Conflicts:      conflicts,
		RefundFailures: refundFailures,
	}
}
