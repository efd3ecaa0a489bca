package dashboard

import "fmt"

// Booking is the book-now control for a listed event. Booking is a local,
// one-way toggle with no backend effect: once booked, it stays booked.
type Booking struct {
	eventID string
	title   string
	booked  bool
}

// NewBooking creates the control for the given event.
func NewBooking(eventID, title string) *Booking {
	return &Booking{eventID: eventID, title: title}
}

// Book marks the event as booked. Repeat calls are no-ops.
func (b *Booking) Book() {
	b.booked = true
}

// Booked reports whether the event has been booked.
func (b *Booking) Booked() bool { return b.booked }

// Label returns the text the control shows in its current state.
func (b *Booking) Label() string {
	if b.booked {
		return "Booked ✓"
	}
	return fmt.Sprintf("Book Now for %q", b.title)
}
