package dashboard

import (
	"strings"
	"testing"
)

func TestBookingIsOneWay(t *testing.T) {
	b := NewBooking("ev-1", "Gala")
	if b.Booked() {
		t.Fatal("new control must start unbooked")
	}
	if !strings.Contains(b.Label(), "Gala") {
		t.Fatalf("unexpected label: %q", b.Label())
	}

	b.Book()
	if !b.Booked() {
		t.Fatal("expected booked state")
	}
	if b.Label() != "Booked ✓" {
		t.Fatalf("unexpected label: %q", b.Label())
	}

	// There is no un-book; repeated calls keep the terminal state.
	b.Book()
	if !b.Booked() {
		t.Fatal("booked state must be terminal")
	}
}
