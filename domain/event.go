package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Price is a non-negative amount. Clients send it either as a JSON number
// or as a numeric string; anything else is rejected before persistence.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*p = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("price: invalid string %s", s)
		}
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*p = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("price: %q is not a number", s)
	}
	*p = Price(v)
	return nil
}

// Event is the persisted listing record. ID and CreatedAt are assigned by
// the store at insertion and never change afterwards; OwnerID is set from
// the authenticated creator and is likewise immutable.
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"shortDescription"`
	FullDescription  string    `json:"fullDescription"`
	Date             string    `json:"date"`
	Time             string    `json:"time,omitempty"`
	Location         string    `json:"location,omitempty"`
	Category         string    `json:"category,omitempty"`
	Image            string    `json:"image,omitempty"`
	Price            Price     `json:"price"`
	Priority         string    `json:"priority,omitempty"`
	OwnerID          string    `json:"ownerId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Draft is a client-submitted event payload lacking store-assigned fields.
// The wire names follow the creation form (shortDesc/fullDesc).
type Draft struct {
	Title            string `json:"title"`
	ShortDescription string `json:"shortDesc"`
	FullDescription  string `json:"fullDesc"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Location         string `json:"location"`
	Category         string `json:"category"`
	Image            string `json:"image"`
	Price            Price  `json:"price"`
	Priority         string `json:"priority"`
	// UserID is accepted for wire compatibility; the owner is always taken
	// from the authenticated caller, never from the body.
	UserID string `json:"userId"`
}

// Fields is the mutable portion of an Event, applied wholesale on replace.
type Fields struct {
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription"`
	FullDescription  string `json:"fullDescription"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Location         string `json:"location"`
	Category         string `json:"category"`
	Image            string `json:"image"`
	Price            Price  `json:"price"`
	Priority         string `json:"priority"`
}

var (
	errTitleRequired     = errors.New("title is required")
	errShortDescRequired = errors.New("short description is required")
	errFullDescRequired  = errors.New("full description is required")
	errDateRequired      = errors.New("date is required")
	errNegativePrice     = errors.New("price must not be negative")
)

// Validate reports the first missing or invalid required field.
func (d Draft) Validate() error {
	return validate(d.Title, d.ShortDescription, d.FullDescription, d.Date, d.Price)
}

// Validate reports the first missing or invalid required field.
func (f Fields) Validate() error {
	return validate(f.Title, f.ShortDescription, f.FullDescription, f.Date, f.Price)
}

func validate(title, shortDesc, fullDesc, date string, price Price) error {
	if strings.TrimSpace(title) == "" {
		return errTitleRequired
	}
	if strings.TrimSpace(shortDesc) == "" {
		return errShortDescRequired
	}
	if strings.TrimSpace(fullDesc) == "" {
		return errFullDescRequired
	}
	if strings.TrimSpace(date) == "" {
		return errDateRequired
	}
	if price < 0 {
		return errNegativePrice
	}
	return nil
}

// Fields returns the mutable field set carried by the draft.
func (d Draft) Fields() Fields {
	return Fields{
		Title:            d.Title,
		ShortDescription: d.ShortDescription,
		FullDescription:  d.FullDescription,
		Date:             d.Date,
		Time:             d.Time,
		Location:         d.Location,
		Category:         d.Category,
		Image:            d.Image,
		Price:            d.Price,
		Priority:         d.Priority,
	}
}

// Apply overwrites all mutable fields of the event. Store-assigned and
// owner fields are untouched.
func (e *Event) Apply(f Fields) {
	e.Title = f.Title
	e.ShortDescription = f.ShortDescription
	e.FullDescription = f.FullDescription
	e.Date = f.Date
	e.Time = f.Time
	e.Location = f.Location
	e.Category = f.Category
	e.Image = f.Image
	e.Price = f.Price
	e.Priority = f.Priority
}

// MutableFields returns the event's current mutable field set.
func (e Event) MutableFields() Fields {
	return Fields{
		Title:            e.Title,
		ShortDescription: e.ShortDescription,
		FullDescription:  e.FullDescription,
		Date:             e.Date,
		Time:             e.Time,
		Location:         e.Location,
		Category:         e.Category,
		Image:            e.Image,
		Price:            e.Price,
		Priority:         e.Priority,
	}
}
