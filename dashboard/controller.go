package dashboard

import (
	"context"

	"eventboard-api/domain"
)

// State identifies where the dashboard is in its lifecycle.
type State int

const (
	StateCheckingAuth State = iota
	StateRedirectedToLogin
	StateLoading
	StateLoaded
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateCheckingAuth:
		return "checking-auth"
	case StateRedirectedToLogin:
		return "redirected-to-login"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// AuthProvider reports the signed-in identity.
type AuthProvider interface {
	// CurrentUserID returns the signed-in user's identifier, or false when
	// nobody is signed in.
	CurrentUserID(ctx context.Context) (string, bool)
}

// Navigator is the redirect surface for unauthenticated visitors.
type Navigator interface {
	NavigateToLogin()
}

// Notifier is the transient notification surface.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Confirmer gates destructive actions behind an explicit confirmation.
type Confirmer interface {
	ConfirmDelete(title string) bool
}

// API is the subset of the event API the dashboard uses.
type API interface {
	ListEvents(ctx context.Context, userID string) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, id string, ev domain.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// Controller drives the dashboard: it gates on authentication, loads the
// owner's events, and manages the edit modal. Every mutation is followed by
// a full list re-fetch; there are no optimistic updates.
type Controller struct {
	api     API
	auth    AuthProvider
	nav     Navigator
	notify  Notifier
	confirm Confirmer

	state  State
	userID string
	events []domain.Event
	form   *domain.Event
	saving bool
}

// New creates a dashboard controller in the checking-auth state.
func New(api API, auth AuthProvider, nav Navigator, notify Notifier, confirm Confirmer) *Controller {
	return &Controller{
		api:     api,
		auth:    auth,
		nav:     nav,
		notify:  notify,
		confirm: confirm,
		state:   StateCheckingAuth,
	}
}

func (c *Controller) State() State { return c.state }

// Events returns the last fetched list.
func (c *Controller) Events() []domain.Event { return c.events }

// Saving reports whether an edit submit is in flight; the save button is
// disabled while true.
func (c *Controller) Saving() bool { return c.saving }

// Form returns the current edit-form value, valid only while editing.
func (c *Controller) Form() (domain.Event, bool) {
	if c.form == nil {
		return domain.Event{}, false
	}
	return *c.form, true
}

// Start resolves the auth state. Without a signed-in identity the
// controller redirects and never fetches; otherwise it loads the list.
func (c *Controller) Start(ctx context.Context) {
	if c.state != StateCheckingAuth {
		return
	}
	userID, ok := c.auth.CurrentUserID(ctx)
	if !ok {
		c.state = StateRedirectedToLogin
		c.nav.NavigateToLogin()
		return
	}
	c.userID = userID
	c.refresh(ctx)
}

// Refresh re-fetches the full list. A fetch failure notifies the user and
// still lands in the loaded state with the previous slice.
func (c *Controller) Refresh(ctx context.Context) {
	if c.state != StateLoaded {
		return
	}
	c.refresh(ctx)
}

func (c *Controller) refresh(ctx context.Context) {
	c.state = StateLoading
	events, err := c.api.ListEvents(ctx, c.userID)
	if err != nil {
		c.notify.Error("Failed to fetch events")
		c.state = StateLoaded
		return
	}
	c.events = events
	c.state = StateLoaded
}

// BeginEdit copies the record into the form value and opens the modal.
func (c *Controller) BeginEdit(id string) bool {
	if c.state != StateLoaded {
		return false
	}
	for _, ev := range c.events {
		if ev.ID == id {
			formCopy := ev
			c.form = &formCopy
			c.state = StateEditing
			return true
		}
	}
	return false
}

// UpdateForm replaces the form's mutable fields wholesale. The form is one
// owned value; callers never mutate it in place.
func (c *Controller) UpdateForm(fields domain.Fields) {
	if c.state != StateEditing || c.form == nil {
		return
	}
	next := *c.form
	next.Apply(fields)
	c.form = &next
}

// SubmitEdit issues the replace call. On success the modal closes, the list
// is re-fetched, and the user is notified; on failure the modal stays open
// with the form as the user left it.
func (c *Controller) SubmitEdit(ctx context.Context) {
	if c.state != StateEditing || c.form == nil || c.saving {
		return
	}
	c.saving = true
	err := c.api.UpdateEvent(ctx, c.form.ID, *c.form)
	c.saving = false
	if err != nil {
		c.notify.Error("Update failed")
		return
	}
	c.form = nil
	c.state = StateLoaded
	c.refresh(ctx)
	c.notify.Success("Event updated!")
}

// CancelEdit closes the modal and discards the form.
func (c *Controller) CancelEdit() {
	if c.state != StateEditing {
		return
	}
	c.form = nil
	c.state = StateLoaded
}

// Delete removes a record after explicit confirmation, then re-fetches.
func (c *Controller) Delete(ctx context.Context, id string) {
	if c.state != StateLoaded {
		return
	}
	title := id
	for _, ev := range c.events {
		if ev.ID == id {
			title = ev.Title
			break
		}
	}
	if !c.confirm.ConfirmDelete(title) {
		return
	}
	if err := c.api.DeleteEvent(ctx, id); err != nil {
		c.notify.Error("Failed to delete event")
		return
	}
	c.refresh(ctx)
	c.notify.Success("Event deleted")
}
