package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"eventboard-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, deduper Deduper, log *log.Logger) {
	e.GET("/api/events", getEvents(store, log))
	e.POST("/api/events", postEvent(store, auth, deduper))
	e.PUT("/api/events/:id", putEvent(store, auth))
	e.DELETE("/api/events/:id", deleteEvent(store, auth))
	e.GET("/api/events/stream", streamEvents(store, auth))
	e.GET("/healthz", healthz(store))

	initChangePublisher(store, log)
}

func healthz(_ Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// getEvents serves the public listing. Without a userId filter it answers
// with an empty list rather than exposing the whole store; with one, it
// returns that owner's events newest first.
func getEvents(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newEventRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		ownerID := c.QueryParam("userId")
		metrics.SetOwnerFilterProvided(ownerID != "")
		if ownerID == "" {
			err = c.JSON(http.StatusOK, []domain.Event{})
			return err
		}

		fetchStart := time.Now()
		events, fetchErr := store.ListEvents(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to fetch events"})
			return err
		}

		owned := make([]domain.Event, 0, len(events))
		for _, ev := range events {
			if ev.OwnerID == ownerID {
				owned = append(owned, ev)
			}
		}
		metrics.SetEventsReturned(len(owned))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, owned)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func postEvent(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ownerID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, mutationBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var draft domain.Draft
		if err := dec.Decode(&draft); err != nil {
			return c.JSON(http.StatusBadRequest, mutationResponse{Message: "invalid body"})
		}
		if err := draft.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, mutationResponse{Message: err.Error()})
		}

		key := c.Request().Header.Get("Idempotency-Key")
		if key != "" && deduper != nil {
			added, dedupeErr := deduper.Add(ctx, ownerID, key)
			if dedupeErr != nil {
				// Dedupe is advisory; an unreachable Redis must not block inserts.
				c.Logger().Errorf("idempotency add failed: %v", dedupeErr)
			} else if !added {
				return c.JSON(http.StatusConflict, mutationResponse{Message: "duplicate request"})
			}
		}

		ev, insertErr := store.InsertEvent(ctx, draft, ownerID)
		if insertErr != nil {
			if key != "" && deduper != nil {
				if rerr := deduper.Remove(ctx, ownerID, key); rerr != nil {
					c.Logger().Errorf("idempotency rollback failed: %v", rerr)
				}
			}
			c.Logger().Error(insertErr)
			return c.JSON(http.StatusInternalServerError, mutationResponse{Message: "error inserting new event"})
		}

		publishChange(store, domain.Change{Op: domain.ChangeCreated, EventID: ev.ID, OwnerID: ownerID, Timestamp: ev.CreatedAt})

		return c.JSON(http.StatusOK, mutationResponse{Success: true, Event: &ev})
	}
}

// updateRequest is the PUT body: the full edited record as the dashboard
// holds it. Store-assigned fields are accepted and ignored.
type updateRequest struct {
	domain.Fields
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
}

func putEvent(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ownerID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		id := c.Param("id")

		lr := io.LimitReader(c.Request().Body, mutationBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req updateRequest
		if err := dec.Decode(&req); err != nil {
			return c.JSON(http.StatusBadRequest, mutationResponse{Message: "invalid body"})
		}
		if err := req.Fields.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, mutationResponse{Message: err.Error()})
		}

		current, err := store.GetEvent(ctx, id)
		if err != nil {
			return mutationError(c, err, "error updating event")
		}
		if current.OwnerID != ownerID {
			return c.JSON(http.StatusForbidden, mutationResponse{Message: "not the event owner"})
		}

		if err := store.ReplaceEvent(ctx, id, req.Fields); err != nil {
			return mutationError(c, err, "error updating event")
		}

		publishChange(store, domain.Change{Op: domain.ChangeReplaced, EventID: id, OwnerID: ownerID, Timestamp: time.Now().UTC()})

		return c.JSON(http.StatusOK, mutationResponse{Success: true})
	}
}

func deleteEvent(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		ownerID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		id := c.Param("id")

		current, err := store.GetEvent(ctx, id)
		if err != nil {
			return mutationError(c, err, "error deleting event")
		}
		if current.OwnerID != ownerID {
			return c.JSON(http.StatusForbidden, mutationResponse{Message: "not the event owner"})
		}

		if err := store.DeleteEvent(ctx, id); err != nil {
			return mutationError(c, err, "error deleting event")
		}

		publishChange(store, domain.Change{Op: domain.ChangeDeleted, EventID: id, OwnerID: ownerID, Timestamp: time.Now().UTC()})

		return c.JSON(http.StatusOK, mutationResponse{Success: true})
	}
}

// mutationError maps storage failures to responses: NotFound becomes a 404,
// anything else a generic 500 with the driver detail kept server-side.
func mutationError(c echo.Context, err error, genericMsg string) error {
	var nf NotFoundError
	if errors.As(err, &nf) {
		return c.JSON(http.StatusNotFound, mutationResponse{Message: "event not found"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, mutationResponse{Message: genericMsg})
}
