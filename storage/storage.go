package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"eventboard-api/domain"
)

type notFoundError struct{}

func (notFoundError) Error() string { return "event not found" }

// NotFound marks the error for boundary layers that map it without
// importing this package.
func (notFoundError) NotFound() {}

// ErrNotFound is returned when no event matches the given identifier.
var ErrNotFound error = notFoundError{}

// All events live in a single partition so the adapter can serve the
// unfiltered list with one partition scan.
const eventPartition = "event"

// Store provides access to the event collection and the change queue.
type Store struct {
	events      *aztables.Client
	changeQueue *azqueue.QueueClient
}

// New creates a Store instance from the given connection string.
func New(connStr, eventsTable, changeQueue string) (*Store, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	et := svc.NewClient(eventsTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	cq, err := azqueue.NewQueueClientFromConnectionString(connStr, changeQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Store{events: et, changeQueue: cq}, nil
}

// Init creates the event table and change queue when they do not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.events.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return err
		}
	}
	if _, err := s.changeQueue.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	return nil
}

type eventEntity struct {
	aztables.Entity
	Title            string  `json:"Title"`
	ShortDescription string  `json:"ShortDescription"`
	FullDescription  string  `json:"FullDescription"`
	Date             string  `json:"Date"`
	Time             string  `json:"Time"`
	Location         string  `json:"Location"`
	Category         string  `json:"Category"`
	Image            string  `json:"Image"`
	Price            float64 `json:"Price"`
	Priority         string  `json:"Priority"`
	OwnerID          string  `json:"OwnerId"`
	CreatedAt        string  `json:"CreatedAt"`
}

func entityFromEvent(ev domain.Event) eventEntity {
	return eventEntity{
		Entity:           aztables.Entity{PartitionKey: eventPartition, RowKey: ev.ID},
		Title:            ev.Title,
		ShortDescription: ev.ShortDescription,
		FullDescription:  ev.FullDescription,
		Date:             ev.Date,
		Time:             ev.Time,
		Location:         ev.Location,
		Category:         ev.Category,
		Image:            ev.Image,
		Price:            float64(ev.Price),
		Priority:         ev.Priority,
		OwnerID:          ev.OwnerID,
		CreatedAt:        ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEventEntity(data []byte) (domain.Event, error) {
	var ent eventEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Event{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
	if err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		ID:               ent.RowKey,
		Title:            ent.Title,
		ShortDescription: ent.ShortDescription,
		FullDescription:  ent.FullDescription,
		Date:             ent.Date,
		Time:             ent.Time,
		Location:         ent.Location,
		Category:         ent.Category,
		Image:            ent.Image,
		Price:            domain.Price(ent.Price),
		Priority:         ent.Priority,
		OwnerID:          ent.OwnerID,
		CreatedAt:        createdAt,
	}, nil
}

func sortByCreatedAtDesc(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
}

// ListEvents retrieves every event, newest first. Table Storage has no
// server-side ordering, so the adapter sorts after the scan.
func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	filter := "PartitionKey eq '" + eventPartition + "'"
	pager := s.events.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	events := []domain.Event{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			ev, err := decodeEventEntity(e)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}
	sortByCreatedAtDesc(events)
	return events, nil
}

// GetEvent retrieves a single event by identifier.
func (s *Store) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	resp, err := s.events.GetEntity(ctx, eventPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Event{}, ErrNotFound
		}
		return domain.Event{}, err
	}
	return decodeEventEntity(resp.Value)
}

// InsertEvent persists a draft for the given owner. The store assigns the
// identifier and stamps CreatedAt; the returned event carries both.
func (s *Store) InsertEvent(ctx context.Context, draft domain.Draft, ownerID string) (domain.Event, error) {
	ev := domain.Event{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	ev.Apply(draft.Fields())

	data, err := json.Marshal(entityFromEvent(ev))
	if err != nil {
		return domain.Event{}, err
	}
	if _, err := s.events.AddEntity(ctx, data, nil); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

// ReplaceEvent overwrites all mutable fields of the event matching id,
// preserving OwnerID and CreatedAt. Returns ErrNotFound when absent.
func (s *Store) ReplaceEvent(ctx context.Context, id string, fields domain.Fields) error {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	current.Apply(fields)

	data, err := json.Marshal(entityFromEvent(current))
	if err != nil {
		return err
	}
	opts := &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace}
	if _, err := s.events.UpdateEntity(ctx, data, opts); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteEvent removes the event matching id. Returns ErrNotFound when absent.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.events.DeleteEntity(ctx, eventPartition, id, nil); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// PublishChange enqueues a change record for downstream consumers.
func (s *Store) PublishChange(ctx context.Context, ch domain.Change) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	_, err = s.changeQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
