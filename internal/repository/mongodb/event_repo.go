package mongodb

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"eventhub/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type registrationDoc struct {
	Username      string    `bson:"username"`
	FullName      string    `bson:"fullName"`
	Email         string    `bson:"email"`
	RegisteredAt  time.Time `bson:"registeredAt"`
	Quantity      int       `bson:"quantity"`
	Tickets       []string  `bson:"tickets"`
	TotalAmount   float64   `bson:"totalAmount"`
	PaymentStatus string    `bson:"paymentStatus"`
}

type eventDoc struct {
	ID            string            `bson:"_id"`
	Name          string            `bson:"name"`
	Date          string            `bson:"date"`
	Time          string            `bson:"time"`
	Venue         string            `bson:"venue"`
	Description   string            `bson:"description"`
	Category      string            `bson:"category"`
	Organizer     string            `bson:"organizer"`
	Capacity      int               `bson:"capacity"`
	Status        string            `bson:"status"`
	IsPaid        bool              `bson:"isPaid"`
	TicketPrice   float64           `bson:"ticketPrice"`
	Currency      string            `bson:"currency"`
	Registrations []registrationDoc `bson:"registrations"`
	Version       int               `bson:"version"`
	CreatedAt     time.Time         `bson:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt"`
}

func toEventDoc(e *domain.Event) eventDoc {
	regs := make([]registrationDoc, len(e.Registrations))
	for i, r := range e.Registrations {
		regs[i] = registrationDoc{
			Username:      r.Username,
			FullName:      r.FullName,
			Email:         r.Email,
			RegisteredAt:  r.RegisteredAt,
			Quantity:      r.Quantity,
			Tickets:       r.Tickets,
			TotalAmount:   r.TotalAmount,
			PaymentStatus: string(r.PaymentStatus),
		}
	}
	return eventDoc{
		ID:            e.ID,
		Name:          e.Name,
		Date:          e.Date,
		Time:          e.Time,
		Venue:         e.Venue,
		Description:   e.Description,
		Category:      e.Category,
		Organizer:     e.Organizer,
		Capacity:      e.Capacity,
		Status:        string(e.Status),
		IsPaid:        e.IsPaid,
		TicketPrice:   e.TicketPrice,
		Currency:      e.Currency,
		Registrations: regs,
		Version:       e.Version,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (d eventDoc) toDomain() *domain.Event {
	regs := make([]domain.Registration, len(d.Registrations))
	for i, r := range d.Registrations {
		regs[i] = domain.Registration{
			Username:      r.Username,
			FullName:      r.FullName,
			Email:         r.Email,
			RegisteredAt:  r.RegisteredAt,
			Quantity:      r.Quantity,
			Tickets:       r.Tickets,
			TotalAmount:   r.TotalAmount,
			PaymentStatus: domain.PaymentStatus(r.PaymentStatus),
		}
	}
	return &domain.Event{
		ID:            d.ID,
		Name:          d.Name,
		Date:          d.Date,
		Time:          d.Time,
		Venue:         d.Venue,
		Description:   d.Description,
		Category:      d.Category,
		Organizer:     d.Organizer,
		Capacity:      d.Capacity,
		Status:        domain.EventStatus(d.Status),
		IsPaid:        d.IsPaid,
		TicketPrice:   d.TicketPrice,
		Currency:      d.Currency,
		Registrations: regs,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// replaceable returns every field except _id, for $set.
func (d eventDoc) replaceable() bson.M {
	return bson.M{
		"name":          d.Name,
		"date":          d.Date,
		"time":          d.Time,
		"venue":         d.Venue,
		"description":   d.Description,
		"category":      d.Category,
		"organizer":     d.Organizer,
		"capacity":      d.Capacity,
		"status":        d.Status,
		"isPaid":        d.IsPaid,
		"ticketPrice":   d.TicketPrice,
		"currency":      d.Currency,
		"registrations": d.Registrations,
		"updatedAt":     d.UpdatedAt,
	}
}

// eventFilterQuery translates an EventFilter into a find filter.
func eventFilterQuery(filter domain.EventFilter) bson.M {
	q := bson.M{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
			bson.M{"venue": rx},
		}
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.Organizer != "" {
		q["organizer"] = filter.Organizer
	}
	return q
}

func statusStrings(statuses []domain.EventStatus) bson.A {
	out := make(bson.A, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var eventSort = bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "name", Value: 1}}

type eventRepository struct {
	Collection *mongo.Collection
	now        func() time.Time
}

// NewEventRepository stores events as documents with the ledger embedded.
func NewEventRepository(collection *mongo.Collection) domain.EventRepository {
	return &eventRepository{Collection: collection, now: time.Now}
}

func (r *eventRepository) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*domain.Event, error) {
	cursor, err := r.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	events := make([]*domain.Event, len(docs))
	for i, d := range docs {
		events[i] = d.toDomain()
	}
	return events, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Version = 1
	_, err := r.Collection.InsertOne(ctx, toEventDoc(e))
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var doc eventDoc
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, page *domain.PaginationParams) ([]*domain.Event, int, error) {
	q := eventFilterQuery(filter)
	opts := options.Find().SetSort(eventSort)
	if page == nil {
		events, err := r.find(ctx, q, opts)
		if err != nil {
			return nil, 0, err
		}
		return events, len(events), nil
	}

	total, err := r.Collection.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts.SetSkip(int64(page.Offset())).SetLimit(int64(page.PageSize))
	events, err := r.find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return events, int(total), nil
}

func (r *eventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(eventSort))
}

func (r *eventRepository) ListByStatus(ctx context.Context, statuses ...domain.EventStatus) ([]*domain.Event, error) {
	return r.find(ctx, bson.M{"status": bson.M{"$in": statusStrings(statuses)}}, options.Find().SetSort(eventSort))
}

func (r *eventRepository) ListByRegistrant(ctx context.Context, username string) ([]*domain.Event, error) {
	return r.find(ctx, bson.M{"registrations.username": username}, options.Find().SetSort(eventSort))
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	set := toEventDoc(e).replaceable()
	set["version"] = e.Version + 1
	result, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": e.ID, "version": e.Version},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		n, err := r.Collection.CountDocuments(ctx, bson.M{"_id": e.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConcurrentUpdate
	}
	e.Version++
	return nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error) {
	result, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": statusStrings(from)}},
		bson.M{
			"$set": bson.M{"status": string(to), "updatedAt": r.now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
