package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type pointsEntryDoc struct {
	Delta     int       `bson:"delta"`
	Reason    string    `bson:"reason"`
	EventID   string    `bson:"eventId,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

type userStatsDoc struct {
	TicketsSold  int `bson:"ticketsSold"`
	EventsHosted int `bson:"eventsHosted"`
}

type userDoc struct {
	ID            string           `bson:"_id"`
	Username      string           `bson:"username"`
	Email         string           `bson:"email"`
	FullName      string           `bson:"fullName"`
	PasswordHash  string           `bson:"passwordHash"`
	Salt          string           `bson:"salt"`
	Role          string           `bson:"role"`
	AccountStatus string           `bson:"accountStatus"`
	Points        int              `bson:"points"`
	Stats         userStatsDoc     `bson:"stats"`
	Favorites     []string         `bson:"favorites"`
	Pinned        []string         `bson:"pinned"`
	History       []pointsEntryDoc `bson:"history,omitempty"`
	CreatedAt     time.Time        `bson:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt"`
}

func (d userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:            d.ID,
		Username:      d.Username,
		Email:         d.Email,
		FullName:      d.FullName,
		PasswordHash:  d.PasswordHash,
		Salt:          d.Salt,
		Role:          domain.Role(d.Role),
		AccountStatus: domain.AccountStatus(d.AccountStatus),
		Points:        d.Points,
		Stats:         domain.UserStats{TicketsSold: d.Stats.TicketsSold, EventsHosted: d.Stats.EventsHosted},
		Favorites:     d.Favorites,
		Pinned:        d.Pinned,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if u.Favorites == nil {
		u.Favorites = []string{}
	}
	if u.Pinned == nil {
		u.Pinned = []string{}
	}
	return u
}

// withoutHistory keeps the embedded points history out of profile reads.
var withoutHistory = bson.M{"history": 0}

type userRepository struct {
	Collection *mongo.Collection
	now        func() time.Time
}

// NewUserRepository stores users with their points history embedded.
func NewUserRepository(collection *mongo.Collection) domain.UserRepository {
	return &userRepository{Collection: collection, now: time.Now}
}

func (r *userRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*domain.User, error) {
	cursor, err := r.Collection.Find(ctx, filter, opts.SetProjection(withoutHistory))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]*domain.User, len(docs))
	for i, d := range docs {
		users[i] = d.toDomain()
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	doc := userDoc{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		PasswordHash:  u.PasswordHash,
		Salt:          u.Salt,
		Role:          string(u.Role),
		AccountStatus: string(u.AccountStatus),
		Favorites:     []string{},
		Pinned:        []string{},
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if _, err := r.Collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var doc userDoc
	err := r.Collection.FindOne(ctx, bson.M{"username": username}, options.FindOne().SetProjection(withoutHistory)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *userRepository) ListByRoleAndStatus(ctx context.Context, role domain.Role, status domain.AccountStatus) ([]*domain.User, error) {
	filter := bson.M{"role": string(role), "accountStatus": string(status)}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *userRepository) updateOne(ctx context.Context, username string, update bson.M) error {
	result, err := r.Collection.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetAccountStatus(ctx context.Context, username string, status domain.AccountStatus) error {
	return r.updateOne(ctx, username, bson.M{"$set": bson.M{"accountStatus": string(status), "updatedAt": r.now()}})
}

// ApplyPoints updates the balance, the counters and the history in one single-document write.
func (r *userRepository) ApplyPoints(ctx context.Context, username string, entry domain.PointsEntry, stats domain.UserStats) error {
	return r.updateOne(ctx, username, bson.M{
		"$inc": bson.M{
			"points":             entry.Delta,
			"stats.ticketsSold":  stats.TicketsSold,
			"stats.eventsHosted": stats.EventsHosted,
		},
		"$push": bson.M{"history": pointsEntryDoc{
			Delta:     entry.Delta,
			Reason:    entry.Reason,
			EventID:   entry.EventID,
			CreatedAt: entry.CreatedAt,
		}},
		"$set": bson.M{"updatedAt": r.now()},
	})
}

func (r *userRepository) ListPointsHistory(ctx context.Context, username string, limit int) ([]domain.PointsEntry, error) {
	projection := bson.M{"history": 1}
	if limit > 0 {
		projection = bson.M{"history": bson.M{"$slice": -limit}}
	}
	var doc userDoc
	err := r.Collection.FindOne(ctx, bson.M{"username": username}, options.FindOne().SetProjection(projection)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	// History is appended oldest first; callers want newest first.
	out := make([]domain.PointsEntry, 0, len(doc.History))
	for i := len(doc.History) - 1; i >= 0; i-- {
		h := doc.History[i]
		out = append(out, domain.PointsEntry{Delta: h.Delta, Reason: h.Reason, EventID: h.EventID, CreatedAt: h.CreatedAt})
	}
	return out, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, limit int) ([]*domain.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "username", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func collectionField(c domain.Collection) (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, c)
	}
	return string(c), nil
}

func (r *userRepository) AddToCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	field, err := collectionField(c)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, username, bson.M{"$addToSet": bson.M{field: eventID}, "$set": bson.M{"updatedAt": r.now()}})
}

func (r *userRepository) RemoveFromCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	field, err := collectionField(c)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, username, bson.M{"$pull": bson.M{field: eventID}, "$set": bson.M{"updatedAt": r.now()}})
}

func (r *userRepository) RemoveEventReferences(ctx context.Context, eventID string) error {
	_, err := r.Collection.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"favorites": eventID}, bson.M{"pinned": eventID}}},
		bson.M{"$pull": bson.M{"favorites": eventID, "pinned": eventID}},
	)
	return err
}
