package mongodb

import (
	"context"
	"time"

	"eventhub/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Kind      string    `bson:"kind"`
	Message   string    `bson:"message"`
	EventID   string    `bson:"eventId,omitempty"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"createdAt"`
}

type notificationRepository struct {
	Collection *mongo.Collection
}

func NewNotificationRepository(collection *mongo.Collection) domain.NotificationRepository {
	return &notificationRepository{Collection: collection}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.Collection.InsertOne(ctx, notificationDoc{
		ID:        n.ID,
		Username:  n.Username,
		Kind:      string(n.Kind),
		Message:   n.Message,
		EventID:   n.EventID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	})
	return err
}

func (r *notificationRepository) ListByUsername(ctx context.Context, username string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	filter := bson.M{"username": username}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Notification, len(docs))
	for i, d := range docs {
		out[i] = &domain.Notification{
			ID:        d.ID,
			Username:  d.Username,
			Kind:      domain.NotificationKind(d.Kind),
			Message:   d.Message,
			EventID:   d.EventID,
			Read:      d.Read,
			CreatedAt: d.CreatedAt,
		}
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, username string) error {
	result, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "username": username},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
