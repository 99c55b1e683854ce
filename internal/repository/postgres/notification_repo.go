package postgres

import (
	"context"
	"database/sql"

	"eventhub/internal/domain"
)

type notificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(db *sql.DB) domain.NotificationRepository {
	return &notificationRepository{DB: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, username, kind, message, event_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.ExecContext(ctx, query, n.ID, n.Username, string(n.Kind), n.Message, n.EventID, n.Read, n.CreatedAt)
	return err
}

func (r *notificationRepository) ListByUsername(ctx context.Context, username string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, username, kind, message, event_id, read, created_at
		FROM notifications
		WHERE username = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.DB.QueryContext(ctx, query, username, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Notification, 0)
	for rows.Next() {
		n := &domain.Notification{}
		var kind string
		if err := rows.Scan(&n.ID, &n.Username, &kind, &n.Message, &n.EventID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = domain.NotificationKind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, username string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND username = $2`, id, username)
	if err != nil {
		if isInvalidID(err) {
			return domain.ErrNotFound
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
