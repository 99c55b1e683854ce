package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventhub/internal/domain"

	"github.com/lib/pq"
)

const userColumns = `id, username, email, full_name, password_hash, salt, role, account_status,
		points, tickets_sold, events_hosted, favorites, pinned, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var role, status string
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Salt, &role, &status,
		&u.Points, &u.Stats.TicketsSold, &u.Stats.EventsHosted, pq.Array(&u.Favorites), pq.Array(&u.Pinned),
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.AccountStatus = domain.AccountStatus(status)
	if u.Favorites == nil {
		u.Favorites = []string{}
	}
	if u.Pinned == nil {
		u.Pinned = []string{}
	}
	return u, nil
}

func (r *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, full_name, password_hash, salt, role, account_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		u.Username, u.Email, u.FullName, u.PasswordHash, u.Salt, string(u.Role), string(u.AccountStatus), u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return domain.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) ListByRoleAndStatus(ctx context.Context, role domain.Role, status domain.AccountStatus) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND account_status = $2 ORDER BY created_at`
	return r.queryUsers(ctx, query, string(role), string(status))
}

func (r *userRepository) SetAccountStatus(ctx context.Context, username string, status domain.AccountStatus) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE users SET account_status = $1, updated_at = NOW() WHERE username = $2`, string(status), username)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *userRepository) ApplyPoints(ctx context.Context, username string, entry domain.PointsEntry, stats domain.UserStats) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE users SET points = points + $1, tickets_sold = tickets_sold + $2, events_hosted = events_hosted + $3,
			updated_at = NOW()
		WHERE username = $4
	`, entry.Delta, stats.TicketsSold, stats.EventsHosted, username)
	if err != nil {
		return err
	}
	if err = requireRow(result); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO points_history (username, delta, reason, event_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, username, entry.Delta, entry.Reason, entry.EventID, entry.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *userRepository) ListPointsHistory(ctx context.Context, username string, limit int) ([]domain.PointsEntry, error) {
	query := `
		SELECT delta, reason, event_id, created_at
		FROM points_history
		WHERE username = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{username}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]domain.PointsEntry, 0)
	for rows.Next() {
		var e domain.PointsEntry
		if err := rows.Scan(&e.Delta, &e.Reason, &e.EventID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *userRepository) Leaderboard(ctx context.Context, limit int) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY points DESC, username LIMIT $1`
	return r.queryUsers(ctx, query, limit)
}

func collectionColumn(c domain.Collection) (string, error) {
	switch c {
	case domain.CollectionFavorites:
		return "favorites", nil
	case domain.CollectionPinned:
		return "pinned", nil
	}
	return "", fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, c)
}

func (r *userRepository) AddToCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	col, err := collectionColumn(c)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE users SET %[1]s = CASE WHEN $1 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $1) END, updated_at = NOW()
		WHERE username = $2
	`, col)
	result, err := r.DB.ExecContext(ctx, query, eventID, username)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *userRepository) RemoveFromCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	col, err := collectionColumn(c)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE users SET %[1]s = array_remove(%[1]s, $1), updated_at = NOW() WHERE username = $2`, col)
	result, err := r.DB.ExecContext(ctx, query, eventID, username)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *userRepository) RemoveEventReferences(ctx context.Context, eventID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users SET favorites = array_remove(favorites, $1), pinned = array_remove(pinned, $1)
		WHERE $1 = ANY(favorites) OR $1 = ANY(pinned)
	`, eventID)
	return err
}

func requireRow(result sql.Result) error {
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
