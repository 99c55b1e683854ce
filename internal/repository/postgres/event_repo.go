package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"eventhub/internal/domain"

	"github.com/lib/pq"
)

const eventColumns = `id, name, to_char(date, 'YYYY-MM-DD'), time, venue, description, category, organizer,
		capacity, status, is_paid, ticket_price, currency, registrations, version, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var status string
	var ledger []byte
	err := row.Scan(
		&e.ID, &e.Name, &e.Date, &e.Time, &e.Venue, &e.Description, &e.Category, &e.Organizer,
		&e.Capacity, &status, &e.IsPaid, &e.TicketPrice, &e.Currency, &ledger, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	e.Registrations = []domain.Registration{}
	if len(ledger) > 0 {
		if err := json.Unmarshal(ledger, &e.Registrations); err != nil {
			return nil, fmt.Errorf("decode registrations of event %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func encodeLedger(regs []domain.Registration) ([]byte, error) {
	if regs == nil {
		regs = []domain.Registration{}
	}
	return json.Marshal(regs)
}

// isInvalidID reports whether postgres rejected the id as a malformed uuid.
func isInvalidID(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && perr.Code == "22P02"
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	ledger, err := encodeLedger(e.Registrations)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (name, date, time, venue, description, category, organizer, capacity, status,
			is_paid, ticket_price, currency, registrations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, version
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Name, e.Date, e.Time, e.Venue, e.Description, e.Category, e.Organizer, e.Capacity, string(e.Status),
		e.IsPaid, e.TicketPrice, e.Currency, ledger, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID, &e.Version)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, page *domain.PaginationParams) ([]*domain.Event, int, error) {
	var where []string
	var args []any
	n := 1
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR venue ILIKE $%d)", n, n, n))
		args = append(args, "%"+s+"%")
		n++
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", n))
		args = append(args, filter.Category)
		n++
	}
	if filter.Organizer != "" {
		where = append(where, fmt.Sprintf("organizer = $%d", n))
		args = append(args, filter.Organizer)
		n++
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	query := `SELECT ` + eventColumns + ` FROM events` + whereSQL + ` ORDER BY date, time, name`
	if page == nil {
		events, err := r.queryEvents(ctx, query, args...)
		if err != nil {
			return nil, 0, err
		}
		return events, len(events), nil
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1)
	args = append(args, page.PageSize, page.Offset())
	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id::text = ANY($1) ORDER BY date, time, name`
	return r.queryEvents(ctx, query, pq.Array(ids))
}

func (r *eventRepository) ListByStatus(ctx context.Context, statuses ...domain.EventStatus) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status = ANY($1) ORDER BY date`
	return r.queryEvents(ctx, query, pq.Array(statusStrings(statuses)))
}

func (r *eventRepository) ListByRegistrant(ctx context.Context, username string) ([]*domain.Event, error) {
	needle, err := json.Marshal([]map[string]string{{"username": username}})
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE registrations @> $1::jsonb ORDER BY date, time, name`
	return r.queryEvents(ctx, query, string(needle))
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	ledger, err := encodeLedger(e.Registrations)
	if err != nil {
		return err
	}
	query := `
		UPDATE events SET name = $1, date = $2, time = $3, venue = $4, description = $5, category = $6,
			organizer = $7, capacity = $8, status = $9, is_paid = $10, ticket_price = $11, currency = $12,
			registrations = $13, updated_at = $14, version = version + 1
		WHERE id = $15 AND version = $16
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Name, e.Date, e.Time, e.Venue, e.Description, e.Category, e.Organizer, e.Capacity, string(e.Status),
		e.IsPaid, e.TicketPrice, e.Currency, ledger, e.UpdatedAt, e.ID, e.Version,
	)
	if err != nil {
		if isInvalidID(err) {
			return domain.ErrNotFound
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConcurrentUpdate
	}
	e.Version++
	return nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error) {
	query := `
		UPDATE events SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`
	result, err := r.DB.ExecContext(ctx, query, string(to), id, pq.Array(statusStrings(from)))
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
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

func statusStrings(statuses []domain.EventStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
