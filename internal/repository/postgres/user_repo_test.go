package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "username", "email", "full_name", "password_hash", "salt", "role", "account_status",
	"points", "tickets_sold", "events_hosted", "favorites", "pinned", "created_at", "updated_at",
}

func addUserRow(rows *sqlmock.Rows, username, role, status string, points int64) *sqlmock.Rows {
	return rows.AddRow("id-"+username, username, username+"@example.com", "Full "+username, "hash", "salt", role, status,
		points, int64(3), int64(1), []byte("{ev-1,ev-2}"), []byte("{}"), repoTime, repoTime)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		errIs   error
		wantErr bool
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("alice", "alice@example.com", "Alice", "hash", "salt", "manager", "pending", repoTime, repoTime).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-uuid-1"))
			},
			wantID: "user-uuid-1",
		},
		{
			name: "unique violation returns ErrDuplicateUsername",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO users`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			errIs:   domain.ErrDuplicateUsername,
			wantErr: true,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO users`).
					WillReturnError(sql.ErrConnDone)
			},
			errIs:   sql.ErrConnDone,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			user := &domain.User{
				Username:      "alice",
				Email:         "alice@example.com",
				FullName:      "Alice",
				PasswordHash:  "hash",
				Salt:          "salt",
				Role:          domain.RoleManager,
				AccountStatus: domain.AccountPending,
				CreatedAt:     repoTime,
				UpdatedAt:     repoTime,
			}
			err = NewUserRepository(db).Create(ctx, user)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, tt.errIs), "expected %v, got %v", tt.errIs, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, user.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, username, email`).
			WithArgs("alice").
			WillReturnRows(addUserRow(sqlmock.NewRows(userRowColumns), "alice", "manager", "approved", 120))
		got, err := NewUserRepository(db).GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, &domain.User{
			ID:            "id-alice",
			Username:      "alice",
			Email:         "alice@example.com",
			FullName:      "Full alice",
			PasswordHash:  "hash",
			Salt:          "salt",
			Role:          domain.RoleManager,
			AccountStatus: domain.AccountApproved,
			Points:        120,
			Stats:         domain.UserStats{TicketsSold: 3, EventsHosted: 1},
			Favorites:     []string{"ev-1", "ev-2"},
			Pinned:        []string{},
			CreatedAt:     repoTime,
			UpdatedAt:     repoTime,
		}, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, username, email`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)
		got, err := NewUserRepository(db).GetByUsername(ctx, "ghost")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.Nil(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_ApplyPoints(t *testing.T) {
	ctx := context.Background()
	entry := domain.PointsEntry{Delta: 20, Reason: domain.ReasonBooking, EventID: "ev-1", CreatedAt: repoTime}
	stats := domain.UserStats{TicketsSold: 2}

	tests := []struct {
		name  string
		mock  func(mock sqlmock.Sqlmock)
		errIs error
	}{
		{
			name: "success commits balance and history",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE users SET points = points \+ \$1`).
					WithArgs(20, 2, 0, "alice").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO points_history`).
					WithArgs("alice", 20, domain.ReasonBooking, "ev-1", repoTime).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "unknown user rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE users SET points`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			errIs: domain.ErrUserNotFound,
		},
		{
			name: "history insert failure rolls back",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE users SET points`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO points_history`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			errIs: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewUserRepository(db).ApplyPoints(ctx, "alice", entry, stats)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_ListPointsHistory(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	later := repoTime.Add(time.Hour)
	mock.ExpectQuery(`FROM points_history\s+WHERE username = \$1\s+ORDER BY created_at DESC, id DESC LIMIT \$2`).
		WithArgs("alice", 5).
		WillReturnRows(sqlmock.NewRows([]string{"delta", "reason", "event_id", "created_at"}).
			AddRow(int64(-10), domain.ReasonBookingCancel, "ev-1", later).
			AddRow(int64(10), domain.ReasonBooking, "ev-1", repoTime))

	got, err := NewUserRepository(db).ListPointsHistory(ctx, "alice", 5)
	require.NoError(t, err)
	require.Equal(t, []domain.PointsEntry{
		{Delta: -10, Reason: domain.ReasonBookingCancel, EventID: "ev-1", CreatedAt: later},
		{Delta: 10, Reason: domain.ReasonBooking, EventID: "ev-1", CreatedAt: repoTime},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Leaderboard(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users ORDER BY points DESC, username LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(addUserRow(addUserRow(sqlmock.NewRows(userRowColumns), "bob", "user", "approved", 90), "alice", "user", "approved", 40))

	got, err := NewUserRepository(db).Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "bob", got[0].Username)
	require.Equal(t, 90, got[0].Points)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Collections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		collection domain.Collection
		remove     bool
		mock       func(mock sqlmock.Sqlmock)
		errIs      error
	}{
		{
			name:       "add favorite",
			collection: domain.CollectionFavorites,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users SET favorites = CASE WHEN \$1 = ANY\(favorites\)`).
					WithArgs("ev-1", "alice").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:       "remove pin",
			collection: domain.CollectionPinned,
			remove:     true,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users SET pinned = array_remove\(pinned, \$1\)`).
					WithArgs("ev-1", "alice").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:       "unknown user",
			collection: domain.CollectionPinned,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users SET pinned`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			errIs: domain.ErrUserNotFound,
		},
		{
			name:       "unknown collection",
			collection: domain.Collection("wishlist"),
			mock:       func(mock sqlmock.Sqlmock) {},
			errIs:      domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewUserRepository(db)
			if tt.remove {
				err = repo.RemoveFromCollection(ctx, "alice", tt.collection, "ev-1")
			} else {
				err = repo.AddToCollection(ctx, "alice", tt.collection, "ev-1")
			}
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_RemoveEventReferences(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET favorites = array_remove\(favorites, \$1\), pinned = array_remove\(pinned, \$1\)`).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, NewUserRepository(db).RemoveEventReferences(ctx, "ev-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetAccountStatus(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET account_status = \$1`).
		WithArgs("approved", "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET account_status = \$1`).
		WithArgs("rejected", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	require.NoError(t, repo.SetAccountStatus(ctx, "alice", domain.AccountApproved))
	require.ErrorIs(t, repo.SetAccountStatus(ctx, "ghost", domain.AccountRejected), domain.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
