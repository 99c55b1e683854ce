package services

import (
	"context"
	"errors"
	"testing"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	users    *fakeUserRepo
	events   *fakeEventRepo
	notifier *fakeNotifier
	svc      domain.UserService
}

func newUserFixture() *userFixture {
	pending := approvedManager("mgr")
	pending.AccountStatus = domain.AccountPending
	f := &userFixture{
		users:    newFakeUserRepo(attendee("alice"), approvedManager("org"), pending),
		events:   newFakeEventRepo(activeEvent("ev-1", 10), activeEvent("ev-2", 10)),
		notifier: &fakeNotifier{},
	}
	f.svc = NewUserService(f.users, f.events, f.notifier, testLogger, testTimeout)
	return f
}

func TestUserService_GetByUsername(t *testing.T) {
	f := newUserFixture()
	u, err := f.svc.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = f.svc.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_Collections(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.AddToCollection(ctx, "alice", domain.CollectionFavorites, "ev-1"))
	require.NoError(t, f.svc.AddToCollection(ctx, "alice", domain.CollectionFavorites, "ev-1"), "adding twice is idempotent")
	require.NoError(t, f.svc.AddToCollection(ctx, "alice", domain.CollectionPinned, "ev-2"))

	favs, err := f.svc.ListCollection(ctx, "alice", domain.CollectionFavorites)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "ev-1", favs[0].ID)

	pins, err := f.svc.ListCollection(ctx, "alice", domain.CollectionPinned)
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, "ev-2", pins[0].ID)

	require.NoError(t, f.svc.RemoveFromCollection(ctx, "alice", domain.CollectionFavorites, "ev-1"))
	favs, err = f.svc.ListCollection(ctx, "alice", domain.CollectionFavorites)
	require.NoError(t, err)
	assert.NotNil(t, favs)
	assert.Empty(t, favs)

	assert.ErrorIs(t, f.svc.AddToCollection(ctx, "alice", domain.CollectionFavorites, "missing"), domain.ErrEventNotFound)
	assert.ErrorIs(t, f.svc.AddToCollection(ctx, "alice", "wishlist", "ev-1"), domain.ErrInvalidInput)
	assert.ErrorIs(t, f.svc.AddToCollection(ctx, "ghost", domain.CollectionPinned, "ev-1"), domain.ErrUserNotFound)
	_, err = f.svc.ListCollection(ctx, "alice", "wishlist")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUserService_PointsHistoryAndLeaderboard(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	require.NoError(t, f.users.ApplyPoints(ctx, "alice", domain.PointsEntry{Delta: 10, Reason: domain.ReasonBooking}, domain.UserStats{}))
	require.NoError(t, f.users.ApplyPoints(ctx, "org", domain.PointsEntry{Delta: 50, Reason: domain.ReasonEventCreated}, domain.UserStats{EventsHosted: 1}))

	history, err := f.svc.PointsHistory(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 10, history[0].Delta)

	empty, err := f.svc.PointsHistory(ctx, "mgr", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = f.svc.PointsHistory(ctx, "ghost", 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	top, err := f.svc.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "org", top[0].Username)
	assert.Equal(t, "alice", top[1].Username)
}

func TestUserService_Organizers(t *testing.T) {
	ctx := context.Background()

	t.Run("list pending by default", func(t *testing.T) {
		f := newUserFixture()
		list, err := f.svc.ListOrganizers(ctx, "")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "mgr", list[0].Username)

		_, err = f.svc.ListOrganizers(ctx, "maybe")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("approve", func(t *testing.T) {
		f := newUserFixture()
		u, err := f.svc.DecideOrganizer(ctx, "mgr", true)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountApproved, u.AccountStatus)
		assert.Equal(t, domain.AccountApproved, f.users.byUsername["mgr"].AccountStatus)
		require.Len(t, f.notifier.decided, 1)
	})

	t.Run("reject with notifier failure", func(t *testing.T) {
		f := newUserFixture()
		f.notifier.err = errors.New("mail down")
		u, err := f.svc.DecideOrganizer(ctx, "mgr", false)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountRejected, u.AccountStatus)
	})

	t.Run("only managers", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.svc.DecideOrganizer(ctx, "alice", true)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.svc.DecideOrganizer(ctx, "ghost", true)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
