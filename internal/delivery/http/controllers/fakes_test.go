package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var (
	alice = domain.Principal{Username: "alice", Role: domain.RoleUser}
	admin = domain.Principal{Username: "root", Role: domain.RoleAdmin}
)

func withPrincipal(req *http.Request, p domain.Principal) *http.Request {
	return req.WithContext(middleware.SetPrincipal(req.Context(), p))
}

// decodeEnvelope decodes the response envelope and re-decodes its data into dest when dest is non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil {
		require.Nil(t, envelope.Error, "success response must have error nil")
		data, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, dest))
	}
	return envelope
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	events     []*domain.Event
	total      int
	event      *domain.Event
	awarded    int
	err        error
	lastFilter domain.EventFilter
	lastPage   *domain.PaginationParams
	lastCaller domain.Principal
	lastID     string
	lastInput  domain.EventInput
	lastUser   string
}

func (f *fakeEventService) CreateEvent(_ context.Context, caller domain.Principal, input domain.EventInput) (*domain.Event, int, error) {
	f.lastCaller, f.lastInput = caller, input
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.event, f.awarded, nil
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) ListEvents(_ context.Context, filter domain.EventFilter, page *domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastFilter, f.lastPage = filter, page
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.events, f.total, nil
}

func (f *fakeEventService) UpdateEvent(_ context.Context, caller domain.Principal, id string, input domain.EventInput) (*domain.Event, error) {
	f.lastCaller, f.lastID, f.lastInput = caller, id, input
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) DeleteEvent(_ context.Context, caller domain.Principal, id string) error {
	f.lastCaller, f.lastID = caller, id
	return f.err
}

func (f *fakeEventService) ListMyBookings(_ context.Context, username string) ([]*domain.Event, error) {
	f.lastUser = username
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

// fakeBookingService implements domain.BookingService.
type fakeBookingService struct {
	result       *domain.BookingResult
	owner        *domain.Registration
	err          error
	lastCaller   domain.Principal
	lastEventID  string
	lastReq      domain.BookingRequest
	lastUsername string
	lastTicketID string
	checked      int
}

func (f *fakeBookingService) Register(_ context.Context, caller domain.Principal, eventID string, req domain.BookingRequest) (*domain.BookingResult, error) {
	f.lastCaller, f.lastEventID, f.lastReq = caller, eventID, req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeBookingService) Unregister(_ context.Context, caller domain.Principal, eventID, username string) (*domain.BookingResult, error) {
	f.lastCaller, f.lastEventID, f.lastUsername = caller, eventID, username
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeBookingService) TicketOwner(_ context.Context, caller domain.Principal, eventID, ticketID string) (*domain.Registration, error) {
	f.lastCaller, f.lastEventID, f.lastTicketID = caller, eventID, ticketID
	if f.err != nil {
		return nil, f.err
	}
	return f.owner, nil
}

func (f *fakeBookingService) CheckTicket(_ context.Context, caller domain.Principal, eventID, ticketID string) (*domain.Registration, error) {
	f.lastCaller, f.lastEventID, f.lastTicketID = caller, eventID, ticketID
	f.checked++
	if f.err != nil {
		return nil, f.err
	}
	return f.owner, nil
}

// fakeQR implements TicketCodec. Payloads it accepts look like "signed:<eventID>:<ticketID>".
type fakeQR struct {
	png      []byte
	err      error
	lastSize int
}

func (f *fakeQR) PNG(_, _ string, size int) ([]byte, error) {
	f.lastSize = size
	return f.png, f.err
}

func (f *fakeQR) Verify(payload string) (string, string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 || parts[0] != "signed" {
		return "", "", errors.New("invalid ticket signature")
	}
	return parts[1], parts[2], nil
}

// fakeAuthService implements domain.AuthService.
type fakeAuthService struct {
	user      *domain.User
	token     string
	err       error
	lastInput domain.RegisterInput
	lastLogin [2]string
}

func (f *fakeAuthService) Register(_ context.Context, input domain.RegisterInput) (*domain.User, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeAuthService) Login(_ context.Context, username, password string) (string, *domain.User, error) {
	f.lastLogin = [2]string{username, password}
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeAuthService) EnsureAdmin(context.Context, string, string) error { return nil }

// fakeUserService implements domain.UserService.
type fakeUserService struct {
	user        *domain.User
	users       []*domain.User
	history     []domain.PointsEntry
	events      []*domain.Event
	err         error
	lastUser    string
	lastLimit   int
	lastCol     domain.Collection
	lastEventID string
	lastStatus  domain.AccountStatus
	lastApprove bool
}

func (f *fakeUserService) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.lastUser = username
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) PointsHistory(_ context.Context, username string, limit int) ([]domain.PointsEntry, error) {
	f.lastUser, f.lastLimit = username, limit
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

func (f *fakeUserService) Leaderboard(_ context.Context, limit int) ([]*domain.User, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func (f *fakeUserService) ListCollection(_ context.Context, username string, c domain.Collection) ([]*domain.Event, error) {
	f.lastUser, f.lastCol = username, c
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeUserService) AddToCollection(_ context.Context, username string, c domain.Collection, eventID string) error {
	f.lastUser, f.lastCol, f.lastEventID = username, c, eventID
	return f.err
}

func (f *fakeUserService) RemoveFromCollection(_ context.Context, username string, c domain.Collection, eventID string) error {
	f.lastUser, f.lastCol, f.lastEventID = username, c, eventID
	return f.err
}

func (f *fakeUserService) ListOrganizers(_ context.Context, status domain.AccountStatus) ([]*domain.User, error) {
	f.lastStatus = status
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func (f *fakeUserService) DecideOrganizer(_ context.Context, username string, approve bool) (*domain.User, error) {
	f.lastUser, f.lastApprove = username, approve
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// fakeNotificationService implements domain.NotificationService.
type fakeNotificationService struct {
	items      []*domain.Notification
	err        error
	lastUser   string
	lastUnread bool
	lastLimit  int
	lastID     string
}

func (f *fakeNotificationService) Publish(context.Context, domain.BookingEvent) error { return nil }

func (f *fakeNotificationService) List(_ context.Context, username string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	f.lastUser, f.lastUnread, f.lastLimit = username, unreadOnly, limit
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeNotificationService) MarkRead(_ context.Context, id, username string) error {
	f.lastID, f.lastUser = id, username
	return f.err
}

func (f *fakeNotificationService) EventCompleted(context.Context, *domain.Event) error { return nil }

func (f *fakeNotificationService) AccountDecided(context.Context, *domain.User) error { return nil }

// fakeLifecycle implements domain.LifecycleRunner.
type fakeLifecycle struct {
	summary domain.LifecycleSummary
	err     error
	calls   int
}

func (f *fakeLifecycle) RunOnce(context.Context) (domain.LifecycleSummary, error) {
	f.calls++
	return f.summary, f.err
}
