package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"eventhub/internal/clock"
	"eventhub/internal/domain"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	testNow    = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	testClock  = clock.NewFixed(testNow)
)

const testTimeout = 5 * time.Second

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.Registrations = append([]domain.Registration(nil), e.Registrations...)
	return &c
}

// fakeEventRepo is an in-memory EventRepository with version checks.
type fakeEventRepo struct {
	mu          sync.Mutex
	byID        map[string]*domain.Event
	nextID      int
	createErr   error
	updateErr   error
	updateCalls int
	statusErr   map[string]error

	// conflicts makes the next N updates fail with ErrConcurrentUpdate.
	conflicts int
}

func newFakeEventRepo(events ...*domain.Event) *fakeEventRepo {
	f := &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
	for _, e := range events {
		f.byID[e.ID] = cloneEvent(e)
	}
	return f
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	e.Version = 1
	f.nextID++
	f.byID[e.ID] = cloneEvent(e)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[id]; ok {
		return cloneEvent(e), nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) List(ctx context.Context, filter domain.EventFilter, page *domain.PaginationParams) ([]*domain.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Event
	for _, e := range f.byID {
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	total := len(out)
	if page != nil {
		start := min(page.Offset(), total)
		end := min(start+page.PageSize, total)
		out = out[start:end]
	}
	return out, total, nil
}

func (f *fakeEventRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Event
	for _, id := range ids {
		if e, ok := f.byID[id]; ok {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (f *fakeEventRepo) ListByStatus(ctx context.Context, statuses ...domain.EventStatus) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Event
	for _, e := range f.byID {
		if slices.Contains(statuses, e.Status) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEventRepo) ListByRegistrant(ctx context.Context, username string) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Event
	for _, e := range f.byID {
		if _, ok := e.Registration(username); ok {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		return domain.ErrConcurrentUpdate
	}
	cur, ok := f.byID[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != e.Version {
		return domain.ErrConcurrentUpdate
	}
	e.Version++
	f.byID[e.ID] = cloneEvent(e)
	return nil
}

func (f *fakeEventRepo) UpdateStatus(ctx context.Context, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statusErr[id]; err != nil {
		return false, err
	}
	e, ok := f.byID[id]
	if !ok || !slices.Contains(from, e.Status) {
		return false, nil
	}
	e.Status = to
	e.Version++
	return true, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) get(id string) *domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeEventRepo) status(id string) domain.EventStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Status
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu            sync.Mutex
	byUsername    map[string]*domain.User
	history       map[string][]domain.PointsEntry
	createErr     error
	applyErr      map[string]error
	removedRefs   []string
	removeRefsErr error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{
		byUsername: make(map[string]*domain.User),
		history:    make(map[string][]domain.PointsEntry),
		applyErr:   make(map[string]error),
	}
	for _, u := range users {
		f.byUsername[u.Username] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byUsername[u.Username]; ok {
		return domain.ErrDuplicateUsername
	}
	u.ID = "user-" + u.Username
	f.byUsername[u.Username] = u
	return nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byUsername[username]; ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) ListByRoleAndStatus(ctx context.Context, role domain.Role, status domain.AccountStatus) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for _, u := range f.byUsername {
		if u.Role == role && u.AccountStatus == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) SetAccountStatus(ctx context.Context, username string, status domain.AccountStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byUsername[username]
	if !ok {
		return domain.ErrNotFound
	}
	u.AccountStatus = status
	return nil
}

func (f *fakeUserRepo) ApplyPoints(ctx context.Context, username string, entry domain.PointsEntry, stats domain.UserStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.applyErr[username]; err != nil {
		return err
	}
	u, ok := f.byUsername[username]
	if !ok {
		return domain.ErrNotFound
	}
	u.Points += entry.Delta
	u.Stats.TicketsSold += stats.TicketsSold
	u.Stats.EventsHosted += stats.EventsHosted
	f.history[username] = append(f.history[username], entry)
	return nil
}

func (f *fakeUserRepo) ListPointsHistory(ctx context.Context, username string, limit int) ([]domain.PointsEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUsername[username]; !ok {
		return nil, domain.ErrNotFound
	}
	h := f.history[username]
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h, nil
}

func (f *fakeUserRepo) Leaderboard(ctx context.Context, limit int) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for _, u := range f.byUsername {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserRepo) AddToCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byUsername[username]
	if !ok {
		return domain.ErrNotFound
	}
	list := &u.Favorites
	if c == domain.CollectionPinned {
		list = &u.Pinned
	}
	if !slices.Contains(*list, eventID) {
		*list = append(*list, eventID)
	}
	return nil
}

func (f *fakeUserRepo) RemoveFromCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byUsername[username]
	if !ok {
		return domain.ErrNotFound
	}
	list := &u.Favorites
	if c == domain.CollectionPinned {
		list = &u.Pinned
	}
	*list = slices.DeleteFunc(*list, func(id string) bool { return id == eventID })
	return nil
}

func (f *fakeUserRepo) RemoveEventReferences(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeRefsErr != nil {
		return f.removeRefsErr
	}
	f.removedRefs = append(f.removedRefs, eventID)
	return nil
}

// fakeLocker counts lock acquisitions.
type fakeLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	err     error
}

func (f *fakeLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.locks++
	return func() {
		f.mu.Lock()
		f.unlocks++
		f.mu.Unlock()
	}, nil
}

// fakePublisher records published booking events.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, evt domain.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return f.err
}

// fakePointsService records creation awards.
type fakePointsService struct {
	fakePublisher
	awarded []string
	err     error
}

func (f *fakePointsService) AwardEventCreated(ctx context.Context, ev *domain.Event) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.awarded = append(f.awarded, ev.ID)
	return domain.EventCreationBonus, nil
}

// fakeNotificationRepo is an in-memory NotificationRepository.
type fakeNotificationRepo struct {
	items     []*domain.Notification
	createErr error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.items = append(f.items, n)
	return nil
}

func (f *fakeNotificationRepo) ListByUsername(ctx context.Context, username string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	for _, n := range f.items {
		if n.Username != username || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, username string) error {
	for _, n := range f.items {
		if n.ID == id && n.Username == username {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeNotificationRepo) kinds(username string) []domain.NotificationKind {
	var out []domain.NotificationKind
	for _, n := range f.items {
		if n.Username == username {
			out = append(out, n.Kind)
		}
	}
	return out
}

// fakeNotifier records the notifications requested by services.
type fakeNotifier struct {
	fakePublisher
	completed []string
	decided   []*domain.User
	err       error
}

func (f *fakeNotifier) List(ctx context.Context, username string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, id, username string) error { return nil }

func (f *fakeNotifier) EventCompleted(ctx context.Context, ev *domain.Event) error {
	f.completed = append(f.completed, ev.ID)
	return f.err
}

func (f *fakeNotifier) AccountDecided(ctx context.Context, user *domain.User) error {
	f.decided = append(f.decided, user)
	return f.err
}

// fakeEmailService records sent emails.
type fakeEmailService struct {
	confirmations []*domain.BookingConfirmationEmailData
	decisions     []*domain.OrganizerDecisionEmailData
	err           error
}

func (f *fakeEmailService) SendBookingConfirmation(ctx context.Context, data *domain.BookingConfirmationEmailData) error {
	f.confirmations = append(f.confirmations, data)
	return f.err
}

func (f *fakeEmailService) SendOrganizerDecision(ctx context.Context, data *domain.OrganizerDecisionEmailData) error {
	f.decisions = append(f.decisions, data)
	return f.err
}

// fakeHasher "hashes" by concatenation.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) { return salt + ":" + password, nil }

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeIssuer returns a predictable token.
type fakeIssuer struct {
	lastUsername string
	lastRole     domain.Role
	err          error
}

func (f *fakeIssuer) Issue(username string, role domain.Role, expiry time.Duration) (string, error) {
	f.lastUsername, f.lastRole = username, role
	if f.err != nil {
		return "", f.err
	}
	return "token-" + username, nil
}

func approvedManager(username string) *domain.User {
	return &domain.User{Username: username, Role: domain.RoleManager, AccountStatus: domain.AccountApproved, FullName: "Org " + username, Email: username + "@example.com"}
}

func attendee(username string) *domain.User {
	return &domain.User{Username: username, Role: domain.RoleUser, AccountStatus: domain.AccountApproved, FullName: "User " + username, Email: username + "@example.com"}
}

func activeEvent(id string, capacity int, regs ...domain.Registration) *domain.Event {
	return &domain.Event{
		ID:            id,
		Name:          "Event " + id,
		Date:          "2024-04-01",
		Organizer:     "org",
		Capacity:      capacity,
		Status:        domain.StatusActive,
		Registrations: regs,
		Version:       1,
	}
}

func registration(username string, qty int) domain.Registration {
	tickets := make([]string, qty)
	for i := range tickets {
		tickets[i] = fmt.Sprintf("%s-%d", username, i)
	}
	return domain.Registration{Username: username, Quantity: qty, Tickets: tickets, PaymentStatus: domain.PaymentCompleted}
}
