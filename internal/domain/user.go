package domain

import (
	"context"
	"time"
)

// Role is an application role.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// AccountStatus is the approval state of an account. Only managers wait for approval.
type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountApproved AccountStatus = "approved"
	AccountRejected AccountStatus = "rejected"
)

// PointsEntry is one line of a user's points history.
// swagger:model PointsEntry
type PointsEntry struct {
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	EventID   string    `json:"eventId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserStats are the counters kept alongside the points balance.
type UserStats struct {
	TicketsSold  int `json:"ticketsSold"`
	EventsHosted int `json:"eventsHosted"`
}

// User represents a registered account
// swagger:model User
type User struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	Email         string        `json:"email"`
	FullName      string        `json:"fullName"`
	PasswordHash  string        `json:"-"`
	Salt          string        `json:"-"`
	Role          Role          `json:"role"`
	AccountStatus AccountStatus `json:"accountStatus"`
	Points        int           `json:"points"`
	Stats         UserStats     `json:"stats"`
	Favorites     []string      `json:"favorites"`
	Pinned        []string      `json:"pinned"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IsApprovedOrganizer reports whether the user may create and manage events.
func (u *User) IsApprovedOrganizer() bool {
	return u.Role == RoleManager && u.AccountStatus == AccountApproved
}

// Principal is the authenticated caller of a request.
type Principal struct {
	Username string
	Role     Role
}

// IsAdmin reports whether the caller has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Collection names a per-user set of event ids.
type Collection string

const (
	CollectionFavorites Collection = "favorites"
	CollectionPinned    Collection = "pinned"
)

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == CollectionFavorites || c == CollectionPinned
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(username string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (Principal, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListByRoleAndStatus(ctx context.Context, role Role, status AccountStatus) ([]*User, error)
	SetAccountStatus(ctx context.Context, username string, status AccountStatus) error
	// ApplyPoints adds entry.Delta to the balance, adds stats to the counters and appends entry to the history.
	ApplyPoints(ctx context.Context, username string, entry PointsEntry, stats UserStats) error
	ListPointsHistory(ctx context.Context, username string, limit int) ([]PointsEntry, error)
	Leaderboard(ctx context.Context, limit int) ([]*User, error)
	AddToCollection(ctx context.Context, username string, c Collection, eventID string) error
	RemoveFromCollection(ctx context.Context, username string, c Collection, eventID string) error
	// RemoveEventReferences drops eventID from every user's favorites and pins.
	RemoveEventReferences(ctx context.Context, eventID string) error
}

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     Role
}

// AuthService defines account registration and login.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, username, password string) (token string, user *User, err error)
	// EnsureAdmin creates the admin account if no user with that username exists.
	EnsureAdmin(ctx context.Context, username, password string) error
}

// UserService defines profile, collection, leaderboard and admin operations.
type UserService interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	PointsHistory(ctx context.Context, username string, limit int) ([]PointsEntry, error)
	Leaderboard(ctx context.Context, limit int) ([]*User, error)
	ListCollection(ctx context.Context, username string, c Collection) ([]*Event, error)
	AddToCollection(ctx context.Context, username string, c Collection, eventID string) error
	RemoveFromCollection(ctx context.Context, username string, c Collection, eventID string) error
	ListOrganizers(ctx context.Context, status AccountStatus) ([]*User, error)
	DecideOrganizer(ctx context.Context, username string, approve bool) (*User, error)
}
