package http

import (
	"log/slog"
	"net/http"

	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterDeps are the controllers and auth collaborators the router wires together.
type RouterDeps struct {
	Logger        *slog.Logger
	Verifier      domain.TokenVerifier
	AuthLimiter   *middleware.RateLimiter
	Auth          *controllers.AuthController
	Events        *controllers.EventController
	Bookings      *controllers.BookingController
	Users         *controllers.UserController
	Notifications *controllers.NotificationController
	Admin         *controllers.AdminController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(d RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(d.Verifier, d.Logger)
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleAdmin)(next))
	}
	limited := func(next http.HandlerFunc) http.HandlerFunc { return next }
	if d.AuthLimiter != nil {
		limited = d.AuthLimiter.Wrap
	}

	// Auth
	mux.HandleFunc("POST /auth/register", limited(d.Auth.Register))
	mux.HandleFunc("POST /auth/login", limited(d.Auth.Login))

	// Events
	mux.HandleFunc("GET /events", d.Events.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", d.Events.GetEvent)
	mux.HandleFunc("POST /events", auth(d.Events.CreateEvent))
	mux.HandleFunc("PUT /events/{eventID}", auth(d.Events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(d.Events.DeleteEvent))

	// Bookings
	mux.HandleFunc("POST /events/{eventID}/register", auth(d.Bookings.Register))
	mux.HandleFunc("DELETE /events/{eventID}/register", auth(d.Bookings.Unregister))
	mux.HandleFunc("GET /events/{eventID}/tickets/{ticketID}/qr", auth(d.Bookings.TicketQR))
	mux.HandleFunc("POST /events/{eventID}/checkin", auth(d.Bookings.CheckIn))

	// Users
	mux.HandleFunc("GET /users/me", auth(d.Users.Me))
	mux.HandleFunc("GET /users/me/points", auth(d.Users.PointsHistory))
	mux.HandleFunc("GET /users/me/bookings", auth(d.Users.MyBookings))
	mux.HandleFunc("GET /leaderboard", d.Users.Leaderboard)
	for path, col := range map[string]domain.Collection{
		"/users/me/favorites": domain.CollectionFavorites,
		"/users/me/pins":      domain.CollectionPinned,
	} {
		mux.HandleFunc("GET "+path, auth(d.Users.ListCollection(col)))
		mux.HandleFunc("PUT "+path+"/{eventID}", auth(d.Users.AddToCollection(col)))
		mux.HandleFunc("DELETE "+path+"/{eventID}", auth(d.Users.RemoveFromCollection(col)))
	}

	// Notifications
	mux.HandleFunc("GET /notifications", auth(d.Notifications.List))
	mux.HandleFunc("PATCH /notifications/{notificationID}/read", auth(d.Notifications.MarkRead))

	// Admin
	mux.HandleFunc("GET /admin/organizers", admin(d.Admin.ListOrganizers))
	mux.HandleFunc("POST /admin/organizers/{username}/approve", admin(d.Admin.Approve))
	mux.HandleFunc("POST /admin/organizers/{username}/reject", admin(d.Admin.Reject))
	mux.HandleFunc("POST /admin/lifecycle/run", admin(d.Admin.RunLifecycle))

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
