package handlers

import "net/http"

// Handlers groups everything the router needs
type Handlers struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Activities *ActivityHandler
	Sequences  *SequenceHandler
	Progress   *ProgressHandler
	Account    *AccountHandler
	Startup    *StartupStatus
}

// Routes registers the HTTP API on a new mux
func Routes(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	auth := h.Middleware.RequireAuth
	limit := h.Middleware.RateLimit

	if h.Startup != nil {
		mux.Handle("GET /healthz", h.Startup)
	}

	// Public auth routes
	mux.HandleFunc("POST /auth/register", limit(h.Auth.Register))
	mux.HandleFunc("POST /auth/login", limit(h.Auth.Login))
	mux.HandleFunc("GET /auth/{provider}/start", limit(h.Auth.StartOAuth))
	mux.HandleFunc("GET /auth/{provider}/callback", limit(h.Auth.OAuthCallback))

	mux.HandleFunc("GET /api/me", auth(h.Auth.Me))

	// Activities
	mux.HandleFunc("GET /api/activities", auth(h.Activities.List))
	mux.HandleFunc("POST /api/activities", auth(h.Activities.Create))
	mux.HandleFunc("GET /api/activities/{id}", auth(h.Activities.Get))
	mux.HandleFunc("PUT /api/activities/{id}", auth(h.Activities.Update))
	mux.HandleFunc("DELETE /api/activities/{id}", auth(h.Activities.Delete))
	mux.HandleFunc("POST /api/activities/{id}/complete", auth(h.Activities.Complete))
	mux.HandleFunc("POST /api/activities/{id}/snooze", auth(h.Activities.Snooze))
	mux.HandleFunc("POST /api/routine/reset", auth(h.Activities.ResetRoutine))

	// Guided sequences
	mux.HandleFunc("GET /api/activities/{id}/sequence", auth(h.Sequences.State))
	mux.HandleFunc("POST /api/activities/{id}/sequence/advance", auth(h.Sequences.Advance))
	mux.HandleFunc("POST /api/activities/{id}/sequence/retreat", auth(h.Sequences.Retreat))
	mux.HandleFunc("POST /api/activities/{id}/sequence/complete-step", auth(h.Sequences.CompleteStep))
	mux.HandleFunc("POST /api/activities/{id}/sequence/finish", auth(h.Sequences.Finish))

	// Progress
	mux.HandleFunc("GET /api/stats", auth(h.Progress.Stats))
	mux.HandleFunc("GET /api/achievements", auth(h.Progress.Achievements))
	mux.HandleFunc("GET /api/notifications", auth(h.Progress.Notifications))

	// Account
	mux.HandleFunc("PUT /api/child-pin", auth(h.Account.SetChildPIN))
	mux.HandleFunc("POST /api/child-pin/verify", limit(auth(h.Account.VerifyChildPIN)))
	mux.HandleFunc("PUT /api/device/exact-alarms", auth(h.Account.SetExactAlarms))

	return mux
}
