// Package httpapi is the HTTP layer: the authentication middleware, the
// role and elevation gates, and the handlers for the admin surface.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"jobdesk.org/internal/audit"
	"jobdesk.org/internal/auth"
	"jobdesk.org/internal/obs"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP surface.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	recorder   *audit.Recorder
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
	maxBody    int64
}

// New wires routes. All sensitive admin routes are gated inside their
// handlers: standard credential, admin role, then the elevated session
// where the route mutates another account.
func New(svc *auth.Service, recorder *audit.Recorder, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		recorder:   recorder,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
		maxBody:    1 << 20,
	}

	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReady)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/users/", a.handleUserResource)

	a.mux.HandleFunc("/admin/verify-password", a.handleVerifyPassword)
	a.mux.HandleFunc("/admin/users", a.handleAdminUsers)
	a.mux.HandleFunc("/admin/users/", a.handleAdminUserResource)
	a.mux.HandleFunc("/admin/impersonate/", a.handleImpersonate)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBody)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "jobdesk-api",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// audit emits an event enriched with request metadata. Best-effort by
// contract; nothing here can fail the surrounding handler.
func (a *API) audit(r *http.Request, event audit.Event) {
	if a.recorder == nil {
		return
	}
	event.Meta = audit.MetaFromRequest(r)
	a.recorder.Record(event)
}
