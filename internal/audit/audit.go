// Package audit records authentication and privileged-admin events.
// Recording is best-effort by contract: a failed insert must never
// block or fail the action it describes.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jobdesk.org/internal/ids"
	"jobdesk.org/internal/obs"
)

// Action types recorded by the subsystem.
const (
	ActionLogin                = "login"
	ActionLogout               = "logout"
	ActionFailedLogin          = "failed_login"
	ActionPasswordReset        = "password_reset"
	ActionAccountLocked        = "account_locked"
	ActionRoleChange           = "role_change"
	ActionStatusChange         = "status_change"
	ActionPasswordResetByAdmin = "password_reset_by_admin"
	ActionImpersonation        = "impersonation"
	ActionElevationGranted     = "elevated_session_granted"
)

// Entry is an append-only audit record. ActorID is empty for
// self-actions and set when an admin acts on another user. Entries are
// never mutated or deleted by this subsystem.
type Entry struct {
	ID            string         `json:"id"`
	ActorID       string         `json:"actor_id,omitempty"`
	TargetUserID  string         `json:"target_user_id"`
	Action        string         `json:"action"`
	IP            string         `json:"ip,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
	Success       bool           `json:"success"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Store appends immutable entries and lists them per user.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, int, error)
}

// Event describes a single auditable occurrence.
type Event struct {
	Action        string
	ActorID       string
	TargetUserID  string
	Success       bool
	FailureReason string
	Metadata      map[string]any
	Meta          RequestMeta
}

// Recorder persists events without ever surfacing a failure to the
// caller. Writes are fire-and-forget on their own timeout context.
type Recorder struct {
	store   Store
	timeout time.Duration
	sync    bool
	now     func() time.Time

	wg sync.WaitGroup
}

// RecorderOption configures Recorder.
type RecorderOption func(*Recorder)

// WithSyncWrites makes Record persist inline instead of in a goroutine.
// Tests use this for determinism.
func WithSyncWrites() RecorderOption {
	return func(r *Recorder) {
		r.sync = true
	}
}

// WithWriteTimeout bounds each audit insert.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRecorderClock overrides the time source (useful for tests).
func WithRecorderClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists the event. It never returns an error and never
// panics; storage failures are counted, logged operationally and
// otherwise ignored.
func (r *Recorder) Record(event Event) {
	if r == nil || r.store == nil {
		return
	}
	entry := &Entry{
		ID:            ids.New(),
		ActorID:       event.ActorID,
		TargetUserID:  event.TargetUserID,
		Action:        event.Action,
		IP:            event.Meta.IP,
		UserAgent:     event.Meta.UserAgent,
		Success:       event.Success,
		FailureReason: event.FailureReason,
		Metadata:      event.Metadata,
		CreatedAt:     r.now().UTC(),
	}
	if r.sync {
		r.persist(entry)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.persist(entry)
	}()
}

func (r *Recorder) persist(entry *Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			obs.AuditDropped()
			obs.LogJSON(map[string]any{
				"ts":     time.Now().UTC().Format(time.RFC3339Nano),
				"level":  "error",
				"msg":    "audit_panic",
				"action": entry.Action,
				"detail": fmt.Sprint(rec),
			})
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Append(ctx, entry); err != nil {
		obs.AuditDropped()
		obs.LogJSON(map[string]any{
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
			"level":  "error",
			"msg":    "audit_write_failed",
			"action": entry.Action,
			"target": entry.TargetUserID,
			"error":  err.Error(),
		})
	}
}

// Wait blocks until in-flight writes finish. Shutdown and tests only.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Activity lists a user's audit trail, newest first.
func (r *Recorder) Activity(ctx context.Context, userID string, limit, offset int) ([]Entry, int, error) {
	return r.store.ListByUser(ctx, userID, limit, offset)
}
