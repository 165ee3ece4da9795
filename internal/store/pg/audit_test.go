package pg

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"jobdesk.org/internal/audit"
)

func TestAppendEntry(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)insert into audit_log`).
		WithArgs("a1", "adm", "u2", audit.ActionRoleChange, "10.0.0.1", "test-agent", true, "", []byte(`{"role":"admin"}`), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Append(context.Background(), &audit.Entry{
		ID:           "a1",
		ActorID:      "adm",
		TargetUserID: "u2",
		Action:       audit.ActionRoleChange,
		IP:           "10.0.0.1",
		UserAgent:    "test-agent",
		Success:      true,
		Metadata:     map[string]any{"role": "admin"},
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Failed logins against unknown accounts have neither actor nor target;
// both columns must go in as null.
func TestAppendEntryWithoutActorOrTarget(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)insert into audit_log`).
		WithArgs("a2", nil, nil, audit.ActionFailedLogin, "10.0.0.1", "test-agent", false, "invalid credentials", []byte("{}"), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Append(context.Background(), &audit.Entry{
		ID:            "a2",
		Action:        audit.ActionFailedLogin,
		IP:            "10.0.0.1",
		UserAgent:     "test-agent",
		Success:       false,
		FailureReason: "invalid credentials",
		CreatedAt:     created,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListByUser(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cols := []string{"id", "actor_id", "target_user_id", "action", "ip", "user_agent", "success", "failure_reason", "metadata", "created_at", "total"}
	rows := sqlmock.NewRows(cols).
		AddRow("a2", "adm", "u1", audit.ActionRoleChange, "10.0.0.1", "agent", true, "", []byte(`{"role":"admin"}`), created, 2).
		AddRow("a1", "", "u1", audit.ActionLogin, "10.0.0.1", "agent", true, "", []byte("{}"), created.Add(-time.Hour), 2)

	mock.ExpectQuery(`(?s)from audit_log.+where target_user_id = \$1 or actor_id = \$1.+order by created_at desc`).
		WithArgs("u1", 50, 0).
		WillReturnRows(rows)

	entries, total, err := store.ListByUser(context.Background(), "u1", 50, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("total=%d len=%d", total, len(entries))
	}
	if entries[0].ActorID != "adm" || entries[0].Metadata["role"] != "admin" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
