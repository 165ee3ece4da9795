package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"jobdesk.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	metaJSON := []byte("{}")
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = data
	}
	actor := sql.NullString{String: entry.ActorID, Valid: entry.ActorID != ""}
	// Target may be absent: failed logins against unknown emails still
	// get recorded.
	target := sql.NullString{String: entry.TargetUserID, Valid: entry.TargetUserID != ""}
	_, err := s.q.ExecContext(ctx, `
		insert into audit_log (id, actor_id, target_user_id, action, ip, user_agent, success, failure_reason, metadata, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, nullif($8, ''), $9, $10)
	`, entry.ID, actor, target, entry.Action, entry.IP, entry.UserAgent, entry.Success, entry.FailureReason, metaJSON, entry.CreatedAt)
	return err
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit, offset int) ([]audit.Entry, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.q.QueryContext(ctx, `
		select id, coalesce(actor_id, ''), coalesce(target_user_id, ''), action, ip, user_agent, success, coalesce(failure_reason, ''), metadata, created_at,
		       count(*) over() as total
		from audit_log
		where target_user_id = $1 or actor_id = $1
		order by created_at desc
		limit $2 offset $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		entries []audit.Entry
		total   int
	)
	for rows.Next() {
		var (
			e       audit.Entry
			rawMeta []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.TargetUserID, &e.Action, &e.IP, &e.UserAgent, &e.Success, &e.FailureReason, &rawMeta, &e.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &e.Metadata); err != nil {
				return nil, 0, err
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
