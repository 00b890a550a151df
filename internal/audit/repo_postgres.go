package audit

import (
	"context"
	"database/sql"
)

// NOTE: This repository assumes the following table exists:
//
// - audit_events:
//     id             TEXT PRIMARY KEY
//     type           TEXT NOT NULL
//     actor_user_id  TEXT NOT NULL
//     actor_role     TEXT NOT NULL DEFAULT ''
//     ip_address     TEXT NOT NULL DEFAULT ''
//     target_user_id TEXT NOT NULL DEFAULT ''
//     call_id        TEXT NOT NULL DEFAULT ''
//     amount         BIGINT NOT NULL DEFAULT 0
//     message        TEXT NOT NULL DEFAULT ''
//     metadata       TEXT NOT NULL DEFAULT ''
//     created_at     TIMESTAMPTZ NOT NULL

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events
  (id, type, actor_user_id, actor_role, ip_address, target_user_id, call_id, amount, message, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.TargetUserID,
		e.CallID,
		e.Amount,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
