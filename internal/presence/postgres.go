package presence

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"
)

type PgTracker struct {
	conn *sql.DB
	log  *log.Logger
	now  func() time.Time
}

func NewPgTracker(conn *sql.DB, logger *log.Logger) *PgTracker {
	return &PgTracker{
		conn: conn,
		log:  logger,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (t *PgTracker) RecordConnect(ctx context.Context, userId string) error {
	_, err := t.conn.ExecContext(ctx,
		"INSERT INTO user_activity (user_id, last_activity, online) VALUES ($1, $2, TRUE) "+
			"ON CONFLICT (user_id) DO UPDATE SET last_activity = EXCLUDED.last_activity, online = TRUE",
		userId,
		t.now(),
	)

	return err
}

func (t *PgTracker) RecordDisconnect(ctx context.Context, userId string) error {
	_, err := t.conn.ExecContext(ctx,
		"UPDATE user_activity SET last_activity = $2, online = FALSE WHERE user_id = $1",
		userId,
		t.now(),
	)

	return err
}

// IsInactive reports whether userId should be escalated to email. Users with
// no presence record are inactive; so is anyone offline for longer than
// InactivityThreshold. A lookup failure counts as inactive so a notification
// is sent rather than dropped.
func (t *PgTracker) IsInactive(ctx context.Context, userId string) bool {
	row := t.conn.QueryRowContext(ctx,
		"SELECT online, last_activity FROM user_activity WHERE user_id = $1 LIMIT 1",
		userId,
	)

	var online bool
	var lastActivity time.Time
	err := row.Scan(&online, &lastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		t.log.Println("presence lookup:", err)
		return true
	}

	return Inactive(online, lastActivity, t.now(), InactivityThreshold)
}
