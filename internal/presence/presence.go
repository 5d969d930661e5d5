// Package presence records per-user last-activity and online state, shared by
// every gateway instance through the database. Its single consumer-facing
// predicate, IsInactive, drives the email escalation policy.
package presence

import (
	"context"
	"time"
)

// InactivityThreshold is how long a disconnected user may be idle before
// they are considered inactive and eligible for email notifications.
const InactivityThreshold = time.Hour

type Tracker interface {
	RecordConnect(ctx context.Context, userId string) error
	RecordDisconnect(ctx context.Context, userId string) error
	IsInactive(ctx context.Context, userId string) bool
}

// Inactive is the escalation policy predicate. A user who is currently online
// is always active, no matter how stale lastActivity is — including records
// left marked online by an instance that died without recording disconnects.
// That mirrors the observed behavior of the system this replaces; such users
// are never escalated to email until a clean disconnect is recorded.
func Inactive(online bool, lastActivity, now time.Time, threshold time.Duration) bool {
	if online {
		return false
	}
	return lastActivity.Before(now.Add(-threshold))
}
