package main

import (
	"context"
	"time"
)

// cleanupIdleSessions drops sessions that have not been touched for maxAge
// and returns how many were removed.
func (app *App) cleanupIdleSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()

	removed := 0
	for id, sess := range app.Sessions {
		sess.mu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(app.Sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logInfo("Session cleanup completed: removed %d idle sessions, %d remaining", removed, len(app.Sessions))
	}
	return removed
}

// reapSessions runs cleanupIdleSessions every interval until ctx is done.
func (app *App) reapSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.cleanupIdleSessions(app.Config.sessionTimeout)
		}
	}
}
