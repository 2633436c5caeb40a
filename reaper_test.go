package main

import (
	"context"
	"testing"
	"time"
)

func TestCleanupIdleSessions(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, false)

	active := app.newSession()
	expired1 := app.newSession()
	expired1.lastAccess = time.Now().Add(-2 * time.Hour)
	expired2 := app.newSession()
	expired2.lastAccess = time.Now().Add(-3 * time.Hour)

	app.Sessions["active-session"] = active
	app.Sessions["expired-session-1"] = expired1
	app.Sessions["expired-session-2"] = expired2

	if removed := app.cleanupIdleSessions(time.Hour); removed != 2 {
		t.Errorf("cleanupIdleSessions() removed %d, want 2", removed)
	}
	if _, ok := app.Sessions["active-session"]; !ok {
		t.Error("active session was removed")
	}
	if len(app.Sessions) != 1 {
		t.Errorf("have %d sessions, want 1", len(app.Sessions))
	}
}

func TestReapSessionsStopsWithContext(t *testing.T) {
	app, _ := newTestApp(t, &fakeAPI{}, false)
	app.Config.sessionTimeout = time.Millisecond

	stale := app.newSession()
	stale.lastAccess = time.Now().Add(-time.Minute)
	app.SessionMutex.Lock()
	app.Sessions["stale"] = stale
	app.SessionMutex.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.reapSessions(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		app.SessionMutex.RLock()
		n := len(app.Sessions)
		app.SessionMutex.RUnlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stale session was never reaped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reapSessions did not return after cancel")
	}
}
