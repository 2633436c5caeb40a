package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kartubicara/internal/deck"
	"kartubicara/internal/pager"
	"kartubicara/internal/types"
)

// Session is one visitor's state container: the screen state machine, the
// shared question collection, the list loader and the creation form.
type Session struct {
	mu         sync.Mutex
	state      types.SessionState
	draft      types.FormDraft
	modalOpen  bool
	submitting bool
	flash      *types.Toast
	lastAccess time.Time

	questions *deck.Collection
	loader    *pager.Loader
	page      *pendingPage
}

// pendingPage is a debounced list fetch waiting to be picked up by the
// browser's follow-up request.
type pendingPage struct {
	done  <-chan struct{}
	from  int
	epoch uint64
}

func (app *App) newSession() *Session {
	questions := deck.NewCollection()
	return &Session{
		state:      deck.NewState(),
		draft:      deck.NewDraft(),
		lastAccess: time.Now(),
		questions:  questions,
		loader:     pager.New(app.API, questions, app.loaderOpts...),
	}
}

// epoch returns the current screen epoch.
func (s *Session) epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Epoch
}

// guard holds while the session has not changed screens since epoch.
func (s *Session) guard(epoch uint64) pager.Guard {
	return func() bool { return s.epoch() == epoch }
}

// update applies f to the session state under the lock.
func (s *Session) update(f func(types.SessionState) types.SessionState) types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = f(s.state)
	return s.state
}

func (s *Session) snapshot() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || len(sessionID) < 10 {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(SessionCookieName, sessionID, int(app.Config.cookieMaxAge.Seconds()), "/", "", app.Config.production, true)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// session returns the Session behind the request cookie, creating it on
// first use.
func (app *App) session(c *gin.Context) *Session {
	sessionID := app.getOrCreateSession(c)

	app.SessionMutex.RLock()
	sess, exists := app.Sessions[sessionID]
	app.SessionMutex.RUnlock()
	if exists {
		sess.mu.Lock()
		sess.lastAccess = time.Now()
		sess.mu.Unlock()
		return sess
	}

	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if sess, exists = app.Sessions[sessionID]; exists {
		return sess
	}
	sess = app.newSession()
	app.Sessions[sessionID] = sess
	logInfo("Started session state for: %s", sessionID)
	return sess
}
