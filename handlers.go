package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"kartubicara/internal/api"
	"kartubicara/internal/deck"
	"kartubicara/internal/types"
)

// screenView is the data every screen template renders from.
type screenView struct {
	Title       string
	State       types.SessionState
	Card        *types.Question
	CardNumber  int
	RoundLength int
	Questions   []types.Question
	Count       int
	Pagination  types.PaginationState
	Total       int
	ModalOpen   bool
	Draft       types.FormDraft
	Submitting  bool
	Multiplayer bool
	Toast       *types.Toast
	Year        int
}

func (app *App) view(sess *Session) screenView {
	sess.mu.Lock()
	v := screenView{
		Title:       AppTitle,
		State:       sess.state,
		CardNumber:  sess.state.CardsPlayed + 1,
		RoundLength: deck.RoundLength,
		ModalOpen:   sess.modalOpen,
		Draft:       sess.draft,
		Submitting:  sess.submitting,
		Multiplayer: app.Config.multiplayer,
		Year:        time.Now().Year(),
	}
	sess.mu.Unlock()

	switch v.State.Screen {
	case types.ScreenGame:
		if q, ok := sess.questions.At(v.State.CardIndex); ok {
			v.Card = &q
		}
	case types.ScreenManageQuestions:
		v.Questions = sess.questions.All()
		v.Count = len(v.Questions)
		v.Pagination = sess.loader.State()
		v.Total = sess.loader.Total()
	}
	return v
}

// render answers a state-changing request: HTMX gets the screen fragment and
// the toast as an HX-Trigger event, plain form posts are redirected home with
// the toast kept for the next page load.
func (app *App) render(c *gin.Context, sess *Session, toast *types.Toast) {
	if !isHTMX(c) {
		if toast != nil {
			sess.mu.Lock()
			sess.flash = toast
			sess.mu.Unlock()
		}
		c.Redirect(http.StatusSeeOther, RouteHome)
		return
	}
	if toast != nil {
		setToastTrigger(c, toast)
	}
	c.HTML(http.StatusOK, "screen", app.view(sess))
}

func setToastTrigger(c *gin.Context, toast *types.Toast) {
	b, err := json.Marshal(map[string]*types.Toast{"toast": toast})
	if err != nil {
		logWarn("Failed to marshal HX-Trigger payload: %v", err)
		return
	}
	c.Header("HX-Trigger", asciiJSON(b))
}

// asciiJSON escapes non-ASCII characters so the JSON survives as a header value.
func asciiJSON(b []byte) string {
	var sb strings.Builder
	for _, r := range string(b) {
		if r < 0x80 {
			sb.WriteRune(r)
			continue
		}
		for _, u := range utf16.Encode([]rune{r}) {
			fmt.Fprintf(&sb, `\u%04x`, u)
		}
	}
	return sb.String()
}

// homeHandler renders the full page for the current screen.
func (app *App) homeHandler(c *gin.Context) {
	sess := app.session(c)
	sess.mu.Lock()
	toast := sess.flash
	sess.flash = nil
	sess.mu.Unlock()

	v := app.view(sess)
	v.Toast = toast
	c.HTML(http.StatusOK, "index.html", v)
}

// categoryHandler selects the category for the next solo round.
func (app *App) categoryHandler(c *gin.Context) {
	sess := app.session(c)
	category := types.Category(c.PostForm("category"))

	sess.mu.Lock()
	next, err := deck.SelectCategory(sess.state, category)
	if err == nil {
		sess.state = next
	}
	sess.mu.Unlock()

	if err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Str("category", string(category)).Msg("Rejected category")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app.render(c, sess, nil)
}

// startGameHandler starts a solo round with a fresh batch from the question
// service, or enters the room setup for multiplayer.
func (app *App) startGameHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.session(c)
	mode := types.Mode(c.DefaultPostForm("mode", string(types.ModeSolo)))

	sess.mu.Lock()
	next, err := deck.RequestStart(sess.state, mode, app.Config.multiplayer)
	sess.state = next
	sess.mu.Unlock()

	if errors.Is(err, deck.ErrMultiplayerUnavailable) {
		app.render(c, sess, &types.Toast{Kind: types.ToastInfo, Title: MsgMultiplayerSoon})
		return
	}
	if mode == types.ModeMultiplayer {
		app.render(c, sess, nil)
		return
	}

	questions, err := app.API.StartGame(ctx, next.Category.ID())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("category", string(next.Category)).Msg("Start game request failed")
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	sess.mu.Lock()
	if sess.state.Epoch != next.Epoch {
		sess.mu.Unlock()
		zerolog.Ctx(ctx).Info().Msg("Discarding stale question batch")
		app.render(c, sess, nil)
		return
	}
	sess.questions.Replace(questions)
	sess.state = deck.BeginRound(sess.state)
	sess.mu.Unlock()

	zerolog.Ctx(ctx).Info().Int("questions", len(questions)).Str("category", string(next.Category)).Msg("Round started")
	app.render(c, sess, nil)
}

func (app *App) flipHandler(c *gin.Context) {
	sess := app.session(c)
	sess.update(deck.Flip)
	app.render(c, sess, nil)
}

func (app *App) nextCardHandler(c *gin.Context) {
	sess := app.session(c)
	count := sess.questions.Len()
	state := sess.update(func(s types.SessionState) types.SessionState {
		return deck.Next(s, count)
	})
	if state.Screen == types.ScreenSessionEnd {
		zerolog.Ctx(c.Request.Context()).Info().Int("cards_played", state.CardsPlayed).Msg("Round finished")
	}
	app.render(c, sess, nil)
}

// endSessionHandler abandons the round and drops its questions.
func (app *App) endSessionHandler(c *gin.Context) {
	sess := app.session(c)
	sess.mu.Lock()
	sess.state = deck.EndSession(sess.state)
	sess.questions.Reset()
	sess.mu.Unlock()
	app.render(c, sess, nil)
}

func (app *App) playAgainHandler(c *gin.Context) {
	sess := app.session(c)
	sess.update(deck.PlayAgain)
	app.render(c, sess, nil)
}

func (app *App) backHandler(c *gin.Context) {
	sess := app.session(c)
	sess.mu.Lock()
	sess.state = deck.Back(sess.state)
	sess.modalOpen = false
	sess.draft = deck.NewDraft()
	sess.mu.Unlock()
	app.render(c, sess, nil)
}

// createRoomHandler hands out a room code and starts the round after
// RoomStartDelay. Nobody actually joins; the delay only mimics waiting.
func (app *App) createRoomHandler(c *gin.Context) {
	sess := app.session(c)
	code := deck.NewRoomCode(nil)
	state := sess.update(func(s types.SessionState) types.SessionState {
		return deck.CreateRoom(s, code)
	})
	if state.RoomID == code {
		logger := zerolog.Ctx(c.Request.Context()).With().Str("room", code).Logger()
		logger.Info().Msg("Room created")
		app.afterFunc(RoomStartDelay, func() {
			app.startRoomRound(logger.WithContext(context.Background()), sess, code)
		})
	}
	app.render(c, sess, nil)
}

func (app *App) startRoomRound(ctx context.Context, sess *Session, code string) {
	s := sess.snapshot()
	if s.Screen != types.ScreenMultiplayerSetup || s.RoomID != code {
		return
	}
	questions := app.roomBatch(ctx, s.Category)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	next, ok := deck.RoomReady(sess.state, code)
	if !ok {
		return
	}
	sess.state = next
	sess.questions.Replace(questions)
	zerolog.Ctx(ctx).Info().Msg("Room round started")
}

// roomBatch fetches the questions for a room round. A failure leaves the
// round without cards rather than blocking it.
func (app *App) roomBatch(ctx context.Context, category types.Category) []types.Question {
	if app.Config.apiTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.Config.apiTimeout)
		defer cancel()
	}
	questions, err := app.API.StartGame(ctx, category.ID())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Room question batch failed")
		return nil
	}
	return questions
}

// joinRoomHandler enters the game for any code of at least four characters.
func (app *App) joinRoomHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.session(c)
	code := deck.NormalizeRoomCode(c.PostForm("room_id"))

	state := sess.snapshot()
	if _, ok := deck.JoinRoom(state, code); !ok {
		app.render(c, sess, nil)
		return
	}
	questions := app.roomBatch(ctx, state.Category)

	sess.mu.Lock()
	next, ok := deck.JoinRoom(sess.state, code)
	if ok {
		sess.state = next
		sess.questions.Replace(questions)
	}
	sess.mu.Unlock()
	app.render(c, sess, nil)
}

// roomQRHandler serves the room code as a QR image for sharing.
func (app *App) roomQRHandler(c *gin.Context) {
	sess := app.session(c)
	roomID := sess.snapshot().RoomID
	if roomID == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	png, err := qrcode.Encode(roomID, qrcode.Medium, 256)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("QR encoding failed")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// manageQuestionsHandler opens the question list: the collection is cleared
// and the first page and the total count are fetched.
func (app *App) manageQuestionsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.session(c)

	sess.mu.Lock()
	prev := sess.state.Screen
	sess.state = deck.OpenManage(sess.state)
	entered := prev != sess.state.Screen
	epoch := sess.state.Epoch
	if entered {
		sess.questions.Reset()
		sess.loader.Reset()
		sess.modalOpen = false
		sess.draft = deck.NewDraft()
	}
	sess.mu.Unlock()

	if entered {
		sess.loader.Begin()
		_ = sess.loader.Load(ctx, sess.guard(epoch))
		_, _ = sess.loader.LoadTotal(ctx)
	}

	if isHTMX(c) {
		c.HTML(http.StatusOK, "screen", app.view(sess))
		return
	}
	c.Redirect(http.StatusSeeOther, RouteHome)
}

// scrollHandler receives scroll positions from the question list. An event
// that schedules a fetch is answered at once with the loading indicator and
// a placeholder row that picks up the page from questionPageHandler. The
// others get 204 so the page stays as it is.
func (app *App) scrollHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.session(c)

	distance, err := strconv.Atoi(c.PostForm("distance"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "distance must be an integer"})
		return
	}

	state := sess.snapshot()
	if state.Screen != types.ScreenManageQuestions {
		c.Status(http.StatusNoContent)
		return
	}

	before := sess.questions.Len()
	done := sess.loader.OnScroll(ctx, distance, sess.guard(state.Epoch))
	if done == nil {
		c.Status(http.StatusNoContent)
		return
	}

	sess.mu.Lock()
	sess.page = &pendingPage{done: done, from: before, epoch: state.Epoch}
	sess.mu.Unlock()

	c.HTML(http.StatusOK, "page-loading", gin.H{
		"Pagination": sess.loader.State(),
		"Count":      before,
	})
}

// questionPageHandler waits for the scheduled fetch and returns the rows it
// added. With nothing scheduled, or after the session left the list, it
// returns no rows.
func (app *App) questionPageHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.session(c)

	sess.mu.Lock()
	page := sess.page
	sess.page = nil
	epoch := sess.state.Epoch
	sess.mu.Unlock()

	var rows []types.Question
	if page != nil && page.epoch == epoch {
		select {
		case <-page.done:
		case <-ctx.Done():
			return
		}
		if sess.epoch() == page.epoch {
			rows = sess.questions.From(page.from)
		}
	}

	c.HTML(http.StatusOK, "question-page", gin.H{
		"Questions":  rows,
		"Pagination": sess.loader.State(),
		"Count":      sess.questions.Len(),
	})
}

// questionModalHandler opens or closes the creation form. Closing discards
// the draft and its errors.
func (app *App) questionModalHandler(c *gin.Context) {
	sess := app.session(c)
	open := c.PostForm("open") == "1"
	sess.mu.Lock()
	sess.modalOpen = open
	if !open {
		sess.draft = deck.NewDraft()
	}
	sess.mu.Unlock()
	app.render(c, sess, nil)
}

// createQuestionHandler validates and submits a new question. A second
// submit while the first is in flight is ignored.
func (app *App) createQuestionHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := app.session(c)

	categoryID, _ := strconv.Atoi(c.PostForm("category_id"))
	draft := types.FormDraft{Title: c.PostForm("title"), CategoryID: categoryID}

	sess.mu.Lock()
	if screen := sess.state.Screen; screen != types.ScreenManageQuestions {
		sess.mu.Unlock()
		zerolog.Ctx(ctx).Warn().Str("screen", string(screen)).Msg("Rejected question outside the manage view")
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "questions can only be added from the manage view"})
		return
	}
	if sess.submitting {
		sess.mu.Unlock()
		zerolog.Ctx(ctx).Info().Err(deck.ErrSubmitting).Msg("Ignoring duplicate submit")
		app.render(c, sess, nil)
		return
	}
	draft.Errors = deck.ValidateDraft(draft)
	sess.draft = draft
	if len(draft.Errors) > 0 {
		sess.mu.Unlock()
		app.render(c, sess, nil)
		return
	}
	sess.submitting = true
	epoch := sess.state.Epoch
	sess.mu.Unlock()

	created, err := app.API.CreateQuestion(ctx, draft.CategoryID, strings.TrimSpace(draft.Title))

	sess.mu.Lock()
	sess.submitting = false
	if err != nil {
		sess.mu.Unlock()
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Create question failed")
		app.render(c, sess, &types.Toast{
			Kind:        types.ToastError,
			Title:       MsgCreateFailed,
			Description: api.Message(err, MsgCreateFailedDesc),
		})
		return
	}
	if sess.state.Epoch == epoch {
		sess.questions.Prepend(created)
	}
	sess.draft = deck.NewDraft()
	sess.modalOpen = false
	sess.mu.Unlock()

	zerolog.Ctx(ctx).Info().Int("question_id", created.ID).Msg("Question created")
	app.render(c, sess, &types.Toast{
		Kind:        types.ToastSuccess,
		Title:       MsgCreateSuccess,
		Description: MsgCreateSuccessDesc,
	})
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	app.SessionMutex.RLock()
	sessions := len(app.Sessions)
	app.SessionMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"version":     releaseVersion,
		"env":         app.Config.env(),
		"sessions":    sessions,
		"multiplayer": app.Config.multiplayer,
		"uptime":      formatUptime(time.Since(app.StartTime)),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
