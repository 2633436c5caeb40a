package main

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"kartubicara/internal/api"
	"kartubicara/internal/pager"
	"kartubicara/internal/types"
)

// QuestionAPI is the remote question service as seen by the handlers.
type QuestionAPI interface {
	pager.Source
	StartGame(ctx context.Context, categoryID int) ([]types.Question, error)
	CreateQuestion(ctx context.Context, categoryID int, question string) (types.Question, error)
}

// App holds the server-wide state shared by all handlers.
type App struct {
	Config       *Config
	API          QuestionAPI
	Sessions     map[string]*Session
	SessionMutex sync.RWMutex
	LimiterMap   map[string]*rate.Limiter
	LimiterMutex sync.Mutex
	StartTime    time.Time

	afterFunc  pager.AfterFunc
	loaderOpts []pager.Option
}

func NewApp(cfg *Config, questionAPI QuestionAPI) *App {
	return &App{
		Config:     cfg,
		API:        questionAPI,
		Sessions:   make(map[string]*Session),
		LimiterMap: make(map[string]*rate.Limiter),
		StartTime:  time.Now(),
		afterFunc: func(d time.Duration, f func()) pager.Timer {
			return time.AfterFunc(d, f)
		},
	}
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	if err := newCmd(cfg).ExecuteContext(ctx); err != nil {
		logFatal("kartubicara exited: %v", err)
	}
}

func run(ctx context.Context, cfg *Config) error {
	setupLogging(cfg.production, cfg.verbose)
	logInfo("Starting Kartu Bicara v%s in %s mode", releaseVersion, cfg.env())

	if cfg.production {
		gin.SetMode(gin.ReleaseMode)
	}

	client := api.NewClient(cfg.apiURL, &http.Client{Timeout: cfg.apiTimeout})
	app := NewApp(cfg, client)
	logInfo("Question API at %s", cfg.apiURL)

	root := "."
	if cfg.production && dirExists("dist") {
		logInfo("Serving assets from dist/ directory")
		root = "dist"
	} else {
		logInfo("Serving development assets from source directories")
	}
	router := app.setupRouter(root)

	go app.reapSessions(ctx, reaperInterval)

	return app.serve(ctx, router)
}

// setupRouter builds the gin engine with templates and static files read
// from root.
func (app *App) setupRouter(root string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), requestLogger())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{RouteRoomQR})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(func(c *gin.Context) {
		app.applyCacheHeaders(c)
	})

	router.SetFuncMap(template.FuncMap{
		"dateFormat":    dateFormat,
		"categoryLabel": categoryLabel,
	})
	router.LoadHTMLGlob(filepath.Join(root, "templates", "*.html"))
	router.Static("/static", filepath.Join(root, "static"))

	limited := app.rateLimitMiddleware()

	router.GET(RouteHome, app.homeHandler)
	router.GET(RouteHealthz, app.healthzHandler)
	router.POST(RouteCategory, limited, app.categoryHandler)
	router.POST(RouteGameStart, limited, app.startGameHandler)
	router.POST(RouteGameFlip, limited, app.flipHandler)
	router.POST(RouteGameNext, limited, app.nextCardHandler)
	router.POST(RouteGameEnd, limited, app.endSessionHandler)
	router.POST(RoutePlayAgain, limited, app.playAgainHandler)
	router.POST(RouteRoomCreate, limited, app.createRoomHandler)
	router.POST(RouteRoomJoin, limited, app.joinRoomHandler)
	router.GET(RouteRoomQR, app.roomQRHandler)
	router.POST(RouteBack, limited, app.backHandler)
	router.GET(RouteQuestions, app.manageQuestionsHandler)
	router.POST(RouteQuestions, limited, app.createQuestionHandler)
	router.POST(RouteQuestionsMore, app.scrollHandler)
	router.GET(RouteQuestionsPage, app.questionPageHandler)
	router.POST(RouteQuestionModal, limited, app.questionModalHandler)

	return router
}

func (app *App) serve(ctx context.Context, router *gin.Engine) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(app.Config.bind, strconv.Itoa(app.Config.port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logInfo("Server starting on http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logInfo("Shutdown signal received, shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logWarn("HTTP server Shutdown: %v", err)
	}
	logInfo("Server shutdown complete")
	return nil
}

func (app *App) applyCacheHeaders(c *gin.Context) {
	if app.Config.production && strings.HasPrefix(c.Request.URL.Path, "/static/") {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(app.Config.staticCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}
