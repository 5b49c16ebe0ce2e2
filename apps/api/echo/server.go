package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/activity"
	"github.com/trezcool/educryption/core/comment"
	"github.com/trezcool/educryption/core/content"
	"github.com/trezcool/educryption/core/progress"
	"github.com/trezcool/educryption/core/unit"
	"github.com/trezcool/educryption/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc     user.ServiceInterface
		UnitSvc     *unit.Service
		ActivitySvc *activity.Service
		ContentSvc  *content.Service
		CommentSvc  *comment.Service
		ProgressSvc *progress.Service

		// UploadsDir is served under /uploads when set.
		UploadsDir string
	}

	Server struct {
		app      *echo.Echo
		deps     ServerDeps
		hub      *commentHub
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		hub:      newCommentHub(deps.Logger),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	go s.hub.run()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  conf.Server.CORSAllowOrigins,
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	}

	if s.deps.UploadsDir != "" {
		s.app.Static("/uploads", s.deps.UploadsDir)
	}

	g := s.app.Group("/" + conf.Server.APIPrefix)
	g.GET("", s.home)

	jwt := accessJWTMiddleware(conf)

	registerAuthAPI(g, jwt, conf, s.deps.UserSvc, s.deps.Validate)
	registerUserAPI(g, jwt, s.deps.UserSvc, s.deps.ProgressSvc, s.deps.Validate)
	registerUnitAPI(g, jwt, s.deps.UnitSvc, s.deps.Validate)
	registerActivityAPI(g, jwt, s.deps.ActivitySvc, s.deps.ProgressSvc, s.deps.UserSvc, s.deps.Validate)
	registerContentAPI(g, jwt, s.deps.ContentSvc, s.deps.Validate, conf.Uploads.MaxSize)
	registerCommentAPI(g, jwt, s.deps.CommentSvc, s.deps.UserSvc, s.deps.Validate, s.hub)
	registerLiveAPI(g, conf, s.deps.ContentSvc, s.hub)
}

// Start listens on the configured host; failures are sent to Errors.
func (s *Server) Start() {
	s.deps.Logger.Info(fmt.Sprintf("API listening on %s", s.deps.Conf.Server.Host))
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the owner of the Server to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.stop()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.hub.stop()
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Welcome to %s API!", s.deps.Conf.AppName)})
}
