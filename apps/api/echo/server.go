// Package echoapi exposes the services over a JSON REST API built with echo.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/pathway/apps/di"
	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
)

type Server struct {
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	svcs       di.Services
	auth       *jwtAuth
	app        *echo.Echo

	DisableReqLogs bool

	shutdown chan os.Signal
	errors   chan error
}

func NewServer(conf *core.Config, logger core.Logger, validate *validator.Validate, translator ut.Translator, svcs di.Services) *Server {
	s := &Server{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		svcs:       svcs,
		auth:       newJWTAuth(conf),
		app:        echo.New(),
		shutdown:   make(chan os.Signal, 1),
		errors:     make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !(s.DisableReqLogs || s.conf.TestMode) {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if len(s.conf.Server.CORSOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.conf.Server.CORSOrigins}))
	}
	s.app.Use(middleware.BodyLimit(bodyLimit(s.conf.Server.MaxUploadSize)))

	s.app.GET("/", s.home)
	s.app.Static(s.conf.MediaURL, s.conf.MediaDir)

	api := s.app.Group("/api")
	authed := api.Group("", s.auth.middleware(), s.actorMiddleware())

	registerUserAPI(api, authed, s)
	registerNavigationAPI(authed, s)
	registerLeadAPI(authed.Group("/leads", requireModule(access.ModuleLeads)), s)
	registerStudentAPI(authed.Group("/students", requireModule(access.ModuleStudents)), s)
	registerApplicationAPI(authed.Group("/applications", requireModule(access.ModuleApplications)), s)
	registerAdmissionAPI(authed.Group("/admissions", requireModule(access.ModuleAdmissions)), s)
	registerActivityAPI(authed.Group("/activities"), s)
	registerEventAPI(authed.Group("/events"), s)
	registerRegistrationAPI(authed.Group("/event-registrations", requireModule(access.ModuleRegistrations)), s)
	registerDropdownAPI(authed.Group("/dropdowns"), s)
	registerUploadAPI(authed.Group("/upload"), s)
}

// Start listens until the server is shut down. Errors are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the process to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}

// bodyLimit formats a byte count for middleware.BodyLimit; the spreadsheet import needs a few extra KB of multipart framing.
func bodyLimit(size int64) string {
	if size <= 0 {
		size = 10 << 20
	}
	return strconv.FormatInt((size>>10)+64, 10) + "KB"
}
