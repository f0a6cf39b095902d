package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OldStager01/streetlight-controller/api/handlers"
	"github.com/OldStager01/streetlight-controller/api/middleware"
	"github.com/OldStager01/streetlight-controller/api/websocket"
	"github.com/OldStager01/streetlight-controller/internal/auth"
	"github.com/OldStager01/streetlight-controller/pkg/config"
	"github.com/OldStager01/streetlight-controller/pkg/database"
	"github.com/OldStager01/streetlight-controller/pkg/database/queries"
	"github.com/OldStager01/streetlight-controller/pkg/models"
	"github.com/gin-gonic/gin"
)

const maxRequestBody = 1 << 20

// Per-client lamp commands per minute
const actuationRateLimit = 10

// LightController is the orchestrator as seen by the API
type LightController interface {
	handlers.LightManager
	SubscribeAllEvents() <-chan *models.Event
	Unsubscribe(ch <-chan *models.Event)
}

// Stores are the persistence dependencies of the API
type Stores struct {
	Health       handlers.HealthChecker
	Users        handlers.UserStore
	Streetlights handlers.StreetlightStore
	Readings     handlers.ReadingStore
	Decisions    handlers.DecisionStore
}

func NewStores(db *database.DB) Stores {
	return Stores{
		Health:       db,
		Users:        queries.NewUserRepository(db.DB),
		Streetlights: queries.NewStreetlightRepository(db.DB),
		Readings:     queries.NewReadingRepository(db.DB),
		Decisions:    queries.NewDecisionRepository(db.DB),
	}
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	stores      Stores
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	lights      LightController
	decider     handlers.Decider
}

func NewServer(cfg config.APIConfig, wsCfg *config.WebSocketConfig, stores Stores, lights LightController, decider handlers.Decider) *Server {
	if cfg.JWTSecret == "" || cfg.JWTSecret == config.DefaultJWTSecret {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtDuration := cfg.JWTDuration
	if jwtDuration == 0 {
		jwtDuration = 24 * time.Hour
	}

	wsHub := websocket.NewHub(wsCfg)

	s := &Server{
		router:      gin.New(),
		config:      cfg,
		stores:      stores,
		authService: auth.NewService(cfg.JWTSecret, jwtDuration),
		wsHub:       wsHub,
		lights:      lights,
		decider:     decider,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if lights != nil {
		eventsChan := lights.SubscribeAllEvents()
		s.wsBridge = websocket.NewEventBridge(wsHub, eventsChan, func() { lights.Unsubscribe(eventsChan) })
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.CORS)))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBody))
	s.router.Use(middleware.RateLimit(middleware.NewRateLimiter(s.config.RateLimit, time.Minute)))
}

func (s *Server) setupRoutes() {
	limits := handlers.Limits{
		Default:        s.config.DefaultLimit,
		Max:            s.config.MaxLimit,
		RequestTimeout: s.config.RequestTimeout,
	}

	// The manager is passed as nil rather than a typed nil so handlers can tell.
	var manager handlers.LightManager
	if s.lights != nil {
		manager = s.lights
	}

	healthHandler := handlers.NewHealthHandler(s.stores.Health)
	authHandler := handlers.NewAuthHandler(s.stores.Users, s.authService, handlers.CookieConfig{
		Name:   s.config.CookieName,
		Secure: s.config.CookieSecure,
	})
	streetlightHandler := handlers.NewStreetlightHandler(s.stores.Streetlights, manager, limits)
	historyHandler := handlers.NewHistoryHandler(s.stores.Streetlights, s.stores.Readings, s.stores.Decisions, limits)
	controlHandler := handlers.NewControlHandler(s.decider)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Protected routes
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService, s.config.CookieName))
	protected.Use(actuationLimiter().Middleware())
	{
		protected.POST("/decide", controlHandler.Decide)
		protected.POST("/intensity", controlHandler.Intensity)

		protected.GET("/streetlights", streetlightHandler.List)
		protected.POST("/streetlights", streetlightHandler.Create)
		protected.GET("/streetlights/:id", streetlightHandler.Get)
		protected.DELETE("/streetlights/:id", streetlightHandler.Delete)
		protected.POST("/streetlights/:id/start", streetlightHandler.Start)
		protected.POST("/streetlights/:id/stop", streetlightHandler.Stop)
		protected.GET("/streetlights/:id/status", streetlightHandler.Status)
		protected.POST("/streetlights/:id/override", streetlightHandler.SetOverride)
		protected.DELETE("/streetlights/:id/override", streetlightHandler.ClearOverride)

		protected.GET("/streetlights/:id/readings", historyHandler.GetReadings)
		protected.GET("/streetlights/:id/decisions", historyHandler.GetDecisions)
		protected.GET("/streetlights/:id/decisions/stats", historyHandler.GetDecisionStats)
		protected.GET("/streetlights/:id/actuations", historyHandler.GetActuations)
		protected.GET("/decisions/recent", historyHandler.GetRecentDecisions)
	}
}

func actuationLimiter() *middleware.EndpointRateLimiter {
	erl := middleware.NewEndpointRateLimiter()
	for _, path := range []string{
		"/streetlights/:id/start",
		"/streetlights/:id/stop",
		"/streetlights/:id/override",
	} {
		erl.AddEndpoint(path, actuationRateLimit, time.Minute)
	}
	return erl
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	idleTimeout := s.config.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

func (s *Server) AuthService() *auth.Service {
	return s.authService
}
