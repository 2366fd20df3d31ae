package server

import (
	"log/slog"
	"net/http"

	"fleets-server/internal/auth"
	appHandlers "fleets-server/internal/handlers"
	"fleets-server/internal/ledger"
	"fleets-server/internal/middleware"
	"fleets-server/internal/mission"
	missionHandlers "fleets-server/internal/mission/handlers"
	"fleets-server/internal/notify"
	"fleets-server/internal/scheduler"
	serverHandlers "fleets-server/internal/server/handlers"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/user"
)

type Routes struct {
	cfg            *config.Config
	db             serverHandlers.Pinger
	queue          scheduler.Queue
	authService    *auth.Service
	userService    *user.Service
	missionService *mission.Service
	ledger         *ledger.Ledger
	websocket      *notify.WebsocketServer
	logger         *slog.Logger
}

func NewRoutes(
	cfg *config.Config,
	db serverHandlers.Pinger,
	queue scheduler.Queue,
	authService *auth.Service,
	userService *user.Service,
	missionService *mission.Service,
	l *ledger.Ledger,
	websocket *notify.WebsocketServer,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		cfg:            cfg,
		db:             db,
		queue:          queue,
		authService:    authService,
		userService:    userService,
		missionService: missionService,
		ledger:         l,
		websocket:      websocket,
		logger:         logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()
	requireAuth := middleware.NewAuthMiddleware(r.authService).Require

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.queue)
	signupHandler := appHandlers.NewSignupHandler(r.userService, r.authService, r.cfg)
	meHandler := appHandlers.NewMeHandler(r.userService)
	logoutHandler := appHandlers.NewLogoutHandler(r.cfg)
	missionHandler := missionHandlers.NewMissionHandler(r.missionService)
	unitHandler := missionHandlers.NewUnitHandler(r.missionService, r.ledger)

	// Public endpoints
	mux.Handle("GET /api/server/health", healthHandler)
	mux.Handle("POST /api/users", signupHandler)
	mux.Handle("POST /auth/logout", logoutHandler)

	// Protected endpoints (authenticated users)
	mux.Handle("GET /api/users/me", requireAuth(meHandler))
	mux.Handle("POST /api/missions/{type}", requireAuth(http.HandlerFunc(missionHandler.Register)))
	mux.Handle("POST /api/missions/{id}/cancel", requireAuth(http.HandlerFunc(missionHandler.Cancel)))
	mux.Handle("GET /api/missions", requireAuth(http.HandlerFunc(missionHandler.GetRunning)))
	mux.Handle("GET /api/missions/enemy", requireAuth(http.HandlerFunc(missionHandler.GetEnemy)))
	mux.Handle("GET /api/reports", requireAuth(http.HandlerFunc(missionHandler.GetReports)))
	mux.Handle("GET /api/units", requireAuth(http.HandlerFunc(unitHandler.GetStationed)))
	mux.Handle("POST /api/units/produce", requireAuth(http.HandlerFunc(unitHandler.Produce)))
	mux.Handle("GET /ws", requireAuth(http.HandlerFunc(r.serveWebsocket)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/users", "/auth/logout"},
		"protected_endpoints", []string{"/api/users/me", "/api/missions", "/api/reports", "/api/units", "/ws"},
	)

	return mux
}

func (r *Routes) serveWebsocket(w http.ResponseWriter, req *http.Request) {
	claims := middleware.GetUserFromContext(req)
	r.websocket.Serve(w, req, claims.UserID)
}

// Handler wraps the mux with the rate limiter and CORS, outermost last.
func (r *Routes) Handler() http.Handler {
	var h http.Handler = r.Setup()
	if r.cfg.RateLimit.Enabled {
		h = middleware.NewRateLimiter(r.cfg.RateLimit).Middleware(h)
	}
	return middleware.NewCORS(r.cfg.Frontend).Middleware(h)
}
