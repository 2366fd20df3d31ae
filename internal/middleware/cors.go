package middleware

import (
	"log/slog"
	"net/http"

	"fleets-server/internal/shared/config"

	"github.com/rs/cors"
)

// The game API only reads state and posts commands.
var corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}

type CORSMiddleware struct {
	*cors.Cors
}

// NewCORS lets the frontend call the API with the auth cookie.
func NewCORS(cfg config.FrontendConfig) *CORSMiddleware {
	logger := slog.With("component", "cors", "operation", "setup")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.URL},
		AllowedMethods:   corsMethods,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
		Debug:            cfg.CORSDebug,
	})

	logger.Info("CORS middleware configured",
		"allowed_origin", cfg.URL,
		"allowed_methods", corsMethods,
		"debug_mode", cfg.CORSDebug)

	return &CORSMiddleware{c}
}

func (c *CORSMiddleware) Middleware(h http.Handler) http.Handler {
	return c.Cors.Handler(h)
}
