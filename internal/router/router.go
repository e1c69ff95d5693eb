package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nadab-hotels/orders-api/internal/config"
	"github.com/nadab-hotels/orders-api/internal/handler"
	mw "github.com/nadab-hotels/orders-api/internal/middleware"
	"github.com/nadab-hotels/orders-api/internal/ws"
)

// Deps are the services the routes are wired to.
type Deps struct {
	Orders handler.OrderServicer
	Stats  handler.StatsServicer
	Hub    *ws.Hub
}

// New creates a Chi router with all application routes wired up.
// Every API route resolves the caller's identity when a token is sent;
// /stats additionally requires one.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Token"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	if deps.Hub != nil {
		r.Get("/ws/hotel/orders", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(deps.Hub, cfg.SessionKey, w, r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(mw.Identify(cfg.SessionKey))

		handler.NewOrderHandler(deps.Orders).RegisterRoutes(r)
		handler.NewStatsHandler(deps.Stats).RegisterRoutes(r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
