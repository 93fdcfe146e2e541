package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cleanbot/server/persistence"
	"cleanbot/server/services"
)

// Dependencies are the services the HTTP and websocket routes are served from
type Dependencies struct {
	Runs           *services.RunService
	Maps           *services.MapService
	Storage        persistence.Storage
	Clients        *ClientManager
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

// SetupRoutes registers every endpoint on router
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	if len(deps.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(deps.AllowedOrigins))
	}

	router.GET("/health", HealthCheck)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/ws", ObserverWebSocket(deps.Runs, deps.Clients, deps.AllowedOrigins))

	router.POST("/new", CreateRun(deps.Runs, deps.Maps))

	runs := router.Group("/runs")
	{
		runs.GET("", ListRuns(deps.Runs))
		runs.GET("/:id", GetRun(deps.Runs, deps.Storage))
		runs.DELETE("/:id", StopRun(deps.Runs))
	}

	router.GET("/history", ListHistory(deps.Storage))

	maps := router.Group("/maps")
	{
		maps.PUT("/:name", SaveMap(deps.Maps))
		maps.GET("/:name", GetMap(deps.Maps))
	}
}

// ObserverWebSocket upgrades the request and streams simulation events to the observer
func ObserverWebSocket(runs RunLister, clients *ClientManager, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(allowedOrigins, origin)
		},
	}

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to upgrade connection", "error", err)
			return
		}
		defer ws.Close()

		HandleClientConnection(ws, runs, clients)
	}
}

// CORSMiddleware answers preflight requests and tags responses for allowed origins.
// A "*" entry allows every origin; an empty list leaves cross-origin requests unanswered.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if originAllowed(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
