package handler

import (
	"net/http"

	"github.com/dandantas/adbfleet/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// Router handles HTTP routing
type Router struct {
	jobHandler     *JobHandler
	streamHandler  *StreamHandler
	deviceHandler  *DeviceHandler
	videoHandler   *VideoHandler
	historyHandler *HistoryHandler
	healthHandler  *HealthHandler
	corsConfig     middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	jobHandler *JobHandler,
	streamHandler *StreamHandler,
	deviceHandler *DeviceHandler,
	videoHandler *VideoHandler,
	historyHandler *HistoryHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		jobHandler:     jobHandler,
		streamHandler:  streamHandler,
		deviceHandler:  deviceHandler,
		videoHandler:   videoHandler,
		historyHandler: historyHandler,
		healthHandler:  healthHandler,
		corsConfig:     corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	// outermost first; CORS answers preflight requests before routing
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(rt.corsConfig))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", rt.healthHandler.Health)
	r.Get("/ready", rt.healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", rt.jobHandler.List)
			r.Post("/youtube", rt.jobHandler.StartYouTube)
			r.Post("/google-signin", rt.jobHandler.StartSignIn)
			r.Get("/{id}", rt.jobHandler.Get)
			r.Post("/{id}/stop", rt.jobHandler.Stop)
			r.Get("/{id}/deliveries", rt.historyHandler.Deliveries)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", rt.deviceHandler.List)
			r.Post("/commands", rt.deviceHandler.RunCommand)
			r.Get("/{id}/name", rt.deviceHandler.GetName)
			r.Put("/{id}/name", rt.deviceHandler.PutName)
			r.Get("/{id}/commands", rt.historyHandler.Commands)
			r.Get("/{id}/live-stream", rt.streamHandler.SSE)
			r.Delete("/{id}/live-stream", rt.streamHandler.Stop)
			r.Get("/{id}/live-stream/ws", rt.streamHandler.WebSocket)
		})

		r.Get("/live-streams", rt.streamHandler.List)
		r.Post("/videos/durations", rt.videoHandler.Durations)
		r.Post("/videos/channel", rt.videoHandler.ChannelVideos)
	})

	return r
}
