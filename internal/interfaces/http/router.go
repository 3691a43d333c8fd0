package http

import (
	"net/http"

	"github.com/dreschagin/kvm-streamer-api/internal/interfaces/http/handler"
	"github.com/dreschagin/kvm-streamer-api/internal/interfaces/http/middleware"
	"github.com/dreschagin/kvm-streamer-api/pkg/config"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// Instrumentation подключает метрики к router. Любое поле может быть nil
type Instrumentation struct {
	// Middleware оборачивает mux и собирает метрики запросов
	Middleware func(http.Handler) http.Handler
	// Handler отдает метрики на /metrics
	Handler http.Handler

	OnAuthFailure   func()
	OnRateLimitDrop func()
}

// Router настраивает маршруты приложения
type Router struct {
	mux              *http.ServeMux
	streamerHandler  *handler.StreamerAPIHandler
	websocketHandler *handler.WebSocketHandler
	rateLimiter      *middleware.IPRateLimiter
	instrumentation  Instrumentation
	security         config.SecurityConfig
	logger           *logger.Logger
}

// NewRouter создает новый router. rateLimiter nil отключает ограничение снапшотов
func NewRouter(
	streamerHandler *handler.StreamerAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	rateLimiter *middleware.IPRateLimiter,
	instrumentation Instrumentation,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		streamerHandler:  streamerHandler,
		websocketHandler: websocketHandler,
		rateLimiter:      rateLimiter,
		instrumentation:  instrumentation,
		security:         security,
		logger:           logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Health endpoints не требуют авторизации
	rt.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if rt.instrumentation.Handler != nil {
		rt.mux.Handle("GET /metrics", rt.instrumentation.Handler)
	}

	auth := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
		OnFailure:   rt.instrumentation.OnAuthFailure,
	}, rt.logger)

	var snapshot http.Handler = http.HandlerFunc(rt.streamerHandler.TakeSnapshot)
	if rt.rateLimiter != nil {
		snapshot = middleware.RateLimit(rt.rateLimiter, rt.instrumentation.OnRateLimitDrop)(snapshot)
	}

	// Streamer API
	rt.mux.Handle("GET /streamer", auth(http.HandlerFunc(rt.streamerHandler.GetState)))
	rt.mux.Handle("GET /streamer/snapshot", auth(snapshot))
	rt.mux.Handle("DELETE /streamer/snapshot", auth(http.HandlerFunc(rt.streamerHandler.RemoveSnapshot)))
	rt.mux.Handle("GET /streamer/ocr", auth(http.HandlerFunc(rt.streamerHandler.GetOCR)))

	// WebSocket проверяет токен сам, чтобы поддержать ?token=
	if rt.websocketHandler != nil {
		rt.mux.HandleFunc("GET /ws", rt.websocketHandler.HandleConnection)
	}

	// Применяем middleware. Метрики ближе всех к mux, чтобы видеть r.Pattern
	var handler http.Handler = rt.mux
	if rt.instrumentation.Middleware != nil {
		handler = rt.instrumentation.Middleware(handler)
	}
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}
