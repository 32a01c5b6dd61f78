package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/seance/backend/internal/handler/seance"
	"github.com/zhouzirui/seance/backend/internal/handler/session"
	"github.com/zhouzirui/seance/backend/internal/handler/speech"
	middlewarePkg "github.com/zhouzirui/seance/backend/internal/middleware"
	"github.com/zhouzirui/seance/backend/pkg/utils"
)

// Dependencies 汇总路由需要的处理器依赖
type Dependencies struct {
	Sessions    session.Service
	Presence    session.Presence
	Seance      *seance.WebSocketHandler
	TTS         speech.Synthesizer
	CORSOrigins []string
	// Metrics 为空时使用 prometheus 默认注册表
	Metrics http.Handler
	Log     *slog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api", func(api chi.Router) {
		session.New(deps.Sessions, deps.Presence).RegisterRoutes(api)
		speech.New(deps.TTS, deps.Log).RegisterRoutes(api)
	})

	if deps.Seance != nil {
		deps.Seance.RegisterRoutes(r)
	}

	return r
}
