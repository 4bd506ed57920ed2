package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/quizforge/internal/config"
	"github.com/yungbote/quizforge/internal/observability"
	"github.com/yungbote/quizforge/internal/platform/logger"
)

func NewServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
	}
}

func NewRouter(cfg *config.Config, log *logger.Logger, metrics *observability.Metrics, h *Handlers) *gin.Engine {
	if log == nil {
		log = logger.Nop()
	}
	r := gin.New()
	r.Use(Recovery(log))
	r.Use(otelgin.Middleware("quizforge"))
	r.Use(AttachTraceContext())
	r.Use(RequestLogger(log))
	r.Use(Metrics(metrics))
	r.Use(CORS(cfg.HTTP.CORSOrigins))

	r.GET("/health", h.Health)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Healthz)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	v1 := r.Group("/v1", LimitBody(cfg.HTTP.MaxRequestBytes))
	{
		v1.POST("/generate", h.Generate)
		v1.POST("/validate", h.Validate)
		v1.POST("/dedupe", h.Dedupe)
	}
	// Unversioned alias kept for existing clients.
	r.POST("/generate", LimitBody(cfg.HTTP.MaxRequestBytes), h.Generate)

	r.NoRoute(func(c *gin.Context) {
		RespondError(c, http.StatusNotFound, "not_found", nil)
	})
	return r
}
