package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig - 라우터 구성 요소
// Webhooks, Metrics는 nil이면 해당 라우트를 등록하지 않음
type RouterConfig struct {
	Audits         *AuditHandler
	Webhooks       *WebhookSettingsHandler
	Metrics        http.Handler
	JWTSecret      string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter - gin 라우터 생성
//
//	GET  /ping, /, /metrics
//	/api/v1/audits (JWT_SECRET 설정 시 Bearer 인증)
//	/api/v1/settings/webhooks
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Logger != nil {
		router.Use(RequestLogger(cfg.Logger))
	}
	router.Use(CORSMiddleware(cfg.AllowedOrigins, false))

	router.GET("/ping", Ping)
	router.GET("/", Root)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := router.Group("/api/v1")
	if cfg.JWTSecret != "" {
		api.Use(JWTMiddleware(cfg.JWTSecret))
	}

	audits := api.Group("/audits")
	audits.POST("", cfg.Audits.RunAudit)
	audits.GET("", cfg.Audits.ListAudits)
	audits.GET("/:id", cfg.Audits.GetAudit)
	audits.GET("/:id/verdicts", cfg.Audits.GetVerdicts)

	if cfg.Webhooks != nil {
		webhooks := api.Group("/settings/webhooks")
		webhooks.GET("", cfg.Webhooks.ListWebhookConfigs)
		webhooks.GET("/:id", cfg.Webhooks.GetWebhookConfig)
		webhooks.POST("", cfg.Webhooks.CreateWebhookConfig)
		webhooks.PUT("/:id", cfg.Webhooks.UpdateWebhookConfig)
		webhooks.DELETE("/:id", cfg.Webhooks.DeleteWebhookConfig)
	}
	return router
}
