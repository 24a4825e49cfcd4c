package server

import (
	"net/http"

	"github.com/final-deterrence/web-workshop/internal/auth"
	"github.com/final-deterrence/web-workshop/internal/config"
	"github.com/final-deterrence/web-workshop/internal/metrics"
	"github.com/final-deterrence/web-workshop/internal/mw"
	"github.com/final-deterrence/web-workshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

var (
	_ AuthAPI = (*service.AuthService)(nil)
	_ ChatAPI = (*service.ChatService)(nil)
)

type Deps struct {
	Auth   AuthAPI
	Chat   ChatAPI
	Issuer *auth.Issuer

	// Limiter 用于认证路由，为 nil 时 SetupRouter 按 cfg 创建。
	Limiter *mw.RL
}

// SetupRouter 注册中间件、根路径下的认证接口以及 /api/v1 下的聊天接口。
func SetupRouter(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.RequestLogger())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env, cfg.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := deps.Limiter
	if limiter == nil {
		limiter = mw.RateLimit(rate.Limit(cfg.AuthRatePerSec), cfg.AuthRateBurst)
	}
	h := NewHandler(deps.Auth, deps.Chat)

	// 仅对认证接口限速
	public := r.Group("", limiter.Middleware())
	public.POST("/login", h.Login)
	public.POST("/register", h.Register)
	public.POST("/change-password/request", h.RequestPasswordReset)
	public.POST("/change-password/action", h.ApplyPasswordReset)

	api := r.Group("/api/v1", auth.Middleware(deps.Issuer))
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:uuid/messages", h.ListMessages)
	api.POST("/rooms/:uuid/messages", h.PostMessage)

	return r
}
