package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fuzz-adapter/backend/internal/httpapi/handlers"
	"fuzz-adapter/backend/internal/httpapi/middleware"
	"fuzz-adapter/backend/internal/ws"
)

// NewRouter 组装控制面路由；jwtSecret 为空时不做鉴权（本地调试）
func NewRouter(h *handlers.FuzzHandler, manager *ws.Manager, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	fuzz := r.Group("/fuzz")
	fuzz.GET("/healthz", h.Healthz)

	api := fuzz.Group("")
	if jwtSecret != "" {
		api.Use(middleware.AuthMiddleware(jwtSecret))
	}
	api.POST("/apply", h.Apply)
	api.GET("/state", h.State)
	api.GET("/ops", h.Ops)
	api.GET("/sessions", h.Sessions)
	if manager != nil {
		api.GET("/ws", manager.WebSocketConnect)
	}
	return r
}
