package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voltauth/volt/internal/container"
	handlers "github.com/voltauth/volt/internal/interface/http"
	"github.com/voltauth/volt/internal/interface/middleware"
)

// UserModule wires the user CRUD endpoints:
// POST/GET/PUT/DELETE /api/users (guarded by the configured auth middleware,
// with a per-IP rate limit on mutating routes).
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, auth gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	writeLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIP())

	users := rg.Group("/users")
	if m.Auth != nil {
		users.Use(m.Auth)
	}
	{
		users.POST("", writeLimiter, m.Handler.Create)
		users.GET("", m.Handler.Get)
		users.PUT("", writeLimiter, m.Handler.Update)
		users.DELETE("", writeLimiter, m.Handler.Delete)
	}
}
