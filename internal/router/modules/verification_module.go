package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voltauth/volt/internal/container"
	handlers "github.com/voltauth/volt/internal/interface/http"
	"github.com/voltauth/volt/internal/interface/middleware"
)

// VerificationModule wires the email verification flow. The GET /verify and
// GET /verify/success endpoints are public: they are opened from the emailed
// link by a browser that has no API credentials.
type VerificationModule struct {
	Handler *handlers.VerificationHandler
	Auth    gin.HandlerFunc
}

func NewVerificationModule(h *handlers.VerificationHandler, auth gin.HandlerFunc) *VerificationModule {
	return &VerificationModule{Handler: h, Auth: auth}
}

func (m *VerificationModule) Register(rg *gin.RouterGroup) {
	sendLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath())

	verify := rg.Group("/verify")
	{
		verify.GET("", m.Handler.Verify)
		verify.GET("/success", m.Handler.Success)
	}

	guarded := rg.Group("/verify")
	if m.Auth != nil {
		guarded.Use(m.Auth)
	}
	{
		guarded.POST("", sendLimiter, m.Handler.SendEmail)
		guarded.POST("/reset", sendLimiter, m.Handler.Reset)
	}
}
