package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voltauth/volt/internal/domain/repository"
	"github.com/voltauth/volt/pkg/response"
)

// HealthModule exposes GET /api/health, reporting backend reachability.
type HealthModule struct {
	Dao repository.UsersDao
}

func NewHealthModule(dao repository.UsersDao) *HealthModule {
	return &HealthModule{Dao: dao}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		if err := m.Dao.Ping(c.Request.Context()); err != nil {
			response.Error[any](c, http.StatusServiceUnavailable, "database unreachable",
				repository.KindOf(err).String())
			return
		}
		response.Success[any](c, http.StatusOK, gin.H{"database": "up"}, "healthy")
	})
}
