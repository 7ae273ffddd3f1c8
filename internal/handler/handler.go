package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/pkg/response"
)

// Module is a group of API routes mounted under APIPrefix.
type Module interface {
	Register(r *gin.RouterGroup)
}

// Register mounts health probes and every module on the given engine.
func Register(r *gin.Engine, repo Pinger, modules ...Module) {
	h := NewHealthHandler(repo)

	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	api := r.Group(APIPrefix)
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		for _, m := range modules {
			m.Register(api)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Route not found")
	})
}
