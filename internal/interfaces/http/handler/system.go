package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	inventoryapp "github.com/ggc/backend/internal/application/inventory"
	"github.com/ggc/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	holder    *inventoryapp.WarehouseHolder
	checks    map[string]HealthCheck
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler(name, version string, holder *inventoryapp.WarehouseHolder) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		holder:    holder,
		checks:    make(map[string]HealthCheck),
	}
}

// AddCheck registers a dependency check reported by /health
func (h *SystemHandler) AddCheck(name string, check HealthCheck) *SystemHandler {
	h.checks[name] = check
	return h
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Loaded    bool              `json:"loaded"`
	LoadedAt  *time.Time        `json:"loaded_at,omitempty"`
	Digest    string            `json:"digest,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports liveness and the state of registered dependencies.
// Any failing check turns the response into a 503.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Loaded:    h.holder.Loaded(),
	}
	if resp.Loaded {
		at := h.holder.LoadedAt()
		resp.LoadedAt = &at
		resp.Digest = h.holder.Digest()
	}

	status := http.StatusOK
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
