package api

import (
	"github.com/labstack/echo/v4"

	domrepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
)

// AgentsHandler serves the static agent catalog.
type AgentsHandler struct {
	catalog domrepo.AgentCatalog
}

func NewAgentsHandler(catalog domrepo.AgentCatalog) *AgentsHandler {
	return &AgentsHandler{catalog: catalog}
}

func (h *AgentsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/agents", h.List)
}

func (h *AgentsHandler) List(c echo.Context) error {
	agents := h.catalog.List()
	return xhttp.ListResponse(c, agents, int64(len(agents)))
}
