// Package server provides the dev console: health, provider selections, dev services
// status and Prometheus metrics.
package server

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"modelwire/internal/core"
	"modelwire/internal/devservices"
)

// Introspector exposes the application state shown by the dev console.
type Introspector interface {
	Selections() []core.Selection
	RegisteredProviders() []string
	DevServices() *devservices.Services
}

// Handler holds the HTTP handlers
type Handler struct {
	state Introspector
}

// NewHandler creates a new handler reading from state.
func NewHandler(state Introspector) *Handler {
	return &Handler{state: state}
}

// ProvidersResponse is the body of GET /q/dev/providers.
type ProvidersResponse struct {
	Registered []string         `json:"registered"`
	Selections []core.Selection `json:"selections"`
}

// ServiceStatus describes one dev service container.
type ServiceStatus struct {
	Service     string `json:"service"`
	ContainerID string `json:"container_id"`
	Endpoint    string `json:"endpoint"`
	Shared      bool   `json:"shared"`
}

// ServicesResponse is the body of GET /q/dev/services.
type ServicesResponse struct {
	Running  bool              `json:"running"`
	Services []ServiceStatus   `json:"services"`
	Config   map[string]string `json:"config,omitempty"`
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Providers handles GET /q/dev/providers
func (h *Handler) Providers(c echo.Context) error {
	selections := append([]core.Selection(nil), h.state.Selections()...)
	sort.SliceStable(selections, func(i, j int) bool {
		if selections[i].Capability != selections[j].Capability {
			return selections[i].Capability < selections[j].Capability
		}
		return selections[i].ModelName < selections[j].ModelName
	})
	registered := h.state.RegisteredProviders()
	if registered == nil {
		registered = []string{}
	}
	if selections == nil {
		selections = []core.Selection{}
	}
	return c.JSON(http.StatusOK, ProvidersResponse{Registered: registered, Selections: selections})
}

// Services handles GET /q/dev/services
func (h *Handler) Services(c echo.Context) error {
	resp := ServicesResponse{Services: []ServiceStatus{}}
	running := h.state.DevServices()
	if running != nil {
		resp.Running = true
		resp.Config = running.ConfigOverrides()
		for _, s := range running.Handles() {
			resp.Services = append(resp.Services, ServiceStatus{
				Service:     s.Service,
				ContainerID: s.ContainerID,
				Endpoint:    s.Endpoint(),
				Shared:      !s.Owner,
			})
		}
	}
	return c.JSON(http.StatusOK, resp)
}
