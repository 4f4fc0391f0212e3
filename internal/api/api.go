package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sodrooome/service-registry/internal/registry"
)

const shutdownTimeout = 5 * time.Second

// Server exposes the registry's in-process surface over HTTP for
// operators.
type Server struct {
	echo     *echo.Echo
	addr     string
	registry *registry.Registry
}

type registerRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type assignRequest struct {
	Target string `json:"target"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type breakerResponse struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// New creates an admin server bound to addr. The address is validated
// before the server is created.
func New(addr string, reg *registry.Registry) (*Server, error) {
	if err := validateHostPort(addr); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		addr:     addr,
		registry: reg,
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/services", s.listServices)
	s.echo.POST("/services", s.registerService)
	s.echo.GET("/services/:name", s.getService)
	s.echo.GET("/services/:name/resolve", s.resolveService)
	s.echo.DELETE("/services/:name", s.deregisterService)
	s.echo.POST("/services/:name/assign", s.assignService)
	s.echo.POST("/services/:name/trace", s.traceService)
	s.echo.GET("/tracing", s.tracingSnapshot)
	s.echo.GET("/breaker", s.breakerStatus)
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins listening for HTTP requests. Returns an error unless the
// server is shut down cleanly.
func (s *Server) Start() error {
	err := s.echo.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) listServices(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.ServicesInformation())
}

func (s *Server) registerService(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request body"})
	}
	if req.Name == "" || req.URL == "" {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "name and url are required"})
	}

	if err := s.registry.Register(req.Name, req.URL); err != nil {
		if errors.Is(err, registry.ErrDuplicateService) {
			return c.JSON(http.StatusConflict, messageResponse{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, urlResponse{URL: req.URL})
}

func (s *Server) getService(c echo.Context) error {
	url, err := s.registry.GetService(c.Param("name"))
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrUnknownService):
			return c.JSON(http.StatusNotFound, messageResponse{Message: err.Error()})
		case errors.Is(err, registry.ErrUnhealthyService):
			return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, urlResponse{URL: url})
}

func (s *Server) resolveService(c echo.Context) error {
	url, ok := s.registry.GetAvailableService(c.Param("name"))
	if !ok {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "no available service"})
	}

	return c.JSON(http.StatusOK, urlResponse{URL: url})
}

func (s *Server) deregisterService(c echo.Context) error {
	if err := s.registry.Deregister(c.Param("name")); err != nil {
		return c.JSON(http.StatusNotFound, messageResponse{Message: err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

// assignService records a manual failover assignment. The registry treats
// a failed precondition as a silent no-op, so the response always reflects
// the entry's current state rather than a success flag.
func (s *Server) assignService(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request body"})
	}
	if req.Target == "" {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "target is required"})
	}

	name := c.Param("name")
	s.registry.AssignService(name, req.Target)

	info, exists := s.registry.ServicesInformation()[name]
	if !exists {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "no such service"})
	}

	return c.JSON(http.StatusAccepted, info)
}

func (s *Server) traceService(c echo.Context) error {
	if err := s.registry.TraceServiceRequest(c.Param("name")); err != nil {
		return c.JSON(http.StatusNotFound, messageResponse{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, s.registry.TracingSnapshot())
}

func (s *Server) tracingSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.TracingSnapshot())
}

func (s *Server) breakerStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, breakerResponse{
		State:    s.registry.BreakerState().String(),
		Failures: s.registry.BreakerFailures(),
	})
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
