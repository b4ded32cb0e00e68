package httpServer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"primestream/internal/capture"
	"primestream/internal/engine"
	"primestream/internal/transport"
	"primestream/pkg/models"
)

// Server wraps the HTTP control API with dependencies
type Server struct {
	router   *gin.Engine
	manager  *engine.Manager
	defaults models.StreamConfig
}

// New creates a new HTTP server
func New(manager *engine.Manager, defaults models.StreamConfig) *Server {
	s := &Server{
		manager:  manager,
		defaults: defaults,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	router := gin.Default()

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.POST("/v1/sessions", s.handleCreateSession)
		api.GET("/v1/sessions", s.handleListSessions)
		api.GET("/v1/sessions/:id", s.handleGetSession)
		api.GET("/v1/sessions/:id/stats", s.handleGetStats)
		api.POST("/v1/sessions/:id/start", s.handleStartSession)
		api.POST("/v1/sessions/:id/stop", s.handleStopSession)
		api.POST("/v1/sessions/:id/pause", s.handlePauseSession)
		api.POST("/v1/sessions/:id/resume", s.handleResumeSession)
		api.PATCH("/v1/sessions/:id/quality", s.handleSetQuality)
		api.DELETE("/v1/sessions/:id", s.handleDeleteSession)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler implementations

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"time":    time.Now().Unix(),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req models.SessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.defaults
	if req.Width > 0 && req.Height > 0 {
		cfg.Resolution = models.Resolution{Width: req.Width, Height: req.Height}
	}
	if req.Framerate > 0 {
		cfg.Framerate = req.Framerate
	}
	if req.VideoCodec != "" {
		cfg.VideoCodec = models.VideoCodec(req.VideoCodec)
	}
	if req.QualityPreset != "" {
		preset := models.QualityPreset(req.QualityPreset)
		if !preset.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown quality preset"})
			return
		}
		cfg.QualityPreset = preset
	}
	if req.BitrateKbps > 0 {
		cfg.VideoBitrateKbps = req.BitrateKbps
	}
	cfg.SlicedEncoding = req.SlicedEncoding
	cfg.IntraRefresh = req.IntraRefresh

	switch cfg.VideoCodec {
	case models.CodecH264, models.CodecHEVC, models.CodecAV1:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown video codec"})
		return
	}

	var opts *engine.Options
	if req.SourceKind != "" || req.Protocol != "" || req.StreamKey != "" || req.LatencyMS > 0 {
		proto := transport.Protocol(req.Protocol)
		if req.Protocol != "" && !proto.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown protocol"})
			return
		}
		opts = &engine.Options{
			SourceKind: capture.SourceKind(req.SourceKind),
			Protocol:   proto,
			StreamKey:  req.StreamKey,
			LatencyMS:  req.LatencyMS,
		}
	}

	eng := s.manager.CreateSession(cfg, opts)
	c.JSON(http.StatusCreated, sessionToInfo(eng))
}

func (s *Server) handleListSessions(c *gin.Context) {
	sessions := s.manager.ListSessions()

	infos := make([]models.SessionInfo, len(sessions))
	for i, eng := range sessions {
		infos[i] = sessionToInfo(eng)
	}

	c.JSON(http.StatusOK, models.SessionListResponse{
		Sessions: infos,
		Total:    len(infos),
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	eng, exists := s.manager.GetSession(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, sessionToInfo(eng))
}

func (s *Server) handleGetStats(c *gin.Context) {
	eng, exists := s.manager.GetSession(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, eng.Stats())
}

func (s *Server) handleStartSession(c *gin.Context) {
	eng, exists := s.manager.GetSession(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req models.SessionStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := eng.Start(c.Request.Context(), req.Host, req.Port); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, engine.ErrInvalidState) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	// The pipeline outlives the request; Stop joins it.
	go eng.Run(context.Background())

	c.JSON(http.StatusOK, sessionToInfo(eng))
}

func (s *Server) handleStopSession(c *gin.Context) {
	eng, exists := s.manager.GetSession(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := eng.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "session stopped",
		"id":      eng.ID(),
	})
}

func (s *Server) handlePauseSession(c *gin.Context) {
	eng, exists := s.manager.GetSession(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := eng.Pause(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionToInfo(eng))
}

func (s *Server) handleResumeSession(c *gin.Context) {
	eng, exists := s.manager.GetSession(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := eng.Resume(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionToInfo(eng))
}

func (s *Server) handleSetQuality(c *gin.Context) {
	eng, exists := s.manager.GetSession(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req models.QualityUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := eng.SetQualityPreset(models.QualityPreset(req.Preset)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionToInfo(eng))
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.manager.DeleteSession(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "session deleted",
		"id":      id,
	})
}

// Helper functions

func sessionToInfo(eng *engine.Engine) models.SessionInfo {
	return models.SessionInfo{
		ID:     eng.ID(),
		State:  eng.State(),
		Config: eng.Config(),
		Stats:  eng.Stats(),
	}
}
