package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trendbot/config"
	"trendbot/types"
)

// RegisterSourceRoutes registers the source registry and topic listing endpoints.
func RegisterSourceRoutes(r *gin.Engine, s *Server) {
	g := r.Group("/api")
	g.Use(s.requireRegistry)
	g.GET("/sources", s.handleListSources)
	g.POST("/sources", s.handleAddSource)
	g.DELETE("/sources/:id", s.handleRemoveSource)
	g.GET("/topics", s.handleListTopics)
}

// AddSourceRequest registers a source for scheduled runs. Locator may be a
// preset name such as "hn".
type AddSourceRequest struct {
	Tenant   string           `json:"tenant"`
	Locator  string           `json:"locator" binding:"required"`
	Kind     types.SourceKind `json:"kind"`
	SourceID string           `json:"source_id"`
}

func (s *Server) requireRegistry(c *gin.Context) {
	if s.Registry == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "source registry is not configured"})
		return
	}
	c.Next()
}

func (s *Server) handleListSources(c *gin.Context) {
	sources, err := s.Registry.ActiveSources(c.Request.Context(), s.tenant(c.Query("tenant")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (s *Server) handleAddSource(c *gin.Context) {
	var req AddSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src := types.SourceDescriptor{
		Locator:  config.ResolveSource(req.Locator),
		Kind:     req.Kind,
		SourceID: req.SourceID,
	}
	if err := s.Registry.RegisterSource(c.Request.Context(), s.tenant(req.Tenant), src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	src.SourceID = src.Key()
	c.JSON(http.StatusCreated, src)
}

func (s *Server) handleRemoveSource(c *gin.Context) {
	if err := s.Registry.DeactivateSource(c.Request.Context(), s.tenant(c.Query("tenant")), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListTopics(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	topics, err := s.Registry.Topics(c.Request.Context(), s.tenant(c.Query("tenant")), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}
