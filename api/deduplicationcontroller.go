package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDuplicateRoutes registers the duplicate check endpoint.
func RegisterDuplicateRoutes(r *gin.Engine, s *Server) {
	r.POST("/api/duplicates/check", s.handleCheckDuplicate)
}

// CheckDuplicateRequest represents the request to check for duplicates
type CheckDuplicateRequest struct {
	Tenant string `json:"tenant"`
	Title  string `json:"title" binding:"required"`
}

// handleCheckDuplicate compares a title with the tenant's recent topics
func (s *Server) handleCheckDuplicate(c *gin.Context) {
	if s.Duplicates == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "duplicate filter is not configured"})
		return
	}

	var req CheckDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.Duplicates.Check(c.Request.Context(), s.tenant(req.Tenant), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check duplicates: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
