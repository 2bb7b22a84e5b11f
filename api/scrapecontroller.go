package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trendbot/types"
)

// RegisterScrapeRoutes registers the synchronous pipeline endpoints.
func RegisterScrapeRoutes(r *gin.Engine, s *Server) {
	r.POST("/api/scrape", s.handleScrape)
	r.POST("/api/newsletter", s.handleNewsletter)
}

// NewsletterRequest carries one received newsletter.
type NewsletterRequest struct {
	Tenant   string    `json:"tenant"`
	SourceID string    `json:"source_id" binding:"required"`
	Subject  string    `json:"subject"`
	From     string    `json:"from"`
	Date     time.Time `json:"date"`
	HTMLBody string    `json:"html_body" binding:"required"`
}

func (s *Server) handleScrape(c *gin.Context) {
	var req types.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.Runner.Run(c.Request.Context(), s.tenant(req.Tenant), req.Sources, nil)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleNewsletter(c *gin.Context) {
	var req NewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src := types.SourceDescriptor{
		Kind:     types.KindNewsletter,
		SourceID: req.SourceID,
		Email: &types.Email{
			Subject:  req.Subject,
			From:     req.From,
			Date:     req.Date,
			HTMLBody: req.HTMLBody,
		},
	}
	res := s.Runner.Run(c.Request.Context(), s.tenant(req.Tenant), []types.SourceDescriptor{src}, nil)
	c.JSON(http.StatusOK, res)
}
