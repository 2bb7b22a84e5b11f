package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trendbot/deduplication"
	"trendbot/logging"
	"trendbot/orchestrator"
	"trendbot/types"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, tenant string, sources []types.SourceDescriptor, progress orchestrator.Progress) *orchestrator.RunResult
}

// DuplicateChecker answers ad-hoc duplicate checks.
type DuplicateChecker interface {
	Check(ctx context.Context, tenant, title string) (*deduplication.Result, error)
}

// Registry manages the sources scheduled runs crawl and lists stored topics.
type Registry interface {
	RegisterSource(ctx context.Context, tenant string, d types.SourceDescriptor) error
	DeactivateSource(ctx context.Context, tenant, sourceID string) error
	ActiveSources(ctx context.Context, tenant string) ([]types.SourceDescriptor, error)
	Topics(ctx context.Context, tenant string, limit int) ([]types.StoredTopic, error)
}

// Server holds the dependencies of the HTTP handlers. Duplicates and
// Registry are optional; their routes answer 503 without them.
type Server struct {
	Runner        Runner
	Duplicates    DuplicateChecker
	Registry      Registry
	DefaultTenant string
	Logger        *slog.Logger
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logging.OrDiscard(s.Logger)))

	RegisterHealthRoutes(r)
	RegisterScrapeRoutes(r, s)
	RegisterDuplicateRoutes(r, s)
	RegisterSourceRoutes(r, s)
	return r
}

// RegisterHealthRoutes registers GET /api/health.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}

func (s *Server) tenant(requested string) string {
	if requested != "" {
		return requested
	}
	return s.DefaultTenant
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start).Round(time.Millisecond),
		)
	}
}
