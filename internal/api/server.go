// Package api exposes the engines over HTTP. Handlers bind and validate
// JSON, call one engine operation and translate typed errors into statuses;
// no business logic lives here.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/analytics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/annotators"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/consensus"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/evolution"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/metrics"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/quality"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/router"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/version"
)

// Dependencies carries the engines the handlers serve.
type Dependencies struct {
	Router     *router.Router
	Consensus  *consensus.Engine
	Evolution  *evolution.Engine
	Predictor  *quality.Predictor
	Annotators *annotators.Manager
	Analytics  *analytics.Service
	Stores     *storage.Stores
}

// Server wires one handler per concern into a shared gin engine.
type Server struct {
	log            *logrus.Logger
	tasks          *TaskHandler
	constitutional *ConstitutionalHandler
	quality        *QualityHandler
	feedback       *FeedbackHandler
	annotators     *AnnotatorHandler
}

// NewServer builds the server over the given engines.
func NewServer(deps Dependencies, log *logrus.Logger) *Server {
	return &Server{
		log:            log,
		tasks:          NewTaskHandler(deps.Router, deps.Analytics, deps.Stores.Tasks),
		constitutional: NewConstitutionalHandler(deps.Consensus, deps.Evolution),
		quality:        NewQualityHandler(deps.Predictor),
		feedback:       NewFeedbackHandler(deps.Stores.Feedback, deps.Annotators, deps.Analytics, log),
		annotators:     NewAnnotatorHandler(deps.Annotators),
	}
}

// Routes builds the gin engine with all routes and middleware attached.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		RegisterTaskRoutes(api, s.tasks)
		RegisterConstitutionalRoutes(api, s.constitutional)
		RegisterQualityRoutes(api, s.quality)
		RegisterFeedbackRoutes(api, s.feedback)
		RegisterAnnotatorRoutes(api, s.annotators)
	}
	return r
}

// handleHealth reports liveness.
// GET /health
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "constitutionalflow",
		"version":   version.Version,
		"timestamp": time.Now().Unix(),
	})
}

// requestLogger writes one structured line per request.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("Request handled")
	}
}

// writeError maps engine errors onto HTTP statuses. Bad input is the
// caller's fault; missing rows and lost races get their own codes.
func writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrConflict), errors.Is(err, router.ErrNoAnnotator):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
