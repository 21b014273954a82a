package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ppcheck/app"
	"ppcheck/domain/core"
	"ppcheck/domain/dataset"
	"ppcheck/domain/model"
	"ppcheck/domain/replicate"
	"ppcheck/internal"
	"ppcheck/ports"
)

// Server exposes posterior predictive checks over a JSON API
type Server struct {
	router   *gin.Engine
	checks   *app.CheckService
	crossval *app.CrossValService
	repo     ports.RunRepository
	sampler  ports.FitOptions
	log      *internal.Logger
}

// NewServer wires the API routes. repo may be nil when persistence is not
// configured; the run lookup endpoints then return 503.
func NewServer(checks *app.CheckService, crossval *app.CrossValService, repo ports.RunRepository, sampler ports.FitOptions, log *internal.Logger) *Server {
	s := &Server{
		router:   gin.New(),
		checks:   checks,
		crossval: crossval,
		repo:     repo,
		sampler:  sampler,
		log:      log,
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/checks", s.handleRunCheck)
	api.GET("/checks", s.handleListRuns)
	api.GET("/checks/:id", s.handleGetRun)
	api.POST("/crossval", s.handleCrossVal)
}

// Run starts the HTTP server on the given port
func (s *Server) Run(port string) error {
	s.log.Info("api listening on :%s", port)
	return s.router.Run(":" + port)
}

// Handler exposes the underlying router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// observationPayload mirrors dataset.Observation for request binding
type observationPayload struct {
	Count     int     `json:"count"`
	Covariate float64 `json:"covariate"`
}

type checkRequest struct {
	Dataset      string               `json:"dataset"`
	Observations []observationPayload `json:"observations" binding:"required"`
	IncludeOLRE  bool                 `json:"include_olre"`
	Policies     []string             `json:"policies"`
	Mass         float64              `json:"mass"`
	Seed         *int64               `json:"seed"`
}

func (req checkRequest) table() (*dataset.Table, error) {
	rows := make([]dataset.Observation, len(req.Observations))
	for i, o := range req.Observations {
		rows[i] = dataset.Observation{Count: o.Count, Covariate: o.Covariate}
	}
	return dataset.NewTable(rows)
}

func (s *Server) handleRunCheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	table, err := req.table()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policies := make([]replicate.Policy, 0, len(req.Policies))
	for _, name := range req.Policies {
		p, ok := replicate.ByName(name)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown policy: " + name})
			return
		}
		policies = append(policies, p)
	}

	fit := s.sampler
	if req.Seed != nil {
		fit.Seed = *req.Seed
	}
	result, err := s.checks.Run(c.Request.Context(), app.CheckRequest{
		Dataset:  req.Dataset,
		Table:    table,
		Spec:     model.NewSpec(model.DefaultPriors(), req.IncludeOLRE),
		Policies: policies,
		Mass:     req.Mass,
		Fit:      fit,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsConvergenceError(err) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result.Record)
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run persistence not configured"})
		return
	}
	rec, err := s.repo.GetRun(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run persistence not configured"})
		return
	}
	recs, err := s.repo.ListRuns(c.Request.Context(), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": recs})
}

type crossvalRequest struct {
	Observations []observationPayload `json:"observations" binding:"required"`
	IncludeOLRE  bool                 `json:"include_olre"`
	Mass         float64              `json:"mass"`
	Seed         *int64               `json:"seed"`
}

func (s *Server) handleCrossVal(c *gin.Context) {
	var req crossvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows := make([]dataset.Observation, len(req.Observations))
	for i, o := range req.Observations {
		rows[i] = dataset.Observation{Count: o.Count, Covariate: o.Covariate}
	}
	table, err := dataset.NewTable(rows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fit := s.sampler
	if req.Seed != nil {
		fit.Seed = *req.Seed
	}
	result, err := s.crossval.Run(c.Request.Context(), app.CrossValRequest{
		Table: table,
		Spec:  model.NewSpec(model.DefaultPriors(), req.IncludeOLRE),
		Fit:   fit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
