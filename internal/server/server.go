package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/compliance"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/pdf"
	"github.com/rezonia/facturx/internal/pipeline"
	"github.com/rezonia/facturx/internal/validation"
)

// Config holds server configuration
type Config struct {
	Address         string
	GhostscriptPath string
	ConvertTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	Debug           bool
	Logger          zerolog.Logger
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	encoder   *cii.Encoder
	validator *validation.Validator
	checker   *compliance.Checker
	pipeline  *pipeline.Pipeline
	log       zerolog.Logger
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	var convOpts []pdf.ConverterOption
	if config.GhostscriptPath != "" {
		convOpts = append(convOpts, pdf.WithGhostscriptPath(config.GhostscriptPath))
	}
	if config.ConvertTimeout > 0 {
		convOpts = append(convOpts, pdf.WithTimeout(config.ConvertTimeout))
	}
	converter := pdf.NewConverter(convOpts...)

	s := &Server{
		config:    config,
		router:    router,
		encoder:   cii.NewEncoder(),
		validator: validation.NewValidator(),
		checker:   compliance.NewChecker(),
		pipeline: pipeline.NewPipeline(
			pipeline.WithConverter(converter),
			pipeline.WithLogger(config.Logger),
		),
		log: config.Logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/xml", s.handleGenerateXML)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/artifact", s.handleArtifact)
		v1.POST("/check", s.handleCheck)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"converter": s.pipeline.ConverterAvailable(),
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerateXML(c *gin.Context) {
	req, profile, ok := s.bindGenerateRequest(c)
	if !ok {
		return
	}

	xml, err := s.encoder.Encode(req.Invoice, profile)
	if err != nil {
		var inputErr *model.InputError
		if errors.As(err, &inputErr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/xml", xml)
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := s.rawBody(c)
	if !ok {
		return
	}

	profile, ok := s.queryProfile(c)
	if !ok {
		return
	}

	report, err := s.validator.Validate(body, profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ValidateResponse{
		Profile: string(report.Profile),
		Valid:   report.Valid,
		Results: report.Results,
	})
}

func (s *Server) handleArtifact(c *gin.Context) {
	req, profile, ok := s.bindGenerateRequest(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Minute)
	defer cancel()

	result, err := s.pipeline.ComposeArtifact(ctx, req.Invoice, profile)
	if err != nil {
		var toolErr *model.ToolError
		if errors.As(err, &toolErr) {
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "artifact generation failed",
				Details: toolErr.Error(),
			})
			return
		}
		var inputErr *model.InputError
		if errors.As(err, &inputErr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	// Non-compliant artifacts are still returned so callers can
	// inspect them; the status travels in the headers.
	c.Header("X-Run-Id", result.RunID)
	c.Header("X-Compliance-Status", string(result.Status))
	c.Data(http.StatusOK, "application/pdf", result.Artifact)
}

func (s *Server) handleCheck(c *gin.Context) {
	body, ok := s.rawBody(c)
	if !ok {
		return
	}

	profile, ok := s.queryProfile(c)
	if !ok {
		return
	}

	report, err := s.checker.Check(body, profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp := CheckResponse{
		Profile:   string(report.Profile),
		Compliant: report.Compliant,
		Checks:    report.Checks,
	}
	if report.Validation != nil {
		resp.XML = &ValidateResponse{
			Profile: string(report.Validation.Profile),
			Valid:   report.Validation.Valid,
			Results: report.Validation.Results,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Request helpers

func (s *Server) rawBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return nil, false
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}
	return body, true
}

func (s *Server) queryProfile(c *gin.Context) (model.Profile, bool) {
	raw := c.DefaultQuery("profile", string(model.ProfileEN16931))
	profile, err := model.ParseProfile(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return profile, true
}

func (s *Server) bindGenerateRequest(c *gin.Context) (*GenerateRequest, model.Profile, bool) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return nil, "", false
	}
	if req.Invoice == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing invoice"})
		return nil, "", false
	}

	raw := req.Profile
	if raw == "" {
		raw = string(model.ProfileEN16931)
	}
	profile, err := model.ParseProfile(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return nil, "", false
	}
	return &req, profile, true
}
